package controllers

import (
	"net/http"

	"github.com/NickArm/Invoice-System-sub000/services"
	"github.com/NickArm/Invoice-System-sub000/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Shared service handles, wired from main
var (
	Jobs        *services.Queue
	Extractor   *services.ExtractionService
	MyData      *services.MyDataService
	VatRegistry *services.VatRegistryClient
	Mailbox     *services.MailboxService
)

// getUserID pulls the authenticated owner id out of the request context
func getUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get("userId")
	if !exists {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return uuid.Nil, false
	}
	raw, ok := value.(string)
	if !ok {
		utils.RespondWithError(c, http.StatusInternalServerError, "Invalid user ID format")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Invalid user ID format")
		return uuid.Nil, false
	}
	return id, true
}
