// controllers/mydata.go
package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/NickArm/Invoice-System-sub000/config"
	"github.com/NickArm/Invoice-System-sub000/models"
	"github.com/NickArm/Invoice-System-sub000/services"
	"github.com/NickArm/Invoice-System-sub000/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// FetchMyData pulls the user's reported books from the tax platform and
// annotates each record with its local reconciliation state
func FetchMyData(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	direction := c.DefaultQuery("direction", "expenses")
	if direction != "income" && direction != "expenses" {
		utils.RespondWithError(c, http.StatusBadRequest, "direction must be 'income' or 'expenses'")
		return
	}

	dateFrom, err := time.Parse("2006-01-02", c.Query("date_from"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "date_from must be in YYYY-MM-DD format")
		return
	}
	dateTo, err := time.Parse("2006-01-02", c.Query("date_to"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "date_to must be in YYYY-MM-DD format")
		return
	}
	if dateTo.Before(dateFrom) {
		utils.RespondWithError(c, http.StatusBadRequest, "date_to must not be before date_from")
		return
	}

	var user models.User
	if err := config.DB.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "User not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	records, err := MyData.FetchAndReconcile(&user, direction, dateFrom, dateTo)
	if err != nil {
		// Missing credentials are a settings problem, not an upstream outage
		status := http.StatusBadGateway
		if errors.Is(err, services.ErrMyDataNotConfigured) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{
			"success": false,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(records),
		"records": records,
	})
}
