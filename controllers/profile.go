package controllers

import (
	"net/http"

	"github.com/NickArm/Invoice-System-sub000/config"
	"github.com/NickArm/Invoice-System-sub000/models"
	"github.com/NickArm/Invoice-System-sub000/utils"

	"github.com/gin-gonic/gin"
)

type UpdateProfileInput struct {
	Name            *string `json:"name"`
	CompanyName     *string `json:"companyName"`
	TaxID           *string `json:"taxId"`
	TaxOffice       *string `json:"taxOffice"`
	Address         *string `json:"address"`
	City            *string `json:"city"`
	PostalCode      *string `json:"postalCode"`
	AccountantEmail *string `json:"accountantEmail"`
}

type UpdateIntegrationsInput struct {
	OpenAIAPIKey          *string `json:"openaiApiKey"`
	MyDataUserID          *string `json:"mydataUserId"`
	MyDataSubscriptionKey *string `json:"mydataSubscriptionKey"`
	ImapHost              *string `json:"imapHost"`
	ImapPort              *int    `json:"imapPort"`
	ImapUsername          *string `json:"imapUsername"`
	ImapPassword          *string `json:"imapPassword"`
	ImapSubjectFilter     *string `json:"imapSubjectFilter"`
	AutoImportEnabled     *bool   `json:"autoImportEnabled"`
	NotifyPhone           *string `json:"notifyPhone"`
	AlertsEnabled         *bool   `json:"alertsEnabled"`
}

func GetProfile(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var user models.User
	if err := config.DB.First(&user, "id = ?", userID).Error; err != nil {
		utils.RespondWithError(c, http.StatusNotFound, "User not found")
		return
	}

	// Secrets are reported as configured/not-configured, never echoed
	c.JSON(http.StatusOK, gin.H{
		"name":              user.Name,
		"email":             user.Email,
		"companyName":       user.CompanyName,
		"taxId":             user.TaxID,
		"taxOffice":         user.TaxOffice,
		"address":           user.Address,
		"city":              user.City,
		"postalCode":        user.PostalCode,
		"accountantEmail":   user.AccountantEmail,
		"openaiConfigured":  user.OpenAIAPIKey != "",
		"mydataConfigured":  user.MyDataUserID != "" && user.MyDataSubscriptionKey != "",
		"imapConfigured":    user.ImapHost != "" && user.ImapUsername != "",
		"imapHost":          user.ImapHost,
		"imapPort":          user.ImapPort,
		"imapUsername":      user.ImapUsername,
		"imapSubjectFilter": user.ImapSubjectFilter,
		"autoImportEnabled": user.AutoImportEnabled,
		"notifyPhone":       user.NotifyPhone,
		"alertsEnabled":     user.AlertsEnabled,
	})
}

func UpdateProfile(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var input UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input")
		return
	}

	var user models.User
	if err := config.DB.First(&user, "id = ?", userID).Error; err != nil {
		utils.RespondWithError(c, http.StatusNotFound, "User not found")
		return
	}

	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.CompanyName != nil {
		user.CompanyName = *input.CompanyName
	}
	if input.TaxID != nil {
		user.TaxID = *input.TaxID
	}
	if input.TaxOffice != nil {
		user.TaxOffice = *input.TaxOffice
	}
	if input.Address != nil {
		user.Address = *input.Address
	}
	if input.City != nil {
		user.City = *input.City
	}
	if input.PostalCode != nil {
		user.PostalCode = *input.PostalCode
	}
	if input.AccountantEmail != nil {
		user.AccountantEmail = *input.AccountantEmail
	}

	if err := config.DB.Save(&user).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Profile updated"})
}

func UpdateIntegrations(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var input UpdateIntegrationsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input")
		return
	}

	var user models.User
	if err := config.DB.First(&user, "id = ?", userID).Error; err != nil {
		utils.RespondWithError(c, http.StatusNotFound, "User not found")
		return
	}

	if input.OpenAIAPIKey != nil {
		user.OpenAIAPIKey = *input.OpenAIAPIKey
	}
	if input.MyDataUserID != nil {
		user.MyDataUserID = *input.MyDataUserID
	}
	if input.MyDataSubscriptionKey != nil {
		user.MyDataSubscriptionKey = *input.MyDataSubscriptionKey
	}
	if input.ImapHost != nil {
		user.ImapHost = *input.ImapHost
	}
	if input.ImapPort != nil {
		user.ImapPort = *input.ImapPort
	}
	if input.ImapUsername != nil {
		user.ImapUsername = *input.ImapUsername
	}
	if input.ImapPassword != nil {
		user.ImapPassword = *input.ImapPassword
	}
	if input.ImapSubjectFilter != nil {
		user.ImapSubjectFilter = *input.ImapSubjectFilter
	}
	if input.AutoImportEnabled != nil {
		user.AutoImportEnabled = *input.AutoImportEnabled
	}
	if input.NotifyPhone != nil {
		if *input.NotifyPhone != "" && !utils.ValidatePhone(*input.NotifyPhone) {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number format")
			return
		}
		user.NotifyPhone = *input.NotifyPhone
	}
	if input.AlertsEnabled != nil {
		user.AlertsEnabled = *input.AlertsEnabled
	}

	if err := config.DB.Save(&user).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update settings")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Settings updated"})
}

// TestImapConnection verifies the stored IMAP settings and reports a
// user-readable result instead of failing the request
func TestImapConnection(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var user models.User
	if err := config.DB.First(&user, "id = ?", userID).Error; err != nil {
		utils.RespondWithError(c, http.StatusNotFound, "User not found")
		return
	}

	if err := Mailbox.TestConnection(&user); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Mailbox connection successful"})
}
