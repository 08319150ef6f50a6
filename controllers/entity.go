package controllers

import (
	"errors"
	"net/http"

	"github.com/NickArm/Invoice-System-sub000/config"
	"github.com/NickArm/Invoice-System-sub000/models"
	"github.com/NickArm/Invoice-System-sub000/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateEntityInput defines the expected JSON structure for creating a business entity
type CreateEntityInput struct {
	Name       string `json:"name" binding:"required"`
	TaxID      string `json:"taxId"`
	TaxOffice  string `json:"taxOffice"`
	Email      string `json:"email"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Type       string `json:"type" binding:"omitempty,oneof=customer supplier"`
}

// UpdateEntityInput defines the expected JSON structure for updating a business entity
type UpdateEntityInput struct {
	Name       *string `json:"name"`
	TaxID      *string `json:"taxId"`
	TaxOffice  *string `json:"taxOffice"`
	Email      *string `json:"email"`
	Address    *string `json:"address"`
	City       *string `json:"city"`
	PostalCode *string `json:"postalCode"`
	Type       *string `json:"type" binding:"omitempty,oneof=customer supplier"`
}

// CreateEntity creates a new counterparty for the user
func CreateEntity(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var input CreateEntityInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	// Keep one canonical entity per tax id
	if input.TaxID != "" {
		var existing models.BusinessEntity
		if err := config.DB.Where("user_id = ? AND tax_id = ?", userID, input.TaxID).
			First(&existing).Error; err == nil {
			utils.RespondWithError(c, http.StatusConflict, "An entity with this tax id already exists: "+existing.Name)
			return
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
			return
		}
	}

	entityType := input.Type
	if entityType == "" {
		entityType = "supplier"
	}

	entity := models.BusinessEntity{
		ID:         uuid.New(),
		UserID:     userID,
		Name:       input.Name,
		TaxID:      input.TaxID,
		TaxOffice:  input.TaxOffice,
		Email:      input.Email,
		Address:    input.Address,
		City:       input.City,
		PostalCode: input.PostalCode,
		Type:       entityType,
	}

	if err := config.DB.Create(&entity).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create entity")
		return
	}

	c.JSON(http.StatusCreated, entity)
}

// GetEntities retrieves all business entities for the user
func GetEntities(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var entities []models.BusinessEntity
	if err := config.DB.Where("user_id = ?", userID).Find(&entities).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve entities")
		return
	}

	c.JSON(http.StatusOK, entities)
}

// GetEntity retrieves a specific business entity by ID
func GetEntity(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	entityUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid entity ID format")
		return
	}

	var entity models.BusinessEntity
	if err := config.DB.Where("user_id = ? AND id = ?", userID, entityUUID).
		First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Entity not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	c.JSON(http.StatusOK, entity)
}

// UpdateEntity updates an existing business entity
func UpdateEntity(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	entityUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid entity ID format")
		return
	}

	var input UpdateEntityInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var entity models.BusinessEntity
	if err := config.DB.Where("user_id = ? AND id = ?", userID, entityUUID).
		First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Entity not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if input.Name != nil {
		entity.Name = *input.Name
	}
	if input.TaxID != nil {
		// Changing the tax id must not collide with another entity
		if *input.TaxID != "" && *input.TaxID != entity.TaxID {
			var existing models.BusinessEntity
			if err := config.DB.Where("user_id = ? AND tax_id = ? AND id <> ?", userID, *input.TaxID, entity.ID).
				First(&existing).Error; err == nil {
				utils.RespondWithError(c, http.StatusConflict, "Another entity with this tax id already exists: "+existing.Name)
				return
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
				return
			}
		}
		entity.TaxID = *input.TaxID
	}
	if input.TaxOffice != nil {
		entity.TaxOffice = *input.TaxOffice
	}
	if input.Email != nil {
		entity.Email = *input.Email
	}
	if input.Address != nil {
		entity.Address = *input.Address
	}
	if input.City != nil {
		entity.City = *input.City
	}
	if input.PostalCode != nil {
		entity.PostalCode = *input.PostalCode
	}
	if input.Type != nil {
		entity.Type = *input.Type
	}

	if err := config.DB.Save(&entity).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update entity")
		return
	}

	c.JSON(http.StatusOK, entity)
}

// DeleteEntity removes a business entity unless invoices still reference it
func DeleteEntity(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	entityUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid entity ID format")
		return
	}

	var count int64
	if err := config.DB.Model(&models.Invoice{}).
		Where("user_id = ? AND business_entity_id = ?", userID, entityUUID).
		Count(&count).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}
	if count > 0 {
		utils.RespondWithError(c, http.StatusConflict, "Entity has invoices and cannot be deleted")
		return
	}

	result := config.DB.Where("user_id = ? AND id = ?", userID, entityUUID).
		Delete(&models.BusinessEntity{})

	if result.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete entity")
		return
	}

	if result.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Entity not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Entity deleted successfully"})
}
