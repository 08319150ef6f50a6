// controllers/invoice.go
package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/NickArm/Invoice-System-sub000/config"
	"github.com/NickArm/Invoice-System-sub000/models"
	"github.com/NickArm/Invoice-System-sub000/services"
	"github.com/NickArm/Invoice-System-sub000/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvoiceItemInput defines the structure for an invoice line item
type InvoiceItemInput struct {
	Description string  `json:"description" binding:"required"`
	Quantity    float64 `json:"quantity" binding:"min=0"`
	UnitPrice   float64 `json:"unitPrice"`
	TaxRate     float64 `json:"taxRate" binding:"min=0"`
	LineTotal   float64 `json:"lineTotal"`
	Category    string  `json:"category"`
}

// CreateInvoiceInput defines the expected JSON structure for creating an invoice.
// The counterparty is given either as an explicit entity id or as the free-text
// supplier fields of a reviewed extraction.
type CreateInvoiceInput struct {
	EntityID           *uuid.UUID `json:"entityId"`
	SupplierName       string     `json:"supplierName"`
	SupplierTaxID      string     `json:"supplierTaxId"`
	SupplierTaxOffice  string     `json:"supplierTaxOffice"`
	SupplierEmail      string     `json:"supplierEmail"`
	SupplierAddress    string     `json:"supplierAddress"`
	SupplierCity       string     `json:"supplierCity"`
	SupplierPostalCode string     `json:"supplierPostalCode"`

	Type        string             `json:"type" binding:"required,oneof=income expense"`
	Status      string             `json:"status" binding:"omitempty,oneof=pending paid draft approved"`
	Number      string             `json:"number"`
	Category    string             `json:"category"`
	IssueDate   time.Time          `json:"issueDate" binding:"required"`
	DueDate     *time.Time         `json:"dueDate"`
	Currency    string             `json:"currency"`
	TotalNet    float64            `json:"totalNet"`
	VatPercent  float64            `json:"vatPercent" binding:"min=0"`
	VatAmount   float64            `json:"vatAmount"`
	TotalGross  float64            `json:"totalGross"`
	Description string             `json:"description"`
	Items       []InvoiceItemInput `json:"items"`

	AttachmentID *uuid.UUID `json:"attachmentId"`
}

// UpdateInvoiceInput defines the expected JSON structure for updating an invoice
type UpdateInvoiceInput struct {
	EntityID      *uuid.UUID `json:"entityId"`
	SupplierName  *string    `json:"supplierName"`
	SupplierTaxID *string    `json:"supplierTaxId"`

	Type        *string             `json:"type" binding:"omitempty,oneof=income expense"`
	Status      *string             `json:"status" binding:"omitempty,oneof=pending paid draft approved"`
	Number      *string             `json:"number"`
	Category    *string             `json:"category"`
	IssueDate   *time.Time          `json:"issueDate"`
	DueDate     *time.Time          `json:"dueDate"`
	Currency    *string             `json:"currency"`
	TotalNet    *float64            `json:"totalNet"`
	VatPercent  *float64            `json:"vatPercent"`
	VatAmount   *float64            `json:"vatAmount"`
	TotalGross  *float64            `json:"totalGross"`
	Description *string             `json:"description"`
	Items       *[]InvoiceItemInput `json:"items"`
}

func duplicateMessage(entity *models.BusinessEntity) string {
	if entity.TaxID != "" {
		return fmt.Sprintf("An invoice with this number already exists for %s (tax id %s)", entity.Name, entity.TaxID)
	}
	return fmt.Sprintf("An invoice with this number already exists for %s", entity.Name)
}

// CreateInvoice creates a new invoice, resolving the counterparty through the
// entity matching precedence
func CreateInvoice(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var input CreateInvoiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	entity, err := services.FindOrCreateEntity(config.DB, userID, services.EntityInput{
		EntityID:   input.EntityID,
		Name:       input.SupplierName,
		TaxID:      input.SupplierTaxID,
		TaxOffice:  input.SupplierTaxOffice,
		Email:      input.SupplierEmail,
		Address:    input.SupplierAddress,
		City:       input.SupplierCity,
		PostalCode: input.SupplierPostalCode,
	})
	if err != nil {
		if errors.Is(err, services.ErrEntityNotOwned) {
			utils.RespondWithError(c, http.StatusNotFound, "Entity not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to resolve counterparty")
		}
		return
	}

	var entityID *uuid.UUID
	if entity != nil {
		id := entity.ID
		entityID = &id
	}

	// Duplicate check runs before creation; this is a recoverable validation
	// rejection, not an error
	duplicate, err := services.IsDuplicateInvoice(config.DB, userID, input.Number, entityID)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}
	if duplicate {
		utils.RespondWithError(c, http.StatusConflict, duplicateMessage(entity))
		return
	}

	currency := input.Currency
	if currency == "" {
		currency = "EUR"
	}
	status := input.Status
	if status == "" {
		status = "pending"
	}
	category := input.Category
	if category == "" {
		category = "General"
	}

	invoice := models.Invoice{
		ID:               uuid.New(),
		UserID:           userID,
		BusinessEntityID: entityID,
		Type:             input.Type,
		Status:           status,
		Number:           input.Number,
		Category:         category,
		IssueDate:        input.IssueDate,
		DueDate:          input.DueDate,
		Currency:         currency,
		TotalNet:         input.TotalNet,
		VatPercent:       input.VatPercent,
		VatAmount:        input.VatAmount,
		TotalGross:       input.TotalGross,
		Description:      input.Description,
	}

	for _, item := range input.Items {
		lineTotal := item.LineTotal
		if lineTotal == 0 {
			lineTotal = item.UnitPrice * item.Quantity
		}
		invoice.Items = append(invoice.Items, models.InvoiceItem{
			ID:          uuid.New(),
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TaxRate:     item.TaxRate,
			LineTotal:   lineTotal,
			Category:    item.Category,
		})
	}

	// Start transaction
	tx := config.DB.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(&invoice).Error; err != nil {
		tx.Rollback()
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create invoice")
		return
	}

	// Link the source attachment, if any
	if input.AttachmentID != nil {
		result := tx.Model(&models.Attachment{}).
			Where("user_id = ? AND id = ?", userID, *input.AttachmentID).
			Updates(map[string]interface{}{
				"invoice_id": invoice.ID,
				"status":     "processed",
				"is_draft":   false,
			})
		if result.Error != nil {
			tx.Rollback()
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to link attachment")
			return
		}
		if result.RowsAffected == 0 {
			tx.Rollback()
			utils.RespondWithError(c, http.StatusBadRequest, "Attachment not found")
			return
		}
	}

	tx.Commit()

	c.JSON(http.StatusCreated, invoice)
}

// GetInvoices retrieves all invoices for the user
func GetInvoices(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var invoices []models.Invoice
	if err := config.DB.Preload("Items").
		Where("user_id = ?", userID).
		Order("issue_date DESC").
		Find(&invoices).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve invoices")
		return
	}

	c.JSON(http.StatusOK, invoices)
}

// GetInvoice retrieves a specific invoice by ID
func GetInvoice(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	invoiceUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid invoice ID format")
		return
	}

	var invoice models.Invoice
	if err := config.DB.Preload("Items").
		Where("user_id = ? AND id = ?", userID, invoiceUUID).
		First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Invoice not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// UpdateInvoice updates an existing invoice, re-running counterparty
// resolution and the duplicate check when those fields change
func UpdateInvoice(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	invoiceUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid invoice ID format")
		return
	}

	var input UpdateInvoiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var invoice models.Invoice
	if err := config.DB.Preload("Items").
		Where("user_id = ? AND id = ?", userID, invoiceUUID).
		First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Invoice not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	// Re-resolve the counterparty when any identifying field was supplied
	if input.EntityID != nil || input.SupplierName != nil || input.SupplierTaxID != nil {
		in := services.EntityInput{EntityID: input.EntityID}
		if input.SupplierName != nil {
			in.Name = *input.SupplierName
		}
		if input.SupplierTaxID != nil {
			in.TaxID = *input.SupplierTaxID
		}
		entity, err := services.FindOrCreateEntity(config.DB, userID, in)
		if err != nil {
			if errors.Is(err, services.ErrEntityNotOwned) {
				utils.RespondWithError(c, http.StatusNotFound, "Entity not found")
			} else {
				utils.RespondWithError(c, http.StatusInternalServerError, "Failed to resolve counterparty")
			}
			return
		}
		if entity != nil {
			id := entity.ID
			invoice.BusinessEntityID = &id
		} else {
			invoice.BusinessEntityID = nil
		}
	}

	if input.Number != nil {
		invoice.Number = *input.Number
	}

	duplicate, err := services.IsDuplicateInvoiceExcluding(config.DB, userID, invoice.Number, invoice.BusinessEntityID, invoice.ID)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}
	if duplicate {
		var entity models.BusinessEntity
		if err := config.DB.First(&entity, "id = ?", *invoice.BusinessEntityID).Error; err == nil {
			utils.RespondWithError(c, http.StatusConflict, duplicateMessage(&entity))
		} else {
			utils.RespondWithError(c, http.StatusConflict, "An invoice with this number already exists for this entity")
		}
		return
	}

	if input.Type != nil {
		invoice.Type = *input.Type
	}
	if input.Status != nil {
		invoice.Status = *input.Status
	}
	if input.Category != nil {
		invoice.Category = *input.Category
	}
	if input.IssueDate != nil {
		invoice.IssueDate = *input.IssueDate
	}
	if input.DueDate != nil {
		invoice.DueDate = input.DueDate
	}
	if input.Currency != nil {
		invoice.Currency = *input.Currency
	}
	if input.TotalNet != nil {
		invoice.TotalNet = *input.TotalNet
	}
	if input.VatPercent != nil {
		invoice.VatPercent = *input.VatPercent
	}
	if input.VatAmount != nil {
		invoice.VatAmount = *input.VatAmount
	}
	if input.TotalGross != nil {
		invoice.TotalGross = *input.TotalGross
	}
	if input.Description != nil {
		invoice.Description = *input.Description
	}

	// Start transaction
	tx := config.DB.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	// If items are being updated, replace them wholesale
	if input.Items != nil {
		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			tx.Rollback()
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to clear existing items")
			return
		}

		var newItems []models.InvoiceItem
		for _, item := range *input.Items {
			lineTotal := item.LineTotal
			if lineTotal == 0 {
				lineTotal = item.UnitPrice * item.Quantity
			}
			newItems = append(newItems, models.InvoiceItem{
				ID:          uuid.New(),
				InvoiceID:   invoice.ID,
				Description: item.Description,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
				TaxRate:     item.TaxRate,
				LineTotal:   lineTotal,
				Category:    item.Category,
			})
		}
		invoice.Items = newItems
	}

	if err := tx.Save(&invoice).Error; err != nil {
		tx.Rollback()
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update invoice")
		return
	}

	tx.Commit()

	c.JSON(http.StatusOK, invoice)
}

// DeleteInvoice removes an invoice, its items, and detaches its attachments
// back to the review pool
func DeleteInvoice(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	invoiceUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid invoice ID format")
		return
	}

	// Start transaction
	tx := config.DB.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var invoice models.Invoice
	if err := tx.Where("user_id = ? AND id = ?", userID, invoiceUUID).
		First(&invoice).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Invoice not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
		tx.Rollback()
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete invoice items")
		return
	}

	// Attachments survive invoice deletion; they return to uploaded
	if err := tx.Model(&models.Attachment{}).
		Where("invoice_id = ?", invoice.ID).
		Updates(map[string]interface{}{
			"invoice_id": nil,
			"status":     "uploaded",
		}).Error; err != nil {
		tx.Rollback()
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to detach attachments")
		return
	}

	if err := tx.Delete(&invoice).Error; err != nil {
		tx.Rollback()
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete invoice")
		return
	}

	tx.Commit()

	c.JSON(http.StatusOK, gin.H{"message": "Invoice deleted successfully"})
}
