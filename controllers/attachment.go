// controllers/attachment.go
package controllers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/NickArm/Invoice-System-sub000/config"
	"github.com/NickArm/Invoice-System-sub000/models"
	"github.com/NickArm/Invoice-System-sub000/services"
	"github.com/NickArm/Invoice-System-sub000/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UploadAttachment receives an invoice document, stores it on disk, and
// queues it for extraction
func UploadAttachment(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "No file provided")
		return
	}

	if !services.AllowedAttachment(fileHeader.Filename) {
		utils.RespondWithError(c, http.StatusBadRequest, "Unsupported file type. Allowed: pdf, png, jpg, jpeg")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to read uploaded file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to read uploaded file")
		return
	}

	storagePath, err := services.SaveInvoiceFile(userID, fileHeader.Filename, data, false)
	if err != nil {
		log.Printf("[UPLOAD] Failed to store file for user %s: %v", userID, err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to store file")
		return
	}

	attachment := models.Attachment{
		ID:               uuid.New(),
		UserID:           userID,
		StoragePath:      storagePath,
		MimeType:         services.DetectMimeType(fileHeader.Filename),
		SizeBytes:        int64(len(data)),
		OriginalFilename: fileHeader.Filename,
		Source:           "upload",
		Status:           "uploaded",
	}

	if err := config.DB.Create(&attachment).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to save attachment")
		return
	}

	Jobs.Enqueue(services.ExtractionJob{Service: Extractor, AttachmentID: attachment.ID})

	c.JSON(http.StatusCreated, attachment)
}

// GetAttachments retrieves all attachments for the user
func GetAttachments(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	query := config.DB.Where("user_id = ?", userID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var attachments []models.Attachment
	if err := query.Order("created_at DESC").Find(&attachments).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve attachments")
		return
	}

	c.JSON(http.StatusOK, attachments)
}

// GetAttachment retrieves a specific attachment by ID
func GetAttachment(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	attachmentUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid attachment ID format")
		return
	}

	var attachment models.Attachment
	if err := config.DB.Where("user_id = ? AND id = ?", userID, attachmentUUID).
		First(&attachment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Attachment not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	c.JSON(http.StatusOK, attachment)
}

// DownloadAttachment streams the stored file back to the client
func DownloadAttachment(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	attachmentUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid attachment ID format")
		return
	}

	var attachment models.Attachment
	if err := config.DB.Where("user_id = ? AND id = ?", userID, attachmentUUID).
		First(&attachment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Attachment not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if _, err := os.Stat(attachment.StoragePath); err != nil {
		utils.RespondWithError(c, http.StatusNotFound, "File no longer exists on disk")
		return
	}

	c.FileAttachment(attachment.StoragePath, attachment.OriginalFilename)
}

// ReprocessAttachment queues an attachment for extraction again
func ReprocessAttachment(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	attachmentUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid attachment ID format")
		return
	}

	var attachment models.Attachment
	if err := config.DB.Where("user_id = ? AND id = ?", userID, attachmentUUID).
		First(&attachment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Attachment not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if attachment.Status == "processed" {
		utils.RespondWithError(c, http.StatusConflict, "Attachment is already linked to an invoice")
		return
	}

	Jobs.Enqueue(services.ExtractionJob{Service: Extractor, AttachmentID: attachment.ID})

	c.JSON(http.StatusAccepted, gin.H{"message": "Extraction queued"})
}

// DeleteAttachment removes an attachment record and its stored file
func DeleteAttachment(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	attachmentUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid attachment ID format")
		return
	}

	var attachment models.Attachment
	if err := config.DB.Where("user_id = ? AND id = ?", userID, attachmentUUID).
		First(&attachment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Attachment not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if err := config.DB.Delete(&attachment).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete attachment")
		return
	}

	// File removal is best-effort; the row is the source of truth
	if attachment.StoragePath != "" {
		if err := os.Remove(attachment.StoragePath); err != nil && !os.IsNotExist(err) {
			log.Printf("[STORAGE] Failed to remove file %s: %v", attachment.StoragePath, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Attachment deleted successfully"})
}
