package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Attachment is a stored invoice document and its place in the extraction
// pipeline: uploaded -> extracted|failed -> processed (once linked to an
// invoice). Deleting an invoice detaches its attachments back to uploaded.
type Attachment struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key"`
	UserID    uuid.UUID  `gorm:"type:uuid;index;not null"`
	InvoiceID *uuid.UUID `gorm:"type:uuid;index"`

	StoragePath      string `gorm:"not null"`
	MimeType         string
	SizeBytes        int64
	OriginalFilename string
	Source           string `gorm:"type:varchar(10);default:'upload'"`   // upload, email
	PageCount        int    `gorm:"default:1"`
	Status           string `gorm:"type:varchar(20);default:'uploaded'"` // uploaded, extracted, failed, processed
	ExtractedData    JSONB  `gorm:"type:jsonb"`
	IsDraft          bool   `gorm:"default:false"`

	gorm.Model
}

func (a *Attachment) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}
