package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Invoice struct {
	ID               uuid.UUID  `gorm:"type:uuid;primary_key"`
	UserID           uuid.UUID  `gorm:"type:uuid;index;not null"`
	BusinessEntityID *uuid.UUID `gorm:"type:uuid;index"`

	Type     string `gorm:"type:varchar(10);not null"`           // income, expense
	Status   string `gorm:"type:varchar(20);default:'pending'"`  // pending, paid, draft, approved
	Number   string `gorm:"index"`
	Category string `gorm:"default:'General'"`

	IssueDate time.Time `gorm:"not null"`
	DueDate   *time.Time
	Currency  string `gorm:"type:varchar(3);default:'EUR'"`

	TotalNet   float64 `gorm:"type:decimal(10,2);default:0.0"`
	VatPercent float64 `gorm:"type:decimal(5,2);default:0.0"`
	VatAmount  float64 `gorm:"type:decimal(10,2);default:0.0"`
	TotalGross float64 `gorm:"type:decimal(10,2);not null"`

	Description string

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID"`

	gorm.Model
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return
}

type InvoiceItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	InvoiceID uuid.UUID `gorm:"type:uuid;index;not null"`

	Description string  `gorm:"not null"`
	Quantity    float64 `gorm:"default:1"`
	UnitPrice   float64 `gorm:"type:decimal(10,2);not null"`
	TaxRate     float64 `gorm:"type:decimal(5,2);default:0.0"`
	LineTotal   float64 `gorm:"type:decimal(10,2);not null"`
	Category    string
}

func (it *InvoiceItem) BeforeCreate(tx *gorm.DB) (err error) {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	return
}
