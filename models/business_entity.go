package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BusinessEntity is a counterparty (customer or supplier) owned by one user.
// Uniqueness per (user, tax id) and per (user, lowercase name) is enforced by
// the resolver at creation time, not by a database constraint.
type BusinessEntity struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key"`
	UserID uuid.UUID `gorm:"type:uuid;index;not null"`

	Name       string `gorm:"not null"`
	TaxID      string `gorm:"index"`
	TaxOffice  string
	Email      string
	Address    string
	City       string
	PostalCode string
	Type       string `gorm:"type:varchar(20);default:'supplier'"` // customer, supplier

	Invoices []Invoice `gorm:"foreignKey:BusinessEntityID"`

	gorm.Model
}

func (e *BusinessEntity) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return
}
