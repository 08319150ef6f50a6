package services

import (
	"errors"
	"strings"

	"github.com/NickArm/Invoice-System-sub000/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrEntityNotOwned is returned when an explicit entity id does not belong to
// the requesting user. This is a data-integrity boundary, not a soft miss.
var ErrEntityNotOwned = errors.New("business entity not found for this user")

// EntityInput carries the free-text counterparty fields of an invoice
// submission, or an explicit entity id.
type EntityInput struct {
	EntityID   *uuid.UUID
	Name       string
	TaxID      string
	TaxOffice  string
	Email      string
	Address    string
	City       string
	PostalCode string
	Type       string
}

// FindOrCreateEntity resolves an invoice's counterparty. Precedence, first
// match wins:
//
//  1. explicit id, scoped to the owner (ownership mismatch is a hard error)
//  2. nothing supplied -> nil, nil (no counterparty yet)
//  3. exact tax-id match for the owner
//  4. case-insensitive exact name match for the owner
//  5. create a new entity from the supplied fields
func FindOrCreateEntity(db *gorm.DB, ownerID uuid.UUID, in EntityInput) (*models.BusinessEntity, error) {
	if in.EntityID != nil {
		var entity models.BusinessEntity
		if err := db.Where("user_id = ? AND id = ?", ownerID, *in.EntityID).First(&entity).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrEntityNotOwned
			}
			return nil, err
		}
		return &entity, nil
	}

	name := strings.TrimSpace(in.Name)
	taxID := strings.TrimSpace(in.TaxID)
	if name == "" && taxID == "" {
		return nil, nil
	}

	// Tax id is the strongest identity signal and short-circuits name matching
	if taxID != "" {
		var entity models.BusinessEntity
		err := db.Where("user_id = ? AND tax_id = ?", ownerID, taxID).First(&entity).Error
		if err == nil {
			return &entity, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if name != "" {
		var entity models.BusinessEntity
		err := db.Where("user_id = ? AND LOWER(name) = ?", ownerID, strings.ToLower(name)).First(&entity).Error
		if err == nil {
			return &entity, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if name == "" {
		name = "Unknown Supplier"
	}
	entityType := in.Type
	if entityType != "customer" && entityType != "supplier" {
		entityType = "supplier"
	}

	// Concurrent submissions for the same owner and tax id can race past the
	// lookups above and create twins; the first row found by tax id stays
	// canonical for all later resolutions.
	entity := models.BusinessEntity{
		ID:         uuid.New(),
		UserID:     ownerID,
		Name:       name,
		TaxID:      taxID,
		TaxOffice:  in.TaxOffice,
		Email:      in.Email,
		Address:    in.Address,
		City:       in.City,
		PostalCode: in.PostalCode,
		Type:       entityType,
	}
	if err := db.Create(&entity).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// IsDuplicateInvoice reports whether the owner already has an invoice with
// this exact (number, entity) pair. Empty numbers are never duplicates; many
// invoices legitimately lack one.
func IsDuplicateInvoice(db *gorm.DB, ownerID uuid.UUID, number string, entityID *uuid.UUID) (bool, error) {
	return IsDuplicateInvoiceExcluding(db, ownerID, number, entityID, uuid.Nil)
}

// IsDuplicateInvoiceExcluding is the edit-time variant: the invoice being
// edited must not collide with itself.
func IsDuplicateInvoiceExcluding(db *gorm.DB, ownerID uuid.UUID, number string, entityID *uuid.UUID, exclude uuid.UUID) (bool, error) {
	if strings.TrimSpace(number) == "" || entityID == nil {
		return false, nil
	}

	query := db.Model(&models.Invoice{}).
		Where("user_id = ? AND number = ? AND business_entity_id = ?", ownerID, number, *entityID)
	if exclude != uuid.Nil {
		query = query.Where("id <> ?", exclude)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
