package services

import (
	"testing"
	"time"

	"github.com/NickArm/Invoice-System-sub000/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.BusinessEntity{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.Attachment{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := models.User{
		Email:    t.Name() + "@example.com",
		Password: "secret-password",
		Name:     "Test Owner",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return &user
}

func seedEntity(t *testing.T, db *gorm.DB, userID uuid.UUID, name, taxID string) *models.BusinessEntity {
	t.Helper()
	entity := models.BusinessEntity{
		UserID: userID,
		Name:   name,
		TaxID:  taxID,
		Type:   "supplier",
	}
	if err := db.Create(&entity).Error; err != nil {
		t.Fatalf("seed entity: %v", err)
	}
	return &entity
}

func seedInvoice(t *testing.T, db *gorm.DB, userID uuid.UUID, entityID *uuid.UUID, number string, issueDate time.Time, gross float64) *models.Invoice {
	t.Helper()
	invoice := models.Invoice{
		UserID:           userID,
		BusinessEntityID: entityID,
		Type:             "expense",
		Number:           number,
		IssueDate:        issueDate,
		TotalGross:       gross,
	}
	if err := db.Create(&invoice).Error; err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
	return &invoice
}
