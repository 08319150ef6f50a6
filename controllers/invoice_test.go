package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NickArm/Invoice-System-sub000/config"
	"github.com/NickArm/Invoice-System-sub000/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupControllerDB(t *testing.T) *gorm.DB {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:ctrl_%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
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
	config.DB = db
	return db
}

func invoiceRouter(userID uuid.UUID) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userId", userID.String())
		c.Next()
	})
	r.POST("/api/invoices", CreateInvoice)
	r.GET("/api/invoices", GetInvoices)
	r.GET("/api/invoices/:id", GetInvoice)
	r.PUT("/api/invoices/:id", UpdateInvoice)
	r.DELETE("/api/invoices/:id", DeleteInvoice)
	return r
}

func createTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := models.User{Email: t.Name() + "@example.com", Password: "secret-password", Name: "Owner"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &user
}

func postJSON(t *testing.T, r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateInvoiceResolvesNewSupplier(t *testing.T) {
	db := setupControllerDB(t)
	user := createTestUser(t, db)
	r := invoiceRouter(user.ID)

	w := postJSON(t, r, "/api/invoices", gin.H{
		"type":          "expense",
		"supplierName":  "Office Depot",
		"supplierTaxId": "123456789",
		"number":        "INV-001",
		"issueDate":     time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		"totalNet":      100.0,
		"vatPercent":    24.0,
		"vatAmount":     24.0,
		"totalGross":    124.0,
		"items": []gin.H{
			{"description": "Printer paper", "quantity": 2, "unitPrice": 50, "taxRate": 24, "lineTotal": 100},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status %d, want 201: %s", w.Code, w.Body.String())
	}

	var entity models.BusinessEntity
	if err := db.Where("user_id = ? AND tax_id = ?", user.ID, "123456789").First(&entity).Error; err != nil {
		t.Fatalf("supplier was not created: %v", err)
	}
	if entity.Name != "Office Depot" {
		t.Errorf("entity name %q, want Office Depot", entity.Name)
	}

	var invoice models.Invoice
	if err := db.Preload("Items").Where("user_id = ?", user.ID).First(&invoice).Error; err != nil {
		t.Fatalf("invoice was not created: %v", err)
	}
	if invoice.BusinessEntityID == nil || *invoice.BusinessEntityID != entity.ID {
		t.Error("invoice should reference the resolved entity")
	}
	if len(invoice.Items) != 1 {
		t.Errorf("got %d items, want 1", len(invoice.Items))
	}
	if invoice.Currency != "EUR" {
		t.Errorf("currency default %q, want EUR", invoice.Currency)
	}
}

func TestCreateInvoiceDuplicateRejected(t *testing.T) {
	db := setupControllerDB(t)
	user := createTestUser(t, db)
	r := invoiceRouter(user.ID)

	body := gin.H{
		"type":          "expense",
		"supplierName":  "Office Depot",
		"supplierTaxId": "123456789",
		"number":        "INV-001",
		"issueDate":     time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		"totalGross":    124.0,
	}
	if w := postJSON(t, r, "/api/invoices", body); w.Code != http.StatusCreated {
		t.Fatalf("first create failed: %d %s", w.Code, w.Body.String())
	}

	w := postJSON(t, r, "/api/invoices", body)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate status %d, want 409: %s", w.Code, w.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if resp["error"] == "" {
		t.Error("conflict response should explain which entity collided")
	}

	var count int64
	db.Model(&models.Invoice{}).Count(&count)
	if count != 1 {
		t.Errorf("duplicate left %d invoices, want 1", count)
	}
}

func TestCreateInvoiceUnknownEntityID(t *testing.T) {
	db := setupControllerDB(t)
	user := createTestUser(t, db)
	r := invoiceRouter(user.ID)

	missing := uuid.New()
	w := postJSON(t, r, "/api/invoices", gin.H{
		"type":       "expense",
		"entityId":   missing,
		"issueDate":  time.Now().UTC(),
		"totalGross": 10.0,
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404: %s", w.Code, w.Body.String())
	}
}

func TestCreateInvoiceWithoutCounterparty(t *testing.T) {
	db := setupControllerDB(t)
	user := createTestUser(t, db)
	r := invoiceRouter(user.ID)

	w := postJSON(t, r, "/api/invoices", gin.H{
		"type":       "income",
		"issueDate":  time.Now().UTC(),
		"totalGross": 10.0,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status %d, want 201: %s", w.Code, w.Body.String())
	}

	var invoice models.Invoice
	if err := db.Where("user_id = ?", user.ID).First(&invoice).Error; err != nil {
		t.Fatalf("invoice missing: %v", err)
	}
	if invoice.BusinessEntityID != nil {
		t.Error("invoice without counterparty should have no entity reference")
	}
}

func TestDeleteInvoiceDetachesAttachment(t *testing.T) {
	db := setupControllerDB(t)
	user := createTestUser(t, db)
	r := invoiceRouter(user.ID)

	invoice := models.Invoice{UserID: user.ID, Type: "expense", IssueDate: time.Now(), TotalGross: 10}
	if err := db.Create(&invoice).Error; err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	attachment := models.Attachment{
		UserID:      user.ID,
		InvoiceID:   &invoice.ID,
		StoragePath: "/tmp/does-not-matter.pdf",
		Status:      "processed",
	}
	if err := db.Create(&attachment).Error; err != nil {
		t.Fatalf("create attachment: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/invoices/"+invoice.ID.String(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, want 200: %s", w.Code, w.Body.String())
	}

	var got models.Attachment
	if err := db.First(&got, "id = ?", attachment.ID).Error; err != nil {
		t.Fatalf("attachment should survive invoice deletion: %v", err)
	}
	if got.InvoiceID != nil {
		t.Error("attachment should be detached")
	}
	if got.Status != "uploaded" {
		t.Errorf("attachment status %q, want uploaded", got.Status)
	}
}

func TestGetInvoicesScopedToOwner(t *testing.T) {
	db := setupControllerDB(t)
	user := createTestUser(t, db)
	stranger := models.User{Email: "stranger@example.com", Password: "secret-password", Name: "Stranger"}
	if err := db.Create(&stranger).Error; err != nil {
		t.Fatalf("create stranger: %v", err)
	}
	if err := db.Create(&models.Invoice{UserID: stranger.ID, Type: "expense", IssueDate: time.Now(), TotalGross: 99}).Error; err != nil {
		t.Fatalf("create stranger invoice: %v", err)
	}

	r := invoiceRouter(user.ID)
	req := httptest.NewRequest(http.MethodGet, "/api/invoices", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", w.Code)
	}

	var invoices []models.Invoice
	if err := json.Unmarshal(w.Body.Bytes(), &invoices); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(invoices) != 0 {
		t.Errorf("user sees %d foreign invoices, want 0", len(invoices))
	}
}
