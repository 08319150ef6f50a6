package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/NickArm/Invoice-System-sub000/models"
)

func writeTestFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write test file: %v", err)
	}
	return path
}

func TestExtractWithoutCredentialUsesEmptyTemplate(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)

	path := writeTestFile(t, "invoice.png", []byte("fake png bytes"))
	attachment := models.Attachment{
		UserID:           user.ID,
		StoragePath:      path,
		MimeType:         "image/png",
		OriginalFilename: "invoice.png",
	}
	if err := db.Create(&attachment).Error; err != nil {
		t.Fatalf("seed attachment: %v", err)
	}

	svc := NewExtractionService(db)
	if err := svc.Extract(attachment.ID); err != nil {
		t.Fatalf("extract: %v", err)
	}

	var got models.Attachment
	if err := db.First(&got, "id = ?", attachment.ID).Error; err != nil {
		t.Fatalf("reload attachment: %v", err)
	}
	if got.Status != "extracted" {
		t.Errorf("status %q, want extracted", got.Status)
	}
	if got.ExtractedData == nil {
		t.Fatal("expected a populated empty template")
	}
	if got.ExtractedData["type"] != "expense" {
		t.Errorf("template type %v, want expense", got.ExtractedData["type"])
	}
	if got.ExtractedData["currency"] != "EUR" {
		t.Errorf("template currency %v, want EUR", got.ExtractedData["currency"])
	}
	if got.ExtractedData["confidence"] != float64(0) {
		t.Errorf("template confidence %v, want 0", got.ExtractedData["confidence"])
	}
	if got.ExtractedData["issue_date"] == "" {
		t.Error("template issue_date must be populated")
	}
}

func TestExtractIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)

	path := writeTestFile(t, "invoice.png", []byte("fake png bytes"))
	attachment := models.Attachment{
		UserID:           user.ID,
		StoragePath:      path,
		MimeType:         "image/png",
		OriginalFilename: "invoice.png",
	}
	if err := db.Create(&attachment).Error; err != nil {
		t.Fatalf("seed attachment: %v", err)
	}

	svc := NewExtractionService(db)
	if err := svc.Extract(attachment.ID); err != nil {
		t.Fatalf("first extract: %v", err)
	}
	if err := svc.Extract(attachment.ID); err != nil {
		t.Fatalf("second extract: %v", err)
	}

	var count int64
	db.Model(&models.Attachment{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 1 {
		t.Errorf("re-extraction duplicated rows: %d attachments", count)
	}
}

func TestExtractWithVisionModel(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	user.OpenAIAPIKey = "test-key"
	if err := db.Save(user).Error; err != nil {
		t.Fatalf("save user: %v", err)
	}

	modelOutput := map[string]interface{}{
		"type": "expense",
		"supplier": map[string]interface{}{
			"name":   "Office Depot",
			"tax_id": "123456789",
		},
		"invoice_number": "INV-2026-042",
		"issue_date":     "2026-03-15",
		"currency":       "EUR",
		"total_net":      "100,00", // amounts sometimes arrive as strings
		"vat_percent":    24.0,
		"vat_amount":     24.0,
		"total_gross":    124.0,
		"status":         "pending",
		"confidence":     0.92,
		"items": []interface{}{
			map[string]interface{}{
				"description": "Printer paper",
				"quantity":    2.0,
				"unit_price":  50.0,
				"tax_rate":    24.0,
				"line_total":  100.0,
			},
		},
	}
	content, _ := json.Marshal(modelOutput)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"choices": []interface{}{
				map[string]interface{}{
					"message": map[string]interface{}{
						"role":    "assistant",
						"content": string(content),
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)

	path := writeTestFile(t, "invoice.png", []byte("fake png bytes"))
	attachment := models.Attachment{
		UserID:           user.ID,
		StoragePath:      path,
		MimeType:         "image/png",
		OriginalFilename: "invoice.png",
	}
	if err := db.Create(&attachment).Error; err != nil {
		t.Fatalf("seed attachment: %v", err)
	}

	svc := NewExtractionService(db)
	svc.BaseURL = srv.URL + "/v1"
	if err := svc.Extract(attachment.ID); err != nil {
		t.Fatalf("extract: %v", err)
	}

	var got models.Attachment
	if err := db.First(&got, "id = ?", attachment.ID).Error; err != nil {
		t.Fatalf("reload attachment: %v", err)
	}
	if got.Status != "extracted" {
		t.Errorf("status %q, want extracted", got.Status)
	}
	if got.ExtractedData["invoice_number"] != "INV-2026-042" {
		t.Errorf("invoice_number %v, want INV-2026-042", got.ExtractedData["invoice_number"])
	}
	if got.ExtractedData["total_net"] != float64(100) {
		t.Errorf("string amount not coerced, total_net %v", got.ExtractedData["total_net"])
	}
	supplier, ok := got.ExtractedData["supplier"].(map[string]interface{})
	if !ok || supplier["name"] != "Office Depot" {
		t.Errorf("supplier block %v, want Office Depot", got.ExtractedData["supplier"])
	}
	if got.PageCount != 1 {
		t.Errorf("page count %d, want 1 for a single image", got.PageCount)
	}
}

func TestExtractModelFailureDegradesToTemplate(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	user.OpenAIAPIKey = "test-key"
	if err := db.Save(user).Error; err != nil {
		t.Fatalf("save user: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	path := writeTestFile(t, "invoice.png", []byte("fake png bytes"))
	attachment := models.Attachment{
		UserID:           user.ID,
		StoragePath:      path,
		MimeType:         "image/png",
		OriginalFilename: "invoice.png",
	}
	if err := db.Create(&attachment).Error; err != nil {
		t.Fatalf("seed attachment: %v", err)
	}

	svc := NewExtractionService(db)
	svc.BaseURL = srv.URL + "/v1"
	if err := svc.Extract(attachment.ID); err != nil {
		t.Fatalf("extract should degrade, not fail: %v", err)
	}

	var got models.Attachment
	if err := db.First(&got, "id = ?", attachment.ID).Error; err != nil {
		t.Fatalf("reload attachment: %v", err)
	}
	if got.Status != "extracted" {
		t.Errorf("status %q, want extracted", got.Status)
	}
	if got.ExtractedData["confidence"] != float64(0) {
		t.Errorf("degraded template confidence %v, want 0", got.ExtractedData["confidence"])
	}
}

func TestExtractUnrasterizablePDFSkipsModelCall(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	user.OpenAIAPIKey = "test-key"
	if err := db.Save(user).Error; err != nil {
		t.Fatalf("save user: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("model must not be called without an image payload")
	}))
	t.Cleanup(srv.Close)

	path := writeTestFile(t, "broken.pdf", []byte("%PDF-1.4 truncated garbage"))
	attachment := models.Attachment{
		UserID:           user.ID,
		StoragePath:      path,
		MimeType:         "application/pdf",
		OriginalFilename: "broken.pdf",
	}
	if err := db.Create(&attachment).Error; err != nil {
		t.Fatalf("seed attachment: %v", err)
	}

	svc := NewExtractionService(db)
	svc.BaseURL = srv.URL + "/v1"
	if err := svc.Extract(attachment.ID); err != nil {
		t.Fatalf("extract: %v", err)
	}

	var got models.Attachment
	if err := db.First(&got, "id = ?", attachment.ID).Error; err != nil {
		t.Fatalf("reload attachment: %v", err)
	}
	if got.Status != "extracted" {
		t.Errorf("status %q, want extracted", got.Status)
	}
	if got.ExtractedData["type"] != "expense" {
		t.Errorf("template type %v, want expense", got.ExtractedData["type"])
	}
}

func TestParseExtractionRejectsGarbage(t *testing.T) {
	if _, err := parseExtraction("not json at all"); err == nil {
		t.Error("expected an error for non-JSON model output")
	}
}

func TestApplyExtractionDefaults(t *testing.T) {
	inv := &ExtractedInvoice{Type: "refund", Confidence: 1.7}
	applyExtractionDefaults(inv)

	if inv.Type != "expense" {
		t.Errorf("unknown type coerced to %q, want expense", inv.Type)
	}
	if inv.Currency != "EUR" {
		t.Errorf("currency default %q, want EUR", inv.Currency)
	}
	if inv.Status != "pending" {
		t.Errorf("status default %q, want pending", inv.Status)
	}
	if inv.Confidence != 1 {
		t.Errorf("confidence clamped to %v, want 1", inv.Confidence)
	}
	if inv.Items == nil {
		t.Error("items must default to an empty slice")
	}
}
