package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/NickArm/Invoice-System-sub000/models"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"gorm.io/gorm"
)

// ExtractedParty is the counterparty block of an extraction result. For
// expenses it denotes the document issuer, for income the counterpart buyer.
type ExtractedParty struct {
	Name      string `json:"name"`
	TaxID     string `json:"tax_id"`
	TaxOffice string `json:"tax_office,omitempty"`
	Email     string `json:"email,omitempty"`
	Address   string `json:"address,omitempty"`
}

type ExtractedItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TaxRate     float64 `json:"tax_rate"`
	LineTotal   float64 `json:"line_total"`
}

// ExtractedInvoice is the validated, defaulted form of the model output. The
// raw response is never trusted downstream.
type ExtractedInvoice struct {
	Type        string          `json:"type"`
	Supplier    ExtractedParty  `json:"supplier"`
	Number      string          `json:"invoice_number"`
	IssueDate   string          `json:"issue_date"`
	DueDate     string          `json:"due_date,omitempty"`
	Currency    string          `json:"currency"`
	TotalNet    float64         `json:"total_net"`
	VatPercent  float64         `json:"vat_percent"`
	VatAmount   float64         `json:"vat_amount"`
	TotalGross  float64         `json:"total_gross"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	Items       []ExtractedItem `json:"items"`
	Confidence  float64         `json:"confidence"`
}

type ExtractionService struct {
	db *gorm.DB

	// BaseURL overrides the OpenAI endpoint, used by tests
	BaseURL string
}

func NewExtractionService(db *gorm.DB) *ExtractionService {
	return &ExtractionService{db: db}
}

// Extract runs the document-to-record pipeline for one attachment and
// persists the result on the attachment row. Safe to re-run: status and
// extracted data are overwritten, never duplicated. Only a storage failure
// while persisting is returned as an error; everything else degrades to the
// empty template so the UI always has a complete record to correct.
func (s *ExtractionService) Extract(attachmentID uuid.UUID) error {
	var attachment models.Attachment
	if err := s.db.First(&attachment, "id = ?", attachmentID).Error; err != nil {
		return fmt.Errorf("load attachment %s: %w", attachmentID, err)
	}

	var owner models.User
	if err := s.db.First(&owner, "id = ?", attachment.UserID).Error; err != nil {
		s.markFailed(&attachment)
		return fmt.Errorf("load owner for attachment %s: %w", attachmentID, err)
	}

	payload, mime, pages := RasterizeFirstPage(attachment.StoragePath, attachment.MimeType)
	if pages > 0 {
		attachment.PageCount = pages
	}

	var extracted *ExtractedInvoice
	if owner.OpenAIAPIKey == "" {
		log.Printf("[EXTRACT] attachment %s: no extraction credential configured, using empty template", attachment.ID)
	} else if payload == "" {
		log.Printf("[EXTRACT] attachment %s: document could not be rasterized, using empty template", attachment.ID)
	} else {
		result, err := s.callVisionModel(&owner, payload, mime)
		if err != nil {
			log.Printf("[EXTRACT] attachment %s: vision extraction failed: %v", attachment.ID, err)
		} else {
			extracted = result
		}
	}

	if extracted == nil {
		extracted = emptyExtraction()
	}
	applyExtractionDefaults(extracted)

	data, err := extractionToJSONB(extracted)
	if err != nil {
		s.markFailed(&attachment)
		return fmt.Errorf("encode extraction for attachment %s: %w", attachment.ID, err)
	}

	attachment.ExtractedData = data
	attachment.Status = "extracted"
	if err := s.db.Save(&attachment).Error; err != nil {
		s.markFailed(&attachment)
		return fmt.Errorf("persist extraction for attachment %s: %w", attachment.ID, err)
	}

	log.Printf("[EXTRACT] attachment %s: extracted (confidence %.2f)", attachment.ID, extracted.Confidence)
	return nil
}

// markFailed is best-effort: the queue's retry policy engages on the
// returned error regardless
func (s *ExtractionService) markFailed(attachment *models.Attachment) {
	if err := s.db.Model(&models.Attachment{}).Where("id = ?", attachment.ID).
		Update("status", "failed").Error; err != nil {
		log.Printf("[EXTRACT] attachment %s: could not mark failed: %v", attachment.ID, err)
	}
}

func (s *ExtractionService) callVisionModel(owner *models.User, payload, mime string) (*ExtractedInvoice, error) {
	cfg := openai.DefaultConfig(owner.OpenAIAPIKey)
	if s.BaseURL != "" {
		cfg.BaseURL = s.BaseURL
	}
	client := openai.NewClientWithConfig(cfg)

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = openai.GPT4o
	}

	ctx, cancel := context.WithTimeout(context.Background(), extractionTimeout())
	defer cancel()

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an invoice data extraction assistant for a small-business bookkeeping system. You read invoice documents and return structured JSON.",
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: BuildExtractionPrompt(owner),
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: "data:" + mime + ";base64," + payload,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no response choices from extraction model")
	}

	return parseExtraction(resp.Choices[0].Message.Content)
}

// parseExtraction decodes the model response into the typed structure. The
// output shape varies, so amounts are accepted as numbers or strings and
// unknown fields are ignored.
func parseExtraction(content string) (*ExtractedInvoice, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("parse extraction response: %w", err)
	}

	inv := &ExtractedInvoice{
		Type:        asString(raw["type"]),
		Number:      asString(raw["invoice_number"]),
		IssueDate:   asString(raw["issue_date"]),
		DueDate:     asString(raw["due_date"]),
		Currency:    asString(raw["currency"]),
		TotalNet:    asFloat(raw["total_net"]),
		VatPercent:  asFloat(raw["vat_percent"]),
		VatAmount:   asFloat(raw["vat_amount"]),
		TotalGross:  asFloat(raw["total_gross"]),
		Description: asString(raw["description"]),
		Status:      asString(raw["status"]),
		Confidence:  asFloat(raw["confidence"]),
	}

	if supplier, ok := raw["supplier"].(map[string]interface{}); ok {
		inv.Supplier = ExtractedParty{
			Name:      asString(supplier["name"]),
			TaxID:     asString(supplier["tax_id"]),
			TaxOffice: asString(supplier["tax_office"]),
			Email:     asString(supplier["email"]),
			Address:   asString(supplier["address"]),
		}
	}

	if items, ok := raw["items"].([]interface{}); ok {
		for _, entry := range items {
			item, ok := entry.(map[string]interface{})
			if !ok {
				continue
			}
			inv.Items = append(inv.Items, ExtractedItem{
				Description: asString(item["description"]),
				Quantity:    asFloat(item["quantity"]),
				UnitPrice:   asFloat(item["unit_price"]),
				TaxRate:     asFloat(item["tax_rate"]),
				LineTotal:   asFloat(item["line_total"]),
			})
		}
	}

	return inv, nil
}

// emptyExtraction is the minimal schema-valid record presented for manual
// correction when no data could be obtained
func emptyExtraction() *ExtractedInvoice {
	return &ExtractedInvoice{
		Type:       "expense",
		IssueDate:  time.Now().Format("2006-01-02"),
		Currency:   "EUR",
		VatPercent: 24, // locale default
		Status:     "pending",
		Items:      []ExtractedItem{},
		Confidence: 0,
	}
}

func applyExtractionDefaults(inv *ExtractedInvoice) {
	if inv.Type != "income" && inv.Type != "expense" {
		inv.Type = "expense"
	}
	if inv.IssueDate == "" {
		inv.IssueDate = time.Now().Format("2006-01-02")
	}
	if inv.Currency == "" {
		inv.Currency = "EUR"
	}
	if inv.Status == "" {
		inv.Status = "pending"
	}
	if inv.Items == nil {
		inv.Items = []ExtractedItem{}
	}
	if inv.Confidence < 0 {
		inv.Confidence = 0
	}
	if inv.Confidence > 1 {
		inv.Confidence = 1
	}
}

func extractionToJSONB(inv *ExtractedInvoice) (models.JSONB, error) {
	data, err := json.Marshal(inv)
	if err != nil {
		return nil, err
	}
	var out models.JSONB
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		cleaned := strings.TrimSpace(strings.ReplaceAll(n, ",", "."))
		if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
			return f
		}
	}
	return 0
}

func extractionTimeout() time.Duration {
	if env := os.Getenv("EXTRACTION_TIMEOUT_SECONDS"); env != "" {
		if s, err := strconv.Atoi(env); err == nil && s > 0 {
			return time.Duration(s) * time.Second
		}
	}
	return 60 * time.Second
}
