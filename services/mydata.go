package services

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/NickArm/Invoice-System-sub000/models"
	"github.com/NickArm/Invoice-System-sub000/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// grossTolerance absorbs rounding differences between locally entered
// amounts and the values the tax authority reports. Amounts are never
// compared for exact equality.
const grossTolerance = 0.01

// ErrMyDataNotConfigured marks a missing-credentials condition so callers
// can tell "configure your settings" apart from a genuine upstream failure.
var ErrMyDataNotConfigured = errors.New("myDATA credentials are not configured")

// BookRecord is one bookkeeping record from the myDATA feed, annotated with
// the reconciliation outcome.
type BookRecord struct {
	CounterVatNumber string  `xml:"counterVatNumber" json:"counterVatNumber"`
	IssueDate        string  `xml:"issueDate" json:"issueDate"`
	InvType          string  `xml:"invType" json:"invType"`
	NetValue         float64 `xml:"netValue" json:"netValue"`
	VatAmount        float64 `xml:"vatAmount" json:"vatAmount"`
	GrossValue       float64 `xml:"grossValue" json:"grossValue"`
	WithheldAmount   float64 `xml:"withheldAmount" json:"withheldAmount"`
	OtherTaxesAmount float64 `xml:"otherTaxesAmount" json:"otherTaxesAmount"`
	StampDutyAmount  float64 `xml:"stampDutyAmount" json:"stampDutyAmount"`
	FeesAmount       float64 `xml:"feesAmount" json:"feesAmount"`
	DeductionsAmount float64 `xml:"deductionsAmount" json:"deductionsAmount"`
	ThirdPartyAmount float64 `xml:"thirdPartyAmount" json:"thirdPartyAmount"`
	Count            int     `xml:"count" json:"count"`
	MinMark          string  `xml:"minMark" json:"minMark"`
	MaxMark          string  `xml:"maxMark" json:"maxMark"`

	Uploaded  bool       `xml:"-" json:"uploaded"`
	InvoiceID *uuid.UUID `xml:"-" json:"invoiceId,omitempty"`
}

type bookInfoDocument struct {
	XMLName xml.Name
	Records []BookRecord `xml:"bookInfo"`
}

type MyDataService struct {
	db      *gorm.DB
	baseURL string
	client  *http.Client
}

func NewMyDataService(db *gorm.DB) *MyDataService {
	base := os.Getenv("MYDATA_BASE_URL")
	if base == "" {
		base = "https://mydatapi.aade.gr/myDATA"
	}
	return &MyDataService{
		db:      db,
		baseURL: base,
		client:  &http.Client{Timeout: myDataTimeout()},
	}
}

// NewMyDataServiceWithBaseURL points the client at a custom upstream, used
// by tests.
func NewMyDataServiceWithBaseURL(db *gorm.DB, baseURL string) *MyDataService {
	s := NewMyDataService(db)
	s.baseURL = baseURL
	return s
}

// FetchAndReconcile pulls the owner's bookkeeping records for the date range
// and annotates each with whether a matching local invoice exists. Read-only:
// it never creates, updates or deletes invoices or entities.
func (s *MyDataService) FetchAndReconcile(owner *models.User, direction string, dateFrom, dateTo time.Time) ([]BookRecord, error) {
	var endpoint string
	switch direction {
	case "income":
		endpoint = "/RequestMyIncome"
	case "expenses":
		endpoint = "/RequestMyExpenses"
	default:
		return nil, fmt.Errorf("unknown direction %q", direction)
	}

	if owner.MyDataUserID == "" || owner.MyDataSubscriptionKey == "" {
		return nil, ErrMyDataNotConfigured
	}

	url := fmt.Sprintf("%s%s?dateFrom=%s&dateTo=%s",
		s.baseURL, endpoint,
		dateFrom.Format("02/01/2006"),
		dateTo.Format("02/01/2006"))

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("aade-user-id", owner.MyDataUserID)
	req.Header.Set("ocp-apim-subscription-key", owner.MyDataSubscriptionKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("myDATA request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("myDATA response read failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("myDATA returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	records := parseBookRecords(body)
	if err := s.reconcile(owner.ID, records); err != nil {
		return nil, err
	}
	return records, nil
}

// parseBookRecords tolerates malformed upstream documents: they yield an
// empty list, logged, never a crash.
func parseBookRecords(body []byte) []BookRecord {
	var doc bookInfoDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		log.Printf("[MYDATA] malformed upstream document: %v", err)
		return []BookRecord{}
	}
	if doc.Records == nil {
		return []BookRecord{}
	}
	return doc.Records
}

// reconcile matches each record against stored invoices. Tax ids are entered
// inconsistently by humans, so the entity lookup compares the raw value, the
// record's digit-only form, and the entity's digit-only form. Dates compare
// on the date part only and amounts within the gross tolerance.
func (s *MyDataService) reconcile(ownerID uuid.UUID, records []BookRecord) error {
	if len(records) == 0 {
		return nil
	}

	var entities []models.BusinessEntity
	if err := s.db.Where("user_id = ? AND tax_id <> ''", ownerID).Find(&entities).Error; err != nil {
		return err
	}

	for i := range records {
		record := &records[i]

		entity := matchEntity(entities, record.CounterVatNumber)
		if entity == nil {
			continue
		}

		recordDate, ok := parseBookDate(record.IssueDate)
		if !ok {
			continue
		}

		var invoices []models.Invoice
		if err := s.db.Where("user_id = ? AND business_entity_id = ?", ownerID, entity.ID).
			Find(&invoices).Error; err != nil {
			return err
		}

		for j := range invoices {
			inv := &invoices[j]
			if !utils.SameDay(inv.IssueDate, recordDate) {
				continue
			}
			if math.Abs(inv.TotalGross-record.GrossValue) > grossTolerance {
				continue
			}
			record.Uploaded = true
			id := inv.ID
			record.InvoiceID = &id
			break
		}
	}
	return nil
}

func matchEntity(entities []models.BusinessEntity, counterVat string) *models.BusinessEntity {
	normalized := utils.NormalizeTaxID(counterVat)
	for i := range entities {
		e := &entities[i]
		if e.TaxID == counterVat {
			return e
		}
		if normalized != "" && (e.TaxID == normalized || utils.NormalizeTaxID(e.TaxID) == normalized) {
			return e
		}
	}
	return nil
}

func parseBookDate(value string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", "02/01/2006", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func myDataTimeout() time.Duration {
	if env := os.Getenv("MYDATA_TIMEOUT_SECONDS"); env != "" {
		if s, err := strconv.Atoi(env); err == nil && s > 0 {
			return time.Duration(s) * time.Second
		}
	}
	return 30 * time.Second
}
