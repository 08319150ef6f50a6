package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/NickArm/Invoice-System-sub000/utils"
)

// VatLookupResult is always returned with a success flag instead of an
// error: registry lookups are user-retryable and must surface an
// explanatory message, never a stack trace.
type VatLookupResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	Name       string `json:"name,omitempty"`
	TaxOffice  string `json:"taxOffice,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Address    string `json:"address,omitempty"`
	Activity   string `json:"activity,omitempty"`
	Active     bool   `json:"active"`
}

type VatRegistryClient struct {
	baseURL string
	client  *http.Client
}

func NewVatRegistryClient() *VatRegistryClient {
	return &VatRegistryClient{
		baseURL: os.Getenv("VAT_REGISTRY_URL"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// NewVatRegistryClientWithBaseURL is used by tests.
func NewVatRegistryClientWithBaseURL(baseURL string) *VatRegistryClient {
	c := NewVatRegistryClient()
	c.baseURL = baseURL
	return c
}

// Lookup queries the VAT registry for a company by tax id. Ids that do not
// normalize to exactly 9 digits are rejected before any network call.
func (c *VatRegistryClient) Lookup(taxID string) *VatLookupResult {
	normalized := utils.NormalizeTaxID(taxID)
	if len(normalized) != 9 {
		return &VatLookupResult{Success: false, Message: "Tax id must be exactly 9 digits"}
	}
	if c.baseURL == "" {
		return &VatLookupResult{Success: false, Message: "VAT registry is not configured"}
	}

	resp, err := c.client.Get(c.baseURL + "?vat=" + url.QueryEscape(normalized))
	if err != nil {
		return &VatLookupResult{Success: false, Message: "VAT registry request failed: " + err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &VatLookupResult{Success: false, Message: "No company found for tax id " + normalized}
	}
	if resp.StatusCode != http.StatusOK {
		return &VatLookupResult{Success: false, Message: fmt.Sprintf("VAT registry returned status %d", resp.StatusCode)}
	}

	var result VatLookupResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return &VatLookupResult{Success: false, Message: "VAT registry returned an unreadable response"}
	}
	result.Success = true
	result.Message = ""
	return &result
}
