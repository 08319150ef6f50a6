package services

import (
	"strings"

	"github.com/NickArm/Invoice-System-sub000/models"
)

// BuildExtractionPrompt assembles the instruction set for the vision model.
// Pure templating, no I/O: identical input produces identical output.
//
// Invoices routinely print the user's own company next to the counterparty,
// so when the recipient identity is known it is injected as explicit
// "this is NOT the supplier" context.
func BuildExtractionPrompt(recipient *models.User) string {
	var b strings.Builder

	b.WriteString("Extract the structured invoice data from the attached document image.\n\n")

	if recipient != nil && (recipient.CompanyName != "" || recipient.TaxID != "" || recipient.AccountantEmail != "" || recipient.Email != "") {
		b.WriteString("RECIPIENT CONTEXT - the document was received by this company:\n")
		if recipient.CompanyName != "" {
			b.WriteString("- Company name: " + recipient.CompanyName + "\n")
		}
		if recipient.TaxID != "" {
			b.WriteString("- Tax ID (VAT): " + recipient.TaxID + "\n")
		}
		if recipient.Email != "" {
			b.WriteString("- Email: " + recipient.Email + "\n")
		}
		b.WriteString("This company is NOT the supplier. Never place its name, tax id or email in the supplier fields.\n\n")
	}

	b.WriteString("Apply these rules in priority order:\n")
	b.WriteString("1. The supplier is the party that ISSUED the document. Look for issuer-section labels")
	b.WriteString(" such as 'From', 'Issued by', 'Seller', or the letterhead block.\n")
	b.WriteString("2. The recipient is the other party receiving the document. Never map the recipient")
	b.WriteString(" into the supplier fields.\n")
	b.WriteString("3. Extract the free-text description only from the issuer/header section of the")
	b.WriteString(" document, never from the line items. Use an empty string when no such text exists.\n")
	b.WriteString("4. Set \"type\" to \"expense\" when the document bills the recipient, or \"income\"")
	b.WriteString(" when the recipient issued it. For an expense the \"supplier\" block is the issuer.")
	b.WriteString(" For income the \"supplier\" block is the counterpart buyer, never the recipient's own company.\n")
	b.WriteString("5. Use these exact field names and formats:\n")
	b.WriteString("   - type: \"income\" or \"expense\"\n")
	b.WriteString("   - supplier: {name, tax_id, tax_office, email, address}\n")
	b.WriteString("   - invoice_number: string, empty when absent\n")
	b.WriteString("   - issue_date, due_date: ISO format YYYY-MM-DD\n")
	b.WriteString("   - currency: ISO 4217 code, e.g. EUR\n")
	b.WriteString("   - total_net, vat_percent, vat_amount, total_gross: decimal numbers, dot separator\n")
	b.WriteString("   - description: string\n")
	b.WriteString("   - items: array of {description, quantity, unit_price, tax_rate, line_total}\n")
	b.WriteString("   - confidence: your overall confidence in the extraction, 0 to 1\n\n")
	b.WriteString("Return ONLY a valid JSON object with these fields. Use null or empty values for anything not present on the document.")

	return b.String()
}
