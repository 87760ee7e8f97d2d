// Package verification cross-checks a case's declared GST invoice and
// sanctioned-loan details against registry lookups. No GST/banking registry
// client exists anywhere in the retrieval pack (and none would be safe to
// fabricate), so Client's default implementation is a mock registry backed
// by fixed lookup tables, the same posture the upstream service took before
// a production GSTIN API was wired in.
package verification

import (
	"fmt"
	"regexp"
	"strings"
)

// gstinRe matches the 15-character GSTIN structure: 2-digit state code,
// 10-character PAN, 1-character entity code (1-9 or A-Z), 'Z' literal,
// 1 checksum character.
var gstinRe = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z]{1}[1-9A-Z]{1}Z[0-9A-Z]{1}$`)

// stateCodes maps two-digit GST state codes to state names; the table is
// intentionally not exhaustive but covers the states the mock invoice data
// below references.
var stateCodes = map[string]string{
	"01": "Jammu and Kashmir", "02": "Himachal Pradesh", "03": "Punjab",
	"04": "Chandigarh", "05": "Uttarakhand", "06": "Haryana",
	"07": "Delhi", "08": "Rajasthan", "09": "Uttar Pradesh",
	"10": "Bihar", "19": "West Bengal", "27": "Maharashtra",
	"29": "Karnataka", "33": "Tamil Nadu", "36": "Telangana",
}

// ValidateGSTINStructure reports whether gstin matches the structural GSTIN
// format: length, regex shape, and a recognized state-code prefix.
func ValidateGSTINStructure(gstin string) bool {
	_, ok := checkGSTINStructure(gstin)
	return ok
}

// checkGSTINStructure runs the structural checks and returns a detail map
// carrying either the matched state name or the specific structural error.
func checkGSTINStructure(gstin string) (map[string]any, bool) {
	gstin = strings.ToUpper(strings.TrimSpace(gstin))
	if len(gstin) != 15 {
		return map[string]any{"valid": false, "error": fmt.Sprintf("invalid length %d, expected 15", len(gstin))}, false
	}
	if !gstinRe.MatchString(gstin) {
		return map[string]any{"valid": false, "error": "format mismatch"}, false
	}
	state, known := stateCodes[gstin[:2]]
	if !known {
		return map[string]any{"valid": false, "error": fmt.Sprintf("unknown state code '%s'", gstin[:2])}, false
	}
	return map[string]any{"valid": true, "state": state}, true
}

// gstInvoiceRecord is a registered invoice in the mock GST registry.
type gstInvoiceRecord struct {
	GSTIN        string
	VendorName   string
	InvoiceTotal float64
}

// validGSTInvoices mirrors the upstream service's mock registry table: a
// handful of known-good invoice numbers keyed for lookup in tests and demos.
var validGSTInvoices = map[string]gstInvoiceRecord{
	"INV-2024-0001": {GSTIN: "29AAAPL1234C1ZV", VendorName: "Shree Construction Equipments", InvoiceTotal: 185000},
	"INV-2024-0002": {GSTIN: "27AAACT2727Q1ZU", VendorName: "Mahindra Tractors Pvt Ltd", InvoiceTotal: 620000},
	"INV-2024-0003": {GSTIN: "33AABCS1429B1Z1", VendorName: "Southern Solar Solutions", InvoiceTotal: 94500},
}

// sanctionedLoanRecord is a registered sanctioned-loan entry in the mock
// banking registry table.
type sanctionedLoanRecord struct {
	ApplicantID string
	AssetType   string
	SanctionAmt float64
}

var sanctionedLoans = map[string]sanctionedLoanRecord{
	"APP-1001": {ApplicantID: "APP-1001", AssetType: "tractor", SanctionAmt: 620000},
	"APP-1002": {ApplicantID: "APP-1002", AssetType: "solar panel", SanctionAmt: 94500},
	"APP-1003": {ApplicantID: "APP-1003", AssetType: "construction equipment", SanctionAmt: 185000},
}

// Client verifies GST invoice and sanctioned-loan details for a case. Both
// operations return a verdict plus a detail map that always carries a
// human-readable "reason" entry; the pipeline quotes it in decision reasons.
type Client interface {
	VerifyInvoice(invoiceNumber, declaredGSTIN string) (bool, map[string]any)
	VerifySanctionedAsset(applicantID, declaredAssetType string) (bool, map[string]any)
}

// MockClient is the fixed-table registry implementation of Client.
type MockClient struct{}

// NewMockClient returns the mock registry client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// VerifyInvoice validates the declared GSTIN's structure when one is given,
// then looks up the invoice number in the registry and compares GSTINs.
func (MockClient) VerifyInvoice(invoiceNumber, declaredGSTIN string) (bool, map[string]any) {
	details := map[string]any{"invoice_number": invoiceNumber}

	if declaredGSTIN != "" {
		structCheck, ok := checkGSTINStructure(declaredGSTIN)
		details["structure_check"] = structCheck
		if !ok {
			details["reason"] = fmt.Sprintf("Invalid GSTIN: %v", structCheck["error"])
			return false, details
		}
	}

	if invoiceNumber == "" {
		details["reason"] = "No Invoice Number extracted"
		return false, details
	}

	invKey := strings.ToUpper(strings.TrimSpace(invoiceNumber))
	record, found := validGSTInvoices[invKey]
	if !found {
		details["reason"] = fmt.Sprintf("Invoice %s not found in GST registry", invKey)
		return false, details
	}

	details["registered_data"] = map[string]any{
		"gstin":         record.GSTIN,
		"vendor_name":   record.VendorName,
		"invoice_total": record.InvoiceTotal,
	}

	if declaredGSTIN != "" && !strings.EqualFold(strings.TrimSpace(declaredGSTIN), record.GSTIN) {
		details["reason"] = fmt.Sprintf("Invoice found but GSTIN mismatch, expected %s", record.GSTIN)
		return false, details
	}

	details["reason"] = "Matched with GSTN records"
	return true, details
}

// VerifySanctionedAsset checks whether the applicant's sanctioned loan
// record's asset type substring-matches the declared asset type.
func (MockClient) VerifySanctionedAsset(applicantID, declaredAssetType string) (bool, map[string]any) {
	details := map[string]any{"applicant_id": applicantID}

	record, found := sanctionedLoans[applicantID]
	if !found {
		details["reason"] = "Applicant has no active loan sanctions"
		return false, details
	}

	declared := strings.ToLower(strings.TrimSpace(declaredAssetType))
	sanctioned := strings.ToLower(record.AssetType)
	match := declared != "" && (strings.Contains(sanctioned, declared) || strings.Contains(declared, sanctioned))

	details["sanction_details"] = map[string]any{
		"asset_type":      record.AssetType,
		"sanction_amount": record.SanctionAmt,
	}
	if !match {
		details["reason"] = fmt.Sprintf("Sanction deviation: approved for '%s', declared '%s'", sanctioned, declared)
		return match, details
	}
	details["reason"] = "Matches sanction advice"
	return match, details
}
