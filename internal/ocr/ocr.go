// Package ocr extracts vendor/amount/date fields from document images and
// cross-checks them against the applicant's declared invoice details. The
// retrieval pack carries no OCR/Vision SDK, so the default Provider is a
// regex-based fallback; the Provider interface leaves room for a hosted
// OCR client to replace it without touching Processor's cross-check logic.
package ocr

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"vidya/risk-engine/internal/config"
	"vidya/risk-engine/internal/domain"
)

// Provider extracts raw text (and a confidence score) from document bytes.
type Provider interface {
	Extract(data []byte) (text string, confidence float64, err error)
}

// fallbackProvider can't actually read pixels without a real OCR engine, so
// it reports empty text at a fixed low confidence — matching the Python
// service's behaviour when no Vision credentials are configured.
type fallbackProvider struct{}

func (fallbackProvider) Extract(data []byte) (string, float64, error) {
	return "", 0.5, nil
}

var (
	vendorRe = regexp.MustCompile(`(?i)vendor\s*:?\s*(.+)`)
	amountRe = regexp.MustCompile(`(?i)(?:total|amount)\s*:?\s*[₹$]?\s*([\d,]+\.?\d*)`)
	dateRe   = regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`)
)

// Processor runs a Provider over document bytes and cross-checks the
// extracted fields against declared values.
type Processor struct {
	cfg      config.OCRConfig
	provider Provider
}

// New builds a Processor using the regex-based fallback provider.
func New(cfg config.OCRConfig) *Processor {
	return &Processor{cfg: cfg, provider: fallbackProvider{}}
}

// NewWithProvider builds a Processor backed by a custom Provider.
func NewWithProvider(cfg config.OCRConfig, p Provider) *Processor {
	return &Processor{cfg: cfg, provider: p}
}

// LoadFailure builds the documented result for a document whose bytes
// couldn't be loaded at all (spec §4.3): zero match score, a single
// load_failure penalty sized at the configured amount_penalty, and the
// load error captured in crosscheck_results.
func (p *Processor) LoadFailure(docID string, err error) domain.OCRResult {
	return domain.OCRResult{
		DocID:             docID,
		CrosscheckResults: domain.CrosscheckResults{Error: err.Error()},
		Penalties:         map[string]float64{"load_failure": p.cfg.AmountPenalty},
		MatchScore:        0,
	}
}

// Process extracts fields from a document and cross-checks them against
// the declared vendor/amount/date from case metadata.
func (p *Processor) Process(docID string, data []byte, declaredVendor string, declaredAmount *float64, declaredDate *time.Time) domain.OCRResult {
	text, confidence, err := p.provider.Extract(data)
	if err != nil || text == "" {
		text, confidence = "", 0.5
	}

	fields := parseFields(text)
	crosscheck, penalties := p.crosscheck(fields, confidence, declaredVendor, declaredAmount, declaredDate)

	maxPenalty := p.cfg.MaxPenalty()
	total := 0.0
	for _, v := range penalties {
		total += v
	}
	matchScore := 0.0
	if maxPenalty > 0 {
		matchScore = 1 - total/maxPenalty
		if matchScore < 0 {
			matchScore = 0
		}
	}

	return domain.OCRResult{
		DocID:             docID,
		RawText:           text,
		OCRConfidence:     confidence,
		ParsedFields:      fields,
		CrosscheckResults: crosscheck,
		Penalties:         penalties,
		MatchScore:        round2(matchScore),
	}
}

func parseFields(text string) domain.ParsedFields {
	var fields domain.ParsedFields

	if m := vendorRe.FindStringSubmatch(text); len(m) > 1 {
		v := strings.TrimSpace(strings.Split(m[1], "\n")[0])
		if v != "" {
			fields.Vendor = &v
		}
	}
	if m := amountRe.FindStringSubmatch(text); len(m) > 1 {
		clean := strings.ReplaceAll(m[1], ",", "")
		if amt, err := strconv.ParseFloat(clean, 64); err == nil {
			fields.Amount = &amt
		}
	}
	if m := dateRe.FindString(text); m != "" {
		fields.Date = &m
	}
	return fields
}

func (p *Processor) crosscheck(fields domain.ParsedFields, confidence float64, declaredVendor string, declaredAmount *float64, declaredDate *time.Time) (domain.CrosscheckResults, map[string]float64) {
	penalties := make(map[string]float64)
	result := domain.CrosscheckResults{DeclaredVendor: declaredVendor, DeclaredAmount: declaredAmount}
	if declaredDate != nil {
		result.DeclaredDate = declaredDate.Format("2006-01-02")
	}

	if confidence < p.cfg.ProviderConfidenceThreshold {
		penalties["low_confidence_penalty"] = p.cfg.LowConfidencePenalty
	}

	// The match flags report ground truth (nothing declared means nothing
	// matched); the penalties only apply when there was a declared value to
	// check against.
	result.VendorMatch = vendorMatches(fields.Vendor, declaredVendor)
	if declaredVendor != "" && !result.VendorMatch {
		penalties["vendor_penalty"] = p.cfg.VendorPenalty
	}

	result.AmountMatch = amountMatches(fields.Amount, declaredAmount, p.cfg.AmountTolerancePct)
	if declaredAmount != nil && !result.AmountMatch {
		penalties["amount_penalty"] = p.cfg.AmountPenalty
	}

	result.DateMatch = dateMatches(fields.Date, declaredDate, p.cfg.DateToleranceDays)
	if !result.DateMatch {
		penalties["date_penalty"] = p.cfg.DatePenalty
	}

	return result, penalties
}

func vendorMatches(parsed *string, declared string) bool {
	if declared == "" {
		return false
	}
	if parsed == nil {
		return false
	}
	return strings.Contains(strings.ToLower(*parsed), strings.ToLower(declared)) ||
		strings.Contains(strings.ToLower(declared), strings.ToLower(*parsed))
}

func amountMatches(parsed, declared *float64, tolerancePct float64) bool {
	if declared == nil {
		return false
	}
	if parsed == nil {
		return false
	}
	if *declared == 0 {
		return *parsed == 0
	}
	diff := *parsed - *declared
	if diff < 0 {
		diff = -diff
	}
	return diff/(*declared) <= tolerancePct
}

func dateMatches(parsed *string, declared *time.Time, toleranceDays int) bool {
	if declared == nil {
		return true
	}
	if parsed == nil {
		return false
	}
	t, err := normalizeParsedDate(*parsed)
	if err != nil {
		return false
	}
	diff := t.Sub(*declared)
	if diff < 0 {
		diff = -diff
	}
	return diff <= time.Duration(toleranceDays)*24*time.Hour
}

func normalizeParsedDate(s string) (time.Time, error) {
	layouts := []string{"02/01/2006", "02-01-2006", "2006-01-02"}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("ocr: unrecognized date format %q", s)
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
