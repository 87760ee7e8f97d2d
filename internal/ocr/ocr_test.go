package ocr_test

import (
	"errors"
	"testing"
	"time"

	"vidya/risk-engine/internal/config"
	"vidya/risk-engine/internal/ocr"
)

type fakeProvider struct {
	text       string
	confidence float64
	err        error
}

func (f fakeProvider) Extract(data []byte) (string, float64, error) {
	return f.text, f.confidence, f.err
}

func TestProcess_FallbackProvider_EmptyTextLowMatchScore(t *testing.T) {
	cfg := config.Defaults().OCR
	p := ocr.New(cfg)

	amount := 50000.0
	res := p.Process("doc-1", nil, "Acme Vendors", &amount, nil)
	if res.MatchScore >= 1.0 {
		t.Errorf("expected imperfect match score with no extracted text, got %v", res.MatchScore)
	}
}

func TestProcess_AllFieldsMatch_HighMatchScore(t *testing.T) {
	cfg := config.Defaults().OCR
	text := "Vendor: Acme Vendors\nTotal: 50000\n01/06/2026"
	p := ocr.NewWithProvider(cfg, fakeProvider{text: text, confidence: 0.95})

	amount := 50000.0
	date := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	res := p.Process("doc-2", nil, "Acme Vendors", &amount, &date)

	if !res.CrosscheckResults.VendorMatch {
		t.Error("expected vendor match")
	}
	if !res.CrosscheckResults.AmountMatch {
		t.Error("expected amount match")
	}
	if !res.CrosscheckResults.DateMatch {
		t.Error("expected date match")
	}
	if res.MatchScore != 1.0 {
		t.Errorf("expected match_score=1.0 with no penalties, got %v", res.MatchScore)
	}
}

func TestProcess_VendorMismatch_AppliesVendorPenalty(t *testing.T) {
	cfg := config.Defaults().OCR
	text := "Vendor: Totally Different Co\nTotal: 50000"
	p := ocr.NewWithProvider(cfg, fakeProvider{text: text, confidence: 0.95})

	amount := 50000.0
	res := p.Process("doc-3", nil, "Acme Vendors", &amount, nil)
	if res.CrosscheckResults.VendorMatch {
		t.Error("expected vendor mismatch")
	}
	if _, ok := res.Penalties["vendor_penalty"]; !ok {
		t.Error("expected vendor_penalty to be recorded")
	}
}

func TestProcess_AmountOutsideTolerance_AppliesAmountPenalty(t *testing.T) {
	cfg := config.Defaults().OCR
	text := "Total: 10000"
	p := ocr.NewWithProvider(cfg, fakeProvider{text: text, confidence: 0.95})

	declared := 50000.0
	res := p.Process("doc-4", nil, "", &declared, nil)
	if res.CrosscheckResults.AmountMatch {
		t.Error("expected amount mismatch outside tolerance")
	}
	if _, ok := res.Penalties["amount_penalty"]; !ok {
		t.Error("expected amount_penalty to be recorded")
	}
}

func TestProcess_LowConfidence_AppliesLowConfidencePenalty(t *testing.T) {
	cfg := config.Defaults().OCR
	p := ocr.NewWithProvider(cfg, fakeProvider{text: "Total: 50000", confidence: 0.1})

	res := p.Process("doc-5", nil, "", nil, nil)
	if _, ok := res.Penalties["low_confidence_penalty"]; !ok {
		t.Error("expected low_confidence_penalty below provider threshold")
	}
}

func TestProcess_ProviderError_DegradesToFallbackTextAndConfidence(t *testing.T) {
	cfg := config.Defaults().OCR
	p := ocr.NewWithProvider(cfg, fakeProvider{err: errors.New("provider unavailable")})

	res := p.Process("doc-7", nil, "", nil, nil)
	if res.RawText != "" {
		t.Errorf("expected empty text on provider error, got %q", res.RawText)
	}
	if res.OCRConfidence != 0.5 {
		t.Errorf("expected confidence=0.5 on provider error, got %v", res.OCRConfidence)
	}
}

func TestLoadFailure_RecordsLoadFailurePenaltyAndError(t *testing.T) {
	cfg := config.Defaults().OCR
	p := ocr.New(cfg)

	res := p.LoadFailure("doc-8", errors.New("file not found"))
	if res.MatchScore != 0 {
		t.Errorf("expected match_score=0, got %v", res.MatchScore)
	}
	if res.Penalties["load_failure"] != cfg.AmountPenalty {
		t.Errorf("expected load_failure penalty = amount_penalty (%v), got %v", cfg.AmountPenalty, res.Penalties["load_failure"])
	}
	if res.CrosscheckResults.Error == "" {
		t.Error("expected load error to be captured in crosscheck_results")
	}
}

func TestProcess_NoDeclaredValues_SkipsPenaltiesButReportsNoMatch(t *testing.T) {
	cfg := config.Defaults().OCR
	p := ocr.NewWithProvider(cfg, fakeProvider{text: "no structured fields here", confidence: 0.95})

	res := p.Process("doc-6", nil, "", nil, nil)
	if res.CrosscheckResults.VendorMatch || res.CrosscheckResults.AmountMatch {
		t.Error("expected vendor_match/amount_match=false when nothing was declared")
	}
	if !res.CrosscheckResults.DateMatch {
		t.Error("expected date_match=true when no date was declared")
	}
	if _, ok := res.Penalties["vendor_penalty"]; ok {
		t.Error("expected no vendor_penalty without a declared vendor")
	}
	if _, ok := res.Penalties["amount_penalty"]; ok {
		t.Error("expected no amount_penalty without a declared amount")
	}
	if res.MatchScore != 1.0 {
		t.Errorf("expected match_score=1.0 with no applicable penalties, got %v", res.MatchScore)
	}
}
