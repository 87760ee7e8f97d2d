// Package domain contains the core types shared across the VIDYA risk
// scoring pipeline. Keeping them in one place makes the evidence/result
// contracts easy to audit against the spec.
package domain

import "time"

// ─── Risk tiers & routing ──────────────────────────────────────────────────

// Risk tier labels, in ascending order of severity.
const (
	TierAutoApprove  = "auto-approve"
	TierOfficerReview = "officer-review"
	TierVideoVerify  = "video-verify"
)

// Routing decisions emitted downstream for workflow dispatch.
const (
	RoutingAutoApprove            = "auto_approve"
	RoutingOfficerReview          = "officer_review"
	RoutingVideoVerificationReq   = "video_verification_required"
)

// Quality flags.
const (
	FlagBlurry        = "blurry"
	FlagTooDark       = "too_dark"
	FlagTooBright     = "too_bright"
	FlagLowContrast   = "low_contrast"
	FlagLowResolution = "low_resolution"
	FlagDecoderMissing = "opencv_missing"
)

// ─── Evidence package (request-scoped input) ───────────────────────────────

// GPSCoordinate is a latitude/longitude pair.
type GPSCoordinate struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// EvidenceImage is a single asset photo submitted with a case.
// Exactly one of Base64Data, FilePath, or URL must be populated.
type EvidenceImage struct {
	ID                string     `json:"id" validate:"required"`
	URL               string     `json:"url,omitempty"`
	FilePath          string     `json:"file_path,omitempty"`
	Base64Data        string     `json:"base64_data,omitempty"`
	MimeType          string     `json:"mime_type,omitempty"`
	DeclaredAssetType string     `json:"declared_asset_type,omitempty"`
	Timestamp         *time.Time `json:"timestamp,omitempty"`
}

// EvidenceDocument is a document image (invoice, ID, etc). It carries the
// same payload fields as EvidenceImage plus a document type.
type EvidenceDocument struct {
	ID                string     `json:"id" validate:"required"`
	URL               string     `json:"url,omitempty"`
	FilePath          string     `json:"file_path,omitempty"`
	Base64Data        string     `json:"base64_data,omitempty"`
	MimeType          string     `json:"mime_type,omitempty"`
	DeclaredAssetType string     `json:"declared_asset_type,omitempty"`
	DocumentType      string     `json:"document_type,omitempty"`
	Timestamp         *time.Time `json:"timestamp,omitempty"`
}

// AsEvidenceImage adapts a document to the narrower payload-only shape that
// MediaLoader and DuplicateDetector operate on.
func (d EvidenceDocument) AsEvidenceImage() EvidenceImage {
	return EvidenceImage{
		ID:                d.ID,
		URL:               d.URL,
		FilePath:          d.FilePath,
		Base64Data:        d.Base64Data,
		MimeType:          d.MimeType,
		DeclaredAssetType: d.DeclaredAssetType,
		Timestamp:         d.Timestamp,
	}
}

// EvidenceVideo is a video clip submitted for video-verify routing; the
// core never decodes it, only tracks its presence.
type EvidenceVideo struct {
	ID              string     `json:"id" validate:"required"`
	URL             string     `json:"url,omitempty"`
	FilePath        string     `json:"file_path,omitempty"`
	Base64Data      string     `json:"base64_data,omitempty"`
	DurationSeconds *float64   `json:"duration_seconds,omitempty"`
	Timestamp       *time.Time `json:"timestamp,omitempty"`
}

// ApplicantHistory carries counts of the applicant's prior activity.
type ApplicantHistory struct {
	PreviousRejections int `json:"previous_rejections"`
	FraudulentFlags    int `json:"fraudulent_flags"`
	SubmittedCases     int `json:"submitted_cases"`
}

// Metadata is the declared, non-media information about a case.
type Metadata struct {
	CaseID                string           `json:"case_id" validate:"required"`
	ApplicantID           string           `json:"applicant_id" validate:"required"`
	OrgID                 string           `json:"org_id,omitempty"`
	SchemeCode            string           `json:"scheme_code,omitempty"`
	DeclaredLoanAmount    float64          `json:"declared_loan_amount" validate:"required"`
	DeclaredAssetType     string           `json:"declared_asset_type,omitempty"`
	DeclaredVendor        string           `json:"declared_vendor,omitempty"`
	DeclaredInvoiceAmount *float64         `json:"declared_invoice_amount,omitempty"`
	DeclaredInvoiceDate   *time.Time       `json:"declared_invoice_date,omitempty"`
	DeclaredAssetLocation *GPSCoordinate   `json:"declared_asset_location,omitempty"`
	SubmissionLocation    *GPSCoordinate   `json:"submission_location,omitempty"`
	SubmissionDeviceID    string           `json:"submission_device_id,omitempty"`
	SubmissionTimestamp   time.Time        `json:"submission_timestamp"`
	ApplicantHistory      ApplicantHistory `json:"applicant_history"`
	CustomMetadata        map[string]any   `json:"custom_metadata,omitempty"`
}

// EvidencePackage is the full, immutable request payload for a single case.
type EvidencePackage struct {
	CaseID      string             `json:"case_id" validate:"required"`
	AssetImages []EvidenceImage    `json:"asset_images,omitempty"`
	DocImages   []EvidenceDocument `json:"doc_images,omitempty"`
	Videos      []EvidenceVideo    `json:"videos,omitempty"`
	GPSCoords   []GPSCoordinate    `json:"gps_coords,omitempty"`
	Timestamps  []time.Time        `json:"timestamps,omitempty"`
	Metadata    Metadata           `json:"metadata" validate:"required"`
}

// NormalizeTimestamps strips timezone information from every timestamp the
// package carries, so internal arithmetic is always naive-UTC (spec §3, §9).
func (p *EvidencePackage) NormalizeTimestamps() {
	p.Metadata.SubmissionTimestamp = NormalizeTimestamp(p.Metadata.SubmissionTimestamp)
	if p.Metadata.DeclaredInvoiceDate != nil {
		t := NormalizeTimestamp(*p.Metadata.DeclaredInvoiceDate)
		p.Metadata.DeclaredInvoiceDate = &t
	}
	for i := range p.Timestamps {
		p.Timestamps[i] = NormalizeTimestamp(p.Timestamps[i])
	}
}

// NormalizeTimestamp strips location/offset info, keeping wall-clock fields
// as-is, to make downstream arithmetic total (spec §9).
func NormalizeTimestamp(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// ─── Per-layer results ──────────────────────────────────────────────────────

// ImageQualityResult is QualityAnalyzer's per-image output.
type ImageQualityResult struct {
	ImageID           string   `json:"image_id"`
	QualityScore      float64  `json:"quality_score"`
	BlurVariance      float64  `json:"blur_variance"`
	Brightness        float64  `json:"brightness"`
	Contrast          float64  `json:"contrast"`
	ResolutionOK      bool     `json:"resolution_ok"`
	Flags             []string `json:"flags,omitempty"`
	OfficerReviewFlag bool     `json:"officer_review_flag"`
	ReasonIfFail      string   `json:"reason_if_fail,omitempty"`
}

// Detection is a single detected object in an image.
type Detection struct {
	Label      string     `json:"label"`
	Confidence float64    `json:"confidence"`
	BBox       [4]float64 `json:"bbox"`
}

// ObjectDetectionResult is ObjectDetector's per-image output.
type ObjectDetectionResult struct {
	ImageID         string         `json:"image_id"`
	DetectedObjects []Detection    `json:"detected_objects"`
	AssetMatch      bool           `json:"asset_match"`
	AssetMatchScore float64        `json:"asset_match_score"`
	MatchScore      float64        `json:"match_score"`
	Details         map[string]any `json:"details,omitempty"`
}

// ParsedFields are the regex-extracted business fields from a document.
type ParsedFields struct {
	Vendor *string  `json:"vendor,omitempty"`
	Amount *float64 `json:"amount,omitempty"`
	Date   *string  `json:"date,omitempty"`
}

// CrosscheckResults records how parsed fields compared against declared ones.
type CrosscheckResults struct {
	VendorMatch    bool     `json:"vendor_match"`
	AmountMatch    bool     `json:"amount_match"`
	DateMatch      bool     `json:"date_match"`
	DeclaredVendor string   `json:"declared_vendor,omitempty"`
	DeclaredAmount *float64 `json:"declared_amount,omitempty"`
	DeclaredDate   string   `json:"declared_date,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// OCRResult is OCRProcessor's per-document output.
type OCRResult struct {
	DocID             string            `json:"doc_id"`
	RawText           string            `json:"raw_text"`
	OCRConfidence     float64           `json:"ocr_confidence"`
	ParsedFields      ParsedFields      `json:"parsed_fields"`
	CrosscheckResults CrosscheckResults `json:"crosscheck_results"`
	Penalties         map[string]float64 `json:"penalties,omitempty"`
	MatchScore        float64           `json:"match_score"`
}

// DuplicateResult is DuplicateDetector's per-item output.
type DuplicateResult struct {
	EvidenceID      string  `json:"evidence_id"`
	DuplicateFound  bool    `json:"duplicate_found"`
	HashDistance    int     `json:"hash_distance"`
	ReferenceCaseID string  `json:"reference_case_id,omitempty"`
	PenaltyPoints   float64 `json:"penalty_points"`
}

// ForensicResult is ForensicAnalyzer's per-document output.
type ForensicResult struct {
	DocID         string         `json:"doc_id"`
	Label         string         `json:"label"` // genuine | suspicious | forged
	ForensicScore float64        `json:"forensic_score"`
	Reasons       []string       `json:"reasons,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// Forensic labels.
const (
	ForensicGenuine    = "genuine"
	ForensicSuspicious = "suspicious"
	ForensicForged     = "forged"
)

// FraudFeatureVector is FeatureEngineer's output: a fixed-schema feature map
// plus the ordered key list that defines its canonical iteration order.
type FraudFeatureVector struct {
	CaseID            string             `json:"case_id"`
	Features          map[string]float64 `json:"features"`
	Order             []string           `json:"-"`
	ExplanationFields map[string]any     `json:"explanation_fields"`
}

// FraudScoreResult is FraudScorer's output.
type FraudScoreResult struct {
	FraudScore       float64            `json:"fraud_score"`
	ModelVersion     string             `json:"model_version"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
	RulePenalties    map[string]float64 `json:"rule_penalties"`
}

// VerificationResult is VerificationClient's combined GST/bank output.
type VerificationResult struct {
	GSTVerified bool           `json:"gst_verified"`
	GSTDetails  map[string]any `json:"gst_details"`
	BankMatch   bool           `json:"bank_match"`
	BankDetails map[string]any `json:"bank_details"`
}

// ─── Aggregate audit trail ──────────────────────────────────────────────────

// ScoreBreakdown is the full typed audit trail for a scored case.
type ScoreBreakdown struct {
	ImageQuality  []ImageQualityResult     `json:"image_quality"`
	AssetMatch    []ObjectDetectionResult  `json:"asset_match"`
	OCR           []OCRResult              `json:"ocr"`
	Duplicates    []DuplicateResult        `json:"duplicates"`
	FraudFeatures FraudFeatureVector       `json:"fraud_features"`
	FraudScore    FraudScoreResult         `json:"fraud_score"`
	Verification  *VerificationResult      `json:"verification,omitempty"`
	Forensics     []ForensicResult         `json:"forensics,omitempty"`
}

// ScoreResponse is the audit-ready output of a single score_case call.
type ScoreResponse struct {
	EvaluationID        string              `json:"evaluation_id"`
	CaseID              string              `json:"case_id"`
	FinalRiskScore      float64             `json:"final_risk_score"`
	RiskTier            string              `json:"risk_tier"`
	RoutingDecision     string              `json:"routing_decision"`
	VerificationSummary *VerificationResult `json:"verification_summary,omitempty"`
	DecisionReasons     []string            `json:"decision_reasons"`
	Scores              ScoreBreakdown      `json:"scores"`
}

// WeightUpdateRequest is the PATCH /config/weights payload.
type WeightUpdateRequest struct {
	Weights map[string]float64 `json:"weights" validate:"required"`
}

// HealthResponse is the GET /health payload.
type HealthResponse struct {
	Status       string          `json:"status"`
	Version      string          `json:"version"`
	Dependencies map[string]bool `json:"dependencies"`
}
