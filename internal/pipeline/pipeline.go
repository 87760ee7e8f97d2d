// Package pipeline orchestrates a full case scoring run: load evidence,
// run quality/detection/OCR/duplicate/forensic analysis, verify declared
// invoice and asset details, engineer the fraud feature vector, score it,
// and aggregate everything into a final routing decision.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"vidya/risk-engine/internal/aggregator"
	"vidya/risk-engine/internal/detection"
	"vidya/risk-engine/internal/domain"
	"vidya/risk-engine/internal/duplicate"
	"vidya/risk-engine/internal/features"
	"vidya/risk-engine/internal/forensics"
	"vidya/risk-engine/internal/fraud"
	"vidya/risk-engine/internal/media"
	"vidya/risk-engine/internal/ocr"
	"vidya/risk-engine/internal/quality"
	"vidya/risk-engine/internal/verification"
)

// Pipeline wires every analyzer stage into the fixed scoring order the
// service runs for every case: quality -> detection -> OCR -> forensics ->
// verification -> duplicates -> features -> fraud -> aggregation. Forensics
// runs after OCR because its text-consistency signals read the OCR stage's
// extracted text; nothing outside the process observes the swap.
type Pipeline struct {
	loader       *media.Loader
	qualityA     *quality.Analyzer
	forensicsA   *forensics.Analyzer
	detector     *detection.Detector
	ocrP         *ocr.Processor
	verifyClient verification.Client
	dupDetector  *duplicate.Detector
	featureEng   *features.Engineer
	fraudScorer  *fraud.Scorer
	agg          *aggregator.Aggregator
}

// New builds a Pipeline from its fully-constructed stage dependencies.
func New(
	loader *media.Loader,
	qualityA *quality.Analyzer,
	forensicsA *forensics.Analyzer,
	detector *detection.Detector,
	ocrP *ocr.Processor,
	verifyClient verification.Client,
	dupDetector *duplicate.Detector,
	featureEng *features.Engineer,
	fraudScorer *fraud.Scorer,
	agg *aggregator.Aggregator,
) *Pipeline {
	return &Pipeline{
		loader:       loader,
		qualityA:     qualityA,
		forensicsA:   forensicsA,
		detector:     detector,
		ocrP:         ocrP,
		verifyClient: verifyClient,
		dupDetector:  dupDetector,
		featureEng:   featureEng,
		fraudScorer:  fraudScorer,
		agg:          agg,
	}
}

// loadedItem is one evidence item's resolved payload, or its load error.
// Every stage emits a result for every item either way, so the breakdown
// always carries exactly one entry per evidence in the input.
type loadedItem struct {
	id      string
	data    []byte
	loadErr error
}

// ScoreCase runs the full pipeline over a single evidence package.
func (p *Pipeline) ScoreCase(pkg domain.EvidencePackage) (domain.ScoreResponse, error) {
	pkg.NormalizeTimestamps()

	assets := make([]loadedItem, 0, len(pkg.AssetImages))
	for _, img := range pkg.AssetImages {
		data, err := p.loader.Load(media.Source{Base64Data: img.Base64Data, FilePath: img.FilePath, URL: img.URL})
		assets = append(assets, loadedItem{id: img.ID, data: data, loadErr: err})
	}
	docs := make([]loadedItem, 0, len(pkg.DocImages))
	for _, doc := range pkg.DocImages {
		data, err := p.loader.Load(media.Source{Base64Data: doc.Base64Data, FilePath: doc.FilePath, URL: doc.URL})
		docs = append(docs, loadedItem{id: doc.ID, data: data, loadErr: err})
	}

	// Quality, assets then documents.
	var qualityResults []domain.ImageQualityResult
	for _, it := range append(append([]loadedItem{}, assets...), docs...) {
		if it.loadErr != nil {
			qualityResults = append(qualityResults, domain.ImageQualityResult{
				ImageID:           it.id,
				QualityScore:      0,
				OfficerReviewFlag: true,
				ReasonIfFail:      it.loadErr.Error(),
			})
			continue
		}
		qualityResults = append(qualityResults, p.qualityA.Analyze(it.id, it.data))
	}

	// Object detection over asset images.
	var detectionResults []domain.ObjectDetectionResult
	for i, it := range assets {
		if it.loadErr != nil {
			detectionResults = append(detectionResults, domain.ObjectDetectionResult{
				ImageID: it.id,
				Details: map[string]any{"error": it.loadErr.Error()},
			})
			continue
		}
		detectionResults = append(detectionResults, p.detector.Detect(it.id, pkg.AssetImages[i].DeclaredAssetType, it.data))
	}

	// OCR over documents.
	var ocrResults []domain.OCRResult
	for _, it := range docs {
		if it.loadErr != nil {
			ocrResults = append(ocrResults, p.ocrP.LoadFailure(it.id, it.loadErr))
			continue
		}
		ocrResults = append(ocrResults, p.ocrP.Process(it.id, it.data, pkg.Metadata.DeclaredVendor, pkg.Metadata.DeclaredInvoiceAmount, pkg.Metadata.DeclaredInvoiceDate))
	}

	// Forensics over documents, reading each document's OCR text.
	var forensicResults []domain.ForensicResult
	for i, it := range docs {
		if it.loadErr != nil {
			forensicResults = append(forensicResults, domain.ForensicResult{
				DocID: it.id,
				Label: domain.ForensicGenuine,
				Error: it.loadErr.Error(),
			})
			continue
		}
		rawText := ocrResults[i].RawText
		amounts := forensics.ExtractAmounts(rawText)
		forensicResults = append(forensicResults, p.forensicsA.Analyze(it.id, it.data, nil, rawText, amounts))
	}

	// Registry verification of the declared invoice and sanctioned asset.
	gstVerified, gstDetails := p.verifyClient.VerifyInvoice(invoiceNumber(pkg.Metadata), vendorGSTIN(pkg.Metadata))
	bankMatch, bankDetails := p.verifyClient.VerifySanctionedAsset(pkg.Metadata.ApplicantID, pkg.Metadata.DeclaredAssetType)
	verificationResult := &domain.VerificationResult{
		GSTVerified: gstVerified,
		GSTDetails:  gstDetails,
		BankMatch:   bankMatch,
		BankDetails: bankDetails,
	}

	// Duplicate detection, assets then documents. A load or decode failure
	// degrades to "no duplicate" without recording a hash.
	var duplicateResults []domain.DuplicateResult
	for _, it := range append(append([]loadedItem{}, assets...), docs...) {
		if it.loadErr != nil {
			duplicateResults = append(duplicateResults, domain.DuplicateResult{EvidenceID: it.id})
			continue
		}
		dupResult, err := p.dupDetector.Evaluate(pkg.Metadata.ApplicantID, pkg.CaseID, it.id, it.data)
		if err != nil {
			duplicateResults = append(duplicateResults, domain.DuplicateResult{EvidenceID: it.id})
			continue
		}
		duplicateResults = append(duplicateResults, dupResult)
	}

	fv, err := p.featureEng.Build(features.Input{
		Meta:       pkg.Metadata,
		Quality:    qualityResults,
		Detections: detectionResults,
		OCRResults: ocrResults,
		Duplicates: duplicateResults,
		Timestamps: pkg.Timestamps,
	})
	if err != nil {
		return domain.ScoreResponse{}, fmt.Errorf("pipeline: building feature vector: %w", err)
	}

	fraudResult := p.fraudScorer.Score(fv)

	components := aggregator.Components{
		ImageQualityScore: averageQuality(qualityResults),
		AssetMatchScore:   averageAssetMatch(detectionResults),
		OCRRisk:           averageOCRPenalty(ocrResults),
		DuplicatePenalty:  sumDuplicatePenalty(duplicateResults),
		FraudScore:        fraudResult.FraudScore,
	}
	finalScore, tier, routing := p.agg.Aggregate(components)

	reasons := decisionReasons(finalScore, verificationResult, forensicResults, duplicateResults)

	return domain.ScoreResponse{
		EvaluationID:        uuid.NewString(),
		CaseID:              pkg.CaseID,
		FinalRiskScore:      finalScore,
		RiskTier:            tier,
		RoutingDecision:     routing,
		VerificationSummary: verificationResult,
		DecisionReasons:     reasons,
		Scores: domain.ScoreBreakdown{
			ImageQuality:  qualityResults,
			AssetMatch:    detectionResults,
			OCR:           ocrResults,
			Duplicates:    duplicateResults,
			FraudFeatures: fv,
			FraudScore:    fraudResult,
			Verification:  verificationResult,
			Forensics:     forensicResults,
		},
	}, nil
}

// vendorGSTIN reads the declared GSTIN from custom_metadata, which by
// convention carries it under the "gstin" key since GSTIN is India-specific
// and not every scheme requires it.
func vendorGSTIN(meta domain.Metadata) string {
	if meta.CustomMetadata == nil {
		return ""
	}
	if v, ok := meta.CustomMetadata["gstin"].(string); ok {
		return v
	}
	return ""
}

// invoiceNumber reads the declared invoice number from custom_metadata's
// "invoice_number" convention key.
func invoiceNumber(meta domain.Metadata) string {
	if meta.CustomMetadata == nil {
		return ""
	}
	if v, ok := meta.CustomMetadata["invoice_number"].(string); ok {
		return v
	}
	return ""
}

func averageQuality(results []domain.ImageQualityResult) float64 {
	if len(results) == 0 {
		return 0.5
	}
	sum := 0.0
	for _, r := range results {
		sum += r.QualityScore
	}
	return sum / float64(len(results))
}

func averageAssetMatch(results []domain.ObjectDetectionResult) float64 {
	if len(results) == 0 {
		return 0.5
	}
	sum := 0.0
	for _, r := range results {
		sum += r.MatchScore
	}
	return sum / float64(len(results))
}

// averageOCRPenalty is the aggregator's "ocr" risk component: the mean,
// across documents, of each document's summed cross-check penalties —
// not the normalized match_score FeatureEngineer consumes.
func averageOCRPenalty(results []domain.OCRResult) float64 {
	if len(results) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range results {
		docTotal := 0.0
		for _, v := range r.Penalties {
			docTotal += v
		}
		sum += docTotal
	}
	return sum / float64(len(results))
}

func sumDuplicatePenalty(results []domain.DuplicateResult) float64 {
	sum := 0.0
	for _, r := range results {
		sum += r.PenaltyPoints
	}
	return sum
}

// decisionReasons assembles the human-readable audit trail in a fixed
// priority order: overall score, GST failure, bank mismatch, per-document
// forensic findings, then per-item duplicates. Back-office admins key off
// both the order and the phrasing, so neither is free to drift.
func decisionReasons(finalScore float64, verification *domain.VerificationResult, forensicResults []domain.ForensicResult, duplicateResults []domain.DuplicateResult) []string {
	var reasons []string

	if finalScore >= 80 {
		reasons = append(reasons, "High Fraud Probability")
	}
	if verification != nil && !verification.GSTVerified {
		reasons = append(reasons, fmt.Sprintf("GST Verification Failed: %v", verification.GSTDetails["reason"]))
	}
	if verification != nil && !verification.BankMatch {
		reasons = append(reasons, "Bank Sanction Mismatch")
	}
	for _, f := range forensicResults {
		if f.Label == domain.ForensicForged || f.Label == domain.ForensicSuspicious {
			top := f.Reasons
			if len(top) > 2 {
				top = top[:2]
			}
			reasons = append(reasons, fmt.Sprintf("Forensic Alert (%s): %s", f.Label, strings.Join(top, ", ")))
		}
	}
	for _, d := range duplicateResults {
		if d.DuplicateFound {
			reasons = append(reasons, fmt.Sprintf("Duplicate Image Found (Distance: %d)", d.HashDistance))
		}
	}

	return reasons
}
