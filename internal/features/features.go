// Package features assembles the fixed-schema feature vector that
// FraudScorer consumes from the per-layer analyzer outputs, defaulting any
// signal that has no evidence to score (e.g. no documents submitted) to the
// same neutral values the upstream service used.
package features

import (
	"math"
	"sort"
	"time"

	"vidya/risk-engine/internal/config"
	"vidya/risk-engine/internal/domain"
	"vidya/risk-engine/internal/geo"
	"vidya/risk-engine/internal/state"
)

// Engineer builds a FraudFeatureVector from a case's analyzer outputs.
type Engineer struct {
	cfg   config.FraudRuleConfig
	state *state.Store
}

// New builds an Engineer.
func New(cfg config.FraudRuleConfig, st *state.Store) *Engineer {
	return &Engineer{cfg: cfg, state: st}
}

// Input bundles everything the feature engineer needs from earlier pipeline
// stages.
type Input struct {
	Meta        domain.Metadata
	Quality     []domain.ImageQualityResult
	Detections  []domain.ObjectDetectionResult
	OCRResults  []domain.OCRResult
	Duplicates  []domain.DuplicateResult
	Timestamps  []time.Time // the package's own per-evidence timestamps
}

// Build assembles the feature vector, recording device usage and submission
// timestamp history as a side effect (each case submission extends the
// applicant's and device's tracked history for future scoring).
func (e *Engineer) Build(in Input) (domain.FraudFeatureVector, error) {
	order := []string{}
	feat := map[string]float64{}
	explain := map[string]any{}

	add := func(key string, value float64) {
		feat[key] = value
		order = append(order, key)
	}

	e.qualityFeatures(in.Quality, add)
	e.detectionFeatures(in.Detections, in.Meta.DeclaredAssetType, add)
	e.ocrFeatures(in.OCRResults, add)
	e.duplicateFeatures(in.Duplicates, add)

	deviceCount, submissionHour, offHours, err := e.submissionFeatures(in.Meta, add)
	if err != nil {
		return domain.FraudFeatureVector{}, err
	}

	// Hour spread comes from the package's own timestamp list, not the
	// applicant's cross-case history; a package without per-evidence
	// timestamps degenerates to the single submission timestamp.
	hourSamples := in.Timestamps
	if len(hourSamples) == 0 {
		hourSamples = []time.Time{in.Meta.SubmissionTimestamp}
	}
	add("submission_hour_std", submissionHourStdDev(hourSamples))
	explain["device_usage_count"] = deviceCount
	explain["submission_hour"] = submissionHour
	explain["off_hours_flag"] = offHours

	rapidRatio, err := e.historyFeatures(in.Meta, add)
	if err != nil {
		return domain.FraudFeatureVector{}, err
	}
	explain["rapid_submission_ratio"] = rapidRatio

	gpsDev := geoDeviation(in.Meta)
	if gpsDev != nil {
		add("gps_deviation_km", *gpsDev)
		over := 0.0
		if *gpsDev > e.cfg.GPSThresholdKM {
			over = 1.0
		}
		add("gps_over_threshold", over)
	} else {
		add("gps_deviation_km", 0)
		add("gps_over_threshold", 0)
	}

	sort.Strings(order) // deterministic regardless of insertion order upstream

	return domain.FraudFeatureVector{
		CaseID:            in.Meta.CaseID,
		Features:          feat,
		Order:             order,
		ExplanationFields: explain,
	}, nil
}

func (e *Engineer) qualityFeatures(results []domain.ImageQualityResult, add func(string, float64)) {
	if len(results) == 0 {
		add("avg_quality_score", 0.5)
		add("low_quality_ratio", 0)
		return
	}
	var sum float64
	var lowCount int
	for _, r := range results {
		sum += r.QualityScore
		if r.QualityScore < 0.5 {
			lowCount++
		}
	}
	add("avg_quality_score", sum/float64(len(results)))
	add("low_quality_ratio", float64(lowCount)/float64(len(results)))
}

func (e *Engineer) detectionFeatures(results []domain.ObjectDetectionResult, declaredAssetType string, add func(string, float64)) {
	if len(results) == 0 {
		add("asset_match_rate", 0.5)
		add("asset_declared", boolToFloat(declaredAssetType != ""))
		return
	}
	var matched int
	for _, r := range results {
		if r.AssetMatch {
			matched++
		}
	}
	add("asset_match_rate", float64(matched)/float64(len(results)))
	add("asset_declared", boolToFloat(declaredAssetType != ""))
}

func (e *Engineer) ocrFeatures(results []domain.OCRResult, add func(string, float64)) {
	if len(results) == 0 {
		add("avg_ocr_confidence", 0)
		add("vendor_match_rate", 0)
		add("amount_match_rate", 0)
		return
	}
	var confSum float64
	var vendorMatches, amountMatches int
	for _, r := range results {
		confSum += r.OCRConfidence
		if r.CrosscheckResults.VendorMatch {
			vendorMatches++
		}
		if r.CrosscheckResults.AmountMatch {
			amountMatches++
		}
	}
	n := float64(len(results))
	add("avg_ocr_confidence", confSum/n)
	add("vendor_match_rate", float64(vendorMatches)/n)
	add("amount_match_rate", float64(amountMatches)/n)
}

func (e *Engineer) duplicateFeatures(results []domain.DuplicateResult, add func(string, float64)) {
	if len(results) == 0 {
		add("duplicate_ratio", 0)
		return
	}
	var dup int
	for _, r := range results {
		if r.DuplicateFound {
			dup++
		}
	}
	add("duplicate_ratio", float64(dup)/float64(len(results)))
}

func (e *Engineer) submissionFeatures(meta domain.Metadata, add func(string, float64)) (deviceCount int, submissionHour int, offHours bool, err error) {
	submissionHour = meta.SubmissionTimestamp.Hour()
	offHours = submissionHour < e.cfg.OffHoursStart || submissionHour > e.cfg.OffHoursEnd
	add("submission_hour", float64(submissionHour))
	add("off_hours_flag", boolToFloat(offHours))

	if meta.SubmissionDeviceID != "" {
		count, rerr := e.state.RecordDeviceUsage(meta.SubmissionDeviceID, meta.SubmissionTimestamp, e.cfg.DeviceWindowDays)
		if rerr != nil {
			return 0, submissionHour, offHours, rerr
		}
		deviceCount = count
	}
	add("device_usage_count", float64(deviceCount))
	return deviceCount, submissionHour, offHours, nil
}

func (e *Engineer) historyFeatures(meta domain.Metadata, add func(string, float64)) (float64, error) {
	add("historical_rejections", float64(meta.ApplicantHistory.PreviousRejections))
	add("historical_flags", float64(meta.ApplicantHistory.FraudulentFlags))
	add("total_cases", float64(meta.ApplicantHistory.SubmittedCases))

	history, err := e.state.RecordCaseTimestamp(meta.ApplicantID, meta.SubmissionTimestamp)
	if err != nil {
		return 0, err
	}
	ratio := rapidSubmissionRatio(history)
	add("rapid_submission_ratio", ratio)
	return ratio, nil
}

// submissionHourStdDev is the population standard deviation of the hours
// in the given timestamp list, or 0 with fewer than two samples.
func submissionHourStdDev(samples []time.Time) float64 {
	if len(samples) < 2 {
		return 0
	}
	hours := make([]float64, len(samples))
	mean := 0.0
	for i, t := range samples {
		h := float64(domain.NormalizeTimestamp(t).Hour())
		hours[i] = h
		mean += h
	}
	mean /= float64(len(hours))

	variance := 0.0
	for _, h := range hours {
		d := h - mean
		variance += d * d
	}
	variance /= float64(len(hours))
	return math.Sqrt(variance)
}

// rapidSubmissionRatio returns the fraction of adjacent submission gaps
// under two hours, treating all timestamps as naive (tz-stripped) to avoid
// aware/naive comparison errors.
func rapidSubmissionRatio(history []time.Time) float64 {
	if len(history) < 2 {
		return 0
	}
	sorted := make([]time.Time, len(history))
	for i, t := range history {
		sorted[i] = domain.NormalizeTimestamp(t)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	rapid := 0
	gaps := len(sorted) - 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Sub(sorted[i-1]) < 2*time.Hour {
			rapid++
		}
	}
	return float64(rapid) / float64(gaps)
}

func geoDeviation(meta domain.Metadata) *float64 {
	if meta.DeclaredAssetLocation == nil || meta.SubmissionLocation == nil {
		return nil
	}
	a := &geo.Point{Lat: meta.DeclaredAssetLocation.Lat, Lon: meta.DeclaredAssetLocation.Lon}
	b := &geo.Point{Lat: meta.SubmissionLocation.Lat, Lon: meta.SubmissionLocation.Lon}
	return geo.Deviation(a, b)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
