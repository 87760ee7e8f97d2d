package features_test

import (
	"path/filepath"
	"testing"
	"time"

	"vidya/risk-engine/internal/config"
	"vidya/risk-engine/internal/domain"
	"vidya/risk-engine/internal/features"
	"vidya/risk-engine/internal/state"
)

func newEngineer(t *testing.T) *features.Engineer {
	t.Helper()
	st, err := state.New(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	return features.New(config.Defaults().FraudRules, st)
}

func baseMeta(caseID string, at time.Time) domain.Metadata {
	return domain.Metadata{
		CaseID:              caseID,
		ApplicantID:         "APP-1001",
		DeclaredAssetType:   "tractor",
		SubmissionDeviceID:  "dev-1",
		SubmissionTimestamp: at,
	}
}

func featMap(fv domain.FraudFeatureVector) map[string]float64 {
	return fv.Features
}

func TestBuild_NoEvidence_UsesNeutralDefaults(t *testing.T) {
	e := newEngineer(t)
	meta := baseMeta("case-1", time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC))

	fv, err := e.Build(features.Input{Meta: meta})
	if err != nil {
		t.Fatal(err)
	}
	f := featMap(fv)
	if f["avg_quality_score"] != 0.5 {
		t.Errorf("expected avg_quality_score=0.5 default, got %v", f["avg_quality_score"])
	}
	if f["asset_match_rate"] != 0.5 {
		t.Errorf("expected asset_match_rate=0.5 default, got %v", f["asset_match_rate"])
	}
	if f["avg_ocr_confidence"] != 0 {
		t.Errorf("expected avg_ocr_confidence=0 default, got %v", f["avg_ocr_confidence"])
	}
	if fv.CaseID != "case-1" {
		t.Errorf("expected case_id=case-1, got %v", fv.CaseID)
	}
}

func TestBuild_OrderIsSortedAndDeterministic(t *testing.T) {
	e := newEngineer(t)
	meta := baseMeta("case-2", time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC))

	fv, err := e.Build(features.Input{Meta: meta})
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(fv.Order); i++ {
		if fv.Order[i-1] > fv.Order[i] {
			t.Fatalf("expected sorted order, got %v before %v", fv.Order[i-1], fv.Order[i])
		}
	}
	if len(fv.Order) != len(fv.Features) {
		t.Errorf("expected order to cover every feature key, got %d order entries vs %d features", len(fv.Order), len(fv.Features))
	}
}

func TestBuild_OffHoursSubmission_SetsFlag(t *testing.T) {
	e := newEngineer(t)
	meta := baseMeta("case-3", time.Date(2026, 1, 1, 3, 0, 0, 0, time.UTC))

	fv, err := e.Build(features.Input{Meta: meta})
	if err != nil {
		t.Fatal(err)
	}
	if featMap(fv)["off_hours_flag"] != 1 {
		t.Error("expected off_hours_flag=1 for a 3am submission")
	}
}

func TestBuild_BusinessHoursSubmission_NoOffHoursFlag(t *testing.T) {
	e := newEngineer(t)
	meta := baseMeta("case-4", time.Date(2026, 1, 1, 14, 0, 0, 0, time.UTC))

	fv, err := e.Build(features.Input{Meta: meta})
	if err != nil {
		t.Fatal(err)
	}
	if featMap(fv)["off_hours_flag"] != 0 {
		t.Error("expected off_hours_flag=0 for a 2pm submission")
	}
}

func TestBuild_GPSDeviation_ComputedWhenBothLocationsPresent(t *testing.T) {
	e := newEngineer(t)
	meta := baseMeta("case-5", time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC))
	meta.DeclaredAssetLocation = &domain.GPSCoordinate{Lat: 28.6139, Lon: 77.2090}
	meta.SubmissionLocation = &domain.GPSCoordinate{Lat: 19.0760, Lon: 72.8777}

	fv, err := e.Build(features.Input{Meta: meta})
	if err != nil {
		t.Fatal(err)
	}
	f := featMap(fv)
	if f["gps_deviation_km"] <= 0 {
		t.Errorf("expected positive gps_deviation_km, got %v", f["gps_deviation_km"])
	}
	if f["gps_over_threshold"] != 1 {
		t.Error("expected gps_over_threshold=1 for a Delhi-Mumbai mismatch")
	}
}

func TestBuild_MissingLocations_ZeroGPSDeviation(t *testing.T) {
	e := newEngineer(t)
	meta := baseMeta("case-6", time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC))

	fv, err := e.Build(features.Input{Meta: meta})
	if err != nil {
		t.Fatal(err)
	}
	f := featMap(fv)
	if f["gps_deviation_km"] != 0 || f["gps_over_threshold"] != 0 {
		t.Errorf("expected zeroed gps features when locations are missing, got %v/%v", f["gps_deviation_km"], f["gps_over_threshold"])
	}
}

func TestBuild_RepeatedDeviceUsage_IncrementsCount(t *testing.T) {
	st, err := state.New(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	e := features.New(config.Defaults().FraudRules, st)

	at := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	meta1 := baseMeta("case-7", at)
	meta2 := baseMeta("case-8", at.Add(time.Hour))
	meta2.ApplicantID = "APP-1002"

	if _, err := e.Build(features.Input{Meta: meta1}); err != nil {
		t.Fatal(err)
	}
	fv2, err := e.Build(features.Input{Meta: meta2})
	if err != nil {
		t.Fatal(err)
	}
	if featMap(fv2)["device_usage_count"] != 2 {
		t.Errorf("expected device_usage_count=2 on second use of the same device, got %v", featMap(fv2)["device_usage_count"])
	}
}

func TestBuild_RapidResubmission_RaisesRatio(t *testing.T) {
	st, err := state.New(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	e := features.New(config.Defaults().FraudRules, st)

	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	if _, err := e.Build(features.Input{Meta: baseMeta("case-9", base)}); err != nil {
		t.Fatal(err)
	}
	fv, err := e.Build(features.Input{Meta: baseMeta("case-10", base.Add(30 * time.Minute))})
	if err != nil {
		t.Fatal(err)
	}
	if featMap(fv)["rapid_submission_ratio"] != 1 {
		t.Errorf("expected rapid_submission_ratio=1 for a 30-minute resubmission gap, got %v", featMap(fv)["rapid_submission_ratio"])
	}
}

func TestBuild_LowQualityRatio_UsesFixedHalfThreshold_NotOfficerReviewThreshold(t *testing.T) {
	e := newEngineer(t)
	meta := baseMeta("case-10", time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC))

	fv, err := e.Build(features.Input{
		Meta: meta,
		Quality: []domain.ImageQualityResult{
			{ImageID: "img-1", QualityScore: 0.6, OfficerReviewFlag: true},
			{ImageID: "img-2", QualityScore: 0.9, OfficerReviewFlag: false},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := featMap(fv)["low_quality_ratio"]; got != 0 {
		t.Errorf("expected low_quality_ratio=0 (both scores ≥ 0.5 even though one is officer_review_flag=true), got %v", got)
	}
}

func TestBuild_SubmissionHourStdDev_RisesWithVariedHours(t *testing.T) {
	st, err := state.New(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	e := features.New(config.Defaults().FraudRules, st)

	meta := baseMeta("case-11", time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	fv, err := e.Build(features.Input{
		Meta: meta,
		Timestamps: []time.Time{
			time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
			time.Date(2026, 1, 1, 21, 0, 0, 0, time.UTC),
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if featMap(fv)["submission_hour_std"] <= 0 {
		t.Errorf("expected positive submission_hour_std across two widely different evidence hours, got %v", featMap(fv)["submission_hour_std"])
	}
}

func TestBuild_NoPackageTimestamps_ZeroSubmissionHourStd(t *testing.T) {
	e := newEngineer(t)
	meta := baseMeta("case-14", time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC))

	fv, err := e.Build(features.Input{Meta: meta})
	if err != nil {
		t.Fatal(err)
	}
	if featMap(fv)["submission_hour_std"] != 0 {
		t.Errorf("expected submission_hour_std=0 with a single hour sample, got %v", featMap(fv)["submission_hour_std"])
	}
}

func TestBuild_TotalCasesFeature_ReflectsApplicantHistory(t *testing.T) {
	e := newEngineer(t)
	meta := baseMeta("case-13", time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC))
	meta.ApplicantHistory.SubmittedCases = 4

	fv, err := e.Build(features.Input{Meta: meta})
	if err != nil {
		t.Fatal(err)
	}
	if featMap(fv)["total_cases"] != 4 {
		t.Errorf("expected total_cases=4, got %v", featMap(fv)["total_cases"])
	}
}
