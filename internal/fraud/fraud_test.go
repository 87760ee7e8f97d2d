package fraud_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"vidya/risk-engine/internal/config"
	"vidya/risk-engine/internal/domain"
	"vidya/risk-engine/internal/fraud"
)

func TestScore_NoModel_RulesOnly(t *testing.T) {
	cfg := config.Defaults().FraudRules
	s := fraud.New(cfg, nil)

	fv := domain.FraudFeatureVector{
		Features: map[string]float64{
			"gps_deviation_km":  30,
			"off_hours_flag":    1,
			"device_usage_count": 3,
			"historical_flags":  1,
		},
		Order: []string{"device_usage_count", "gps_deviation_km", "historical_flags", "off_hours_flag"},
	}
	res := s.Score(fv)
	if res.ModelVersion != "baseline" {
		t.Errorf("expected baseline version, got %v", res.ModelVersion)
	}
	expected := cfg.GPSPenalty + cfg.OffHoursPenalty + cfg.DevicePenalty + cfg.HistoryPenalty
	if res.FraudScore != expected {
		t.Errorf("expected fraud_score=%v, got %v", expected, res.FraudScore)
	}
}

func TestScore_NoModel_NoTriggeredRules_ZeroScore(t *testing.T) {
	cfg := config.Defaults().FraudRules
	s := fraud.New(cfg, nil)

	fv := domain.FraudFeatureVector{
		Features: map[string]float64{
			"gps_deviation_km":   5,
			"off_hours_flag":     0,
			"device_usage_count": 1,
			"historical_flags":   0,
		},
	}
	res := s.Score(fv)
	if res.FraudScore != 0 {
		t.Errorf("expected fraud_score=0, got %v", res.FraudScore)
	}
}

func TestScore_ClampsTo100(t *testing.T) {
	cfg := config.Defaults().FraudRules
	cfg.GPSPenalty = 60
	cfg.OffHoursPenalty = 60
	s := fraud.New(cfg, nil)

	fv := domain.FraudFeatureVector{
		Features: map[string]float64{
			"gps_deviation_km": 999,
			"off_hours_flag":   1,
		},
	}
	res := s.Score(fv)
	if res.FraudScore != 100 {
		t.Errorf("expected fraud_score clamped to 100, got %v", res.FraudScore)
	}
}

func TestLinearArtifact_Predict_AppliesSigmoid(t *testing.T) {
	artifact := &fraud.LinearArtifact{
		VersionTag: "v-test",
		Intercept:  0,
		Weights:    map[string]float64{"a": 0},
	}
	prob, importance := artifact.Predict([]string{"a"}, map[string]float64{"a": 1})
	if prob != 0.5 {
		t.Errorf("expected sigmoid(0)=0.5, got %v", prob)
	}
	if importance["a"] != 0 {
		t.Errorf("expected zero contribution for a zero weight, got %v", importance["a"])
	}
}

func TestScore_WithModel_CombinesProbabilityAndPenalties(t *testing.T) {
	cfg := config.Defaults().FraudRules
	artifact := &fraud.LinearArtifact{VersionTag: "v1", Intercept: 100, Weights: map[string]float64{}}
	s := fraud.New(cfg, artifact)

	fv := domain.FraudFeatureVector{Features: map[string]float64{}}
	res := s.Score(fv)
	if res.ModelVersion != "v1" {
		t.Errorf("expected model version v1, got %v", res.ModelVersion)
	}
	// sigmoid(100) ~ 1.0, so score should sit near 100 with no rule penalties.
	if res.FraudScore < 99 {
		t.Errorf("expected fraud_score near 100, got %v", res.FraudScore)
	}
}

func TestLoadLatestModel_MissingDir_ReturnsNilNil(t *testing.T) {
	artifact, err := fraud.LoadLatestModel(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if artifact != nil {
		t.Error("expected nil artifact for a missing directory")
	}
}

func TestLoadLatestModel_PicksLexicographicallyLatestFile(t *testing.T) {
	dir := t.TempDir()
	older := fraud.LinearArtifact{VersionTag: "v1", Intercept: 1, Weights: map[string]float64{}}
	newer := fraud.LinearArtifact{VersionTag: "v2", Intercept: 2, Weights: map[string]float64{}}
	writeModel(t, dir, "2026-01-01.json", older)
	writeModel(t, dir, "2026-02-01.json", newer)

	artifact, err := fraud.LoadLatestModel(dir)
	if err != nil {
		t.Fatal(err)
	}
	if artifact == nil {
		t.Fatal("expected a loaded artifact")
	}
	if artifact.VersionTag != "v2" {
		t.Errorf("expected the lexicographically latest file (v2), got %v", artifact.VersionTag)
	}
}

func writeModel(t *testing.T, dir, name string, artifact fraud.LinearArtifact) {
	t.Helper()
	data, err := json.Marshal(artifact)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadLatestModel_NoVersionTag_UsesFilenameStem(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, "2026-03-01.json", fraud.LinearArtifact{Intercept: 1, Weights: map[string]float64{}})

	artifact, err := fraud.LoadLatestModel(dir)
	if err != nil {
		t.Fatal(err)
	}
	if artifact == nil {
		t.Fatal("expected a loaded artifact")
	}
	if artifact.VersionTag != "2026-03-01" {
		t.Errorf("expected the filename stem as the version, got %q", artifact.VersionTag)
	}
}
