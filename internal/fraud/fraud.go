// Package fraud combines a trained-model probability (when a model
// artifact is present) with fixed rule penalties into a single fraud
// score. No gradient-boosting library exists anywhere in the retrieval
// pack, so Model's production implementation is a JSON-serialized linear
// artifact rather than an XGBoost booster — the nearest idiomatic Go
// stand-in for "a trained classifier that can be hot-swapped from disk"
// (see DESIGN.md). When no artifact is present the scorer runs rules-only,
// mirroring the upstream service's baseline path.
package fraud

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"vidya/risk-engine/internal/config"
	"vidya/risk-engine/internal/domain"
)

// Model predicts a fraud probability in [0,1] from an ordered feature
// vector, plus the per-feature contribution used for FraudScoreResult's
// FeatureImportance.
type Model interface {
	Predict(order []string, features map[string]float64) (prob float64, importance map[string]float64)
	Version() string
}

// LinearArtifact is a JSON-serialized logistic-regression-style model: a
// weight per named feature plus an intercept, passed through a sigmoid.
type LinearArtifact struct {
	VersionTag string             `json:"version"`
	Intercept  float64            `json:"intercept"`
	Weights    map[string]float64 `json:"weights"`
}

// Version returns the artifact's version tag.
func (m *LinearArtifact) Version() string { return m.VersionTag }

// Predict applies the linear model and a logistic squashing function.
func (m *LinearArtifact) Predict(order []string, features map[string]float64) (float64, map[string]float64) {
	z := m.Intercept
	importance := make(map[string]float64, len(order))
	for _, key := range order {
		w := m.Weights[key]
		contribution := w * features[key]
		z += contribution
		importance[key] = contribution
	}
	return sigmoid(z), importance
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// LoadLatestModel loads the lexicographically-greatest *.json file from
// dir as a LinearArtifact — the filename-ordering convention the upstream
// model registry used to pick the newest model without a database.
func LoadLatestModel(dir string) (*LinearArtifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var candidates []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			candidates = append(candidates, e.Name())
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Strings(candidates)
	latest := candidates[len(candidates)-1]

	data, err := os.ReadFile(filepath.Join(dir, latest))
	if err != nil {
		return nil, err
	}
	var artifact LinearArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, err
	}
	if artifact.VersionTag == "" {
		artifact.VersionTag = strings.TrimSuffix(latest, filepath.Ext(latest))
	}
	return &artifact, nil
}

// Scorer combines an optional Model's probability with fixed rule
// penalties computed from the feature vector.
type Scorer struct {
	cfg   config.FraudRuleConfig
	model Model
}

// New builds a Scorer. model may be nil, in which case scoring runs
// rules-only.
func New(cfg config.FraudRuleConfig, model Model) *Scorer {
	return &Scorer{cfg: cfg, model: model}
}

// Score computes the final fraud score: when a model is present,
// prob*100 + penalties, clamped to [0,100]; otherwise penalties alone,
// clamped the same way.
func (s *Scorer) Score(fv domain.FraudFeatureVector) domain.FraudScoreResult {
	penalties := s.rulePenalties(fv.Features)
	penaltyTotal := 0.0
	for _, v := range penalties {
		penaltyTotal += v
	}

	if s.model == nil {
		return domain.FraudScoreResult{
			FraudScore:        clamp(penaltyTotal, 0, 100),
			ModelVersion:      "baseline",
			FeatureImportance: penalties,
			RulePenalties:     penalties,
		}
	}

	prob, importance := s.model.Predict(fv.Order, fv.Features)
	score := clamp(prob*100+penaltyTotal, 0, 100)
	return domain.FraudScoreResult{
		FraudScore:        score,
		ModelVersion:      s.model.Version(),
		FeatureImportance: importance,
		RulePenalties:     penalties,
	}
}

// rulePenalties mirrors the upstream service's fixed rule layer, with the
// same operator choices per rule: GPS and device-reuse use strict '>',
// off-hours uses '>=' since the off-hours flag is already a 0/1 indicator.
func (s *Scorer) rulePenalties(features map[string]float64) map[string]float64 {
	penalties := map[string]float64{}

	if gps, ok := features["gps_deviation_km"]; ok && gps > s.cfg.GPSThresholdKM {
		penalties["gps_deviation"] = s.cfg.GPSPenalty
	}
	if off, ok := features["off_hours_flag"]; ok && off >= 1 {
		penalties["off_hours_submission"] = s.cfg.OffHoursPenalty
	}
	if devCount, ok := features["device_usage_count"]; ok && devCount > float64(s.cfg.DeviceCasesLimit) {
		penalties["device_reuse"] = s.cfg.DevicePenalty
	}
	if features["historical_rejections"]+features["historical_flags"] > 0 {
		penalties["history_flags"] = s.cfg.HistoryPenalty
	}

	return penalties
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
