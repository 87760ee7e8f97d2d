// Package aggregator fuses the five per-component scores (image quality,
// asset match, OCR match, duplicate check, fraud model) into the final
// risk score, tier, and routing decision, with weights that can be
// hot-swapped at runtime without restarting the service.
package aggregator

import (
	"math"
	"sync/atomic"

	"vidya/risk-engine/internal/config"
	"vidya/risk-engine/internal/domain"
)

// Components holds the five 0..100-scale (or 0..1, normalized internally)
// component scores that feed the weighted sum.
type Components struct {
	ImageQualityScore float64 // 0..1, higher is better
	AssetMatchScore   float64 // 0..1
	OCRRisk           float64 // 0..100+ points, mean of per-document penalty sums, higher is worse
	DuplicatePenalty  float64 // 0..100 points lost to duplicates
	FraudScore        float64 // 0..100, higher is worse
}

// Aggregator combines component scores into a final risk score using
// hot-swappable weights.
type Aggregator struct {
	weights    atomic.Pointer[config.WeightConfig]
	thresholds config.ThresholdConfig
}

// New builds an Aggregator with the given initial weights and thresholds.
func New(weights config.WeightConfig, thresholds config.ThresholdConfig) *Aggregator {
	a := &Aggregator{thresholds: thresholds}
	a.weights.Store(&weights)
	return a
}

// SetWeights atomically replaces the aggregator's weights, picked up by the
// very next Aggregate call — no lock required on the read path.
func (a *Aggregator) SetWeights(weights config.WeightConfig) {
	a.weights.Store(&weights)
}

// Weights returns the currently active weights.
func (a *Aggregator) Weights() config.WeightConfig {
	return *a.weights.Load()
}

// Aggregate combines the five components into a final 0..100 risk score,
// risk tier, and routing decision. Each component is normalized to a 0..100
// "risk" contribution before weighting, so higher weighted sums always mean
// higher risk.
func (a *Aggregator) Aggregate(c Components) (finalScore float64, tier string, routing string) {
	w := a.Weights()

	imageRisk := (1 - c.ImageQualityScore) * 100
	assetRisk := (1 - c.AssetMatchScore) * 100
	ocrRisk := clamp(c.OCRRisk, 0, 100)
	duplicateRisk := clamp(c.DuplicatePenalty, 0, 100)
	fraudRisk := clamp(c.FraudScore, 0, 100)

	weighted := imageRisk*w.ImageQualityWeight +
		assetRisk*w.AssetMatchWeight +
		ocrRisk*w.OCRMatchWeight +
		duplicateRisk*w.DuplicateWeight +
		fraudRisk*w.FraudScoreWeight

	finalScore = round2(weighted / w.Total())
	tier = a.riskTier(finalScore)
	routing = routingForTier(tier)
	return finalScore, tier, routing
}

func (a *Aggregator) riskTier(score float64) string {
	switch {
	case score <= float64(a.thresholds.AutoApproveThreshold):
		return domain.TierAutoApprove
	case score <= float64(a.thresholds.OfficerReviewThreshold):
		return domain.TierOfficerReview
	default:
		return domain.TierVideoVerify
	}
}

func routingForTier(tier string) string {
	switch tier {
	case domain.TierAutoApprove:
		return domain.RoutingAutoApprove
	case domain.TierOfficerReview:
		return domain.RoutingOfficerReview
	default:
		return domain.RoutingVideoVerificationReq
	}
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

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
