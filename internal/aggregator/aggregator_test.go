package aggregator_test

import (
	"testing"

	"vidya/risk-engine/internal/aggregator"
	"vidya/risk-engine/internal/config"
	"vidya/risk-engine/internal/domain"
)

func TestAggregate_AllPerfectComponents_ZeroScoreAutoApprove(t *testing.T) {
	cfg := config.Defaults()
	a := aggregator.New(cfg.Weights, cfg.Thresholds)

	score, tier, routing := a.Aggregate(aggregator.Components{
		ImageQualityScore: 1, AssetMatchScore: 1, OCRRisk: 0, DuplicatePenalty: 0, FraudScore: 0,
	})
	if score != 0 {
		t.Errorf("expected score=0, got %v", score)
	}
	if tier != domain.TierAutoApprove {
		t.Errorf("expected auto-approve tier, got %v", tier)
	}
	if routing != domain.RoutingAutoApprove {
		t.Errorf("expected auto-approve routing, got %v", routing)
	}
}

func TestAggregate_AllWorstComponents_HundredScoreVideoVerify(t *testing.T) {
	cfg := config.Defaults()
	a := aggregator.New(cfg.Weights, cfg.Thresholds)

	score, tier, _ := a.Aggregate(aggregator.Components{
		ImageQualityScore: 0, AssetMatchScore: 0, OCRRisk: 100, DuplicatePenalty: 100, FraudScore: 100,
	})
	if score != 100 {
		t.Errorf("expected score=100, got %v", score)
	}
	if tier != domain.TierVideoVerify {
		t.Errorf("expected video-verify tier, got %v", tier)
	}
}

func TestAggregate_MidRangeComponents_OfficerReviewTier(t *testing.T) {
	cfg := config.Defaults()
	a := aggregator.New(cfg.Weights, cfg.Thresholds)

	// (100*0.15 + 100*0.20 + 80*0.20 + 50*0.10 + 80*0.25) / 0.90 = 84.44
	score, tier, routing := a.Aggregate(aggregator.Components{
		ImageQualityScore: 0, AssetMatchScore: 0, OCRRisk: 80, DuplicatePenalty: 50, FraudScore: 80,
	})
	if score != 84.44 {
		t.Errorf("expected score=84.44, got %v", score)
	}
	if tier != domain.TierOfficerReview {
		t.Errorf("expected officer-review tier at score=%v, got %v", score, tier)
	}
	if routing != domain.RoutingOfficerReview {
		t.Errorf("expected officer-review routing, got %v", routing)
	}
}

func TestAggregate_FraudOnlyWeights_ScoreEqualsFraudComponent(t *testing.T) {
	cfg := config.Defaults()
	a := aggregator.New(cfg.Weights, cfg.Thresholds)
	a.SetWeights(config.WeightConfig{FraudScoreWeight: 1.0})

	score, _, _ := a.Aggregate(aggregator.Components{
		ImageQualityScore: 0, AssetMatchScore: 0, OCRRisk: 90, DuplicatePenalty: 90, FraudScore: 37.5,
	})
	if score != 37.5 {
		t.Errorf("expected the final score to equal the fraud component exactly, got %v", score)
	}
}

func TestSetWeights_TakesEffectImmediately(t *testing.T) {
	cfg := config.Defaults()
	a := aggregator.New(cfg.Weights, cfg.Thresholds)

	before, _, _ := a.Aggregate(aggregator.Components{
		ImageQualityScore: 0, AssetMatchScore: 1, OCRRisk: 0, DuplicatePenalty: 0, FraudScore: 0,
	})

	newWeights := cfg.Weights
	newWeights.ImageQualityWeight = 10
	a.SetWeights(newWeights)

	after, _, _ := a.Aggregate(aggregator.Components{
		ImageQualityScore: 0, AssetMatchScore: 1, OCRRisk: 0, DuplicatePenalty: 0, FraudScore: 0,
	})
	if after <= before {
		t.Errorf("expected heavier image-quality weight to raise the score further, got before=%v after=%v", before, after)
	}
}

func TestWeights_ReturnsCurrentlyActiveWeights(t *testing.T) {
	cfg := config.Defaults()
	a := aggregator.New(cfg.Weights, cfg.Thresholds)

	updated := cfg.Weights
	updated.FraudScoreWeight = 0.99
	a.SetWeights(updated)

	if a.Weights().FraudScoreWeight != 0.99 {
		t.Errorf("expected updated fraud_score_weight to be reflected, got %v", a.Weights().FraudScoreWeight)
	}
}
