// Package config loads the VIDYA risk engine's runtime configuration:
// aggregation weights, routing thresholds, and each analyzer's tunable
// sub-config. Values come from a JSON file (path overridable by the
// VIDYA_CONFIG_FILE environment variable) layered under env-var overrides,
// the way the broader example pack's services load config with viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// WeightConfig holds the five per-component weights used by RiskAggregator.
type WeightConfig struct {
	ImageQualityWeight float64 `mapstructure:"image_quality_weight" json:"image_quality_weight"`
	AssetMatchWeight   float64 `mapstructure:"asset_match_weight" json:"asset_match_weight"`
	OCRMatchWeight     float64 `mapstructure:"ocr_match_weight" json:"ocr_match_weight"`
	DuplicateWeight    float64 `mapstructure:"duplicate_weight" json:"duplicate_weight"`
	FraudScoreWeight   float64 `mapstructure:"fraud_score_weight" json:"fraud_score_weight"`
}

// Total returns the sum of weights, or 1.0 if all weights are zero (keeps
// the aggregator's division well-defined per spec §4.8).
func (w WeightConfig) Total() float64 {
	sum := w.ImageQualityWeight + w.AssetMatchWeight + w.OCRMatchWeight + w.DuplicateWeight + w.FraudScoreWeight
	if sum == 0 {
		return 1.0
	}
	return sum
}

// AsMap returns the weights keyed by their JSON field names, for the
// GET /config/weights response.
func (w WeightConfig) AsMap() map[string]float64 {
	return map[string]float64{
		"image_quality_weight": w.ImageQualityWeight,
		"asset_match_weight":   w.AssetMatchWeight,
		"ocr_match_weight":     w.OCRMatchWeight,
		"duplicate_weight":     w.DuplicateWeight,
		"fraud_score_weight":   w.FraudScoreWeight,
	}
}

// Validate enforces the non-negative / sum>0 contract from spec §6.
func (w WeightConfig) Validate() error {
	for name, v := range w.AsMap() {
		if v < 0 {
			return fmt.Errorf("weight %q must be non-negative, got %v", name, v)
		}
	}
	sum := w.ImageQualityWeight + w.AssetMatchWeight + w.OCRMatchWeight + w.DuplicateWeight + w.FraudScoreWeight
	if sum <= 0 {
		return fmt.Errorf("weights must sum to more than zero")
	}
	return nil
}

// WeightConfigFromMap builds a WeightConfig from the PATCH /config/weights
// payload, defaulting any field the caller omitted to its current value.
func WeightConfigFromMap(base WeightConfig, m map[string]float64) WeightConfig {
	out := base
	if v, ok := m["image_quality_weight"]; ok {
		out.ImageQualityWeight = v
	}
	if v, ok := m["asset_match_weight"]; ok {
		out.AssetMatchWeight = v
	}
	if v, ok := m["ocr_match_weight"]; ok {
		out.OCRMatchWeight = v
	}
	if v, ok := m["duplicate_weight"]; ok {
		out.DuplicateWeight = v
	}
	if v, ok := m["fraud_score_weight"]; ok {
		out.FraudScoreWeight = v
	}
	return out
}

// ThresholdConfig holds the routing thresholds for risk tiers.
type ThresholdConfig struct {
	AutoApproveThreshold   int `mapstructure:"auto_approve_threshold" json:"auto_approve_threshold"`
	OfficerReviewThreshold int `mapstructure:"officer_review_threshold" json:"officer_review_threshold"`
}

// QualityConfig tunes QualityAnalyzer.
type QualityConfig struct {
	BlurVarianceThreshold       float64 `mapstructure:"blur_variance_threshold"`
	BrightnessDarkThreshold     float64 `mapstructure:"brightness_dark_threshold"`
	BrightnessBrightThreshold   float64 `mapstructure:"brightness_bright_threshold"`
	ContrastThreshold           float64 `mapstructure:"contrast_threshold"`
	MinWidth                    int     `mapstructure:"min_width"`
	MinHeight                   int     `mapstructure:"min_height"`
	OfficerReviewQualityThreshold float64 `mapstructure:"officer_review_quality_threshold"`
}

// DetectionConfig tunes ObjectDetector.
type DetectionConfig struct {
	ConfidenceThreshold float64             `mapstructure:"confidence_threshold"`
	IOUThreshold        float64             `mapstructure:"iou_threshold"`
	AssetSynonyms       map[string][]string `mapstructure:"asset_synonyms"`
}

// OCRConfig tunes OCRProcessor.
type OCRConfig struct {
	ProviderConfidenceThreshold float64 `mapstructure:"provider_confidence_threshold"`
	AmountTolerancePct          float64 `mapstructure:"amount_tolerance_pct"`
	DateToleranceDays           int     `mapstructure:"date_tolerance_days"`
	VendorPenalty               float64 `mapstructure:"vendor_penalty"`
	AmountPenalty                float64 `mapstructure:"amount_penalty"`
	DatePenalty                  float64 `mapstructure:"date_penalty"`
	LowConfidencePenalty          float64 `mapstructure:"low_confidence_penalty"`
}

// MaxPenalty is the denominator used to normalize match_score (spec §4.3).
func (c OCRConfig) MaxPenalty() float64 {
	return c.VendorPenalty + c.AmountPenalty + c.DatePenalty + c.LowConfidencePenalty
}

// DuplicateConfig tunes DuplicateDetector.
type DuplicateConfig struct {
	HashDistanceThreshold int     `mapstructure:"hash_distance_threshold"`
	DuplicatePenaltyPoints float64 `mapstructure:"duplicate_penalty_points"`
}

// FraudRuleConfig tunes FraudScorer's rule-penalty layer.
type FraudRuleConfig struct {
	GPSThresholdKM    float64 `mapstructure:"gps_threshold_km"`
	GPSPenalty        float64 `mapstructure:"gps_penalty"`
	OffHoursStart     int     `mapstructure:"off_hours_start"`
	OffHoursEnd       int     `mapstructure:"off_hours_end"`
	OffHoursPenalty   float64 `mapstructure:"off_hours_penalty"`
	DeviceCasesLimit  int     `mapstructure:"device_cases_limit"`
	DevicePenalty     float64 `mapstructure:"device_penalty"`
	HistoryPenalty    float64 `mapstructure:"history_penalty"`
	DeviceWindowDays  int     `mapstructure:"device_window_days"`
}

// Config bundles every sub-config plus file-system locations.
type Config struct {
	Weights            WeightConfig    `mapstructure:"weights"`
	Thresholds         ThresholdConfig `mapstructure:"thresholds"`
	Quality            QualityConfig   `mapstructure:"quality"`
	Detection          DetectionConfig `mapstructure:"detection"`
	OCR                OCRConfig       `mapstructure:"ocr"`
	Duplicates         DuplicateConfig `mapstructure:"duplicates"`
	FraudRules         FraudRuleConfig `mapstructure:"fraud_rules"`

	StateFilePath    string `mapstructure:"state_file_path"`
	ModelRegistryPath string `mapstructure:"model_registry_path"`
	OCRCredentialsPath string `mapstructure:"ocr_credentials_path"`
	OCRAPIKey         string `mapstructure:"ocr_api_key"`
	DetectionModelPath string `mapstructure:"detection_model_path"`
}

// Defaults returns the spec's documented default configuration (spec §4.*).
func Defaults() Config {
	return Config{
		Weights: WeightConfig{
			ImageQualityWeight: 0.15,
			AssetMatchWeight:   0.20,
			OCRMatchWeight:     0.20,
			DuplicateWeight:    0.10,
			FraudScoreWeight:   0.25,
		},
		Thresholds: ThresholdConfig{
			AutoApproveThreshold:   65,
			OfficerReviewThreshold: 85,
		},
		Quality: QualityConfig{
			BlurVarianceThreshold:         100.0,
			BrightnessDarkThreshold:       60.0,
			BrightnessBrightThreshold:     220.0,
			ContrastThreshold:             20.0,
			MinWidth:                      600,
			MinHeight:                     400,
			OfficerReviewQualityThreshold: 0.8,
		},
		Detection: DetectionConfig{
			ConfidenceThreshold: 0.45,
			IOUThreshold:        0.4,
			AssetSynonyms:       map[string][]string{},
		},
		OCR: OCRConfig{
			ProviderConfidenceThreshold: 0.7,
			AmountTolerancePct:          0.25,
			DateToleranceDays:           30,
			VendorPenalty:               10.0,
			AmountPenalty:               15.0,
			DatePenalty:                 10.0,
			LowConfidencePenalty:        5.0,
		},
		Duplicates: DuplicateConfig{
			HashDistanceThreshold:  5,
			DuplicatePenaltyPoints: 15.0,
		},
		FraudRules: FraudRuleConfig{
			GPSThresholdKM:   25.0,
			GPSPenalty:       15.0,
			OffHoursStart:    7,
			OffHoursEnd:      20,
			OffHoursPenalty:  5.0,
			DeviceCasesLimit: 2,
			DevicePenalty:    10.0,
			HistoryPenalty:   10.0,
			DeviceWindowDays: 7,
		},
		StateFilePath:      "data/state.json",
		ModelRegistryPath:  "data/models",
		DetectionModelPath: "",
	}
}

// Load reads the JSON config file named by path (falling back to defaults
// if the file doesn't exist) and layers VIDYA_-prefixed environment
// variables on top, the way the pack's viper-based services do.
func Load(path string) (Config, error) {
	cfg := Defaults()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("VIDYA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindDefaults(v, cfg); err != nil {
		return cfg, err
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !isNotExist(err) {
				return cfg, fmt.Errorf("config: reading %s: %w", path, err)
			}
		}
		// Missing file is not fatal: the documented defaults apply (spec §7:
		// configuration errors are only fatal when the file is malformed,
		// never when it is simply absent).
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Weights.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

func isNotExist(err error) bool {
	return strings.Contains(err.Error(), "no such file") || strings.Contains(err.Error(), "cannot find the file")
}

// bindDefaults seeds viper with the zero-config defaults so that a partial
// (or absent) JSON file still yields a fully populated Config after merge.
func bindDefaults(v *viper.Viper, cfg Config) error {
	v.SetDefault("weights.image_quality_weight", cfg.Weights.ImageQualityWeight)
	v.SetDefault("weights.asset_match_weight", cfg.Weights.AssetMatchWeight)
	v.SetDefault("weights.ocr_match_weight", cfg.Weights.OCRMatchWeight)
	v.SetDefault("weights.duplicate_weight", cfg.Weights.DuplicateWeight)
	v.SetDefault("weights.fraud_score_weight", cfg.Weights.FraudScoreWeight)

	v.SetDefault("thresholds.auto_approve_threshold", cfg.Thresholds.AutoApproveThreshold)
	v.SetDefault("thresholds.officer_review_threshold", cfg.Thresholds.OfficerReviewThreshold)

	v.SetDefault("quality.blur_variance_threshold", cfg.Quality.BlurVarianceThreshold)
	v.SetDefault("quality.brightness_dark_threshold", cfg.Quality.BrightnessDarkThreshold)
	v.SetDefault("quality.brightness_bright_threshold", cfg.Quality.BrightnessBrightThreshold)
	v.SetDefault("quality.contrast_threshold", cfg.Quality.ContrastThreshold)
	v.SetDefault("quality.min_width", cfg.Quality.MinWidth)
	v.SetDefault("quality.min_height", cfg.Quality.MinHeight)
	v.SetDefault("quality.officer_review_quality_threshold", cfg.Quality.OfficerReviewQualityThreshold)

	v.SetDefault("detection.confidence_threshold", cfg.Detection.ConfidenceThreshold)
	v.SetDefault("detection.iou_threshold", cfg.Detection.IOUThreshold)
	v.SetDefault("detection.asset_synonyms", cfg.Detection.AssetSynonyms)

	v.SetDefault("ocr.provider_confidence_threshold", cfg.OCR.ProviderConfidenceThreshold)
	v.SetDefault("ocr.amount_tolerance_pct", cfg.OCR.AmountTolerancePct)
	v.SetDefault("ocr.date_tolerance_days", cfg.OCR.DateToleranceDays)
	v.SetDefault("ocr.vendor_penalty", cfg.OCR.VendorPenalty)
	v.SetDefault("ocr.amount_penalty", cfg.OCR.AmountPenalty)
	v.SetDefault("ocr.date_penalty", cfg.OCR.DatePenalty)
	v.SetDefault("ocr.low_confidence_penalty", cfg.OCR.LowConfidencePenalty)

	v.SetDefault("duplicates.hash_distance_threshold", cfg.Duplicates.HashDistanceThreshold)
	v.SetDefault("duplicates.duplicate_penalty_points", cfg.Duplicates.DuplicatePenaltyPoints)

	v.SetDefault("fraud_rules.gps_threshold_km", cfg.FraudRules.GPSThresholdKM)
	v.SetDefault("fraud_rules.gps_penalty", cfg.FraudRules.GPSPenalty)
	v.SetDefault("fraud_rules.off_hours_start", cfg.FraudRules.OffHoursStart)
	v.SetDefault("fraud_rules.off_hours_end", cfg.FraudRules.OffHoursEnd)
	v.SetDefault("fraud_rules.off_hours_penalty", cfg.FraudRules.OffHoursPenalty)
	v.SetDefault("fraud_rules.device_cases_limit", cfg.FraudRules.DeviceCasesLimit)
	v.SetDefault("fraud_rules.device_penalty", cfg.FraudRules.DevicePenalty)
	v.SetDefault("fraud_rules.history_penalty", cfg.FraudRules.HistoryPenalty)
	v.SetDefault("fraud_rules.device_window_days", cfg.FraudRules.DeviceWindowDays)

	v.SetDefault("state_file_path", cfg.StateFilePath)
	v.SetDefault("model_registry_path", cfg.ModelRegistryPath)
	v.SetDefault("ocr_credentials_path", cfg.OCRCredentialsPath)
	v.SetDefault("ocr_api_key", cfg.OCRAPIKey)
	v.SetDefault("detection_model_path", cfg.DetectionModelPath)
	return nil
}
