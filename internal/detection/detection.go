// Package detection implements asset-type matching for submitted images:
// does the photographed object plausibly match the asset type the
// applicant declared. No object-detection or ML-inference dependency
// exists anywhere in the retrieval pack, so the default Model is a
// fallback keyword matcher; the Model interface leaves room for a real
// detector (e.g. an ONNX or TensorFlow-serving client) to be wired in
// later without touching the caller.
package detection

import (
	"strings"

	"vidya/risk-engine/internal/config"
	"vidya/risk-engine/internal/domain"
)

// Model is anything that can inspect image bytes and report detected
// objects with confidence scores. Detector's default Model never actually
// looks at pixels — see fallbackModel below — since the pack carries no
// vision-inference library.
type Model interface {
	Detect(data []byte) ([]domain.Detection, error)
}

// fallbackModel reports no objects and is paired with keyword matching
// against the declared asset type, mirroring the Python service's
// no-YOLO-model-available path.
type fallbackModel struct{}

func (fallbackModel) Detect(data []byte) ([]domain.Detection, error) {
	return nil, nil
}

// Detector scores whether an image's declared asset type is corroborated.
type Detector struct {
	cfg   config.DetectionConfig
	model Model
}

// New builds a Detector using the fallback (no-inference) model.
func New(cfg config.DetectionConfig) *Detector {
	return &Detector{cfg: cfg, model: fallbackModel{}}
}

// NewWithModel builds a Detector backed by a custom Model; a nil Model
// selects the fallback path.
func NewWithModel(cfg config.DetectionConfig, m Model) *Detector {
	if m == nil {
		m = fallbackModel{}
	}
	return &Detector{cfg: cfg, model: m}
}

// Detect runs the configured Model and binarizes the asset-match decision
// (spec §4.2): build a keyword set from the declared asset type plus its
// configured synonyms, then either take the maximum detection confidence
// among detections whose label contains a keyword (model path), or check
// whether any keyword is a substring of the declared asset type text
// (fallback path, when no detector is wired).
func (d *Detector) Detect(imageID, declaredAssetType string, data []byte) domain.ObjectDetectionResult {
	keywords := keywordSet(declaredAssetType, d.cfg.AssetSynonyms)

	objects, err := d.model.Detect(data)
	_, isFallback := d.model.(fallbackModel)
	mode := "model"
	if isFallback || err != nil {
		mode = "fallback"
	}

	matchScore := 0.0
	if mode == "fallback" {
		if keywordSubstringOf(keywords, declaredAssetType) {
			matchScore = 1.0
		}
	} else {
		maxConf := 0.0
		for _, obj := range objects {
			if labelContainsKeyword(keywords, obj.Label) && obj.Confidence > maxConf {
				maxConf = obj.Confidence
			}
		}
		if maxConf >= d.cfg.ConfidenceThreshold {
			matchScore = 1.0
		}
	}

	details := map[string]any{
		"mode":               mode,
		"declared_asset_type": declaredAssetType,
	}
	if err != nil {
		details["error"] = err.Error()
	}

	return domain.ObjectDetectionResult{
		ImageID:         imageID,
		DetectedObjects: objects,
		AssetMatch:      matchScore == 1.0,
		AssetMatchScore: matchScore,
		MatchScore:      matchScore,
		Details:         details,
	}
}

// keywordSet builds the lowercase keyword set for an asset type: the type
// itself plus any configured synonyms.
func keywordSet(assetType string, synonyms map[string][]string) []string {
	set := []string{strings.ToLower(strings.TrimSpace(assetType))}
	for _, syn := range synonyms[assetType] {
		set = append(set, strings.ToLower(strings.TrimSpace(syn)))
	}
	return set
}

// keywordSubstringOf reports whether any keyword appears as a substring of
// text (the fallback path's match test).
func keywordSubstringOf(keywords []string, text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// labelContainsKeyword reports whether a detected label contains any
// keyword (the model path's match test).
func labelContainsKeyword(keywords []string, label string) bool {
	lower := strings.ToLower(label)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
