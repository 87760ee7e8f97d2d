package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"vidya/risk-engine/internal/aggregator"
	"vidya/risk-engine/internal/config"
	"vidya/risk-engine/internal/domain"
	"vidya/risk-engine/internal/pipeline"
)

// Dependencies reports which optional, capability-backed components are
// running their real implementation rather than a fallback (spec §6's
// GET /health contract).
type Dependencies struct {
	ImageDecoder       bool
	DetectionModel     bool
	OCRProvider        bool
	GradientBoostModel bool
}

// Handler holds the dependencies shared across all HTTP handlers.
type Handler struct {
	pipeline   *pipeline.Pipeline
	aggregator *aggregator.Aggregator
	validate   *validator.Validate
	version    string
	deps       Dependencies
}

// NewHandler creates a Handler wired to the given dependencies.
func NewHandler(p *pipeline.Pipeline, agg *aggregator.Aggregator, version string, deps Dependencies) *Handler {
	return &Handler{pipeline: p, aggregator: agg, validate: validator.New(), version: version, deps: deps}
}

// ─── POST /cases/score ─────────────────────────────────────────────────────

// ScoreCase accepts a full evidence package and returns the scored,
// audit-ready verification result synchronously.
func (h *Handler) ScoreCase(w http.ResponseWriter, r *http.Request) {
	var pkg domain.EvidencePackage
	if err := json.NewDecoder(r.Body).Decode(&pkg); err != nil {
		badRequest(w, "INVALID_JSON", "request body must be valid JSON")
		return
	}

	if err := h.validate.Struct(pkg); err != nil {
		badRequest(w, "VALIDATION_ERROR", humanizeValidationError(err))
		return
	}

	resp, err := h.pipeline.ScoreCase(pkg)
	if err != nil {
		internalError(w)
		return
	}

	ok(w, resp)
}

// ─── GET /config/weights ───────────────────────────────────────────────────

// GetWeights returns the aggregator's current component weights.
func (h *Handler) GetWeights(w http.ResponseWriter, r *http.Request) {
	ok(w, h.aggregator.Weights().AsMap())
}

// ─── PATCH /config/weights ─────────────────────────────────────────────────

// UpdateWeights merges the given weights into the current configuration and
// hot-swaps the aggregator's active weights — no restart required.
func (h *Handler) UpdateWeights(w http.ResponseWriter, r *http.Request) {
	var req domain.WeightUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "INVALID_JSON", "request body must be valid JSON")
		return
	}
	if len(req.Weights) == 0 {
		badRequest(w, "MISSING_WEIGHTS", "weights must be a non-empty object")
		return
	}

	updated := config.WeightConfigFromMap(h.aggregator.Weights(), req.Weights)
	if err := updated.Validate(); err != nil {
		badRequest(w, "INVALID_WEIGHTS", err.Error())
		return
	}

	h.aggregator.SetWeights(updated)
	ok(w, updated.AsMap())
}

// ─── GET /health ────────────────────────────────────────────────────────────

// Health reports service liveness and the availability of optional
// dependencies: the image decoder, detection model, OCR provider, and
// gradient-boosting model each report false when running their fallback.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ok(w, domain.HealthResponse{
		Status:  "ok",
		Version: h.version,
		Dependencies: map[string]bool{
			"image_decoder":        h.deps.ImageDecoder,
			"detection_model":      h.deps.DetectionModel,
			"ocr_provider":         h.deps.OCRProvider,
			"gradient_boost_model": h.deps.GradientBoostModel,
		},
	})
}

func humanizeValidationError(err error) string {
	return fmt.Sprintf("validation failed: %v", err)
}
