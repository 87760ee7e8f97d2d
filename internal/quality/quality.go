// Package quality implements image-quality analysis: blur detection via
// Laplacian variance, brightness/contrast checks, and minimum-resolution
// enforcement. No example in the retrieval pack ships an image-processing
// or computer-vision dependency, so the analysis is hand-rolled on Go's
// standard image/jpeg/png decoders (see DESIGN.md).
package quality

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"vidya/risk-engine/internal/config"
	"vidya/risk-engine/internal/domain"
)

// Decoder turns raw image bytes into a decoded image. It exists so tests
// can substitute a fake for inputs the stdlib codecs can't read, and so a
// future binary-format decoder can be swapped in without touching Analyzer.
type Decoder interface {
	Decode(data []byte) (image.Image, error)
}

// stdDecoder decodes JPEG/PNG via the standard library.
type stdDecoder struct{}

func (stdDecoder) Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// Analyzer scores image quality against the thresholds in config.QualityConfig.
type Analyzer struct {
	cfg     config.QualityConfig
	decoder Decoder
}

// New builds an Analyzer using the standard library image decoder.
func New(cfg config.QualityConfig) *Analyzer {
	return &Analyzer{cfg: cfg, decoder: stdDecoder{}}
}

// NewWithDecoder builds an Analyzer with a custom Decoder, for testing or to
// plug in a decoder for formats the standard library doesn't cover.
func NewWithDecoder(cfg config.QualityConfig, d Decoder) *Analyzer {
	return &Analyzer{cfg: cfg, decoder: d}
}

// Analyze scores a single image's quality. A decode failure degrades to the
// fixed fallback result (quality_score=0.5, officer_review_flag=true)
// instead of failing the whole case, matching the Python service's
// opencv_missing behaviour when cv2 isn't available.
func (a *Analyzer) Analyze(imageID string, data []byte) domain.ImageQualityResult {
	img, err := a.decoder.Decode(data)
	if err != nil {
		return domain.ImageQualityResult{
			ImageID:           imageID,
			QualityScore:      0.5,
			Flags:             []string{domain.FlagDecoderMissing},
			OfficerReviewFlag: true,
			ReasonIfFail:      err.Error(),
		}
	}

	gray := toGrayscale(img)
	w, h := len(gray[0]), len(gray)

	blurVar := laplacianVariance(gray)
	brightness := meanBrightness(gray)
	contrast := stddevBrightness(gray, brightness)
	resolutionOK := w >= a.cfg.MinWidth && h >= a.cfg.MinHeight

	var flags []string
	if blurVar < a.cfg.BlurVarianceThreshold {
		flags = append(flags, domain.FlagBlurry)
	}
	if brightness < a.cfg.BrightnessDarkThreshold {
		flags = append(flags, domain.FlagTooDark)
	}
	if brightness > a.cfg.BrightnessBrightThreshold {
		flags = append(flags, domain.FlagTooBright)
	}
	if contrast < a.cfg.ContrastThreshold {
		flags = append(flags, domain.FlagLowContrast)
	}
	if !resolutionOK {
		flags = append(flags, domain.FlagLowResolution)
	}

	score := qualityScore(blurVar, brightness, contrast, resolutionOK, a.cfg)

	return domain.ImageQualityResult{
		ImageID:           imageID,
		QualityScore:      score,
		BlurVariance:      blurVar,
		Brightness:        brightness,
		Contrast:          contrast,
		ResolutionOK:      resolutionOK,
		Flags:             flags,
		OfficerReviewFlag: score < a.cfg.OfficerReviewQualityThreshold,
	}
}

// qualityScore is the arithmetic mean of the four component scores, each
// computed exactly per spec §4.1's formulas.
func qualityScore(blurVar, brightness, contrast float64, resolutionOK bool, cfg config.QualityConfig) float64 {
	blurComponent := clamp01(blurVar / cfg.BlurVarianceThreshold)
	brightComponent := clamp01(1 - normalizedBrightnessPenalty(brightness, cfg))
	contrastComponent := clamp01(contrast / cfg.ContrastThreshold)
	resComponent := 0.0
	if resolutionOK {
		resComponent = 1.0
	}
	return round2((blurComponent + brightComponent + contrastComponent + resComponent) / 4)
}

// normalizedBrightnessPenalty decays linearly outside the dark/bright band,
// mirroring the Python service's _normalize_brightness.
func normalizedBrightnessPenalty(brightness float64, cfg config.QualityConfig) float64 {
	switch {
	case brightness < cfg.BrightnessDarkThreshold:
		return (cfg.BrightnessDarkThreshold - brightness) / cfg.BrightnessDarkThreshold
	case brightness > cfg.BrightnessBrightThreshold:
		return (brightness - cfg.BrightnessBrightThreshold) / (255 - cfg.BrightnessBrightThreshold)
	default:
		return 0
	}
}

func toGrayscale(img image.Image) [][]float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([][]float64, h)
	for y := 0; y < h; y++ {
		out[y] = make([]float64, w)
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			// RGBA returns 16-bit channels; scale to 8-bit before the
			// standard luminance weighting.
			out[y][x] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bl>>8)
		}
	}
	return out
}

// laplacianVariance applies the discrete Laplacian kernel and returns the
// variance of the response — the standard blur-detection metric.
func laplacianVariance(gray [][]float64) float64 {
	h := len(gray)
	if h < 3 {
		return 0
	}
	w := len(gray[0])
	if w < 3 {
		return 0
	}

	var responses []float64
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			lap := -4*gray[y][x] + gray[y-1][x] + gray[y+1][x] + gray[y][x-1] + gray[y][x+1]
			responses = append(responses, lap)
		}
	}
	if len(responses) == 0 {
		return 0
	}

	mean := 0.0
	for _, r := range responses {
		mean += r
	}
	mean /= float64(len(responses))

	variance := 0.0
	for _, r := range responses {
		d := r - mean
		variance += d * d
	}
	return variance / float64(len(responses))
}

func meanBrightness(gray [][]float64) float64 {
	sum := 0.0
	count := 0
	for _, row := range gray {
		for _, v := range row {
			sum += v
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func stddevBrightness(gray [][]float64, mean float64) float64 {
	sum := 0.0
	count := 0
	for _, row := range gray {
		for _, v := range row {
			d := v - mean
			sum += d * d
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(count))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
