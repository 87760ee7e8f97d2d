package quality_test

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"vidya/risk-engine/internal/config"
	"vidya/risk-engine/internal/domain"
	"vidya/risk-engine/internal/quality"
)

type fakeDecoder struct {
	img image.Image
	err error
}

func (f fakeDecoder) Decode(data []byte) (image.Image, error) {
	return f.img, f.err
}

func checkerboard(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}
	return img
}

func solidColor(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestAnalyze_DecodeFailure_ReturnsFallback(t *testing.T) {
	a := quality.NewWithDecoder(config.Defaults().Quality, fakeDecoder{err: errors.New("bad format")})
	res := a.Analyze("img-1", []byte("not an image"))

	if res.QualityScore != 0.5 {
		t.Errorf("expected fallback quality_score=0.5, got %v", res.QualityScore)
	}
	if !res.OfficerReviewFlag {
		t.Error("expected officer_review_flag=true on decode failure")
	}
	found := false
	for _, f := range res.Flags {
		if f == domain.FlagDecoderMissing {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %q flag, got %v", domain.FlagDecoderMissing, res.Flags)
	}
}

func TestAnalyze_SmallSolidGrayImage_FlagsBlurryAndLowResolution(t *testing.T) {
	cfg := config.Defaults().Quality
	img := solidColor(10, 10, color.Gray{Y: 128})
	a := quality.NewWithDecoder(cfg, fakeDecoder{img: img})

	res := a.Analyze("img-2", nil)
	if res.BlurVariance != 0 {
		t.Errorf("expected zero variance on a flat image, got %v", res.BlurVariance)
	}
	if res.ResolutionOK {
		t.Error("expected resolution check to fail for a 10x10 image")
	}
	hasBlurry, hasLowRes := false, false
	for _, f := range res.Flags {
		if f == domain.FlagBlurry {
			hasBlurry = true
		}
		if f == domain.FlagLowResolution {
			hasLowRes = true
		}
	}
	if !hasBlurry {
		t.Error("expected blurry flag on a flat image")
	}
	if !hasLowRes {
		t.Error("expected low_resolution flag on a 10x10 image")
	}
}

func TestAnalyze_TooDarkImage_FlagsTooDark(t *testing.T) {
	cfg := config.Defaults().Quality
	img := solidColor(700, 500, color.Gray{Y: 5})
	a := quality.NewWithDecoder(cfg, fakeDecoder{img: img})

	res := a.Analyze("img-3", nil)
	found := false
	for _, f := range res.Flags {
		if f == domain.FlagTooDark {
			found = true
		}
	}
	if !found {
		t.Errorf("expected too_dark flag, got %v", res.Flags)
	}
}

func TestAnalyze_TooBrightImage_FlagsTooBright(t *testing.T) {
	cfg := config.Defaults().Quality
	img := solidColor(700, 500, color.Gray{Y: 250})
	a := quality.NewWithDecoder(cfg, fakeDecoder{img: img})

	res := a.Analyze("img-4", nil)
	found := false
	for _, f := range res.Flags {
		if f == domain.FlagTooBright {
			found = true
		}
	}
	if !found {
		t.Errorf("expected too_bright flag, got %v", res.Flags)
	}
}

func TestAnalyze_SharpCheckerboard_HigherQualityThanFlatImage(t *testing.T) {
	cfg := config.Defaults().Quality
	sharp := quality.NewWithDecoder(cfg, fakeDecoder{img: checkerboard(700, 500)}).Analyze("sharp", nil)
	flat := quality.NewWithDecoder(cfg, fakeDecoder{img: solidColor(700, 500, color.Gray{Y: 128})}).Analyze("flat", nil)

	if sharp.BlurVariance <= flat.BlurVariance {
		t.Errorf("expected checkerboard variance (%v) > flat variance (%v)", sharp.BlurVariance, flat.BlurVariance)
	}
}
