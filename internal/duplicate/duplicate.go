// Package duplicate detects reused evidence photos across an applicant's
// case history using a perceptual hash and Hamming distance. No example in
// the retrieval pack ships an image-hashing library, so the hash itself is
// hand-rolled on Go's standard image decoders (see DESIGN.md) — the
// well-known "reduce, DCT-free average hash" variant of pHash.
package duplicate

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math/bits"

	"vidya/risk-engine/internal/config"
	"vidya/risk-engine/internal/domain"
	"vidya/risk-engine/internal/state"
)

const hashSize = 8 // 8x8 -> 64-bit hash

// Detector compares an incoming image's perceptual hash against an
// applicant's prior submissions.
type Detector struct {
	cfg   config.DuplicateConfig
	state *state.Store
}

// New builds a Detector backed by the given state store.
func New(cfg config.DuplicateConfig, st *state.Store) *Detector {
	return &Detector{cfg: cfg, state: st}
}

// Hash computes the 64-bit perceptual hash of the given image bytes.
func Hash(data []byte) (uint64, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	return perceptualHash(img), nil
}

// HammingDistance returns the number of differing bits between two hashes.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Evaluate hashes an evidence item, compares it against the applicant's
// prior hash history, and unconditionally records the new hash — matching
// the Python service's record-after-compare behaviour, since every
// submission (duplicate or not) grows the comparison baseline.
func (d *Detector) Evaluate(applicantID, caseID, evidenceID string, data []byte) (domain.DuplicateResult, error) {
	hash, err := Hash(data)
	if err != nil {
		return domain.DuplicateResult{EvidenceID: evidenceID}, err
	}

	history := d.state.ListHashes(applicantID)

	result := domain.DuplicateResult{EvidenceID: evidenceID, HashDistance: hashSize * hashSize}
	compared := 0
	for id, rec := range history {
		// The same evidence_id already recorded for this case is not its own duplicate.
		if id == evidenceID && rec.CaseID == caseID {
			continue
		}
		compared++
		dist := HammingDistance(hash, rec.Hash)
		if dist < result.HashDistance {
			result.HashDistance = dist
			result.ReferenceCaseID = rec.CaseID
		}
	}
	if result.HashDistance <= d.cfg.HashDistanceThreshold && compared > 0 {
		result.DuplicateFound = true
		result.PenaltyPoints = d.cfg.DuplicatePenaltyPoints
	} else {
		result.HashDistance = 0
	}

	if err := d.state.RecordHash(applicantID, evidenceID, hash, caseID); err != nil {
		return result, err
	}
	return result, nil
}

// perceptualHash reduces the image to an 8x8 grayscale grid, compares each
// cell to the grid's mean, and packs the comparisons into a 64-bit hash.
func perceptualHash(img image.Image) uint64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	var gray [hashSize][hashSize]float64
	for gy := 0; gy < hashSize; gy++ {
		for gx := 0; gx < hashSize; gx++ {
			x0 := b.Min.X + gx*w/hashSize
			y0 := b.Min.Y + gy*h/hashSize
			x1 := b.Min.X + (gx+1)*w/hashSize
			y1 := b.Min.Y + (gy+1)*h/hashSize
			if x1 <= x0 {
				x1 = x0 + 1
			}
			if y1 <= y0 {
				y1 = y0 + 1
			}
			gray[gy][gx] = averageLuminance(img, x0, y0, x1, y1)
		}
	}

	mean := 0.0
	for _, row := range gray {
		for _, v := range row {
			mean += v
		}
	}
	mean /= float64(hashSize * hashSize)

	var hash uint64
	bit := uint(0)
	for gy := 0; gy < hashSize; gy++ {
		for gx := 0; gx < hashSize; gx++ {
			if gray[gy][gx] >= mean {
				hash |= 1 << bit
			}
			bit++
		}
	}
	return hash
}

func averageLuminance(img image.Image, x0, y0, x1, y1 int) float64 {
	sum := 0.0
	count := 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			sum += 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bl>>8)
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
