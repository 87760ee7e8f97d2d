// Command seedgen generates a realistic test dataset of VIDYA evidence
// packages and writes it to data/seed_cases.json.
//
// Usage:
//
//	go run ./cmd/seedgen
//
// The generated dataset spans five scenarios: clean submissions from
// consistent applicants, GPS-mismatched submissions, off-hours submissions,
// device-reuse across multiple applicants, and duplicate-photo resubmission.
package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"vidya/risk-engine/internal/domain"
)

// tinyPNGBase64 is a 1x1 transparent PNG, standing in for a real asset
// photo — good enough to exercise decode + quality + hash paths without
// shipping binary fixtures in the seed file.
const tinyPNGBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNk+A8AAQUBAScY42YAAAAASUVORK5CYII="

func main() {
	rng := rand.New(rand.NewSource(42)) // deterministic seed for reproducibility

	baseTime := time.Now().UTC().Add(-7 * 24 * time.Hour)
	var cases []domain.EvidencePackage

	cases = append(cases, generateCleanApplicants(rng, baseTime)...)
	cases = append(cases, generateGPSMismatches(rng, baseTime)...)
	cases = append(cases, generateOffHoursSubmissions(rng, baseTime)...)
	cases = append(cases, generateDeviceReuse(rng, baseTime)...)
	cases = append(cases, generateDuplicatePhotoResubmissions(rng, baseTime)...)

	rng.Shuffle(len(cases), func(i, j int) {
		cases[i], cases[j] = cases[j], cases[i]
	})

	if err := os.MkdirAll("data", 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "mkdir error: %v\n", err)
		os.Exit(1)
	}

	f, err := os.Create("data/seed_cases.json")
	if err != nil {
		fmt.Fprintf(os.Stderr, "create error: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cases); err != nil {
		fmt.Fprintf(os.Stderr, "encode error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %d cases → data/seed_cases.json\n", len(cases))
}

// applicantProfile describes a recurring, otherwise-legitimate applicant.
type applicantProfile struct {
	applicantID string
	assetType   string
	vendor      string
	amount      float64
	homeLat     float64
	homeLon     float64
}

var profiles = []applicantProfile{
	{"APP-1001", "tractor", "Mahindra Tractors Pvt Ltd", 620000, 28.6139, 77.2090},
	{"APP-1002", "solar panel", "Southern Solar Solutions", 94500, 13.0827, 80.2707},
	{"APP-1003", "construction equipment", "Shree Construction Equipments", 185000, 19.0760, 72.8777},
	{"APP-1004", "tractor", "AgroMax Implements", 410000, 26.9124, 75.7873},
	{"APP-1005", "solar panel", "Bright Future Energy", 112000, 12.9716, 77.5946},
}

// invoiceRegistryByApplicant pairs each of the first three profiles (which
// have a matching sanctioned-loan record) with the mock GST registry's
// invoice number and GSTIN, so seed cases can exercise a real
// VerifyInvoice/VerifySanctionedAsset pass rather than always failing
// verification for lack of a registered invoice.
var invoiceRegistryByApplicant = map[string]struct {
	invoiceNumber string
	gstin         string
}{
	"APP-1001": {"INV-2024-0002", "27AAACT2727Q1ZU"},
	"APP-1002": {"INV-2024-0003", "33AABCS1429B1Z1"},
	"APP-1003": {"INV-2024-0001", "29AAAPL1234C1ZV"},
}

func baseMetadata(p applicantProfile, caseID string, at time.Time) domain.Metadata {
	amount := p.amount
	meta := domain.Metadata{
		CaseID:             caseID,
		ApplicantID:        p.applicantID,
		DeclaredLoanAmount: amount,
		DeclaredAssetType:  p.assetType,
		DeclaredVendor:     p.vendor,
		DeclaredInvoiceAmount: &amount,
		DeclaredAssetLocation: &domain.GPSCoordinate{Lat: p.homeLat, Lon: p.homeLon},
		SubmissionLocation:    &domain.GPSCoordinate{Lat: p.homeLat, Lon: p.homeLon},
		SubmissionDeviceID:    fmt.Sprintf("dev-%s", p.applicantID),
		SubmissionTimestamp:   at,
		ApplicantHistory:      domain.ApplicantHistory{SubmittedCases: 1},
	}
	if reg, ok := invoiceRegistryByApplicant[p.applicantID]; ok {
		meta.CustomMetadata = map[string]any{
			"invoice_number": reg.invoiceNumber,
			"gstin":          reg.gstin,
		}
	}
	return meta
}

func sampleAssetImage(id, assetType string) domain.EvidenceImage {
	return domain.EvidenceImage{ID: id, Base64Data: tinyPNGBase64, DeclaredAssetType: assetType}
}

// ─── Clean applicants (~10 cases) ───────────────────────────────────────────

func generateCleanApplicants(rng *rand.Rand, base time.Time) []domain.EvidencePackage {
	var out []domain.EvidencePackage
	for i, p := range profiles {
		for n := 0; n < 2; n++ {
			at := base.Add(time.Duration(i*24+n*6) * time.Hour).Add(10 * time.Hour)
			caseID := fmt.Sprintf("case-clean-%d-%d", i, n)
			out = append(out, domain.EvidencePackage{
				CaseID:      caseID,
				AssetImages: []domain.EvidenceImage{sampleAssetImage(fmt.Sprintf("%s-img-1", caseID), p.assetType)},
				Metadata:    baseMetadata(p, caseID, at),
			})
		}
	}
	return out
}

// ─── GPS mismatches (~5 cases) ──────────────────────────────────────────────

func generateGPSMismatches(rng *rand.Rand, base time.Time) []domain.EvidencePackage {
	var out []domain.EvidencePackage
	for i, p := range profiles {
		caseID := fmt.Sprintf("case-gps-%d", i)
		meta := baseMetadata(p, caseID, base.Add(time.Duration(i)*24*time.Hour).Add(11*time.Hour))
		// Submission location drifts several hundred km from the declared
		// asset location — far outside the tolerance band.
		meta.SubmissionLocation = &domain.GPSCoordinate{Lat: p.homeLat + 5.0, Lon: p.homeLon + 5.0}
		out = append(out, domain.EvidencePackage{
			CaseID:      caseID,
			AssetImages: []domain.EvidenceImage{sampleAssetImage(fmt.Sprintf("%s-img-1", caseID), p.assetType)},
			Metadata:    meta,
		})
	}
	return out
}

// ─── Off-hours submissions (~5 cases) ───────────────────────────────────────

func generateOffHoursSubmissions(rng *rand.Rand, base time.Time) []domain.EvidencePackage {
	var out []domain.EvidencePackage
	for i, p := range profiles {
		caseID := fmt.Sprintf("case-offhours-%d", i)
		at := time.Date(base.Year(), base.Month(), base.Day()+i, 3, 15, 0, 0, time.UTC)
		out = append(out, domain.EvidencePackage{
			CaseID:      caseID,
			AssetImages: []domain.EvidenceImage{sampleAssetImage(fmt.Sprintf("%s-img-1", caseID), p.assetType)},
			Metadata:    baseMetadata(p, caseID, at),
		})
	}
	return out
}

// ─── Device reuse across applicants (~3 cases sharing one device) ──────────

func generateDeviceReuse(rng *rand.Rand, base time.Time) []domain.EvidencePackage {
	var out []domain.EvidencePackage
	sharedDevice := "dev-shared-suspicious"
	for i, p := range profiles[:3] {
		caseID := fmt.Sprintf("case-devreuse-%d", i)
		meta := baseMetadata(p, caseID, base.Add(time.Duration(i)*2*time.Hour).Add(14*time.Hour))
		meta.SubmissionDeviceID = sharedDevice
		out = append(out, domain.EvidencePackage{
			CaseID:      caseID,
			AssetImages: []domain.EvidenceImage{sampleAssetImage(fmt.Sprintf("%s-img-1", caseID), p.assetType)},
			Metadata:    meta,
		})
	}
	return out
}

// ─── Duplicate photo resubmission (same image across two cases) ────────────

func generateDuplicatePhotoResubmissions(rng *rand.Rand, base time.Time) []domain.EvidencePackage {
	var out []domain.EvidencePackage
	p := profiles[0]
	for n := 0; n < 2; n++ {
		caseID := fmt.Sprintf("case-dupphoto-%d", n)
		at := base.Add(time.Duration(n) * time.Hour).Add(9 * time.Hour)
		out = append(out, domain.EvidencePackage{
			CaseID:      caseID,
			AssetImages: []domain.EvidenceImage{{ID: fmt.Sprintf("%s-img-1", caseID), Base64Data: tinyPNGBase64, DeclaredAssetType: p.assetType}},
			Metadata:    baseMetadata(p, caseID, at),
		})
	}
	return out
}
