// Package state provides a process-local, file-backed store for the two
// pieces of cross-case memory the pipeline needs: perceptual hashes seen
// per applicant (for duplicate detection) and device-usage timestamps (for
// the device-reuse fraud rule). It is the durable analogue of the teacher's
// in-memory secondary indexes, persisted to a single JSON document since the
// risk engine runs as a single instance rather than behind a shared cache.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// HashEntry pairs a perceptual hash with the case it was recorded under.
type HashEntry struct {
	Hash   uint64 `json:"hash"`
	CaseID string `json:"case_id"`
}

// applicantRecord is one applicant's cross-case memory: every evidence
// hash seen, keyed by evidence_id, plus the ordered list of submission
// timestamps (spec §6's persisted state file format).
type applicantRecord struct {
	Hashes     map[string]HashEntry `json:"hashes"`
	Timestamps []time.Time          `json:"timestamps"`
}

// deviceRecord is one device's sliding-window usage history.
type deviceRecord struct {
	Events []time.Time `json:"events"`
}

// document is the on-disk shape: {"applicants": {...}, "devices": {...}}.
type document struct {
	Applicants map[string]*applicantRecord `json:"applicants"`
	Devices    map[string]*deviceRecord    `json:"devices"`
}

// Store is a thread-safe, file-backed key/value store for hashes and device
// usage history. A corrupt or missing file is treated as an empty store
// rather than a fatal error, mirroring the teacher's forgiving startup path.
type Store struct {
	mu   sync.Mutex
	path string
	doc  document
}

// New loads (or initializes) a Store backed by the JSON file at path.
func New(path string) (*Store, error) {
	s := &Store{
		path: path,
		doc: document{
			Applicants: make(map[string]*applicantRecord),
			Devices:    make(map[string]*deviceRecord),
		},
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		// A corrupt state file shouldn't take the service down; start fresh.
		return nil
	}
	if doc.Applicants == nil {
		doc.Applicants = make(map[string]*applicantRecord)
	}
	if doc.Devices == nil {
		doc.Devices = make(map[string]*deviceRecord)
	}
	s.doc = doc
	return nil
}

// persist writes the current document to disk atomically via a temp file
// plus rename, so a crash mid-write never corrupts the existing file.
// Must be called with s.mu held.
func (s *Store) persist() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, s.path)
}

func (s *Store) applicant(id string) *applicantRecord {
	rec, ok := s.doc.Applicants[id]
	if !ok {
		rec = &applicantRecord{Hashes: make(map[string]HashEntry)}
		s.doc.Applicants[id] = rec
	}
	if rec.Hashes == nil {
		rec.Hashes = make(map[string]HashEntry)
	}
	return rec
}

func (s *Store) device(id string) *deviceRecord {
	rec, ok := s.doc.Devices[id]
	if !ok {
		rec = &deviceRecord{}
		s.doc.Devices[id] = rec
	}
	return rec
}

// RecordHash records a perceptual hash under an applicant's evidence-id-keyed
// history and persists the store. Recording happens unconditionally, even
// when the comparison that triggered it found no duplicate — every
// submission grows the applicant's history for future comparisons, and a
// given evidence_id resubmitted later simply overwrites its own entry
// (spec §9(b): intra-case resubmission of the same evidence_id doesn't
// self-flag).
func (s *Store) RecordHash(applicantID, evidenceID string, hash uint64, caseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.applicant(applicantID)
	rec.Hashes[evidenceID] = HashEntry{Hash: hash, CaseID: caseID}
	return s.persist()
}

// ListHashes returns the prior hash history for an applicant, keyed by
// evidence_id.
func (s *Store) ListHashes(applicantID string) map[string]HashEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.doc.Applicants[applicantID]
	if !ok {
		return nil
	}
	out := make(map[string]HashEntry, len(rec.Hashes))
	for k, v := range rec.Hashes {
		out[k] = v
	}
	return out
}

// RecordDeviceUsage appends a submission timestamp for a device, drops
// entries older than windowDays, persists, and returns the post-prune count.
func (s *Store) RecordDeviceUsage(deviceID string, at time.Time, windowDays int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.device(deviceID)
	history := append(rec.Events, at)
	cutoff := at.AddDate(0, 0, -windowDays)
	kept := history[:0]
	for _, t := range history {
		if !t.Before(cutoff) {
			kept = append(kept, t)
		}
	}
	rec.Events = kept
	if err := s.persist(); err != nil {
		return 0, err
	}
	return len(kept), nil
}

// RecordCaseTimestamp appends a case's submission timestamp to an
// applicant's submission history and returns the full history, used to
// compute the rapid-resubmission feature.
func (s *Store) RecordCaseTimestamp(applicantID string, at time.Time) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.applicant(applicantID)
	rec.Timestamps = append(rec.Timestamps, at)
	if err := s.persist(); err != nil {
		return nil, err
	}
	out := make([]time.Time, len(rec.Timestamps))
	copy(out, rec.Timestamps)
	return out, nil
}
