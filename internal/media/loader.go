// Package media resolves an evidence item's payload (inline base64, a local
// file path, or a remote URL) into raw bytes, the way the original service's
// MediaLoader did for every asset image, document, and video in a case.
package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// ErrNoPayload is returned when an evidence item carries none of
// base64_data, file_path, or url.
var ErrNoPayload = errors.New("media: no payload source on evidence item")

// Source is the narrow set of fields MediaLoader needs from an evidence
// item; callers fill it from an EvidenceImage's or EvidenceDocument's
// payload fields.
type Source struct {
	Base64Data string
	FilePath   string
	URL        string
}

// Loader resolves a Source to raw bytes, trying inline base64 first, then a
// local file path, then a remote URL — the same priority order the Python
// MediaLoader used.
type Loader struct {
	client *http.Client
}

// New builds a Loader whose remote fetches time out after timeout.
func New(timeout time.Duration) *Loader {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Loader{client: &http.Client{Timeout: timeout}}
}

// Load resolves src's payload into bytes.
func (l *Loader) Load(src Source) ([]byte, error) {
	switch {
	case src.Base64Data != "":
		return l.loadFromBase64(src.Base64Data)
	case src.FilePath != "":
		return l.loadFromFile(src.FilePath)
	case src.URL != "":
		return l.loadFromURL(src.URL)
	default:
		return nil, ErrNoPayload
	}
}

func (l *Loader) loadFromBase64(data string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("media: decoding base64 payload: %w", err)
	}
	return b, nil
}

func (l *Loader) loadFromFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("media: reading file %q: %w", path, err)
	}
	return b, nil
}

func (l *Loader) loadFromURL(url string) ([]byte, error) {
	resp, err := l.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("media: fetching %q: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media: fetching %q: status %d", url, resp.StatusCode)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("media: reading response body from %q: %w", url, err)
	}
	return b, nil
}
