package media_test

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"vidya/risk-engine/internal/media"
)

func TestLoad_Base64_DecodesPayload(t *testing.T) {
	l := media.New(0)
	want := []byte("hello evidence")
	src := media.Source{Base64Data: base64.StdEncoding.EncodeToString(want)}

	got, err := l.Load(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestLoad_Base64_InvalidEncoding_ReturnsError(t *testing.T) {
	l := media.New(0)
	_, err := l.Load(media.Source{Base64Data: "not-valid-base64!!"})
	if err == nil {
		t.Error("expected error for invalid base64")
	}
}

func TestLoad_FilePath_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evidence.bin")
	want := []byte("file payload")
	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatal(err)
	}

	l := media.New(0)
	got, err := l.Load(media.Source{FilePath: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestLoad_URL_FetchesBody(t *testing.T) {
	want := []byte("remote payload")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(want)
	}))
	defer srv.Close()

	l := media.New(0)
	got, err := l.Load(media.Source{URL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestLoad_URL_NonOKStatus_ReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	l := media.New(0)
	_, err := l.Load(media.Source{URL: srv.URL})
	if err == nil {
		t.Error("expected error for 404 response")
	}
}

func TestLoad_NoPayload_ReturnsErrNoPayload(t *testing.T) {
	l := media.New(0)
	_, err := l.Load(media.Source{})
	if err != media.ErrNoPayload {
		t.Errorf("expected ErrNoPayload, got %v", err)
	}
}

func TestLoad_PrefersBase64OverFileAndURL(t *testing.T) {
	l := media.New(0)
	want := []byte("base64 wins")
	src := media.Source{
		Base64Data: base64.StdEncoding.EncodeToString(want),
		FilePath:   "/nonexistent/path",
		URL:        "http://example.invalid",
	}
	got, err := l.Load(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("expected base64 payload to win, got %q", got)
	}
}
