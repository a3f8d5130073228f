package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/mahir-majid/tiger-dorm-security/internal/detector"
	"github.com/mahir-majid/tiger-dorm-security/internal/embedding"
	"github.com/mahir-majid/tiger-dorm-security/internal/gallery"
)

// stubDetector returns canned faces without talking to the analysis server.
type stubDetector struct {
	faces []detector.Face
	err   error
}

func (s *stubDetector) DetectFaces(ctx context.Context, imageData []byte) ([]detector.Face, error) {
	return s.faces, s.err
}

// testEntries builds a small gallery on orthogonal unit vectors so match
// scores in tests are exact dot products.
func testEntries(t *testing.T, identifiers ...string) []gallery.Entry {
	t.Helper()
	entries := make([]gallery.Entry, len(identifiers))
	for i, id := range identifiers {
		raw := make([]float32, 4)
		raw[i%4] = 1
		vec, err := embedding.Normalize(raw)
		if err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}
		entries[i] = gallery.Entry{Identifier: id, Embedding: vec}
	}
	return entries
}

// newTestCache persists the entries into a temp store and returns a cache
// over it, plus the store for tests that mutate the artifacts.
func newTestCache(t *testing.T, entries []gallery.Entry) (*gallery.Cache, gallery.Store) {
	t.Helper()
	dir := t.TempDir()
	store := gallery.Store{
		MatrixPath: filepath.Join(dir, "face_embeddings.npz"),
		NamesPath:  filepath.Join(dir, "face_embeddings_metadata.txt"),
	}

	g, err := gallery.Build(entries)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if err := store.Save(g); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	return gallery.NewCache(store), store
}

// emptyTestCache returns a cache whose store has no artifacts.
func emptyTestCache(t *testing.T) *gallery.Cache {
	t.Helper()
	dir := t.TempDir()
	return gallery.NewCache(gallery.Store{
		MatrixPath: filepath.Join(dir, "face_embeddings.npz"),
		NamesPath:  filepath.Join(dir, "face_embeddings_metadata.txt"),
	})
}

func doRequest(t *testing.T, handler http.HandlerFunc, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}
