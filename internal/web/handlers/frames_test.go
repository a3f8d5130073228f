package handlers

import (
	"encoding/base64"
	"errors"
	"math"
	"net/http"
	"testing"

	"github.com/mahir-majid/tiger-dorm-security/internal/detector"
	"github.com/mahir-majid/tiger-dorm-security/internal/match"
)

func frameBody(image string) map[string]string {
	return map[string]string{"image": image}
}

func testImage() string {
	return base64.StdEncoding.EncodeToString([]byte("not really a jpeg"))
}

func TestProcess_BadRequests(t *testing.T) {
	cache := emptyTestCache(t)
	h := NewFramesHandler(&stubDetector{}, cache, match.DefaultThreshold)

	tests := []struct {
		name string
		body any
	}{
		{"missing image", map[string]string{}},
		{"empty image", frameBody("")},
		{"invalid base64", frameBody("!!!not-base64!!!")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, h.Process, http.MethodPost, "/api/process-frame", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestProcess_InvalidJSON(t *testing.T) {
	cache := emptyTestCache(t)
	h := NewFramesHandler(&stubDetector{}, cache, match.DefaultThreshold)

	rec := doRequest(t, h.Process, http.MethodPost, "/api/process-frame", "not an object")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestProcess_DetectorFailure(t *testing.T) {
	cache := emptyTestCache(t)
	det := &stubDetector{err: errors.New("model not loaded")}
	h := NewFramesHandler(det, cache, match.DefaultThreshold)

	rec := doRequest(t, h.Process, http.MethodPost, "/api/process-frame", frameBody(testImage()))
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
}

func TestProcess_EmptyGallery(t *testing.T) {
	cache := emptyTestCache(t)
	det := &stubDetector{faces: []detector.Face{
		{Index: 0, Dim: 4, Embedding: []float32{1, 0, 0, 0}, BBox: []float64{10, 20, 110, 220}},
	}}
	h := NewFramesHandler(det, cache, match.DefaultThreshold)

	rec := doRequest(t, h.Process, http.MethodPost, "/api/process-frame", frameBody(testImage()))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp FrameResponse
	decodeResponse(t, rec, &resp)
	if resp.FaceCount != 1 || len(resp.Faces) != 1 {
		t.Fatalf("face count = %d/%d, want 1", resp.FaceCount, len(resp.Faces))
	}
	if resp.Faces[0].MatchName != "Unknown" {
		t.Errorf("MatchName = %q, want Unknown", resp.Faces[0].MatchName)
	}
	if resp.Faces[0].MatchScore != 0 {
		t.Errorf("MatchScore = %v, want 0", resp.Faces[0].MatchScore)
	}
}

func TestProcess_KnownFace(t *testing.T) {
	cache, _ := newTestCache(t, testEntries(t, "BUTLER_Jane Doe '26.jpg", "FORBES_John Smith.png"))
	// Unnormalized embedding pointing at the first gallery row.
	det := &stubDetector{faces: []detector.Face{
		{Index: 0, Dim: 4, Embedding: []float32{2, 0, 0, 0}, BBox: []float64{10, 20, 110, 220}, Score: 0.99},
	}}
	h := NewFramesHandler(det, cache, match.DefaultThreshold)

	rec := doRequest(t, h.Process, http.MethodPost, "/api/process-frame", frameBody(testImage()))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp FrameResponse
	decodeResponse(t, rec, &resp)
	if len(resp.Faces) != 1 {
		t.Fatalf("got %d faces, want 1", len(resp.Faces))
	}
	face := resp.Faces[0]
	if face.MatchName != "Jane Doe" {
		t.Errorf("MatchName = %q, want Jane Doe", face.MatchName)
	}
	if math.Abs(face.MatchScore-1.0) > 1e-6 {
		t.Errorf("MatchScore = %v, want 1.0", face.MatchScore)
	}
	if face.X != 10 || face.Y != 20 || face.Width != 100 || face.Height != 200 {
		t.Errorf("bbox = (%d, %d, %d, %d), want (10, 20, 100, 200)", face.X, face.Y, face.Width, face.Height)
	}
}

func TestProcess_BelowThreshold(t *testing.T) {
	cache, _ := newTestCache(t, testEntries(t, "BUTLER_Jane Doe '26.jpg"))
	// Mostly orthogonal to the gallery row: similarity is about 0.1,
	// well below the acceptance threshold but still positive.
	det := &stubDetector{faces: []detector.Face{
		{Index: 0, Dim: 4, Embedding: []float32{0.1, 1, 0, 0}, BBox: []float64{0, 0, 50, 50}},
	}}
	h := NewFramesHandler(det, cache, match.DefaultThreshold)

	rec := doRequest(t, h.Process, http.MethodPost, "/api/process-frame", frameBody(testImage()))
	var resp FrameResponse
	decodeResponse(t, rec, &resp)

	face := resp.Faces[0]
	if face.MatchName != "Unknown" {
		t.Errorf("MatchName = %q, want Unknown", face.MatchName)
	}
	if face.MatchScore <= 0 || face.MatchScore >= match.DefaultThreshold {
		t.Errorf("MatchScore = %v, want positive and below %v", face.MatchScore, match.DefaultThreshold)
	}
}

func TestProcess_DataURLPrefix(t *testing.T) {
	cache, _ := newTestCache(t, testEntries(t, "BUTLER_Jane Doe '26.jpg"))
	det := &stubDetector{faces: []detector.Face{
		{Index: 0, Dim: 4, Embedding: []float32{1, 0, 0, 0}, BBox: []float64{0, 0, 50, 50}},
	}}
	h := NewFramesHandler(det, cache, match.DefaultThreshold)

	body := frameBody("data:image/jpeg;base64," + testImage())
	rec := doRequest(t, h.Process, http.MethodPost, "/api/process-frame", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp FrameResponse
	decodeResponse(t, rec, &resp)
	if resp.Faces[0].MatchName != "Jane Doe" {
		t.Errorf("MatchName = %q, want Jane Doe", resp.Faces[0].MatchName)
	}
}

func TestProcess_DegenerateFaceIsolated(t *testing.T) {
	cache, _ := newTestCache(t, testEntries(t, "BUTLER_Jane Doe '26.jpg", "FORBES_John Smith.png"))
	// First face has a zero embedding and cannot be normalized; the second
	// must still match.
	det := &stubDetector{faces: []detector.Face{
		{Index: 0, Dim: 4, Embedding: []float32{0, 0, 0, 0}, BBox: []float64{0, 0, 10, 10}},
		{Index: 1, Dim: 4, Embedding: []float32{0, 3, 0, 0}, BBox: []float64{20, 20, 40, 40}},
	}}
	h := NewFramesHandler(det, cache, match.DefaultThreshold)

	rec := doRequest(t, h.Process, http.MethodPost, "/api/process-frame", frameBody(testImage()))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp FrameResponse
	decodeResponse(t, rec, &resp)
	if resp.FaceCount != 2 {
		t.Fatalf("FaceCount = %d, want 2", resp.FaceCount)
	}
	if resp.Faces[0].MatchName != "Unknown" || resp.Faces[0].MatchScore != 0 {
		t.Errorf("degenerate face = %q/%v, want Unknown/0", resp.Faces[0].MatchName, resp.Faces[0].MatchScore)
	}
	if resp.Faces[1].MatchName != "John Smith" {
		t.Errorf("second face = %q, want John Smith", resp.Faces[1].MatchName)
	}
}
