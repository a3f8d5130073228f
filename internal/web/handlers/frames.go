package handlers

import (
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/mahir-majid/tiger-dorm-security/internal/detector"
	"github.com/mahir-majid/tiger-dorm-security/internal/embedding"
	"github.com/mahir-majid/tiger-dorm-security/internal/gallery"
	"github.com/mahir-majid/tiger-dorm-security/internal/identity"
	"github.com/mahir-majid/tiger-dorm-security/internal/match"
)

// unknownName is reported for faces whose best score falls below the
// acceptance threshold, or when no gallery is loaded.
const unknownName = "Unknown"

// FramesHandler processes webcam frames: detect faces, match each against
// the gallery, and report display names with scores.
type FramesHandler struct {
	detector  detector.Detector
	cache     *gallery.Cache
	threshold float64
}

// NewFramesHandler creates a frames handler.
func NewFramesHandler(det detector.Detector, cache *gallery.Cache, threshold float64) *FramesHandler {
	return &FramesHandler{
		detector:  det,
		cache:     cache,
		threshold: threshold,
	}
}

// FrameRequest carries a base64-encoded frame, optionally with a data URL prefix.
type FrameRequest struct {
	Image string `json:"image"`
}

// FrameFace is a single detected face with its match outcome.
type FrameFace struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	MatchName  string  `json:"match_filename"`
	MatchScore float64 `json:"match_score"`
}

// FrameResponse is the response for a processed frame.
type FrameResponse struct {
	Status    string      `json:"status"`
	FaceCount int         `json:"face_count"`
	Faces     []FrameFace `json:"faces"`
}

// Process handles POST /api/process-frame.
func (h *FramesHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req FrameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Image == "" {
		respondError(w, http.StatusBadRequest, "image is required")
		return
	}

	// Strip a data URL prefix ("data:image/jpeg;base64,...") if present.
	payload := req.Image
	if i := strings.IndexByte(payload, ','); i >= 0 {
		payload = payload[i+1:]
	}
	imageData, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid base64 image")
		return
	}

	faces, err := h.detector.DetectFaces(r.Context(), imageData)
	if err != nil {
		log.Printf("face detection failed: %v", err)
		respondError(w, http.StatusBadGateway, "face detection failed")
		return
	}

	g := h.cache.Get()
	results := make([]FrameFace, 0, len(faces))
	for _, face := range faces {
		results = append(results, h.matchFace(face, g))
	}

	respondJSON(w, http.StatusOK, FrameResponse{
		Status:    "ok",
		FaceCount: len(results),
		Faces:     results,
	})
}

// matchFace matches one detected face against the gallery. Failures are
// isolated per face: a face that cannot be matched reports Unknown with
// score 0 instead of failing the whole frame.
func (h *FramesHandler) matchFace(face detector.Face, g *gallery.Gallery) FrameFace {
	out := FrameFace{MatchName: unknownName}
	if len(face.BBox) == 4 {
		out.X = int(face.BBox[0])
		out.Y = int(face.BBox[1])
		out.Width = int(face.BBox[2] - face.BBox[0])
		out.Height = int(face.BBox[3] - face.BBox[1])
	}

	query, err := embedding.Normalize(face.Embedding)
	if err != nil {
		log.Printf("skipping face %d: %v", face.Index, err)
		return out
	}

	res, err := match.Best(query, g)
	if err != nil {
		log.Printf("skipping face %d: %v", face.Index, err)
		return out
	}

	out.MatchScore = res.Score
	if match.Accept(res.Score, h.threshold) {
		if name := identity.DecodeName(res.Identifier); name != "" {
			out.MatchName = name
		}
	}
	return out
}
