package httpadapter

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/olgamyk/outfit-shopper/internal/core/domain"
	"github.com/olgamyk/outfit-shopper/internal/core/ports"
	"github.com/olgamyk/outfit-shopper/internal/observability/metrics"
)

const maxUploadBytes = 15 << 20

// BlobOpener reads stored blobs back for the /files route.
type BlobOpener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type TrafficLimits struct {
	RateLimitRPS   int
	RateLimitBurst int
	MaxConcurrent  int
}

type Router struct {
	submitUC ports.OutfitSubmitter
	reader   ports.OutfitReader
	blobs    BlobOpener
	metrics  *metrics.HTTPServerMetrics
	limits   TrafficLimits
}

func NewRouter(
	submitUC ports.OutfitSubmitter,
	reader ports.OutfitReader,
	blobs BlobOpener,
	serverMetrics *metrics.HTTPServerMetrics,
	limits TrafficLimits,
) *Router {
	return &Router{
		submitUC: submitUC,
		reader:   reader,
		blobs:    blobs,
		metrics:  serverMetrics,
		limits:   limits,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/outfits", rt.submitOutfit)
	mux.HandleFunc("/v1/outfits/", rt.getOutfitRoutes)
	if rt.blobs != nil {
		mux.HandleFunc("/files/", rt.serveFile)
	}

	var handler http.Handler = mux
	if rt.limits.MaxConcurrent > 0 {
		handler = backpressureMiddleware(handler, rt.limits.MaxConcurrent, 100*time.Millisecond)
	}
	if rt.limits.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.limits.RateLimitRPS, rt.limits.RateLimitBurst)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("api", handler)
	}
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) submitOutfit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, fileHeader, err := r.FormFile("photo")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'photo' is required"})
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "photo must be an image"})
		return
	}

	outfit, err := rt.submitUC.Submit(r.Context(), fileHeader.Filename, contentType, file)
	if rt.metrics != nil {
		rt.metrics.RecordSubmission("api", err)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, outfit)
}

// getOutfitRoutes dispatches /v1/outfits/{id} and /v1/outfits/{id}/shopping.
func (rt *Router) getOutfitRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/outfits/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "outfit id is required"})
		return
	}

	switch sub {
	case "":
		rt.getOutfit(w, r, id)
	case "shopping":
		rt.getShopping(w, r, id)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func (rt *Router) getOutfit(w http.ResponseWriter, r *http.Request, id string) {
	outfit, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outfit)
}

type shoppingResponse struct {
	OutfitID string                      `json:"outfit_id"`
	Status   domain.OutfitStatus         `json:"status"`
	Error    string                      `json:"error,omitempty"`
	Results  []domain.ItemShoppingResult `json:"results"`
}

func (rt *Router) getShopping(w http.ResponseWriter, r *http.Request, id string) {
	outfit, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := shoppingResponse{
		OutfitID: outfit.ID,
		Status:   outfit.Status,
		Error:    outfit.Error,
		Results:  outfit.Shopping,
	}
	if resp.Results == nil {
		resp.Results = []domain.ItemShoppingResult{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) serveFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	key := strings.TrimPrefix(r.URL.Path, "/files/")
	if key == "" || strings.Contains(key, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid file key"})
		return
	}

	f, err := rt.blobs.Open(r.Context(), key)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "file not found"})
		return
	}
	defer f.Close()

	if contentType := mime.TypeByExtension(filepath.Ext(key)); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	_, _ = io.Copy(w, f)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
