package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/felixge/httpsnoop"

	"github.com/archview/archview/mermaid"
	"github.com/archview/archview/services"
)

// Api is the JSON HTTP surface over the generation pipeline. Rendering itself
// happens client-side; a renderer rejection ("diagram syntax error") is a
// client-reported state, never produced here.
type Api struct {
	mux        *http.ServeMux
	gen        *services.GenerationService
	store      *services.VersionStore
	normalizer *mermaid.Normalizer
}

// NewApi wires the endpoint handlers onto a fresh mux.
func NewApi(gen *services.GenerationService, store *services.VersionStore, normalizer *mermaid.Normalizer) *Api {
	a := &Api{
		mux:        http.NewServeMux(),
		gen:        gen,
		store:      store,
		normalizer: normalizer,
	}
	a.mux.HandleFunc("POST /api/generate", a.handleGenerate)
	a.mux.HandleFunc("POST /api/normalize", a.handleNormalize)
	a.mux.HandleFunc("POST /api/resolve", a.handleResolve)
	a.mux.HandleFunc("GET /api/versions", a.handleVersions)
	a.mux.HandleFunc("GET /api/versions/{id}", a.handleVersion)
	return a
}

// Handler returns the api handler wrapped with request logging.
func (a *Api) Handler() http.Handler {
	return withRequestLog(a.mux)
}

// withRequestLog logs one line per request with status and duration.
func withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", m.Code,
			"duration", m.Duration,
			"bytes", m.Written,
		)
	})
}

type generateResponse struct {
	Version         *services.DiagramVersion `json:"version,omitempty"`
	Explanation     string                   `json:"explanation,omitempty"`
	NothingToRender bool                     `json:"nothingToRender,omitempty"`
}

func (a *Api) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req services.GenerateRequest
	if !readJSON(w, r, &req) {
		return
	}
	version, err := a.gen.Generate(r.Context(), req)
	if errors.Is(err, services.ErrNothingToRender) {
		// Not a hard error: the explanation is still useful to the caller.
		explanation := ""
		if version != nil {
			explanation = version.Explanation
		}
		writeJSON(w, http.StatusOK, generateResponse{
			Explanation:     explanation,
			NothingToRender: true,
		})
		return
	}
	if err != nil {
		httpError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, generateResponse{Version: version})
}

func (a *Api) handleNormalize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RawText string `json:"rawText"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, a.normalizer.Normalize(req.RawText))
}

func (a *Api) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VersionID    string `json:"versionId"`
		ElementID    string `json:"elementId"`
		VisibleLabel string `json:"visibleLabel"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	rec, err := a.gen.ResolveNode(req.VersionID, req.ElementID, req.VisibleLabel)
	if errors.Is(err, services.ErrVersionNotFound) {
		httpError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}
	// A resolution miss returns a JSON null body: no panel to show, no error.
	writeJSON(w, http.StatusOK, rec)
}

func (a *Api) handleVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := a.store.List()
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

func (a *Api) handleVersion(w http.ResponseWriter, r *http.Request) {
	version, err := a.store.Get(r.PathValue("id"))
	if errors.Is(err, services.ErrVersionNotFound) {
		httpError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, version)
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func httpError(w http.ResponseWriter, status int, err error) {
	slog.Error("Request failed", "status", status, "error", err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
