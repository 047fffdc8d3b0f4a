package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"nse-oi-tracker/internal/backfill"
	"nse-oi-tracker/internal/dashboard"
	"nse-oi-tracker/internal/errors"
	"nse-oi-tracker/internal/logging"
	"nse-oi-tracker/internal/models"
)

type liveResponse struct {
	*models.LiveView
	Warning string `json:"warning,omitempty"`
}

type healthResponse struct {
	Status          string `json:"status"`
	Service         string `json:"service"`
	BackfillRunning bool   `json:"backfillRunning"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:          "ok",
		Service:         "nse-oi-tracker",
		BackfillRunning: s.svc.BackfillRunning(),
	})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	symbol, ok := symbolParam(w, r)
	if !ok {
		return
	}

	view, err := s.svc.Live(r.Context(), symbol)
	if view == nil {
		writeError(w, err.Error(), http.StatusBadGateway)
		return
	}
	resp := liveResponse{LiveView: view}
	if err != nil {
		resp.Warning = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLatest(w http.ResponseWriter, _ *http.Request) {
	view, err := s.svc.Latest()
	if err != nil {
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.History(r.Context()))
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ClearHistory(r.Context()); err != nil {
		writeError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = dashboard.FormatJSON
	}

	var contentType string
	switch format {
	case dashboard.FormatJSON:
		contentType = "application/json"
	case dashboard.FormatCSV:
		contentType = "text/csv"
	default:
		writeError(w, fmt.Sprintf("unsupported format %q", format), http.StatusBadRequest)
		return
	}

	if _, err := s.svc.Latest(); err != nil {
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.svc.ExportFilename(format)))
	if err := s.svc.Export(w, format); err != nil {
		logger := logging.FromContext(r.Context())
		logger.Error().Err(err).Msg("Export failed")
	}
}

func (s *Server) handleBackfill(w http.ResponseWriter, r *http.Request) {
	symbol, ok := symbolParam(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	started := false
	start := func() {
		if started {
			return
		}
		started = true
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
	}
	send := func(event string, v interface{}) {
		start()
		data, err := json.Marshal(v)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
		flusher.Flush()
	}

	res, err := s.svc.StartBackfill(r.Context(), symbol, func(p backfill.Progress) {
		send("progress", p)
	})
	switch {
	case errors.Is(err, errors.ErrBackfillRunning):
		writeError(w, err.Error(), http.StatusConflict)
	case err != nil:
		send("error", map[string]interface{}{"error": err.Error(), "result": res})
	default:
		send("result", res)
	}
}

func symbolParam(w http.ResponseWriter, r *http.Request) (models.Index, bool) {
	symbol, err := models.ParseIndex(chi.URLParam(r, "symbol"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return symbol, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
