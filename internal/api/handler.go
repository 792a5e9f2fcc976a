// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package api exposes the pipeline over HTTP. Identity comes from the
// X-User-ID header (and optionally X-Company-ID); the gateway in front of
// this service is responsible for authenticating it.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/tallyline/autotime/internal/apperr"
	"github.com/tallyline/autotime/internal/entries"
	"github.com/tallyline/autotime/internal/lock"
	"github.com/tallyline/autotime/internal/models"
	"github.com/tallyline/autotime/internal/pipeline"
	"github.com/tallyline/autotime/internal/source"
)

// Handler serves the pipeline API.
type Handler struct {
	pipeline *pipeline.Service
	entries  *entries.Manager
	fetcher  *source.Fetcher
	lookback time.Duration
}

// NewHandler creates the API handler. fetcher may be nil when no source
// tenants are configured; the sync endpoint then returns 503.
func NewHandler(p *pipeline.Service, e *entries.Manager, fetcher *source.Fetcher, lookback time.Duration) *Handler {
	return &Handler{pipeline: p, entries: e, fetcher: fetcher, lookback: lookback}
}

// Routes registers all endpoints on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /activities", h.withUser(h.ingest))
	mux.HandleFunc("GET /activities/unprocessed/count", h.withUser(h.countUnprocessed))
	mux.HandleFunc("POST /process", h.withUser(h.process))
	mux.HandleFunc("POST /sync", h.withUser(h.sync))

	mux.HandleFunc("GET /entries", h.withUser(h.listEntries))
	mux.HandleFunc("PATCH /entries/{id}", h.withUser(h.editEntry))
	mux.HandleFunc("PUT /entries/{id}/status", h.withUser(h.updateEntryStatus))
	mux.HandleFunc("DELETE /entries/{id}", h.withUser(h.deleteEntry))

	mux.HandleFunc("GET /preferences", h.withUser(h.getPreferences))
	mux.HandleFunc("PUT /preferences", h.withUser(h.updatePreferences))

	return mux
}

// withUser extracts the caller identity or rejects the request.
func (h *Handler) withUser(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			writeError(w, apperr.Validation("X-User-ID header is required"))
			return
		}
		next(w, r, userID)
	}
}

func companyID(r *http.Request) string {
	return r.Header.Get("X-Company-ID")
}

func (h *Handler) ingest(w http.ResponseWriter, r *http.Request, userID string) {
	var raws []models.RawActivity
	if err := json.NewDecoder(r.Body).Decode(&raws); err != nil {
		writeError(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	res, err := h.pipeline.Ingest(r.Context(), userID, raws)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

func (h *Handler) countUnprocessed(w http.ResponseWriter, r *http.Request, userID string) {
	n, err := h.pipeline.CountUnprocessed(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (h *Handler) process(w http.ResponseWriter, r *http.Request, userID string) {
	res, err := h.pipeline.Process(r.Context(), userID, companyID(r))
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// sync pulls recent activity from the configured source tenant and ingests
// it for the caller.
func (h *Handler) sync(w http.ResponseWriter, r *http.Request, userID string) {
	if h.fetcher == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no source tenants configured"})
		return
	}

	var req struct {
		Tenant  string `json:"tenant"`
		Mailbox string `json:"mailbox"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	if req.Tenant == "" || req.Mailbox == "" {
		writeError(w, apperr.Validation("tenant and mailbox are required"))
		return
	}

	since := time.Now().Add(-h.lookback)
	raws, err := h.fetcher.FetchActivities(r.Context(), req.Tenant, req.Mailbox, since)
	if err != nil {
		slog.Error("source sync failed", "user", userID, "tenant", req.Tenant, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": fmt.Sprintf("source sync failed: %v", err)})
		return
	}

	res, err := h.pipeline.Ingest(r.Context(), userID, raws)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request, userID string) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, apperr.Validation("invalid limit %q", v))
			return
		}
		limit = n
	}
	list, err := h.entries.List(r.Context(), userID, r.URL.Query().Get("status"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []models.TimeEntry{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) updateEntryStatus(w http.ResponseWriter, r *http.Request, userID string) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	e, err := h.entries.UpdateStatus(r.Context(), userID, r.PathValue("id"), models.EntryStatus(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) editEntry(w http.ResponseWriter, r *http.Request, userID string) {
	var patch models.EntryPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	e, err := h.entries.Edit(r.Context(), userID, r.PathValue("id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) deleteEntry(w http.ResponseWriter, r *http.Request, userID string) {
	if err := h.entries.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getPreferences(w http.ResponseWriter, r *http.Request, userID string) {
	p, err := h.pipeline.GetPreferences(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) updatePreferences(w http.ResponseWriter, r *http.Request, userID string) {
	var patch models.PreferencesPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	p, err := h.pipeline.UpdatePreferences(r.Context(), userID, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// Serve starts the API server and returns a channel closed once the
// listener is accepting. The server shuts down when ctx is cancelled.
func Serve(ctx context.Context, port int, handler *Handler) (<-chan struct{}, error) {
	server := &http.Server{
		Handler: handler.Routes(),
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("bind API port %d: %w", port, err)
	}

	ready := make(chan struct{})

	go func() {
		<-ctx.Done()
		slog.Info("API server shutting down")
		server.Close()
	}()

	go func() {
		slog.Info("API server listening", "port", port)
		close(ready)
		if err := server.Serve(ln); err != http.ErrServerClosed {
			slog.Error("API server error", "error", err)
		}
	}()

	return ready, nil
}
