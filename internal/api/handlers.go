// Blockfeed - Community Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/blockfeed

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/tomtom215/blockfeed/internal/logging"
	"github.com/tomtom215/blockfeed/internal/metrics"
	"github.com/tomtom215/blockfeed/internal/recommend"
)

// FeedbackStore records interaction events from the feedback endpoint.
type FeedbackStore interface {
	InsertInteraction(ctx context.Context, userID, itemID int, typ recommend.InteractionType, ts time.Time) (int, error)
}

// Rebuilder triggers a model rebuild outside the scheduled cadence.
type Rebuilder interface {
	Rebuild(ctx context.Context) error
	Ready() bool
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	service  *recommend.Service
	rebuild  Rebuilder
	feedback FeedbackStore
	validate *validator.Validate
	started  time.Time
	version  string
}

// NewHandlers creates the handler set.
func NewHandlers(service *recommend.Service, rebuild Rebuilder, feedback FeedbackStore, version string) *Handlers {
	return &Handlers{
		service:  service,
		rebuild:  rebuild,
		feedback: feedback,
		validate: validator.New(),
		started:  time.Now(),
		version:  version,
	}
}

// userIDParam extracts and validates the user_id query parameter.
func userIDParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		return 0, errors.New("user_id query parameter is required")
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, errors.New("user_id must be a positive integer")
	}
	return id, nil
}

// Homefeed handles GET /api/v1/reco/homefeed?user_id=N.
// An unknown user gets a cold-start feed, not an error. A 503 means the
// models have not finished their first build yet.
func (h *Handlers) Homefeed(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID, err := userIDParam(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	resp, err := h.service.Homefeed(r.Context(), userID)
	if err != nil {
		h.recommendError(rw, r, userID, err)
		return
	}
	rw.Success(resp)
}

// ColdStart handles GET /api/v1/reco/coldstart?user_id=N. It skips the
// personalized stages entirely and serves popularity-only results.
func (h *Handlers) ColdStart(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID, err := userIDParam(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	resp, err := h.service.ColdStart(r.Context(), userID)
	if err != nil {
		h.recommendError(rw, r, userID, err)
		return
	}
	rw.Success(resp)
}

func (h *Handlers) recommendError(rw *ResponseWriter, r *http.Request, userID int, err error) {
	if errors.Is(err, recommend.ErrNotReady) {
		rw.ServiceUnavailable("recommendation models are still building, retry shortly")
		return
	}
	ctxLogger := logging.Ctx(r.Context())
	ctxLogger.Error().Err(err).Int("user_id", userID).Msg("recommendation request failed")
	rw.InternalError("failed to generate recommendations")
}

// FeedbackRequest is the body of POST /api/v1/reco/feedback.
type FeedbackRequest struct {
	UserID int    `json:"user_id" validate:"required,gt=0"`
	ItemID int    `json:"item_id" validate:"required,gt=0"`
	Type   string `json:"type" validate:"required,oneof=view click like book attend dismiss"`
}

// FeedbackResponse acknowledges a recorded interaction.
type FeedbackResponse struct {
	ID       int       `json:"id"`
	Recorded time.Time `json:"recorded"`
}

// Feedback handles POST /api/v1/reco/feedback. Events are persisted
// immediately but only influence recommendations after the next rebuild.
func (h *Handlers) Feedback(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		rw.ValidationError("invalid feedback event", err.Error())
		return
	}

	ts := time.Now().UTC()
	id, err := h.feedback.InsertInteraction(r.Context(), req.UserID, req.ItemID, recommend.InteractionType(req.Type), ts)
	if err != nil {
		ctxLogger := logging.Ctx(r.Context())
		ctxLogger.Error().Err(err).
			Int("user_id", req.UserID).
			Int("item_id", req.ItemID).
			Msg("failed to record feedback")
		rw.InternalError("failed to record feedback")
		return
	}

	metrics.FeedbackEvents.WithLabelValues(req.Type).Inc()
	rw.Created(FeedbackResponse{ID: id, Recorded: ts})
}

// RebuildResponse reports the outcome of an admin-triggered rebuild.
type RebuildResponse struct {
	Status     string `json:"status"`
	DurationMs int64  `json:"duration_ms"`
	Detail     string `json:"detail,omitempty"`
}

// Rebuild handles POST /api/v1/admin/rebuild. The rebuild runs inline;
// callers wait for it, which keeps the endpoint honest about success.
func (h *Handlers) Rebuild(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	start := time.Now()
	if err := h.rebuild.Rebuild(r.Context()); err != nil {
		ctxLogger := logging.Ctx(r.Context())
		ctxLogger.Error().Err(err).Msg("admin rebuild failed")
		rw.writeJSON(http.StatusOK, APIResponse{
			Success: true,
			Data: RebuildResponse{
				Status:     "partial",
				DurationMs: time.Since(start).Milliseconds(),
				Detail:     err.Error(),
			},
		})
		return
	}
	rw.Success(RebuildResponse{
		Status:     "ok",
		DurationMs: time.Since(start).Milliseconds(),
	})
}

// HealthResponse is the health endpoint payload.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	ModelsReady   bool   `json:"models_ready"`
}

// Health handles GET /api/v1/health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	status := "ok"
	if !h.rebuild.Ready() {
		status = "degraded"
	}
	rw.Success(HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		ModelsReady:   h.rebuild.Ready(),
	})
}

// HealthLive handles GET /api/v1/health/live. Always 200 while the
// process can serve requests.
func (h *Handlers) HealthLive(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HealthReady handles GET /api/v1/health/ready. 503 until the first model
// build has completed.
func (h *Handlers) HealthReady(w http.ResponseWriter, r *http.Request) {
	if !h.rebuild.Ready() {
		NewResponseWriter(w, r).ServiceUnavailable("models not built yet")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
