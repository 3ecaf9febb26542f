// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/spendsense/spendsense/internal/guardrails"
	"github.com/spendsense/spendsense/internal/logging"
	"github.com/spendsense/spendsense/internal/persona"
	"github.com/spendsense/spendsense/internal/recommend"
	"github.com/spendsense/spendsense/internal/signal"
	"github.com/spendsense/spendsense/internal/storage"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Handler holds the dependencies shared by all endpoint methods.
type Handler struct {
	store      *storage.Store
	engine     *recommend.Engine
	guards     *guardrails.Guardrails
	classifier *persona.Classifier
	window     string
	startTime  time.Time
}

// NewHandler creates the API handler. window is the default analysis
// window used when a request does not specify one.
func NewHandler(store *storage.Store, engine *recommend.Engine, guards *guardrails.Guardrails, classifier *persona.Classifier, window string) *Handler {
	if window == "" {
		window = signal.DefaultWindow
	}
	return &Handler{
		store:      store,
		engine:     engine,
		guards:     guards,
		classifier: classifier,
		window:     window,
		startTime:  time.Now(),
	}
}

func (h *Handler) requestWindow(r *http.Request) string {
	if w := r.URL.Query().Get("window"); w != "" {
		return w
	}
	return h.window
}

// Health reports service status and uptime.
// Root identifies the service.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]any{
		"service": "spendsense",
		"api":     "/api/v1",
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
	})
}

// HealthLive is the liveness probe.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]any{"status": "ok"})
}

// HealthReady is the readiness probe. It fails until the store answers.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.ListUserIDs(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "STORAGE_ERROR", "store not ready", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]any{"status": "ok"})
}

type createUserRequest struct {
	UserID        string `json:"user_id" validate:"required,min=1,max=128"`
	Name          string `json:"name" validate:"max=256"`
	ConsentStatus bool   `json:"consent_status"`
}

// CreateUser registers a user record.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", err)
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	u := storage.User{
		UserID:        req.UserID,
		Name:          req.Name,
		ConsentStatus: req.ConsentStatus,
	}
	if err := h.store.CreateUser(r.Context(), u); err != nil {
		respondError(w, http.StatusInternalServerError, "STORAGE_ERROR", "could not store user", err)
		return
	}
	respondSuccess(w, http.StatusCreated, u)
}

type consentRequest struct {
	ConsentStatus *bool `json:"consent_status" validate:"required"`
}

// UpdateConsent flips a user's consent status.
func (h *Handler) UpdateConsent(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req consentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", err)
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "consent_status is required", nil)
		return
	}

	if err := h.store.SetConsent(r.Context(), userID, *req.ConsentStatus); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "user not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "STORAGE_ERROR", "could not update consent", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]any{
		"user_id":        userID,
		"consent_status": *req.ConsentStatus,
	})
}

type triggerInfo struct {
	ID          string `json:"id"`
	Explanation string `json:"explanation"`
}

func triggerInfos(triggers []signal.Trigger) []triggerInfo {
	out := make([]triggerInfo, 0, len(triggers))
	for _, t := range triggers {
		out = append(out, triggerInfo{ID: string(t), Explanation: signal.Explain(t)})
	}
	return out
}

// PutSignals stores a signal snapshot for a user and returns the
// triggers it maps to.
func (h *Handler) PutSignals(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if _, err := h.store.GetUser(r.Context(), userID); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "user not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "STORAGE_ERROR", "could not load user", err)
		return
	}

	var rec signal.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", err)
		return
	}
	rec.UserID = userID
	if rec.Window == "" {
		rec.Window = h.requestWindow(r)
	}
	if rec.ComputedAt.IsZero() {
		rec.ComputedAt = time.Now().UTC()
	}
	if err := validate.Struct(&rec); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid signal record", err)
		return
	}

	if err := h.store.SaveSignals(r.Context(), &rec); err != nil {
		respondError(w, http.StatusInternalServerError, "STORAGE_ERROR", "could not store signals", err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]any{
		"user_id":  userID,
		"window":   rec.Window,
		"triggers": triggerInfos(signal.MapTriggers(&rec)),
	})
}

type profileResponse struct {
	User     *storage.User       `json:"user"`
	Window   string              `json:"window"`
	Signals  *signal.Record      `json:"signals,omitempty"`
	Persona  *persona.Assignment `json:"persona"`
	Triggers []triggerInfo       `json:"triggers"`
}

// Profile returns the user's persona assignment and active triggers for
// a window. A stored assignment is preferred; otherwise the classifier
// runs on the stored signals.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userID")
	window := h.requestWindow(r)

	u, err := h.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "user not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "STORAGE_ERROR", "could not load user", err)
		return
	}

	rec, err := h.store.SignalRecord(ctx, userID, window)
	if err != nil && !errors.Is(err, storage.ErrSignalsNotFound) {
		respondError(w, http.StatusInternalServerError, "STORAGE_ERROR", "could not load signals", err)
		return
	}

	assignment, err := h.store.GetAssignment(ctx, userID, window)
	if err != nil {
		a := h.classifier.Classify(rec)
		assignment = &a
	}

	resp := profileResponse{
		User:     u,
		Window:   window,
		Signals:  rec,
		Persona:  assignment,
		Triggers: []triggerInfo{},
	}
	if rec != nil {
		resp.Triggers = triggerInfos(signal.MapTriggers(rec))
	}
	respondSuccess(w, http.StatusOK, resp)
}

type recommendationsResponse struct {
	UserID          string                     `json:"user_id"`
	Window          string                     `json:"window"`
	Persona         *persona.Assignment        `json:"persona,omitempty"`
	Recommendations []recommend.Recommendation `json:"recommendations"`
	Count           int                        `json:"count"`
}

// Recommendations generates, persists, and delivers recommendations for
// a user. Consent is a hard gate; missing signals or a pipeline failure
// degrade to an empty list.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userID")
	window := h.requestWindow(r)

	if _, err := h.store.GetUser(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "user not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "STORAGE_ERROR", "could not load user", err)
		return
	}

	if err := h.guards.CheckConsent(ctx, userID); err != nil {
		respondError(w, http.StatusForbidden, "CONSENT_REQUIRED", "user has not consented to recommendations", nil)
		return
	}

	resp := recommendationsResponse{
		UserID:          userID,
		Window:          window,
		Recommendations: []recommend.Recommendation{},
	}

	rec, err := h.store.SignalRecord(ctx, userID, window)
	if err != nil {
		if !errors.Is(err, storage.ErrSignalsNotFound) {
			logging.Warn().Err(err).Str("user_id", userID).Msg("Signal lookup failed, returning empty recommendations")
		}
		respondSuccess(w, http.StatusOK, resp)
		return
	}

	recs, assignment := h.engine.GenerateAndSave(ctx, userID, rec)
	for i := range recs {
		if err := h.store.MarkDelivered(ctx, recs[i].RecID); err != nil {
			logging.Warn().Err(err).Str("rec_id", recs[i].RecID).Msg("Could not mark recommendation delivered")
		}
	}

	resp.Persona = &assignment
	resp.Recommendations = recs
	resp.Count = len(recs)
	respondSuccess(w, http.StatusOK, resp)
}

// ApproveRecommendation marks a recommendation as operator-approved.
func (h *Handler) ApproveRecommendation(w http.ResponseWriter, r *http.Request) {
	recID := chi.URLParam(r, "recID")

	if err := h.store.Approve(r.Context(), recID); err != nil {
		if errors.Is(err, storage.ErrRecommendationNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "recommendation not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "STORAGE_ERROR", "could not approve recommendation", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]any{
		"rec_id":   recID,
		"approved": true,
	})
}

// ViewRecommendation records that the user opened the content.
func (h *Handler) ViewRecommendation(w http.ResponseWriter, r *http.Request) {
	recID := chi.URLParam(r, "recID")
	viewedAt := time.Now().UTC()

	if err := h.store.MarkViewed(r.Context(), recID, viewedAt); err != nil {
		if errors.Is(err, storage.ErrRecommendationNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "recommendation not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "STORAGE_ERROR", "could not record view", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]any{
		"rec_id":    recID,
		"viewed_at": viewedAt,
	})
}
