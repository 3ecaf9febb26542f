// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/spendsense/spendsense/internal/catalog"
	"github.com/spendsense/spendsense/internal/config"
	"github.com/spendsense/spendsense/internal/guardrails"
	"github.com/spendsense/spendsense/internal/persona"
	"github.com/spendsense/spendsense/internal/recommend"
	"github.com/spendsense/spendsense/internal/signal"
	"github.com/spendsense/spendsense/internal/storage"
)

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		Version: "test-1.0",
		Items: []catalog.Item{
			{
				ContentID: "credit_utilization_guide", Type: catalog.TypeArticle,
				Title: "Understanding Credit Utilization", Description: "How utilization affects your score",
				Personas:       []string{"high_utilization"},
				SignalTriggers: []signal.Trigger{signal.TriggerHighCreditUtilization, signal.TriggerHasInterestCharges},
				URL:            "/content/utilization", ReadingTimeMinutes: 8, PriorityScore: 3,
			},
			{
				ContentID: "balance_payoff_plan", Type: catalog.TypeChecklist,
				Title: "Balance Payoff Plan", Description: "A step-by-step plan to pay down card balances",
				Personas:       []string{"high_utilization"},
				SignalTriggers: []signal.Trigger{signal.TriggerHasInterestCharges},
				URL:            "/content/payoff-plan", ReadingTimeMinutes: 6, PriorityScore: 3,
			},
			{
				ContentID: "getting_started_basics", Type: catalog.TypeArticle,
				Title: "Financial Basics: Getting Started", Description: "Essential financial concepts everyone should know",
				Personas: []string{"insufficient_data"},
				URL:      "/content/financial-basics", ReadingTimeMinutes: 10, PriorityScore: 1,
			},
		},
	}
}

type testEnv struct {
	store  *storage.Store
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := storage.OpenInMemory(zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	cls, err := persona.NewClassifier(persona.DefaultConfig())
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	guards := guardrails.New(store, guardrails.DefaultDailyCap)
	engine := recommend.NewEngine(testCatalog(), cls, guards, store, recommend.Options{})

	h := NewHandler(store, engine, guards, cls, signal.DefaultWindow)
	router := NewRouter(h, config.ServerConfig{
		Host:              "127.0.0.1",
		Port:              8080,
		Timeout:           5 * time.Second,
		CORSOrigins:       []string{"*"},
		RateLimitDisabled: true,
	})
	return &testEnv{store: store, router: router}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) *APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, w.Body.String())
	}
	return &resp
}

func seedUser(t *testing.T, e *testEnv, userID string, consent bool) {
	t.Helper()
	if err := e.store.CreateUser(context.Background(), storage.User{UserID: userID, ConsentStatus: consent}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func seedCreditSignals(t *testing.T, e *testEnv, userID string) {
	t.Helper()
	util := 0.75
	rec := &signal.Record{
		UserID:               userID,
		CreditUtilizationMax: &util,
		HasInterestCharges:   true,
		DataQualityScore:     0.9,
		Window:               signal.DefaultWindow,
	}
	if err := e.store.SaveSignals(context.Background(), rec); err != nil {
		t.Fatalf("seed signals: %v", err)
	}
}

func TestHealthEndpoints(t *testing.T) {
	e := newTestEnv(t)

	for _, path := range []string{"/", "/api/v1/health", "/api/v1/health/live", "/api/v1/health/ready"} {
		t.Run(path, func(t *testing.T) {
			w := e.do(t, http.MethodGet, path, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			resp := decodeEnvelope(t, w)
			if resp.Status != "success" {
				t.Errorf("envelope status = %q", resp.Status)
			}
		})
	}
}

func TestCreateUser(t *testing.T) {
	e := newTestEnv(t)

	t.Run("valid", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/v1/users", map[string]any{
			"user_id":        "user_001",
			"name":           "Jordan",
			"consent_status": true,
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201 (body %s)", w.Code, w.Body.String())
		}
		u, err := e.store.GetUser(context.Background(), "user_001")
		if err != nil {
			t.Fatalf("GetUser: %v", err)
		}
		if !u.ConsentStatus {
			t.Error("consent not persisted")
		}
	})

	t.Run("missing user_id", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/v1/users", map[string]any{"name": "Nobody"})
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
		resp := decodeEnvelope(t, w)
		if resp.Error == nil || resp.Error.Code != "VALIDATION_ERROR" {
			t.Errorf("error = %+v, want VALIDATION_ERROR", resp.Error)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/users", strings.NewReader("{not json"))
		w := httptest.NewRecorder()
		e.router.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestUpdateConsent(t *testing.T) {
	e := newTestEnv(t)
	seedUser(t, e, "user_001", false)

	t.Run("grant", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/v1/users/user_001/consent", map[string]any{"consent_status": true})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
		}
		ok, err := e.store.HasConsent(context.Background(), "user_001")
		if err != nil || !ok {
			t.Errorf("HasConsent = %v, %v, want true", ok, err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/v1/users/ghost/consent", map[string]any{"consent_status": true})
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})

	t.Run("missing field", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/v1/users/user_001/consent", map[string]any{})
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestPutSignals(t *testing.T) {
	e := newTestEnv(t)
	seedUser(t, e, "user_001", true)

	t.Run("stores and maps triggers", func(t *testing.T) {
		w := e.do(t, http.MethodPut, "/api/v1/users/user_001/signals", map[string]any{
			"credit_utilization_max": 0.75,
			"has_interest_charges":   true,
			"data_quality_score":     0.9,
		})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), string(signal.TriggerHighCreditUtilization)) {
			t.Errorf("response missing trigger: %s", w.Body.String())
		}
		rec, err := e.store.SignalRecord(context.Background(), "user_001", signal.DefaultWindow)
		if err != nil {
			t.Fatalf("SignalRecord: %v", err)
		}
		if rec.CreditUtilizationMax == nil || *rec.CreditUtilizationMax != 0.75 {
			t.Errorf("stored record = %+v", rec)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		w := e.do(t, http.MethodPut, "/api/v1/users/ghost/signals", map[string]any{})
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})

	t.Run("out of range record rejected", func(t *testing.T) {
		w := e.do(t, http.MethodPut, "/api/v1/users/user_001/signals", map[string]any{
			"data_quality_score": 1.5,
		})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400 (body %s)", w.Code, w.Body.String())
		}
		resp := decodeEnvelope(t, w)
		if resp.Error == nil || resp.Error.Code != "VALIDATION_ERROR" {
			t.Errorf("error = %+v, want VALIDATION_ERROR", resp.Error)
		}
	})

	t.Run("negative subscription spend rejected", func(t *testing.T) {
		w := e.do(t, http.MethodPut, "/api/v1/users/user_001/signals", map[string]any{
			"monthly_subscription_spend": -10.0,
			"data_quality_score":         0.9,
		})
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400 (body %s)", w.Code, w.Body.String())
		}
	})
}

func TestProfile(t *testing.T) {
	e := newTestEnv(t)
	seedUser(t, e, "user_001", true)
	seedCreditSignals(t, e, "user_001")

	t.Run("classifies on the fly", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/v1/profile/user_001", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
		}
		body := w.Body.String()
		if !strings.Contains(body, "high_utilization") {
			t.Errorf("profile missing persona: %s", body)
		}
		if !strings.Contains(body, string(signal.TriggerHighCreditUtilization)) {
			t.Errorf("profile missing trigger: %s", body)
		}
	})

	t.Run("no signals yields fallback persona", func(t *testing.T) {
		seedUser(t, e, "user_002", true)
		w := e.do(t, http.MethodGet, "/api/v1/profile/user_002", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if !strings.Contains(w.Body.String(), persona.FallbackPersonaID) {
			t.Errorf("profile without signals = %s", w.Body.String())
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/v1/profile/ghost", nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})
}

func TestRecommendations(t *testing.T) {
	e := newTestEnv(t)
	seedUser(t, e, "user_001", true)
	seedCreditSignals(t, e, "user_001")

	t.Run("generates and persists", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/v1/recommendations/user_001", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
		}
		var resp struct {
			Data recommendationsResponse `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Data.Count == 0 {
			t.Fatal("no recommendations returned")
		}
		for _, rec := range resp.Data.Recommendations {
			if !strings.HasSuffix(rec.Rationale, ".") {
				t.Errorf("rationale %q does not end with a period", rec.Rationale)
			}
			stored, err := e.store.GetRecommendation(context.Background(), rec.RecID)
			if err != nil {
				t.Fatalf("GetRecommendation(%s): %v", rec.RecID, err)
			}
			if !stored.Delivered {
				t.Errorf("recommendation %s not marked delivered", rec.RecID)
			}
		}
	})

	t.Run("no consent is forbidden", func(t *testing.T) {
		seedUser(t, e, "user_noconsent", false)
		w := e.do(t, http.MethodGet, "/api/v1/recommendations/user_noconsent", nil)
		if w.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", w.Code)
		}
		resp := decodeEnvelope(t, w)
		if resp.Error == nil || resp.Error.Code != "CONSENT_REQUIRED" {
			t.Errorf("error = %+v, want CONSENT_REQUIRED", resp.Error)
		}
	})

	t.Run("missing signals degrades to empty list", func(t *testing.T) {
		seedUser(t, e, "user_nosignals", true)
		w := e.do(t, http.MethodGet, "/api/v1/recommendations/user_nosignals", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		var resp struct {
			Data recommendationsResponse `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Data.Count != 0 || len(resp.Data.Recommendations) != 0 {
			t.Errorf("expected empty list, got %+v", resp.Data)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/v1/recommendations/ghost", nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})
}

func TestRecommendationLifecycleEndpoints(t *testing.T) {
	e := newTestEnv(t)
	seedUser(t, e, "user_001", true)
	seedCreditSignals(t, e, "user_001")

	w := e.do(t, http.MethodGet, "/api/v1/recommendations/user_001", nil)
	var resp struct {
		Data recommendationsResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.Count == 0 {
		t.Fatal("no recommendations to exercise")
	}
	recID := resp.Data.Recommendations[0].RecID

	t.Run("approve", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/v1/recommendations/"+recID+"/approve", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		stored, err := e.store.GetRecommendation(context.Background(), recID)
		if err != nil {
			t.Fatalf("GetRecommendation: %v", err)
		}
		if !stored.Approved {
			t.Error("not approved")
		}
	})

	t.Run("view", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/v1/recommendations/"+recID+"/view", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		stored, err := e.store.GetRecommendation(context.Background(), recID)
		if err != nil {
			t.Fatalf("GetRecommendation: %v", err)
		}
		if stored.ViewedAt == nil {
			t.Error("ViewedAt not set")
		}
	})

	t.Run("approve unknown", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/v1/recommendations/ghost/approve", nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})

	t.Run("view unknown", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/v1/recommendations/ghost/view", nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("metrics output missing runtime collectors")
	}
}
