package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/assert/v2"
	"github.com/google/uuid"

	"voiceletter/internal/dispatch"
	"voiceletter/internal/generation"
	"voiceletter/internal/model"
	"voiceletter/internal/profile"
	"voiceletter/internal/store"
)

type fakeDispatcher struct {
	calls int
}

func (f *fakeDispatcher) Send(ctx context.Context, p dispatch.Payload) (*dispatch.Ack, error) {
	f.calls++
	return &dispatch.Ack{
		ExecutionID: fmt.Sprintf("exec_%d", f.calls),
		UserID:      p.UserID,
		Status:      model.GenerationStatusPending,
	}, nil
}

func (f *fakeDispatcher) Name() string { return "fake" }

type env struct {
	router *gin.Engine
	orch   *generation.Orchestrator
	repo   *profile.Repository
	disp   *fakeDispatcher
	userID uuid.UUID
}

func newEnv() *env {
	gin.SetMode(gin.TestMode)
	s := store.NewMemory()
	repo := profile.NewRepository(s)
	disp := &fakeDispatcher{}
	orch := generation.NewOrchestrator(s, repo, disp, "http://localhost/api/v1/callbacks/generation")

	r := gin.New()
	NewHandlers(repo, orch).RegisterRoutes(r)
	return &env{router: r, orch: orch, repo: repo, disp: disp, userID: uuid.New()}
}

func (e *env) do(method, path string, body any, asUser bool) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			panic(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if asUser {
		req.Header.Set("X-User-ID", e.userID.String())
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func data(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	body := decode(t, w)
	if body["success"] != true {
		t.Fatalf("expected success envelope, got %q", w.Body.String())
	}
	d, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %q", w.Body.String())
	}
	return d
}

func (e *env) createReadyProfile(t *testing.T) string {
	t.Helper()
	w := e.do(http.MethodPost, "/api/v1/profiles", gin.H{
		"name":         "Snarky Analyst",
		"tones":        []string{"snarky"},
		"formality":    2,
		"detail_level": 4,
	}, true)
	assert.Equal(t, http.StatusCreated, w.Code)
	p := data(t, w)["profile"].(map[string]any)
	id := p["id"].(string)

	w = e.do(http.MethodPut, "/api/v1/profiles/"+id+"/status", gin.H{"status": "ready"}, true)
	assert.Equal(t, http.StatusOK, w.Code)
	return id
}

func TestHealthCheck(t *testing.T) {
	e := newEnv()
	w := e.do(http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", data(t, w)["status"])
}

func TestRequireUser(t *testing.T) {
	e := newEnv()

	w := e.do(http.MethodGet, "/api/v1/profiles", nil, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profiles", nil)
	req.Header.Set("X-User-ID", "not-a-uuid")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateProfile(t *testing.T) {
	e := newEnv()
	w := e.do(http.MethodPost, "/api/v1/profiles", gin.H{
		"name":         "Casual Founder",
		"tones":        []string{"witty", "warm"},
		"formality":    2,
		"detail_level": 3,
		"uses_emojis":  true,
	}, true)
	assert.Equal(t, http.StatusCreated, w.Code)

	p := data(t, w)["profile"].(map[string]any)
	assert.Equal(t, "Casual Founder", p["name"])
	assert.Equal(t, "draft", p["status"])
	assert.Equal(t, float64(0), p["total_generations"])
}

func TestCreateProfileRejectsOutOfRange(t *testing.T) {
	e := newEnv()
	w := e.do(http.MethodPost, "/api/v1/profiles", gin.H{
		"name":         "Broken",
		"formality":    9,
		"detail_level": 3,
	}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetProfileNotFound(t *testing.T) {
	e := newEnv()
	w := e.do(http.MethodGet, "/api/v1/profiles/"+uuid.NewString(), nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProfilesAreOwnerScoped(t *testing.T) {
	e := newEnv()
	id := e.createReadyProfile(t)

	// Same service, different caller.
	stranger := &env{router: e.router, userID: uuid.New()}
	w := stranger.do(http.MethodGet, "/api/v1/profiles/"+id, nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateProfilePartial(t *testing.T) {
	e := newEnv()
	id := e.createReadyProfile(t)

	w := e.do(http.MethodPut, "/api/v1/profiles/"+id, gin.H{"name": "Renamed"}, true)
	assert.Equal(t, http.StatusOK, w.Code)
	p := data(t, w)["profile"].(map[string]any)
	assert.Equal(t, "Renamed", p["name"])
	assert.Equal(t, float64(2), p["formality"]) // untouched fields survive
}

func TestStartGeneration(t *testing.T) {
	e := newEnv()
	id := e.createReadyProfile(t)

	w := e.do(http.MethodPost, "/api/v1/generations", gin.H{
		"profile_id":      id,
		"newsletter_name": "The Weekly Brew",
		"source_kind":     model.SourceKindArticle,
		"article_text":    strings.Repeat("word ", 100),
	}, true)
	assert.Equal(t, http.StatusCreated, w.Code)

	gen := data(t, w)["generation"].(map[string]any)
	assert.Equal(t, "processing", gen["status"])
	assert.Equal(t, 1, e.disp.calls)
}

func TestStartGenerationInvalidRequestStillCreatesRecord(t *testing.T) {
	e := newEnv()
	id := e.createReadyProfile(t)

	w := e.do(http.MethodPost, "/api/v1/generations", gin.H{
		"profile_id":      id,
		"newsletter_name": "The Weekly Brew",
		"source_kind":     model.SourceKindVideo,
		"video_url":       "not-a-url",
	}, true)
	assert.Equal(t, http.StatusCreated, w.Code)

	gen := data(t, w)["generation"].(map[string]any)
	assert.Equal(t, "failed", gen["status"])
	msg := gen["error_message"].(string)
	if !strings.Contains(msg, "YouTube") {
		t.Errorf("expected a YouTube URL message, got %q", msg)
	}
	assert.Equal(t, 0, e.disp.calls)
}

func TestListGenerationsRejectsUnknownFilter(t *testing.T) {
	e := newEnv()
	w := e.do(http.MethodGet, "/api/v1/generations?status=exploded", nil, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListGenerationsFilterByStatus(t *testing.T) {
	e := newEnv()
	id := e.createReadyProfile(t)
	e.do(http.MethodPost, "/api/v1/generations", gin.H{
		"profile_id":      id,
		"newsletter_name": "The Weekly Brew",
		"source_kind":     model.SourceKindArticle,
		"article_text":    strings.Repeat("word ", 100),
	}, true)

	w := e.do(http.MethodGet, "/api/v1/generations?status=processing", nil, true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), data(t, w)["count"])

	w = e.do(http.MethodGet, "/api/v1/generations?status=completed", nil, true)
	assert.Equal(t, float64(0), data(t, w)["count"])
}

func TestGenerationCallbackLifecycle(t *testing.T) {
	e := newEnv()
	id := e.createReadyProfile(t)

	w := e.do(http.MethodPost, "/api/v1/generations", gin.H{
		"profile_id":      id,
		"newsletter_name": "The Weekly Brew",
		"source_kind":     model.SourceKindArticle,
		"article_text":    strings.Repeat("word ", 100),
	}, true)
	genID := data(t, w)["generation"].(map[string]any)["id"].(string)

	payload := gin.H{
		"execution_id":  "exec_1",
		"generation_id": genID,
		"status":        "completed",
		"articles": []gin.H{
			{"number": 1, "title": "One", "content_markdown": "## Hi", "word_count": 120},
		},
	}

	// No auth header: the callback route sits outside the user middleware.
	w = e.do(http.MethodPost, "/api/v1/callbacks/generation", payload, false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "applied", data(t, w)["result"])

	// Re-delivery of the same terminal outcome is acknowledged, not re-applied.
	w = e.do(http.MethodPost, "/api/v1/callbacks/generation", payload, false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "already_applied", data(t, w)["result"])

	// A contradicting terminal outcome is dropped.
	w = e.do(http.MethodPost, "/api/v1/callbacks/generation", gin.H{
		"generation_id": genID,
		"status":        "failed",
		"error_message": "stale duplicate",
	}, false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ignored", data(t, w)["result"])

	w = e.do(http.MethodGet, "/api/v1/generations/"+genID+"/status", nil, true)
	assert.Equal(t, "completed", data(t, w)["status"])
}

func TestGenerationCallbackRejections(t *testing.T) {
	e := newEnv()

	w := e.do(http.MethodPost, "/api/v1/callbacks/generation", gin.H{
		"generation_id": uuid.NewString(),
		"status":        "completed",
		"articles":      []gin.H{{"number": 1, "content_markdown": "x", "word_count": 1}},
	}, false)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(http.MethodPost, "/api/v1/callbacks/generation", gin.H{
		"status": "completed",
	}, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPost, "/api/v1/callbacks/generation", gin.H{
		"generation_id": uuid.NewString(),
		"status":        "processing",
	}, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWaitForGenerationTimesOutGracefully(t *testing.T) {
	e := newEnv()
	id := e.createReadyProfile(t)

	w := e.do(http.MethodPost, "/api/v1/generations", gin.H{
		"profile_id":      id,
		"newsletter_name": "The Weekly Brew",
		"source_kind":     model.SourceKindArticle,
		"article_text":    strings.Repeat("word ", 100),
	}, true)
	genID := data(t, w)["generation"].(map[string]any)["id"].(string)

	w = e.do(http.MethodGet, "/api/v1/generations/"+genID+"/wait?interval_ms=100&max_attempts=2", nil, true)
	assert.Equal(t, http.StatusOK, w.Code)
	d := data(t, w)
	assert.Equal(t, "watching_timed_out", d["status"])
	assert.Equal(t, false, d["terminal"])
}

func TestDeleteGeneration(t *testing.T) {
	e := newEnv()
	id := e.createReadyProfile(t)

	w := e.do(http.MethodPost, "/api/v1/generations", gin.H{
		"profile_id":      id,
		"newsletter_name": "The Weekly Brew",
		"source_kind":     model.SourceKindArticle,
		"article_text":    strings.Repeat("word ", 100),
	}, true)
	genID := data(t, w)["generation"].(map[string]any)["id"].(string)

	w = e.do(http.MethodDelete, "/api/v1/generations/"+genID, nil, true)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(http.MethodGet, "/api/v1/generations/"+genID, nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
