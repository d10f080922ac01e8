package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"voiceletter/internal/model"
)

func testProfile(ownerID uuid.UUID) *model.VoiceProfile {
	return &model.VoiceProfile{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		Name:            "Casual Founder",
		Tones:           []string{"witty", "direct"},
		Formality:       2,
		DetailLevel:     4,
		SentenceStyle:   "short and punchy",
		VocabularyLevel: "plain",
		CommonPhrases:   []string{"here's the thing"},
		AvoidPhrases:    []string{"synergy"},
		UsesHumor:       true,
		Status:          model.ProfileStatusReady,
	}
}

func TestBuildPayloadExactlyOneSource(t *testing.T) {
	owner := uuid.New()
	prof := testProfile(owner)
	genID := uuid.New()

	tests := []struct {
		name string
		req  GenerationRequest
		want func(Payload) *string
	}{
		{
			name: "handle source",
			req:  GenerationRequest{SourceKind: model.SourceKindHandle, Handle: "beehiiv"},
			want: func(p Payload) *string { return p.Handle },
		},
		{
			name: "video source",
			req:  GenerationRequest{SourceKind: model.SourceKindVideo, VideoURL: "https://youtu.be/abc123"},
			want: func(p Payload) *string { return p.VideoURL },
		},
		{
			name: "article source",
			req:  GenerationRequest{SourceKind: model.SourceKindArticle, ArticleText: "some pasted article text"},
			want: func(p Payload) *string { return p.ArticleText },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.ProfileID = prof.ID.String()
			tt.req.NewsletterName = "The Weekly Brew"
			p := BuildPayload(tt.req, prof, genID, "http://localhost/cb")

			populated := 0
			for _, v := range []*string{p.Handle, p.VideoURL, p.ArticleText} {
				if v != nil {
					populated++
				}
			}
			if populated != 1 {
				t.Fatalf("expected exactly one populated source field, got %d", populated)
			}
			if tt.want(p) == nil {
				t.Fatalf("expected the selected source field to be populated")
			}

			// All three keys must appear on the wire even when null.
			raw, err := json.Marshal(p)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var m map[string]json.RawMessage
			if err := json.Unmarshal(raw, &m); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			for _, key := range []string{"handle", "video_url", "article_text"} {
				if _, ok := m[key]; !ok {
					t.Errorf("wire payload is missing key %q", key)
				}
			}
		})
	}
}

func TestBuildPayloadExcludesBookkeeping(t *testing.T) {
	prof := testProfile(uuid.New())
	prof.TotalGenerations = 7
	p := BuildPayload(GenerationRequest{
		ProfileID:      prof.ID.String(),
		NewsletterName: "The Weekly Brew",
		SourceKind:     model.SourceKindHandle,
		Handle:         "beehiiv",
	}, prof, uuid.New(), "http://localhost/cb")

	raw, err := json.Marshal(p.VoiceProfile)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"status", "total_generations", "created_at", "approved_at"} {
		if _, ok := m[key]; ok {
			t.Errorf("voice sub-object must not carry bookkeeping field %q", key)
		}
	}
}

func TestClientSendNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`workflow exploded`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	_, err := client.Send(context.Background(), Payload{})
	var derr *Error
	if !errors.As(err, &derr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if derr.StatusCode != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", derr.StatusCode)
	}
	if derr.Body != "workflow exploded" {
		t.Errorf("expected body captured verbatim, got %q", derr.Body)
	}
}

func TestClientSendValidAck(t *testing.T) {
	owner := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected application/json request, got %s", r.Header.Get("Content-Type"))
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"execution_id": "exec_42",
			"user_id":      owner.String(),
			"status":       "pending",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	ack, err := client.Send(context.Background(), Payload{UserID: owner.String()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ack.ExecutionID != "exec_42" {
		t.Errorf("expected execution_id exec_42, got %q", ack.ExecutionID)
	}
	if ack.Status != model.GenerationStatusPending {
		t.Errorf("expected pending status, got %q", ack.Status)
	}
}

func TestClientSendRejectsBadAck(t *testing.T) {
	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{
			name: "missing execution reference",
			body: map[string]interface{}{"user_id": "u", "status": "pending"},
		},
		{
			name: "unknown status",
			body: map[string]interface{}{"execution_id": "e", "user_id": "u", "status": "exploded"},
		},
		{
			name: "completed without articles",
			body: map[string]interface{}{"execution_id": "e", "user_id": "u", "status": "completed"},
		},
		{
			name: "completed with duplicate ordinals",
			body: map[string]interface{}{
				"execution_id": "e", "user_id": "u", "status": "completed",
				"articles": []map[string]interface{}{
					{"number": 1, "word_count": 10},
					{"number": 1, "word_count": 10},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(tt.body)
			}))
			defer srv.Close()

			client := NewClient(srv.URL, 5*time.Second)
			if _, err := client.Send(context.Background(), Payload{}); err == nil {
				t.Fatal("expected ack validation to fail")
			}
		})
	}
}

func TestValidateArticles(t *testing.T) {
	dense := func(n int) []model.NewsletterArticle {
		out := make([]model.NewsletterArticle, n)
		for i := range out {
			out[i] = model.NewsletterArticle{Number: i + 1, WordCount: 100}
		}
		return out
	}

	tests := []struct {
		name    string
		mutate  func([]model.NewsletterArticle) []model.NewsletterArticle
		n       int
		wantErr bool
	}{
		{name: "single article", n: 1},
		{name: "five dense articles", n: 5},
		{name: "empty list", n: 0, wantErr: true},
		{name: "six articles", n: 6, wantErr: true},
		{
			name: "duplicate ordinal",
			n:    3,
			mutate: func(a []model.NewsletterArticle) []model.NewsletterArticle {
				a[2].Number = 1
				return a
			},
			wantErr: true,
		},
		{
			name: "gapped ordinals",
			n:    3,
			mutate: func(a []model.NewsletterArticle) []model.NewsletterArticle {
				a[2].Number = 5
				return a
			},
			wantErr: true,
		},
		{
			name: "zero ordinal",
			n:    2,
			mutate: func(a []model.NewsletterArticle) []model.NewsletterArticle {
				a[0].Number = 0
				return a
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list := dense(tt.n)
			if tt.mutate != nil {
				list = tt.mutate(list)
			}
			err := ValidateArticles(list)
			if tt.wantErr && err == nil {
				t.Fatal("expected a validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSimulatorDeliversCompletedCallback(t *testing.T) {
	done := make(chan CallbackPayload, 1)
	sim := NewSimulator(func(p CallbackPayload) { done <- p }, 10*time.Millisecond)

	prof := testProfile(uuid.New())
	genID := uuid.New()
	req := GenerationRequest{
		ProfileID:      prof.ID.String(),
		NewsletterName: "The Weekly Brew",
		SourceKind:     model.SourceKindHandle,
		Handle:         "beehiiv",
	}

	ack, err := sim.Send(context.Background(), BuildPayload(req, prof, genID, "http://localhost/cb"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ack.Status != model.GenerationStatusPending {
		t.Fatalf("expected pending ack, got %q", ack.Status)
	}
	if ack.ExecutionID == "" {
		t.Fatal("expected an execution reference")
	}

	select {
	case p := <-done:
		if p.GenerationID != genID.String() {
			t.Errorf("callback echoes wrong generation id: %q", p.GenerationID)
		}
		if p.Status != model.GenerationStatusCompleted {
			t.Errorf("expected completed callback, got %q", p.Status)
		}
		if len(p.Articles) != 5 {
			t.Errorf("expected 5 simulated articles, got %d", len(p.Articles))
		}
		for i, a := range p.Articles {
			if a.Number != i+1 {
				t.Errorf("article %d has ordinal %d", i, a.Number)
			}
			if a.WordCount == 0 {
				t.Errorf("article %d has zero word count", i+1)
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("simulator never delivered the completion callback")
	}
}
