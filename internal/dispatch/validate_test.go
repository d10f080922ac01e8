package dispatch

import (
	"strings"
	"testing"

	"voiceletter/internal/model"
)

func validHandleRequest() GenerationRequest {
	return GenerationRequest{
		ProfileID:      "a6f1f3a0-6f3b-4f57-9a5a-2a2b6f0d7c11",
		NewsletterName: "The Weekly Brew",
		SourceKind:     model.SourceKindHandle,
		Handle:         "beehiiv",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*GenerationRequest)
		wantErr string // substring expected in one of the messages, "" means no errors
	}{
		{
			name:   "valid handle request",
			mutate: func(r *GenerationRequest) {},
		},
		{
			name: "handle with space",
			mutate: func(r *GenerationRequest) {
				r.Handle = "ab cd"
			},
			wantErr: "handle",
		},
		{
			name: "handle too long",
			mutate: func(r *GenerationRequest) {
				r.Handle = "sixteen_chars_xx"
			},
			wantErr: "handle",
		},
		{
			name: "handle with leading at sign is accepted",
			mutate: func(r *GenerationRequest) {
				r.Handle = "@beehiiv"
			},
		},
		{
			name: "missing handle",
			mutate: func(r *GenerationRequest) {
				r.Handle = ""
			},
			wantErr: "handle",
		},
		{
			name: "valid youtube watch url",
			mutate: func(r *GenerationRequest) {
				r.SourceKind = model.SourceKindVideo
				r.Handle = ""
				r.VideoURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
			},
		},
		{
			name: "valid youtu.be short url",
			mutate: func(r *GenerationRequest) {
				r.SourceKind = model.SourceKindVideo
				r.Handle = ""
				r.VideoURL = "https://youtu.be/dQw4w9WgXcQ"
			},
		},
		{
			name: "not a url",
			mutate: func(r *GenerationRequest) {
				r.SourceKind = model.SourceKindVideo
				r.Handle = ""
				r.VideoURL = "not-a-url"
			},
			wantErr: "YouTube",
		},
		{
			name: "non-youtube url",
			mutate: func(r *GenerationRequest) {
				r.SourceKind = model.SourceKindVideo
				r.Handle = ""
				r.VideoURL = "https://example.com/watch?v=abc123"
			},
			wantErr: "YouTube",
		},
		{
			name: "article text long enough",
			mutate: func(r *GenerationRequest) {
				r.SourceKind = model.SourceKindArticle
				r.Handle = ""
				r.ArticleText = strings.Repeat("a", 100)
			},
		},
		{
			name: "article text too short",
			mutate: func(r *GenerationRequest) {
				r.SourceKind = model.SourceKindArticle
				r.Handle = ""
				r.ArticleText = strings.Repeat("a", 99)
			},
			wantErr: "at least 100",
		},
		{
			name: "article text too long",
			mutate: func(r *GenerationRequest) {
				r.SourceKind = model.SourceKindArticle
				r.Handle = ""
				r.ArticleText = strings.Repeat("a", 50001)
			},
			wantErr: "at most 50000",
		},
		{
			name: "missing profile id",
			mutate: func(r *GenerationRequest) {
				r.ProfileID = ""
			},
			wantErr: "profile",
		},
		{
			name: "missing newsletter name",
			mutate: func(r *GenerationRequest) {
				r.NewsletterName = ""
			},
			wantErr: "newsletter name",
		},
		{
			name: "missing source kind",
			mutate: func(r *GenerationRequest) {
				r.SourceKind = ""
			},
			wantErr: "source kind",
		},
		{
			name: "unknown source kind",
			mutate: func(r *GenerationRequest) {
				r.SourceKind = "carrier_pigeon"
			},
			wantErr: "carrier_pigeon",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validHandleRequest()
			tt.mutate(&req)
			errs := Validate(req)

			if tt.wantErr == "" {
				if len(errs) != 0 {
					t.Fatalf("expected no validation errors, got %v", errs)
				}
				return
			}
			if len(errs) == 0 {
				t.Fatalf("expected a validation error containing %q, got none", tt.wantErr)
			}
			found := false
			for _, msg := range errs {
				if strings.Contains(msg, tt.wantErr) {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("expected a message containing %q, got %v", tt.wantErr, errs)
			}
		})
	}
}

func TestValidateAccumulatesAllProblems(t *testing.T) {
	errs := Validate(GenerationRequest{SourceKind: model.SourceKindHandle, Handle: "ab cd"})
	if len(errs) != 3 {
		t.Fatalf("expected 3 messages (profile, newsletter name, handle), got %d: %v", len(errs), errs)
	}
}
