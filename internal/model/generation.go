package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Generation lifecycle statuses. Completed and failed are terminal.
const (
	GenerationStatusPending    = "pending"
	GenerationStatusProcessing = "processing"
	GenerationStatusCompleted  = "completed"
	GenerationStatusFailed     = "failed"
)

// Content source kinds.
const (
	SourceKindHandle  = "social_handle"
	SourceKindVideo   = "video_url"
	SourceKindArticle = "pasted_article"
)

// PastedArticleSentinel is stored as the source value for pasted text, whose
// full body lives only in the raw request snapshot.
const PastedArticleSentinel = "[pasted article]"

// IsTerminalStatus reports whether a generation status admits no further transitions.
func IsTerminalStatus(status string) bool {
	return status == GenerationStatusCompleted || status == GenerationStatusFailed
}

// NewsletterArticle is one of the up-to-five articles produced by a generation.
// Field names must stay aligned with the external workflow's payloads.
type NewsletterArticle struct {
	Number          int       `json:"number"` // 1-based, dense within a generation
	Title           string    `json:"title"`
	SubjectLine     string    `json:"subject_line"`
	PreviewText     string    `json:"preview_text"`
	ContentMarkdown string    `json:"content_markdown"`
	ContentHTML     *string   `json:"content_html,omitempty"`
	WordCount       int       `json:"word_count"`
	SourceType      string    `json:"source_type"`
	NewsletterType  string    `json:"newsletter_type"`
	ExportURL       *string   `json:"export_url,omitempty"`
	ExportFileID    *string   `json:"export_file_id,omitempty"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// Generation records one request to produce newsletter articles and its outcome.
type Generation struct {
	ID      uuid.UUID `json:"id"`
	OwnerID uuid.UUID `json:"owner_id"`

	// Weak reference: becomes nil when the profile is deleted, never cascades.
	ProfileID *uuid.UUID `json:"profile_id,omitempty"`

	// Input snapshot
	SourceKind  string          `json:"source_kind"`
	SourceValue string          `json:"source_value"`
	RawRequest  json.RawMessage `json:"raw_request,omitempty"` // verbatim, for audit/replay

	// Processing
	Status       string  `json:"status"`
	ExecutionRef *string `json:"execution_ref,omitempty"` // write-once, diagnostic only
	ErrorMessage *string `json:"error_message,omitempty"`

	// Output, populated together with CompletedAt on completion
	Articles         []NewsletterArticle `json:"articles,omitempty"`
	ExportFolderURL  *string             `json:"export_folder_url,omitempty"`
	ExportFiles      []string            `json:"export_files,omitempty"`
	ExecutionTimeSec *float64            `json:"execution_time_seconds,omitempty"`
	TotalWordCount   *int                `json:"total_word_count,omitempty"`
	CostEstimate     *float64            `json:"cost_estimate,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
