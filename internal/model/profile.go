package model

import (
	"time"

	"github.com/google/uuid"
)

// Voice profile lifecycle statuses.
const (
	ProfileStatusDraft     = "draft"
	ProfileStatusAnalyzing = "analyzing"
	ProfileStatusReady     = "ready"
	ProfileStatusApproved  = "approved"
)

// MaxTones bounds the tone multi-select.
const MaxTones = 5

// WritingSample is one sample of the user's own prose, used for tone replication.
type WritingSample struct {
	Text       string  `json:"text"`
	SourceKind string  `json:"source_kind"` // e.g. "newsletter", "tweet", "blog_post"
	URL        *string `json:"url,omitempty"`
}

// VoiceProfile represents a user's writing-style configuration
type VoiceProfile struct {
	ID      uuid.UUID `json:"id"`
	OwnerID uuid.UUID `json:"owner_id"`
	Name    string    `json:"name"`

	// Style attributes
	Tones            []string        `json:"tones"`
	Formality        int             `json:"formality"`    // 1-5
	DetailLevel      int             `json:"detail_level"` // 1-5
	SentenceStyle    string          `json:"sentence_style"`
	VocabularyLevel  string          `json:"vocabulary_level"`
	ParagraphPattern string          `json:"paragraph_pattern"`
	CommonPhrases    []string        `json:"common_phrases"`
	AvoidPhrases     []string        `json:"avoid_phrases"`
	UsesEmojis       bool            `json:"uses_emojis"`
	UsesQuestions    bool            `json:"uses_questions"`
	UsesAnecdotes    bool            `json:"uses_anecdotes"`
	UsesStatistics   bool            `json:"uses_statistics"`
	UsesHumor        bool            `json:"uses_humor"`
	WritingSamples   []WritingSample `json:"writing_samples"`

	// Analysis output, nil until Analyze runs
	AvgSentenceLength *float64 `json:"avg_sentence_length,omitempty"`
	VoicePrompt       *string  `json:"voice_prompt,omitempty"`
	SystemPrompt      *string  `json:"system_prompt,omitempty"`

	Status string `json:"status"`

	// Usage stats
	TotalGenerations int        `json:"total_generations"`
	AvgRating        *float64   `json:"avg_rating,omitempty"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	LastUsedAt       *time.Time `json:"last_used_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
