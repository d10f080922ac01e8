package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"voiceletter/internal/model"
)

// ErrNotFound is returned when a record does not exist or does not belong to
// the requesting owner. Ownership mismatches are deliberately indistinguishable
// from absence.
var ErrNotFound = errors.New("record not found")

// ProfileUpdate is a partial update of a voice profile. Nil fields are left
// untouched; updated_at is always refreshed.
type ProfileUpdate struct {
	Name              *string
	Tones             *[]string
	Formality         *int
	DetailLevel       *int
	SentenceStyle     *string
	VocabularyLevel   *string
	ParagraphPattern  *string
	CommonPhrases     *[]string
	AvoidPhrases      *[]string
	UsesEmojis        *bool
	UsesQuestions     *bool
	UsesAnecdotes     *bool
	UsesStatistics    *bool
	UsesHumor         *bool
	WritingSamples    *[]model.WritingSample
	AvgSentenceLength *float64
	VoicePrompt       *string
	SystemPrompt      *string
	Status            *string
	TotalGenerations  *int
	AvgRating         *float64
	ApprovedAt        *time.Time
	LastUsedAt        *time.Time
}

// GenerationUpdate is a partial update of a generation record.
type GenerationUpdate struct {
	Status           *string
	ExecutionRef     *string
	ErrorMessage     *string
	Articles         *[]model.NewsletterArticle
	ExportFolderURL  *string
	ExportFiles      *[]string
	ExecutionTimeSec *float64
	TotalWordCount   *int
	CostEstimate     *float64
	RawRequest       json.RawMessage
	StartedAt        *time.Time
	CompletedAt      *time.Time
}

// Store is the record store contract shared by the durable Postgres backend
// and the in-memory backend used when no database is configured. The backend
// is chosen once at startup; everything above this layer is backend-agnostic.
type Store interface {
	// Voice profiles
	CreateProfile(ctx context.Context, p *model.VoiceProfile) error
	GetProfile(ctx context.Context, id uuid.UUID) (*model.VoiceProfile, error)
	GetProfileOwned(ctx context.Context, id, ownerID uuid.UUID) (*model.VoiceProfile, error)
	ListProfiles(ctx context.Context, ownerID uuid.UUID) ([]model.VoiceProfile, error)
	ListReadyProfiles(ctx context.Context, ownerID uuid.UUID) ([]model.VoiceProfile, error)
	UpdateProfile(ctx context.Context, id, ownerID uuid.UUID, upd ProfileUpdate) (*model.VoiceProfile, error)
	DeleteProfile(ctx context.Context, id, ownerID uuid.UUID) error

	// Generations
	CreateGeneration(ctx context.Context, g *model.Generation) error
	GetGeneration(ctx context.Context, id uuid.UUID) (*model.Generation, error)
	GetGenerationOwned(ctx context.Context, id, ownerID uuid.UUID) (*model.Generation, error)
	ListGenerations(ctx context.Context, ownerID uuid.UUID, status string) ([]model.Generation, error)
	UpdateGeneration(ctx context.Context, id uuid.UUID, upd GenerationUpdate) (*model.Generation, error)
	DeleteGeneration(ctx context.Context, id, ownerID uuid.UUID) error

	// DetachProfile nulls the profile reference on all generations pointing at
	// profileID. Called on profile deletion so generations never dangle.
	DetachProfile(ctx context.Context, profileID uuid.UUID) error
}
