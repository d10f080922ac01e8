package profile

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"voiceletter/internal/model"
	"voiceletter/internal/store"
)

// Input carries the caller-supplied content fields of a voice profile.
type Input struct {
	Name             string
	Tones            []string
	Formality        int
	DetailLevel      int
	SentenceStyle    string
	VocabularyLevel  string
	ParagraphPattern string
	CommonPhrases    []string
	AvoidPhrases     []string
	UsesEmojis       bool
	UsesQuestions    bool
	UsesAnecdotes    bool
	UsesStatistics   bool
	UsesHumor        bool
	WritingSamples   []model.WritingSample
}

// Repository manages voice profile records on top of the record store.
type Repository struct {
	store store.Store
}

func NewRepository(s store.Store) *Repository {
	return &Repository{store: s}
}

// Create assigns an id and owner, zeroes the usage counters and creates the
// profile in draft status. Analysis fields stay nil until Analyze runs.
func (r *Repository) Create(ctx context.Context, ownerID uuid.UUID, in Input) (*model.VoiceProfile, error) {
	if len(in.Tones) > model.MaxTones {
		return nil, fmt.Errorf("at most %d tones are allowed, got %d", model.MaxTones, len(in.Tones))
	}
	if in.Formality < 1 || in.Formality > 5 {
		return nil, fmt.Errorf("formality must be between 1 and 5, got %d", in.Formality)
	}
	if in.DetailLevel < 1 || in.DetailLevel > 5 {
		return nil, fmt.Errorf("detail level must be between 1 and 5, got %d", in.DetailLevel)
	}

	now := time.Now().UTC()
	p := &model.VoiceProfile{
		ID:               uuid.New(),
		OwnerID:          ownerID,
		Name:             in.Name,
		Tones:            in.Tones,
		Formality:        in.Formality,
		DetailLevel:      in.DetailLevel,
		SentenceStyle:    in.SentenceStyle,
		VocabularyLevel:  in.VocabularyLevel,
		ParagraphPattern: in.ParagraphPattern,
		CommonPhrases:    in.CommonPhrases,
		AvoidPhrases:     in.AvoidPhrases,
		UsesEmojis:       in.UsesEmojis,
		UsesQuestions:    in.UsesQuestions,
		UsesAnecdotes:    in.UsesAnecdotes,
		UsesStatistics:   in.UsesStatistics,
		UsesHumor:        in.UsesHumor,
		WritingSamples:   in.WritingSamples,
		Status:           model.ProfileStatusDraft,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := r.store.CreateProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Repository) Get(ctx context.Context, id, ownerID uuid.UUID) (*model.VoiceProfile, error) {
	return r.store.GetProfileOwned(ctx, id, ownerID)
}

// ListByOwner returns the owner's profiles, newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.VoiceProfile, error) {
	return r.store.ListProfiles(ctx, ownerID)
}

// ListReadyForGeneration returns profiles in ready or approved status, most
// recently used first.
func (r *Repository) ListReadyForGeneration(ctx context.Context, ownerID uuid.UUID) ([]model.VoiceProfile, error) {
	return r.store.ListReadyProfiles(ctx, ownerID)
}

func (r *Repository) Update(ctx context.Context, id, ownerID uuid.UUID, upd store.ProfileUpdate) (*model.VoiceProfile, error) {
	if upd.Tones != nil && len(*upd.Tones) > model.MaxTones {
		return nil, fmt.Errorf("at most %d tones are allowed, got %d", model.MaxTones, len(*upd.Tones))
	}
	if upd.Formality != nil && (*upd.Formality < 1 || *upd.Formality > 5) {
		return nil, fmt.Errorf("formality must be between 1 and 5, got %d", *upd.Formality)
	}
	if upd.DetailLevel != nil && (*upd.DetailLevel < 1 || *upd.DetailLevel > 5) {
		return nil, fmt.Errorf("detail level must be between 1 and 5, got %d", *upd.DetailLevel)
	}
	return r.store.UpdateProfile(ctx, id, ownerID, upd)
}

// Delete removes the profile and detaches it from any generations that
// reference it. Generations are never deleted along with a profile.
func (r *Repository) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	if err := r.store.DeleteProfile(ctx, id, ownerID); err != nil {
		return err
	}
	if err := r.store.DetachProfile(ctx, id); err != nil {
		log.Printf("[Profile] Warning: failed to detach deleted profile %s from generations: %v", id, err)
	}
	return nil
}

// UpdateStatus sets the profile status. Transition adjacency is not enforced
// here; approved_at is stamped exactly when the new status is approved and is
// never cleared by later transitions.
func (r *Repository) UpdateStatus(ctx context.Context, id, ownerID uuid.UUID, status string) (*model.VoiceProfile, error) {
	switch status {
	case model.ProfileStatusDraft, model.ProfileStatusAnalyzing, model.ProfileStatusReady, model.ProfileStatusApproved:
	default:
		return nil, fmt.Errorf("invalid profile status %q", status)
	}

	upd := store.ProfileUpdate{Status: &status}
	if status == model.ProfileStatusApproved {
		now := time.Now().UTC()
		upd.ApprovedAt = &now
	}
	return r.store.UpdateProfile(ctx, id, ownerID, upd)
}

// RecordUsage stamps last_used_at and bumps the generation counter. Callers
// treat failures as non-fatal.
func (r *Repository) RecordUsage(ctx context.Context, id uuid.UUID) error {
	p, err := r.store.GetProfile(ctx, id)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	total := p.TotalGenerations + 1
	_, err = r.store.UpdateProfile(ctx, id, p.OwnerID, store.ProfileUpdate{
		LastUsedAt:       &now,
		TotalGenerations: &total,
	})
	return err
}
