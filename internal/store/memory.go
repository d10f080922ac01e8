package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"voiceletter/internal/model"
)

// Memory is the volatile backend used when DATABASE_URL is not set. It must
// behave identically to the Postgres backend as far as callers can observe.
type Memory struct {
	mu          sync.Mutex
	profiles    map[uuid.UUID]*model.VoiceProfile
	generations map[uuid.UUID]*model.Generation
}

func NewMemory() *Memory {
	return &Memory{
		profiles:    make(map[uuid.UUID]*model.VoiceProfile),
		generations: make(map[uuid.UUID]*model.Generation),
	}
}

func (m *Memory) CreateProfile(ctx context.Context, p *model.VoiceProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := cloneProfile(p)
	m.profiles[p.ID] = cp
	return nil
}

func (m *Memory) GetProfile(ctx context.Context, id uuid.UUID) (*model.VoiceProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneProfile(p), nil
}

func (m *Memory) GetProfileOwned(ctx context.Context, id, ownerID uuid.UUID) (*model.VoiceProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok || p.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return cloneProfile(p), nil
}

func (m *Memory) ListProfiles(ctx context.Context, ownerID uuid.UUID) ([]model.VoiceProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.VoiceProfile, 0)
	for _, p := range m.profiles {
		if p.OwnerID == ownerID {
			out = append(out, *cloneProfile(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) ListReadyProfiles(ctx context.Context, ownerID uuid.UUID) ([]model.VoiceProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.VoiceProfile, 0)
	for _, p := range m.profiles {
		if p.OwnerID != ownerID {
			continue
		}
		if p.Status != model.ProfileStatusReady && p.Status != model.ProfileStatusApproved {
			continue
		}
		out = append(out, *cloneProfile(p))
	}
	// Most recently used first, never-used profiles last.
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].LastUsedAt, out[j].LastUsedAt
		switch {
		case a != nil && b != nil:
			return a.After(*b)
		case a != nil:
			return true
		case b != nil:
			return false
		default:
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
	})
	return out, nil
}

func (m *Memory) UpdateProfile(ctx context.Context, id, ownerID uuid.UUID, upd ProfileUpdate) (*model.VoiceProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok || p.OwnerID != ownerID {
		return nil, ErrNotFound
	}

	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Tones != nil {
		p.Tones = append([]string(nil), (*upd.Tones)...)
	}
	if upd.Formality != nil {
		p.Formality = *upd.Formality
	}
	if upd.DetailLevel != nil {
		p.DetailLevel = *upd.DetailLevel
	}
	if upd.SentenceStyle != nil {
		p.SentenceStyle = *upd.SentenceStyle
	}
	if upd.VocabularyLevel != nil {
		p.VocabularyLevel = *upd.VocabularyLevel
	}
	if upd.ParagraphPattern != nil {
		p.ParagraphPattern = *upd.ParagraphPattern
	}
	if upd.CommonPhrases != nil {
		p.CommonPhrases = append([]string(nil), (*upd.CommonPhrases)...)
	}
	if upd.AvoidPhrases != nil {
		p.AvoidPhrases = append([]string(nil), (*upd.AvoidPhrases)...)
	}
	if upd.UsesEmojis != nil {
		p.UsesEmojis = *upd.UsesEmojis
	}
	if upd.UsesQuestions != nil {
		p.UsesQuestions = *upd.UsesQuestions
	}
	if upd.UsesAnecdotes != nil {
		p.UsesAnecdotes = *upd.UsesAnecdotes
	}
	if upd.UsesStatistics != nil {
		p.UsesStatistics = *upd.UsesStatistics
	}
	if upd.UsesHumor != nil {
		p.UsesHumor = *upd.UsesHumor
	}
	if upd.WritingSamples != nil {
		p.WritingSamples = append([]model.WritingSample(nil), (*upd.WritingSamples)...)
	}
	if upd.AvgSentenceLength != nil {
		p.AvgSentenceLength = upd.AvgSentenceLength
	}
	if upd.VoicePrompt != nil {
		p.VoicePrompt = upd.VoicePrompt
	}
	if upd.SystemPrompt != nil {
		p.SystemPrompt = upd.SystemPrompt
	}
	if upd.Status != nil {
		p.Status = *upd.Status
	}
	if upd.TotalGenerations != nil {
		p.TotalGenerations = *upd.TotalGenerations
	}
	if upd.AvgRating != nil {
		p.AvgRating = upd.AvgRating
	}
	if upd.ApprovedAt != nil {
		p.ApprovedAt = upd.ApprovedAt
	}
	if upd.LastUsedAt != nil {
		p.LastUsedAt = upd.LastUsedAt
	}
	p.UpdatedAt = time.Now().UTC()

	return cloneProfile(p), nil
}

func (m *Memory) DeleteProfile(ctx context.Context, id, ownerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok || p.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(m.profiles, id)
	return nil
}

func (m *Memory) CreateGeneration(ctx context.Context, g *model.Generation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generations[g.ID] = cloneGeneration(g)
	return nil
}

func (m *Memory) GetGeneration(ctx context.Context, id uuid.UUID) (*model.Generation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.generations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneGeneration(g), nil
}

func (m *Memory) GetGenerationOwned(ctx context.Context, id, ownerID uuid.UUID) (*model.Generation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.generations[id]
	if !ok || g.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return cloneGeneration(g), nil
}

func (m *Memory) ListGenerations(ctx context.Context, ownerID uuid.UUID, status string) ([]model.Generation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Generation, 0)
	for _, g := range m.generations {
		if g.OwnerID != ownerID {
			continue
		}
		if status != "" && g.Status != status {
			continue
		}
		out = append(out, *cloneGeneration(g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpdateGeneration(ctx context.Context, id uuid.UUID, upd GenerationUpdate) (*model.Generation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.generations[id]
	if !ok {
		return nil, ErrNotFound
	}

	if upd.Status != nil {
		g.Status = *upd.Status
	}
	if upd.ExecutionRef != nil {
		g.ExecutionRef = upd.ExecutionRef
	}
	if upd.ErrorMessage != nil {
		g.ErrorMessage = upd.ErrorMessage
	}
	if upd.Articles != nil {
		g.Articles = append([]model.NewsletterArticle(nil), (*upd.Articles)...)
	}
	if upd.ExportFolderURL != nil {
		g.ExportFolderURL = upd.ExportFolderURL
	}
	if upd.ExportFiles != nil {
		g.ExportFiles = append([]string(nil), (*upd.ExportFiles)...)
	}
	if upd.ExecutionTimeSec != nil {
		g.ExecutionTimeSec = upd.ExecutionTimeSec
	}
	if upd.TotalWordCount != nil {
		g.TotalWordCount = upd.TotalWordCount
	}
	if upd.CostEstimate != nil {
		g.CostEstimate = upd.CostEstimate
	}
	if upd.RawRequest != nil {
		g.RawRequest = append([]byte(nil), upd.RawRequest...)
	}
	if upd.StartedAt != nil {
		g.StartedAt = upd.StartedAt
	}
	if upd.CompletedAt != nil {
		g.CompletedAt = upd.CompletedAt
	}
	g.UpdatedAt = time.Now().UTC()

	return cloneGeneration(g), nil
}

func (m *Memory) DeleteGeneration(ctx context.Context, id, ownerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.generations[id]
	if !ok || g.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(m.generations, id)
	return nil
}

func (m *Memory) DetachProfile(ctx context.Context, profileID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.generations {
		if g.ProfileID != nil && *g.ProfileID == profileID {
			g.ProfileID = nil
			g.UpdatedAt = time.Now().UTC()
		}
	}
	return nil
}

// Copies are returned everywhere so callers never share memory with the store.

func cloneProfile(p *model.VoiceProfile) *model.VoiceProfile {
	cp := *p
	cp.Tones = append([]string(nil), p.Tones...)
	cp.CommonPhrases = append([]string(nil), p.CommonPhrases...)
	cp.AvoidPhrases = append([]string(nil), p.AvoidPhrases...)
	cp.WritingSamples = append([]model.WritingSample(nil), p.WritingSamples...)
	return &cp
}

func cloneGeneration(g *model.Generation) *model.Generation {
	cp := *g
	cp.Articles = append([]model.NewsletterArticle(nil), g.Articles...)
	cp.ExportFiles = append([]string(nil), g.ExportFiles...)
	cp.RawRequest = append([]byte(nil), g.RawRequest...)
	if g.ProfileID != nil {
		id := *g.ProfileID
		cp.ProfileID = &id
	}
	return &cp
}
