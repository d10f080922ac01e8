// Package generation owns the generation lifecycle: pending -> processing ->
// completed | failed. It reconciles the synchronous dispatch acknowledgment
// with the asynchronous completion callback and guards terminal states against
// late, contradicting writes.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"voiceletter/internal/dispatch"
	"voiceletter/internal/model"
	"voiceletter/internal/profile"
	"voiceletter/internal/render"
	"voiceletter/internal/store"
)

var (
	// ErrUnknownGeneration is returned when a callback names a generation id
	// that does not exist. The payload is rejected without any mutation.
	ErrUnknownGeneration = errors.New("unknown generation id")

	// ErrMalformedCallback is returned when a callback payload cannot be
	// correlated or carries an unusable status.
	ErrMalformedCallback = errors.New("malformed callback payload")
)

// CallbackResult tells the callback endpoint what happened to a payload.
type CallbackResult string

const (
	CallbackApplied    CallbackResult = "applied"
	CallbackIdempotent CallbackResult = "already_applied"
	CallbackConflict   CallbackResult = "ignored"
	CallbackRejected   CallbackResult = "rejected"
)

// Orchestrator drives generation records through their lifecycle.
type Orchestrator struct {
	store       store.Store
	profiles    *profile.Repository
	dispatcher  dispatch.Dispatcher
	callbackURL string
}

func NewOrchestrator(s store.Store, profiles *profile.Repository, d dispatch.Dispatcher, callbackURL string) *Orchestrator {
	return &Orchestrator{
		store:       s,
		profiles:    profiles,
		dispatcher:  d,
		callbackURL: callbackURL,
	}
}

// StartGeneration creates a pending record for the request and moves it
// through dispatch. Every failure before or during dispatch lands on the
// record as a failed terminal state with a human-readable message; the record
// is returned either way. Each call creates a new record, so accidental
// resubmission is the caller's concern.
func (o *Orchestrator) StartGeneration(ctx context.Context, ownerID uuid.UUID, req dispatch.GenerationRequest) (*model.Generation, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot request: %w", err)
	}

	now := time.Now().UTC()
	gen := &model.Generation{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		SourceKind:  req.SourceKind,
		SourceValue: req.SourceValue(),
		RawRequest:  raw,
		Status:      model.GenerationStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if pid, err := uuid.Parse(req.ProfileID); err == nil {
		gen.ProfileID = &pid
	}
	if err := o.store.CreateGeneration(ctx, gen); err != nil {
		return nil, err
	}

	// Validation runs before any external call. All problems surface at once
	// on the failed record.
	if msgs := dispatch.Validate(req); len(msgs) > 0 {
		return o.failGeneration(ctx, gen.ID, strings.Join(msgs, "; "))
	}

	if gen.ProfileID == nil {
		return o.failGeneration(ctx, gen.ID, "voice profile not found")
	}
	prof, err := o.profiles.Get(ctx, *gen.ProfileID, ownerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return o.failGeneration(ctx, gen.ID, "voice profile not found")
		}
		return nil, err
	}

	payload := dispatch.BuildPayload(req, prof, gen.ID, o.callbackURL)
	ack, err := o.dispatcher.Send(ctx, payload)
	if err != nil {
		log.Printf("[Generation] Dispatch failed for %s: %v", gen.ID, err)
		if current, gerr := o.store.GetGeneration(ctx, gen.ID); gerr == nil && model.IsTerminalStatus(current.Status) {
			return current, nil
		}
		return o.failGeneration(ctx, gen.ID, err.Error())
	}

	// Read before write, same as the callback path: the completion callback can
	// land between Send returning and this point (the simulator delivers through
	// exactly that window), and a terminal state is never overwritten.
	current, err := o.store.GetGeneration(ctx, gen.ID)
	if err != nil {
		return nil, err
	}

	var updated *model.Generation
	switch {
	case model.IsTerminalStatus(current.Status):
		updated = current
		if current.ExecutionRef == nil && ack.ExecutionID != "" {
			updated, err = o.store.UpdateGeneration(ctx, gen.ID, store.GenerationUpdate{
				ExecutionRef: &ack.ExecutionID,
			})
		}
	case ack.Status == model.GenerationStatusCompleted && len(ack.Articles) > 0:
		// The workflow finished synchronously.
		updated, err = o.completeGeneration(ctx, gen.ID, completion{
			executionID:     ack.ExecutionID,
			articles:        ack.Articles,
			exportFolderURL: ack.ExportFolderURL,
			completedAt:     ack.CompletedAt,
		})
	default:
		status := model.GenerationStatusProcessing
		started := time.Now().UTC()
		updated, err = o.store.UpdateGeneration(ctx, gen.ID, store.GenerationUpdate{
			Status:       &status,
			ExecutionRef: &ack.ExecutionID,
			StartedAt:    &started,
		})
	}
	if err != nil {
		return nil, err
	}

	// Best effort: usage stamping must never fail the generation.
	if err := o.profiles.RecordUsage(ctx, prof.ID); err != nil {
		log.Printf("[Generation] Warning: failed to record profile usage for %s: %v", prof.ID, err)
	}

	log.Printf("[Generation] %s dispatched via %s, execution %s, status %s",
		updated.ID, o.dispatcher.Name(), ack.ExecutionID, updated.Status)
	return updated, nil
}

// HandleCompletionCallback applies the workflow's asynchronous outcome,
// correlated by generation id. Repeated delivery of the same terminal payload
// is a no-op; a payload contradicting an already-terminal record is logged and
// dropped so a stale duplicate can never flip a terminal outcome.
func (o *Orchestrator) HandleCompletionCallback(ctx context.Context, p dispatch.CallbackPayload) (CallbackResult, error) {
	if p.GenerationID == "" {
		return CallbackRejected, fmt.Errorf("%w: missing generation_id", ErrMalformedCallback)
	}
	id, err := uuid.Parse(p.GenerationID)
	if err != nil {
		return CallbackRejected, fmt.Errorf("%w: invalid generation_id %q", ErrMalformedCallback, p.GenerationID)
	}
	if p.Status != model.GenerationStatusCompleted && p.Status != model.GenerationStatusFailed {
		return CallbackRejected, fmt.Errorf("%w: status %q is not terminal", ErrMalformedCallback, p.Status)
	}

	// Read before write: terminal states are never overwritten.
	gen, err := o.store.GetGeneration(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return CallbackRejected, fmt.Errorf("%w: %s", ErrUnknownGeneration, p.GenerationID)
		}
		return CallbackRejected, err
	}
	if model.IsTerminalStatus(gen.Status) {
		if gen.Status == p.Status {
			return CallbackIdempotent, nil
		}
		log.Printf("[Generation] Dropping conflicting callback for %s: record is %s, payload says %s (execution %s)",
			gen.ID, gen.Status, p.Status, p.ExecutionID)
		return CallbackConflict, nil
	}

	if p.Status == model.GenerationStatusFailed {
		msg := p.ErrorMessage
		if msg == "" {
			msg = "generation failed"
		}
		if _, err := o.failGeneration(ctx, gen.ID, msg); err != nil {
			return CallbackRejected, err
		}
		return CallbackApplied, nil
	}

	if verr := dispatch.ValidateArticles(p.Articles); verr != nil {
		return CallbackRejected, fmt.Errorf("%w: completed callback %v", ErrMalformedCallback, verr)
	}
	_, err = o.completeGeneration(ctx, gen.ID, completion{
		executionID:      p.ExecutionID,
		articles:         p.Articles,
		exportFolderURL:  p.ExportFolderURL,
		exportFiles:      p.ExportFiles,
		executionTimeSec: p.ExecutionTimeSec,
		totalWordCount:   p.TotalWordCount,
		costEstimate:     p.CostEstimate,
		completedAt:      p.CompletedAt,
	})
	if err != nil {
		return CallbackRejected, err
	}
	return CallbackApplied, nil
}

type completion struct {
	executionID      string
	articles         []model.NewsletterArticle
	exportFolderURL  string
	exportFiles      []string
	executionTimeSec float64
	totalWordCount   int
	costEstimate     float64
	completedAt      *time.Time
}

// completeGeneration persists the terminal completed state: articles, export
// references, word totals and completion timestamp land in one update.
func (o *Orchestrator) completeGeneration(ctx context.Context, id uuid.UUID, c completion) (*model.Generation, error) {
	articles := make([]model.NewsletterArticle, len(c.articles))
	copy(articles, c.articles)
	for i := range articles {
		if articles[i].ContentHTML != nil || articles[i].ContentMarkdown == "" {
			continue
		}
		html, err := render.HTML(articles[i].ContentMarkdown)
		if err != nil {
			log.Printf("[Generation] Warning: failed to render article %d of %s: %v", articles[i].Number, id, err)
			continue
		}
		articles[i].ContentHTML = &html
	}

	total := c.totalWordCount
	if total == 0 {
		for _, a := range articles {
			total += a.WordCount
		}
	}

	completedAt := time.Now().UTC()
	if c.completedAt != nil {
		completedAt = c.completedAt.UTC()
	}

	status := model.GenerationStatusCompleted
	upd := store.GenerationUpdate{
		Status:         &status,
		Articles:       &articles,
		TotalWordCount: &total,
		CompletedAt:    &completedAt,
	}
	if c.executionID != "" {
		upd.ExecutionRef = &c.executionID
	}
	if c.exportFolderURL != "" {
		upd.ExportFolderURL = &c.exportFolderURL
	}
	if c.exportFiles != nil {
		upd.ExportFiles = &c.exportFiles
	}
	if c.executionTimeSec > 0 {
		upd.ExecutionTimeSec = &c.executionTimeSec
	}
	if c.costEstimate > 0 {
		upd.CostEstimate = &c.costEstimate
	}
	return o.store.UpdateGeneration(ctx, id, upd)
}

func (o *Orchestrator) failGeneration(ctx context.Context, id uuid.UUID, msg string) (*model.Generation, error) {
	status := model.GenerationStatusFailed
	return o.store.UpdateGeneration(ctx, id, store.GenerationUpdate{
		Status:       &status,
		ErrorMessage: &msg,
	})
}

// Get returns a generation scoped to its owner.
func (o *Orchestrator) Get(ctx context.Context, id, ownerID uuid.UUID) (*model.Generation, error) {
	return o.store.GetGenerationOwned(ctx, id, ownerID)
}

// List returns the owner's generations, newest first, optionally filtered by status.
func (o *Orchestrator) List(ctx context.Context, ownerID uuid.UUID, status string) ([]model.Generation, error) {
	return o.store.ListGenerations(ctx, ownerID, status)
}

// Delete removes a generation after re-verifying ownership.
func (o *Orchestrator) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	return o.store.DeleteGeneration(ctx, id, ownerID)
}
