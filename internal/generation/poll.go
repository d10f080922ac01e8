package generation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"voiceletter/internal/model"
)

// ErrPollTimeout means the attempt budget ran out while the generation was
// still non-terminal. The generation itself has not failed; the caller merely
// stopped watching.
var ErrPollTimeout = errors.New("generation still running, stopped watching")

// PollUntilTerminal re-reads the generation at a fixed cadence until it
// reaches a terminal status or maxAttempts reads have happened. The observer
// is invoked on every read. Polling is the fallback path for environments
// where the completion callback cannot reach this process; both converge on
// the same stored terminal state. Cancelling the context stops polling
// immediately.
func (o *Orchestrator) PollUntilTerminal(ctx context.Context, id uuid.UUID, onUpdate func(*model.Generation), interval time.Duration, maxAttempts int) (*model.Generation, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		gen, err := o.store.GetGeneration(ctx, id)
		if err != nil {
			return nil, err
		}
		if onUpdate != nil {
			onUpdate(gen)
		}
		if model.IsTerminalStatus(gen.Status) {
			return gen, nil
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
	return nil, ErrPollTimeout
}
