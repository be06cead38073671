package gh

import (
	"context"
	"sync"
	"time"

	gogithub "github.com/google/go-github/v57/github"

	"github.com/spiffcs/pulse/internal/log"
)

// lowWatermark is the remaining-quota threshold at or below which the
// client pauses until the quota resets before issuing another request.
const lowWatermark = 5

// gate tracks the shared rate limit state for all requests issued by a
// Client. The mutex is held for the duration of a backoff sleep so that
// concurrent callers serialize on a single pause decision instead of
// each sleeping independently.
type gate struct {
	mu        sync.Mutex
	remaining int
	resetAt   time.Time

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

func newGate() *gate {
	return &gate{
		remaining: -1, // unknown until the first response
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// update records the quota state reported by a response.
func (g *gate) update(rate gogithub.Rate) {
	if rate.Limit == 0 && rate.Reset.Time.IsZero() {
		return // response carried no rate headers
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.remaining = rate.Remaining
	g.resetAt = rate.Reset.Time
}

// wait blocks until it is safe to issue the next request. It returns
// true if a pause occurred.
func (g *gate) wait(ctx context.Context) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.remaining < 0 || g.remaining > lowWatermark {
		return false, nil
	}

	d := g.resetAt.Sub(g.now())
	if d <= 0 {
		g.remaining = -1
		return false, nil
	}

	log.Warn("rate limit nearly exhausted, pausing",
		"remaining", g.remaining,
		"resume_at", g.resetAt.Format(time.RFC3339))
	if err := g.sleep(ctx, d); err != nil {
		return false, err
	}
	g.remaining = -1
	return true, nil
}
