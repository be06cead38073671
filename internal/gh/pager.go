package gh

import (
	"context"
	"errors"

	gogithub "github.com/google/go-github/v57/github"

	"github.com/spiffcs/pulse/internal/log"
)

// pageState tracks where a pager is in its lifecycle. A pager is a
// one-shot, finite sequence: once exhausted or failed it stays that way.
type pageState int

const (
	statePaging pageState = iota
	statePausing
	stateExhausted
	stateFailed
)

// pager drives one paginated listing, following the rel="next" link
// (surfaced by go-github as Response.NextPage) one page at a time and
// consulting the shared rate-limit gate before every request.
type pager[T any] struct {
	endpoint string
	gate     *gate
	fetch    func(ctx context.Context, page int) ([]T, *gogithub.Response, error)

	state pageState
	page  int
	err   error
}

func newPager[T any](g *gate, endpoint string, fetch func(ctx context.Context, page int) ([]T, *gogithub.Response, error)) *pager[T] {
	return &pager[T]{endpoint: endpoint, gate: g, fetch: fetch, page: 1}
}

// next returns the next page of items in server order. After exhaustion
// it returns nil items and nil error; after a failure it keeps returning
// the same error.
func (p *pager[T]) next(ctx context.Context) ([]T, error) {
	switch p.state {
	case stateExhausted:
		return nil, nil
	case stateFailed:
		return nil, p.err
	}

	p.state = statePausing
	paused, err := p.gate.wait(ctx)
	if err != nil {
		return nil, p.fail(err)
	}
	if paused {
		log.Debug("resumed after rate limit pause", "endpoint", p.endpoint)
	}
	p.state = statePaging

	items, resp, err := p.fetch(ctx, p.page)
	if resp != nil {
		p.gate.update(resp.Rate)
	}
	if err != nil {
		mapped := mapError(p.endpoint, resp, err)
		if errors.Is(mapped, ErrNotFound) {
			// 404 on a listing means nothing is there, not a failure.
			p.state = stateExhausted
			return nil, nil
		}
		return nil, p.fail(mapped)
	}

	if resp == nil || resp.NextPage == 0 {
		p.state = stateExhausted
	} else {
		p.page = resp.NextPage
	}
	return items, nil
}

func (p *pager[T]) done() bool {
	return p.state == stateExhausted || p.state == stateFailed
}

func (p *pager[T]) fail(err error) error {
	p.state = stateFailed
	p.err = err
	return err
}

// collect drains a pager, accumulating every page into one slice so the
// caller never sees a partial listing.
func collect[T any](ctx context.Context, p *pager[T]) ([]T, error) {
	var all []T
	for !p.done() {
		items, err := p.next(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}
	return all, nil
}
