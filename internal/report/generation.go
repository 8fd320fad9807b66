package report

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Generation is one report run. Its context is cancelled as soon as a
// newer generation begins.
type Generation struct {
	ID     string
	ctx    context.Context
	cancel context.CancelFunc
}

// Context returns the context the run must use for its requests.
func (g *Generation) Context() context.Context { return g.ctx }

// Release frees the resources of a finished generation. It does not make
// the generation stale.
func (g *Generation) Release() { g.cancel() }

// Generations hands out generations so that only the latest search can
// deliver report tokens. The zero value is ready to use.
type Generations struct {
	mu      sync.Mutex
	current *Generation
}

// Begin cancels the current generation, if any, and starts a new one
// derived from parent.
func (g *Generations) Begin(parent context.Context) *Generation {
	ctx, cancel := context.WithCancel(parent)
	gen := &Generation{ID: uuid.NewString(), ctx: ctx, cancel: cancel}

	g.mu.Lock()
	prev := g.current
	g.current = gen
	g.mu.Unlock()

	if prev != nil {
		prev.cancel()
	}
	return gen
}

// IsCurrent reports whether id names the latest generation.
func (g *Generations) IsCurrent(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current != nil && g.current.ID == id
}

// Current returns the ID of the latest generation, or "".
func (g *Generations) Current() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return ""
	}
	return g.current.ID
}

// Cancel aborts the current generation without starting a new one.
func (g *Generations) Cancel() {
	g.mu.Lock()
	cur := g.current
	g.current = nil
	g.mu.Unlock()
	if cur != nil {
		cur.cancel()
	}
}
