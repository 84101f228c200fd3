package service

import (
	"context"
	"sync"
)

// ExportedSaveGuard is an exported alias so _test packages can test the guard.
type ExportedSaveGuard = saveGuard

// ─────────────────────────────────────────────────────────────
// saveGuard: serialises saves of the same report
// ─────────────────────────────────────────────────────────────

// saveGuard makes sure at most one save per report is in flight. A second
// saver either waits its turn (Acquire) or backs off (TryLock).
type saveGuard struct {
	mu       sync.Mutex
	inflight map[string]chan struct{}
	wg       sync.WaitGroup
}

func (g *saveGuard) claimLocked(key string) {
	if g.inflight == nil {
		g.inflight = make(map[string]chan struct{})
	}
	g.inflight[key] = make(chan struct{})
	g.wg.Add(1)
}

// TryLock marks key as busy. It returns false if a save of key is running.
func (g *saveGuard) TryLock(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inflight[key]; busy {
		return false
	}
	g.claimLocked(key)
	return true
}

// Acquire blocks until key is free and claims it, or returns ctx.Err().
func (g *saveGuard) Acquire(ctx context.Context, key string) error {
	for {
		g.mu.Lock()
		ch, busy := g.inflight[key]
		if !busy {
			g.claimLocked(key)
			g.mu.Unlock()
			return nil
		}
		g.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Unlock releases key. Must follow a successful TryLock or Acquire.
func (g *saveGuard) Unlock(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.inflight[key]
	if !ok {
		return
	}
	delete(g.inflight, key)
	close(ch)
	g.wg.Done()
}

// Wait blocks until the save of key in flight (if any) finishes.
func (g *saveGuard) Wait(ctx context.Context, key string) error {
	g.mu.Lock()
	ch, busy := g.inflight[key]
	g.mu.Unlock()
	if !busy {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitAll blocks until every running save completes or ctx is cancelled.
func (g *saveGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
