// Package location resolves the device coordinate and caches it across
// runs.
package location

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SolomonGao/UniPick-sub000/internal/store"
	"github.com/SolomonGao/UniPick-sub000/pkg/models"
)

// Failure modes a Source may report. Refresh records them; it never
// returns them.
var (
	ErrPermissionDenied = errors.New("location: permission denied")
	ErrUnavailable      = errors.New("location: position unavailable")
	ErrTimeout          = errors.New("location: timed out")
)

const (
	// cacheTTL is how long a resolved coordinate stays usable.
	cacheTTL = 24 * time.Hour

	// refreshTimeout bounds one source lookup.
	refreshTimeout = 10 * time.Second
)

// Source resolves the current coordinate. Implementations must honor
// context cancellation.
type Source interface {
	Locate(ctx context.Context) (models.Coordinate, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (models.Coordinate, error)

func (f SourceFunc) Locate(ctx context.Context) (models.Coordinate, error) { return f(ctx) }

// Cache persists resolved coordinates across runs.
type Cache interface {
	SaveCoordinate(c models.Coordinate, fetchedAt time.Time) error
	Coordinate() (*store.CachedCoordinate, error)
}

// Provider hands out the device coordinate from a timestamped cache
// and refreshes it on demand. Methods must be called from the single
// goroutine that owns the provider.
type Provider struct {
	source Source
	cache  Cache
	now    func() time.Time

	coord     *models.Coordinate
	fetchedAt time.Time
	lastErr   error
}

// New builds a Provider, loading any previously persisted coordinate.
// cache may be nil for an in-memory provider; now may be nil to use
// the wall clock.
func New(source Source, cache Cache, now func() time.Time) *Provider {
	p := &Provider{source: source, cache: cache, now: now}
	if p.now == nil {
		p.now = time.Now
	}
	if cache != nil {
		if cached, err := cache.Coordinate(); err == nil && cached != nil {
			coord := cached.Coord
			p.coord = &coord
			p.fetchedAt = cached.FetchedAt
		}
	}
	return p
}

// Current returns the cached coordinate, or nil when none has been
// resolved yet or the entry has aged past the cache window. An expired
// entry is treated as absent, never served stale.
func (p *Provider) Current() *models.Coordinate {
	if p.coord == nil {
		return nil
	}
	if p.now().Sub(p.fetchedAt) >= cacheTTL {
		return nil
	}
	coord := *p.coord
	return &coord
}

// Refresh resolves a fresh coordinate through the source, bounded by a
// ten second timeout. Refresh never fails: on error the previous cache
// entry is kept, the cause is recorded for LastError, and the best
// coordinate still available is returned (possibly nil).
func (p *Provider) Refresh(ctx context.Context) *models.Coordinate {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	coord, err := p.source.Locate(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrTimeout
		}
		p.lastErr = err
		return p.Current()
	}

	p.lastErr = nil
	p.coord = &coord
	p.fetchedAt = p.now()
	if p.cache != nil {
		if err := p.cache.SaveCoordinate(coord, p.fetchedAt); err != nil {
			p.lastErr = fmt.Errorf("persist coordinate: %w", err)
		}
	}
	return p.Current()
}

// LastError reports why the most recent Refresh fell back to the
// cache, or nil if it succeeded.
func (p *Provider) LastError() error {
	return p.lastErr
}
