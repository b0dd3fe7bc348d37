package feed

import (
	"github.com/SolomonGao/UniPick-sub000/internal/api"
	"github.com/SolomonGao/UniPick-sub000/pkg/models"
)

// Status is the controller lifecycle state.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusLoadingMore
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusLoadingMore:
		return "loadingMore"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// Cursor names the paging position explicitly. NextOffset is the item
// skip for the next request; it advances by the raw returned page
// length so server-side paging stays aligned even when deduplication
// drops rows locally.
type Cursor struct {
	NextOffset int
	PageSize   int
	HasMore    bool
}

// Page is one fetched batch after deduplication, in arrival order.
type Page struct {
	Items []models.ItemSummary
}

// Fetch is a single page request ticket. The owning event loop
// executes it off-loop and feeds the outcome back through Apply; Epoch
// lets Apply discard results a newer epoch has superseded.
type Fetch struct {
	Epoch  uint64
	Offset int
	Params api.ListParams
}

// Controller orchestrates the feed. Methods must be called from the
// one goroutine that owns the controller; only fetch execution happens
// elsewhere.
type Controller struct {
	filters FilterState
	coord   *models.Coordinate
	settled bool

	epoch    uint64
	pages    []Page
	seen     map[int]struct{}
	cursor   Cursor
	status   Status
	err      error
	inFlight bool
	failed   *Fetch
}

// NewController mounts a controller in idle with the given filters.
func NewController(filters FilterState) *Controller {
	return &Controller{
		filters: filters,
		seen:    make(map[int]struct{}),
		cursor:  Cursor{PageSize: PageSize},
		status:  StatusIdle,
	}
}

func (c *Controller) Filters() FilterState { return c.filters }
func (c *Controller) Status() Status       { return c.status }
func (c *Controller) Err() error           { return c.err }
func (c *Controller) Cursor() Cursor       { return c.cursor }

// Coordinate returns the last settled coordinate, or nil.
func (c *Controller) Coordinate() *models.Coordinate {
	return copyCoord(c.coord)
}

// Items flattens the loaded pages in arrival order.
func (c *Controller) Items() []models.ItemSummary {
	var out []models.ItemSummary
	for _, p := range c.pages {
		out = append(out, p.Items...)
	}
	return out
}

// EffectiveSort is the ordering actually requested from the backend:
// the selected sort, except that a distance sort without a usable
// coordinate falls back to recency.
func (c *Controller) EffectiveSort() string {
	if c.filters.SortBy == "" {
		return api.SortCreatedAt
	}
	if c.filters.SortBy == api.SortDistance && (!c.filters.UseLocation || c.coord == nil) {
		return api.SortCreatedAt
	}
	return c.filters.SortBy
}

// SetFilters replaces the whole filter snapshot and starts a new
// epoch. The returned fetch is nil while geo browsing is still waiting
// on the first location resolution; the epoch then starts once
// SetCoordinate settles it.
func (c *Controller) SetFilters(f FilterState) *Fetch {
	c.filters = f
	return c.beginEpoch()
}

// SetCoordinate records the resolved coordinate (nil when resolution
// failed) and marks location as settled. The first settle and any
// coordinate change start a new epoch; re-reporting an unchanged
// coordinate is a no-op.
func (c *Controller) SetCoordinate(coord *models.Coordinate) *Fetch {
	first := !c.settled
	c.settled = true
	if !first && sameCoord(c.coord, coord) {
		return nil
	}
	c.coord = copyCoord(coord)
	return c.beginEpoch()
}

// Refresh discards the loaded pages and re-pulls the first page with
// the current inputs.
func (c *Controller) Refresh() *Fetch {
	return c.beginEpoch()
}

// LoadMore requests the next page. It fires only from ready, with more
// data known to exist and nothing in flight; any other time it is a
// no-op.
func (c *Controller) LoadMore() *Fetch {
	if c.status != StatusReady || !c.cursor.HasMore || c.inFlight {
		return nil
	}
	c.status = StatusLoadingMore
	return c.issue(c.cursor.NextOffset)
}

// Retry re-issues only the fetch that failed, never the whole epoch.
// Pages loaded before the failure stay as they are. No-op outside the
// error state.
func (c *Controller) Retry() *Fetch {
	if c.status != StatusError || c.failed == nil || c.inFlight {
		return nil
	}
	if len(c.pages) == 0 {
		c.status = StatusLoading
	} else {
		c.status = StatusLoadingMore
	}
	f := &Fetch{Epoch: c.epoch, Offset: c.failed.Offset, Params: c.failed.Params}
	c.inFlight = true
	return f
}

// Apply feeds one fetch outcome back into the controller. An outcome
// from a superseded epoch is discarded unconditionally, whatever its
// arrival order; the return value reports whether it was applied.
func (c *Controller) Apply(f Fetch, items []models.ItemSummary, err error) bool {
	if f.Epoch != c.epoch {
		return false
	}
	c.inFlight = false

	if err != nil {
		failed := f
		c.failed = &failed
		c.err = err
		c.status = StatusError
		return true
	}

	c.err = nil
	c.failed = nil

	kept := make([]models.ItemSummary, 0, len(items))
	for _, it := range items {
		if _, dup := c.seen[it.ID]; dup {
			continue
		}
		c.seen[it.ID] = struct{}{}
		kept = append(kept, it)
	}
	if len(kept) > 0 {
		c.pages = append(c.pages, Page{Items: kept})
	}

	c.cursor.NextOffset = f.Offset + len(items)
	c.cursor.HasMore = len(items) == PageSize
	c.status = StatusReady
	return true
}

// beginEpoch discards all loaded state. When the inputs are usable it
// issues the first fetch of the new epoch; with geo browsing still
// unsettled it parks in idle until the coordinate arrives.
func (c *Controller) beginEpoch() *Fetch {
	c.epoch++
	c.pages = nil
	c.seen = make(map[int]struct{})
	c.cursor = Cursor{PageSize: PageSize}
	c.err = nil
	c.failed = nil
	c.inFlight = false

	if c.filters.UseLocation && !c.settled {
		c.status = StatusIdle
		return nil
	}
	c.status = StatusLoading
	return c.issue(0)
}

func (c *Controller) issue(offset int) *Fetch {
	c.inFlight = true
	return &Fetch{Epoch: c.epoch, Offset: offset, Params: c.params(offset)}
}

// params freezes the query inputs for one page fetch. Geo parameters
// ride along only when the user asked for location and a coordinate is
// actually available; the executor downgrades a distance sort on its
// own when they are absent.
func (c *Controller) params(offset int) api.ListParams {
	p := api.ListParams{
		Keyword:  c.filters.Keyword,
		MinPrice: c.filters.MinPrice,
		MaxPrice: c.filters.MaxPrice,
		Category: c.filters.Category,
		SortBy:   c.filters.SortBy,
		Skip:     offset,
		Limit:    PageSize,
	}
	if c.filters.UseLocation && c.coord != nil {
		p.Coord = copyCoord(c.coord)
		p.RadiusMi = c.filters.RadiusMi
	}
	return p
}

func copyCoord(c *models.Coordinate) *models.Coordinate {
	if c == nil {
		return nil
	}
	cc := *c
	return &cc
}

func sameCoord(a, b *models.Coordinate) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
