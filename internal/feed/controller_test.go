package feed

import (
	"errors"
	"fmt"
	"testing"

	"github.com/SolomonGao/UniPick-sub000/internal/api"
	"github.com/SolomonGao/UniPick-sub000/pkg/models"
)

// mkItems builds n summaries with sequential ids starting at start.
func mkItems(start, n int) []models.ItemSummary {
	out := make([]models.ItemSummary, 0, n)
	for i := 0; i < n; i++ {
		id := start + i
		out = append(out, models.ItemSummary{
			ID:    id,
			Title: fmt.Sprintf("item %d", id),
			Price: float64(id),
		})
	}
	return out
}

func TestDefaultFiltersIdempotent(t *testing.T) {
	first := DefaultFilters()
	second := DefaultFilters()
	if first != second {
		t.Fatalf("DefaultFilters not stable: %+v vs %+v", first, second)
	}
	if first.RadiusMi != DefaultRadiusMi {
		t.Errorf("RadiusMi = %v, want %v", first.RadiusMi, DefaultRadiusMi)
	}
	if first.SortBy != api.SortCreatedAt {
		t.Errorf("SortBy = %q, want %q", first.SortBy, api.SortCreatedAt)
	}
	if first.UseLocation {
		t.Error("UseLocation should default to off")
	}

	// Clearing an already-clear controller must land on the same state.
	c := NewController(DefaultFilters())
	c.SetFilters(DefaultFilters())
	c.SetFilters(DefaultFilters())
	if c.Filters() != DefaultFilters() {
		t.Errorf("filters after double clear = %+v, want defaults", c.Filters())
	}
}

func TestFirstFetchLifecycle(t *testing.T) {
	c := NewController(DefaultFilters())
	if c.Status() != StatusIdle {
		t.Fatalf("status = %v, want idle", c.Status())
	}

	f := c.SetFilters(DefaultFilters())
	if f == nil {
		t.Fatal("expected a fetch ticket")
	}
	if c.Status() != StatusLoading {
		t.Fatalf("status = %v, want loading", c.Status())
	}
	if f.Offset != 0 || f.Params.Skip != 0 || f.Params.Limit != PageSize {
		t.Fatalf("first ticket = offset %d skip %d limit %d", f.Offset, f.Params.Skip, f.Params.Limit)
	}

	if !c.Apply(*f, mkItems(1, PageSize), nil) {
		t.Fatal("current-epoch result was discarded")
	}
	if c.Status() != StatusReady {
		t.Fatalf("status = %v, want ready", c.Status())
	}
	if got := len(c.Items()); got != PageSize {
		t.Fatalf("items = %d, want %d", got, PageSize)
	}
	if !c.Cursor().HasMore {
		t.Error("full page should leave HasMore set")
	}
}

func TestFullThenShortPage(t *testing.T) {
	c := NewController(DefaultFilters())
	f1 := c.SetFilters(DefaultFilters())
	c.Apply(*f1, mkItems(1, PageSize), nil)

	f2 := c.LoadMore()
	if f2 == nil {
		t.Fatal("LoadMore refused with HasMore set")
	}
	if f2.Offset != PageSize || f2.Params.Skip != PageSize {
		t.Fatalf("second ticket offset = %d skip = %d, want %d", f2.Offset, f2.Params.Skip, PageSize)
	}
	if c.Status() != StatusLoadingMore {
		t.Fatalf("status = %v, want loadingMore", c.Status())
	}

	c.Apply(*f2, mkItems(PageSize+1, 5), nil)
	if got := len(c.Items()); got != PageSize+5 {
		t.Fatalf("items = %d, want %d", got, PageSize+5)
	}
	if c.Cursor().HasMore {
		t.Error("short page must clear HasMore")
	}
	if c.LoadMore() != nil {
		t.Error("LoadMore past the end should be a no-op")
	}
}

func TestExactMultipleThenEmpty(t *testing.T) {
	c := NewController(DefaultFilters())
	f1 := c.SetFilters(DefaultFilters())
	c.Apply(*f1, mkItems(1, PageSize), nil)

	f2 := c.LoadMore()
	c.Apply(*f2, nil, nil)

	if c.Status() != StatusReady {
		t.Fatalf("status = %v, want ready", c.Status())
	}
	if c.Cursor().HasMore {
		t.Error("empty page must clear HasMore")
	}
	if got := len(c.Items()); got != PageSize {
		t.Fatalf("items = %d, want %d", got, PageSize)
	}
}

func TestStaleEpochDiscarded(t *testing.T) {
	c := NewController(DefaultFilters())
	old := c.SetFilters(DefaultFilters())

	next := DefaultFilters()
	next.Keyword = "lamp"
	fresh := c.SetFilters(next)

	if !c.Apply(*fresh, mkItems(100, 3), nil) {
		t.Fatal("fresh result was discarded")
	}
	if c.Apply(*old, mkItems(1, PageSize), nil) {
		t.Fatal("stale result was applied")
	}

	items := c.Items()
	if len(items) != 3 || items[0].ID != 100 {
		t.Fatalf("stale result leaked into items: %+v", items)
	}
	if c.Status() != StatusReady {
		t.Errorf("status = %v, want ready", c.Status())
	}
	if c.Cursor().NextOffset != 3 {
		t.Errorf("NextOffset = %d, want 3", c.Cursor().NextOffset)
	}
}

func TestStaleErrorDiscarded(t *testing.T) {
	c := NewController(DefaultFilters())
	old := c.SetFilters(DefaultFilters())
	fresh := c.Refresh()

	if c.Apply(*old, nil, errors.New("boom")) {
		t.Fatal("stale error was applied")
	}
	if c.Status() != StatusLoading {
		t.Fatalf("status = %v, want loading (fresh fetch still pending)", c.Status())
	}

	c.Apply(*fresh, mkItems(1, 2), nil)
	if c.Status() != StatusReady || c.Err() != nil {
		t.Fatalf("status = %v err = %v after fresh success", c.Status(), c.Err())
	}
}

func TestDedupAcrossPages(t *testing.T) {
	c := NewController(DefaultFilters())
	f1 := c.SetFilters(DefaultFilters())
	c.Apply(*f1, mkItems(1, PageSize), nil)

	// A row created between fetches shifts the window so item 12
	// reappears on page two.
	f2 := c.LoadMore()
	page2 := append([]models.ItemSummary{{ID: PageSize, Title: "dup"}}, mkItems(PageSize+1, PageSize-1)...)
	c.Apply(*f2, page2, nil)

	seen := make(map[int]bool)
	for _, it := range c.Items() {
		if seen[it.ID] {
			t.Fatalf("item %d appears twice", it.ID)
		}
		seen[it.ID] = true
	}
	if got := len(c.Items()); got != 2*PageSize-1 {
		t.Errorf("items = %d, want %d", got, 2*PageSize-1)
	}
	// The cursor tracks the raw page length, not the deduped count.
	if got := c.Cursor().NextOffset; got != 2*PageSize {
		t.Errorf("NextOffset = %d, want %d", got, 2*PageSize)
	}
}

func TestDedupResetsPerEpoch(t *testing.T) {
	c := NewController(DefaultFilters())
	f1 := c.SetFilters(DefaultFilters())
	c.Apply(*f1, mkItems(1, 3), nil)

	f2 := c.Refresh()
	c.Apply(*f2, mkItems(1, 3), nil)

	if got := len(c.Items()); got != 3 {
		t.Fatalf("items after refresh = %d, want 3", got)
	}
}

func TestFirstPageErrorThenRetry(t *testing.T) {
	c := NewController(DefaultFilters())
	f := c.SetFilters(DefaultFilters())

	c.Apply(*f, nil, errors.New("status 500"))
	if c.Status() != StatusError {
		t.Fatalf("status = %v, want error", c.Status())
	}
	if c.Err() == nil {
		t.Fatal("Err() is nil in error state")
	}
	if len(c.Items()) != 0 {
		t.Fatalf("items = %d, want 0", len(c.Items()))
	}

	r := c.Retry()
	if r == nil {
		t.Fatal("Retry refused in error state")
	}
	if c.Status() != StatusLoading {
		t.Fatalf("status = %v, want loading (nothing loaded yet)", c.Status())
	}
	if r.Offset != 0 {
		t.Fatalf("retry offset = %d, want 0", r.Offset)
	}

	c.Apply(*r, mkItems(1, 4), nil)
	if c.Status() != StatusReady || c.Err() != nil {
		t.Fatalf("status = %v err = %v after retry success", c.Status(), c.Err())
	}
	if got := len(c.Items()); got != 4 {
		t.Fatalf("items = %d, want 4", got)
	}
}

func TestLaterPageErrorRetainsPages(t *testing.T) {
	c := NewController(DefaultFilters())
	f1 := c.SetFilters(DefaultFilters())
	c.Apply(*f1, mkItems(1, PageSize), nil)

	f2 := c.LoadMore()
	c.Apply(*f2, nil, errors.New("status 502"))

	if c.Status() != StatusError {
		t.Fatalf("status = %v, want error", c.Status())
	}
	if got := len(c.Items()); got != PageSize {
		t.Fatalf("loaded pages dropped on page error: items = %d", got)
	}

	r := c.Retry()
	if r == nil {
		t.Fatal("Retry refused after page error")
	}
	if r.Offset != PageSize {
		t.Fatalf("retry offset = %d, want %d (only the failed page)", r.Offset, PageSize)
	}
	if c.Status() != StatusLoadingMore {
		t.Fatalf("status = %v, want loadingMore", c.Status())
	}

	c.Apply(*r, mkItems(PageSize+1, 5), nil)
	if got := len(c.Items()); got != PageSize+5 {
		t.Fatalf("items = %d, want %d", got, PageSize+5)
	}
}

func TestLoadMoreGating(t *testing.T) {
	c := NewController(DefaultFilters())

	if c.LoadMore() != nil {
		t.Error("LoadMore fired from idle")
	}

	f1 := c.SetFilters(DefaultFilters())
	if c.LoadMore() != nil {
		t.Error("LoadMore fired while first page in flight")
	}

	c.Apply(*f1, mkItems(1, 5), nil)
	if c.LoadMore() != nil {
		t.Error("LoadMore fired with HasMore clear")
	}

	f2 := c.Refresh()
	c.Apply(*f2, mkItems(1, PageSize), nil)
	f3 := c.LoadMore()
	if f3 == nil {
		t.Fatal("LoadMore refused from ready with HasMore")
	}
	if c.LoadMore() != nil {
		t.Error("LoadMore fired while a page was already in flight")
	}
}

func TestGeoGatedStart(t *testing.T) {
	filters := DefaultFilters()
	filters.UseLocation = true
	filters.SortBy = api.SortDistance

	c := NewController(filters)
	if f := c.SetFilters(filters); f != nil {
		t.Fatal("fetch issued before location settled")
	}
	if c.Status() != StatusIdle {
		t.Fatalf("status = %v, want idle while location pending", c.Status())
	}
	if c.EffectiveSort() != api.SortCreatedAt {
		t.Errorf("EffectiveSort = %q, want fallback to %q", c.EffectiveSort(), api.SortCreatedAt)
	}

	// Resolution failed; the feed still starts, just without geo params.
	f := c.SetCoordinate(nil)
	if f == nil {
		t.Fatal("settling with nil coordinate did not start the feed")
	}
	if f.Params.Coord != nil {
		t.Error("geo params sent without a coordinate")
	}
	if c.Status() != StatusLoading {
		t.Fatalf("status = %v, want loading", c.Status())
	}
}

func TestGeoParamsRideWithCoordinate(t *testing.T) {
	filters := DefaultFilters()
	filters.UseLocation = true
	filters.SortBy = api.SortDistance
	filters.RadiusMi = 25

	c := NewController(filters)
	c.SetFilters(filters)

	coord := &models.Coordinate{Lat: 37.2284, Lng: -80.4234}
	f := c.SetCoordinate(coord)
	if f == nil {
		t.Fatal("settling with a coordinate did not start the feed")
	}
	if f.Params.Coord == nil {
		t.Fatal("coordinate missing from params")
	}
	if *f.Params.Coord != *coord {
		t.Errorf("params coord = %+v, want %+v", f.Params.Coord, coord)
	}
	if f.Params.RadiusMi != 25 {
		t.Errorf("params radius = %v, want 25", f.Params.RadiusMi)
	}
	if c.EffectiveSort() != api.SortDistance {
		t.Errorf("EffectiveSort = %q, want %q", c.EffectiveSort(), api.SortDistance)
	}
}

func TestCoordinateChangeStartsNewEpoch(t *testing.T) {
	filters := DefaultFilters()
	filters.UseLocation = true

	c := NewController(filters)
	c.SetFilters(filters)

	a := &models.Coordinate{Lat: 37.2284, Lng: -80.4234}
	f1 := c.SetCoordinate(a)
	c.Apply(*f1, mkItems(1, 3), nil)

	// Same position again: nothing to do.
	if f := c.SetCoordinate(&models.Coordinate{Lat: 37.2284, Lng: -80.4234}); f != nil {
		t.Fatal("unchanged coordinate restarted the feed")
	}
	if got := len(c.Items()); got != 3 {
		t.Fatalf("items = %d after coordinate no-op, want 3", got)
	}

	// Moved: the loaded pages are stale.
	f2 := c.SetCoordinate(&models.Coordinate{Lat: 38.03, Lng: -78.51})
	if f2 == nil {
		t.Fatal("changed coordinate did not restart the feed")
	}
	if len(c.Items()) != 0 {
		t.Error("pages survived a coordinate change")
	}
	if c.Apply(*f1, mkItems(50, 3), nil) {
		t.Error("result from the old coordinate epoch was applied")
	}
}

func TestRefreshDiscardsPagesAndErrors(t *testing.T) {
	c := NewController(DefaultFilters())
	f1 := c.SetFilters(DefaultFilters())
	c.Apply(*f1, mkItems(1, PageSize), nil)
	f2 := c.LoadMore()
	c.Apply(*f2, nil, errors.New("boom"))

	f3 := c.Refresh()
	if f3 == nil {
		t.Fatal("Refresh returned no ticket")
	}
	if c.Status() != StatusLoading {
		t.Fatalf("status = %v, want loading", c.Status())
	}
	if c.Err() != nil {
		t.Error("Err survived a refresh")
	}
	if len(c.Items()) != 0 {
		t.Error("items survived a refresh")
	}
	if f3.Offset != 0 {
		t.Errorf("refresh offset = %d, want 0", f3.Offset)
	}
}

func TestParamsCarryFilters(t *testing.T) {
	min, max := 10.0, 60.0
	filters := FilterState{
		Keyword:  "desk lamp",
		MinPrice: &min,
		MaxPrice: &max,
		Category: models.CategoryElectronics,
		RadiusMi: DefaultRadiusMi,
		SortBy:   api.SortPrice,
	}

	c := NewController(filters)
	f := c.SetFilters(filters)
	if f == nil {
		t.Fatal("no ticket for plain filters")
	}

	p := f.Params
	if p.Keyword != "desk lamp" || p.Category != models.CategoryElectronics || p.SortBy != api.SortPrice {
		t.Errorf("params dropped filter fields: %+v", p)
	}
	if p.MinPrice == nil || *p.MinPrice != 10 || p.MaxPrice == nil || *p.MaxPrice != 60 {
		t.Errorf("params dropped price bounds: %+v", p)
	}
	if p.Coord != nil {
		t.Error("geo params present without UseLocation")
	}
}
