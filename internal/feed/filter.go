// Package feed implements the paginated item feed: an immutable filter
// snapshot, an explicit paging cursor, and an epoch-guarded controller
// that folds page fetches into an append-only item list.
package feed

import (
	"github.com/SolomonGao/UniPick-sub000/internal/api"
	"github.com/SolomonGao/UniPick-sub000/pkg/models"
)

// PageSize is the fixed page length requested from the backend. A
// returned page shorter than this is the authoritative end-of-data
// signal.
const PageSize = 12

// DefaultRadiusMi is the geo search radius used until the user picks
// another.
const DefaultRadiusMi = 10

// FilterState is one complete snapshot of the search form. It is
// replaced wholesale on every submit, never patched in place. Nil
// price bounds mean unset. Numeric sanity (non-negative prices, min
// not above max) is enforced at the form boundary before a snapshot is
// built.
type FilterState struct {
	Keyword     string
	MinPrice    *float64
	MaxPrice    *float64
	Category    models.Category
	RadiusMi    float64
	SortBy      string
	UseLocation bool
}

// DefaultFilters returns the mount-time snapshot. Clearing the form
// yields exactly this value, so clearing twice is the same as clearing
// once.
func DefaultFilters() FilterState {
	return FilterState{
		RadiusMi: DefaultRadiusMi,
		SortBy:   api.SortCreatedAt,
	}
}
