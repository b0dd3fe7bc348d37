package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/SolomonGao/UniPick-sub000/pkg/models"
)

// Sort fields accepted by the items endpoint.
const (
	SortCreatedAt = "created_at"
	SortPrice     = "price"
	SortDistance  = "distance"
)

// ListParams are the inputs to one items page query. Zero values mean
// "not set" and are omitted from the request.
type ListParams struct {
	Keyword  string
	MinPrice *float64
	MaxPrice *float64
	Category models.Category
	SortBy   string

	// Coord enables geo filtering and distance sorting. When nil, no
	// geo parameters are sent and a distance sort is downgraded to
	// created_at.
	Coord    *models.Coordinate
	RadiusMi float64

	Skip  int
	Limit int
}

// buildListQuery encodes p as canonical query parameters: keys are
// emitted in sorted order, unset optional filters are omitted, and
// sort_order is always derived from the effective sort field. Equal
// params yield byte-equal query strings.
func buildListQuery(p ListParams) url.Values {
	q := url.Values{}
	if p.Keyword != "" {
		q.Set("keyword", p.Keyword)
	}
	if p.MinPrice != nil {
		q.Set("min_price", formatFloat(*p.MinPrice))
	}
	if p.MaxPrice != nil {
		q.Set("max_price", formatFloat(*p.MaxPrice))
	}
	if p.Category != "" {
		q.Set("category", string(p.Category))
	}

	sortBy := p.SortBy
	if sortBy == "" {
		sortBy = SortCreatedAt
	}
	// Distance sort cannot be satisfied without a coordinate; the
	// query falls back to recency.
	if sortBy == SortDistance && p.Coord == nil {
		sortBy = SortCreatedAt
	}
	q.Set("sort_by", sortBy)
	q.Set("sort_order", sortOrderFor(sortBy))

	// Geo params travel as a complete trio or not at all.
	if p.Coord != nil {
		q.Set("lat", formatFloat(p.Coord.Lat))
		q.Set("lng", formatFloat(p.Coord.Lng))
		q.Set("radius", formatFloat(p.RadiusMi))
	}

	q.Set("skip", strconv.Itoa(p.Skip))
	q.Set("limit", strconv.Itoa(p.Limit))
	return q
}

// sortOrderFor returns the fixed direction for a sort field: newest
// first for recency, cheapest first for price, nearest first for
// distance.
func sortOrderFor(sortBy string) string {
	if sortBy == SortCreatedAt {
		return "desc"
	}
	return "asc"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ListItems runs one page query. Paging and retry policy belong to the
// caller.
func (c *httpAPIClient) ListItems(ctx context.Context, p ListParams) ([]models.ItemSummary, error) {
	var items []models.ItemSummary
	if err := c.do(ctx, http.MethodGet, "/items?"+buildListQuery(p).Encode(), nil, &items); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return normalizeItems(items), nil
}

// GetItem fetches one listing by ID.
func (c *httpAPIClient) GetItem(ctx context.Context, id int) (*models.ItemSummary, error) {
	var item models.ItemSummary
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/items/%d", id), nil, &item); err != nil {
		return nil, fmt.Errorf("get item %d: %w", id, err)
	}
	normalizeItem(&item)
	return &item, nil
}

// CreateItem publishes a new listing. Requires authentication.
func (c *httpAPIClient) CreateItem(ctx context.Context, draft models.ItemDraft) (*models.ItemSummary, error) {
	var item models.ItemSummary
	if err := c.do(ctx, http.MethodPost, "/items", draft, &item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	normalizeItem(&item)
	return &item, nil
}

// UpdateItem replaces a listing owned by the signed-in user.
func (c *httpAPIClient) UpdateItem(ctx context.Context, id int, draft models.ItemDraft) (*models.ItemSummary, error) {
	var item models.ItemSummary
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/items/%d", id), draft, &item); err != nil {
		return nil, fmt.Errorf("update item %d: %w", id, err)
	}
	normalizeItem(&item)
	return &item, nil
}

// DeleteItem removes a listing owned by the signed-in user.
func (c *httpAPIClient) DeleteItem(ctx context.Context, id int) error {
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/items/%d", id), nil, nil); err != nil {
		return fmt.Errorf("delete item %d: %w", id, err)
	}
	return nil
}

// normalizeItems replaces nil image slices so render code can range
// without nil checks.
func normalizeItems(items []models.ItemSummary) []models.ItemSummary {
	for i := range items {
		normalizeItem(&items[i])
	}
	return items
}

func normalizeItem(item *models.ItemSummary) {
	if item.Images == nil {
		item.Images = []string{}
	}
}
