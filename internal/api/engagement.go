package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/SolomonGao/UniPick-sub000/pkg/models"
)

// RecordView bumps the view counter for an item and returns the new
// count. Works anonymously; signed-in views also land in the viewer's
// history.
func (c *httpAPIClient) RecordView(ctx context.Context, id int) (int, error) {
	var out struct {
		ViewCount int `json:"view_count"`
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/items/%d/view", id), nil, &out); err != nil {
		return 0, fmt.Errorf("record view: %w", err)
	}
	return out.ViewCount, nil
}

// ToggleFavorite flips the favorite mark on an item for the signed-in
// user and returns the new state. Requires authentication.
func (c *httpAPIClient) ToggleFavorite(ctx context.Context, id int) (bool, error) {
	var out struct {
		IsFavorited bool `json:"is_favorited"`
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/items/%d/favorite", id), nil, &out); err != nil {
		return false, fmt.Errorf("toggle favorite: %w", err)
	}
	return out.IsFavorited, nil
}

// ItemStats returns the engagement snapshot for one item. IsFavorited
// is always false for anonymous callers.
func (c *httpAPIClient) ItemStats(ctx context.Context, id int) (*models.ItemStats, error) {
	var stats models.ItemStats
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/items/%d/stats", id), nil, &stats); err != nil {
		return nil, fmt.Errorf("item stats: %w", err)
	}
	return &stats, nil
}

// Favorites returns one page of the signed-in user's favorited items,
// most recent first.
func (c *httpAPIClient) Favorites(ctx context.Context, skip, limit int) ([]models.ItemSummary, error) {
	var items []models.ItemSummary
	if err := c.do(ctx, http.MethodGet, pagedPath("/items/user/favorites", skip, limit), nil, &items); err != nil {
		return nil, fmt.Errorf("favorites: %w", err)
	}
	return normalizeItems(items), nil
}

// ViewHistory returns one page of the signed-in user's recently viewed
// items, most recent first.
func (c *httpAPIClient) ViewHistory(ctx context.Context, skip, limit int) ([]models.ItemSummary, error) {
	var items []models.ItemSummary
	if err := c.do(ctx, http.MethodGet, pagedPath("/items/user/view-history", skip, limit), nil, &items); err != nil {
		return nil, fmt.Errorf("view history: %w", err)
	}
	return normalizeItems(items), nil
}

// pagedPath appends skip/limit to a collection path, leaving the
// backend defaults in place for unset values.
func pagedPath(base string, skip, limit int) string {
	q := url.Values{}
	if skip > 0 {
		q.Set("skip", strconv.Itoa(skip))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if len(q) == 0 {
		return base
	}
	return base + "?" + q.Encode()
}
