package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/SolomonGao/UniPick-sub000/pkg/models"
)

// ReviewQueue returns moderation log entries awaiting human review,
// newest first. Admin only; non-admins get PermissionDenied.
func (c *httpAPIClient) ReviewQueue(ctx context.Context, status models.ModerationStatus, limit, offset int) ([]models.ModerationEntry, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", string(status))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}

	path := "/moderation/admin/review-queue"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var entries []models.ModerationEntry
	if err := c.do(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return nil, fmt.Errorf("review queue: %w", err)
	}
	return entries, nil
}

// SubmitReview records an admin decision on a queue entry. decision
// must be approved or rejected.
func (c *httpAPIClient) SubmitReview(ctx context.Context, logID int64, decision models.ModerationStatus, note string) error {
	body := struct {
		LogID    int64  `json:"log_id"`
		Decision string `json:"decision"`
		Note     string `json:"note,omitempty"`
	}{LogID: logID, Decision: string(decision), Note: note}

	if err := c.do(ctx, http.MethodPost, "/moderation/admin/review", body, nil); err != nil {
		return fmt.Errorf("submit review: %w", err)
	}
	return nil
}

// ModerationStats returns queue totals grouped by status. Admin only.
func (c *httpAPIClient) ModerationStats(ctx context.Context) (*models.ModerationStats, error) {
	var stats models.ModerationStats
	if err := c.do(ctx, http.MethodGet, "/moderation/admin/stats", nil, &stats); err != nil {
		return nil, fmt.Errorf("moderation stats: %w", err)
	}
	return &stats, nil
}
