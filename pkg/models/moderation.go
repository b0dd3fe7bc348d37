package models

import "time"

// ModerationStatus is the review state of a piece of content.
type ModerationStatus string

const (
	ModerationApproved ModerationStatus = "approved"
	ModerationFlagged  ModerationStatus = "flagged"
	ModerationPending  ModerationStatus = "pending"
	ModerationRejected ModerationStatus = "rejected"
)

// ModerationEntry is one row of the admin review queue.
type ModerationEntry struct {
	ID          int64            `json:"id"`
	ContentType string           `json:"content_type"` // "item" | "profile"
	ContentID   string           `json:"content_id"`
	UserID      string           `json:"user_id"`
	UserEmail   string           `json:"user_email,omitempty"`
	ContentText string           `json:"content_text"`
	Status      ModerationStatus `json:"status"`
	Flagged     bool             `json:"flagged"`
	MaxScore    float64          `json:"max_score"`
	ReviewNote  string           `json:"review_note,omitempty"`
	CreatedAt   *time.Time       `json:"created_at,omitempty"`
}

// ModerationStats summarizes the review queue by status.
type ModerationStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Flagged  int `json:"flagged"`
	Rejected int `json:"rejected"`
}
