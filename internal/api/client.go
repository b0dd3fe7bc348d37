// Package api is the REST client for the UniPick marketplace backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/SolomonGao/UniPick-sub000/pkg/models"
)

const (
	requestTimeout = 10 * time.Second
	uploadTimeout  = 30 * time.Second
)

// Client is the interface for the UniPick REST API.
// The real implementation talks to the backend over HTTP; tests inject
// a mock.
type Client interface {
	// Items
	ListItems(ctx context.Context, p ListParams) ([]models.ItemSummary, error)
	GetItem(ctx context.Context, id int) (*models.ItemSummary, error)
	CreateItem(ctx context.Context, draft models.ItemDraft) (*models.ItemSummary, error)
	UpdateItem(ctx context.Context, id int, draft models.ItemDraft) (*models.ItemSummary, error)
	DeleteItem(ctx context.Context, id int) error

	// Engagement
	RecordView(ctx context.Context, id int) (int, error)
	ToggleFavorite(ctx context.Context, id int) (bool, error)
	ItemStats(ctx context.Context, id int) (*models.ItemStats, error)
	Favorites(ctx context.Context, skip, limit int) ([]models.ItemSummary, error)
	ViewHistory(ctx context.Context, skip, limit int) ([]models.ItemSummary, error)

	// Profile
	Profile(ctx context.Context) (*models.Profile, error)
	UpdateProfile(ctx context.Context, patch models.ProfilePatch) (*models.Profile, error)
	UploadAvatar(ctx context.Context, filename string, data []byte) (string, error)

	// Moderation (admin only)
	ReviewQueue(ctx context.Context, status models.ModerationStatus, limit, offset int) ([]models.ModerationEntry, error)
	SubmitReview(ctx context.Context, logID int64, decision models.ModerationStatus, note string) error
	ModerationStats(ctx context.Context) (*models.ModerationStats, error)
}

// --- HTTP implementation ---

type httpAPIClient struct {
	baseURL    string
	httpClient *http.Client
	token      func() string
}

// New returns a Client for the backend at baseURL (including the
// /api/v1 prefix). token is consulted on every request and may return
// "" for anonymous browsing.
func New(baseURL string, token func() string) Client {
	if token == nil {
		token = func() string { return "" }
	}
	return &httpAPIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: requestTimeout},
		token:      token,
	}
}

// do sends one request and decodes the JSON response into out when out
// is non-nil. Non-2xx responses become a *TransportError. A failed
// request is never retried here; retry policy belongs to the caller.
func (c *httpAPIClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError maps a non-2xx response to a *TransportError, pulling
// the machine code and message out of the error envelope when the body
// has one. Validation errors from the backend framework use a
// different detail shape; those keep the generic status text.
func decodeError(resp *http.Response) error {
	te := &TransportError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var envelope struct {
		Detail struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		} `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Detail.Message != "" {
		te.Code = envelope.Detail.Error
		te.Message = envelope.Detail.Message
	}
	return te
}
