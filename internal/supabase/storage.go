package supabase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const uploadTimeout = 30 * time.Second

// Buckets the marketplace uses.
const (
	BucketItemImages  = "item-images"
	BucketUserAvatars = "user-avatars"
)

// Storage is the interface for the Supabase storage endpoints.
type Storage interface {
	Upload(ctx context.Context, accessToken, bucket, object, contentType string, data []byte) error
	PublicURL(bucket, object string) string
}

type httpStorageClient struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// NewStorage returns a Storage client for the Supabase project at
// baseURL.
func NewStorage(baseURL, anonKey string) Storage {
	return &httpStorageClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		httpClient: &http.Client{Timeout: uploadTimeout},
	}
}

// Upload stores an object in a bucket under the key the caller picks.
func (c *httpStorageClient) Upload(ctx context.Context, accessToken, bucket, object, contentType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, bucket, object)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("apikey", c.anonKey)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", bucket, object, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("upload %s/%s: status %d: %s", bucket, object, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

// PublicURL returns the public fetch URL for an object in a public
// bucket.
func (c *httpStorageClient) PublicURL(bucket, object string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, bucket, object)
}
