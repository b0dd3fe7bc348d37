package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/SolomonGao/UniPick-sub000/pkg/models"
)

// Profile returns the signed-in user's marketplace profile.
func (c *httpAPIClient) Profile(ctx context.Context) (*models.Profile, error) {
	var p models.Profile
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &p); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// UpdateProfile applies a partial update; nil fields are left
// unchanged.
func (c *httpAPIClient) UpdateProfile(ctx context.Context, patch models.ProfilePatch) (*models.Profile, error) {
	var p models.Profile
	if err := c.do(ctx, http.MethodPut, "/users/me", patch, &p); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &p, nil
}

// UploadAvatar sends the image as multipart form data and returns the
// public URL of the stored avatar.
func (c *httpAPIClient) UploadAvatar(ctx context.Context, filename string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/users/me/avatar", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("upload avatar: %w", decodeError(resp))
	}

	var out struct {
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("upload avatar decode: %w", err)
	}
	return out.AvatarURL, nil
}
