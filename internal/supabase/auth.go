// Package supabase talks to the Supabase auth and storage REST
// surfaces. Only the operations the app needs are covered.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/SolomonGao/UniPick-sub000/pkg/models"
)

const requestTimeout = 10 * time.Second

// Auth is the interface for the Supabase auth endpoints.
// Tests inject a mock.
type Auth interface {
	SignUp(ctx context.Context, email, password string) (*models.Session, error)
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*models.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	UpdatePassword(ctx context.Context, accessToken, newPassword string) error
}

type httpAuthClient struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// NewAuth returns an Auth client for the Supabase project at baseURL.
func NewAuth(baseURL, anonKey string) Auth {
	return &httpAuthClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// apiError is a non-2xx auth response.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("auth %d: %s", e.Status, e.Message)
}

// tokenResponse is the session payload the token and signup endpoints
// return.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// SignUp registers a new account. Projects with email confirmation
// enabled return no tokens yet; that surfaces as
// ErrConfirmationRequired.
func (c *httpAuthClient) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	body := map[string]string{"email": email, "password": password}
	var tr tokenResponse
	if err := c.doJSON(ctx, "/auth/v1/signup", "", body, &tr); err != nil {
		var ae *apiError
		if errors.As(err, &ae) && strings.Contains(strings.ToLower(ae.Message), "registered") {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("sign up: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, ErrConfirmationRequired
	}
	return sessionFromToken(tr, time.Now())
}

// SignIn exchanges credentials for a session.
func (c *httpAuthClient) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	body := map[string]string{"email": email, "password": password}
	var tr tokenResponse
	if err := c.doJSON(ctx, "/auth/v1/token?grant_type=password", "", body, &tr); err != nil {
		var ae *apiError
		if errors.As(err, &ae) && (ae.Status == http.StatusBadRequest || ae.Status == http.StatusUnauthorized) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return sessionFromToken(tr, time.Now())
}

// Refresh exchanges a refresh token for a new session. A rejected
// refresh token surfaces as ErrSessionExpired.
func (c *httpAuthClient) Refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	body := map[string]string{"refresh_token": refreshToken}
	var tr tokenResponse
	if err := c.doJSON(ctx, "/auth/v1/token?grant_type=refresh_token", "", body, &tr); err != nil {
		var ae *apiError
		if errors.As(err, &ae) && (ae.Status == http.StatusBadRequest || ae.Status == http.StatusUnauthorized) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	return sessionFromToken(tr, time.Now())
}

// SignOut revokes the session server-side. A failed revoke is still an
// error; the caller decides whether to drop local state anyway.
func (c *httpAuthClient) SignOut(ctx context.Context, accessToken string) error {
	if err := c.doJSON(ctx, "/auth/v1/logout", accessToken, struct{}{}, nil); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// UpdatePassword sets a new password for the signed-in user.
func (c *httpAuthClient) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	body := map[string]string{"password": newPassword}
	if err := c.doJSONMethod(ctx, http.MethodPut, "/auth/v1/user", accessToken, body, nil); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (c *httpAuthClient) doJSON(ctx context.Context, path, bearer string, body, out interface{}) error {
	return c.doJSONMethod(ctx, http.MethodPost, path, bearer, body, out)
}

func (c *httpAuthClient) doJSONMethod(ctx context.Context, method, path, bearer string, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.anonKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAuthError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeAuthError normalizes the several error shapes the auth service
// emits into one apiError.
func decodeAuthError(resp *http.Response) error {
	ae := &apiError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var body struct {
		Msg         string `json:"msg"`
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		switch {
		case body.Description != "":
			ae.Message = body.Description
		case body.Msg != "":
			ae.Message = body.Msg
		case body.Error != "":
			ae.Message = body.Error
		}
	}
	return ae
}
