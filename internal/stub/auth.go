package stub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"

	"github.com/SolomonGao/UniPick-sub000/internal/api"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const userContextKey contextKey = "user"

// requireUser validates the bearer token and loads the account into
// the request context. Missing or bad credentials end the request
// with 401.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, err := s.accountFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, api.CodeAuthenticationRequired, "Authentication required", nil)
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, a)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// optionalUser attaches the account when a valid token is present and
// lets the request through anonymously otherwise.
func (s *Server) optionalUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a, err := s.accountFromRequest(r); err == nil {
			r = r.WithContext(context.WithValue(r.Context(), userContextKey, a))
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin must run after requireUser.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, ok := accountFromContext(r.Context())
		if !ok || a.Role != "admin" {
			writeError(w, http.StatusForbidden, api.CodePermissionDenied, "Admin access required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func accountFromContext(ctx context.Context) (account, bool) {
	a, ok := ctx.Value(userContextKey).(account)
	return a, ok
}

// accountFromRequest parses the bearer token and resolves it to a
// live account. Role always comes from the account record, not the
// token, so a role change takes effect on the next request.
func (s *Server) accountFromRequest(r *http.Request) (account, error) {
	raw := bearerToken(r)
	if raw == "" {
		return account{}, errors.New("no bearer token")
	}

	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !tok.Valid {
		return account{}, errors.New("invalid token")
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return account{}, errors.New("invalid claims")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return account{}, errors.New("token carries no subject")
	}
	return s.cat.accountByID(sub)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return h[7:]
	}
	return ""
}

// requireAPIKey rejects requests without an apikey header, the way
// the hosted auth and storage gateways do.
func requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") == "" {
			jsonResponse(w, http.StatusUnauthorized, map[string]interface{}{
				"msg": "No API key found in request", "code": 401,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- auth endpoints ---

type tokenPayload struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (s *Server) signAccess(a account) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   a.ID,
		"email": a.Email,
		"role":  a.Role,
		"iat":   now.Unix(),
		"exp":   now.Add(tokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) tokenPayloadFor(a account, refreshToken string) (tokenPayload, error) {
	signed, err := s.signAccess(a)
	if err != nil {
		return tokenPayload{}, err
	}
	p := tokenPayload{
		AccessToken:  signed,
		TokenType:    "bearer",
		ExpiresIn:    int(tokenTTL.Seconds()),
		RefreshToken: refreshToken,
	}
	p.User.ID = a.ID
	p.User.Email = a.Email
	return p, nil
}

func (s *Server) issueTokens(a account) (tokenPayload, error) {
	return s.tokenPayloadFor(a, s.cat.issueRefresh(a.ID))
}

func authMessage(w http.ResponseWriter, status int, msg string) {
	jsonResponse(w, status, map[string]string{"msg": msg})
}

func authGrantError(w http.ResponseWriter, code, description string) {
	jsonResponse(w, http.StatusBadRequest, map[string]string{
		"error":             code,
		"error_description": description,
	})
}

// authSignUp registers an account and signs it in immediately; email
// confirmation is not simulated.
func (s *Server) authSignUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authMessage(w, http.StatusBadRequest, "Could not read signup params")
		return
	}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		authMessage(w, http.StatusBadRequest, "Unable to validate email address: invalid format")
		return
	}
	if len(req.Password) < 6 {
		authMessage(w, http.StatusBadRequest, "Password should be at least 6 characters")
		return
	}

	a, err := s.cat.createAccount(req.Email, req.Password, nil, s.now())
	if err != nil {
		if errors.Is(err, errEmailTaken) {
			authMessage(w, http.StatusBadRequest, "User already registered")
			return
		}
		authMessage(w, http.StatusInternalServerError, "Database error saving new user")
		return
	}

	payload, err := s.issueTokens(a)
	if err != nil {
		authMessage(w, http.StatusInternalServerError, "Error generating token")
		return
	}
	jsonResponse(w, http.StatusOK, payload)
}

// authToken handles both password and refresh grants, selected by the
// grant_type query parameter.
func (s *Server) authToken(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("grant_type") {
	case "password":
		s.passwordGrant(w, r)
	case "refresh_token":
		s.refreshGrant(w, r)
	default:
		authGrantError(w, "unsupported_grant_type", "The grant type is not supported")
	}
}

func (s *Server) passwordGrant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authGrantError(w, "invalid_grant", "Could not read password grant params")
		return
	}

	a, err := s.cat.authenticate(req.Email, req.Password)
	if err != nil {
		authGrantError(w, "invalid_grant", "Invalid login credentials")
		return
	}

	payload, err := s.issueTokens(a)
	if err != nil {
		authMessage(w, http.StatusInternalServerError, "Error generating token")
		return
	}
	jsonResponse(w, http.StatusOK, payload)
}

func (s *Server) refreshGrant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		authGrantError(w, "invalid_grant", "Could not read refresh token grant params")
		return
	}

	userID, next, err := s.cat.rotateRefresh(req.RefreshToken)
	if err != nil {
		authGrantError(w, "invalid_grant", "Invalid Refresh Token: Refresh Token Not Found")
		return
	}
	a, err := s.cat.accountByID(userID)
	if err != nil {
		authGrantError(w, "invalid_grant", "User from refresh token no longer exists")
		return
	}

	payload, err := s.tokenPayloadFor(a, next)
	if err != nil {
		authMessage(w, http.StatusInternalServerError, "Error generating token")
		return
	}
	jsonResponse(w, http.StatusOK, payload)
}

// authSignOut drops every refresh token for the bearer's account. A
// bad or missing token still gets a 204 so sign-out never fails
// client-side.
func (s *Server) authSignOut(w http.ResponseWriter, r *http.Request) {
	if a, err := s.accountFromRequest(r); err == nil {
		s.cat.revokeRefresh(a.ID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) authUpdateUser(w http.ResponseWriter, r *http.Request) {
	a, err := s.accountFromRequest(r)
	if err != nil {
		authMessage(w, http.StatusUnauthorized, "This endpoint requires a Bearer token")
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authMessage(w, http.StatusBadRequest, "Could not read user update params")
		return
	}
	if req.Password != "" {
		if len(req.Password) < 6 {
			authMessage(w, http.StatusUnprocessableEntity, "Password should be at least 6 characters")
			return
		}
		if err := s.cat.setPassword(a.ID, req.Password); err != nil {
			authMessage(w, http.StatusInternalServerError, "Error updating user")
			return
		}
	}

	jsonResponse(w, http.StatusOK, map[string]string{"id": a.ID, "email": a.Email})
}
