package supabase

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/SolomonGao/UniPick-sub000/pkg/models"
)

// accessClaims are the fields read out of a Supabase access token.
type accessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// sessionFromToken maps a token response to a Session. Identity and
// expiry come from the response body when present, otherwise from the
// access token claims. The token is parsed without signature
// verification here; verifying signatures is the backend's job.
func sessionFromToken(tr tokenResponse, now time.Time) (*models.Session, error) {
	if tr.AccessToken == "" || tr.RefreshToken == "" {
		return nil, errors.New("token response missing tokens")
	}

	sess := &models.Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		UserID:       tr.User.ID,
		Email:        tr.User.Email,
	}
	if tr.ExpiresIn > 0 {
		sess.ExpiresAt = now.Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	if sess.UserID == "" || sess.Email == "" || sess.ExpiresAt.IsZero() {
		claims, err := parseClaims(tr.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("incomplete token response: %w", err)
		}
		if sess.UserID == "" {
			sess.UserID = claims.Subject
		}
		if sess.Email == "" {
			sess.Email = claims.Email
		}
		if sess.ExpiresAt.IsZero() && claims.ExpiresAt != nil {
			sess.ExpiresAt = claims.ExpiresAt.Time
		}
	}

	if sess.UserID == "" {
		return nil, errors.New("token carries no user identity")
	}
	return sess, nil
}

func parseClaims(token string) (*accessClaims, error) {
	claims := &accessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}
