package models

import "time"

// Coordinate is a GPS point. Latitude in [-90,90], longitude in [-180,180].
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Session holds the tokens for an authenticated user.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the access token has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Profile is the marketplace profile of the signed-in user.
type Profile struct {
	ID                string `json:"id"`
	Email             string `json:"email"`
	Username          string `json:"username,omitempty"`
	FullName          string `json:"full_name,omitempty"`
	AvatarURL         string `json:"avatar_url,omitempty"`
	Bio               string `json:"bio,omitempty"`
	Phone             string `json:"phone,omitempty"`
	Campus            string `json:"campus,omitempty"`
	University        string `json:"university,omitempty"`
	NotificationEmail bool   `json:"notification_email"`
	ShowPhone         bool   `json:"show_phone"`
	Role              string `json:"role,omitempty"`
	CreatedAt         string `json:"created_at,omitempty"`
}

// IsAdmin reports whether the profile carries the admin role.
func (p *Profile) IsAdmin() bool {
	return p.Role == "admin"
}

// ProfilePatch is a partial profile update. Nil fields are left unchanged.
type ProfilePatch struct {
	Username          *string `json:"username,omitempty"`
	FullName          *string `json:"full_name,omitempty"`
	Bio               *string `json:"bio,omitempty"`
	Phone             *string `json:"phone,omitempty"`
	Campus            *string `json:"campus,omitempty"`
	University        *string `json:"university,omitempty"`
	NotificationEmail *bool   `json:"notification_email,omitempty"`
	ShowPhone         *bool   `json:"show_phone,omitempty"`
}
