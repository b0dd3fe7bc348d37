// Package validate checks user input at the form boundary, before it
// reaches the backend. Limits mirror what the backend enforces so most
// mistakes are caught without a round trip.
package validate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/SolomonGao/UniPick-sub000/pkg/models"
)

// Field limits enforced by the backend.
const (
	TitleMin    = 2
	TitleMax    = 100
	UsernameMin = 2
	UsernameMax = 50
	FullNameMin = 2
	FullNameMax = 100
	BioMax      = 500
	PhoneMax    = 20
	CampusMax   = 100
	PasswordMin = 8

	// MaxImageBytes caps one image upload.
	MaxImageBytes = 5 * 1024 * 1024
)

// imageExts are the upload types the avatar and listing endpoints
// accept, keyed by lowercase filename extension.
var imageExts = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// ValidationError reports which field failed and why. The message is
// written for direct display in the form.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func fieldErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NormalizeKeyword canonicalizes a search keyword: Unicode is composed
// to NFC so visually identical strings query identically, and
// surrounding plus repeated inner whitespace is collapsed.
func NormalizeKeyword(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// Email does a cheap shape check; real verification is the auth
// service's job.
func Email(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fieldErr("email", "is required")
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 || !strings.Contains(email[at+1:], ".") {
		return fieldErr("email", "does not look like an email address")
	}
	return nil
}

// Password enforces the minimum length the backend requires.
func Password(password string) error {
	if utf8.RuneCountInString(password) < PasswordMin {
		return fieldErr("password", fmt.Sprintf("must be at least %d characters", PasswordMin))
	}
	return nil
}

// PriceRange checks an optional min/max filter pair.
func PriceRange(min, max *float64) error {
	if min != nil && *min < 0 {
		return fieldErr("min_price", "cannot be negative")
	}
	if max != nil && *max < 0 {
		return fieldErr("max_price", "cannot be negative")
	}
	if min != nil && max != nil && *min > *max {
		return fieldErr("min_price", "cannot exceed max_price")
	}
	return nil
}

// ItemDraft checks a listing before it is published.
func ItemDraft(d models.ItemDraft) error {
	if n := utf8.RuneCountInString(strings.TrimSpace(d.Title)); n < TitleMin || n > TitleMax {
		return fieldErr("title", fmt.Sprintf("must be %d to %d characters", TitleMin, TitleMax))
	}
	if d.Price <= 0 {
		return fieldErr("price", "must be greater than zero")
	}
	if d.Category != "" && !models.ValidCategory(d.Category) {
		return fieldErr("category", "is not a known category")
	}
	if d.Latitude < -90 || d.Latitude > 90 {
		return fieldErr("latitude", "must be between -90 and 90")
	}
	if d.Longitude < -180 || d.Longitude > 180 {
		return fieldErr("longitude", "must be between -180 and 180")
	}
	return nil
}

// ProfilePatch checks the fields present in a partial profile update.
func ProfilePatch(p models.ProfilePatch) error {
	if p.Username != nil {
		if n := utf8.RuneCountInString(*p.Username); n < UsernameMin || n > UsernameMax {
			return fieldErr("username", fmt.Sprintf("must be %d to %d characters", UsernameMin, UsernameMax))
		}
	}
	if p.FullName != nil {
		if n := utf8.RuneCountInString(*p.FullName); n < FullNameMin || n > FullNameMax {
			return fieldErr("full_name", fmt.Sprintf("must be %d to %d characters", FullNameMin, FullNameMax))
		}
	}
	if p.Bio != nil && utf8.RuneCountInString(*p.Bio) > BioMax {
		return fieldErr("bio", fmt.Sprintf("must be at most %d characters", BioMax))
	}
	if p.Phone != nil && utf8.RuneCountInString(*p.Phone) > PhoneMax {
		return fieldErr("phone", fmt.Sprintf("must be at most %d characters", PhoneMax))
	}
	if p.Campus != nil && utf8.RuneCountInString(*p.Campus) > CampusMax {
		return fieldErr("campus", fmt.Sprintf("must be at most %d characters", CampusMax))
	}
	if p.University != nil && utf8.RuneCountInString(*p.University) > CampusMax {
		return fieldErr("university", fmt.Sprintf("must be at most %d characters", CampusMax))
	}
	return nil
}

// ImageUpload checks an image file name and size against what the
// upload endpoints accept, returning the content type to send.
func ImageUpload(filename string, size int64) (string, error) {
	ext := strings.ToLower(filename)
	if i := strings.LastIndex(ext, "."); i >= 0 {
		ext = ext[i:]
	} else {
		ext = ""
	}
	contentType, ok := imageExts[ext]
	if !ok {
		return "", fieldErr("image", "must be a jpg, png, webp or gif file")
	}
	if size > MaxImageBytes {
		return "", fieldErr("image", "must be 5MB or smaller")
	}
	if size == 0 {
		return "", fieldErr("image", "is empty")
	}
	return contentType, nil
}
