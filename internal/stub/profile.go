package stub

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SolomonGao/UniPick-sub000/internal/supabase"
	"github.com/SolomonGao/UniPick-sub000/internal/validate"
	"github.com/SolomonGao/UniPick-sub000/pkg/models"
)

func profileOf(a account) models.Profile {
	return models.Profile{
		ID:                a.ID,
		Email:             a.Email,
		Username:          a.Username,
		FullName:          a.FullName,
		AvatarURL:         a.AvatarURL,
		Bio:               a.Bio,
		Phone:             a.Phone,
		Campus:            a.Campus,
		University:        a.University,
		NotificationEmail: a.NotifyEmail,
		ShowPhone:         a.ShowPhone,
		Role:              a.Role,
		CreatedAt:         a.CreatedAt.Format(time.RFC3339),
	}
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	a, _ := accountFromContext(r.Context())
	jsonResponse(w, http.StatusOK, profileOf(a))
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	a, _ := accountFromContext(r.Context())

	var patch models.ProfilePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeValidationError(w, bodyViolation("", "Input should be a valid object", "model_attributes_type"))
		return
	}
	if err := validate.ProfilePatch(patch); err != nil {
		var ve *validate.ValidationError
		if errors.As(err, &ve) {
			writeValidationError(w, bodyViolation(ve.Field, ve.Reason, "value_error"))
		} else {
			writeValidationError(w, bodyViolation("", err.Error(), "value_error"))
		}
		return
	}

	updated, err := s.cat.applyProfilePatch(a.ID, patch)
	if err != nil {
		writeError(w, http.StatusNotFound, "ProfileNotFound", "Profile not found", nil)
		return
	}
	jsonResponse(w, http.StatusOK, profileOf(updated))
}

func (s *Server) uploadAvatar(w http.ResponseWriter, r *http.Request) {
	a, _ := accountFromContext(r.Context())

	if err := r.ParseMultipartForm(validate.MaxImageBytes + 1<<20); err != nil {
		writeValidationError(w, bodyViolation("file", "Could not read multipart form", "value_error"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeValidationError(w, bodyViolation("file", "A file field is required", "missing"))
		return
	}
	defer file.Close()

	contentType, err := validate.ImageUpload(header.Filename, header.Size)
	if err != nil {
		writeValidationError(w, bodyViolation("file", err.Error(), "value_error"))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "UploadFailed", "Could not read upload", nil)
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	name := fmt.Sprintf("%s-%s%s", a.ID, uuid.NewString(), ext)
	s.cat.putObject(supabase.BucketUserAvatars+"/"+name, data, contentType)

	url := fmt.Sprintf("http://%s/storage/v1/object/public/%s/%s", r.Host, supabase.BucketUserAvatars, name)
	if err := s.cat.setAvatar(a.ID, url); err != nil {
		writeError(w, http.StatusNotFound, "ProfileNotFound", "Profile not found", nil)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"avatar_url": url})
}
