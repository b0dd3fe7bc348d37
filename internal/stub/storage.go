package stub

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SolomonGao/UniPick-sub000/internal/supabase"
)

// maxObjectBytes caps one storage upload.
const maxObjectBytes = 10 << 20

func knownBucket(name string) bool {
	return name == supabase.BucketItemImages || name == supabase.BucketUserAvatars
}

func (s *Server) putObject(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	path := chi.URLParam(r, "*")
	if !knownBucket(bucket) {
		jsonResponse(w, http.StatusNotFound, map[string]string{
			"statusCode": "404", "error": "Bucket not found", "message": "Bucket not found",
		})
		return
	}
	if path == "" {
		jsonResponse(w, http.StatusBadRequest, map[string]string{
			"statusCode": "400", "error": "InvalidKey", "message": "Object key is required",
		})
		return
	}
	if bearerToken(r) == "" {
		jsonResponse(w, http.StatusUnauthorized, map[string]string{
			"statusCode": "401", "error": "Unauthorized", "message": "Authorization required",
		})
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxObjectBytes+1))
	if err != nil {
		jsonResponse(w, http.StatusInternalServerError, map[string]string{
			"statusCode": "500", "error": "ReadFailed", "message": "Could not read upload body",
		})
		return
	}
	if len(data) > maxObjectBytes {
		jsonResponse(w, http.StatusRequestEntityTooLarge, map[string]string{
			"statusCode": "413", "error": "EntityTooLarge", "message": "The object exceeded the maximum allowed size",
		})
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	s.cat.putObject(bucket+"/"+path, data, contentType)

	jsonResponse(w, http.StatusOK, map[string]string{"Key": bucket + "/" + path})
}

func (s *Server) serveObject(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	path := chi.URLParam(r, "*")

	o, ok := s.cat.getObject(bucket + "/" + path)
	if !ok {
		jsonResponse(w, http.StatusNotFound, map[string]string{
			"statusCode": "404", "error": "not_found", "message": "Object not found",
		})
		return
	}

	w.Header().Set("Content-Type", o.contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(o.data)
}
