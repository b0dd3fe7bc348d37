package supabase

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestUploadSendsObject(t *testing.T) {
	var gotMethod, gotPath, gotType, gotAuth, gotKey, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("apikey")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	st := NewStorage(srv.URL, "anon-key")
	err := st.Upload(context.Background(), "at-1", BucketItemImages, "items/7/photo.jpg", "image/jpeg", []byte("jpegdata"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("method = %q", gotMethod)
	}
	if gotPath != "/storage/v1/object/item-images/items/7/photo.jpg" {
		t.Errorf("path = %q", gotPath)
	}
	if gotType != "image/jpeg" || gotBody != "jpegdata" {
		t.Errorf("content = %q %q", gotType, gotBody)
	}
	if gotAuth != "Bearer at-1" || gotKey != "anon-key" {
		t.Errorf("auth headers = %q %q", gotAuth, gotKey)
	}
}

func TestUploadErrorCarriesStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `{"message":"The resource already exists"}`)
	}))
	defer srv.Close()

	err := NewStorage(srv.URL, "anon").Upload(context.Background(), "at-1", BucketUserAvatars, "avatars/u/1.png", "image/png", []byte("x"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "409") || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("err = %v, want status and body detail", err)
	}
}

func TestPublicURL(t *testing.T) {
	st := NewStorage("https://proj.supabase.co/", "anon")
	got := st.PublicURL(BucketUserAvatars, "avatars/user-9/ab12.png")
	want := "https://proj.supabase.co/storage/v1/object/public/user-avatars/avatars/user-9/ab12.png"
	if got != want {
		t.Errorf("PublicURL = %q, want %q", got, want)
	}
}
