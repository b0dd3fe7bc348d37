// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2026 Solomon Gao. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/joho/godotenv"

	"github.com/SolomonGao/UniPick-sub000/cmd/unipick/internal/app"
	"github.com/SolomonGao/UniPick-sub000/internal/api"
	"github.com/SolomonGao/UniPick-sub000/internal/config"
	"github.com/SolomonGao/UniPick-sub000/internal/geocode"
	"github.com/SolomonGao/UniPick-sub000/internal/location"
	"github.com/SolomonGao/UniPick-sub000/internal/store"
	"github.com/SolomonGao/UniPick-sub000/internal/supabase"
	"github.com/SolomonGao/UniPick-sub000/pkg/models"
)

func main() {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "unipick: loading .env: %v\n", err)
		}
	}

	cfg := config.Load()

	st, err := store.Open(cfg.Data.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unipick: open local store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	auth := supabase.NewAuth(cfg.Supabase.URL, cfg.Supabase.AnonKey)
	storage := supabase.NewStorage(cfg.Supabase.URL, cfg.Supabase.AnonKey)
	geocoder := geocode.New(cfg.Geocoder.BaseURL, cfg.Geocoder.Token)

	sessions := app.NewSessionBox()
	restored := restoreSession(st, auth)
	sessions.Set(restored)

	m := app.New(app.Deps{
		API:      api.New(cfg.API.BaseURL, sessions.Token),
		Auth:     auth,
		Storage:  storage,
		Geocoder: geocoder,
		Locator:  location.New(location.CampusSource(geocoder, cfg.Data.Campus), st, nil),
		Sessions: sessions,
		Saver:    st,
	}, restored)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "unipick: %v\n", err)
		os.Exit(1)
	}
}

// restoreSession loads the persisted session and refreshes it when the
// access token has expired. Anything unusable clears back to a
// signed-out start.
func restoreSession(st *store.Store, auth supabase.Auth) *models.Session {
	sess, err := st.Session()
	if err != nil || sess == nil {
		return nil
	}
	if !sess.Expired(time.Now()) {
		return sess
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	fresh, err := auth.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unipick: stored session expired, sign in again (%v)\n", err)
		_ = st.ClearSession()
		return nil
	}
	if err := st.SaveSession(fresh); err != nil {
		fmt.Fprintf(os.Stderr, "unipick: saving refreshed session: %v\n", err)
	}
	return fresh
}
