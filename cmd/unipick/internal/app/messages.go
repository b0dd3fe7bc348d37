// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2026 Solomon Gao. All rights reserved.

package app

import (
	"github.com/SolomonGao/UniPick-sub000/internal/feed"
	"github.com/SolomonGao/UniPick-sub000/internal/geocode"
	"github.com/SolomonGao/UniPick-sub000/pkg/models"
)

// --- Tea messages ---

type authResultMsg struct {
	session *models.Session
	signup  bool
	// persistErr is a failed local save of an otherwise good session.
	persistErr error
	err        error
}

type signedOutMsg struct {
	err error
}

type feedPageMsg struct {
	fetch feed.Fetch
	items []models.ItemSummary
	err   error
}

type locationMsg struct {
	coord *models.Coordinate
	err   error
}

type itemMsg struct {
	id   int
	item *models.ItemSummary
	err  error
}

type itemStatsMsg struct {
	id    int
	stats *models.ItemStats
	err   error
}

type viewCountMsg struct {
	id    int
	count int
	err   error
}

type favoriteMsg struct {
	id        int
	favorited bool
	err       error
}

type itemSavedMsg struct {
	item    *models.ItemSummary
	updated bool
	err     error
}

type itemDeletedMsg struct {
	id  int
	err error
}

type placesMsg struct {
	places []geocode.Place
	err    error
}

type profileMsg struct {
	profile *models.Profile
	err     error
}

type profileSavedMsg struct {
	profile *models.Profile
	err     error
}

type avatarSavedMsg struct {
	url string
	err error
}

type passwordSavedMsg struct {
	err error
}

type favoritesMsg struct {
	items []models.ItemSummary
	err   error
}

type historyMsg struct {
	items []models.ItemSummary
	err   error
}

type queueMsg struct {
	status  models.ModerationStatus
	entries []models.ModerationEntry
	err     error
}

type modStatsMsg struct {
	stats *models.ModerationStats
	err   error
}

type reviewSavedMsg struct {
	logID    int64
	decision models.ModerationStatus
	err      error
}
