// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2026 Solomon Gao. All rights reserved.

package app

import (
	"context"
	"sync"

	"github.com/SolomonGao/UniPick-sub000/pkg/models"
)

// SessionBox holds the active session behind a mutex. The update loop
// writes it on sign-in and sign-out; the API client's token callback
// reads it from fetch goroutines.
type SessionBox struct {
	mu   sync.Mutex
	sess *models.Session
}

func NewSessionBox() *SessionBox {
	return &SessionBox{}
}

// Set replaces the active session. nil signs out.
func (b *SessionBox) Set(s *models.Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sess = s
}

// Get returns a copy of the active session, or nil.
func (b *SessionBox) Get() *models.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sess == nil {
		return nil
	}
	s := *b.sess
	return &s
}

// Token returns the current access token, or "" when signed out.
// Shaped to plug straight into api.New.
func (b *SessionBox) Token() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sess == nil {
		return ""
	}
	return b.sess.AccessToken
}

// SessionStore persists the session across runs. *store.Store
// satisfies it.
type SessionStore interface {
	SaveSession(s *models.Session) error
	ClearSession() error
}

// Locator resolves the browsing coordinate. *location.Provider
// satisfies it; tests inject fakes. Refresh runs inside a command, one
// at a time, so the provider's single-goroutine contract holds.
type Locator interface {
	Current() *models.Coordinate
	Refresh(ctx context.Context) *models.Coordinate
	LastError() error
}
