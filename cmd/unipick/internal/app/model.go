// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2026 Solomon Gao. All rights reserved.

package app

import (
	"github.com/SolomonGao/UniPick-sub000/internal/api"
	"github.com/SolomonGao/UniPick-sub000/internal/feed"
	"github.com/SolomonGao/UniPick-sub000/internal/geocode"
	"github.com/SolomonGao/UniPick-sub000/internal/supabase"
	"github.com/SolomonGao/UniPick-sub000/pkg/models"
)

type appState int

const (
	stateLogin appState = iota
	stateFeed
	stateDetail
	stateSell
	stateProfile
	stateModeration
	stateError
)

// categoryOptions is the category picker order; index 0 means "all".
var categoryOptions = []string{"all", "electronics", "furniture", "books", "sports", "music", "others"}

// sortOptions is the sort picker order.
var sortOptions = []string{api.SortCreatedAt, api.SortPrice, api.SortDistance}

// modFilters is the tab cycle of the moderation queue.
var modFilters = []models.ModerationStatus{
	models.ModerationFlagged,
	models.ModerationPending,
	models.ModerationRejected,
}

// Filter form rows.
const (
	filterKeyword = iota
	filterMinPrice
	filterMaxPrice
	filterCategory
	filterRadius
	filterSort
	filterLocation
	filterApply
	filterClear
	filterRows
)

// Sell form rows.
const (
	sellTitle = iota
	sellPrice
	sellCategory
	sellDescription
	sellLocation
	sellImages
	sellPublish
	sellRows
)

// Profile edit rows.
const (
	profUsername = iota
	profFullName
	profBio
	profPhone
	profCampus
	profUniversity
	profNotify
	profShowPhone
	profSave
	profRows
)

// Profile tabs.
const (
	tabInfo = iota
	tabFavorites
	tabHistory
)

type noteEntry struct {
	ts    string
	text  string
	isErr bool
}

// Deps are the external services the app talks to. Any of them may be
// a fake in tests; Saver may be nil to disable session persistence.
type Deps struct {
	API      api.Client
	Auth     supabase.Auth
	Storage  supabase.Storage
	Geocoder geocode.Client
	Locator  Locator
	Sessions *SessionBox
	Saver    SessionStore
}

// Model is the root bubbletea model for unipick.
// Exported so tests can construct and drive it directly.
type Model struct {
	state appState

	width  int
	height int

	deps Deps
	ctrl *feed.Controller
	boot *feed.Fetch

	notes []noteEntry

	// Login
	loginEmail  string
	loginPass   string
	loginField  int
	signupMode  bool
	authBusy    bool
	authErr     string

	// Feed
	feedIdx    int
	locNotice  string
	locPending bool

	// Filter form
	filterMode  bool
	filterField int
	fKeyword    string
	fMin        string
	fMax        string
	fRadius     string
	fCatIdx     int
	fSortIdx    int
	fUseLoc     bool
	filterErr   string

	// Detail
	detailID     int
	detail       *models.ItemSummary
	detailStats  *models.ItemStats
	detailReturn appState
	confirmDel   bool

	// Sell / edit form
	sellField int
	sTitle    string
	sPrice    string
	sDesc     string
	sLocQuery string
	sImages   string
	sCatIdx   int
	sLocName  string
	sCoord    *models.Coordinate
	sPlaces   []geocode.Place
	sPlaceIdx int
	editingID int
	sellBusy  bool
	sellErr   string

	// Profile
	profile     *models.Profile
	profileTab  int
	profileIdx  int
	profileEdit bool
	profField   int
	pUsername   string
	pFullName   string
	pBio        string
	pPhone      string
	pCampus     string
	pUniversity string
	pNotify     bool
	pShowPhone  bool
	profileBusy bool
	profileErr  string
	avatarMode  bool
	avatarPath  string
	passMode    bool
	passInput   string
	favorites   []models.ItemSummary
	history     []models.ItemSummary

	// Moderation
	modEntries []models.ModerationEntry
	modStats   *models.ModerationStats
	modIdx     int
	modFilter  int
	noteMode   bool
	noteInput  string
	decision   models.ModerationStatus
}

// New creates a fresh Model. A non-nil restored session skips the login
// gate and schedules the first feed page for Init to fire.
func New(d Deps, restored *models.Session) Model {
	m := Model{
		state: stateLogin,
		deps:  d,
		ctrl:  feed.NewController(feed.DefaultFilters()),
	}
	if restored != nil {
		m.state = stateFeed
		m.boot = m.ctrl.Refresh()
	}
	return m
}

// signedIn reports whether a session is active.
func (m Model) signedIn() bool {
	return m.deps.Sessions != nil && m.deps.Sessions.Get() != nil
}

// userID returns the signed-in user's ID, or "".
func (m Model) userID() string {
	if m.deps.Sessions == nil {
		return ""
	}
	if s := m.deps.Sessions.Get(); s != nil {
		return s.UserID
	}
	return ""
}

// isAdmin reports whether the loaded profile carries the admin role.
func (m Model) isAdmin() bool {
	return m.profile != nil && m.profile.IsAdmin()
}

// ownsDetail reports whether the signed-in user owns the open listing.
func (m Model) ownsDetail() bool {
	return m.detail != nil && m.userID() != "" && m.detail.OwnerID == m.userID()
}
