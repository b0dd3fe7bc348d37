// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2026 Solomon Gao. All rights reserved.

package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/google/uuid"

	"github.com/SolomonGao/UniPick-sub000/internal/feed"
	"github.com/SolomonGao/UniPick-sub000/internal/location"
	"github.com/SolomonGao/UniPick-sub000/internal/supabase"
	"github.com/SolomonGao/UniPick-sub000/internal/validate"
	"github.com/SolomonGao/UniPick-sub000/pkg/models"
)

// Init fires the restored-session boot work: the first feed page and
// the profile fetch that backs the admin gate.
func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.boot != nil {
		cmds = append(cmds, m.doFetch(*m.boot))
	}
	if m.state == stateFeed && m.signedIn() {
		cmds = append(cmds, m.doProfile())
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

// Update is the bubbletea update function. All state mutation happens
// here; commands only talk to the backends and report back as typed
// messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case authResultMsg:
		return m.handleAuthResult(msg)

	case signedOutMsg:
		return m.handleSignedOut(msg)

	case feedPageMsg:
		return m.handleFeedPage(msg)

	case locationMsg:
		return m.handleLocation(msg)

	case itemMsg:
		return m.handleItem(msg)

	case itemStatsMsg:
		return m.handleItemStats(msg)

	case viewCountMsg:
		return m.handleViewCount(msg)

	case favoriteMsg:
		return m.handleFavorite(msg)

	case itemSavedMsg:
		return m.handleItemSaved(msg)

	case itemDeletedMsg:
		return m.handleItemDeleted(msg)

	case placesMsg:
		return m.handlePlaces(msg)

	case profileMsg:
		return m.handleProfile(msg)

	case profileSavedMsg:
		return m.handleProfileSaved(msg)

	case avatarSavedMsg:
		return m.handleAvatarSaved(msg)

	case passwordSavedMsg:
		return m.handlePasswordSaved(msg)

	case favoritesMsg:
		return m.handleFavorites(msg)

	case historyMsg:
		return m.handleHistory(msg)

	case queueMsg:
		return m.handleQueue(msg)

	case modStatsMsg:
		return m.handleModStats(msg)

	case reviewSavedMsg:
		return m.handleReviewSaved(msg)
	}

	return m, nil
}

// --- Key Handling ---

func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	k := msg.Key()

	if k.Code == 'c' && k.Mod == tea.ModCtrl {
		return m, tea.Quit
	}

	switch m.state {
	case stateLogin:
		return m.handleLoginKey(k)
	case stateFeed:
		if m.filterMode {
			return m.handleFilterKey(k)
		}
		return m.handleFeedKey(k)
	case stateDetail:
		return m.handleDetailKey(k)
	case stateSell:
		return m.handleSellKey(k)
	case stateProfile:
		return m.handleProfileKey(k)
	case stateModeration:
		return m.handleModerationKey(k)
	case stateError:
		return m.handleErrorKey(k)
	}

	return m, nil
}

func (m Model) handleLoginKey(k tea.Key) (tea.Model, tea.Cmd) {
	if m.authBusy {
		return m, nil
	}
	if k.Code == 't' && k.Mod == tea.ModCtrl {
		m.signupMode = !m.signupMode
		m.authErr = ""
		return m, nil
	}
	if k.Code == 'b' && k.Mod == tea.ModCtrl {
		return m.browseAnonymously()
	}
	switch k.Code {
	case tea.KeyEscape:
		return m, tea.Quit
	case tea.KeyTab, tea.KeyUp, tea.KeyDown:
		m.loginField = 1 - m.loginField
	case tea.KeyEnter:
		if m.loginField == 0 {
			m.loginField = 1
			return m, nil
		}
		return m.submitLogin()
	case tea.KeyBackspace:
		if m.loginField == 0 && len(m.loginEmail) > 0 {
			m.loginEmail = m.loginEmail[:len(m.loginEmail)-1]
		}
		if m.loginField == 1 && len(m.loginPass) > 0 {
			m.loginPass = m.loginPass[:len(m.loginPass)-1]
		}
	default:
		if k.Text != "" {
			if m.loginField == 0 {
				m.loginEmail += k.Text
			} else {
				m.loginPass += k.Text
			}
		}
	}
	return m, nil
}

func (m Model) submitLogin() (tea.Model, tea.Cmd) {
	email := strings.TrimSpace(m.loginEmail)
	if err := validate.Email(email); err != nil {
		m.authErr = err.Error()
		return m, nil
	}
	if m.signupMode {
		if err := validate.Password(m.loginPass); err != nil {
			m.authErr = err.Error()
			return m, nil
		}
	} else if m.loginPass == "" {
		m.authErr = "password: is required"
		return m, nil
	}
	m.authBusy = true
	m.authErr = ""
	if m.signupMode {
		return m, m.doSignUp(email, m.loginPass)
	}
	return m, m.doSignIn(email, m.loginPass)
}

func (m Model) browseAnonymously() (tea.Model, tea.Cmd) {
	m.state = stateFeed
	if m.ctrl.Status() == feed.StatusIdle {
		if f := m.ctrl.Refresh(); f != nil {
			return m, m.doFetch(*f)
		}
	}
	return m, nil
}

func (m Model) handleFeedKey(k tea.Key) (tea.Model, tea.Cmd) {
	items := m.ctrl.Items()
	switch k.Code {
	case 'q', tea.KeyEscape:
		return m, tea.Quit
	case tea.KeyUp, 'k':
		if m.feedIdx > 0 {
			m.feedIdx--
		}
	case tea.KeyDown, 'j':
		if m.feedIdx < len(items)-1 {
			m.feedIdx++
			if cmd := m.maybeLoadMore(); cmd != nil {
				return m, cmd
			}
		}
	case tea.KeyEnter:
		if m.feedIdx < len(items) {
			return m.openDetail(items[m.feedIdx].ID, stateFeed)
		}
	case '/':
		m.openFilterForm()
	case 'r':
		if m.ctrl.Status() == feed.StatusError {
			if f := m.ctrl.Retry(); f != nil {
				return m, m.doFetch(*f)
			}
			return m, nil
		}
		m.feedIdx = 0
		if f := m.ctrl.Refresh(); f != nil {
			return m, m.doFetch(*f)
		}
	case 's':
		return m.openSellForm(nil)
	case 'p':
		return m.openProfile()
	case 'm':
		return m.openModeration()
	case 'x':
		m.locNotice = ""
	}
	return m, nil
}

func (m Model) handleFilterKey(k tea.Key) (tea.Model, tea.Cmd) {
	switch k.Code {
	case tea.KeyEscape:
		m.filterMode = false
		m.filterErr = ""
	case tea.KeyUp:
		if m.filterField > 0 {
			m.filterField--
		}
	case tea.KeyDown, tea.KeyTab:
		if m.filterField < filterRows-1 {
			m.filterField++
		}
	case tea.KeyLeft:
		m.cycleFilterOption(-1)
	case tea.KeyRight:
		m.cycleFilterOption(1)
	case tea.KeyEnter:
		switch m.filterField {
		case filterApply:
			return m.submitFilters(false)
		case filterClear:
			return m.submitFilters(true)
		case filterLocation:
			m.fUseLoc = !m.fUseLoc
		default:
			m.filterField++
		}
	case tea.KeyBackspace:
		m.editFilterField(k, true)
	default:
		if k.Text != "" {
			m.editFilterField(k, false)
		}
	}
	return m, nil
}

func (m Model) submitFilters(clear bool) (tea.Model, tea.Cmd) {
	var f feed.FilterState
	if clear {
		f = feed.DefaultFilters()
	} else {
		parsed, err := m.parseFilterForm()
		if err != nil {
			m.filterErr = err.Error()
			return m, nil
		}
		f = parsed
	}
	m.filterMode = false
	m.filterErr = ""
	m.feedIdx = 0

	var cmds []tea.Cmd
	if t := m.ctrl.SetFilters(f); t != nil {
		cmds = append(cmds, m.doFetch(*t))
	}
	if f.UseLocation && !m.locPending {
		m.locPending = true
		cmds = append(cmds, m.doLocate())
	}
	switch len(cmds) {
	case 0:
		return m, nil
	case 1:
		return m, cmds[0]
	}
	return m, tea.Batch(cmds...)
}

func (m Model) parseFilterForm() (feed.FilterState, error) {
	f := feed.FilterState{
		Keyword:     validate.NormalizeKeyword(m.fKeyword),
		RadiusMi:    feed.DefaultRadiusMi,
		SortBy:      sortOptions[m.fSortIdx],
		UseLocation: m.fUseLoc,
	}
	if m.fCatIdx > 0 {
		f.Category = models.Category(categoryOptions[m.fCatIdx])
	}
	min, err := parsePrice("min price", m.fMin)
	if err != nil {
		return f, err
	}
	max, err := parsePrice("max price", m.fMax)
	if err != nil {
		return f, err
	}
	f.MinPrice, f.MaxPrice = min, max
	if err := validate.PriceRange(min, max); err != nil {
		return f, err
	}
	if s := strings.TrimSpace(m.fRadius); s != "" {
		r, err := strconv.ParseFloat(s, 64)
		if err != nil || r <= 0 {
			return f, fmt.Errorf("radius: must be a positive number of miles")
		}
		f.RadiusMi = r
	}
	return f, nil
}

func (m Model) handleDetailKey(k tea.Key) (tea.Model, tea.Cmd) {
	switch k.Code {
	case tea.KeyEscape:
		if m.confirmDel {
			m.confirmDel = false
			return m, nil
		}
		m.state = m.detailReturn
	case 'f':
		if m.detail == nil {
			return m, nil
		}
		if !m.signedIn() {
			m.note("sign in to favorite listings", true)
			return m, nil
		}
		return m, m.doToggleFavorite(m.detail.ID)
	case 'e':
		if m.ownsDetail() {
			return m.openSellForm(m.detail)
		}
	case 'd':
		if m.detail != nil && (m.ownsDetail() || m.isAdmin()) {
			m.confirmDel = true
		}
	case 'y':
		if m.confirmDel && m.detail != nil {
			m.confirmDel = false
			return m, m.doDeleteItem(m.detail.ID)
		}
	default:
		m.confirmDel = false
	}
	return m, nil
}

func (m Model) handleSellKey(k tea.Key) (tea.Model, tea.Cmd) {
	if m.sellBusy {
		return m, nil
	}
	if len(m.sPlaces) > 0 {
		return m.handlePlacePickerKey(k)
	}
	switch k.Code {
	case tea.KeyEscape:
		m.state = m.sellReturn()
		m.sellErr = ""
	case tea.KeyUp:
		if m.sellField > 0 {
			m.sellField--
		}
	case tea.KeyDown, tea.KeyTab:
		if m.sellField < sellRows-1 {
			m.sellField++
		}
	case tea.KeyLeft:
		if m.sellField == sellCategory {
			m.sCatIdx = (m.sCatIdx - 1 + len(categoryOptions)) % len(categoryOptions)
		}
	case tea.KeyRight:
		if m.sellField == sellCategory {
			m.sCatIdx = (m.sCatIdx + 1) % len(categoryOptions)
		}
	case tea.KeyEnter:
		switch m.sellField {
		case sellLocation:
			q := strings.TrimSpace(m.sLocQuery)
			if q == "" {
				m.sellField++
				return m, nil
			}
			return m, m.doGeocode(q)
		case sellPublish:
			return m.submitListing()
		default:
			m.sellField++
		}
	case tea.KeyBackspace:
		m.editSellField(k, true)
	default:
		if k.Text != "" {
			m.editSellField(k, false)
		}
	}
	return m, nil
}

func (m Model) handlePlacePickerKey(k tea.Key) (tea.Model, tea.Cmd) {
	switch k.Code {
	case tea.KeyEscape:
		m.sPlaces = nil
	case tea.KeyUp, 'k':
		if m.sPlaceIdx > 0 {
			m.sPlaceIdx--
		}
	case tea.KeyDown, 'j':
		if m.sPlaceIdx < len(m.sPlaces)-1 {
			m.sPlaceIdx++
		}
	case tea.KeyEnter:
		p := m.sPlaces[m.sPlaceIdx]
		m.sLocName = p.Name
		m.sLocQuery = p.Name
		coord := p.Coord
		m.sCoord = &coord
		m.sPlaces = nil
		m.sellField = sellImages
	}
	return m, nil
}

func (m Model) submitListing() (tea.Model, tea.Cmd) {
	price, err := strconv.ParseFloat(strings.TrimSpace(m.sPrice), 64)
	if err != nil {
		m.sellErr = "price: not a number"
		return m, nil
	}
	draft := models.ItemDraft{
		Title:        strings.TrimSpace(m.sTitle),
		Price:        price,
		Description:  strings.TrimSpace(m.sDesc),
		LocationName: m.sLocName,
	}
	if m.sCatIdx > 0 {
		draft.Category = categoryOptions[m.sCatIdx]
	}
	if m.sCoord != nil {
		draft.Latitude = m.sCoord.Lat
		draft.Longitude = m.sCoord.Lng
	}
	if err := validate.ItemDraft(draft); err != nil {
		m.sellErr = err.Error()
		return m, nil
	}
	m.sellBusy = true
	m.sellErr = ""
	return m, m.doPublish(draft, splitImages(m.sImages), m.editingID)
}

func (m Model) handleProfileKey(k tea.Key) (tea.Model, tea.Cmd) {
	switch {
	case m.profileEdit:
		return m.handleProfileEditKey(k)
	case m.avatarMode:
		return m.handleAvatarKey(k)
	case m.passMode:
		return m.handlePasswordKey(k)
	}
	switch k.Code {
	case tea.KeyEscape:
		m.state = stateFeed
	case tea.KeyTab:
		m.profileTab = (m.profileTab + 1) % 3
		m.profileIdx = 0
		switch m.profileTab {
		case tabFavorites:
			return m, m.doFavorites()
		case tabHistory:
			return m, m.doHistory()
		}
	case tea.KeyUp, 'k':
		if m.profileTab != tabInfo && m.profileIdx > 0 {
			m.profileIdx--
		}
	case tea.KeyDown, 'j':
		if m.profileTab != tabInfo && m.profileIdx < len(m.profileItems())-1 {
			m.profileIdx++
		}
	case tea.KeyEnter:
		if m.profileTab != tabInfo {
			items := m.profileItems()
			if m.profileIdx < len(items) {
				return m.openDetail(items[m.profileIdx].ID, stateProfile)
			}
		}
	case 'e':
		if m.profileTab == tabInfo && m.profile != nil {
			m.openProfileEdit()
		}
	case 'a':
		if m.profileTab == tabInfo {
			m.avatarMode = true
			m.avatarPath = ""
			m.profileErr = ""
		}
	case 'w':
		if m.profileTab == tabInfo {
			m.passMode = true
			m.passInput = ""
			m.profileErr = ""
		}
	case 'o':
		return m, m.doSignOut()
	case 'r':
		switch m.profileTab {
		case tabFavorites:
			return m, m.doFavorites()
		case tabHistory:
			return m, m.doHistory()
		default:
			return m, m.doProfile()
		}
	}
	return m, nil
}

func (m Model) handleProfileEditKey(k tea.Key) (tea.Model, tea.Cmd) {
	if m.profileBusy {
		return m, nil
	}
	switch k.Code {
	case tea.KeyEscape:
		m.profileEdit = false
		m.profileErr = ""
	case tea.KeyUp:
		if m.profField > 0 {
			m.profField--
		}
	case tea.KeyDown, tea.KeyTab:
		if m.profField < profRows-1 {
			m.profField++
		}
	case tea.KeyLeft, tea.KeyRight:
		m.toggleProfileOption()
	case tea.KeyEnter:
		switch m.profField {
		case profSave:
			return m.submitProfile()
		case profNotify, profShowPhone:
			m.toggleProfileOption()
		default:
			m.profField++
		}
	case tea.KeyBackspace:
		m.editProfileField(k, true)
	default:
		if k.Text != "" {
			m.editProfileField(k, false)
		}
	}
	return m, nil
}

func (m Model) submitProfile() (tea.Model, tea.Cmd) {
	p := m.profile
	patch := models.ProfilePatch{}
	if v := strings.TrimSpace(m.pUsername); v != p.Username {
		patch.Username = &v
	}
	if v := strings.TrimSpace(m.pFullName); v != p.FullName {
		patch.FullName = &v
	}
	if v := strings.TrimSpace(m.pBio); v != p.Bio {
		patch.Bio = &v
	}
	if v := strings.TrimSpace(m.pPhone); v != p.Phone {
		patch.Phone = &v
	}
	if v := strings.TrimSpace(m.pCampus); v != p.Campus {
		patch.Campus = &v
	}
	if v := strings.TrimSpace(m.pUniversity); v != p.University {
		patch.University = &v
	}
	if m.pNotify != p.NotificationEmail {
		v := m.pNotify
		patch.NotificationEmail = &v
	}
	if m.pShowPhone != p.ShowPhone {
		v := m.pShowPhone
		patch.ShowPhone = &v
	}
	if patch == (models.ProfilePatch{}) {
		m.profileEdit = false
		m.note("no profile changes", false)
		return m, nil
	}
	if err := validate.ProfilePatch(patch); err != nil {
		m.profileErr = err.Error()
		return m, nil
	}
	m.profileBusy = true
	m.profileErr = ""
	return m, m.doSaveProfile(patch)
}

func (m Model) handleAvatarKey(k tea.Key) (tea.Model, tea.Cmd) {
	if m.profileBusy {
		return m, nil
	}
	switch k.Code {
	case tea.KeyEscape:
		m.avatarMode = false
		m.profileErr = ""
	case tea.KeyEnter:
		path := strings.TrimSpace(m.avatarPath)
		if path == "" {
			m.avatarMode = false
			return m, nil
		}
		m.profileBusy = true
		m.profileErr = ""
		return m, m.doUploadAvatar(path)
	case tea.KeyBackspace:
		if len(m.avatarPath) > 0 {
			m.avatarPath = m.avatarPath[:len(m.avatarPath)-1]
		}
	default:
		if k.Text != "" {
			m.avatarPath += k.Text
		}
	}
	return m, nil
}

func (m Model) handlePasswordKey(k tea.Key) (tea.Model, tea.Cmd) {
	if m.profileBusy {
		return m, nil
	}
	switch k.Code {
	case tea.KeyEscape:
		m.passMode = false
		m.passInput = ""
		m.profileErr = ""
	case tea.KeyEnter:
		if err := validate.Password(m.passInput); err != nil {
			m.profileErr = err.Error()
			return m, nil
		}
		m.profileBusy = true
		m.profileErr = ""
		return m, m.doChangePassword(m.passInput)
	case tea.KeyBackspace:
		if len(m.passInput) > 0 {
			m.passInput = m.passInput[:len(m.passInput)-1]
		}
	default:
		if k.Text != "" {
			m.passInput += k.Text
		}
	}
	return m, nil
}

func (m Model) handleModerationKey(k tea.Key) (tea.Model, tea.Cmd) {
	if m.noteMode {
		return m.handleReviewNoteKey(k)
	}
	switch k.Code {
	case tea.KeyEscape:
		m.state = stateFeed
	case tea.KeyTab:
		m.modFilter = (m.modFilter + 1) % len(modFilters)
		m.modIdx = 0
		return m, m.doQueue(modFilters[m.modFilter])
	case tea.KeyUp, 'k':
		if m.modIdx > 0 {
			m.modIdx--
		}
	case tea.KeyDown, 'j':
		if m.modIdx < len(m.modEntries)-1 {
			m.modIdx++
		}
	case 'a':
		m.startReview(models.ModerationApproved)
	case 'x':
		m.startReview(models.ModerationRejected)
	case 'r':
		return m, tea.Batch(m.doQueue(modFilters[m.modFilter]), m.doModStats())
	}
	return m, nil
}

func (m Model) handleReviewNoteKey(k tea.Key) (tea.Model, tea.Cmd) {
	switch k.Code {
	case tea.KeyEscape:
		m.noteMode = false
	case tea.KeyEnter:
		if m.modIdx >= len(m.modEntries) {
			m.noteMode = false
			return m, nil
		}
		e := m.modEntries[m.modIdx]
		m.noteMode = false
		return m, m.doReview(e.ID, m.decision, strings.TrimSpace(m.noteInput))
	case tea.KeyBackspace:
		if len(m.noteInput) > 0 {
			m.noteInput = m.noteInput[:len(m.noteInput)-1]
		}
	default:
		if k.Text != "" {
			m.noteInput += k.Text
		}
	}
	return m, nil
}

func (m Model) handleErrorKey(k tea.Key) (tea.Model, tea.Cmd) {
	switch k.Code {
	case 'r':
		m.state = stateFeed
		if f := m.ctrl.Retry(); f != nil {
			return m, m.doFetch(*f)
		}
		if f := m.ctrl.Refresh(); f != nil {
			return m, m.doFetch(*f)
		}
	case 'q', tea.KeyEscape:
		return m, tea.Quit
	}
	return m, nil
}

// --- Screen Transitions ---

func (m Model) openDetail(id int, from appState) (tea.Model, tea.Cmd) {
	m.state = stateDetail
	m.detailReturn = from
	m.detailID = id
	m.detail = nil
	m.detailStats = nil
	m.confirmDel = false
	return m, tea.Batch(m.doItem(id), m.doItemStats(id), m.doRecordView(id))
}

func (m Model) openSellForm(item *models.ItemSummary) (tea.Model, tea.Cmd) {
	if !m.signedIn() {
		m.note("sign in to sell", true)
		return m, nil
	}
	m.state = stateSell
	m.sellField = sellTitle
	m.sellErr = ""
	m.sellBusy = false
	m.sPlaces = nil
	m.sPlaceIdx = 0
	if item == nil {
		m.editingID = 0
		m.sTitle, m.sPrice, m.sDesc, m.sLocQuery, m.sImages = "", "", "", "", ""
		m.sCatIdx = 0
		m.sLocName = ""
		m.sCoord = nil
		return m, nil
	}
	m.editingID = item.ID
	m.sTitle = item.Title
	m.sPrice = strconv.FormatFloat(item.Price, 'f', -1, 64)
	m.sDesc = item.Description
	m.sCatIdx = indexOf(categoryOptions, item.Category)
	m.sImages = strings.Join(item.Images, ",")
	m.sLocName = item.LocationName
	m.sLocQuery = item.LocationName
	m.sCoord = &models.Coordinate{Lat: item.Latitude, Lng: item.Longitude}
	return m, nil
}

func (m Model) openProfile() (tea.Model, tea.Cmd) {
	if !m.signedIn() {
		m.note("sign in to view your profile", true)
		return m, nil
	}
	m.state = stateProfile
	m.profileTab = tabInfo
	m.profileIdx = 0
	m.profileEdit = false
	m.avatarMode = false
	m.passMode = false
	m.profileErr = ""
	return m, m.doProfile()
}

func (m Model) openModeration() (tea.Model, tea.Cmd) {
	if !m.isAdmin() {
		if m.signedIn() {
			m.note("moderation requires the admin role", true)
		} else {
			m.note("sign in as an admin to moderate", true)
		}
		return m, nil
	}
	m.state = stateModeration
	m.modIdx = 0
	m.noteMode = false
	return m, tea.Batch(m.doQueue(modFilters[m.modFilter]), m.doModStats())
}

// maybeLoadMore fires the next page once the selection scrolls within
// half a page of the end of the loaded list.
func (m Model) maybeLoadMore() tea.Cmd {
	if len(m.ctrl.Items())-m.feedIdx > feed.PageSize/2 {
		return nil
	}
	if f := m.ctrl.LoadMore(); f != nil {
		return m.doFetch(*f)
	}
	return nil
}

func (m Model) sellReturn() appState {
	if m.editingID != 0 {
		return stateDetail
	}
	return stateFeed
}

func (m Model) profileItems() []models.ItemSummary {
	switch m.profileTab {
	case tabFavorites:
		return m.favorites
	case tabHistory:
		return m.history
	}
	return nil
}

// --- Async Commands ---

func (m Model) doSignIn(email, password string) tea.Cmd {
	d := m.deps
	return func() tea.Msg {
		if d.Auth == nil {
			return authResultMsg{err: fmt.Errorf("auth client not configured")}
		}
		sess, err := d.Auth.SignIn(context.Background(), email, password)
		if err != nil {
			return authResultMsg{err: err}
		}
		return authResultMsg{session: sess, persistErr: stashSession(d, sess)}
	}
}

func (m Model) doSignUp(email, password string) tea.Cmd {
	d := m.deps
	return func() tea.Msg {
		if d.Auth == nil {
			return authResultMsg{signup: true, err: fmt.Errorf("auth client not configured")}
		}
		sess, err := d.Auth.SignUp(context.Background(), email, password)
		if err != nil {
			return authResultMsg{signup: true, err: err}
		}
		return authResultMsg{session: sess, signup: true, persistErr: stashSession(d, sess)}
	}
}

// stashSession activates a fresh session and persists it. A failed
// save still leaves the session active for this run.
func stashSession(d Deps, sess *models.Session) error {
	if d.Sessions != nil {
		d.Sessions.Set(sess)
	}
	if d.Saver == nil {
		return nil
	}
	return d.Saver.SaveSession(sess)
}

func (m Model) doSignOut() tea.Cmd {
	d := m.deps
	return func() tea.Msg {
		var err error
		if d.Auth != nil && d.Sessions != nil {
			if s := d.Sessions.Get(); s != nil {
				err = d.Auth.SignOut(context.Background(), s.AccessToken)
			}
		}
		if d.Sessions != nil {
			d.Sessions.Set(nil)
		}
		if d.Saver != nil {
			if cerr := d.Saver.ClearSession(); cerr != nil && err == nil {
				err = cerr
			}
		}
		return signedOutMsg{err: err}
	}
}

func (m Model) doFetch(f feed.Fetch) tea.Cmd {
	client := m.deps.API
	return func() tea.Msg {
		if client == nil {
			return feedPageMsg{fetch: f, err: fmt.Errorf("api client not configured")}
		}
		items, err := client.ListItems(context.Background(), f.Params)
		return feedPageMsg{fetch: f, items: items, err: err}
	}
}

func (m Model) doLocate() tea.Cmd {
	loc := m.deps.Locator
	return func() tea.Msg {
		if loc == nil {
			return locationMsg{err: location.ErrUnavailable}
		}
		coord := loc.Refresh(context.Background())
		return locationMsg{coord: coord, err: loc.LastError()}
	}
}

func (m Model) doItem(id int) tea.Cmd {
	client := m.deps.API
	return func() tea.Msg {
		if client == nil {
			return itemMsg{id: id, err: fmt.Errorf("api client not configured")}
		}
		item, err := client.GetItem(context.Background(), id)
		return itemMsg{id: id, item: item, err: err}
	}
}

func (m Model) doItemStats(id int) tea.Cmd {
	client := m.deps.API
	return func() tea.Msg {
		if client == nil {
			return itemStatsMsg{id: id, err: fmt.Errorf("api client not configured")}
		}
		stats, err := client.ItemStats(context.Background(), id)
		return itemStatsMsg{id: id, stats: stats, err: err}
	}
}

func (m Model) doRecordView(id int) tea.Cmd {
	client := m.deps.API
	return func() tea.Msg {
		if client == nil {
			return viewCountMsg{id: id, err: fmt.Errorf("api client not configured")}
		}
		count, err := client.RecordView(context.Background(), id)
		return viewCountMsg{id: id, count: count, err: err}
	}
}

func (m Model) doToggleFavorite(id int) tea.Cmd {
	client := m.deps.API
	return func() tea.Msg {
		if client == nil {
			return favoriteMsg{id: id, err: fmt.Errorf("api client not configured")}
		}
		fav, err := client.ToggleFavorite(context.Background(), id)
		return favoriteMsg{id: id, favorited: fav, err: err}
	}
}

func (m Model) doDeleteItem(id int) tea.Cmd {
	client := m.deps.API
	return func() tea.Msg {
		if client == nil {
			return itemDeletedMsg{id: id, err: fmt.Errorf("api client not configured")}
		}
		return itemDeletedMsg{id: id, err: client.DeleteItem(context.Background(), id)}
	}
}

// doPublish uploads any local images to object storage, swaps them for
// their public URLs, then creates or replaces the listing.
func (m Model) doPublish(draft models.ItemDraft, images []string, editingID int) tea.Cmd {
	d := m.deps
	return func() tea.Msg {
		if d.API == nil {
			return itemSavedMsg{err: fmt.Errorf("api client not configured")}
		}
		urls, err := uploadImages(d, images)
		if err != nil {
			return itemSavedMsg{err: err}
		}
		draft.Images = urls
		if editingID != 0 {
			item, err := d.API.UpdateItem(context.Background(), editingID, draft)
			return itemSavedMsg{item: item, updated: true, err: err}
		}
		item, err := d.API.CreateItem(context.Background(), draft)
		return itemSavedMsg{item: item, err: err}
	}
}

// uploadImages stores local image files in the item-images bucket and
// returns their public URLs. Entries that already are URLs pass
// through unchanged.
func uploadImages(d Deps, entries []string) ([]string, error) {
	urls := make([]string, 0, len(entries))
	for _, entry := range entries {
		if strings.HasPrefix(entry, "http://") || strings.HasPrefix(entry, "https://") {
			urls = append(urls, entry)
			continue
		}
		if d.Storage == nil {
			return nil, fmt.Errorf("storage client not configured")
		}
		data, err := os.ReadFile(entry)
		if err != nil {
			return nil, err
		}
		name := filepath.Base(entry)
		contentType, err := validate.ImageUpload(name, int64(len(data)))
		if err != nil {
			return nil, err
		}
		userID, token := "", ""
		if d.Sessions != nil {
			if s := d.Sessions.Get(); s != nil {
				userID = s.UserID
			}
			token = d.Sessions.Token()
		}
		object := fmt.Sprintf("items/%s/%s%s", userID, uuid.NewString(), strings.ToLower(filepath.Ext(name)))
		if err := d.Storage.Upload(context.Background(), token, supabase.BucketItemImages, object, contentType, data); err != nil {
			return nil, err
		}
		urls = append(urls, d.Storage.PublicURL(supabase.BucketItemImages, object))
	}
	return urls, nil
}

func (m Model) doGeocode(query string) tea.Cmd {
	g := m.deps.Geocoder
	return func() tea.Msg {
		if g == nil {
			return placesMsg{err: fmt.Errorf("geocoder not configured")}
		}
		places, err := g.Forward(context.Background(), query)
		return placesMsg{places: places, err: err}
	}
}

func (m Model) doProfile() tea.Cmd {
	client := m.deps.API
	return func() tea.Msg {
		if client == nil {
			return profileMsg{err: fmt.Errorf("api client not configured")}
		}
		p, err := client.Profile(context.Background())
		return profileMsg{profile: p, err: err}
	}
}

func (m Model) doSaveProfile(patch models.ProfilePatch) tea.Cmd {
	client := m.deps.API
	return func() tea.Msg {
		if client == nil {
			return profileSavedMsg{err: fmt.Errorf("api client not configured")}
		}
		p, err := client.UpdateProfile(context.Background(), patch)
		return profileSavedMsg{profile: p, err: err}
	}
}

func (m Model) doUploadAvatar(path string) tea.Cmd {
	client := m.deps.API
	return func() tea.Msg {
		if client == nil {
			return avatarSavedMsg{err: fmt.Errorf("api client not configured")}
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return avatarSavedMsg{err: err}
		}
		name := filepath.Base(path)
		if _, err := validate.ImageUpload(name, int64(len(data))); err != nil {
			return avatarSavedMsg{err: err}
		}
		url, err := client.UploadAvatar(context.Background(), name, data)
		return avatarSavedMsg{url: url, err: err}
	}
}

func (m Model) doChangePassword(newPassword string) tea.Cmd {
	d := m.deps
	return func() tea.Msg {
		if d.Auth == nil {
			return passwordSavedMsg{err: fmt.Errorf("auth client not configured")}
		}
		var token string
		if d.Sessions != nil {
			token = d.Sessions.Token()
		}
		if token == "" {
			return passwordSavedMsg{err: fmt.Errorf("not signed in")}
		}
		return passwordSavedMsg{err: d.Auth.UpdatePassword(context.Background(), token, newPassword)}
	}
}

func (m Model) doFavorites() tea.Cmd {
	client := m.deps.API
	return func() tea.Msg {
		if client == nil {
			return favoritesMsg{err: fmt.Errorf("api client not configured")}
		}
		items, err := client.Favorites(context.Background(), 0, 50)
		return favoritesMsg{items: items, err: err}
	}
}

func (m Model) doHistory() tea.Cmd {
	client := m.deps.API
	return func() tea.Msg {
		if client == nil {
			return historyMsg{err: fmt.Errorf("api client not configured")}
		}
		items, err := client.ViewHistory(context.Background(), 0, 50)
		return historyMsg{items: items, err: err}
	}
}

func (m Model) doQueue(status models.ModerationStatus) tea.Cmd {
	client := m.deps.API
	return func() tea.Msg {
		if client == nil {
			return queueMsg{status: status, err: fmt.Errorf("api client not configured")}
		}
		entries, err := client.ReviewQueue(context.Background(), status, 50, 0)
		return queueMsg{status: status, entries: entries, err: err}
	}
}

func (m Model) doModStats() tea.Cmd {
	client := m.deps.API
	return func() tea.Msg {
		if client == nil {
			return modStatsMsg{err: fmt.Errorf("api client not configured")}
		}
		stats, err := client.ModerationStats(context.Background())
		return modStatsMsg{stats: stats, err: err}
	}
}

func (m Model) doReview(logID int64, decision models.ModerationStatus, note string) tea.Cmd {
	client := m.deps.API
	return func() tea.Msg {
		if client == nil {
			return reviewSavedMsg{logID: logID, decision: decision, err: fmt.Errorf("api client not configured")}
		}
		err := client.SubmitReview(context.Background(), logID, decision, note)
		return reviewSavedMsg{logID: logID, decision: decision, err: err}
	}
}

// --- Message Handlers ---

func (m Model) handleAuthResult(msg authResultMsg) (tea.Model, tea.Cmd) {
	m.authBusy = false
	if msg.err != nil {
		m.authErr = msg.err.Error()
		return m, nil
	}
	m.loginPass = ""
	m.authErr = ""
	m.state = stateFeed
	if msg.persistErr != nil {
		m.note(fmt.Sprintf("session not saved locally: %v", msg.persistErr), true)
	}
	if msg.signup {
		m.note(fmt.Sprintf("account created, signed in as %s", msg.session.Email), false)
	} else {
		m.note(fmt.Sprintf("signed in as %s", msg.session.Email), false)
	}
	cmds := []tea.Cmd{m.doProfile()}
	if m.ctrl.Status() == feed.StatusIdle {
		if f := m.ctrl.Refresh(); f != nil {
			cmds = append(cmds, m.doFetch(*f))
		}
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleSignedOut(msg signedOutMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.note(fmt.Sprintf("sign out: %v", msg.err), true)
	} else {
		m.note("signed out", false)
	}
	m.profile = nil
	m.favorites = nil
	m.history = nil
	m.modEntries = nil
	m.modStats = nil
	m.state = stateLogin
	m.loginPass = ""
	m.signupMode = false
	m.authErr = ""
	return m, nil
}

func (m Model) handleFeedPage(msg feedPageMsg) (tea.Model, tea.Cmd) {
	if !m.ctrl.Apply(msg.fetch, msg.items, msg.err) {
		return m, nil
	}
	if m.ctrl.Status() == feed.StatusError {
		if len(m.ctrl.Items()) == 0 && m.state == stateFeed && !m.filterMode {
			m.state = stateError
		}
		return m, nil
	}
	if n := len(m.ctrl.Items()); m.feedIdx >= n {
		m.feedIdx = 0
		if n > 0 {
			m.feedIdx = n - 1
		}
	}
	return m, nil
}

func (m Model) handleLocation(msg locationMsg) (tea.Model, tea.Cmd) {
	m.locPending = false
	if msg.err != nil {
		m.locNotice = locationNotice(msg.err)
	} else {
		m.locNotice = ""
	}
	if f := m.ctrl.SetCoordinate(msg.coord); f != nil {
		m.feedIdx = 0
		return m, m.doFetch(*f)
	}
	return m, nil
}

func (m Model) handleItem(msg itemMsg) (tea.Model, tea.Cmd) {
	if msg.id != m.detailID {
		return m, nil
	}
	if msg.err != nil {
		m.note(fmt.Sprintf("load listing: %v", msg.err), true)
		if m.state == stateDetail {
			m.state = m.detailReturn
		}
		return m, nil
	}
	m.detail = msg.item
	return m, nil
}

func (m Model) handleItemStats(msg itemStatsMsg) (tea.Model, tea.Cmd) {
	if msg.id != m.detailID {
		return m, nil
	}
	if msg.err != nil {
		m.note(fmt.Sprintf("listing stats: %v", msg.err), true)
		return m, nil
	}
	m.detailStats = msg.stats
	return m, nil
}

func (m Model) handleViewCount(msg viewCountMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil || msg.id != m.detailID {
		return m, nil
	}
	if m.detailStats != nil {
		s := *m.detailStats
		s.ViewCount = msg.count
		m.detailStats = &s
	}
	if m.detail != nil {
		it := *m.detail
		it.ViewCount = msg.count
		m.detail = &it
	}
	return m, nil
}

func (m Model) handleFavorite(msg favoriteMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.note(fmt.Sprintf("favorite: %v", msg.err), true)
		return m, nil
	}
	if msg.id == m.detailID && m.detailStats != nil {
		s := *m.detailStats
		s.IsFavorited = msg.favorited
		if msg.favorited {
			s.FavoriteCount++
		} else if s.FavoriteCount > 0 {
			s.FavoriteCount--
		}
		m.detailStats = &s
	}
	if msg.favorited {
		m.note("added to favorites", false)
	} else {
		m.note("removed from favorites", false)
	}
	return m, nil
}

func (m Model) handleItemSaved(msg itemSavedMsg) (tea.Model, tea.Cmd) {
	m.sellBusy = false
	if msg.err != nil {
		m.sellErr = msg.err.Error()
		return m, nil
	}
	if msg.updated {
		m.note(fmt.Sprintf("listing #%d updated", msg.item.ID), false)
	} else {
		m.note(fmt.Sprintf("listing #%d published", msg.item.ID), false)
	}
	m.state = stateDetail
	m.detailReturn = stateFeed
	m.detailID = msg.item.ID
	m.detail = msg.item
	m.detailStats = nil
	m.confirmDel = false
	m.feedIdx = 0
	cmds := []tea.Cmd{m.doItemStats(msg.item.ID)}
	if f := m.ctrl.Refresh(); f != nil {
		cmds = append(cmds, m.doFetch(*f))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleItemDeleted(msg itemDeletedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.note(fmt.Sprintf("delete listing: %v", msg.err), true)
		return m, nil
	}
	m.note(fmt.Sprintf("listing #%d deleted", msg.id), false)
	if m.state == stateDetail {
		m.state = m.detailReturn
	}
	m.detail = nil
	m.detailStats = nil
	m.feedIdx = 0
	if f := m.ctrl.Refresh(); f != nil {
		return m, m.doFetch(*f)
	}
	return m, nil
}

func (m Model) handlePlaces(msg placesMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.sellErr = fmt.Sprintf("location lookup: %v", msg.err)
		return m, nil
	}
	if len(msg.places) == 0 {
		m.sellErr = "location lookup: no matches"
		return m, nil
	}
	m.sellErr = ""
	m.sPlaces = msg.places
	m.sPlaceIdx = 0
	return m, nil
}

func (m Model) handleProfile(msg profileMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.note(fmt.Sprintf("load profile: %v", msg.err), true)
		return m, nil
	}
	m.profile = msg.profile
	return m, nil
}

func (m Model) handleProfileSaved(msg profileSavedMsg) (tea.Model, tea.Cmd) {
	m.profileBusy = false
	if msg.err != nil {
		m.profileErr = msg.err.Error()
		return m, nil
	}
	m.profile = msg.profile
	m.profileEdit = false
	m.profileErr = ""
	m.note("profile saved", false)
	return m, nil
}

func (m Model) handleAvatarSaved(msg avatarSavedMsg) (tea.Model, tea.Cmd) {
	m.profileBusy = false
	if msg.err != nil {
		m.profileErr = msg.err.Error()
		return m, nil
	}
	m.avatarMode = false
	m.profileErr = ""
	if m.profile != nil {
		p := *m.profile
		p.AvatarURL = msg.url
		m.profile = &p
	}
	m.note("avatar updated", false)
	return m, nil
}

func (m Model) handlePasswordSaved(msg passwordSavedMsg) (tea.Model, tea.Cmd) {
	m.profileBusy = false
	if msg.err != nil {
		m.profileErr = msg.err.Error()
		return m, nil
	}
	m.passMode = false
	m.passInput = ""
	m.note("password changed", false)
	return m, nil
}

func (m Model) handleFavorites(msg favoritesMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.note(fmt.Sprintf("favorites: %v", msg.err), true)
		return m, nil
	}
	m.favorites = msg.items
	if m.profileTab == tabFavorites && m.profileIdx >= len(m.favorites) {
		m.profileIdx = 0
	}
	return m, nil
}

func (m Model) handleHistory(msg historyMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.note(fmt.Sprintf("view history: %v", msg.err), true)
		return m, nil
	}
	m.history = msg.items
	if m.profileTab == tabHistory && m.profileIdx >= len(m.history) {
		m.profileIdx = 0
	}
	return m, nil
}

func (m Model) handleQueue(msg queueMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.note(fmt.Sprintf("review queue: %v", msg.err), true)
		return m, nil
	}
	if msg.status != modFilters[m.modFilter] {
		return m, nil
	}
	m.modEntries = msg.entries
	if m.modIdx >= len(m.modEntries) {
		m.modIdx = 0
	}
	return m, nil
}

func (m Model) handleModStats(msg modStatsMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.note(fmt.Sprintf("moderation stats: %v", msg.err), true)
		return m, nil
	}
	m.modStats = msg.stats
	return m, nil
}

func (m Model) handleReviewSaved(msg reviewSavedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.note(fmt.Sprintf("review: %v", msg.err), true)
		return m, nil
	}
	m.note(fmt.Sprintf("entry #%d %s", msg.logID, msg.decision), false)
	return m, tea.Batch(m.doQueue(modFilters[m.modFilter]), m.doModStats())
}

// --- Form Helpers ---

func (m *Model) note(text string, isErr bool) {
	m.notes = append(m.notes, noteEntry{
		ts:    time.Now().Format("15:04:05"),
		text:  text,
		isErr: isErr,
	})
	if len(m.notes) > 50 {
		m.notes = m.notes[len(m.notes)-50:]
	}
}

func (m *Model) openFilterForm() {
	f := m.ctrl.Filters()
	m.filterMode = true
	m.filterField = filterKeyword
	m.filterErr = ""
	m.fKeyword = f.Keyword
	m.fMin = floatInput(f.MinPrice)
	m.fMax = floatInput(f.MaxPrice)
	m.fRadius = strconv.FormatFloat(f.RadiusMi, 'f', -1, 64)
	m.fCatIdx = indexOf(categoryOptions, string(f.Category))
	m.fSortIdx = indexOf(sortOptions, f.SortBy)
	m.fUseLoc = f.UseLocation
}

func (m *Model) cycleFilterOption(delta int) {
	switch m.filterField {
	case filterCategory:
		m.fCatIdx = (m.fCatIdx + delta + len(categoryOptions)) % len(categoryOptions)
	case filterSort:
		m.fSortIdx = (m.fSortIdx + delta + len(sortOptions)) % len(sortOptions)
	case filterLocation:
		m.fUseLoc = !m.fUseLoc
	}
}

func (m *Model) editFilterField(k tea.Key, backspace bool) {
	var s *string
	switch m.filterField {
	case filterKeyword:
		s = &m.fKeyword
	case filterMinPrice:
		s = &m.fMin
	case filterMaxPrice:
		s = &m.fMax
	case filterRadius:
		s = &m.fRadius
	default:
		return
	}
	if backspace {
		if len(*s) > 0 {
			*s = (*s)[:len(*s)-1]
		}
		return
	}
	*s += k.Text
}

func (m *Model) editSellField(k tea.Key, backspace bool) {
	var s *string
	switch m.sellField {
	case sellTitle:
		s = &m.sTitle
	case sellPrice:
		s = &m.sPrice
	case sellDescription:
		s = &m.sDesc
	case sellLocation:
		s = &m.sLocQuery
	case sellImages:
		s = &m.sImages
	default:
		return
	}
	if backspace {
		if len(*s) > 0 {
			*s = (*s)[:len(*s)-1]
		}
	} else {
		*s += k.Text
	}
	// Editing the location query invalidates the picked place.
	if m.sellField == sellLocation {
		m.sLocName = ""
		m.sCoord = nil
	}
}

func (m *Model) openProfileEdit() {
	p := m.profile
	m.profileEdit = true
	m.profField = profUsername
	m.profileErr = ""
	m.pUsername = p.Username
	m.pFullName = p.FullName
	m.pBio = p.Bio
	m.pPhone = p.Phone
	m.pCampus = p.Campus
	m.pUniversity = p.University
	m.pNotify = p.NotificationEmail
	m.pShowPhone = p.ShowPhone
}

func (m *Model) toggleProfileOption() {
	switch m.profField {
	case profNotify:
		m.pNotify = !m.pNotify
	case profShowPhone:
		m.pShowPhone = !m.pShowPhone
	}
}

func (m *Model) editProfileField(k tea.Key, backspace bool) {
	var s *string
	switch m.profField {
	case profUsername:
		s = &m.pUsername
	case profFullName:
		s = &m.pFullName
	case profBio:
		s = &m.pBio
	case profPhone:
		s = &m.pPhone
	case profCampus:
		s = &m.pCampus
	case profUniversity:
		s = &m.pUniversity
	default:
		return
	}
	if backspace {
		if len(*s) > 0 {
			*s = (*s)[:len(*s)-1]
		}
		return
	}
	*s += k.Text
}

func (m *Model) startReview(decision models.ModerationStatus) {
	if m.modIdx >= len(m.modEntries) {
		return
	}
	e := m.modEntries[m.modIdx]
	if e.Status != models.ModerationFlagged && e.Status != models.ModerationPending {
		m.note(fmt.Sprintf("entry #%d is already %s", e.ID, e.Status), true)
		return
	}
	m.noteMode = true
	m.noteInput = ""
	m.decision = decision
}

func locationNotice(err error) string {
	switch {
	case errors.Is(err, location.ErrPermissionDenied):
		return "location permission denied; browsing without distance"
	case errors.Is(err, location.ErrTimeout):
		return "location lookup timed out; browsing without distance"
	case errors.Is(err, location.ErrUnavailable):
		return "location unavailable; browsing without distance"
	}
	return fmt.Sprintf("location failed (%v); browsing without distance", err)
}

func parsePrice(label, s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: not a number", label)
	}
	return &v, nil
}

func floatInput(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func indexOf(options []string, val string) int {
	for i, o := range options {
		if o == val {
			return i
		}
	}
	return 0
}

func splitImages(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
