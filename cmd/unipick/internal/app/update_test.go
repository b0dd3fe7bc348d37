// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2026 Solomon Gao. All rights reserved.

package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/SolomonGao/UniPick-sub000/internal/api"
	"github.com/SolomonGao/UniPick-sub000/internal/feed"
	"github.com/SolomonGao/UniPick-sub000/internal/geocode"
	"github.com/SolomonGao/UniPick-sub000/internal/location"
	"github.com/SolomonGao/UniPick-sub000/internal/supabase"
	"github.com/SolomonGao/UniPick-sub000/pkg/models"
)

// --- Fakes ---

type submittedReview struct {
	logID    int64
	decision models.ModerationStatus
	note     string
}

type fakeAPI struct {
	pages     map[int][]models.ItemSummary
	listErr   error
	listCalls []api.ListParams

	item    *models.ItemSummary
	itemErr error
	stats   *models.ItemStats
	views   int
	favOn   bool

	saved   *models.ItemSummary
	drafts  []models.ItemDraft
	updates []int
	deleted []int

	profile       *models.Profile
	patches       []models.ProfilePatch
	avatarUploads []string

	favItems  []models.ItemSummary
	seenItems []models.ItemSummary

	queue      []models.ModerationEntry
	queueCalls []models.ModerationStatus
	modStats   *models.ModerationStats
	reviews    []submittedReview
}

func (f *fakeAPI) ListItems(_ context.Context, p api.ListParams) ([]models.ItemSummary, error) {
	f.listCalls = append(f.listCalls, p)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.pages[p.Skip], nil
}

func (f *fakeAPI) GetItem(_ context.Context, _ int) (*models.ItemSummary, error) {
	if f.itemErr != nil {
		return nil, f.itemErr
	}
	return f.item, nil
}

func (f *fakeAPI) CreateItem(_ context.Context, draft models.ItemDraft) (*models.ItemSummary, error) {
	f.drafts = append(f.drafts, draft)
	return f.saved, nil
}

func (f *fakeAPI) UpdateItem(_ context.Context, id int, draft models.ItemDraft) (*models.ItemSummary, error) {
	f.updates = append(f.updates, id)
	f.drafts = append(f.drafts, draft)
	return f.saved, nil
}

func (f *fakeAPI) DeleteItem(_ context.Context, id int) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeAPI) RecordView(_ context.Context, _ int) (int, error) {
	return f.views, nil
}

func (f *fakeAPI) ToggleFavorite(_ context.Context, _ int) (bool, error) {
	f.favOn = !f.favOn
	return f.favOn, nil
}

func (f *fakeAPI) ItemStats(_ context.Context, _ int) (*models.ItemStats, error) {
	return f.stats, nil
}

func (f *fakeAPI) Favorites(context.Context, int, int) ([]models.ItemSummary, error) {
	return f.favItems, nil
}

func (f *fakeAPI) ViewHistory(context.Context, int, int) ([]models.ItemSummary, error) {
	return f.seenItems, nil
}

func (f *fakeAPI) Profile(context.Context) (*models.Profile, error) {
	if f.profile == nil {
		return nil, fmt.Errorf("no profile")
	}
	p := *f.profile
	return &p, nil
}

func (f *fakeAPI) UpdateProfile(_ context.Context, patch models.ProfilePatch) (*models.Profile, error) {
	f.patches = append(f.patches, patch)
	p := *f.profile
	if patch.Username != nil {
		p.Username = *patch.Username
	}
	if patch.Bio != nil {
		p.Bio = *patch.Bio
	}
	f.profile = &p
	return &p, nil
}

func (f *fakeAPI) UploadAvatar(_ context.Context, filename string, data []byte) (string, error) {
	f.avatarUploads = append(f.avatarUploads, fmt.Sprintf("%s:%d", filename, len(data)))
	return "https://cdn.test/avatars/" + filename, nil
}

func (f *fakeAPI) ReviewQueue(_ context.Context, status models.ModerationStatus, _, _ int) ([]models.ModerationEntry, error) {
	f.queueCalls = append(f.queueCalls, status)
	return f.queue, nil
}

func (f *fakeAPI) SubmitReview(_ context.Context, logID int64, decision models.ModerationStatus, note string) error {
	f.reviews = append(f.reviews, submittedReview{logID: logID, decision: decision, note: note})
	return nil
}

func (f *fakeAPI) ModerationStats(context.Context) (*models.ModerationStats, error) {
	return f.modStats, nil
}

type fakeAuth struct {
	session   *models.Session
	err       error
	passTok   string
	passNew   string
	signedOut []string
}

func (f *fakeAuth) result() (*models.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := *f.session
	return &s, nil
}

func (f *fakeAuth) SignUp(_ context.Context, _, _ string) (*models.Session, error) {
	return f.result()
}

func (f *fakeAuth) SignIn(_ context.Context, _, _ string) (*models.Session, error) {
	return f.result()
}

func (f *fakeAuth) Refresh(_ context.Context, _ string) (*models.Session, error) {
	return f.result()
}

func (f *fakeAuth) SignOut(_ context.Context, accessToken string) error {
	f.signedOut = append(f.signedOut, accessToken)
	return nil
}

func (f *fakeAuth) UpdatePassword(_ context.Context, accessToken, newPassword string) error {
	f.passTok, f.passNew = accessToken, newPassword
	return f.err
}

type fakeStorage struct {
	objects []string
	types   []string
}

func (f *fakeStorage) Upload(_ context.Context, _, bucket, object, contentType string, _ []byte) error {
	f.objects = append(f.objects, bucket+"/"+object)
	f.types = append(f.types, contentType)
	return nil
}

func (f *fakeStorage) PublicURL(bucket, object string) string {
	return "https://cdn.test/" + bucket + "/" + object
}

type fakeGeo struct {
	places []geocode.Place
	err    error
}

func (f *fakeGeo) Forward(_ context.Context, _ string) ([]geocode.Place, error) {
	return f.places, f.err
}

func (f *fakeGeo) Reverse(_ context.Context, _ models.Coordinate) ([]geocode.Place, error) {
	return f.places, f.err
}

type fakeLocator struct {
	coord *models.Coordinate
	err   error
}

func (f *fakeLocator) Current() *models.Coordinate { return f.coord }

func (f *fakeLocator) Refresh(context.Context) *models.Coordinate { return f.coord }

func (f *fakeLocator) LastError() error { return f.err }

type fakeSaver struct {
	saved   []*models.Session
	cleared int
	saveErr error
}

func (f *fakeSaver) SaveSession(s *models.Session) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, s)
	return nil
}

func (f *fakeSaver) ClearSession() error {
	f.cleared++
	return nil
}

type fakes struct {
	api     *fakeAPI
	auth    *fakeAuth
	storage *fakeStorage
	geo     *fakeGeo
	loc     *fakeLocator
	saver   *fakeSaver
	box     *SessionBox
}

func newFakes() *fakes {
	return &fakes{
		api:     &fakeAPI{pages: map[int][]models.ItemSummary{}},
		auth:    &fakeAuth{session: testSession()},
		storage: &fakeStorage{},
		geo:     &fakeGeo{},
		loc:     &fakeLocator{},
		saver:   &fakeSaver{},
		box:     NewSessionBox(),
	}
}

func (f *fakes) deps() Deps {
	return Deps{
		API:      f.api,
		Auth:     f.auth,
		Storage:  f.storage,
		Geocoder: f.geo,
		Locator:  f.loc,
		Sessions: f.box,
		Saver:    f.saver,
	}
}

func (f *fakes) signIn() {
	f.box.Set(testSession())
}

// --- Helpers ---

func testSession() *models.Session {
	return &models.Session{
		AccessToken:  "tok-abc",
		RefreshToken: "ref-abc",
		UserID:       "user-1",
		Email:        "sam@vt.edu",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
}

func listing(id int, title string, price float64) models.ItemSummary {
	return models.ItemSummary{ID: id, Title: title, Price: price}
}

func pageOf(start, n int) []models.ItemSummary {
	items := make([]models.ItemSummary, n)
	for i := range items {
		id := start + i
		items[i] = listing(id, fmt.Sprintf("item %d", id), float64(20+id))
	}
	return items
}

func key(r rune) tea.KeyPressMsg     { return tea.KeyPressMsg{Code: r, Text: string(r)} }
func ctrlKey(r rune) tea.KeyPressMsg { return tea.KeyPressMsg{Code: r, Mod: tea.ModCtrl} }

func pressEnter() tea.KeyPressMsg { return tea.KeyPressMsg{Code: tea.KeyEnter} }
func pressEsc() tea.KeyPressMsg   { return tea.KeyPressMsg{Code: tea.KeyEscape} }
func pressTab() tea.KeyPressMsg   { return tea.KeyPressMsg{Code: tea.KeyTab} }
func pressDown() tea.KeyPressMsg  { return tea.KeyPressMsg{Code: tea.KeyDown} }
func pressRight() tea.KeyPressMsg { return tea.KeyPressMsg{Code: tea.KeyRight} }
func pressBack() tea.KeyPressMsg  { return tea.KeyPressMsg{Code: tea.KeyBackspace} }

func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return nm
}

func stepCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return nm, cmd
}

// exec runs a single async command and feeds its message back through
// Update, the way the runtime would.
func exec(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command, got nil")
	}
	return step(t, m, cmd())
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		m = step(t, m, key(r))
	}
	return m
}

func setSize(t *testing.T, m Model) Model {
	t.Helper()
	return step(t, m, tea.WindowSizeMsg{Width: 100, Height: 36})
}

func content(m Model) string {
	return m.View().Content
}

// browse signs nothing in, loads the first feed page as a guest, and
// leaves the model on the feed screen.
func browse(t *testing.T, fx *fakes) Model {
	t.Helper()
	m := New(fx.deps(), nil)
	m = setSize(t, m)
	m, cmd := stepCmd(t, m, ctrlKey('b'))
	return exec(t, m, cmd)
}

// --- Tests ---

func TestViewBeforeFirstResize(t *testing.T) {
	m := New(newFakes().deps(), nil)
	v := m.View()
	if !v.AltScreen {
		t.Error("want alt screen on")
	}
	if v.Content != "loading..." {
		t.Errorf("content = %q, want loading placeholder", v.Content)
	}
}

func TestSignInFlow(t *testing.T) {
	fx := newFakes()
	m := New(fx.deps(), nil)
	m = setSize(t, m)

	m = typeText(t, m, "sam@vt.edu")
	m = step(t, m, pressEnter())
	m = typeText(t, m, "hunter2!")
	m, cmd := stepCmd(t, m, pressEnter())
	if !m.authBusy {
		t.Error("want authBusy while the sign-in runs")
	}

	m = exec(t, m, cmd)
	if m.state != stateFeed {
		t.Fatalf("state = %v, want feed", m.state)
	}
	if m.authBusy {
		t.Error("authBusy still set after result")
	}
	got := fx.box.Get()
	if got == nil || got.AccessToken != "tok-abc" {
		t.Fatalf("session box = %+v, want active session", got)
	}
	if len(fx.saver.saved) != 1 {
		t.Errorf("saved sessions = %d, want 1", len(fx.saver.saved))
	}
	if out := content(m); !strings.Contains(out, "signed in as sam@vt.edu") {
		t.Errorf("missing signed-in note in:\n%s", out)
	}
}

func TestSignInRejectsBadEmail(t *testing.T) {
	fx := newFakes()
	m := New(fx.deps(), nil)
	m = setSize(t, m)

	m = typeText(t, m, "not-an-email")
	m = step(t, m, pressEnter())
	m, cmd := stepCmd(t, m, pressEnter())
	if cmd != nil {
		t.Error("invalid email should not reach the auth client")
	}
	if m.authErr == "" || !strings.Contains(m.authErr, "email") {
		t.Errorf("authErr = %q, want email validation error", m.authErr)
	}
	if m.authBusy {
		t.Error("authBusy set on validation failure")
	}
}

func TestSignUpConfirmationRequired(t *testing.T) {
	fx := newFakes()
	fx.auth.err = supabase.ErrConfirmationRequired
	m := New(fx.deps(), nil)
	m = setSize(t, m)

	m = step(t, m, ctrlKey('t'))
	if !m.signupMode {
		t.Fatal("ctrl+t should switch to sign-up")
	}
	m = typeText(t, m, "sam@vt.edu")
	m = step(t, m, pressEnter())
	m = typeText(t, m, "hunter2!")
	m, cmd := stepCmd(t, m, pressEnter())

	m = exec(t, m, cmd)
	if m.state != stateLogin {
		t.Fatalf("state = %v, want login until confirmed", m.state)
	}
	if m.authErr != supabase.ErrConfirmationRequired.Error() {
		t.Errorf("authErr = %q", m.authErr)
	}
}

func TestGuestBrowseLoadsFirstPage(t *testing.T) {
	fx := newFakes()
	fx.api.pages[0] = pageOf(1, feed.PageSize)
	m := browse(t, fx)

	if got := len(m.ctrl.Items()); got != feed.PageSize {
		t.Fatalf("items = %d, want %d", got, feed.PageSize)
	}
	call := fx.api.listCalls[0]
	if call.Skip != 0 || call.Limit != feed.PageSize {
		t.Errorf("first fetch skip=%d limit=%d", call.Skip, call.Limit)
	}
	if out := content(m); !strings.Contains(out, "item 1") {
		t.Errorf("feed missing first listing:\n%s", out)
	}
}

func TestScrollNearEndLoadsNextPage(t *testing.T) {
	fx := newFakes()
	fx.api.pages[0] = pageOf(1, feed.PageSize)
	fx.api.pages[feed.PageSize] = pageOf(feed.PageSize+1, 5)
	m := browse(t, fx)

	var cmd tea.Cmd
	for i := 0; i < 6; i++ {
		m, cmd = stepCmd(t, m, pressDown())
		if i < 5 && cmd != nil {
			t.Fatalf("fetch fired too early at row %d", i+1)
		}
	}
	if cmd == nil {
		t.Fatal("no fetch fired near the end of the page")
	}
	m = exec(t, m, cmd)

	if got := len(m.ctrl.Items()); got != feed.PageSize+5 {
		t.Fatalf("items = %d after second page, want %d", got, feed.PageSize+5)
	}
	if fx.api.listCalls[1].Skip != feed.PageSize {
		t.Errorf("second fetch skip = %d, want %d", fx.api.listCalls[1].Skip, feed.PageSize)
	}
}

func TestStaleFeedPageDiscarded(t *testing.T) {
	fx := newFakes()
	fx.api.pages[0] = pageOf(1, feed.PageSize)
	m := New(fx.deps(), nil)
	m = setSize(t, m)
	m, first := stepCmd(t, m, ctrlKey('b'))
	stale := first()

	m = step(t, m, key('/'))
	if !m.filterMode {
		t.Fatal("/ should open the filter form")
	}
	m = typeText(t, m, "bike")
	for i := 0; i < 7; i++ {
		m = step(t, m, pressDown())
	}
	m, second := stepCmd(t, m, pressEnter())
	if second == nil {
		t.Fatal("applying filters should fetch")
	}
	if m.filterMode {
		t.Error("filter form still open after apply")
	}

	m = step(t, m, stale)
	if got := len(m.ctrl.Items()); got != 0 {
		t.Fatalf("stale page applied, items = %d", got)
	}

	m = exec(t, m, second)
	if got := len(m.ctrl.Items()); got != feed.PageSize {
		t.Fatalf("items = %d after fresh page", got)
	}
	if kw := fx.api.listCalls[1].Keyword; kw != "bike" {
		t.Errorf("fresh fetch keyword = %q", kw)
	}
}

func TestFilterRejectsBadPrice(t *testing.T) {
	fx := newFakes()
	fx.api.pages[0] = pageOf(1, 3)
	m := browse(t, fx)

	m = step(t, m, key('/'))
	m = step(t, m, pressDown())
	m = typeText(t, m, "abc")
	for i := 0; i < 6; i++ {
		m = step(t, m, pressDown())
	}
	m, cmd := stepCmd(t, m, pressEnter())
	if cmd != nil {
		t.Error("invalid form should not fetch")
	}
	if !m.filterMode {
		t.Error("filter form should stay open")
	}
	if m.filterErr != "min price: not a number" {
		t.Errorf("filterErr = %q", m.filterErr)
	}
}

func TestNearMeFetchesWithCoordinate(t *testing.T) {
	fx := newFakes()
	fx.api.pages[0] = pageOf(1, 3)
	fx.loc.coord = &models.Coordinate{Lat: 37.2296, Lng: -80.4139}
	m := browse(t, fx)

	m = step(t, m, key('/'))
	for i := 0; i < 6; i++ {
		m = step(t, m, pressDown())
	}
	m = step(t, m, pressEnter()) // toggle near me
	if !m.fUseLoc {
		t.Fatal("near me not toggled")
	}
	m = step(t, m, pressDown())
	m, cmd := stepCmd(t, m, pressEnter())
	if cmd == nil {
		t.Fatal("apply should start the location lookup")
	}
	if !m.locPending {
		t.Error("locPending not set")
	}

	m, fetch := stepCmd(t, m, cmd())
	if fetch == nil {
		t.Fatal("settled coordinate should release a fetch")
	}
	if m.locPending {
		t.Error("locPending still set after the lookup")
	}
	m = exec(t, m, fetch)

	call := fx.api.listCalls[len(fx.api.listCalls)-1]
	if call.Coord == nil || call.Coord.Lat != 37.2296 {
		t.Fatalf("fetch coord = %+v", call.Coord)
	}
	if call.RadiusMi != feed.DefaultRadiusMi {
		t.Errorf("radius = %v, want default", call.RadiusMi)
	}
}

func TestLocationDeniedStillBrowses(t *testing.T) {
	fx := newFakes()
	fx.api.pages[0] = pageOf(1, 3)
	fx.loc.err = location.ErrPermissionDenied
	m := browse(t, fx)

	m = step(t, m, key('/'))
	for i := 0; i < 6; i++ {
		m = step(t, m, pressDown())
	}
	m = step(t, m, pressEnter())
	m = step(t, m, pressDown())
	m, cmd := stepCmd(t, m, pressEnter())

	m, fetch := stepCmd(t, m, cmd())
	if m.locNotice != "location permission denied; browsing without distance" {
		t.Fatalf("locNotice = %q", m.locNotice)
	}
	if fetch == nil {
		t.Fatal("failed lookup should still release a distance-free fetch")
	}
	m = exec(t, m, fetch)

	call := fx.api.listCalls[len(fx.api.listCalls)-1]
	if call.Coord != nil {
		t.Errorf("fetch carries a coordinate after denial: %+v", call.Coord)
	}
	if out := content(m); !strings.Contains(out, "permission denied") {
		t.Errorf("notice not rendered:\n%s", out)
	}

	m = step(t, m, key('x'))
	if m.locNotice != "" {
		t.Error("x should dismiss the notice")
	}
}

func TestFirstPageErrorAndRetry(t *testing.T) {
	fx := newFakes()
	fx.api.listErr = fmt.Errorf("api 502: bad gateway")
	m := New(fx.deps(), nil)
	m = setSize(t, m)
	m, cmd := stepCmd(t, m, ctrlKey('b'))
	m = exec(t, m, cmd)

	if m.state != stateError {
		t.Fatalf("state = %v, want error screen", m.state)
	}
	if out := content(m); !strings.Contains(out, "bad gateway") {
		t.Errorf("error screen missing cause:\n%s", out)
	}

	fx.api.listErr = nil
	fx.api.pages[0] = pageOf(1, 3)
	m, cmd = stepCmd(t, m, key('r'))
	if m.state != stateFeed {
		t.Fatalf("state = %v after retry", m.state)
	}
	m = exec(t, m, cmd)
	if got := len(m.ctrl.Items()); got != 3 {
		t.Fatalf("items = %d after retry", got)
	}
}

func TestDetailLoadsAndIgnoresStale(t *testing.T) {
	fx := newFakes()
	fx.api.pages[0] = pageOf(1, 3)
	m := browse(t, fx)

	m, cmd := stepCmd(t, m, pressEnter())
	if cmd == nil {
		t.Fatal("opening detail should fetch")
	}
	if m.state != stateDetail || m.detailID != 1 {
		t.Fatalf("state=%v detailID=%d", m.state, m.detailID)
	}

	other := listing(99, "someone else's", 5)
	m = step(t, m, itemMsg{id: 99, item: &other})
	if m.detail != nil {
		t.Fatal("stale item applied")
	}

	it := listing(1, "item 1", 21)
	it.Description = "solid condition, pickup only"
	m = step(t, m, itemMsg{id: 1, item: &it})
	m = step(t, m, itemStatsMsg{id: 1, stats: &models.ItemStats{ViewCount: 4, FavoriteCount: 2}})
	m = step(t, m, viewCountMsg{id: 1, count: 5})

	if m.detailStats == nil || m.detailStats.ViewCount != 5 {
		t.Fatalf("stats = %+v, want recorded view folded in", m.detailStats)
	}
	out := content(m)
	if !strings.Contains(out, "item 1") || !strings.Contains(out, "5 views") {
		t.Errorf("detail render missing fields:\n%s", out)
	}

	m = step(t, m, pressEsc())
	if m.state != stateFeed {
		t.Errorf("esc should return to the feed, got %v", m.state)
	}
}

func TestFavoriteToggle(t *testing.T) {
	fx := newFakes()
	fx.signIn()
	m := New(fx.deps(), testSession())
	m = setSize(t, m)
	m.state = stateDetail
	m.detailID = 3
	it := listing(3, "mini fridge", 60)
	m.detail = &it
	m.detailStats = &models.ItemStats{ViewCount: 9, FavoriteCount: 2}

	m, cmd := stepCmd(t, m, key('f'))
	m = exec(t, m, cmd)
	if !m.detailStats.IsFavorited || m.detailStats.FavoriteCount != 3 {
		t.Fatalf("stats after favorite = %+v", m.detailStats)
	}

	m, cmd = stepCmd(t, m, key('f'))
	m = exec(t, m, cmd)
	if m.detailStats.IsFavorited || m.detailStats.FavoriteCount != 2 {
		t.Fatalf("stats after unfavorite = %+v", m.detailStats)
	}
}

func TestFavoriteNeedsSignIn(t *testing.T) {
	fx := newFakes()
	m := New(fx.deps(), nil)
	m = setSize(t, m)
	m.state = stateDetail
	m.detailID = 3
	it := listing(3, "mini fridge", 60)
	m.detail = &it

	m, cmd := stepCmd(t, m, key('f'))
	if cmd != nil {
		t.Error("guest favorite should not hit the API")
	}
	if len(m.notes) == 0 || m.notes[len(m.notes)-1].text != "sign in to favorite listings" {
		t.Errorf("notes = %+v", m.notes)
	}
}

func TestSellRequiresSignIn(t *testing.T) {
	fx := newFakes()
	fx.api.pages[0] = pageOf(1, 3)
	m := browse(t, fx)

	m, cmd := stepCmd(t, m, key('s'))
	if cmd != nil || m.state != stateFeed {
		t.Fatal("guest should stay on the feed")
	}
	if m.notes[len(m.notes)-1].text != "sign in to sell" {
		t.Errorf("notes = %+v", m.notes)
	}
}

func TestPublishListingWithPlacePicker(t *testing.T) {
	fx := newFakes()
	fx.signIn()
	fx.geo.places = []geocode.Place{
		{Name: "Squires Student Center", Coord: models.Coordinate{Lat: 37.2293, Lng: -80.4178}},
		{Name: "Squires Lane", Coord: models.Coordinate{Lat: 37.2401, Lng: -80.4302}},
	}
	fx.api.saved = &models.ItemSummary{ID: 41, Title: "Trek road bike", Price: 120}
	m := New(fx.deps(), testSession())
	m = setSize(t, m)
	m.state = stateFeed

	m, _ = stepCmd(t, m, key('s'))
	if m.state != stateSell {
		t.Fatalf("state = %v, want sell form", m.state)
	}
	m = typeText(t, m, "Trek road bike")
	m = step(t, m, pressDown())
	m = typeText(t, m, "120")
	m = step(t, m, pressDown())
	m = step(t, m, pressRight()) // electronics
	m = step(t, m, pressDown())
	m = typeText(t, m, "barely used")
	m = step(t, m, pressDown())
	m = typeText(t, m, "Squires")

	m, cmd := stepCmd(t, m, pressEnter())
	if cmd == nil {
		t.Fatal("location query should geocode")
	}
	m = exec(t, m, cmd)
	if len(m.sPlaces) != 2 {
		t.Fatalf("places = %d", len(m.sPlaces))
	}
	m = step(t, m, pressDown())
	m = step(t, m, pressEnter())
	if m.sLocName != "Squires Lane" || m.sCoord == nil {
		t.Fatalf("picked place = %q coord = %+v", m.sLocName, m.sCoord)
	}

	m = typeText(t, m, "https://img.example.com/bike.jpg")
	m = step(t, m, pressDown())
	m, cmd = stepCmd(t, m, pressEnter())
	if !m.sellBusy {
		t.Error("want sellBusy while publishing")
	}
	m = exec(t, m, cmd)

	if len(fx.api.drafts) != 1 {
		t.Fatalf("drafts = %d", len(fx.api.drafts))
	}
	d := fx.api.drafts[0]
	if d.Title != "Trek road bike" || d.Price != 120 || d.Category != "electronics" {
		t.Errorf("draft = %+v", d)
	}
	if d.LocationName != "Squires Lane" || d.Latitude != 37.2401 {
		t.Errorf("draft location = %q (%v, %v)", d.LocationName, d.Latitude, d.Longitude)
	}
	if len(d.Images) != 1 || d.Images[0] != "https://img.example.com/bike.jpg" {
		t.Errorf("draft images = %v", d.Images)
	}
	if len(fx.storage.objects) != 0 {
		t.Errorf("URL image should not upload, got %v", fx.storage.objects)
	}
	if m.state != stateDetail || m.detail == nil || m.detail.ID != 41 {
		t.Fatalf("state=%v detail=%+v", m.state, m.detail)
	}
	if out := content(m); !strings.Contains(out, "listing #41 published") {
		t.Errorf("missing publish note:\n%s", out)
	}
}

func TestPublishUploadsLocalImage(t *testing.T) {
	fx := newFakes()
	fx.signIn()
	fx.api.saved = &models.ItemSummary{ID: 42, Title: "Desk lamp", Price: 15}
	path := filepath.Join(t.TempDir(), "photo.jpg")
	if err := os.WriteFile(path, []byte("fake-jpeg"), 0o600); err != nil {
		t.Fatal(err)
	}

	m := New(fx.deps(), testSession())
	m = setSize(t, m)
	m.state = stateFeed
	m, _ = stepCmd(t, m, key('s'))
	m = typeText(t, m, "Desk lamp")
	m = step(t, m, pressDown())
	m = typeText(t, m, "15")
	for i := 0; i < 4; i++ {
		m = step(t, m, pressDown())
	}
	m = typeText(t, m, path)
	m = step(t, m, pressDown())
	m, cmd := stepCmd(t, m, pressEnter())
	m = exec(t, m, cmd)

	if len(fx.storage.objects) != 1 {
		t.Fatalf("uploads = %v", fx.storage.objects)
	}
	if !strings.HasPrefix(fx.storage.objects[0], "item-images/items/user-1/") {
		t.Errorf("object path = %q", fx.storage.objects[0])
	}
	if fx.storage.types[0] != "image/jpeg" {
		t.Errorf("content type = %q", fx.storage.types[0])
	}
	img := fx.api.drafts[0].Images[0]
	if !strings.HasPrefix(img, "https://cdn.test/item-images/items/user-1/") || !strings.HasSuffix(img, ".jpg") {
		t.Errorf("draft image = %q", img)
	}
}

func TestEditListingPrefillsAndUpdates(t *testing.T) {
	fx := newFakes()
	fx.signIn()
	it := listing(7, "Standing desk", 80)
	it.OwnerID = "user-1"
	it.Category = "furniture"
	it.Description = "height adjustable"
	it.Images = []string{"https://x/1.jpg", "https://x/2.jpg"}
	it.LocationName = "West AJ"
	it.Latitude, it.Longitude = 37.22, -80.42
	fx.api.saved = &models.ItemSummary{ID: 7, Title: "Standing desk", Price: 95}

	m := New(fx.deps(), testSession())
	m = setSize(t, m)
	m.state = stateDetail
	m.detailID = 7
	m.detail = &it
	m.detailReturn = stateFeed

	m, _ = stepCmd(t, m, key('e'))
	if m.state != stateSell || m.editingID != 7 {
		t.Fatalf("state=%v editingID=%d", m.state, m.editingID)
	}
	if m.sTitle != "Standing desk" || m.sPrice != "80" || m.sCatIdx != 2 {
		t.Errorf("prefill: title=%q price=%q catIdx=%d", m.sTitle, m.sPrice, m.sCatIdx)
	}
	if m.sImages != "https://x/1.jpg,https://x/2.jpg" || m.sLocName != "West AJ" || m.sCoord == nil {
		t.Errorf("prefill: images=%q loc=%q coord=%+v", m.sImages, m.sLocName, m.sCoord)
	}

	m = step(t, m, pressDown()) // price
	m = step(t, m, pressBack())
	m = step(t, m, pressBack())
	m = typeText(t, m, "95")
	for i := 0; i < 5; i++ {
		m = step(t, m, pressDown())
	}
	m, cmd := stepCmd(t, m, pressEnter())
	m = exec(t, m, cmd)

	if len(fx.api.updates) != 1 || fx.api.updates[0] != 7 {
		t.Fatalf("updates = %v", fx.api.updates)
	}
	if fx.api.drafts[0].Price != 95 {
		t.Errorf("draft price = %v", fx.api.drafts[0].Price)
	}
	if out := content(m); !strings.Contains(out, "listing #7 updated") {
		t.Errorf("missing update note:\n%s", out)
	}
}

func TestDeleteNeedsConfirm(t *testing.T) {
	fx := newFakes()
	fx.signIn()
	it := listing(7, "Standing desk", 80)
	it.OwnerID = "user-1"

	m := New(fx.deps(), testSession())
	m = setSize(t, m)
	m.state = stateDetail
	m.detailID = 7
	m.detail = &it
	m.detailReturn = stateFeed

	m = step(t, m, key('d'))
	if !m.confirmDel {
		t.Fatal("d should arm the confirm prompt")
	}
	if out := content(m); !strings.Contains(out, "Delete this listing?") {
		t.Errorf("prompt not rendered:\n%s", out)
	}
	m = step(t, m, key('z'))
	if m.confirmDel {
		t.Fatal("any other key should disarm")
	}
	if len(fx.api.deleted) != 0 {
		t.Fatal("delete fired without confirm")
	}

	m = step(t, m, key('d'))
	m, cmd := stepCmd(t, m, key('y'))
	m = exec(t, m, cmd)
	if fx.api.deleted[0] != 7 {
		t.Fatalf("deleted = %v", fx.api.deleted)
	}
	if m.state != stateFeed || m.detail != nil {
		t.Errorf("state=%v detail=%+v after delete", m.state, m.detail)
	}
}

func TestAdminCanDeleteOthersListing(t *testing.T) {
	fx := newFakes()
	fx.signIn()
	it := listing(8, "posted by someone else", 10)
	it.OwnerID = "user-2"

	m := New(fx.deps(), testSession())
	m = setSize(t, m)
	m.state = stateDetail
	m.detailID = 8
	m.detail = &it
	m.profile = &models.Profile{ID: "user-1", Role: "admin"}

	m = step(t, m, key('d'))
	if !m.confirmDel {
		t.Fatal("admin should be able to arm delete")
	}
}

func TestProfileEditSendsOnlyChanges(t *testing.T) {
	fx := newFakes()
	fx.signIn()
	fx.api.profile = &models.Profile{
		ID:                "user-1",
		Email:             "sam@vt.edu",
		Username:          "sam",
		FullName:          "Sam G",
		NotificationEmail: true,
	}
	m := New(fx.deps(), testSession())
	m = setSize(t, m)
	m.state = stateFeed

	m, cmd := stepCmd(t, m, key('p'))
	m = exec(t, m, cmd)
	if m.profile == nil {
		t.Fatal("profile not loaded")
	}

	m = step(t, m, key('e'))
	if !m.profileEdit {
		t.Fatal("e should open the editor")
	}
	m = typeText(t, m, "my") // username -> sammy
	for i := 0; i < 8; i++ {
		m = step(t, m, pressDown())
	}
	m, cmd = stepCmd(t, m, pressEnter())
	if !m.profileBusy {
		t.Error("want profileBusy while saving")
	}
	m = exec(t, m, cmd)

	if len(fx.api.patches) != 1 {
		t.Fatalf("patches = %d", len(fx.api.patches))
	}
	p := fx.api.patches[0]
	if p.Username == nil || *p.Username != "sammy" {
		t.Errorf("patch username = %v", p.Username)
	}
	if p.FullName != nil || p.Bio != nil || p.NotificationEmail != nil {
		t.Errorf("unchanged fields leaked into the patch: %+v", p)
	}
	if m.profileEdit || m.profile.Username != "sammy" {
		t.Errorf("editor open=%v username=%q", m.profileEdit, m.profile.Username)
	}
}

func TestProfileEditNoChanges(t *testing.T) {
	fx := newFakes()
	fx.signIn()
	fx.api.profile = &models.Profile{ID: "user-1", Username: "sam"}
	m := New(fx.deps(), testSession())
	m = setSize(t, m)
	m.state = stateFeed
	m, cmd := stepCmd(t, m, key('p'))
	m = exec(t, m, cmd)

	m = step(t, m, key('e'))
	for i := 0; i < 8; i++ {
		m = step(t, m, pressDown())
	}
	m, cmd = stepCmd(t, m, pressEnter())
	if cmd != nil {
		t.Error("no-op save should not hit the API")
	}
	if m.profileEdit {
		t.Error("editor should close")
	}
	if m.notes[len(m.notes)-1].text != "no profile changes" {
		t.Errorf("notes = %+v", m.notes)
	}
}

func TestPasswordChange(t *testing.T) {
	fx := newFakes()
	fx.signIn()
	fx.api.profile = &models.Profile{ID: "user-1"}
	m := New(fx.deps(), testSession())
	m = setSize(t, m)
	m.state = stateFeed
	m, cmd := stepCmd(t, m, key('p'))
	m = exec(t, m, cmd)

	m = step(t, m, key('w'))
	if !m.passMode {
		t.Fatal("w should open the password prompt")
	}
	m = typeText(t, m, "short")
	m, cmd = stepCmd(t, m, pressEnter())
	if cmd != nil {
		t.Error("short password should fail locally")
	}
	if !strings.Contains(m.profileErr, "at least 8") {
		t.Errorf("profileErr = %q", m.profileErr)
	}

	m = typeText(t, m, "er123")
	m, cmd = stepCmd(t, m, pressEnter())
	m = exec(t, m, cmd)
	if m.passMode {
		t.Error("prompt should close on success")
	}
	if fx.auth.passTok != "tok-abc" || fx.auth.passNew != "shorter123" {
		t.Errorf("update password got token=%q new=%q", fx.auth.passTok, fx.auth.passNew)
	}
	if out := content(m); !strings.Contains(out, "password changed") {
		t.Errorf("missing note:\n%s", out)
	}
}

func TestAvatarUpload(t *testing.T) {
	fx := newFakes()
	fx.signIn()
	fx.api.profile = &models.Profile{ID: "user-1", AvatarURL: "https://cdn.test/avatars/old.png"}
	path := filepath.Join(t.TempDir(), "photo.png")
	if err := os.WriteFile(path, []byte("png-bytes"), 0o600); err != nil {
		t.Fatal(err)
	}

	m := New(fx.deps(), testSession())
	m = setSize(t, m)
	m.state = stateFeed
	m, cmd := stepCmd(t, m, key('p'))
	m = exec(t, m, cmd)

	m = step(t, m, key('a'))
	if !m.avatarMode {
		t.Fatal("a should open the avatar prompt")
	}
	m = typeText(t, m, path)
	m, cmd = stepCmd(t, m, pressEnter())
	m = exec(t, m, cmd)

	if len(fx.api.avatarUploads) != 1 || fx.api.avatarUploads[0] != "photo.png:9" {
		t.Fatalf("uploads = %v", fx.api.avatarUploads)
	}
	if m.avatarMode {
		t.Error("prompt should close")
	}
	if m.profile.AvatarURL != "https://cdn.test/avatars/photo.png" {
		t.Errorf("avatar url = %q", m.profile.AvatarURL)
	}
}

func TestProfileTabsLoadLists(t *testing.T) {
	fx := newFakes()
	fx.signIn()
	fx.api.profile = &models.Profile{ID: "user-1"}
	fx.api.favItems = pageOf(31, 2)
	fx.api.seenItems = pageOf(41, 1)
	m := New(fx.deps(), testSession())
	m = setSize(t, m)
	m.state = stateFeed
	m, cmd := stepCmd(t, m, key('p'))
	m = exec(t, m, cmd)

	m, cmd = stepCmd(t, m, pressTab())
	if m.profileTab != tabFavorites {
		t.Fatalf("tab = %d", m.profileTab)
	}
	m = exec(t, m, cmd)
	if len(m.favorites) != 2 {
		t.Fatalf("favorites = %d", len(m.favorites))
	}

	m, cmd = stepCmd(t, m, pressEnter())
	if m.state != stateDetail || m.detailID != 31 || m.detailReturn != stateProfile {
		t.Fatalf("state=%v detailID=%d return=%v", m.state, m.detailID, m.detailReturn)
	}
	if cmd == nil {
		t.Fatal("opening detail should fetch")
	}
	m = step(t, m, pressEsc())
	if m.state != stateProfile {
		t.Fatalf("esc should return to the profile, got %v", m.state)
	}

	m, cmd = stepCmd(t, m, pressTab())
	if m.profileTab != tabHistory {
		t.Fatalf("tab = %d", m.profileTab)
	}
	m = exec(t, m, cmd)
	if len(m.history) != 1 {
		t.Fatalf("history = %d", len(m.history))
	}
}

func TestModerationGate(t *testing.T) {
	fx := newFakes()
	m := New(fx.deps(), nil)
	m = setSize(t, m)
	m.state = stateFeed

	m, cmd := stepCmd(t, m, key('m'))
	if cmd != nil || m.state != stateFeed {
		t.Fatal("guest should be turned away")
	}
	if m.notes[len(m.notes)-1].text != "sign in as an admin to moderate" {
		t.Errorf("notes = %+v", m.notes)
	}

	fx.signIn()
	m.profile = &models.Profile{ID: "user-1", Role: "user"}
	m, cmd = stepCmd(t, m, key('m'))
	if cmd != nil || m.state != stateFeed {
		t.Fatal("non-admin should be turned away")
	}
	if m.notes[len(m.notes)-1].text != "moderation requires the admin role" {
		t.Errorf("notes = %+v", m.notes)
	}
}

func TestModerationReview(t *testing.T) {
	fx := newFakes()
	fx.signIn()
	m := New(fx.deps(), testSession())
	m = setSize(t, m)
	m.state = stateFeed
	m.profile = &models.Profile{ID: "user-1", Role: "admin"}

	m, cmd := stepCmd(t, m, key('m'))
	if m.state != stateModeration {
		t.Fatalf("state = %v", m.state)
	}
	if cmd == nil {
		t.Fatal("opening moderation should fetch the queue")
	}
	entries := []models.ModerationEntry{
		{ID: 11, ContentType: "item", Status: models.ModerationFlagged, ContentText: "spammy text", UserEmail: "u@vt.edu", MaxScore: 0.91},
		{ID: 12, ContentType: "profile", Status: models.ModerationPending, ContentText: "bio", MaxScore: 0.4},
	}
	m = step(t, m, queueMsg{status: models.ModerationFlagged, entries: entries})
	m = step(t, m, modStatsMsg{stats: &models.ModerationStats{Total: 2, Flagged: 1, Pending: 1}})
	if out := content(m); !strings.Contains(out, "#11") || !strings.Contains(out, "spammy text") {
		t.Errorf("queue render:\n%s", out)
	}

	m = step(t, m, key('a'))
	if !m.noteMode || m.decision != models.ModerationApproved {
		t.Fatalf("noteMode=%v decision=%v", m.noteMode, m.decision)
	}
	m = typeText(t, m, "fine")
	m, cmd = stepCmd(t, m, pressEnter())
	m = exec(t, m, cmd)

	if len(fx.api.reviews) != 1 {
		t.Fatalf("reviews = %d", len(fx.api.reviews))
	}
	r := fx.api.reviews[0]
	if r.logID != 11 || r.decision != models.ModerationApproved || r.note != "fine" {
		t.Errorf("review = %+v", r)
	}
	if out := content(m); !strings.Contains(out, "entry #11 approved") {
		t.Errorf("missing review note:\n%s", out)
	}
}

func TestModerationStaleTabResult(t *testing.T) {
	fx := newFakes()
	fx.signIn()
	m := New(fx.deps(), testSession())
	m = setSize(t, m)
	m.state = stateFeed
	m.profile = &models.Profile{ID: "user-1", Role: "admin"}
	m, _ = stepCmd(t, m, key('m'))

	flagged := []models.ModerationEntry{
		{ID: 11, Status: models.ModerationFlagged},
		{ID: 12, Status: models.ModerationFlagged},
	}
	m = step(t, m, queueMsg{status: models.ModerationFlagged, entries: flagged})

	m, cmd := stepCmd(t, m, pressTab())
	if m.modFilter != 1 {
		t.Fatalf("modFilter = %d", m.modFilter)
	}
	m = step(t, m, queueMsg{status: models.ModerationFlagged, entries: flagged[:1]})
	if len(m.modEntries) != 2 {
		t.Fatalf("stale queue applied, entries = %d", len(m.modEntries))
	}

	fx.api.queue = []models.ModerationEntry{{ID: 21, Status: models.ModerationPending}}
	m = exec(t, m, cmd)
	if len(m.modEntries) != 1 || m.modEntries[0].ID != 21 {
		t.Fatalf("entries = %+v", m.modEntries)
	}
	if fx.api.queueCalls[len(fx.api.queueCalls)-1] != models.ModerationPending {
		t.Errorf("queue calls = %v", fx.api.queueCalls)
	}
}

func TestReviewAlreadyDecided(t *testing.T) {
	fx := newFakes()
	m := New(fx.deps(), testSession())
	m = setSize(t, m)
	m.state = stateModeration
	m.modEntries = []models.ModerationEntry{{ID: 7, Status: models.ModerationRejected}}

	m = step(t, m, key('a'))
	if m.noteMode {
		t.Fatal("decided entry should not open the note prompt")
	}
	if m.notes[len(m.notes)-1].text != "entry #7 is already rejected" {
		t.Errorf("notes = %+v", m.notes)
	}
}

func TestSignOutClearsEverything(t *testing.T) {
	fx := newFakes()
	fx.signIn()
	fx.api.profile = &models.Profile{ID: "user-1", Username: "sam"}
	m := New(fx.deps(), testSession())
	m = setSize(t, m)
	m.state = stateFeed
	m, cmd := stepCmd(t, m, key('p'))
	m = exec(t, m, cmd)

	m, cmd = stepCmd(t, m, key('o'))
	m = exec(t, m, cmd)

	if m.state != stateLogin {
		t.Fatalf("state = %v, want login", m.state)
	}
	if fx.box.Get() != nil {
		t.Error("session box not cleared")
	}
	if fx.saver.cleared != 1 {
		t.Errorf("cleared = %d, want 1", fx.saver.cleared)
	}
	if len(fx.auth.signedOut) != 1 || fx.auth.signedOut[0] != "tok-abc" {
		t.Errorf("signedOut = %v", fx.auth.signedOut)
	}
	if m.profile != nil || m.favorites != nil {
		t.Error("profile data kept after sign out")
	}
}

func TestRestoredSessionBootsFeed(t *testing.T) {
	fx := newFakes()
	fx.signIn()
	fx.api.pages[0] = pageOf(1, 4)
	m := New(fx.deps(), testSession())
	if m.state != stateFeed {
		t.Fatalf("state = %v, want feed for a restored session", m.state)
	}
	if m.boot == nil {
		t.Fatal("no boot fetch scheduled")
	}
	if m.Init() == nil {
		t.Fatal("Init should return the boot work")
	}
	m = setSize(t, m)
	m = exec(t, m, m.doFetch(*m.boot))
	if got := len(m.ctrl.Items()); got != 4 {
		t.Fatalf("items = %d", got)
	}
}
