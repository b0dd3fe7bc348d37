package stub

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/SolomonGao/UniPick-sub000/pkg/models"
)

var (
	errEmailTaken   = errors.New("email already registered")
	errBadPassword  = errors.New("invalid credentials")
	errNoAccount    = errors.New("account not found")
	errNoListing    = errors.New("listing not found")
	errNoLog        = errors.New("review log not found")
	errBadRefresh   = errors.New("refresh token not found")
	errLogFinalized = errors.New("review log already decided")
)

type account struct {
	ID           string
	Email        string
	PasswordHash []byte
	Username     string
	FullName     string
	AvatarURL    string
	Bio          string
	Phone        string
	Campus       string
	University   string
	NotifyEmail  bool
	ShowPhone    bool
	Role         string
	CreatedAt    time.Time
}

type listing struct {
	ID           int
	Title        string
	Description  string
	Price        float64
	Category     string
	Images       []string
	LocationName string
	Latitude     float64
	Longitude    float64
	OwnerID      string
	ViewCount    int
	Deactivated  bool
	CreatedAt    time.Time
}

type reviewLog struct {
	ID          int64
	ContentID   int
	OwnerID     string
	ContentText string
	Status      models.ModerationStatus
	Flagged     bool
	MaxScore    float64
	ReviewNote  string
	ReviewedBy  string
	CreatedAt   time.Time
}

type object struct {
	data        []byte
	contentType string
}

// catalog is the whole backend state behind one lock. Reads copy out
// so handlers never hold references into it.
type catalog struct {
	mu sync.RWMutex

	accounts map[string]*account
	emails   map[string]string

	listings map[int]*listing
	nextItem int

	favorites map[string][]int
	history   map[string][]int

	logs    []*reviewLog
	nextLog int64

	refresh map[string]string

	objects map[string]object
}

func newCatalog() *catalog {
	return &catalog{
		accounts:  make(map[string]*account),
		emails:    make(map[string]string),
		listings:  make(map[int]*listing),
		nextItem:  1,
		favorites: make(map[string][]int),
		history:   make(map[string][]int),
		nextLog:   1,
		refresh:   make(map[string]string),
		objects:   make(map[string]object),
	}
}

// --- account operations ---

func (c *catalog) createAccount(email, password string, seed *SeedUser, createdAt time.Time) (account, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return account{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, taken := c.emails[email]; taken {
		return account{}, errEmailTaken
	}

	a := &account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Username:     emailLocalPart(email),
		Role:         "user",
		NotifyEmail:  true,
		CreatedAt:    createdAt,
	}
	if seed != nil {
		if seed.Username != "" {
			a.Username = seed.Username
		}
		a.FullName = seed.FullName
		a.Campus = seed.Campus
		if seed.Role != "" {
			a.Role = seed.Role
		}
	}

	c.accounts[a.ID] = a
	c.emails[email] = a.ID
	return *a, nil
}

func (c *catalog) authenticate(email, password string) (account, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	c.mu.RLock()
	id, ok := c.emails[email]
	var a *account
	if ok {
		a = c.accounts[id]
	}
	c.mu.RUnlock()

	if a == nil {
		return account{}, errBadPassword
	}
	if bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(password)) != nil {
		return account{}, errBadPassword
	}
	return *a, nil
}

func (c *catalog) accountByID(id string) (account, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.accounts[id]
	if !ok {
		return account{}, errNoAccount
	}
	return *a, nil
}

func (c *catalog) applyProfilePatch(id string, p models.ProfilePatch) (account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.accounts[id]
	if !ok {
		return account{}, errNoAccount
	}
	if p.Username != nil {
		a.Username = *p.Username
	}
	if p.FullName != nil {
		a.FullName = *p.FullName
	}
	if p.Bio != nil {
		a.Bio = *p.Bio
	}
	if p.Phone != nil {
		a.Phone = *p.Phone
	}
	if p.Campus != nil {
		a.Campus = *p.Campus
	}
	if p.University != nil {
		a.University = *p.University
	}
	if p.NotificationEmail != nil {
		a.NotifyEmail = *p.NotificationEmail
	}
	if p.ShowPhone != nil {
		a.ShowPhone = *p.ShowPhone
	}
	return *a, nil
}

func (c *catalog) setPassword(id, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.accounts[id]
	if !ok {
		return errNoAccount
	}
	a.PasswordHash = hash
	return nil
}

func (c *catalog) setAvatar(id, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.accounts[id]
	if !ok {
		return errNoAccount
	}
	a.AvatarURL = url
	return nil
}

// --- refresh token operations ---

func (c *catalog) issueRefresh(userID string) string {
	tok := randomToken()
	c.mu.Lock()
	c.refresh[tok] = userID
	c.mu.Unlock()
	return tok
}

// rotateRefresh swaps a valid refresh token for a fresh one. The old
// token dies either way.
func (c *catalog) rotateRefresh(tok string) (string, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	userID, ok := c.refresh[tok]
	if !ok {
		return "", "", errBadRefresh
	}
	delete(c.refresh, tok)

	next := randomToken()
	c.refresh[next] = userID
	return userID, next, nil
}

func (c *catalog) revokeRefresh(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for tok, id := range c.refresh {
		if id == userID {
			delete(c.refresh, tok)
		}
	}
}

// --- listing operations ---

// insertListing stores l, assigning the next id. A zero CreatedAt is
// stamped with now.
func (c *catalog) insertListing(l listing, now time.Time) listing {
	c.mu.Lock()
	defer c.mu.Unlock()

	l.ID = c.nextItem
	c.nextItem++
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	if l.Images == nil {
		l.Images = []string{}
	}

	stored := l
	c.listings[l.ID] = &stored
	return l
}

func (c *catalog) listingByID(id int) (listing, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.listings[id]
	if !ok || l.Deactivated {
		return listing{}, errNoListing
	}
	return *l, nil
}

func (c *catalog) replaceListing(id int, upd listing) (listing, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.listings[id]
	if !ok || l.Deactivated {
		return listing{}, errNoListing
	}
	l.Title = upd.Title
	l.Description = upd.Description
	l.Price = upd.Price
	l.Category = upd.Category
	l.Images = upd.Images
	if l.Images == nil {
		l.Images = []string{}
	}
	l.LocationName = upd.LocationName
	l.Latitude = upd.Latitude
	l.Longitude = upd.Longitude
	return *l, nil
}

func (c *catalog) removeListing(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.listings[id]; !ok {
		return errNoListing
	}
	delete(c.listings, id)
	for user, ids := range c.favorites {
		c.favorites[user] = removeID(ids, id)
	}
	for user, ids := range c.history {
		c.history[user] = removeID(ids, id)
	}
	return nil
}

func (c *catalog) deactivateListing(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.listings[id]; ok {
		l.Deactivated = true
	}
}

// allListings returns copies of every active listing, unordered.
func (c *catalog) allListings() []listing {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]listing, 0, len(c.listings))
	for _, l := range c.listings {
		if l.Deactivated {
			continue
		}
		out = append(out, *l)
	}
	return out
}

// --- engagement operations ---

// noteView bumps the view counter and moves the item to the front of
// the viewer's history.
func (c *catalog) noteView(userID string, itemID int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.listings[itemID]
	if !ok || l.Deactivated {
		return 0, errNoListing
	}
	l.ViewCount++
	c.history[userID] = append([]int{itemID}, removeID(c.history[userID], itemID)...)
	return l.ViewCount, nil
}

func (c *catalog) toggleFavorite(userID string, itemID int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.listings[itemID]
	if !ok || l.Deactivated {
		return false, errNoListing
	}
	ids := c.favorites[userID]
	for _, id := range ids {
		if id == itemID {
			c.favorites[userID] = removeID(ids, itemID)
			return false, nil
		}
	}
	c.favorites[userID] = append(ids, itemID)
	return true, nil
}

func (c *catalog) listingStats(itemID int, userID string) (models.ItemStats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.listings[itemID]
	if !ok || l.Deactivated {
		return models.ItemStats{}, errNoListing
	}

	stats := models.ItemStats{ViewCount: l.ViewCount}
	for user, ids := range c.favorites {
		for _, id := range ids {
			if id != itemID {
				continue
			}
			stats.FavoriteCount++
			if user == userID {
				stats.IsFavorited = true
			}
		}
	}
	return stats, nil
}

// favoriteListings returns the user's favorites in the order they
// were added.
func (c *catalog) favoriteListings(userID string) []listing {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.collect(c.favorites[userID])
}

// historyListings returns the user's viewed items, most recent first.
func (c *catalog) historyListings(userID string) []listing {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.collect(c.history[userID])
}

// collect resolves ids to listing copies, skipping anything missing
// or deactivated. Callers hold at least a read lock.
func (c *catalog) collect(ids []int) []listing {
	out := make([]listing, 0, len(ids))
	for _, id := range ids {
		if l, ok := c.listings[id]; ok && !l.Deactivated {
			out = append(out, *l)
		}
	}
	return out
}

// --- moderation operations ---

func (c *catalog) appendLog(l reviewLog, now time.Time) reviewLog {
	c.mu.Lock()
	defer c.mu.Unlock()

	l.ID = c.nextLog
	c.nextLog++
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}

	stored := l
	c.logs = append(c.logs, &stored)
	return l
}

// decideLog records an admin decision. Only flagged and pending
// entries can be decided.
func (c *catalog) decideLog(id int64, decision models.ModerationStatus, note, reviewer string) (reviewLog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range c.logs {
		if l.ID != id {
			continue
		}
		if l.Status != models.ModerationFlagged && l.Status != models.ModerationPending {
			return reviewLog{}, errLogFinalized
		}
		l.Status = decision
		l.ReviewNote = note
		l.ReviewedBy = reviewer
		return *l, nil
	}
	return reviewLog{}, errNoLog
}

// logsByStatus returns copies filtered by status, newest first.
func (c *catalog) logsByStatus(status models.ModerationStatus, limit, offset int) []reviewLog {
	c.mu.RLock()
	matched := make([]reviewLog, 0, len(c.logs))
	for _, l := range c.logs {
		if l.Status == status {
			matched = append(matched, *l)
		}
	}
	c.mu.RUnlock()

	// Appended in creation order, so newest first is a reversal.
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}

	if offset >= len(matched) {
		return []reviewLog{}
	}
	matched = matched[offset:]
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched
}

func (c *catalog) logStats() models.ModerationStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := models.ModerationStats{Total: len(c.logs)}
	for _, l := range c.logs {
		switch l.Status {
		case models.ModerationPending:
			stats.Pending++
		case models.ModerationApproved:
			stats.Approved++
		case models.ModerationFlagged:
			stats.Flagged++
		case models.ModerationRejected:
			stats.Rejected++
		}
	}
	return stats
}

// --- object operations ---

func (c *catalog) putObject(key string, data []byte, contentType string) {
	c.mu.Lock()
	c.objects[key] = object{data: data, contentType: contentType}
	c.mu.Unlock()
}

func (c *catalog) getObject(key string) (object, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.objects[key]
	return o, ok
}

// --- helpers ---

func removeID(ids []int, id int) []int {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func emailLocalPart(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}

func randomToken() string {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(b)
}
