package stub

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

//go:embed seed.yaml
var defaultSeedYAML []byte

// Seed is the fixture set loaded at startup.
type Seed struct {
	Users []SeedUser `yaml:"users"`
	Items []SeedItem `yaml:"items"`
}

type SeedUser struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Username string `yaml:"username"`
	FullName string `yaml:"full_name"`
	Campus   string `yaml:"campus"`
	Role     string `yaml:"role"`
}

type SeedItem struct {
	Owner        string   `yaml:"owner"`
	Title        string   `yaml:"title"`
	Price        float64  `yaml:"price"`
	Category     string   `yaml:"category"`
	Description  string   `yaml:"description"`
	Images       []string `yaml:"images"`
	LocationName string   `yaml:"location_name"`
	Latitude     float64  `yaml:"latitude"`
	Longitude    float64  `yaml:"longitude"`
	Views        int      `yaml:"views"`
}

// DefaultSeed parses the embedded fixture set.
func DefaultSeed() (Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(defaultSeedYAML, &s); err != nil {
		return Seed{}, fmt.Errorf("parse embedded seed: %w", err)
	}
	return s, nil
}

// LoadSeed parses a fixture file from disk.
func LoadSeed(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed: %w", err)
	}
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Seed{}, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return s, nil
}

// Seed loads users and items into the catalog. Items run through the
// same screening as live creates, so the moderation queue fills from
// the fixtures too. Creation times are staggered a minute apart in
// file order, newest last.
func (s *Server) Seed(seed Seed) error {
	ids := make(map[string]string, len(seed.Users))
	for _, u := range seed.Users {
		a, err := s.cat.createAccount(u.Email, u.Password, &u, s.now().Add(-24*time.Hour))
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.Email, err)
		}
		ids[a.Email] = a.ID
	}

	base := s.now().Add(-time.Duration(len(seed.Items)) * time.Minute)
	for i, it := range seed.Items {
		owner, ok := ids[strings.ToLower(strings.TrimSpace(it.Owner))]
		if !ok {
			return fmt.Errorf("seed item %q: unknown owner %s", it.Title, it.Owner)
		}
		l := s.cat.insertListing(listing{
			Title:        it.Title,
			Description:  it.Description,
			Price:        it.Price,
			Category:     it.Category,
			Images:       it.Images,
			LocationName: it.LocationName,
			Latitude:     it.Latitude,
			Longitude:    it.Longitude,
			OwnerID:      owner,
			ViewCount:    it.Views,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}, s.now())
		s.screenListing(l)
	}
	return nil
}
