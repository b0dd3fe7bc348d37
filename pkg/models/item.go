package models

import "time"

// Category is one of the fixed listing categories.
type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryFurniture   Category = "furniture"
	CategoryBooks       Category = "books"
	CategorySports      Category = "sports"
	CategoryMusic       Category = "music"
	CategoryOthers      Category = "others"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryElectronics,
	CategoryFurniture,
	CategoryBooks,
	CategorySports,
	CategoryMusic,
	CategoryOthers,
}

// ValidCategory reports whether s is a known category.
func ValidCategory(s string) bool {
	for _, c := range Categories {
		if string(c) == s {
			return true
		}
	}
	return false
}

// ItemSummary is the read-only listing projection returned by the items
// endpoint. Optional fields stay at their zero value when the backend
// omits them; Images is normalized to an empty slice at the decode
// boundary so callers never see nil.
type ItemSummary struct {
	ID           int        `json:"id"`
	Title        string     `json:"title"`
	Price        float64    `json:"price"`
	Description  string     `json:"description,omitempty"`
	Category     string     `json:"category,omitempty"`
	Images       []string   `json:"images"`
	LocationName string     `json:"location_name,omitempty"`
	Latitude     float64    `json:"latitude"`
	Longitude    float64    `json:"longitude"`
	Distance     *float64   `json:"distance,omitempty"` // miles, present only on geo queries
	OwnerID      string     `json:"user_id"`
	ViewCount    int        `json:"view_count,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
}

// ItemDraft is the write shape for creating or replacing a listing.
type ItemDraft struct {
	Title        string   `json:"title"`
	Price        float64  `json:"price"`
	Description  string   `json:"description,omitempty"`
	Category     string   `json:"category,omitempty"`
	Images       []string `json:"images"`
	LocationName string   `json:"location_name,omitempty"`
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
}

// ItemStats is the per-item engagement snapshot.
type ItemStats struct {
	ViewCount     int  `json:"view_count"`
	FavoriteCount int  `json:"favorite_count"`
	IsFavorited   bool `json:"is_favorited"`
}
