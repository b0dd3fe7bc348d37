package config

import (
	"os"
	"path/filepath"
)

// Config holds all application configuration
type Config struct {
	API      APIConfig
	Supabase SupabaseConfig
	Geocoder GeocoderConfig
	Data     DataConfig
	Stub     StubConfig
}

type APIConfig struct {
	BaseURL string // UniPick backend, including the /api/v1 prefix
}

type SupabaseConfig struct {
	URL     string
	AnonKey string
}

type GeocoderConfig struct {
	BaseURL string
	Token   string
}

type DataConfig struct {
	DBPath string // local SQLite file (session + cached coordinate)
	Campus string // campus label resolved to a coordinate on refresh
}

type StubConfig struct {
	Addr     string
	Secret   string // HS256 signing key for dev tokens
	SeedPath string // optional YAML seed file; empty means the embedded seed
}

// Load returns application configuration from environment variables
func Load() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: getEnv("UNIPICK_API_URL", "http://localhost:8787/api/v1"),
		},
		Supabase: SupabaseConfig{
			URL:     getEnv("SUPABASE_URL", "http://localhost:8787"),
			AnonKey: getEnv("SUPABASE_ANON_KEY", ""),
		},
		Geocoder: GeocoderConfig{
			BaseURL: getEnv("GEOCODER_URL", "https://api.mapbox.com/geocoding/v5/mapbox.places"),
			Token:   getEnv("GEOCODER_TOKEN", ""),
		},
		Data: DataConfig{
			DBPath: getEnv("UNIPICK_DB_PATH", defaultDBPath()),
			Campus: getEnv("UNIPICK_CAMPUS", ""),
		},
		Stub: StubConfig{
			Addr:     getEnv("APISTUB_ADDR", ":8787"),
			Secret:   getEnv("APISTUB_SECRET", ""),
			SeedPath: getEnv("APISTUB_SEED", ""),
		},
	}
}

// defaultDBPath places the local database under the user's home directory.
// Falls back to the working directory when home cannot be resolved.
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "unipick.db"
	}
	return filepath.Join(home, ".unipick", "unipick.db")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
