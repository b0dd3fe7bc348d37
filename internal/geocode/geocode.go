// Package geocode is a client for a Mapbox-style geocoding service.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/SolomonGao/UniPick-sub000/pkg/models"
)

const requestTimeout = 10 * time.Second

// Place is one geocoding result.
type Place struct {
	Name  string
	Coord models.Coordinate
}

// Client resolves place names to coordinates and back.
// Tests inject a mock.
type Client interface {
	Forward(ctx context.Context, query string) ([]Place, error)
	Reverse(ctx context.Context, coord models.Coordinate) ([]Place, error)
}

type httpGeocoder struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New returns a Client for the geocoding endpoint at baseURL.
func New(baseURL, token string) Client {
	return &httpGeocoder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// Forward resolves a free-form place query. No match is not an error:
// the result is simply empty.
func (c *httpGeocoder) Forward(ctx context.Context, query string) ([]Place, error) {
	return c.lookup(ctx, url.PathEscape(query))
}

// Reverse resolves a coordinate to nearby place names.
func (c *httpGeocoder) Reverse(ctx context.Context, coord models.Coordinate) ([]Place, error) {
	q := strconv.FormatFloat(coord.Lng, 'f', -1, 64) + "," + strconv.FormatFloat(coord.Lat, 'f', -1, 64)
	return c.lookup(ctx, q)
}

func (c *httpGeocoder) lookup(ctx context.Context, query string) ([]Place, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/%s.json?access_token=%s&limit=5", c.baseURL, query, url.QueryEscape(c.token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("geocode: access token rejected (status %d)", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("geocode: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Features []struct {
			PlaceName string    `json:"place_name"`
			Center    []float64 `json:"center"` // [lng, lat]
		} `json:"features"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("geocode decode: %w", err)
	}

	places := make([]Place, 0, len(out.Features))
	for _, f := range out.Features {
		if len(f.Center) < 2 {
			continue
		}
		places = append(places, Place{
			Name:  f.PlaceName,
			Coord: models.Coordinate{Lat: f.Center[1], Lng: f.Center[0]},
		})
	}
	return places, nil
}
