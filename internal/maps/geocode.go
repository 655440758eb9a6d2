package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/eek-site/eek-sub001/internal/config"
)

const geocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Client resolves street addresses to coordinates via the Google Geocoding
// API. Best-effort by contract: callers treat any failure as "no coords".
type Client struct {
	apiKey  string
	http    *http.Client
	baseURL string
}

// New returns nil when no API key is configured; callers nil-check and
// carry on without geocoding.
func New(cfg config.MapsConfig) *Client {
	if cfg.APIKey == "" {
		return nil
	}
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		baseURL: geocodeURL,
	}
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode returns the first match for the address, biased to NZ.
func (c *Client) Geocode(ctx context.Context, address string) (lat, lng float64, err error) {
	if address == "" {
		return 0, 0, fmt.Errorf("address is required")
	}

	q := url.Values{}
	q.Set("address", address)
	q.Set("region", "nz")
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, 0, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geocode api status %d", resp.StatusCode)
	}

	var out geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, 0, fmt.Errorf("geocode decode: %w", err)
	}
	if out.Status != "OK" || len(out.Results) == 0 {
		return 0, 0, fmt.Errorf("geocode no results: %s", out.Status)
	}

	loc := out.Results[0].Geometry.Location
	return loc.Lat, loc.Lng, nil
}
