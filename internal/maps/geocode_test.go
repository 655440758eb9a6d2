package maps

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eek-site/eek-sub001/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutKeyReturnsNil(t *testing.T) {
	assert.Nil(t, New(config.MapsConfig{}))
	assert.NotNil(t, New(config.MapsConfig{APIKey: "k"}))
}

func TestGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "123 Main St", r.URL.Query().Get("address"))
		assert.Equal(t, "nz", r.URL.Query().Get("region"))
		w.Write([]byte(`{"status":"OK","results":[{"geometry":{"location":{"lat":-36.8485,"lng":174.7633}}}]}`))
	}))
	defer srv.Close()

	c := &Client{apiKey: "k", http: &http.Client{Timeout: time.Second}, baseURL: srv.URL}

	lat, lng, err := c.Geocode(context.Background(), "123 Main St")
	require.NoError(t, err)
	assert.InDelta(t, -36.8485, lat, 0.0001)
	assert.InDelta(t, 174.7633, lng, 0.0001)
}

func TestGeocodeNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	}))
	defer srv.Close()

	c := &Client{apiKey: "k", http: &http.Client{Timeout: time.Second}, baseURL: srv.URL}

	_, _, err := c.Geocode(context.Background(), "nowhere")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ZERO_RESULTS")
}
