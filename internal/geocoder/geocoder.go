package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the public Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// Client resolves coordinates into human-readable addresses. Best-effort:
// callers substitute an empty address on failure and move on.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a reverse-geocoding client with a bounded request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Reverse returns the display address for the coordinates.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	query := url.Values{
		"format": {"jsonv2"},
		"lat":    {fmt.Sprintf("%.7f", lat)},
		"lon":    {fmt.Sprintf("%.7f", lon)},
	}

	endpoint := fmt.Sprintf("%s/reverse?%s", c.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	// Nominatim's usage policy requires an identifying agent.
	req.Header.Set("User-Agent", "geo-guardian")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("reverse geocode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reverse geocode returned %d", resp.StatusCode)
	}

	var payload struct {
		DisplayName string `json:"display_name"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode reverse geocode response: %w", err)
	}

	return payload.DisplayName, nil
}
