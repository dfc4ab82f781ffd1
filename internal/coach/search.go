package coach

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Place is a single location search hit.
type Place struct {
	Name    string
	Address string
}

// SearchProvider finds real-world places for the location responder.
type SearchProvider interface {
	Search(ctx context.Context, query string) ([]Place, error)
}

// HTTPSearchClient talks to a places text-search API. Every call carries an
// explicit timeout so a slow provider can never hang the session.
type HTTPSearchClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewHTTPSearchClient(apiKey, baseURL string, timeout time.Duration) *HTTPSearchClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPSearchClient{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: strings.TrimSpace(baseURL),
		client:  &http.Client{Timeout: timeout},
	}
}

// Search issues a text search. Failures are operational: the caller
// apologizes and keeps the session alive, it does not retry here.
func (c *HTTPSearchClient) Search(ctx context.Context, query string) ([]Place, error) {
	payload, err := json.Marshal(map[string]any{
		"textQuery": query,
		"pageSize":  5,
	})
	if err != nil {
		return nil, &APIError{Service: "location_search", Message: "encode search request", IsOperational: true, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, &APIError{Service: "location_search", Message: "build search request", IsOperational: true, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", "places.displayName,places.formattedAddress")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &APIError{Service: "location_search", Message: "search call failed", IsOperational: true, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			Service:       "location_search",
			Message:       fmt.Sprintf("search provider returned %d", resp.StatusCode),
			IsOperational: true,
		}
	}

	var decoded struct {
		Places []struct {
			DisplayName struct {
				Text string `json:"text"`
			} `json:"displayName"`
			FormattedAddress string `json:"formattedAddress"`
		} `json:"places"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &APIError{Service: "location_search", Message: "decode search response", IsOperational: true, Err: err}
	}

	places := make([]Place, 0, len(decoded.Places))
	for _, p := range decoded.Places {
		places = append(places, Place{
			Name:    p.DisplayName.Text,
			Address: p.FormattedAddress,
		})
	}
	return places, nil
}
