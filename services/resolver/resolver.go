// Package resolver maps user-supplied ticker input to six-digit market
// codes. Numeric codes pass through untouched; anything else is matched
// against a periodically refreshed listing of company names.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"trendlotto_backend/models"
	"trendlotto_backend/services/providers"
)

const listingRefreshInterval = 24 * time.Hour

// ListingEntry is one tradable instrument in the market listing.
type ListingEntry struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ListingFunc fetches the full market listing.
type ListingFunc func(ctx context.Context) ([]ListingEntry, error)

// Resolver resolves ticker input to codes. Safe for concurrent use.
type Resolver struct {
	fetchListing ListingFunc

	mu        sync.RWMutex
	byName    map[string]string
	fetchedAt time.Time
}

// Global resolver instance
var GlobalResolver *Resolver

// New creates a resolver backed by the given listing source.
func New(fetch ListingFunc) *Resolver {
	return &Resolver{
		fetchListing: fetch,
		byName:       make(map[string]string),
	}
}

// InitResolver sets the global resolver using the HTTP listing endpoint of
// the structured market API.
func InitResolver(baseURL, apiKey string, client *http.Client) {
	GlobalResolver = New(HTTPListing(baseURL, apiKey, client))
}

// HTTPListing returns a ListingFunc reading GET {base}/v1/listing.
func HTTPListing(baseURL, apiKey string, client *http.Client) ListingFunc {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) ([]ListingEntry, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			strings.TrimRight(baseURL, "/")+"/v1/listing", nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build listing request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+apiKey)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("listing request failed: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			return nil, fmt.Errorf("listing request returned status %d", resp.StatusCode)
		}

		var payload struct {
			Items []ListingEntry `json:"items"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, fmt.Errorf("failed to decode listing: %w", err)
		}
		return payload.Items, nil
	}
}

// Resolve returns the six-digit code for input. Input that already looks
// like a code is returned as-is without consulting the listing.
func (r *Resolver) Resolve(ctx context.Context, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("%w: empty ticker", models.ErrNotFound)
	}
	if providers.IsKRXCode(input) {
		return input, nil
	}

	if err := r.refresh(ctx); err != nil {
		return "", err
	}

	r.mu.RLock()
	code, ok := r.byName[normalizeName(input)]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: unknown ticker %q", models.ErrNotFound, input)
	}
	return code, nil
}

// refresh reloads the listing when it is missing or stale. A refresh
// failure with a previously loaded listing is tolerated.
func (r *Resolver) refresh(ctx context.Context) error {
	r.mu.RLock()
	fresh := !r.fetchedAt.IsZero() && time.Since(r.fetchedAt) < listingRefreshInterval
	loaded := len(r.byName) > 0
	r.mu.RUnlock()
	if fresh && loaded {
		return nil
	}

	entries, err := r.fetchListing(ctx)
	if err != nil {
		if loaded {
			log.Printf("Warning: listing refresh failed, keeping stale listing: %v", err)
			return nil
		}
		return fmt.Errorf("%w: listing unavailable: %v", models.ErrUnreachable, err)
	}

	byName := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.Code == "" || e.Name == "" {
			continue
		}
		byName[normalizeName(e.Name)] = e.Code
	}

	r.mu.Lock()
	r.byName = byName
	r.fetchedAt = time.Now()
	r.mu.Unlock()
	log.Printf("Ticker listing refreshed, %d entries", len(byName))
	return nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
