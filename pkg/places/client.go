package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/plannery/plannery-backend/config"
	"github.com/plannery/plannery-backend/pkg/cache"
	"github.com/plannery/plannery-backend/pkg/logger"
	"golang.org/x/time/rate"
)

var (
	// ErrRateLimited is returned when the local token bucket for the
	// operation is exhausted. Callers skip the call instead of queueing
	// behind the limiter.
	ErrRateLimited = errors.New("places: local rate limit exceeded")

	// ErrAPIStatus is wrapped when the API returns a non-OK status code
	// in the response body.
	ErrAPIStatus = errors.New("places: api returned error status")
)

const (
	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
	statusNotFound    = "NOT_FOUND"
	statusOverLimit   = "OVER_QUERY_LIMIT"
)

// Client calls the Google Places API with a per-operation token bucket,
// a Redis response cache and retry with exponential backoff.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cache      *cache.Cache
	cacheTTL   time.Duration
	maxRetries int

	searchLimiter  *rate.Limiter
	detailsLimiter *rate.Limiter
}

func NewClient(cfg *config.PlacesConfig, c *cache.Cache) *Client {
	return &Client{
		apiKey:         cfg.APIKey,
		baseURL:        cfg.BaseURL,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		cache:          c,
		cacheTTL:       cfg.CacheTTL,
		maxRetries:     cfg.MaxRetries,
		searchLimiter:  rate.NewLimiter(rate.Limit(cfg.SearchRatePerSec), int(cfg.SearchRatePerSec)+1),
		detailsLimiter: rate.NewLimiter(rate.Limit(cfg.DetailsRatePerSec), int(cfg.DetailsRatePerSec)+1),
	}
}

// SearchNearby returns places of the given category around a point.
// Results are cached by (lat, lng, radius, category) for the configured TTL.
func (c *Client) SearchNearby(ctx context.Context, lat, lng float64, radiusMeters int, category string) ([]PlaceResult, error) {
	cacheKey := fmt.Sprintf("places:nearby:%.6f:%.6f:%d:%s", lat, lng, radiusMeters, category)

	var cached []PlaceResult
	if c.cache != nil {
		if err := c.cache.Get(ctx, cacheKey, &cached); err == nil {
			logger.Debug("Places nearby cache hit", map[string]interface{}{
				"key": cacheKey,
			})
			return cached, nil
		}
	}

	if !c.searchLimiter.Allow() {
		return nil, ErrRateLimited
	}

	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", lat, lng))
	params.Set("radius", fmt.Sprintf("%d", radiusMeters))
	params.Set("type", category)
	params.Set("key", c.apiKey)
	endpoint := fmt.Sprintf("%s/nearbysearch/json?%s", c.baseURL, params.Encode())

	body, err := c.doWithRetry(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var resp nearbySearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode nearby search response: %w", err)
	}

	switch resp.Status {
	case statusOK:
	case statusZeroResults:
		resp.Results = nil
	default:
		logger.Warn("Places nearby search returned error status", map[string]interface{}{
			"status":  resp.Status,
			"message": resp.ErrorMessage,
		})
		return nil, fmt.Errorf("%w: %s", ErrAPIStatus, resp.Status)
	}

	if c.cache != nil {
		c.cache.Set(ctx, cacheKey, resp.Results, c.cacheTTL)
	}
	return resp.Results, nil
}

// GetPlaceDetails fetches the full record for one place.
// Returns (nil, nil) when the place no longer exists upstream.
func (c *Client) GetPlaceDetails(ctx context.Context, placeID string) (*PlaceDetails, error) {
	cacheKey := fmt.Sprintf("places:details:%s", placeID)

	var cached PlaceDetails
	if c.cache != nil {
		if err := c.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	if !c.detailsLimiter.Allow() {
		return nil, ErrRateLimited
	}

	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", "place_id,name,formatted_address,formatted_phone_number,website,geometry,types,rating,user_ratings_total,price_level,business_status,photos,opening_hours,editorial_summary")
	params.Set("key", c.apiKey)
	endpoint := fmt.Sprintf("%s/details/json?%s", c.baseURL, params.Encode())

	body, err := c.doWithRetry(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var resp placeDetailsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode place details response: %w", err)
	}

	switch resp.Status {
	case statusOK:
	case statusNotFound, statusZeroResults:
		// The place was removed upstream. Not an error for callers.
		return nil, nil
	default:
		logger.Warn("Place details returned error status", map[string]interface{}{
			"status":   resp.Status,
			"place_id": placeID,
			"message":  resp.ErrorMessage,
		})
		return nil, fmt.Errorf("%w: %s", ErrAPIStatus, resp.Status)
	}

	if c.cache != nil && resp.Result != nil {
		c.cache.Set(ctx, cacheKey, resp.Result, c.cacheTTL)
	}
	return resp.Result, nil
}

// PhotoURL builds the redirecting photo endpoint URL for a photo reference
// at the given maximum width.
func (c *Client) PhotoURL(photoReference string, maxWidth int) string {
	params := url.Values{}
	params.Set("maxwidth", fmt.Sprintf("%d", maxWidth))
	params.Set("photo_reference", photoReference)
	params.Set("key", c.apiKey)
	return fmt.Sprintf("%s/photo?%s", c.baseURL, params.Encode())
}

// doWithRetry performs a GET with exponential backoff plus jitter on
// transient failures (network errors, 429, 5xx). Non-transient HTTP codes
// fail immediately.
func (c *Client) doWithRetry(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			backoff += time.Duration(rand.Int63n(int64(500 * time.Millisecond)))
			logger.Debug("Retrying places request", map[string]interface{}{
				"attempt": attempt,
				"backoff": backoff.String(),
			})
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("places api returned HTTP %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("places api returned HTTP %d", resp.StatusCode)
		}
		return body, nil
	}

	return nil, fmt.Errorf("places request failed after %d retries: %w", c.maxRetries, lastErr)
}
