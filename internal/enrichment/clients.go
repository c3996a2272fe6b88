package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"argus/internal/constants"
	"argus/pkg/circuitbreaker"
	"argus/pkg/models"
)

// Each remote sub-service exposes a single POST endpoint that takes the
// message text and returns its fragment of the enrichment record.
const (
	classifyPath  = "/v1/classify"
	entitiesPath  = "/v1/entities"
	geolocatePath = "/v1/geolocate"
)

type ClassificationClient interface {
	Classify(ctx context.Context, text string) (*models.Classification, error)
}

type EntitiesClient interface {
	Extract(ctx context.Context, text string) (*models.Entities, error)
}

type GeolocationClient interface {
	Locate(ctx context.Context, text string) ([]models.Geolocation, error)
}

type enrichRequest struct {
	Text string `json:"text"`
}

type geolocateResponse struct {
	Geolocations []models.Geolocation `json:"geolocations"`
}

// httpSubService is the shared transport for the remote clients. When a
// circuit breaker is attached every call goes through it, so an open breaker
// fails fast instead of burning the sub-call timeout on a known-dead peer.
type httpSubService struct {
	baseURL string
	client  *http.Client
	breaker *circuitbreaker.Wrapper
}

func newHTTPSubService(baseURL string, timeout time.Duration, breaker *circuitbreaker.Wrapper) *httpSubService {
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}
	return &httpSubService{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
	}
}

func (s *httpSubService) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	call := func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("sub-service request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
			return nil, fmt.Errorf("sub-service returned status: %d", resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		return nil, nil
	}

	if s.breaker != nil {
		_, err = s.breaker.ExecuteWithContext(ctx, call)
		s.breaker.RecordRequest(err == nil)
		return err
	}
	_, err = call()
	return err
}

type HTTPClassificationClient struct {
	*httpSubService
}

func NewClassificationClient(baseURL string, timeout time.Duration, breaker *circuitbreaker.Wrapper) *HTTPClassificationClient {
	return &HTTPClassificationClient{newHTTPSubService(baseURL, timeout, breaker)}
}

func (c *HTTPClassificationClient) Classify(ctx context.Context, text string) (*models.Classification, error) {
	var result models.Classification
	if err := c.post(ctx, classifyPath, enrichRequest{Text: text}, &result); err != nil {
		return nil, err
	}

	// Tolerate sloppy peers: clamp the score into its documented range and
	// normalize a missing sentiment instead of rejecting the whole fragment.
	if result.OSINTScore < 0 {
		result.OSINTScore = 0
	}
	if result.OSINTScore > 100 {
		result.OSINTScore = 100
	}
	if result.Sentiment == "" {
		result.Sentiment = models.SentimentUnknown
	}

	return &result, nil
}

type HTTPEntitiesClient struct {
	*httpSubService
}

func NewEntitiesClient(baseURL string, timeout time.Duration, breaker *circuitbreaker.Wrapper) *HTTPEntitiesClient {
	return &HTTPEntitiesClient{newHTTPSubService(baseURL, timeout, breaker)}
}

func (c *HTTPEntitiesClient) Extract(ctx context.Context, text string) (*models.Entities, error) {
	var result models.Entities
	if err := c.post(ctx, entitiesPath, enrichRequest{Text: text}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type HTTPGeolocationClient struct {
	*httpSubService
}

func NewGeolocationClient(baseURL string, timeout time.Duration, breaker *circuitbreaker.Wrapper) *HTTPGeolocationClient {
	return &HTTPGeolocationClient{newHTTPSubService(baseURL, timeout, breaker)}
}

func (c *HTTPGeolocationClient) Locate(ctx context.Context, text string) ([]models.Geolocation, error) {
	var result geolocateResponse
	if err := c.post(ctx, geolocatePath, enrichRequest{Text: text}, &result); err != nil {
		return nil, err
	}
	return result.Geolocations, nil
}
