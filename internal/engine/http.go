package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ILLUVRSE/trip-planner/internal/contracts"
)

type HTTPEngineConfig struct {
	BaseURL    string
	Timeout    time.Duration
	Retries    int
	HTTPClient *http.Client
}

// HTTPEngine delegates selection to an external reasoning service. Each
// call POSTs {"input", "candidates", "output_schema"} and expects the stage
// output contract back.
type HTTPEngine struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	retries int
}

func NewHTTPEngine(cfg HTTPEngineConfig) (*HTTPEngine, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("engine base url required")
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}
	return &HTTPEngine{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		client:  client,
		timeout: timeout,
		retries: retries,
	}, nil
}

type selectRequest struct {
	Input        any             `json:"input"`
	Candidates   any             `json:"candidates"`
	OutputSchema json.RawMessage `json:"output_schema"`
}

func (e *HTTPEngine) SelectFlight(ctx context.Context, in contracts.FlightResearchInput, candidates []contracts.FlightOffer) (contracts.FlightResearchOutput, error) {
	var out contracts.FlightResearchOutput
	err := e.post(ctx, "/select/flight", contracts.SchemaFlightResearchOutput, in, candidates, &out)
	return out, err
}

func (e *HTTPEngine) SelectHotel(ctx context.Context, in contracts.HotelResearchInput, candidates []contracts.HotelOffer) (contracts.HotelResearchOutput, error) {
	var out contracts.HotelResearchOutput
	err := e.post(ctx, "/select/hotel", contracts.SchemaHotelResearchOutput, in, candidates, &out)
	return out, err
}

func (e *HTTPEngine) post(ctx context.Context, path string, schema contracts.Schema, in, candidates, out any) error {
	doc, err := contracts.Document(schema)
	if err != nil {
		return err
	}
	body, err := json.Marshal(selectRequest{Input: in, Candidates: candidates, OutputSchema: doc})
	if err != nil {
		return fmt.Errorf("engine marshal request: %w", err)
	}

	attempts := e.retries + 1
	var lastErr error
	for i := 0; i < attempts; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
		httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, e.baseURL+path, bytes.NewReader(body))
		if err != nil {
			cancel()
			return fmt.Errorf("engine build request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		resp, err := e.client.Do(httpReq)
		if err != nil {
			lastErr = err
		} else {
			parseErr := decodeSelection(resp, out)
			resp.Body.Close()
			if parseErr == nil {
				cancel()
				return nil
			}
			var rejected *rejectedError
			if errors.As(parseErr, &rejected) {
				cancel()
				return fmt.Errorf("engine %s failed: %w", path, parseErr)
			}
			lastErr = parseErr
		}
		cancel()
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i+1) * 100 * time.Millisecond):
			}
		}
	}
	return fmt.Errorf("engine %s failed: %w", path, lastErr)
}

// rejectedError is a 4xx answer other than 429. Retrying it cannot help.
type rejectedError struct {
	status string
}

func (e *rejectedError) Error() string {
	return "engine rejected request: " + e.status
}

func decodeSelection(resp *http.Response, out any) error {
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("engine unavailable: %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return &rejectedError{status: resp.Status}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("engine decode response: %w", err)
	}
	return nil
}
