package benchmark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/veloperf/internal/domain/drafting"
	"github.com/okian/veloperf/pkg/units"
)

// Client asks a running veloperf server for multipliers over POST /v1/draft.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a Client for baseURL with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type draftRequest struct {
	Model    string  `json:"model"`
	Riders   int     `json:"riders"`
	Position int     `json:"position"`
	SpeedKmh float64 `json:"speed_kmh"`
	GapM     float64 `json:"gap_m"`
}

type draftResponse struct {
	Multiplier float64 `json:"multiplier"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CheckHealth verifies the server answers GET /healthz.
func (c *Client) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRemote, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRemote, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health status %d", ErrRemote, resp.StatusCode)
	}
	return nil
}

// Multiplier implements MultiplierSource.
func (c *Client) Multiplier(ctx context.Context, model string, cfg drafting.Config) (float64, error) {
	body, err := json.Marshal(draftRequest{
		Model:    model,
		Riders:   cfg.Riders,
		Position: cfg.Position,
		SpeedKmh: units.MsToKmh(cfg.Speed),
		GapM:     cfg.Gap,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRemote, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/draft", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRemote, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRemote, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("%w: read body: %w", ErrRemote, err)
	}

	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		if json.Unmarshal(data, &e) == nil && e.Message != "" {
			return 0, fmt.Errorf("%w: %d %s: %s", ErrRemote, resp.StatusCode, e.Code, e.Message)
		}
		return 0, fmt.Errorf("%w: status %d", ErrRemote, resp.StatusCode)
	}
	var out draftResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return 0, fmt.Errorf("%w: decode: %w", ErrRemote, err)
	}
	return out.Multiplier, nil
}
