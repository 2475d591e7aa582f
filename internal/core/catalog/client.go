package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// ErrMetadataLoad marks any failure to fetch the metadata catalog.
// Callers match it with errors.Is; the cause is wrapped underneath.
var ErrMetadataLoad = errors.New("metadata load failed")

// Client fetches device/variable metadata from the gateway REST API.
type Client struct {
	base string
	hc   *http.Client
	lg   zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, lg zerolog.Logger) *Client {
	return &Client{
		base: baseURL,
		hc:   &http.Client{Timeout: timeout},
		lg:   lg.With().Str("component", "catalog").Logger(),
	}
}

// LoadMetadata fetches both collections and returns a fresh snapshot.
// Idempotent and safe to call repeatedly; it carries no retry policy of
// its own.
func (c *Client) LoadMetadata(ctx context.Context) (*Catalog, error) {
	var devices []Device
	if err := c.getJSON(ctx, c.base+"/devices", &devices); err != nil {
		return nil, fmt.Errorf("%w: devices: %w", ErrMetadataLoad, err)
	}

	var variables []Variable
	if err := c.getJSON(ctx, c.base+"/variables", &variables); err != nil {
		return nil, fmt.Errorf("%w: variables: %w", ErrMetadataLoad, err)
	}

	c.lg.Info().
		Int("devices", len(devices)).
		Int("variables", len(variables)).
		Msg("metadata loaded")

	return New(devices, variables), nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
