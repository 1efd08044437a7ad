package pairingimport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/crossed-lances/tablemaster/app/shared/sharedtypes"
)

const defaultMaxRetries = 2 // 3 attempts total

// Client fetches round pairings from the external pairing service. Requests
// are rate limited and transient failures are retried with exponential
// backoff; a 4xx response is terminal.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     *slog.Logger
	maxRetries uint64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithMaxRetries sets the retry count after the initial attempt.
func WithMaxRetries(retries uint64) ClientOption {
	return func(c *Client) { c.maxRetries = retries }
}

// NewClient creates a pairing service client.
func NewClient(baseURL string, logger *slog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(rate.Limit(5), 10),
		logger:     logger,
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchRoundPairings retrieves the pairing list for one round of a
// tournament.
func (c *Client) FetchRoundPairings(ctx context.Context, tournamentID uuid.UUID, roundNumber sharedtypes.RoundNumber) (*RoundPairings, error) {
	url := fmt.Sprintf("%s/tournaments/%s/rounds/%d/pairings", c.baseURL, tournamentID, roundNumber)

	var result *RoundPairings
	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.WarnContext(ctx, "Pairing fetch attempt failed",
				slog.String("url", url),
				slog.Any("error", err),
			)
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			// fallthrough to decode
		case resp.StatusCode >= 500:
			c.logger.WarnContext(ctx, "Pairing service returned server error",
				slog.String("url", url),
				slog.Int("status", resp.StatusCode),
			)
			return fmt.Errorf("pairing service returned %d", resp.StatusCode)
		default:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return backoff.Permanent(fmt.Errorf("pairing service returned %d: %s", resp.StatusCode, body))
		}

		var decoded RoundPairings
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode pairing response: %w", err))
		}
		result = &decoded
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("failed to fetch pairings for round %d: %w", roundNumber, err)
	}

	c.logger.InfoContext(ctx, "Fetched round pairings",
		slog.String("tournament_id", tournamentID.String()),
		slog.Int("round_number", int(roundNumber)),
		slog.Int("pairings", len(result.Pairings)),
	)
	return result, nil
}
