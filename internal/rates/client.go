package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrUnavailable covers every provider failure: transport error, non-2xx
// status, malformed body, or a missing/non-positive rate. The worker maps
// it to a FAILURE on the task, never a crash.
var ErrUnavailable = errors.New("rate unavailable")

// Source is the lookup contract the worker depends on.
type Source interface {
	GetRate(ctx context.Context, baseCurrency string) (decimal.Decimal, error)
}

// Client calls the external rate provider. One call returns the
// multiplier from baseCurrency to the configured target currency.
type Client struct {
	baseURL string
	apiKey  string
	target  string
	http    *http.Client
	log     *zap.SugaredLogger
}

// NewClient constructs the provider client with a bounded per-call
// timeout so a stuck provider cannot starve the worker pool.
func NewClient(baseURL, apiKey, target string, timeout time.Duration, logger *zap.SugaredLogger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		target:  target,
		http:    &http.Client{Timeout: timeout},
		log:     logger,
	}
}

type latestResponse struct {
	Response struct {
		Rates map[string]json.Number `json:"rates"`
	} `json:"response"`
}

// GetRate fetches the current base->target multiplier. The rate keeps the
// provider's full decimal precision; truncating it to an integer before
// multiplying collapses most real rates to zero.
func (c *Client) GetRate(ctx context.Context, baseCurrency string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("base", baseCurrency)
	endpoint := c.baseURL + "/latest?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Errorf("rate lookup base=%s: %v", baseCurrency, err)
		return decimal.Zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Errorf("rate lookup base=%s: status %d", baseCurrency, resp.StatusCode)
		return decimal.Zero, fmt.Errorf("%w: provider returned %d", ErrUnavailable, resp.StatusCode)
	}

	var body latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	raw, ok := body.Response.Rates[c.target]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no %s rate in response", ErrUnavailable, c.target)
	}
	rate, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: bad rate %q: %v", ErrUnavailable, raw.String(), err)
	}
	if rate.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w: non-positive rate %s", ErrUnavailable, rate)
	}
	return rate, nil
}

// Target returns the configured target currency code.
func (c *Client) Target() string { return c.target }
