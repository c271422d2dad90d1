// Package schedule talks to the upstream scheduling service: plan
// configuration per product, raw availability calendars, and short-lived
// slot holds.
package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/mirelabs/velora/internal/model"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ProductConfig is the bookable configuration of one catalog product.
type ProductConfig struct {
	Plans    []model.Plan `json:"plans"`
	WorkerID int64        `json:"worker_id"`
	Currency string       `json:"currency"`
}

type productConfigResponse struct {
	OK     bool          `json:"ok"`
	Error  string        `json:"error"`
	Config ProductConfig `json:"config"`
}

type slotsResponse struct {
	OK       bool                `json:"ok"`
	Error    string              `json:"error"`
	Calendar []model.CalendarDay `json:"calendar"`
}

type holdResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Token string `json:"token"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	backoff := retry.WithMaxRetries(2, retry.NewExponential(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		if c.apiKey != "" {
			req.Header.Set("X-Api-Key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("schedule request: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("schedule: status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("schedule: status %d", resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}

// ProductConfig fetches the plans, worker and currency for a product. A
// response without ok is an error even on HTTP 200.
func (c *Client) ProductConfig(ctx context.Context, productID int64) (*ProductConfig, error) {
	q := url.Values{"product_id": {strconv.FormatInt(productID, 10)}}
	var pr productConfigResponse
	if err := c.get(ctx, "/product-config", q, &pr); err != nil {
		return nil, err
	}
	if !pr.OK {
		return nil, fmt.Errorf("product config %d: %s", productID, orUnknown(pr.Error))
	}
	return &pr.Config, nil
}

// Slots fetches the raw availability calendar for a worker over the next
// days days.
func (c *Client) Slots(ctx context.Context, workerID int64, days int) ([]model.CalendarDay, error) {
	q := url.Values{
		"worker_id": {strconv.FormatInt(workerID, 10)},
		"days":      {strconv.Itoa(days)},
	}
	var sr slotsResponse
	if err := c.get(ctx, "/slots", q, &sr); err != nil {
		return nil, err
	}
	if !sr.OK {
		return nil, fmt.Errorf("slots for worker %d: %s", workerID, orUnknown(sr.Error))
	}
	return sr.Calendar, nil
}

// Hold reserves the exact window for ttl. Orders are never created without
// the returned token.
func (c *Client) Hold(ctx context.Context, workerID int64, date, start, end string, ttl time.Duration) (string, error) {
	q := url.Values{
		"worker_id": {strconv.FormatInt(workerID, 10)},
		"date":      {date},
		"start":     {start},
		"end":       {end},
		"ttl":       {strconv.Itoa(int(ttl.Seconds()))},
	}
	var hr holdResponse
	if err := c.get(ctx, "/hold", q, &hr); err != nil {
		return "", err
	}
	if !hr.OK || hr.Token == "" {
		return "", fmt.Errorf("hold %s %s-%s: %s", date, start, end, orUnknown(hr.Error))
	}
	return hr.Token, nil
}

func orUnknown(msg string) string {
	if msg == "" {
		return "upstream refused"
	}
	return msg
}
