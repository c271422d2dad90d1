// Package commerce creates and queries orders on the storefront backend.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

type Client struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	httpClient     *http.Client
}

func NewClient(baseURL, consumerKey, consumerSecret string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL:        baseURL,
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		httpClient:     &http.Client{Timeout: timeout},
	}
}

// OrderRequest describes one slot purchase. When ProductID is set the order
// carries a catalog line item; otherwise the amount goes in as a generic fee
// line so catalogs without a bookable SKU still work.
type OrderRequest struct {
	ChatID      int64
	Recipient   string
	ProfileID   int64
	ProfileName string
	PlanName    string
	Hours       int
	Addons      []string
	Date        string
	Start       string
	End         string
	Amount      float64
	Currency    string
	ProductID   int64
	HoldToken   string
}

type lineItem struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Total     string `json:"total"`
}

type feeLine struct {
	Name  string `json:"name"`
	Total string `json:"total"`
}

type metaEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type createOrderRequest struct {
	Status    string      `json:"status"`
	Currency  string      `json:"currency"`
	Billing   orderPerson `json:"billing"`
	LineItems []lineItem  `json:"line_items,omitempty"`
	FeeLines  []feeLine   `json:"fee_lines,omitempty"`
	MetaData  []metaEntry `json:"meta_data"`
}

type orderPerson struct {
	FirstName string `json:"first_name"`
}

type createOrderResponse struct {
	ID         int64  `json:"id"`
	OrderKey   string `json:"order_key"`
	PaymentURL string `json:"payment_url"`
	Status     string `json:"status"`
}

type orderStatusResponse struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// CreateOrder creates a pending order referencing the hold token and returns
// the order id plus a payment URL. When the backend omits payment_url the
// URL is derived from the order key.
func (c *Client) CreateOrder(ctx context.Context, or OrderRequest) (int64, string, error) {
	body := createOrderRequest{
		Status:   "pending",
		Currency: or.Currency,
		Billing:  orderPerson{FirstName: or.Recipient},
		MetaData: []metaEntry{
			{Key: "source", Value: "velora"},
			{Key: "chat_id", Value: strconv.FormatInt(or.ChatID, 10)},
			{Key: "profile_id", Value: strconv.FormatInt(or.ProfileID, 10)},
			{Key: "profile_name", Value: or.ProfileName},
			{Key: "plan", Value: or.PlanName},
			{Key: "hours", Value: strconv.Itoa(or.Hours)},
			{Key: "slot", Value: or.Date + " " + or.Start + "-" + or.End},
			{Key: "hold_token", Value: or.HoldToken},
			{Key: "idempotency_key", Value: uuid.NewString()},
		},
	}
	for _, a := range or.Addons {
		body.MetaData = append(body.MetaData, metaEntry{Key: "addon", Value: a})
	}
	if or.ProductID > 0 {
		body.LineItems = []lineItem{{ProductID: or.ProductID, Quantity: 1, Total: money(or.Amount)}}
	} else {
		name := or.ProfileName
		if name == "" {
			name = "Booking"
		}
		body.FeeLines = []feeLine{{Name: name + " " + or.Date + " " + or.Start + "-" + or.End, Total: money(or.Amount)}}
	}

	blob, err := json.Marshal(body)
	if err != nil {
		return 0, "", fmt.Errorf("marshal order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/orders", bytes.NewReader(blob))
	if err != nil {
		return 0, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.consumerKey, c.consumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("create order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return 0, "", fmt.Errorf("create order: status %d", resp.StatusCode)
	}

	var cr createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return 0, "", fmt.Errorf("decode order: %w", err)
	}
	if cr.ID == 0 {
		return 0, "", fmt.Errorf("create order: missing order id")
	}

	payURL := cr.PaymentURL
	if payURL == "" && cr.OrderKey != "" {
		payURL = fmt.Sprintf("%s/checkout/order-pay/%d/?pay_for_order=true&key=%s", c.baseURL, cr.ID, cr.OrderKey)
	}
	return cr.ID, payURL, nil
}

// OrderStatus queries the current order status, retrying transient upstream
// failures.
func (c *Client) OrderStatus(ctx context.Context, orderID int64) (string, error) {
	var status string
	backoff := retry.WithMaxRetries(2, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/orders/%d", c.baseURL, orderID), nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.SetBasicAuth(c.consumerKey, c.consumerSecret)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("order status: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("order status: status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("order status: status %d", resp.StatusCode)
		}

		var sr orderStatusResponse
		if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
			return fmt.Errorf("decode status: %w", err)
		}
		status = sr.Status
		return nil
	})
	return status, err
}
