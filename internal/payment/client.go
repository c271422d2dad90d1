// Package payment creates transactions on the card payment gateway, used for
// VIP purchases that bypass the storefront.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Client struct {
	baseURL    string
	merchantID string
	secret     string
	returnURL  string
	failURL    string
	httpClient *http.Client
}

func NewClient(baseURL, merchantID, secret, returnURL, failURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		merchantID: merchantID,
		secret:     secret,
		returnURL:  returnURL,
		failURL:    failURL,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

// Configured reports whether gateway credentials are present. VIP purchase
// is hidden when they are not.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.merchantID != "" && c.secret != ""
}

// Transaction is the gateway's answer to a created payment.
type Transaction struct {
	ID          string
	RedirectURL string
	Status      string
}

type createTxRequest struct {
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	ReturnURL string  `json:"return_url,omitempty"`
	FailURL   string  `json:"fail_url,omitempty"`
	Payload   string  `json:"payload,omitempty"`
}

type createTxResponse struct {
	TransactionID string `json:"transactionId"`
	Redirect      string `json:"redirect"`
	Status        string `json:"status"`
}

// CreateTransaction registers a payment of amount and returns where to send
// the buyer.
func (c *Client) CreateTransaction(ctx context.Context, amount float64, currency, payload string) (*Transaction, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("payment gateway not configured")
	}

	body, err := json.Marshal(createTxRequest{
		Amount:    amount,
		Currency:  currency,
		ReturnURL: c.returnURL,
		FailURL:   c.failURL,
		Payload:   payload,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal transaction: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/transaction/process", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-MerchantId", c.merchantID)
	req.Header.Set("X-Secret", c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("create transaction: status %d", resp.StatusCode)
	}

	var tr createTxResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	if tr.Redirect == "" {
		return nil, fmt.Errorf("create transaction: missing redirect url")
	}
	return &Transaction{ID: tr.TransactionID, RedirectURL: tr.Redirect, Status: tr.Status}, nil
}
