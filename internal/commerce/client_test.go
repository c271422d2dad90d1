package commerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCreateOrderLineItem(t *testing.T) {
	var got createOrderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "ck" || pass != "cs" {
			t.Errorf("basic auth = %q/%q/%v", user, pass, ok)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":5001,"order_key":"wc_abc","payment_url":"https://pay.example/5001"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "ck", "cs", 5*time.Second)
	id, payURL, err := c.CreateOrder(context.Background(), OrderRequest{
		ChatID: 42, Recipient: "Bob", ProfileID: 7, ProfileName: "Alice",
		PlanName: "Standard", Hours: 2, Date: "2026-09-01", Start: "11:00", End: "13:00",
		Amount: 600, Currency: "RUB", ProductID: 101, HoldToken: "tok-123",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if id != 5001 || payURL != "https://pay.example/5001" {
		t.Errorf("id=%d url=%q", id, payURL)
	}

	if len(got.LineItems) != 1 || got.LineItems[0].ProductID != 101 || got.LineItems[0].Total != "600.00" {
		t.Errorf("line items = %+v", got.LineItems)
	}
	if len(got.FeeLines) != 0 {
		t.Errorf("fee lines should be empty with a product id: %+v", got.FeeLines)
	}

	meta := make(map[string]string)
	for _, m := range got.MetaData {
		meta[m.Key] = m.Value
	}
	if meta["hold_token"] != "tok-123" || meta["slot"] != "2026-09-01 11:00-13:00" {
		t.Errorf("meta = %v", meta)
	}
	if meta["idempotency_key"] == "" {
		t.Error("idempotency key missing")
	}
}

func TestCreateOrderFeeLineFallback(t *testing.T) {
	var got createOrderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"id":5002,"order_key":"wc_key"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "ck", "cs", 5*time.Second)
	id, payURL, err := c.CreateOrder(context.Background(), OrderRequest{
		ProfileName: "Alice", Date: "2026-09-01", Start: "11:00", End: "13:00",
		Amount: 600, Currency: "RUB",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if id != 5002 {
		t.Errorf("id = %d", id)
	}
	if len(got.FeeLines) != 1 || got.FeeLines[0].Total != "600.00" {
		t.Errorf("fee lines = %+v", got.FeeLines)
	}
	if len(got.LineItems) != 0 {
		t.Errorf("line items should be empty without a product id: %+v", got.LineItems)
	}

	// payment_url omitted: derived from the order key
	if !strings.Contains(payURL, "/checkout/order-pay/5002/") || !strings.Contains(payURL, "key=wc_key") {
		t.Errorf("derived payment url = %q", payURL)
	}
}

func TestCreateOrderMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "ck", "cs", 5*time.Second)
	if _, _, err := c.CreateOrder(context.Background(), OrderRequest{Amount: 100}); err == nil {
		t.Fatal("expected error when order id missing")
	}
}

func TestOrderStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders/5001" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"id":5001,"status":"processing"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "ck", "cs", 5*time.Second)
	status, err := c.OrderStatus(context.Background(), 5001)
	if err != nil {
		t.Fatalf("order status: %v", err)
	}
	if status != "processing" {
		t.Errorf("status = %q", status)
	}
}

func TestOrderStatusRetries(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"id":9,"status":"completed"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "ck", "cs", 5*time.Second)
	status, err := c.OrderStatus(context.Background(), 9)
	if err != nil {
		t.Fatalf("order status: %v", err)
	}
	if status != "completed" || calls != 2 {
		t.Errorf("status=%q calls=%d", status, calls)
	}
}
