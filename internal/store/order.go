package store

import (
	"database/sql"
	"fmt"

	"github.com/mirelabs/velora/internal/model"
)

type OrderStore struct {
	db *sql.DB
}

func NewOrderStore(db *sql.DB) *OrderStore {
	return &OrderStore{db: db}
}

const orderCols = `order_id, chat_id, profile_id, profile_name, amount, currency,
	status, last_checked_at, post_purchase_sent, created_at, paid_at`

func scanOrder(scanner interface{ Scan(...any) error }) (*model.Order, error) {
	var o model.Order
	err := scanner.Scan(
		&o.OrderID, &o.ChatID, &o.ProfileID, &o.ProfileName, &o.Amount, &o.Currency,
		&o.Status, &o.LastCheckedAt, &o.PostPurchaseSent, &o.CreatedAt, &o.PaidAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *OrderStore) Create(o model.Order) error {
	_, err := s.db.Exec(
		`INSERT INTO orders (order_id, chat_id, profile_id, profile_name, amount, currency, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(order_id) DO NOTHING`,
		o.OrderID, o.ChatID, o.ProfileID, o.ProfileName, o.Amount, o.Currency, o.Status, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order %d: %w", o.OrderID, err)
	}
	return nil
}

func (s *OrderStore) Get(orderID int64) (*model.Order, error) {
	row := s.db.QueryRow(`SELECT `+orderCols+` FROM orders WHERE order_id = ?`, orderID)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", orderID, err)
	}
	return o, nil
}

// ListUnsent returns orders still awaiting the post-purchase flow, oldest
// first, capped to keep one watcher pass bounded.
func (s *OrderStore) ListUnsent(limit int) ([]model.Order, error) {
	rows, err := s.db.Query(
		`SELECT `+orderCols+` FROM orders
		 WHERE post_purchase_sent = 0 ORDER BY created_at ASC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list unsent orders: %w", err)
	}
	defer rows.Close()

	var out []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// RecordStatus stores the latest upstream status and check time. paidAt is
// written only on the first transition into a paid status.
func (s *OrderStore) RecordStatus(orderID int64, status string, checkedAt int64) error {
	_, err := s.db.Exec(
		`UPDATE orders SET status = ?, last_checked_at = ?,
		   paid_at = CASE WHEN paid_at = 0 AND ? IN ('processing', 'completed') THEN ? ELSE paid_at END
		 WHERE order_id = ?`,
		status, checkedAt, status, checkedAt, orderID,
	)
	if err != nil {
		return fmt.Errorf("record order status %d: %w", orderID, err)
	}
	return nil
}

func (s *OrderStore) MarkPostPurchaseSent(orderID int64) error {
	_, err := s.db.Exec(`UPDATE orders SET post_purchase_sent = 1 WHERE order_id = ?`, orderID)
	if err != nil {
		return fmt.Errorf("mark order %d sent: %w", orderID, err)
	}
	return nil
}
