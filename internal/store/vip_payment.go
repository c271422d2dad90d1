package store

import (
	"database/sql"
	"fmt"

	"github.com/mirelabs/velora/internal/model"
)

type VIPPaymentStore struct {
	db *sql.DB
}

func NewVIPPaymentStore(db *sql.DB) *VIPPaymentStore {
	return &VIPPaymentStore{db: db}
}

func (s *VIPPaymentStore) Create(p model.VIPPayment) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO vip_payments (chat_id, transaction_id, amount, currency, status, redirect_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ChatID, p.TransactionID, p.Amount, p.Currency, p.Status, p.RedirectURL, p.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert vip payment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func (s *VIPPaymentStore) UpdateStatus(transactionID, status string) error {
	_, err := s.db.Exec(
		`UPDATE vip_payments SET status = ? WHERE transaction_id = ?`,
		status, transactionID,
	)
	if err != nil {
		return fmt.Errorf("update vip payment %q: %w", transactionID, err)
	}
	return nil
}

func (s *VIPPaymentStore) LatestForChat(chatID int64) (*model.VIPPayment, error) {
	row := s.db.QueryRow(
		`SELECT id, chat_id, transaction_id, amount, currency, status, redirect_url, created_at
		 FROM vip_payments WHERE chat_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		chatID,
	)
	var p model.VIPPayment
	err := row.Scan(&p.ID, &p.ChatID, &p.TransactionID, &p.Amount, &p.Currency, &p.Status, &p.RedirectURL, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest vip payment for %d: %w", chatID, err)
	}
	return &p, nil
}
