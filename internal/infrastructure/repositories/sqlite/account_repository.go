package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dataplug/internal/core/domain"
)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `INSERT INTO accounts (id, email, created_at) VALUES (?, ?, ?)
			  ON CONFLICT(id) DO UPDATE SET email = excluded.email`

	_, err := r.db.ExecContext(ctx, query, string(account.ID), account.Email, account.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *AccountRepository) List(ctx context.Context) ([]*domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, email, created_at FROM accounts ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		var (
			id        string
			account   domain.Account
			createdAt int64
		)
		if err := rows.Scan(&id, &account.Email, &createdAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		account.ID = domain.AccountID(id)
		account.CreatedAt = time.Unix(0, createdAt).UTC()
		accounts = append(accounts, &account)
	}
	return accounts, rows.Err()
}
