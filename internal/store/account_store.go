package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/goal-guardian/internal/model"
)

const accountColumns = "id, username, email, mailbox_address, bank_id, created_at"

// CreateAccount inserts a new account. Generates a UUID if ID is empty.
func (s *SQLiteStore) CreateAccount(
	ctx context.Context,
	a model.Account,
) (*model.Account, error) {
	a.Username = strings.TrimSpace(a.Username)
	if a.Username == "" {
		return nil, fmt.Errorf("account username must not be empty")
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.BankID = strings.ToLower(strings.TrimSpace(a.BankID))
	a.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Username, a.Email, a.MailboxAddress, a.BankID, encodeTime(a.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("creating account %q: %w", a.Username, err)
	}
	return &a, nil
}

// GetAccount retrieves an account by ID.
func (s *SQLiteStore) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	var row accountRow
	err := s.db.GetContext(ctx, &row,
		"SELECT "+accountColumns+" FROM accounts WHERE id = ?", id)
	if err != nil {
		return nil, notFound(err, "account "+id)
	}
	a, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAccountByUsername retrieves an account by its unique username.
func (s *SQLiteStore) GetAccountByUsername(
	ctx context.Context,
	username string,
) (*model.Account, error) {
	var row accountRow
	err := s.db.GetContext(ctx, &row,
		"SELECT "+accountColumns+" FROM accounts WHERE username = ?", username)
	if err != nil {
		return nil, notFound(err, "account "+username)
	}
	a, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAccounts returns every account ordered by username.
func (s *SQLiteStore) ListAccounts(ctx context.Context) ([]model.Account, error) {
	var rows []accountRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT "+accountColumns+" FROM accounts ORDER BY username")
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}

	accounts := make([]model.Account, 0, len(rows))
	for _, r := range rows {
		a, err := r.toModel()
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

// LinkMailbox records the mailbox address and bank for an account. The
// mailbox password lives in the credential store, not here.
func (s *SQLiteStore) LinkMailbox(
	ctx context.Context,
	accountID, address, bankID string,
) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE accounts SET mailbox_address = ?, bank_id = ? WHERE id = ?",
		strings.TrimSpace(address), strings.ToLower(strings.TrimSpace(bankID)), accountID,
	)
	if err != nil {
		return fmt.Errorf("linking mailbox for account %s: %w", accountID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("linking mailbox for account %s: %w", accountID, err)
	}
	if n == 0 {
		return fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}
	return nil
}
