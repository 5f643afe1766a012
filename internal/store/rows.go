package store

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/nhle/goal-guardian/internal/model"
)

// Row types mirror table columns; timestamps and amounts stay as stored
// text until converted.

type accountRow struct {
	ID             string `db:"id"`
	Username       string `db:"username"`
	Email          string `db:"email"`
	MailboxAddress string `db:"mailbox_address"`
	BankID         string `db:"bank_id"`
	CreatedAt      string `db:"created_at"`
}

func (r accountRow) toModel() (model.Account, error) {
	created, err := decodeTime(r.CreatedAt)
	if err != nil {
		return model.Account{}, err
	}
	return model.Account{
		ID:             r.ID,
		Username:       r.Username,
		Email:          r.Email,
		MailboxAddress: r.MailboxAddress,
		BankID:         r.BankID,
		CreatedAt:      created,
	}, nil
}

type transactionRow struct {
	ID          string `db:"id"`
	AccountID   string `db:"account_id"`
	Date        string `db:"date"`
	Amount      string `db:"amount"`
	Description string `db:"description"`
	Direction   string `db:"direction"`
	DedupKey    string `db:"dedup_key"`
	CreatedAt   string `db:"created_at"`
}

func (r transactionRow) toModel() (model.StoredTransaction, error) {
	date, err := decodeTime(r.Date)
	if err != nil {
		return model.StoredTransaction{}, err
	}
	created, err := decodeTime(r.CreatedAt)
	if err != nil {
		return model.StoredTransaction{}, err
	}
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return model.StoredTransaction{}, fmt.Errorf("decoding amount %q: %w", r.Amount, err)
	}
	return model.StoredTransaction{
		ID:        r.ID,
		AccountID: r.AccountID,
		TransactionRecord: model.TransactionRecord{
			Date:        date,
			Amount:      amount,
			Description: r.Description,
			Direction:   model.Direction(r.Direction),
		},
		CreatedAt: created,
	}, nil
}

type budgetRow struct {
	ID          string `db:"id"`
	AccountID   string `db:"account_id"`
	Amount      string `db:"amount"`
	WindowStart string `db:"window_start"`
	WindowEnd   string `db:"window_end"`
	CreatedAt   string `db:"created_at"`
}

func (r budgetRow) toModel() (model.Budget, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return model.Budget{}, fmt.Errorf("decoding budget amount %q: %w", r.Amount, err)
	}
	start, err := decodeTime(r.WindowStart)
	if err != nil {
		return model.Budget{}, err
	}
	end, err := decodeTime(r.WindowEnd)
	if err != nil {
		return model.Budget{}, err
	}
	created, err := decodeTime(r.CreatedAt)
	if err != nil {
		return model.Budget{}, err
	}
	return model.Budget{
		ID:          r.ID,
		AccountID:   r.AccountID,
		Amount:      amount,
		WindowStart: start,
		WindowEnd:   end,
		CreatedAt:   created,
	}, nil
}

type notificationRow struct {
	ID        string         `db:"id"`
	AccountID string         `db:"account_id"`
	Kind      string         `db:"kind"`
	Message   string         `db:"message"`
	CreatedAt string         `db:"created_at"`
	ReadAt    sql.NullString `db:"read_at"`
}

func (r notificationRow) toModel() (model.Notification, error) {
	created, err := decodeTime(r.CreatedAt)
	if err != nil {
		return model.Notification{}, err
	}
	n := model.Notification{
		ID:        r.ID,
		AccountID: r.AccountID,
		Kind:      model.NotificationKind(r.Kind),
		Message:   r.Message,
		CreatedAt: created,
	}
	if r.ReadAt.Valid {
		readAt, err := decodeTime(r.ReadAt.String)
		if err != nil {
			return model.Notification{}, err
		}
		n.ReadAt = &readAt
	}
	return n, nil
}
