package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/shopspring/decimal"
)

// Direction tells whether money left or entered the account.
type Direction string

const (
	DirectionExpense Direction = "expense"
	DirectionIncome  Direction = "income"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionExpense || d == DirectionIncome
}

// TransactionRecord is a transaction extracted from a single bank
// notification message. It is a value; nothing mutates it after parsing.
type TransactionRecord struct {
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Direction   Direction       `json:"direction"`
}

// DedupKey fingerprints the (date, amount, description) triple. Bank
// messages carry no stable id, so two records with the same key are the
// same transaction.
func (r TransactionRecord) DedupKey() string {
	input := r.Date.UTC().Format(time.RFC3339) + "|" +
		r.Amount.String() + "|" +
		r.Description
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// StoredTransaction is a TransactionRecord persisted against an account.
type StoredTransaction struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	TransactionRecord
	CreatedAt time.Time `json:"created_at"`
}
