package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget is a spending limit over a time window.
type Budget struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	WindowStart time.Time       `json:"window_start"`
	WindowEnd   time.Time       `json:"window_end"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Contains reports whether t falls inside the budget window (inclusive).
func (b Budget) Contains(t time.Time) bool {
	return !t.Before(b.WindowStart) && !t.After(b.WindowEnd)
}
