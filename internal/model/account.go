package model

import "time"

// Account is an application user. A linked mailbox lets the ingestion
// pipeline import transactions from bank notification emails.
type Account struct {
	ID       string `json:"id" db:"id"`
	Username string `json:"username" db:"username"`
	Email    string `json:"email" db:"email"`

	// MailboxAddress is the IMAP login for the linked mailbox. Empty until
	// the account links one.
	MailboxAddress string `json:"mailbox_address" db:"mailbox_address"`

	// BankID selects the parsing strategy and sender filter used when
	// scanning the mailbox.
	BankID string `json:"bank_id" db:"bank_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// MailboxCredential is everything needed to read an account's mailbox.
type MailboxCredential struct {
	Address  string
	Password string
	BankID   string
}

// Complete reports whether every credential field is set. Ingestion is a
// no-op for incomplete credentials.
func (c MailboxCredential) Complete() bool {
	return c.Address != "" && c.Password != "" && c.BankID != ""
}
