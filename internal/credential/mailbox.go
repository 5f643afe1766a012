package credential

import (
	"errors"

	"github.com/nhle/goal-guardian/internal/model"
)

// MailboxKey is the keyring key holding an account's mailbox password.
func MailboxKey(accountID string) string {
	return "mailbox-" + accountID
}

// Resolver assembles mailbox credentials from the account row and the
// keyring-held password.
type Resolver struct {
	secrets *Store
}

// NewResolver returns a Resolver reading passwords from secrets.
func NewResolver(secrets *Store) *Resolver {
	return &Resolver{secrets: secrets}
}

// SetMailboxPassword stores the password for an account's mailbox.
func (r *Resolver) SetMailboxPassword(accountID, password string) error {
	return r.secrets.Set(MailboxKey(accountID), password)
}

// ClearMailboxPassword removes the stored password. A missing password is
// not an error.
func (r *Resolver) ClearMailboxPassword(accountID string) error {
	return r.secrets.Delete(MailboxKey(accountID))
}

// Resolve returns the mailbox credential for a. A missing password gives an
// incomplete credential rather than an error; only keyring failures are
// returned as errors.
func (r *Resolver) Resolve(a model.Account) (model.MailboxCredential, error) {
	cred := model.MailboxCredential{
		Address: a.MailboxAddress,
		BankID:  a.BankID,
	}

	password, err := r.secrets.Get(MailboxKey(a.ID))
	switch {
	case errors.Is(err, ErrNotFound):
		return cred, nil
	case err != nil:
		return cred, err
	}

	cred.Password = password
	return cred, nil
}
