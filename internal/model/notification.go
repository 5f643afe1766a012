package model

import "time"

// NotificationKind groups notifications so that an unread alert of one
// kind suppresses new alerts of the same kind.
type NotificationKind string

// NotificationBudgetWarning is raised when spending crosses the budget
// threshold.
const NotificationBudgetWarning NotificationKind = "budget_warning"

// Notification represents an alert surfaced to the account owner.
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id"`

	// AccountID is the owning account.
	AccountID string `json:"account_id"`

	Kind NotificationKind `json:"kind"`

	// Message is the human-readable notification text.
	Message string `json:"message"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"created_at"`

	// ReadAt is set when the user acknowledges the notification.
	ReadAt *time.Time `json:"read_at,omitempty"`
}

// Unread reports whether the notification has not been acknowledged.
func (n Notification) Unread() bool {
	return n.ReadAt == nil
}
