package source

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// AuthError indicates that the mailbox rejected the supplied credentials.
type AuthError struct {
	Address string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Address, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// ConnectivityError is a network or protocol failure that affects the whole
// session. Timeout is set when the failure was a deadline expiry.
type ConnectivityError struct {
	Op      string
	Timeout bool
	Err     error
}

func (e *ConnectivityError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: timed out: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// IsConnectivityError reports whether err (or any error in its chain) is a
// ConnectivityError.
func IsConnectivityError(err error) bool {
	var connErr *ConnectivityError
	return errors.As(err, &connErr)
}

// FetchError means a single message could not be read. The session stays
// usable.
type FetchError struct {
	Handle Handle
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching message %d: %v", e.Handle, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError reports whether err (or any error in its chain) is a FetchError.
func IsFetchError(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr)
}

// Criteria restricts a mailbox search.
type Criteria struct {
	// SenderPattern matches against the From header. Empty matches all.
	SenderPattern string

	// Since restricts results to messages on or after this time. The zero
	// value matches all.
	Since time.Time
}

// Handle identifies a message within one session.
type Handle uint32

// Handles is a single-use cursor over search results. Each handle is
// returned once; there is no way to rewind.
type Handles struct {
	items []Handle
	pos   int
}

// NewHandles returns a cursor over hs in order.
func NewHandles(hs ...Handle) *Handles {
	return &Handles{items: hs}
}

// Next returns the next handle, or false once the cursor is exhausted.
func (h *Handles) Next() (Handle, bool) {
	if h == nil || h.pos >= len(h.items) {
		return 0, false
	}
	next := h.items[h.pos]
	h.pos++
	return next, true
}

// Remaining returns how many handles have not been consumed yet.
func (h *Handles) Remaining() int {
	if h == nil {
		return 0
	}
	return len(h.items) - h.pos
}

// Session is an open, authenticated mailbox connection. Implementations
// never modify the mailbox.
type Session interface {
	// Search returns the messages matching c in mailbox order.
	Search(ctx context.Context, c Criteria) (*Handles, error)

	// FetchBody returns the decoded text body of a message. A message that
	// cannot be read yields a *FetchError; session-wide failures yield a
	// *ConnectivityError.
	FetchBody(ctx context.Context, h Handle) (string, error)

	// Close releases the connection. Calling it more than once is safe.
	Close() error
}

// MessageSource opens mailbox sessions.
type MessageSource interface {
	// Connect authenticates against the mailbox for address. Bad
	// credentials yield a *AuthError; network failures a *ConnectivityError.
	Connect(ctx context.Context, address, password string) (Session, error)
}

// WithSession connects, runs fn, and closes the session exactly once
// whether or not fn fails. Close errors are ignored: by then every message
// has already been read.
func WithSession(
	ctx context.Context,
	src MessageSource,
	address, password string,
	fn func(Session) error,
) error {
	sess, err := src.Connect(ctx, address, password)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	return fn(sess)
}
