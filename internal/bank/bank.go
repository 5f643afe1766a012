// Package bank turns bank notification email bodies into transaction
// records. Each bank has its own message format, so parsing is delegated to
// a per-bank Strategy looked up in a Registry by bank id.
package bank

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/nhle/goal-guardian/internal/logger"
	"github.com/nhle/goal-guardian/internal/model"
)

// ErrUnknownBank is returned when no strategy is registered for a bank id.
var ErrUnknownBank = errors.New("unknown bank")

// FormatDriftError means a message looked like a transaction notification
// but a field could not be parsed. It usually signals that the bank changed
// its template.
type FormatDriftError struct {
	BankID  string
	Field   string
	Value   string
	Snippet string
	Err     error
}

func (e *FormatDriftError) Error() string {
	return fmt.Sprintf("bank %s: cannot parse %s %q: %v", e.BankID, e.Field, e.Value, e.Err)
}

func (e *FormatDriftError) Unwrap() error { return e.Err }

// IsFormatDrift reports whether err (or any error in its chain) is a
// FormatDriftError.
func IsFormatDrift(err error) bool {
	var drift *FormatDriftError
	return errors.As(err, &drift)
}

// Strategy parses the notification format of one bank.
type Strategy interface {
	// ID is the lowercase bank identifier.
	ID() string

	// Name is the display name.
	Name() string

	// Sender is the From-address filter used when searching the mailbox.
	Sender() string

	// Parse returns the transaction described by body, or nil when body is
	// not a transaction notification. A recognised message whose fields do
	// not parse yields a *FormatDriftError.
	Parse(body string) (*model.TransactionRecord, error)
}

// Registry maps bank ids to strategies. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// DefaultRegistry returns a registry holding the built-in bank definitions.
func DefaultRegistry() (*Registry, error) {
	defs, err := BuiltinDefinitions()
	if err != nil {
		return nil, err
	}
	r := NewRegistry()
	if err := r.RegisterDefinitions(defs); err != nil {
		return nil, err
	}
	return r, nil
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Register adds s, replacing any strategy with the same id.
func (r *Registry) Register(s Strategy) error {
	id := normalizeID(s.ID())
	if id == "" {
		return errors.New("registering bank strategy: empty id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[id] = s
	return nil
}

// RegisterDefinitions compiles and registers each definition.
func (r *Registry) RegisterDefinitions(defs []Definition) error {
	for _, def := range defs {
		s, err := NewPatternStrategy(def)
		if err != nil {
			return err
		}
		if err := r.Register(s); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the strategy for bankID. Ids are case-insensitive.
func (r *Registry) Lookup(bankID string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[normalizeID(bankID)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBank, bankID)
	}
	return s, nil
}

// Parse runs the strategy registered for bankID over body.
func (r *Registry) Parse(bankID, body string) (*model.TransactionRecord, error) {
	s, err := r.Lookup(bankID)
	if err != nil {
		return nil, err
	}
	rec, err := s.Parse(body)
	var drift *FormatDriftError
	if errors.As(err, &drift) && drift.Snippet == "" {
		drift.Snippet = logger.Snippet(body, 120)
	}
	return rec, err
}

// IDs returns the registered bank ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.strategies))
	for id := range r.strategies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
