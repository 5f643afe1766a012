package bank

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/nhle/goal-guardian/internal/logger"
	"github.com/nhle/goal-guardian/internal/model"
)

// patternStrategy recognises messages with regular expressions and parses
// the captured fields using the bank's number and date conventions.
type patternStrategy struct {
	def      Definition
	patterns []compiledPattern
}

type compiledPattern struct {
	direction model.Direction
	re        *regexp.Regexp
	amount    int
	date      int
	desc      int
}

// NewPatternStrategy compiles def into a Strategy.
func NewPatternStrategy(def Definition) (Strategy, error) {
	if err := def.validate(); err != nil {
		return nil, err
	}

	s := &patternStrategy{def: def}
	for i, p := range def.Patterns {
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			return nil, fmt.Errorf("bank %s: pattern %d: %w", def.ID, i, err)
		}
		cp := compiledPattern{
			direction: p.Direction,
			re:        re,
			amount:    re.SubexpIndex("amount"),
			date:      re.SubexpIndex("date"),
			desc:      re.SubexpIndex("description"),
		}
		if cp.amount < 0 || cp.date < 0 {
			return nil, fmt.Errorf(
				"bank %s: pattern %d: named groups amount and date are required", def.ID, i,
			)
		}
		s.patterns = append(s.patterns, cp)
	}
	return s, nil
}

func (s *patternStrategy) ID() string     { return s.def.ID }
func (s *patternStrategy) Name() string   { return s.def.Name }
func (s *patternStrategy) Sender() string { return s.def.Sender }

// Parse tries each pattern in order; the first match decides the result.
func (s *patternStrategy) Parse(body string) (*model.TransactionRecord, error) {
	for _, p := range s.patterns {
		m := p.re.FindStringSubmatch(body)
		if m == nil {
			continue
		}

		rawAmount := m[p.amount]
		amount, err := s.parseAmount(rawAmount)
		if err != nil {
			return nil, s.drift("amount", rawAmount, body, err)
		}

		rawDate := m[p.date]
		date, err := s.parseDate(rawDate)
		if err != nil {
			return nil, s.drift("date", rawDate, body, err)
		}

		var desc string
		if p.desc >= 0 {
			desc = NormalizeDescription(m[p.desc])
		}

		return &model.TransactionRecord{
			Date:        date,
			Amount:      amount,
			Description: desc,
			Direction:   p.direction,
		}, nil
	}
	return nil, nil
}

func (s *patternStrategy) drift(field, value, body string, err error) error {
	return &FormatDriftError{
		BankID:  s.def.ID,
		Field:   field,
		Value:   value,
		Snippet: logger.Snippet(body, 120),
		Err:     err,
	}
}

// parseAmount converts a localized amount such as "1,234.56" or "1.234,56"
// to an exact decimal. Separators are stripped before conversion so no
// precision is lost.
func (s *patternStrategy) parseAmount(raw string) (decimal.Decimal, error) {
	v := strings.TrimSpace(raw)
	v = strings.TrimRight(v, s.def.ThousandsSeparator+s.def.DecimalSeparator+";:")
	if v == "" {
		return decimal.Zero, errors.New("empty amount")
	}
	if s.def.ThousandsSeparator != "" {
		v = strings.ReplaceAll(v, s.def.ThousandsSeparator, "")
	}
	if s.def.DecimalSeparator != "." {
		v = strings.ReplaceAll(v, s.def.DecimalSeparator, ".")
	}
	for _, r := range v {
		if !unicode.IsDigit(r) && r != '.' {
			return decimal.Zero, fmt.Errorf("unexpected character %q", r)
		}
	}

	amount, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, err
	}
	if !amount.IsPositive() {
		return decimal.Zero, errors.New("amount must be positive")
	}
	return amount, nil
}

// parseDate tries each layout in order. Dates are interpreted as UTC.
func (s *patternStrategy) parseDate(raw string) (time.Time, error) {
	v := strings.TrimRight(strings.TrimSpace(raw), ".,;:")
	var firstErr error
	for _, layout := range s.def.DateLayouts {
		t, err := time.ParseInLocation(layout, v, time.UTC)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// NormalizeDescription folds compatibility characters (NBSP, full-width
// forms) with NFKC and collapses whitespace.
func NormalizeDescription(raw string) string {
	v := norm.NFKC.String(raw)
	v = strings.Join(strings.Fields(v), " ")
	return strings.TrimRight(v, ".,;:")
}
