package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sanctions-risk-engine/internal/types"
)

// ErrInvalidRecord is wrapped by every ingestion failure
var ErrInvalidRecord = errors.New("invalid ledger record")

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Record is one raw ledger row before validation
type Record struct {
	ID              string `json:"id"`
	Timestamp       string `json:"timestamp"`
	Amount          string `json:"amount"`
	SenderCountry   string `json:"sender_country"`
	ReceiverCountry string `json:"receiver_country"`
}

// FilterOptions narrows a snapshot before analysis
type FilterOptions struct {
	// Countries keeps transactions where either party is listed; empty keeps all
	Countries []string
	MinAmount decimal.Decimal
}

// Ingest validates raw records and decides each sanctions flag once: a
// transaction is flagged when its sender or receiver is in highRisk.
func Ingest(records []Record, highRisk types.CountrySet) ([]types.Transaction, error) {
	txns := make([]types.Transaction, 0, len(records))
	seen := make(map[string]int, len(records))
	for i, r := range records {
		t, err := parse(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		if prev, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("record %d: %w: duplicate id %q (first at record %d)", i+1, ErrInvalidRecord, t.ID, prev)
		}
		seen[t.ID] = i + 1
		t.SanctionsFlag = highRisk.Contains(t.SenderCountry) || highRisk.Contains(t.ReceiverCountry)
		txns = append(txns, t)
	}
	return txns, nil
}

func parse(r Record) (types.Transaction, error) {
	var t types.Transaction

	t.ID = strings.TrimSpace(r.ID)
	if t.ID == "" {
		return t, fmt.Errorf("%w: missing id", ErrInvalidRecord)
	}

	ts, err := parseTimestamp(strings.TrimSpace(r.Timestamp))
	if err != nil {
		return t, fmt.Errorf("%w: id %s: %v", ErrInvalidRecord, t.ID, err)
	}
	t.Timestamp = ts

	amount, err := decimal.NewFromString(strings.TrimSpace(r.Amount))
	if err != nil {
		return t, fmt.Errorf("%w: id %s: amount %q: %v", ErrInvalidRecord, t.ID, r.Amount, err)
	}
	if amount.IsNegative() {
		return t, fmt.Errorf("%w: id %s: negative amount %s", ErrInvalidRecord, t.ID, amount)
	}
	t.Amount = amount

	t.SenderCountry = strings.TrimSpace(r.SenderCountry)
	t.ReceiverCountry = strings.TrimSpace(r.ReceiverCountry)
	if t.SenderCountry == "" || t.ReceiverCountry == "" {
		return t, fmt.Errorf("%w: id %s: sender and receiver country are required", ErrInvalidRecord, t.ID)
	}
	return t, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// Filter returns the transactions matching the options, preserving order
func Filter(txns []types.Transaction, opts FilterOptions) []types.Transaction {
	countries := types.NewCountrySet(opts.Countries...)
	out := make([]types.Transaction, 0, len(txns))
	for _, t := range txns {
		if len(countries) > 0 && !countries.Contains(t.SenderCountry) && !countries.Contains(t.ReceiverCountry) {
			continue
		}
		if t.Amount.LessThan(opts.MinAmount) {
			continue
		}
		out = append(out, t)
	}
	return out
}
