package types

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one cross-border transfer as ingested from the ledger.
// SanctionsFlag is decided once at ingestion and never recomputed.
type Transaction struct {
	ID              string          `json:"id"`
	Timestamp       time.Time       `json:"timestamp"`
	Amount          decimal.Decimal `json:"amount"`
	SenderCountry   string          `json:"sender_country"`
	ReceiverCountry string          `json:"receiver_country"`
	SanctionsFlag   bool            `json:"sanctions_flag"`
}

// Involves reports whether the country is the sender or receiver
func (t Transaction) Involves(country string) bool {
	return t.SenderCountry == country || t.ReceiverCountry == country
}

// Date returns the UTC calendar date of the transaction
func (t Transaction) Date() string {
	return t.Timestamp.UTC().Format("2006-01-02")
}

// RiskCategory is the ordinal bucket assigned from a risk score
type RiskCategory string

const (
	RiskHigh   RiskCategory = "high"
	RiskMedium RiskCategory = "medium"
	RiskLow    RiskCategory = "low"
)

// RiskCategories lists categories from most to least severe
var RiskCategories = []RiskCategory{RiskHigh, RiskMedium, RiskLow}

// ScoredTransaction is a transaction with its factor breakdown and category
type ScoredTransaction struct {
	Transaction
	AmountRisk       float64         `json:"amount_risk"`
	CountryRisk      float64         `json:"country_risk"`
	FrequencyAnomaly float64         `json:"frequency_anomaly"`
	SanctionsRisk    float64         `json:"sanctions_risk"` // 0 or 1
	RiskScore        float64         `json:"risk_score"`
	RiskCategory     RiskCategory    `json:"risk_category"`
	PotentialPenalty decimal.Decimal `json:"potential_penalty"`
}

// CountrySet is an immutable-by-convention set of country names
type CountrySet map[string]struct{}

// NewCountrySet builds a set from names
func NewCountrySet(countries ...string) CountrySet {
	s := make(CountrySet, len(countries))
	for _, c := range countries {
		s[c] = struct{}{}
	}
	return s
}

// Contains reports set membership
func (s CountrySet) Contains(country string) bool {
	_, ok := s[country]
	return ok
}

// Sorted lists the members in ascending order
func (s CountrySet) Sorted() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
