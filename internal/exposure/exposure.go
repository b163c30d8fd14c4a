package exposure

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"sanctions-risk-engine/internal/logger"
	"sanctions-risk-engine/internal/types"
)

var hundred = decimal.NewFromInt(100)

// Calculator implements the ExposureCalculator interface
type Calculator struct{}

// NewCalculator creates a new exposure calculator
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Calculate aggregates volumes, sanctioned share, per-role flag rates and
// per-country exposure. An empty snapshot yields zero metrics.
func (c *Calculator) Calculate(ctx context.Context, txns []types.Transaction) (*types.ExposureMetrics, error) {
	m := &types.ExposureMetrics{
		TotalVolume:      decimal.Zero,
		SanctionedVolume: decimal.Zero,
		TransactionCount: len(txns),
	}

	for _, t := range txns {
		m.TotalVolume = m.TotalVolume.Add(t.Amount)
		if t.SanctionsFlag {
			m.SanctionedVolume = m.SanctionedVolume.Add(t.Amount)
			m.SanctionedCount++
		}
	}
	m.PercentSanctioned = PercentOf(m.SanctionedVolume, m.TotalVolume)

	m.SenderFlagRates = SortedRates(FlagRates(txns, types.RoleSender))
	m.ReceiverFlagRates = SortedRates(FlagRates(txns, types.RoleReceiver))
	m.CountryExposure = ByCountry(txns)

	logger.Debug(ctx, "Exposure metrics calculated",
		"transactions", m.TransactionCount,
		"percent_sanctioned", m.PercentSanctioned,
		"countries", len(m.CountryExposure))

	return m, nil
}

// PercentOf returns part/total*100, or 0 when total is zero
func PercentOf(part, total decimal.Decimal) float64 {
	if total.IsZero() {
		return 0
	}
	return part.Mul(hundred).Div(total).InexactFloat64()
}

// FlagRates counts flagged transactions per country in one role. RoleAny counts
// every transaction that involves the country exactly once, including self-transfers.
func FlagRates(txns []types.Transaction, role types.FlagRole) map[string]types.CountryFlagRate {
	rates := make(map[string]types.CountryFlagRate)
	add := func(country string, flagged bool) {
		r := rates[country]
		r.Country = country
		r.Role = role
		r.TransactionCount++
		if flagged {
			r.FlaggedCount++
		}
		rates[country] = r
	}

	for _, t := range txns {
		switch role {
		case types.RoleSender:
			add(t.SenderCountry, t.SanctionsFlag)
		case types.RoleReceiver:
			add(t.ReceiverCountry, t.SanctionsFlag)
		default:
			add(t.SenderCountry, t.SanctionsFlag)
			if t.ReceiverCountry != t.SenderCountry {
				add(t.ReceiverCountry, t.SanctionsFlag)
			}
		}
	}

	for k, r := range rates {
		r.FlagRate = float64(r.FlaggedCount) / float64(r.TransactionCount)
		rates[k] = r
	}
	return rates
}

// SortedRates ranks flag rates descending, ties broken by country name
func SortedRates(rates map[string]types.CountryFlagRate) []types.CountryFlagRate {
	out := make([]types.CountryFlagRate, 0, len(rates))
	for _, r := range rates {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FlagRate != out[j].FlagRate {
			return out[i].FlagRate > out[j].FlagRate
		}
		return out[i].Country < out[j].Country
	})
	return out
}

// ByCountry sums incoming (as receiver) and outgoing (as sender) volume per
// country, sorted by total descending.
func ByCountry(txns []types.Transaction) []types.CountryExposure {
	idx := make(map[string]*types.CountryExposure)
	get := func(country string) *types.CountryExposure {
		e, ok := idx[country]
		if !ok {
			e = &types.CountryExposure{
				Country:  country,
				Incoming: decimal.Zero,
				Outgoing: decimal.Zero,
			}
			idx[country] = e
		}
		return e
	}

	for _, t := range txns {
		s := get(t.SenderCountry)
		s.Outgoing = s.Outgoing.Add(t.Amount)
		r := get(t.ReceiverCountry)
		r.Incoming = r.Incoming.Add(t.Amount)
	}

	out := make([]types.CountryExposure, 0, len(idx))
	for _, e := range idx {
		e.Total = e.Incoming.Add(e.Outgoing)
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Country < out[j].Country
	})
	return out
}
