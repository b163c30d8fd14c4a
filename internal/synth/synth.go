package synth

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"sanctions-risk-engine/internal/ledger"
	"sanctions-risk-engine/internal/types"
)

const (
	DefaultSeed  int64 = 1337
	DefaultCount       = 1000
	// AmountScale is the mean of the exponential amount distribution
	AmountScale = 10000.0
)

// Countries and their sampling weights for sender and receiver
var Countries = []struct {
	Name   string
	Weight float64
}{
	{"USA", 0.25},
	{"UK", 0.15},
	{"France", 0.10},
	{"Germany", 0.10},
	{"Italy", 0.07},
	{"Japan", 0.08},
	{"China", 0.10},
	{"Russia", 0.05},
	{"Iran", 0.03},
	{"Venezuela", 0.02},
	{"Cuba", 0.02},
	{"Syria", 0.02},
	{"North Korea", 0.01},
}

// Options controls synthetic ledger generation
type Options struct {
	Count int
	Seed  int64
	// End is the latest possible timestamp; the ledger spans the year before it
	End      time.Time
	HighRisk types.CountrySet
}

// Generate produces a reproducible synthetic ledger. The same options always
// yield the same transactions. Flags are decided by ledger.Ingest.
func Generate(opts Options) ([]types.Transaction, error) {
	if opts.Count < 0 {
		return nil, &types.ConfigurationError{Field: "count", Value: opts.Count, Reason: "must be non-negative"}
	}
	if opts.End.IsZero() {
		opts.End = time.Now().UTC()
	}

	rng := rand.New(rand.NewPCG(uint64(opts.Seed), 0))
	span := int64(365 * 24 * time.Hour / time.Second)
	start := opts.End.Add(-365 * 24 * time.Hour).Truncate(time.Second)

	records := make([]ledger.Record, opts.Count)
	for i := range records {
		ts := start.Add(time.Duration(rng.Int64N(span+1)) * time.Second)
		amount := decimal.NewFromFloat(rng.ExpFloat64() * AmountScale).Round(2)
		records[i] = ledger.Record{
			ID:              strconv.Itoa(i + 1),
			Timestamp:       ts.UTC().Format(time.RFC3339),
			Amount:          amount.String(),
			SenderCountry:   pick(rng),
			ReceiverCountry: pick(rng),
		}
	}

	txns, err := ledger.Ingest(records, opts.HighRisk)
	if err != nil {
		return nil, fmt.Errorf("synthetic ledger: %w", err)
	}
	return txns, nil
}

func pick(rng *rand.Rand) string {
	u := rng.Float64()
	acc := 0.0
	for _, c := range Countries {
		acc += c.Weight
		if u < acc {
			return c.Name
		}
	}
	return Countries[len(Countries)-1].Name
}
