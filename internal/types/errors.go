package types

import (
	"errors"
	"fmt"
)

// Error kinds reported in section error markers and metrics labels
const (
	KindConfiguration          = "configuration"
	KindInsufficientData       = "insufficient_data"
	KindDegenerateDistribution = "degenerate_distribution"
	KindGraphTraversalLimit    = "graph_traversal_limit"
	KindInternal               = "internal"
)

// Sentinels for errors.Is checks against the structured error types below
var (
	ErrConfiguration          = errors.New(KindConfiguration)
	ErrInsufficientData       = errors.New(KindInsufficientData)
	ErrDegenerateDistribution = errors.New(KindDegenerateDistribution)
	ErrGraphTraversalLimit    = errors.New(KindGraphTraversalLimit)
)

// ConfigurationError reports an invalid configuration value
type ConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s=%v: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigurationError) Kind() string { return KindConfiguration }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// InsufficientDataError reports that an analysis had too few observations to run
type InsufficientDataError struct {
	Operation string
	Required  int
	Got       int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data: need at least %d observations, got %d", e.Operation, e.Required, e.Got)
}

func (e *InsufficientDataError) Kind() string { return KindInsufficientData }

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

// DegenerateDistributionError reports a zero or undefined variance series
type DegenerateDistributionError struct {
	Operation string
	Mean      float64
	StdDev    float64
}

func (e *DegenerateDistributionError) Error() string {
	return fmt.Sprintf("%s: degenerate distribution (mean=%g, std=%g)", e.Operation, e.Mean, e.StdDev)
}

func (e *DegenerateDistributionError) Kind() string { return KindDegenerateDistribution }

func (e *DegenerateDistributionError) Is(target error) bool { return target == ErrDegenerateDistribution }

// GraphTraversalLimitError reports that path enumeration stopped at its budget
type GraphTraversalLimitError struct {
	Source    string
	MaxPaths  int
	MaxHops   int
	Collected int
}

func (e *GraphTraversalLimitError) Error() string {
	return fmt.Sprintf("path enumeration from %s exceeded budget of %d paths (max hops %d, collected %d)",
		e.Source, e.MaxPaths, e.MaxHops, e.Collected)
}

func (e *GraphTraversalLimitError) Kind() string { return KindGraphTraversalLimit }

func (e *GraphTraversalLimitError) Is(target error) bool { return target == ErrGraphTraversalLimit }

// ErrorKind extracts the kind of a structured error anywhere in err's chain
func ErrorKind(err error) string {
	var k interface{ Kind() string }
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindInternal
}
