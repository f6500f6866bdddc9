package liveplot

import (
	"strings"

	"github.com/pkg/errors"
)

var (

	// ErrNoData denotes that the source collection does not hold any samples
	ErrNoData = errors.New("no data available")

	// ErrMissingSample denotes an absent value at the current buffer position
	ErrMissingSample = errors.New("missing sample value")
)

// MissingPolicy denotes how an absent sample value is treated when advancing
type MissingPolicy int

const (

	// SubstituteZero replaces an absent value with 0.0
	SubstituteZero MissingPolicy = iota

	// RejectMissing aborts the step and surfaces ErrMissingSample
	RejectMissing
)

// String returns a string representation of the missing value policy
func (p MissingPolicy) String() string {
	switch p {
	case SubstituteZero:
		return "zero"
	case RejectMissing:
		return "reject"
	default:
		return "unknown"
	}
}

// MissingPolicyFromString parses a missing value policy from its string representation
func MissingPolicyFromString(s string) (MissingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "zero", "":
		return SubstituteZero, nil
	case "reject":
		return RejectMissing, nil
	default:
		return SubstituteZero, errors.Errorf("invalid missing value policy: %s", s)
	}
}

// Sample denotes a single stored numeric value
type Sample struct {
	Position int      // Stable position of the sample in the source collection
	Value    *float64 // Value of the sample (nil if absent)
}

// NewSample instantiates a sample holding a value
func NewSample(position int, value float64) Sample {
	return Sample{
		Position: position,
		Value:    &value,
	}
}

// Present returns if the sample carries a value
func (s Sample) Present() bool {
	return s.Value != nil
}

// Samples denotes an ordered collection of samples
type Samples []Sample

// FromValues creates a sample collection from a list of values, using nil
// entries for absent values
func FromValues(values ...*float64) Samples {
	res := make(Samples, len(values))
	for i, v := range values {
		res[i] = Sample{
			Position: i,
			Value:    v,
		}
	}

	return res
}

// Float returns a pointer to v, for use with FromValues
func Float(v float64) *float64 {
	return &v
}
