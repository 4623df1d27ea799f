// Package feerate estimates market fee rates from mempool samples.
package feerate

import (
	"encoding/json"
	"fmt"

	"github.com/hoosat-tools/htnforge/pkg/types"
)

// Priority selects a confirmation-urgency tier.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

// tierMultipliers scales the median mempool rate per tier.
var tierMultipliers = map[Priority]float64{
	PriorityLow:    0.5,
	PriorityNormal: 1.0,
	PriorityHigh:   2.0,
	PriorityUrgent: 5.0,
}

// fallbackRates (sompi per mass unit) apply when the mempool sample is
// empty or too small to trust.
var fallbackRates = map[Priority]float64{
	PriorityLow:    1,
	PriorityNormal: 10,
	PriorityHigh:   20,
	PriorityUrgent: 50,
}

// tierPercentiles is the point in the mempool rate distribution each
// tier targets, reported on the wire alongside the rate.
var tierPercentiles = map[Priority]int{
	PriorityLow:    25,
	PriorityNormal: 50,
	PriorityHigh:   75,
	PriorityUrgent: 95,
}

// String returns the tier name.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// ParsePriority converts a tier name to a Priority.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "low":
		return PriorityLow, nil
	case "normal":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	case "urgent":
		return PriorityUrgent, nil
	default:
		return PriorityNormal, fmt.Errorf("unknown priority %q", s)
	}
}

// MarshalJSON encodes the priority by name.
func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a priority name.
func (p *Priority) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePriority(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Estimate is a fee recommendation for one tier.
type Estimate struct {
	Priority   Priority     `json:"priority"`
	FeeRate    float64      `json:"feeRate"` // sompi per mass unit
	Percentile int          `json:"percentile"`
	TotalFee   types.Amount `json:"totalFee"` // fee for the requested shape
}

// Recommendations holds one estimate per tier plus the sample statistics
// they were derived from. Tier totals are priced for a nominal
// one-input, two-output transfer.
type Recommendations struct {
	Low            Estimate `json:"low"`
	Normal         Estimate `json:"normal"`
	High           Estimate `json:"high"`
	Urgent         Estimate `json:"urgent"`
	BasedOnSamples int      `json:"basedOnSamples"`
	MedianRate     float64  `json:"medianRate"`
	AverageRate    float64  `json:"averageRate"`
}

// ForPriority returns the estimate for the given tier.
func (r *Recommendations) ForPriority(p Priority) Estimate {
	switch p {
	case PriorityLow:
		return r.Low
	case PriorityHigh:
		return r.High
	case PriorityUrgent:
		return r.Urgent
	default:
		return r.Normal
	}
}
