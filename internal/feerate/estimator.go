package feerate

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/hoosat-tools/htnforge/internal/log"
	"github.com/hoosat-tools/htnforge/internal/nodeclient"
	"github.com/hoosat-tools/htnforge/pkg/tx"
	"github.com/hoosat-tools/htnforge/pkg/types"
)

// Defaults for the estimator's tunables.
const (
	DefaultTTL        = 60 * time.Second
	DefaultMinSamples = 5
)

// MempoolSource supplies pending-transaction snapshots. Implemented by
// *nodeclient.Client; faked in tests.
type MempoolSource interface {
	MempoolSnapshot(ctx context.Context) ([]nodeclient.MempoolEntry, error)
}

// Estimator derives priority-tiered fee recommendations from the
// mempool. Results are cached for a TTL; the mempool fetch is the only
// network call in the engine and the only cancellable operation.
type Estimator struct {
	source     MempoolSource
	ttl        time.Duration
	minSamples int

	// mu serializes cache access and refreshes: concurrent callers
	// during a miss share one in-flight fetch.
	mu        sync.Mutex
	cached    *Recommendations
	fetchedAt time.Time
}

// NewEstimator creates an estimator over the given mempool source.
// ttl <= 0 and minSamples <= 0 select the defaults.
func NewEstimator(source MempoolSource, ttl time.Duration, minSamples int) *Estimator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	return &Estimator{source: source, ttl: ttl, minSamples: minSamples}
}

// Recommendations returns tiered fee estimates, refreshing the mempool
// sample when the cache has expired. forceRefresh bypasses the cache.
// Fetch failures degrade to the last cached result or the fixed
// fallback table; they are never surfaced as hard failures. A cancelled
// fetch leaves the cache in its prior state.
func (e *Estimator) Recommendations(ctx context.Context, forceRefresh bool) (*Recommendations, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !forceRefresh && e.cached != nil && time.Since(e.fetchedAt) < e.ttl {
		return e.cached, nil
	}

	entries, err := e.source.MempoolSnapshot(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// Cancellation is the caller's decision, not a degradation.
			return nil, ctx.Err()
		}
		log.Fees.Warn().Err(err).Msg("mempool fetch failed, using fallback rates")
		if e.cached != nil {
			return e.cached, nil
		}
		return fallbackRecommendations(0), nil
	}

	recs := deriveRecommendations(entries, e.minSamples)
	e.cached = recs
	e.fetchedAt = time.Now()
	return recs, nil
}

// EstimateFee prices a transaction of the given shape at the given tier.
func (e *Estimator) EstimateFee(ctx context.Context, priority Priority, numInputs, numOutputs int) (*Estimate, error) {
	recs, err := e.Recommendations(ctx, false)
	if err != nil {
		return nil, err
	}
	mass, err := tx.ComputeMass(numInputs, numOutputs, 0)
	if err != nil {
		return nil, err
	}
	rate := recs.ForPriority(priority).FeeRate
	return &Estimate{
		Priority:   priority,
		FeeRate:    rate,
		Percentile: tierPercentiles[priority],
		TotalFee:   feeForMass(rate, mass),
	}, nil
}

// feeForMass converts a rate to a total fee, rounding up and never
// dropping below the minimum relay fee for the mass.
func feeForMass(rate float64, mass uint64) types.Amount {
	fee := uint64(math.Ceil(rate * float64(mass)))
	if min := mass * tx.MinimumRelayFeeMultiplier; fee < min {
		fee = min
	}
	return types.Amount(fee)
}

// deriveRecommendations turns a mempool snapshot into tiered estimates:
// per-transaction observed rate = declared fee / computed mass, IQR
// outlier rejection, then multiplicative tiers off the median.
func deriveRecommendations(entries []nodeclient.MempoolEntry, minSamples int) *Recommendations {
	rates := make([]float64, 0, len(entries))
	for _, entry := range entries {
		if entry.Transaction == nil || entry.Fee == 0 {
			continue
		}
		mass, err := tx.MassForTransaction(entry.Transaction)
		if err != nil || mass == 0 {
			continue
		}
		rates = append(rates, float64(entry.Fee)/float64(mass))
	}

	rates = filterOutliers(rates)
	if len(rates) < minSamples {
		log.Fees.Debug().
			Int("samples", len(rates)).
			Int("min_samples", minSamples).
			Msg("mempool sample too small, using fallback rates")
		return fallbackRecommendations(len(rates))
	}

	med := median(rates)
	avg := mean(rates)
	recs := tieredRecommendations(med)
	recs.BasedOnSamples = len(rates)
	recs.MedianRate = med
	recs.AverageRate = avg
	return recs
}

// tieredRecommendations builds the per-tier estimates off a median rate.
// Rates stay pure multiples of the median; feeForMass enforces the relay
// minimum on the totals. Tier totals are priced for a nominal one-input,
// two-output transfer.
func tieredRecommendations(medianRate float64) *Recommendations {
	nominalMass, _ := tx.ComputeMass(1, 2, 0)
	build := func(p Priority) Estimate {
		rate := medianRate * tierMultipliers[p]
		return Estimate{
			Priority:   p,
			FeeRate:    rate,
			Percentile: tierPercentiles[p],
			TotalFee:   feeForMass(rate, nominalMass),
		}
	}
	return &Recommendations{
		Low:    build(PriorityLow),
		Normal: build(PriorityNormal),
		High:   build(PriorityHigh),
		Urgent: build(PriorityUrgent),
	}
}

// fallbackRecommendations is the fixed table used when the sample is
// empty or too small.
func fallbackRecommendations(samples int) *Recommendations {
	nominalMass, _ := tx.ComputeMass(1, 2, 0)
	build := func(p Priority) Estimate {
		rate := fallbackRates[p]
		return Estimate{
			Priority:   p,
			FeeRate:    rate,
			Percentile: tierPercentiles[p],
			TotalFee:   feeForMass(rate, nominalMass),
		}
	}
	return &Recommendations{
		Low:            build(PriorityLow),
		Normal:         build(PriorityNormal),
		High:           build(PriorityHigh),
		Urgent:         build(PriorityUrgent),
		BasedOnSamples: samples,
	}
}
