package feerate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hoosat-tools/htnforge/internal/nodeclient"
	"github.com/hoosat-tools/htnforge/pkg/tx"
	"github.com/hoosat-tools/htnforge/pkg/types"
)

// fakeMempool serves canned snapshots and counts fetches.
type fakeMempool struct {
	entries []nodeclient.MempoolEntry
	err     error
	calls   int
}

func (f *fakeMempool) MempoolSnapshot(ctx context.Context) ([]nodeclient.MempoolEntry, error) {
	f.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

// entryAtRate builds a one-input, one-output mempool entry whose declared
// fee yields the given sompi-per-gram rate.
func entryAtRate(rate float64) nodeclient.MempoolEntry {
	mass, _ := tx.ComputeMass(1, 1, 0)
	return nodeclient.MempoolEntry{
		Fee: types.Amount(rate * float64(mass)),
		Transaction: &tx.Transaction{
			Inputs:  []*tx.Input{{}},
			Outputs: []*tx.Output{{Amount: 1}},
		},
	}
}

func entriesAtRates(rates ...float64) []nodeclient.MempoolEntry {
	entries := make([]nodeclient.MempoolEntry, len(rates))
	for i, r := range rates {
		entries[i] = entryAtRate(r)
	}
	return entries
}

func TestRecommendationsFromMempool(t *testing.T) {
	source := &fakeMempool{entries: entriesAtRates(10, 10, 10, 10, 10)}
	e := NewEstimator(source, time.Minute, 5)

	recs, err := e.Recommendations(context.Background(), false)
	if err != nil {
		t.Fatalf("Recommendations: %v", err)
	}
	if recs.BasedOnSamples != 5 {
		t.Errorf("samples = %d, want 5", recs.BasedOnSamples)
	}
	if recs.MedianRate != 10 {
		t.Errorf("median = %v, want 10", recs.MedianRate)
	}

	// Tier multipliers off the median: 0.5x, 1x, 2x, 5x.
	wantRates := map[Priority]float64{
		PriorityLow:    5,
		PriorityNormal: 10,
		PriorityHigh:   20,
		PriorityUrgent: 50,
	}
	for p, want := range wantRates {
		if got := recs.ForPriority(p).FeeRate; got != want {
			t.Errorf("%s rate = %v, want %v", p, got, want)
		}
	}

	wantPercentiles := map[Priority]int{
		PriorityLow:    25,
		PriorityNormal: 50,
		PriorityHigh:   75,
		PriorityUrgent: 95,
	}
	for p, want := range wantPercentiles {
		if got := recs.ForPriority(p).Percentile; got != want {
			t.Errorf("%s percentile = %d, want %d", p, got, want)
		}
	}
}

func TestRecommendationsSmallSampleMedian(t *testing.T) {
	// Below the quartile-filter threshold the sample passes through
	// unfiltered, but the median must still be taken over sorted rates.
	source := &fakeMempool{entries: entriesAtRates(50, 1, 10)}
	e := NewEstimator(source, time.Minute, 2)

	recs, err := e.Recommendations(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if recs.BasedOnSamples != 3 {
		t.Errorf("samples = %d, want 3", recs.BasedOnSamples)
	}
	if recs.MedianRate != 10 {
		t.Errorf("median = %v, want 10", recs.MedianRate)
	}
	if recs.Normal.FeeRate != 10 {
		t.Errorf("normal rate = %v, want 10", recs.Normal.FeeRate)
	}
}

func TestRecommendationsLowMedianKeepsMultipliers(t *testing.T) {
	// Tier rates stay pure multiples of the median even when that puts
	// them below 1; the relay minimum applies to totals, not rates.
	source := &fakeMempool{entries: entriesAtRates(1, 1, 1, 1, 1)}
	e := NewEstimator(source, time.Minute, 5)

	recs, err := e.Recommendations(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if recs.Low.FeeRate != 0.5 {
		t.Errorf("low rate = %v, want 0.5", recs.Low.FeeRate)
	}
	mass, err := tx.ComputeMass(1, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if uint64(recs.Low.TotalFee) < mass*tx.MinimumRelayFeeMultiplier {
		t.Errorf("low total %d below the relay minimum for mass %d", recs.Low.TotalFee, mass)
	}
}

func TestRecommendationsFallbackTable(t *testing.T) {
	source := &fakeMempool{} // Empty mempool.
	e := NewEstimator(source, time.Minute, 5)

	recs, err := e.Recommendations(context.Background(), false)
	if err != nil {
		t.Fatalf("Recommendations: %v", err)
	}
	if recs.BasedOnSamples != 0 {
		t.Errorf("samples = %d, want 0", recs.BasedOnSamples)
	}

	wantRates := map[Priority]float64{
		PriorityLow:    1,
		PriorityNormal: 10,
		PriorityHigh:   20,
		PriorityUrgent: 50,
	}
	for p, want := range wantRates {
		if got := recs.ForPriority(p).FeeRate; got != want {
			t.Errorf("fallback %s rate = %v, want %v", p, got, want)
		}
	}
}

func TestRecommendationsOutlierRejection(t *testing.T) {
	// Four identical rates plus one wild outlier; the Tukey fence drops
	// the outlier, leaving a median of 10.
	source := &fakeMempool{entries: entriesAtRates(10, 10, 10, 10, 1000)}
	e := NewEstimator(source, time.Minute, 4)

	recs, err := e.Recommendations(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if recs.BasedOnSamples != 4 {
		t.Errorf("samples = %d, want 4 (outlier rejected)", recs.BasedOnSamples)
	}
	if recs.MedianRate != 10 {
		t.Errorf("median = %v, want 10", recs.MedianRate)
	}
}

func TestRecommendationsBelowMinSamples(t *testing.T) {
	source := &fakeMempool{entries: entriesAtRates(10, 10)}
	e := NewEstimator(source, time.Minute, 5)

	recs, err := e.Recommendations(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if recs.Normal.FeeRate != fallbackRates[PriorityNormal] {
		t.Errorf("small sample should use the fallback table, got %v", recs.Normal.FeeRate)
	}
}

func TestRecommendationsSkipsUnusableEntries(t *testing.T) {
	entries := entriesAtRates(10, 10, 10, 10, 10)
	entries = append(entries,
		nodeclient.MempoolEntry{Fee: 0, Transaction: entries[0].Transaction}, // Zero fee.
		nodeclient.MempoolEntry{Fee: 100, Transaction: nil},                  // No transaction.
	)
	source := &fakeMempool{entries: entries}
	e := NewEstimator(source, time.Minute, 5)

	recs, err := e.Recommendations(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if recs.BasedOnSamples != 5 {
		t.Errorf("samples = %d, want 5 (unusable entries skipped)", recs.BasedOnSamples)
	}
}

func TestRecommendationsCaching(t *testing.T) {
	source := &fakeMempool{entries: entriesAtRates(10, 10, 10, 10, 10)}
	e := NewEstimator(source, time.Minute, 5)

	if _, err := e.Recommendations(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Recommendations(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if source.calls != 1 {
		t.Errorf("fetches = %d, want 1 (second call served from cache)", source.calls)
	}

	if _, err := e.Recommendations(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	if source.calls != 2 {
		t.Errorf("fetches = %d, want 2 (forceRefresh bypasses the cache)", source.calls)
	}
}

func TestRecommendationsDegradesToCached(t *testing.T) {
	source := &fakeMempool{entries: entriesAtRates(10, 10, 10, 10, 10)}
	e := NewEstimator(source, time.Minute, 5)

	first, err := e.Recommendations(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}

	source.err = errors.New("node unreachable")
	second, err := e.Recommendations(context.Background(), true)
	if err != nil {
		t.Fatalf("fetch failure surfaced as an error: %v", err)
	}
	if second != first {
		t.Error("fetch failure did not return the cached recommendations")
	}
}

func TestRecommendationsFallbackWhenNeverFetched(t *testing.T) {
	source := &fakeMempool{err: errors.New("node unreachable")}
	e := NewEstimator(source, time.Minute, 5)

	recs, err := e.Recommendations(context.Background(), false)
	if err != nil {
		t.Fatalf("fetch failure surfaced as an error: %v", err)
	}
	if recs.Normal.FeeRate != fallbackRates[PriorityNormal] {
		t.Errorf("want fallback rates on first-fetch failure, got %v", recs.Normal.FeeRate)
	}
}

func TestRecommendationsCancellation(t *testing.T) {
	source := &fakeMempool{entries: entriesAtRates(10, 10, 10, 10, 10)}
	e := NewEstimator(source, time.Minute, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.Recommendations(ctx, false); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled fetch error = %v, want context.Canceled", err)
	}

	// Cancellation must not poison the cache.
	recs, err := e.Recommendations(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if recs.MedianRate != 10 {
		t.Errorf("post-cancel fetch median = %v, want 10", recs.MedianRate)
	}
}

func TestEstimateFee(t *testing.T) {
	source := &fakeMempool{entries: entriesAtRates(10, 10, 10, 10, 10)}
	e := NewEstimator(source, time.Minute, 5)

	est, err := e.EstimateFee(context.Background(), PriorityHigh, 5, 2)
	if err != nil {
		t.Fatal(err)
	}
	if est.Priority != PriorityHigh {
		t.Errorf("priority = %v, want high", est.Priority)
	}
	if est.FeeRate != 20 {
		t.Errorf("rate = %v, want 20", est.FeeRate)
	}
	if est.Percentile != 75 {
		t.Errorf("percentile = %d, want 75", est.Percentile)
	}
	// mass(5, 2, 0) = 6653 at 20 sompi/gram.
	if est.TotalFee != 133060 {
		t.Errorf("total fee = %d, want 133060", est.TotalFee)
	}

	if _, err := e.EstimateFee(context.Background(), PriorityLow, 0, 1); err == nil {
		t.Error("EstimateFee accepted a zero-input shape")
	}
}

func TestFeeForMassMinimumClamp(t *testing.T) {
	// A sub-minimum rate is clamped to the relay floor.
	if got := feeForMass(0.0001, 1000); uint64(got) != 1000*tx.MinimumRelayFeeMultiplier {
		t.Errorf("feeForMass = %d, want relay floor", got)
	}
	// Fractional products round up.
	if got := feeForMass(1.5, 3); got != 5 {
		t.Errorf("feeForMass(1.5, 3) = %d, want 5", got)
	}
}

func TestParsePriority(t *testing.T) {
	for _, name := range []string{"low", "normal", "high", "urgent"} {
		p, err := ParsePriority(name)
		if err != nil {
			t.Errorf("ParsePriority(%q): %v", name, err)
		}
		if p.String() != name {
			t.Errorf("round trip %q -> %q", name, p.String())
		}
	}
	if _, err := ParsePriority("instant"); err == nil {
		t.Error("ParsePriority accepted an unknown tier")
	}
}
