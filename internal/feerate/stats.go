package feerate

import "sort"

// iqrMultiplier is the Tukey fence width used for outlier rejection.
// Tunable, not a protocol constant.
const iqrMultiplier = 1.5

// quantile returns the q-th quantile (0..1) of sorted values using
// linear interpolation between closest ranks.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// filterOutliers drops values outside [Q1 - k*IQR, Q3 + k*IQR] so a
// handful of anomalous transactions cannot skew the recommendation.
// The input is sorted in place; the result shares its backing array and
// stays sorted, which median() relies on. Fewer than 4 samples give no
// meaningful quartiles, so small sets pass through unfiltered.
func filterOutliers(rates []float64) []float64 {
	sort.Float64s(rates)
	if len(rates) < 4 {
		return rates
	}
	q1 := quantile(rates, 0.25)
	q3 := quantile(rates, 0.75)
	iqr := q3 - q1
	lower := q1 - iqrMultiplier*iqr
	upper := q3 + iqrMultiplier*iqr

	kept := rates[:0]
	for _, r := range rates {
		if r >= lower && r <= upper {
			kept = append(kept, r)
		}
	}
	return kept
}

// median returns the middle value of sorted data.
func median(sorted []float64) float64 {
	return quantile(sorted, 0.5)
}

// mean returns the arithmetic average.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
