package utxo

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hoosat-tools/htnforge/pkg/tx"
	"github.com/hoosat-tools/htnforge/pkg/types"
)

// Coin selection errors.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoUTXOs           = errors.New("no UTXOs available")
)

// Policy chooses the coin selection strategy.
type Policy int

const (
	// PolicyLargestFirst greedily accumulates the largest UTXOs until
	// the target plus the (input-count-dependent) fee is covered.
	PolicyLargestFirst Policy = iota
	// PolicyAll spends every mature UTXO, consolidating the set.
	PolicyAll
	// PolicySmallestFirst prefers absorbing sub-threshold UTXOs to
	// shrink the UTXO set.
	PolicySmallestFirst
)

// maxFeeIterations bounds the select/re-estimate loop. The fee grows
// with input count, which grows the selection; a handful of passes is
// always enough to stabilize or exhaust the set.
const maxFeeIterations = 8

// Selection is the result of coin selection.
type Selection struct {
	UTXOs []UTXO       // Selected UTXOs to spend.
	Total types.Amount // Sum of selected amounts.
	Fee   types.Amount // Fee estimate for the resulting input count.
}

// Options parameterizes Select.
type Options struct {
	Target           types.Amount // Spend amount, excluding fee. Required.
	FeeRate          uint64       // Sompi per mass unit; 0 means the minimum relay rate.
	NumOutputs       int          // Planned output count including change; 0 means 2.
	DAAScore         uint64       // Current virtual DAA score, for maturity filtering.
	CoinbaseMaturity uint64       // 0 means DefaultCoinbaseMaturity.
	Policy           Policy
}

// Select chooses mature UTXOs covering Target plus a fee that is
// re-estimated as the input count grows. Immature coinbase UTXOs are
// never selected. Fails with ErrInsufficientFunds when the mature set
// cannot cover target plus fee.
func Select(available []UTXO, opts Options) (*Selection, error) {
	if opts.Target == 0 {
		return nil, fmt.Errorf("%w: target must be positive", types.ErrInvalidAmount)
	}
	feeRate := opts.FeeRate
	if feeRate == 0 {
		feeRate = tx.MinimumRelayFeeMultiplier
	}
	numOutputs := opts.NumOutputs
	if numOutputs == 0 {
		numOutputs = 2
	}
	maturity := opts.CoinbaseMaturity
	if maturity == 0 {
		maturity = DefaultCoinbaseMaturity
	}

	candidates := FilterMature(available, opts.DAAScore, maturity)
	nonZero := candidates[:0]
	for _, u := range candidates {
		if u.Amount > 0 {
			nonZero = append(nonZero, u)
		}
	}
	candidates = nonZero
	if len(candidates) == 0 {
		return nil, ErrNoUTXOs
	}

	switch opts.Policy {
	case PolicyAll:
		return selectAll(candidates, opts.Target, feeRate, numOutputs)
	case PolicySmallestFirst:
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].Amount < candidates[j].Amount
		})
	default:
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].Amount > candidates[j].Amount
		})
	}
	return accumulate(candidates, opts.Target, feeRate, numOutputs)
}

// feeFor estimates the fee for a selection of n inputs.
func feeFor(n, numOutputs int, feeRate uint64) (types.Amount, error) {
	if n < 1 {
		n = 1
	}
	mass, err := tx.ComputeMass(n, numOutputs, 0)
	if err != nil {
		return 0, err
	}
	return types.Amount(mass * feeRate), nil
}

// accumulate adds candidates in order until target plus the running fee
// estimate is covered, re-deriving the fee as the input count grows.
func accumulate(candidates []UTXO, target types.Amount, feeRate uint64, numOutputs int) (*Selection, error) {
	var selected []UTXO
	var total types.Amount
	idx := 0

	for iter := 0; iter < maxFeeIterations; iter++ {
		fee, err := feeFor(len(selected), numOutputs, feeRate)
		if err != nil {
			return nil, err
		}
		need, err := types.AddAmounts(target, fee)
		if err != nil {
			return nil, err
		}

		for total < need && idx < len(candidates) {
			selected = append(selected, candidates[idx])
			total, err = types.AddAmounts(total, candidates[idx].Amount)
			if err != nil {
				return nil, err
			}
			idx++
		}
		if total < need {
			break // Exhausted the candidate set.
		}

		// The selection grew; check it still covers the fee for its
		// own input count.
		settled, err := feeFor(len(selected), numOutputs, feeRate)
		if err != nil {
			return nil, err
		}
		stillNeed, err := types.AddAmounts(target, settled)
		if err != nil {
			return nil, err
		}
		if total >= stillNeed {
			return &Selection{UTXOs: selected, Total: total, Fee: settled}, nil
		}
	}

	have, err := Total(candidates)
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: have %d, need %d plus fee", ErrInsufficientFunds, have, target)
}

// selectAll spends the entire mature set.
func selectAll(candidates []UTXO, target types.Amount, feeRate uint64, numOutputs int) (*Selection, error) {
	total, err := Total(candidates)
	if err != nil {
		return nil, err
	}
	fee, err := feeFor(len(candidates), numOutputs, feeRate)
	if err != nil {
		return nil, err
	}
	need, err := types.AddAmounts(target, fee)
	if err != nil {
		return nil, err
	}
	if total < need {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, total, need)
	}
	return &Selection{UTXOs: candidates, Total: total, Fee: fee}, nil
}
