package utxo

// DefaultCoinbaseMaturity is the DAA score depth a coinbase output must
// reach before it may be spent. Reorg safety for mining rewards; regular
// outputs have no delay.
const DefaultCoinbaseMaturity = 100

// IsMature reports whether the UTXO is spendable at the given DAA score.
// Non-coinbase UTXOs are always mature; a coinbase UTXO matures once
// currentDAAScore - BlockDAAScore >= maturity.
func (u UTXO) IsMature(currentDAAScore, maturity uint64) bool {
	if !u.IsCoinbase {
		return true
	}
	if currentDAAScore < u.BlockDAAScore {
		// Stale view of the DAG; treat as immature.
		return false
	}
	return currentDAAScore-u.BlockDAAScore >= maturity
}

// FilterMature returns the subset of utxos spendable at the given DAA score.
func FilterMature(utxos []UTXO, currentDAAScore, maturity uint64) []UTXO {
	mature := make([]UTXO, 0, len(utxos))
	for _, u := range utxos {
		if u.IsMature(currentDAAScore, maturity) {
			mature = append(mature, u)
		}
	}
	return mature
}

// Separate splits utxos into mature and immature sets at the given DAA score.
func Separate(utxos []UTXO, currentDAAScore, maturity uint64) (mature, immature []UTXO) {
	for _, u := range utxos {
		if u.IsMature(currentDAAScore, maturity) {
			mature = append(mature, u)
		} else {
			immature = append(immature, u)
		}
	}
	return mature, immature
}
