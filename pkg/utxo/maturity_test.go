package utxo

import (
	"testing"

	"github.com/hoosat-tools/htnforge/pkg/types"
)

func makeUTXO(seed byte, amount types.Amount, daaScore uint64, coinbase bool) UTXO {
	var txid types.TransactionID
	txid[0] = seed
	var addr types.Address
	addr[0] = seed
	return UTXO{
		Outpoint:        types.Outpoint{TxID: txid, Index: 0},
		Amount:          amount,
		ScriptPublicKey: types.PayToAddress(addr),
		BlockDAAScore:   daaScore,
		IsCoinbase:      coinbase,
	}
}

func TestIsMature(t *testing.T) {
	tests := []struct {
		name     string
		utxo     UTXO
		current  uint64
		maturity uint64
		want     bool
	}{
		{
			name:     "regular output always mature",
			utxo:     makeUTXO(1, 100, 1000, false),
			current:  1000,
			maturity: 100,
			want:     true,
		},
		{
			name:     "coinbase exactly at maturity",
			utxo:     makeUTXO(1, 100, 900, true),
			current:  1000,
			maturity: 100,
			want:     true,
		},
		{
			name:     "coinbase one short",
			utxo:     makeUTXO(1, 100, 901, true),
			current:  1000,
			maturity: 100,
			want:     false,
		},
		{
			name:     "coinbase deep enough",
			utxo:     makeUTXO(1, 100, 500, true),
			current:  1000,
			maturity: 100,
			want:     true,
		},
		{
			name:     "stale view treated as immature",
			utxo:     makeUTXO(1, 100, 2000, true),
			current:  1000,
			maturity: 100,
			want:     false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.utxo.IsMature(tt.current, tt.maturity); got != tt.want {
				t.Errorf("IsMature(%d, %d) = %v, want %v", tt.current, tt.maturity, got, tt.want)
			}
		})
	}
}

func TestFilterMatureAndSeparate(t *testing.T) {
	utxos := []UTXO{
		makeUTXO(1, 100, 0, false),
		makeUTXO(2, 200, 950, true), // Immature at score 1000.
		makeUTXO(3, 300, 800, true), // Mature at score 1000.
	}

	mature := FilterMature(utxos, 1000, 100)
	if len(mature) != 2 {
		t.Fatalf("FilterMature kept %d, want 2", len(mature))
	}

	gotMature, gotImmature := Separate(utxos, 1000, 100)
	if len(gotMature) != 2 || len(gotImmature) != 1 {
		t.Fatalf("Separate = %d/%d, want 2/1", len(gotMature), len(gotImmature))
	}
	if gotImmature[0].Amount != 200 {
		t.Errorf("wrong UTXO classified as immature")
	}
}

func TestTotal(t *testing.T) {
	utxos := []UTXO{
		makeUTXO(1, 100, 0, false),
		makeUTXO(2, 250, 0, false),
	}
	total, err := Total(utxos)
	if err != nil {
		t.Fatal(err)
	}
	if total != 350 {
		t.Errorf("Total = %d, want 350", total)
	}

	overflow := []UTXO{
		makeUTXO(1, ^types.Amount(0), 0, false),
		makeUTXO(2, 1, 0, false),
	}
	if _, err := Total(overflow); err == nil {
		t.Error("Total accepted an overflowing set")
	}
}
