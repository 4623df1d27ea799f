package nodeclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hoosat-tools/htnforge/pkg/tx"
	"github.com/hoosat-tools/htnforge/pkg/types"
	"github.com/hoosat-tools/htnforge/pkg/utxo"
)

func TestUTXOsByAddress(t *testing.T) {
	var addr types.Address
	addr[0] = 7

	var txid types.TransactionID
	txid[0] = 9
	want := []utxo.UTXO{{
		Outpoint:        types.Outpoint{TxID: txid, Index: 2},
		Amount:          150_000_000,
		ScriptPublicKey: types.PayToAddress(addr),
		BlockDAAScore:   12345,
		IsCoinbase:      true,
	}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wantPath := "/addresses/" + addr.String() + "/utxos"
		if r.URL.Path != wantPath {
			t.Errorf("path = %q, want %q", r.URL.Path, wantPath)
		}
		json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	got, err := New(srv.URL).UTXOsByAddress(context.Background(), addr)
	if err != nil {
		t.Fatalf("UTXOsByAddress: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d UTXOs, want 1", len(got))
	}
	u := got[0]
	if u.Outpoint != want[0].Outpoint || u.Amount != want[0].Amount ||
		u.BlockDAAScore != 12345 || !u.IsCoinbase {
		t.Errorf("UTXO round trip mismatch: %+v", u)
	}
	if !u.ScriptPublicKey.Equal(want[0].ScriptPublicKey) {
		t.Error("script round trip mismatch")
	}
}

func TestVirtualDAAScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/info/virtual-daa-score" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"virtualDaaScore":"987654321"}`))
	}))
	defer srv.Close()

	score, err := New(srv.URL).VirtualDAAScore(context.Background())
	if err != nil {
		t.Fatalf("VirtualDAAScore: %v", err)
	}
	if score != 987654321 {
		t.Errorf("score = %d, want 987654321", score)
	}
}

func TestMempoolSnapshot(t *testing.T) {
	entry := MempoolEntry{
		Fee: 15550,
		Transaction: &tx.Transaction{
			Inputs:  []*tx.Input{{Sequence: tx.DefaultSequence, SigOpCount: 1}},
			Outputs: []*tx.Output{{Amount: 100}},
		},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mempool/entries" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]MempoolEntry{entry})
	}))
	defer srv.Close()

	entries, err := New(srv.URL).MempoolSnapshot(context.Background())
	if err != nil {
		t.Fatalf("MempoolSnapshot: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Fee != 15550 {
		t.Errorf("fee = %d, want 15550", entries[0].Fee)
	}
	if entries[0].Transaction == nil || len(entries[0].Transaction.Inputs) != 1 {
		t.Error("transaction did not survive the round trip")
	}
}

func TestSubmitTransaction(t *testing.T) {
	signed := &tx.Transaction{
		Inputs:  []*tx.Input{{SignatureScript: []byte{0xaa}, SigOpCount: 1}},
		Outputs: []*tx.Output{{Amount: 100}},
	}
	wantID := signed.ID()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/transactions" {
			t.Errorf("%s %s, want POST /transactions", r.Method, r.URL.Path)
		}
		var req struct {
			Transaction *tx.Transaction `json:"transaction"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if req.Transaction == nil || len(req.Transaction.Inputs) != 1 {
			t.Error("submitted transaction missing from request body")
		}
		json.NewEncoder(w).Encode(map[string]types.TransactionID{"transactionId": wantID})
	}))
	defer srv.Close()

	gotID, err := New(srv.URL).SubmitTransaction(context.Background(), signed)
	if err != nil {
		t.Fatalf("SubmitTransaction: %v", err)
	}
	if gotID != wantID {
		t.Errorf("transaction ID mismatch")
	}
}

func TestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "orphan transaction", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := New(srv.URL).MempoolSnapshot(context.Background())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if statusErr.Code != http.StatusUnprocessableEntity {
		t.Errorf("code = %d, want 422", statusErr.Code)
	}
	if statusErr.Body != "orphan transaction" {
		t.Errorf("body = %q", statusErr.Body)
	}
}

func TestContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(srv.URL).VirtualDAAScore(ctx); err == nil {
		t.Error("cancelled request returned no error")
	}
}
