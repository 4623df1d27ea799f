package tx

import (
	"testing"

	"github.com/hoosat-tools/htnforge/pkg/crypto"
)

func testTwoInputTx() (*Transaction, []PrevOutput) {
	prevs := []PrevOutput{testPrev(1, 100_000_000), testPrev(2, 50_000_000)}
	t := &Transaction{
		Inputs: []*Input{
			{PreviousOutpoint: prevs[0].Outpoint, Sequence: DefaultSequence, SigOpCount: 1},
			{PreviousOutpoint: prevs[1].Outpoint, Sequence: DefaultSequence, SigOpCount: 1},
		},
		Outputs: []*Output{
			{Amount: 149_000_000, ScriptPublicKey: prevs[0].ScriptPublicKey},
		},
	}
	return t, prevs
}

func TestSignatureHash(t *testing.T) {
	tr, prevs := testTwoInputTx()

	h0, err := SignatureHash(tr, 0, prevs[0])
	if err != nil {
		t.Fatal(err)
	}
	h1, err := SignatureHash(tr, 1, prevs[1])
	if err != nil {
		t.Fatal(err)
	}
	if h0 == h1 {
		t.Error("different inputs produced the same sighash")
	}

	again, err := SignatureHash(tr, 0, prevs[0])
	if err != nil {
		t.Fatal(err)
	}
	if h0 != again {
		t.Error("sighash is not deterministic")
	}

	// The committed amount changes the digest.
	modified := prevs[0]
	modified.Amount++
	h0mod, err := SignatureHash(tr, 0, modified)
	if err != nil {
		t.Fatal(err)
	}
	if h0 == h0mod {
		t.Error("changing the spent amount did not change the sighash")
	}
}

func TestSignatureHashIndexOutOfRange(t *testing.T) {
	tr, prevs := testTwoInputTx()
	if _, err := SignatureHash(tr, 2, prevs[0]); err == nil {
		t.Error("out-of-range index accepted")
	}
	if _, err := SignatureHash(tr, -1, prevs[0]); err == nil {
		t.Error("negative index accepted")
	}
}

func TestSignInputVerifies(t *testing.T) {
	tr, prevs := testTwoInputTx()
	key := testKey(t, 9)

	script, err := SignInput(tr, 0, key, prevs[0])
	if err != nil {
		t.Fatal(err)
	}

	// Script layout: len(sig+1) | sig | hashtype | len(pub) | pub.
	sigLen := int(script[0])
	sig := script[1:sigLen] // Excludes the trailing hash-type byte.
	if script[sigLen] != SigHashAll {
		t.Fatalf("hash type byte = %#x, want %#x", script[sigLen], SigHashAll)
	}
	pubLen := int(script[sigLen+1])
	pub := script[sigLen+2 : sigLen+2+pubLen]

	hash, err := SignatureHash(tr, 0, prevs[0])
	if err != nil {
		t.Fatal(err)
	}
	if !crypto.VerifySignature(hash[:], sig, pub) {
		t.Error("signature does not verify against the sighash")
	}
}

func TestIDIgnoresSignatureScripts(t *testing.T) {
	tr, prevs := testTwoInputTx()
	before := tr.ID()

	key := testKey(t, 9)
	script, err := SignInput(tr, 0, key, prevs[0])
	if err != nil {
		t.Fatal(err)
	}
	tr.Inputs[0].SignatureScript = script

	if tr.ID() != before {
		t.Error("signing changed the transaction ID")
	}
}
