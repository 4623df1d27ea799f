// htnforge is a command-line client for building, pricing and sending
// transactions through a node or wallet proxy.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/hoosat-tools/htnforge/config"
	"github.com/hoosat-tools/htnforge/internal/feerate"
	"github.com/hoosat-tools/htnforge/internal/keys"
	"github.com/hoosat-tools/htnforge/internal/log"
	"github.com/hoosat-tools/htnforge/internal/nodeclient"
	"github.com/hoosat-tools/htnforge/internal/store"
	"github.com/hoosat-tools/htnforge/internal/wallet"
	"github.com/hoosat-tools/htnforge/pkg/crypto"
	"github.com/hoosat-tools/htnforge/pkg/tx"
	"github.com/hoosat-tools/htnforge/pkg/types"
	"github.com/hoosat-tools/htnforge/pkg/utxo"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// Scan global flags that appear before the subcommand.
	cfgPath := ""
	nodeURL := ""
	network := ""
	dataDir := ""

	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--node" && len(args) > 1:
			nodeURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--node="):
			nodeURL = args[0][len("--node="):]
			args = args[1:]
		case args[0] == "--network" && len(args) > 1:
			network = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--network="):
			network = args[0][len("--network="):]
			args = args[1:]
		case args[0] == "--datadir" && len(args) > 1:
			dataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--datadir="):
			dataDir = args[0][len("--datadir="):]
			args = args[1:]
		case args[0] == "--config" && len(args) > 1:
			cfgPath = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--config="):
			cfgPath = args[0][len("--config="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	cfg := config.DefaultMainnet()
	if network == "testnet" {
		cfg = config.DefaultTestnet()
	}
	if cfgPath != "" {
		values, err := config.LoadFile(cfgPath)
		if err != nil {
			fatalf("load config: %v", err)
		}
		if err := config.ApplyFile(cfg, values); err != nil {
			fatalf("apply config: %v", err)
		}
	}
	if nodeURL != "" {
		cfg.NodeURL = nodeURL
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if err := cfg.Validate(); err != nil {
		fatalf("config: %v", err)
	}

	if cfg.Network == config.Testnet {
		types.SetAddressHRP(types.TestnetHRP)
	} else {
		types.SetAddressHRP(types.MainnetHRP)
	}
	log.Init(cfg.Log.Level, cfg.Log.JSON)

	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	client := nodeclient.NewWithTimeout(cfg.NodeURL, cfg.HTTPTimeout)
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "balance":
		cmdBalance(cfg, client, cmdArgs)
	case "utxos":
		cmdUTXOs(cfg, client, cmdArgs)
	case "fees":
		cmdFees(cfg, client)
	case "mempool":
		cmdMempool(client)
	case "estimatefee":
		cmdEstimateFee(cfg, client, cmdArgs)
	case "send":
		cmdSend(cfg, client, cmdArgs)
	case "genkey":
		cmdGenKey()
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: htnforge [global flags] <command> [flags]

Global flags:
  --node <url>        Node/proxy endpoint (default: http://127.0.0.1:42421)
  --network <net>     mainnet (default) or testnet
  --datadir <path>    Data directory for the UTXO cache
  --config <path>     Configuration file (key = value)

Commands:
  balance <address>               Show available and pending balance
  utxos <address>                 List unspent outputs
  fees                            Show market fee recommendations
  mempool                         Summarize pending transactions
  estimatefee --inputs <n> --outputs <m> [--priority <tier>]
                                  Price a transaction shape
  send --to <addr> --amount <htn> [--priority <tier>] [--policy <p>]
      [--account <n>] [--index <n>]
                                  Send a payment (prompts for mnemonic)
  genkey                          Generate a mnemonic and its first address
`)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// openWallet wires the wallet coordinator over a persistent UTXO cache.
func openWallet(cfg *config.Config, client *nodeclient.Client) (*wallet.Wallet, func()) {
	db, err := store.NewBadger(filepath.Join(cfg.DataDir, string(cfg.Network), "utxocache"))
	if err != nil {
		fatalf("open utxo cache: %v", err)
	}
	estimator := feerate.NewEstimator(client, cfg.Fees.CacheTTL, cfg.Fees.MinSamples)
	w := wallet.New(client, store.NewUTXOCache(db), estimator, cfg.CoinbaseMaturity)
	return w, func() { db.Close() }
}

func cmdBalance(cfg *config.Config, client *nodeclient.Client, args []string) {
	if len(args) < 1 {
		fatalf("usage: balance <address>")
	}
	addr, err := types.ParseAddress(args[0])
	if err != nil {
		fatalf("%v", err)
	}
	w, closeFn := openWallet(cfg, client)
	defer closeFn()

	bal, err := w.GetBalance(context.Background(), addr)
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("Available: %s HTN\n", bal.Available.Format())
	fmt.Printf("Pending:   %s HTN\n", bal.Pending.Format())
}

func cmdUTXOs(cfg *config.Config, client *nodeclient.Client, args []string) {
	if len(args) < 1 {
		fatalf("usage: utxos <address>")
	}
	addr, err := types.ParseAddress(args[0])
	if err != nil {
		fatalf("%v", err)
	}
	w, closeFn := openWallet(cfg, client)
	defer closeFn()

	unspent, daaScore, err := w.Refresh(context.Background(), addr)
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("%d unspent outputs (DAA score %d):\n", len(unspent), daaScore)
	for _, u := range unspent {
		status := "mature"
		if !u.IsMature(daaScore, cfg.CoinbaseMaturity) {
			status = "immature"
		}
		fmt.Printf("  %s  %s HTN  %s\n", u.Outpoint, u.Amount.Format(), status)
	}
}

func cmdFees(cfg *config.Config, client *nodeclient.Client) {
	estimator := feerate.NewEstimator(client, cfg.Fees.CacheTTL, cfg.Fees.MinSamples)
	recs, err := estimator.Recommendations(context.Background(), true)
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("Based on %d mempool samples (median %.2f, average %.2f sompi/gram)\n",
		recs.BasedOnSamples, recs.MedianRate, recs.AverageRate)
	for _, est := range []feerate.Estimate{recs.Low, recs.Normal, recs.High, recs.Urgent} {
		fmt.Printf("  %-7s %8.2f sompi/gram  (typical transfer: %s sompi)\n",
			est.Priority, est.FeeRate, est.TotalFee)
	}
}

func cmdMempool(client *nodeclient.Client) {
	entries, err := client.MempoolSnapshot(context.Background())
	if err != nil {
		fatalf("%v", err)
	}
	var totalFees types.Amount
	for _, entry := range entries {
		totalFees += entry.Fee
	}
	fmt.Printf("%d pending transactions, %s sompi in declared fees\n", len(entries), totalFees)
	for _, entry := range entries {
		if entry.Transaction == nil {
			continue
		}
		mass, err := tx.MassForTransaction(entry.Transaction)
		if err != nil || mass == 0 {
			continue
		}
		fmt.Printf("  %s  fee %s  %.2f sompi/gram\n",
			entry.Transaction.ID(), entry.Fee, float64(entry.Fee)/float64(mass))
	}
}

func cmdEstimateFee(cfg *config.Config, client *nodeclient.Client, args []string) {
	fs := flag.NewFlagSet("estimatefee", flag.ExitOnError)
	numInputs := fs.Int("inputs", 1, "number of inputs")
	numOutputs := fs.Int("outputs", 2, "number of outputs")
	priorityStr := fs.String("priority", "normal", "low, normal, high or urgent")
	fs.Parse(args)

	priority, err := feerate.ParsePriority(*priorityStr)
	if err != nil {
		fatalf("%v", err)
	}
	estimator := feerate.NewEstimator(client, cfg.Fees.CacheTTL, cfg.Fees.MinSamples)
	est, err := estimator.EstimateFee(context.Background(), priority, *numInputs, *numOutputs)
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("Priority: %s\n", est.Priority)
	fmt.Printf("Fee rate: %.2f sompi/gram\n", est.FeeRate)
	fmt.Printf("Total:    %s sompi\n", est.TotalFee)
}

func cmdSend(cfg *config.Config, client *nodeclient.Client, args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	toStr := fs.String("to", "", "recipient address")
	amountStr := fs.String("amount", "", "amount in HTN")
	priorityStr := fs.String("priority", "normal", "low, normal, high or urgent")
	policyStr := fs.String("policy", "largest-first", "largest-first, smallest-first or all")
	account := fs.Uint("account", 0, "derivation account")
	index := fs.Uint("index", 0, "derivation address index")
	fs.Parse(args)

	if *toStr == "" || *amountStr == "" {
		fatalf("usage: send --to <addr> --amount <htn>")
	}
	to, err := types.ParseAddress(*toStr)
	if err != nil {
		fatalf("%v", err)
	}
	amount, err := types.ParseAmount(*amountStr)
	if err != nil {
		fatalf("%v", err)
	}
	priority, err := feerate.ParsePriority(*priorityStr)
	if err != nil {
		fatalf("%v", err)
	}
	var policy utxo.Policy
	switch *policyStr {
	case "largest-first":
		policy = utxo.PolicyLargestFirst
	case "smallest-first":
		policy = utxo.PolicySmallestFirst
	case "all":
		policy = utxo.PolicyAll
	default:
		fatalf("unknown policy %q", *policyStr)
	}

	key, from := promptKey(uint32(*account), uint32(*index))
	fmt.Printf("Sending %s HTN from %s to %s\n", amount.Format(), from, to)

	w, closeFn := openWallet(cfg, client)
	defer closeFn()

	signed, txID, err := w.Send(context.Background(), wallet.SendRequest{
		From:     from,
		To:       to,
		Amount:   amount,
		Key:      key,
		Priority: priority,
		Policy:   policy,
	})
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("Submitted %s (%d inputs, %d outputs)\n", txID, len(signed.Inputs), len(signed.Outputs))
}

// promptKey reads a mnemonic without echo and derives the signing key
// at m/44'/1996'/account'/0/index.
func promptKey(account, index uint32) (*crypto.PrivateKey, types.Address) {
	fmt.Fprint(os.Stderr, "Mnemonic: ")
	line, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fatalf("read mnemonic: %v", err)
	}

	master, err := keys.MasterKeyFromMnemonic(strings.TrimSpace(string(line)), "")
	if err != nil {
		fatalf("%v", err)
	}
	derived, err := master.DeriveAddressKey(account, keys.ChangeExternal, index)
	if err != nil {
		fatalf("%v", err)
	}
	signer, err := derived.Signer()
	if err != nil {
		fatalf("%v", err)
	}
	return signer, derived.Address()
}

func cmdGenKey() {
	mnemonic, err := keys.GenerateMnemonic()
	if err != nil {
		fatalf("%v", err)
	}
	master, err := keys.MasterKeyFromMnemonic(mnemonic, "")
	if err != nil {
		fatalf("%v", err)
	}
	derived, err := master.DeriveAddressKey(0, keys.ChangeExternal, 0)
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("Mnemonic: %s\n", mnemonic)
	fmt.Printf("Address:  %s\n", derived.Address())
	fmt.Println("Write the mnemonic down; it is the only copy.")
}
