// Package nodeclient talks JSON-over-HTTP to a node or wallet proxy.
package nodeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hoosat-tools/htnforge/internal/log"
	"github.com/hoosat-tools/htnforge/pkg/tx"
	"github.com/hoosat-tools/htnforge/pkg/types"
	"github.com/hoosat-tools/htnforge/pkg/utxo"
)

// Client is an HTTP client for the node's REST surface.
type Client struct {
	base string
	http *http.Client
}

// New creates a client targeting the given base URL.
func New(base string) *Client {
	return NewWithTimeout(base, 10*time.Second)
}

// NewWithTimeout creates a client with a custom HTTP timeout.
func NewWithTimeout(base string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// StatusError is returned when the node responds with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("node returned %d: %s", e.Code, e.Body)
}

// get performs a GET request and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

// post performs a POST request with a JSON body and decodes the response.
func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// UTXOsByAddress fetches the unspent outputs locked to addr.
func (c *Client) UTXOsByAddress(ctx context.Context, addr types.Address) ([]utxo.UTXO, error) {
	var out []utxo.UTXO
	path := "/addresses/" + url.PathEscape(addr.String()) + "/utxos"
	if err := c.get(ctx, path, &out); err != nil {
		return nil, fmt.Errorf("fetch utxos for %s: %w", addr, err)
	}
	return out, nil
}

// MempoolEntry is one pending transaction with its declared fee.
type MempoolEntry struct {
	Fee         types.Amount    `json:"fee"`
	Transaction *tx.Transaction `json:"transaction"`
}

// MempoolSnapshot fetches the pending transaction pool.
func (c *Client) MempoolSnapshot(ctx context.Context) ([]MempoolEntry, error) {
	var out []MempoolEntry
	if err := c.get(ctx, "/mempool/entries", &out); err != nil {
		return nil, fmt.Errorf("fetch mempool: %w", err)
	}
	return out, nil
}

// daaScoreResponse carries the virtual DAA score as a decimal string.
type daaScoreResponse struct {
	VirtualDAAScore string `json:"virtualDaaScore"`
}

// VirtualDAAScore fetches the current virtual DAA score.
func (c *Client) VirtualDAAScore(ctx context.Context) (uint64, error) {
	var out daaScoreResponse
	if err := c.get(ctx, "/info/virtual-daa-score", &out); err != nil {
		return 0, fmt.Errorf("fetch daa score: %w", err)
	}
	score, err := strconv.ParseUint(out.VirtualDAAScore, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid daa score %q: %w", out.VirtualDAAScore, err)
	}
	return score, nil
}

// submitRequest wraps a signed transaction for submission.
type submitRequest struct {
	Transaction *tx.Transaction `json:"transaction"`
}

// submitResponse carries the accepted transaction ID.
type submitResponse struct {
	TransactionID types.TransactionID `json:"transactionId"`
}

// SubmitTransaction sends a signed transaction to the node and returns
// the ID the node accepted it under. No retry logic lives here; the
// caller owns retry-with-backoff policy.
func (c *Client) SubmitTransaction(ctx context.Context, t *tx.Transaction) (types.TransactionID, error) {
	var out submitResponse
	if err := c.post(ctx, "/transactions", submitRequest{Transaction: t}, &out); err != nil {
		return types.TransactionID{}, fmt.Errorf("submit transaction: %w", err)
	}
	log.Client.Debug().
		Str("txid", out.TransactionID.String()).
		Int("inputs", len(t.Inputs)).
		Int("outputs", len(t.Outputs)).
		Msg("transaction accepted")
	return out.TransactionID, nil
}
