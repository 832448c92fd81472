// ABOUTME: JSON-RPC client for a kevacoin daemon
// ABOUTME: Implements the ledger.Ledger and ledger.Wallet contracts over HTTP basic auth

package kevacoin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kevachat/geminiboard/internal/ledger"
)

const defaultTimeout = 30 * time.Second

// RPCError is an error reported by the daemon itself.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("kevacoin rpc error %d: %s", e.Code, e.Message)
}

// Client talks to a kevacoin daemon. It is safe for concurrent use.
type Client struct {
	url      string
	username string
	password string
	http     *http.Client
	id       atomic.Uint64
	logger   *slog.Logger
}

// Options configures a Client.
type Options struct {
	URL      string
	Username string
	Password string
	Timeout  time.Duration
	Logger   *slog.Logger
}

// New creates a client for the daemon at opts.URL.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:      opts.URL,
		username: opts.Username,
		password: opts.Password,
		http:     &http.Client{Timeout: timeout},
		logger:   logger.With("component", "kevacoin"),
	}
}

// request is the JSON-RPC 1.0 envelope sent to the daemon
type request struct {
	ID     uint64 `json:"id"`
	Method string `json:"method"`
	Params []any  `json:"params"`
}

// response is the daemon reply; Result is decoded lazily
type response struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// call performs one RPC and decodes the result into reply (if non-nil).
func (c *Client) call(ctx context.Context, method string, params []any, reply any) error {
	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(request{
		ID:     c.id.Add(1),
		Method: method,
		Params: params,
	})
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", method, err)
	}

	c.logger.Debug("rpc send", "method", method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", method, err)
	}

	// the daemon answers errors with HTTP 500 and a JSON body, so decode first
	var r response
	if err := json.Unmarshal(data, &r); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("calling %s: status %d", method, resp.StatusCode)
		}
		return fmt.Errorf("decoding %s response: %w", method, err)
	}
	if r.Error != nil {
		return r.Error
	}
	if reply == nil {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(r.Result))
	dec.UseNumber()
	if err := dec.Decode(reply); err != nil {
		return fmt.Errorf("decoding %s result: %w", method, err)
	}
	return nil
}

// ListNamespaces returns the namespaces owned by the daemon's wallet.
func (c *Client) ListNamespaces(ctx context.Context) ([]ledger.Namespace, error) {
	var reply []struct {
		NamespaceID string `json:"namespaceId"`
		DisplayName string `json:"displayName"`
	}
	if err := c.call(ctx, "keva_list_namespaces", nil, &reply); err != nil {
		return nil, err
	}

	namespaces := make([]ledger.Namespace, 0, len(reply))
	for _, r := range reply {
		namespaces = append(namespaces, ledger.Namespace{ID: r.NamespaceID, DisplayName: r.DisplayName})
	}
	return namespaces, nil
}

// Filter returns the confirmed records of a namespace.
func (c *Client) Filter(ctx context.Context, namespace string) ([]ledger.Entry, error) {
	var reply []struct {
		Key   string `json:"key"`
		Value string `json:"value"`
		TxID  string `json:"txid"`
	}
	if err := c.call(ctx, "keva_filter", []any{namespace}, &reply); err != nil {
		return nil, err
	}

	entries := make([]ledger.Entry, 0, len(reply))
	for _, r := range reply {
		entries = append(entries, ledger.Entry{
			Namespace: namespace,
			Key:       r.Key,
			Value:     r.Value,
			TxID:      r.TxID,
		})
	}
	return entries, nil
}

// Pending returns the daemon's unconfirmed writes across all namespaces.
func (c *Client) Pending(ctx context.Context) ([]ledger.Entry, error) {
	var reply []struct {
		Op        string `json:"op"`
		Namespace string `json:"namespace"`
		Key       string `json:"key"`
		Value     string `json:"value"`
		TxID      string `json:"txid"`
	}
	if err := c.call(ctx, "keva_pending", nil, &reply); err != nil {
		return nil, err
	}

	entries := make([]ledger.Entry, 0, len(reply))
	for _, r := range reply {
		entries = append(entries, ledger.Entry{
			Namespace: r.Namespace,
			Key:       r.Key,
			Value:     r.Value,
			TxID:      r.TxID,
			Pending:   true,
		})
	}
	return entries, nil
}

// Get returns the current value of key in namespace, or ledger.ErrNotFound.
func (c *Client) Get(ctx context.Context, namespace, key string) (*ledger.Entry, error) {
	var reply struct {
		Key   string `json:"key"`
		Value string `json:"value"`
		TxID  string `json:"txid"`
	}
	if err := c.call(ctx, "keva_get", []any{namespace, key}, &reply); err != nil {
		return nil, err
	}
	if reply.Value == "" {
		return nil, ledger.ErrNotFound
	}
	return &ledger.Entry{
		Namespace: namespace,
		Key:       key,
		Value:     reply.Value,
		TxID:      reply.TxID,
	}, nil
}

// Put writes key/value to namespace and returns the transaction id.
func (c *Client) Put(ctx context.Context, namespace, key, value string) (string, error) {
	var reply struct {
		TxID string `json:"txid"`
	}
	if err := c.call(ctx, "keva_put", []any{namespace, key, value}, &reply); err != nil {
		return "", err
	}
	if reply.TxID == "" {
		return "", fmt.Errorf("keva_put returned no txid")
	}
	return reply.TxID, nil
}

// NewAddress allocates a receiving address under account.
func (c *Client) NewAddress(ctx context.Context, account string) (string, error) {
	var address string
	if err := c.call(ctx, "getnewaddress", []any{account}, &address); err != nil {
		return "", err
	}
	return address, nil
}

// ReceivedByAddress returns the amount received at address with at least
// the given number of confirmations.
func (c *Client) ReceivedByAddress(ctx context.Context, address string, confirmations int) (ledger.Amount, error) {
	var n json.Number
	if err := c.call(ctx, "getreceivedbyaddress", []any{address, confirmations}, &n); err != nil {
		return 0, err
	}
	return numberToAmount(n)
}

// Balance returns the wallet's spendable balance across all accounts.
func (c *Client) Balance(ctx context.Context, confirmations int) (ledger.Amount, error) {
	var n json.Number
	if err := c.call(ctx, "getbalance", []any{"*", confirmations}, &n); err != nil {
		return 0, err
	}
	return numberToAmount(n)
}

// numberToAmount converts a daemon number into base units without
// going through float64 unless the daemon used exponent notation.
func numberToAmount(n json.Number) (ledger.Amount, error) {
	s := n.String()
	if strings.ContainsAny(s, "eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("parsing amount %q: %w", s, err)
		}
		s = strconv.FormatFloat(f, 'f', ledger.Decimals, 64)
	}
	return ledger.ParseAmount(s)
}

var (
	_ ledger.Ledger = (*Client)(nil)
	_ ledger.Wallet = (*Client)(nil)
)
