// ABOUTME: Tests for the kevacoin JSON-RPC client
// ABOUTME: Runs against an httptest server that mimics daemon replies

package kevacoin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevachat/geminiboard/internal/ledger"
)

type rpcCall struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
}

// newTestDaemon serves canned results keyed by RPC method.
func newTestDaemon(t *testing.T, results map[string]string, seen *[]rpcCall) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "rpcuser" || pass != "rpcpass" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		var call rpcCall
		if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if seen != nil {
			*seen = append(*seen, call)
		}

		result, ok := results[call.Method]
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"id":1,"result":null,"error":{"code":-32601,"message":"Method not found"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":1,"result":` + result + `,"error":null}`))
	}))
	t.Cleanup(srv.Close)

	return New(Options{URL: srv.URL, Username: "rpcuser", Password: "rpcpass"})
}

func TestClient_ListNamespaces(t *testing.T) {
	c := newTestDaemon(t, map[string]string{
		"keva_list_namespaces": `[{"namespaceId":"Nabc","displayName":"general"}]`,
	}, nil)

	namespaces, err := c.ListNamespaces(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []ledger.Namespace{{ID: "Nabc", DisplayName: "general"}}, namespaces)
}

func TestClient_FilterAndPending(t *testing.T) {
	var seen []rpcCall
	c := newTestDaemon(t, map[string]string{
		"keva_filter":  `[{"key":"1700000000@alice","value":"hi","txid":"aa","height":10}]`,
		"keva_pending": `[{"op":"keva_put","namespace":"Nabc","key":"1700000001@anon","value":"yo","txid":"bb"}]`,
	}, &seen)
	ctx := context.Background()

	entries, err := c.Filter(ctx, "Nabc")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Nabc", entries[0].Namespace)
	assert.Equal(t, "aa", entries[0].TxID)
	assert.False(t, entries[0].Pending)

	pending, err := c.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].Pending)
	assert.Equal(t, "yo", pending[0].Value)

	require.Len(t, seen, 2)
	assert.Equal(t, []any{"Nabc"}, seen[0].Params)
	assert.Empty(t, seen[1].Params)
}

func TestClient_GetMissing(t *testing.T) {
	c := newTestDaemon(t, map[string]string{
		"keva_get": `{"key":"_KEVA_NS_","value":""}`,
	}, nil)

	_, err := c.Get(context.Background(), "Nabc", "_KEVA_NS_")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestClient_Put(t *testing.T) {
	var seen []rpcCall
	c := newTestDaemon(t, map[string]string{
		"keva_put": `{"txid":"deadbeef"}`,
	}, &seen)

	txid, err := c.Put(context.Background(), "Nabc", "1700000000@anon", "hello")
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", txid)
	assert.Equal(t, []any{"Nabc", "1700000000@anon", "hello"}, seen[0].Params)
}

func TestClient_Amounts(t *testing.T) {
	var seen []rpcCall
	c := newTestDaemon(t, map[string]string{
		"getreceivedbyaddress": `1.50000000`,
		"getbalance":           `1e-08`,
		"getnewaddress":        `"VaddrXYZ"`,
	}, &seen)
	ctx := context.Background()

	received, err := c.ReceivedByAddress(ctx, "VaddrXYZ", 3)
	require.NoError(t, err)
	assert.Equal(t, ledger.Coin+ledger.Coin/2, received)

	balance, err := c.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, ledger.Amount(1), balance)

	address, err := c.NewAddress(ctx, "board")
	require.NoError(t, err)
	assert.Equal(t, "VaddrXYZ", address)

	// JSON numbers decode as float64 on the test side
	assert.Equal(t, []any{"VaddrXYZ", float64(3)}, seen[0].Params)
	assert.Equal(t, []any{"*", float64(1)}, seen[1].Params)
}

func TestClient_RPCError(t *testing.T) {
	c := newTestDaemon(t, map[string]string{}, nil)

	_, err := c.ListNamespaces(context.Background())
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, -32601, rpcErr.Code)
}

func TestClient_Unauthorized(t *testing.T) {
	c := newTestDaemon(t, map[string]string{}, nil)
	c.password = "wrong"

	_, err := c.ListNamespaces(context.Background())
	assert.Error(t, err)
}
