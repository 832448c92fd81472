// ABOUTME: In-memory Ledger and Wallet implementation for testing
// ABOUTME: Allows board, pool and worker tests to run without a daemon

package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
)

// Put records a write accepted by MockLedger.
type Put struct {
	Namespace string
	Key       string
	Value     string
	TxID      string
}

// MockLedger is an in-memory Ledger and Wallet for tests.
// Writes land in the pending list, like an unconfirmed daemon transaction.
type MockLedger struct {
	mu         sync.RWMutex
	namespaces []Namespace
	entries    map[string][]Entry // keyed by namespace
	pending    []Entry
	puts       []Put
	received   map[string]Amount // keyed by address
	balance    Amount
	addresses  int
	calls      map[string]int

	// PutErr, when set, is returned by every Put.
	PutErr error
	// Err, when set, is returned by every read.
	Err error
}

// NewMockLedger creates an empty MockLedger.
func NewMockLedger() *MockLedger {
	return &MockLedger{
		entries:  make(map[string][]Entry),
		received: make(map[string]Amount),
		calls:    make(map[string]int),
	}
}

// AddNamespace registers a namespace in the local namespace list.
func (m *MockLedger) AddNamespace(id, displayName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.namespaces = append(m.namespaces, Namespace{ID: id, DisplayName: displayName})
}

// AddEntry appends a confirmed record to a namespace.
func (m *MockLedger) AddEntry(e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.Pending {
		m.pending = append(m.pending, e)
		return
	}
	m.entries[e.Namespace] = append(m.entries[e.Namespace], e)
}

// SetReceived sets the confirmed amount received at an address.
func (m *MockLedger) SetReceived(address string, amount Amount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received[address] = amount
}

// SetBalance sets the spendable wallet balance.
func (m *MockLedger) SetBalance(amount Amount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balance = amount
}

// Puts returns a copy of every accepted write, oldest first.
func (m *MockLedger) Puts() []Put {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]Put, len(m.puts))
	copy(result, m.puts)
	return result
}

// Calls returns how many times the named method was invoked.
func (m *MockLedger) Calls(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[method]
}

func (m *MockLedger) record(method string) {
	m.calls[method]++
}

// ListNamespaces returns the registered namespaces.
func (m *MockLedger) ListNamespaces(ctx context.Context) ([]Namespace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ListNamespaces")
	if m.Err != nil {
		return nil, m.Err
	}
	result := make([]Namespace, len(m.namespaces))
	copy(result, m.namespaces)
	return result, nil
}

// Filter returns the confirmed records of a namespace.
func (m *MockLedger) Filter(ctx context.Context, namespace string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Filter")
	if m.Err != nil {
		return nil, m.Err
	}
	result := make([]Entry, len(m.entries[namespace]))
	copy(result, m.entries[namespace])
	return result, nil
}

// Pending returns every unconfirmed write across namespaces.
func (m *MockLedger) Pending(ctx context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Pending")
	if m.Err != nil {
		return nil, m.Err
	}
	result := make([]Entry, len(m.pending))
	copy(result, m.pending)
	return result, nil
}

// Get returns the latest record for namespace and key.
func (m *MockLedger) Get(ctx context.Context, namespace, key string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Get")
	if m.Err != nil {
		return nil, m.Err
	}
	records := m.entries[namespace]
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Key == key {
			e := records[i]
			return &e, nil
		}
	}
	return nil, ErrNotFound
}

// Put appends a pending write and returns its transaction id.
func (m *MockLedger) Put(ctx context.Context, namespace, key, value string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Put")
	if m.PutErr != nil {
		return "", m.PutErr
	}

	sum := sha256.Sum256([]byte(fmt.Sprintf("%s/%s/%d", namespace, key, len(m.puts))))
	txid := hex.EncodeToString(sum[:])

	m.pending = append(m.pending, Entry{
		Namespace: namespace,
		Key:       key,
		Value:     value,
		TxID:      txid,
		Pending:   true,
	})
	m.puts = append(m.puts, Put{Namespace: namespace, Key: key, Value: value, TxID: txid})
	return txid, nil
}

// NewAddress allocates a fresh deterministic address.
func (m *MockLedger) NewAddress(ctx context.Context, account string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("NewAddress")
	if m.Err != nil {
		return "", m.Err
	}
	m.addresses++
	return fmt.Sprintf("V%s%033d", account, m.addresses), nil
}

// ReceivedByAddress returns the amount set with SetReceived.
func (m *MockLedger) ReceivedByAddress(ctx context.Context, address string, confirmations int) (Amount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ReceivedByAddress")
	if m.Err != nil {
		return 0, m.Err
	}
	return m.received[address], nil
}

// Balance returns the amount set with SetBalance.
func (m *MockLedger) Balance(ctx context.Context, confirmations int) (Amount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Balance")
	if m.Err != nil {
		return 0, m.Err
	}
	return m.balance, nil
}
