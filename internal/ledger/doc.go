// Package ledger defines the contracts the board consumes from the kevacoin
// daemon.
//
// Ledger covers the namespaced key-value store: listing namespaces, reading a
// namespace's confirmed records, reading pending writes, and writing a record.
// Wallet covers the payment side: receiving addresses, amounts received at an
// address, and the spendable balance.
//
// Amounts are integer base units (eight decimals). MockLedger implements both
// contracts in memory for tests.
package ledger
