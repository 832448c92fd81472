// Package kevacoin is a minimal JSON-RPC client for the kevacoin daemon.
//
// The daemon is both the board's ledger (keva_* namespace calls) and its
// wallet (address allocation, received amounts, balance). Amounts are decoded
// from JSON numbers straight into ledger.Amount base units.
package kevacoin
