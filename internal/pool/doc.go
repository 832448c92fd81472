// Package pool holds paid posts in escrow.
//
// A submission to a priced board allocates a fresh receiving address and
// stores the prepared post as a pending Entry. The reconciliation worker
// later publishes it once the address has received the cost, or expires it
// after the configured timeout. Entries are never deleted; each one moves
// exactly once from pending to sent or to expired.
//
// When the board is free, Submit writes straight to the ledger and no entry
// is created.
package pool
