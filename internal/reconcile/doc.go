// Package reconcile advances escrowed posts.
//
// Each pending pool entry is checked once per pass:
//
//   - paid (received at its address, with the configured confirmations,
//     at least its cost): published to the ledger and marked sent, unless the
//     wallet balance is below the cost, which aborts the whole pass, or the
//     namespace is unknown, which leaves it pending;
//   - unpaid past its deadline: marked expired;
//   - otherwise left alone.
//
// Passes are idempotent because only rows with neither terminal timestamp
// are read, and at most one worker runs at a time per host.
package reconcile
