// ABOUTME: Reconciliation worker moving pool entries to sent or expired
// ABOUTME: One pass per invocation under a non-blocking single-instance lock

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kevachat/geminiboard/internal/ledger"
	"github.com/kevachat/geminiboard/internal/lock"
	"github.com/kevachat/geminiboard/internal/pool"
)

var (
	// ErrAlreadyRunning is returned when another worker holds the lock.
	// It is a normal outcome, not a failure.
	ErrAlreadyRunning = errors.New("reconciliation already running")

	// ErrInsufficientFunds aborts a pass: the wallet cannot cover a
	// confirmed entry. Entries published earlier in the pass stay sent.
	ErrInsufficientFunds = errors.New("insufficient wallet funds")

	// ErrNoRooms aborts a pass when the node lists no namespaces at all,
	// which happens while the wallet is locked or still syncing.
	ErrNoRooms = errors.New("room list empty")
)

// Config controls a reconciliation pass.
type Config struct {
	// Confirmations required for received amounts and the wallet balance.
	Confirmations int
	// Timeout after which an unpaid entry expires.
	Timeout time.Duration
	// LockPath is the lock file guarding the pass.
	LockPath string
}

// Result counts what a pass did with each pending entry.
type Result struct {
	Sent      int
	Expired   int
	Skipped   int // paid, but the namespace is not in the room list
	Failed    int // paid, but a collaborator call failed; retried next pass
	Untouched int
}

// Worker drives pool entries through their state machine.
type Worker struct {
	store  pool.Store
	ledger ledger.Ledger
	wallet ledger.Wallet
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Worker.
func New(store pool.Store, l ledger.Ledger, w ledger.Wallet, cfg Config, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		store:  store,
		ledger: l,
		wallet: w,
		cfg:    cfg,
		logger: logger.With("component", "reconcile"),
		now:    time.Now,
	}
}

// Run acquires the lock and performs one pass. A concurrent run returns
// ErrAlreadyRunning immediately without touching anything.
func (w *Worker) Run(ctx context.Context) (Result, error) {
	l, err := lock.Acquire(w.cfg.LockPath)
	if errors.Is(err, lock.ErrLocked) {
		w.logger.Warn("process locked by another worker", "lock", w.cfg.LockPath)
		return Result{}, ErrAlreadyRunning
	}
	if err != nil {
		return Result{}, fmt.Errorf("acquiring lock: %w", err)
	}
	defer func() {
		if err := l.Release(); err != nil {
			w.logger.Error("releasing lock", "error", err)
		}
	}()

	return w.Pass(ctx)
}

// Pass evaluates every pending entry once, in order. Callers must hold the
// lock; Run does that.
func (w *Worker) Pass(ctx context.Context) (Result, error) {
	var result Result

	rooms, err := w.rooms(ctx)
	if err != nil {
		return result, err
	}

	entries, err := w.store.ListPending(ctx)
	if err != nil {
		return result, fmt.Errorf("listing pending entries: %w", err)
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := w.evaluate(ctx, e, rooms, &result); err != nil {
			return result, err
		}
	}

	w.logger.Info("reconciliation pass complete",
		"sent", result.Sent,
		"expired", result.Expired,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"untouched", result.Untouched,
	)
	return result, nil
}

func (w *Worker) rooms(ctx context.Context) (map[string]bool, error) {
	namespaces, err := w.ledger.ListNamespaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing rooms: %w", err)
	}
	if len(namespaces) == 0 {
		return nil, ErrNoRooms
	}

	rooms := make(map[string]bool, len(namespaces))
	for _, ns := range namespaces {
		rooms[ns.ID] = true
	}
	return rooms, nil
}

// evaluate applies one step of the state machine to e. Only a fatal
// condition is returned as an error.
func (w *Worker) evaluate(ctx context.Context, e *pool.Entry, rooms map[string]bool, result *Result) error {
	log := w.logger.With("pool_id", e.ID, "namespace", e.Namespace)

	received, err := w.wallet.ReceivedByAddress(ctx, e.Address, w.cfg.Confirmations)
	if err != nil {
		log.Error("reading received amount", "address", e.Address, "error", err)
		result.Failed++
		return nil
	}

	if received >= e.Cost {
		return w.publish(ctx, e, rooms, result, log)
	}

	now := w.now()
	if !now.Before(e.Deadline(w.cfg.Timeout)) {
		if err := w.store.MarkExpired(ctx, e.ID, now); err != nil {
			log.Error("marking entry expired", "error", err)
			result.Failed++
			return nil
		}
		log.Info("pool entry expired", "address", e.Address, "received", received.String(), "cost", e.Cost.String())
		result.Expired++
		return nil
	}

	result.Untouched++
	return nil
}

func (w *Worker) publish(ctx context.Context, e *pool.Entry, rooms map[string]bool, result *Result, log *slog.Logger) error {
	balance, err := w.wallet.Balance(ctx, w.cfg.Confirmations)
	if err != nil {
		return fmt.Errorf("reading wallet balance: %w", err)
	}
	if balance < e.Cost {
		log.Error("insufficient wallet funds", "balance", balance.String(), "cost", e.Cost.String())
		return ErrInsufficientFunds
	}

	if !rooms[e.Namespace] {
		log.Warn("namespace not found in room list")
		result.Skipped++
		return nil
	}

	txid, err := w.ledger.Put(ctx, e.Namespace, e.Key, e.Value)
	if err != nil {
		log.Error("sending entry to ledger", "error", err)
		result.Failed++
		return nil
	}

	if err := w.store.MarkSent(ctx, e.ID, w.now()); err != nil {
		// the post is on the ledger; the next pass will send it again
		log.Error("marking entry sent", "txid", txid, "error", err)
		result.Failed++
		return nil
	}

	log.Info("pool entry sent to ledger", "txid", txid)
	result.Sent++
	return nil
}
