// ABOUTME: Accepts post submissions, escrowing them until payment confirms
// ABOUTME: Free posts are written to the ledger directly when the wallet is funded

package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kevachat/geminiboard/internal/codec"
	"github.com/kevachat/geminiboard/internal/ledger"
	"github.com/kevachat/geminiboard/internal/session"
)

var (
	// ErrRejected is a silent validation reject: nothing was written.
	ErrRejected = errors.New("submission rejected")

	// ErrInsufficientFunds is returned when the wallet cannot cover a free post.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Config controls pricing and payment checks.
type Config struct {
	// Cost per post; zero publishes immediately.
	Cost ledger.Amount
	// MinBalance the wallet must hold before free posts are accepted.
	MinBalance ledger.Amount
	// Account passed to address allocation.
	Account string
	// Confirmations required for received amounts and balances.
	Confirmations int
	// Timeout after which an unpaid entry expires.
	Timeout time.Duration
}

// Invalidator drops cached derived data for a namespace.
type Invalidator interface {
	Invalidate(namespace string)
}

// Submission is one user post attempt.
type Submission struct {
	Namespace string
	Mention   string // txid being replied to, empty for a new post
	Token     string
	Message   string // raw query, still percent-encoded
}

// Receipt describes an accepted submission: either a ledger TxID, or a pool
// entry awaiting Cost at Address before Deadline.
type Receipt struct {
	Namespace string
	TxID      string
	ID        int64
	Address   string
	Cost      ledger.Amount
	Deadline  time.Time
}

// Escrowed reports whether the receipt is a pool entry awaiting payment.
func (r Receipt) Escrowed() bool {
	return r.ID != 0
}

// Pool accepts submissions.
type Pool struct {
	store       Store
	ledger      ledger.Ledger
	wallet      ledger.Wallet
	guard       *session.Guard
	validator   *codec.Validator
	invalidator Invalidator
	cfg         Config
	logger      *slog.Logger
	now         func() time.Time
}

// Options wires a Pool.
type Options struct {
	Store       Store
	Ledger      ledger.Ledger
	Wallet      ledger.Wallet
	Guard       *session.Guard
	Validator   *codec.Validator
	Invalidator Invalidator
	Config      Config
	Logger      *slog.Logger
}

// New creates a Pool.
func New(opts Options) *Pool {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		store:       opts.Store,
		ledger:      opts.Ledger,
		wallet:      opts.Wallet,
		guard:       opts.Guard,
		validator:   opts.Validator,
		invalidator: opts.Invalidator,
		cfg:         opts.Config,
		logger:      logger.With("component", "pool"),
		now:         time.Now,
	}
}

// Submit validates s and either escrows it or publishes it. Validation
// failures return ErrRejected with no side effects.
func (p *Pool) Submit(ctx context.Context, s Submission) (Receipt, error) {
	if !p.guard.Valid(s.Token) {
		return Receipt{}, fmt.Errorf("%w: session", ErrRejected)
	}
	if !p.validator.ValidValue(s.Message) {
		return Receipt{}, fmt.Errorf("%w: value format", ErrRejected)
	}
	if s.Mention != "" {
		if _, ok := codec.Mention("@" + s.Mention); !ok {
			return Receipt{}, fmt.Errorf("%w: mention", ErrRejected)
		}
	}

	value, err := codec.PrepareMessage(s.Message, s.Mention)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrRejected, err)
	}

	// free posts spend from the wallet; check before burning the token
	if p.cfg.Cost == 0 {
		if err := p.checkBalance(ctx); err != nil {
			return Receipt{}, err
		}
	}

	if !p.guard.Consume(s.Token) {
		return Receipt{}, fmt.Errorf("%w: session", ErrRejected)
	}

	now := p.now()
	key := codec.EncodeKey(now, codec.AnonAuthor)

	var receipt Receipt
	if p.cfg.Cost > 0 {
		receipt, err = p.escrow(ctx, s.Namespace, key, value, now)
	} else {
		receipt, err = p.publish(ctx, s.Namespace, key, value)
	}
	if err != nil {
		return Receipt{}, err
	}

	if p.invalidator != nil {
		p.invalidator.Invalidate(s.Namespace)
	}
	return receipt, nil
}

func (p *Pool) checkBalance(ctx context.Context) error {
	balance, err := p.wallet.Balance(ctx, p.cfg.Confirmations)
	if err != nil {
		return fmt.Errorf("reading wallet balance: %w", err)
	}
	if balance < p.cfg.MinBalance || balance < p.cfg.Cost {
		p.logger.Warn("wallet balance too low for free posts",
			"balance", balance.String(), "min_balance", p.cfg.MinBalance.String())
		return ErrInsufficientFunds
	}
	return nil
}

func (p *Pool) escrow(ctx context.Context, namespace, key, value string, now time.Time) (Receipt, error) {
	address, err := p.wallet.NewAddress(ctx, p.cfg.Account)
	if err != nil {
		return Receipt{}, fmt.Errorf("allocating address: %w", err)
	}

	e := &Entry{
		Created:   now,
		Cost:      p.cfg.Cost,
		Address:   address,
		Namespace: namespace,
		Key:       key,
		Value:     value,
	}
	if err := p.store.Create(ctx, e); err != nil {
		return Receipt{}, fmt.Errorf("creating pool entry: %w", err)
	}

	p.logger.Info("post escrowed", "pool_id", e.ID, "namespace", namespace, "address", address, "cost", e.Cost.String())
	return Receipt{
		Namespace: namespace,
		ID:        e.ID,
		Address:   address,
		Cost:      e.Cost,
		Deadline:  e.Deadline(p.cfg.Timeout),
	}, nil
}

func (p *Pool) publish(ctx context.Context, namespace, key, value string) (Receipt, error) {
	txid, err := p.ledger.Put(ctx, namespace, key, value)
	if err != nil {
		return Receipt{}, fmt.Errorf("writing post: %w", err)
	}
	p.logger.Info("post published", "namespace", namespace, "txid", txid)
	return Receipt{Namespace: namespace, TxID: txid}, nil
}

// Receipt rebuilds the receipt of pool entry id in namespace, for showing
// payment instructions again.
func (p *Pool) Receipt(ctx context.Context, namespace string, id int64) (Receipt, error) {
	e, err := p.store.Get(ctx, id)
	if err != nil {
		return Receipt{}, err
	}
	if e.Namespace != namespace {
		return Receipt{}, ErrNotFound
	}
	return Receipt{
		Namespace: e.Namespace,
		ID:        e.ID,
		Address:   e.Address,
		Cost:      e.Cost,
		Deadline:  e.Deadline(p.cfg.Timeout),
	}, nil
}
