// Package engine implements the custodial marketplace state machine:
// fixed-price listings, time-boxed ascending auctions, fee policy, and the
// escrow/settlement discipline that ties them together. The engine owns all
// item and auction records for their full lifetime and holds custodial
// ownership of escrowed assets; custody is relinquished exactly once per
// record, to exactly one recipient, at the terminal transition.
//
// External collaborators (the asset registry and the value ledger) are
// injected as capability interfaces so they can be substituted with test
// doubles. Every mutating operation acquires a process-wide guard for its
// entire duration, external calls included; a callback from a collaborator
// into the engine fails immediately with domain.ErrReentrantCall.
package engine

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// maxFeeBps caps the fee rate at 100%. Rates above this would make the
// seller-proceeds computation go negative.
const maxFeeBps uint64 = 10_000

// Config holds the engine's initial fee policy and custody identity.
type Config struct {
	// FeeBps is the initial platform fee in basis points (10000 = 100%).
	FeeBps uint64
	// Beneficiary receives the platform fee and may change the rate.
	Beneficiary common.Address
	// Custodian is the account assets are escrowed under in the registry.
	Custodian common.Address
}

// Option configures optional Engine behavior.
type Option func(*Engine)

// WithClock overrides the engine's time source. Used by tests to control
// auction end-time comparisons.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSink attaches the notification feed sink.
func WithSink(sink domain.EventSink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger.With(slog.String("component", "engine")) }
}

// Engine is the marketplace state-transition engine. All exported methods
// are safe for concurrent use: queries run under a read lock, mutating
// operations serialize through the reentrancy guard.
type Engine struct {
	registry  domain.AssetRegistry
	ledger    domain.ValueLedger
	sink      domain.EventSink
	logger    *slog.Logger
	now       func() time.Time
	custodian common.Address

	// gate is the process-wide reentrancy guard. Held for the full duration
	// of every mutating operation, including escrow and settlement calls.
	gate sync.Mutex

	// mu protects the maps and record fields against concurrent queries.
	// Mutations additionally require the gate, so validation reads inside a
	// guarded operation need no locking of their own.
	mu          sync.RWMutex
	items       map[uint64]*domain.Item
	auctions    map[uint64]*domain.Auction
	nextItem    uint64
	nextAuction uint64
	feeBps      uint64
	beneficiary common.Address
}

// New creates an Engine with the given fee policy and collaborators.
func New(cfg Config, registry domain.AssetRegistry, ledger domain.ValueLedger, opts ...Option) *Engine {
	e := &Engine{
		registry:    registry,
		ledger:      ledger,
		logger:      slog.Default().With(slog.String("component", "engine")),
		now:         time.Now,
		custodian:   cfg.Custodian,
		items:       make(map[uint64]*domain.Item),
		auctions:    make(map[uint64]*domain.Auction),
		nextItem:    1,
		nextAuction: 1,
		feeBps:      cfg.FeeBps,
		beneficiary: cfg.Beneficiary,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// enter acquires the reentrancy guard without blocking. A nested attempt
// (an external collaborator calling back mid-operation) and a concurrent
// mutating call both fail with ErrReentrantCall; callers that want queueing
// must serialize above the engine.
func (e *Engine) enter() error {
	if !e.gate.TryLock() {
		return domain.ErrReentrantCall
	}
	return nil
}

func (e *Engine) leave() {
	e.gate.Unlock()
}

// emit forwards an event to the notification sink, stamping the engine's
// clock. Called after the state mutation, still under the guard, so sinks
// observe events in transition order.
func (e *Engine) emit(ctx context.Context, ev domain.Event) {
	ev.At = e.now().UTC()
	if e.sink != nil {
		e.sink.Emit(ctx, ev)
	}
}

// Item returns a snapshot of the item with the given ID.
func (e *Engine) Item(id uint64) (domain.Item, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	item, ok := e.items[id]
	if !ok {
		return domain.Item{}, domain.ErrNotFound
	}
	return item.Clone(), nil
}

// Items returns snapshots of every item record, ordered by ID.
func (e *Engine) Items() []domain.Item {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]domain.Item, 0, len(e.items))
	for _, item := range e.items {
		out = append(out, item.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Auction returns a snapshot of the auction with the given ID.
func (e *Engine) Auction(id uint64) (domain.Auction, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.auctions[id]
	if !ok {
		return domain.Auction{}, domain.ErrNotFound
	}
	return a.Clone(), nil
}

// Auctions returns snapshots of every auction record, ordered by ID.
func (e *Engine) Auctions() []domain.Auction {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]domain.Auction, 0, len(e.auctions))
	for _, a := range e.auctions {
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FeePolicy returns the current fee rate and beneficiary.
func (e *Engine) FeePolicy() domain.FeePolicy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return domain.FeePolicy{RateBps: e.feeBps, Beneficiary: e.beneficiary}
}

// Restore rebuilds the in-memory state from persisted records. ID counters
// resume past the highest restored ID so identifiers are never reused.
// Intended for startup only, before the engine starts serving operations.
func (e *Engine) Restore(items []domain.Item, auctions []domain.Auction, policy domain.FeePolicy) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.leave()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.items = make(map[uint64]*domain.Item, len(items))
	e.nextItem = 1
	for _, item := range items {
		cp := item.Clone()
		e.items[cp.ID] = &cp
		if cp.ID >= e.nextItem {
			e.nextItem = cp.ID + 1
		}
	}

	e.auctions = make(map[uint64]*domain.Auction, len(auctions))
	e.nextAuction = 1
	for _, a := range auctions {
		cp := a.Clone()
		e.auctions[cp.ID] = &cp
		if cp.ID >= e.nextAuction {
			e.nextAuction = cp.ID + 1
		}
	}

	e.feeBps = policy.RateBps
	e.beneficiary = policy.Beneficiary

	e.logger.Info("engine: state restored",
		slog.Int("items", len(items)),
		slog.Int("auctions", len(auctions)),
		slog.Uint64("fee_bps", policy.RateBps),
	)
	return nil
}
