// Package cost tracks model spend against a rolling daily budget and a
// per-call ceiling, and gates calls before they are made.
package cost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jonathan/workflow-generator/internal/llm"
	"github.com/jonathan/workflow-generator/internal/types"
)

var (
	// ErrPerCallLimit means a single call's projected cost exceeds the per-call ceiling.
	ErrPerCallLimit = errors.New("projected call cost exceeds per-call limit")
	// ErrDailyLimit means the call would push the rolling window over the daily ceiling.
	ErrDailyLimit = errors.New("projected call cost exceeds remaining daily budget")
)

// Limits are the budget ceilings in USD. Zero disables a ceiling.
type Limits struct {
	DailyLimitUSD   float64
	PerCallLimitUSD float64
	Window          time.Duration
}

// BudgetState is a point-in-time view of the budget.
type BudgetState struct {
	DailySpendUSD   float64   `json:"daily_spend_usd"`
	DailyLimitUSD   float64   `json:"daily_limit_usd"`
	PerCallLimitUSD float64   `json:"per_call_limit_usd"`
	ReservedUSD     float64   `json:"reserved_usd"`
	WindowStart     time.Time `json:"window_start"`
	Attempts        int       `json:"attempts"`
}

// Exhausted reports whether spend has reached the daily ceiling.
func (s BudgetState) Exhausted() bool {
	return s.DailyLimitUSD > 0 && s.DailySpendUSD >= s.DailyLimitUSD
}

// Quote describes a call about to be made.
type Quote struct {
	Provider        string
	Tier            llm.ModelTier
	PromptTokens    int
	MaxOutputTokens int
	Rate            llm.Rate
}

// Projected is the worst-case cost of the call: the full prompt plus the
// maximum completion.
func (q Quote) Projected() float64 {
	return q.Rate.Cost(q.PromptTokens, q.MaxOutputTokens)
}

// Reservation holds authorized budget until the call is recorded or released.
type Reservation struct {
	id     uint64
	Amount float64
	Rate   llm.Rate
}

// Ledger persists attempts so the window survives restarts.
type Ledger interface {
	Append(ctx context.Context, attempt types.GenerationAttempt) error
	Load(ctx context.Context, since time.Time) ([]types.GenerationAttempt, error)
}

// Monitor owns the process-wide budget state. All access goes through its
// mutex, which is never held across I/O.
type Monitor struct {
	mu       sync.Mutex
	limits   Limits
	attempts []types.GenerationAttempt
	reserved map[uint64]float64
	nextID   uint64

	ledger Ledger
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLedger persists every recorded attempt.
func WithLedger(l Ledger) Option {
	return func(m *Monitor) { m.ledger = l }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// NewMonitor creates a Monitor. A zero window means 24 hours.
func NewMonitor(limits Limits, opts ...Option) *Monitor {
	if limits.Window <= 0 {
		limits.Window = 24 * time.Hour
	}
	m := &Monitor{
		limits:   limits,
		reserved: make(map[uint64]float64),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Authorize checks a call's projected cost against both ceilings and, if it
// fits, reserves that amount until Record or Release.
func (m *Monitor) Authorize(q Quote) (*Reservation, error) {
	projected := q.Projected()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.pruneLocked()
	if m.limits.PerCallLimitUSD > 0 && projected > m.limits.PerCallLimitUSD {
		return nil, fmt.Errorf("%w: $%.6f > $%.6f (%s/%s)", ErrPerCallLimit, projected, m.limits.PerCallLimitUSD, q.Provider, q.Tier)
	}
	if m.limits.DailyLimitUSD > 0 {
		committed := m.spendLocked() + m.reservedLocked()
		if committed+projected > m.limits.DailyLimitUSD {
			return nil, fmt.Errorf("%w: $%.6f committed + $%.6f projected > $%.6f", ErrDailyLimit, committed, projected, m.limits.DailyLimitUSD)
		}
	}

	m.nextID++
	m.reserved[m.nextID] = projected
	return &Reservation{id: m.nextID, Amount: projected, Rate: q.Rate}, nil
}

// Record prices a completed call, releases its reservation, and appends the
// attempt to the window. The priced attempt is returned.
func (m *Monitor) Record(res *Reservation, attempt types.GenerationAttempt) types.GenerationAttempt {
	if res != nil {
		attempt.CostUSD = res.Rate.Cost(attempt.PromptTokens, attempt.CompletionTokens)
	}
	if attempt.At.IsZero() {
		attempt.At = m.now()
	}

	m.mu.Lock()
	if res != nil {
		delete(m.reserved, res.id)
	}
	m.attempts = append(m.attempts, attempt)
	m.mu.Unlock()

	if m.ledger != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := m.ledger.Append(ctx, attempt); err != nil {
			m.logger.Warn("failed to persist generation attempt", "provider", attempt.Provider, "error", err)
		}
	}
	return attempt
}

// Release frees a reservation for a call that was never made.
func (m *Monitor) Release(res *Reservation) {
	if res == nil {
		return
	}
	m.mu.Lock()
	delete(m.reserved, res.id)
	m.mu.Unlock()
}

// AdvancedAllowed reports whether spend is still below the daily ceiling.
func (m *Monitor) AdvancedAllowed() bool {
	return !m.Snapshot().Exhausted()
}

// Snapshot returns the current budget state.
func (m *Monitor) Snapshot() BudgetState {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pruneLocked()
	return BudgetState{
		DailySpendUSD:   m.spendLocked(),
		DailyLimitUSD:   m.limits.DailyLimitUSD,
		PerCallLimitUSD: m.limits.PerCallLimitUSD,
		ReservedUSD:     m.reservedLocked(),
		WindowStart:     m.now().Add(-m.limits.Window),
		Attempts:        len(m.attempts),
	}
}

// Attempts returns a copy of the attempts inside the window.
func (m *Monitor) Attempts() []types.GenerationAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pruneLocked()
	return append([]types.GenerationAttempt(nil), m.attempts...)
}

// Restore loads the window from the ledger. Call once before serving.
func (m *Monitor) Restore(ctx context.Context) error {
	if m.ledger == nil {
		return nil
	}
	since := m.now().Add(-m.limits.Window)
	loaded, err := m.ledger.Load(ctx, since)
	if err != nil {
		return fmt.Errorf("failed to restore spend ledger: %w", err)
	}

	m.mu.Lock()
	m.attempts = append(loaded, m.attempts...)
	sort.SliceStable(m.attempts, func(i, j int) bool {
		return m.attempts[i].At.Before(m.attempts[j].At)
	})
	m.pruneLocked()
	n := len(m.attempts)
	m.mu.Unlock()

	m.logger.Info("restored spend window", "attempts", n)
	return nil
}

// pruneLocked drops attempts that have left the rolling window. Attempts are
// appended in lock order, not time order, so every entry is checked.
func (m *Monitor) pruneLocked() {
	cutoff := m.now().Add(-m.limits.Window)
	kept := m.attempts[:0]
	for _, a := range m.attempts {
		if a.At.After(cutoff) {
			kept = append(kept, a)
		}
	}
	clear(m.attempts[len(kept):])
	m.attempts = kept
}

func (m *Monitor) spendLocked() float64 {
	var total float64
	for _, a := range m.attempts {
		total += a.CostUSD
	}
	return total
}

func (m *Monitor) reservedLocked() float64 {
	var total float64
	for _, r := range m.reserved {
		total += r
	}
	return total
}
