package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"w9-search/internal/domain/provider"
	"w9-search/internal/utils/platformerrors"
)

// Counter tracks accumulated usage for one provider window.
type Counter struct {
	Provider    provider.Kind
	Window      Window
	Used        int64
	Limit       int64
	WindowStart time.Time
}

// Remaining returns how many requests are left in the window. Unmetered
// windows report -1.
func (c Counter) Remaining() int64 {
	if c.Limit <= 0 {
		return -1
	}
	left := c.Limit - c.Used
	if left < 0 {
		return 0
	}
	return left
}

// Store persists rate counters across restarts.
type Store interface {
	GetCounters(ctx context.Context, kind provider.Kind) ([]Counter, error)
	PutCounters(ctx context.Context, counters []Counter) error
	AllCounters(ctx context.Context) ([]Counter, error)
}

// Gate admits or denies provider calls against per window usage ceilings.
// Admission is all or nothing: either every window of the provider is
// debited, or none is.
type Gate struct {
	store Store
	mu    sync.Mutex
	now   func() time.Time
}

// NewGate builds a gate backed by the given counter store.
func NewGate(store Store) *Gate {
	return &Gate{store: store, now: time.Now}
}

// Admit checks every configured window of the provider and debits cost from
// all of them when none is exhausted. Expired windows reset before the check,
// and resets persist even when admission is denied.
func (g *Gate) Admit(ctx context.Context, kind provider.Kind, cost int64) error {
	if cost <= 0 {
		cost = 1
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	counters, err := g.loadCounters(ctx, kind)
	if err != nil {
		return err
	}
	if len(counters) == 0 {
		return nil
	}

	now := g.now()
	changed := false
	for i := range counters {
		if counters[i].Window.Expired(counters[i].WindowStart, now) {
			counters[i].Used = 0
			counters[i].WindowStart = counters[i].Window.StartFor(now)
			changed = true
		}
	}

	var exhausted *Counter
	for i := range counters {
		c := counters[i]
		if c.Limit > 0 && c.Used+cost > c.Limit {
			exhausted = &counters[i]
			break
		}
	}

	if exhausted != nil {
		if changed {
			if err := g.store.PutCounters(ctx, counters); err != nil {
				return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "persist counter reset")
			}
		}
		return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeRateExhausted,
			fmt.Sprintf("%s %s limit reached (%d/%d)", kind, exhausted.Window, exhausted.Used, exhausted.Limit),
			nil, "", map[string]any{
				"provider": kind.String(),
				"window":   string(exhausted.Window),
				"limit":    exhausted.Limit,
			})
	}

	for i := range counters {
		counters[i].Used += cost
	}
	if err := g.store.PutCounters(ctx, counters); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "persist counter debit")
	}
	return nil
}

// ApplyObserved reconciles a window against usage the upstream reported.
// The observed absolute value wins over the local count, even when it moves
// usage backwards.
func (g *Gate) ApplyObserved(ctx context.Context, kind provider.Kind, window Window, remaining, limit int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	counters, err := g.loadCounters(ctx, kind)
	if err != nil {
		return err
	}

	now := g.now()
	found := false
	for i := range counters {
		if counters[i].Window != window {
			continue
		}
		found = true
		if limit > 0 {
			counters[i].Limit = limit
		}
		used := counters[i].Limit - remaining
		if used < 0 {
			used = 0
		}
		counters[i].Used = used
		if counters[i].WindowStart.IsZero() {
			counters[i].WindowStart = window.StartFor(now)
		}
	}
	if !found {
		used := limit - remaining
		if used < 0 {
			used = 0
		}
		counters = append(counters, Counter{
			Provider:    kind,
			Window:      window,
			Used:        used,
			Limit:       limit,
			WindowStart: window.StartFor(now),
		})
	}

	if err := g.store.PutCounters(ctx, counters); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "persist observed counters")
	}
	return nil
}

// Snapshot returns every tracked counter, expired windows rolled forward.
func (g *Gate) Snapshot(ctx context.Context) ([]Counter, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	counters, err := g.store.AllCounters(ctx)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "load counters")
	}

	now := g.now()
	for i := range counters {
		if counters[i].Window.Expired(counters[i].WindowStart, now) {
			counters[i].Used = 0
			counters[i].WindowStart = counters[i].Window.StartFor(now)
		}
	}
	return counters, nil
}

// loadCounters merges persisted counters with the default limit table so a
// provider always has one counter per configured window. Caller holds the
// gate mutex.
func (g *Gate) loadCounters(ctx context.Context, kind provider.Kind) ([]Counter, error) {
	stored, err := g.store.GetCounters(ctx, kind)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "load counters")
	}

	byWindow := make(map[Window]Counter, len(stored))
	for _, c := range stored {
		byWindow[c.Window] = c
	}

	now := g.now()
	counters := make([]Counter, 0, len(stored))
	for _, limit := range LimitsFor(kind) {
		if c, ok := byWindow[limit.Window]; ok {
			counters = append(counters, c)
			delete(byWindow, limit.Window)
			continue
		}
		counters = append(counters, Counter{
			Provider:    kind,
			Window:      limit.Window,
			Limit:       limit.Max,
			WindowStart: limit.Window.StartFor(now),
		})
	}
	// Windows introduced by observed limits rather than defaults.
	for _, c := range byWindow {
		counters = append(counters, c)
	}
	return counters, nil
}
