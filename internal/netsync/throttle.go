package netsync

import (
	"fmt"
	"sync"
	"time"
)

// ThrottleConfig bounds how fast one participant may send actions.
type ThrottleConfig struct {
	MaxActions     int           // actions allowed per Window; 0 disables throttling
	Window         time.Duration // sliding window for MaxActions
	RepeatCooldown time.Duration // identical actions inside this span are dropped
}

// ThrottleResult is the outcome of a throttle check.
type ThrottleResult struct {
	Allowed bool
	Repeat  bool          // the action duplicates one just sent
	Wait    time.Duration // how long until another action is accepted
}

// ActionThrottle tracks the recent actions of a single participant.
type ActionThrottle struct {
	mu     sync.Mutex
	config ThrottleConfig
	now    func() time.Time
	times  []time.Time
	recent map[string]time.Time // action key -> last accepted
}

// NewActionThrottle creates a throttle with the given config.
func NewActionThrottle(config ThrottleConfig) *ActionThrottle {
	return &ActionThrottle{
		config: config,
		now:    time.Now,
		times:  make([]time.Time, 0, max(config.MaxActions, 0)),
		recent: make(map[string]time.Time),
	}
}

// Check records a and reports whether it should be handled.
func (t *ActionThrottle) Check(a Action) ThrottleResult {
	if t.config.MaxActions <= 0 {
		return ThrottleResult{Allowed: true}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.cleanup(now)

	key := actionKey(a)
	if last, ok := t.recent[key]; ok {
		if elapsed := now.Sub(last); elapsed < t.config.RepeatCooldown {
			return ThrottleResult{Repeat: true, Wait: t.config.RepeatCooldown - elapsed}
		}
	}

	if len(t.times) >= t.config.MaxActions {
		return ThrottleResult{Wait: t.times[0].Add(t.config.Window).Sub(now)}
	}

	t.times = append(t.times, now)
	t.recent[key] = now
	return ThrottleResult{Allowed: true}
}

func (t *ActionThrottle) cleanup(now time.Time) {
	cutoff := now.Add(-t.config.Window)
	kept := t.times[:0]
	for _, at := range t.times {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	t.times = kept

	repeatCutoff := now.Add(-t.config.RepeatCooldown)
	for key, at := range t.recent {
		if !at.After(repeatCutoff) {
			delete(t.recent, key)
		}
	}
}

// Reset clears all tracking data.
func (t *ActionThrottle) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.times = t.times[:0]
	t.recent = make(map[string]time.Time)
}

func actionKey(a Action) string {
	return fmt.Sprintf("%s/%s/%d/%d/%d/%d", a.Kind, a.Player, a.Level, a.X, a.Y, a.Ref)
}
