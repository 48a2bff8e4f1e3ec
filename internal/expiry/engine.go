// Package expiry removes ephemeral messages once their countdown elapses.
// It polls on a fixed cadence rather than arming a timer per message.
package expiry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultInterval is the reference polling cadence.
const DefaultInterval = time.Second

// Target is the store surface the engine sweeps against.
type Target interface {
	ExpireMessage(conversationID, messageID uuid.UUID, now time.Time) bool
}

type entry struct {
	conversationID uuid.UUID
	messageID      uuid.UUID
	expiresAt      time.Time
}

type Engine struct {
	target   Target
	interval time.Duration
	log      *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	entries []entry
}

func New(target Target, interval time.Duration, log *zap.Logger) *Engine {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		target:   target,
		interval: interval,
		log:      log,
		now:      time.Now,
	}
}

// SetNowFunc overrides the clock.
func (e *Engine) SetNowFunc(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// Track registers an ephemeral message for expiry. Implements the store's
// Tracker hook.
func (e *Engine) Track(conversationID, messageID uuid.UUID, expiresAt time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = append(e.entries, entry{
		conversationID: conversationID,
		messageID:      messageID,
		expiresAt:      expiresAt,
	})
}

// Tracked returns how many messages are currently awaiting expiry.
func (e *Engine) Tracked() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entries)
}

// Run polls until ctx is cancelled. Call in a goroutine.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.mu.Lock()
			now := e.now()
			e.mu.Unlock()
			e.Sweep(now)
		}
	}
}

// Sweep expires every tracked message due at now and drops it from
// tracking. Expiry is applied outside the engine's own lock so a store
// mutation can never wait on the scan. Returns the number expired.
func (e *Engine) Sweep(now time.Time) int {
	e.mu.Lock()
	var due []entry
	remaining := e.entries[:0]
	for _, ent := range e.entries {
		if !now.Before(ent.expiresAt) {
			due = append(due, ent)
		} else {
			remaining = append(remaining, ent)
		}
	}
	e.entries = remaining
	e.mu.Unlock()

	expired := 0
	for _, ent := range due {
		if e.target.ExpireMessage(ent.conversationID, ent.messageID, now) {
			expired++
		}
	}
	if expired > 0 {
		e.log.Debug("swept expired messages", zap.Int("count", expired))
	}
	return expired
}
