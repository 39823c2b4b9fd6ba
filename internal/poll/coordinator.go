// Package poll owns the recurring fetch cycle against an authenticated hub:
// it retains the latest snapshot, diffs consecutive snapshots into session
// events, and notifies subscribers after each successful tick.
package poll

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/rshallam/drift-beacon/internal/diff"
	"github.com/rshallam/drift-beacon/internal/events"
	"github.com/rshallam/drift-beacon/internal/hub"
	"github.com/rshallam/drift-beacon/internal/observability"
)

// DefaultInterval is the fixed poll cadence.
const DefaultInterval = 3 * time.Second

// API is the slice of the hub client the coordinator needs.
type API interface {
	Activities(ctx context.Context) ([]hub.Activity, error)
	LiveSessions(ctx context.Context) ([]hub.Session, error)
	StartSession(ctx context.Context, activityID, workspaceID string) error
	StopSession(ctx context.Context, activityID, workspaceID string) error
}

// Subscriber observes successful ticks. Subscribers run synchronously after
// the snapshot is published; slow subscribers delay the next tick, never
// reorder it.
type Subscriber interface {
	OnSnapshot(ctx context.Context, snap *hub.Snapshot, evts []events.Event)
}

// TransientError is a network or HTTP failure during polling. It is not
// retried immediately; the fixed interval governs the next attempt.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string { return "poll: transient failure: " + e.err.Error() }
func (e *TransientError) Unwrap() error { return e.err }

// UnexpectedError is anything uncategorized. Reported, not retried specially.
type UnexpectedError struct {
	err error
}

func (e *UnexpectedError) Error() string { return "poll: unexpected failure: " + e.err.Error() }
func (e *UnexpectedError) Unwrap() error { return e.err }

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithInterval overrides the fixed poll interval.
func WithInterval(interval time.Duration) Option {
	return func(c *Coordinator) {
		if interval > 0 {
			c.interval = interval
		}
	}
}

// WithLogger overrides the coordinator's logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithUnauthorizedHook installs the reauthentication hook invoked by Run
// when the hub rejects the bearer token. The hook must swap the credential
// on the API client before returning nil; returning an error stops the loop.
func WithUnauthorizedHook(hook func(context.Context) error) Option {
	return func(c *Coordinator) { c.onUnauthorized = hook }
}

// Coordinator runs the poll cycle. Ticks are single-flight: a mutex
// serializes scheduled and forced ticks so a forced refresh waits for any
// in-flight cycle instead of overlapping it.
type Coordinator struct {
	api            API
	interval       time.Duration
	logger         *log.Logger
	onUnauthorized func(context.Context) error

	tickMu sync.Mutex // serializes tick execution

	stateMu     sync.RWMutex
	current     *hub.Snapshot
	subscribers []Subscriber
}

// New builds a Coordinator for the given hub API.
func New(api API, opts ...Option) *Coordinator {
	c := &Coordinator{
		api:      api,
		interval: DefaultInterval,
		logger:   log.New(log.Writer(), "[poll] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers a synchronous observer of successful ticks.
func (c *Coordinator) Subscribe(s Subscriber) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.subscribers = append(c.subscribers, s)
}

// Snapshot returns the most recent snapshot, or nil before the first
// successful tick.
func (c *Coordinator) Snapshot() *hub.Snapshot {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.current
}

// Tick runs one poll cycle: fetch the activity catalog and live sessions,
// rotate the snapshot, diff against the previous one, and notify
// subscribers. hub.ErrUnauthorized passes through untouched so callers can
// drive reauthentication; every other failure is typed as transient or
// unexpected.
func (c *Coordinator) Tick(ctx context.Context) (*hub.Snapshot, error) {
	c.tickMu.Lock()
	defer c.tickMu.Unlock()
	return c.tick(ctx)
}

// Refresh is an on-demand tick. It obeys the same single-flight rule as the
// scheduled cycle.
func (c *Coordinator) Refresh(ctx context.Context) (*hub.Snapshot, error) {
	return c.Tick(ctx)
}

func (c *Coordinator) tick(ctx context.Context) (*hub.Snapshot, error) {
	start := time.Now()

	activities, err := c.api.Activities(ctx)
	if err != nil {
		return nil, c.classify(err)
	}
	sessions, err := c.api.LiveSessions(ctx)
	if err != nil {
		return nil, c.classify(err)
	}

	snap := &hub.Snapshot{Activities: activities, LiveSessions: sessions}

	c.stateMu.Lock()
	previous := c.current
	c.current = snap
	subscribers := make([]Subscriber, len(c.subscribers))
	copy(subscribers, c.subscribers)
	c.stateMu.Unlock()

	var oldSessions []hub.Session
	if previous != nil {
		oldSessions = previous.LiveSessions
	}
	evts, orphans := diff.Changes(oldSessions, sessions, activities)
	for _, id := range orphans {
		c.logger.Printf("skipping event for session %s: activity not in catalog", id)
	}
	orphanCounter.Add(float64(len(orphans)))

	for _, s := range subscribers {
		s.OnSnapshot(ctx, snap, evts)
	}

	now := time.Now()
	tickCounter.WithLabelValues(outcomeSuccess).Inc()
	tickDuration.Observe(now.Sub(start).Seconds())
	liveSessionsGauge.Set(float64(len(sessions)))
	observability.RecordPollCompleted(now)
	for _, evt := range evts {
		eventsCounter.WithLabelValues(string(evt.EventType())).Inc()
	}
	if len(evts) > 0 {
		observability.RecordEventEmitted(now)
	}

	return snap, nil
}

// classify maps a fetch error into the poll error taxonomy. Unauthorized is
// forwarded as-is, never masked as a generic failure.
func (c *Coordinator) classify(err error) error {
	switch {
	case errors.Is(err, hub.ErrUnauthorized):
		tickCounter.WithLabelValues(outcomeUnauthorized).Inc()
		return err
	case isTransient(err):
		tickCounter.WithLabelValues(outcomeTransient).Inc()
		return &TransientError{err: err}
	default:
		tickCounter.WithLabelValues(outcomeUnexpected).Inc()
		return &UnexpectedError{err: err}
	}
}

func isTransient(err error) bool {
	var apiErr *hub.APIError
	var urlErr *url.Error
	return errors.As(err, &apiErr) ||
		errors.As(err, &urlErr) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

// Run executes the fixed-interval loop until ctx is cancelled. Transient
// and unexpected failures are logged and left for the next scheduled tick;
// an unauthorized response triggers the reauthentication hook, and the loop
// resumes immediately after a successful reauth.
func (c *Coordinator) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	reauthed := false
	for {
		_, err := c.Tick(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		switch {
		case err == nil:
			reauthed = false
		case errors.Is(err, hub.ErrUnauthorized):
			if c.onUnauthorized == nil {
				return err
			}
			if reauthed {
				// The tick right after a successful reauth was rejected
				// again; retrying would spin without making progress.
				return fmt.Errorf("poll: hub rejected a freshly issued token: %w", err)
			}
			c.logger.Printf("bearer token rejected, reauthenticating")
			if reauthErr := c.onUnauthorized(ctx); reauthErr != nil {
				return fmt.Errorf("poll: reauthentication failed: %w", reauthErr)
			}
			reauthed = true
			continue
		default:
			reauthed = false
			c.logger.Printf("tick failed: %v", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// StartSession issues the start command and forces a refresh so observers
// see updated state without waiting for the next scheduled tick. The
// command degrades to a boolean; the forced tick runs regardless and
// reports current truth even when the command did not take effect.
func (c *Coordinator) StartSession(ctx context.Context, activityID, workspaceID string) bool {
	return c.command(ctx, "start", activityID, func() error {
		return c.api.StartSession(ctx, activityID, workspaceID)
	})
}

// StopSession issues the stop command and forces a refresh. Same
// fire-and-confirm contract as StartSession.
func (c *Coordinator) StopSession(ctx context.Context, activityID, workspaceID string) bool {
	return c.command(ctx, "stop", activityID, func() error {
		return c.api.StopSession(ctx, activityID, workspaceID)
	})
}

func (c *Coordinator) command(ctx context.Context, verb, activityID string, run func() error) bool {
	err := run()
	if err != nil {
		c.logger.Printf("%s session for activity %s failed: %v", verb, activityID, err)
	}
	if _, refreshErr := c.Refresh(ctx); refreshErr != nil {
		c.logger.Printf("forced refresh after %s command failed: %v", verb, refreshErr)
	}
	return err == nil
}
