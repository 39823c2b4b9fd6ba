package poll

import (
	"context"
	"log"

	"github.com/rshallam/drift-beacon/internal/events"
	"github.com/rshallam/drift-beacon/internal/hub"
)

// LoggingSubscriber writes one line per emitted event. Useful as a default
// observer when no external consumer is wired up.
type LoggingSubscriber struct {
	logger *log.Logger
}

// NewLoggingSubscriber builds a LoggingSubscriber.
func NewLoggingSubscriber(logger *log.Logger) *LoggingSubscriber {
	return &LoggingSubscriber{logger: logger}
}

// OnSnapshot implements Subscriber.
func (s *LoggingSubscriber) OnSnapshot(_ context.Context, snap *hub.Snapshot, evts []events.Event) {
	for _, evt := range evts {
		switch e := evt.(type) {
		case events.SessionStarted:
			s.logger.Printf("session started: %s (workspace %s)", e.ActivityName, e.WorkspaceName)
		case events.SessionStopped:
			s.logger.Printf("session stopped: %s (workspace %s)", e.ActivityName, e.WorkspaceName)
		case events.SessionChanged:
			s.logger.Printf("session changed: %s -> %s (workspace %s)", e.PreviousActivityName, e.ActivityName, e.WorkspaceName)
		}
	}
}
