package poll

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rshallam/drift-beacon/internal/events"
	"github.com/rshallam/drift-beacon/internal/hub"
)

var testCatalog = []hub.Activity{
	{ID: "a1", Name: "Deep Work", WorkspaceID: "w1", WorkspaceName: "Home"},
	{ID: "a2", Name: "Email", WorkspaceID: "w1", WorkspaceName: "Home"},
}

// stubAPI plays successive live-session responses and counts calls.
type stubAPI struct {
	activities []hub.Activity
	sessions   [][]hub.Session

	activitiesErr []error // consumed one per call; nil entries mean success

	startErr error
	stopErr  error

	activitiesCalls int
	sessionsCalls   int
	startCalls      int
	stopCalls       int
}

func (s *stubAPI) Activities(context.Context) ([]hub.Activity, error) {
	s.activitiesCalls++
	if len(s.activitiesErr) > 0 {
		err := s.activitiesErr[0]
		s.activitiesErr = s.activitiesErr[1:]
		if err != nil {
			return nil, err
		}
	}
	return s.activities, nil
}

func (s *stubAPI) LiveSessions(context.Context) ([]hub.Session, error) {
	s.sessionsCalls++
	if len(s.sessions) == 0 {
		return nil, nil
	}
	next := s.sessions[0]
	if len(s.sessions) > 1 {
		s.sessions = s.sessions[1:]
	}
	return next, nil
}

func (s *stubAPI) StartSession(context.Context, string, string) error {
	s.startCalls++
	return s.startErr
}

func (s *stubAPI) StopSession(context.Context, string, string) error {
	s.stopCalls++
	return s.stopErr
}

type stubSubscriber struct {
	snapshots []*hub.Snapshot
	batches   [][]events.Event
}

func (s *stubSubscriber) OnSnapshot(_ context.Context, snap *hub.Snapshot, evts []events.Event) {
	s.snapshots = append(s.snapshots, snap)
	s.batches = append(s.batches, evts)
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func liveSession(id, activityID string) hub.Session {
	return hub.Session{ID: id, ActivityID: activityID, StartTime: "t0", WorkspaceID: "w1", WorkspaceName: "Home"}
}

func TestTickRotatesSnapshotsAndEmitsEvents(t *testing.T) {
	api := &stubAPI{
		activities: testCatalog,
		sessions: [][]hub.Session{
			{},
			{liveSession("s1", "a1")},
		},
	}
	sub := &stubSubscriber{}

	c := New(api, WithLogger(quietLogger()))
	c.Subscribe(sub)

	// First tick: no previous snapshot, no events.
	snap, err := c.Tick(context.Background())
	require.NoError(t, err)
	require.Empty(t, snap.LiveSessions)
	require.Len(t, sub.batches, 1)
	require.Empty(t, sub.batches[0])

	// Second tick: s1 appeared, one started event.
	snap, err = c.Tick(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.LiveSessions, 1)
	require.Same(t, snap, c.Snapshot())

	require.Len(t, sub.batches, 2)
	require.Len(t, sub.batches[1], 1)
	started, ok := sub.batches[1][0].(events.SessionStarted)
	require.True(t, ok)
	require.Equal(t, "Deep Work", started.ActivityName)
}

func TestTickUnauthorizedPassesThrough(t *testing.T) {
	api := &stubAPI{activitiesErr: []error{hub.ErrUnauthorized}}
	c := New(api, WithLogger(quietLogger()))

	_, err := c.Tick(context.Background())
	require.ErrorIs(t, err, hub.ErrUnauthorized)

	var transient *TransientError
	require.False(t, errors.As(err, &transient), "unauthorized must not be masked as transient")
}

func TestTickClassifiesTransient(t *testing.T) {
	api := &stubAPI{activitiesErr: []error{&hub.APIError{Method: "GET", Path: hub.PathActivities, Status: 502}}}
	c := New(api, WithLogger(quietLogger()))

	_, err := c.Tick(context.Background())

	var transient *TransientError
	require.ErrorAs(t, err, &transient)
}

func TestTickClassifiesUnexpected(t *testing.T) {
	api := &stubAPI{activitiesErr: []error{errors.New("corrupt payload")}}
	c := New(api, WithLogger(quietLogger()))

	_, err := c.Tick(context.Background())

	var unexpected *UnexpectedError
	require.ErrorAs(t, err, &unexpected)
}

func TestOrphanedSessionDoesNotSuppressOthers(t *testing.T) {
	api := &stubAPI{
		activities: testCatalog,
		sessions: [][]hub.Session{
			{},
			{liveSession("s1", "ghost"), liveSession("s2", "a2")},
		},
	}
	sub := &stubSubscriber{}
	c := New(api, WithLogger(quietLogger()))
	c.Subscribe(sub)

	_, err := c.Tick(context.Background())
	require.NoError(t, err)
	_, err = c.Tick(context.Background())
	require.NoError(t, err)

	require.Len(t, sub.batches[1], 1)
	started, ok := sub.batches[1][0].(events.SessionStarted)
	require.True(t, ok)
	require.Equal(t, "a2", started.ActivityID)
}

func TestStartSessionForcesRefreshEvenOnCommandFailure(t *testing.T) {
	api := &stubAPI{
		activities: testCatalog,
		startErr:   errors.New("hub said no"),
	}
	c := New(api, WithLogger(quietLogger()))

	ok := c.StartSession(context.Background(), "a1", "w1")
	require.False(t, ok)

	// The forced tick ran and published current truth regardless.
	require.Equal(t, 1, api.startCalls)
	require.Equal(t, 1, api.activitiesCalls)
	require.Equal(t, 1, api.sessionsCalls)
	require.NotNil(t, c.Snapshot())
}

func TestStopSessionSuccess(t *testing.T) {
	api := &stubAPI{activities: testCatalog}
	c := New(api, WithLogger(quietLogger()))

	ok := c.StopSession(context.Background(), "a1", "w1")
	require.True(t, ok)
	require.Equal(t, 1, api.stopCalls)
	require.Equal(t, 1, api.sessionsCalls)
}

func TestRunInvokesReauthHookAndResumes(t *testing.T) {
	api := &stubAPI{
		activities:    testCatalog,
		activitiesErr: []error{hub.ErrUnauthorized, nil},
	}

	hookCalls := 0
	c := New(api,
		WithLogger(quietLogger()),
		WithInterval(time.Hour), // only the immediate retry can produce the second tick
		WithUnauthorizedHook(func(context.Context) error {
			hookCalls++
			return nil
		}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := c.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.Equal(t, 1, hookCalls)
	require.NotNil(t, c.Snapshot(), "the retry after reauth must have succeeded")
}

func TestRunStopsWhenReauthFails(t *testing.T) {
	api := &stubAPI{activitiesErr: []error{hub.ErrUnauthorized}}

	c := New(api,
		WithLogger(quietLogger()),
		WithInterval(time.Hour),
		WithUnauthorizedHook(func(context.Context) error {
			return errors.New("password changed")
		}),
	)

	err := c.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "reauthentication failed")
}

func TestRunStopsWhenFreshTokenRejected(t *testing.T) {
	api := &stubAPI{activitiesErr: []error{hub.ErrUnauthorized, hub.ErrUnauthorized}}

	c := New(api,
		WithLogger(quietLogger()),
		WithInterval(time.Hour),
		WithUnauthorizedHook(func(context.Context) error { return nil }),
	)

	err := c.Run(context.Background())
	require.ErrorIs(t, err, hub.ErrUnauthorized)
	require.Contains(t, err.Error(), "freshly issued")
}

func TestRunWithoutHookSurfacesUnauthorized(t *testing.T) {
	api := &stubAPI{activitiesErr: []error{hub.ErrUnauthorized}}
	c := New(api, WithLogger(quietLogger()), WithInterval(time.Hour))

	err := c.Run(context.Background())
	require.ErrorIs(t, err, hub.ErrUnauthorized)
}
