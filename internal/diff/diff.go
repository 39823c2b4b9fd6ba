// Package diff derives session transition events from two consecutive
// live-session snapshots. It is pure: no I/O, no clocks, deterministic
// output for identical input.
package diff

import (
	"github.com/rshallam/drift-beacon/internal/events"
	"github.com/rshallam/drift-beacon/internal/hub"
)

// Changes compares the previous and current live sessions against the
// current activity catalog and returns the resulting events plus the ids
// of sessions whose event had to be skipped because the activity did not
// resolve (orphaned sessions; the caller decides how to report them).
//
// Three disjoint classes, at most one event per session id per class:
//
//   - started: id only in current; requires the activity to resolve.
//   - stopped: id only in previous; requires the old session's activity to
//     resolve against the catalog of the tick it disappeared in.
//   - changed: id in both with a different activity_id; requires the new
//     activity to resolve, while the previous name is best-effort only.
//
// All classes are computed from the same (old, current) pair.
func Changes(old, current []hub.Session, activities []hub.Activity) ([]events.Event, []string) {
	byID := make(map[string]hub.Activity, len(activities))
	for _, a := range activities {
		byID[a.ID] = a
	}
	oldByID := make(map[string]hub.Session, len(old))
	for _, s := range old {
		oldByID[s.ID] = s
	}
	currentByID := make(map[string]hub.Session, len(current))
	for _, s := range current {
		currentByID[s.ID] = s
	}

	var out []events.Event
	var orphans []string

	for _, session := range current {
		if _, existed := oldByID[session.ID]; existed {
			continue
		}
		activity, ok := byID[session.ActivityID]
		if !ok {
			orphans = append(orphans, session.ID)
			continue
		}
		out = append(out, events.SessionStarted{
			ActivityRef:      events.NewActivityRef(activity),
			WorkspaceID:      session.WorkspaceID,
			WorkspaceName:    session.WorkspaceName,
			SessionStartTime: session.StartTime,
		})
	}

	for _, session := range old {
		if _, stillLive := currentByID[session.ID]; stillLive {
			continue
		}
		activity, ok := byID[session.ActivityID]
		if !ok {
			orphans = append(orphans, session.ID)
			continue
		}
		out = append(out, events.SessionStopped{
			ActivityID:    session.ActivityID,
			ActivityName:  activity.Name,
			WorkspaceID:   session.WorkspaceID,
			WorkspaceName: session.WorkspaceName,
		})
	}

	for _, session := range current {
		before, existed := oldByID[session.ID]
		if !existed || before.ActivityID == session.ActivityID {
			continue
		}
		activity, ok := byID[session.ActivityID]
		if !ok {
			orphans = append(orphans, session.ID)
			continue
		}
		changed := events.SessionChanged{
			ActivityRef:        events.NewActivityRef(activity),
			WorkspaceID:        session.WorkspaceID,
			WorkspaceName:      session.WorkspaceName,
			SessionStartTime:   session.StartTime,
			PreviousActivityID: before.ActivityID,
		}
		if previous, ok := byID[before.ActivityID]; ok {
			changed.PreviousActivityName = previous.Name
		}
		out = append(out, changed)
	}

	return out, orphans
}
