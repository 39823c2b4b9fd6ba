// Package events defines the domain events emitted when the hub's live
// session state changes between polls, and the Kafka forwarder that
// publishes them for external consumers.
package events

import "github.com/rshallam/drift-beacon/internal/hub"

// Type discriminates the emitted event kinds.
type Type string

const (
	TypeSessionStarted Type = "session_started"
	TypeSessionStopped Type = "session_stopped"
	TypeSessionChanged Type = "session_changed"
)

// Event is one discrete session transition observed by a poll cycle.
type Event interface {
	EventType() Type
	// PartitionKey groups related events for ordered consumption; all
	// events of one workspace share a key.
	PartitionKey() string
}

// ActivityRef carries the descriptor of the activity an event refers to,
// resolved from the activity catalog of the same poll cycle.
type ActivityRef struct {
	ActivityID    string   `json:"activity_id"`
	ActivityName  string   `json:"activity_name"`
	Color         hub.RGB  `json:"color"`
	Icon          string   `json:"icon"`
	CategoryID    string   `json:"category_id,omitempty"`
	CategoryName  string   `json:"category_name,omitempty"`
	CategoryIcon  string   `json:"category_icon,omitempty"`
	CategoryColor *hub.RGB `json:"category_color,omitempty"`
}

// NewActivityRef builds an ActivityRef from a catalog entry.
func NewActivityRef(a hub.Activity) ActivityRef {
	return ActivityRef{
		ActivityID:    a.ID,
		ActivityName:  a.Name,
		Color:         a.Color,
		Icon:          a.Icon,
		CategoryID:    a.CategoryID,
		CategoryName:  a.CategoryName,
		CategoryIcon:  a.CategoryIcon,
		CategoryColor: a.CategoryColor,
	}
}

// SessionStarted reports a session id that appeared since the last poll.
type SessionStarted struct {
	ActivityRef
	WorkspaceID      string `json:"workspace_id"`
	WorkspaceName    string `json:"workspace_name"`
	SessionStartTime string `json:"session_start_time"`
}

func (SessionStarted) EventType() Type        { return TypeSessionStarted }
func (e SessionStarted) PartitionKey() string { return e.WorkspaceID }

// SessionStopped reports a session id that disappeared since the last poll.
type SessionStopped struct {
	ActivityID    string `json:"activity_id"`
	ActivityName  string `json:"activity_name"`
	WorkspaceID   string `json:"workspace_id"`
	WorkspaceName string `json:"workspace_name"`
}

func (SessionStopped) EventType() Type        { return TypeSessionStopped }
func (e SessionStopped) PartitionKey() string { return e.WorkspaceID }

// SessionChanged reports a live session whose activity changed while its
// id stayed the same. The previous activity name is best-effort: a change
// is newsworthy even when the historical side no longer resolves.
type SessionChanged struct {
	ActivityRef
	WorkspaceID          string `json:"workspace_id"`
	WorkspaceName        string `json:"workspace_name"`
	SessionStartTime     string `json:"session_start_time"`
	PreviousActivityID   string `json:"previous_activity_id"`
	PreviousActivityName string `json:"previous_activity_name,omitempty"`
}

func (SessionChanged) EventType() Type        { return TypeSessionChanged }
func (e SessionChanged) PartitionKey() string { return e.WorkspaceID }
