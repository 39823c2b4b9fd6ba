// Package hub speaks the Drift Beacon device API: wire types, endpoint
// paths, and the bearer-authenticated client used by the polling layer.
package hub

// API endpoint paths exposed by the hub.
const (
	PathStatus              = "/api/device/status"
	PathSignIn              = "/api/auth/sign-in/email"
	PathCreateServerSession = "/api/auth/create-server-session"
	PathActivities          = "/api/activities"
	PathLiveSessions        = "/api/live-session"
	PathStartSession        = "/api/start-session"
	PathStopSession         = "/api/stop-session"
)

// Supported URL schemes. The hub serves exactly one of them at a time.
const (
	SchemeHTTPS = "https"
	SchemeHTTP  = "http"
)

// RGB is a color encoded on the wire as a three-element JSON array.
type RGB [3]uint8

// Activity is one entry of the hub's activity catalog. The catalog is owned
// by the hub; the client treats it as read-only and refreshes it wholesale
// on every poll.
type Activity struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	CategoryID    string `json:"category_id,omitempty"`
	CategoryName  string `json:"category_name,omitempty"`
	CategoryIcon  string `json:"category_icon,omitempty"`
	CategoryColor *RGB   `json:"category_color,omitempty"`
	SortOrder     int    `json:"sort_order"`
	Color         RGB    `json:"color"`
	Icon          string `json:"icon"`
	WorkspaceID   string `json:"workspace_id"`
	WorkspaceName string `json:"workspace_name"`
}

// Session is a tracking session. A session without an end time is live.
// ActivityID is the one field that may change between polls while the
// session id stays the same.
type Session struct {
	ID            string `json:"id"`
	ActivityID    string `json:"activity_id"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time,omitempty"`
	WorkspaceID   string `json:"workspace_id"`
	WorkspaceName string `json:"workspace_name"`
}

// Live reports whether the session is still running.
func (s Session) Live() bool { return s.EndTime == "" }

// DeviceIdentity is the hub identity reported by the status endpoint.
type DeviceIdentity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Snapshot is one poll cycle's paired fetch of the activity catalog and the
// live sessions. Snapshots are immutable once produced.
type Snapshot struct {
	Activities   []Activity
	LiveSessions []Session
}

// ActivityByID resolves an activity from the snapshot's catalog.
func (s *Snapshot) ActivityByID(id string) (Activity, bool) {
	if s == nil || id == "" {
		return Activity{}, false
	}
	for _, a := range s.Activities {
		if a.ID == id {
			return a, true
		}
	}
	return Activity{}, false
}
