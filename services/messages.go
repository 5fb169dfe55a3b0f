package services

// MessageType tags the inbound websocket message kinds. Dispatch in the
// live service switches exhaustively over these values; an unknown tag is
// an InvalidOperation error, never silently ignored.
type MessageType string

const (
	MsgNameSubmission MessageType = "nameSubmission"
	MsgDateSelection  MessageType = "dateSelection"
	MsgAction         MessageType = "action"
)

// ClientMessage is the envelope every inbound text frame unmarshals into.
// Only the fields for the tagged kind are meaningful.
type ClientMessage struct {
	Type MessageType `json:"type"`

	// nameSubmission
	Name string `json:"name,omitempty"`

	// dateSelection (YYYY-MM-DD)
	Date string `json:"date,omitempty"`

	// action
	ID        uint      `json:"id,omitempty"`
	Action    Operation `json:"action,omitempty"`
	Timestamp int64     `json:"timestamp,omitempty"`
	UserName  string    `json:"userName,omitempty"`
}

// RegionDataMessage replies to an identity or date selection with the full
// snapshot list for one date
type RegionDataMessage struct {
	Type       string     `json:"type"`
	RegionData []Snapshot `json:"regionData"`
	Status     int        `json:"status"`
}

// NewRegionDataMessage builds a regionData reply
func NewRegionDataMessage(snapshots []Snapshot) RegionDataMessage {
	return RegionDataMessage{Type: "regionData", RegionData: snapshots, Status: 200}
}

// CounterUpdateMessage is broadcast to every connection after a successful
// mutation. Clients re-render their whole view from RegionData; the single
// counter fields are for the change banner.
type CounterUpdateMessage struct {
	Type        string     `json:"type"`
	Area        string     `json:"area"`
	CounterTime string     `json:"counter_time"`
	Counter     int        `json:"counter"`
	ChangedBy   string     `json:"changedBy"`
	Timestamp   string     `json:"timestamp"`
	RegionData  []Snapshot `json:"regionData"`
	Status      int        `json:"status"`
}

// ErrorMessage is unicast to the requesting connection only
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// NewErrorMessage builds an error reply with an HTTP-like status
func NewErrorMessage(status int, message string) ErrorMessage {
	return ErrorMessage{Type: "error", Message: message, Status: status}
}
