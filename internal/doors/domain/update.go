package doors

// Wire event names shared by the push server and its clients.
const (
	EventConnect    = "connect"
	EventDisconnect = "disconnect"
	EventDoorUpdate = "door_update"
)

// UnknownState is reported when a sensor payload carries no door state.
const UnknownState = "Unknown"

// DoorUpdate is a single door-state observation as pushed to pages.
type DoorUpdate struct {
	DoorState string `json:"door_state"`
	Timestamp string `json:"timestamp"`
}

// Envelope frames a named event on the websocket transport.
type Envelope struct {
	Event string      `json:"event"`
	Data  *DoorUpdate `json:"data,omitempty"`
}

// Publisher accepts normalised door updates for fan-out.
type Publisher interface {
	Publish(update DoorUpdate)
}
