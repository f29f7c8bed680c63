package page

import "fmt"

// Element ids the door page exposes.
const (
	IDStatus           = "status"
	IDTimestamp        = "timestamp"
	IDConnectionStatus = "connection-status"
	IDUpdateLog        = "update-log"
	IDPauseButton      = "btn-pause"
	IDResumeButton     = "btn-resume"
	IDStopButton       = "btn-stop"
	IDClearButton      = "btn-clear"
)

const (
	connectedText     = "Connected"
	disconnectedText  = "Disconnected"
	connectedColor    = "green"
	disconnectedColor = "red"
)

// PageOption adjusts the door page before it is returned.
type PageOption func(*Document)

// Without drops the named elements from the page.
func Without(ids ...string) PageOption {
	return func(d *Document) {
		for _, id := range ids {
			d.Remove(id)
		}
	}
}

// NewDoorPage builds the standard door status page.
func NewDoorPage(opts ...PageOption) *Document {
	doc := NewDocument("Door Status")
	doc.Add(&Element{ID: IDStatus, Tag: "span", Text: "-"})
	doc.Add(&Element{ID: IDTimestamp, Tag: "span", Text: "-"})
	doc.Add(&Element{ID: IDConnectionStatus, Tag: "span", Text: disconnectedText, Color: disconnectedColor})
	doc.Add(&Element{ID: IDUpdateLog, Tag: "table", Header: []string{"Time", "Door State"}})
	doc.Add(&Element{ID: IDPauseButton, Tag: "button", Text: "Pause"})
	doc.Add(&Element{ID: IDResumeButton, Tag: "button", Text: "Resume"})
	doc.Add(&Element{ID: IDStopButton, Tag: "button", Text: "Stop"})
	doc.Add(&Element{ID: IDClearButton, Tag: "button", Text: "Clear"})
	for _, opt := range opts {
		if opt != nil {
			opt(doc)
		}
	}
	return doc
}

// DoorView renders reflector output into a door page. Lookups for the log
// table and the connection indicator tolerate missing elements; the status
// and timestamp displays are required.
type DoorView struct {
	doc *Document
}

// NewDoorView wraps doc.
func NewDoorView(doc *Document) *DoorView {
	return &DoorView{doc: doc}
}

// SetDoorStatus writes the status then the timestamp display.
func (v *DoorView) SetDoorStatus(state, timestamp string) error {
	status := v.doc.GetElementByID(IDStatus)
	stamp := v.doc.GetElementByID(IDTimestamp)
	if status == nil {
		return fmt.Errorf("%w: %s", ErrElementNotFound, IDStatus)
	}
	status.Text = state
	if stamp == nil {
		return fmt.Errorf("%w: %s", ErrElementNotFound, IDTimestamp)
	}
	stamp.Text = timestamp
	return nil
}

// AppendLogRow appends a (timestamp, state) row to the update log.
func (v *DoorView) AppendLogRow(timestamp, state string) {
	log := v.doc.GetElementByID(IDUpdateLog)
	if log == nil {
		return
	}
	log.Rows = append(log.Rows, []string{timestamp, state})
}

// SetConnectionIndicator shows the connection state.
func (v *DoorView) SetConnectionIndicator(connected bool) {
	el := v.doc.GetElementByID(IDConnectionStatus)
	if el == nil {
		return
	}
	if connected {
		el.Text, el.Color = connectedText, connectedColor
		return
	}
	el.Text, el.Color = disconnectedText, disconnectedColor
}

// ClearLog removes all body rows of the update log.
func (v *DoorView) ClearLog() {
	log := v.doc.GetElementByID(IDUpdateLog)
	if log == nil {
		return
	}
	log.Rows = nil
}
