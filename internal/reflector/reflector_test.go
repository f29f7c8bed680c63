package reflector

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	doors "doorwatch/internal/doors/domain"
	"doorwatch/internal/page"
)

type fakeConn struct {
	opens  int
	closes int
}

func (c *fakeConn) Open()  { c.opens++ }
func (c *fakeConn) Close() { c.closes++ }

func newTestReflector(t *testing.T, opts ...page.PageOption) (*Reflector, *page.Document, *fakeConn) {
	t.Helper()
	doc := page.NewDoorPage(opts...)
	conn := &fakeConn{}
	r, err := New(page.NewDoorView(doc), conn)
	if err != nil {
		t.Fatalf("new reflector: %v", err)
	}
	return r, doc, conn
}

func TestNewRejectsNilDependencies(t *testing.T) {
	if _, err := New(nil, &fakeConn{}); err == nil {
		t.Fatalf("expected error for nil view")
	}
	if _, err := New(page.NewDoorView(page.NewDoorPage()), nil); err == nil {
		t.Fatalf("expected error for nil connection")
	}
}

func TestDefaults(t *testing.T) {
	r, _, conn := newTestReflector(t)
	if r.Paused() {
		t.Fatalf("expected not paused by default")
	}
	if !r.ConnectionOpen() {
		t.Fatalf("expected connection open by default")
	}
	r.Start()
	if conn.opens != 1 {
		t.Fatalf("expected Start to open once, got %d", conn.opens)
	}
}

func TestUpdatesInDeliveryOrder(t *testing.T) {
	r, doc, _ := newTestReflector(t)
	updates := []doors.DoorUpdate{
		{DoorState: "open", Timestamp: "12:00:01"},
		{DoorState: "closed", Timestamp: "12:00:05"},
	}
	for _, u := range updates {
		if err := r.OnUpdate(u); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	snap := doc.Snapshot()
	if snap.Status != "closed" || snap.Timestamp != "12:00:05" {
		t.Fatalf("expected closed @ 12:00:05, got %s @ %s", snap.Status, snap.Timestamp)
	}
	want := [][]string{{"12:00:01", "open"}, {"12:00:05", "closed"}}
	if diff := cmp.Diff(want, snap.Rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestPausedUpdatesAreDroppedNotReplayed(t *testing.T) {
	r, doc, _ := newTestReflector(t)
	_ = r.OnUpdate(doors.DoorUpdate{DoorState: "open", Timestamp: "1"})

	r.Pause()
	r.Pause()
	if !r.Paused() {
		t.Fatalf("expected paused")
	}
	for i := 0; i < 5; i++ {
		_ = r.OnUpdate(doors.DoorUpdate{DoorState: "closed", Timestamp: "2"})
	}
	if rows := doc.LogRows(); len(rows) != 1 {
		t.Fatalf("expected 1 row while paused, got %d", len(rows))
	}
	if got := doc.Snapshot().Status; got != "open" {
		t.Fatalf("expected status unchanged while paused, got %q", got)
	}

	r.Resume()
	if r.Paused() {
		t.Fatalf("expected resumed")
	}
	if rows := doc.LogRows(); len(rows) != 1 {
		t.Fatalf("expected no replay after resume, got %d rows", len(rows))
	}
	_ = r.OnUpdate(doors.DoorUpdate{DoorState: "closed", Timestamp: "3"})
	if rows := doc.LogRows(); len(rows) != 2 {
		t.Fatalf("expected new update after resume, got %d rows", len(rows))
	}
}

func TestStopAndResumeConnection(t *testing.T) {
	r, _, conn := newTestReflector(t)
	r.Pause()

	r.Stop()
	r.Stop()
	if r.ConnectionOpen() {
		t.Fatalf("expected connection closed after stop")
	}
	if conn.closes != 2 {
		t.Fatalf("expected close forwarded each time, got %d", conn.closes)
	}
	if !r.Paused() {
		t.Fatalf("expected stop to leave pause flag alone")
	}

	r.Resume()
	if !r.ConnectionOpen() || r.Paused() {
		t.Fatalf("expected open and unpaused after resume")
	}
	if conn.opens != 1 {
		t.Fatalf("expected one reopen, got %d", conn.opens)
	}

	r.Resume()
	if conn.opens != 1 {
		t.Fatalf("expected resume on an open connection not to reopen, got %d", conn.opens)
	}
}

func TestClear(t *testing.T) {
	r, doc, conn := newTestReflector(t)
	for i := 0; i < 3; i++ {
		_ = r.OnUpdate(doors.DoorUpdate{DoorState: "open", Timestamp: "t"})
	}
	r.Pause()
	r.Clear()
	if rows := doc.LogRows(); len(rows) != 0 {
		t.Fatalf("expected empty log, got %d rows", len(rows))
	}
	if got := doc.Snapshot().Status; got != "open" {
		t.Fatalf("expected status untouched by clear, got %q", got)
	}
	if !r.Paused() || !r.ConnectionOpen() || conn.closes != 0 {
		t.Fatalf("expected clear to leave flags and connection alone")
	}
	r.Clear()
	if rows := doc.LogRows(); len(rows) != 0 {
		t.Fatalf("expected empty log after second clear, got %d rows", len(rows))
	}
}

func TestConnectionIndicator(t *testing.T) {
	r, doc, _ := newTestReflector(t)
	r.OnConnect()
	r.OnConnect()
	if got := doc.Snapshot(); got.Connection != "Connected" || got.ConnectionColor != "green" {
		t.Fatalf("expected green Connected, got %+v", got)
	}
	r.OnDisconnect()
	if got := doc.Snapshot(); got.Connection != "Disconnected" || got.ConnectionColor != "red" {
		t.Fatalf("expected red Disconnected, got %+v", got)
	}
}

func TestMissingElements(t *testing.T) {
	r, doc, _ := newTestReflector(t, page.Without(page.IDUpdateLog, page.IDConnectionStatus))
	r.OnConnect()
	r.Clear()
	if err := r.OnUpdate(doors.DoorUpdate{DoorState: "open", Timestamp: "t"}); err != nil {
		t.Fatalf("expected guarded elements to be skipped, got %v", err)
	}
	if got := doc.Snapshot().Status; got != "open" {
		t.Fatalf("expected status open, got %q", got)
	}

	r, doc, _ = newTestReflector(t, page.Without(page.IDStatus))
	err := r.OnUpdate(doors.DoorUpdate{DoorState: "open", Timestamp: "t"})
	if !errors.Is(err, page.ErrElementNotFound) {
		t.Fatalf("expected ErrElementNotFound, got %v", err)
	}
	if rows := doc.LogRows(); len(rows) != 0 {
		t.Fatalf("expected no row when status is missing, got %d", len(rows))
	}
}

func TestBindButtons(t *testing.T) {
	r, doc, conn := newTestReflector(t)
	if err := r.Bind(doc); err != nil {
		t.Fatalf("bind: %v", err)
	}
	_ = r.OnUpdate(doors.DoorUpdate{DoorState: "open", Timestamp: "t"})

	mustClick(t, doc, ButtonPause)
	if !r.Paused() {
		t.Fatalf("expected pause button to pause")
	}
	mustClick(t, doc, ButtonStop)
	if r.ConnectionOpen() || conn.closes != 1 {
		t.Fatalf("expected stop button to close")
	}
	mustClick(t, doc, ButtonClear)
	if rows := doc.LogRows(); len(rows) != 0 {
		t.Fatalf("expected clear button to empty log")
	}
	mustClick(t, doc, ButtonResume)
	if r.Paused() || !r.ConnectionOpen() || conn.opens != 1 {
		t.Fatalf("expected resume button to reopen and unpause")
	}
}

func TestBindRequiresButtons(t *testing.T) {
	r, doc, _ := newTestReflector(t, page.Without(page.IDStopButton))
	if err := r.Bind(doc); !errors.Is(err, page.ErrElementNotFound) {
		t.Fatalf("expected ErrElementNotFound, got %v", err)
	}
}

func mustClick(t *testing.T, doc *page.Document, id string) {
	t.Helper()
	if err := doc.Click(id); err != nil {
		t.Fatalf("click %s: %v", id, err)
	}
}
