package reflector

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	doors "doorwatch/internal/doors/domain"
	"doorwatch/internal/observability/metrics"
	"doorwatch/internal/page"
)

func reflectorUpdates(t *testing.T, outcome string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "doorwatch_reflector_updates_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "outcome" && label.GetValue() == outcome {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestOnUpdateRecordsOutcomes(t *testing.T) {
	metrics.Init()
	applied := reflectorUpdates(t, metrics.ReflectorUpdateApplied)
	dropped := reflectorUpdates(t, metrics.ReflectorUpdateDropped)
	failed := reflectorUpdates(t, metrics.ReflectorUpdateFailed)

	r, _, _ := newTestReflector(t)
	if err := r.OnUpdate(doors.DoorUpdate{DoorState: "open", Timestamp: "t1"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	r.Pause()
	_ = r.OnUpdate(doors.DoorUpdate{DoorState: "closed", Timestamp: "t2"})

	broken, _, _ := newTestReflector(t, page.Without(page.IDStatus))
	if err := broken.OnUpdate(doors.DoorUpdate{DoorState: "open", Timestamp: "t3"}); err == nil {
		t.Fatalf("expected error without status element")
	}

	if got := reflectorUpdates(t, metrics.ReflectorUpdateApplied) - applied; got != 1 {
		t.Fatalf("expected 1 applied update, got %v", got)
	}
	if got := reflectorUpdates(t, metrics.ReflectorUpdateDropped) - dropped; got != 1 {
		t.Fatalf("expected 1 dropped update, got %v", got)
	}
	if got := reflectorUpdates(t, metrics.ReflectorUpdateFailed) - failed; got != 1 {
		t.Fatalf("expected 1 failed update, got %v", got)
	}
}
