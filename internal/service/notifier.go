package service

import (
	"time"

	"github.com/google/uuid"
)

// Notifier receives tab status transitions for fan-out to connected
// clients. Delivery is best-effort: implementations must not block and
// their failures never fail the settlement operation that emitted the
// event.
type Notifier interface {
	TabStatusChanged(tabID uuid.UUID, oldStatus, newStatus string, at time.Time)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) TabStatusChanged(uuid.UUID, string, string, time.Time) {}

// notifyChange emits an event only when the status actually moved.
// Called after commit so listeners never observe a rolled-back state.
func notifyChange(n Notifier, tabID uuid.UUID, oldStatus, newStatus string) {
	if n == nil || oldStatus == newStatus {
		return
	}
	n.TabStatusChanged(tabID, oldStatus, newStatus, time.Now())
}
