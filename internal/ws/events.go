package ws

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
)

const EventTabStatusChanged = "tab.status_changed"

type tabStatusPayload struct {
	TabID     uuid.UUID `json:"tab_id"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	At        time.Time `json:"at"`
}

// TabNotifier broadcasts tab lifecycle changes over the hub. It plugs
// into the settlement services as their notifier.
type TabNotifier struct {
	hub *Hub
}

func NewTabNotifier(hub *Hub) *TabNotifier {
	return &TabNotifier{hub: hub}
}

func (n *TabNotifier) TabStatusChanged(tabID uuid.UUID, oldStatus, newStatus string, at time.Time) {
	payload, err := json.Marshal(tabStatusPayload{
		TabID:     tabID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		At:        at,
	})
	if err != nil {
		log.Printf("ERROR: marshal tab status event: %v", err)
		return
	}
	n.hub.Broadcast(Event{Type: EventTabStatusChanged, Payload: payload})
}
