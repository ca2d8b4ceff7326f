package websocket

import (
	"context"
	"encoding/json"

	"github.com/medibook/medibook/internal/platform/events"
)

func DoctorTopic(id string) string  { return "doctor/" + id }
func PatientTopic(id string) string { return "patient/" + id }

// Relay forwards notification bridge events to the hub so open doctor and
// patient views can refresh without polling.
type Relay struct {
	hub *Hub
}

func NewRelay(hub *Hub) *Relay {
	return &Relay{hub: hub}
}

// Attach subscribes the relay to every event kind on bus and returns the
// unsubscribe func.
func (r *Relay) Attach(bus *events.Bus) func() {
	return bus.SubscribeAll(r.Handle)
}

func (r *Relay) Handle(_ context.Context, e events.Event) {
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return
	}
	for _, topic := range topicsFor(e.Payload) {
		r.hub.Broadcast(Message{
			Type:          string(e.Kind),
			Topic:         topic,
			AppointmentID: e.Payload.AppointmentID,
			Timestamp:     e.OccurredAt,
			Data:          data,
		})
	}
}

func topicsFor(p events.Payload) []string {
	var topics []string
	if p.DoctorID != "" {
		topics = append(topics, DoctorTopic(p.DoctorID))
	}
	if p.PatientID != "" {
		topics = append(topics, PatientTopic(p.PatientID))
	}
	return topics
}
