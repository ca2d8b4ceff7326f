// Package events is the in-process notification bridge. Publishers announce
// appointment mutations and every subscriber registered at that moment is
// called synchronously. There is no persistence and no replay: a subscriber
// that registers after an event was published never sees it.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Kind names an event.
type Kind string

const (
	AppointmentCreated     Kind = "appointmentCreated"
	AppointmentUpdated     Kind = "appointmentUpdated"
	AppointmentRescheduled Kind = "appointmentRescheduled"
)

// Kinds lists every event kind the bridge carries.
func Kinds() []Kind {
	return []Kind{AppointmentCreated, AppointmentUpdated, AppointmentRescheduled}
}

// Payload carries the appointment id plus whichever fields changed.
type Payload struct {
	AppointmentID    string `json:"appointmentId"`
	DoctorID         string `json:"doctorId,omitempty"`
	PatientID        string `json:"patientId,omitempty"`
	Status           string `json:"status,omitempty"`
	Date             string `json:"date,omitempty"`
	TimeSlot         string `json:"timeSlot,omitempty"`
	PreviousDate     string `json:"previousDate,omitempty"`
	PreviousTimeSlot string `json:"previousTimeSlot,omitempty"`
	Reason           string `json:"reason,omitempty"`
	RescheduledBy    string `json:"rescheduledBy,omitempty"`
}

// Event is a single emission on the bridge.
type Event struct {
	Kind       Kind      `json:"kind"`
	Payload    Payload   `json:"payload"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Handler receives events. It runs on the publisher's goroutine.
type Handler func(ctx context.Context, e Event)

// Publisher is what mutating services depend on.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

type subscription struct {
	id   uint64
	kind Kind // empty means every kind
	fn   Handler
}

// Bus is a typed observer registry. Construct one per process (or per test)
// and inject it; there is no package-level instance.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
	logger zerolog.Logger
}

func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{logger: logger}
}

// Subscribe registers fn for one kind. The returned func removes it and is
// safe to call more than once.
func (b *Bus) Subscribe(kind Kind, fn Handler) func() {
	return b.add(kind, fn)
}

// SubscribeAll registers fn for every kind.
func (b *Bus) SubscribeAll(fn Handler) func() {
	return b.add("", fn)
}

func (b *Bus) add(kind Kind, fn Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, kind: kind, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers e to the current subscribers in registration order. A
// panicking handler is logged and skipped; the remaining handlers still run.
func (b *Bus) Publish(ctx context.Context, e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	b.mu.RLock()
	targets := make([]subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.kind == "" || s.kind == e.Kind {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range targets {
		b.deliver(ctx, s, e)
	}
}

func (b *Bus) deliver(ctx context.Context, s subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Str("event", string(e.Kind)).
				Str("appointment_id", e.Payload.AppointmentID).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("event handler panicked")
		}
	}()
	s.fn(ctx, e)
}

// SubscriberCount reports how many handlers would receive an event of kind.
func (b *Bus) SubscriberCount(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, s := range b.subs {
		if s.kind == "" || s.kind == kind {
			n++
		}
	}
	return n
}

// Discard is a Publisher that drops everything.
type Discard struct{}

func (Discard) Publish(context.Context, Event) {}
