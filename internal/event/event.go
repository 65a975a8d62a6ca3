// Package event carries domain notifications to an external gateway.
// Delivery is fire-and-forget: publishers never return errors to callers.
package event

import (
	"context"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type Type string

const (
	BidPosted        Type = "bid.posted"
	ResponseReceived Type = "bid.response_received"
	OrderCreated     Type = "order.created"
)

func (t Type) String() string {
	return string(t)
}

type Event struct {
	Type       Type
	OccurredAt time.Time
	// Recipient is the user to notify; uuid.Nil broadcasts to all manufacturers.
	Recipient uuid.UUID
	BidID     uuid.UUID
	SubjectID uuid.UUID
	Price     decimal.Decimal
}

type Publisher interface {
	Publish(ctx context.Context, e Event)
}

func New(t Type, recipient, bidID, subjectID uuid.UUID, price decimal.Decimal) Event {
	return Event{
		Type:       t,
		OccurredAt: time.Now().UTC(),
		Recipient:  recipient,
		BidID:      bidID,
		SubjectID:  subjectID,
		Price:      price,
	}
}

// LogPublisher writes events to the service log.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{logger: log.With().Str("component", "events").Logger()}
}

func (p *LogPublisher) Publish(ctx context.Context, e Event) {
	p.logger.Info().
		Stringer("event_type", e.Type).
		Stringer("recipient_id", e.Recipient).
		Stringer("bid_id", e.BidID).
		Stringer("subject_id", e.SubjectID).
		Str("price", e.Price.StringFixed(2)).
		Time("occurred_at", e.OccurredAt).
		Msg("Domain event published")
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(ctx context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns the recorded events of type t.
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
