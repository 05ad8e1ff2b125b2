package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ms-travel-sales/internal/config"
	"ms-travel-sales/internal/logger"

	"github.com/shopspring/decimal"
)

// Envelope wraps every domain event on the wire.
type Envelope struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, err
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("envelope without type")
	}
	return env, nil
}

type PoolGenerated struct {
	DestinationID string    `json:"destination_id"`
	ScheduleID    string    `json:"schedule_id"`
	DepartsAt     time.Time `json:"departs_at"`
	Created       int       `json:"created"`
	VIP           int       `json:"vip"`
}

type CartChanged struct {
	UserID        string `json:"user_id"`
	CartID        string `json:"cart_id,omitempty"`
	Kind          string `json:"kind"`
	DestinationID string `json:"destination_id,omitempty"`
	ScheduleID    string `json:"schedule_id,omitempty"`
	Quantity      int    `json:"quantity"`
}

type SaleCompleted struct {
	SaleID        string          `json:"sale_id"`
	UserID        string          `json:"user_id"`
	DestinationID string          `json:"destination_id,omitempty"`
	Tickets       int             `json:"tickets"`
	Packages      int             `json:"packages"`
	Total         decimal.Decimal `json:"total"`
}

type PaymentChanged struct {
	PaymentID string          `json:"payment_id"`
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	State     string          `json:"state"`
	SaleID    string          `json:"sale_id,omitempty"`
}

// Emitter publishes domain events after the owning transaction commits.
// Failures are logged and never returned to the caller.
type Emitter struct {
	pub    Publisher
	topics config.TopicConfig
	log    *logger.Logger
	now    func() time.Time
}

func NewEmitter(pub Publisher, topics config.TopicConfig, log *logger.Logger) *Emitter {
	return &Emitter{pub: pub, topics: topics, log: log, now: time.Now}
}

func (e *Emitter) emit(ctx context.Context, topic, eventType, key string, payload any) {
	if e == nil || e.pub == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		e.log.Error("KAFKA", fmt.Sprintf("Failed to marshal %s payload: %v", eventType, err))
		return
	}
	value, err := json.Marshal(Envelope{Type: eventType, OccurredAt: e.now().UTC(), Payload: body})
	if err != nil {
		e.log.Error("KAFKA", fmt.Sprintf("Failed to marshal %s envelope: %v", eventType, err))
		return
	}
	if err := e.pub.Publish(ctx, topic, key, value); err != nil {
		e.log.Error("KAFKA", fmt.Sprintf("Failed to publish %s: %v", eventType, err))
		return
	}
	e.log.LogKafka("PUBLISH", topic, eventType+" "+key)
}

func (e *Emitter) PoolGenerated(ctx context.Context, ev PoolGenerated) {
	e.emit(ctx, e.topics.PoolGenerated, "pool_generated", ev.ScheduleID, ev)
}

func (e *Emitter) CartReserved(ctx context.Context, ev CartChanged) {
	e.emit(ctx, e.topics.CartReserved, "cart_reserved", ev.UserID, ev)
}

func (e *Emitter) CartReleased(ctx context.Context, ev CartChanged) {
	e.emit(ctx, e.topics.CartReleased, "cart_released", ev.UserID, ev)
}

func (e *Emitter) SaleCompleted(ctx context.Context, ev SaleCompleted) {
	e.emit(ctx, e.topics.SaleCompleted, "sale_completed", ev.SaleID, ev)
}

func (e *Emitter) PaymentSubmitted(ctx context.Context, ev PaymentChanged) {
	e.emit(ctx, e.topics.PaymentSubmitted, "payment_submitted", ev.PaymentID, ev)
}

func (e *Emitter) PaymentApproved(ctx context.Context, ev PaymentChanged) {
	e.emit(ctx, e.topics.PaymentApproved, "payment_approved", ev.PaymentID, ev)
}

func (e *Emitter) PaymentRejected(ctx context.Context, ev PaymentChanged) {
	e.emit(ctx, e.topics.PaymentRejected, "payment_rejected", ev.PaymentID, ev)
}
