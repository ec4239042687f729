// Package events fans domain changes out to live subscribers (websocket) and
// to downstream consumers (RabbitMQ). Delivery is best effort: a failed publish
// is logged by the caller and never undoes the committed change.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	RequisitionSaved     Type = "requisition.saved"
	RequisitionFinalized Type = "requisition.finalized"
	RequisitionDecided   Type = "requisition.decided"
	RequisitionDeleted   Type = "requisition.deleted"
	BudgetChanged        Type = "budget.changed"
	OrderCreated         Type = "order.created"
	OrderDecided         Type = "order.decided"
	CacheInvalidated     Type = "cache.invalidated"
)

type Event struct {
	Type           Type                   `json:"type"`
	OrganizationID uuid.UUID              `json:"organizationId"`
	EntityID       uuid.UUID              `json:"entityId"`
	Reference      string                 `json:"reference,omitempty"`
	Status         string                 `json:"status,omitempty"`
	Payload        map[string]interface{} `json:"payload,omitempty"`
	OccurredAt     time.Time              `json:"occurredAt"`
}

func New(t Type, org, entity uuid.UUID, reference, status string) Event {
	return Event{
		Type:           t,
		OrganizationID: org,
		EntityID:       entity,
		Reference:      reference,
		Status:         status,
		OccurredAt:     time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type nop struct{}

func (nop) Publish(context.Context, Event) error { return nil }

// Nop discards every event.
func Nop() Publisher { return nop{} }

type multi []Publisher

// Multi publishes to every target and joins their errors.
func Multi(targets ...Publisher) Publisher {
	out := make(multi, 0, len(targets))
	for _, t := range targets {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

func (m multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
