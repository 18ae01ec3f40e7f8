package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/cupping-console/internal/model"
	"github.com/jwalitptl/cupping-console/internal/repository"
)

// Event types written to the outbox. The change feed publishes them as-is.
const (
	PatientCreated       = "patient.created"
	PatientStatusChanged = "patient.status_changed"
	ReadingSaved         = "reading.saved"
	PaymentCreated       = "payment.created"
	PaymentSettled       = "payment.settled"
	CouponUsed           = "coupon.used"
	TierCreated          = "tier.created"
)

// Emit appends an outbox row. Call it with the outbox repository of the
// unit of work that made the change so both commit together.
func Emit(ctx context.Context, outbox repository.OutboxRepository, eventType, table string, entityID uuid.UUID, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	evt := &model.OutboxEvent{
		EventType: eventType,
		TableName: table,
		EntityID:  entityID,
		Payload:   payloadJSON,
	}
	if err := outbox.Create(ctx, evt); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

// Notification builds the message the change feed carries for evt.
func Notification(evt *model.OutboxEvent) model.ChangeNotification {
	return model.ChangeNotification{
		EventID:    evt.ID,
		EventType:  evt.EventType,
		Table:      evt.TableName,
		EntityID:   evt.EntityID,
		OccurredAt: evt.CreatedAt,
	}
}
