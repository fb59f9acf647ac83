package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/helderdene/hris-sub010/internal/events"
	"github.com/helderdene/hris-sub010/internal/messaging/kafka"
	"github.com/helderdene/hris-sub010/internal/shared/contextutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notification is one fire-and-forget message to a single recipient.
type Notification struct {
	CompanyID   uuid.UUID
	RecipientID uuid.UUID
	RequesterID uuid.UUID
	Event       string
	RequestKind string
	RequestID   uuid.UUID
	Level       int
	Reason      string
}

// Notifier delivers workflow notifications. NotifyTx enqueues within the
// caller's transaction so a rolled-back transition never notifies anyone.
type Notifier interface {
	NotifyTx(ctx context.Context, tx *sql.Tx, n Notification) error
}

// outboxNotifier writes lifecycle events into the transactional outbox; the
// producer worker relays them to the broker.
type outboxNotifier struct {
	outbox kafka.OutboxRepository
	logger *zap.Logger
}

func NewOutboxNotifier(outbox kafka.OutboxRepository, logger ...*zap.Logger) Notifier {
	l := zap.L().Named("notify.outbox")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("notify.outbox")
	}
	return &outboxNotifier{outbox: outbox, logger: l}
}

func (n *outboxNotifier) NotifyTx(ctx context.Context, tx *sql.Tx, notif Notification) error {
	event := events.RequestLifecycleEvent{
		EventType:   notif.Event,
		RequestKind: notif.RequestKind,
		RequestID:   notif.RequestID.String(),
		CompanyID:   notif.CompanyID.String(),
		RequesterID: notif.RequesterID.String(),
		RecipientID: notif.RecipientID.String(),
		Level:       notif.Level,
		Reason:      notif.Reason,
		OccurredAt:  time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return n.outbox.WithTx(tx).Create(ctx, kafka.OutboxEvent{
		ID:            uuid.New().String(),
		RequestID:     contextutil.GetRequestID(ctx),
		AggregateType: notif.RequestKind,
		AggregateID:   notif.RequestID.String(),
		EventType:     notif.Event,
		Topic:         events.RequestLifecycleTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	})
}
