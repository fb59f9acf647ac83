package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/helderdene/hris-sub010/internal/events"
	"github.com/helderdene/hris-sub010/internal/notify"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ConsumeRequestLifecycle turns workflow lifecycle events into in-app inbox
// entries. Redeliveries hit the inbox unique key and are committed as no-ops;
// transient failures leave the message uncommitted so the broker redelivers.
func ConsumeRequestLifecycle(
	ctx context.Context,
	reader *kafkago.Reader,
	inbox notify.InboxRepository,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.request_lifecycle")
	log.Info("request lifecycle consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("request lifecycle consumer stopped")
				return
			}
			log.Error("fetch request lifecycle message failed", zap.Error(err))
			continue
		}

		var event events.RequestLifecycleEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			// Poison message: log and skip, there is nothing to retry.
			log.Error("decode request lifecycle event failed", zap.Error(err))
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		entry := notify.InboxEntry{
			ID:          uuid.New().String(),
			CompanyID:   event.CompanyID,
			RecipientID: event.RecipientID,
			RequesterID: event.RequesterID,
			EventType:   event.EventType,
			RequestKind: event.RequestKind,
			RequestID:   event.RequestID,
			Message:     composeMessage(event),
		}

		if err := inbox.Create(ctx, entry); err != nil {
			if isDuplicateDelivery(err) {
				log.Warn("duplicate lifecycle delivery, skipping",
					zap.String("request_id", event.RequestID),
					zap.String("event_type", event.EventType),
				)
				_ = reader.CommitMessages(ctx, msg)
				continue
			}

			log.Error("store inbox entry failed",
				zap.String("request_id", event.RequestID),
				zap.String("event_type", event.EventType),
				zap.Error(err),
			)
			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit request lifecycle message failed", zap.Error(err))
			continue
		}

		log.Info("lifecycle notification delivered",
			zap.String("request_id", event.RequestID),
			zap.String("event_type", event.EventType),
			zap.String("recipient_id", event.RecipientID),
		)
	}
}

func composeMessage(event events.RequestLifecycleEvent) string {
	kind := strings.ToLower(event.RequestKind)
	switch event.EventType {
	case events.EventRequestSubmitted:
		return fmt.Sprintf("A %s request is waiting for your approval (level %d).", kind, event.Level)
	case events.EventRequestAdvanced:
		return fmt.Sprintf("A %s request has advanced to your approval level (level %d).", kind, event.Level)
	case events.EventRequestApproved:
		return fmt.Sprintf("Your %s request has been approved.", kind)
	case events.EventRequestRejected:
		return fmt.Sprintf("Your %s request has been rejected: %s", kind, event.Reason)
	case events.EventRequestCancelled:
		return fmt.Sprintf("A %s request you were reviewing has been cancelled.", kind)
	default:
		return fmt.Sprintf("Update on a %s request.", kind)
	}
}

func isDuplicateDelivery(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "uq_notification_delivery"
	}

	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate key value") && strings.Contains(errMsg, "uq_notification_delivery")
}
