package notify

import (
	"context"
	"database/sql"
	"time"
)

// InboxEntry is a delivered in-app notification. The unique key on
// (recipient_id, request_id, event_type) makes redelivery from the broker a
// no-op.
type InboxEntry struct {
	ID          string
	CompanyID   string
	RecipientID string
	RequesterID string
	EventType   string
	RequestKind string
	RequestID   string
	Message     string
	ReadAt      *time.Time
	CreatedAt   time.Time
}

type InboxRepository interface {
	Create(ctx context.Context, entry InboxEntry) error
	ListByRecipient(ctx context.Context, companyID, recipientID string, limit int) ([]InboxEntry, error)
	MarkRead(ctx context.Context, companyID, recipientID, id string) error
}

type inboxRepository struct {
	db *sql.DB
}

func NewInboxRepository(db *sql.DB) InboxRepository {
	return &inboxRepository{db: db}
}

func (r *inboxRepository) Create(ctx context.Context, entry InboxEntry) error {
	query := `
        INSERT INTO notification_inbox (
            id, company_id, recipient_id, requester_id, event_type, request_kind, request_id, message
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err := r.db.ExecContext(
		ctx, query,
		entry.ID, entry.CompanyID, entry.RecipientID, entry.RequesterID,
		entry.EventType, entry.RequestKind, entry.RequestID, entry.Message,
	)
	return err
}

func (r *inboxRepository) ListByRecipient(ctx context.Context, companyID, recipientID string, limit int) ([]InboxEntry, error) {
	query := `
SELECT
	id::text,
	company_id::text,
	recipient_id::text,
	requester_id::text,
	event_type,
	request_kind,
	request_id::text,
	message,
	read_at,
	created_at
FROM notification_inbox
WHERE company_id = $1 AND recipient_id = $2
ORDER BY created_at DESC
LIMIT $3
`
	rows, err := r.db.QueryContext(ctx, query, companyID, recipientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]InboxEntry, 0, limit)
	for rows.Next() {
		var e InboxEntry
		if err := rows.Scan(
			&e.ID, &e.CompanyID, &e.RecipientID, &e.RequesterID,
			&e.EventType, &e.RequestKind, &e.RequestID, &e.Message,
			&e.ReadAt, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *inboxRepository) MarkRead(ctx context.Context, companyID, recipientID, id string) error {
	query := `
UPDATE notification_inbox
SET read_at = NOW()
WHERE id = $1 AND company_id = $2 AND recipient_id = $3 AND read_at IS NULL
`
	_, err := r.db.ExecContext(ctx, query, id, companyID, recipientID)
	return err
}
