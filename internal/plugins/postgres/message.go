package postgres

import (
	"context"
	"database/sql"

	"github.com/OudonePKL/chaet-backend1/internal/core/domain"

	"github.com/google/uuid"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

func (r *MessageRepo) CreateMessage(ctx context.Context, msg *domain.Message) error {
	if msg.RoomID == uuid.Nil {
		return domain.ErrInvalidRoomID
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, room_id, sender_id, content, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, msg.ID, msg.RoomID, msg.SenderID, msg.Content, msg.Status, msg.CreatedAt)
	return err
}

// AdvanceStatus is the per-message compare-and-set: the UPDATE only
// lands when the stored status strictly precedes the target, so two
// racing transitions cannot regress the durable record.
func (r *MessageRepo) AdvanceStatus(ctx context.Context, msgID uuid.UUID, target domain.MessageStatus) (bool, error) {
	if msgID == uuid.Nil {
		return false, domain.ErrInvalidMessageID
	}
	if !target.Valid() {
		return false, domain.ErrInvalidStatus
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages
		SET status = $2
		WHERE id = $1
		  AND deleted_at IS NULL
		  AND CASE status
		        WHEN 'sending' THEN 0
		        WHEN 'sent' THEN 1
		        WHEN 'delivered' THEN 2
		        WHEN 'seen' THEN 3
		      END
		    < CASE $2
		        WHEN 'sending' THEN 0
		        WHEN 'sent' THEN 1
		        WHEN 'delivered' THEN 2
		        WHEN 'seen' THEN 3
		      END
	`, msgID, target)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected > 0 {
		return true, nil
	}
	// Lost the CAS or no such message; tell the two apart so callers
	// can treat stale transitions as no-ops.
	var exists bool
	err = r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM messages WHERE id = $1 AND deleted_at IS NULL)
	`, msgID).Scan(&exists)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, domain.ErrMessageNotFound
	}
	return false, nil
}

func (r *MessageRepo) ListRecent(ctx context.Context, roomID uuid.UUID, limit int) ([]domain.Message, error) {
	if roomID == uuid.Nil {
		return nil, domain.ErrInvalidRoomID
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, room_id, sender_id, content, status, created_at
		FROM messages
		WHERE room_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Content, &m.Status, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Query returns newest-first; the replay contract is oldest-first.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
