package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/OudonePKL/chaet-backend1/internal/core/domain"

	"github.com/google/uuid"
)

type RoomRepo struct {
	db *sql.DB
}

func NewRoomRepo(db *sql.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

func (r *RoomRepo) GetRoomByID(ctx context.Context, roomID uuid.UUID) (*domain.Room, error) {
	if roomID == uuid.Nil {
		return nil, domain.ErrInvalidRoomID
	}
	var room domain.Room
	var name sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, type, created_at
		FROM chat_rooms
		WHERE id = $1
	`, roomID).Scan(&room.ID, &name, &room.Type, &room.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	room.Name = name.String
	return &room, nil
}

func (r *RoomRepo) IsMember(ctx context.Context, roomID uuid.UUID, userID string) (bool, error) {
	if roomID == uuid.Nil {
		return false, domain.ErrInvalidRoomID
	}
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM memberships
			WHERE room_id = $1 AND user_id = $2
		)
	`, roomID, userID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *RoomRepo) ListMembers(ctx context.Context, roomID uuid.UUID) ([]string, error) {
	if roomID == uuid.Nil {
		return nil, domain.ErrInvalidRoomID
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id FROM memberships
		WHERE room_id = $1
		ORDER BY joined_at ASC
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var members []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		members = append(members, userID)
	}
	return members, rows.Err()
}
