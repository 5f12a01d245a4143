package room_models

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joy095/booking/logger"
)

// Room mirrors the identifier and name owned by the rooms service.
type Room struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Directory answers room lookups against the mirrored rooms table.
type Directory struct {
	DB *pgxpool.Pool
}

func NewDirectory(db *pgxpool.Pool) *Directory {
	return &Directory{DB: db}
}

// RoomExists reports whether a room with the given ID is known.
func (d *Directory) RoomExists(ctx context.Context, roomID uuid.UUID) (bool, error) {
	var exists bool
	err := d.DB.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rooms WHERE id = $1)`, roomID).Scan(&exists)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to check existence of room %s: %v", roomID, err)
		return false, fmt.Errorf("database error checking room: %w", err)
	}
	return exists, nil
}
