package user_models

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joy095/booking/logger"
)

// Roles issued by the users service.
const (
	RoleAdmin           = "admin"
	RoleFacilityManager = "facility_manager"
	RoleAuditorReadonly = "auditor_readonly"
	RoleRegularUser     = "regular_user"
	RoleServiceAccount  = "service_account"
)

var ErrUserNotFound = errors.New("user not found")

// User is the slice of the users service's account that bookings need.
type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
}

// Directory answers user lookups against the mirrored users table.
type Directory struct {
	DB *pgxpool.Pool
}

func NewDirectory(db *pgxpool.Pool) *Directory {
	return &Directory{DB: db}
}

// UserExists reports whether a user with the given ID is known.
func (d *Directory) UserExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := d.DB.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to check existence of user %s: %v", userID, err)
		return false, fmt.Errorf("database error checking user: %w", err)
	}
	return exists, nil
}

// UserIDByUsername resolves a username to its user ID.
func (d *Directory) UserIDByUsername(ctx context.Context, username string) (uuid.UUID, error) {
	user, err := d.GetUserByUsername(ctx, username)
	if err != nil {
		return uuid.Nil, err
	}
	return user.ID, nil
}

// GetUserByUsername fetches a user by username.
func (d *Directory) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	user := &User{}
	err := d.DB.QueryRow(ctx,
		`SELECT id, username, role FROM users WHERE username = $1`, username,
	).Scan(&user.ID, &user.Username, &user.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logger.WarnLogger.Warnf("User %q not found", username)
			return nil, ErrUserNotFound
		}
		logger.ErrorLogger.Errorf("Failed to fetch user %q: %v", username, err)
		return nil, fmt.Errorf("database error fetching user: %w", err)
	}
	return user, nil
}
