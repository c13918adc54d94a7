package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/vocabsrs/pkg/models"
	"github.com/jmoiron/sqlx"
)

const userColumns = `telegram_id, username, first_name, notification_enabled, notification_hour,
	words_per_day, created_at, updated_at`

// UserRepository handles database operations for users
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new repository instance
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert inserts a new user or refreshes the profile fields of an existing one.
// Notification settings of existing users are kept.
func (r *UserRepository) Upsert(ctx context.Context, user *models.User) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO users (telegram_id, username, first_name, notification_enabled, notification_hour, words_per_day)
		VALUES (:telegram_id, :username, :first_name, :notification_enabled, :notification_hour, :words_per_day)
		ON CONFLICT (telegram_id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			updated_at = CURRENT_TIMESTAMP
	`, user)
	if err != nil {
		return fmt.Errorf("failed to save user %d: %w", user.ID, err)
	}
	return nil
}

// GetByID returns a user by Telegram ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (models.User, error) {
	var u models.User
	err := r.db.GetContext(ctx, &u, r.db.Rebind(`SELECT `+userColumns+` FROM users WHERE telegram_id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return u, nil
}

// GetUsersForNotification returns users with notifications enabled for the given hour
func (r *UserRepository) GetUsersForNotification(ctx context.Context, hour int) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users, r.db.Rebind(`
		SELECT `+userColumns+` FROM users
		WHERE notification_enabled = ? AND notification_hour = ?
		ORDER BY telegram_id
	`), true, hour)
	if err != nil {
		return nil, fmt.Errorf("failed to get users for notification: %w", err)
	}
	return users, nil
}

// SetNotifications updates the reminder settings of a user.
func (r *UserRepository) SetNotifications(ctx context.Context, id int64, enabled bool, hour int) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("%w: notification hour %d out of range", models.ErrInvalidArgument, hour)
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE users SET notification_enabled = ?, notification_hour = ?, updated_at = CURRENT_TIMESTAMP
		WHERE telegram_id = ?
	`), enabled, hour, id)
	if err != nil {
		return fmt.Errorf("failed to update notifications for user %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return nil
}
