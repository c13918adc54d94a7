package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/vocabsrs/pkg/models"
	"github.com/jmoiron/sqlx"
)

const reviewColumns = `user_id, vocabulary_id, ease, interval_days, repetitions, status,
	next_review_date, last_review_date, total_reviews, correct_count, version`

// ReviewRepository stores review records and their grading history.
//
// Updates use optimistic locking on the version column: a record read at
// version N can only be written back while the stored version is still N.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository creates a new repository instance
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts a new record. It returns ErrAlreadyExists if the learner
// already has a record for the item.
func (r *ReviewRepository) Create(ctx context.Context, rec models.ReviewRecord) error {
	res, err := r.db.NamedExecContext(ctx, `
		INSERT INTO review_records (`+reviewColumns+`)
		VALUES (:user_id, :vocabulary_id, :ease, :interval_days, :repetitions, :status,
			:next_review_date, :last_review_date, :total_reviews, :correct_count, :version)
		ON CONFLICT (user_id, vocabulary_id) DO NOTHING
	`, toUTC(rec))
	if err != nil {
		return fmt.Errorf("failed to create review record %s: %w", rec.VocabularyID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to create review record %s: %w", rec.VocabularyID, err)
	}
	if n == 0 {
		return fmt.Errorf("review record %d/%s: %w", rec.UserID, rec.VocabularyID, ErrAlreadyExists)
	}
	return nil
}

// Get returns the record for a user and vocabulary item
func (r *ReviewRepository) Get(ctx context.Context, userID int64, vocabularyID models.VocabularyID) (models.ReviewRecord, error) {
	var rec models.ReviewRecord
	err := r.db.GetContext(ctx, &rec, r.db.Rebind(`
		SELECT `+reviewColumns+` FROM review_records
		WHERE user_id = ? AND vocabulary_id = ?
	`), userID, vocabularyID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ReviewRecord{}, fmt.Errorf("review record %d/%s: %w", userID, vocabularyID, ErrNotFound)
	}
	if err != nil {
		return models.ReviewRecord{}, fmt.Errorf("failed to get review record: %w", err)
	}
	return rec, nil
}

// ListByUser returns all records of a user in no particular order
func (r *ReviewRepository) ListByUser(ctx context.Context, userID int64) ([]models.ReviewRecord, error) {
	var records []models.ReviewRecord
	err := r.db.SelectContext(ctx, &records, r.db.Rebind(`
		SELECT `+reviewColumns+` FROM review_records WHERE user_id = ?
	`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list review records for user %d: %w", userID, err)
	}
	return records, nil
}

// ListDue returns up to limit records of a user due at now, earliest first.
// A limit <= 0 means no limit.
func (r *ReviewRepository) ListDue(ctx context.Context, userID int64, now time.Time, limit int) ([]models.ReviewRecord, error) {
	query := `
		SELECT ` + reviewColumns + ` FROM review_records
		WHERE user_id = ? AND next_review_date <= ?
		ORDER BY next_review_date ASC, vocabulary_id ASC`
	args := []interface{}{userID, now.UTC()}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var records []models.ReviewRecord
	if err := r.db.SelectContext(ctx, &records, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list due records for user %d: %w", userID, err)
	}
	return records, nil
}

// Save writes rec back if its version is unchanged since it was read and
// appends log to the history in the same transaction. log may be nil.
// The returned record carries the new version.
func (r *ReviewRepository) Save(ctx context.Context, rec models.ReviewRecord, log *models.ReviewLog) (models.ReviewRecord, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.ReviewRecord{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := toUTC(rec)
	res, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE review_records SET
			ease = ?,
			interval_days = ?,
			repetitions = ?,
			status = ?,
			next_review_date = ?,
			last_review_date = ?,
			total_reviews = ?,
			correct_count = ?,
			version = version + 1
		WHERE user_id = ? AND vocabulary_id = ? AND version = ?
	`),
		row.Ease,
		row.Interval,
		row.Repetitions,
		row.Status,
		row.NextReviewDate,
		row.LastReviewDate,
		row.TotalReviews,
		row.CorrectCount,
		row.UserID,
		row.VocabularyID,
		row.Version,
	)
	if err != nil {
		return models.ReviewRecord{}, fmt.Errorf("failed to update review record %s: %w", rec.VocabularyID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.ReviewRecord{}, fmt.Errorf("failed to update review record %s: %w", rec.VocabularyID, err)
	}
	if n == 0 {
		return models.ReviewRecord{}, r.missingOrConflict(ctx, tx, rec)
	}

	if log != nil {
		l := *log
		l.ReviewedAt = l.ReviewedAt.UTC()
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO review_logs (user_id, vocabulary_id, quality, reviewed_at, interval_days, ease)
			VALUES (:user_id, :vocabulary_id, :quality, :reviewed_at, :interval_days, :ease)
		`, l); err != nil {
			return models.ReviewRecord{}, fmt.Errorf("failed to insert review log: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.ReviewRecord{}, fmt.Errorf("failed to commit review: %w", err)
	}
	rec.Version++
	return rec, nil
}

// missingOrConflict tells a deleted record from a concurrent update.
func (r *ReviewRepository) missingOrConflict(ctx context.Context, tx *sqlx.Tx, rec models.ReviewRecord) error {
	var version int64
	err := tx.GetContext(ctx, &version, tx.Rebind(
		`SELECT version FROM review_records WHERE user_id = ? AND vocabulary_id = ?`),
		rec.UserID, rec.VocabularyID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("review record %d/%s: %w", rec.UserID, rec.VocabularyID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check review record version: %w", err)
	}
	return fmt.Errorf("review record %d/%s at version %d, stored %d: %w",
		rec.UserID, rec.VocabularyID, rec.Version, version, ErrVersionConflict)
}

// Logs returns the grading history of one record, oldest first
func (r *ReviewRepository) Logs(ctx context.Context, userID int64, vocabularyID models.VocabularyID) ([]models.ReviewLog, error) {
	var logs []models.ReviewLog
	err := r.db.SelectContext(ctx, &logs, r.db.Rebind(`
		SELECT id, user_id, vocabulary_id, quality, reviewed_at, interval_days, ease
		FROM review_logs
		WHERE user_id = ? AND vocabulary_id = ?
		ORDER BY reviewed_at ASC, id ASC
	`), userID, vocabularyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get review logs: %w", err)
	}
	return logs, nil
}

// toUTC normalizes timestamps so that they compare correctly as stored text in SQLite.
func toUTC(rec models.ReviewRecord) models.ReviewRecord {
	rec.NextReviewDate = rec.NextReviewDate.UTC()
	if rec.LastReviewDate != nil {
		t := rec.LastReviewDate.UTC()
		rec.LastReviewDate = &t
	}
	return rec
}
