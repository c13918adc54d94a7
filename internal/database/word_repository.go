package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/example/vocabsrs/pkg/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const wordColumns = `id, term, translation, context, topic, difficulty, pronunciation, created_at, updated_at`

// WordRepository is the vocabulary catalog
type WordRepository struct {
	db *sqlx.DB
}

// NewWordRepository creates a new repository instance
func NewWordRepository(db *sqlx.DB) *WordRepository {
	return &WordRepository{db: db}
}

// Upsert creates the word or updates the existing one with the same term and
// topic. Terms match case-insensitively. New words get a random ID. It
// reports whether a word was created.
func (r *WordRepository) Upsert(ctx context.Context, word *models.Word) (bool, error) {
	word.Term = strings.TrimSpace(word.Term)
	word.Topic = strings.TrimSpace(word.Topic)
	if word.Term == "" {
		return false, errors.New("word cannot be empty")
	}
	key := termKey(word.Term)

	id := models.VocabularyID(uuid.NewString())
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO words (id, term, term_key, translation, context, topic, difficulty, pronunciation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (term_key, topic) DO NOTHING
	`), id, word.Term, key, word.Translation, word.Context, word.Topic, word.Difficulty, word.Pronunciation)
	if err != nil {
		return false, fmt.Errorf("failed to create word %q: %w", word.Term, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return false, fmt.Errorf("failed to create word %q: %w", word.Term, err)
	} else if n == 1 {
		word.ID = id
		return true, nil
	}

	_, err = r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE words SET
			translation = ?,
			context = ?,
			difficulty = ?,
			pronunciation = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE term_key = ? AND topic = ?
	`), word.Translation, word.Context, word.Difficulty, word.Pronunciation, key, word.Topic)
	if err != nil {
		return false, fmt.Errorf("failed to update word %q: %w", word.Term, err)
	}
	if err := r.db.GetContext(ctx, &word.ID, r.db.Rebind(
		`SELECT id FROM words WHERE term_key = ? AND topic = ?`), key, word.Topic); err != nil {
		return false, fmt.Errorf("failed to look up word %q: %w", word.Term, err)
	}
	return false, nil
}

// termKey is the form terms are matched by
func termKey(term string) string {
	return strings.ToLower(term)
}

// GetByID returns a word by its ID
func (r *WordRepository) GetByID(ctx context.Context, id models.VocabularyID) (models.Word, error) {
	var w models.Word
	err := r.db.GetContext(ctx, &w, r.db.Rebind(`SELECT `+wordColumns+` FROM words WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Word{}, fmt.Errorf("word %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Word{}, fmt.Errorf("failed to get word %s: %w", id, err)
	}
	return w, nil
}

// ListByIDs returns the words with the given IDs keyed by ID. Unknown IDs are skipped.
func (r *WordRepository) ListByIDs(ctx context.Context, ids []models.VocabularyID) (map[models.VocabularyID]models.Word, error) {
	out := make(map[models.VocabularyID]models.Word, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`SELECT `+wordColumns+` FROM words WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build word query: %w", err)
	}
	var words []models.Word
	if err := r.db.SelectContext(ctx, &words, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list words: %w", err)
	}
	for _, w := range words {
		out[w.ID] = w
	}
	return out, nil
}

// ListNotIntroduced returns up to limit words the user has no review record
// for, easiest first.
func (r *WordRepository) ListNotIntroduced(ctx context.Context, userID int64, limit int) ([]models.Word, error) {
	var words []models.Word
	err := r.db.SelectContext(ctx, &words, r.db.Rebind(`
		SELECT `+wordColumns+` FROM words w
		WHERE NOT EXISTS (
			SELECT 1 FROM review_records r
			WHERE r.user_id = ? AND r.vocabulary_id = w.id
		)
		ORDER BY w.difficulty ASC, w.topic ASC, w.term ASC
		LIMIT ?
	`), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list new words for user %d: %w", userID, err)
	}
	return words, nil
}

// RandomOthers returns up to n random words other than id, preferring the
// same topic. Used for quiz distractors.
func (r *WordRepository) RandomOthers(ctx context.Context, id models.VocabularyID, topic string, n int) ([]models.Word, error) {
	var words []models.Word
	err := r.db.SelectContext(ctx, &words, r.db.Rebind(`
		SELECT `+wordColumns+` FROM words
		WHERE id <> ?
		ORDER BY CASE WHEN topic = ? THEN 0 ELSE 1 END, RANDOM()
		LIMIT ?
	`), id, topic, n)
	if err != nil {
		return nil, fmt.Errorf("failed to get random words: %w", err)
	}
	return words, nil
}

// Count returns the size of the catalog
func (r *WordRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM words`); err != nil {
		return 0, fmt.Errorf("failed to count words: %w", err)
	}
	return n, nil
}
