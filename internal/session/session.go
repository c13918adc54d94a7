// Package session runs learner review sessions on top of the scheduling core
// and the stores. A Service is safe for concurrent use.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/example/vocabsrs/internal/database"
	"github.com/example/vocabsrs/internal/quiz"
	sr "github.com/example/vocabsrs/internal/spaced_repetition"
	"github.com/example/vocabsrs/pkg/models"
	"go.uber.org/zap"
)

// maxSubmitAttempts bounds retries of a grade that lost a version race
const maxSubmitAttempts = 3

// ErrStaleReview is returned by SubmitAt when the record was graded after
// the caller read it.
var ErrStaleReview = errors.New("review record changed since it was shown")

// ReviewStore persists review records. *database.ReviewRepository implements it.
type ReviewStore interface {
	Create(ctx context.Context, rec models.ReviewRecord) error
	Get(ctx context.Context, userID int64, vocabularyID models.VocabularyID) (models.ReviewRecord, error)
	ListByUser(ctx context.Context, userID int64) ([]models.ReviewRecord, error)
	ListDue(ctx context.Context, userID int64, now time.Time, limit int) ([]models.ReviewRecord, error)
	Save(ctx context.Context, rec models.ReviewRecord, log *models.ReviewLog) (models.ReviewRecord, error)
	Logs(ctx context.Context, userID int64, vocabularyID models.VocabularyID) ([]models.ReviewLog, error)
}

// Catalog looks up vocabulary. *database.WordRepository implements it.
type Catalog interface {
	GetByID(ctx context.Context, id models.VocabularyID) (models.Word, error)
	ListByIDs(ctx context.Context, ids []models.VocabularyID) (map[models.VocabularyID]models.Word, error)
	ListNotIntroduced(ctx context.Context, userID int64, limit int) ([]models.Word, error)
	RandomOthers(ctx context.Context, id models.VocabularyID, topic string, n int) ([]models.Word, error)
}

// Card is a due record together with its word
type Card struct {
	Record models.ReviewRecord
	Word   models.Word
}

// Service runs review sessions
type Service struct {
	store   ReviewStore
	catalog Catalog
	logger  *zap.Logger
	now     func() time.Time

	rndMu sync.Mutex // guards rnd; *rand.Rand is not safe for concurrent use
	rnd   *rand.Rand
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRand sets the source used to shuffle quiz options
func WithRand(rnd *rand.Rand) Option {
	return func(s *Service) { s.rnd = rnd }
}

// New creates a session service
func New(store ReviewStore, catalog Catalog, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:   store,
		catalog: catalog,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rnd == nil {
		s.rnd = rand.New(rand.NewSource(s.now().UnixNano()))
	}
	return s
}

// Introduce starts tracking up to n words the user has not seen yet. The new
// records are due immediately. It returns the introduced words.
func (s *Service) Introduce(ctx context.Context, userID int64, n int) ([]models.Word, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: batch size %d", models.ErrInvalidArgument, n)
	}
	words, err := s.catalog.ListNotIntroduced(ctx, userID, n)
	if err != nil {
		return nil, err
	}

	now := s.now()
	introduced := make([]models.Word, 0, len(words))
	for _, w := range words {
		err := s.store.Create(ctx, sr.CreateNewReview(userID, w.ID, now))
		if errors.Is(err, database.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return introduced, err
		}
		introduced = append(introduced, w)
	}
	s.logger.Info("introduced words",
		zap.Int64("user_id", userID),
		zap.Int("requested", n),
		zap.Int("introduced", len(introduced)))
	return introduced, nil
}

// Queue returns up to limit due cards, earliest due first. A limit <= 0 means no limit.
func (s *Service) Queue(ctx context.Context, userID int64, limit int) ([]Card, error) {
	records, err := s.store.ListDue(ctx, userID, s.now(), limit)
	if err != nil {
		return nil, err
	}
	records = sr.OrderByDueDate(records)

	ids := make([]models.VocabularyID, len(records))
	for i, r := range records {
		ids[i] = r.VocabularyID
	}
	words, err := s.catalog.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	cards := make([]Card, 0, len(records))
	for _, r := range records {
		w, ok := words[r.VocabularyID]
		if !ok {
			s.logger.Warn("review record without word",
				zap.Int64("user_id", userID),
				zap.String("vocabulary_id", string(r.VocabularyID)))
			continue
		}
		cards = append(cards, Card{Record: r, Word: w})
	}
	return cards, nil
}

// Next returns the earliest due card. ok is false when nothing is due.
func (s *Service) Next(ctx context.Context, userID int64) (card Card, ok bool, err error) {
	cards, err := s.Queue(ctx, userID, 1)
	if err != nil || len(cards) == 0 {
		return Card{}, false, err
	}
	return cards[0], true, nil
}

// Card returns the user's record for an item together with its word.
func (s *Service) Card(ctx context.Context, userID int64, vocabularyID models.VocabularyID) (Card, error) {
	rec, err := s.store.Get(ctx, userID, vocabularyID)
	if err != nil {
		return Card{}, err
	}
	word, err := s.catalog.GetByID(ctx, vocabularyID)
	if err != nil {
		return Card{}, err
	}
	return Card{Record: rec, Word: word}, nil
}

// Submit grades the user's review of an item and stores the result. An
// invalid quality is rejected before the stores are touched. A grade that
// races with another update is re-applied to the fresh record.
func (s *Service) Submit(ctx context.Context, userID int64, vocabularyID models.VocabularyID, quality models.Quality) (models.ReviewRecord, error) {
	if !quality.IsValid() {
		return models.ReviewRecord{}, fmt.Errorf("%w: got %d", models.ErrInvalidQuality, int(quality))
	}

	var lastErr error
	for attempt := 1; attempt <= maxSubmitAttempts; attempt++ {
		rec, err := s.store.Get(ctx, userID, vocabularyID)
		if err != nil {
			return models.ReviewRecord{}, err
		}

		saved, err := s.grade(ctx, rec, quality)
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, database.ErrVersionConflict) {
			return models.ReviewRecord{}, err
		}
		lastErr = err
		s.logger.Warn("review changed concurrently, retrying",
			zap.Int64("user_id", userID),
			zap.String("vocabulary_id", string(vocabularyID)),
			zap.Int("attempt", attempt))
	}
	return models.ReviewRecord{}, fmt.Errorf("giving up after %d attempts: %w", maxSubmitAttempts, lastErr)
}

// SubmitAt grades the record only if it is still at version, the version the
// learner was shown. A record graded in between fails with ErrStaleReview and
// is not retried, so one recall is never applied twice.
func (s *Service) SubmitAt(ctx context.Context, userID int64, vocabularyID models.VocabularyID, version int64, quality models.Quality) (models.ReviewRecord, error) {
	if !quality.IsValid() {
		return models.ReviewRecord{}, fmt.Errorf("%w: got %d", models.ErrInvalidQuality, int(quality))
	}
	rec, err := s.store.Get(ctx, userID, vocabularyID)
	if err != nil {
		return models.ReviewRecord{}, err
	}
	if rec.Version != version {
		return models.ReviewRecord{}, fmt.Errorf("%w: shown at version %d, stored %d", ErrStaleReview, version, rec.Version)
	}

	saved, err := s.grade(ctx, rec, quality)
	if errors.Is(err, database.ErrVersionConflict) {
		return models.ReviewRecord{}, fmt.Errorf("%w: %w", ErrStaleReview, err)
	}
	return saved, err
}

// grade applies quality to rec and saves it with its log entry.
func (s *Service) grade(ctx context.Context, rec models.ReviewRecord, quality models.Quality) (models.ReviewRecord, error) {
	now := s.now()
	next, err := sr.Grade(rec, quality, now)
	if err != nil {
		return models.ReviewRecord{}, err
	}
	log := sr.NewLog(next, quality, now)

	saved, err := s.store.Save(ctx, next, &log)
	if err != nil {
		return models.ReviewRecord{}, err
	}
	s.logger.Debug("graded review",
		zap.Int64("user_id", rec.UserID),
		zap.String("vocabulary_id", string(rec.VocabularyID)),
		zap.Stringer("quality", quality),
		zap.Int("interval_days", saved.Interval),
		zap.Float64("ease", saved.Ease),
		zap.String("status", string(saved.Status)))
	return saved, nil
}

// Preview returns what each possible grade would do to the user's record now.
func (s *Service) Preview(ctx context.Context, userID int64, vocabularyID models.VocabularyID) (map[models.Quality]models.ReviewRecord, error) {
	rec, err := s.store.Get(ctx, userID, vocabularyID)
	if err != nil {
		return nil, err
	}
	return sr.Preview(rec, s.now()), nil
}

// Quiz builds a multiple choice question for a word the user is tracking.
func (s *Service) Quiz(ctx context.Context, userID int64, vocabularyID models.VocabularyID) (quiz.Question, error) {
	card, err := s.Card(ctx, userID, vocabularyID)
	if err != nil {
		return quiz.Question{}, err
	}
	word := card.Word
	// extra candidates cover duplicate translations
	others, err := s.catalog.RandomOthers(ctx, word.ID, word.Topic, quiz.DefaultOptions*2)
	if err != nil {
		return quiz.Question{}, err
	}
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return quiz.NewMultipleChoice(word, others, s.rnd), nil
}

// Stats summarizes the user's records.
func (s *Service) Stats(ctx context.Context, userID int64) (sr.Summary, error) {
	records, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return sr.Summary{}, err
	}
	return sr.Summarize(records, s.now()), nil
}

// DueCount returns how many of the user's records are due now.
func (s *Service) DueCount(ctx context.Context, userID int64) (int, error) {
	records, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return sr.DueCount(records, s.now()), nil
}

// Rebuild recomputes a record from its grading history and stores it.
// Counters and dates are derived from the log; the record is treated as
// introduced at the time of its first review.
func (s *Service) Rebuild(ctx context.Context, userID int64, vocabularyID models.VocabularyID) (models.ReviewRecord, error) {
	current, err := s.store.Get(ctx, userID, vocabularyID)
	if err != nil {
		return models.ReviewRecord{}, err
	}
	logs, err := s.store.Logs(ctx, userID, vocabularyID)
	if err != nil {
		return models.ReviewRecord{}, err
	}
	if len(logs) == 0 {
		return current, nil
	}

	base := sr.CreateNewReview(userID, vocabularyID, logs[0].ReviewedAt)
	base.Version = current.Version
	rebuilt, err := sr.Replay(base, logs)
	if err != nil {
		return models.ReviewRecord{}, err
	}
	saved, err := s.store.Save(ctx, rebuilt, nil)
	if err != nil {
		return models.ReviewRecord{}, err
	}
	s.logger.Info("rebuilt review record",
		zap.Int64("user_id", userID),
		zap.String("vocabulary_id", string(vocabularyID)),
		zap.Int("logs", len(logs)))
	return saved, nil
}
