package scheduler

import (
	"context"
	"time"

	"github.com/example/vocabsrs/internal/config"
	"github.com/example/vocabsrs/pkg/models"
	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Notifier interface for sending notifications
type Notifier interface {
	SendReminder(userID int64, count int) error
}

// UserSource lists users who asked for a reminder at a given hour
type UserSource interface {
	GetUsersForNotification(ctx context.Context, hour int) ([]models.User, error)
}

// DueCounter reports how many reviews a user has due
type DueCounter interface {
	DueCount(ctx context.Context, userID int64) (int, error)
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	cron      *gocron.Scheduler
	users     UserSource
	due       DueCounter
	notifier  Notifier
	logger    *zap.Logger
	now       func() time.Time
	startHour int
	endHour   int
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithWindow limits reminders to hours start..end inclusive
func WithWindow(start, end int) Option {
	return func(s *Scheduler) {
		s.startHour, s.endHour = start, end
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New creates a new scheduler instance
func New(users UserSource, due DueCounter, notifier Notifier, logger *zap.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		cron:      gocron.NewScheduler(time.Local),
		users:     users,
		due:       due,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
		startHour: config.DefaultNotificationStartHour,
		endHour:   config.DefaultNotificationEndHour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() error {
	// hourly, on the hour
	_, err := s.cron.Every(1).Hour().StartAt(s.nextHour()).Do(func() {
		s.checkAndSendReminders(context.Background())
	})
	if err != nil {
		return err
	}
	s.cron.StartAsync()
	s.logger.Info("reminder scheduler started",
		zap.Int("start_hour", s.startHour),
		zap.Int("end_hour", s.endHour))
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) nextHour() time.Time {
	return s.now().Truncate(time.Hour).Add(time.Hour)
}

// checkAndSendReminders reminds every user whose notification hour is now
// and who has reviews due. It returns the number of reminders sent.
func (s *Scheduler) checkAndSendReminders(ctx context.Context) int {
	currentHour := s.now().Hour()
	if currentHour < s.startHour || currentHour > s.endHour {
		s.logger.Debug("outside notification hours, skipping reminders",
			zap.Int("hour", currentHour),
			zap.Int("start_hour", s.startHour),
			zap.Int("end_hour", s.endHour))
		return 0
	}

	users, err := s.users.GetUsersForNotification(ctx, currentHour)
	if err != nil {
		s.logger.Error("failed to get users for notification", zap.Error(err))
		return 0
	}

	sent := 0
	for _, user := range users {
		if s.remind(ctx, user.ID, user.WordsPerDay) {
			sent++
		}
	}
	s.logger.Info("reminders sent", zap.Int("hour", currentHour), zap.Int("users", len(users)), zap.Int("sent", sent))
	return sent
}

// RunManualCheck sends a reminder to one user if anything is due, ignoring
// the notification window. limit <= 0 means no cap.
func (s *Scheduler) RunManualCheck(ctx context.Context, userID int64, limit int) bool {
	return s.remind(ctx, userID, limit)
}

func (s *Scheduler) remind(ctx context.Context, userID int64, limit int) bool {
	count, err := s.due.DueCount(ctx, userID)
	if err != nil {
		s.logger.Error("failed to count due reviews", zap.Int64("user_id", userID), zap.Error(err))
		return false
	}
	if count == 0 {
		return false
	}
	// don't send more than the user's daily preference
	if limit > 0 && count > limit {
		count = limit
	}
	if err := s.notifier.SendReminder(userID, count); err != nil {
		s.logger.Warn("failed to send reminder", zap.Int64("user_id", userID), zap.Error(err))
		return false
	}
	return true
}
