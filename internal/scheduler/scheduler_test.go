package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/vocabsrs/pkg/models"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeUsers struct {
	byHour map[int][]models.User
	err    error
}

func (f fakeUsers) GetUsersForNotification(_ context.Context, hour int) ([]models.User, error) {
	return f.byHour[hour], f.err
}

type fakeDue map[int64]int

func (f fakeDue) DueCount(_ context.Context, userID int64) (int, error) {
	n, ok := f[userID]
	if !ok {
		return 0, errors.New("unknown user")
	}
	return n, nil
}

type reminder struct {
	userID int64
	count  int
}

type recordingNotifier struct {
	sent    []reminder
	failFor int64
}

func (n *recordingNotifier) SendReminder(userID int64, count int) error {
	if userID == n.failFor {
		return errors.New("blocked by user")
	}
	n.sent = append(n.sent, reminder{userID, count})
	return nil
}

func at(hour int) func() time.Time {
	return func() time.Time { return time.Date(2025, 6, 15, hour, 0, 5, 0, time.UTC) }
}

func TestCheckAndSendReminders(t *testing.T) {
	users := fakeUsers{byHour: map[int][]models.User{
		9: {
			{ID: 1, WordsPerDay: 10},
			{ID: 2, WordsPerDay: 5},
			{ID: 3, WordsPerDay: 5},
			{ID: 4, WordsPerDay: 5},
			{ID: 5, WordsPerDay: 5},
		},
	}}
	due := fakeDue{1: 3, 2: 20, 3: 0, 5: 1}
	notifier := &recordingNotifier{failFor: 5}
	s := New(users, due, notifier, zap.NewNop(), WithClock(at(9)), WithWindow(8, 20))

	sent := s.checkAndSendReminders(context.Background())

	assert.Equal(t, 2, sent)
	assert.Equal(t, []reminder{{1, 3}, {2, 5}}, notifier.sent)
}

func TestCheckAndSendRemindersOutsideWindow(t *testing.T) {
	users := fakeUsers{byHour: map[int][]models.User{22: {{ID: 1, WordsPerDay: 10}}}}
	notifier := &recordingNotifier{}
	s := New(users, fakeDue{1: 3}, notifier, zap.NewNop(), WithClock(at(22)))

	assert.Zero(t, s.checkAndSendReminders(context.Background()))
	assert.Empty(t, notifier.sent)
}

func TestCheckAndSendRemindersUserLookupFails(t *testing.T) {
	notifier := &recordingNotifier{}
	s := New(fakeUsers{err: errors.New("db down")}, fakeDue{}, notifier, zap.NewNop(), WithClock(at(9)))

	assert.Zero(t, s.checkAndSendReminders(context.Background()))
	assert.Empty(t, notifier.sent)
}

func TestRunManualCheck(t *testing.T) {
	notifier := &recordingNotifier{}
	s := New(fakeUsers{}, fakeDue{1: 12, 2: 0}, notifier, zap.NewNop(), WithClock(at(23)))

	assert.True(t, s.RunManualCheck(context.Background(), 1, 0))
	assert.False(t, s.RunManualCheck(context.Background(), 2, 0))
	assert.Equal(t, []reminder{{1, 12}}, notifier.sent)
}

func TestStartStop(t *testing.T) {
	s := New(fakeUsers{}, fakeDue{}, &recordingNotifier{}, zap.NewNop())
	assert.NoError(t, s.Start())
	s.Stop()
}
