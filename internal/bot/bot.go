package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/vocabsrs/internal/quiz"
	"github.com/example/vocabsrs/internal/session"
	sr "github.com/example/vocabsrs/internal/spaced_repetition"
	"github.com/example/vocabsrs/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// Sender is the part of the Telegram API the bot uses. *tgbotapi.BotAPI implements it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Sessions runs reviews. *session.Service implements it.
type Sessions interface {
	Introduce(ctx context.Context, userID int64, n int) ([]models.Word, error)
	Next(ctx context.Context, userID int64) (session.Card, bool, error)
	Card(ctx context.Context, userID int64, vocabularyID models.VocabularyID) (session.Card, error)
	Submit(ctx context.Context, userID int64, vocabularyID models.VocabularyID, quality models.Quality) (models.ReviewRecord, error)
	SubmitAt(ctx context.Context, userID int64, vocabularyID models.VocabularyID, version int64, quality models.Quality) (models.ReviewRecord, error)
	Preview(ctx context.Context, userID int64, vocabularyID models.VocabularyID) (map[models.Quality]models.ReviewRecord, error)
	Quiz(ctx context.Context, userID int64, vocabularyID models.VocabularyID) (quiz.Question, error)
	Stats(ctx context.Context, userID int64) (sr.Summary, error)
	DueCount(ctx context.Context, userID int64) (int, error)
}

// Users stores bot users. *database.UserRepository implements it.
type Users interface {
	Upsert(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (models.User, error)
	SetNotifications(ctx context.Context, id int64, enabled bool, hour int) error
}

// Reminder sends a user's due reminder on demand. *scheduler.Scheduler implements it.
type Reminder interface {
	RunManualCheck(ctx context.Context, userID int64, limit int) bool
}

// pendingQuiz is a question waiting for an answer
type pendingQuiz struct {
	vocabularyID models.VocabularyID
	question     quiz.Question
	askedAt      time.Time
}

// Bot represents the Telegram bot application
type Bot struct {
	api      Sender
	sessions Sessions
	users    Users
	config   *BotConfig
	logger   *zap.Logger
	now      func() time.Time
	reminder Reminder

	mu      sync.Mutex
	quizzes map[int64]pendingQuiz
}

// Option configures a Bot
type Option func(*Bot)

// WithClock replaces time.Now for quiz timing
func WithClock(now func() time.Time) Option {
	return func(b *Bot) { b.now = now }
}

// New creates a new bot instance
func New(api Sender, sessions Sessions, users Users, config *BotConfig, logger *zap.Logger, opts ...Option) *Bot {
	if config == nil {
		config = DefaultConfig()
	}
	b := &Bot{
		api:      api,
		sessions: sessions,
		users:    users,
		config:   config,
		logger:   logger,
		now:      time.Now,
		quizzes:  make(map[int64]pendingQuiz),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetReminder enables /remind. The scheduler needs the bot as its notifier,
// so it is attached after both exist and before Run.
func (b *Bot) SetReminder(r Reminder) {
	b.reminder = r
}

// Run handles updates until ctx is cancelled or the channel is closed.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.handleUpdate(ctx, update)
			}()
		}
	}
}

// SendReminder implements the scheduler.Notifier interface
func (b *Bot) SendReminder(userID int64, count int) error {
	// private chats share the user's ID
	msg := tgbotapi.NewMessage(userID, fmt.Sprintf("⏰ You have %s to review! Tap the button to start.", plural(count, "word", "words")))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "🔁 Review now", CallbackData: callbackReview}},
	})
	if err := b.sendMessage(msg); err != nil {
		return err
	}
	b.logger.Info("sent reminder", zap.Int64("user_id", userID), zap.Int("count", count))
	return nil
}

func (b *Bot) sendMessage(msg tgbotapi.Chattable) error {
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// handleUpdate handles incoming updates from Telegram
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	var (
		err    error
		chatID int64
	)
	switch {
	case update.Message != nil && update.Message.Chat != nil && update.Message.From != nil:
		chatID = update.Message.Chat.ID
		if update.Message.IsCommand() {
			err = b.HandleCommand(ctx, update.Message)
		} else {
			err = b.sendMessage(tgbotapi.NewMessage(chatID, "I don't understand. Use /help to see the commands."))
		}
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil &&
		update.CallbackQuery.Message.Chat != nil && update.CallbackQuery.From != nil:
		chatID = update.CallbackQuery.Message.Chat.ID
		err = b.HandleCallback(ctx, update.CallbackQuery)
	default:
		return
	}

	if err != nil {
		b.logger.Error("failed to handle update", zap.Int("update_id", update.UpdateID), zap.Error(err))
		b.sendError(chatID, err)
	}
}

func (b *Bot) storeQuiz(userID int64, p pendingQuiz) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quizzes[userID] = p
}

// takeQuiz removes and returns the user's pending quiz for the given item
func (b *Bot) takeQuiz(userID int64, vocabularyID models.VocabularyID) (pendingQuiz, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.quizzes[userID]
	if !ok || p.vocabularyID != vocabularyID {
		return pendingQuiz{}, false
	}
	delete(b.quizzes, userID)
	if b.config.QuizTimeout > 0 && b.now().Sub(p.askedAt) > b.config.QuizTimeout {
		return pendingQuiz{}, false
	}
	return p, true
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
