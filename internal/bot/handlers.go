package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/example/vocabsrs/internal/database"
	"github.com/example/vocabsrs/internal/quiz"
	"github.com/example/vocabsrs/internal/session"
	"github.com/example/vocabsrs/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Constants for callback data
const (
	callbackReview = "review"
	callbackLearn  = "learn"
	callbackQuiz   = "quiz"

	prefixReveal = "reveal:"
	prefixGrade  = "grade:"
	prefixQuiz   = "quiz:"
)

// HandleCommand handles bot commands
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	var err error
	switch message.Command() {
	case "start":
		err = b.handleStart(ctx, message)
	case "help":
		err = b.handleHelp(message.Chat.ID)
	case "learn":
		err = b.handleLearn(ctx, message.From.ID, message.Chat.ID)
	case "review":
		err = b.sendNextCard(ctx, message.From.ID, message.Chat.ID)
	case "quiz":
		err = b.sendQuiz(ctx, message.From.ID, message.Chat.ID)
	case "stats":
		err = b.handleStats(ctx, message.From.ID, message.Chat.ID)
	case "notify":
		err = b.handleNotifyCommand(ctx, message)
	case "due", "remind":
		if !b.config.isAdmin(message.From.ID) {
			return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, "This command is only available for administrators."))
		}
		if message.Command() == "due" {
			err = b.handleDueCommand(ctx, message)
		} else {
			err = b.handleRemindCommand(ctx, message)
		}
	default:
		err = b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, "Unknown command. Use /help to see the commands."))
	}
	return err
}

func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) error {
	user := &models.User{
		ID:                  message.From.ID,
		Username:            message.From.UserName,
		FirstName:           message.From.FirstName,
		NotificationEnabled: true,
		NotificationHour:    b.config.DefaultNotificationHour,
		WordsPerDay:         b.config.WordsPerBatch,
	}
	if err := b.users.Upsert(ctx, user); err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}
	b.logger.Info("user started bot", zap.Int64("user_id", user.ID), zap.String("username", user.Username))

	text := "👋 Welcome to the vocabulary trainer!\n\n" +
		"Words come back for review right before you would forget them.\n\n" +
		"1. /learn to get a batch of new words\n" +
		"2. /review to go through the words that are due\n" +
		"3. Grade how well you remembered each one\n\n" +
		"Use /help to see all commands."
	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ReplyMarkup = createKeyboard(mainMenuButtons())
	return b.sendMessage(msg)
}

func (b *Bot) handleHelp(chatID int64) error {
	text := "📖 Commands\n\n" +
		"/learn - Add a batch of new words\n" +
		"/review - Review the words that are due\n" +
		"/quiz - Multiple choice check on a due word\n" +
		"/stats - Your progress\n" +
		"/notify off | on | <hour> - Daily reminder settings\n\n" +
		"🔢 Grades\n" +
		"0 - complete blackout\n" +
		"1 - wrong, but familiar once seen\n" +
		"2 - wrong, but it felt easy to recall\n" +
		"3 - right with serious difficulty\n" +
		"4 - right after hesitation\n" +
		"5 - perfect\n\n" +
		"Grades below 3 start the word over."
	return b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

func mainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{{Text: "🔁 Review", CallbackData: callbackReview}, {Text: "🎯 Quiz", CallbackData: callbackQuiz}},
		{{Text: "➕ Learn new words", CallbackData: callbackLearn}},
	}
}

func (b *Bot) handleLearn(ctx context.Context, userID, chatID int64) error {
	words, err := b.sessions.Introduce(ctx, userID, b.config.WordsPerBatch)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return b.sendMessage(tgbotapi.NewMessage(chatID, "🎉 You have seen every word in the catalog."))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📚 %s to learn:\n\n", plural(len(words), "new word", "new words"))
	for _, w := range words {
		sb.WriteString("• " + formatWord(w) + " - " + w.Translation + "\n")
	}
	sb.WriteString("\nThey are ready for review now.")

	msg := tgbotapi.NewMessage(chatID, sb.String())
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "🔁 Start review", CallbackData: callbackReview}},
	})
	return b.sendMessage(msg)
}

// sendNextCard shows the front of the earliest due word
func (b *Bot) sendNextCard(ctx context.Context, userID, chatID int64) error {
	card, ok, err := b.sessions.Next(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		msg := tgbotapi.NewMessage(chatID, "✅ Nothing to review right now. Use /learn to add new words.")
		return b.sendMessage(msg)
	}

	text := "🔤 " + formatWord(card.Word)
	if card.Word.Context != "" {
		text += "\n\n💬 " + card.Word.Context
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "👀 Show answer", CallbackData: prefixReveal + string(card.Word.ID)}},
	})
	return b.sendMessage(msg)
}

// sendQuiz asks a multiple choice question about the earliest due word
func (b *Bot) sendQuiz(ctx context.Context, userID, chatID int64) error {
	card, ok, err := b.sessions.Next(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return b.sendMessage(tgbotapi.NewMessage(chatID, "✅ Nothing to review right now. Use /learn to add new words."))
	}

	q, err := b.sessions.Quiz(ctx, userID, card.Word.ID)
	if err != nil {
		return err
	}
	b.storeQuiz(userID, pendingQuiz{vocabularyID: card.Word.ID, question: q, askedAt: b.now()})

	text := "🎯 What does \"" + card.Word.Term + "\" mean?"
	if q.ContextSentence != "" {
		text += "\n\n💬 " + q.ContextSentence
	}
	rows := make([][]MenuButton, 0, len(q.Options))
	for i, opt := range q.Options {
		rows = append(rows, []MenuButton{{Text: opt, CallbackData: fmt.Sprintf("%s%s:%d", prefixQuiz, card.Word.ID, i)}})
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard(rows)
	return b.sendMessage(msg)
}

func (b *Bot) handleStats(ctx context.Context, userID, chatID int64) error {
	s, err := b.sessions.Stats(ctx, userID)
	if err != nil {
		return err
	}
	if s.Total == 0 {
		return b.sendMessage(tgbotapi.NewMessage(chatID, "No statistics yet. Use /learn to start!"))
	}

	text := fmt.Sprintf("📊 Your progress\n\n"+
		"Words: %d\n"+
		"🆕 New: %d\n"+
		"📖 Learning: %d\n"+
		"🔁 Review: %d\n"+
		"🏆 Mastered: %d\n\n"+
		"Due now: %d\n"+
		"Reviews: %d (%.0f%% correct)\n"+
		"Average ease: %.2f",
		s.Total,
		s.ByStatus[models.StatusNew],
		s.ByStatus[models.StatusLearning],
		s.ByStatus[models.StatusReview],
		s.ByStatus[models.StatusMastered],
		s.Due,
		s.Reviews, s.Accuracy*100,
		s.AverageEase)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard(mainMenuButtons())
	return b.sendMessage(msg)
}

func (b *Bot) handleNotifyCommand(ctx context.Context, message *tgbotapi.Message) error {
	usage := "Usage: /notify off | on | <hour 0-23>"
	args := strings.TrimSpace(message.CommandArguments())
	if args == "" {
		return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, usage))
	}

	user, err := b.users.GetByID(ctx, message.From.ID)
	if err != nil {
		return err
	}

	enabled, hour := true, user.NotificationHour
	switch strings.ToLower(args) {
	case "on":
	case "off":
		enabled = false
	default:
		h, err := strconv.Atoi(args)
		if err != nil || h < 0 || h > 23 {
			return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, usage))
		}
		hour = h
	}

	if err := b.users.SetNotifications(ctx, user.ID, enabled, hour); err != nil {
		return err
	}
	text := "🔕 Reminders are off"
	if enabled {
		text = fmt.Sprintf("🔔 Reminders are on at %d:00", hour)
	}
	return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, text))
}

// handleDueCommand shows how many reviews another user has due
func (b *Bot) handleDueCommand(ctx context.Context, message *tgbotapi.Message) error {
	userID, err := strconv.ParseInt(strings.TrimSpace(message.CommandArguments()), 10, 64)
	if err != nil {
		return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, "Usage: /due <user id>"))
	}
	n, err := b.sessions.DueCount(ctx, userID)
	if err != nil {
		return err
	}
	return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, fmt.Sprintf("User %d has %s due.", userID, plural(n, "review", "reviews"))))
}

// handleRemindCommand sends another user's reminder now, outside the schedule
func (b *Bot) handleRemindCommand(ctx context.Context, message *tgbotapi.Message) error {
	if b.reminder == nil {
		return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, "Reminders are disabled."))
	}
	userID, err := strconv.ParseInt(strings.TrimSpace(message.CommandArguments()), 10, 64)
	if err != nil {
		return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, "Usage: /remind <user id>"))
	}
	user, err := b.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	text := fmt.Sprintf("User %d has nothing due.", userID)
	if b.reminder.RunManualCheck(ctx, user.ID, user.WordsPerDay) {
		text = fmt.Sprintf("Reminder sent to user %d.", userID)
	}
	return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, text))
}

// HandleCallback handles inline button presses
func (b *Bot) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	// Always answer the callback query to remove the loading state
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.logger.Warn("failed to answer callback", zap.Error(err))
	}

	userID, chatID := callback.From.ID, callback.Message.Chat.ID
	data := callback.Data
	switch {
	case data == callbackReview:
		return b.sendNextCard(ctx, userID, chatID)
	case data == callbackLearn:
		return b.handleLearn(ctx, userID, chatID)
	case data == callbackQuiz:
		return b.sendQuiz(ctx, userID, chatID)
	case strings.HasPrefix(data, prefixReveal):
		return b.handleReveal(ctx, userID, chatID, models.VocabularyID(strings.TrimPrefix(data, prefixReveal)))
	case strings.HasPrefix(data, prefixGrade):
		id, version, q, err := parseGradeCallback(data)
		if err != nil {
			return err
		}
		return b.handleGrade(ctx, userID, chatID, id, version, q)
	case strings.HasPrefix(data, prefixQuiz):
		id, arg, err := splitCallback(data, prefixQuiz)
		if err != nil {
			return err
		}
		option, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("%w: quiz option %q", models.ErrInvalidArgument, arg)
		}
		return b.handleQuizAnswer(ctx, userID, chatID, id, option)
	default:
		return b.sendMessage(tgbotapi.NewMessage(chatID, "⚠️ Unknown action"))
	}
}

// splitCallback parses "<prefix><vocabulary id>:<arg>"
func splitCallback(data, prefix string) (models.VocabularyID, string, error) {
	rest := strings.TrimPrefix(data, prefix)
	i := strings.LastIndexByte(rest, ':')
	if i <= 0 || i == len(rest)-1 {
		return "", "", fmt.Errorf("%w: malformed callback %q", models.ErrInvalidArgument, data)
	}
	return models.VocabularyID(rest[:i]), rest[i+1:], nil
}

// parseGradeCallback parses "grade:<vocabulary id>:<version>:<quality>"
func parseGradeCallback(data string) (models.VocabularyID, int64, models.Quality, error) {
	rest, arg, err := splitCallback(data, prefixGrade)
	if err != nil {
		return "", 0, 0, err
	}
	id, v, err := splitCallback(string(rest), "")
	if err != nil {
		return "", 0, 0, err
	}
	version, err := strconv.ParseInt(v, 10, 64)
	if err != nil || version < 0 {
		return "", 0, 0, fmt.Errorf("%w: record version %q", models.ErrInvalidArgument, v)
	}
	q, err := models.ParseQualityString(arg)
	if err != nil {
		return "", 0, 0, err
	}
	return id, version, q, nil
}

// handleReveal shows the answer and grade buttons labelled with the interval each grade gives
func (b *Bot) handleReveal(ctx context.Context, userID, chatID int64, id models.VocabularyID) error {
	card, err := b.sessions.Card(ctx, userID, id)
	if err != nil {
		return err
	}
	preview, err := b.sessions.Preview(ctx, userID, id)
	if err != nil {
		return err
	}

	text := "🔤 " + formatWord(card.Word) + "\n✅ " + card.Word.Translation +
		"\n\nHow well did you remember it?"

	rows := [][]MenuButton{{}, {}}
	for _, q := range models.AllQualities {
		label := fmt.Sprintf("%d · %s", int(q), formatDays(preview[q].Interval))
		row := 0
		if !q.IsLapse() {
			row = 1
		}
		rows[row] = append(rows[row], MenuButton{
			Text:         label,
			CallbackData: fmt.Sprintf("%s%s:%d:%d", prefixGrade, id, card.Record.Version, int(q)),
		})
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard(rows)
	return b.sendMessage(msg)
}

// handleGrade applies a grade button. Buttons carry the record version they
// were shown for, so a repeated or outdated press is refused.
func (b *Bot) handleGrade(ctx context.Context, userID, chatID int64, id models.VocabularyID, version int64, q models.Quality) error {
	rec, err := b.sessions.SubmitAt(ctx, userID, id, version, q)
	if errors.Is(err, session.ErrStaleReview) {
		return b.sendMessage(tgbotapi.NewMessage(chatID, "⚠️ This card was already graded."))
	}
	if err != nil {
		return err
	}
	text := fmt.Sprintf("Next review in %s.", formatDays(rec.Interval))
	if rec.Status == models.StatusMastered {
		text = "🏆 Mastered! " + text
	}
	if err := b.sendMessage(tgbotapi.NewMessage(chatID, text)); err != nil {
		return err
	}
	return b.sendNextCard(ctx, userID, chatID)
}

func (b *Bot) handleQuizAnswer(ctx context.Context, userID, chatID int64, id models.VocabularyID, option int) error {
	p, ok := b.takeQuiz(userID, id)
	if !ok {
		return b.sendMessage(tgbotapi.NewMessage(chatID, "⌛ This quiz has expired. Use /quiz for a new one."))
	}

	correct := p.question.IsCorrect(option)
	q := quiz.InferQuality(correct, b.now().Sub(p.askedAt))
	rec, err := b.sessions.Submit(ctx, userID, id, q)
	if err != nil {
		return err
	}

	answer := p.question.Options[p.question.CorrectIndex]
	text := "✅ Correct!"
	if !correct {
		text = "❌ Wrong. The answer is: " + answer
	}
	text += fmt.Sprintf("\nNext review in %s.", formatDays(rec.Interval))
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "🎯 Next question", CallbackData: callbackQuiz}},
	})
	return b.sendMessage(msg)
}

// sendError tells the user something went wrong
func (b *Bot) sendError(chatID int64, err error) {
	text := "❌ Something went wrong. Please try again later."
	switch {
	case errors.Is(err, database.ErrNotFound):
		text = "⚠️ Not found. If you are new here, send /start first."
	case errors.Is(err, models.ErrInvalidArgument):
		text = "⚠️ Invalid request."
	}
	if sendErr := b.sendMessage(tgbotapi.NewMessage(chatID, text)); sendErr != nil {
		b.logger.Warn("failed to send error message", zap.Error(sendErr))
	}
}

func formatWord(w models.Word) string {
	if w.Pronunciation != "" {
		return w.Term + " [" + w.Pronunciation + "]"
	}
	return w.Term
}

func formatDays(days int) string {
	return plural(days, "day", "days")
}
