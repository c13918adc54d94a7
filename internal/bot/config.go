package bot

import "time"

// Admins decides who may run admin commands. *config.Config implements it.
type Admins interface {
	IsAdmin(userID int64) bool
}

// BotConfig represents the configuration for the bot
type BotConfig struct {
	// Number of new words introduced by /learn
	WordsPerBatch int
	// Reminder hour given to new users
	DefaultNotificationHour int
	// Users allowed to run admin commands; nil means nobody
	Admins Admins
	// Unanswered quizzes older than this are dropped
	QuizTimeout time.Duration
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *BotConfig {
	return &BotConfig{
		WordsPerBatch:           10,
		DefaultNotificationHour: 9,
		QuizTimeout:             time.Hour,
	}
}

func (c *BotConfig) isAdmin(userID int64) bool {
	return c.Admins != nil && c.Admins.IsAdmin(userID)
}
