package main

import (
	"fmt"
	"os"

	"github.com/example/vocabsrs/internal/config"
	"github.com/example/vocabsrs/internal/database"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	envFile string

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "vocabsrs",
	Short: "Spaced repetition vocabulary trainer",
	Long: `vocabsrs schedules vocabulary reviews with the SM-2 algorithm.

Run "vocabsrs serve" to start the Telegram bot and the reminder scheduler.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(envFile)
		if err != nil {
			return err
		}
		logger, err = config.NewLogger(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "path to the .env file")
	rootCmd.AddCommand(serveCmd, importCmd, exportCmd, dueCmd, migrateCmd, rebuildCmd)
}

// openDB connects to the configured database
func openDB() (*sqlx.DB, error) {
	db, err := database.Connect(cfg.DBType, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	logger.Debug("connected to database", zap.String("type", cfg.DBType))
	return db, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
