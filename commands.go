package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/example/vocabsrs/internal/bot"
	"github.com/example/vocabsrs/internal/database"
	"github.com/example/vocabsrs/internal/excel"
	"github.com/example/vocabsrs/internal/scheduler"
	"github.com/example/vocabsrs/internal/session"
	"github.com/example/vocabsrs/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot and the reminder scheduler",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var (
	importSheet    string
	importStartRow int
	importTopic    string
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import vocabulary from an .xlsx or .csv file",
	Long: `Import vocabulary into the catalog.

Excel files use the columns A-F: word, translation, context, topic,
difficulty (1-5), pronunciation. CSV files hold "word,[transcription],translation"
rows; a row with only the first field set starts a new topic.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var exportCmd = &cobra.Command{
	Use:   "export <user-id> <file.xlsx>",
	Short: "Export a user's review records to Excel",
	Args:  cobra.ExactArgs(2),
	RunE:  runExport,
}

var dueLimit int

var dueCmd = &cobra.Command{
	Use:   "due <user-id>",
	Short: "Print a user's due reviews, earliest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runDue,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		// Connect applies the schema
		fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
		return nil
	},
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild <user-id> <vocabulary-id>",
	Short: "Recompute a review record from its grading history",
	Args:  cobra.ExactArgs(2),
	RunE:  runRebuild,
}

func init() {
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "sheet to import (default: first sheet)")
	importCmd.Flags().IntVar(&importStartRow, "start-row", 2, "first row to import (1-based)")
	importCmd.Flags().StringVar(&importTopic, "topic", "General", "topic for rows without one")
	dueCmd.Flags().IntVar(&dueLimit, "limit", 0, "maximum number of reviews to print (default: session size)")
}

func parseUserID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: user id %q", models.ErrInvalidArgument, s)
	}
	return id, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.RequireBot(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("unable to create bot: %w", err)
	}
	logger.Info("authorized on account", zap.String("username", api.Self.UserName))

	users := database.NewUserRepository(db)
	sessions := session.New(database.NewReviewRepository(db), database.NewWordRepository(db), logger.Named("session"))
	botCfg := bot.DefaultConfig()
	botCfg.WordsPerBatch = cfg.WordsPerBatch
	botCfg.Admins = cfg
	b := bot.New(api, sessions, users, botCfg, logger.Named("bot"))

	if cfg.SchedulerEnabled {
		s := scheduler.New(users, sessions, b, logger.Named("scheduler"),
			scheduler.WithWindow(cfg.NotificationStartHour, cfg.NotificationEndHour))
		if err := s.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer s.Stop()
		b.SetReminder(s)
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := api.GetUpdatesChan(updateConfig)

	logger.Info("bot started")
	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()
	b.Run(ctx, updates)
	logger.Info("bot stopped")
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	importCfg := excel.DefaultImportConfig()
	importCfg.FilePath = args[0]
	importCfg.SheetName = importSheet
	importCfg.StartRow = importStartRow
	importCfg.DefaultTopic = importTopic

	words := database.NewWordRepository(db)
	res, err := excel.ImportWords(cmd.Context(), importCfg, words)
	if err != nil {
		return err
	}
	total, err := words.Count(cmd.Context())
	if err != nil {
		return err
	}
	for _, e := range res.Errors {
		logger.Warn("import row failed", zap.String("error", e))
	}
	logger.Info("import finished",
		zap.String("file", args[0]),
		zap.Int("processed", res.TotalProcessed),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("errors", len(res.Errors)),
		zap.Int("catalog_size", total))
	fmt.Fprintf(cmd.OutOrStdout(), "processed %d rows: %d created, %d updated, %d errors\n",
		res.TotalProcessed, res.Created, res.Updated, len(res.Errors))
	fmt.Fprintf(cmd.OutOrStdout(), "catalog now holds %d words\n", total)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	userID, err := parseUserID(args[0])
	if err != nil {
		return err
	}
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	records, err := database.NewReviewRepository(db).ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	ids := make([]models.VocabularyID, len(records))
	for i, r := range records {
		ids[i] = r.VocabularyID
	}
	words, err := database.NewWordRepository(db).ListByIDs(ctx, ids)
	if err != nil {
		return err
	}

	if err := excel.ExportReviews(args[1], records, words, time.Now()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported %d records to %s\n", len(records), args[1])
	return nil
}

func runDue(cmd *cobra.Command, args []string) error {
	userID, err := parseUserID(args[0])
	if err != nil {
		return err
	}
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	limit := dueLimit
	if limit <= 0 {
		limit = cfg.SessionSize
	}
	sessions := session.New(database.NewReviewRepository(db), database.NewWordRepository(db), logger)
	cards, err := sessions.Queue(cmd.Context(), userID, limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WORD\tTRANSLATION\tSTATUS\tINTERVAL\tDUE SINCE")
	for _, c := range cards {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			c.Word.Term, c.Word.Translation, c.Record.Status, c.Record.Interval,
			c.Record.NextReviewDate.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runRebuild(cmd *cobra.Command, args []string) error {
	userID, err := parseUserID(args[0])
	if err != nil {
		return err
	}
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	sessions := session.New(database.NewReviewRepository(db), database.NewWordRepository(db), logger)
	rec, err := sessions.Rebuild(cmd.Context(), userID, models.VocabularyID(args[1]))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s, interval %d, ease %.2f, next review %s\n",
		rec.VocabularyID, rec.Status, rec.Interval, rec.Ease, rec.NextReviewDate.Local().Format("2006-01-02 15:04"))
	return nil
}
