package excel

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/example/vocabsrs/pkg/models"
	"github.com/xuri/excelize/v2"
)

// Catalog stores imported words. *database.WordRepository implements it.
type Catalog interface {
	Upsert(ctx context.Context, word *models.Word) (created bool, err error)
}

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath            string // Path to the Excel or CSV file
	TermColumn          string // Column with the word
	TranslationColumn   string // Column with the translation
	ContextColumn       string // Column with an example sentence
	TopicColumn         string // Column with the topic
	DifficultyColumn    string // Column with the difficulty
	PronunciationColumn string // Column with the pronunciation
	SheetName           string // Sheet to import, the first sheet if empty
	StartRow            int    // The row to start importing from (1-based index)
	DefaultTopic        string // Topic for rows without one
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		TermColumn:          "A",
		TranslationColumn:   "B",
		ContextColumn:       "C",
		TopicColumn:         "D",
		DifficultyColumn:    "E",
		PronunciationColumn: "F",
		StartRow:            2, // skip header
		DefaultTopic:        "General",
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Updated        int
	Errors         []string
}

var errSkipRow = errors.New("skipping row")

// ImportWords imports words from an Excel or CSV file into the catalog
func ImportWords(ctx context.Context, config ImportConfig, catalog Catalog) (*ImportResult, error) {
	if config.StartRow < 1 {
		config.StartRow = 1
	}
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		return importFromCSV(ctx, config, catalog)
	}
	return importFromExcel(ctx, config, catalog)
}

// importFromExcel imports words from an Excel file
func importFromExcel(ctx context.Context, config ImportConfig, catalog Catalog) (*ImportResult, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	cols, err := resolveColumns(config)
	if err != nil {
		return nil, err
	}

	sheet := config.SheetName
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows of sheet %q: %w", sheet, err)
	}

	result := &ImportResult{Errors: make([]string, 0)}
	for i, row := range rows {
		if i < config.StartRow-1 {
			continue
		}
		if isBlank(row) {
			continue
		}
		result.TotalProcessed++

		word := models.Word{
			Term:          cols.cell(row, cols.term),
			Translation:   cols.cell(row, cols.translation),
			Context:       cols.cell(row, cols.context),
			Topic:         cols.cell(row, cols.topic),
			Difficulty:    parseDifficulty(cols.cell(row, cols.difficulty)),
			Pronunciation: cols.cell(row, cols.pronunciation),
		}
		if word.Topic == "" {
			word.Topic = config.DefaultTopic
		}
		if err := saveWord(ctx, catalog, &word, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
		}
	}
	return result, nil
}

// importFromCSV imports a word list of "word,[transcription],translation" rows.
// A row with only its first field set starts a new topic.
func importFromCSV(ctx context.Context, config ImportConfig, catalog Catalog) (*ImportResult, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	result := &ImportResult{Errors: make([]string, 0)}
	rowNum := 0
	currentTopic := config.DefaultTopic

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rowNum++
		if rowNum < config.StartRow || isBlank(row) {
			continue
		}

		// topic header, e.g. "Movement,,"
		if topic := strings.Trim(strings.TrimSpace(row[0]), `"`); topic != "" && isBlank(row[1:]) {
			currentTopic = topic
			continue
		}

		result.TotalProcessed++
		word, err := parseCSVRow(row, currentTopic)
		if err == nil {
			err = saveWord(ctx, catalog, &word, result)
		}
		if err != nil && !errors.Is(err, errSkipRow) {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
		}
	}
	return result, nil
}

func parseCSVRow(row []string, topic string) (models.Word, error) {
	if len(row) < 3 {
		return models.Word{}, fmt.Errorf("expected 3 fields, got %d", len(row))
	}
	return models.Word{
		Term:          row[0],
		Pronunciation: strings.Trim(strings.TrimSpace(row[1]), "[]"),
		Translation:   row[2],
		Topic:         topic,
		Difficulty:    defaultDifficulty,
	}, nil
}

func saveWord(ctx context.Context, catalog Catalog, word *models.Word, result *ImportResult) error {
	word.Term = cleanWord(word.Term)
	word.Translation = strings.TrimSpace(word.Translation)
	if word.Term == "" {
		return errors.New("word cannot be empty")
	}
	if word.Translation == "" {
		return errors.New("translation cannot be empty")
	}

	created, err := catalog.Upsert(ctx, word)
	if err != nil {
		return err
	}
	if created {
		result.Created++
	} else {
		result.Updated++
	}
	return nil
}

// cleanWord drops extra forms in parentheses, e.g. "go (went, gone)"
func cleanWord(word string) string {
	if i := strings.Index(word, "("); i > 0 {
		return strings.TrimSpace(word[:i])
	}
	return strings.TrimSpace(word)
}

const (
	minDifficulty     = 1
	maxDifficulty     = 5
	defaultDifficulty = 3
)

// parseDifficulty clamps to 1..5 and falls back to the default for non-numbers
func parseDifficulty(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return defaultDifficulty
	}
	return min(max(v, minDifficulty), maxDifficulty)
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// columns holds zero-based column indexes, -1 when unused
type columns struct {
	term, translation, context, topic, difficulty, pronunciation int
}

func resolveColumns(config ImportConfig) (columns, error) {
	idx := func(name string, required bool) (int, error) {
		if name == "" {
			if required {
				return 0, errors.New("term and translation columns are required")
			}
			return -1, nil
		}
		n, err := excelize.ColumnNameToNumber(name)
		if err != nil {
			return 0, fmt.Errorf("invalid column %q: %w", name, err)
		}
		return n - 1, nil
	}

	var c columns
	var err error
	for _, col := range []struct {
		dst      *int
		name     string
		required bool
	}{
		{&c.term, config.TermColumn, true},
		{&c.translation, config.TranslationColumn, true},
		{&c.context, config.ContextColumn, false},
		{&c.topic, config.TopicColumn, false},
		{&c.difficulty, config.DifficultyColumn, false},
		{&c.pronunciation, config.PronunciationColumn, false},
	} {
		if *col.dst, err = idx(col.name, col.required); err != nil {
			return columns{}, err
		}
	}
	return c, nil
}

func (columns) cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
