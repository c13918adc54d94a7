package excel

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sr "github.com/example/vocabsrs/internal/spaced_repetition"
	"github.com/example/vocabsrs/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type memCatalog struct {
	words map[string]models.Word // by term|topic
}

func (c *memCatalog) Upsert(_ context.Context, w *models.Word) (bool, error) {
	if c.words == nil {
		c.words = map[string]models.Word{}
	}
	k := strings.ToLower(w.Term) + "|" + w.Topic
	_, exists := c.words[k]
	w.ID = models.VocabularyID(k)
	c.words[k] = *w
	return !exists, nil
}

func writeXLSX(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "words.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestImportWordsFromExcel(t *testing.T) {
	path := writeXLSX(t, [][]interface{}{
		{"Word", "Translation", "Context", "Topic", "Difficulty", "Pronunciation"},
		{"go (went, gone)", "идти", "Let's go home.", "Verbs", 2, "ɡəʊ"},
		{"apple", "яблоко", "", "", "x", ""},
		{"", "пусто"},
		{},
		{"pear", "", "", "Fruit"},
		{"Apple", "яблоко", "", "", 9, ""},
	})
	catalog := &memCatalog{}
	cfg := DefaultImportConfig()
	cfg.FilePath = path

	res, err := ImportWords(context.Background(), cfg, catalog)
	require.NoError(t, err)

	assert.Equal(t, 5, res.TotalProcessed)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.Updated)
	assert.Len(t, res.Errors, 2)

	gowd := catalog.words["go|Verbs"]
	assert.Equal(t, "go", gowd.Term)
	assert.Equal(t, "Let's go home.", gowd.Context)
	assert.Equal(t, 2, gowd.Difficulty)
	assert.Equal(t, "ɡəʊ", gowd.Pronunciation)

	apple := catalog.words["apple|General"]
	assert.Equal(t, 5, apple.Difficulty, "difficulty is clamped")
}

func TestImportWordsBadColumn(t *testing.T) {
	path := writeXLSX(t, [][]interface{}{{"a", "b"}})
	cfg := DefaultImportConfig()
	cfg.FilePath = path
	cfg.TermColumn = "1"

	_, err := ImportWords(context.Background(), cfg, &memCatalog{})
	assert.Error(t, err)
}

func TestImportWordsMissingFile(t *testing.T) {
	cfg := DefaultImportConfig()
	cfg.FilePath = filepath.Join(t.TempDir(), "none.xlsx")
	_, err := ImportWords(context.Background(), cfg, &memCatalog{})
	assert.Error(t, err)
}

func TestImportWordsFromCSV(t *testing.T) {
	content := strings.Join([]string{
		"Word,Transcription,Translation",
		"Movement,,",
		"run (ran),[rʌn],бежать",
		"walk,[wɔːk],идти пешком",
		"\"Food\",,",
		"bread,[bred],хлеб",
		"broken,row",
	}, "\n")
	path := filepath.Join(t.TempDir(), "words.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	catalog := &memCatalog{}
	cfg := DefaultImportConfig()
	cfg.FilePath = path

	res, err := ImportWords(context.Background(), cfg, catalog)
	require.NoError(t, err)

	assert.Equal(t, 4, res.TotalProcessed)
	assert.Equal(t, 3, res.Created)
	assert.Len(t, res.Errors, 1)

	run := catalog.words["run|Movement"]
	assert.Equal(t, "бежать", run.Translation)
	assert.Equal(t, "rʌn", run.Pronunciation)
	assert.Equal(t, 3, run.Difficulty)
	assert.Contains(t, catalog.words, "bread|Food")
}

func TestExportReviews(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	later := sr.CreateNewReview(1, "b", now.Add(48*time.Hour))
	due, err := sr.Grade(sr.CreateNewReview(1, "a", now.Add(-48*time.Hour)), models.QualityPerfect, now.Add(-48*time.Hour))
	require.NoError(t, err)
	words := map[models.VocabularyID]models.Word{
		"a": {ID: "a", Term: "apple", Translation: "яблоко", Topic: "Fruit"},
		"b": {ID: "b", Term: "pear", Translation: "груша", Topic: "Fruit"},
	}

	path := filepath.Join(t.TempDir(), "export.xlsx")
	require.NoError(t, ExportReviews(path, []models.ReviewRecord{later, due}, words, now))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(ReviewsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Word", rows[0][0])
	assert.Equal(t, []string{"apple", "яблоко", "Fruit", "review"}, rows[1][:4])
	assert.Equal(t, "2025-06-13 10:00", rows[1][9])
	assert.Equal(t, "2025-06-14 10:00", rows[1][10])
	assert.Equal(t, "yes", rows[1][11])

	assert.Equal(t, "pear", rows[2][0])
	assert.Equal(t, "new", rows[2][3])
	assert.Equal(t, "", rows[2][9])
	assert.Equal(t, "no", rows[2][11])
}
