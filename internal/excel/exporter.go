package excel

import (
	"fmt"
	"time"

	sr "github.com/example/vocabsrs/internal/spaced_repetition"
	"github.com/example/vocabsrs/pkg/models"
	"github.com/xuri/excelize/v2"
)

// ReviewsSheet is the name of the sheet written by ExportReviews
const ReviewsSheet = "Reviews"

const dateLayout = "2006-01-02 15:04"

var exportHeader = []interface{}{
	"Word", "Translation", "Topic", "Status", "Ease", "Interval (days)", "Repetitions",
	"Reviews", "Correct", "Last review", "Next review", "Due",
}

// ExportReviews writes records to an Excel file, earliest due first. Words
// supply the term, translation and topic of each record.
func ExportReviews(path string, records []models.ReviewRecord, words map[models.VocabularyID]models.Word, now time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), ReviewsSheet)

	if err := f.SetSheetRow(ReviewsSheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(exportHeader))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(ReviewsSheet, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	if err := f.SetColWidth(ReviewsSheet, "A", lastCol, 16); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	for i, rec := range sr.OrderByDueDate(records) {
		w := words[rec.VocabularyID]
		lastReview := ""
		if rec.LastReviewDate != nil {
			lastReview = rec.LastReviewDate.UTC().Format(dateLayout)
		}
		due := "no"
		if sr.IsDue(rec, now) {
			due = "yes"
		}
		row := []interface{}{
			w.Term, w.Translation, w.Topic, string(rec.Status), rec.Ease, rec.Interval, rec.Repetitions,
			rec.TotalReviews, rec.CorrectCount, lastReview, rec.NextReviewDate.UTC().Format(dateLayout), due,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ReviewsSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
