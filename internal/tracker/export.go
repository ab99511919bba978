package tracker

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Tracker"

var exportHeader = []any{"ID", "Name", "Saved", "Status", "Deadline", "Reminder", "Documents Ready", "Pending Documents", "Saved At"}

// ExportXLSX writes the user's tracked items as a spreadsheet.
func (t *Tracker) ExportXLSX(ctx context.Context, userID string, w io.Writer) error {
	items := t.Items(ctx, userID)
	saved := t.Saved(ctx, userID)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	for i, it := range items {
		done, total := it.Progress()
		reminder := ""
		if it.ReminderDate != nil {
			reminder = it.ReminderDate.Format("2006-01-02 15:04")
		}
		savedLabel := "no"
		if slices.Contains(saved, it.ID) {
			savedLabel = "yes"
		}

		row := []any{
			it.ID,
			it.Name,
			savedLabel,
			string(it.Status),
			it.Deadline,
			reminder,
			fmt.Sprintf("%d/%d", done, total),
			strings.Join(pending(it), "; "),
			it.SavedAt.Format(time.RFC3339),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(exportSheet, "A", "I", 20); err != nil {
		return fmt.Errorf("size columns: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func pending(it Item) []string {
	var out []string
	for doc, checked := range it.Checklist {
		if !checked {
			out = append(out, doc)
		}
	}
	slices.Sort(out)
	return out
}
