package assistant

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const exportTimeLayout = "2006-01-02 15:04"

func speaker(role string) string {
	if role == RoleAssistant {
		return "CareerCompass"
	}
	return "You"
}

// ExportText renders a conversation as a plain transcript.
func (a *Assistant) ExportText(ctx context.Context, userID, convID string, w io.Writer) error {
	conv, err := a.Conversation(ctx, userID, convID)
	if err != nil {
		return err
	}

	var b strings.Builder
	title := conv.Title
	if title == "" {
		title = "Conversation"
	}
	fmt.Fprintf(&b, "%s\n%s\n\n", title, strings.Repeat("=", len([]rune(title))))
	for _, m := range conv.Messages {
		mark := ""
		if m.Bookmarked {
			mark = " *"
		}
		fmt.Fprintf(&b, "[%s] %s%s:\n%s\n\n", m.CreatedAt.Format(exportTimeLayout), speaker(m.Role), mark, m.Content)
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

// ExportXLSX writes a conversation as a one-sheet workbook, one message per row.
func (a *Assistant) ExportXLSX(ctx context.Context, userID, convID string, w io.Writer) error {
	conv, err := a.Conversation(ctx, userID, convID)
	if err != nil {
		return err
	}

	const sheet = "Chat"
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	header := []any{"Time", "From", "Message", "Bookmarked", "Failed"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, m := range conv.Messages {
		row := []any{
			m.CreatedAt.Format(exportTimeLayout),
			speaker(m.Role),
			m.Content,
			yesNo(m.Bookmarked),
			yesNo(m.Error),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(sheet, "C", "C", 80); err != nil {
		return fmt.Errorf("size columns: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
