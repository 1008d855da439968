package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/noah-isme/study-vault-api/internal/models"
	appErrors "github.com/noah-isme/study-vault-api/pkg/errors"
	"github.com/noah-isme/study-vault-api/pkg/export"
)

// NoteExport is a rendered catalog listing.
type NoteExport struct {
	Filename    string
	ContentType string
	Data        []byte
}

var exportColumns = []export.Column{
	{Title: "Title"},
	{Title: "Category", Width: 38},
	{Title: "Filename", Width: 60},
	{Title: "Uploaded", Width: 36},
	{Title: "Order", Width: 16},
	{Title: "Share link", Width: 70},
}

// Export renders the same listing List returns as CSV or PDF.
func (s *NoteService) Export(ctx context.Context, category, sortKey string, format export.Format) (*NoteExport, error) {
	if format != export.FormatCSV && format != export.FormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	notes, err := s.List(ctx, category, sortKey)
	if err != nil {
		return nil, err
	}

	title := "Study notes"
	if category != "" && category != models.AllCategories {
		title = fmt.Sprintf("Study notes: %s", category)
	}
	table := export.Table{Title: title, Columns: exportColumns, Rows: make([][]string, 0, len(notes))}
	for _, n := range notes {
		table.Rows = append(table.Rows, []string{
			n.Title,
			n.Category,
			n.Filename,
			n.UploadedAt.UTC().Format(time.RFC3339),
			strconv.Itoa(n.Order),
			n.ShareToken,
		})
	}

	data, err := export.Render(table, format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &NoteExport{
		Filename:    fmt.Sprintf("notes-%s.%s", s.now().Format("20060102"), format),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}
