// Package catalogio moves catalog entries in and out of xlsx workbooks.
package catalogio

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"libraryhub/internal/microservices/http-api/models"

	"github.com/xuri/excelize/v2"
)

const SheetName = "Catalog"

var headers = []string{
	"Title", "Author", "ISBN", "Total Copies", "Available Copies",
	"Category", "Publisher", "Publication Year", "Page Count", "Language", "Description",
}

// RowError reports a row Import skipped. Row is the 1-based sheet row.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string { return fmt.Sprintf("row %d: %v", e.Row, e.Err) }

// Export writes books as a single-sheet workbook.
func Export(w io.Writer, books []models.Book) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return err
		}
	}

	for idx, b := range books {
		row := []interface{}{
			b.Title, b.Author, b.ISBN, b.TotalCopies, b.AvailableCopies,
			deref(b.Category), deref(b.Publisher), derefInt(b.PublicationYear), derefInt(b.PageCount),
			b.Language, deref(b.Description),
		}
		cell, _ := excelize.CoordinatesToCellName(1, idx+2)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", idx+2, err)
		}
	}

	_ = f.SetColWidth(SheetName, "A", "B", 30)
	_ = f.SetColWidth(SheetName, "C", "C", 16)
	_ = f.SetColWidth(SheetName, "K", "K", 50)

	return f.Write(w)
}

// Import reads books from the first sheet. Rows that cannot be parsed are
// reported in the RowError slice; the rest are returned. Validation of the
// parsed values is left to the catalog service.
func Import(r io.Reader) ([]models.Book, []RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}

	col, err := columnIndex(rows[0])
	if err != nil {
		return nil, nil, err
	}

	var (
		books   []models.Book
		skipped []RowError
	)
	for i, row := range rows[1:] {
		rowNum := i + 2
		if isBlank(row) {
			continue
		}
		b, err := parseRow(row, col)
		if err != nil {
			skipped = append(skipped, RowError{Row: rowNum, Err: err})
			continue
		}
		books = append(books, b)
	}
	return books, skipped, nil
}

func columnIndex(header []string) (map[string]int, error) {
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"title", "author", "isbn", "total copies"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}
	return col, nil
}

func parseRow(row []string, col map[string]int) (models.Book, error) {
	get := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	total, err := strconv.Atoi(get("total copies"))
	if err != nil {
		return models.Book{}, fmt.Errorf("total copies: %w", err)
	}
	available := total
	if v := get("available copies"); v != "" {
		if available, err = strconv.Atoi(v); err != nil {
			return models.Book{}, fmt.Errorf("available copies: %w", err)
		}
	}

	b := models.Book{
		Title:           get("title"),
		Author:          get("author"),
		ISBN:            get("isbn"),
		TotalCopies:     total,
		AvailableCopies: available,
		Category:        optional(get("category")),
		Publisher:       optional(get("publisher")),
		Description:     optional(get("description")),
		Language:        get("language"),
	}
	if b.PublicationYear, err = optionalInt(get("publication year")); err != nil {
		return models.Book{}, fmt.Errorf("publication year: %w", err)
	}
	if b.PageCount, err = optionalInt(get("page count")); err != nil {
		return models.Book{}, fmt.Errorf("page count: %w", err)
	}
	return b, nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// derefInt leaves the cell empty for a missing value.
func derefInt(n *int) interface{} {
	if n == nil {
		return ""
	}
	return *n
}
