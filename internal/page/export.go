package page

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"doorwatch/internal/observability/metrics"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
	FormatHTML = "html"
)

// FormatFromPath picks an export format from a file extension.
func FormatFromPath(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case FormatCSV, FormatXLSX, FormatPDF, FormatHTML:
		return ext, nil
	case "htm":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("page: unsupported export format %q", ext)
	}
}

// ExportLog writes the update log in the given format. A page without an
// update log exports the header only.
func (d *Document) ExportLog(w io.Writer, format string) (err error) {
	start := time.Now()
	defer func() {
		result := metrics.ResultSuccess
		if err != nil {
			result = metrics.ResultError
		}
		metrics.ObserveExport(format, result, time.Since(start))
	}()

	header := []string{"Time", "Door State"}
	if el := d.GetElementByID(IDUpdateLog); el != nil && len(el.Header) > 0 {
		header = append([]string(nil), el.Header...)
	}
	rows := d.LogRows()

	switch format {
	case FormatCSV:
		return writeCSV(w, header, rows)
	case FormatXLSX:
		return writeXLSX(w, header, rows)
	case FormatPDF:
		return writePDF(w, d.Title, header, rows)
	case FormatHTML:
		return d.RenderHTML(w)
	default:
		return fmt.Errorf("page: unsupported export format %q", format)
	}
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func writeXLSX(w io.Writer, header []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := "log"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	for col, title := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		_ = f.SetCellValue(sheet, cell, title)
	}
	for i, row := range rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			_ = f.SetCellValue(sheet, cell, value)
		}
	}
	return f.Write(w)
}

func writePDF(w io.Writer, title string, header []string, rows [][]string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, title+" Log")
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 10)
	for _, cell := range header {
		pdf.CellFormat(60, 6, cell, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, row := range rows {
		for _, cell := range row {
			pdf.CellFormat(60, 6, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	return pdf.Output(w)
}
