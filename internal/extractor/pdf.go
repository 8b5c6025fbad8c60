package extractor

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"fund-report-rag/internal/models"
)

const (
	// lineTolerance groups positioned text fragments into the same visual
	// row when their baselines are this close.
	lineTolerance = 2.0
	// minTableRows is the shortest run of multi-cell rows treated as a table.
	minTableRows = 2
	// minTableCols rejects prose lines that happen to contain one gap.
	minTableCols = 2
)

// PDFExtractor reads PDF files and recovers text plus cell grids from the
// positioned text layout. It performs no OCR; scanned image-only pages yield
// empty text and no tables.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Open opens the PDF at path. Structural failures (including parser panics on
// corrupt files) are reported as models.ErrMalformedPDF.
func (e *PDFExtractor) Open(path string) (doc Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("%w: %v", models.ErrMalformedPDF, r)
		}
	}()

	f, r, openErr := pdf.Open(path)
	if openErr != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedPDF, openErr)
	}
	return &pdfDocument{file: f, reader: r}, nil
}

type pdfDocument struct {
	file   *os.File
	reader *pdf.Reader
}

func (d *pdfDocument) PageCount() int {
	return d.reader.NumPage()
}

// Page returns the 0-based page i.
func (d *pdfDocument) Page(i int) (Page, error) {
	if i < 0 || i >= d.reader.NumPage() {
		return nil, fmt.Errorf("page %d out of range (%d pages)", i, d.reader.NumPage())
	}
	p := d.reader.Page(i + 1)
	if p.V.IsNull() {
		return nil, fmt.Errorf("page %d is null", i)
	}
	return &pdfPage{page: p}, nil
}

func (d *pdfDocument) Close() error {
	return d.file.Close()
}

type pdfPage struct {
	page pdf.Page
}

func (p *pdfPage) Text() (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("extract text: %v", r)
		}
	}()

	text, err = p.page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	return text, nil
}

// Tables reconstructs cell grids from positioned text: fragments are grouped
// into visual rows by baseline, rows are split into cells on horizontal gaps,
// and consecutive runs of multi-cell rows become one table.
func (p *pdfPage) Tables() (tables []models.RawTable, err error) {
	defer func() {
		if r := recover(); r != nil {
			tables = nil
			err = fmt.Errorf("extract tables: %v", r)
		}
	}()

	content := p.page.Content()
	rows := groupIntoRows(content.Text)
	return detectTables(rows), nil
}

// textRow is one visual line of positioned fragments, sorted left to right.
type textRow struct {
	y     float64
	cells []string
}

func groupIntoRows(texts []pdf.Text) []textRow {
	if len(texts) == 0 {
		return nil
	}

	sorted := make([]pdf.Text, len(texts))
	copy(sorted, texts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if math.Abs(sorted[i].Y-sorted[j].Y) > lineTolerance {
			return sorted[i].Y > sorted[j].Y // PDF origin is bottom-left
		}
		return sorted[i].X < sorted[j].X
	})

	var rows []textRow
	var line []pdf.Text
	flush := func() {
		if len(line) == 0 {
			return
		}
		rows = append(rows, textRow{y: line[0].Y, cells: splitIntoCells(line)})
		line = nil
	}
	for _, t := range sorted {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		if len(line) > 0 && math.Abs(line[0].Y-t.Y) > lineTolerance {
			flush()
		}
		line = append(line, t)
	}
	flush()
	return rows
}

// splitIntoCells merges adjacent fragments and starts a new cell whenever the
// horizontal gap exceeds roughly two character widths at the fragment's font
// size.
func splitIntoCells(line []pdf.Text) []string {
	var cells []string
	var cell strings.Builder
	prevEnd := math.Inf(-1)

	for _, t := range line {
		gapThreshold := t.FontSize
		if gapThreshold <= 0 {
			gapThreshold = 10
		}
		if cell.Len() > 0 && t.X-prevEnd > gapThreshold {
			cells = append(cells, strings.TrimSpace(cell.String()))
			cell.Reset()
		}
		cell.WriteString(t.S)
		prevEnd = t.X + t.W
	}
	if cell.Len() > 0 {
		cells = append(cells, strings.TrimSpace(cell.String()))
	}
	return cells
}

// detectTables collects maximal runs of consecutive multi-cell rows.
func detectTables(rows []textRow) []models.RawTable {
	var tables []models.RawTable
	var current models.RawTable

	flush := func() {
		if len(current) >= minTableRows {
			tables = append(tables, current)
		}
		current = nil
	}
	for _, row := range rows {
		if len(row.cells) >= minTableCols {
			current = append(current, row.cells)
		} else {
			flush()
		}
	}
	flush()
	return tables
}
