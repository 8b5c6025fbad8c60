package tableparser

import (
	"strings"

	"fund-report-rag/internal/models"
)

// headerKeywords raise a row's header score; financial report tables almost
// always name these columns.
var headerKeywords = []string{
	"date", "amount", "type", "description", "category",
	"call", "distribution", "adjustment", "usd", "value",
}

// strongKeywords carry the real classification signal, weighted 3.
var strongKeywords = map[models.TableType][]string{
	models.TableCapitalCalls:  {"capital call", "drawdown", "contribution", "called", "call date"},
	models.TableDistributions: {"distribution", "proceeds", "return", "paid", "dist."},
	models.TableAdjustments:   {"adjustment", "management fee", "fee", "expense", "nav"},
}

// genericKeywords are weak structural hints, weighted 1. The synonym groups
// count once each so a bare date/amount/type layout cannot outscore a table
// with a real category keyword.
var genericKeywords = [][]string{
	{"amount"},
	{"date"},
	{"type", "category", "description"},
}

// classifyThreshold is the minimum winning score; anything weaker degrades to
// TableUnknown rather than guessing.
const classifyThreshold = 3

var categoryOrder = []models.TableType{
	models.TableCapitalCalls,
	models.TableDistributions,
	models.TableAdjustments,
}

// Parser normalizes raw cell grids into header+rows tables and classifies
// their financial type. Parsing never fails: malformed or ambiguous input
// degrades to empty headers/rows or an unknown type.
type Parser struct{}

func New() *Parser {
	return &Parser{}
}

// ParseTable normalizes one raw grid. The best-scoring row becomes the
// header; every later non-empty row is padded or truncated to header width.
func (p *Parser) ParseTable(raw models.RawTable) models.ParsedTable {
	headerIdx := findHeaderRow(raw)
	if headerIdx < 0 {
		return models.ParsedTable{Type: models.TableUnknown}
	}

	headers := normalizeRow(raw[headerIdx])
	var rows [][]string
	for _, r := range raw[headerIdx+1:] {
		row := normalizeRow(r)
		if isEmptyRow(row) {
			continue
		}
		rows = append(rows, fitToWidth(row, len(headers)))
	}

	headers, rows = pruneEmptyColumns(headers, rows)

	table := models.ParsedTable{Headers: headers, Rows: rows}
	table.Type = p.ClassifyTable(table)
	return table
}

// ParseTables batch-parses a page's grids.
func (p *Parser) ParseTables(raws []models.RawTable) []models.ParsedTable {
	parsed := make([]models.ParsedTable, 0, len(raws))
	for _, raw := range raws {
		parsed = append(parsed, p.ParseTable(raw))
	}
	return parsed
}

// ClassifyTable scores each category over the headers plus the first three
// data rows and returns the argmax, or TableUnknown below the threshold.
func (p *Parser) ClassifyTable(table models.ParsedTable) models.TableType {
	blob := classificationBlob(table)
	if blob == "" {
		return models.TableUnknown
	}

	best := models.TableUnknown
	bestScore := 0
	for _, category := range categoryOrder {
		score := 0
		for _, kw := range strongKeywords[category] {
			if strings.Contains(blob, kw) {
				score += 3
			}
		}
		// Generic hits alone never qualify a category: a bare
		// date/amount/type layout says nothing about which one.
		if score == 0 {
			continue
		}
		for _, group := range genericKeywords {
			for _, kw := range group {
				if strings.Contains(blob, kw) {
					score++
					break
				}
			}
		}
		if score > bestScore {
			best = category
			bestScore = score
		}
	}

	if bestScore < classifyThreshold {
		return models.TableUnknown
	}
	return best
}

// findHeaderRow returns the index of the row with the highest header score,
// or -1 when the grid has no non-empty row. Ties keep the earliest row since
// only strictly greater scores replace the current best.
func findHeaderRow(raw models.RawTable) int {
	best := -1
	bestScore := 0
	for i, r := range raw {
		score := headerScore(normalizeRow(r))
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	return best
}

func headerScore(row []string) int {
	nonEmpty := 0
	keywordHits := 0
	for _, cell := range row {
		if cell == "" {
			continue
		}
		nonEmpty++
		lower := strings.ToLower(cell)
		for _, kw := range headerKeywords {
			if strings.Contains(lower, kw) {
				keywordHits++
			}
		}
	}
	return nonEmpty + 2*keywordHits
}

func normalizeRow(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = strings.TrimSpace(cell)
	}
	return out
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}

// fitToWidth right-pads with empty cells or truncates so every data row has
// exactly the header width.
func fitToWidth(row []string, width int) []string {
	if len(row) == width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}

// pruneEmptyColumns drops columns whose header is empty, unless that would
// leave zero columns.
func pruneEmptyColumns(headers []string, rows [][]string) ([]string, [][]string) {
	var keep []int
	for i, h := range headers {
		if h != "" {
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 || len(keep) == len(headers) {
		return headers, rows
	}

	newHeaders := make([]string, len(keep))
	for j, i := range keep {
		newHeaders[j] = headers[i]
	}
	newRows := make([][]string, len(rows))
	for ri, row := range rows {
		newRow := make([]string, len(keep))
		for j, i := range keep {
			newRow[j] = row[i]
		}
		newRows[ri] = newRow
	}
	return newHeaders, newRows
}

// classificationBlob joins lowercased headers and up to three data rows.
func classificationBlob(table models.ParsedTable) string {
	var sb strings.Builder
	for _, h := range table.Headers {
		sb.WriteString(h)
		sb.WriteString(" ")
	}
	for i, row := range table.Rows {
		if i >= 3 {
			break
		}
		for _, cell := range row {
			sb.WriteString(cell)
			sb.WriteString(" ")
		}
	}
	return strings.ToLower(strings.TrimSpace(sb.String()))
}
