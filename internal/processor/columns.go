package processor

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const maxDescriptionLen = 1000

var (
	dateHeaderKeys   = []string{"date", "tgl", "call date", "distribution date", "adjustment date"}
	amountHeaderKeys = []string{"amount", "amt", "nominal", "usd", "$", "value"}
	typeHeaderKeys   = []string{"type", "category", "class", "desc", "description"}
)

// columnMap holds inferred column indices; -1 means not found.
type columnMap struct {
	date        int
	amount      int
	typ         int
	description int
}

// inferColumnIndices scans headers left to right and assigns the first header
// matching each slot's keyword list. A type-ish header also claims the
// description slot when no header claimed it earlier, so a single "Desc"
// column can serve both.
func inferColumnIndices(headers []string) columnMap {
	cm := columnMap{date: -1, amount: -1, typ: -1, description: -1}
	for i, h := range headers {
		hl := strings.ToLower(h)
		if cm.date == -1 && containsAny(hl, dateHeaderKeys) {
			cm.date = i
		}
		if cm.amount == -1 && containsAny(hl, amountHeaderKeys) {
			cm.amount = i
		}
		if containsAny(hl, typeHeaderKeys) {
			if cm.typ == -1 {
				cm.typ = i
			}
			if cm.description == -1 {
				cm.description = i
			}
		}
	}
	return cm
}

func containsAny(s string, keys []string) bool {
	for _, k := range keys {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// rowData is the normalized transaction signal pulled from one table row.
type rowData struct {
	date        *time.Time
	amount      *decimal.Decimal
	txType      string
	description string
}

// extractRowData pulls date/amount/type/description via the inferred indices.
// It returns false when the row carries no signal at all (no parseable
// amount, no type, no description), so near-blank rows are dropped.
func extractRowData(row []string, cm columnMap) (rowData, bool) {
	if len(row) == 0 {
		return rowData{}, false
	}

	var data rowData
	if cm.date >= 0 && cm.date < len(row) {
		if d, ok := parseDate(row[cm.date]); ok {
			data.date = &d
		}
	}
	if cm.amount >= 0 && cm.amount < len(row) {
		if a, ok := parseAmount(row[cm.amount]); ok {
			data.amount = &a
		}
	}
	if cm.typ >= 0 && cm.typ < len(row) {
		data.txType = strings.TrimSpace(row[cm.typ])
	}
	if cm.description >= 0 && cm.description < len(row) {
		data.description = strings.TrimSpace(row[cm.description])
	}

	if data.amount == nil && data.txType == "" && data.description == "" {
		return rowData{}, false
	}

	if len(data.description) > maxDescriptionLen {
		data.description = data.description[:maxDescriptionLen]
	}
	return data, true
}
