package tableparser

import (
	"testing"

	"fund-report-rag/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTable_RowWidthInvariant(t *testing.T) {
	p := New()

	raw := models.RawTable{
		{"Call Date", "Amount", "Type", "Description"},
		{"2023-01-15", "100"},
		{"2023-02-15", "200", "Initial", "First drawdown", "extra cell"},
		{"", "", "", ""},
	}

	table := p.ParseTable(raw)
	require.Len(t, table.Headers, 4)
	require.Len(t, table.Rows, 2)
	for _, row := range table.Rows {
		assert.Len(t, row, len(table.Headers))
	}
}

func TestParseTable_HeaderDetection(t *testing.T) {
	p := New()

	// Preamble rows before the real header must be discarded.
	raw := models.RawTable{
		{"Fund Report Q4 2023"},
		{""},
		{"Distribution Date", "Amount", "Type", "Description"},
		{"2023-12-01", "500", "Cash", "Quarterly"},
	}

	table := p.ParseTable(raw)
	assert.Equal(t, []string{"Distribution Date", "Amount", "Type", "Description"}, table.Headers)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "2023-12-01", table.Rows[0][0])
}

func TestParseTable_PruneEmptyColumns(t *testing.T) {
	p := New()

	raw := models.RawTable{
		{"Call Date", "", "Amount"},
		{"2023-01-15", "stray", "100"},
	}

	table := p.ParseTable(raw)
	assert.Equal(t, []string{"Call Date", "Amount"}, table.Headers)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, []string{"2023-01-15", "100"}, table.Rows[0])
}

func TestParseTable_EmptyGrid(t *testing.T) {
	p := New()

	for _, raw := range []models.RawTable{nil, {}, {{""}, {"", ""}}} {
		table := p.ParseTable(raw)
		assert.Empty(t, table.Headers)
		assert.Empty(t, table.Rows)
		assert.Equal(t, models.TableUnknown, table.Type)
	}
}

func TestClassifyTable(t *testing.T) {
	p := New()

	tests := []struct {
		name    string
		headers []string
		rows    [][]string
		want    models.TableType
	}{
		{
			name:    "capital calls by header",
			headers: []string{"Call Date", "Amount", "Type", "Description"},
			want:    models.TableCapitalCalls,
		},
		{
			name:    "distributions by header",
			headers: []string{"Distribution Date", "Amount", "Type", "Description"},
			want:    models.TableDistributions,
		},
		{
			name:    "adjustments by header",
			headers: []string{"Adjustment Date", "Amount", "Category", "Description"},
			want:    models.TableAdjustments,
		},
		{
			name:    "generic headers stay unknown",
			headers: []string{"Col1", "Col2", "Col3"},
			want:    models.TableUnknown,
		},
		{
			name:    "structural headers without category signal stay unknown",
			headers: []string{"Date", "Amount", "Type"},
			rows:    [][]string{{"2023-01-15", "100", "Misc"}},
			want:    models.TableUnknown,
		},
		{
			name:    "signal in data rows",
			headers: []string{"Date", "Amount", "Type"},
			rows:    [][]string{{"2023-01-15", "100", "Management fee"}},
			want:    models.TableAdjustments,
		},
		{
			name: "empty table",
			want: models.TableUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.ClassifyTable(models.ParsedTable{Headers: tt.headers, Rows: tt.rows})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyTable_OnlyFirstThreeRowsCount(t *testing.T) {
	p := New()

	table := models.ParsedTable{
		Headers: []string{"Col1", "Col2"},
		Rows: [][]string{
			{"x", "y"},
			{"x", "y"},
			{"x", "y"},
			{"capital call drawdown", "contribution"},
		},
	}
	assert.Equal(t, models.TableUnknown, p.ClassifyTable(table))
}

func TestParseTables(t *testing.T) {
	p := New()

	raws := []models.RawTable{
		{{"Call Date", "Amount"}, {"2023-01-15", "100"}},
		{{"Distribution Date", "Amount"}, {"2023-02-15", "200"}},
	}

	parsed := p.ParseTables(raws)
	require.Len(t, parsed, 2)
	assert.Equal(t, models.TableCapitalCalls, parsed[0].Type)
	assert.Equal(t, models.TableDistributions, parsed[1].Type)
}
