package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"fund-report-rag/internal/extractor"
	"fund-report-rag/internal/models"
	"fund-report-rag/internal/tableparser"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePage struct {
	text      string
	tables    []models.RawTable
	textErr   error
	tablesErr error
}

func (p *fakePage) Text() (string, error) {
	return p.text, p.textErr
}

func (p *fakePage) Tables() ([]models.RawTable, error) {
	return p.tables, p.tablesErr
}

type fakeDocument struct {
	pages []*fakePage
}

func (d *fakeDocument) PageCount() int { return len(d.pages) }

func (d *fakeDocument) Page(i int) (extractor.Page, error) {
	if i < 0 || i >= len(d.pages) {
		return nil, fmt.Errorf("page %d out of range", i)
	}
	return d.pages[i], nil
}

func (d *fakeDocument) Close() error { return nil }

type fakeExtractor struct {
	doc     *fakeDocument
	openErr error
}

func (e *fakeExtractor) Open(path string) (extractor.Document, error) {
	if e.openErr != nil {
		return nil, e.openErr
	}
	return e.doc, nil
}

type fakeTxStore struct {
	calls    []models.CapitalCall
	dists    []models.Distribution
	adjs     []models.Adjustment
	saveErr  error
	saveErrs int
}

func (s *fakeTxStore) SaveCapitalCalls(ctx context.Context, calls []models.CapitalCall) error {
	if s.saveErr != nil {
		s.saveErrs++
		return s.saveErr
	}
	s.calls = append(s.calls, calls...)
	return nil
}

func (s *fakeTxStore) SaveDistributions(ctx context.Context, dists []models.Distribution) error {
	if s.saveErr != nil {
		s.saveErrs++
		return s.saveErr
	}
	s.dists = append(s.dists, dists...)
	return nil
}

func (s *fakeTxStore) SaveAdjustments(ctx context.Context, adjs []models.Adjustment) error {
	if s.saveErr != nil {
		s.saveErrs++
		return s.saveErr
	}
	s.adjs = append(s.adjs, adjs...)
	return nil
}

type fakeIndexer struct {
	contents []string
	metadata []models.ChunkMetadata
	batches  int
	addErr   error
}

func (i *fakeIndexer) AddDocuments(ctx context.Context, contents []string, metadata []models.ChunkMetadata) error {
	if i.addErr != nil {
		return i.addErr
	}
	i.batches++
	i.contents = append(i.contents, contents...)
	i.metadata = append(i.metadata, metadata...)
	return nil
}

func newTestProcessor(ext *fakeExtractor, tx *fakeTxStore, idx *fakeIndexer) *Processor {
	return New(ext, tableparser.New(), NewChunker(1000, 200), tx, idx, zap.NewNop())
}

func TestProcessDocument_DistributionsEndToEnd(t *testing.T) {
	ext := &fakeExtractor{doc: &fakeDocument{pages: []*fakePage{{
		text: "Quarterly report for the fund, covering distributions made during the period.",
		tables: []models.RawTable{{
			{"Distribution Date", "Amount", "Type", "Description"},
			{"2023-01-15", "500.00", "Cash", "Q1 distribution"},
			{"2023-04-15", "1,000.00", "Cash", "Q2 distribution"},
		}},
	}}}}
	tx := &fakeTxStore{}
	idx := &fakeIndexer{}

	result := newTestProcessor(ext, tx, idx).ProcessDocument(context.Background(), "report.pdf", 7, 3)

	assert.Equal(t, models.StatusCompleted, result.Status)
	assert.Empty(t, result.Error)
	assert.Equal(t, 1, result.Stats.Pages)
	assert.Equal(t, 1, result.Stats.Tables)
	assert.Zero(t, result.Stats.PagesSkipped)
	assert.Empty(t, result.Stats.Errors)

	require.Len(t, tx.dists, 2)
	assert.True(t, tx.dists[0].Amount.Equal(decimal.NewFromInt(500)))
	assert.True(t, tx.dists[1].Amount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, "2023-01-15", tx.dists[0].DistributionDate.Format("2006-01-02"))
	for _, d := range tx.dists {
		assert.Equal(t, int64(3), d.FundID)
	}

	require.NotEmpty(t, idx.contents)
	assert.Equal(t, len(idx.contents), result.Stats.Chunks)
	assert.Equal(t, 1, idx.batches, "all chunks should be indexed in one batch")
	var foundSummary bool
	for _, content := range idx.contents {
		if strings.Contains(content, "Table(distributions)") {
			foundSummary = true
		}
	}
	assert.True(t, foundSummary, "expected an indexed chunk containing the table summary tag")

	for _, md := range idx.metadata {
		assert.Equal(t, int64(7), md.DocumentID)
		assert.Equal(t, int64(3), md.FundID)
	}
}

func TestProcessDocument_OpenFailure(t *testing.T) {
	ext := &fakeExtractor{openErr: fmt.Errorf("parse header: %w", models.ErrMalformedPDF)}
	tx := &fakeTxStore{}
	idx := &fakeIndexer{}

	result := newTestProcessor(ext, tx, idx).ProcessDocument(context.Background(), "bad.pdf", 1, 1)

	assert.Equal(t, models.StatusFailed, result.Status)
	assert.Contains(t, result.Error, "malformed_pdf")
	assert.Zero(t, result.Stats.Pages)
	assert.Zero(t, result.Stats.Chunks)
	assert.Empty(t, tx.dists)
	assert.Empty(t, idx.contents)
}

func TestProcessDocument_OpenFailureGenericTag(t *testing.T) {
	ext := &fakeExtractor{openErr: errors.New("permission denied")}

	result := newTestProcessor(ext, &fakeTxStore{}, &fakeIndexer{}).
		ProcessDocument(context.Background(), "locked.pdf", 1, 1)

	assert.Equal(t, models.StatusFailed, result.Status)
	assert.Contains(t, result.Error, "pdf_open_error")
}

func TestProcessDocument_PageFailureSkipsAndContinues(t *testing.T) {
	ext := &fakeExtractor{doc: &fakeDocument{pages: []*fakePage{
		{textErr: errors.New("decode stream")},
		{text: "This second page extracted cleanly and has enough text to chunk."},
	}}}
	tx := &fakeTxStore{}
	idx := &fakeIndexer{}

	result := newTestProcessor(ext, tx, idx).ProcessDocument(context.Background(), "report.pdf", 1, 1)

	assert.Equal(t, models.StatusCompleted, result.Status)
	assert.Equal(t, 2, result.Stats.Pages)
	assert.Equal(t, 1, result.Stats.PagesSkipped)
	require.Len(t, result.Stats.Errors, 1)
	assert.Contains(t, result.Stats.Errors[0], "page_1")
	assert.NotEmpty(t, idx.contents)
}

func TestProcessDocument_TableSaveFailureIsIsolated(t *testing.T) {
	ext := &fakeExtractor{doc: &fakeDocument{pages: []*fakePage{{
		text: "Report text for the page, long enough to produce a chunk of its own.",
		tables: []models.RawTable{{
			{"Call Date", "Amount", "Type", "Description"},
			{"2023-01-15", "250.00", "Initial", "First drawdown"},
		}},
	}}}}
	tx := &fakeTxStore{saveErr: errors.New("connection reset")}
	idx := &fakeIndexer{}

	result := newTestProcessor(ext, tx, idx).ProcessDocument(context.Background(), "report.pdf", 1, 1)

	// A failed batch is recorded but does not fail the run or stop indexing.
	assert.Equal(t, models.StatusCompleted, result.Status)
	assert.Equal(t, 1, result.Stats.Tables)
	require.Len(t, result.Stats.Errors, 1)
	assert.Contains(t, result.Stats.Errors[0], "table_page_1")
	assert.Equal(t, 1, tx.saveErrs)
	assert.NotEmpty(t, idx.contents)
}

func TestProcessDocument_IndexingFailureFailsRun(t *testing.T) {
	ext := &fakeExtractor{doc: &fakeDocument{pages: []*fakePage{{
		text: "Enough page text here to produce at least one chunk for indexing.",
	}}}}
	idx := &fakeIndexer{addErr: errors.New("embedding service unavailable")}

	result := newTestProcessor(ext, &fakeTxStore{}, idx).
		ProcessDocument(context.Background(), "report.pdf", 1, 1)

	assert.Equal(t, models.StatusFailed, result.Status)
	assert.Contains(t, result.Error, "embedding service unavailable")
}

func TestProcessDocument_MissingDateDefaultsToIngestionDay(t *testing.T) {
	ext := &fakeExtractor{doc: &fakeDocument{pages: []*fakePage{{
		tables: []models.RawTable{{
			{"Call Date", "Amount", "Type", "Description"},
			{"", "100.00", "Initial", "Drawdown without a date"},
		}},
	}}}}
	tx := &fakeTxStore{}

	p := newTestProcessor(ext, tx, &fakeIndexer{})
	result := p.ProcessDocument(context.Background(), "report.pdf", 1, 1)

	assert.Equal(t, models.StatusCompleted, result.Status)
	require.Len(t, tx.calls, 1)
	assert.Equal(t, time.Now().UTC().Truncate(24*time.Hour), tx.calls[0].CallDate)
}
