package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fund-report-rag/internal/extractor"
	"fund-report-rag/internal/models"
	"fund-report-rag/internal/tableparser"
)

// maxSummaryRows caps how many data rows a table summary chunk carries.
const maxSummaryRows = 10

// TransactionStore persists classified table rows. Each Save call is one
// batch: implementations commit the whole batch or roll it back.
type TransactionStore interface {
	SaveCapitalCalls(ctx context.Context, calls []models.CapitalCall) error
	SaveDistributions(ctx context.Context, dists []models.Distribution) error
	SaveAdjustments(ctx context.Context, adjs []models.Adjustment) error
}

// ChunkIndexer receives a document's text chunks for embedding and
// retrieval, one batch per document. Failures must propagate so the caller
// can consider a retry.
type ChunkIndexer interface {
	AddDocuments(ctx context.Context, contents []string, metadata []models.ChunkMetadata) error
}

// Processor runs the page-by-page ingestion pipeline: extract text and
// tables, classify and persist transaction rows, chunk everything (tables as
// pipe-joined summaries) and feed the chunks to the indexer.
type Processor struct {
	extractor extractor.Extractor
	parser    *tableparser.Parser
	chunker   *Chunker
	txStore   TransactionStore
	indexer   ChunkIndexer
	logger    *zap.Logger

	now func() time.Time
}

func New(ext extractor.Extractor, parser *tableparser.Parser, chunker *Chunker,
	txStore TransactionStore, indexer ChunkIndexer, logger *zap.Logger) *Processor {
	return &Processor{
		extractor: ext,
		parser:    parser,
		chunker:   chunker,
		txStore:   txStore,
		indexer:   indexer,
		logger:    logger,
		now:       time.Now,
	}
}

// ProcessDocument ingests one file. A structural open failure fails the whole
// run with zero stats; a failing page or table is skipped and recorded while
// the run continues. Indexing failures fail the run since the caller may want
// to retry.
func (p *Processor) ProcessDocument(ctx context.Context, filePath string, documentID, fundID int64) models.ProcessResult {
	stats := models.ProcessStats{Errors: []string{}}

	doc, err := p.extractor.Open(filePath)
	if err != nil {
		tag := "pdf_open_error"
		if errors.Is(err, models.ErrMalformedPDF) {
			tag = "malformed_pdf"
		}
		p.logger.Warn("document open failed",
			zap.Int64("document_id", documentID), zap.Error(err))
		return models.ProcessResult{
			Status: models.StatusFailed,
			Error:  fmt.Sprintf("%s: %v", tag, err),
			Stats:  stats,
		}
	}
	defer doc.Close()

	stats.Pages = doc.PageCount()

	var units []textUnit
	for i := 0; i < doc.PageCount(); i++ {
		pageNum := i + 1
		pageUnits, tables, pageErr := p.processPage(ctx, doc, i, fundID, &stats)
		if pageErr != nil {
			stats.PagesSkipped++
			stats.Errors = append(stats.Errors, fmt.Sprintf("page_%d: %v", pageNum, pageErr))
			p.logger.Warn("page skipped",
				zap.Int64("document_id", documentID),
				zap.Int("page", pageNum), zap.Error(pageErr))
			continue
		}
		stats.Tables += tables
		units = append(units, pageUnits...)
	}

	chunks := p.chunker.Chunk(units)
	contents := make([]string, len(chunks))
	metadata := make([]models.ChunkMetadata, len(chunks))
	for i, chunk := range chunks {
		contents[i] = chunk.Content
		metadata[i] = models.ChunkMetadata{
			DocumentID: documentID,
			FundID:     fundID,
			Page:       chunk.Page,
			Section:    chunk.Section,
			ChunkIndex: chunk.ChunkIndex,
			TableType:  chunk.TableType,
		}
	}
	if err := p.indexer.AddDocuments(ctx, contents, metadata); err != nil {
		p.logger.Error("chunk indexing failed",
			zap.Int64("document_id", documentID),
			zap.Int("chunks", len(chunks)), zap.Error(err))
		return models.ProcessResult{Status: models.StatusFailed, Error: err.Error(), Stats: stats}
	}
	stats.Chunks = len(chunks)

	p.logger.Info("document processed",
		zap.Int64("document_id", documentID),
		zap.Int64("fund_id", fundID),
		zap.Int("pages", stats.Pages),
		zap.Int("tables", stats.Tables),
		zap.Int("chunks", stats.Chunks),
		zap.Int("pages_skipped", stats.PagesSkipped))

	return models.ProcessResult{Status: models.StatusCompleted, Stats: stats}
}

// processPage extracts one page's text and tables. An extraction error skips
// the whole page; a persistence error skips only that table's batch and is
// recorded in stats.
func (p *Processor) processPage(ctx context.Context, doc extractor.Document, idx int,
	fundID int64, stats *models.ProcessStats) ([]textUnit, int, error) {

	page, err := doc.Page(idx)
	if err != nil {
		return nil, 0, err
	}

	pageNum := idx + 1
	var units []textUnit

	text, err := page.Text()
	if err != nil {
		return nil, 0, err
	}
	if strings.TrimSpace(text) != "" {
		units = append(units, textUnit{text: text, page: pageNum, section: "text"})
	}

	raws, err := page.Tables()
	if err != nil {
		return nil, 0, err
	}

	parsed := p.parser.ParseTables(raws)
	for _, table := range parsed {
		if err := p.saveTable(ctx, fundID, table); err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("table_page_%d: %v", pageNum, err))
			p.logger.Warn("table batch skipped",
				zap.Int("page", pageNum),
				zap.String("table_type", string(table.Type)), zap.Error(err))
		}
		if summary := tableSummary(table); summary != "" {
			units = append(units, textUnit{
				text:      summary,
				page:      pageNum,
				section:   "table",
				tableType: table.Type,
			})
		}
	}
	return units, len(parsed), nil
}

// saveTable persists one classified table's rows as a single batch.
// Unrecognized types and empty tables are a no-op, not an error.
func (p *Processor) saveTable(ctx context.Context, fundID int64, table models.ParsedTable) error {
	if len(table.Rows) == 0 {
		return nil
	}
	cm := inferColumnIndices(table.Headers)
	ingested := p.now().UTC().Truncate(24 * time.Hour)

	switch table.Type {
	case models.TableCapitalCalls:
		var calls []models.CapitalCall
		for _, row := range table.Rows {
			data, ok := extractRowData(row, cm)
			if !ok {
				continue
			}
			calls = append(calls, models.CapitalCall{
				FundID:      fundID,
				CallDate:    orDate(data.date, ingested),
				CallType:    data.txType,
				Amount:      orZero(data.amount),
				Description: data.description,
			})
		}
		if len(calls) == 0 {
			return nil
		}
		return p.txStore.SaveCapitalCalls(ctx, calls)

	case models.TableDistributions:
		var dists []models.Distribution
		for _, row := range table.Rows {
			data, ok := extractRowData(row, cm)
			if !ok {
				continue
			}
			dists = append(dists, models.Distribution{
				FundID:           fundID,
				DistributionDate: orDate(data.date, ingested),
				DistributionType: data.txType,
				Amount:           orZero(data.amount),
				Description:      data.description,
			})
		}
		if len(dists) == 0 {
			return nil
		}
		return p.txStore.SaveDistributions(ctx, dists)

	case models.TableAdjustments:
		var adjs []models.Adjustment
		for _, row := range table.Rows {
			data, ok := extractRowData(row, cm)
			if !ok {
				continue
			}
			adjs = append(adjs, models.Adjustment{
				FundID:         fundID,
				AdjustmentDate: orDate(data.date, ingested),
				AdjustmentType: data.txType,
				Amount:         orZero(data.amount),
				Description:    data.description,
			})
		}
		if len(adjs) == 0 {
			return nil
		}
		return p.txStore.SaveAdjustments(ctx, adjs)
	}
	return nil
}

// tableSummary renders a table as searchable prose: a tag line, the
// pipe-joined header, and up to maxSummaryRows pipe-joined data rows.
func tableSummary(table models.ParsedTable) string {
	if len(table.Headers) == 0 && len(table.Rows) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Table(%s)\n", table.Type))
	sb.WriteString(strings.Join(table.Headers, " | "))
	for i, row := range table.Rows {
		if i >= maxSummaryRows {
			break
		}
		sb.WriteString("\n")
		sb.WriteString(strings.Join(row, " | "))
	}
	return sb.String()
}

func orDate(d *time.Time, fallback time.Time) time.Time {
	if d != nil {
		return *d
	}
	return fallback
}

func orZero(a *decimal.Decimal) decimal.Decimal {
	if a != nil {
		return *a
	}
	return decimal.Zero
}
