package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TableType classifies the financial content of a parsed table.
type TableType string

const (
	TableCapitalCalls  TableType = "capital_calls"
	TableDistributions TableType = "distributions"
	TableAdjustments   TableType = "adjustments"
	TableUnknown       TableType = "unknown"
)

// RawTable is the cell grid a page extractor recovers from a PDF page.
// Rows may be ragged and cells may be empty.
type RawTable [][]string

// ParsedTable is a normalized table: every row has exactly len(Headers) cells.
type ParsedTable struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
	Type    TableType  `json:"type"`
}

// TextChunk is one chunkable unit of page text (or a table summary) before
// embedding. ChunkIndex is assigned in page order, then in-page order.
type TextChunk struct {
	Content    string    `json:"content"`
	Page       int       `json:"page"`
	Section    string    `json:"section"` // "text" or "table"
	TableType  TableType `json:"table_type,omitempty"`
	ChunkIndex int       `json:"chunk_index"`
}

// ChunkMetadata is stored alongside each embedded chunk and returned with
// search results for citation.
type ChunkMetadata struct {
	DocumentID int64     `json:"document_id"`
	FundID     int64     `json:"fund_id"`
	Page       int       `json:"page"`
	Section    string    `json:"section"`
	ChunkIndex int       `json:"chunk_index"`
	TableType  TableType `json:"table_type,omitempty"`
}

// SearchFilter restricts retrieval to a document, a fund, or an explicit
// document id list. Zero values mean "no restriction".
type SearchFilter struct {
	DocumentID  int64
	FundID      int64
	DocumentIDs []int64
}

// SearchResult is one retrieval candidate. Score semantics depend on the
// strategy that produced it (cosine similarity, ts_rank, trigram similarity,
// or fused reciprocal rank) and are not comparable across strategies.
type SearchResult struct {
	ID         int64         `json:"id"`
	DocumentID int64         `json:"document_id"`
	FundID     int64         `json:"fund_id"`
	Content    string        `json:"content"`
	Metadata   ChunkMetadata `json:"metadata"`
	Score      float64       `json:"score"`
}

// SearchWeights are the per-strategy weights used by hybrid fusion.
type SearchWeights struct {
	Dense   float64 `json:"dense"`
	Lexical float64 `json:"lexical"`
	Pattern float64 `json:"pattern"`
}

// DefaultSearchWeights weighs all three strategies equally.
func DefaultSearchWeights() SearchWeights {
	return SearchWeights{Dense: 1.0, Lexical: 1.0, Pattern: 1.0}
}

// CapitalCall is a drawdown of committed capital.
type CapitalCall struct {
	ID          int64           `json:"id"`
	FundID      int64           `json:"fund_id"`
	CallDate    time.Time       `json:"call_date"`
	CallType    string          `json:"call_type,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

// Distribution is a payout from the fund to its investors.
type Distribution struct {
	ID               int64           `json:"id"`
	FundID           int64           `json:"fund_id"`
	DistributionDate time.Time       `json:"distribution_date"`
	DistributionType string          `json:"distribution_type,omitempty"`
	IsRecallable     bool            `json:"is_recallable"`
	Amount           decimal.Decimal `json:"amount"`
	Description      string          `json:"description,omitempty"`
}

// Adjustment is a fee, expense, or contra-entry against paid-in capital.
type Adjustment struct {
	ID                       int64           `json:"id"`
	FundID                   int64           `json:"fund_id"`
	AdjustmentDate           time.Time       `json:"adjustment_date"`
	AdjustmentType           string          `json:"adjustment_type,omitempty"`
	Category                 string          `json:"category,omitempty"`
	Amount                   decimal.Decimal `json:"amount"`
	IsContributionAdjustment bool            `json:"is_contribution_adjustment"`
	Description              string          `json:"description,omitempty"`
}

// Metrics is the full performance set for a fund. Pointer fields are nil when
// the underlying data cannot support the calculation (e.g. IRR without a sign
// change in the cash-flow series, NAV without a valuation feed).
type Metrics struct {
	PIC                float64  `json:"pic"`
	DPI                float64  `json:"dpi"`
	IRR                *float64 `json:"irr"`
	TVPI               *float64 `json:"tvpi"`
	RVPI               *float64 `json:"rvpi"`
	NAV                *float64 `json:"nav"`
	TotalDistributions float64  `json:"total_distributions"`
}

// QueryIntent routes a query to the right answering strategy.
type QueryIntent string

const (
	IntentCalculation QueryIntent = "calculation"
	IntentDefinition  QueryIntent = "definition"
	IntentRetrieval   QueryIntent = "retrieval"
	IntentGeneral     QueryIntent = "general"
)

// QueryResponse is the answer to one query. Metrics is non-nil only for
// calculation intent.
type QueryResponse struct {
	Answer  string         `json:"answer"`
	Intent  QueryIntent    `json:"intent"`
	Metrics *Metrics       `json:"metrics,omitempty"`
	Sources []SearchResult `json:"sources"`
}

// ChatMessage is one turn of a stored conversation.
type ChatMessage struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
}

// Conversation groups chat messages for one fund.
type Conversation struct {
	ID        string    `json:"id"`
	FundID    int64     `json:"fund_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Fund is the owning entity for documents and transactions.
type Fund struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Document parsing statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Document is an uploaded report file and its parsing state.
type Document struct {
	ID            int64     `json:"id"`
	FundID        int64     `json:"fund_id"`
	FileName      string    `json:"file_name"`
	FilePath      string    `json:"file_path"`
	ParsingStatus string    `json:"parsing_status"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

// ProcessStats aggregates per-document ingestion outcomes.
type ProcessStats struct {
	Pages        int      `json:"pages"`
	Tables       int      `json:"tables"`
	Chunks       int      `json:"chunks"`
	PagesSkipped int      `json:"pages_skipped"`
	Errors       []string `json:"errors"`
}

// ProcessResult is the outcome of one document ingestion run. Per-page and
// per-table failures surface only in Stats; Error is set only when the whole
// run failed.
type ProcessResult struct {
	Status string       `json:"status"` // StatusCompleted or StatusFailed
	Error  string       `json:"error,omitempty"`
	Stats  ProcessStats `json:"stats"`
}
