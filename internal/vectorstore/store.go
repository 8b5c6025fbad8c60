package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"fund-report-rag/internal/models"
)

// Embedder turns text into a fixed-length vector. Dimension must be constant
// for the life of the store; the vector column width is fixed at Init.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// BatchEmbedder embeds many texts in one call, preserving input order.
// Embedders that implement it get used for bulk ingestion.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Store keeps embedded chunks in Postgres and retrieves them through three
// strategies: cosine similarity over an ivfflat index, full-text ranking, and
// trigram fuzzy matching, fused with Reciprocal Rank Fusion.
type Store struct {
	pool      *pgxpool.Pool
	embedder  Embedder
	threshold float64 // trigram similarity cutoff for pattern search
	logger    *zap.Logger
}

func New(pool *pgxpool.Pool, embedder Embedder, trigramThreshold float64, logger *zap.Logger) *Store {
	if trigramThreshold <= 0 {
		trigramThreshold = 0.3
	}
	return &Store{pool: pool, embedder: embedder, threshold: trigramThreshold, logger: logger}
}

// Init enables the vector and trigram extensions and creates the embeddings
// table plus its three indexes. Safe to call repeatedly.
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE EXTENSION IF NOT EXISTS pg_trgm`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_embeddings (
			id BIGSERIAL PRIMARY KEY,
			document_id BIGINT,
			fund_id BIGINT,
			content TEXT NOT NULL,
			embedding vector(%d),
			metadata JSONB,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`, s.embedder.Dimension()),
		`CREATE INDEX IF NOT EXISTS document_embeddings_embedding_idx
			ON document_embeddings USING ivfflat (embedding vector_cosine_ops)
			WITH (lists = 100)`,
		`CREATE INDEX IF NOT EXISTS document_embeddings_tsv_idx
			ON document_embeddings USING GIN (to_tsvector('simple', content))`,
		`CREATE INDEX IF NOT EXISTS document_embeddings_trgm_idx
			ON document_embeddings USING GIN (content gin_trgm_ops)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("initialize vector store: %w", err)
		}
	}
	return nil
}

// AddDocument embeds content and appends it with its metadata. Errors
// propagate: a failed ingestion write must be visible upstream so a retry can
// be considered.
func (s *Store) AddDocument(ctx context.Context, content string, metadata models.ChunkMetadata) error {
	return s.AddDocuments(ctx, []string{content}, []models.ChunkMetadata{metadata})
}

// AddDocuments embeds and appends a batch of chunks in one pass. Embedders
// that support batching embed all contents concurrently; the inserts run as
// a single database batch. Errors propagate, as with AddDocument.
func (s *Store) AddDocuments(ctx context.Context, contents []string, metadata []models.ChunkMetadata) error {
	if len(contents) != len(metadata) {
		return fmt.Errorf("add documents: %d contents for %d metadata entries", len(contents), len(metadata))
	}
	if len(contents) == 0 {
		return nil
	}

	embeddings, err := s.embed(ctx, contents)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for i, content := range contents {
		md, err := json.Marshal(metadata[i])
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		batch.Queue(`
			INSERT INTO document_embeddings (document_id, fund_id, content, embedding, metadata)
			VALUES ($1, $2, $3, $4, $5)
		`, metadata[i].DocumentID, metadata[i].FundID, content, pgvector.NewVector(embeddings[i]), md)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range contents {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert embedding: %w", err)
		}
	}
	return nil
}

func (s *Store) embed(ctx context.Context, contents []string) ([][]float32, error) {
	if batcher, ok := s.embedder.(BatchEmbedder); ok {
		embeddings, err := batcher.EmbedBatch(ctx, contents)
		if err != nil {
			return nil, fmt.Errorf("embed batch: %w", err)
		}
		return embeddings, nil
	}
	embeddings := make([][]float32, len(contents))
	for i, content := range contents {
		embedding, err := s.embedder.Embed(ctx, content)
		if err != nil {
			return nil, fmt.Errorf("embed content: %w", err)
		}
		embeddings[i] = embedding
	}
	return embeddings, nil
}

// SimilaritySearch ranks chunks by cosine similarity to the query embedding,
// score = 1 - cosine distance.
func (s *Store) SimilaritySearch(ctx context.Context, query string, k int, filter models.SearchFilter) ([]models.SearchResult, error) {
	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	args := []any{pgvector.NewVector(embedding)}
	where, args := buildFilterClause(filter, args)
	args = append(args, k)

	sql := fmt.Sprintf(`
		SELECT id, document_id, fund_id, content, metadata,
		       1 - (embedding <=> $1) AS score
		FROM document_embeddings
		%s
		ORDER BY embedding <=> $1
		LIMIT $%d
	`, where, len(args))

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	return scanResults(rows)
}

// LexicalSearch ranks chunks with Postgres full-text search. The query goes
// through websearch_to_tsquery, which tolerates arbitrary user input; a NULL
// rank coerces to 0.
func (s *Store) LexicalSearch(ctx context.Context, query string, k int, filter models.SearchFilter) ([]models.SearchResult, error) {
	args := []any{query}
	where, args := buildFilterClause(filter, args)
	args = append(args, k)

	sql := fmt.Sprintf(`
		SELECT id, document_id, fund_id, content, metadata,
		       COALESCE(ts_rank(to_tsvector('simple', content), websearch_to_tsquery('simple', $1)), 0.0) AS score
		FROM document_embeddings
		%s
		ORDER BY score DESC
		LIMIT $%d
	`, where, len(args))

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	return scanResults(rows)
}

// PatternSearch ranks chunks by trigram similarity to the raw query string,
// keeping only matches at or above the store's threshold.
func (s *Store) PatternSearch(ctx context.Context, query string, k int, filter models.SearchFilter) ([]models.SearchResult, error) {
	args := []any{query}
	where, args := buildFilterClause(filter, args)
	args = append(args, s.threshold)
	thresholdIdx := len(args)
	args = append(args, k)

	cond := fmt.Sprintf("content %% $1 AND similarity(content, $1) >= $%d", thresholdIdx)
	if where == "" {
		where = "WHERE " + cond
	} else {
		where = where + " AND " + cond
	}

	sql := fmt.Sprintf(`
		SELECT id, document_id, fund_id, content, metadata,
		       similarity(content, $1) AS score
		FROM document_embeddings
		%s
		ORDER BY score DESC
		LIMIT $%d
	`, where, len(args))

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("pattern search: %w", err)
	}
	return scanResults(rows)
}

// HybridSearch fuses the three strategies with Reciprocal Rank Fusion. A
// failing strategy contributes an empty list rather than aborting fusion, so
// answering can proceed on whatever context survives.
func (s *Store) HybridSearch(ctx context.Context, query string, k int, filter models.SearchFilter, weights models.SearchWeights) []models.SearchResult {
	pool := k
	if pool < 10 {
		pool = 10
	}

	dense, err := s.SimilaritySearch(ctx, query, pool, filter)
	if err != nil {
		s.logger.Warn("dense search failed", zap.Error(err))
		dense = nil
	}
	lexical, err := s.LexicalSearch(ctx, query, pool, filter)
	if err != nil {
		s.logger.Warn("lexical search failed", zap.Error(err))
		lexical = nil
	}
	pattern, err := s.PatternSearch(ctx, query, pool, filter)
	if err != nil {
		s.logger.Warn("pattern search failed", zap.Error(err))
		pattern = nil
	}

	return fuseRanked(dense, lexical, pattern, weights, k)
}

// Clear deletes all embeddings, or only one fund's when fundID is non-zero.
// Failures are logged and swallowed.
func (s *Store) Clear(ctx context.Context, fundID int64) {
	var err error
	if fundID != 0 {
		_, err = s.pool.Exec(ctx, `DELETE FROM document_embeddings WHERE fund_id = $1`, fundID)
	} else {
		_, err = s.pool.Exec(ctx, `DELETE FROM document_embeddings`)
	}
	if err != nil {
		s.logger.Error("clear vector store failed", zap.Int64("fund_id", fundID), zap.Error(err))
	}
}

// buildFilterClause renders the metadata filter as a WHERE clause, appending
// parameters to args. Supported: exact document_id/fund_id and an inclusion
// list of document ids.
func buildFilterClause(filter models.SearchFilter, args []any) (string, []any) {
	var conds []string
	if filter.DocumentID != 0 {
		args = append(args, filter.DocumentID)
		conds = append(conds, fmt.Sprintf("document_id = $%d", len(args)))
	}
	if filter.FundID != 0 {
		args = append(args, filter.FundID)
		conds = append(conds, fmt.Sprintf("fund_id = $%d", len(args)))
	}
	if len(filter.DocumentIDs) > 0 {
		args = append(args, filter.DocumentIDs)
		conds = append(conds, fmt.Sprintf("document_id = ANY($%d)", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func scanResults(rows pgx.Rows) ([]models.SearchResult, error) {
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		var (
			r  models.SearchResult
			md []byte
		)
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.FundID, &r.Content, &md, &r.Score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if len(md) > 0 {
			if err := json.Unmarshal(md, &r.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata: %w", err)
			}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}
