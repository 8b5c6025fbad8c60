package vectorstore

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
)

// IndexDef is one index present on the embeddings table.
type IndexDef struct {
	Name string `json:"name"`
	Def  string `json:"def"`
}

// IndexStats reports the embeddings table's physical state.
type IndexStats struct {
	TableSizeBytes int64      `json:"table_size_bytes"`
	RowCount       int64      `json:"row_count"`
	Indexes        []IndexDef `json:"indexes"`
}

// autoLists derives an ivfflat partition count from the row count:
// round(sqrt(n)) clamped to [1, 100].
func autoLists(rowCount int64) int {
	lists := int(math.Round(math.Sqrt(float64(rowCount))))
	if lists < 1 {
		lists = 1
	}
	if lists > 100 {
		lists = 100
	}
	return lists
}

// RebuildIndex drops and recreates the dense ANN index, then refreshes
// planner statistics, all in one transaction. lists <= 0 auto-derives the
// partition count from the current row count. Destructive: callers must
// ensure no concurrent ingestion.
func (s *Store) RebuildIndex(ctx context.Context, lists int) error {
	if lists <= 0 {
		var count int64
		if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM document_embeddings`).Scan(&count); err != nil {
			return fmt.Errorf("count embeddings: %w", err)
		}
		lists = autoLists(count)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin rebuild: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DROP INDEX IF EXISTS document_embeddings_embedding_idx`); err != nil {
		return fmt.Errorf("drop index: %w", err)
	}
	createSQL := fmt.Sprintf(`CREATE INDEX document_embeddings_embedding_idx
		ON document_embeddings USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = %d)`, lists)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if _, err := tx.Exec(ctx, `ANALYZE document_embeddings`); err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit rebuild: %w", err)
	}

	s.logger.Info("dense index rebuilt", zap.Int("lists", lists))
	return nil
}

// GetIndexStats reports table size, row count, and the index definitions
// present on the embeddings table.
func (s *Store) GetIndexStats(ctx context.Context) (IndexStats, error) {
	var stats IndexStats

	if err := s.pool.QueryRow(ctx,
		`SELECT pg_total_relation_size('document_embeddings')`).Scan(&stats.TableSizeBytes); err != nil {
		return stats, fmt.Errorf("table size: %w", err)
	}
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM document_embeddings`).Scan(&stats.RowCount); err != nil {
		return stats, fmt.Errorf("row count: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT indexname, indexdef FROM pg_indexes
		WHERE tablename = 'document_embeddings'
	`)
	if err != nil {
		return stats, fmt.Errorf("list indexes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var def IndexDef
		if err := rows.Scan(&def.Name, &def.Def); err != nil {
			return stats, fmt.Errorf("scan index: %w", err)
		}
		stats.Indexes = append(stats.Indexes, def)
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("iterate indexes: %w", err)
	}
	return stats, nil
}
