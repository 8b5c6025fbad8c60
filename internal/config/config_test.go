package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.ServerAddr)
	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, 768, cfg.EmbeddingDim)
	assert.Equal(t, 5, cfg.TopKResults)
	assert.InDelta(t, 0.3, cfg.TrigramThreshold, 1e-9)
	assert.Equal(t, "nomic-embed-text", cfg.EmbeddingModel)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("CHUNK_OVERLAP", "100")
	t.Setenv("TOP_K_RESULTS", "8")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 100, cfg.ChunkOverlap)
	assert.Equal(t, 8, cfg.TopKResults)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero chunk size", "CHUNK_SIZE", "0"},
		{"overlap not below size", "CHUNK_OVERLAP", "1000"},
		{"negative embedding dim", "EMBEDDING_DIM", "-1"},
		{"zero top k", "TOP_K_RESULTS", "0"},
		{"min conns above max", "DB_MIN_CONNS", "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
