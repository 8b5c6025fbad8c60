package vectorstore

import (
	"context"
	"testing"

	"fund-report-rag/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type singleEmbedder struct {
	embedCalls int
}

func (e *singleEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.embedCalls++
	return []float32{float32(len(text))}, nil
}

func (e *singleEmbedder) Dimension() int { return 1 }

type batchingEmbedder struct {
	singleEmbedder
	batchCalls int
}

func (e *batchingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.batchCalls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func TestEmbed_UsesBatchingWhenAvailable(t *testing.T) {
	embedder := &batchingEmbedder{}
	s := New(nil, embedder, 0.3, zap.NewNop())

	embeddings, err := s.embed(context.Background(), []string{"one", "two", "three"})
	require.NoError(t, err)

	require.Len(t, embeddings, 3)
	assert.Equal(t, 1, embedder.batchCalls)
	assert.Zero(t, embedder.embedCalls)
}

func TestEmbed_FallsBackToSequential(t *testing.T) {
	embedder := &singleEmbedder{}
	s := New(nil, embedder, 0.3, zap.NewNop())

	embeddings, err := s.embed(context.Background(), []string{"one", "two"})
	require.NoError(t, err)

	require.Len(t, embeddings, 2)
	assert.Equal(t, 2, embedder.embedCalls)
}

func TestAddDocuments_LengthMismatch(t *testing.T) {
	s := New(nil, &singleEmbedder{}, 0.3, zap.NewNop())

	err := s.AddDocuments(context.Background(), []string{"one", "two"}, []models.ChunkMetadata{{}})
	require.Error(t, err)
}
