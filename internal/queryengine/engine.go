package queryengine

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"fund-report-rag/internal/models"

	"go.uber.org/zap"
)

// Retriever finds relevant chunks for a query.
type Retriever interface {
	HybridSearch(ctx context.Context, query string, k int, filter models.SearchFilter, weights models.SearchWeights) []models.SearchResult
}

// MetricsCalculator computes the full metric set for a fund.
type MetricsCalculator interface {
	CalculateAll(ctx context.Context, fundID int64) (*models.Metrics, error)
}

// Generator produces the final answer text.
type Generator interface {
	Answer(ctx context.Context, query string, contexts []models.SearchResult, metrics *models.Metrics, history []models.ChatMessage) (string, error)
}

// Request is one query against a fund's documents.
type Request struct {
	Query       string
	FundID      int64
	DocumentIDs []int64
	History     []models.ChatMessage
	Weights     *models.SearchWeights
}

// Engine routes queries by intent: calculation queries get computed metrics
// attached, retrieval queries honor an explicit document-id narrowing, and
// all intents retrieve context for the generator.
type Engine struct {
	retriever Retriever
	metrics   MetricsCalculator
	generator Generator
	topK      int
	logger    *zap.Logger
}

func New(retriever Retriever, metrics MetricsCalculator, generator Generator, topK int, logger *zap.Logger) *Engine {
	if topK <= 0 {
		topK = 5
	}
	return &Engine{
		retriever: retriever,
		metrics:   metrics,
		generator: generator,
		topK:      topK,
		logger:    logger,
	}
}

// ProcessQuery classifies the query's intent, retrieves context, computes
// metrics for calculation intent, and composes the answer.
func (e *Engine) ProcessQuery(ctx context.Context, req Request) (*models.QueryResponse, error) {
	intent := ClassifyIntent(req.Query)

	filter := models.SearchFilter{FundID: req.FundID}
	if intent == models.IntentRetrieval && len(req.DocumentIDs) > 0 {
		filter.DocumentIDs = req.DocumentIDs
	}

	weights := models.DefaultSearchWeights()
	if req.Weights != nil {
		weights = *req.Weights
	}

	sources := e.retriever.HybridSearch(ctx, req.Query, e.topK, filter, weights)

	var metrics *models.Metrics
	if intent == models.IntentCalculation {
		var err error
		metrics, err = e.metrics.CalculateAll(ctx, req.FundID)
		if err != nil {
			return nil, fmt.Errorf("calculate metrics: %w", err)
		}
	}

	answer, err := e.generator.Answer(ctx, req.Query, sources, metrics, req.History)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	e.logger.Debug("query processed",
		zap.String("intent", string(intent)),
		zap.Int64("fund_id", req.FundID),
		zap.Int("sources", len(sources)))

	return &models.QueryResponse{
		Answer:  answer,
		Intent:  intent,
		Metrics: metrics,
		Sources: sources,
	}, nil
}

// Intent vocabulary. Short metric names are matched as whole words so that
// e.g. "irrelevant" does not read as an IRR question; multi-word cues are
// matched as substrings of the lowercased query.
var (
	calculationWords   = []string{"irr", "dpi", "tvpi", "rvpi", "pic", "nav", "calculate", "calculation"}
	calculationPhrases = []string{"what is the current", "paid-in capital", "paid in capital", "net asset value", "how much", "internal rate of return"}

	definitionWords   = []string{"define", "definition", "mean"}
	definitionPhrases = []string{"meaning of", "what does"}

	retrievalWords   = []string{"list", "documents", "document", "distributions", "show"}
	retrievalPhrases = []string{"show me"}
)

// ClassifyIntent decides the answering strategy from the query text alone.
// Precedence: calculation, then definition, then retrieval; anything else
// is general. Conversation history is never consulted.
func ClassifyIntent(query string) models.QueryIntent {
	q := strings.ToLower(query)
	words := tokenize(q)

	switch {
	case matches(q, words, calculationPhrases, calculationWords):
		return models.IntentCalculation
	case matches(q, words, definitionPhrases, definitionWords):
		return models.IntentDefinition
	case matches(q, words, retrievalPhrases, retrievalWords):
		return models.IntentRetrieval
	default:
		return models.IntentGeneral
	}
}

func matches(q string, words map[string]bool, phrases, wordTerms []string) bool {
	for _, p := range phrases {
		if strings.Contains(q, p) {
			return true
		}
	}
	for _, w := range wordTerms {
		if words[w] {
			return true
		}
	}
	return false
}

func tokenize(q string) map[string]bool {
	fields := strings.FieldsFunc(q, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	words := make(map[string]bool, len(fields))
	for _, f := range fields {
		words[f] = true
	}
	return words
}
