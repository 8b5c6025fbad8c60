package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"fund-report-rag/internal/config"
	"fund-report-rag/internal/embedding"
	"fund-report-rag/internal/llm"
	"fund-report-rag/internal/logging"
	"fund-report-rag/internal/metrics"
	"fund-report-rag/internal/models"
	"fund-report-rag/internal/queryengine"
	"fund-report-rag/internal/store"
	"fund-report-rag/internal/vectorstore"
)

func main() {
	fundID := flag.Int64("fund", 0, "Fund id to query (required)")
	queryFlag := flag.String("q", "", "Query to answer (non-interactive mode)")
	interactive := flag.Bool("i", false, "Run in interactive mode")
	flag.Parse()

	if *fundID == 0 {
		log.Fatal("Fund id is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	pool, err := store.NewPool(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	embedder, err := embedding.NewOllamaEmbedder(cfg.OllamaHost, cfg.EmbeddingModel, cfg.EmbeddingDim)
	if err != nil {
		log.Fatalf("Failed to create embedder: %v", err)
	}

	generator, err := llm.NewOllamaLLM(cfg.OllamaHost, cfg.ChatModel)
	if err != nil {
		log.Fatalf("Failed to create LLM client: %v", err)
	}

	funds := store.NewFundStore(pool)
	if _, err := funds.Get(ctx, *fundID); err != nil {
		log.Fatalf("Failed to resolve fund %d: %v", *fundID, err)
	}

	vectors := vectorstore.New(pool, embedder, cfg.TrigramThreshold, logger)
	calculator := metrics.NewCalculator(store.NewTransactionStore(pool))
	engine := queryengine.New(vectors, calculator, generator, cfg.TopKResults, logger)

	if *interactive {
		runInteractiveMode(ctx, engine, *fundID)
		return
	}

	if *queryFlag == "" {
		log.Fatal("Query is required in non-interactive mode. Use -q 'your question'")
	}

	resp, err := engine.ProcessQuery(ctx, queryengine.Request{Query: *queryFlag, FundID: *fundID})
	if err != nil {
		log.Fatalf("Failed to process query: %v", err)
	}
	fmt.Println(formatResponse(resp))
}

func runInteractiveMode(ctx context.Context, engine *queryengine.Engine, fundID int64) {
	scanner := bufio.NewScanner(os.Stdin)
	var history []models.ChatMessage

	fmt.Println("Fund Report Assistant - Ask questions about your fund (type 'exit' to quit)")

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}

		input := scanner.Text()
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			break
		}
		if strings.TrimSpace(input) == "" {
			continue
		}

		fmt.Print("Searching fund documents... ")

		resp, err := engine.ProcessQuery(ctx, queryengine.Request{
			Query:   input,
			FundID:  fundID,
			History: history,
		})
		if err != nil {
			fmt.Printf("\rError: %v\n", err)
			continue
		}

		fmt.Println("\r" + formatResponse(resp))

		history = append(history,
			models.ChatMessage{Role: "user", Content: input},
			models.ChatMessage{Role: "assistant", Content: resp.Answer},
		)
	}
}

func formatResponse(resp *models.QueryResponse) string {
	var b strings.Builder
	b.WriteString(resp.Answer)

	if resp.Metrics != nil {
		b.WriteString("\n\nMetrics:")
		fmt.Fprintf(&b, "\n  PIC: %.2f", resp.Metrics.PIC)
		fmt.Fprintf(&b, "\n  Total distributions: %.2f", resp.Metrics.TotalDistributions)
		fmt.Fprintf(&b, "\n  DPI: %.4f", resp.Metrics.DPI)
		if resp.Metrics.IRR != nil {
			fmt.Fprintf(&b, "\n  IRR: %.4f", *resp.Metrics.IRR)
		}
		if resp.Metrics.TVPI != nil {
			fmt.Fprintf(&b, "\n  TVPI: %.4f", *resp.Metrics.TVPI)
		}
	}

	if len(resp.Sources) > 0 {
		b.WriteString("\n\nSources:")
		for _, src := range resp.Sources {
			fmt.Fprintf(&b, "\n  [doc %d, page %d] score %.4f", src.DocumentID, src.Metadata.Page, src.Score)
		}
	}
	return b.String()
}
