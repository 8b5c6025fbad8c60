package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"fund-report-rag/internal/config"
	"fund-report-rag/internal/embedding"
	"fund-report-rag/internal/extractor"
	"fund-report-rag/internal/logging"
	"fund-report-rag/internal/models"
	"fund-report-rag/internal/processor"
	"fund-report-rag/internal/store"
	"fund-report-rag/internal/tableparser"
	"fund-report-rag/internal/vectorstore"
)

func main() {
	pdfPath := flag.String("pdf", "", "Path to PDF report (required)")
	fundName := flag.String("fund", "", "Fund name to ingest under (required)")
	rebuildIndex := flag.Bool("rebuild-index", false, "Rebuild the dense index after ingestion")
	flag.Parse()

	if *pdfPath == "" {
		log.Fatal("PDF path is required")
	}
	if *fundName == "" {
		log.Fatal("Fund name is required")
	}
	if _, err := os.Stat(*pdfPath); os.IsNotExist(err) {
		log.Fatalf("PDF file does not exist: %s", *pdfPath)
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

	if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	embedder, err := embedding.NewOllamaEmbedder(cfg.OllamaHost, cfg.EmbeddingModel, cfg.EmbeddingDim)
	if err != nil {
		log.Fatalf("Failed to create embedder: %v", err)
	}

	vectors := vectorstore.New(pool, embedder, cfg.TrigramThreshold, logger)
	if err := vectors.Init(ctx); err != nil {
		log.Fatalf("Failed to initialize vector store: %v", err)
	}

	funds := store.NewFundStore(pool)
	documents := store.NewDocumentStore(pool)
	transactions := store.NewTransactionStore(pool)

	fund, err := funds.GetOrCreate(ctx, *fundName)
	if err != nil {
		log.Fatalf("Failed to resolve fund: %v", err)
	}
	log.Printf("Ingesting %s for fund %q (id=%d)", *pdfPath, fund.Name, fund.ID)

	doc, err := documents.Create(ctx, fund.ID, *pdfPath, *pdfPath)
	if err != nil {
		log.Fatalf("Failed to create document record: %v", err)
	}

	proc := processor.New(
		extractor.NewPDFExtractor(),
		tableparser.New(),
		processor.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		transactions,
		vectors,
		logger,
	)

	startTime := time.Now()
	result := proc.ProcessDocument(ctx, *pdfPath, doc.ID, fund.ID)

	errMsg := result.Error
	if errMsg == "" && len(result.Stats.Errors) > 0 {
		errMsg = strings.Join(result.Stats.Errors, "; ")
	}
	if err := documents.SetStatus(ctx, doc.ID, result.Status, errMsg); err != nil {
		log.Printf("Failed to update document status: %v", err)
	}

	log.Printf("Processed %d pages (%d skipped), %d tables, %d chunks in %v",
		result.Stats.Pages, result.Stats.PagesSkipped, result.Stats.Tables,
		result.Stats.Chunks, time.Since(startTime))
	for _, e := range result.Stats.Errors {
		log.Printf("  warning: %s", e)
	}

	if result.Status == models.StatusFailed {
		log.Fatalf("Ingestion failed: %s", errMsg)
	}

	if *rebuildIndex {
		if err := vectors.RebuildIndex(ctx, 0); err != nil {
			log.Fatalf("Failed to rebuild index: %v", err)
		}
		log.Println("Dense index rebuilt")
	}
}
