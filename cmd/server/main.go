package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"fund-report-rag/internal/api"
	"fund-report-rag/internal/config"
	"fund-report-rag/internal/embedding"
	"fund-report-rag/internal/extractor"
	"fund-report-rag/internal/llm"
	"fund-report-rag/internal/logging"
	"fund-report-rag/internal/metrics"
	"fund-report-rag/internal/processor"
	"fund-report-rag/internal/queryengine"
	"fund-report-rag/internal/store"
	"fund-report-rag/internal/tableparser"
	"fund-report-rag/internal/tasks"
	"fund-report-rag/internal/vectorstore"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.NewPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
		return err
	}
	logger.Info("migrations applied")

	embedder, err := embedding.NewOllamaEmbedder(cfg.OllamaHost, cfg.EmbeddingModel, cfg.EmbeddingDim)
	if err != nil {
		return err
	}

	vectors := vectorstore.New(pool, embedder, cfg.TrigramThreshold, logger)
	if err := vectors.Init(ctx); err != nil {
		return err
	}
	logger.Info("vector store initialized", zap.Int("dimension", cfg.EmbeddingDim))

	generator, err := llm.NewOllamaLLM(cfg.OllamaHost, cfg.ChatModel)
	if err != nil {
		return err
	}

	funds := store.NewFundStore(pool)
	documents := store.NewDocumentStore(pool)
	conversations := store.NewConversationStore(pool)
	transactions := store.NewTransactionStore(pool)

	proc := processor.New(
		extractor.NewPDFExtractor(),
		tableparser.New(),
		processor.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		transactions,
		vectors,
		logger,
	)

	workers := runtime.NumCPU() / 2
	dispatcher := tasks.NewDispatcher(proc, documents, workers, 64, logger)
	dispatcher.Start(ctx, workers)
	defer dispatcher.Stop()

	calculator := metrics.NewCalculator(transactions)
	engine := queryengine.New(vectors, calculator, generator, cfg.TopKResults, logger)

	handler := api.NewHandler(cfg, funds, documents, conversations, vectors, dispatcher, engine, calculator, logger)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      handler.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
