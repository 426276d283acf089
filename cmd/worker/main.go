/**
 * Annotation Worker - Main Entry Point
 *
 * Go worker that extracts and annotates uploaded documents.
 *
 * Architecture:
 * - Redis-backed job queue (Asynq or plain list transport)
 * - Extraction pipeline: native PDF scraping or rasterize + Tesseract OCR
 * - LLM annotation types over batched page text
 * - PostgreSQL catalog/status/costs, Qdrant span vectors, object storage
 *   for digests and chat blobs
 */

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/adverant/nexus/annotation-worker/internal/clients"
	"github.com/adverant/nexus/annotation-worker/internal/config"
	"github.com/adverant/nexus/annotation-worker/internal/llm"
	"github.com/adverant/nexus/annotation-worker/internal/processor"
	"github.com/adverant/nexus/annotation-worker/internal/queue"
	"github.com/adverant/nexus/annotation-worker/internal/storage"
)

func main() {
	if err := godotenv.Load(".env.nexus"); err != nil {
		log.Printf("Warning: .env.nexus not found, using system environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Annotation Worker starting...")
	log.Printf("Configuration loaded: Redis=%s, Qdrant=%s, Storage=%s, Workers=%d",
		cfg.RedisURL, cfg.QdrantURL, cfg.StorageAPIURL, cfg.WorkerConcurrency)

	// Object storage API
	blobClient := clients.NewBlobClient(cfg.StorageAPIURL)
	healthCtx, cancelHealth := context.WithTimeout(context.Background(), 5*time.Second)
	if err := blobClient.HealthCheck(healthCtx); err != nil {
		log.Printf("WARNING: Storage API health check failed: %v", err)
	}
	cancelHealth()

	// Unified storage manager (PostgreSQL + Qdrant + object storage)
	log.Printf("Connecting to storage (PostgreSQL + Qdrant)...")
	storageManager, err := storage.NewManager(
		cfg.DatabaseURL,
		cfg.QdrantURL,
		cfg.QdrantCollection,
		blobClient,
		storage.Buckets{
			Uploads:     cfg.UploadsBucket,
			Digests:     cfg.DigestsBucket,
			PageOCR:     cfg.PageOCRBucket,
			PageImages:  cfg.PageImagesBucket,
			ChatContext: cfg.ChatContextBucket,
			ChatHistory: cfg.ChatHistoryBucket,
		},
	)
	if err != nil {
		log.Fatalf("Failed to initialize storage manager: %v", err)
	}
	defer storageManager.Close()
	log.Printf("Storage manager initialized")

	// LLM client
	llmClient, err := llm.NewClient(&llm.ClientConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
	})
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	// Document pipeline
	pipeline, err := processor.NewPipeline(&processor.Config{
		StorageManager:     storageManager,
		LLMClient:          llmClient,
		VoyageAPIKey:       cfg.VoyageAPIKey,
		TesseractLanguage:  cfg.TesseractLanguage,
		DuplicateThreshold: cfg.DuplicateThreshold,
		MinimumBatchWords:  cfg.MinimumBatchWords,
		TempDir:            cfg.TempDir,
		RasterDPI:          cfg.RasterDPI,
		OCRConcurrency:     cfg.OCRConcurrency,
		StalenessWindow:    cfg.StalenessWindow,
	})
	if err != nil {
		log.Fatalf("Failed to initialize pipeline: %v", err)
	}
	log.Printf("Document pipeline initialized")

	// Queue consumer
	stop, err := startConsumer(cfg, pipeline)
	if err != nil {
		log.Fatalf("Failed to start queue consumer: %v", err)
	}

	log.Printf("===========================================")
	log.Printf("Annotation Worker is READY")
	log.Printf("===========================================")
	log.Printf("Queue: %s (%s)", cfg.QueueName, cfg.QueueDriver)
	log.Printf("Workers: %d", cfg.WorkerConcurrency)
	log.Printf("OCR: Tesseract (%s), %d DPI", cfg.TesseractLanguage, cfg.RasterDPI)
	log.Printf("===========================================")
	log.Printf("Waiting for jobs...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Printf("Received signal %v, initiating graceful shutdown...", sig)

	if err := stop(); err != nil {
		log.Printf("Error stopping queue consumer: %v", err)
	} else {
		log.Printf("Queue consumer stopped successfully")
	}

	if err := storageManager.Close(); err != nil {
		log.Printf("Error closing storage manager: %v", err)
	} else {
		log.Printf("Storage manager closed")
	}

	log.Printf("Shutdown complete")
}

// startConsumer starts the configured queue transport and returns its stop
// function
func startConsumer(cfg *config.Config, pipeline queue.Pipeline) (func() error, error) {
	if cfg.QueueDriver == "redis-list" {
		consumer, err := queue.NewRedisConsumer(&queue.RedisConsumerConfig{
			RedisURL:          cfg.RedisURL,
			QueueName:         cfg.QueueName,
			Concurrency:       cfg.WorkerConcurrency,
			Pipeline:          pipeline,
			ProcessingTimeout: cfg.ProcessingTimeout,
		})
		if err != nil {
			return nil, err
		}
		if err := consumer.Start(); err != nil {
			return nil, err
		}
		return consumer.Stop, nil
	}

	consumer, err := queue.NewConsumer(&queue.ConsumerConfig{
		RedisURL:          cfg.RedisURL,
		QueueName:         cfg.QueueName,
		Concurrency:       cfg.WorkerConcurrency,
		Pipeline:          pipeline,
		ProcessingTimeout: cfg.ProcessingTimeout,
	})
	if err != nil {
		return nil, err
	}
	if err := consumer.Start(context.Background()); err != nil {
		return nil, err
	}
	return func() error { return consumer.Stop(context.Background()) }, nil
}
