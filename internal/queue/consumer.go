/**
 * Queue Consumer for the Annotation Worker
 *
 * Consumes extraction, annotation, and chat jobs from the Redis-backed queue
 * using Asynq. Retries back off exponentially; invalid jobs are dropped
 * without retry.
 */

package queue

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	apperrors "github.com/adverant/nexus/annotation-worker/internal/errors"
	"github.com/adverant/nexus/annotation-worker/internal/logging"
)

// Consumer handles job consumption from the Redis queue
type Consumer struct {
	client     *asynq.Client
	server     *asynq.Server
	mux        *asynq.ServeMux
	dispatcher *Dispatcher
	config     *ConsumerConfig
	logger     *logging.Logger
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	RedisURL    string
	QueueName   string
	Concurrency int
	Pipeline    Pipeline
	// ProcessingTimeout is per-task, in milliseconds (default 300000)
	ProcessingTimeout int64
}

// NewConsumer creates a new queue consumer
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}
	if cfg.Pipeline == nil {
		return nil, fmt.Errorf("Pipeline is required")
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := logging.NewLogger("queue")

	// Client is used to enqueue follow-up annotation tasks after extraction
	client := asynq.NewClient(redisOpt)

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				cfg.QueueName: 10,
				"default":     1,
			},
			// Exponential backoff: 5s, 10s, 20s, capped at 60s
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				delay := time.Duration(5*(1<<uint(n))) * time.Second
				if delay > 60*time.Second {
					delay = 60 * time.Second
				}
				return delay
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task processing error",
					"type", task.Type(), "payload", string(task.Payload()), "error", err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	consumer := &Consumer{
		client:     client,
		server:     server,
		mux:        mux,
		dispatcher: NewDispatcher(cfg.Pipeline),
		config:     cfg,
		logger:     logger,
	}

	mux.HandleFunc(TaskExtractDocument, consumer.handleExtract)
	mux.HandleFunc(TaskAnnotateDocument, consumer.handleTask)
	mux.HandleFunc(TaskChatQuery, consumer.handleTask)

	return consumer, nil
}

// Start starts the queue consumer
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("Starting queue consumer",
		"concurrency", c.config.Concurrency, "queue", c.config.QueueName)

	go func() {
		if err := c.server.Run(c.mux); err != nil {
			c.logger.Error("Queue consumer error", "error", err)
		}
	}()

	return nil
}

// Stop stops the queue consumer gracefully
func (c *Consumer) Stop(ctx context.Context) error {
	c.logger.Info("Stopping queue consumer")
	c.server.Shutdown()

	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close client: %w", err)
	}
	c.logger.Info("Queue consumer stopped")
	return nil
}

// handleTask runs one annotation or chat task through the dispatcher
func (c *Consumer) handleTask(ctx context.Context, task *asynq.Task) error {
	_, err := c.dispatch(ctx, task)
	return err
}

// handleExtract runs an extraction task and enqueues its follow-up
// annotation tasks
func (c *Consumer) handleExtract(ctx context.Context, task *asynq.Task) error {
	if _, err := c.dispatch(ctx, task); err != nil {
		return err
	}

	var job ExtractJob
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		return fmt.Errorf("failed to unmarshal extract job: %w", err)
	}
	for _, annotationType := range job.AnnotationTypes {
		if err := c.EnqueueAnnotation(ctx, AnnotateJob{
			DocumentID:     job.DocumentID,
			UserID:         job.UserID,
			AnnotationType: annotationType,
		}); err != nil {
			c.logger.Error("Failed to enqueue follow-up annotation",
				"documentId", job.DocumentID, "annotationType", annotationType, "error", err)
		}
	}
	return nil
}

// dispatch executes one task with the processing timeout applied
func (c *Consumer) dispatch(ctx context.Context, task *asynq.Task) (interface{}, error) {
	start := time.Now()
	c.logger.Info("Processing task", "type", task.Type())

	taskCtx, cancel := withTimeout(ctx, c.config.ProcessingTimeout)
	defer cancel()

	result, err := c.dispatcher.Dispatch(taskCtx, task.Type(), task.Payload())
	duration := time.Since(start)

	if err != nil {
		if taskCtx.Err() == context.DeadlineExceeded {
			c.logger.Error("Task timed out", "type", task.Type(), "duration", duration)
			return nil, fmt.Errorf("processing timeout: %w", err)
		}

		// malformed or unknown jobs never succeed on retry
		var ae *apperrors.AnnotationError
		if goerrors.As(err, &ae) &&
			(ae.Code == apperrors.ErrorInvalidInput || ae.Code == apperrors.ErrorNotFound) {
			c.logger.Error("Dropping unretryable task", "type", task.Type(), "error", err)
			return nil, fmt.Errorf("%w: %w", asynq.SkipRetry, err)
		}

		c.logger.Error("Task failed", "type", task.Type(), "duration", duration, "error", err)
		return nil, err
	}

	c.logger.Info("Task completed", "type", task.Type(), "duration", duration)
	return result, nil
}

// EnqueueAnnotation submits an annotation task to the main queue
func (c *Consumer) EnqueueAnnotation(ctx context.Context, job AnnotateJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal annotation job: %w", err)
	}

	_, err = c.client.EnqueueContext(ctx,
		asynq.NewTask(TaskAnnotateDocument, payload),
		asynq.Queue(c.config.QueueName),
		asynq.MaxRetry(3))
	if err != nil {
		return fmt.Errorf("failed to enqueue annotation task: %w", err)
	}
	return nil
}

// GetStatistics returns consumer statistics
func (c *Consumer) GetStatistics() map[string]interface{} {
	return map[string]interface{}{
		"concurrency": c.config.Concurrency,
		"queue":       c.config.QueueName,
		"redisURL":    c.config.RedisURL,
	}
}
