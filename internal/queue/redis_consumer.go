/**
 * Direct Redis Queue Consumer for the Annotation Worker
 *
 * Alternative transport for gateways that enqueue with plain Redis LIST
 * operations instead of Asynq. Job ids are pushed onto the queue list and
 * their payloads live in a {queue}:data hash; results, errors, and status
 * sets mirror the gateway's bookkeeping, and lifecycle events are published
 * for WebSocket streaming.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adverant/nexus/annotation-worker/internal/logging"
)

// RedisJobData is one queued job as stored in the data hash
type RedisJobData struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"createdAt"`
	Attempts   int             `json:"attempts"`
	MaxRetries int             `json:"maxRetries"`
}

// RedisConsumer handles job consumption from a plain Redis list queue
type RedisConsumer struct {
	client     *redis.Client
	dispatcher *Dispatcher
	config     *RedisConsumerConfig
	logger     *logging.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// RedisConsumerConfig holds consumer configuration
type RedisConsumerConfig struct {
	RedisURL    string
	QueueName   string
	Concurrency int
	Pipeline    Pipeline
	// ProcessingTimeout is per-job, in milliseconds (default 300000)
	ProcessingTimeout int64
}

// NewRedisConsumer creates a new Redis list queue consumer
func NewRedisConsumer(cfg *RedisConsumerConfig) (*RedisConsumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if cfg.Pipeline == nil {
		return nil, fmt.Errorf("Pipeline is required")
	}
	if cfg.QueueName == "" {
		cfg.QueueName = "annotation:jobs"
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	consumerCtx, cancel := context.WithCancel(context.Background())
	return &RedisConsumer{
		client:     client,
		dispatcher: NewDispatcher(cfg.Pipeline),
		config:     cfg,
		logger:     logging.NewLogger("redis-queue"),
		ctx:        consumerCtx,
		cancel:     cancel,
	}, nil
}

// Start begins processing jobs from the queue
func (c *RedisConsumer) Start() error {
	c.logger.Info("Starting Redis queue consumer",
		"concurrency", c.config.Concurrency, "queue", c.config.QueueName)

	for i := 0; i < c.config.Concurrency; i++ {
		c.wg.Add(1)
		go c.worker(i)
	}
	return nil
}

// Stop gracefully stops the consumer
func (c *RedisConsumer) Stop() error {
	c.logger.Info("Stopping Redis queue consumer")
	c.cancel()
	c.wg.Wait()
	return c.client.Close()
}

// worker is a goroutine that processes jobs
func (c *RedisConsumer) worker(id int) {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			c.logger.Info("Worker stopping", "worker", id)
			return
		default:
			if err := c.processNextJob(); err != nil {
				if err != errNoJobs {
					c.logger.Error("Worker error", "worker", id, "error", err)
				}
				time.Sleep(1 * time.Second)
			}
		}
	}
}

var errNoJobs = fmt.Errorf("no jobs available")

// processNextJob fetches and processes the next job from the queue
func (c *RedisConsumer) processNextJob() error {
	result, err := c.client.BRPop(c.ctx, 5*time.Second, c.config.QueueName).Result()
	if err != nil {
		if err == redis.Nil {
			return errNoJobs
		}
		return fmt.Errorf("failed to fetch job: %w", err)
	}
	if len(result) < 2 {
		return fmt.Errorf("invalid job result")
	}
	jobID := result[1]

	jobData, err := c.client.HGet(c.ctx, c.queueKey("data"), jobID).Result()
	if err != nil {
		return fmt.Errorf("failed to get job data: %w", err)
	}

	var job RedisJobData
	if err := json.Unmarshal([]byte(jobData), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job: %w", err)
	}

	c.setJobStatus(job.ID, "processing", nil)
	c.logger.Info("Processing job", "jobId", job.ID, "type", job.Type)

	jobCtx, cancel := withTimeout(context.Background(), c.config.ProcessingTimeout)
	jobResult, err := c.dispatcher.Dispatch(jobCtx, job.Type, job.Payload)
	cancel()

	if err != nil {
		c.logger.Error("Job failed", "jobId", job.ID, "type", job.Type, "error", err)

		job.Attempts++
		if job.Attempts < job.MaxRetries {
			updatedData, _ := json.Marshal(job)
			c.client.HSet(c.ctx, c.queueKey("data"), job.ID, updatedData)
			c.client.LPush(c.ctx, c.config.QueueName, job.ID)
			c.logger.Info("Job re-queued for retry",
				"jobId", job.ID, "attempt", job.Attempts, "maxRetries", job.MaxRetries)
		} else {
			c.setJobStatus(job.ID, "failed", map[string]interface{}{
				"error":    err.Error(),
				"attempts": job.Attempts,
			})
		}
		return nil
	}

	c.setJobStatus(job.ID, "completed", jobResult)
	c.logger.Info("Job completed", "jobId", job.ID, "type", job.Type)
	return nil
}

// setJobStatus moves the job between the status sets, stores its result or
// error, and publishes a lifecycle event
func (c *RedisConsumer) setJobStatus(jobID string, status string, result interface{}) {
	switch status {
	case "processing":
		c.client.SAdd(c.ctx, c.queueKey("processing"), jobID)
	case "completed":
		c.client.SRem(c.ctx, c.queueKey("processing"), jobID)
		c.client.SAdd(c.ctx, c.queueKey("completed"), jobID)
		if result != nil {
			if data, err := json.Marshal(result); err == nil {
				c.client.HSet(c.ctx, c.queueKey("results"), jobID, data)
			}
		}
	case "failed":
		c.client.SRem(c.ctx, c.queueKey("processing"), jobID)
		c.client.SAdd(c.ctx, c.queueKey("failed"), jobID)
		if result != nil {
			if data, err := json.Marshal(result); err == nil {
				c.client.HSet(c.ctx, c.queueKey("errors"), jobID, data)
			}
		}
	}

	event := map[string]interface{}{
		"event":     fmt.Sprintf("job:%s", status),
		"jobId":     jobID,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if eventData, err := json.Marshal(event); err == nil {
		c.client.Publish(c.ctx, c.queueKey("events"), eventData)
	}
}

func (c *RedisConsumer) queueKey(suffix string) string {
	return fmt.Sprintf("%s:%s", c.config.QueueName, suffix)
}

// GetStats returns queue statistics
func (c *RedisConsumer) GetStats() (map[string]int64, error) {
	ctx := context.Background()

	waiting, _ := c.client.LLen(ctx, c.config.QueueName).Result()
	processing, _ := c.client.SCard(ctx, c.queueKey("processing")).Result()
	completed, _ := c.client.SCard(ctx, c.queueKey("completed")).Result()
	failed, _ := c.client.SCard(ctx, c.queueKey("failed")).Result()

	return map[string]int64{
		"waiting":    waiting,
		"processing": processing,
		"completed":  completed,
		"failed":     failed,
	}, nil
}
