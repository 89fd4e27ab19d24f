// Package queue provides a small Redis-backed job queue for work that must
// survive the request that triggered it, plus the keyed redemption status
// store used by the polling endpoint.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/endorsegen/backend/internal/config"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// JobType identifies a kind of background work
type JobType string

// JobHandler processes one dequeued job
type JobHandler func(ctx context.Context, job Job) error

const (
	// DefaultMaxRetries bounds redelivery of a failing job
	DefaultMaxRetries = 3

	queueKey = "endorsegen:jobs"
)

// Job is one unit of queued work
type Job struct {
	ID         uuid.UUID       `json:"id"`
	Type       JobType         `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	RetryCount int             `json:"retry_count"`
	MaxRetries int             `json:"max_retries"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Queue is a Redis-backed FIFO job queue
type Queue struct {
	client   *redis.Client
	handlers map[JobType]JobHandler
}

// NewRedisClient builds a redis client from configuration
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	opts.DB = cfg.DB

	return redis.NewClient(opts), nil
}

// NewQueue creates a new queue over an existing redis client
func NewQueue(client *redis.Client) *Queue {
	return &Queue{
		client:   client,
		handlers: make(map[JobType]JobHandler),
	}
}

// RegisterHandler binds a handler to a job type
func (q *Queue) RegisterHandler(jobType JobType, handler JobHandler) {
	q.handlers[jobType] = handler
}

// Enqueue serializes a payload and pushes a job onto the queue
func (q *Queue) Enqueue(ctx context.Context, jobType JobType, payload interface{}) (uuid.UUID, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal job payload: %w", err)
	}

	job := Job{
		ID:         uuid.New(),
		Type:       jobType,
		Payload:    payloadBytes,
		MaxRetries: DefaultMaxRetries,
		CreatedAt:  time.Now(),
	}

	jobBytes, err := json.Marshal(job)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := q.client.LPush(ctx, queueKey, jobBytes).Err(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	return job.ID, nil
}

// Dequeue blocks up to timeout waiting for the next job. A nil job with a
// nil error means the wait timed out.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := q.client.BRPop(ctx, timeout, queueKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}

	// BRPop returns [key, value]
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// Requeue pushes a failed job back for another attempt
func (q *Queue) Requeue(ctx context.Context, job *Job) error {
	job.RetryCount++
	jobBytes, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return q.client.LPush(ctx, queueKey, jobBytes).Err()
}
