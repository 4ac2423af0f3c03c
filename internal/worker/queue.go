// Package worker consumes ingestion jobs from a Redis-backed queue and
// drives the ingestion orchestrator with bounded concurrency.
// Grounded in original_source's app/workers/ingestion_worker.py for the
// max_jobs/job_timeout shape and in the teacher's redis.v9 dependency,
// which the teacher itself declares but never calls — this gives it its
// job.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// queueKey is the Redis list backing the ingestion job queue.
const queueKey = "csbot:ingestion:jobs"

// ErrNoJob is returned by Dequeue when the poll window elapses with no job
// available; callers treat it as a normal empty-queue condition, not a
// failure.
var ErrNoJob = errors.New("worker: no job available")

// Queue is a thin wrapper over a Redis list used as a FIFO job queue.
type Queue struct {
	client *redis.Client
}

// NewQueue creates a Queue bound to client.
func NewQueue(client *redis.Client) *Queue {
	return &Queue{client: client}
}

// Enqueue pushes a document id onto the tail of the queue; Dequeue pops
// from the head, so the pair is FIFO.
func (q *Queue) Enqueue(ctx context.Context, documentID string) error {
	if err := q.client.RPush(ctx, queueKey, documentID).Err(); err != nil {
		return fmt.Errorf("worker.Queue.Enqueue: %w", err)
	}
	return nil
}

// Len reports the current depth of the job queue.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	depth, err := q.client.LLen(ctx, queueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("worker.Queue.Len: %w", err)
	}
	return depth, nil
}

// Dequeue blocks up to pollTimeout waiting for a job, returning ErrNoJob if
// none arrives. A short pollTimeout lets the caller re-check ctx
// cancellation between polls without leaking the blocking call past
// shutdown.
func (q *Queue) Dequeue(ctx context.Context, pollTimeout time.Duration) (string, error) {
	result, err := q.client.BLPop(ctx, pollTimeout, queueKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoJob
	}
	if err != nil {
		return "", fmt.Errorf("worker.Queue.Dequeue: %w", err)
	}
	// BLPOP returns [key, value].
	if len(result) != 2 {
		return "", fmt.Errorf("worker.Queue.Dequeue: unexpected BLPOP result shape: %v", result)
	}
	return result[1], nil
}
