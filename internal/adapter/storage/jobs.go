package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// JobQueue enqueues webhook deliveries for the background worker.
type JobQueue struct {
	db *pgxpool.Pool
}

func NewJobQueue(db *pgxpool.Pool) *JobQueue {
	return &JobQueue{db: db}
}

func (q *JobQueue) Enqueue(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	_, err = q.db.Exec(ctx, `
		INSERT INTO webhook_jobs (id, url, payload) VALUES ($1, $2, $3)`,
		uuid.New(), url, body)
	if err != nil {
		return fmt.Errorf("enqueue webhook job: %w", err)
	}
	return nil
}
