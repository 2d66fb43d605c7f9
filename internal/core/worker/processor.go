package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/payflowhq/payd/internal/core/notifications"
)

const maxAttempts = 5

// StartWebhookWorker polls the job queue and delivers transfer events.
// Multiple instances can run safely: FOR UPDATE SKIP LOCKED hands each job
// to exactly one of them.
func StartWebhookWorker(ctx context.Context, db *pgxpool.Pool, secret string) {
	go func() {
		slog.Info("👷 Webhook worker started")
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("Webhook worker stopped")
				return
			case <-ticker.C:
				processJobs(ctx, db, secret)
			}
		}
	}()
}

func processJobs(ctx context.Context, db *pgxpool.Pool, secret string) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return
	}
	defer tx.Rollback(ctx)

	var (
		id       string
		url      string
		payload  []byte
		attempts int
	)
	err = tx.QueryRow(ctx, `
		SELECT id, url, payload, attempts
		FROM webhook_jobs
		WHERE status = 'PENDING' AND next_run_at <= now()
		ORDER BY created_at
		LIMIT 1
		FOR UPDATE SKIP LOCKED`).Scan(&id, &url, &payload, &attempts)
	if err != nil {
		return // nothing to do
	}

	sendErr := notifications.SendWebhook(url, payload, secret)
	if sendErr != nil {
		attempts++
		if attempts >= maxAttempts {
			slog.Error("Webhook job failed permanently", "job_id", id, "error", sendErr)
			_, err = tx.Exec(ctx, `UPDATE webhook_jobs SET status = 'FAILED', attempts = $2 WHERE id = $1`, id, attempts)
		} else {
			nextRun := time.Now().Add(time.Duration(attempts*10) * time.Second)
			slog.Warn("Webhook delivery failed, scheduling retry", "job_id", id, "attempt", attempts, "next_run", nextRun)
			_, err = tx.Exec(ctx, `UPDATE webhook_jobs SET attempts = $2, next_run_at = $3 WHERE id = $1`, id, attempts, nextRun)
		}
	} else {
		slog.Info("✅ Webhook delivered", "job_id", id)
		_, err = tx.Exec(ctx, `UPDATE webhook_jobs SET status = 'COMPLETED' WHERE id = $1`, id)
	}
	if err != nil {
		slog.Error("Failed to update webhook job", "job_id", id, "error", err)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		slog.Error("Failed to commit webhook job", "job_id", id, "error", err)
	}
}
