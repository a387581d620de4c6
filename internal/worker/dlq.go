package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DLQPrefix namespaces the dead-letter list of each queue: dlq:<queue>.
const DLQPrefix = "dlq:"

// DeadLetter is a job that used up MaxJobAttempts, kept for inspection or
// replay.
type DeadLetter struct {
	Queue    string    `json:"queue"`
	Job      Job       `json:"job"`
	LastErr  string    `json:"last_error"`
	FailedAt time.Time `json:"failed_at"`
}

func dlqKey(queue string) string { return DLQPrefix + queue }

// deadLetter parks job on the queue's dead-letter list.
func (d *Dispatcher) deadLetter(ctx context.Context, queue string, job Job, cause error) error {
	data, err := json.Marshal(DeadLetter{
		Queue:    queue,
		Job:      job,
		LastErr:  cause.Error(),
		FailedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if err := d.rdb.LPush(ctx, dlqKey(queue), data).Err(); err != nil {
		return fmt.Errorf("dead-letter %s: %w", job.Type, err)
	}
	log.Warn().
		Str("queue", queue).
		Str("type", job.Type).
		Int("attempts", job.Attempts).
		Str("last_error", cause.Error()).
		Msg("job dead-lettered")
	return nil
}

// DLQLength returns the backlog of a dead-letter list.
func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, dlqKey(queue)).Result()
}

// ReplayDLQ moves up to limit dead letters (oldest first) back onto queue with
// their attempt counter reset. It returns how many were moved.
func ReplayDLQ(ctx context.Context, rdb *redis.Client, queue string, limit int) (int, error) {
	d := NewDispatcher(rdb)
	moved := 0
	for moved < limit {
		raw, err := rdb.RPop(ctx, dlqKey(queue)).Result()
		if err == redis.Nil {
			break
		}
		if err != nil {
			return moved, err
		}
		var dl DeadLetter
		if err := json.Unmarshal([]byte(raw), &dl); err != nil {
			log.Error().Err(err).Str("queue", queue).Msg("dropping unreadable dead letter")
			continue
		}
		dl.Job.Attempts = 0
		if err := d.enqueue(ctx, queue, dl.Job); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}
