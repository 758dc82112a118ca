package progress

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Run status values published alongside the task counters.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Hash fields of the per-run progress key.
const (
	fieldTotalTasks    = "total_tasks"
	fieldFinishedTasks = "finished_tasks"
	fieldText          = "text"
	fieldStatus        = "status"
)

const (
	// DefaultTTL is how long a run's progress hash stays readable after
	// the last update.
	DefaultTTL = 24 * time.Hour

	redisOpTimeout = 5 * time.Second
)

// ErrNotFound is returned by Fetch when no progress was published for a run.
var ErrNotFound = errors.New("no progress recorded for run")

// Key returns the redis key of the progress hash for a run.
func Key(runID string) string {
	return "layerbatch:run:" + runID + ":progress"
}

// RedisTracker publishes run progress to a redis hash keyed per run. The
// HTTP API reads the hash back through Fetch.
type RedisTracker struct {
	client *redis.Client
	runID  string
	ttl    time.Duration

	mu            sync.Mutex
	totalTasks    int
	finishedTasks int
}

func NewRedisTracker(client *redis.Client, runID string) *RedisTracker {
	return &RedisTracker{
		client: client,
		runID:  runID,
		ttl:    DefaultTTL,
	}
}

func (t *RedisTracker) Reset(totalTasks int) {
	t.mu.Lock()
	t.totalTasks = totalTasks
	t.finishedTasks = 0
	t.mu.Unlock()

	t.publish(
		fieldTotalTasks, totalTasks,
		fieldFinishedTasks, 0,
		fieldText, "",
		fieldStatus, StatusRunning,
	)
}

func (t *RedisTracker) Advance(numTasks int) error {
	t.mu.Lock()
	if t.finishedTasks+numTasks > t.totalTasks {
		finished, total := t.finishedTasks+numTasks, t.totalTasks
		t.mu.Unlock()
		return fmt.Errorf("number of finished tasks (%d) would exceed the total (%d)", finished, total)
	}
	t.finishedTasks += numTasks
	finished := t.finishedTasks
	t.mu.Unlock()

	t.publish(fieldFinishedTasks, finished)
	return nil
}

func (t *RedisTracker) SetText(text string) error {
	return t.publish(fieldText, text)
}

// SetStatus publishes the final state of a run, e.g. StatusCompleted.
func (t *RedisTracker) SetStatus(status string) error {
	return t.publish(fieldStatus, status)
}

func (t *RedisTracker) TotalTasks() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalTasks
}

func (t *RedisTracker) FinishedTasks() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finishedTasks
}

func (t *RedisTracker) publish(fieldsAndValues ...any) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	key := Key(t.runID)
	if err := t.client.HSet(ctx, key, fieldsAndValues...).Err(); err != nil {
		return fmt.Errorf("failed to publish progress of run %s: %w", t.runID, err)
	}
	if err := t.client.Expire(ctx, key, t.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set expiry on progress of run %s: %w", t.runID, err)
	}
	return nil
}

// State is the published progress of one run.
type State struct {
	TotalTasks    int    `json:"totalTasks"`
	FinishedTasks int    `json:"finishedTasks"`
	Text          string `json:"text"`
	Status        string `json:"status"`
}

// Fetch reads the published progress of a run.
func Fetch(ctx context.Context, client *redis.Client, runID string) (State, error) {
	fields, err := client.HGetAll(ctx, Key(runID)).Result()
	if err != nil {
		return State{}, fmt.Errorf("failed to read progress of run %s: %w", runID, err)
	}
	if len(fields) == 0 {
		return State{}, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}

	state := State{
		Text:   fields[fieldText],
		Status: fields[fieldStatus],
	}
	if raw, ok := fields[fieldTotalTasks]; ok {
		if state.TotalTasks, err = strconv.Atoi(raw); err != nil {
			return State{}, fmt.Errorf("invalid total task count %q for run %s: %w", raw, runID, err)
		}
	}
	if raw, ok := fields[fieldFinishedTasks]; ok {
		if state.FinishedTasks, err = strconv.Atoi(raw); err != nil {
			return State{}, fmt.Errorf("invalid finished task count %q for run %s: %w", raw, runID, err)
		}
	}
	return state, nil
}

// Clear removes the published progress of a run, e.g. after the run was
// deleted from the store.
func Clear(ctx context.Context, client *redis.Client, runID string) error {
	if err := client.Del(ctx, Key(runID)).Err(); err != nil {
		return fmt.Errorf("failed to clear progress of run %s: %w", runID, err)
	}
	return nil
}
