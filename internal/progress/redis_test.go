package progress

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return server, client
}

func TestRedisTrackerPublishesState(t *testing.T) {
	_, client := newTestRedis(t)
	tracker := NewRedisTracker(client, "run-1")

	tracker.Reset(5)
	if err := tracker.Advance(2); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := tracker.SetText("image.png"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := tracker.SetStatus(StatusCompleted); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	state, err := Fetch(context.Background(), client, "run-1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	expected := State{TotalTasks: 5, FinishedTasks: 2, Text: "image.png", Status: StatusCompleted}
	if state != expected {
		t.Errorf("Expected state %+v, got %+v", expected, state)
	}
}

func TestRedisTrackerAdvancePastTotal(t *testing.T) {
	_, client := newTestRedis(t)
	tracker := NewRedisTracker(client, "run-1")
	tracker.Reset(1)

	if err := tracker.Advance(2); err == nil {
		t.Error("Expected an error when advancing past the total")
	}
	if tracker.FinishedTasks() != 0 {
		t.Errorf("Expected finished tasks to stay at 0, got %d", tracker.FinishedTasks())
	}
}

func TestRedisTrackerSetsExpiry(t *testing.T) {
	server, client := newTestRedis(t)
	tracker := NewRedisTracker(client, "run-1")

	tracker.Reset(1)

	if ttl := server.TTL(Key("run-1")); ttl <= 0 {
		t.Errorf("Expected a positive TTL on the progress hash, got %v", ttl)
	}
}

func TestFetchMissingRun(t *testing.T) {
	_, client := newTestRedis(t)

	_, err := Fetch(context.Background(), client, "unknown")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestClear(t *testing.T) {
	_, client := newTestRedis(t)
	tracker := NewRedisTracker(client, "run-1")
	tracker.Reset(1)

	if err := Clear(context.Background(), client, "run-1"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	_, err := Fetch(context.Background(), client, "run-1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after clear, got %v", err)
	}
}
