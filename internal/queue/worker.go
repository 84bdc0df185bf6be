// Package queue decouples cache invalidation from the mutating path:
// producers append jobs to a Redis Stream and a consumer-group worker
// drops the gateway's cache keys, retrying with backoff. An
// unreachable cache therefore never blocks or fails a filesystem
// mutation.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"

	"github.com/a-d-w-s/assethub/internal/config"
)

type Cache interface {
	Remove(ctx context.Context, key string) error
	RemovePrefix(ctx context.Context, prefix string) error
}

type Worker struct {
	rc    redis.UniversalClient
	cfg   config.InvalidatorConfig
	cache Cache
}

// Init wires up the producer and starts the worker in the background.
func Init(ctx context.Context, rc redis.UniversalClient, cfg config.InvalidatorConfig, cache Cache) *Producer {
	producer := NewProducer(rc, cfg.Stream, cfg.MaxLen)
	worker := NewWorker(rc, cfg, cache)

	go func() {
		if err := worker.Start(ctx); err != nil {
			log.Printf("[invalidator] stopped: %v", err)
		}
	}()

	return producer
}

func NewWorker(rc redis.UniversalClient, cfg config.InvalidatorConfig, cache Cache) *Worker {
	return &Worker{
		rc:    rc,
		cfg:   cfg,
		cache: cache,
	}
}

func (w *Worker) EnsureGroup(ctx context.Context) error {
	// Without MkStream, Redis would error out if the group is created
	// before any message exists in the stream.
	err := w.rc.XGroupCreateMkStream(ctx, w.cfg.Stream, w.cfg.Group, "0").Err()
	// Redis returns BUSYGROUP if the group already exists therefore we check for other errors
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (w *Worker) Start(ctx context.Context) error {
	if err := w.EnsureGroup(ctx); err != nil {
		return fmt.Errorf("failed to ensure Redis group: %w", err)
	}

	log.Printf("[invalidator] starting consumer group=%s stream=%s workers=%d",
		w.cfg.Group, w.cfg.Stream, w.cfg.Workers,
	)

	// Adopt orphaned pending messages
	w.autoClaim(ctx)

	errCh := make(chan error, w.cfg.Workers)
	for i := 0; i < w.cfg.Workers; i++ {
		id := i
		go func() {
			err := w.loop(ctx)
			if err != nil {
				log.Printf("[invalidator] worker #%d stopped with error: %v", id, err)
			}
			errCh <- err
		}()
	}

	select {
	case <-ctx.Done():
		log.Printf("[invalidator] context canceled, stopping all workers")
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("worker loop exited with error: %w", err)
		}
		return nil
	}
}

// autoClaim takes ownership of messages that were delivered to other
// consumers in the group but never acknowledged, e.g. because a
// worker died before XACK. Reclaimed jobs are retried like new ones,
// so an invalidation is never lost across restarts.
func (w *Worker) autoClaim(ctx context.Context) {
	next := "0-0"

	// Only reclaim messages idle long enough that their original
	// consumer is clearly gone, not just slow.
	minIdle := 30 * time.Second
	if w.cfg.BlockTimeout > 0 {
		t := w.cfg.BlockTimeout * 6
		if t > minIdle {
			minIdle = t
		}
	}

	for {
		msgs, start, err := w.rc.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   w.cfg.Stream,
			Group:    w.cfg.Group,
			Consumer: w.cfg.Consumer,
			MinIdle:  minIdle,
			Start:    next,
			Count:    100,
		}).Result()
		if err != nil || len(msgs) == 0 {
			return
		}
		next = start
	}
}

func (w *Worker) loop(ctx context.Context) error {
	for {
		// XREADGROUP marks the returned messages as pending for this
		// consumer; they stay in the group's PEL until XACKed in
		// handle(), and autoClaim picks them up if we crash first.
		streams, err := w.rc.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    w.cfg.Group,
			Consumer: w.cfg.Consumer,
			Streams:  []string{w.cfg.Stream, ">"},
			Count:    1,
			Block:    w.cfg.BlockTimeout,
		}).Result()
		if err != nil && err != redis.Nil {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		for _, s := range streams {
			for _, m := range s.Messages {
				_ = w.handle(ctx, m)
			}
		}
	}
}

func (w *Worker) handle(ctx context.Context, m redis.XMessage) error {
	defer w.rc.XAck(ctx, w.cfg.Stream, w.cfg.Group, m.ID).Err()

	raw, ok := m.Values["payload"].(string)
	if !ok {
		sentry.CaptureMessage(fmt.Sprintf("invalidator: message %s has no payload", m.ID))
		return nil
	}
	var job InvalidateJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		sentry.CaptureException(fmt.Errorf("invalidator: bad payload in %s: %w", m.ID, err))
		return nil
	}
	attempt := toInt(m.Values["attempt"])

	if err := w.process(ctx, job); err != nil {
		if attempt+1 >= w.cfg.MaxAttempts {
			// Cache staleness is self-healing (the gateway regenerates
			// on miss), so give up after maxAttempts instead of
			// queueing forever.
			sentry.CaptureException(fmt.Errorf("invalidator: giving up on %q after %d attempts: %w", job.Key, attempt+1, err))
			return nil
		}
		// simple exponential backoff requeue
		backoff := w.cfg.BackoffBase << attempt
		time.AfterFunc(backoff, func() {
			_ = w.rc.XAdd(context.Background(), &redis.XAddArgs{
				Stream: w.cfg.Stream,
				MaxLen: w.cfg.MaxLen,
				Values: map[string]any{
					"payload": raw,
					"attempt": attempt + 1,
				},
			}).Err()
		})
		return err
	}
	return nil
}

func (w *Worker) process(ctx context.Context, job InvalidateJob) error {
	if job.Prefix {
		if err := w.cache.RemovePrefix(ctx, job.Key); err != nil {
			return fmt.Errorf("drop namespace %q: %w", job.Key, err)
		}
		return nil
	}

	if err := w.cache.Remove(ctx, job.Key); err != nil {
		return fmt.Errorf("drop key %q: %w", job.Key, err)
	}
	return nil
}

func toInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case string:
		var x int
		fmt.Sscanf(t, "%d", &x)
		return x
	default:
		return 0
	}
}
