package persistence

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultWorkers       = 4
	defaultQueueSize     = 1024
	defaultMaxAttempts   = 3
	defaultRetryInterval = time.Second
	defaultWriteTimeout  = 5 * time.Second
)

var (
	ErrOutboxClosed = errors.New("outbox closed")
	ErrOutboxFull   = errors.New("outbox shard full")
)

type OutboxConfig struct {
	Workers       int
	QueueSize     int
	MaxAttempts   int
	RetryInterval time.Duration
	WriteTimeout  time.Duration
}

func (c OutboxConfig) withDefaults() OutboxConfig {
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = defaultRetryInterval
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	return c
}

type write struct {
	playerID string
	op       string
	run      func(ctx context.Context) error
	// marker is closed by the worker instead of running a write.
	marker chan struct{}
}

// OutboxStats counts what happened to enqueued writes.
type OutboxStats struct {
	Enqueued int64 `json:"enqueued"`
	Written  int64 `json:"written"`
	Retried  int64 `json:"retried"`
	Failed   int64 `json:"failed"`
	Dropped  int64 `json:"dropped"`
}

// Outbox performs remote writes off the caller's goroutine. Writes for one
// player always land on the same worker so they are applied in enqueue order.
// Enqueue never blocks: a full shard drops the write.
type Outbox struct {
	cfg    OutboxConfig
	shards []chan write
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	enqueued atomic.Int64
	written  atomic.Int64
	retried  atomic.Int64
	failed   atomic.Int64
	dropped  atomic.Int64
}

func NewOutbox(cfg OutboxConfig) *Outbox {
	cfg = cfg.withDefaults()
	o := &Outbox{
		cfg:    cfg,
		shards: make([]chan write, cfg.Workers),
	}
	for i := range o.shards {
		o.shards[i] = make(chan write, cfg.QueueSize)
	}

	o.wg.Add(len(o.shards))
	for i := range o.shards {
		go o.worker(o.shards[i])
	}
	return o
}

// Enqueue schedules fn for playerID. It reports false when the write was
// dropped because the outbox is closed or the player's shard is full.
func (o *Outbox) Enqueue(playerID, op string, fn func(ctx context.Context) error) bool {
	err := o.push(write{playerID: playerID, op: op, run: fn})
	if err != nil {
		o.dropped.Add(1)
		slog.Warn("Remote write dropped",
			slog.String("type", "db"),
			slog.String("operation", op),
			slog.String("player_id", playerID),
			slog.Any("error", err))
		return false
	}
	o.enqueued.Add(1)
	return true
}

// Flush waits until every write enqueued for playerID before the call has
// been handled by its worker, or until ctx ends.
func (o *Outbox) Flush(ctx context.Context, playerID string) error {
	done := make(chan struct{})
	if err := o.push(write{playerID: playerID, op: "flush", marker: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Outbox) push(w write) error {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.closed {
		return ErrOutboxClosed
	}
	select {
	case o.shards[o.shard(w.playerID)] <- w:
		return nil
	default:
		return ErrOutboxFull
	}
}

func (o *Outbox) shard(playerID string) int {
	h := fnv.New32a()
	h.Write([]byte(playerID))
	return int(h.Sum32() % uint32(len(o.shards)))
}

func (o *Outbox) worker(queue <-chan write) {
	defer o.wg.Done()
	for w := range queue {
		if w.marker != nil {
			close(w.marker)
			continue
		}
		o.execute(w)
	}
}

// execute runs one write with a fixed retry interval. Failures are logged
// and never reported back to the economy.
func (o *Outbox) execute(w write) {
	var err error
	for attempt := 1; attempt <= o.cfg.MaxAttempts; attempt++ {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), o.cfg.WriteTimeout)
		err = w.run(ctx)
		cancel()

		if err == nil {
			o.written.Add(1)
			slog.Debug("Remote write applied",
				slog.String("type", "db"),
				slog.String("operation", w.op),
				slog.String("player_id", w.playerID),
				slog.Duration("took", time.Since(start)))
			return
		}

		if attempt < o.cfg.MaxAttempts {
			o.retried.Add(1)
			slog.Warn("Remote write failed, retrying",
				slog.String("type", "db"),
				slog.String("operation", w.op),
				slog.String("player_id", w.playerID),
				slog.Int("attempt", attempt),
				slog.Any("error", err))
			time.Sleep(o.cfg.RetryInterval)
		}
	}

	o.failed.Add(1)
	slog.Error("Remote write failed",
		slog.String("type", "db"),
		slog.String("operation", w.op),
		slog.String("player_id", w.playerID),
		slog.Int("attempts", o.cfg.MaxAttempts),
		slog.Any("error", err))
}

func (o *Outbox) Stats() OutboxStats {
	return OutboxStats{
		Enqueued: o.enqueued.Load(),
		Written:  o.written.Load(),
		Retried:  o.retried.Load(),
		Failed:   o.failed.Load(),
		Dropped:  o.dropped.Load(),
	}
}

// Close stops accepting writes and waits for queued writes to drain or for
// ctx to end, whichever comes first.
func (o *Outbox) Close(ctx context.Context) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrOutboxClosed
	}
	o.closed = true
	for _, q := range o.shards {
		close(q)
	}
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("outbox drain: %w", ctx.Err())
	}
}
