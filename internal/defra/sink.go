package defra

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// OpType is the kind of write a sink operation performs.
type OpType string

const (
	OpCreate OpType = "create"
	OpUpdate OpType = "update"
)

// WriteOp is a single queued write.
type WriteOp struct {
	Collection string
	Document   map[string]any
	DocID      string // required for updates
	Op         OpType
}

// SinkConfig configures the write sink.
type SinkConfig struct {
	Client        *Client
	BatchSize     int           // flush after N ops (default 50)
	FlushInterval time.Duration // or after duration (default 5s)
	QueueSize     int           // buffer size (default 500)
	Logger        *slog.Logger
}

// Sink batches fire-and-forget writes to DefraDB. The extraction path uses
// it for audit records so a slow or unavailable store never blocks or fails
// a request.
type Sink struct {
	client *Client
	logger *slog.Logger

	batchSize     int
	flushInterval time.Duration

	queue   chan WriteOp
	batch   []WriteOp
	batchMu sync.Mutex
	flushCh chan struct{}

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewSink creates a new write sink.
func NewSink(cfg SinkConfig) *Sink {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 500
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Sink{
		client:        cfg.Client,
		logger:        cfg.Logger,
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		queue:         make(chan WriteOp, cfg.QueueSize),
		batch:         make([]WriteOp, 0, cfg.BatchSize),
		flushCh:       make(chan struct{}, 1),
	}
}

// Start begins processing queued writes.
func (s *Sink) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.runBatcher()
}

// Stop flushes remaining writes and shuts the sink down.
func (s *Sink) Stop() {
	s.stopOnce.Do(func() {
		close(s.queue)
		s.wg.Wait()
		s.cancel()
		s.logger.Info("sink stopped")
	})
}

// Send queues a write without waiting for it to complete. Writes are
// dropped with a warning if the sink is closed or the queue stays full.
func (s *Sink) Send(op WriteOp) {
	defer func() {
		// Send on a closed queue panics during shutdown races.
		if r := recover(); r != nil {
			s.logger.Warn("sink closed, dropping write",
				"collection", op.Collection,
				"op", op.Op)
		}
	}()

	select {
	case s.queue <- op:
	default:
		select {
		case s.queue <- op:
		case <-s.ctx.Done():
			s.logger.Warn("sink closed, dropping write",
				"collection", op.Collection,
				"op", op.Op)
		}
	}
}

// Flush requests an immediate flush of the pending batch.
func (s *Sink) Flush() {
	select {
	case s.flushCh <- struct{}{}:
	default:
	}
}

func (s *Sink) runBatcher() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case op, ok := <-s.queue:
			if !ok {
				s.flushBatch()
				return
			}
			s.addToBatch(op)

		case <-ticker.C:
			s.flushBatch()

		case <-s.flushCh:
			s.flushBatch()
		}
	}
}

func (s *Sink) addToBatch(op WriteOp) {
	s.batchMu.Lock()
	s.batch = append(s.batch, op)
	shouldFlush := len(s.batch) >= s.batchSize
	s.batchMu.Unlock()

	if shouldFlush {
		s.flushBatch()
	}
}

func (s *Sink) flushBatch() {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	ops := s.batch
	s.batch = make([]WriteOp, 0, s.batchSize)
	s.batchMu.Unlock()

	s.logger.Debug("flushing writes", "count", len(ops))

	// Writes preserve queue order. DefraDB's HTTP API has no batch
	// mutation, so each op is its own request.
	for _, op := range ops {
		switch op.Op {
		case OpCreate:
			if _, err := s.client.Create(s.ctx, op.Collection, op.Document); err != nil {
				s.logger.Error("sink create failed",
					"collection", op.Collection,
					"error", err)
			}
		case OpUpdate:
			if err := s.client.Update(s.ctx, op.Collection, op.DocID, op.Document); err != nil {
				s.logger.Error("sink update failed",
					"collection", op.Collection,
					"docID", op.DocID,
					"error", err)
			}
		}
	}
}
