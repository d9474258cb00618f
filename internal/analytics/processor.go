package analytics

import (
	"ShrtLink-Backend/internal/domain"
	"ShrtLink-Backend/internal/repository"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNotStarted = errors.New("processor not started")
	ErrQueueFull  = errors.New("analytics queue is full")
)

// ClickData is one redirect handed off for recording. It is also the NATS payload.
type ClickData struct {
	LinkID    int64     `json:"link_id"`
	ShortCode string    `json:"short_code"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent,omitempty"`
	Referer   string    `json:"referer,omitempty"`
	ClickedAt time.Time `json:"clicked_at"`
}

// ProcessorConfig holds configuration for the analytics processor
type ProcessorConfig struct {
	WorkerCount     int           // Number of worker goroutines
	BufferSize      int           // Size of the job queue buffer
	RetryAttempts   int           // Attempts per step
	RetryDelay      time.Duration // Base delay between retries
	JobTimeout      time.Duration // Timeout of a single attempt
	ShutdownTimeout time.Duration // Time to wait for the queue to drain
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() ProcessorConfig {
	return ProcessorConfig{
		WorkerCount:     3,
		BufferSize:      1000,
		RetryAttempts:   3,
		RetryDelay:      time.Second,
		JobTimeout:      30 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Processor records clicks off the request path with a bounded queue and a
// fixed worker pool. A click is stored at most once: its ID is fixed before
// the first write, so retries never double count. A full queue drops the
// click, and clicks still queued when the shutdown timeout hits are lost.
type Processor struct {
	config   ProcessorConfig
	recorder *Recorder
	log      *zap.Logger
	jobQueue chan *ClickData
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	stopped  bool
	mu       sync.RWMutex

	submitted atomic.Int64
	dropped   atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
}

// NewProcessor creates a new analytics processor
func NewProcessor(recorder *Recorder, log *zap.Logger, config ProcessorConfig) *Processor {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = 1
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = 30 * time.Second
	}

	// Never tied to a request: a client hanging up must not abort the write.
	ctx, cancel := context.WithCancel(context.Background())

	return &Processor{
		config:   config,
		recorder: recorder,
		log:      log.With(zap.String("component", "analytics_processor")),
		jobQueue: make(chan *ClickData, config.BufferSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins processing analytics data
func (p *Processor) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("processor already started")
	}
	if p.stopped {
		return fmt.Errorf("processor already stopped")
	}

	p.log.Info("starting analytics processor",
		zap.Int("workers", p.config.WorkerCount),
		zap.Int("buffer_size", p.config.BufferSize),
		zap.Int("retry_attempts", p.config.RetryAttempts),
	)

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.started = true
	return nil
}

// Stop closes the queue, lets the workers drain it and cancels in-flight
// work once ShutdownTimeout has passed.
func (p *Processor) Stop() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return ErrNotStarted
	}
	p.started = false
	p.stopped = true
	close(p.jobQueue)
	p.mu.Unlock()

	p.log.Info("stopping analytics processor", zap.Int("queued", len(p.jobQueue)))

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.log.Info("analytics processor stopped gracefully")
		return nil
	case <-time.After(p.config.ShutdownTimeout):
		p.cancel()
		<-done
		p.log.Warn("analytics processor shutdown timeout reached",
			zap.Int("abandoned", len(p.jobQueue)),
		)
		return fmt.Errorf("shutdown timeout reached")
	}
}

// SubmitClick queues a click without blocking. A full queue drops the click.
func (p *Processor) SubmitClick(clickData *ClickData) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.started {
		return ErrNotStarted
	}

	select {
	case p.jobQueue <- clickData:
		p.submitted.Add(1)
		return nil
	default:
		p.dropped.Add(1)
		p.log.Error("analytics queue is full, dropping click data",
			zap.String("short_code", clickData.ShortCode),
			zap.Int("queue_size", len(p.jobQueue)),
		)
		return ErrQueueFull
	}
}

func (p *Processor) worker(workerID int) {
	defer p.wg.Done()

	log := p.log.With(zap.Int("worker_id", workerID))
	log.Debug("analytics worker started")

	for clickData := range p.jobQueue {
		if p.ctx.Err() != nil {
			p.dropped.Add(1)
			continue
		}
		if p.process(log, clickData) {
			p.processed.Add(1)
		} else {
			p.failed.Add(1)
		}
	}

	log.Debug("analytics worker stopped")
}

// process classifies the click once, then stores it together with the
// counter increments. Both steps are safe to repeat.
func (p *Processor) process(log *zap.Logger, data *ClickData) bool {
	log = log.With(zap.Int64("link_id", data.LinkID), zap.String("short_code", data.ShortCode))

	var click *domain.Click
	if err := p.withRetry(log, "classify", func(ctx context.Context) error {
		var err error
		click, err = p.recorder.Classify(ctx, data)
		return err
	}); err != nil {
		return false
	}

	if err := p.withRetry(log, "record_click", func(ctx context.Context) error {
		return p.recorder.Save(ctx, click)
	}); err != nil {
		return false
	}

	log.Debug("click recorded", zap.Bool("unique", click.IsUnique))
	return true
}

// withRetry runs one step with exponential backoff. A vanished link is permanent.
func (p *Processor) withRetry(log *zap.Logger, step string, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= p.config.RetryAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(p.ctx, p.config.JobTimeout)
		err := fn(ctx)
		cancel()

		if err == nil {
			if attempt > 1 {
				log.Info("click step succeeded after retry", zap.String("step", step), zap.Int("attempt", attempt))
			}
			return nil
		}

		lastErr = err
		if errors.Is(err, repository.ErrLinkNotFound) {
			log.Warn("link vanished before click was recorded", zap.String("step", step))
			return err
		}

		log.Warn("click step failed",
			zap.String("step", step),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.config.RetryAttempts),
			zap.Error(err),
		)

		if attempt == p.config.RetryAttempts {
			break
		}

		delay := p.config.RetryDelay * time.Duration(1<<(attempt-1))
		select {
		case <-time.After(delay):
		case <-p.ctx.Done():
			return p.ctx.Err()
		}
	}

	log.Error("click step failed after all retries",
		zap.String("step", step),
		zap.Int("attempts", p.config.RetryAttempts),
		zap.Error(lastErr),
	)
	return lastErr
}

// GetStats returns processor statistics
func (p *Processor) GetStats() map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return map[string]interface{}{
		"started":        p.started,
		"queue_length":   len(p.jobQueue),
		"queue_capacity": cap(p.jobQueue),
		"worker_count":   p.config.WorkerCount,
		"retry_attempts": p.config.RetryAttempts,
		"submitted":      p.submitted.Load(),
		"dropped":        p.dropped.Load(),
		"processed":      p.processed.Load(),
		"failed":         p.failed.Load(),
	}
}
