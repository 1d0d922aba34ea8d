package middleware

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue/v2"
	"github.com/potensia/inkwell/config"
	"github.com/potensia/inkwell/server/metrics"
)

// QueueMiddleware implements a bounded admission queue for the pipeline
// endpoints. Generation runs hold a provider connection for tens of
// seconds, so unbounded concurrency would exhaust provider rate limits
// long before it exhausts the server.
//
// Request lifecycle:
//  1. Incoming requests are added to a FIFO queue if space is available,
//     otherwise rejected with 503.
//  2. Each request then waits for one of the concurrency slots.
//  3. On completion the slot is released and the queue entry removed,
//     even if the handler panics.
//
// Thread safety: RWMutex protects queue operations, atomic counters
// track processing state, and a buffered channel serves as the
// concurrency semaphore.
type QueueMiddleware struct {
	queue      *queue.Queue[chan struct{}] // FIFO queue holding channels that signal request completion
	maxSize    atomic.Int64                // Maximum queue size, updated atomically
	mu         sync.RWMutex                // Protects queue operations
	processing int32                       // Count of requests being processed
	slots      chan struct{}               // Concurrency semaphore
	metrics    *metrics.Metrics            // Prometheus metrics for monitoring
	done       chan struct{}               // Signals shutdown
}

// NewQueueMiddleware initializes the queue from config.QueueConfig.
// The queue begins accepting requests immediately.
func NewQueueMiddleware(cfg config.QueueConfig, m *metrics.Metrics) *QueueMiddleware {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	qm := &QueueMiddleware{
		queue:   queue.New[chan struct{}](),
		slots:   make(chan struct{}, concurrency),
		metrics: m,
		done:    make(chan struct{}),
	}
	qm.maxSize.Store(cfg.MaxSize)

	return qm
}

// Shutdown waits for queued requests to complete, bounded by ctx.
func (qm *QueueMiddleware) Shutdown(ctx context.Context) error {
	select {
	case <-qm.done:
		// Channel already closed, continue with shutdown
	default:
		close(qm.done)
	}

	for {
		qm.mu.RLock()
		drained := qm.queue.Length() == 0 && atomic.LoadInt32(&qm.processing) == 0
		qm.mu.RUnlock()
		if drained {
			return nil
		}

		select {
		case <-ctx.Done():
			if qm.metrics != nil {
				qm.metrics.ErrorsTotal.WithLabelValues("queue_shutdown_timeout").Inc()
			}
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// SetMaxSize updates the maximum number of requests allowed in the queue.
// Takes effect immediately for new requests.
func (qm *QueueMiddleware) SetMaxSize(size int64) {
	qm.maxSize.Store(size)
}

// GetQueueSize returns the current queue length.
func (qm *QueueMiddleware) GetQueueSize() int {
	qm.mu.RLock()
	defer qm.mu.RUnlock()
	return qm.queue.Length()
}

// GetMaxSize returns the current maximum queue size.
func (qm *QueueMiddleware) GetMaxSize() int64 {
	return qm.maxSize.Load()
}

// GetProcessing returns the number of requests currently being processed.
func (qm *QueueMiddleware) GetProcessing() int32 {
	return atomic.LoadInt32(&qm.processing)
}

// Handler admits the request through the queue and the concurrency gate.
// A full or draining queue rejects with 503; an admitted request waits
// for a slot, runs, and cleans up its queue entry on the way out.
func (qm *QueueMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Once Shutdown has begun, new requests must not extend the drain.
		select {
		case <-qm.done:
			if qm.metrics != nil {
				qm.metrics.ErrorsTotal.WithLabelValues("queue_draining").Inc()
			}
			http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
			return
		default:
		}

		qm.mu.Lock()
		currentSize := qm.queue.Length()
		maxSize := qm.maxSize.Load()

		if qm.metrics != nil {
			qm.metrics.ActiveRequests.WithLabelValues("queued").Set(float64(currentSize))
		}

		if int64(currentSize) >= maxSize {
			qm.mu.Unlock()
			if qm.metrics != nil {
				qm.metrics.ErrorsTotal.WithLabelValues("queue_full").Inc()
			}
			http.Error(w, "Queue is full", http.StatusServiceUnavailable)
			return
		}

		done := make(chan struct{})
		qm.queue.Add(done)
		qm.mu.Unlock()

		release := func() {
			close(done)
			qm.mu.Lock()
			qm.queue.Remove()
			if qm.metrics != nil {
				qm.metrics.ActiveRequests.WithLabelValues("queued").Set(float64(qm.queue.Length()))
			}
			qm.mu.Unlock()

			if qm.metrics != nil {
				qm.metrics.RequestDuration.WithLabelValues("queue_wait").Observe(time.Since(start).Seconds())
			}
		}

		// Wait for a concurrency slot.
		select {
		case qm.slots <- struct{}{}:
		case <-r.Context().Done():
			release()
			http.Error(w, "Request cancelled while queued", http.StatusServiceUnavailable)
			return
		}

		atomic.AddInt32(&qm.processing, 1)
		if qm.metrics != nil {
			qm.metrics.ActiveRequests.WithLabelValues("processing").Inc()
		}

		defer func() {
			atomic.AddInt32(&qm.processing, -1)
			if qm.metrics != nil {
				qm.metrics.ActiveRequests.WithLabelValues("processing").Dec()
			}
			<-qm.slots
			release()
		}()

		next.ServeHTTP(w, r)
	})
}
