package delivery

import (
	"context"
	"sync"

	obsmetrics "github.com/smallbiznis/menusready/internal/observability/metrics"
	"go.uber.org/zap"
)

// Dispatcher feeds job ids to a fixed pool of workers. Dispatch never
// blocks; a job that does not fit in the queue is picked up by the sweeper.
type Dispatcher struct {
	worker  *Worker
	queue   chan int64
	workers int
	metrics *obsmetrics.DeliveryMetrics
	log     *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

func NewDispatcher(cfg Config, worker *Worker, metrics *obsmetrics.DeliveryMetrics, log *zap.Logger) *Dispatcher {
	cfg = cfg.withDefaults()
	return &Dispatcher{
		worker:  worker,
		queue:   make(chan int64, cfg.QueueSize),
		workers: cfg.Workers,
		metrics: metrics,
		log:     log.Named("delivery.dispatcher"),
	}
}

// Dispatch reports whether the job was queued.
func (d *Dispatcher) Dispatch(jobID int64) bool {
	select {
	case d.queue <- jobID:
		d.metrics.SetQueueDepth(len(d.queue))
		return true
	default:
		d.log.Warn("delivery queue full; leaving job for sweeper", zap.Int64("job_id", jobID))
		return false
	}
}

func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.started = true

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.loop(ctx)
	}
	d.log.Info("delivery dispatcher started", zap.Int("workers", d.workers))
}

// Stop cancels in-flight jobs and waits for the pool to drain or ctx to end.
// Queued ids stay in the database as pending.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return nil
	}
	d.cancel()
	d.started = false
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) loop(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-d.queue:
			d.metrics.SetQueueDepth(len(d.queue))
			d.worker.Process(ctx, id)
		}
	}
}
