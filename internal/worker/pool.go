// Package worker implements the bounded background task pool. Lifecycle
// transitions and team mutations enqueue their side effects here after
// commit: audit CSV uploads, confirmation emails, judge notifications. Tasks
// are fire-and-forget from the caller's perspective; failures are logged and
// counted, never propagated to users.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	tasksEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pda_tasks_enqueued_total",
		Help: "Total number of background tasks enqueued",
	})

	tasksProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pda_tasks_processed_total",
		Help: "Total number of background tasks completed successfully",
	})

	tasksFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pda_tasks_failed_total",
		Help: "Total number of background tasks that returned an error or panicked",
	})

	tasksDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pda_tasks_dropped_total",
		Help: "Total number of background tasks dropped because the pool was stopping or full",
	})

	taskQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pda_task_queue_depth",
		Help: "Current depth of the background task queue",
	})

	taskDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pda_task_duration_seconds",
		Help:    "Duration of background task execution",
		Buckets: prometheus.DefBuckets,
	})
)

// Task is one unit of deferred work. Name is the metric/log label.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// PoolConfig configures the task pool.
type PoolConfig struct {
	WorkerCount int
	QueueSize   int

	// TaskTimeout bounds a single task run. Background tasks ignore request
	// cancellation but still must not hang forever.
	TaskTimeout time.Duration

	Logger *zap.Logger
}

// Pool runs tasks on a fixed set of workers with a bounded queue.
type Pool struct {
	config PoolConfig
	queue  chan Task
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.SugaredLogger
}

func NewPool(cfg PoolConfig) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 2 * time.Minute
	}

	return &Pool{
		config: cfg,
		queue:  make(chan Task, cfg.QueueSize),
		logger: cfg.Logger.Sugar(),
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	go p.reportQueueDepth()

	p.logger.Infow("Task pool started",
		"workers", p.config.WorkerCount,
		"queueSize", p.config.QueueSize,
	)
}

// Stop drains the queue and waits for in-flight tasks.
func (p *Pool) Stop() {
	p.logger.Info("Stopping task pool...")
	p.cancel()
	close(p.queue)
	p.wg.Wait()
	p.logger.Info("Task pool stopped")
}

// Enqueue submits a task. It returns false when the pool is stopping or the
// queue is full; callers treat a drop like any other background failure.
func (p *Pool) Enqueue(name string, run func(ctx context.Context) error) (ok bool) {
	// Protect against sending on closed channel during shutdown.
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warnw("Task dropped (pool stopped)", "task", name)
			tasksDropped.Inc()
			ok = false
		}
	}()

	select {
	case p.queue <- Task{Name: name, Run: run}:
		tasksEnqueued.Inc()
		return true
	default:
		p.logger.Warnw("Task dropped (queue full)", "task", name, "depth", len(p.queue))
		tasksDropped.Inc()
		return false
	}
}

// QueueDepth returns the current queue size.
func (p *Pool) QueueDepth() int {
	return len(p.queue)
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for task := range p.queue {
		p.runTask(id, task)
	}
}

func (p *Pool) runTask(worker int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Errorw("Task panicked", "worker", worker, "task", task.Name, "panic", r)
			tasksFailed.Inc()
		}
	}()

	// Tasks run detached from the request context: a cancelled request must
	// not cancel an audit upload that already committed.
	ctx, cancel := context.WithTimeout(context.Background(), p.config.TaskTimeout)
	defer cancel()

	start := time.Now()
	err := task.Run(ctx)
	taskDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		p.logger.Errorw("Task failed", "worker", worker, "task", task.Name, "duration", time.Since(start), "error", err)
		tasksFailed.Inc()
		return
	}
	tasksProcessed.Inc()
}

func (p *Pool) reportQueueDepth() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			taskQueueDepth.Set(float64(len(p.queue)))
		case <-p.ctx.Done():
			return
		}
	}
}
