package finance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/frahmantamala/expense-approval/internal/core/events"
	"github.com/frahmantamala/expense-approval/internal/request"
)

var ErrQueueFull = errors.New("finance queue full, please try again later")

type Job struct {
	RequestID string
}

type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Job, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, process func(Job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker processing job", "worker_id", w.ID, "request_id", job.RequestID)
				process(job)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type Config struct {
	MaxWorkers   int
	JobQueueSize int
}

// Dispatcher delivers forwarded requests to finance from a bounded pool of
// workers. Jobs carry only the request id; the worker reloads the request so
// the payload reflects what was stored.
type Dispatcher struct {
	requests Requests
	client   *WebhookClient
	logger   *slog.Logger

	jobQueue   chan Job
	workerPool chan chan Job
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
	done       func(Job, error)
}

func NewDispatcher(config Config, requests Requests, client *WebhookClient, logger *slog.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	jobQueueSize := config.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 100
	}

	return &Dispatcher{
		requests:   requests,
		client:     client,
		logger:     logger,
		maxWorkers: maxWorkers,
		jobQueue:   make(chan Job, jobQueueSize),
		workerPool: make(chan chan Job, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// OnDone registers a callback run after every job with its outcome.
func (d *Dispatcher) OnDone(fn func(Job, error)) *Dispatcher {
	d.done = fn
	return d
}

// Start launches the workers and the dispatch loop. Later calls do nothing.
func (d *Dispatcher) Start() {
	d.once.Do(func() {
		for i := 0; i < d.maxWorkers; i++ {
			worker := NewWorker(i, d.workerPool, d.logger)
			worker.Start(d.ctx, &d.wg, d.process)
		}

		d.wg.Add(1)
		go d.dispatch()

		d.logger.Info("finance worker pool started",
			"max_workers", d.maxWorkers,
			"queue_size", cap(d.jobQueue))
	})
}

func (d *Dispatcher) dispatch() {
	defer d.wg.Done()

	for {
		select {
		case job := <-d.jobQueue:
			select {
			case jobChannel := <-d.workerPool:
				select {
				case jobChannel <- job:
				case <-d.ctx.Done():
					d.logger.Info("dispatcher shutting down")
					return
				}
			case <-d.ctx.Done():
				d.logger.Info("dispatcher shutting down")
				return
			}
		case <-d.ctx.Done():
			d.logger.Info("dispatcher shutting down")
			return
		}
	}
}

// Shutdown stops the workers and waits for them. Queued jobs that no worker
// picked up are dropped.
func (d *Dispatcher) Shutdown() {
	d.logger.Info("shutting down finance dispatcher")
	d.cancel()
	d.wg.Wait()
	d.logger.Info("finance dispatcher shutdown complete", "dropped_jobs", len(d.jobQueue))
}

// Enqueue queues a handoff without blocking.
func (d *Dispatcher) Enqueue(requestID string) error {
	select {
	case d.jobQueue <- Job{RequestID: requestID}:
		d.logger.Info("finance job queued", "request_id", requestID, "queue_length", len(d.jobQueue))
		return nil
	default:
		d.logger.Warn("finance job queue full", "request_id", requestID, "queue_capacity", cap(d.jobQueue))
		return ErrQueueFull
	}
}

// Resend queues every forwarded request again.
func (d *Dispatcher) Resend(ctx context.Context) (int, error) {
	reqs, err := d.requests.ListByStatus(ctx, request.StatusForwarded)
	if err != nil {
		return 0, fmt.Errorf("list forwarded requests: %w", err)
	}
	queued := 0
	for _, req := range reqs {
		if err := d.Enqueue(req.ID); err != nil {
			return queued, err
		}
		queued++
	}
	return queued, nil
}

func (d *Dispatcher) process(job Job) {
	err := d.deliver(job)
	if d.done != nil {
		d.done(job, err)
	}
}

func (d *Dispatcher) deliver(job Job) error {
	req, err := d.requests.Get(d.ctx, job.RequestID)
	if err != nil {
		d.logger.Error("failed to load forwarded request", "error", err, "request_id", job.RequestID)
		return err
	}
	if req == nil {
		d.logger.Warn("forwarded request no longer exists", "request_id", job.RequestID)
		return request.ErrNotFound(job.RequestID)
	}
	if !req.IsForwarded() {
		d.logger.Warn("skipping request that is not forwarded", "request_id", job.RequestID, "status", req.Status)
		return nil
	}
	return d.client.Send(d.ctx, NewPayload(*req))
}

func (d *Dispatcher) HandleRequestForwarded(ctx context.Context, event events.Event) error {
	id, ok := events.RequestIDOf(event)
	if !ok {
		d.logger.Error("forwarded event without request id", "event_id", event.EventID())
		return fmt.Errorf("event %s carries no request id", event.EventID())
	}

	if err := d.Enqueue(id); err != nil {
		return fmt.Errorf("queue finance handoff for %s: %w", id, err)
	}
	return nil
}

func (d *Dispatcher) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypeRequestForwarded, d.HandleRequestForwarded)

	d.logger.Info("finance event handlers registered",
		"handlers", []string{events.EventTypeRequestForwarded})
}
