// Package queue serializes all action execution against the single display.
//
// Any number of callers may submit concurrently; a single worker goroutine
// owns the display driver and drains requests strictly in arrival order.
// The queue enforces the per-action timeout, inter-action pacing, bounded
// admission, and the degraded state after a display connection loss.
package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/desk-next/deskcli/actions"
	"github.com/desk-next/deskcli/display"
	"github.com/desk-next/deskcli/utils"
)

// Config controls queue behavior. Zero fields are replaced by defaults.
type Config struct {
	// Depth is the maximum number of admitted-but-unstarted requests.
	// Submissions beyond it fail immediately with a busy error.
	Depth int

	// ActionTimeout is the execution budget for a single action.
	ActionTimeout time.Duration

	// ActionDelay is the enforced pause between consecutive actions, to
	// let transient UI state settle.
	ActionDelay time.Duration

	// ScreenshotDelay is the extra settle wait before a capture, to let
	// rendering triggered by preceding actions finish.
	ScreenshotDelay time.Duration
}

// DefaultConfig returns the standard production timings.
func DefaultConfig() Config {
	return Config{
		Depth:           32,
		ActionTimeout:   10 * time.Second,
		ActionDelay:     500 * time.Millisecond,
		ScreenshotDelay: 2 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Depth <= 0 {
		c.Depth = def.Depth
	}
	if c.ActionTimeout <= 0 {
		c.ActionTimeout = def.ActionTimeout
	}
	if c.ActionDelay <= 0 {
		c.ActionDelay = def.ActionDelay
	}
	if c.ScreenshotDelay <= 0 {
		c.ScreenshotDelay = def.ScreenshotDelay
	}
	return c
}

// Result is the outcome of a completed action, returned to the submitting
// caller. The queue retains no reference to it after delivery.
type Result struct {
	// ID is the request identifier assigned at submission.
	ID string

	// Data is the action's success payload, nil for effect-only actions.
	Data map[string]interface{}

	// Elapsed is the execution time, excluding queue wait and pacing.
	Elapsed time.Duration
}

type outcome struct {
	result *Result
	err    error
}

type request struct {
	id        string
	action    actions.Action
	submitted time.Time
	ctx       context.Context
	resultCh  chan outcome
}

// Queue is the scheduler enforcing exclusive, ordered access to the display.
type Queue struct {
	cfg      Config
	driver   display.Driver
	executor *actions.Executor
	requests chan *request
	degraded atomic.Bool
	closed   chan struct{}
	once     sync.Once
	done     chan struct{}

	monitor *monitor
	metrics *metrics
}

// New builds a queue around the given driver and starts its worker. The
// queue becomes the sole owner of the driver; no other component may call
// into it while the queue is running.
func New(driver display.Driver, cfg Config) (*Queue, error) {
	executor, err := actions.NewExecutor(driver)
	if err != nil {
		return nil, err
	}

	cfg = cfg.withDefaults()
	q := &Queue{
		cfg:      cfg,
		driver:   driver,
		executor: executor,
		requests: make(chan *request, cfg.Depth),
		closed:   make(chan struct{}),
		done:     make(chan struct{}),
		monitor:  newMonitor(),
		metrics:  newMetrics(),
	}

	go q.worker()
	return q, nil
}

// Executor exposes the queue's validator so the transport can reject
// malformed requests before admission.
func (q *Queue) Executor() *actions.Executor {
	return q.executor
}

// Submit enqueues an action and blocks until its result is ready, the
// caller's context is done, or the submission is rejected. It is safe for
// concurrent use.
func (q *Queue) Submit(ctx context.Context, action actions.Action) (*Result, error) {
	if q.degraded.Load() {
		return nil, actions.Errorf(actions.KindUnavailable, "display connection degraded, reconnect required")
	}

	if err := q.executor.Validate(action); err != nil {
		return nil, err
	}

	req := &request{
		id:        uuid.NewString(),
		action:    action,
		submitted: time.Now(),
		ctx:       ctx,
		resultCh:  make(chan outcome, 1),
	}

	select {
	case q.requests <- req:
		q.metrics.depth.Inc()
	case <-q.closed:
		return nil, actions.Errorf(actions.KindUnavailable, "queue is shut down")
	default:
		return nil, actions.Errorf(actions.KindBusy, "queue depth %d exceeded, retry later", q.cfg.Depth)
	}

	select {
	case out := <-req.resultCh:
		return out.result, out.err
	case <-ctx.Done():
		// The worker observes the cancelled context and drops the
		// request without side effects if it has not started yet.
		return nil, ctx.Err()
	case <-q.closed:
		return nil, actions.Errorf(actions.KindUnavailable, "queue is shut down")
	}
}

// Degraded reports whether the queue is refusing work after a display
// connection loss.
func (q *Queue) Degraded() bool {
	return q.degraded.Load()
}

// Reconnect probes the display and, if it responds, clears the degraded
// state. It is exposed to, not owned by, the queue: an external supervisor
// decides when to attempt recovery.
func (q *Queue) Reconnect() error {
	if !q.degraded.Load() {
		return nil
	}
	if err := q.driver.Ping(); err != nil {
		return actions.WrapError(actions.KindUnavailable, err, "display still unreachable")
	}
	q.degraded.Store(false)
	utils.Info("display connection restored")
	return nil
}

// Close stops the worker and fails all pending submissions. It blocks until
// the worker has exited.
func (q *Queue) Close() {
	q.once.Do(func() {
		close(q.closed)
	})
	<-q.done
}

func (q *Queue) worker() {
	defer close(q.done)
	defer q.monitor.closeAll()

	for {
		select {
		case <-q.closed:
			q.failPending()
			return
		case req := <-q.requests:
			q.metrics.depth.Dec()
			if req.ctx.Err() != nil {
				// caller abandoned the request before it started
				continue
			}
			q.process(req)
		}
	}
}

func (q *Queue) process(req *request) {
	time.Sleep(q.cfg.ActionDelay)
	if _, ok := req.action.(actions.Screenshot); ok {
		time.Sleep(q.cfg.ScreenshotDelay)
	}

	start := time.Now()
	handlerDone := make(chan outcome, 1)
	go func() {
		res, err := q.executor.Execute(req.action)
		var result *Result
		if res != nil {
			result = &Result{ID: req.id, Data: res.Data, Elapsed: time.Since(start)}
		}
		handlerDone <- outcome{result: result, err: err}
	}()

	timer := time.NewTimer(q.cfg.ActionTimeout)
	defer timer.Stop()

	var out outcome
	select {
	case out = <-handlerDone:
	case <-timer.C:
		elapsed := time.Since(start)
		err := actions.Errorf(actions.KindTimeout, "action %q exceeded %v budget", req.action.Type(), q.cfg.ActionTimeout)
		req.resultCh <- outcome{err: err}
		q.record(req, nil, err, elapsed)

		// Recovery barrier: the native call may still be in flight.
		// Wait it out before touching the display again, so the
		// abandoned action cannot leak into the next one. Its result,
		// if any, is discarded unreported.
		utils.Verbose("action %s timed out, waiting for in-flight call to return", req.id)
		late := <-handlerDone
		if late.err != nil && actions.IsConnectionLost(late.err) {
			q.degrade(late.err)
		}
		return
	}

	elapsed := time.Since(start)
	if out.err != nil && actions.IsConnectionLost(out.err) {
		q.degrade(out.err)
	}
	req.resultCh <- out
	q.record(req, out.result, out.err, elapsed)
}

func (q *Queue) degrade(err error) {
	if q.degraded.CompareAndSwap(false, true) {
		utils.Error("display connection lost, queue degraded: %v", err)
	}
}

func (q *Queue) failPending() {
	for {
		select {
		case req := <-q.requests:
			q.metrics.depth.Dec()
			req.resultCh <- outcome{err: actions.Errorf(actions.KindUnavailable, "queue is shut down")}
		default:
			return
		}
	}
}

func (q *Queue) record(req *request, res *Result, err error, elapsed time.Duration) {
	status := "success"
	var kind actions.Kind
	var message string
	if err != nil {
		status = "error"
		kind = actions.KindOf(err)
		message = actions.MessageOf(err)
	}

	q.metrics.actionsTotal.WithLabelValues(req.action.Type(), status).Inc()
	q.metrics.actionDuration.WithLabelValues(req.action.Type()).Observe(elapsed.Seconds())

	q.monitor.publish(Event{
		ID:        req.id,
		Timestamp: time.Now().UnixMilli(),
		Action:    req.action.Type(),
		Status:    status,
		ErrorKind: string(kind),
		Message:   message,
		ElapsedMs: elapsed.Milliseconds(),
	})
}
