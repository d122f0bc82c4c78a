package flux

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/sneezeparty/soupy/diag/metrics"
	"github.com/sneezeparty/soupy/log"
)

const (
	ActionFlux   = "flux"
	ActionRemix  = "remix"
	ActionFancy  = "fancy"
	ActionWide   = "wide"
	ActionTall   = "tall"
	ActionEdit   = "edit"
	ActionRandom = "random"
)

var ErrQueueClosed = errors.New("image queue is shut down")
var ErrQueueFull = errors.New("image queue is full")

// Job is a queued image generation task. Run is executed on the
// queue's worker goroutine, one job at a time.
type Job struct {
	Action string
	Run    func(ctx context.Context)
}

// Queue serializes image generation so the image server only ever
// renders one request at a time.
type Queue struct {
	jobs            chan Job
	ctx             context.Context
	cancel          context.CancelFunc
	done            chan struct{}
	closed          atomic.Bool
	size            atomic.Int32
	metricsReporter metrics.Reporter
	log             log.Logger
}

func NewQueue(capacity int, metricsReporter metrics.Reporter, log log.Logger) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		jobs:            make(chan Job, capacity),
		ctx:             ctx,
		cancel:          cancel,
		done:            make(chan struct{}),
		metricsReporter: metricsReporter,
		log:             log.WithPrefix("queue"),
	}
}

// Listen starts the worker goroutine.
func (q *Queue) Listen() {
	go func() {
		defer close(q.done)
		for {
			select {
			case job := <-q.jobs:
				q.size.Add(-1)
				q.reportSize()
				q.runJob(job)
			case <-q.ctx.Done():
				return
			}
		}
	}()
}

// Enqueue adds a job to the queue. It fails when the queue is full
// or shutting down instead of blocking the caller.
func (q *Queue) Enqueue(job Job) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}
	return q.offer(job)
}

func (q *Queue) offer(job Job) error {
	select {
	case q.jobs <- job:
		q.size.Add(1)
		q.reportSize()
	default:
		return ErrQueueFull
	}
	// Shutdown may have flipped closed between the caller's check and
	// the send, after its drain already emptied the channel. Take the
	// job back so it isn't stranded.
	if q.closed.Load() {
		select {
		case <-q.jobs:
			q.size.Add(-1)
			q.reportSize()
		default:
		}
		return ErrQueueClosed
	}
	return nil
}

// Size returns the number of jobs waiting to run.
func (q *Queue) Size() int {
	return int(q.size.Load())
}

// Shutdown stops accepting new jobs, discards the pending ones, and
// waits for the in-flight job to finish.
func (q *Queue) Shutdown() {
	if q.closed.Swap(true) {
		return
	}
	if pending := q.Size(); pending > 0 {
		q.log.Reportf("initiating queue shutdown, discarding %d pending job(s)", pending)
	} else {
		q.log.Reportf("initiating queue shutdown")
	}
	q.cancel()
	<-q.done
	for {
		select {
		case <-q.jobs:
			q.size.Add(-1)
			q.reportSize()
		default:
			q.log.Reportf("queue shutdown complete")
			return
		}
	}
}

func (q *Queue) runJob(job Job) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Errorf("panic while processing '%s' job: %v", job.Action, r)
		}
	}()
	job.Run(q.ctx)
}

func (q *Queue) reportSize() {
	if q.metricsReporter != nil {
		q.metricsReporter.SetQueueLength(q.Size())
	}
}
