package pipeline

import (
	"context"
	"time"

	"github.com/editalhub/edital-api/internal/config"
	"github.com/editalhub/edital-api/internal/store"
	"github.com/google/uuid"
	jitterbug "github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"
)

const workQueueSize = 128

// Dispatcher decouples "a document needs extraction" from "extraction is
// running now". Enqueue is a wake-up nudge; the jittered poll loop over
// due documents (PENDING past their backoff, plus PROCESSING claims
// abandoned by a dead worker) is the at-least-once backstop, so a dropped
// nudge or a crashed process only delays work, never loses it.
type Dispatcher struct {
	store store.Store
	orch  *Orchestrator
	cfg   *config.Config
	work  chan uuid.UUID
}

func NewDispatcher(s store.Store, orch *Orchestrator, cfg *config.Config) *Dispatcher {
	return &Dispatcher{
		store: s,
		orch:  orch,
		cfg:   cfg,
		work:  make(chan uuid.UUID, workQueueSize),
	}
}

// Enqueue requests an extraction attempt for the document. Non-blocking:
// when the queue is full the poll loop picks the document up instead.
func (d *Dispatcher) Enqueue(id uuid.UUID) {
	select {
	case d.work <- id:
	default:
		zap.S().Named("dispatcher").Debugf("work queue full, document %s left for poll loop", id)
	}
}

// Start launches the worker pool and the poll loop. It returns immediately;
// everything winds down when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.cfg.Pipeline.Workers; i++ {
		go d.worker(ctx)
	}
	go d.poll(ctx)

	zap.S().Named("dispatcher").Infof("dispatcher started with %d workers, polling every %s",
		d.cfg.Pipeline.Workers, d.cfg.Pipeline.PollInterval)
}

func (d *Dispatcher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-d.work:
			d.orch.Process(ctx, id)
		}
	}
}

func (d *Dispatcher) poll(ctx context.Context) {
	ticker := jitterbug.New(d.cfg.Pipeline.PollInterval, &jitterbug.Norm{Stdev: 100 * time.Millisecond})
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			ids, err := d.store.Document().ListDue(ctx, now, d.orch.staleBefore(now), workQueueSize)
			if err != nil {
				zap.S().Named("dispatcher").Errorf("failed to list due documents: %v", err)
				continue
			}
			for _, id := range ids {
				d.Enqueue(id)
			}
		}
	}
}
