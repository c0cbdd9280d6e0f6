package clicks

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"snaplink-be/internal/entities"
)

const (
	defaultQueueSize = 1024
	defaultWorkers   = 2

	// jobTimeout bounds each click write so a slow database cannot pile
	// up worker goroutines forever.
	jobTimeout = 5 * time.Second
)

// tracker is the piece of the URL service the recorder needs: the
// atomic increment-plus-insert that no-ops on a missing code.
type tracker interface {
	TrackClick(ctx context.Context, shortCode string, meta entities.ClickMetadata) error
}

type job struct {
	shortCode string
	meta      entities.ClickMetadata
}

// Recorder dispatches click recording off the redirect path. Record
// never blocks: jobs go onto a bounded queue drained by background
// workers, and when the queue is full the click is dropped and logged.
// Click loss is acceptable; delaying a redirect is not.
type Recorder struct {
	svc     tracker
	logger  *zap.Logger
	jobs    chan job
	wg      sync.WaitGroup
	stopped sync.Once
}

// NewRecorder creates a recorder and starts its workers.
func NewRecorder(svc tracker, logger *zap.Logger) *Recorder {
	r := &Recorder{
		svc:    svc,
		logger: logger,
		jobs:   make(chan job, defaultQueueSize),
	}

	for i := 0; i < defaultWorkers; i++ {
		r.wg.Add(1)
		go r.worker()
	}

	return r
}

// Record enqueues a click without blocking the caller.
func (r *Recorder) Record(shortCode string, meta entities.ClickMetadata) {
	select {
	case r.jobs <- job{shortCode: shortCode, meta: meta}:
	default:
		r.logger.Warn("click queue full, dropping click", zap.String("short_code", shortCode))
	}
}

// Stop drains queued clicks and waits for the workers to finish.
func (r *Recorder) Stop() {
	r.stopped.Do(func() {
		close(r.jobs)
	})
	r.wg.Wait()
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for j := range r.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		err := r.svc.TrackClick(ctx, j.shortCode, j.meta)
		cancel()

		if err != nil {
			// Failure only logs; the redirect that triggered this click
			// has long since been answered.
			r.logger.Error("failed to record click",
				zap.String("short_code", j.shortCode),
				zap.Error(err),
			)
		}
	}
}
