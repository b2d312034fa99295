// internal/notify/drainer.go
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/saberactivo/social/internal/models"
	"github.com/sirupsen/logrus"
)

// BatchWriter persists several notification rows at once.
type BatchWriter interface {
	InsertNotifications(ctx context.Context, ns []*models.Notification) error
}

// Drainer pops queued notifications and writes them to the store in batches.
// A batch is flushed when it reaches BatchSize or when a pop waits FlushDelay
// without receiving anything.
type Drainer struct {
	queue      Queue
	store      BatchWriter
	batchSize  int
	flushDelay time.Duration
	logger     *logrus.Logger

	batch []*models.Notification
}

func NewDrainer(q Queue, store BatchWriter, batchSize int, flushDelay time.Duration, logger *logrus.Logger) *Drainer {
	if batchSize <= 0 {
		batchSize = 20
	}
	if flushDelay <= 0 {
		flushDelay = 500 * time.Millisecond
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Drainer{
		queue:      q,
		store:      store,
		batchSize:  batchSize,
		flushDelay: flushDelay,
		logger:     logger,
		batch:      make([]*models.Notification, 0, batchSize),
	}
}

// Run drains until ctx is done, then flushes what it holds.
func (d *Drainer) Run(ctx context.Context) {
	d.logger.Info("notification drainer started")
	defer d.logger.Info("notification drainer stopped")
	for {
		if ctx.Err() != nil {
			d.Flush(context.Background())
			return
		}
		d.Step(ctx)
	}
}

// Step performs one pop and flushes if the batch is full or the queue was idle.
func (d *Drainer) Step(ctx context.Context) {
	data, err := d.queue.Pop(ctx, d.flushDelay)
	if err != nil {
		if ctx.Err() == nil {
			d.logger.WithError(err).Error("failed to pop notification")
			// avoid a hot loop while the queue is unreachable
			select {
			case <-time.After(d.flushDelay):
			case <-ctx.Done():
			}
		}
		return
	}
	if data == nil {
		d.Flush(ctx)
		return
	}

	var n models.Notification
	if err := json.Unmarshal(data, &n); err != nil {
		d.logger.WithError(err).Warn("invalid queued notification")
		return
	}
	d.batch = append(d.batch, &n)
	if len(d.batch) >= d.batchSize {
		d.Flush(ctx)
	}
}

// Flush writes the pending batch. A failed batch is logged and dropped.
func (d *Drainer) Flush(ctx context.Context) {
	if len(d.batch) == 0 {
		return
	}
	if err := d.store.InsertNotifications(ctx, d.batch); err != nil {
		d.logger.WithError(err).WithField("count", len(d.batch)).Error("failed to persist notification batch")
	} else {
		d.logger.WithField("count", len(d.batch)).Debug("flushed notification batch")
	}
	d.batch = d.batch[:0]
}

// Pending returns how many notifications wait for the next flush.
func (d *Drainer) Pending() int {
	return len(d.batch)
}
