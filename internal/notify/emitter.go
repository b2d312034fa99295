// internal/notify/emitter.go

// Package notify writes notification rows as a best-effort side effect of relationship
// transitions. Emitting never fails from the caller's point of view: delivery is
// at-most-once and failures are logged.
package notify

import (
	"context"

	"github.com/saberactivo/social/internal/models"
	"github.com/sirupsen/logrus"
)

// Emitter delivers a notification without reporting failure to the caller.
type Emitter interface {
	Emit(ctx context.Context, n models.Notification)
}

// Writer persists a single notification row.
type Writer interface {
	InsertNotification(ctx context.Context, n *models.Notification) error
}

// StoreEmitter inserts notifications synchronously into the store.
type StoreEmitter struct {
	w      Writer
	logger *logrus.Logger
}

func NewStoreEmitter(w Writer, logger *logrus.Logger) *StoreEmitter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &StoreEmitter{w: w, logger: logger}
}

// Emit inserts n and swallows any error after logging it.
func (e *StoreEmitter) Emit(ctx context.Context, n models.Notification) {
	if err := e.w.InsertNotification(ctx, &n); err != nil {
		e.logger.WithError(err).WithFields(logrus.Fields{
			"user_id": n.UserID,
			"title":   n.Title,
		}).Warn("failed to emit notification")
	}
}
