package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/yelpcamp/apiserver/internal/mq"
	"github.com/yelpcamp/apiserver/internal/services"
)

// DefaultMaxAttempts bounds how often the worker hands one queued
// notification to the mailer before dropping it.
const DefaultMaxAttempts = 3

// Worker consumes queued notifications and delivers them through a
// Notifier, normally a Mailer.
type Worker struct {
	mq          *mq.MQ
	channel     string
	delivery    services.Notifier
	maxAttempts int

	mu       sync.Mutex
	failures map[string]int
}

func NewWorker(q *mq.MQ, channel string, delivery services.Notifier) *Worker {
	return &Worker{
		mq:          q,
		channel:     channel,
		delivery:    delivery,
		maxAttempts: DefaultMaxAttempts,
		failures:    make(map[string]int),
	}
}

// Run blocks until ctx is done or the subscription fails.
func (w *Worker) Run(ctx context.Context) error {
	slog.Info("mail worker started",
		slog.String("channel", w.channel),
		slog.Int("max_attempts", w.maxAttempts),
	)
	return w.mq.Subscribe(ctx, w.channel, w.handle)
}

// handle returns an error only for a failure worth another broker
// redelivery. Malformed payloads, undeliverable notifications and messages
// out of attempts are acknowledged and dropped.
func (w *Worker) handle(ctx context.Context, msg mq.Message) error {
	var n services.Notification
	if err := json.Unmarshal(msg.Data, &n); err != nil || n.To == "" {
		slog.Error("dropping malformed notification",
			slog.String("message_id", msg.ID),
			slog.Any("error", err),
		)
		return nil
	}

	err := w.delivery.Send(ctx, n)
	switch {
	case err == nil:
		w.forget(msg.ID)
		slog.Info("notification delivered",
			slog.String("message_id", msg.ID),
			slog.String("subject", n.Subject),
		)
		return nil
	case errors.Is(err, ErrUndeliverable):
		w.forget(msg.ID)
		slog.Error("dropping undeliverable notification",
			slog.String("message_id", msg.ID),
			slog.String("subject", n.Subject),
			slog.Any("error", err),
		)
		return nil
	}

	attempt := w.recordFailure(msg.ID)
	if attempt >= w.maxAttempts {
		w.forget(msg.ID)
		slog.Error("giving up on notification",
			slog.String("message_id", msg.ID),
			slog.String("subject", n.Subject),
			slog.Int("attempts", attempt),
			slog.Any("error", err),
		)
		return nil
	}
	slog.Warn("notification delivery failed",
		slog.String("message_id", msg.ID),
		slog.String("subject", n.Subject),
		slog.Int("attempt", attempt),
		slog.Bool("redelivered", msg.Redelivered),
		slog.Any("error", err),
	)
	return err
}

// recordFailure returns the number of failed attempts for id so far.
// Messages without an id cannot be tracked across redeliveries and get a
// single attempt.
func (w *Worker) recordFailure(id string) int {
	if id == "" {
		return w.maxAttempts
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failures[id]++
	return w.failures[id]
}

func (w *Worker) forget(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.failures, id)
}
