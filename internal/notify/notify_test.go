package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
	"github.com/yelpcamp/apiserver/config"
	"github.com/yelpcamp/apiserver/internal/mq"
	"github.com/yelpcamp/apiserver/internal/services"
)

type fakeSender struct {
	sent []*mail.Msg
	err  error
}

func (f *fakeSender) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	f.sent = append(f.sent, messages...)
	return f.err
}

type loopBackend struct {
	queued []mq.Message
	acked  int
	nacked int
}

func (b *loopBackend) Publish(_ context.Context, _ string, data []byte, attrs map[string]string) (string, error) {
	b.queued = append(b.queued, mq.Message{ID: "m", Data: data, Attributes: attrs})
	return "m", nil
}

func (b *loopBackend) Subscribe(ctx context.Context, _ string, handler mq.Handler) error {
	for _, msg := range b.queued {
		if err := handler(ctx, msg); err != nil {
			b.nacked++
			continue
		}
		b.acked++
	}
	return nil
}

func (b *loopBackend) Close() error { return nil }

// redeliveringBackend puts a nacked message back on the queue, the way
// RabbitMQ does after a requeueing nack.
type redeliveringBackend struct {
	queued     []mq.Message
	deliveries int
	acked      int
}

func (b *redeliveringBackend) Publish(_ context.Context, _ string, data []byte, attrs map[string]string) (string, error) {
	id := fmt.Sprintf("m-%d", len(b.queued)+1)
	b.queued = append(b.queued, mq.Message{ID: id, Data: data, Attributes: attrs})
	return id, nil
}

func (b *redeliveringBackend) Subscribe(ctx context.Context, _ string, handler mq.Handler) error {
	for len(b.queued) > 0 && b.deliveries < 100 {
		msg := b.queued[0]
		b.queued = b.queued[1:]
		b.deliveries++
		if err := handler(ctx, msg); err != nil {
			msg.Redelivered = true
			b.queued = append(b.queued, msg)
			continue
		}
		b.acked++
	}
	return nil
}

func (b *redeliveringBackend) Close() error { return nil }

type flakyNotifier struct {
	failures int
	calls    int
}

func (f *flakyNotifier) Send(context.Context, services.Notification) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("smtp 421 try again later")
	}
	return nil
}

type recordingNotifier struct {
	got []services.Notification
	err error
}

func (r *recordingNotifier) Send(_ context.Context, n services.Notification) error {
	r.got = append(r.got, n)
	return r.err
}

func TestMailerSend(t *testing.T) {
	sender := &fakeSender{}
	m := &Mailer{client: sender, from: "no-reply@camp.test"}

	err := m.Send(context.Background(), services.Notification{
		To:      "alice@example.com",
		Subject: "Password Reset",
		Body:    "hello",
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	rcpts, err := sender.sent[0].GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice@example.com"}, rcpts)
	assert.Equal(t, []string{"Password Reset"}, sender.sent[0].GetGenHeader(mail.HeaderSubject))
}

func TestMailerRejectsBadRecipient(t *testing.T) {
	sender := &fakeSender{}
	m := &Mailer{client: sender, from: "no-reply@camp.test"}

	err := m.Send(context.Background(), services.Notification{To: "not an address"})
	assert.ErrorIs(t, err, ErrUndeliverable)
	assert.Empty(t, sender.sent)
}

func TestMailerWrapsSendFailure(t *testing.T) {
	sendErr := errors.New("connection refused")
	m := &Mailer{client: &fakeSender{err: sendErr}, from: "no-reply@camp.test"}

	err := m.Send(context.Background(), services.Notification{To: "a@example.com"})
	assert.ErrorIs(t, err, sendErr)
}

func TestNewMailerRequiresHost(t *testing.T) {
	_, err := NewMailer(config.MailConfig{})
	assert.Error(t, err)
}

func TestQueueToWorker(t *testing.T) {
	backend := &loopBackend{}
	q := mq.New(backend)
	delivery := &recordingNotifier{}

	queue := NewQueue(q, "mail")
	want := services.Notification{To: "alice@example.com", Subject: "Hi", Body: "body"}
	require.NoError(t, queue.Send(context.Background(), want))

	backend.queued = append(backend.queued, mq.Message{ID: "junk", Data: []byte("{not json")})

	require.NoError(t, NewWorker(q, "mail", delivery).Run(context.Background()))
	assert.Equal(t, []services.Notification{want}, delivery.got)
	assert.Equal(t, 2, backend.acked, "malformed payloads are acknowledged and dropped")
	assert.Zero(t, backend.nacked)
}

func TestWorkerRequeuesFailedDelivery(t *testing.T) {
	backend := &loopBackend{}
	q := mq.New(backend)
	require.NoError(t, NewQueue(q, "mail").Send(context.Background(), services.Notification{To: "a@example.com"}))

	err := NewWorker(q, "mail", &recordingNotifier{err: errors.New("smtp down")}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, backend.nacked)
}

func TestWorkerDropsUndeliverableWithoutRetry(t *testing.T) {
	backend := &redeliveringBackend{}
	q := mq.New(backend)
	require.NoError(t, NewQueue(q, "mail").Send(context.Background(), services.Notification{To: "not an address"}))

	sender := &fakeSender{}
	mailer := &Mailer{client: sender, from: "no-reply@camp.test"}
	require.NoError(t, NewWorker(q, "mail", mailer).Run(context.Background()))

	assert.Equal(t, 1, backend.deliveries)
	assert.Equal(t, 1, backend.acked)
	assert.Empty(t, sender.sent)
}

func TestWorkerBoundsRedeliveries(t *testing.T) {
	backend := &redeliveringBackend{}
	q := mq.New(backend)
	require.NoError(t, NewQueue(q, "mail").Send(context.Background(), services.Notification{To: "a@example.com"}))

	delivery := &recordingNotifier{err: errors.New("smtp down")}
	w := NewWorker(q, "mail", delivery)
	require.NoError(t, w.Run(context.Background()))

	assert.Equal(t, DefaultMaxAttempts, backend.deliveries)
	assert.Len(t, delivery.got, DefaultMaxAttempts)
	assert.Equal(t, 1, backend.acked, "the last failed attempt is acknowledged")
	assert.Empty(t, w.failures)
}

func TestWorkerRetriesTransientFailure(t *testing.T) {
	backend := &redeliveringBackend{}
	q := mq.New(backend)
	require.NoError(t, NewQueue(q, "mail").Send(context.Background(), services.Notification{To: "a@example.com"}))

	delivery := &flakyNotifier{failures: 1}
	w := NewWorker(q, "mail", delivery)
	require.NoError(t, w.Run(context.Background()))

	assert.Equal(t, 2, delivery.calls)
	assert.Equal(t, 1, backend.acked)
	assert.Empty(t, w.failures)
}

func TestWorkerGivesUntrackableMessagesOneAttempt(t *testing.T) {
	backend := &redeliveringBackend{queued: []mq.Message{{Data: []byte(`{"to":"a@example.com"}`)}}}
	delivery := &recordingNotifier{err: errors.New("smtp down")}

	require.NoError(t, NewWorker(mq.New(backend), "mail", delivery).Run(context.Background()))
	assert.Equal(t, 1, backend.deliveries)
	assert.Equal(t, 1, backend.acked)
}
