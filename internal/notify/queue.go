package notify

import (
	"context"
	"fmt"

	"github.com/yelpcamp/apiserver/internal/mq"
	"github.com/yelpcamp/apiserver/internal/services"
)

// Queue hands notifications to the message queue for a Worker to deliver.
type Queue struct {
	mq      *mq.MQ
	channel string
}

func NewQueue(q *mq.MQ, channel string) *Queue {
	return &Queue{mq: q, channel: channel}
}

func (q *Queue) Send(ctx context.Context, n services.Notification) error {
	if _, err := q.mq.PublishJSON(ctx, q.channel, n); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}
