package events

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/hibiken/asynq"
	"github.com/pkg/errors"
)

// AsynqPublisher enqueues events on the Topic queue of an asynq (Redis) broker.
type AsynqPublisher struct {
	client *asynq.Client
}

func NewAsynqPublisher(opt asynq.RedisClientOpt) *AsynqPublisher {
	return &AsynqPublisher{client: asynq.NewClient(opt)}
}

// NewTask serializes e into the task consumed by the notifier.
func NewTask(e Event) (*asynq.Task, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, "marshal event")
	}
	return asynq.NewTask(Topic, payload, asynq.Queue(Topic), asynq.MaxRetry(3)), nil
}

func (p *AsynqPublisher) Publish(ctx context.Context, e Event) error {
	task, err := NewTask(e)
	if err != nil {
		return err
	}
	if _, err := p.client.EnqueueContext(ctx, task); err != nil {
		return errors.Wrapf(err, "enqueue %s", e.Type)
	}
	return nil
}

func (p *AsynqPublisher) Close() error {
	return p.client.Close()
}
