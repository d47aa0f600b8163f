package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

type Publisher interface {
	PublishMsg(m *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error)
}

type queue struct {
	js      Publisher
	subject string
}

func New(js Publisher, subject string) *queue {
	return &queue{
		js:      js,
		subject: subject,
	}
}

// Enqueue publishes the job id. The id doubles as the message id so a
// retried publish is deduplicated by the stream.
func (q *queue) Enqueue(ctx context.Context, jobID string) error {
	if jobID == "" {
		return fmt.Errorf("empty jobID")
	}

	msg := &nats.Msg{
		Subject: q.subject,
		Data:    []byte(jobID),
		Header:  nats.Header{},
	}
	msg.Header.Set(nats.MsgIdHdr, jobID)

	ack, err := q.js.PublishMsg(msg, nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("enqueue job %s: publish failed: %w", jobID, err)
	}

	slog.Debug(
		"job enqueued",
		slog.String("job_id", jobID),
		slog.String("subject", q.subject),
		slog.String("stream", ack.Stream),
		slog.Uint64("seq", ack.Sequence),
	)

	return nil
}
