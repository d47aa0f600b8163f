package natsq

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	JobsStream   = "TASKSIM_JOBS"
	JobsConsumer = "tasksim-jobs-consumer"
)

type Config struct {
	Name          string
	MaxReconnects int
}

func NewConnect(url string, cfg Config) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}

	return nc, nil
}

// JobsStreamConfig describes the work-queue stream the api publishes job ids
// to and the distributor consumes from.
func JobsStreamConfig(subject string, maxAge time.Duration) *nats.StreamConfig {
	return &nats.StreamConfig{
		Name:      JobsStream,
		Subjects:  []string{subject},
		Storage:   nats.FileStorage,
		Retention: nats.WorkQueuePolicy,
		Replicas:  1,
		MaxAge:    maxAge,
	}
}

func NewJetStream(nc *nats.Conn, cfg *nats.StreamConfig) (nats.JetStreamContext, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("JetStream: %w", err)
	}

	_, err = js.AddStream(cfg)
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return nil, fmt.Errorf("JetStream AddStream %s: %w", cfg.Name, err)
	}

	return js, nil
}
