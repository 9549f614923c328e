package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"ammCore/internal/model"
)

const (
	// StreamName is the JetStream stream holding committed pool operations.
	StreamName = "AMM_POOL_EVENTS"
	// SubjectPrefix is the root of every operation subject.
	SubjectPrefix = "amm.pool.events"
)

// Publisher announces committed operations to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, record model.OperationRecord) error
}

// NopPublisher drops every record.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, model.OperationRecord) error { return nil }

// Subject returns amm.pool.events.{operation}.{pool_id}.
func Subject(record model.OperationRecord) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, record.Operation, record.PoolID)
}

// NatsPublisher publishes operation records to JetStream. The record id is used as
// the message id so redelivered publishes are deduplicated by the server.
type NatsPublisher struct {
	js     jetstream.JetStream
	logger *zap.Logger
}

func NewNatsPublisher(js jetstream.JetStream, logger *zap.Logger) *NatsPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NatsPublisher{js: js, logger: logger}
}

func (p *NatsPublisher) Publish(ctx context.Context, record model.OperationRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal operation record: %w", err)
	}

	subject := Subject(record)
	ack, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(record.ID))
	if err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.logger.Debug("operation published",
		zap.String("subject", subject),
		zap.String("stream", ack.Stream),
		zap.Uint64("stream_seq", ack.Sequence),
		zap.Bool("duplicate", ack.Duplicate),
	)
	return nil
}

// Connect dials NATS and returns a JetStream handle.
func Connect(url string, logger *zap.Logger) (*nats.Conn, jetstream.JetStream, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.Name("poolctl"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}
	return nc, js, nil
}

// EnsureStream creates or updates the operation stream.
func EnsureStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       StreamName,
		Subjects:   []string{SubjectPrefix + ".>"},
		Storage:    jetstream.FileStorage,
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     72 * time.Hour,
		Duplicates: 10 * time.Minute,
		Replicas:   1,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", StreamName, err)
	}
	return nil
}
