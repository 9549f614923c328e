package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	"ammCore/internal/model"
)

type publishCall struct {
	subject string
	data    []byte
	opts    int
}

type fakeJetStream struct {
	jetstream.JetStream
	calls []publishCall
	err   error
}

func (f *fakeJetStream) Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, publishCall{subject: subject, data: data, opts: len(opts)})
	return &jetstream.PubAck{Stream: StreamName, Sequence: uint64(len(f.calls))}, nil
}

func TestSubject(t *testing.T) {
	rec := model.OperationRecord{PoolID: "main", Operation: model.OpRemoveLiquidity}
	require.Equal(t, "amm.pool.events.remove_liquidity.main", Subject(rec))
}

func TestNatsPublisherPublish(t *testing.T) {
	js := &fakeJetStream{}
	pub := NewNatsPublisher(js, nil)
	rec := model.OperationRecord{ID: "op-1", PoolID: "main", Sequence: 3, Operation: model.OpSwap}

	require.NoError(t, pub.Publish(context.Background(), rec))
	require.Len(t, js.calls, 1)
	require.Equal(t, "amm.pool.events.swap.main", js.calls[0].subject)
	require.Equal(t, 1, js.calls[0].opts)

	var decoded model.OperationRecord
	require.NoError(t, json.Unmarshal(js.calls[0].data, &decoded))
	require.Equal(t, rec.ID, decoded.ID)
	require.Equal(t, rec.Sequence, decoded.Sequence)
}

func TestNatsPublisherError(t *testing.T) {
	boom := errors.New("no responders")
	pub := NewNatsPublisher(&fakeJetStream{err: boom}, nil)
	err := pub.Publish(context.Background(), model.OperationRecord{PoolID: "main", Operation: model.OpInit})
	require.ErrorIs(t, err, boom)
}
