package relay

import (
	"context"
	"errors"
	"testing"

	"walletgate/pkg/platform/audit/store/postgres"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

type fakeOutbox struct {
	entries   []postgres.OutboxEntry
	published []uuid.UUID
}

func (f *fakeOutbox) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeOutbox) FetchUnpublished(_ context.Context, limit int) ([]postgres.OutboxEntry, error) {
	if len(f.entries) > limit {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

func (f *fakeOutbox) MarkPublished(_ context.Context, ids []uuid.UUID) error {
	f.published = append(f.published, ids...)
	done := make(map[uuid.UUID]bool, len(ids))
	for _, v := range ids {
		done[v] = true
	}
	var rest []postgres.OutboxEntry
	for _, e := range f.entries {
		if !done[e.ID] {
			rest = append(rest, e)
		}
	}
	f.entries = rest
	return nil
}

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (p *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, len(rs))
	for i, r := range rs {
		results[i] = kgo.ProduceResult{Record: r, Err: p.err}
	}
	if p.err == nil {
		p.records = append(p.records, rs...)
	}
	return results
}

func entry(action string) postgres.OutboxEntry {
	return postgres.OutboxEntry{
		ID:          uuid.New(),
		AggregateID: uuid.NewString(),
		EventType:   action,
		Payload:     []byte(`{"action":"` + action + `"}`),
	}
}

func TestRelay_DrainPublishesAndMarks(t *testing.T) {
	outbox := &fakeOutbox{entries: []postgres.OutboxEntry{entry("wallet_created"), entry("transfer_initiated")}}
	producer := &fakeProducer{}
	r := New(outbox, producer, "walletgate.audit")

	sent, err := r.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Len(t, outbox.published, 2)
	assert.Empty(t, outbox.entries)
	require.Len(t, producer.records, 2)
	assert.Equal(t, "walletgate.audit", producer.records[0].Topic)
	assert.Equal(t, "event_type", producer.records[0].Headers[0].Key)
	assert.Equal(t, []byte("wallet_created"), producer.records[0].Headers[0].Value)
}

func TestRelay_DrainRespectsBatchSize(t *testing.T) {
	outbox := &fakeOutbox{entries: []postgres.OutboxEntry{entry("a"), entry("b"), entry("c")}}
	r := New(outbox, &fakeProducer{}, "t", WithBatchSize(2))

	sent, err := r.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Len(t, outbox.entries, 1)
}

func TestRelay_ProduceFailureLeavesRowsPending(t *testing.T) {
	outbox := &fakeOutbox{entries: []postgres.OutboxEntry{entry("deposit_received")}}
	r := New(outbox, &fakeProducer{err: errors.New("broker down")}, "t")

	sent, err := r.Drain(context.Background())
	require.Error(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, outbox.published)
	assert.Len(t, outbox.entries, 1)
}
