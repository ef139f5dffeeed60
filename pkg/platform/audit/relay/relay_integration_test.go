//go:build integration

package relay

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	id "walletgate/pkg/domain"
	"walletgate/pkg/platform/audit"
	"walletgate/pkg/platform/audit/store/postgres"
	"walletgate/pkg/testutil/containers"
)

func TestRelayPublishesOutboxToBroker(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pg := containers.GetManager().GetPostgres(t)
	require.NoError(t, pg.Truncate(ctx, "audit_events", "outbox"))
	rp := containers.GetManager().GetRedpanda(t)

	topic := "walletgate.audit." + uuid.NewString()[:8]
	producer, err := NewClient(rp.Brokers, topic)
	require.NoError(t, err)
	defer producer.Close()
	require.NoError(t, EnsureTopic(ctx, producer, topic, 1))

	store := postgres.New(pg.DB)
	accountID := id.AccountID(uuid.New())
	for _, action := range []audit.AuditEvent{audit.EventWalletCreated, audit.EventTransferInitiated} {
		require.NoError(t, store.Append(ctx, audit.Event{
			AccountID: accountID,
			Action:    string(action),
			Category:  action.Category(),
			Timestamp: time.Now(),
		}))
	}

	r := New(store, producer, topic)
	sent, err := r.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	again, err := r.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, again)

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	var actions []string
	for len(actions) < 2 {
		fetches := consumer.PollFetches(ctx)
		require.NoError(t, fetches.Err())
		fetches.EachRecord(func(rec *kgo.Record) {
			assert.Equal(t, accountID.String(), string(rec.Key))
			var p postgres.Payload
			require.NoError(t, json.Unmarshal(rec.Value, &p))
			actions = append(actions, p.Action)
		})
	}
	assert.Equal(t, []string{"wallet_created", "transfer_initiated"}, actions)
}
