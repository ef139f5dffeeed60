package review

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletgate/internal/verification/models"
	id "walletgate/pkg/domain"
)

func TestInMemoryStore_LatestWins(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	profileID := id.ProfileID(uuid.New())

	refill, err := store.LatestRefill(ctx, profileID)
	require.NoError(t, err)
	assert.Nil(t, refill)

	now := time.Now()
	require.NoError(t, store.IssueRefill(ctx, profileID, models.RefillRequest{Fields: []string{"business.ein"}, IssuedAt: now}))
	require.NoError(t, store.IssueRefill(ctx, profileID, models.RefillRequest{Fields: []string{"control_person.title"}, IssuedAt: now.Add(time.Minute)}))
	refill, err = store.LatestRefill(ctx, profileID)
	require.NoError(t, err)
	assert.Equal(t, []string{"control_person.title"}, refill.Fields)

	require.NoError(t, store.RecordDecision(ctx, models.DocumentDecision{ProfileID: profileID, Kind: models.DocIDFront, Status: models.DocumentRejected, Reason: "glare", DecidedAt: now}))
	require.NoError(t, store.RecordDecision(ctx, models.DocumentDecision{ProfileID: profileID, Kind: models.DocIDFront, Status: models.DocumentApproved, DecidedAt: now.Add(time.Minute)}))
	decisions, err := store.Decisions(ctx, profileID)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, models.DocumentApproved, decisions[0].Status)
}
