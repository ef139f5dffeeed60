package provider_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"walletgate/internal/provider"
	"walletgate/internal/provider/mocks"
	dErrors "walletgate/pkg/domain-errors"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newRetrying(next provider.Gateway, max uint64) *provider.Retrying {
	return provider.NewRetrying(next, max,
		provider.WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
		provider.WithRetryLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func TestRetrying_RetriesTransientFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)
	ctx := context.Background()

	outage := provider.NewProviderError(provider.ErrorProviderOutage, "GetBalance", "503", nil)
	gomock.InOrder(
		gw.EXPECT().GetBalance(ctx, "acct_1").Return(int64(0), outage),
		gw.EXPECT().GetBalance(ctx, "acct_1").Return(int64(0), outage),
		gw.EXPECT().GetBalance(ctx, "acct_1").Return(int64(10000), nil),
	)

	balance, err := newRetrying(gw, 3).GetBalance(ctx, "acct_1")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), balance)
}

func TestRetrying_StopsOnPermanentFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)
	ctx := context.Background()

	rejected := provider.Rejected("CreateOrUpdateIndividual", "bad ssn",
		dErrors.FieldError{Field: "ssn", Message: "invalid"})
	gw.EXPECT().CreateOrUpdateIndividual(ctx, "ref", gomock.Any()).Return(nil, rejected).Times(1)

	_, err := newRetrying(gw, 5).CreateOrUpdateIndividual(ctx, "ref", map[string]string{"ssn": "x"})
	require.Error(t, err)
	assert.Equal(t, provider.ErrorRejected, provider.GetCategory(err))

	domainErr := provider.ToDomain(err)
	assert.True(t, dErrors.HasCode(domainErr, dErrors.CodeProviderRejected))
	assert.Equal(t, "bad ssn", domainErr.(*dErrors.Error).Message)
	require.Len(t, dErrors.FieldsOf(domainErr), 1)
}

func TestRetrying_ExhaustionSurfacesUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)
	ctx := context.Background()

	timeout := provider.NewProviderError(provider.ErrorTimeout, "InitiateTransfer", "deadline", nil)
	gw.EXPECT().InitiateTransfer(ctx, "acct", int64(500), gomock.Any(), "key-1").Return(nil, timeout).Times(3)

	_, err := newRetrying(gw, 2).InitiateTransfer(ctx, "acct", 500, provider.Destination{Kind: provider.DestinationCrypto}, "key-1")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(provider.ToDomain(err), dErrors.CodeProviderUnavailable))
}

func TestRetrying_SetCardFrozenPassesThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)
	ctx := context.Background()

	gw.EXPECT().SetCardFrozen(ctx, "acct", "card", true).Return(nil)
	require.NoError(t, newRetrying(gw, 2).SetCardFrozen(ctx, "acct", "card", true))

	gw.EXPECT().SetCardFrozen(ctx, "acct", "card", false).Return(provider.NewProviderError(provider.ErrorNotFound, "SetCardFrozen", "no card", nil))
	err := newRetrying(gw, 2).SetCardFrozen(ctx, "acct", "card", false)
	assert.True(t, dErrors.HasCode(provider.ToDomain(err), dErrors.CodeNotFound))
}

func TestToDomain(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want dErrors.Code
	}{
		{"rate limited", provider.NewProviderError(provider.ErrorRateLimited, "op", "slow down", nil), dErrors.CodeProviderUnavailable},
		{"insufficient funds", provider.NewProviderError(provider.ErrorInsufficientFunds, "op", "nope", nil), dErrors.CodeInsufficientFunds},
		{"bad data", provider.NewProviderError(provider.ErrorBadData, "op", "garbled", nil), dErrors.CodeInternal},
		{"deadline", context.DeadlineExceeded, dErrors.CodeProviderUnavailable},
		{"plain", errors.New("boom"), dErrors.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, dErrors.HasCode(provider.ToDomain(tt.err), tt.want))
		})
	}
	assert.NoError(t, provider.ToDomain(nil))
}
