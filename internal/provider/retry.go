package provider

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retrying decorates a Gateway with bounded exponential backoff for transient
// categories. Permanent failures return on the first attempt. Every operation
// carries an idempotency key or a natural reference, so replays are safe.
type Retrying struct {
	next       Gateway
	maxRetries uint64
	newBackOff func() backoff.BackOff
	logger     *slog.Logger
}

type RetryOption func(*Retrying)

// WithBackOff overrides the backoff policy; tests use a zero-delay policy.
func WithBackOff(fn func() backoff.BackOff) RetryOption {
	return func(r *Retrying) { r.newBackOff = fn }
}

func WithRetryLogger(logger *slog.Logger) RetryOption {
	return func(r *Retrying) { r.logger = logger }
}

func NewRetrying(next Gateway, maxRetries uint64, opts ...RetryOption) *Retrying {
	r := &Retrying{
		next:       next,
		maxRetries: maxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			b.MaxElapsedTime = 10 * time.Second
			return b
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func retry[T any](ctx context.Context, r *Retrying, op string, fn func() (T, error)) (T, error) {
	policy := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), r.maxRetries), ctx)
	attempt := 0
	return backoff.RetryWithData(func() (T, error) {
		attempt++
		v, err := fn()
		if err == nil {
			return v, nil
		}
		if !IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		r.logger.WarnContext(ctx, "provider call failed, retrying",
			"operation", op,
			"attempt", attempt,
			"category", string(GetCategory(err)),
		)
		return v, err
	}, policy)
}

func (r *Retrying) CreateOrUpdateIndividual(ctx context.Context, ref string, fields map[string]string) (*SubmissionResult, error) {
	return retry(ctx, r, "CreateOrUpdateIndividual", func() (*SubmissionResult, error) {
		return r.next.CreateOrUpdateIndividual(ctx, ref, fields)
	})
}

func (r *Retrying) CreateOrUpdateBusiness(ctx context.Context, ref string, fields map[string]string, controlPerson map[string]string) (*SubmissionResult, error) {
	return retry(ctx, r, "CreateOrUpdateBusiness", func() (*SubmissionResult, error) {
		return r.next.CreateOrUpdateBusiness(ctx, ref, fields, controlPerson)
	})
}

func (r *Retrying) UploadDocument(ctx context.Context, ref string, doc DocumentUpload) (*DocumentResult, error) {
	return retry(ctx, r, "UploadDocument", func() (*DocumentResult, error) {
		return r.next.UploadDocument(ctx, ref, doc)
	})
}

func (r *Retrying) GetStatus(ctx context.Context, ref string) (*StatusResult, error) {
	return retry(ctx, r, "GetStatus", func() (*StatusResult, error) {
		return r.next.GetStatus(ctx, ref)
	})
}

func (r *Retrying) CreateControlPersonSession(ctx context.Context, ref string) (*Session, error) {
	return retry(ctx, r, "CreateControlPersonSession", func() (*Session, error) {
		return r.next.CreateControlPersonSession(ctx, ref)
	})
}

func (r *Retrying) CreateWalletAccount(ctx context.Context, ref string) (*Account, error) {
	return retry(ctx, r, "CreateWalletAccount", func() (*Account, error) {
		return r.next.CreateWalletAccount(ctx, ref)
	})
}

func (r *Retrying) CreateVirtualAccount(ctx context.Context, ref string) (*Account, error) {
	return retry(ctx, r, "CreateVirtualAccount", func() (*Account, error) {
		return r.next.CreateVirtualAccount(ctx, ref)
	})
}

func (r *Retrying) GetBalance(ctx context.Context, accountID string) (int64, error) {
	return retry(ctx, r, "GetBalance", func() (int64, error) {
		return r.next.GetBalance(ctx, accountID)
	})
}

func (r *Retrying) GetDepositInstructions(ctx context.Context, accountID string) ([]Rail, error) {
	return retry(ctx, r, "GetDepositInstructions", func() ([]Rail, error) {
		return r.next.GetDepositInstructions(ctx, accountID)
	})
}

func (r *Retrying) CreateExternalAccount(ctx context.Context, accountID string, details BankDetails, key string) (*ExternalAccount, error) {
	return retry(ctx, r, "CreateExternalAccount", func() (*ExternalAccount, error) {
		return r.next.CreateExternalAccount(ctx, accountID, details, key)
	})
}

func (r *Retrying) GetExternalAccount(ctx context.Context, accountID, externalAccountID string) (*ExternalAccount, error) {
	return retry(ctx, r, "GetExternalAccount", func() (*ExternalAccount, error) {
		return r.next.GetExternalAccount(ctx, accountID, externalAccountID)
	})
}

func (r *Retrying) CreateLiquidationAddress(ctx context.Context, accountID string, req LiquidationRequest, key string) (*LiquidationAddress, error) {
	return retry(ctx, r, "CreateLiquidationAddress", func() (*LiquidationAddress, error) {
		return r.next.CreateLiquidationAddress(ctx, accountID, req, key)
	})
}

func (r *Retrying) CreateCardAccount(ctx context.Context, accountID string, key string) (*CardAccount, error) {
	return retry(ctx, r, "CreateCardAccount", func() (*CardAccount, error) {
		return r.next.CreateCardAccount(ctx, accountID, key)
	})
}

func (r *Retrying) SetCardFrozen(ctx context.Context, accountID, cardID string, frozen bool) error {
	_, err := retry(ctx, r, "SetCardFrozen", func() (struct{}, error) {
		return struct{}{}, r.next.SetCardFrozen(ctx, accountID, cardID, frozen)
	})
	return err
}

func (r *Retrying) InitiateTransfer(ctx context.Context, accountID string, amountCents int64, dest Destination, key string) (*TransferResult, error) {
	return retry(ctx, r, "InitiateTransfer", func() (*TransferResult, error) {
		return r.next.InitiateTransfer(ctx, accountID, amountCents, dest, key)
	})
}
