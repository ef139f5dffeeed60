package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"walletgate/internal/activity/models"
	"walletgate/internal/activity/store"
	id "walletgate/pkg/domain"
	dErrors "walletgate/pkg/domain-errors"
	"walletgate/pkg/money"
	"walletgate/pkg/requestcontext"
)

type FeedSuite struct {
	suite.Suite
	ctx     context.Context
	store   *store.InMemoryStore
	service *Service
	wallet  id.WalletID
	base    time.Time
}

func TestFeedSuite(t *testing.T) {
	suite.Run(t, new(FeedSuite))
}

func (s *FeedSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemory()
	svc, err := New(s.store)
	s.Require().NoError(err)
	s.service = svc
	s.wallet = id.WalletID(uuid.New())
	s.base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *FeedSuite) at(minute int) context.Context {
	return requestcontext.WithTime(s.ctx, s.base.Add(time.Duration(minute)*time.Minute))
}

// seed writes n rows spread across all four sources, one minute apart.
func (s *FeedSuite) seed(n int) {
	for i := range n {
		ctx := s.at(i)
		switch i % 4 {
		case 0:
			s.Require().NoError(s.service.RecordDonation(ctx, &models.Donation{
				WalletID: s.wallet, OrganizationName: "Heifer Relief Fund", AmountCents: 500,
				Currency: "usd", ProviderTransferID: uuid.NewString(), State: models.DonationSucceeded,
			}))
		case 1:
			s.Require().NoError(s.service.RecordTransfer(ctx, &models.Transfer{
				WalletID: s.wallet, Direction: models.DirectionSent, CounterpartyName: "Grace",
				AmountCents: 1000, Currency: "usd", ProviderTransferID: uuid.NewString(), State: "completed",
			}, nil))
		case 2:
			_, err := s.service.RecordDeposit(ctx, &models.Deposit{
				WalletID: s.wallet, ProviderTransactionID: uuid.NewString(), Rail: "ach",
				AmountCents: 2500, Currency: "usd", State: models.RailFundsReceived,
			})
			s.Require().NoError(err)
		case 3:
			s.Require().NoError(s.service.RecordWithdrawal(ctx, &models.Withdrawal{
				WalletID: s.wallet, ExternalAccountID: id.ExternalAccountID(uuid.New()), AccountLast4: "6789",
				AmountCents: 700, Currency: "usd", ProviderTransferID: uuid.NewString(), State: "pending",
			}))
		}
	}
}

func (s *FeedSuite) TestPagesAreOrderedAndStable() {
	s.seed(45)
	ctx := s.at(60)

	first, err := s.service.Feed(ctx, s.wallet, FeedQuery{Page: 1, PageSize: 20})
	s.Require().NoError(err)
	s.Require().Len(first.Items, 20)
	s.True(first.HasMore)
	s.Equal(s.base.Add(60*time.Minute), first.AsOf)

	// A row written after the first page must not shift later pages.
	s.Require().NoError(s.service.RecordDonation(s.at(61), &models.Donation{
		WalletID: s.wallet, OrganizationName: "Late", AmountCents: 100, Currency: "usd",
		ProviderTransferID: uuid.NewString(), State: models.DonationProcessing,
	}))

	second, err := s.service.Feed(ctx, s.wallet, FeedQuery{Page: 2, PageSize: 20, AsOf: first.AsOf})
	s.Require().NoError(err)
	s.Require().Len(second.Items, 20)
	s.True(second.HasMore)

	oldestFirstPage := first.Items[len(first.Items)-1]
	seen := map[string]bool{}
	for _, a := range first.Items {
		seen[a.ID] = true
	}
	for _, a := range second.Items {
		s.False(seen[a.ID], "item %s repeated across pages", a.ID)
		s.LessOrEqual(models.Newer(oldestFirstPage, a), 0)
		s.False(a.Timestamp.After(oldestFirstPage.Timestamp))
	}

	third, err := s.service.Feed(ctx, s.wallet, FeedQuery{Page: 3, PageSize: 20, AsOf: first.AsOf})
	s.Require().NoError(err)
	s.Len(third.Items, 5)
	s.False(third.HasMore)

	past, err := s.service.Feed(ctx, s.wallet, FeedQuery{Page: 9, PageSize: 20, AsOf: first.AsOf})
	s.Require().NoError(err)
	s.Empty(past.Items)
	s.False(past.HasMore)
}

func (s *FeedSuite) TestExactlyFullLastPage() {
	s.seed(20)
	page, err := s.service.Feed(s.at(30), s.wallet, FeedQuery{Page: 1, PageSize: 20})
	s.Require().NoError(err)
	s.Len(page.Items, 20)
	s.False(page.HasMore)
}

func (s *FeedSuite) TestProjectionSignsAndStatuses() {
	s.seed(4)
	page, err := s.service.Feed(s.at(10), s.wallet, FeedQuery{})
	s.Require().NoError(err)
	s.Require().Len(page.Items, 4)

	byType := map[models.Type]models.Activity{}
	for _, a := range page.Items {
		byType[a.Type] = a
	}
	s.Equal(money.Cents(-500), byType[models.TypeDonation].AmountCents)
	s.Equal("-5.00", byType[models.TypeDonation].Amount)
	s.Equal(models.StatusCompleted, byType[models.TypeDonation].Status)
	s.Equal(money.Cents(-1000), byType[models.TypeTransferSent].AmountCents)
	s.Equal(money.Cents(2500), byType[models.TypeDeposit].AmountCents)
	s.Equal(models.StatusPending, byType[models.TypeDeposit].Status)
	s.Equal("ACH deposit", byType[models.TypeDeposit].Counterparty)
	s.Equal(models.StatusPending, byType[models.TypeWithdrawal].Status)
	s.Equal("Bank account ••••6789", byType[models.TypeWithdrawal].Counterparty)
}

func (s *FeedSuite) TestReceivedTransferLandsOnRecipient() {
	recipient := id.WalletID(uuid.New())
	ref := uuid.NewString()
	s.Require().NoError(s.service.RecordTransfer(s.at(0),
		&models.Transfer{WalletID: s.wallet, Direction: models.DirectionSent, CounterpartyName: "Grace",
			AmountCents: 1200, Currency: "usd", ProviderTransferID: ref, State: "completed"},
		&models.Transfer{WalletID: recipient, Direction: models.DirectionReceived, CounterpartyName: "Ada",
			AmountCents: 1200, Currency: "usd", ProviderTransferID: ref, State: "completed"},
	))

	page, err := s.service.Feed(s.at(1), recipient, FeedQuery{})
	s.Require().NoError(err)
	s.Require().Len(page.Items, 1)
	s.Equal(models.TypeTransferReceived, page.Items[0].Type)
	s.Equal(money.Cents(1200), page.Items[0].AmountCents)
	s.Equal("Ada", page.Items[0].Counterparty)
}

func (s *FeedSuite) TestDepositIsIdempotent() {
	d := func() *models.Deposit {
		return &models.Deposit{WalletID: s.wallet, ProviderTransactionID: "tx_1", Rail: "wire",
			AmountCents: 9000, Currency: "usd", State: models.RailFundsReceived}
	}
	recorded, err := s.service.RecordDeposit(s.at(0), d())
	s.Require().NoError(err)
	s.True(recorded)
	recorded, err = s.service.RecordDeposit(s.at(1), d())
	s.Require().NoError(err)
	s.False(recorded)

	page, err := s.service.Feed(s.at(2), s.wallet, FeedQuery{})
	s.Require().NoError(err)
	s.Len(page.Items, 1)
}

func (s *FeedSuite) TestUpdateTransferState() {
	ref := "tr_42"
	s.Require().NoError(s.service.RecordWithdrawal(s.at(0), &models.Withdrawal{
		WalletID: s.wallet, AccountLast4: "1111", AmountCents: 100, Currency: "usd",
		ProviderTransferID: ref, State: "pending",
	}))
	s.Require().NoError(s.service.UpdateTransferState(s.at(1), ref, models.RailReturned))

	page, err := s.service.Feed(s.at(2), s.wallet, FeedQuery{})
	s.Require().NoError(err)
	s.Require().Len(page.Items, 1)
	s.Equal(models.StatusFailed, page.Items[0].Status)

	err = s.service.UpdateTransferState(s.at(3), "unknown", "completed")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *FeedSuite) TestRejectsBadPaging() {
	_, err := s.service.Feed(s.ctx, s.wallet, FeedQuery{Page: -1, PageSize: 500})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Len(dErrors.FieldsOf(err), 2)
}
