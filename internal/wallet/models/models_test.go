package models

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "walletgate/pkg/domain"
	dErrors "walletgate/pkg/domain-errors"
	"walletgate/pkg/money"
)

func validDetails() BankDetails {
	return BankDetails{
		RoutingNumber:   "021000021",
		AccountNumber:   "000123456789",
		AccountType:     "Checking",
		HolderFirstName: " Ada ",
		HolderLastName:  "Lovelace",
		HolderAddress:   Address{Line1: "1 Way", City: "Austin", State: "TX", PostalCode: "78701", Country: "US"},
	}
}

func fieldNames(err error) []string {
	var out []string
	for _, f := range dErrors.FieldsOf(err) {
		out = append(out, f.Field)
	}
	return out
}

func TestBankDetailsValidate(t *testing.T) {
	t.Run("normalizes valid details", func(t *testing.T) {
		d := validDetails()
		require.NoError(t, d.Validate())
		assert.Equal(t, AccountChecking, d.AccountType)
		assert.Equal(t, "Ada", d.HolderFirstName)
		assert.Equal(t, "6789", d.Last4())
	})

	cases := map[string]struct {
		mutate func(*BankDetails)
		field  string
	}{
		"eight digit routing number": {func(d *BankDetails) { d.RoutingNumber = "02100002" }, "routing_number"},
		"letters in routing number":  {func(d *BankDetails) { d.RoutingNumber = "02100002a" }, "routing_number"},
		"short account number":       {func(d *BankDetails) { d.AccountNumber = "123" }, "account_number"},
		"long account number":        {func(d *BankDetails) { d.AccountNumber = strings.Repeat("1", 18) }, "account_number"},
		"unknown account type":       {func(d *BankDetails) { d.AccountType = "brokerage" }, "account_type"},
		"missing last name":          {func(d *BankDetails) { d.HolderLastName = "  " }, "holder_last_name"},
		"missing postal code":        {func(d *BankDetails) { d.HolderAddress.PostalCode = "" }, "holder_address.postal_code"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			d := validDetails()
			tc.mutate(&d)
			err := d.Validate()
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.Equal(t, []string{tc.field}, fieldNames(err))
		})
	}
}

func TestBankDetailsIdempotencyKey(t *testing.T) {
	walletID := id.WalletID(uuid.New())
	a, b := validDetails(), validDetails()
	assert.Equal(t, a.IdempotencyKey(walletID), b.IdempotencyKey(walletID))
	assert.NotEqual(t, a.IdempotencyKey(walletID), a.IdempotencyKey(id.WalletID(uuid.New())))
}

func TestParseRecipient(t *testing.T) {
	entry := uuid.NewString()
	cases := []struct {
		ref   string
		ok    bool
		chain id.Chain
		entry bool
	}{
		{ref: entry, ok: true, entry: true},
		{ref: "0x52908400098527886E0F7030069857D2E4169EE7", ok: true, chain: id.ChainEthereum},
		{ref: "GA7QYNF7SOWQ3GLR2BGMZEHXAVIRZA4KVWLTJJFC7MGXUA74P7UJVSGZ", ok: true, chain: id.ChainStellar},
		{ref: "7EcDhSYGxXyscszYEp35KHN8vvw3svAuLKTzXwCFLtV", ok: true, chain: id.ChainSolana},
		{ref: "0x123"},
		{ref: "bob"},
		{ref: ""},
	}
	for _, tc := range cases {
		r, ok := ParseRecipient(tc.ref)
		assert.Equal(t, tc.ok, ok, tc.ref)
		if !ok {
			continue
		}
		if tc.entry {
			require.NotNil(t, r.EntryID)
			assert.Equal(t, entry, r.EntryID.String())
			continue
		}
		assert.Nil(t, r.EntryID)
		assert.Equal(t, tc.chain, r.Chain, tc.ref)
	}
}

func TestSendRequestValidate(t *testing.T) {
	req := SendRequest{Amount: "12.5", Recipient: " 0x52908400098527886E0F7030069857D2E4169EE7 ", Frequency: "Monthly"}
	require.NoError(t, req.Validate())
	assert.Equal(t, money.Cents(1250), req.AmountCents)
	assert.EqualValues(t, "monthly", req.Frequency)

	bad := SendRequest{Amount: "0", Message: strings.Repeat("x", 281), Frequency: "daily"}
	err := bad.Validate()
	require.Error(t, err)
	assert.ElementsMatch(t, []string{"amount", "recipient", "message", "frequency"}, fieldNames(err))
}

func TestWalletActivate(t *testing.T) {
	now := time.Now()
	w := NewCreating(id.WalletID(uuid.New()), id.ProfileID(uuid.New()), id.AccountID(uuid.New()), false, now)
	assert.False(t, w.IsActive())

	require.NoError(t, w.Activate("acct_1", "", []string{"ach"}, now))
	assert.True(t, w.IsActive())
	require.NoError(t, w.Activate("acct_1", "", []string{"ach"}, now))

	err := w.Activate("acct_2", "", nil, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	assert.Equal(t, "acct_1", w.ProviderAccountID)
}

func TestExternalAccountStatusIsOneWay(t *testing.T) {
	a := &ExternalBankAccount{Status: ExternalPending}
	assert.False(t, a.ApplyStatus(ExternalPending, time.Now()))
	assert.True(t, a.ApplyStatus(ExternalVerified, time.Now()))
	assert.False(t, a.ApplyStatus(ExternalPending, time.Now()))
	assert.True(t, a.IsVerified())
}

func TestCardSetFrozen(t *testing.T) {
	c := &CardAccount{Status: CardActive}
	assert.True(t, c.SetFrozen(true, time.Now()))
	assert.False(t, c.SetFrozen(true, time.Now()))
	assert.Equal(t, CardFrozen, c.Status)
}
