package models

import "strings"

// Donation states as reported by the payments processor.
const (
	DonationProcessing = "processing"
	DonationSucceeded  = "succeeded"
	DonationFailed     = "failed"
	DonationRefunded   = "refunded"
)

// Bank rail states shared by deposits and withdrawals.
const (
	RailAwaitingFunds    = "awaiting_funds"
	RailFundsReceived    = "funds_received"
	RailInReview         = "in_review"
	RailPaymentSubmitted = "payment_submitted"
	RailPaymentProcessed = "payment_processed"
	RailReturned         = "returned"
	RailRefunded         = "refunded"
	RailCanceled         = "canceled"
	RailError            = "error"
)

func donationStatus(state string) Status {
	switch state {
	case DonationSucceeded:
		return StatusCompleted
	case DonationFailed:
		return StatusFailed
	case DonationRefunded:
		return StatusCancelled
	default:
		return StatusPending
	}
}

// transferStatus maps the provider's transfer vocabulary.
func transferStatus(state string) Status {
	switch strings.ToLower(state) {
	case "completed", RailPaymentProcessed:
		return StatusCompleted
	case "failed", RailReturned, RailError:
		return StatusFailed
	case "cancelled", RailCanceled, RailRefunded:
		return StatusCancelled
	default:
		return StatusPending
	}
}

func railStatus(state string) Status {
	switch state {
	case RailPaymentProcessed:
		return StatusCompleted
	case RailReturned, RailError:
		return StatusFailed
	case RailRefunded, RailCanceled:
		return StatusCancelled
	default:
		return StatusPending
	}
}

func (d Donation) Activity() Activity {
	return Activity{
		ID:                    d.ID.String(),
		Type:                  TypeDonation,
		AmountCents:           -d.AmountCents,
		Amount:                (-d.AmountCents).String(),
		Currency:              d.Currency,
		Timestamp:             d.CreatedAt,
		Status:                donationStatus(d.State),
		Counterparty:          d.OrganizationName,
		Frequency:             d.Frequency,
		Message:               d.Message,
		ProviderTransactionID: d.ProviderTransferID,
	}
}

func (t Transfer) Activity() Activity {
	a := Activity{
		ID:                    t.ID.String(),
		Type:                  TypeTransferReceived,
		AmountCents:           t.AmountCents,
		Currency:              t.Currency,
		Timestamp:             t.CreatedAt,
		Status:                transferStatus(t.State),
		Counterparty:          t.CounterpartyName,
		Frequency:             t.Frequency,
		Message:               t.Message,
		ProviderTransactionID: t.ProviderTransferID,
	}
	if t.Direction == DirectionSent {
		a.Type = TypeTransferSent
		a.AmountCents = -t.AmountCents
	}
	a.Amount = a.AmountCents.String()
	return a
}

func (d Deposit) Activity() Activity {
	counterparty := d.SenderName
	if counterparty == "" {
		counterparty = strings.ToUpper(d.Rail) + " deposit"
	}
	return Activity{
		ID:                    d.ID.String(),
		Type:                  TypeDeposit,
		AmountCents:           d.AmountCents,
		Amount:                d.AmountCents.String(),
		Currency:              d.Currency,
		Timestamp:             d.CreatedAt,
		Status:                railStatus(d.State),
		Counterparty:          counterparty,
		ProviderTransactionID: d.ProviderTransactionID,
	}
}

func (w Withdrawal) Activity() Activity {
	return Activity{
		ID:                    w.ID.String(),
		Type:                  TypeWithdrawal,
		AmountCents:           -w.AmountCents,
		Amount:                (-w.AmountCents).String(),
		Currency:              w.Currency,
		Timestamp:             w.CreatedAt,
		Status:                transferStatus(w.State),
		Counterparty:          "Bank account ••••" + w.AccountLast4,
		ProviderTransactionID: w.ProviderTransferID,
	}
}
