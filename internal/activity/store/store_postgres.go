package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"walletgate/internal/activity/models"
	id "walletgate/pkg/domain"
	"walletgate/pkg/money"
	"walletgate/pkg/platform/sentinel"
	txcontext "walletgate/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresStore keeps one table per ledger source. Every list query orders by
// (created_at DESC, id DESC), which the (wallet_id, created_at, id) indexes serve.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) q(ctx context.Context) txcontext.Querier {
	return txcontext.Q(ctx, s.db)
}

func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return txcontext.Run(ctx, s.db, "ledger", fn)
}

func (s *PostgresStore) InsertDonation(ctx context.Context, d *models.Donation) error {
	_, err := s.q(ctx).ExecContext(ctx, `INSERT INTO donations
		(id, wallet_id, organization_id, organization_name, amount_cents, currency, frequency, message,
		 provider_transfer_id, state, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		d.ID, uuid.UUID(d.WalletID), uuid.UUID(d.OrganizationID), d.OrganizationName, int64(d.AmountCents),
		d.Currency, string(d.Frequency), d.Message, d.ProviderTransferID, d.State, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert donation: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertTransfers(ctx context.Context, transfers ...models.Transfer) error {
	for _, t := range transfers {
		_, err := s.q(ctx).ExecContext(ctx, `INSERT INTO transfers
			(id, wallet_id, direction, counterparty_name, counterparty_ref, amount_cents, currency, frequency,
			 message, provider_transfer_id, state, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
			t.ID, uuid.UUID(t.WalletID), string(t.Direction), t.CounterpartyName, t.CounterpartyRef,
			int64(t.AmountCents), t.Currency, string(t.Frequency), t.Message, t.ProviderTransferID, t.State,
			t.CreatedAt, t.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert transfer: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) InsertWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	_, err := s.q(ctx).ExecContext(ctx, `INSERT INTO withdrawals
		(id, wallet_id, external_account_id, account_last4, amount_cents, currency, provider_transfer_id,
		 state, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		w.ID, uuid.UUID(w.WalletID), uuid.UUID(w.ExternalAccountID), w.AccountLast4, int64(w.AmountCents),
		w.Currency, w.ProviderTransferID, w.State, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert withdrawal: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertDeposit(ctx context.Context, d *models.Deposit) error {
	_, err := s.q(ctx).ExecContext(ctx, `INSERT INTO deposits
		(id, wallet_id, provider_transaction_id, rail, sender_name, amount_cents, currency, state, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		d.ID, uuid.UUID(d.WalletID), d.ProviderTransactionID, d.Rail, d.SenderName, int64(d.AmountCents),
		d.Currency, d.State, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert deposit: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateState(ctx context.Context, providerRef, state string, at time.Time) (int, error) {
	var total int64
	for _, stmt := range []string{
		`UPDATE donations SET state = $2, updated_at = $3 WHERE provider_transfer_id = $1`,
		`UPDATE transfers SET state = $2, updated_at = $3 WHERE provider_transfer_id = $1`,
		`UPDATE withdrawals SET state = $2, updated_at = $3 WHERE provider_transfer_id = $1`,
		`UPDATE deposits SET state = $2, updated_at = $3 WHERE provider_transaction_id = $1`,
	} {
		res, err := s.q(ctx).ExecContext(ctx, stmt, providerRef, state, at)
		if err != nil {
			return 0, fmt.Errorf("update ledger state: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("update ledger state: %w", err)
		}
		total += n
	}
	return int(total), nil
}

const pageOrder = ` AND created_at <= $2 ORDER BY created_at DESC, id DESC LIMIT $3`

func (s *PostgresStore) ListDonations(ctx context.Context, walletID id.WalletID, asOf time.Time, limit int) ([]models.Donation, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `SELECT id, wallet_id, organization_id, organization_name, amount_cents,
		currency, frequency, message, provider_transfer_id, state, created_at, updated_at
		FROM donations WHERE wallet_id = $1`+pageOrder, uuid.UUID(walletID), asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	defer rows.Close()
	var out []models.Donation
	for rows.Next() {
		var (
			d           models.Donation
			wallet, org uuid.UUID
			amount      int64
		)
		if err := rows.Scan(&d.ID, &wallet, &org, &d.OrganizationName, &amount, &d.Currency, &d.Frequency,
			&d.Message, &d.ProviderTransferID, &d.State, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		d.WalletID, d.OrganizationID, d.AmountCents = id.WalletID(wallet), id.EntryID(org), money.Cents(amount)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListTransfers(ctx context.Context, walletID id.WalletID, asOf time.Time, limit int) ([]models.Transfer, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `SELECT id, wallet_id, direction, counterparty_name, counterparty_ref,
		amount_cents, currency, frequency, message, provider_transfer_id, state, created_at, updated_at
		FROM transfers WHERE wallet_id = $1`+pageOrder, uuid.UUID(walletID), asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()
	var out []models.Transfer
	for rows.Next() {
		var (
			t      models.Transfer
			wallet uuid.UUID
			amount int64
		)
		if err := rows.Scan(&t.ID, &wallet, &t.Direction, &t.CounterpartyName, &t.CounterpartyRef, &amount,
			&t.Currency, &t.Frequency, &t.Message, &t.ProviderTransferID, &t.State, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		t.WalletID, t.AmountCents = id.WalletID(wallet), money.Cents(amount)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListDeposits(ctx context.Context, walletID id.WalletID, asOf time.Time, limit int) ([]models.Deposit, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `SELECT id, wallet_id, provider_transaction_id, rail, sender_name,
		amount_cents, currency, state, created_at, updated_at
		FROM deposits WHERE wallet_id = $1`+pageOrder, uuid.UUID(walletID), asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("list deposits: %w", err)
	}
	defer rows.Close()
	var out []models.Deposit
	for rows.Next() {
		var (
			d      models.Deposit
			wallet uuid.UUID
			amount int64
		)
		if err := rows.Scan(&d.ID, &wallet, &d.ProviderTransactionID, &d.Rail, &d.SenderName, &amount,
			&d.Currency, &d.State, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan deposit: %w", err)
		}
		d.WalletID, d.AmountCents = id.WalletID(wallet), money.Cents(amount)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListWithdrawals(ctx context.Context, walletID id.WalletID, asOf time.Time, limit int) ([]models.Withdrawal, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `SELECT id, wallet_id, external_account_id, account_last4,
		amount_cents, currency, provider_transfer_id, state, created_at, updated_at
		FROM withdrawals WHERE wallet_id = $1`+pageOrder, uuid.UUID(walletID), asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}
	defer rows.Close()
	var out []models.Withdrawal
	for rows.Next() {
		var (
			w                models.Withdrawal
			wallet, external uuid.UUID
			amount           int64
		)
		if err := rows.Scan(&w.ID, &wallet, &external, &w.AccountLast4, &amount, &w.Currency,
			&w.ProviderTransferID, &w.State, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan withdrawal: %w", err)
		}
		w.WalletID, w.ExternalAccountID, w.AmountCents = id.WalletID(wallet), id.ExternalAccountID(external), money.Cents(amount)
		out = append(out, w)
	}
	return out, rows.Err()
}
