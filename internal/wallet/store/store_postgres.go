package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"walletgate/internal/wallet/models"
	id "walletgate/pkg/domain"
	"walletgate/pkg/money"
	"walletgate/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore relies on unique constraints for provisioning idempotency:
// wallet_accounts(profile_id), liquidation_addresses(wallet_id, chain, currency)
// and card_accounts(wallet_id).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	return err
}

const walletColumns = `id, profile_id, account_id, provider_account_id, status, sandbox, cached_balance_cents,
	cached_at, address, rails, created_at, updated_at`

func walletArgs(w *models.Wallet) ([]any, error) {
	rails, err := json.Marshal(w.Rails)
	if err != nil {
		return nil, fmt.Errorf("marshal rails: %w", err)
	}
	return []any{
		uuid.UUID(w.ID), uuid.UUID(w.ProfileID), uuid.UUID(w.AccountID), w.ProviderAccountID, string(w.Status),
		w.Sandbox, int64(w.CachedBalance), w.CachedAt, w.Address, rails, w.CreatedAt, w.UpdatedAt,
	}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWallet(row scanner) (*models.Wallet, error) {
	var (
		w                          models.Wallet
		walletID, profile, account uuid.UUID
		balance                    int64
		cachedAt                   sql.NullTime
		rails                      []byte
	)
	if err := row.Scan(&walletID, &profile, &account, &w.ProviderAccountID, &w.Status, &w.Sandbox, &balance,
		&cachedAt, &w.Address, &rails, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	w.ID, w.ProfileID, w.AccountID = id.WalletID(walletID), id.ProfileID(profile), id.AccountID(account)
	w.CachedBalance = money.Cents(balance)
	if cachedAt.Valid {
		w.CachedAt = &cachedAt.Time
	}
	if len(rails) > 0 {
		if err := json.Unmarshal(rails, &w.Rails); err != nil {
			return nil, fmt.Errorf("unmarshal rails: %w", err)
		}
	}
	return &w, nil
}

func (s *PostgresStore) CreateWallet(ctx context.Context, w *models.Wallet) error {
	args, err := walletArgs(w)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO wallet_accounts (`+walletColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveWallet(ctx context.Context, w *models.Wallet) error {
	args, err := walletArgs(w)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE wallet_accounts SET profile_id = $2, account_id = $3,
		provider_account_id = $4, status = $5, sandbox = $6, cached_balance_cents = $7, cached_at = $8,
		address = $9, rails = $10, created_at = $11, updated_at = $12
		WHERE id = $1`, args...)
	if err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteCreatingWallet(ctx context.Context, walletID id.WalletID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM wallet_accounts WHERE id = $1 AND status = 'creating'`,
		uuid.UUID(walletID))
	if err != nil {
		return fmt.Errorf("delete wallet: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) findWallet(ctx context.Context, where string, arg any) (*models.Wallet, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+walletColumns+` FROM wallet_accounts WHERE `+where+` = $1`, arg)
	w, err := scanWallet(row)
	if err != nil {
		return nil, notFound(err)
	}
	return w, nil
}

func (s *PostgresStore) FindWallet(ctx context.Context, walletID id.WalletID) (*models.Wallet, error) {
	return s.findWallet(ctx, "id", uuid.UUID(walletID))
}

func (s *PostgresStore) FindWalletByProfile(ctx context.Context, profileID id.ProfileID) (*models.Wallet, error) {
	return s.findWallet(ctx, "profile_id", uuid.UUID(profileID))
}

func (s *PostgresStore) FindWalletByAccount(ctx context.Context, accountID id.AccountID) (*models.Wallet, error) {
	return s.findWallet(ctx, "account_id", uuid.UUID(accountID))
}

func (s *PostgresStore) FindWalletByProviderAccount(ctx context.Context, providerAccountID string) (*models.Wallet, error) {
	return s.findWallet(ctx, "provider_account_id", providerAccountID)
}

const externalColumns = `id, wallet_id, provider_id, routing_number, account_last4, account_type, status,
	holder_first_name, holder_last_name, holder_address, created_at, updated_at`

func scanExternal(row scanner) (*models.ExternalBankAccount, error) {
	var (
		a                 models.ExternalBankAccount
		accountID, wallet uuid.UUID
		address           []byte
	)
	if err := row.Scan(&accountID, &wallet, &a.ProviderID, &a.RoutingNumber, &a.AccountLast4, &a.AccountType,
		&a.Status, &a.HolderFirstName, &a.HolderLastName, &address, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.ID, a.WalletID = id.ExternalAccountID(accountID), id.WalletID(wallet)
	if err := json.Unmarshal(address, &a.HolderAddress); err != nil {
		return nil, fmt.Errorf("unmarshal holder address: %w", err)
	}
	return &a, nil
}

func (s *PostgresStore) InsertExternalAccount(ctx context.Context, a *models.ExternalBankAccount) error {
	address, err := json.Marshal(a.HolderAddress)
	if err != nil {
		return fmt.Errorf("marshal holder address: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO external_bank_accounts (`+externalColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		uuid.UUID(a.ID), uuid.UUID(a.WalletID), a.ProviderID, a.RoutingNumber, a.AccountLast4,
		string(a.AccountType), string(a.Status), a.HolderFirstName, a.HolderLastName, address,
		a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert external account: %w", err)
	}
	return nil
}

// SaveExternalAccount only moves status; bank details are immutable once linked.
func (s *PostgresStore) SaveExternalAccount(ctx context.Context, a *models.ExternalBankAccount) error {
	res, err := s.db.ExecContext(ctx, `UPDATE external_bank_accounts SET status = $2, updated_at = $3 WHERE id = $1`,
		uuid.UUID(a.ID), string(a.Status), a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update external account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindExternalAccount(ctx context.Context, walletID id.WalletID, accountID id.ExternalAccountID) (*models.ExternalBankAccount, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+externalColumns+` FROM external_bank_accounts
		WHERE id = $1 AND wallet_id = $2`, uuid.UUID(accountID), uuid.UUID(walletID))
	a, err := scanExternal(row)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (s *PostgresStore) FindExternalAccountByProviderID(ctx context.Context, walletID id.WalletID, providerID string) (*models.ExternalBankAccount, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+externalColumns+` FROM external_bank_accounts
		WHERE wallet_id = $1 AND provider_id = $2`, uuid.UUID(walletID), providerID)
	a, err := scanExternal(row)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (s *PostgresStore) ListExternalAccounts(ctx context.Context, walletID id.WalletID) ([]models.ExternalBankAccount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+externalColumns+` FROM external_bank_accounts
		WHERE wallet_id = $1 ORDER BY created_at`, uuid.UUID(walletID))
	if err != nil {
		return nil, fmt.Errorf("list external accounts: %w", err)
	}
	defer rows.Close()
	var out []models.ExternalBankAccount
	for rows.Next() {
		a, err := scanExternal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan external account: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

const liquidationColumns = `id, wallet_id, chain, currency, destination_chain, destination_currency,
	provider_id, address, created_at`

func scanLiquidation(row scanner) (*models.LiquidationAddress, error) {
	var (
		la     models.LiquidationAddress
		wallet uuid.UUID
	)
	if err := row.Scan(&la.ID, &wallet, &la.Chain, &la.Currency, &la.DestinationChain, &la.DestinationCurrency,
		&la.ProviderID, &la.Address, &la.CreatedAt); err != nil {
		return nil, err
	}
	la.WalletID = id.WalletID(wallet)
	return &la, nil
}

func (s *PostgresStore) FindLiquidationAddress(ctx context.Context, key models.LiquidationKey) (*models.LiquidationAddress, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+liquidationColumns+` FROM liquidation_addresses
		WHERE wallet_id = $1 AND chain = $2 AND currency = $3`,
		uuid.UUID(key.WalletID), string(key.Chain), string(key.Currency))
	la, err := scanLiquidation(row)
	if err != nil {
		return nil, notFound(err)
	}
	return la, nil
}

func (s *PostgresStore) InsertLiquidationAddress(ctx context.Context, la *models.LiquidationAddress) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO liquidation_addresses (`+liquidationColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		la.ID, uuid.UUID(la.WalletID), string(la.Chain), string(la.Currency), string(la.DestinationChain),
		string(la.DestinationCurrency), la.ProviderID, la.Address, la.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert liquidation address: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListLiquidationAddresses(ctx context.Context, walletID id.WalletID) ([]models.LiquidationAddress, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+liquidationColumns+` FROM liquidation_addresses
		WHERE wallet_id = $1 ORDER BY created_at`, uuid.UUID(walletID))
	if err != nil {
		return nil, fmt.Errorf("list liquidation addresses: %w", err)
	}
	defer rows.Close()
	var out []models.LiquidationAddress
	for rows.Next() {
		la, err := scanLiquidation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan liquidation address: %w", err)
		}
		out = append(out, *la)
	}
	return out, rows.Err()
}

const cardColumns = `id, wallet_id, provider_card_id, masked_number, expiry, cardholder_name, status,
	created_at, updated_at`

func (s *PostgresStore) FindCard(ctx context.Context, walletID id.WalletID) (*models.CardAccount, error) {
	var (
		c      models.CardAccount
		wallet uuid.UUID
	)
	err := s.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM card_accounts WHERE wallet_id = $1`,
		uuid.UUID(walletID)).Scan(&c.ID, &wallet, &c.ProviderCardID, &c.MaskedNumber, &c.Expiry,
		&c.CardholderName, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	c.WalletID = id.WalletID(wallet)
	return &c, nil
}

func (s *PostgresStore) InsertCard(ctx context.Context, c *models.CardAccount) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO card_accounts (`+cardColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		c.ID, uuid.UUID(c.WalletID), c.ProviderCardID, c.MaskedNumber, c.Expiry, c.CardholderName,
		string(c.Status), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveCard(ctx context.Context, c *models.CardAccount) error {
	res, err := s.db.ExecContext(ctx, `UPDATE card_accounts SET status = $2, updated_at = $3 WHERE wallet_id = $1`,
		uuid.UUID(c.WalletID), string(c.Status), c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
