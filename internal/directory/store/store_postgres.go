package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"walletgate/internal/directory/models"
	id "walletgate/pkg/domain"
	"walletgate/pkg/platform/sentinel"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, e *models.Entry) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO directory_entries (id, type, name, email, address, wallet_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET type = EXCLUDED.type, name = EXCLUDED.name, email = EXCLUDED.email,
			address = EXCLUDED.address, wallet_id = EXCLUDED.wallet_id`,
		uuid.UUID(e.ID), string(e.Type), e.Name, e.Email, e.Address, walletArg(e.WalletID), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("save directory entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, entryID id.EntryID) (*models.Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, type, name, email, address, wallet_id, created_at
		FROM directory_entries WHERE id = $1`, uuid.UUID(entryID))
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get directory entry: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) FindByWallet(ctx context.Context, walletID id.WalletID) (*models.Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, type, name, email, address, wallet_id, created_at
		FROM directory_entries WHERE wallet_id = $1 ORDER BY created_at LIMIT 1`, uuid.UUID(walletID))
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find directory entry by wallet: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) Search(ctx context.Context, query string, limit int) ([]models.Entry, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	rows, err := s.db.QueryContext(ctx, `SELECT id, type, name, email, address, wallet_id, created_at
		FROM directory_entries
		WHERE lower(name) LIKE $1 OR email LIKE $1
		ORDER BY lower(name), id
		LIMIT $2`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search directory: %w", err)
	}
	defer rows.Close()

	var out []models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan directory entry: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*models.Entry, error) {
	var (
		e        models.Entry
		entryID  uuid.UUID
		walletID uuid.NullUUID
	)
	if err := row.Scan(&entryID, &e.Type, &e.Name, &e.Email, &e.Address, &walletID, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.ID = id.EntryID(entryID)
	if walletID.Valid {
		w := id.WalletID(walletID.UUID)
		e.WalletID = &w
	}
	return &e, nil
}

func walletArg(w *id.WalletID) uuid.NullUUID {
	if w == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*w), Valid: true}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
