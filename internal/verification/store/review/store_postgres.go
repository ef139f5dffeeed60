package review

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"walletgate/internal/verification/models"
	id "walletgate/pkg/domain"
)

// PostgresStore appends refill requests and decisions. History is kept; reads
// return the latest entry.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) IssueRefill(ctx context.Context, profileID id.ProfileID, r models.RefillRequest) error {
	fields, err := json.Marshal(r.Fields)
	if err != nil {
		return fmt.Errorf("encode refill fields: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO refill_requests (id, profile_id, fields, message, issued_at)
		VALUES ($1, $2, $3, $4, $5)`, uuid.New(), uuid.UUID(profileID), fields, r.Message, r.IssuedAt)
	if err != nil {
		return fmt.Errorf("insert refill request: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecordDecision(ctx context.Context, d models.DocumentDecision) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO document_decisions (id, profile_id, kind, status, reason, reviewer_id, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New(), uuid.UUID(d.ProfileID), string(d.Kind), string(d.Status), d.Reason, d.ReviewerID, d.DecidedAt)
	if err != nil {
		return fmt.Errorf("insert document decision: %w", err)
	}
	return nil
}

func (s *PostgresStore) LatestRefill(ctx context.Context, profileID id.ProfileID) (*models.RefillRequest, error) {
	var (
		r   models.RefillRequest
		raw []byte
	)
	err := s.db.QueryRowContext(ctx, `SELECT fields, message, issued_at FROM refill_requests
		WHERE profile_id = $1 ORDER BY issued_at DESC LIMIT 1`, uuid.UUID(profileID),
	).Scan(&raw, &r.Message, &r.IssuedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find refill request: %w", err)
	}
	if err := json.Unmarshal(raw, &r.Fields); err != nil {
		return nil, fmt.Errorf("decode refill fields: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) Decisions(ctx context.Context, profileID id.ProfileID) ([]models.DocumentDecision, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT ON (kind) kind, status, reason, reviewer_id, decided_at
		FROM document_decisions WHERE profile_id = $1
		ORDER BY kind, decided_at DESC`, uuid.UUID(profileID))
	if err != nil {
		return nil, fmt.Errorf("list document decisions: %w", err)
	}
	defer rows.Close()

	var out []models.DocumentDecision
	for rows.Next() {
		d := models.DocumentDecision{ProfileID: profileID}
		if err := rows.Scan(&d.Kind, &d.Status, &d.Reason, &d.ReviewerID, &d.DecidedAt); err != nil {
			return nil, fmt.Errorf("scan document decision: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
