package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"walletgate/internal/verification/models"
	id "walletgate/pkg/domain"
	"walletgate/pkg/platform/sentinel"
	txcontext "walletgate/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresStore persists verification state. Structured profile attributes
// that are only ever read whole (requested fields, refill, business data) are
// stored as JSONB.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) q(ctx context.Context) txcontext.Querier {
	return txcontext.Q(ctx, s.db)
}

// RunInTx runs fn inside a transaction carried by the context. Nested calls
// join the outer transaction.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return txcontext.Run(ctx, s.db, "verification", fn)
}

const profileColumns = `id, account_id, subject_type, verification_type, status, pre_pause_status,
	kyb_step, terms_accepted_at, signed_agreement_id, requested_fields, refill, review_refill_seen,
	session_id, session_url, business, submitted_at, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, p *models.Profile) error {
	args, err := profileArgs(p)
	if err != nil {
		return err
	}
	_, err = s.q(ctx).ExecContext(ctx, `INSERT INTO verification_profiles (`+profileColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`, args...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert verification profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, p *models.Profile) error {
	args, err := profileArgs(p)
	if err != nil {
		return err
	}
	res, err := s.q(ctx).ExecContext(ctx, `UPDATE verification_profiles SET
		account_id = $2, subject_type = $3, verification_type = $4, status = $5, pre_pause_status = $6,
		kyb_step = $7, terms_accepted_at = $8, signed_agreement_id = $9, requested_fields = $10,
		refill = $11, review_refill_seen = $12, session_id = $13, session_url = $14, business = $15,
		submitted_at = $16, created_at = $17, updated_at = $18
		WHERE id = $1`, args...)
	if err != nil {
		return fmt.Errorf("update verification profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, profileID id.ProfileID) (*models.Profile, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+profileColumns+` FROM verification_profiles WHERE id = $1`, uuid.UUID(profileID))
	return scanProfile(row)
}

func (s *PostgresStore) FindByAccount(ctx context.Context, accountID id.AccountID) (*models.Profile, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+profileColumns+` FROM verification_profiles WHERE account_id = $1`, uuid.UUID(accountID))
	return scanProfile(row)
}

func (s *PostgresStore) FindControlPerson(ctx context.Context, profileID id.ProfileID) (*models.ControlPerson, error) {
	var (
		raw []byte
		cp  = models.ControlPerson{ProfileID: profileID}
	)
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT fields, updated_at FROM control_persons WHERE profile_id = $1`, uuid.UUID(profileID),
	).Scan(&raw, &cp.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find control person: %w", err)
	}
	if err := json.Unmarshal(raw, &cp.Fields); err != nil {
		return nil, fmt.Errorf("decode control person: %w", err)
	}
	return &cp, nil
}

func (s *PostgresStore) SaveControlPerson(ctx context.Context, cp *models.ControlPerson) error {
	raw, err := json.Marshal(cp.Fields)
	if err != nil {
		return fmt.Errorf("encode control person: %w", err)
	}
	_, err = s.q(ctx).ExecContext(ctx, `INSERT INTO control_persons (profile_id, fields, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (profile_id) DO UPDATE SET fields = EXCLUDED.fields, updated_at = EXCLUDED.updated_at`,
		uuid.UUID(cp.ProfileID), raw, cp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save control person: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context, profileID id.ProfileID) ([]models.Document, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `SELECT kind, content_sha256, provider_document_id, status, rejection_reason, uploaded_at, updated_at
		FROM verification_documents WHERE profile_id = $1 ORDER BY kind`, uuid.UUID(profileID))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		d := models.Document{ProfileID: profileID}
		if err := rows.Scan(&d.Kind, &d.ContentSHA256, &d.ProviderDocumentID, &d.Status, &d.RejectionReason, &d.UploadedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// SaveDocuments upserts every document of the profile.
func (s *PostgresStore) SaveDocuments(ctx context.Context, profileID id.ProfileID, docs []models.Document) error {
	return s.RunInTx(ctx, func(ctx context.Context) error {
		for _, d := range docs {
			_, err := s.q(ctx).ExecContext(ctx, `INSERT INTO verification_documents
				(profile_id, kind, content_sha256, provider_document_id, status, rejection_reason, uploaded_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				ON CONFLICT (profile_id, kind) DO UPDATE SET
					content_sha256 = EXCLUDED.content_sha256,
					provider_document_id = EXCLUDED.provider_document_id,
					status = EXCLUDED.status,
					rejection_reason = EXCLUDED.rejection_reason,
					uploaded_at = EXCLUDED.uploaded_at,
					updated_at = EXCLUDED.updated_at`,
				uuid.UUID(profileID), string(d.Kind), d.ContentSHA256, d.ProviderDocumentID, string(d.Status), d.RejectionReason, d.UploadedAt, d.UpdatedAt)
			if err != nil {
				return fmt.Errorf("save document %s: %w", d.Kind, err)
			}
		}
		return nil
	})
}

func profileArgs(p *models.Profile) ([]any, error) {
	requested, err := json.Marshal(p.RequestedFields)
	if err != nil {
		return nil, fmt.Errorf("encode requested fields: %w", err)
	}
	var refill []byte
	if p.Refill != nil {
		if refill, err = json.Marshal(p.Refill); err != nil {
			return nil, fmt.Errorf("encode refill request: %w", err)
		}
	}
	business, err := json.Marshal(p.Business)
	if err != nil {
		return nil, fmt.Errorf("encode business fields: %w", err)
	}
	var sessionID, sessionURL sql.NullString
	if p.Session != nil {
		sessionID = sql.NullString{String: p.Session.ID, Valid: true}
		sessionURL = sql.NullString{String: p.Session.URL, Valid: true}
	}
	return []any{
		uuid.UUID(p.ID), uuid.UUID(p.AccountID), string(p.SubjectType), string(p.VerificationType),
		string(p.Status), nullString(string(p.PrePauseStatus)), nullString(string(p.KYBStep)),
		nullTime(p.TermsAcceptedAt), p.SignedAgreementID, requested, refill, nullTime(p.ReviewRefillSeen),
		sessionID, sessionURL, business, nullTime(p.SubmittedAt), p.CreatedAt, p.UpdatedAt,
	}, nil
}

func scanProfile(row *sql.Row) (*models.Profile, error) {
	var (
		p                              models.Profile
		profileID, accountID           uuid.UUID
		prePause, step, agreement      sql.NullString
		sessionID, sessionURL          sql.NullString
		terms, refillSeen, submittedAt sql.NullTime
		requested, refill, business    []byte
	)
	err := row.Scan(&profileID, &accountID, &p.SubjectType, &p.VerificationType, &p.Status, &prePause,
		&step, &terms, &agreement, &requested, &refill, &refillSeen,
		&sessionID, &sessionURL, &business, &submittedAt, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan verification profile: %w", err)
	}
	p.ID = id.ProfileID(profileID)
	p.AccountID = id.AccountID(accountID)
	p.PrePauseStatus = models.Status(prePause.String)
	p.KYBStep = models.KYBStep(step.String)
	p.TermsAcceptedAt = timePtr(terms)
	p.ReviewRefillSeen = timePtr(refillSeen)
	p.SubmittedAt = timePtr(submittedAt)
	if agreement.Valid {
		p.SignedAgreementID = &agreement.String
	}
	if sessionID.Valid {
		p.Session = &models.Session{ID: sessionID.String, URL: sessionURL.String}
	}
	if len(requested) > 0 {
		if err := json.Unmarshal(requested, &p.RequestedFields); err != nil {
			return nil, fmt.Errorf("decode requested fields: %w", err)
		}
	}
	if len(refill) > 0 {
		p.Refill = &models.RefillRequest{}
		if err := json.Unmarshal(refill, p.Refill); err != nil {
			return nil, fmt.Errorf("decode refill request: %w", err)
		}
	}
	if len(business) > 0 {
		if err := json.Unmarshal(business, &p.Business); err != nil {
			return nil, fmt.Errorf("decode business fields: %w", err)
		}
	}
	return &p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}
