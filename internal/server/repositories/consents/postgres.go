package consents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/dealflow/internal/common"
	"github.com/dmitrijs2005/dealflow/internal/dbx"
	"github.com/dmitrijs2005/dealflow/internal/server/models"
)

const signerColumns = `id, role, founder_index, full_name, email, signatory, signed_at,
	sign_token_hash, token_used, token_expires_at, invited_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSigner(row rowScanner) (*models.Signer, error) {
	var (
		s         models.Signer
		idx       sql.NullInt32
		signatory []byte
		signedAt  sql.NullTime
		hash      sql.NullString
		expires   sql.NullTime
		invited   sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.Role, &idx, &s.FullName, &s.Email, &signatory, &signedAt,
		&hash, &s.TokenUsed, &expires, &invited); err != nil {
		return nil, err
	}
	if idx.Valid {
		v := int(idx.Int32)
		s.FounderIndex = &v
	}
	if len(signatory) > 0 {
		p := &models.SignaturePayload{}
		if err := json.Unmarshal(signatory, p); err != nil {
			return nil, fmt.Errorf("decode signatory: %w", err)
		}
		s.Signatory = p
	}
	if signedAt.Valid {
		s.SignedAt = &signedAt.Time
	}
	if expires.Valid {
		s.TokenExpiresAt = &expires.Time
	}
	if invited.Valid {
		s.InvitedAt = &invited.Time
	}
	s.TokenHash = hash.String
	return &s, nil
}

func nullIndex(idx *int) any {
	if idx == nil {
		return nil
	}
	return *idx
}

func (r *PostgresRepository) Ensure(ctx context.Context, ownerUID, workflow string) error {
	query := `INSERT INTO board_consents (owner_uid, workflow)
		VALUES ($1, $2)
		ON CONFLICT (owner_uid, workflow) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, ownerUID, workflow); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Locked(ctx context.Context, ownerUID, workflow string) (bool, error) {
	var locked bool
	err := r.db.QueryRowContext(ctx,
		`SELECT locked FROM board_consents WHERE owner_uid = $1 AND workflow = $2`,
		ownerUID, workflow).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return locked, nil
}

func (r *PostgresRepository) SetLocked(ctx context.Context, ownerUID, workflow string, locked bool) error {
	query := `INSERT INTO board_consents (owner_uid, workflow, locked)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_uid, workflow) DO UPDATE
		SET locked = EXCLUDED.locked, updated_at = now()`
	if _, err := r.db.ExecContext(ctx, query, ownerUID, workflow, locked); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpsertInvite(ctx context.Context, ownerUID, workflow string, s *models.Signer) error {
	query := `INSERT INTO consent_signers
		(owner_uid, workflow, id, role, founder_index, full_name, email,
		 sign_token_hash, token_used, token_expires_at, invited_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, $9, $10)
		ON CONFLICT (owner_uid, workflow, id) DO UPDATE
		SET full_name = EXCLUDED.full_name,
		    email = EXCLUDED.email,
		    sign_token_hash = EXCLUDED.sign_token_hash,
		    token_used = false,
		    token_expires_at = EXCLUDED.token_expires_at,
		    invited_at = EXCLUDED.invited_at
		WHERE consent_signers.signatory IS NULL
		  AND consent_signers.role = EXCLUDED.role`

	res, err := r.db.ExecContext(ctx, query, ownerUID, workflow, s.ID, s.Role, nullIndex(s.FounderIndex),
		s.FullName, s.Email, s.TokenHash, s.TokenExpiresAt, s.InvitedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n > 0 {
		return nil
	}

	existing, err := r.GetSigner(ctx, ownerUID, workflow, s.ID, false)
	if err != nil {
		return err
	}
	if existing.Role != s.Role {
		return fmt.Errorf("%w: signer %s is a %s", common.ErrConflict, s.ID, existing.Role)
	}
	return common.ErrAlreadySigned
}

func (r *PostgresRepository) InsertSigned(ctx context.Context, ownerUID, workflow string, s *models.Signer) error {
	raw, err := json.Marshal(s.Signatory)
	if err != nil {
		return fmt.Errorf("encode signatory: %w", err)
	}

	query := `INSERT INTO consent_signers
		(owner_uid, workflow, id, role, founder_index, full_name, email, signatory, signed_at, token_used)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, true)
		ON CONFLICT (owner_uid, workflow, id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query, ownerUID, workflow, s.ID, s.Role, nullIndex(s.FounderIndex),
		s.FullName, s.Email, raw, s.SignedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrAlreadySigned
	}
	return nil
}

func (r *PostgresRepository) GetSigner(ctx context.Context, ownerUID, workflow, id string, forUpdate bool) (*models.Signer, error) {
	query := `SELECT ` + signerColumns + ` FROM consent_signers
		WHERE owner_uid = $1 AND workflow = $2 AND id = $3`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	s, err := scanSigner(r.db.QueryRowContext(ctx, query, ownerUID, workflow, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) MarkSigned(ctx context.Context, ownerUID, workflow, id string, payload models.SignaturePayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode signatory: %w", err)
	}

	query := `UPDATE consent_signers
		SET signatory = $4, signed_at = $5, token_used = true
		WHERE owner_uid = $1 AND workflow = $2 AND id = $3 AND token_used = false`

	res, err := r.db.ExecContext(ctx, query, ownerUID, workflow, id, raw, payload.SignedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrTokenUsed
	}
	return nil
}

func (r *PostgresRepository) ListSigners(ctx context.Context, ownerUID, workflow string) ([]models.Signer, error) {
	query := `SELECT ` + signerColumns + ` FROM consent_signers
		WHERE owner_uid = $1 AND workflow = $2
		ORDER BY role DESC, founder_index NULLS FIRST, invited_at NULLS LAST, id`

	rows, err := r.db.QueryContext(ctx, query, ownerUID, workflow)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]models.Signer, 0)
	for rows.Next() {
		s, err := scanSigner(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
