package signatures

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

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, ownerUID, docKey string) (*models.SignaturePayload, error) {
	query := `SELECT payload FROM document_signatures WHERE owner_uid = $1 AND doc_key = $2`

	var raw []byte
	if err := r.db.QueryRowContext(ctx, query, ownerUID, docKey).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	p := &models.SignaturePayload{}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Sign(ctx context.Context, ownerUID, docKey string, payload models.SignaturePayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	query := `INSERT INTO document_signatures (owner_uid, doc_key, payload, signed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_uid, doc_key) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query, ownerUID, docKey, raw, payload.SignedAt)
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

func (r *PostgresRepository) List(ctx context.Context, ownerUID string) (map[string]models.SignaturePayload, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT doc_key, payload FROM document_signatures WHERE owner_uid = $1`, ownerUID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make(map[string]models.SignaturePayload)
	for rows.Next() {
		var key string
		var raw []byte
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		var p models.SignaturePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		out[key] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
