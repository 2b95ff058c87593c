package termsheets

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

var tables = map[models.TermSheetKind]string{
	models.KindSAFE: "deal_safe",
	models.KindNote: "deal_note",
}

const columns = `deal_id, version, terms, lock_termsheet, offered_by, created_at`

type PostgresRepository struct {
	db    dbx.DBTX
	kind  models.TermSheetKind
	table string
}

// NewPostgresRepository binds a repository to the table of kind. It panics
// on an unknown kind since kinds are validated before reaching storage.
func NewPostgresRepository(db dbx.DBTX, kind models.TermSheetKind) *PostgresRepository {
	table, ok := tables[kind]
	if !ok {
		panic(fmt.Sprintf("termsheets: unknown kind %q", kind))
	}
	return &PostgresRepository{db: db, kind: kind, table: table}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresRepository) scan(row rowScanner) (*models.TermSheet, error) {
	ts := &models.TermSheet{Kind: r.kind}
	var raw []byte
	if err := row.Scan(&ts.DealID, &ts.Version, &raw, &ts.Locked, &ts.OfferedBy, &ts.CreatedAt); err != nil {
		return nil, err
	}
	ts.Terms = map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &ts.Terms); err != nil {
			return nil, fmt.Errorf("decode terms: %w", err)
		}
	}
	return ts, nil
}

func (r *PostgresRepository) queryOne(ctx context.Context, query string, args ...any) (*models.TermSheet, error) {
	ts, err := r.scan(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ts, nil
}

func (r *PostgresRepository) LockDeal(ctx context.Context, dealID string) error {
	if _, err := r.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, r.table+":"+dealID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Current(ctx context.Context, dealID string) (*models.TermSheet, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s
		WHERE deal_id = $1
		ORDER BY version DESC
		LIMIT 1`, columns, r.table)
	return r.queryOne(ctx, query, dealID)
}

func (r *PostgresRepository) Insert(ctx context.Context, ts *models.TermSheet) (*models.TermSheet, error) {
	terms := ts.Terms
	if terms == nil {
		terms = map[string]any{}
	}
	raw, err := json.Marshal(terms)
	if err != nil {
		return nil, fmt.Errorf("encode terms: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (deal_id, version, terms, lock_termsheet, offered_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s`, r.table, columns)

	out, err := r.queryOne(ctx, query, ts.DealID, ts.Version, raw, ts.Locked, ts.OfferedBy)
	if err != nil && dbx.IsUniqueViolation(err) {
		return nil, common.ErrVersionConflict
	}
	return out, err
}

func (r *PostgresRepository) LockLatest(ctx context.Context, dealID string) (*models.TermSheet, error) {
	query := fmt.Sprintf(`UPDATE %[1]s SET lock_termsheet = true
		WHERE deal_id = $1
		  AND version = (SELECT max(version) FROM %[1]s WHERE deal_id = $1)
		RETURNING %[2]s`, r.table, columns)
	return r.queryOne(ctx, query, dealID)
}

func (r *PostgresRepository) History(ctx context.Context, dealID string) ([]models.TermSheet, error) {
	query := fmt.Sprintf(`SELECT %[2]s FROM %[1]s
		WHERE deal_id = $1
		  AND version < (SELECT max(version) FROM %[1]s WHERE deal_id = $1)
		ORDER BY version DESC`, r.table, columns)

	rows, err := r.db.QueryContext(ctx, query, dealID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.TermSheet, 0)
	for rows.Next() {
		ts, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, *ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
