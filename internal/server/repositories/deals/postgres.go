package deals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/dealflow/internal/common"
	"github.com/dmitrijs2005/dealflow/internal/dbx"
	"github.com/dmitrijs2005/dealflow/internal/server/models"
)

const dealColumns = `id, investor_uid, startup_uid, status, deal_no, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeal(row rowScanner) (*models.Deal, error) {
	d := &models.Deal{}
	var dealNo sql.NullString
	var status string
	if err := row.Scan(&d.ID, &d.InvestorUID, &d.StartupUID, &status, &dealNo, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.Status = models.DealStatus(status)
	if dealNo.Valid {
		d.DealNo = &dealNo.String
	}
	return d, nil
}

func (r *PostgresRepository) queryOne(ctx context.Context, query string, args ...any) (*models.Deal, error) {
	d, err := scanDeal(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return d, nil
}

func (r *PostgresRepository) Create(ctx context.Context, investorUID, startupUID string) (*models.Deal, error) {
	query := `INSERT INTO deals (investor_uid, startup_uid)
		VALUES ($1, $2)
		RETURNING ` + dealColumns

	d, err := r.queryOne(ctx, query, investorUID, startupUID)
	if err != nil && dbx.IsUniqueViolation(err) {
		return nil, common.ErrConflict
	}
	return d, err
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Deal, error) {
	return r.queryOne(ctx, `SELECT `+dealColumns+` FROM deals WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByPair(ctx context.Context, investorUID, startupUID string) (*models.Deal, error) {
	return r.queryOne(ctx, `SELECT `+dealColumns+` FROM deals WHERE investor_uid = $1 AND startup_uid = $2`,
		investorUID, startupUID)
}

func (r *PostgresRepository) ListForAccount(ctx context.Context, uid string) ([]models.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals
		WHERE investor_uid = $1 OR startup_uid = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, uid)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Deal, 0)
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, from, to models.DealStatus) (*models.Deal, error) {
	query := `UPDATE deals SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
		RETURNING ` + dealColumns

	d, err := r.queryOne(ctx, query, id, string(to), string(from))
	if errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("%w: deal %s is no longer %s", common.ErrInvalidTransition, id, from)
	}
	return d, err
}

func (r *PostgresRepository) AssignDealNo(ctx context.Context, id string, dealNo string) (*models.Deal, error) {
	query := `UPDATE deals SET deal_no = $2, updated_at = now()
		WHERE id = $1 AND deal_no IS NULL AND status = 'accepted'
		RETURNING ` + dealColumns

	d, err := r.queryOne(ctx, query, id, dealNo)
	switch {
	case err == nil:
		return d, nil
	case dbx.IsUniqueViolation(err):
		return nil, common.ErrConflict
	case errors.Is(err, common.ErrorNotFound):
		// the deal is gone, already numbered or no longer accepted
		return r.GetByID(ctx, id)
	default:
		return nil, err
	}
}
