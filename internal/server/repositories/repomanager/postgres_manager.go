// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/dealflow/internal/dbx"
	"github.com/dmitrijs2005/dealflow/internal/server/migrations"
	"github.com/dmitrijs2005/dealflow/internal/server/models"
	"github.com/dmitrijs2005/dealflow/internal/server/repositories/consents"
	"github.com/dmitrijs2005/dealflow/internal/server/repositories/deals"
	"github.com/dmitrijs2005/dealflow/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/dealflow/internal/server/repositories/signatures"
	"github.com/dmitrijs2005/dealflow/internal/server/repositories/termsheets"
	"github.com/dmitrijs2005/dealflow/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Deals(db dbx.DBTX) deals.Repository {
	return deals.NewPostgresRepository(db)
}

// TermSheets returns the repository of the kind's version table.
func (m *PostgresRepositoryManager) TermSheets(db dbx.DBTX, kind models.TermSheetKind) termsheets.Repository {
	return termsheets.NewPostgresRepository(db, kind)
}

func (m *PostgresRepositoryManager) Signatures(db dbx.DBTX) signatures.Repository {
	return signatures.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Consents(db dbx.DBTX) consents.Repository {
	return consents.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}
