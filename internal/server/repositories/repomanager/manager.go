package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/dealflow/internal/dbx"
	"github.com/dmitrijs2005/dealflow/internal/server/models"
	"github.com/dmitrijs2005/dealflow/internal/server/repositories/consents"
	"github.com/dmitrijs2005/dealflow/internal/server/repositories/deals"
	"github.com/dmitrijs2005/dealflow/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/dealflow/internal/server/repositories/signatures"
	"github.com/dmitrijs2005/dealflow/internal/server/repositories/termsheets"
	"github.com/dmitrijs2005/dealflow/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to either the pool or a
// transaction, so services can compose several repositories in one tx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Deals(db dbx.DBTX) deals.Repository
	TermSheets(db dbx.DBTX, kind models.TermSheetKind) termsheets.Repository
	Signatures(db dbx.DBTX) signatures.Repository
	Consents(db dbx.DBTX) consents.Repository
}
