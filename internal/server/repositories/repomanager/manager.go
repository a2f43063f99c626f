package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/blobgate/internal/dbx"
	"github.com/dmitrijs2005/blobgate/internal/server/repositories/identities"
)

// RepositoryManager hands out repositories bound to a connection or a
// transaction and owns schema migrations.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Identities(db dbx.DBTX) identities.Repository
}
