package repository

import (
	"context"

	"github.com/deppfellow/recordkeeper/internal/server"
	"github.com/deppfellow/recordkeeper/internal/sqlexec"
)

// Querier is the part of *sqlexec.Executor the repositories use.
type Querier interface {
	Execute(ctx context.Context, text string, bindings ...sqlexec.Binding) ([]sqlexec.Row, error)
	ExecuteWithBindings(ctx context.Context, text string, bindings ...sqlexec.Binding) (*sqlexec.Result, error)
	Dialect() sqlexec.Dialect
}

// Repositories is a container for all repository instances.
type Repositories struct {
	Record *RecordRepository
}

func NewRepositories(s *server.Server) *Repositories {
	return &Repositories{
		Record: NewRecordRepository(s.DB.Executor(), s.Config.Server.QueryTimeout),
	}
}
