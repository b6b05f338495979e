package service

import (
	"github.com/deppfellow/recordkeeper/internal/repository"
	"github.com/deppfellow/recordkeeper/internal/server"
)

type Services struct {
	Record *RecordService
}

func NewServices(s *server.Server, repos *repository.Repositories) *Services {
	return &Services{
		Record: NewRecordService(s, repos.Record),
	}
}
