package handler

import (
	"github.com/deppfellow/recordkeeper/internal/server"
	"github.com/deppfellow/recordkeeper/internal/service"
)

// Handlers groups every HTTP handler so the router takes a single
// dependency.
type Handlers struct {
	Health  *HealthHandler
	OpenAPI *OpenAPIHandler
	Record  *RecordHandler
}

func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(s),
		OpenAPI: NewOpenAPIHandler(s),
		Record:  NewRecordHandler(s, services.Record),
	}
}
