package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/integrations/nrecho-v4"
	"github.com/newrelic/go-agent/v3/integrations/nrpkgerrors"
	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/deppfellow/recordkeeper/internal/server"
	"github.com/deppfellow/recordkeeper/internal/sqlexec"
)

// RecordRoutePrefix is the route prefix of the records API.
const RecordRoutePrefix = "/v1/record/"

// TracingMiddleware owns the New Relic middleware and the per-request
// statement counters. nrApp is nil when New Relic is disabled.
type TracingMiddleware struct {
	server *server.Server
	nrApp  *newrelic.Application
}

func NewTracingMiddleware(s *server.Server, nrApp *newrelic.Application) *TracingMiddleware {
	return &TracingMiddleware{
		server: s,
		nrApp:  nrApp,
	}
}

// NewRelicMiddleware starts a transaction per request.
func (tm *TracingMiddleware) NewRelicMiddleware() echo.MiddlewareFunc {
	if tm.nrApp == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}
	return nrecho.Middleware(tm.nrApp)
}

// EnhanceTracing attaches a sqlexec.Stats to the request context, so every
// statement the request runs is counted, then reports the counters and the
// record operation on the New Relic transaction.
func (tm *TracingMiddleware) EnhanceTracing() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, stats := sqlexec.WithStats(c.Request().Context())
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)

			txn := newrelic.FromContext(ctx)
			if txn == nil {
				return err
			}

			if op := RecordOperation(c); op != "" {
				txn.AddAttribute("record.operation", op)
			}
			if id := c.Param("record_id"); id != "" {
				txn.AddAttribute("record.id", id)
			}
			if requestID := GetRequestID(c); requestID != "" {
				txn.AddAttribute("request.id", requestID)
			}

			db := stats.Snapshot()
			txn.AddAttribute("db.driver", tm.server.DB.Dialect.Name())
			txn.AddAttribute("db.statements", db.Statements)
			txn.AddAttribute("db.failures", db.Failures)
			txn.AddAttribute("db.slow_statements", db.Slow)
			txn.AddAttribute("db.duration_ms", db.Elapsed.Milliseconds())

			if err != nil {
				txn.NoticeError(nrpkgerrors.Wrap(err))
			}
			return err
		}
	}
}

// RecordOperation names the records API action behind the matched route,
// e.g. "search" for /v1/record/search. Other routes yield "".
func RecordOperation(c echo.Context) string {
	op, ok := strings.CutPrefix(c.Path(), RecordRoutePrefix)
	if !ok {
		return ""
	}
	op, _, _ = strings.Cut(op, "/")
	return op
}
