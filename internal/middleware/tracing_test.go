package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deppfellow/recordkeeper/internal/middleware"
	"github.com/deppfellow/recordkeeper/internal/sqlexec"
	"github.com/deppfellow/recordkeeper/internal/testdb"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOperation(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/v1/record/getbyRecord/:record_id", "getbyRecord"},
		{"/v1/record/add", "add"},
		{"/v1/record/update/:record_id", "update"},
		{"/v1/record/delete/:record_id", "delete"},
		{"/v1/record/search", "search"},
		{"/status", ""},
		{"", ""},
	}

	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
			c.SetPath(tt.path)
			assert.Equal(t, tt.want, middleware.RecordOperation(c))
		})
	}
}

func TestEnhanceTracingCountsStatements(t *testing.T) {
	s := testdb.NewSQLiteServer(t)
	tracing := middleware.NewTracingMiddleware(s, nil)

	var stats *sqlexec.Stats
	e := echo.New()
	e.Use(tracing.EnhanceTracing())
	e.GET(middleware.RecordRoutePrefix+"search", func(c echo.Context) error {
		ctx := c.Request().Context()
		stats = sqlexec.StatsFromContext(ctx)

		exec := s.DB.Executor()
		if _, err := exec.Execute(ctx, "SELECT team_id FROM teams"); err != nil {
			return err
		}
		if _, err := exec.Execute(ctx, "SELECT team_name FROM teams"); err != nil {
			return err
		}
		return c.NoContent(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/record/search", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.Snapshot().Statements)
	assert.Zero(t, stats.Snapshot().Failures)
}

func TestRequestIDAcceptsOnlyWellFormedIDs(t *testing.T) {
	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"caller id kept", "abc-123_x.y:z", true},
		{"missing id generated", "", false},
		{"control characters rejected", "abc\n123", false},
		{"spaces rejected", "abc 123", false},
		{"too long rejected", strings.Repeat("a", middleware.MaxRequestIDLength+1), false},
	}

	e := echo.New()
	e.Use(middleware.RequestID())
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, middleware.GetRequestID(c))
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(middleware.RequestIDHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			got := rec.Header().Get(middleware.RequestIDHeader)
			assert.Equal(t, got, rec.Body.String())
			if tt.keep {
				assert.Equal(t, tt.header, got)
			} else {
				assert.NotEqual(t, tt.header, got)
				assert.Len(t, got, 36)
			}
		})
	}
}
