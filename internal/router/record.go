package router

import (
	"net/http"

	"github.com/deppfellow/recordkeeper/internal/handler"
	"github.com/deppfellow/recordkeeper/internal/middleware"
	"github.com/labstack/echo/v4"
)

func registerRecordRoutes(r *echo.Group, h *handler.RecordHandler, rateLimit *middleware.RateLimitMiddleware) {
	records := r.Group("/record", rateLimit.Limit())

	records.GET("/getbyRecord/:record_id", handler.Handle(h.Handler, h.GetRecord, http.StatusOK))
	records.POST("/add", handler.Handle(h.Handler, h.CreateRecord, http.StatusCreated))
	records.PUT("/update/:record_id", handler.Handle(h.Handler, h.UpdateRecord, http.StatusOK))
	records.DELETE("/delete/:record_id", handler.Handle(h.Handler, h.DeleteRecord, http.StatusOK))
	records.GET("/search", handler.Handle(h.Handler, h.SearchRecords, http.StatusOK))
}
