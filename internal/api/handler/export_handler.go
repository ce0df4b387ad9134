package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"slot-swapper/backend/internal/service"
	"slot-swapper/backend/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportEventsXLSX 导出我的日历为 Excel
// GET /api/v1/export/events.xlsx
func (h *ExportHandler) ExportEventsXLSX(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportSlotsXLSX(c.Request.Context(), userID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buf.Bytes())
}

// ExportEventsICS 导出我的日历为 iCalendar
// GET /api/v1/export/events.ics
func (h *ExportHandler) ExportEventsICS(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportSlotsICS(c.Request.Context(), userID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", buf.Bytes())
}

// handleExportError 统一处理导出模块业务错误
func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportNoSlots):
		response.NotFound(c, 14001, "日历为空，无可导出内容")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		response.InternalError(c)
	}
}
