package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"slot-swapper/backend/internal/dto"
	"slot-swapper/backend/internal/service"
	pkgerrors "slot-swapper/backend/pkg/errors"
	"slot-swapper/backend/pkg/response"
)

// EventHandler 日历时段模块 HTTP 处理器
// 前端以 "event" 称呼时段，路由沿用该叫法
type EventHandler struct {
	slotSvc service.SlotService
}

// NewEventHandler 创建 EventHandler
func NewEventHandler(slotSvc service.SlotService) *EventHandler {
	return &EventHandler{slotSvc: slotSvc}
}

// ListEvents 获取我的日历
// GET /api/v1/events
func (h *EventHandler) ListEvents(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	slots, err := h.slotSvc.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": slots})
}

// GetEvent 获取时段详情
// GET /api/v1/events/:id
func (h *EventHandler) GetEvent(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "时段ID不能为空")
		return
	}

	slot, err := h.slotSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleSlotError(c, err)
		return
	}

	response.OK(c, slot)
}

// CreateEvent 创建时段
// POST /api/v1/events
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req dto.CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	slot, err := h.slotSvc.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleSlotError(c, err)
		return
	}

	response.Created(c, slot)
}

// UpdateEvent 更新时段（含 BUSY/SWAPPABLE 切换）
// PUT /api/v1/events/:id
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "时段ID不能为空")
		return
	}

	var req dto.UpdateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	slot, err := h.slotSvc.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleSlotError(c, err)
		return
	}

	response.OK(c, slot)
}

// DeleteEvent 删除时段
// DELETE /api/v1/events/:id
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "时段ID不能为空")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.slotSvc.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleSlotError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleSlotError 统一处理时段模块业务错误
func (h *EventHandler) handleSlotError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSlotNotFound):
		response.NotFound(c, 12001, "时段不存在")
	case errors.Is(err, service.ErrInvalidTimeRange):
		response.BadRequest(c, 12002, "开始时间必须早于结束时间")
	case errors.Is(err, service.ErrNotOwner):
		response.Forbidden(c, 12003, "仅时段所有者可执行此操作")
	case errors.Is(err, service.ErrInvalidTransition):
		response.BadRequest(c, 12004, "不允许的状态变更")
	case errors.Is(err, service.ErrSlotReferenced):
		response.Conflict(c, 12005, "时段被未决交换申请引用，不可删除")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 12006, "时段已被其他操作修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}
