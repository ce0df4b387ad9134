package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"slot-swapper/backend/internal/dto"
	"slot-swapper/backend/internal/service"
	pkgerrors "slot-swapper/backend/pkg/errors"
	"slot-swapper/backend/pkg/response"
)

// SwapHandler 交换模块 HTTP 处理器
type SwapHandler struct {
	swapSvc service.SwapService
	slotSvc service.SlotService
}

// NewSwapHandler 创建 SwapHandler
func NewSwapHandler(swapSvc service.SwapService, slotSvc service.SlotService) *SwapHandler {
	return &SwapHandler{swapSvc: swapSvc, slotSvc: slotSvc}
}

// ListSwappableSlots 市场浏览：他人挂牌的全部可交换时段
// GET /api/v1/swaps/swappable-slots
func (h *SwapHandler) ListSwappableSlots(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	slots, err := h.slotSvc.ListSwappableExcluding(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": slots})
}

// CreateSwapRequest 发起交换申请
// POST /api/v1/swaps/swap-request
func (h *SwapHandler) CreateSwapRequest(c *gin.Context) {
	var req dto.CreateSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.swapSvc.Propose(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleSwapError(c, err)
		return
	}

	response.Created(c, result)
}

// ListIncoming 收到的交换申请（任意状态，最新在前）
// GET /api/v1/swaps/incoming
func (h *SwapHandler) ListIncoming(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	swaps, err := h.swapSvc.ListIncoming(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": swaps})
}

// ListOutgoing 发出的交换申请（任意状态，最新在前）
// GET /api/v1/swaps/outgoing
func (h *SwapHandler) ListOutgoing(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	swaps, err := h.swapSvc.ListOutgoing(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": swaps})
}

// RespondToSwap 接受/拒绝交换申请
// POST /api/v1/swaps/swap-response/:id
func (h *SwapHandler) RespondToSwap(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "申请ID不能为空")
		return
	}

	var req dto.SwapResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.swapSvc.Respond(c.Request.Context(), id, userID, *req.Accept)
	if err != nil {
		h.handleSwapError(c, err)
		return
	}

	response.OK(c, result)
}

// GetSwap 查看单个交换申请详情
// GET /api/v1/swaps/:id
func (h *SwapHandler) GetSwap(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "申请ID不能为空")
		return
	}

	result, err := h.swapSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleSwapError(c, err)
		return
	}

	response.OK(c, result)
}

// CancelSwap 撤回自己的未决申请
// POST /api/v1/swaps/cancel/:id
func (h *SwapHandler) CancelSwap(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "申请ID不能为空")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.swapSvc.Cancel(c.Request.Context(), id, userID)
	if err != nil {
		h.handleSwapError(c, err)
		return
	}

	response.OK(c, result)
}

// handleSwapError 统一处理交换模块业务错误
func (h *SwapHandler) handleSwapError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSwapNotFound):
		response.NotFound(c, 13001, "交换申请不存在")
	case errors.Is(err, service.ErrSlotNotFound):
		response.NotFound(c, 12001, "时段不存在")
	case errors.Is(err, service.ErrSelfSwap):
		response.BadRequest(c, 13002, "不能与自己的时段交换")
	case errors.Is(err, service.ErrSlotUnavailable):
		response.Conflict(c, 13003, "时段当前不可交换")
	case errors.Is(err, service.ErrNotOwner):
		response.Forbidden(c, 12003, "只能用自己的时段发起交换")
	case errors.Is(err, service.ErrNotResponder):
		response.Forbidden(c, 13004, "仅被申请人可响应此申请")
	case errors.Is(err, service.ErrNotRequester):
		response.Forbidden(c, 13006, "仅申请人可撤回此申请")
	case errors.Is(err, service.ErrAlreadyResolved):
		response.Conflict(c, 13005, "申请已处理，不可重复操作")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 13007, "数据已被其他操作修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}
