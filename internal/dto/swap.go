package dto

import "time"

// ── 交换模块 DTO ──

// CreateSwapRequest 发起交换申请请求
type CreateSwapRequest struct {
	MySlotID    string `json:"my_slot_id"    binding:"required,uuid"`
	TheirSlotID string `json:"their_slot_id" binding:"required,uuid"`
}

// SwapResponseRequest 响应交换申请请求
type SwapResponseRequest struct {
	Accept *bool `json:"accept" binding:"required"`
}

// SwapRequestResponse 交换申请信息响应
type SwapRequestResponse struct {
	ID        string        `json:"id"`
	Requester *UserBrief    `json:"requester,omitempty"`
	Responder *UserBrief    `json:"responder,omitempty"`
	MySlot    *SlotResponse `json:"my_slot,omitempty"`
	TheirSlot *SlotResponse `json:"their_slot,omitempty"`
	Status    string        `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
