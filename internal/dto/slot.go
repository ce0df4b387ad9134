package dto

import "time"

// ── 时段模块 DTO ──

// CreateSlotRequest 创建时段请求
type CreateSlotRequest struct {
	Title     string    `json:"title"      binding:"required,min=1,max=200"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time"   binding:"required"`
	Status    string    `json:"status"     binding:"omitempty,oneof=BUSY SWAPPABLE"`
}

// UpdateSlotRequest 更新时段请求
// 仅所有者可更新；Status 只允许 BUSY/SWAPPABLE 之间切换
type UpdateSlotRequest struct {
	Title     *string    `json:"title"      binding:"omitempty,min=1,max=200"`
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Status    *string    `json:"status"     binding:"omitempty,oneof=BUSY SWAPPABLE"`
}

// SlotResponse 时段信息响应
type SlotResponse struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Owner     *UserBrief `json:"owner,omitempty"`
	Title     string     `json:"title"`
	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// UserBrief 用户简要信息（嵌入时段/申请响应）
type UserBrief struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
