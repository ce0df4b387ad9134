package model

import "time"

// ── 时段状态 ──

const (
	// SlotStatusBusy 普通占用时段，不可交换
	SlotStatusBusy = "BUSY"
	// SlotStatusSwappable 挂牌可交换时段
	SlotStatusSwappable = "SWAPPABLE"
	// SlotStatusLocked 被未决交换申请占用的时段（仅引擎内部可设置）
	SlotStatusLocked = "LOCKED"
)

// Slot 日历时段表，对应 slots
// 每个时段在任一时刻只有一个所有者；所有权仅在交换申请被接受时转移
type Slot struct {
	SlotID    string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"slot_id"`
	OwnerID   string    `gorm:"type:uuid;not null;index"                       json:"owner_id"`
	Title     string    `gorm:"type:varchar(200);not null"                     json:"title"`
	StartTime time.Time `gorm:"not null"                                       json:"start_time"`
	EndTime   time.Time `gorm:"not null"                                       json:"end_time"`
	Status    string    `gorm:"type:varchar(20);not null;default:'BUSY';index" json:"status"` // BUSY | SWAPPABLE | LOCKED
	VersionedModel

	// 关联
	Owner *User `gorm:"foreignKey:OwnerID;references:UserID" json:"owner,omitempty"`
}

// TableName 指定表名
func (Slot) TableName() string { return "slots" }
