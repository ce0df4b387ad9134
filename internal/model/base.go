package model

import "time"

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// VersionedModel 支持乐观锁的审计模型
// Version 由仓储层在条件更新中递增，用于并发写冲突检测
type VersionedModel struct {
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`
}
