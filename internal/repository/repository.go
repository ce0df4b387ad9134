package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	User UserRepository
	Slot SlotRepository
	Swap SwapRequestRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:   db,
		User: NewUserRepo(db),
		Slot: NewSlotRepo(db),
		Swap: NewSwapRequestRepo(db),
	}
}

// BeginTx 开启数据库事务
// db 为 nil 时（单元测试的 mock 场景）返回 nil 事务，调用方需对 nil 事务跳过 Commit/Rollback
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx 返回绑定到事务的 Repository 副本
// tx 为 nil 时返回自身（mock 场景下仓储本身即内存状态）
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{
		db:   tx,
		User: NewUserRepo(tx),
		Slot: NewSlotRepo(tx),
		Swap: NewSwapRequestRepo(tx),
	}
}
