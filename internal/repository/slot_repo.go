package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"slot-swapper/backend/internal/model"
	pkgerrors "slot-swapper/backend/pkg/errors"
)

// SlotRepository 时段数据访问接口
type SlotRepository interface {
	Create(ctx context.Context, slot *model.Slot) error
	GetByID(ctx context.Context, id string) (*model.Slot, error)
	// GetByIDForUpdate 以行级排它锁读取时段，须在事务内调用
	GetByIDForUpdate(ctx context.Context, id string) (*model.Slot, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Slot, error)
	// ListSwappableExcluding 市场浏览：所有非 ownerID 所有的 SWAPPABLE 时段
	ListSwappableExcluding(ctx context.Context, ownerID string) ([]model.Slot, error)
	// Update 带乐观锁的整体更新，版本不匹配时返回 ErrOptimisticLock
	Update(ctx context.Context, slot *model.Slot) error
	// SetStatus 更新时段状态（引擎在事务内调用，行已被 FOR UPDATE 锁定）
	SetStatus(ctx context.Context, id string, status string) error
	// SetOwnerAndStatus 所有权转移：改写 owner 并重置状态（引擎内部）
	SetOwnerAndStatus(ctx context.Context, id string, ownerID string, status string) error
	Delete(ctx context.Context, id string) error
}

type slotRepo struct {
	db *gorm.DB
}

// NewSlotRepo 创建 SlotRepository 实例
func NewSlotRepo(db *gorm.DB) SlotRepository {
	return &slotRepo{db: db}
}

func (r *slotRepo) Create(ctx context.Context, slot *model.Slot) error {
	return r.db.WithContext(ctx).Create(slot).Error
}

func (r *slotRepo) GetByID(ctx context.Context, id string) (*model.Slot, error) {
	var slot model.Slot
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Where("slot_id = ?", id).
		First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *slotRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Slot, error) {
	var slot model.Slot
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("slot_id = ?", id).
		First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *slotRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Slot, error) {
	var slots []model.Slot
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("start_time ASC").
		Find(&slots).Error
	return slots, err
}

func (r *slotRepo) ListSwappableExcluding(ctx context.Context, ownerID string) ([]model.Slot, error) {
	var slots []model.Slot
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Where("status = ? AND owner_id <> ?", model.SlotStatusSwappable, ownerID).
		Order("start_time ASC").
		Find(&slots).Error
	return slots, err
}

func (r *slotRepo) Update(ctx context.Context, slot *model.Slot) error {
	res := r.db.WithContext(ctx).
		Model(&model.Slot{}).
		Where("slot_id = ? AND version = ?", slot.SlotID, slot.Version).
		Updates(map[string]interface{}{
			"title":      slot.Title,
			"start_time": slot.StartTime,
			"end_time":   slot.EndTime,
			"status":     slot.Status,
			"updated_at": gorm.Expr("NOW()"),
			"version":    gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	slot.Version++
	return nil
}

func (r *slotRepo) SetStatus(ctx context.Context, id string, status string) error {
	return r.db.WithContext(ctx).
		Model(&model.Slot{}).
		Where("slot_id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": gorm.Expr("NOW()"),
			"version":    gorm.Expr("version + 1"),
		}).Error
}

func (r *slotRepo) SetOwnerAndStatus(ctx context.Context, id string, ownerID string, status string) error {
	return r.db.WithContext(ctx).
		Model(&model.Slot{}).
		Where("slot_id = ?", id).
		Updates(map[string]interface{}{
			"owner_id":   ownerID,
			"status":     status,
			"updated_at": gorm.Expr("NOW()"),
			"version":    gorm.Expr("version + 1"),
		}).Error
}

func (r *slotRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("slot_id = ?", id).
		Delete(&model.Slot{}).Error
}
