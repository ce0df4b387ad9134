package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"slot-swapper/backend/internal/model"
	pkgerrors "slot-swapper/backend/pkg/errors"
)

// SwapRequestRepository 交换申请数据访问接口
type SwapRequestRepository interface {
	Create(ctx context.Context, req *model.SwapRequest) error
	GetByID(ctx context.Context, id string) (*model.SwapRequest, error)
	// GetByIDForUpdate 以行级排它锁读取申请，须在事务内调用
	GetByIDForUpdate(ctx context.Context, id string) (*model.SwapRequest, error)
	// ListByRequester 用户发出的申请，任意状态，最新在前
	ListByRequester(ctx context.Context, requesterID string) ([]model.SwapRequest, error)
	// ListByResponder 用户收到的申请，任意状态，最新在前
	ListByResponder(ctx context.Context, responderID string) ([]model.SwapRequest, error)
	// ListPendingBySlot 引用指定时段（任一侧）的未决申请，级联失效用反向索引
	ListPendingBySlot(ctx context.Context, slotID string) ([]model.SwapRequest, error)
	// HasPendingBySlot 指定时段是否被任何未决申请引用
	HasPendingBySlot(ctx context.Context, slotID string) (bool, error)
	// SetStatus 将未决申请迁移到新状态。终态申请不可变更，
	// 目标行已非 PENDING 时返回 ErrOptimisticLock
	SetStatus(ctx context.Context, id string, status string) error
}

type swapRequestRepo struct {
	db *gorm.DB
}

// NewSwapRequestRepo 创建 SwapRequestRepository 实例
func NewSwapRequestRepo(db *gorm.DB) SwapRequestRepository {
	return &swapRequestRepo{db: db}
}

func (r *swapRequestRepo) Create(ctx context.Context, req *model.SwapRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *swapRequestRepo) GetByID(ctx context.Context, id string) (*model.SwapRequest, error) {
	var req model.SwapRequest
	err := r.db.WithContext(ctx).
		Preload("Requester").
		Preload("Responder").
		Preload("MySlot").
		Preload("TheirSlot").
		Where("swap_request_id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *swapRequestRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.SwapRequest, error) {
	var req model.SwapRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("swap_request_id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *swapRequestRepo) ListByRequester(ctx context.Context, requesterID string) ([]model.SwapRequest, error) {
	var reqs []model.SwapRequest
	err := r.db.WithContext(ctx).
		Preload("Requester").
		Preload("Responder").
		Preload("MySlot").
		Preload("TheirSlot").
		Where("requester_id = ?", requesterID).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

func (r *swapRequestRepo) ListByResponder(ctx context.Context, responderID string) ([]model.SwapRequest, error) {
	var reqs []model.SwapRequest
	err := r.db.WithContext(ctx).
		Preload("Requester").
		Preload("Responder").
		Preload("MySlot").
		Preload("TheirSlot").
		Where("responder_id = ?", responderID).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

func (r *swapRequestRepo) ListPendingBySlot(ctx context.Context, slotID string) ([]model.SwapRequest, error) {
	var reqs []model.SwapRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND (my_slot_id = ? OR their_slot_id = ?)",
			model.SwapStatusPending, slotID, slotID).
		Find(&reqs).Error
	return reqs, err
}

func (r *swapRequestRepo) HasPendingBySlot(ctx context.Context, slotID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.SwapRequest{}).
		Where("status = ? AND (my_slot_id = ? OR their_slot_id = ?)",
			model.SwapStatusPending, slotID, slotID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *swapRequestRepo) SetStatus(ctx context.Context, id string, status string) error {
	result := r.db.WithContext(ctx).
		Model(&model.SwapRequest{}).
		Where("swap_request_id = ? AND status = ?", id, model.SwapStatusPending).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": gorm.Expr("NOW()"),
			"version":    gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	// 申请不存在或已是终态
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}
