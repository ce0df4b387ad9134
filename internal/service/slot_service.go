package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"slot-swapper/backend/internal/dto"
	"slot-swapper/backend/internal/model"
	"slot-swapper/backend/internal/repository"
)

// ── 时段模块业务错误 ──

var (
	ErrSlotNotFound      = errors.New("时段不存在")
	ErrInvalidTimeRange  = errors.New("开始时间必须早于结束时间")
	ErrNotOwner          = errors.New("仅时段所有者可执行此操作")
	ErrInvalidTransition = errors.New("不允许的状态变更")
	ErrSlotReferenced    = errors.New("时段被未决交换申请引用，不可操作")
)

// SlotService 时段业务接口
// 时段的所有权与状态只有两个写入口：本服务（所有者直接操作）
// 与 SwapService（交换引擎的加锁/转移），外部不可直接设置 LOCKED
type SlotService interface {
	Create(ctx context.Context, req *dto.CreateSlotRequest, callerID string) (*dto.SlotResponse, error)
	GetByID(ctx context.Context, id string) (*dto.SlotResponse, error)
	// ListByOwner 我的日历
	ListByOwner(ctx context.Context, ownerID string) ([]dto.SlotResponse, error)
	// ListSwappableExcluding 市场浏览：他人挂牌的全部可交换时段
	ListSwappableExcluding(ctx context.Context, callerID string) ([]dto.SlotResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateSlotRequest, callerID string) (*dto.SlotResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
}

type slotService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSlotService 创建 SlotService 实例
func NewSlotService(repo *repository.Repository, logger *zap.Logger) SlotService {
	return &slotService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *slotService) Create(ctx context.Context, req *dto.CreateSlotRequest, callerID string) (*dto.SlotResponse, error) {
	if !req.StartTime.Before(req.EndTime) {
		return nil, ErrInvalidTimeRange
	}

	status := req.Status
	if status == "" {
		status = model.SlotStatusBusy
	}

	slot := &model.Slot{
		OwnerID:   callerID,
		Title:     req.Title,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    status,
	}

	if err := s.repo.Slot.Create(ctx, slot); err != nil {
		s.logger.Error("创建时段失败", zap.Error(err))
		return nil, err
	}

	return toSlotResponse(slot), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *slotService) GetByID(ctx context.Context, id string) (*dto.SlotResponse, error) {
	slot, err := s.repo.Slot.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		s.logger.Error("查询时段失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return toSlotResponse(slot), nil
}

// ────────────────────── List ──────────────────────

func (s *slotService) ListByOwner(ctx context.Context, ownerID string) ([]dto.SlotResponse, error) {
	slots, err := s.repo.Slot.ListByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Error("列出时段失败", zap.Error(err))
		return nil, err
	}

	return toSlotResponses(slots), nil
}

func (s *slotService) ListSwappableExcluding(ctx context.Context, callerID string) ([]dto.SlotResponse, error) {
	slots, err := s.repo.Slot.ListSwappableExcluding(ctx, callerID)
	if err != nil {
		s.logger.Error("列出可交换时段失败", zap.Error(err))
		return nil, err
	}

	return toSlotResponses(slots), nil
}

// ────────────────────── Update ──────────────────────

func (s *slotService) Update(ctx context.Context, id string, req *dto.UpdateSlotRequest, callerID string) (*dto.SlotResponse, error) {
	slot, err := s.repo.Slot.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		s.logger.Error("查询时段失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if slot.OwnerID != callerID {
		return nil, ErrNotOwner
	}
	// 被交换申请锁定期间不可直接修改
	if slot.Status == model.SlotStatusLocked {
		return nil, ErrInvalidTransition
	}

	if req.Title != nil {
		slot.Title = *req.Title
	}
	if req.StartTime != nil {
		slot.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		slot.EndTime = *req.EndTime
	}
	if !slot.StartTime.Before(slot.EndTime) {
		return nil, ErrInvalidTimeRange
	}
	if req.Status != nil {
		// DTO 层已限定取值为 BUSY/SWAPPABLE，再防一道引擎内部状态
		if *req.Status != model.SlotStatusBusy && *req.Status != model.SlotStatusSwappable {
			return nil, ErrInvalidTransition
		}
		slot.Status = *req.Status
	}

	if err := s.repo.Slot.Update(ctx, slot); err != nil {
		s.logger.Error("更新时段失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return toSlotResponse(slot), nil
}

// ────────────────────── Delete ──────────────────────

func (s *slotService) Delete(ctx context.Context, id string, callerID string) error {
	slot, err := s.repo.Slot.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSlotNotFound
		}
		s.logger.Error("查询时段失败", zap.String("id", id), zap.Error(err))
		return err
	}

	if slot.OwnerID != callerID {
		return ErrNotOwner
	}

	// 仅未决申请阻止删除；终态申请是审计记录，保留时段 ID 值即可
	referenced, err := s.repo.Swap.HasPendingBySlot(ctx, id)
	if err != nil {
		s.logger.Error("查询时段引用失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if referenced {
		return ErrSlotReferenced
	}

	if err := s.repo.Slot.Delete(ctx, id); err != nil {
		s.logger.Error("删除时段失败", zap.String("id", id), zap.Error(err))
		return err
	}

	return nil
}

// ── 内部辅助方法 ──

func toSlotResponse(slot *model.Slot) *dto.SlotResponse {
	resp := &dto.SlotResponse{
		ID:        slot.SlotID,
		OwnerID:   slot.OwnerID,
		Title:     slot.Title,
		StartTime: slot.StartTime,
		EndTime:   slot.EndTime,
		Status:    slot.Status,
		CreatedAt: slot.CreatedAt,
		UpdatedAt: slot.UpdatedAt,
	}
	if slot.Owner != nil {
		resp.Owner = &dto.UserBrief{ID: slot.Owner.UserID, Name: slot.Owner.Name}
	}
	return resp
}

func toSlotResponses(slots []model.Slot) []dto.SlotResponse {
	result := make([]dto.SlotResponse, 0, len(slots))
	for i := range slots {
		result = append(result, *toSlotResponse(&slots[i]))
	}
	return result
}
