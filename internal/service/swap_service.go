package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"slot-swapper/backend/internal/dto"
	"slot-swapper/backend/internal/model"
	"slot-swapper/backend/internal/repository"
	pkgerrors "slot-swapper/backend/pkg/errors"
)

// ── 交换模块业务错误 ──

var (
	ErrSwapNotFound    = errors.New("交换申请不存在")
	ErrSelfSwap        = errors.New("不能与自己的时段交换")
	ErrSlotUnavailable = errors.New("时段当前不可交换")
	ErrNotResponder    = errors.New("仅被申请人可响应此申请")
	ErrNotRequester    = errors.New("仅申请人可撤回此申请")
	ErrAlreadyResolved = errors.New("申请已处理，不可重复操作")
)

// SwapService 交换协商引擎
//
// 唯一允许同时改写时段与申请两类记录的组件。三条不变量：
//  1. 时段所有权仅在申请被接受时成对交换，且与状态变更同一事务提交；
//  2. 任一时段至多被一条未决申请引用（发起时即置 LOCKED 排除复用）；
//  3. 终态申请（ACCEPTED/REJECTED/CANCELLED）不可再变更，永久保留为审计记录。
//
// 并发约束：每次操作在单个数据库事务内完成；涉及的时段行按
// slot_id 升序 FOR UPDATE 加锁，避免两笔触及相同时段的并发操作互相死锁。
type SwapService interface {
	// Propose 发起交换：校验双方时段后锁定两个时段并创建 PENDING 申请
	Propose(ctx context.Context, requesterID string, req *dto.CreateSwapRequest) (*dto.SwapRequestResponse, error)
	// Respond 被申请人接受或拒绝；接受时原子交换所有权并级联取消相关未决申请
	Respond(ctx context.Context, requestID string, responderID string, accept bool) (*dto.SwapRequestResponse, error)
	// Cancel 申请人撤回未决申请并解锁两个时段
	Cancel(ctx context.Context, requestID string, requesterID string) (*dto.SwapRequestResponse, error)
	GetByID(ctx context.Context, id string) (*dto.SwapRequestResponse, error)
	ListIncoming(ctx context.Context, userID string) ([]dto.SwapRequestResponse, error)
	ListOutgoing(ctx context.Context, userID string) ([]dto.SwapRequestResponse, error)
}

type swapService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSwapService 创建 SwapService 实例
func NewSwapService(repo *repository.Repository, logger *zap.Logger) SwapService {
	return &swapService{repo: repo, logger: logger}
}

// ════════════════════════════════════════════════════════════
// Propose 发起交换申请
// ════════════════════════════════════════════════════════════

func (s *swapService) Propose(ctx context.Context, requesterID string, req *dto.CreateSwapRequest) (*dto.SwapRequestResponse, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	defer rollbackOnPanic(tx)

	txRepo := s.repo.WithTx(tx)

	// 1. 按升序锁定两个时段
	mySlot, theirSlot, err := lockSlotPair(ctx, txRepo, req.MySlotID, req.TheirSlotID)
	if err != nil {
		rollback(tx)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		s.logger.Error("锁定时段失败", zap.Error(err))
		return nil, err
	}

	// 2. 全部校验先于任何写入
	if mySlot.OwnerID != requesterID {
		rollback(tx)
		return nil, ErrNotOwner
	}
	if theirSlot.OwnerID == requesterID {
		rollback(tx)
		return nil, ErrSelfSwap
	}
	if mySlot.Status != model.SlotStatusSwappable || theirSlot.Status != model.SlotStatusSwappable {
		rollback(tx)
		return nil, ErrSlotUnavailable
	}

	// 3. 原子写入：创建 PENDING 申请 + 两个时段置 LOCKED
	swap := &model.SwapRequest{
		RequesterID: requesterID,
		ResponderID: theirSlot.OwnerID,
		MySlotID:    mySlot.SlotID,
		TheirSlotID: theirSlot.SlotID,
		Status:      model.SwapStatusPending,
	}
	if err := txRepo.Swap.Create(ctx, swap); err != nil {
		rollback(tx)
		s.logger.Error("创建交换申请失败", zap.Error(err))
		return nil, err
	}
	if err := txRepo.Slot.SetStatus(ctx, mySlot.SlotID, model.SlotStatusLocked); err != nil {
		rollback(tx)
		s.logger.Error("锁定时段失败", zap.String("slot_id", mySlot.SlotID), zap.Error(err))
		return nil, err
	}
	if err := txRepo.Slot.SetStatus(ctx, theirSlot.SlotID, model.SlotStatusLocked); err != nil {
		rollback(tx)
		s.logger.Error("锁定时段失败", zap.String("slot_id", theirSlot.SlotID), zap.Error(err))
		return nil, err
	}

	if err := commit(tx); err != nil {
		s.logger.Error("提交事务失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("交换申请已创建",
		zap.String("swap_request_id", swap.SwapRequestID),
		zap.String("requester_id", requesterID),
		zap.String("responder_id", swap.ResponderID),
	)

	return s.reload(ctx, swap.SwapRequestID)
}

// ════════════════════════════════════════════════════════════
// Respond 接受 / 拒绝交换申请
// ════════════════════════════════════════════════════════════

func (s *swapService) Respond(ctx context.Context, requestID string, responderID string, accept bool) (*dto.SwapRequestResponse, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	defer rollbackOnPanic(tx)

	txRepo := s.repo.WithTx(tx)

	// 1. 锁定申请行
	swap, err := txRepo.Swap.GetByIDForUpdate(ctx, requestID)
	if err != nil {
		rollback(tx)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSwapNotFound
		}
		s.logger.Error("查询交换申请失败", zap.String("id", requestID), zap.Error(err))
		return nil, err
	}

	if swap.ResponderID != responderID {
		rollback(tx)
		return nil, ErrNotResponder
	}
	if swap.Status != model.SwapStatusPending {
		rollback(tx)
		return nil, ErrAlreadyResolved
	}

	// 2. 按升序锁定两个时段
	mySlot, theirSlot, err := lockSlotPair(ctx, txRepo, swap.MySlotID, swap.TheirSlotID)
	if err != nil {
		rollback(tx)
		s.logger.Error("锁定时段失败", zap.Error(err))
		return nil, err
	}

	if !accept {
		// 3a. 拒绝：申请置 REJECTED，时段回到原所有者的 SWAPPABLE
		if err := s.resolve(ctx, txRepo, swap, model.SwapStatusRejected, mySlot, theirSlot); err != nil {
			rollback(tx)
			return nil, err
		}
	} else {
		// 3b. 接受前防御性复核：时段仍处锁定且所有权未变
		// 引擎自身不变量下恒成立，违背说明存在绕过引擎的写入
		if mySlot.Status != model.SlotStatusLocked || theirSlot.Status != model.SlotStatusLocked ||
			mySlot.OwnerID != swap.RequesterID || theirSlot.OwnerID != swap.ResponderID {
			rollback(tx)
			s.logger.Warn("接受申请时发现时段状态异常",
				zap.String("swap_request_id", requestID),
				zap.String("my_slot_status", mySlot.Status),
				zap.String("their_slot_status", theirSlot.Status),
			)
			return nil, pkgerrors.ErrOptimisticLock
		}

		// 4. 原子交换所有权：双方时段互换 owner 并置 BUSY
		if err := txRepo.Slot.SetOwnerAndStatus(ctx, mySlot.SlotID, swap.ResponderID, model.SlotStatusBusy); err != nil {
			rollback(tx)
			s.logger.Error("转移时段所有权失败", zap.String("slot_id", mySlot.SlotID), zap.Error(err))
			return nil, err
		}
		if err := txRepo.Slot.SetOwnerAndStatus(ctx, theirSlot.SlotID, swap.RequesterID, model.SlotStatusBusy); err != nil {
			rollback(tx)
			s.logger.Error("转移时段所有权失败", zap.String("slot_id", theirSlot.SlotID), zap.Error(err))
			return nil, err
		}
		if err := txRepo.Swap.SetStatus(ctx, swap.SwapRequestID, model.SwapStatusAccepted); err != nil {
			rollback(tx)
			s.logger.Error("更新申请状态失败", zap.Error(err))
			return nil, err
		}

		// 5. 级联失效：引用这两个时段的其他未决申请全部取消
		if err := s.cascadeInvalidate(ctx, txRepo, swap); err != nil {
			rollback(tx)
			return nil, err
		}
	}

	if err := commit(tx); err != nil {
		s.logger.Error("提交事务失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("交换申请已响应",
		zap.String("swap_request_id", requestID),
		zap.Bool("accept", accept),
	)

	return s.reload(ctx, requestID)
}

// ════════════════════════════════════════════════════════════
// Cancel 申请人撤回
// ════════════════════════════════════════════════════════════

func (s *swapService) Cancel(ctx context.Context, requestID string, requesterID string) (*dto.SwapRequestResponse, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	defer rollbackOnPanic(tx)

	txRepo := s.repo.WithTx(tx)

	swap, err := txRepo.Swap.GetByIDForUpdate(ctx, requestID)
	if err != nil {
		rollback(tx)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSwapNotFound
		}
		s.logger.Error("查询交换申请失败", zap.String("id", requestID), zap.Error(err))
		return nil, err
	}

	if swap.RequesterID != requesterID {
		rollback(tx)
		return nil, ErrNotRequester
	}
	if swap.Status != model.SwapStatusPending {
		rollback(tx)
		return nil, ErrAlreadyResolved
	}

	mySlot, theirSlot, err := lockSlotPair(ctx, txRepo, swap.MySlotID, swap.TheirSlotID)
	if err != nil {
		rollback(tx)
		s.logger.Error("锁定时段失败", zap.Error(err))
		return nil, err
	}

	if err := s.resolve(ctx, txRepo, swap, model.SwapStatusCancelled, mySlot, theirSlot); err != nil {
		rollback(tx)
		return nil, err
	}

	if err := commit(tx); err != nil {
		s.logger.Error("提交事务失败", zap.Error(err))
		return nil, err
	}

	return s.reload(ctx, requestID)
}

// ────────────────────── 查询 ──────────────────────

func (s *swapService) GetByID(ctx context.Context, id string) (*dto.SwapRequestResponse, error) {
	swap, err := s.repo.Swap.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSwapNotFound
		}
		s.logger.Error("查询交换申请失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toSwapResponse(swap), nil
}

func (s *swapService) ListIncoming(ctx context.Context, userID string) ([]dto.SwapRequestResponse, error) {
	swaps, err := s.repo.Swap.ListByResponder(ctx, userID)
	if err != nil {
		s.logger.Error("列出收到的申请失败", zap.Error(err))
		return nil, err
	}
	return toSwapResponses(swaps), nil
}

func (s *swapService) ListOutgoing(ctx context.Context, userID string) ([]dto.SwapRequestResponse, error) {
	swaps, err := s.repo.Swap.ListByRequester(ctx, userID)
	if err != nil {
		s.logger.Error("列出发出的申请失败", zap.Error(err))
		return nil, err
	}
	return toSwapResponses(swaps), nil
}

// ── 内部辅助方法 ──

// resolve 以非交换方式终结未决申请（拒绝/撤回）：
// 申请置终态，两个时段回到原所有者的 SWAPPABLE
func (s *swapService) resolve(ctx context.Context, txRepo *repository.Repository, swap *model.SwapRequest, status string, mySlot, theirSlot *model.Slot) error {
	if err := txRepo.Swap.SetStatus(ctx, swap.SwapRequestID, status); err != nil {
		s.logger.Error("更新申请状态失败", zap.String("id", swap.SwapRequestID), zap.Error(err))
		return err
	}
	for _, slot := range []*model.Slot{mySlot, theirSlot} {
		if err := txRepo.Slot.SetStatus(ctx, slot.SlotID, model.SlotStatusSwappable); err != nil {
			s.logger.Error("解锁时段失败", zap.String("slot_id", slot.SlotID), zap.Error(err))
			return err
		}
	}
	return nil
}

// cascadeInvalidate 取消引用已成交时段的其他未决申请，
// 并把这些申请锁住的、不属于成交对的时段释放回 SWAPPABLE。
// 成交本身已让旧所有权失效，保留 CANCELLED 记录供对方界面解释原因
func (s *swapService) cascadeInvalidate(ctx context.Context, txRepo *repository.Repository, accepted *model.SwapRequest) error {
	acceptedPair := map[string]bool{
		accepted.MySlotID:    true,
		accepted.TheirSlotID: true,
	}

	seen := map[string]bool{accepted.SwapRequestID: true}
	for _, slotID := range []string{accepted.MySlotID, accepted.TheirSlotID} {
		pendings, err := txRepo.Swap.ListPendingBySlot(ctx, slotID)
		if err != nil {
			s.logger.Error("查询未决申请失败", zap.String("slot_id", slotID), zap.Error(err))
			return err
		}

		for i := range pendings {
			other := &pendings[i]
			if seen[other.SwapRequestID] {
				continue
			}
			seen[other.SwapRequestID] = true

			if err := txRepo.Swap.SetStatus(ctx, other.SwapRequestID, model.SwapStatusCancelled); err != nil {
				s.logger.Error("级联取消申请失败", zap.String("id", other.SwapRequestID), zap.Error(err))
				return err
			}

			// 释放被取消申请锁住的另一侧时段
			for _, otherSlotID := range []string{other.MySlotID, other.TheirSlotID} {
				if acceptedPair[otherSlotID] {
					continue
				}
				slot, err := txRepo.Slot.GetByIDForUpdate(ctx, otherSlotID)
				if err != nil {
					s.logger.Error("锁定时段失败", zap.String("slot_id", otherSlotID), zap.Error(err))
					return err
				}
				if slot.Status == model.SlotStatusLocked {
					if err := txRepo.Slot.SetStatus(ctx, slot.SlotID, model.SlotStatusSwappable); err != nil {
						s.logger.Error("解锁时段失败", zap.String("slot_id", slot.SlotID), zap.Error(err))
						return err
					}
				}
			}

			s.logger.Info("级联取消未决申请",
				zap.String("accepted_id", accepted.SwapRequestID),
				zap.String("cancelled_id", other.SwapRequestID),
			)
		}
	}

	return nil
}

// reload 事务提交后重新加载申请（含关联）供响应返回
func (s *swapService) reload(ctx context.Context, id string) (*dto.SwapRequestResponse, error) {
	swap, err := s.repo.Swap.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("重新加载申请失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toSwapResponse(swap), nil
}

// lockSlotPair 按 slot_id 升序对两个时段行加排它锁，返回值与入参顺序一致。
// 固定加锁顺序保证触及相同时段对的并发事务不会互相死锁
func lockSlotPair(ctx context.Context, txRepo *repository.Repository, firstID, secondID string) (*model.Slot, *model.Slot, error) {
	a, b := firstID, secondID
	if a > b {
		a, b = b, a
	}

	slotA, err := txRepo.Slot.GetByIDForUpdate(ctx, a)
	if err != nil {
		return nil, nil, err
	}
	slotB, err := txRepo.Slot.GetByIDForUpdate(ctx, b)
	if err != nil {
		return nil, nil, err
	}

	if slotA.SlotID == firstID {
		return slotA, slotB, nil
	}
	return slotB, slotA, nil
}

func rollback(tx *gorm.DB) {
	if tx != nil {
		tx.Rollback()
	}
}

func commit(tx *gorm.DB) error {
	if tx == nil {
		return nil
	}
	return tx.Commit().Error
}

func rollbackOnPanic(tx *gorm.DB) {
	if r := recover(); r != nil {
		rollback(tx)
		panic(r)
	}
}

func toSwapResponse(swap *model.SwapRequest) *dto.SwapRequestResponse {
	resp := &dto.SwapRequestResponse{
		ID:        swap.SwapRequestID,
		Status:    swap.Status,
		CreatedAt: swap.CreatedAt,
		UpdatedAt: swap.UpdatedAt,
	}
	if swap.Requester != nil {
		resp.Requester = &dto.UserBrief{ID: swap.Requester.UserID, Name: swap.Requester.Name}
	}
	if swap.Responder != nil {
		resp.Responder = &dto.UserBrief{ID: swap.Responder.UserID, Name: swap.Responder.Name}
	}
	if swap.MySlot != nil {
		resp.MySlot = toSlotResponse(swap.MySlot)
	}
	if swap.TheirSlot != nil {
		resp.TheirSlot = toSlotResponse(swap.TheirSlot)
	}
	return resp
}

func toSwapResponses(swaps []model.SwapRequest) []dto.SwapRequestResponse {
	result := make([]dto.SwapRequestResponse, 0, len(swaps))
	for i := range swaps {
		result = append(result, *toSwapResponse(&swaps[i]))
	}
	return result
}
