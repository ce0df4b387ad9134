package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"slot-swapper/backend/internal/dto"
	"slot-swapper/backend/internal/model"
	"slot-swapper/backend/internal/repository"
)

func setupTestSlotService() (SlotService, *mockSlotRepo, *mockSwapRepo) {
	slotRepo := newMockSlotRepo()
	swapRepo := newMockSwapRepo()
	repo := &repository.Repository{
		User: newMockUserRepo(),
		Slot: slotRepo,
		Swap: swapRepo,
	}
	svc := NewSlotService(repo, zap.NewNop())
	return svc, slotRepo, swapRepo
}

func strPtr(s string) *string        { return &s }
func timePtr(t time.Time) *time.Time { return &t }

func TestSlotService_Create_DefaultBusy(t *testing.T) {
	svc, _, _ := setupTestSlotService()
	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	result, err := svc.Create(context.Background(), &dto.CreateSlotRequest{
		Title:     "晨会",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	}, "user-x")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}

	if result.Status != model.SlotStatusBusy {
		t.Errorf("未指定状态时应默认 BUSY，实际=%s", result.Status)
	}
	if result.OwnerID != "user-x" {
		t.Errorf("创建者应为所有者，实际=%s", result.OwnerID)
	}
}

func TestSlotService_Create_InvalidTimeRange(t *testing.T) {
	svc, _, _ := setupTestSlotService()
	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		end  time.Time
	}{
		{"结束早于开始", start.Add(-time.Hour)},
		{"结束等于开始", start},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), &dto.CreateSlotRequest{
				Title:     "无效时段",
				StartTime: start,
				EndTime:   tc.end,
			}, "user-x")
			if !errors.Is(err, ErrInvalidTimeRange) {
				t.Errorf("期望 ErrInvalidTimeRange，实际: %v", err)
			}
		})
	}
}

func TestSlotService_Update_NotOwner(t *testing.T) {
	svc, slotRepo, _ := setupTestSlotService()
	addSlot(slotRepo, "slot-a", "user-x", model.SlotStatusBusy)

	_, err := svc.Update(context.Background(), "slot-a", &dto.UpdateSlotRequest{
		Title: strPtr("篡改"),
	}, "user-y")
	if !errors.Is(err, ErrNotOwner) {
		t.Errorf("期望 ErrNotOwner，实际: %v", err)
	}
}

func TestSlotService_Update_LockedSlot(t *testing.T) {
	svc, slotRepo, _ := setupTestSlotService()
	addSlot(slotRepo, "slot-a", "user-x", model.SlotStatusLocked)

	// 交换进行中的时段不允许所有者改动
	_, err := svc.Update(context.Background(), "slot-a", &dto.UpdateSlotRequest{
		Status: strPtr(model.SlotStatusBusy),
	}, "user-x")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("期望 ErrInvalidTransition，实际: %v", err)
	}
}

func TestSlotService_Update_StatusToggle(t *testing.T) {
	svc, slotRepo, _ := setupTestSlotService()
	addSlot(slotRepo, "slot-a", "user-x", model.SlotStatusBusy)

	result, err := svc.Update(context.Background(), "slot-a", &dto.UpdateSlotRequest{
		Status: strPtr(model.SlotStatusSwappable),
	}, "user-x")
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if result.Status != model.SlotStatusSwappable {
		t.Errorf("期望状态 SWAPPABLE，实际=%s", result.Status)
	}
}

func TestSlotService_Update_SetLockedForbidden(t *testing.T) {
	svc, slotRepo, _ := setupTestSlotService()
	addSlot(slotRepo, "slot-a", "user-x", model.SlotStatusBusy)

	// LOCKED 由交换引擎内部管理，外部不可直接设置
	_, err := svc.Update(context.Background(), "slot-a", &dto.UpdateSlotRequest{
		Status: strPtr(model.SlotStatusLocked),
	}, "user-x")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("期望 ErrInvalidTransition，实际: %v", err)
	}
}

func TestSlotService_Update_InvalidTimeRange(t *testing.T) {
	svc, slotRepo, _ := setupTestSlotService()
	slot := addSlot(slotRepo, "slot-a", "user-x", model.SlotStatusBusy)

	// 仅改结束时间使其早于开始时间
	_, err := svc.Update(context.Background(), "slot-a", &dto.UpdateSlotRequest{
		EndTime: timePtr(slot.StartTime.Add(-time.Minute)),
	}, "user-x")
	if !errors.Is(err, ErrInvalidTimeRange) {
		t.Errorf("期望 ErrInvalidTimeRange，实际: %v", err)
	}
}

func TestSlotService_Delete_Referenced(t *testing.T) {
	svc, slotRepo, swapRepo := setupTestSlotService()
	addSlot(slotRepo, "slot-a", "user-x", model.SlotStatusLocked)
	addSlot(slotRepo, "slot-b", "user-y", model.SlotStatusLocked)
	swapRepo.Create(context.Background(), &model.SwapRequest{
		RequesterID: "user-x", ResponderID: "user-y",
		MySlotID: "slot-a", TheirSlotID: "slot-b",
		Status: model.SwapStatusPending,
	})

	err := svc.Delete(context.Background(), "slot-a", "user-x")
	if !errors.Is(err, ErrSlotReferenced) {
		t.Errorf("期望 ErrSlotReferenced，实际: %v", err)
	}
	if _, ok := slotRepo.slots["slot-a"]; !ok {
		t.Error("删除失败时时段应保留")
	}
}

func TestSlotService_Delete_AfterResolvedSwap(t *testing.T) {
	svc, slotRepo, swapRepo := setupTestSlotService()
	addSlot(slotRepo, "slot-a", "user-x", model.SlotStatusSwappable)
	addSlot(slotRepo, "slot-b", "user-y", model.SlotStatusSwappable)
	// 终态申请是审计记录，不应阻止时段删除
	swapRepo.Create(context.Background(), &model.SwapRequest{
		RequesterID: "user-x", ResponderID: "user-y",
		MySlotID: "slot-a", TheirSlotID: "slot-b",
		Status: model.SwapStatusRejected,
	})

	if err := svc.Delete(context.Background(), "slot-a", "user-x"); err != nil {
		t.Fatalf("仅被终态申请引用的时段应可删除: %v", err)
	}
	if _, ok := slotRepo.slots["slot-a"]; ok {
		t.Error("时段应已删除")
	}
}

func TestSlotService_Delete_Success(t *testing.T) {
	svc, slotRepo, _ := setupTestSlotService()
	addSlot(slotRepo, "slot-a", "user-x", model.SlotStatusBusy)

	if err := svc.Delete(context.Background(), "slot-a", "user-x"); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if _, ok := slotRepo.slots["slot-a"]; ok {
		t.Error("时段应已删除")
	}
}

func TestSlotService_Delete_NotFound(t *testing.T) {
	svc, _, _ := setupTestSlotService()

	err := svc.Delete(context.Background(), "nonexistent", "user-x")
	if !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("期望 ErrSlotNotFound，实际: %v", err)
	}
}

func TestSlotService_ListSwappableExcluding(t *testing.T) {
	svc, slotRepo, _ := setupTestSlotService()
	addSlot(slotRepo, "slot-a", "user-x", model.SlotStatusSwappable)
	addSlot(slotRepo, "slot-b", "user-y", model.SlotStatusSwappable)
	addSlot(slotRepo, "slot-c", "user-y", model.SlotStatusBusy)
	addSlot(slotRepo, "slot-d", "user-z", model.SlotStatusLocked)

	result, err := svc.ListSwappableExcluding(context.Background(), "user-x")
	if err != nil {
		t.Fatalf("ListSwappableExcluding 应成功: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("市场应只展示他人的 SWAPPABLE 时段，期望 1 条，实际=%d", len(result))
	}
	if result[0].ID != "slot-b" {
		t.Errorf("期望 slot-b，实际=%s", result[0].ID)
	}
}

func TestSlotService_ListByOwner(t *testing.T) {
	svc, slotRepo, _ := setupTestSlotService()
	late := addSlot(slotRepo, "slot-a", "user-x", model.SlotStatusBusy)
	late.StartTime = late.StartTime.Add(2 * time.Hour)
	addSlot(slotRepo, "slot-b", "user-x", model.SlotStatusSwappable)
	addSlot(slotRepo, "slot-c", "user-y", model.SlotStatusBusy)

	result, err := svc.ListByOwner(context.Background(), "user-x")
	if err != nil {
		t.Fatalf("ListByOwner 应成功: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("期望 2 条，实际=%d", len(result))
	}
	// 按开始时间升序
	if result[0].ID != "slot-b" || result[1].ID != "slot-a" {
		t.Errorf("应按开始时间升序，实际=[%s %s]", result[0].ID, result[1].ID)
	}
}
