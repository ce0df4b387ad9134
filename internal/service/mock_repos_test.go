package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"slot-swapper/backend/internal/model"
	pkgerrors "slot-swapper/backend/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
	seq   int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		m.seq++
		user.UserID = fmt.Sprintf("user-%d", m.seq)
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock SlotRepository ──

type mockSlotRepo struct {
	slots map[string]*model.Slot
	seq   int
}

func newMockSlotRepo() *mockSlotRepo {
	return &mockSlotRepo{slots: make(map[string]*model.Slot)}
}

func (m *mockSlotRepo) Create(_ context.Context, slot *model.Slot) error {
	if slot.SlotID == "" {
		m.seq++
		slot.SlotID = fmt.Sprintf("slot-%03d", m.seq)
	}
	slot.CreatedAt = time.Now()
	slot.UpdatedAt = time.Now()
	slot.Version = 1
	m.slots[slot.SlotID] = slot
	return nil
}

func (m *mockSlotRepo) GetByID(_ context.Context, id string) (*model.Slot, error) {
	if s, ok := m.slots[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSlotRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Slot, error) {
	return m.GetByID(ctx, id)
}

func (m *mockSlotRepo) ListByOwner(_ context.Context, ownerID string) ([]model.Slot, error) {
	var result []model.Slot
	for _, s := range m.slots {
		if s.OwnerID == ownerID {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.Before(result[j].StartTime)
	})
	return result, nil
}

func (m *mockSlotRepo) ListSwappableExcluding(_ context.Context, ownerID string) ([]model.Slot, error) {
	var result []model.Slot
	for _, s := range m.slots {
		if s.Status == model.SlotStatusSwappable && s.OwnerID != ownerID {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.Before(result[j].StartTime)
	})
	return result, nil
}

func (m *mockSlotRepo) Update(_ context.Context, slot *model.Slot) error {
	stored, ok := m.slots[slot.SlotID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if stored.Version != slot.Version {
		return pkgerrors.ErrOptimisticLock
	}
	copied := *slot
	copied.Version++
	copied.UpdatedAt = time.Now()
	m.slots[slot.SlotID] = &copied
	slot.Version = copied.Version
	return nil
}

func (m *mockSlotRepo) SetStatus(_ context.Context, id string, status string) error {
	s, ok := m.slots[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.Status = status
	s.Version++
	s.UpdatedAt = time.Now()
	return nil
}

func (m *mockSlotRepo) SetOwnerAndStatus(_ context.Context, id string, ownerID string, status string) error {
	s, ok := m.slots[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.OwnerID = ownerID
	s.Status = status
	s.Version++
	s.UpdatedAt = time.Now()
	return nil
}

func (m *mockSlotRepo) Delete(_ context.Context, id string) error {
	delete(m.slots, id)
	return nil
}

// ── Mock SwapRequestRepository ──

type mockSwapRepo struct {
	swaps map[string]*model.SwapRequest
	order []string // 插入顺序，列表按最新在前返回
	seq   int
}

func newMockSwapRepo() *mockSwapRepo {
	return &mockSwapRepo{swaps: make(map[string]*model.SwapRequest)}
}

func (m *mockSwapRepo) Create(_ context.Context, req *model.SwapRequest) error {
	if req.SwapRequestID == "" {
		m.seq++
		req.SwapRequestID = fmt.Sprintf("swap-%03d", m.seq)
	}
	req.CreatedAt = time.Now()
	req.UpdatedAt = time.Now()
	req.Version = 1
	m.swaps[req.SwapRequestID] = req
	m.order = append(m.order, req.SwapRequestID)
	return nil
}

func (m *mockSwapRepo) GetByID(_ context.Context, id string) (*model.SwapRequest, error) {
	if r, ok := m.swaps[id]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSwapRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.SwapRequest, error) {
	return m.GetByID(ctx, id)
}

func (m *mockSwapRepo) ListByRequester(_ context.Context, requesterID string) ([]model.SwapRequest, error) {
	var result []model.SwapRequest
	for i := len(m.order) - 1; i >= 0; i-- {
		r := m.swaps[m.order[i]]
		if r.RequesterID == requesterID {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockSwapRepo) ListByResponder(_ context.Context, responderID string) ([]model.SwapRequest, error) {
	var result []model.SwapRequest
	for i := len(m.order) - 1; i >= 0; i-- {
		r := m.swaps[m.order[i]]
		if r.ResponderID == responderID {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockSwapRepo) ListPendingBySlot(_ context.Context, slotID string) ([]model.SwapRequest, error) {
	var result []model.SwapRequest
	for _, id := range m.order {
		r := m.swaps[id]
		if r.Status == model.SwapStatusPending && (r.MySlotID == slotID || r.TheirSlotID == slotID) {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockSwapRepo) HasPendingBySlot(ctx context.Context, slotID string) (bool, error) {
	pendings, _ := m.ListPendingBySlot(ctx, slotID)
	return len(pendings) > 0, nil
}

func (m *mockSwapRepo) SetStatus(_ context.Context, id string, status string) error {
	r, ok := m.swaps[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	// 与真实仓库一致：终态申请不可变更
	if r.Status != model.SwapStatusPending {
		return pkgerrors.ErrOptimisticLock
	}
	r.Status = status
	r.Version++
	r.UpdatedAt = time.Now()
	return nil
}
