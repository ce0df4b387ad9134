package service

import (
	"go.uber.org/zap"

	"slot-swapper/backend/internal/repository"
	"slot-swapper/backend/pkg/jwt"
	"slot-swapper/backend/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth   AuthService
	Slot   SlotService
	Swap   SwapService
	Export ExportService
}

// NewService 创建 Service 聚合
func NewService(
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	return &Service{
		Auth:   NewAuthService(repo, jwtMgr, rdb, logger),
		Slot:   NewSlotService(repo, logger),
		Swap:   NewSwapService(repo, logger),
		Export: NewExportService(repo, logger),
	}
}
