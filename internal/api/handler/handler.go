package handler

import "slot-swapper/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth   *AuthHandler
	Event  *EventHandler
	Swap   *SwapHandler
	Export *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:   NewAuthHandler(svc.Auth),
		Event:  NewEventHandler(svc.Slot),
		Swap:   NewSwapHandler(svc.Swap, svc.Slot),
		Export: NewExportHandler(svc.Export),
	}
}
