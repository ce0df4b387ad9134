package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"slot-swapper/backend/config"
	"slot-swapper/backend/internal/api/handler"
	"slot-swapper/backend/internal/api/middleware"
	"slot-swapper/backend/pkg/jwt"
	"slot-swapper/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(1 << 20)) // 1MB

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证；登录注册接口限流防爆破）
		auth := v1.Group("/auth")
		auth.Use(middleware.RateLimit(rdb, 20, time.Minute))
		{
			auth.POST("/signup", h.Auth.Signup)
			auth.POST("/login", h.Auth.Login)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)

			// 日历时段模块
			events := authorized.Group("/events")
			{
				events.GET("", h.Event.ListEvents)
				events.GET("/:id", h.Event.GetEvent)
				events.POST("", h.Event.CreateEvent)
				events.PUT("/:id", h.Event.UpdateEvent)
				events.DELETE("/:id", h.Event.DeleteEvent)
			}

			// 交换模块
			swaps := authorized.Group("/swaps")
			{
				swaps.GET("/swappable-slots", h.Swap.ListSwappableSlots)
				swaps.POST("/swap-request", h.Swap.CreateSwapRequest)
				swaps.GET("/incoming", h.Swap.ListIncoming)
				swaps.GET("/outgoing", h.Swap.ListOutgoing)
				swaps.POST("/swap-response/:id", h.Swap.RespondToSwap)
				swaps.POST("/cancel/:id", h.Swap.CancelSwap)
				swaps.GET("/:id", h.Swap.GetSwap)
			}

			// 导出模块
			export := authorized.Group("/export")
			{
				export.GET("/events.xlsx", h.Export.ExportEventsXLSX)
				export.GET("/events.ics", h.Export.ExportEventsICS)
			}
		}
	}

	return r
}
