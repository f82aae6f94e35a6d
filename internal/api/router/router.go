package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"remidi/backend/config"
	"remidi/backend/internal/api/handler"
	"remidi/backend/internal/api/middleware"
)

// maxBodyBytes 请求体上限
const maxBodyBytes = 1 << 20

// Deps 路由需要的外部依赖，均可为 nil
type Deps struct {
	Auth    *middleware.Authenticator
	Limiter middleware.RateLimiter
	// Health 返回 nil 表示依赖正常
	Health func() error
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, deps Deps, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders(!strings.HasPrefix(cfg.Server.BaseURL, "https://")))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		if deps.Health != nil {
			if err := deps.Health(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", middleware.RateLimit(deps.Limiter, cfg.RateLimit.LoginLimit, cfg.RateLimit.LoginWindow, logger), h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 实时通知（浏览器 WebSocket 无法携带认证头）
		v1.GET("/ws", deps.Auth.QueryTokenAuth(), h.WS.Connect)

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(deps.Auth.JWTAuth())
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)

			// 提醒模块
			reminders := authorized.Group("/reminders")
			{
				reminders.GET("", h.Reminder.ListReminders)
				reminders.POST("", h.Reminder.CreateReminder)
				reminders.GET("/calendar.ics", h.Reminder.ExportCalendar)
				reminders.GET("/:id", h.Reminder.GetReminder)
				reminders.PUT("/:id", h.Reminder.UpdateReminder)
				reminders.DELETE("/:id", h.Reminder.DeleteReminder)
				reminders.POST("/:id/toggle", h.Reminder.ToggleReminder)
			}

			// 通知模块
			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.ListNotifications)
				notifications.POST("", h.Notification.CreateNotification)
				notifications.DELETE("", h.Notification.ClearNotifications)
				notifications.GET("/unread-count", h.Notification.UnreadCount)
				notifications.POST("/read-all", h.Notification.MarkAllRead)
				notifications.POST("/:id/read", h.Notification.MarkRead)
			}

			// 活动记录模块
			activities := authorized.Group("/activities")
			{
				activities.GET("", h.Activity.ListActivities)
				activities.POST("", h.Activity.CreateActivity)
				activities.GET("/summary", h.Activity.Summary)
				activities.GET("/export", h.Activity.ExportActivities)
			}
		}
	}

	return r
}
