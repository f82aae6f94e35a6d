package service

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"remidi/backend/internal/dto"
	"remidi/backend/internal/model"
	"remidi/backend/internal/repository"
	pkgerrors "remidi/backend/pkg/errors"
)

// ── 通知模块业务错误 ──

var (
	ErrInvalidNotificationType = errors.New("通知类别无效")
	ErrNotificationTitleEmpty  = errors.New("通知标题不能为空")
)

// defaultTimeLabel 通知的默认展示时间标签
const defaultTimeLabel = "now"

// notifyTimeout 单个下游订阅方的最长通知耗时
const notifyTimeout = 3 * time.Second

// NotificationService 通知业务接口
//
// 通知只追加，不修改内容；已读标记只会从 false 变为 true。
// 未读数始终由存储实时统计，不做缓存。
type NotificationService interface {
	// Append 追加一条未读通知，时间戳取服务时钟
	Append(ctx context.Context, userID string, req *dto.CreateNotificationRequest) (*dto.NotificationResponse, error)
	// List 最新的在前
	List(ctx context.Context, userID string, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	// MarkRead 已读或不存在的 id 均视为成功
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	// ClearAll 删除该用户全部通知
	ClearAll(ctx context.Context, userID string) (int64, error)
}

type notificationService struct {
	repo      *repository.Repository
	clock     clockwork.Clock
	notifiers []NotificationNotifier
	logger    *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(
	repo *repository.Repository,
	clk clockwork.Clock,
	logger *zap.Logger,
	notifiers ...NotificationNotifier,
) NotificationService {
	return &notificationService{
		repo:      repo,
		clock:     clk,
		notifiers: notifiers,
		logger:    logger,
	}
}

// ────────────────────── Append ──────────────────────

func (s *notificationService) Append(ctx context.Context, userID string, req *dto.CreateNotificationRequest) (*dto.NotificationResponse, error) {
	if userID == "" {
		return nil, pkgerrors.ErrUnauthenticated
	}

	nt := model.NotificationType(req.Type)
	if !nt.Valid() {
		return nil, ErrInvalidNotificationType
	}
	if req.Title == "" {
		return nil, ErrNotificationTitleEmpty
	}

	label := req.Time
	if label == "" {
		label = defaultTimeLabel
	}

	n := &model.Notification{
		UserID:     userID,
		Type:       nt,
		Title:      req.Title,
		Subtitle:   req.Subtitle,
		TimeLabel:  label,
		IsRead:     false,
		Color:      req.Color,
		Icon:       req.Icon,
		ReminderID: req.ReminderID,
		CreatedAt:  s.clock.Now(),
	}

	if err := s.repo.Notification.Create(ctx, n); err != nil {
		s.logger.Error("追加通知失败", zap.String("user_id", userID), zap.Error(err))
		return nil, pkgerrors.Persistence("追加通知", err)
	}

	resp := toNotificationResponse(n)
	s.publish(ctx, userID, dto.NotificationEventCreated, resp)
	return resp, nil
}

// ────────────────────── List ──────────────────────

func (s *notificationService) List(ctx context.Context, userID string, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error) {
	if userID == "" {
		return nil, 0, pkgerrors.ErrUnauthenticated
	}

	items, total, err := s.repo.Notification.ListByUser(ctx, userID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出通知失败", zap.String("user_id", userID), zap.Error(err))
		return nil, 0, pkgerrors.Persistence("列出通知", err)
	}

	result := make([]dto.NotificationResponse, 0, len(items))
	for i := range items {
		result = append(result, *toNotificationResponse(&items[i]))
	}
	return result, total, nil
}

// ────────────────────── UnreadCount ──────────────────────

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, pkgerrors.ErrUnauthenticated
	}

	count, err := s.repo.Notification.CountUnread(ctx, userID)
	if err != nil {
		s.logger.Error("统计未读通知失败", zap.String("user_id", userID), zap.Error(err))
		return 0, pkgerrors.Persistence("统计未读通知", err)
	}
	return count, nil
}

// ────────────────────── MarkRead ──────────────────────

func (s *notificationService) MarkRead(ctx context.Context, userID, id string) error {
	if userID == "" {
		return pkgerrors.ErrUnauthenticated
	}
	if !validID(id) {
		return nil
	}

	affected, err := s.repo.Notification.MarkRead(ctx, userID, id)
	if err != nil {
		s.logger.Error("标记通知已读失败", zap.String("id", id), zap.Error(err))
		return pkgerrors.Persistence("标记通知已读", err)
	}
	if affected > 0 {
		s.publish(ctx, userID, dto.NotificationEventUnread, nil)
	}
	return nil
}

// ────────────────────── MarkAllRead ──────────────────────

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, pkgerrors.ErrUnauthenticated
	}

	affected, err := s.repo.Notification.MarkAllRead(ctx, userID)
	if err != nil {
		s.logger.Error("全部标记已读失败", zap.String("user_id", userID), zap.Error(err))
		return 0, pkgerrors.Persistence("全部标记已读", err)
	}
	if affected > 0 {
		s.publish(ctx, userID, dto.NotificationEventUnread, nil)
	}
	return affected, nil
}

// ────────────────────── ClearAll ──────────────────────

func (s *notificationService) ClearAll(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, pkgerrors.ErrUnauthenticated
	}

	deleted, err := s.repo.Notification.DeleteAll(ctx, userID)
	if err != nil {
		s.logger.Error("清空通知失败", zap.String("user_id", userID), zap.Error(err))
		return 0, pkgerrors.Persistence("清空通知", err)
	}
	if deleted > 0 {
		s.publish(ctx, userID, dto.NotificationEventUnread, nil)
	}
	return deleted, nil
}

// ── 内部辅助方法 ──

// publish 通知下游订阅方；任何失败都只记录日志
func (s *notificationService) publish(ctx context.Context, userID, kind string, n *dto.NotificationResponse) {
	if len(s.notifiers) == 0 {
		return
	}

	unread, err := s.repo.Notification.CountUnread(ctx, userID)
	if err != nil {
		s.logger.Warn("统计未读通知失败，跳过推送", zap.String("user_id", userID), zap.Error(err))
		return
	}

	evt := &dto.NotificationEvent{
		Kind:         kind,
		UserID:       userID,
		Notification: n,
		UnreadCount:  unread,
		At:           formatTime(s.clock.Now()),
	}

	for _, notifier := range s.notifiers {
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		if err := notifier.Notify(nctx, evt); err != nil {
			s.logger.Warn("通知下游推送失败",
				zap.String("user_id", userID),
				zap.String("kind", kind),
				zap.Error(err),
			)
		}
		cancel()
	}
}

func toNotificationResponse(n *model.Notification) *dto.NotificationResponse {
	return &dto.NotificationResponse{
		ID:         n.NotificationID,
		Type:       string(n.Type),
		Title:      n.Title,
		Subtitle:   n.Subtitle,
		Time:       n.TimeLabel,
		Timestamp:  formatTime(n.CreatedAt),
		Read:       n.IsRead,
		Color:      n.Color,
		Icon:       n.Icon,
		ReminderID: n.ReminderID,
	}
}
