package handler

import (
	"go.uber.org/zap"

	"remidi/backend/internal/service"
	"remidi/backend/pkg/ws"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	Reminder     *ReminderHandler
	Notification *NotificationHandler
	Activity     *ActivityHandler
	WS           *WSHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, hub *ws.Hub, logger *zap.Logger) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		Reminder:     NewReminderHandler(svc.Reminder, svc.Calendar),
		Notification: NewNotificationHandler(svc.Notification),
		Activity:     NewActivityHandler(svc.Activity, svc.HistoryExport),
		WS:           NewWSHandler(hub, logger),
	}
}
