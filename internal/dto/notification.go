package dto

// ── 通知模块 DTO ──

// CreateNotificationRequest 追加通知请求
// Time 为展示用标签，缺省为 "now"；Color / Icon 由调用方决定
type CreateNotificationRequest struct {
	Type       string  `json:"type"     binding:"required,oneof=task reminder medicine reward contact goal"`
	Title      string  `json:"title"    binding:"required,min=1,max=200"`
	Subtitle   *string `json:"subtitle" binding:"omitempty,max=2000"`
	Time       string  `json:"time"     binding:"omitempty,max=50"`
	Color      string  `json:"color"    binding:"omitempty,max=100"`
	Icon       string  `json:"icon"     binding:"omitempty,max=20"`
	ReminderID *string `json:"-"` // 仅调度器写入
}

// NotificationListRequest 通知列表查询参数
type NotificationListRequest struct {
	PaginationRequest
}

// NotificationResponse 通知信息响应
type NotificationResponse struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	Title      string  `json:"title"`
	Subtitle   *string `json:"subtitle,omitempty"`
	Time       string  `json:"time"`
	Timestamp  string  `json:"timestamp"`
	Read       bool    `json:"read"`
	Color      string  `json:"color"`
	Icon       string  `json:"icon"`
	ReminderID *string `json:"reminder_id,omitempty"`
}

// UnreadCountResponse 未读数响应
type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

// MarkAllReadResponse 全部已读响应
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

// ClearNotificationsResponse 清空通知响应
type ClearNotificationsResponse struct {
	Deleted int64 `json:"deleted"`
}

// ── 通知事件（推送 / 消息队列） ──

const (
	NotificationEventCreated = "notification.created"
	NotificationEventUnread  = "notification.unread"
)

// NotificationEvent 通知变更事件
// Created 事件携带新通知；Unread 事件只携带最新未读数
type NotificationEvent struct {
	Kind         string                `json:"kind"`
	UserID       string                `json:"user_id"`
	Notification *NotificationResponse `json:"notification,omitempty"`
	UnreadCount  int64                 `json:"unread_count"`
	At           string                `json:"at"`
}
