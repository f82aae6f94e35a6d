package dto

// ── 提醒模块 DTO ──

// CreateReminderRequest 创建提醒请求
// ReminderTime 接受 RFC 3339 时间戳或 "HH:MM"
type CreateReminderRequest struct {
	ReminderType      string  `json:"reminder_type"      binding:"required,oneof=medication task goal custom"`
	RelatedID         *string `json:"related_id"         binding:"omitempty,uuid"`
	Title             string  `json:"title"              binding:"required,min=1,max=200"`
	Description       string  `json:"description"        binding:"omitempty,max=2000"`
	ReminderTime      string  `json:"reminder_time"      binding:"required"`
	IsRecurring       bool    `json:"is_recurring"`
	RecurrencePattern *string `json:"recurrence_pattern" binding:"omitempty,max=100"`
	IsActive          *bool   `json:"is_active"` // 缺省为 true
}

// UpdateReminderRequest 更新提醒请求（部分字段合并）
type UpdateReminderRequest struct {
	ReminderType      *string `json:"reminder_type"      binding:"omitempty,oneof=medication task goal custom"`
	RelatedID         *string `json:"related_id"         binding:"omitempty,uuid"`
	Title             *string `json:"title"              binding:"omitempty,min=1,max=200"`
	Description       *string `json:"description"        binding:"omitempty,max=2000"`
	ReminderTime      *string `json:"reminder_time"`
	IsRecurring       *bool   `json:"is_recurring"`
	RecurrencePattern *string `json:"recurrence_pattern" binding:"omitempty,max=100"`
	IsActive          *bool   `json:"is_active"`
}

// ReminderResponse 提醒信息响应
type ReminderResponse struct {
	ID                string  `json:"id"`
	ReminderType      string  `json:"reminder_type"`
	RelatedID         *string `json:"related_id,omitempty"`
	Title             string  `json:"title"`
	Description       string  `json:"description"`
	ReminderTime      string  `json:"reminder_time"`
	IsRecurring       bool    `json:"is_recurring"`
	RecurrencePattern *string `json:"recurrence_pattern,omitempty"`
	IsActive          bool    `json:"is_active"`
	LastTriggeredAt   *string `json:"last_triggered_at,omitempty"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}
