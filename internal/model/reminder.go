package model

import "time"

// ReminderType 提醒类别，决定下游通知类别与展示样式
type ReminderType string

const (
	ReminderTypeMedication ReminderType = "medication"
	ReminderTypeTask       ReminderType = "task"
	ReminderTypeGoal       ReminderType = "goal"
	ReminderTypeCustom     ReminderType = "custom"
)

// Valid 是否为受支持的提醒类别
func (t ReminderType) Valid() bool {
	switch t {
	case ReminderTypeMedication, ReminderTypeTask, ReminderTypeGoal, ReminderTypeCustom:
		return true
	}
	return false
}

// NotificationType 提醒触发后生成的通知类别：用药 → medicine，其余 → reminder
func (t ReminderType) NotificationType() NotificationType {
	switch t {
	case ReminderTypeMedication:
		return NotificationTypeMedicine
	case ReminderTypeTask, ReminderTypeGoal, ReminderTypeCustom:
		return NotificationTypeReminder
	}
	return NotificationTypeReminder
}

// Reminder 提醒表，对应 reminders
//
// RelatedID 仅为弱引用（用药/任务/目标的 ID），提醒不负责被引用实体的生命周期。
// ReminderTime 只有时分参与到期判断，日期与时区被忽略。
type Reminder struct {
	ReminderID        string       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"reminder_id"`
	UserID            string       `gorm:"type:uuid;not null"                             json:"user_id"`
	ReminderType      ReminderType `gorm:"type:varchar(20);not null"                      json:"reminder_type"`
	RelatedID         *string      `gorm:"type:uuid"                                      json:"related_id,omitempty"`
	Title             string       `gorm:"type:varchar(200);not null"                     json:"title"`
	Description       string       `gorm:"type:text;not null;default:''"                  json:"description"`
	ReminderTime      time.Time    `gorm:"not null"                                       json:"reminder_time"`
	IsRecurring       bool         `gorm:"not null;default:false"                         json:"is_recurring"`
	RecurrencePattern *string      `gorm:"type:varchar(100)"                              json:"recurrence_pattern,omitempty"`
	IsActive          bool         `gorm:"not null"                                       json:"is_active"`
	LastTriggeredAt   *time.Time   `json:"last_triggered_at,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Reminder) TableName() string { return "reminders" }
