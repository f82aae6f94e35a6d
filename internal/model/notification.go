package model

import "time"

// NotificationType 通知类别
type NotificationType string

const (
	NotificationTypeTask     NotificationType = "task"
	NotificationTypeReminder NotificationType = "reminder"
	NotificationTypeMedicine NotificationType = "medicine"
	NotificationTypeReward   NotificationType = "reward"
	NotificationTypeContact  NotificationType = "contact"
	NotificationTypeGoal     NotificationType = "goal"
)

// Valid 是否为受支持的通知类别
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTypeTask, NotificationTypeReminder, NotificationTypeMedicine,
		NotificationTypeReward, NotificationTypeContact, NotificationTypeGoal:
		return true
	}
	return false
}

// Notification 站内通知表，对应 notifications
//
// 通知只会新增；已读标记只能从 false 变为 true，清空操作直接物理删除。
// Color / Icon 为展示提示，由发出通知的一方决定。
type Notification struct {
	NotificationID string           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"notification_id"`
	UserID         string           `gorm:"type:uuid;not null"                             json:"user_id"`
	Type           NotificationType `gorm:"type:varchar(20);not null"                      json:"type"`
	Title          string           `gorm:"type:varchar(200);not null"                     json:"title"`
	Subtitle       *string          `gorm:"type:text"                                      json:"subtitle,omitempty"`
	TimeLabel      string           `gorm:"type:varchar(50);not null;default:'now'"        json:"time"`
	IsRead         bool             `gorm:"not null;default:false"                         json:"read"`
	Color          string           `gorm:"type:varchar(100);not null;default:''"          json:"color"`
	Icon           string           `gorm:"type:varchar(20);not null;default:''"           json:"icon"`
	ReminderID     *string          `gorm:"type:uuid"                                      json:"reminder_id,omitempty"`
	CreatedAt      time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"timestamp"`
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }
