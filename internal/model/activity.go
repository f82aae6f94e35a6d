package model

import "time"

// ActivityType 活动类别
type ActivityType string

const (
	ActivityTypeMedicine ActivityType = "medicine"
	ActivityTypeGoal     ActivityType = "goal"
	ActivityTypeTask     ActivityType = "task"
	ActivityTypeReward   ActivityType = "reward"
)

// ActivityStatus 活动完成状态
type ActivityStatus string

const (
	ActivityStatusCompleted ActivityStatus = "completed"
	ActivityStatusMissed    ActivityStatus = "missed"
	ActivityStatusPending   ActivityStatus = "pending"
)

// Activity 活动记录表，对应 activities（历史页与积分统计的数据来源）
type Activity struct {
	ActivityID  string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"activity_id"`
	UserID      string         `gorm:"type:uuid;not null"                             json:"user_id"`
	Type        ActivityType   `gorm:"type:varchar(20);not null"                      json:"type"`
	Title       string         `gorm:"type:varchar(200);not null"                     json:"title"`
	Description *string        `gorm:"type:text"                                      json:"description,omitempty"`
	Status      ActivityStatus `gorm:"type:varchar(20);not null"                      json:"status"`
	OccurredAt  time.Time      `gorm:"not null"                                       json:"date"`
	Points      int            `gorm:"not null;default:0"                             json:"points"`
	CreatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (Activity) TableName() string { return "activities" }
