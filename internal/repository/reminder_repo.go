package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"remidi/backend/internal/model"
)

// ReminderRepository 提醒数据访问接口
type ReminderRepository interface {
	Create(ctx context.Context, reminder *model.Reminder) error
	GetByID(ctx context.Context, userID, id string) (*model.Reminder, error)
	// ListByUser 按 reminder_time 升序返回该用户的全部提醒
	ListByUser(ctx context.Context, userID string) ([]model.Reminder, error)
	Update(ctx context.Context, reminder *model.Reminder) error
	Delete(ctx context.Context, userID, id string) (int64, error)
	// UpdateLastTriggered 只写 last_triggered_at 与 updated_at；记录不存在时返回 gorm.ErrRecordNotFound
	UpdateLastTriggered(ctx context.Context, userID, id string, at time.Time) error
}

type reminderRepo struct {
	db *gorm.DB
}

// NewReminderRepo 创建 ReminderRepository 实例
func NewReminderRepo(db *gorm.DB) ReminderRepository {
	return &reminderRepo{db: db}
}

func (r *reminderRepo) Create(ctx context.Context, reminder *model.Reminder) error {
	return r.db.WithContext(ctx).Create(reminder).Error
}

func (r *reminderRepo) GetByID(ctx context.Context, userID, id string) (*model.Reminder, error) {
	var reminder model.Reminder
	err := r.db.WithContext(ctx).
		Where("reminder_id = ? AND user_id = ?", id, userID).
		First(&reminder).Error
	if err != nil {
		return nil, err
	}
	return &reminder, nil
}

func (r *reminderRepo) ListByUser(ctx context.Context, userID string) ([]model.Reminder, error) {
	var reminders []model.Reminder
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("reminder_time ASC, created_at ASC").
		Find(&reminders).Error
	return reminders, err
}

// Update 覆盖写全部可变字段；记录已被删除时返回 gorm.ErrRecordNotFound（不会像 Save 那样重新插入）
// last_triggered_at 只由 UpdateLastTriggered 写入，避免覆盖并发 tick 的记账
func (r *reminderRepo) Update(ctx context.Context, reminder *model.Reminder) error {
	result := r.db.WithContext(ctx).
		Model(reminder).
		Where("user_id = ?", reminder.UserID).
		Select("*").
		Omit("reminder_id", "user_id", "created_at", "last_triggered_at").
		Updates(reminder)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *reminderRepo) Delete(ctx context.Context, userID, id string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("reminder_id = ? AND user_id = ?", id, userID).
		Delete(&model.Reminder{})
	return result.RowsAffected, result.Error
}

func (r *reminderRepo) UpdateLastTriggered(ctx context.Context, userID, id string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.Reminder{}).
		Where("reminder_id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{
			"last_triggered_at": at,
			"updated_at":        at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
