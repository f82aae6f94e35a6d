package repository

import (
	"context"

	"gorm.io/gorm"

	"remidi/backend/internal/model"
)

// NotificationRepository 通知数据访问接口
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	// ListByUser 最新的在前
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]model.Notification, int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	// MarkRead 只更新未读记录，返回受影响行数
	MarkRead(ctx context.Context, userID, id string) (int64, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	// DeleteAll 物理删除该用户的全部通知
	DeleteAll(ctx context.Context, userID string) (int64, error)
}

type notificationRepo struct {
	db *gorm.DB
}

// NewNotificationRepo 创建 NotificationRepository 实例
func NewNotificationRepo(db *gorm.DB) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]model.Notification, int64, error) {
	var items []model.Notification
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Notification{}).Where("user_id = ?", userID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (r *notificationRepo) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *notificationRepo) MarkRead(ctx context.Context, userID, id string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("notification_id = ? AND user_id = ? AND is_read = ?", id, userID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

func (r *notificationRepo) DeleteAll(ctx context.Context, userID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.Notification{})
	return result.RowsAffected, result.Error
}
