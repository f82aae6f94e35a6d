package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"remidi/backend/internal/model"
)

// ActivityRepository 活动记录数据访问接口
type ActivityRepository interface {
	Create(ctx context.Context, a *model.Activity) error
	// ListByUser since 为 nil 时返回全部记录，按发生时间倒序
	ListByUser(ctx context.Context, userID string, since *time.Time) ([]model.Activity, error)
	SumPoints(ctx context.Context, userID string) (int64, error)
}

type activityRepo struct {
	db *gorm.DB
}

// NewActivityRepo 创建 ActivityRepository 实例
func NewActivityRepo(db *gorm.DB) ActivityRepository {
	return &activityRepo{db: db}
}

func (r *activityRepo) Create(ctx context.Context, a *model.Activity) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *activityRepo) ListByUser(ctx context.Context, userID string, since *time.Time) ([]model.Activity, error) {
	var items []model.Activity
	db := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if since != nil {
		db = db.Where("occurred_at >= ?", *since)
	}
	err := db.Order("occurred_at DESC").Find(&items).Error
	return items, err
}

func (r *activityRepo) SumPoints(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.Activity{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error
	return total, err
}
