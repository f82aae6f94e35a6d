package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"remidi/backend/internal/dto"
	"remidi/backend/internal/model"
	"remidi/backend/internal/repository"
	pkgerrors "remidi/backend/pkg/errors"
)

// ── 活动模块业务错误 ──

var (
	ErrInvalidActivityType   = errors.New("活动类别无效")
	ErrInvalidActivityStatus = errors.New("活动状态无效")
	ErrInvalidActivityDate   = errors.New("活动时间格式无效，应为 RFC 3339")
)

// SummaryWindowDays 完成率统计窗口
const SummaryWindowDays = 7

// ActivityService 活动记录与历史统计业务接口
type ActivityService interface {
	Add(ctx context.Context, userID string, req *dto.CreateActivityRequest) (*dto.ActivityResponse, error)
	// List days 为 0 时返回全部记录
	List(ctx context.Context, userID string, days int) ([]dto.ActivityResponse, error)
	// Summary 最近 7 天的完成率，以及全部记录的积分合计
	Summary(ctx context.Context, userID string) (*dto.ActivitySummaryResponse, error)
}

type activityService struct {
	repo   *repository.Repository
	clock  clockwork.Clock
	logger *zap.Logger
}

// NewActivityService 创建 ActivityService 实例
func NewActivityService(repo *repository.Repository, clk clockwork.Clock, logger *zap.Logger) ActivityService {
	return &activityService{repo: repo, clock: clk, logger: logger}
}

// ────────────────────── Add ──────────────────────

func (s *activityService) Add(ctx context.Context, userID string, req *dto.CreateActivityRequest) (*dto.ActivityResponse, error) {
	if userID == "" {
		return nil, pkgerrors.ErrUnauthenticated
	}

	at := model.ActivityType(req.Type)
	switch at {
	case model.ActivityTypeMedicine, model.ActivityTypeGoal, model.ActivityTypeTask, model.ActivityTypeReward:
	default:
		return nil, ErrInvalidActivityType
	}

	status := model.ActivityStatus(req.Status)
	switch status {
	case model.ActivityStatusCompleted, model.ActivityStatusMissed, model.ActivityStatusPending:
	default:
		return nil, ErrInvalidActivityStatus
	}

	now := s.clock.Now()
	occurred := now
	if req.Date != "" {
		t, err := time.Parse(time.RFC3339, req.Date)
		if err != nil {
			return nil, ErrInvalidActivityDate
		}
		occurred = t
	}

	a := &model.Activity{
		UserID:      userID,
		Type:        at,
		Title:       req.Title,
		Description: req.Description,
		Status:      status,
		OccurredAt:  occurred,
		Points:      req.Points,
		CreatedAt:   now,
	}

	if err := s.repo.Activity.Create(ctx, a); err != nil {
		s.logger.Error("记录活动失败", zap.String("user_id", userID), zap.Error(err))
		return nil, pkgerrors.Persistence("记录活动", err)
	}

	return toActivityResponse(a), nil
}

// ────────────────────── List ──────────────────────

func (s *activityService) List(ctx context.Context, userID string, days int) ([]dto.ActivityResponse, error) {
	items, err := s.load(ctx, userID, days)
	if err != nil {
		return nil, err
	}

	result := make([]dto.ActivityResponse, 0, len(items))
	for i := range items {
		result = append(result, *toActivityResponse(&items[i]))
	}
	return result, nil
}

// ────────────────────── Summary ──────────────────────

func (s *activityService) Summary(ctx context.Context, userID string) (*dto.ActivitySummaryResponse, error) {
	recent, err := s.load(ctx, userID, SummaryWindowDays)
	if err != nil {
		return nil, err
	}

	total, err := s.repo.Activity.SumPoints(ctx, userID)
	if err != nil {
		s.logger.Error("统计积分失败", zap.String("user_id", userID), zap.Error(err))
		return nil, pkgerrors.Persistence("统计积分", err)
	}

	summary := summarize(recent)
	summary.TotalPoints = total
	return summary, nil
}

// ── 内部辅助方法 ──

func (s *activityService) load(ctx context.Context, userID string, days int) ([]model.Activity, error) {
	if userID == "" {
		return nil, pkgerrors.ErrUnauthenticated
	}

	var since *time.Time
	if days > 0 {
		t := s.clock.Now().AddDate(0, 0, -days)
		since = &t
	}

	items, err := s.repo.Activity.ListByUser(ctx, userID, since)
	if err != nil {
		s.logger.Error("列出活动失败", zap.String("user_id", userID), zap.Error(err))
		return nil, pkgerrors.Persistence("列出活动", err)
	}
	return items, nil
}

// summarize 完成率 = round(completed / total * 100)，无记录时为 0
func summarize(items []model.Activity) *dto.ActivitySummaryResponse {
	sum := &dto.ActivitySummaryResponse{WindowDays: SummaryWindowDays}
	for _, a := range items {
		switch a.Status {
		case model.ActivityStatusCompleted:
			sum.Completed++
		case model.ActivityStatusMissed:
			sum.Missed++
		case model.ActivityStatusPending:
			sum.Pending++
		}
	}
	if len(items) > 0 {
		sum.CompletionRate = int(math.Round(float64(sum.Completed) / float64(len(items)) * 100))
	}
	return sum
}

func toActivityResponse(a *model.Activity) *dto.ActivityResponse {
	return &dto.ActivityResponse{
		ID:          a.ActivityID,
		Type:        string(a.Type),
		Title:       a.Title,
		Description: a.Description,
		Status:      string(a.Status),
		Date:        formatTime(a.OccurredAt),
		Points:      a.Points,
	}
}
