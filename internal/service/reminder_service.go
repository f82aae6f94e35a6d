package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"remidi/backend/internal/dto"
	"remidi/backend/internal/model"
	"remidi/backend/internal/repository"
	pkgerrors "remidi/backend/pkg/errors"
)

// ── 提醒模块业务错误 ──

var (
	ErrReminderNotFound    = fmt.Errorf("提醒不存在: %w", pkgerrors.ErrNotFound)
	ErrInvalidReminderTime = errors.New("提醒时间格式无效，应为 RFC 3339 或 HH:MM")
	ErrInvalidReminderType = errors.New("提醒类别无效")
	ErrReminderTitleEmpty  = errors.New("提醒标题不能为空")
)

const reminderTimeOfDayLayout = "15:04"

// ReminderService 提醒业务接口
//
// 所有操作以调用方用户为作用域；userID 为空时返回 ErrUnauthenticated。
// Snapshot / MarkTriggered 供调度器使用，其余供 HTTP 层使用。
type ReminderService interface {
	Create(ctx context.Context, userID string, req *dto.CreateReminderRequest) (*dto.ReminderResponse, error)
	Get(ctx context.Context, userID, id string) (*dto.ReminderResponse, error)
	List(ctx context.Context, userID string) ([]dto.ReminderResponse, error)
	Update(ctx context.Context, userID, id string, req *dto.UpdateReminderRequest) (*dto.ReminderResponse, error)
	Delete(ctx context.Context, userID, id string) error
	Toggle(ctx context.Context, userID, id string) (*dto.ReminderResponse, error)

	// Snapshot 返回当前提醒列表的副本，按 reminder_time 升序
	Snapshot(ctx context.Context, userID string) ([]model.Reminder, error)
	// MarkTriggered 只写触发记账字段 last_triggered_at
	MarkTriggered(ctx context.Context, userID, id string, at time.Time) error
}

type reminderService struct {
	repo   *repository.Repository
	clock  clockwork.Clock
	logger *zap.Logger
}

// NewReminderService 创建 ReminderService 实例
func NewReminderService(repo *repository.Repository, clk clockwork.Clock, logger *zap.Logger) ReminderService {
	return &reminderService{repo: repo, clock: clk, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *reminderService) Create(ctx context.Context, userID string, req *dto.CreateReminderRequest) (*dto.ReminderResponse, error) {
	if userID == "" {
		return nil, pkgerrors.ErrUnauthenticated
	}

	rt := model.ReminderType(req.ReminderType)
	if !rt.Valid() {
		return nil, ErrInvalidReminderType
	}
	if req.Title == "" {
		return nil, ErrReminderTitleEmpty
	}

	now := s.clock.Now()
	at, err := parseReminderTime(req.ReminderTime, now)
	if err != nil {
		return nil, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	reminder := &model.Reminder{
		UserID:            userID,
		ReminderType:      rt,
		RelatedID:         req.RelatedID,
		Title:             req.Title,
		Description:       req.Description,
		ReminderTime:      at,
		IsRecurring:       req.IsRecurring,
		RecurrencePattern: req.RecurrencePattern,
		IsActive:          active,
	}
	reminder.CreatedAt = now
	reminder.UpdatedAt = now

	if err := s.repo.Reminder.Create(ctx, reminder); err != nil {
		s.logger.Error("创建提醒失败", zap.String("user_id", userID), zap.Error(err))
		return nil, pkgerrors.Persistence("创建提醒", err)
	}

	return toReminderResponse(reminder), nil
}

// ────────────────────── Get ──────────────────────

func (s *reminderService) Get(ctx context.Context, userID, id string) (*dto.ReminderResponse, error) {
	reminder, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return toReminderResponse(reminder), nil
}

// ────────────────────── List ──────────────────────

func (s *reminderService) List(ctx context.Context, userID string) ([]dto.ReminderResponse, error) {
	reminders, err := s.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make([]dto.ReminderResponse, 0, len(reminders))
	for i := range reminders {
		result = append(result, *toReminderResponse(&reminders[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *reminderService) Update(ctx context.Context, userID, id string, req *dto.UpdateReminderRequest) (*dto.ReminderResponse, error) {
	reminder, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()

	if req.ReminderType != nil {
		rt := model.ReminderType(*req.ReminderType)
		if !rt.Valid() {
			return nil, ErrInvalidReminderType
		}
		reminder.ReminderType = rt
	}
	if req.RelatedID != nil {
		reminder.RelatedID = req.RelatedID
	}
	if req.Title != nil {
		if *req.Title == "" {
			return nil, ErrReminderTitleEmpty
		}
		reminder.Title = *req.Title
	}
	if req.Description != nil {
		reminder.Description = *req.Description
	}
	if req.ReminderTime != nil {
		at, err := parseReminderTime(*req.ReminderTime, now)
		if err != nil {
			return nil, err
		}
		reminder.ReminderTime = at
	}
	if req.IsRecurring != nil {
		reminder.IsRecurring = *req.IsRecurring
	}
	if req.RecurrencePattern != nil {
		reminder.RecurrencePattern = req.RecurrencePattern
	}
	if req.IsActive != nil {
		reminder.IsActive = *req.IsActive
	}

	reminder.UpdatedAt = now

	if err := s.save(ctx, reminder); err != nil {
		return nil, err
	}
	return toReminderResponse(reminder), nil
}

// ────────────────────── Delete ──────────────────────

func (s *reminderService) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return pkgerrors.ErrUnauthenticated
	}
	if !validID(id) {
		return ErrReminderNotFound
	}

	affected, err := s.repo.Reminder.Delete(ctx, userID, id)
	if err != nil {
		s.logger.Error("删除提醒失败", zap.String("id", id), zap.Error(err))
		return pkgerrors.Persistence("删除提醒", err)
	}
	if affected == 0 {
		return ErrReminderNotFound
	}
	return nil
}

// ────────────────────── Toggle ──────────────────────

// Toggle 翻转 is_active，与 Update 走同一条写路径
func (s *reminderService) Toggle(ctx context.Context, userID, id string) (*dto.ReminderResponse, error) {
	reminder, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	reminder.IsActive = !reminder.IsActive
	reminder.UpdatedAt = s.clock.Now()

	if err := s.save(ctx, reminder); err != nil {
		return nil, err
	}
	return toReminderResponse(reminder), nil
}

// ────────────────────── Scheduler-facing ──────────────────────

func (s *reminderService) Snapshot(ctx context.Context, userID string) ([]model.Reminder, error) {
	if userID == "" {
		return nil, pkgerrors.ErrUnauthenticated
	}

	reminders, err := s.repo.Reminder.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("列出提醒失败", zap.String("user_id", userID), zap.Error(err))
		return nil, pkgerrors.Persistence("列出提醒", err)
	}
	return reminders, nil
}

func (s *reminderService) MarkTriggered(ctx context.Context, userID, id string, at time.Time) error {
	if userID == "" {
		return pkgerrors.ErrUnauthenticated
	}
	if !validID(id) {
		return ErrReminderNotFound
	}

	if err := s.repo.Reminder.UpdateLastTriggered(ctx, userID, id, at); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReminderNotFound
		}
		return pkgerrors.Persistence("更新提醒触发时间", err)
	}
	return nil
}

// ── 内部辅助方法 ──

func (s *reminderService) load(ctx context.Context, userID, id string) (*model.Reminder, error) {
	if userID == "" {
		return nil, pkgerrors.ErrUnauthenticated
	}
	if !validID(id) {
		return nil, ErrReminderNotFound
	}

	reminder, err := s.repo.Reminder.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReminderNotFound
		}
		s.logger.Error("查询提醒失败", zap.String("id", id), zap.Error(err))
		return nil, pkgerrors.Persistence("查询提醒", err)
	}
	return reminder, nil
}

func (s *reminderService) save(ctx context.Context, reminder *model.Reminder) error {
	if err := s.repo.Reminder.Update(ctx, reminder); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReminderNotFound
		}
		s.logger.Error("更新提醒失败", zap.String("id", reminder.ReminderID), zap.Error(err))
		return pkgerrors.Persistence("更新提醒", err)
	}
	return nil
}

// parseReminderTime 接受 RFC 3339 时间戳，或 "HH:MM"（落在 now 所在日期与时区）
func parseReminderTime(raw string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(reminderTimeOfDayLayout, raw)
	if err != nil {
		return time.Time{}, ErrInvalidReminderTime
	}
	return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location()), nil
}

// validID 非 UUID 的 id 不可能存在，直接按不存在处理
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func toReminderResponse(r *model.Reminder) *dto.ReminderResponse {
	resp := &dto.ReminderResponse{
		ID:                r.ReminderID,
		ReminderType:      string(r.ReminderType),
		RelatedID:         r.RelatedID,
		Title:             r.Title,
		Description:       r.Description,
		ReminderTime:      formatTime(r.ReminderTime),
		IsRecurring:       r.IsRecurring,
		RecurrencePattern: r.RecurrencePattern,
		IsActive:          r.IsActive,
		CreatedAt:         formatTime(r.CreatedAt),
		UpdatedAt:         formatTime(r.UpdatedAt),
	}
	if r.LastTriggeredAt != nil {
		v := formatTime(*r.LastTriggeredAt)
		resp.LastTriggeredAt = &v
	}
	return resp
}
