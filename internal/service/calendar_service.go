package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"remidi/backend/internal/model"
	"remidi/backend/internal/repository"
	pkgerrors "remidi/backend/pkg/errors"
)

const (
	calendarProductID = "-//Remidi//Reminders//EN"
	calendarName      = "Remidi 提醒"
	// reminderEventLength 日历中每条提醒事件的时长
	reminderEventLength = 15 * time.Minute
)

// CalendarService 提醒日历导出业务接口
//
// 设计说明：
//   - 每条启用中的提醒导出为一个 VEVENT，起始时间为 reminder_time
//   - 调度器只比较时分，提醒实际每天触发；因此重复提醒导出为 RRULE:FREQ=DAILY
//   - recurrence_pattern 原样写入 DESCRIPTION 末尾，不做解析
type CalendarService interface {
	ExportReminders(ctx context.Context, userID string) ([]byte, error)
}

type calendarService struct {
	repo   *repository.Repository
	clock  clockwork.Clock
	logger *zap.Logger
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(repo *repository.Repository, clk clockwork.Clock, logger *zap.Logger) CalendarService {
	return &calendarService{repo: repo, clock: clk, logger: logger}
}

func (s *calendarService) ExportReminders(ctx context.Context, userID string) ([]byte, error) {
	if userID == "" {
		return nil, pkgerrors.ErrUnauthenticated
	}

	reminders, err := s.repo.Reminder.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("列出提醒失败", zap.String("user_id", userID), zap.Error(err))
		return nil, pkgerrors.Persistence("列出提醒", err)
	}

	now := s.clock.Now().UTC()

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)
	cal.SetXWRCalName(calendarName)

	for i := range reminders {
		r := &reminders[i]
		if !r.IsActive {
			continue
		}

		evt := cal.AddEvent(r.ReminderID + "@remidi")
		evt.SetDtStampTime(now)
		evt.SetCreatedTime(r.CreatedAt.UTC())
		evt.SetModifiedAt(r.UpdatedAt.UTC())
		evt.SetStartAt(r.ReminderTime.UTC())
		evt.SetEndAt(r.ReminderTime.UTC().Add(reminderEventLength))
		evt.SetSummary(r.Title)
		if desc := eventDescription(r); desc != "" {
			evt.SetDescription(desc)
		}
		evt.AddProperty(ics.ComponentPropertyCategories, strings.ToUpper(string(r.ReminderType)))
		if r.IsRecurring {
			evt.AddProperty(ics.ComponentPropertyRrule, "FREQ=DAILY")
		}

		alarm := evt.AddAlarm()
		alarm.SetAction(ics.ActionDisplay)
		alarm.SetTrigger("PT0M")
	}

	return []byte(cal.Serialize()), nil
}

func eventDescription(r *model.Reminder) string {
	desc := r.Description
	if r.RecurrencePattern != nil && *r.RecurrencePattern != "" {
		if desc != "" {
			desc += "\n"
		}
		desc += fmt.Sprintf("重复: %s", *r.RecurrencePattern)
	}
	return desc
}
