package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"remidi/backend/internal/dto"
)

func TestCalendarService_ExportReminders(t *testing.T) {
	repo, _ := newMockRepos()
	clk := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC))
	reminders := NewReminderService(repo, clk, zap.NewNop())
	cal := NewCalendarService(repo, clk, zap.NewNop())
	ctx := context.Background()

	pattern := "daily"
	inactive := false
	for _, req := range []dto.CreateReminderRequest{
		{ReminderType: "medication", Title: "降压药", ReminderTime: "08:00", IsRecurring: true, RecurrencePattern: &pattern},
		{ReminderType: "task", Title: "复诊", ReminderTime: "2026-03-05T09:30:00Z"},
		{ReminderType: "goal", Title: "已停用", ReminderTime: "10:00", IsActive: &inactive},
	} {
		req := req
		if _, err := reminders.Create(ctx, testUserID, &req); err != nil {
			t.Fatalf("Create 应成功: %v", err)
		}
	}

	data, err := cal.ExportReminders(ctx, testUserID)
	if err != nil {
		t.Fatalf("ExportReminders 应成功: %v", err)
	}

	parsed, err := ics.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("导出内容应为合法 iCalendar: %v", err)
	}
	events := parsed.Events()
	if len(events) != 2 {
		t.Fatalf("只导出启用中的提醒，期望 2 个事件，实际 %d", len(events))
	}

	var recurring int
	for _, evt := range events {
		summary := evt.GetProperty(ics.ComponentPropertySummary)
		if summary == nil || summary.Value == "已停用" {
			t.Errorf("事件标题不正确: %v", summary)
		}
		if rrule := evt.GetProperty(ics.ComponentPropertyRrule); rrule != nil {
			recurring++
			if rrule.Value != "FREQ=DAILY" {
				t.Errorf("期望 RRULE FREQ=DAILY，实际 %s", rrule.Value)
			}
		}
	}
	if recurring != 1 {
		t.Errorf("期望 1 个重复事件，实际 %d", recurring)
	}
	if !strings.Contains(string(data), "DTSTART:20260301T080000Z") {
		t.Error("期望降压药事件起始于 2026-03-01 08:00 UTC")
	}
}

func TestCalendarService_Unauthenticated(t *testing.T) {
	repo, _ := newMockRepos()
	cal := NewCalendarService(repo, clockwork.NewRealClock(), zap.NewNop())

	if _, err := cal.ExportReminders(context.Background(), ""); err == nil {
		t.Error("未登录应返回错误")
	}
}
