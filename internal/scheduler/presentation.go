package scheduler

import (
	"remidi/backend/internal/dto"
	"remidi/backend/internal/model"
)

// TimeLabelNow 调度器发出的通知统一使用的时间标签
const TimeLabelNow = "now"

// Presentation 通知的展示提示
type Presentation struct {
	Color string
	Icon  string
}

var (
	medicationPresentation = Presentation{Color: "bg-purple-100 text-purple-600", Icon: "💊"}
	reminderPresentation   = Presentation{Color: "bg-blue-100 text-blue-600", Icon: "🔔"}
)

// PresentationFor 按提醒类别选择颜色与图标
func PresentationFor(t model.ReminderType) Presentation {
	switch t {
	case model.ReminderTypeMedication:
		return medicationPresentation
	case model.ReminderTypeTask, model.ReminderTypeGoal, model.ReminderTypeCustom:
		return reminderPresentation
	}
	return reminderPresentation
}

// notificationFor 构造提醒触发时追加的通知
func notificationFor(r *model.Reminder) *dto.CreateNotificationRequest {
	p := PresentationFor(r.ReminderType)

	var subtitle *string
	if r.Description != "" {
		d := r.Description
		subtitle = &d
	}
	reminderID := r.ReminderID

	return &dto.CreateNotificationRequest{
		Type:       string(r.ReminderType.NotificationType()),
		Title:      r.Title,
		Subtitle:   subtitle,
		Time:       TimeLabelNow,
		Color:      p.Color,
		Icon:       p.Icon,
		ReminderID: &reminderID,
	}
}
