package scheduler

import (
	"time"

	"remidi/backend/internal/model"
)

const (
	// TickInterval 两次评估之间的固定间隔
	TickInterval = 60 * time.Second
	// IdempotencyWindow 同一提醒两次触发之间的最小间隔
	IdempotencyWindow = 60 * time.Second
)

// State 单条提醒在一次 tick 中的判定结果
type State int

const (
	// StateIdle 未启用，或当前时分与提醒时分不一致
	StateIdle State = iota
	// StateSuppressed 时分一致，但距上次触发不超过 IdempotencyWindow
	StateSuppressed
	// StateFired 应当发出通知并记录触发时间
	StateFired
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSuppressed:
		return "suppressed"
	case StateFired:
		return "fired"
	}
	return "unknown"
}

// Evaluate 判定提醒在 now 时刻的状态
//
// 只比较时分：reminder_time 先换算到 now 所在时区，日期部分被忽略，
// 因此一条启用中的提醒每天都会在该时分到期。
// last_triggered_at 为空视为距上次触发无限久。
func Evaluate(r *model.Reminder, now time.Time) State {
	if !r.IsActive {
		return StateIdle
	}

	at := r.ReminderTime.In(now.Location())
	if at.Hour() != now.Hour() || at.Minute() != now.Minute() {
		return StateIdle
	}

	if r.LastTriggeredAt != nil && now.Sub(*r.LastTriggeredAt) <= IdempotencyWindow {
		return StateSuppressed
	}
	return StateFired
}
