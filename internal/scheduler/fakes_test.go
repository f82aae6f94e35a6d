package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"remidi/backend/internal/dto"
	"remidi/backend/internal/model"
	pkgerrors "remidi/backend/pkg/errors"
)

// fakeReminders 内存提醒存储，可注入失败与阻塞
type fakeReminders struct {
	mu        sync.Mutex
	reminders []model.Reminder

	snapshotErr   error
	snapshotCalls int
	// block 非空时 Snapshot 阻塞直到 block 关闭或 ctx 取消
	block   chan struct{}
	entered chan struct{}

	markErrs  []error // 依次消费，耗尽后成功
	markCalls int
}

func newFakeReminders(rs ...model.Reminder) *fakeReminders {
	return &fakeReminders{reminders: rs}
}

func (f *fakeReminders) Snapshot(ctx context.Context, userID string) ([]model.Reminder, error) {
	f.mu.Lock()
	f.snapshotCalls++
	block, entered := f.block, f.entered
	f.mu.Unlock()

	if block != nil {
		if entered != nil {
			entered <- struct{}{}
		}
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	var out []model.Reminder
	for _, r := range f.reminders {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReminders) MarkTriggered(_ context.Context, userID, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markCalls++
	if len(f.markErrs) > 0 {
		err := f.markErrs[0]
		f.markErrs = f.markErrs[1:]
		return err
	}
	for i := range f.reminders {
		if f.reminders[i].ReminderID == id && f.reminders[i].UserID == userID {
			t := at
			f.reminders[i].LastTriggeredAt = &t
			return nil
		}
	}
	return pkgerrors.ErrNotFound
}

func (f *fakeReminders) get(id string) model.Reminder {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reminders {
		if r.ReminderID == id {
			return r
		}
	}
	return model.Reminder{}
}

func (f *fakeReminders) calls() (snapshots, marks int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotCalls, f.markCalls
}

type appended struct {
	userID string
	req    dto.CreateNotificationRequest
}

// fakeNotifications 记录所有追加请求
type fakeNotifications struct {
	mu        sync.Mutex
	items     []appended
	appendErr error
}

func (f *fakeNotifications) Append(_ context.Context, userID string, req *dto.CreateNotificationRequest) (*dto.NotificationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	f.items = append(f.items, appended{userID: userID, req: *req})
	return &dto.NotificationResponse{ID: uuid.NewString(), Type: req.Type, Title: req.Title}, nil
}

func (f *fakeNotifications) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

func (f *fakeNotifications) all() []appended {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]appended(nil), f.items...)
}

// failingLock 总是返回错误的 tick 锁
type failingLock struct{}

func (failingLock) AcquireLock(context.Context, string, time.Duration) (string, bool, error) {
	return "", false, errors.New("redis unavailable")
}

func (failingLock) ReleaseLock(context.Context, string, string) error { return nil }

const (
	userA = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	userB = "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"
)

// at 2026-03-01 的 hh:mm:ss（UTC）
func at(hh, mm, ss int) time.Time {
	return time.Date(2026, 3, 1, hh, mm, ss, 0, time.UTC)
}

func reminder(userID string, typ model.ReminderType, hh, mm int, active bool) model.Reminder {
	return model.Reminder{
		ReminderID:   uuid.NewString(),
		UserID:       userID,
		ReminderType: typ,
		Title:        "Take blood pressure pill",
		Description:  "1 tablet after breakfast",
		ReminderTime: at(hh, mm, 0),
		IsActive:     active,
	}
}
