package service

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"remidi/backend/internal/dto"
	"remidi/backend/internal/model"
	pkgerrors "remidi/backend/pkg/errors"
)

// ── 测试替身 ──

type recordingNotifier struct {
	mu     sync.Mutex
	events []dto.NotificationEvent
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, evt *dto.NotificationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *evt)
	return r.err
}

// ── 测试辅助 ──

func setupTestNotificationService(notifiers ...NotificationNotifier) (NotificationService, *mockNotificationRepo, *clockwork.FakeClock) {
	repo, mocks := newMockRepos()
	clk := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 8, 0, 15, 0, time.UTC))
	return NewNotificationService(repo, clk, zap.NewNop(), notifiers...), mocks.notification, clk
}

func appendNotification(t *testing.T, svc NotificationService, title string) *dto.NotificationResponse {
	t.Helper()
	n, err := svc.Append(context.Background(), testUserID, &dto.CreateNotificationRequest{
		Type:  "task",
		Title: title,
	})
	if err != nil {
		t.Fatalf("Append 应成功: %v", err)
	}
	return n
}

// ── Append 测试 ──

func TestNotificationService_Append_Defaults(t *testing.T) {
	svc, _, _ := setupTestNotificationService()

	n := appendNotification(t, svc, "New task created")
	if n.Read {
		t.Error("新通知必须为未读")
	}
	if n.Time != "now" {
		t.Errorf("期望默认时间标签 now，实际 %s", n.Time)
	}
	if n.Timestamp != "2026-03-01T08:00:15Z" {
		t.Errorf("时间戳应取服务时钟，实际 %s", n.Timestamp)
	}
	if n.ID == "" {
		t.Error("期望生成通知 ID")
	}
}

func TestNotificationService_Append_InvalidType(t *testing.T) {
	svc, _, _ := setupTestNotificationService()

	_, err := svc.Append(context.Background(), testUserID, &dto.CreateNotificationRequest{Type: "system", Title: "x"})
	if !errors.Is(err, ErrInvalidNotificationType) {
		t.Errorf("期望 ErrInvalidNotificationType，实际 %v", err)
	}
}

func TestNotificationService_Append_PersistenceFailure(t *testing.T) {
	notifier := &recordingNotifier{}
	svc, repo, _ := setupTestNotificationService(notifier)
	repo.createErr = errors.New("disk full")

	_, err := svc.Append(context.Background(), testUserID, &dto.CreateNotificationRequest{Type: "task", Title: "x"})
	if !errors.Is(err, pkgerrors.ErrPersistence) {
		t.Errorf("期望 ErrPersistence，实际 %v", err)
	}
	if len(notifier.events) != 0 {
		t.Error("写入失败时不应推送")
	}
}

func TestNotificationService_Append_NotifiesWithUnreadCount(t *testing.T) {
	notifier := &recordingNotifier{}
	svc, _, _ := setupTestNotificationService(notifier)

	appendNotification(t, svc, "a")
	appendNotification(t, svc, "b")

	if len(notifier.events) != 2 {
		t.Fatalf("期望 2 个事件，实际 %d", len(notifier.events))
	}
	last := notifier.events[1]
	if last.Kind != dto.NotificationEventCreated || last.Notification == nil || last.Notification.Title != "b" {
		t.Errorf("事件内容不正确: %+v", last)
	}
	if last.UnreadCount != 2 {
		t.Errorf("期望未读数 2，实际 %d", last.UnreadCount)
	}
}

func TestNotificationService_NotifierFailureIsNotFatal(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("broker down")}
	svc, _, _ := setupTestNotificationService(notifier)

	if _, err := svc.Append(context.Background(), testUserID, &dto.CreateNotificationRequest{Type: "task", Title: "x"}); err != nil {
		t.Errorf("下游推送失败不应影响追加，实际 %v", err)
	}
}

// ── List 测试 ──

func TestNotificationService_List_NewestFirst(t *testing.T) {
	svc, _, clk := setupTestNotificationService()

	appendNotification(t, svc, "first")
	clk.Advance(time.Minute)
	appendNotification(t, svc, "second")

	list, total, err := svc.List(context.Background(), testUserID, &dto.NotificationListRequest{})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 2 || list[0].Title != "second" || list[1].Title != "first" {
		t.Errorf("期望最新的在前，实际 %+v", list)
	}
}

// ── MarkRead 测试 ──

func TestNotificationService_MarkRead_NoOpCases(t *testing.T) {
	notifier := &recordingNotifier{}
	svc, _, _ := setupTestNotificationService(notifier)
	ctx := context.Background()
	n := appendNotification(t, svc, "x")

	if err := svc.MarkRead(ctx, testUserID, n.ID); err != nil {
		t.Fatalf("MarkRead 应成功: %v", err)
	}
	events := len(notifier.events)

	// 已读再次标记、不存在的 id、非法 id：均为空操作
	for _, id := range []string{n.ID, uuid.NewString(), "bogus"} {
		if err := svc.MarkRead(ctx, testUserID, id); err != nil {
			t.Errorf("MarkRead(%s) 应为空操作，实际 %v", id, err)
		}
	}
	if len(notifier.events) != events {
		t.Error("空操作不应推送未读数变化")
	}

	count, _ := svc.UnreadCount(ctx, testUserID)
	if count != 0 {
		t.Errorf("期望未读 0，实际 %d", count)
	}
}

// ── 未读数不变式 ──

func TestNotificationService_UnreadCountInvariant(t *testing.T) {
	svc, repo, clk := setupTestNotificationService()
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	var ids []string
	for step := 0; step < 500; step++ {
		switch op := rng.Intn(10); {
		case op < 5:
			n := appendNotification(t, svc, "n")
			ids = append(ids, n.ID)
		case op < 8:
			if len(ids) > 0 {
				if err := svc.MarkRead(ctx, testUserID, ids[rng.Intn(len(ids))]); err != nil {
					t.Fatalf("MarkRead 失败: %v", err)
				}
			}
		case op < 9:
			if _, err := svc.MarkAllRead(ctx, testUserID); err != nil {
				t.Fatalf("MarkAllRead 失败: %v", err)
			}
		default:
			if _, err := svc.ClearAll(ctx, testUserID); err != nil {
				t.Fatalf("ClearAll 失败: %v", err)
			}
			ids = nil
			count, _ := svc.UnreadCount(ctx, testUserID)
			list, total, _ := svc.List(ctx, testUserID, &dto.NotificationListRequest{})
			if count != 0 || total != 0 || len(list) != 0 {
				t.Fatalf("清空后应为空，count=%d total=%d", count, total)
			}
		}
		clk.Advance(time.Second)

		var want int64
		for _, n := range repo.items {
			if !n.IsRead {
				want++
			}
		}
		got, err := svc.UnreadCount(ctx, testUserID)
		if err != nil {
			t.Fatalf("UnreadCount 失败: %v", err)
		}
		if got != want {
			t.Fatalf("第 %d 步：未读数 %d 与实际未读记录 %d 不一致", step, got, want)
		}
	}
}

func TestNotificationService_ReadNeverReverts(t *testing.T) {
	svc, repo, _ := setupTestNotificationService()
	ctx := context.Background()
	n := appendNotification(t, svc, "x")

	_ = svc.MarkRead(ctx, testUserID, n.ID)
	_, _ = svc.MarkAllRead(ctx, testUserID)
	appendNotification(t, svc, "y")

	for _, item := range repo.items {
		if item.NotificationID == n.ID && !item.IsRead {
			t.Error("已读通知不应恢复为未读")
		}
	}
}

func TestNotificationService_ScopedByUser(t *testing.T) {
	svc, _, _ := setupTestNotificationService()
	ctx := context.Background()
	other := uuid.NewString()

	n := appendNotification(t, svc, "mine")
	if _, err := svc.Append(ctx, other, &dto.CreateNotificationRequest{Type: string(model.NotificationTypeReward), Title: "theirs"}); err != nil {
		t.Fatalf("Append 应成功: %v", err)
	}

	_ = svc.MarkRead(ctx, other, n.ID)
	count, _ := svc.UnreadCount(ctx, testUserID)
	if count != 1 {
		t.Errorf("其他用户不能标记我的通知，期望未读 1，实际 %d", count)
	}

	deleted, _ := svc.ClearAll(ctx, other)
	if deleted != 1 {
		t.Errorf("ClearAll 只应删除自己的通知，实际删除 %d", deleted)
	}
}

func TestNotificationService_Unauthenticated(t *testing.T) {
	svc, _, _ := setupTestNotificationService()
	ctx := context.Background()

	if _, err := svc.Append(ctx, "", &dto.CreateNotificationRequest{Type: "task", Title: "x"}); !errors.Is(err, pkgerrors.ErrUnauthenticated) {
		t.Errorf("Append: 期望 ErrUnauthenticated，实际 %v", err)
	}
	if _, err := svc.UnreadCount(ctx, ""); !errors.Is(err, pkgerrors.ErrUnauthenticated) {
		t.Errorf("UnreadCount: 期望 ErrUnauthenticated，实际 %v", err)
	}
	if _, err := svc.ClearAll(ctx, ""); !errors.Is(err, pkgerrors.ErrUnauthenticated) {
		t.Errorf("ClearAll: 期望 ErrUnauthenticated，实际 %v", err)
	}
}
