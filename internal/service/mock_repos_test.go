package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"remidi/backend/internal/model"
	"remidi/backend/internal/repository"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User // key: user_id
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.UserID == "" {
		user.UserID = uuid.NewString()
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock ReminderRepository ──

type mockReminderRepo struct {
	mu        sync.Mutex
	reminders map[string]*model.Reminder
	listErr   error
	updateErr error
}

func newMockReminderRepo() *mockReminderRepo {
	return &mockReminderRepo{reminders: make(map[string]*model.Reminder)}
}

func (m *mockReminderRepo) Create(_ context.Context, r *model.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ReminderID == "" {
		r.ReminderID = uuid.NewString()
	}
	cp := *r
	m.reminders[r.ReminderID] = &cp
	return nil
}

func (m *mockReminderRepo) GetByID(_ context.Context, userID, id string) (*model.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.reminders[id]; ok && r.UserID == userID {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockReminderRepo) ListByUser(_ context.Context, userID string) ([]model.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []model.Reminder
	for _, r := range m.reminders {
		if r.UserID == userID {
			result = append(result, *r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ReminderTime.Before(result[j].ReminderTime)
	})
	return result, nil
}

func (m *mockReminderRepo) Update(_ context.Context, r *model.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	existing, ok := m.reminders[r.ReminderID]
	if !ok || existing.UserID != r.UserID {
		return gorm.ErrRecordNotFound
	}
	cp := *r
	cp.LastTriggeredAt = existing.LastTriggeredAt
	m.reminders[r.ReminderID] = &cp
	return nil
}

func (m *mockReminderRepo) Delete(_ context.Context, userID, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.reminders[id]; ok && r.UserID == userID {
		delete(m.reminders, id)
		return 1, nil
	}
	return 0, nil
}

func (m *mockReminderRepo) UpdateLastTriggered(_ context.Context, userID, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	r, ok := m.reminders[id]
	if !ok || r.UserID != userID {
		return gorm.ErrRecordNotFound
	}
	t := at
	r.LastTriggeredAt = &t
	r.UpdatedAt = at
	return nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	mu        sync.Mutex
	items     []*model.Notification // 追加顺序
	createErr error
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{}
}

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if n.NotificationID == "" {
		n.NotificationID = uuid.NewString()
	}
	cp := *n
	m.items = append(m.items, &cp)
	return nil
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, offset, limit int) ([]model.Notification, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Notification
	for i := len(m.items) - 1; i >= 0; i-- {
		if m.items[i].UserID == userID {
			all = append(all, *m.items[i])
		}
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockNotificationRepo) CountUnread(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, n := range m.items {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, userID, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.items {
		if n.NotificationID == id && n.UserID == userID && !n.IsRead {
			n.IsRead = true
			return 1, nil
		}
	}
	return 0, nil
}

func (m *mockNotificationRepo) MarkAllRead(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var affected int64
	for _, n := range m.items {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			affected++
		}
	}
	return affected, nil
}

func (m *mockNotificationRepo) DeleteAll(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*model.Notification
	var deleted int64
	for _, n := range m.items {
		if n.UserID == userID {
			deleted++
			continue
		}
		kept = append(kept, n)
	}
	m.items = kept
	return deleted, nil
}

// ── Mock ActivityRepository ──

type mockActivityRepo struct {
	mu    sync.Mutex
	items []model.Activity
}

func newMockActivityRepo() *mockActivityRepo {
	return &mockActivityRepo{}
}

func (m *mockActivityRepo) Create(_ context.Context, a *model.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ActivityID == "" {
		a.ActivityID = uuid.NewString()
	}
	m.items = append(m.items, *a)
	return nil
}

func (m *mockActivityRepo) ListByUser(_ context.Context, userID string, since *time.Time) ([]model.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Activity
	for _, a := range m.items {
		if a.UserID != userID {
			continue
		}
		if since != nil && a.OccurredAt.Before(*since) {
			continue
		}
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].OccurredAt.After(result[j].OccurredAt)
	})
	return result, nil
}

func (m *mockActivityRepo) SumPoints(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for _, a := range m.items {
		if a.UserID == userID {
			total += int64(a.Points)
		}
	}
	return total, nil
}

// ── 聚合 ──

type mockRepos struct {
	user         *mockUserRepo
	reminder     *mockReminderRepo
	notification *mockNotificationRepo
	activity     *mockActivityRepo
}

func newMockRepos() (*repository.Repository, *mockRepos) {
	m := &mockRepos{
		user:         newMockUserRepo(),
		reminder:     newMockReminderRepo(),
		notification: newMockNotificationRepo(),
		activity:     newMockActivityRepo(),
	}
	return &repository.Repository{
		User:         m.user,
		Reminder:     m.reminder,
		Notification: m.notification,
		Activity:     m.activity,
	}, m
}
