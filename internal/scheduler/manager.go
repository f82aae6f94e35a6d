package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"remidi/backend/pkg/circuitbreaker"
)

// ManagerConfig 会话管理器配置
type ManagerConfig struct {
	IdleTimeout time.Duration // 会话多久无活动后回收，0 表示不回收
	ReapSpec    string        // 回收任务的 cron 表达式
	Lock        TickLock      // 为空时不做跨实例互斥
	LockTTL     time.Duration
}

type session struct {
	sched    *Scheduler
	lastSeen time.Time
}

// Manager 按用户维护调度会话
//
// 登录（或携带有效 token 的请求）开始/刷新会话，登出结束会话；
// 长时间无活动的会话由 cron 任务回收，避免计时器引用已离开的用户。
type Manager struct {
	reminders     ReminderSource
	notifications NotificationSink
	clock         clockwork.Clock
	cfg           ManagerConfig
	logger        *zap.Logger
	cron          *cron.Cron

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool
}

// NewManager 创建会话管理器（回收任务需调用 Start 启动）
func NewManager(reminders ReminderSource, notifications NotificationSink, clk clockwork.Clock, logger *zap.Logger, cfg ManagerConfig) *Manager {
	return &Manager{
		reminders:     reminders,
		notifications: notifications,
		clock:         clk,
		cfg:           cfg,
		logger:        logger,
		cron:          cron.New(),
		sessions:      make(map[string]*session),
	}
}

// Start 注册并启动空闲会话回收任务
func (m *Manager) Start() error {
	if m.cfg.IdleTimeout <= 0 || m.cfg.ReapSpec == "" {
		m.logger.Info("未配置空闲会话回收")
		return nil
	}
	if _, err := m.cron.AddFunc(m.cfg.ReapSpec, func() { m.Reap() }); err != nil {
		return fmt.Errorf("注册会话回收任务失败: %w", err)
	}
	m.cron.Start()
	m.logger.Info("调度会话管理器已启动",
		zap.String("reap_spec", m.cfg.ReapSpec),
		zap.Duration("idle_timeout", m.cfg.IdleTimeout),
	)
	return nil
}

// Begin 开始 userID 的调度会话；会话已存在时只刷新活跃时间
func (m *Manager) Begin(userID string) {
	if userID == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	now := m.clock.Now()
	if sess, ok := m.sessions[userID]; ok {
		sess.lastSeen = now
		return
	}

	sched := New(m.reminders, m.notifications, m.clock, m.logger.With(zap.String("user_id", userID)), m.schedulerOptions(userID)...)
	sched.Start(userID)
	m.sessions[userID] = &session{sched: sched, lastSeen: now}
}

// End 结束 userID 的调度会话并等待其 tick 退出
func (m *Manager) End(userID string) {
	m.mu.Lock()
	sess, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()

	if ok {
		sess.sched.Stop()
	}
}

// Active 当前持有会话的用户，按 ID 排序
func (m *Manager) Active() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		users = append(users, id)
	}
	sort.Strings(users)
	return users
}

// Reap 回收空闲超时的会话，返回回收数量
func (m *Manager) Reap() int {
	if m.cfg.IdleTimeout <= 0 {
		return 0
	}

	now := m.clock.Now()
	var idle []*session

	m.mu.Lock()
	for id, sess := range m.sessions {
		if now.Sub(sess.lastSeen) > m.cfg.IdleTimeout {
			idle = append(idle, sess)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, sess := range idle {
		sess.sched.Stop()
	}
	if len(idle) > 0 {
		m.logger.Info("已回收空闲调度会话", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// Shutdown 停止回收任务与全部会话；之后的 Begin 不再生效
func (m *Manager) Shutdown() {
	<-m.cron.Stop().Done()

	m.mu.Lock()
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[string]*session)
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.sched.Stop()
	}
	m.logger.Info("调度会话管理器已停止", zap.Int("sessions", len(sessions)))
}

func (m *Manager) schedulerOptions(userID string) []Option {
	opts := []Option{
		WithBreaker(circuitbreaker.New("reminder-snapshot:"+userID, m.logger)),
	}
	if m.cfg.Lock != nil {
		opts = append(opts, WithTickLock(m.cfg.Lock, m.cfg.LockTTL))
	}
	return opts
}
