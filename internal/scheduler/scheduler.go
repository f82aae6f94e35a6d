package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"remidi/backend/internal/dto"
	"remidi/backend/internal/model"
	pkgerrors "remidi/backend/pkg/errors"
)

// ReminderSource 提醒存储中调度器需要的部分
type ReminderSource interface {
	Snapshot(ctx context.Context, userID string) ([]model.Reminder, error)
	MarkTriggered(ctx context.Context, userID, id string, at time.Time) error
}

// NotificationSink 通知存储中调度器需要的部分
type NotificationSink interface {
	Append(ctx context.Context, userID string, req *dto.CreateNotificationRequest) (*dto.NotificationResponse, error)
}

// TickLock 跨实例的 tick 互斥锁（Redis 实现）
type TickLock interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// SkipReason tick 被跳过的原因
type SkipReason string

const (
	SkipNone           SkipReason = ""
	SkipNoUser         SkipReason = "no_user"
	SkipOverlap        SkipReason = "overlap"
	SkipLocked         SkipReason = "locked_elsewhere"
	SkipBreakerOpen    SkipReason = "breaker_open"
	SkipSnapshotFailed SkipReason = "snapshot_failed"
)

const (
	lockKeyPrefix  = "scheduler:tick:"
	releaseTimeout = 2 * time.Second
)

// TickReport 一次 tick 的结果
type TickReport struct {
	UserID            string
	At                time.Time
	Skipped           SkipReason
	Aborted           bool // 会话结束，剩余提醒未评估
	Evaluated         int
	Fired             int
	Suppressed        int
	EmitFailed        int
	BookkeepingFailed int
}

// Scheduler 单个用户会话的提醒调度器
//
// Start 后立即评估一次，此后每 TickInterval 评估一次。tick 之间互不重叠：
// 上一次仍在等待存储时到来的 tick 直接跳过。Stop 取消运行上下文，
// 正在进行的 tick 在下一条提醒前放弃。
type Scheduler struct {
	reminders     ReminderSource
	notifications NotificationSink
	clock         clockwork.Clock
	breaker       *gobreaker.CircuitBreaker
	lock          TickLock
	lockTTL       time.Duration
	logger        *zap.Logger

	lifecycle sync.Mutex // 串行化 Start / Stop

	mu     sync.Mutex
	userID string
	cancel context.CancelFunc
	done   chan struct{}

	ticking atomic.Bool
}

// Option 调度器可选配置
type Option func(*Scheduler)

// WithTickLock 启用跨实例 tick 锁
func WithTickLock(lock TickLock, ttl time.Duration) Option {
	return func(s *Scheduler) {
		s.lock = lock
		s.lockTTL = ttl
	}
}

// WithBreaker 使用指定的熔断器保护快照读取
func WithBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(s *Scheduler) {
		s.breaker = cb
	}
}

// New 创建调度器（未启动）
func New(reminders ReminderSource, notifications NotificationSink, clk clockwork.Clock, logger *zap.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		reminders:     reminders,
		notifications: notifications,
		clock:         clk,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ────────────────────── Lifecycle ──────────────────────

// Start 为 userID 启动调度
// userID 为空时不启动计时器；已在为其他用户运行时先停止旧的运行。
func (s *Scheduler) Start(userID string) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if s.cancel != nil && s.userID == userID {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.stop()

	if userID == "" {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	s.userID = userID
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go s.run(ctx, userID, done)
	s.logger.Info("提醒调度已启动", zap.String("user_id", userID))
}

// Stop 停止调度并等待运行中的 tick 退出
func (s *Scheduler) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.stop()
}

func (s *Scheduler) stop() {
	s.mu.Lock()
	userID, cancel, done := s.userID, s.cancel, s.done
	s.userID, s.cancel, s.done = "", nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("提醒调度已停止", zap.String("user_id", userID))
}

// UserID 当前调度的用户，未运行时为空
func (s *Scheduler) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Running 是否持有计时器
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Scheduler) run(ctx context.Context, userID string, done chan struct{}) {
	defer close(done)

	s.tick(ctx, userID)

	ticker := s.clock.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.tick(ctx, userID)
		}
	}
}

// ────────────────────── Tick ──────────────────────

// Tick 为当前用户立即执行一次评估
func (s *Scheduler) Tick(ctx context.Context) TickReport {
	return s.tick(ctx, s.UserID())
}

func (s *Scheduler) tick(ctx context.Context, userID string) TickReport {
	now := s.clock.Now()
	report := TickReport{UserID: userID, At: now}

	if userID == "" {
		report.Skipped = SkipNoUser
		return report
	}

	if !s.ticking.CompareAndSwap(false, true) {
		report.Skipped = SkipOverlap
		s.logger.Debug("上一次 tick 尚未结束，跳过", zap.String("user_id", userID))
		return report
	}
	defer s.ticking.Store(false)

	if s.lock != nil {
		key := lockKeyPrefix + userID
		token, ok, err := s.lock.AcquireLock(ctx, key, s.lockTTL)
		switch {
		case err != nil:
			s.logger.Warn("获取 tick 锁失败，降级为本地执行", zap.String("user_id", userID), zap.Error(err))
		case !ok:
			report.Skipped = SkipLocked
			return report
		default:
			defer s.releaseLock(key, token)
		}
	}

	reminders, err := s.snapshot(ctx, userID)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			report.Skipped = SkipBreakerOpen
		} else {
			report.Skipped = SkipSnapshotFailed
		}
		s.logger.Warn("读取提醒快照失败，本次 tick 跳过",
			zap.String("user_id", userID),
			zap.String("reason", string(report.Skipped)),
			zap.Error(err),
		)
		return report
	}

	for i := range reminders {
		if ctx.Err() != nil {
			report.Aborted = true
			break
		}

		r := &reminders[i]
		report.Evaluated++

		switch Evaluate(r, now) {
		case StateIdle:
		case StateSuppressed:
			report.Suppressed++
		case StateFired:
			s.fire(ctx, userID, r, now, &report)
		}
	}

	if report.Fired > 0 || report.EmitFailed > 0 || report.BookkeepingFailed > 0 {
		s.logger.Info("提醒 tick 完成",
			zap.String("user_id", userID),
			zap.Int("evaluated", report.Evaluated),
			zap.Int("fired", report.Fired),
			zap.Int("suppressed", report.Suppressed),
			zap.Int("emit_failed", report.EmitFailed),
			zap.Int("bookkeeping_failed", report.BookkeepingFailed),
		)
	}
	return report
}

// fire 先发出通知，再记录触发时间
// 记账失败不回滚已发出的通知，只重试一次
func (s *Scheduler) fire(ctx context.Context, userID string, r *model.Reminder, now time.Time, report *TickReport) {
	if _, err := s.notifications.Append(ctx, userID, notificationFor(r)); err != nil {
		report.EmitFailed++
		s.logger.Error("提醒通知发出失败",
			zap.String("user_id", userID),
			zap.String("reminder_id", r.ReminderID),
			zap.Error(err),
		)
		return
	}
	report.Fired++

	err := s.reminders.MarkTriggered(ctx, userID, r.ReminderID, now)
	if err == nil {
		return
	}
	if errors.Is(err, pkgerrors.ErrNotFound) {
		// 提醒在本次 tick 中被删除
		s.logger.Info("提醒已删除，跳过触发记账", zap.String("reminder_id", r.ReminderID))
		return
	}

	s.logger.Warn("触发记账失败，重试一次",
		zap.String("user_id", userID),
		zap.String("reminder_id", r.ReminderID),
		zap.Error(err),
	)
	if err := s.reminders.MarkTriggered(ctx, userID, r.ReminderID, now); err != nil {
		report.BookkeepingFailed++
		s.logger.Error("触发记账重试失败，下一次 tick 可能重复提醒",
			zap.String("user_id", userID),
			zap.String("reminder_id", r.ReminderID),
			zap.Error(err),
		)
	}
}

func (s *Scheduler) snapshot(ctx context.Context, userID string) ([]model.Reminder, error) {
	if s.breaker == nil {
		return s.reminders.Snapshot(ctx, userID)
	}

	out, err := s.breaker.Execute(func() (interface{}, error) {
		return s.reminders.Snapshot(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return out.([]model.Reminder), nil
}

func (s *Scheduler) releaseLock(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := s.lock.ReleaseLock(ctx, key, token); err != nil {
		s.logger.Warn("释放 tick 锁失败", zap.String("key", key), zap.Error(err))
	}
}
