package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"remidi/backend/config"
	"remidi/backend/internal/api/handler"
	"remidi/backend/internal/api/middleware"
	"remidi/backend/internal/api/router"
	"remidi/backend/internal/queue"
	"remidi/backend/internal/repository"
	"remidi/backend/internal/scheduler"
	"remidi/backend/internal/service"
	"remidi/backend/pkg/database"
	"remidi/backend/pkg/jwt"
	applogger "remidi/backend/pkg/logger"
	"remidi/backend/pkg/redis"
	"remidi/backend/pkg/ws"
)

func main() {
	// 1. 加载配置（REMIDI_CONFIG 指定文件路径）
	cfg, err := config.Load(os.Getenv("REMIDI_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("scheduler", cfg.Scheduler.Enabled),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单、登录限流与跨实例 tick 锁将不可用", zap.Error(err))
		rdb = nil
	}

	// 5. 初始化 JWT 管理器与实时推送
	jwtMgr := jwt.NewManager(&cfg.Auth)
	hub := ws.NewHub(logger)

	notifiers := []service.NotificationNotifier{handler.NewHubNotifier(hub)}

	// 5.1 RabbitMQ（可选）
	var publisher *queue.Publisher
	if cfg.RabbitMQ.Enabled {
		publisher, err = queue.NewPublisher(&cfg.RabbitMQ, logger)
		if err != nil {
			logger.Warn("RabbitMQ 连接失败，新通知不会投递到消息队列", zap.Error(err))
		} else {
			notifiers = append(notifiers, publisher)
		}
	}

	// 6. 依赖注入: Repository → Service → Scheduler → Handler
	opts := service.Options{Clock: clockwork.NewRealClock(), Notifiers: notifiers}
	if rdb != nil {
		opts.Blacklist = rdb
	}
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwtMgr, logger, opts)

	var sessions *scheduler.Manager
	if cfg.Scheduler.Enabled {
		mgrCfg := scheduler.ManagerConfig{
			IdleTimeout: cfg.Scheduler.SessionIdleTimeout,
			ReapSpec:    cfg.Scheduler.ReapSpec,
			LockTTL:     cfg.Scheduler.LockTTL,
		}
		if rdb != nil {
			mgrCfg.Lock = rdb
		}
		sessions = scheduler.NewManager(svc.Reminder, svc.Notification, opts.Clock, logger.Named("scheduler"), mgrCfg)
		if err := sessions.Start(); err != nil {
			logger.Fatal("启动提醒调度失败", zap.Error(err))
		}
		svc.SetSessionHook(sessions)
	}

	h := handler.NewHandler(svc, hub, logger)

	// 7. 初始化路由
	deps := router.Deps{
		Health: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return sqlDB.PingContext(ctx)
		},
	}
	var blacklist middleware.TokenBlacklist
	var toucher middleware.SessionToucher
	if rdb != nil {
		blacklist = rdb
		deps.Limiter = rdb
	}
	if sessions != nil {
		toucher = sessions
	}
	deps.Auth = middleware.NewAuthenticator(jwtMgr, blacklist, toucher, logger)
	engine := router.Setup(cfg, h, deps, logger)

	// 8. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     engine,
		ReadTimeout: 15 * time.Second,
		// WebSocket 长连接不设置 WriteTimeout，由连接自身的写超时控制
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 先停调度，再关闭其依赖的存储
	if sessions != nil {
		sessions.Shutdown()
	}

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Warn("关闭 RabbitMQ 连接失败", zap.Error(err))
		}
	}

	if err := sqlDB.Close(); err != nil {
		logger.Warn("关闭数据库连接失败", zap.Error(err))
	}

	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
