package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ogurasousui/shaho-compliance/internal/adapters/grpc/handler"
	redisnotify "github.com/ogurasousui/shaho-compliance/internal/adapters/notify/redis"
	"github.com/ogurasousui/shaho-compliance/internal/adapters/repository/postgres"
	"github.com/ogurasousui/shaho-compliance/internal/core/changehistory"
	"github.com/ogurasousui/shaho-compliance/internal/core/employee"
	"github.com/ogurasousui/shaho-compliance/internal/core/premium"
	"github.com/ogurasousui/shaho-compliance/internal/platform/config"
	pg "github.com/ogurasousui/shaho-compliance/internal/platform/db/postgres"
	"github.com/ogurasousui/shaho-compliance/internal/platform/logging"
	"github.com/ogurasousui/shaho-compliance/internal/platform/server"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	dbPool, err := pg.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("init database pool: %w", err)
	}
	defer dbPool.Close()

	txManager := pg.NewTransactionManager(dbPool, logger)

	notifier, closeNotifier, err := newNotifier(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer closeNotifier()

	historySvc := changehistory.NewService(
		postgres.NewChangeHistoryRepository(dbPool), nil, txManager,
		changehistory.WithLogger(logger.Named("changehistory")),
	)
	premiumSvc := premium.NewService(
		postgres.NewUncollectedPremiumRepository(dbPool), nil, txManager,
		premium.WithNotifier(notifier),
		premium.WithLogger(logger.Named("premium")),
	)
	employeeSvc := employee.NewService(
		postgres.NewEmployeeRepository(dbPool), nil, txManager,
		employee.WithHistoryRecorder(historySvc),
		employee.WithPremiumPurger(premiumSvc),
		employee.WithLogger(logger.Named("employee")),
	)

	complianceHandler := handler.NewComplianceHandler(employeeSvc, historySvc, premiumSvc, logger.Named("grpc"))
	grpcServer := server.New(cfg.Server.ListenAddr, complianceHandler, logger.Named("server"))

	if err := grpcServer.Run(ctx); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// newNotifier は Redis が設定されていれば Redis Pub/Sub を、そうでなければプロセス内通知を返します。
func newNotifier(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (premium.Notifier, func(), error) {
	if !cfg.Enabled() {
		logger.Info("redis disabled; uncollected premium feed is process-local")
		return premium.NewLocalNotifier(), func() {}, nil
	}

	rdb, err := redisnotify.NewClient(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init redis: %w", err)
	}
	logger.Info("redis notifier enabled", zap.String("addr", cfg.Addr), zap.String("channel", cfg.Channel))

	return redisnotify.NewNotifier(rdb, cfg.Channel, logger.Named("redis")), func() { _ = rdb.Close() }, nil
}
