package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/config"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	appHTTP "github.com/cmlabs-hris/hris-payroll-go/internal/handler/http"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/cache"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/logger"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/messaging"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-payroll-go/internal/repository/postgresql"
	auditService "github.com/cmlabs-hris/hris-payroll-go/internal/service/audit"
	notificationService "github.com/cmlabs-hris/hris-payroll-go/internal/service/notification"
	payrollService "github.com/cmlabs-hris/hris-payroll-go/internal/service/payroll"
	salaryService "github.com/cmlabs-hris/hris-payroll-go/internal/service/salary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Name, cfg.App.Env, cfg.App.LogLevel)
	log.Info().Str("version", cfg.App.Version).Msg("starting payroll service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolConfig{
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db.Pool); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
	}

	auditDB := db.SQLX()
	defer auditDB.Close()

	// Repositories
	payrollRepo := postgresql.NewPayrollRepository(db)
	salaryRepo := postgresql.NewSalaryRepository(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	lockRepo := postgresql.NewMonthLockRepository(db)
	notificationRepo := postgresql.NewNotificationRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	leaveRepo := postgresql.NewLeaveRequestRepository(db)
	holidayRepo := postgresql.NewHolidayRepository(db)
	auditRepo := postgresql.NewAuditLogRepository(auditDB)
	transactor := postgresql.NewTransactor(db)

	// Notification dedupe falls back to the database unique key without Redis
	var deduper notification.Deduper
	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.MaxRetries, log)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, dedupe limited to database")
		} else {
			defer rdb.Close()
			deduper = notificationService.NewRedisDeduper(rdb)
		}
	}

	var publisher payroll.EventPublisher = messaging.NopPublisher{}
	if cfg.RabbitMQ.URL != "" {
		rmq, err := messaging.New(cfg.RabbitMQ.URL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		publisher, err = messaging.NewPublisher(rmq, cfg.RabbitMQ.Exchange, cfg.App.Name, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
	}

	// Services
	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	hub := sse.NewHub()
	notifSvc := notificationService.NewNotificationService(notificationRepo, hub, deduper, notificationService.Config{
		BatchSize:     cfg.Notification.BatchSize,
		FlushInterval: cfg.Notification.FlushInterval,
		WorkerCount:   cfg.Notification.WorkerCount,
		QueueSize:     cfg.Notification.QueueSize,
		DedupeTTL:     cfg.Notification.DedupeTTL,
	}, log)
	auditSvc := auditService.NewAuditService(auditRepo, log)
	calculator := payrollService.NewCalculator(holidayRepo, attendanceRepo, leaveRepo)
	payrollSvc := payrollService.NewPayrollService(
		transactor,
		payrollRepo,
		employeeRepo,
		salaryRepo,
		lockRepo,
		calculator,
		auditSvc,
		notifSvc,
		publisher,
		log,
	)
	salarySvc := salaryService.NewSalaryService(transactor, salaryRepo, employeeRepo, auditSvc, notifSvc, log)

	// Handlers
	router := appHTTP.NewRouter(appHTTP.RouterConfig{
		AppName:        cfg.App.Name,
		Version:        cfg.App.Version,
		Env:            cfg.App.Env,
		AllowedOrigins: cfg.App.AllowedOrigins,
		LogLevel:       slogLevel(cfg.App.LogLevel),
	}, JWTService, appHTTP.Handlers{
		Payroll:      appHTTP.NewPayrollHandler(payrollSvc),
		Salary:       appHTTP.NewSalaryHandler(salarySvc),
		Audit:        appHTTP.NewAuditHandler(auditSvc),
		Notification: appHTTP.NewNotificationHandler(notifSvc, JWTService),
	})

	// No write timeout: the notification stream holds its response open
	addr := fmt.Sprintf(":%d", cfg.App.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Drain queued notifications before the pool closes
	notifSvc.Stop()

	log.Info().Msg("server stopped")
}

func slogLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
