package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	shopbookv1 "shopbook/backend/internal/api/shopbook/v1"
	"shopbook/backend/internal/auth"
	"shopbook/backend/internal/config"
	"shopbook/backend/internal/events"
	"shopbook/backend/internal/service/appointments"
	"shopbook/backend/internal/store"
	"shopbook/backend/internal/store/memory"
	"shopbook/backend/internal/store/postgres"
	"shopbook/backend/internal/telemetry"
	grpcTransport "shopbook/backend/internal/transport/grpc"
)

const serviceName = "shopbook-server"

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

// run returns instead of exiting so deferred cleanups always execute.
func run() error {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", serviceName),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		return err
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", serviceName),
	)
	slog.SetDefault(log)

	log.Info(
		"starting",
		slog.String("grpc_addr", cfg.GRPCAddr()),
		slog.String("log_level", cfg.LogLevel),
		slog.String("database_driver", cfg.DatabaseDriver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  serviceName,
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSampleRatio,
	})
	if err != nil {
		log.Error("telemetry setup failed", slog.Any("err", err))
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("telemetry shutdown failed", slog.Any("err", err))
		}
	}()

	repo, readyCheck, closeRepo, err := openRepository(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.KafkaBrokers != "" {
		kp := events.NewKafkaPublisher(events.KafkaConfig{
			Brokers:      cfg.KafkaBrokers,
			TopicPrefix:  cfg.KafkaTopicPrefix,
			WriteTimeout: cfg.KafkaWriteTimeout,
		})
		defer func() {
			if err := kp.Close(); err != nil {
				log.Warn("kafka writer close failed", slog.Any("err", err))
			}
		}()

		async := events.NewAsyncPublisher(kp, events.AsyncConfig{
			Buffer:      cfg.KafkaPublishBuffer,
			MaxAttempts: cfg.KafkaPublishMaxAttempts,
		}, log)
		pubCtx, cancelPub := context.WithCancel(context.Background())
		go async.Run(pubCtx)
		// Registered after kp.Close so the queue drains before the writer closes.
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := async.Close(dctx); err != nil {
				log.Warn("event queue not drained", slog.Any("err", err))
			}
			cancelPub()
		}()

		publisher = async
		log.Info("publishing appointment events", slog.String("brokers", cfg.KafkaBrokers), slog.String("topic_prefix", cfg.KafkaTopicPrefix))
	}

	svc := appointments.NewService(repo, appointments.Config{
		SlotDuration: cfg.SlotDuration,
		Capacity:     cfg.Capacity,
	}, appointments.Options{
		Publisher: publisher,
		Logger:    log,
	})
	rules := svc.Config()
	log.Info("scheduler configured", slog.Duration("slot_duration", rules.SlotDuration), slog.Int("capacity", rules.Capacity))

	interceptors := []grpc.UnaryServerInterceptor{
		grpcTransport.RequestIDInterceptor(),
		grpcTransport.RequestTimeoutInterceptor(cfg.GRPCRequestTimeout),
		// Every health method is public so load balancers can probe without a token.
		grpcTransport.AuthInterceptor(auth.NewVerifier(cfg.JWTSecret), log, "/"+healthpb.Health_ServiceDesc.ServiceName+"/"),
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Warn("redis close failed", slog.Any("err", err))
			}
		}()
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rdb.Ping(pctx).Err(); err != nil {
			log.Warn("redis ping failed", slog.Any("err", err), slog.String("redis_addr", cfg.RedisAddr))
		}
		cancel()

		interceptors = append(interceptors, grpcTransport.RateLimitInterceptor(
			grpcTransport.NewRedisCounter(rdb),
			grpcTransport.RateLimitConfig{
				Limit:    cfg.RateLimitCreatePerMin,
				Window:   time.Minute,
				Prefix:   "shopbook:rl",
				FailOpen: cfg.RateLimitFailOpen,
				Methods:  []string{shopbookv1.AppointmentsService_CreateAppointment_FullMethodName},
			},
			log,
		))
		log.Info("create rate limit enabled", slog.Int("per_minute", cfg.RateLimitCreatePerMin))
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(interceptors...),
	)
	shopbookv1.RegisterAppointmentsServiceServer(grpcServer, grpcTransport.NewAppointmentsServer(svc, log))

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	go watchReadiness(ctx, log, healthServer, readyCheck)

	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr()))
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- grpcServer.Serve(lis)
	}()

	log.Info("grpc server started", slog.String("grpc_addr", cfg.GRPCAddr()))

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		healthServer.Shutdown()
		shutdown(log, grpcServer, cfg.ShutdownTimeout)
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error("grpc server stopped with error", slog.Any("err", err))
			return err
		}
	}
	return nil
}

func openRepository(ctx context.Context, log *slog.Logger, cfg config.Config) (store.AppointmentRepository, func(context.Context) error, func(), error) {
	if cfg.DatabaseDriver == config.DatabaseDriverMemory {
		log.Warn("using in-memory appointment store; data is lost on restart")
		return memory.NewAppointmentRepo(), func(context.Context) error { return nil }, func() {}, nil
	}

	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	dctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	db, err := postgres.Open(dctx, cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		return nil, nil, nil, err
	}

	closeDB := func() {
		if err := postgres.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}
	return postgres.NewAppointmentRepo(db), postgres.ReadyCheck(db), closeDB, nil
}

// watchReadiness flips the health status with the store's availability.
func watchReadiness(ctx context.Context, log *slog.Logger, hs *health.Server, check func(context.Context) error) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	serving := healthpb.HealthCheckResponse_UNKNOWN
	for {
		cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := check(cctx)
		cancel()

		next := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			next = healthpb.HealthCheckResponse_NOT_SERVING
		}
		if next != serving {
			if err != nil {
				log.Warn("store not ready", slog.Any("err", err))
			} else {
				log.Info("store ready")
			}
			hs.SetServingStatus("", next)
			hs.SetServingStatus(shopbookv1.ServiceName, next)
			serving = next
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func shutdown(log *slog.Logger, s *grpc.Server, timeout time.Duration) {
	log.Info("shutting down grpc server", slog.Duration("timeout", timeout))

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-timer.C:
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		s.Stop()
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
