package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/octabyte/license-client/auth"
	"github.com/octabyte/license-client/client"
	"github.com/octabyte/license-client/config"
	redisdb "github.com/octabyte/license-client/db/redis"
	"github.com/octabyte/license-client/enums"
	"github.com/octabyte/license-client/notify"
	"github.com/octabyte/license-client/otel"
	"github.com/octabyte/license-client/otel/metrics"
	"github.com/octabyte/license-client/queue"
	"github.com/octabyte/license-client/resources"
	"github.com/octabyte/license-client/session"
	"github.com/octabyte/license-client/utils/logger"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := 0
	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "licensectl: %v\n", err)
		code = 1
		if errors.Is(err, errUsage) {
			code = 2
		}
	}
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Logger())
	if err != nil {
		return err
	}
	logger.SetGlobal(log)
	defer logger.Sync()

	shutdownOtel, err := otel.InitOpenTelemetry(ctx, cfg.Telemetry())
	if err != nil {
		logger.LogWarn("telemetry disabled", zap.Error(err))
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := shutdownOtel(shutdownCtx); err != nil {
				logger.LogDebug("telemetry shutdown", zap.Error(err))
			}
		}()
	}

	if err := metrics.Init(cfg.ServiceName); err != nil {
		logger.LogWarn("metrics disabled", zap.Error(err))
	}

	persistence, closePersistence, err := openPersistence(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePersistence()

	notifier, navigator, closeNotify := openNotifications(cfg, log, os.Stderr)
	defer closeNotify()

	store := session.NewStore(ctx, persistence, session.WithLogger(log))
	c, err := client.New(cfg.Client(), store,
		client.WithNotifier(notifier),
		client.WithNavigator(navigator),
		client.WithLogger(log),
	)
	if err != nil {
		return err
	}

	a := &app{
		auth:      auth.NewService(c, store, auth.WithLogger(log)),
		api:       c,
		resources: resources.New(c),
		out:       os.Stdout,
		getenv:    os.Getenv,
	}
	return a.run(ctx, args)
}

func openPersistence(ctx context.Context, cfg *config.Config) (session.Persistence, func(), error) {
	switch cfg.Storage {
	case enums.StorageMemory:
		return session.NewMemoryPersistence(), func() {}, nil
	case enums.StorageRedis:
		rdb, err := redisdb.NewRedisClient(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		return redisdb.NewPersistence(rdb, cfg.Redis.Prefix, cfg.Redis.TTL), func() { _ = rdb.Close() }, nil
	default:
		p, err := session.NewFilePersistence(cfg.StorageDir)
		if err != nil {
			return nil, nil, err
		}
		return p, func() {}, nil
	}
}

// openNotifications always logs notifications and prints the login hint to
// w. With an AMQP URI both are also published to the notification queue.
func openNotifications(cfg *config.Config, log *zap.Logger, w io.Writer) (notify.Notifier, notify.Navigator, func()) {
	redirect := notify.NewLoginRedirect(log, func(_ context.Context, path string) {
		fmt.Fprintf(w, "session ended, run `licensectl login` (%s)\n", path)
	})
	notifier := notify.Notifier(notify.NewLogNotifier(log))

	if cfg.AMQP.URI == "" {
		return notifier, redirect, func() {}
	}

	conn, err := queue.NewConnection(queue.ConnectionConfig{
		URI:         cfg.AMQP.URI,
		QueueConfig: &queue.Config{Name: cfg.AMQP.Queue, Durable: true},
	})
	if err != nil {
		logger.LogWarn("notification queue unavailable", zap.Error(err))
		return notifier, redirect, func() {}
	}

	q := notify.NewQueueNotifier(queue.NewPublisher(conn.Ch, queue.PublishConfig{
		RoutingKey:   cfg.AMQP.Queue,
		DeliveryMode: 2,
	}), log)

	navigator := notify.NavigatorFunc(func(ctx context.Context) {
		redirect.RedirectToLogin(ctx)
		q.RedirectToLogin(ctx)
	})
	return notify.Multi(notifier, q), navigator, func() {
		_ = q.Close()
		_ = conn.Close()
	}
}
