package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	coreconfig "github.com/m3rciful/reportbot/core/config"
	coredatabase "github.com/m3rciful/reportbot/core/database"
	"github.com/m3rciful/reportbot/core/logger"
)

// Options control the bootstrap pipeline. Nil hooks use the real implementations.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(context.Context, coreconfig.DatabaseConfig) (*sqlx.DB, error)
	Migrate    func(context.Context, coreconfig.DatabaseConfig) error
	Redis      func(coreconfig.SessionConfig) redis.UniversalClient
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
// DB is nil unless the journal is enabled; Redis is nil unless the
// session backend is redis.
type Result struct {
	DB    *sqlx.DB
	Redis redis.UniversalClient
}

// Close releases the connections held by r.
func (r *Result) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.Redis != nil {
		errs = append(errs, r.Redis.Close())
	}
	if r.DB != nil {
		errs = append(errs, r.DB.Close())
	}
	return errors.Join(errs...)
}

// Run initializes the logger, then the optional journal database (with
// migrations) and the optional Redis session client.
func Run(ctx context.Context, opts Options) (*Result, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	res := &Result{}
	if cfg.JournalEnabled() {
		connect := opts.Connect
		if connect == nil {
			connect = coredatabase.Connect
		}
		migrate := opts.Migrate
		if migrate == nil {
			migrate = coredatabase.RunMigrations
		}
		if err := migrate(ctx, cfg.Database); err != nil {
			return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
		}
		db, err := connect(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
		}
		res.DB = db
	}

	if cfg.Session.Backend == coreconfig.SessionRedis {
		newClient := opts.Redis
		if newClient == nil {
			newClient = NewRedisClient
		}
		client := newClient(cfg.Session)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = client.Close()
			_ = res.Close()
			return nil, fmt.Errorf("bootstrap: redis ping %s: %w", cfg.Session.RedisAddr, err)
		}
		logger.L.Info("redis connected",
			slog.String("component", "session"),
			slog.String("event", "redis.connect"),
			slog.String("addr", cfg.Session.RedisAddr),
			slog.Int("db", cfg.Session.RedisDB),
		)
		res.Redis = client
	}

	return res, nil
}

// NewRedisClient builds the session store client from configuration.
func NewRedisClient(s coreconfig.SessionConfig) redis.UniversalClient {
	return redis.NewClient(&redis.Options{
		Addr:     s.RedisAddr,
		Password: s.RedisPassword,
		DB:       s.RedisDB,
	})
}
