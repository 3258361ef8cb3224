// Package cmd runs a bootstrapped bot process: it loads configuration,
// starts the optional HTTP surface next to the Telegram runtime and tears
// both down on a signal.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	coreconfig "github.com/m3rciful/reportbot/core/config"
	"github.com/m3rciful/reportbot/core/logger"
	"github.com/m3rciful/reportbot/core/server"
	coretelegram "github.com/m3rciful/reportbot/core/telegram"
)

// ConfigCarrier exposes the core configuration of a loaded config.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp builds the options the Telegram runtime starts with.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
}

// HTTPApp is implemented by apps that serve HTTP next to the bot.
// HTTPServer may return nil when no listener is configured.
type HTTPApp interface {
	HTTPServer() *server.Server
}

type Options struct {
	// ConfigEnvVar names the variable holding the config path. Defaults to CONFIG_PATH.
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (ConfigCarrier, error)
	Bootstrap  func(ctx context.Context, cfg ConfigCarrier) (TelegramApp, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
	// Signals defaults to SIGINT and SIGTERM.
	Signals []os.Signal
}

func (o Options) configPath() string {
	env := o.ConfigEnvVar
	if env == "" {
		env = "CONFIG_PATH"
	}
	if p := os.Getenv(env); p != "" {
		return p
	}
	return o.DefaultConfigPath
}

func appLog() *slog.Logger { return logger.Component("app") }

// Run loads configuration, bootstraps the app, and runs the bot and its
// HTTP surface until a signal arrives or either of them fails.
// Apps implementing io.Closer are closed after the bot stops.
func Run(opts Options) error {
	if opts.LoadConfig == nil {
		return errors.New("cmd: LoadConfig is required")
	}
	if opts.Bootstrap == nil {
		return errors.New("cmd: Bootstrap is required")
	}

	path := opts.configPath()
	log.Printf("loading config: %s", path)
	cfg, err := opts.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("cmd: load config: %w", err)
	}
	if cfg == nil || cfg.CoreConfig() == nil {
		return errors.New("cmd: loaded config has no core section")
	}

	signals := opts.Signals
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	ctx, cancel := signal.NotifyContext(context.Background(), signals...)
	defer cancel()

	startedAt := time.Now()
	app, err := opts.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap: %w", err)
	}
	defer flushLogger(opts.ShutdownLogger)
	if c, ok := app.(io.Closer); ok {
		defer closeApp(c)
	}

	runOpts, err := app.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options: %w", err)
	}
	wrapLifecycle(&runOpts, startedAt)

	var srv *server.Server
	if h, ok := app.(HTTPApp); ok {
		srv = h.HTTPServer()
	}
	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()
	httpDone := serve(srv, stopRun)

	run := opts.RunTelegram
	if run == nil {
		run = coretelegram.RunTelegram
	}
	runErr := run(runCtx, runOpts)
	if srv == nil {
		return runErr
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	shutdownErr := srv.Shutdown(shutdownCtx)
	if serveErr := <-httpDone; serveErr != nil {
		runErr = errors.Join(runErr, fmt.Errorf("cmd: http server: %w", serveErr))
	}
	return errors.Join(runErr, shutdownErr)
}

// serve runs srv in the background. A listener failure stops the bot via
// stop. The returned channel yields the serve result once.
func serve(srv *server.Server, stop context.CancelFunc) <-chan error {
	done := make(chan error, 1)
	if srv == nil {
		done <- nil
		return done
	}
	go func() {
		err := srv.Run()
		if err != nil {
			stop()
		}
		done <- err
	}()
	return done
}

// wrapLifecycle adds the app ready/shutdown lines around the run hooks.
func wrapLifecycle(opts *coretelegram.RunOptions, startedAt time.Time) {
	onStart, onStop := opts.OnStart, opts.OnStop
	opts.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if onStart != nil {
			if err := onStart(ctx, rt); err != nil {
				return err
			}
		}
		appLog().Info("app ready",
			slog.String("event", "ready"),
			slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
		)
		return nil
	}
	opts.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		appLog().Info("shutting down", slog.String("event", "shutdown"))
		if onStop != nil {
			return onStop(ctx, rt)
		}
		return nil
	}
}

func closeApp(c io.Closer) {
	if err := c.Close(); err != nil {
		appLog().Warn("close failed", slog.String("event", "shutdown"), slog.String("err", err.Error()))
	}
}

func flushLogger(shutdown func() error) {
	if shutdown == nil {
		shutdown = logger.Shutdown
	}
	if err := shutdown(); err != nil {
		log.Printf("logger shutdown error: %v", err)
	}
}
