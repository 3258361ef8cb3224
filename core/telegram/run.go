package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/reportbot/core/config"
	"github.com/m3rciful/reportbot/core/logger"
	tghelpers "github.com/m3rciful/reportbot/core/telegram/helpers"
	"github.com/m3rciful/reportbot/core/telegram/netutil"
	"github.com/m3rciful/reportbot/core/telegram/sender"
	"github.com/m3rciful/reportbot/core/telegram/sequencer"

	tele "gopkg.in/telebot.v4"
)

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	// Source overrides the update source selected by Config.Telegram.RunMode.
	Source    Source
	Sender    *sender.Sender
	Sequencer *sequencer.Sequencer

	// Middlewares replaces DefaultMiddlewares when non-nil.
	Middlewares []Middleware
	// Setup runs once the bot exists and returns the routes to bind.
	Setup func(ctx context.Context, rt Runtime) ([]Route, error)

	// ShutdownTimeout bounds how long in-flight lanes may run after stop.
	ShutdownTimeout time.Duration

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Bot      *tele.Bot
	Gateway  *Gateway
	Sender   *sender.Sender
	Registry *Registry
	Source   Source
}

// BuildSource returns the update source selected by configuration.
func BuildSource(cfg *coreconfig.Config) Source {
	backoff := netutil.Backoff{Initial: time.Second, Max: defaultBackoffMax}
	if strings.EqualFold(cfg.Telegram.RunMode, coreconfig.RunModeWebhook) {
		return NewWebhookSource(WebhookOptions{
			PublicURL:   cfg.Webhook.WebhookURL(),
			Secret:      cfg.Webhook.Secret,
			MaxFailures: cfg.Telegram.MaxTransportFailures,
			Backoff:     backoff,
		})
	}
	return NewPollSource(PollOptions{
		Timeout:     longPollTimeout(cfg),
		MaxFailures: cfg.Telegram.MaxTransportFailures,
		Backoff:     backoff,
	})
}

func longPollTimeout(cfg *coreconfig.Config) time.Duration {
	if cfg.Telegram.LongPollTimeoutSeconds > 0 {
		return time.Duration(cfg.Telegram.LongPollTimeoutSeconds) * time.Second
	}
	return 10 * time.Second
}

// RunTelegram composes and runs a Telegram bot until the context is done or
// the update source fails for good. A source failure is returned as a
// *TransportError; a cancelled context returns nil.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return fmt.Errorf("telegram: nil config provided")
	}

	cfg := opts.Config
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}
	source := opts.Source
	if source == nil {
		source = BuildSource(cfg)
	}
	seq := opts.Sequencer
	if seq == nil {
		seq = sequencer.New()
	}
	snd := opts.Sender
	if snd == nil {
		snd = sender.New(sender.Options{MaxRetries: 2})
	}
	tghelpers.SetSender(snd)
	defer tghelpers.SetSender(nil)

	buildStart := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:       cfg.Telegram.Token,
		Poller:      source,
		Client:      BuildHTTPClient(longPollTimeout(cfg)),
		Synchronous: true,
		OnError:     logHandlerError,
	})
	if err != nil {
		return fmt.Errorf("telegram: bot initialization failed: %w", err)
	}

	rt := Runtime{
		Bot:      bot,
		Gateway:  NewGateway(bot, snd),
		Sender:   snd,
		Registry: reg,
		Source:   source,
	}

	var routes []Route
	if opts.Setup != nil {
		if routes, err = opts.Setup(ctx, rt); err != nil {
			return err
		}
	}

	mws := opts.Middlewares
	if mws == nil {
		mws = DefaultMiddlewares(seq, logHandlerError)
	}
	for _, mw := range mws {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	for _, route := range routes {
		if route.Endpoint == nil || route.Handler == nil {
			continue
		}
		bot.Handle(route.Endpoint, route.Handler)
	}
	InitBotCommands(bot, reg)

	logger.TG.Info("bot ready",
		slog.String("event", "mode"),
		slog.String("mode", strings.ToLower(cfg.Telegram.RunMode)),
		slog.String("bot", bot.Me.Username),
		slog.Duration("duration", logger.RoundMS(time.Since(buildStart))),
	)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}

	runDone := make(chan struct{})
	go func() {
		bot.Start()
		close(runDone)
	}()

	var (
		runErr  error
		stopped bool
	)
	select {
	case <-ctx.Done():
	case runErr = <-source.Err():
		logger.TG.Error("update source failed",
			slog.String("event", "source.fatal"),
			slog.String("err", sender.SanitizeError(runErr)),
		)
	case <-runDone:
		stopped = true
	}
	// Stop blocks until the polling loop acknowledges, so skip it once Start has returned.
	if !stopped {
		bot.Stop()
		<-runDone
	}

	timeout := opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	drainCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := seq.Close(drainCtx); err != nil {
		logger.TG.Warn("lanes not drained",
			slog.String("event", "shutdown.drain"),
			slog.Int("pending", seq.Pending()),
			slog.String("err", err.Error()),
		)
	}

	var stopErr error
	if opts.OnStop != nil {
		stopErr = opts.OnStop(drainCtx, rt)
	}

	return errors.Join(runErr, stopErr)
}

func logHandlerError(err error, c tele.Context) {
	if err == nil {
		return
	}
	ctx := context.Background()
	if c != nil {
		ctx = tghelpers.BuildContext(c)
	}
	logger.Error(ctx, "tg", "handler.error",
		slog.String("status", "fail"),
		slog.String("err", sender.SanitizeError(err)),
		slog.String("err_kind", sender.ClassifyError(err)),
	)
}
