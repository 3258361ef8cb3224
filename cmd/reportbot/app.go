package main

import (
	"context"

	"github.com/m3rciful/reportbot/core/bootstrap"
	coreconfig "github.com/m3rciful/reportbot/core/config"
	"github.com/m3rciful/reportbot/core/server"
	coretelegram "github.com/m3rciful/reportbot/core/telegram"
	"github.com/m3rciful/reportbot/core/telegram/router"
	"github.com/m3rciful/reportbot/core/telegram/sender"
	"github.com/m3rciful/reportbot/core/telegram/state"
	"github.com/m3rciful/reportbot/internal/compliance"
	"github.com/m3rciful/reportbot/internal/journal"
)

type app struct {
	cfg    *coreconfig.Config
	infra  *bootstrap.Result
	source coretelegram.Source
	store  state.Store[compliance.PendingReport]
	jrnl   *journal.Postgres
	srv    *server.Server
}

func newApp(ctx context.Context, cfg *coreconfig.Config) (*app, error) {
	infra, err := bootstrap.Run(ctx, bootstrap.Options{Config: cfg})
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, infra: infra, source: coretelegram.BuildSource(cfg)}

	if infra.Redis != nil {
		a.store = state.NewRedisStore[compliance.PendingReport](infra.Redis, cfg.Session.KeyPrefix, cfg.Session.SessionTTL())
	} else {
		a.store = state.NewMemoryStore[compliance.PendingReport]()
	}
	if infra.DB != nil {
		a.jrnl = journal.NewPostgres(infra.DB)
	}

	if cfg.HTTP.Port > 0 {
		opts := server.Options{Listen: cfg.HTTP.Listen, Port: cfg.HTTP.Port}
		if hook, ok := a.source.(*coretelegram.WebhookSource); ok {
			opts.Webhook = hook
		}
		a.srv = server.New(opts)
	}
	return a, nil
}

func (a *app) HTTPServer() *server.Server { return a.srv }

func (a *app) Close() error { return a.infra.Close() }

func (a *app) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	return coretelegram.RunOptions{
		Config:   a.cfg,
		Registry: reg,
		Source:   a.source,
		Sender:   sender.New(sender.Options{MaxRetries: 2}),
		Setup: func(_ context.Context, rt coretelegram.Runtime) ([]coretelegram.Route, error) {
			notifier, err := compliance.NewChannelNotifier(rt.Gateway, a.cfg.Report.DestinationChat)
			if err != nil {
				return nil, err
			}
			deps := compliance.Deps{
				Store:          a.store,
				Replier:        compliance.NewTelegramReplier(rt.Gateway),
				Notifier:       notifier,
				Location:       a.cfg.Report.Location(),
				DefaultRemarks: a.cfg.Report.DefaultCaption,
			}
			var history compliance.History
			if a.jrnl != nil {
				deps.Journal, history = a.jrnl, a.jrnl
			}
			wf, err := compliance.NewWorkflow(deps)
			if err != nil {
				return nil, err
			}
			if err := compliance.Register(reg, wf, history); err != nil {
				return nil, err
			}

			routes := router.CommandRoutes(reg)
			routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
			return append(routes, router.MessageRoutes(reg)...), nil
		},
	}, nil
}
