package cmd

import (
	"context"
	"errors"
	"testing"

	coreconfig "github.com/m3rciful/reportbot/core/config"
	"github.com/m3rciful/reportbot/core/server"
	coretelegram "github.com/m3rciful/reportbot/core/telegram"
)

type testApp struct {
	srv    *server.Server
	closed bool
}

func (a *testApp) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{}, nil
}

func (a *testApp) HTTPServer() *server.Server { return a.srv }

func (a *testApp) Close() error {
	a.closed = true
	return nil
}

func baseOptions(app *testApp, run func(context.Context, coretelegram.RunOptions) error) Options {
	return Options{
		ConfigEnvVar:      "REPORTBOT_TEST_CONFIG",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(string) (ConfigCarrier, error) {
			return &coreconfig.Config{}, nil
		},
		Bootstrap: func(context.Context, ConfigCarrier) (TelegramApp, error) {
			return app, nil
		},
		ShutdownLogger: func() error { return nil },
		RunTelegram:    run,
	}
}

func TestRunRequiresHooks(t *testing.T) {
	if err := Run(Options{}); err == nil {
		t.Fatal("expected error without LoadConfig")
	}
	if err := Run(Options{LoadConfig: func(string) (ConfigCarrier, error) { return nil, nil }}); err == nil {
		t.Fatal("expected error without Bootstrap")
	}
}

func TestRunPropagatesBotErrorAndClosesApp(t *testing.T) {
	boom := errors.New("transport gone")
	app := &testApp{srv: server.New(server.Options{Listen: "127.0.0.1", Port: 0})}
	var started bool
	err := Run(baseOptions(app, func(ctx context.Context, opts coretelegram.RunOptions) error {
		if opts.OnStart == nil || opts.OnStop == nil {
			t.Fatal("lifecycle hooks not installed")
		}
		started = true
		return boom
	}))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if !started {
		t.Fatal("bot not run")
	}
	if !app.closed {
		t.Fatal("app not closed")
	}
}

func TestRunUsesConfigPathFromEnv(t *testing.T) {
	t.Setenv("REPORTBOT_TEST_CONFIG", "/etc/reportbot.yaml")
	app := &testApp{}
	opts := baseOptions(app, func(context.Context, coretelegram.RunOptions) error { return nil })
	var gotPath string
	opts.LoadConfig = func(path string) (ConfigCarrier, error) {
		gotPath = path
		return &coreconfig.Config{}, nil
	}
	if err := Run(opts); err != nil {
		t.Fatalf("run: %v", err)
	}
	if gotPath != "/etc/reportbot.yaml" {
		t.Fatalf("config path = %q", gotPath)
	}
}

func TestRunStopsOnBootstrapFailure(t *testing.T) {
	boom := errors.New("db down")
	opts := baseOptions(&testApp{}, func(context.Context, coretelegram.RunOptions) error {
		t.Fatal("bot started after failed bootstrap")
		return nil
	})
	opts.Bootstrap = func(context.Context, ConfigCarrier) (TelegramApp, error) { return nil, boom }
	if err := Run(opts); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}
