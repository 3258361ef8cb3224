package main

import (
	"context"
	"log"
	"os"

	_ "time/tzdata"

	corecmd "github.com/m3rciful/reportbot/core/cmd"
	coreconfig "github.com/m3rciful/reportbot/core/config"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return coreconfig.Load(path)
		},
		Bootstrap: func(ctx context.Context, cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			return newApp(ctx, cfg.CoreConfig())
		},
	})
	if err != nil {
		log.Printf("reportbot: %v", err)
		os.Exit(1)
	}
}
