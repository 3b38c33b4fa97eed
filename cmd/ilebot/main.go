package main

import (
	"context"
	"fmt"
	"log"

	"github.com/ileafrica/ilebot/core/cmd"
	"github.com/ileafrica/ilebot/internal/app"
)

func main() {
	err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			return app.Load(path)
		},
		Bootstrap: func(ctx context.Context, c cmd.ConfigCarrier) (cmd.TelegramApp, error) {
			cfg, ok := c.(*app.Config)
			if !ok {
				return nil, fmt.Errorf("unexpected config type %T", c)
			}
			a, err := app.Bootstrap(ctx, cfg)
			if err != nil {
				return nil, err
			}
			return a, nil
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}
