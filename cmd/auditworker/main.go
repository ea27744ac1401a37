package main

import (
	"context"
	"log/slog"
	"os"

	"bidhub/config"
	"bidhub/internal/delivery"
	"bidhub/internal/delivery/worker"
	"bidhub/internal/delivery/worker/handler"
	logs "bidhub/internal/infra/log"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		fx.Provide(
			config.New,
			logs.New,
			handler.NewAuditHandler,
			fx.Annotate(
				worker.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func startServer(params startServerParams) {
	params.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			for _, d := range params.Deliveries {
				go func() {
					if err := d.Serve(context.WithoutCancel(ctx)); err != nil {
						slog.Error("Failed to start worker", slog.Any("error", err))
						os.Exit(1)
					}
				}()
			}

			return nil
		},
	})
}
