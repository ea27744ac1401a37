package main

import (
	"context"
	"log/slog"
	"os"

	"bidhub/config"
	"bidhub/internal/delivery"
	"bidhub/internal/delivery/api"
	apimiddleware "bidhub/internal/delivery/api/middleware"
	"bidhub/internal/delivery/api/cookie"
	"bidhub/internal/delivery/api/router/handler"
	"bidhub/internal/infra/auth"
	"bidhub/internal/infra/cache"
	"bidhub/internal/infra/clock"
	logs "bidhub/internal/infra/log"
	"bidhub/internal/infra/notification"
	"bidhub/internal/infra/persistence"
	"bidhub/internal/infra/pubsub"
	"bidhub/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Options(
		fx.Provide(
			config.New,
			logs.New,
			context.Background,
			clock.New,
		),
		cache.Module,
		notification.Module,
		pubsub.Module,
	)
}

func injectRepo() fx.Option {
	return persistence.Module
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				auth.NewPasswordHasher,
				fx.ResultTags(`name:"passwordHasher"`),
			),
			fx.Annotate(
				auth.NewOTPHasher,
				fx.ResultTags(`name:"otpHasher"`),
			),
			auth.NewPasswordPolicy,
			auth.NewJWTService,
			auth.NewCSRFGuard,
		),
	)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewOTPService,
			impl.NewDeviceService,
			impl.NewAuthService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			cookie.NewJar,
			apimiddleware.NewErrorMiddleware,
			apimiddleware.NewCSRFMiddleware,
			apimiddleware.NewSessionMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewAuthHandler,
			handler.NewCSRFHandler,
			handler.NewHealthHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				api.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(params startServerParams) {
	params.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			for _, d := range params.Deliveries {
				go func() {
					if err := d.Serve(context.WithoutCancel(ctx)); err != nil {
						slog.Error("Failed to start server", slog.Any("error", err))
						os.Exit(1)
					}
				}()
			}

			return nil
		},
	})
}
