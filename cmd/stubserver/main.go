package main

import (
	"context"
	"log/slog"
	"os"

	"voiceid/config"
	"voiceid/internal/delivery"
	"voiceid/internal/delivery/http"
	"voiceid/internal/delivery/http/middleware"
	"voiceid/internal/delivery/http/router/handler"
	"voiceid/internal/domain/service"
	"voiceid/internal/infra/auth"
	logs "voiceid/internal/infra/log"
	"voiceid/internal/stubserver"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		fx.NopLogger,
		injectInfra(),
		injectService(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			newHasher,
			newMinter,
			stubserver.NewDirectory,
		),
	)
}

func newHasher(cfg *config.Config) (service.PasswordHasher, error) {
	if cfg.Stub == nil {
		return nil, errors.New("stub server configuration is missing")
	}

	return auth.NewBcryptHasher(cfg.Stub.BcryptCost), nil
}

func newMinter(cfg *config.Config) (*auth.TokenMinter, error) {
	if cfg.Stub == nil {
		return nil, errors.New("stub server configuration is missing")
	}

	return auth.NewTokenMinter(cfg.Stub.JWTSecret)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewAuthMiddleware,
			middleware.NewErrorMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewAuthHandler,
			handler.NewUserHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				http.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(context.Background()); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
