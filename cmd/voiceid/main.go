package main

import (
	"context"
	"log/slog"
	"os"

	"voiceid/config"
	"voiceid/internal/delivery"
	"voiceid/internal/delivery/cli"
	"voiceid/internal/domain/repository"
	"voiceid/internal/domain/service"
	"voiceid/internal/infra/api"
	"voiceid/internal/infra/auth"
	"voiceid/internal/infra/codec"
	"voiceid/internal/infra/device"
	logs "voiceid/internal/infra/log"
	"voiceid/internal/infra/persistence/tokenfile"
	"voiceid/internal/infra/timing"
	"voiceid/internal/usecase/impl"

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
		injectUsecase(),
		injectDelivery(),
		fx.Invoke(
			initEncoder,
			startServer,
		),
	).Run()
}

// initEncoder kicks off the encoder's one-time initialization in the
// background; recording is refused until it completes.
func initEncoder(encoder service.AudioEncoder, logger *slog.Logger) {
	go func() {
		if err := encoder.Init(context.Background()); err != nil {
			logger.Error("Audio encoder failed to initialize", slog.Any("error", err))
		}
	}()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		newCredentialStore,
		newCaptureDevice,
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewClaimsDecoder,
			codec.NewWAVEncoder,
			codec.NewWAVProber,
			device.NewSimulatedPlayer,
			timing.NewClock,
			api.New,
			newAuthAPI,
			newProfileAPI,
		),
	)
}

// newCredentialStore wires the state directory into the file-backed store.
func newCredentialStore(cfg *config.Config) (repository.CredentialStore, error) {
	return tokenfile.New(cfg.Storage.StateDir)
}

// newCaptureDevice selects the configured capture source.
func newCaptureDevice(cfg *config.Config) service.CaptureDevice {
	if cfg.Capture.Source == "file" && cfg.Capture.SourcePath != "" {
		return device.NewFileDevice(cfg.Capture.SourcePath, cfg.Capture.SampleRate, cfg.Capture.Channels)
	}

	return device.NewSynthDevice(cfg.Capture.SampleRate, cfg.Capture.Channels)
}

func newAuthAPI(client *api.Client) service.AuthAPI {
	return client
}

func newProfileAPI(client *api.Client) service.ProfileAPI {
	return client
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewCaptureEngine,
			impl.NewSessionManager,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				cli.NewShell,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(shutdowner fx.Shutdowner, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(context.Background()); err != nil {
				slog.Error("Delivery stopped", slog.Any("error", err))
				os.Exit(1)
			}
			if err := shutdowner.Shutdown(); err != nil {
				slog.Error("Failed to shut down", slog.Any("error", err))
			}
		}()
	}
}
