package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"flyte-gateway/cmd/api/di"
	"flyte-gateway/cmd/api/server"
	"flyte-gateway/internal/config"
	"flyte-gateway/pkg/logger"
)

// App wires config, logging, the dependency container and the HTTP server.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Server    *server.Server
	Container *di.Container
}

// New loads configuration from CONFIG_PATH (default ".") and builds the gateway.
func New() (*App, error) {
	cfg, err := config.LoadConfig(configPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	l, err := logger.NewWithConfig(loggerConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	container, err := di.NewContainer(cfg, l)
	if err != nil {
		_ = l.Sync()
		return nil, fmt.Errorf("build container: %w", err)
	}

	return &App{
		Config:    cfg,
		Logger:    l,
		Server:    server.New(cfg, l, container),
		Container: container,
	}, nil
}

// Run serves until ctx is canceled or the listener fails, then drains
// in-flight requests and releases the container.
func (a *App) Run(ctx context.Context) error {
	a.Logger.Info("flyte gateway starting",
		zap.String("service", a.Config.Logger.ServiceName),
		zap.String("version", a.Config.Logger.ServiceVersion),
		zap.String("environment", a.Config.App.Environment),
		zap.String("store", a.Config.Store.Driver),
		zap.Bool("redis", a.Config.Redis.Enabled),
		zap.String("backend", a.Config.Backend.URL),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("server panic: %v", r)
			}
		}()
		return a.Server.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	err := g.Wait()
	a.Logger.Info("flyte gateway stopped", zap.Error(err))
	syncLogger(a.Logger)
	return err
}

func (a *App) shutdown() error {
	timeout := time.Duration(a.Config.App.ShutdownTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.Logger.Info("draining connections", zap.Duration("timeout", timeout))

	steps := []struct {
		name string
		run  func() error
	}{
		{"http server", func() error { return a.Server.HTTP.Shutdown(ctx) }},
		{"container", a.Container.Close},
	}

	var errs []error
	for _, step := range steps {
		if err := step.run(); err != nil {
			a.Logger.Error("shutdown step failed", zap.String("step", step.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
		}
	}
	return errors.Join(errs...)
}

// syncLogger flushes buffered entries; console sinks reject fsync.
func syncLogger(l *zap.Logger) {
	if err := l.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) && !errors.Is(err, syscall.ENOTTY) {
		fmt.Fprintf(os.Stderr, "logger sync: %v\n", err)
	}
}

func loggerConfig(cfg *config.Config) logger.Config {
	return logger.Config{
		Level:            cfg.Logger.Level,
		Format:           cfg.Logger.Format,
		OutputPath:       cfg.Logger.OutputPath,
		SlowQuerySeconds: cfg.Logger.SlowQuerySeconds,
		EnableSampling:   cfg.Logger.EnableSampling,
		ServiceName:      cfg.Logger.ServiceName,
		ServiceVersion:   cfg.Logger.ServiceVersion,
		Environment:      cfg.App.Environment,
	}
}

func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "."
}
