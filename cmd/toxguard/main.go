package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/NeuralTrust/ToxGuard/pkg/config"
	"github.com/NeuralTrust/ToxGuard/pkg/dependency_container"
	infraLogger "github.com/NeuralTrust/ToxGuard/pkg/infra/logger"
	"github.com/NeuralTrust/ToxGuard/pkg/infra/prometheus"
	"github.com/NeuralTrust/ToxGuard/pkg/server"
	"github.com/NeuralTrust/ToxGuard/pkg/server/router"
	"github.com/NeuralTrust/ToxGuard/pkg/version"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const swaggerFile = "./docs/swagger.json"

func main() {
	if err := run(); err != nil {
		log.Printf("toxguard: %v", err)
		os.Exit(1)
	}
}

func run() error {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	if err := config.Load(os.Getenv("CONFIG_PATH")); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := config.GetConfig()
	version.Configure(cfg.App.Name, cfg.App.Version)

	logger, closeLogger, err := infraLogger.NewLogger(infraLogger.Options{
		Level: cfg.Log.Level,
		File:  cfg.Log.File,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer closeLogger()

	info := version.GetInfo()
	logger.WithFields(logrus.Fields{
		"app":      info.AppName,
		"version":  info.Version,
		"backend":  cfg.Model.Backend,
		"dev_mode": cfg.Auth.DevMode,
	}).Info("starting")

	if cfg.Auth.DevMode {
		logger.Warn("DEV_MODE is on: /predict accepts requests without an API key")
	}
	if cfg.UsesPlaceholderKey() {
		logger.Warn("API_KEY is still the sample placeholder, set a real secret")
	}

	container, err := dependency_container.NewContainer(dependency_container.ContainerDI{
		Cfg:    cfg,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := container.Close(); err != nil {
			logger.WithError(err).Warn("failed to close redis client")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := container.Classifier.Load(ctx); err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}
	prometheus.ModelLoaded.Set(1)

	apiServer, err := server.NewBaseServer(cfg, logger, cfg.Server.Port).WithRouters(
		router.NewAPIRouter(container.MiddlewareTransport, container.HandlerTransport, swaggerFileIfPresent(logger)),
	)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"addr":    apiServer.Addr(),
		"backend": container.Classifier.BackendName(),
	}).Info("model ready, accepting requests")
	servers := []server.Server{apiServer}
	if cfg.Metrics.Enabled {
		prometheus.Initialize()
		servers = append(servers, server.NewMetricsServer(cfg, logger))
	} else {
		logger.Info("prometheus metrics are disabled by configuration")
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range servers {
		g.Go(s.Run)
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		var errs []error
		for _, s := range servers {
			errs = append(errs, s.Shutdown(shutdownCtx))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func swaggerFileIfPresent(logger *logrus.Logger) string {
	if _, err := os.Stat(swaggerFile); err != nil {
		logger.WithField("path", swaggerFile).Debug("swagger file not found, /docs disabled")
		return ""
	}
	return swaggerFile
}
