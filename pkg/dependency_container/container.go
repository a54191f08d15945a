package dependency_container

import (
	"fmt"

	"github.com/NeuralTrust/ToxGuard/pkg/classifier"
	"github.com/NeuralTrust/ToxGuard/pkg/config"
	handlers "github.com/NeuralTrust/ToxGuard/pkg/handlers/http"
	"github.com/NeuralTrust/ToxGuard/pkg/infra/cache"
	"github.com/NeuralTrust/ToxGuard/pkg/infra/model"
	"github.com/NeuralTrust/ToxGuard/pkg/infra/tokenizer"
	"github.com/NeuralTrust/ToxGuard/pkg/middleware"
	"github.com/NeuralTrust/ToxGuard/pkg/ratelimit"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

type Container struct {
	Classifier          *classifier.Classifier
	Limiter             ratelimit.Limiter
	Redis               *redis.Client
	MiddlewareTransport *middleware.Transport
	HandlerTransport    *handlers.HandlerTransport
}

type ContainerDI struct {
	Cfg    *config.Config
	Logger *logrus.Logger
	// Backend overrides the configured model backend. Tests use it.
	Backend model.Backend
	// TokenizerLoader overrides reading the tokenizer from disk.
	TokenizerLoader classifier.TokenizerLoader
}

func NewContainer(di ContainerDI) (*Container, error) {
	cfg := di.Cfg

	backend := di.Backend
	if backend == nil {
		var err error
		backend, err = model.NewBackend(cfg.Model, di.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize model backend: %w", err)
		}
	}

	padding, err := tokenizer.ParseSide(cfg.Model.Padding)
	if err != nil {
		return nil, err
	}
	truncating, err := tokenizer.ParseSide(cfg.Model.Truncating)
	if err != nil {
		return nil, err
	}

	clf := classifier.New(classifier.Settings{
		Categories:        cfg.Model.Categories,
		MaxSequenceLength: cfg.Model.MaxSequenceLength,
		MaxCommentLength:  cfg.Limits.MaxCommentLength,
		Padding:           padding,
		Truncating:        truncating,
		TokenizerPath:     cfg.Model.TokenizerPath,
	}, backend, di.TokenizerLoader, di.Logger)

	container := &Container{Classifier: clf}

	var rateLimitMiddleware middleware.Middleware
	if cfg.RateLimit.Enabled {
		limiter, redisClient, err := newLimiter(cfg, di.Logger)
		if err != nil {
			return nil, err
		}
		container.Limiter = limiter
		container.Redis = redisClient
		rateLimitMiddleware = middleware.NewRateLimitMiddleware(di.Logger, limiter)
	}

	container.MiddlewareTransport = &middleware.Transport{
		SecurityMiddleware:  middleware.NewSecurityMiddleware(di.Logger),
		AccessLogMiddleware: middleware.NewAccessLogMiddleware(di.Logger),
		MetricsMiddleware:   middleware.NewMetricsMiddleware(di.Logger),
		RecoverMiddleware:   middleware.NewPanicRecoverMiddleware(di.Logger),
		CORSMiddleware:      middleware.NewCORSGlobalMiddleware(cfg.CORS.Origins, "600"),
		RateLimitMiddleware: rateLimitMiddleware,
		AuthMiddleware:      middleware.NewAuthMiddleware(di.Logger, cfg.Auth.APIKey, cfg.Auth.DevMode),
	}

	container.HandlerTransport = &handlers.HandlerTransport{
		HealthHandler:  handlers.NewGetHealthHandler(di.Logger, clf),
		ReadyHandler:   handlers.NewGetReadyHandler(di.Logger, clf),
		VersionHandler: handlers.NewGetVersionHandler(di.Logger),
		PredictHandler: handlers.NewPredictHandler(handlers.PredictHandlerDeps{
			Logger:      di.Logger,
			Classifier:  clf,
			MaxComments: cfg.Limits.MaxCommentsPerRequest,
		}),
	}

	return container, nil
}

func newLimiter(cfg *config.Config, logger *logrus.Logger) (ratelimit.Limiter, *redis.Client, error) {
	rate, err := ratelimit.ParseRate(cfg.RateLimit.Rate)
	if err != nil {
		return nil, nil, err
	}

	if !cfg.Redis.Enabled {
		logger.WithField("rate", rate.String()).Info("using in-memory rate limiter")
		return ratelimit.NewMemoryLimiter(rate, nil), nil, nil
	}

	client, err := cache.NewRedisClient(cache.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TLS:      cfg.Redis.TLS,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize redis: %w", err)
	}
	logger.WithField("rate", rate.String()).Info("using redis rate limiter")
	return ratelimit.NewRedisLimiter(client, rate, nil), client, nil
}

func (c *Container) Close() error {
	if c.Redis != nil {
		return c.Redis.Close()
	}
	return nil
}
