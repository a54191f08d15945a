package router

import (
	"errors"

	handlers "github.com/NeuralTrust/ToxGuard/pkg/handlers/http"
	"github.com/NeuralTrust/ToxGuard/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
)

var ErrInvalidHandlerTransport = errors.New("invalid handler transport")

const (
	HealthPath  = "/health"
	ReadyPath   = "/ready"
	VersionPath = "/version"
	PredictPath = "/predict"
	DocsPath    = "/docs/*"
	SpecPath    = "/swagger.json"
)

type apiRouter struct {
	middlewareTransport *middleware.Transport
	handlerTransport    *handlers.HandlerTransport
	swaggerFile         string
}

func NewAPIRouter(
	middlewareTransport *middleware.Transport,
	handlerTransport *handlers.HandlerTransport,
	swaggerFile string,
) ServerRouter {
	return &apiRouter{
		middlewareTransport: middlewareTransport,
		handlerTransport:    handlerTransport,
		swaggerFile:         swaggerFile,
	}
}

// BuildRoutes mounts the global middleware chain, then the open routes, then
// /predict behind rate limiting and auth.
func (r *apiRouter) BuildRoutes(router *fiber.App) error {
	ht := r.handlerTransport
	if ht == nil || ht.HealthHandler == nil || ht.ReadyHandler == nil ||
		ht.VersionHandler == nil || ht.PredictHandler == nil {
		return ErrInvalidHandlerTransport
	}

	if global := r.middlewareTransport.Global(); len(global) > 0 {
		router.Use(global...)
	}

	router.Get(HealthPath, ht.HealthHandler.Handle)
	router.Get(ReadyPath, ht.ReadyHandler.Handle)
	router.Get(VersionPath, ht.VersionHandler.Handle)

	if r.swaggerFile != "" {
		router.Static(SpecPath, r.swaggerFile)
		router.Get(DocsPath, swagger.New(swagger.Config{
			URL: SpecPath,
		}))
	}

	predict := append(r.middlewareTransport.Protected(), ht.PredictHandler.Handle)
	router.Post(PredictPath, predict...)
	return nil
}
