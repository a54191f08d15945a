package server

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/NeuralTrust/ToxGuard/pkg/config"
	handlers "github.com/NeuralTrust/ToxGuard/pkg/handlers/http"
	"github.com/NeuralTrust/ToxGuard/pkg/server/router"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Server interface defines the common behavior for all servers
type Server interface {
	Run() error
	Shutdown(ctx context.Context) error
}

type BaseServer struct {
	Config *config.Config
	Logger *logrus.Logger
	Router *fiber.App
	addr   string
}

func NewBaseServer(cfg *config.Config, logger *logrus.Logger, port int) *BaseServer {
	r := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReduceMemoryUsage:     true,
		Network:               fiber.NetworkTCP,
		EnablePrintRoutes:     false,
		BodyLimit:             cfg.Server.BodyLimit,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		ErrorHandler:          handlers.ErrorHandler(logger),
	})

	r.Server().NoDefaultServerHeader = true
	r.Server().NoDefaultDate = true

	return &BaseServer{
		Config: cfg,
		Logger: logger,
		Router: r,
		addr:   net.JoinHostPort(cfg.Server.Host, strconv.Itoa(port)),
	}
}

func (s *BaseServer) WithRouters(routers ...router.ServerRouter) (*BaseServer, error) {
	for _, r := range routers {
		if err := r.BuildRoutes(s.Router); err != nil {
			return nil, fmt.Errorf("build routes: %w", err)
		}
	}
	return s, nil
}

func (s *BaseServer) Addr() string {
	return s.addr
}

func (s *BaseServer) Run() error {
	s.Logger.WithField("addr", s.addr).Info("starting server")
	return s.Router.Listen(s.addr)
}

func (s *BaseServer) Shutdown(ctx context.Context) error {
	return s.Router.ShutdownWithContext(ctx)
}
