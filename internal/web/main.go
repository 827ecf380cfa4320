package web

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/config"
	fiberlogger "github.com/QRMenu-Admin/QRMenu-Admin/internal/logger/adapter/fiber"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web/handler"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web/handler/access"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web/handler/admin/role"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web/handler/admin/settings"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web/handler/admin/user"
	oidchandler "github.com/QRMenu-Admin/QRMenu-Admin/internal/web/handler/auth/oidc"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web/handler/dashboard"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web/handler/login"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web/handler/logout"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web/handler/menu"
	authmw "github.com/QRMenu-Admin/QRMenu-Admin/internal/web/middleware/auth"
)

const (
	// CheckAlivePath answers load balancer health checks.
	CheckAlivePath = "/checkalive"
	// MetricsPath serves the prometheus metrics.
	MetricsPath = "/metrics"
)

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for SIGINT or SIGTERM and shuts the server down gracefully.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	s.Shutdown()
}

// Shutdown stops the http server. Unless fastShutDown is set, checkalive
// fails for ShutDownTime seconds first so load balancers drain this instance.
func (s *Service) Shutdown() {
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// CheckAlive answers 200 while the service accepts traffic, 503 while it drains.
func (s *Service) CheckAlive(c *fiber.Ctx) error {
	if !s.alive.Load() {
		return c.SendStatus(fiber.StatusServiceUnavailable)
	}

	return c.SendString("OK")
}

// New creates the web service and registers every handler on it.
func New(deps *handler.Deps) (*Service, error) {
	if !deps.Valid() || deps.Routes == nil || deps.Table == nil {
		return nil, handler.ErrNilDeps
	}

	cfg := deps.Cfg

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
		},
	)

	service := &Service{
		cfg:          cfg,
		App:          app,
		fastShutDown: cfg.DevMode || cfg.Webserver.ShutDownTime <= 0,
	}
	service.alive.Store(true)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New(recover.Config{EnableStackTrace: cfg.DevMode}))
	}

	if cfg.Webserver.CleanPath {
		app.Use(cleanPath)
	}

	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:        cfg.Log,
		CheckAliveURI: CheckAlivePath,
	}))

	app.Get(CheckAlivePath, service.CheckAlive)
	app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))

	// every page request is decided by the route controller after the
	// session is identified
	app.Use(authmw.Identify(deps.Sessions))
	app.Use(authmw.Navigation(deps.Routes, deps.Table.Bypass(CheckAlivePath)))

	services := []handler.Service{
		&login.Service{},
		&logout.Service{},
		&oidchandler.Service{},
		&dashboard.Service{},
		&access.Service{},
		&role.Service{},
		&user.Service{},
		&settings.Service{},
		&menu.Service{},
	}

	for _, svc := range services {
		if err := svc.Init(app, deps); err != nil {
			return nil, fmt.Errorf("failed to init %T: %w", svc, err)
		}
	}

	paths := deps.Routes.Paths()

	app.Get(handler.RootPath, func(c *fiber.Ctx) error {
		return c.Redirect(paths.Home)
	})

	return service, nil
}

// cleanPath collapses repeated slashes and dot segments of the request path.
func cleanPath(c *fiber.Ctx) error {
	p := c.Path()
	if strings.Contains(p, "//") || strings.Contains(p, "/.") {
		cleaned := path.Clean(p)
		if strings.HasSuffix(p, "/") && cleaned != "/" {
			cleaned += "/"
		}

		c.Path(cleaned)
	}

	return c.Next()
}
