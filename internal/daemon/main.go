// Package daemon wires the database, the permission resolver, the session
// backend and the web service into one running process.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/auth"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/config"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/controller/assignment"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/dsn"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/models"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/logger/adapter/stdlogger"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/route"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web/handler"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web/session"
)

// ErrBroadcastWithoutRedis is returned when invalidation broadcast is enabled without a redis address.
var ErrBroadcastWithoutRedis = errors.New("rbac broadcast needs redis")

// Daemon represents the main application daemon.
type Daemon struct {
	cfg         *config.Config
	db          *gorm.DB
	redis       *redis.Client
	storage     fiber.Storage
	broadcaster *auth.Broadcaster
	cron        *cron.Cron
	deps        *handler.Deps
	webService  *web.Service
}

// Open connects to the configured database, migrates it and seeds the
// permission catalogue and system roles.
func Open(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	dialector, err := dsn.Dialector(cfg)
	if err != nil {
		return nil, err
	}

	logLevel := gormlogger.Warn
	if !cfg.DevMode {
		logLevel = gormlogger.Error
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(logLevel)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err = db.AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if err = seed(ctx, cfg, db); err != nil {
		return nil, fmt.Errorf("failed to seed database: %w", err)
	}

	return db, nil
}

// New creates a new Daemon instance with the provided configuration.
func New(ctx context.Context, cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}

	db, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	d := &Daemon{cfg: cfg, db: db}

	if cfg.Redis.Addr != "" {
		redis.SetLogger(stdlogger.New().WithComponent("redis"))

		d.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	authService, err := auth.NewService(auth.NewGormStore(db), cfg.RBAC.CacheSize,
		auth.WithMaxAge(cfg.RBAC.MaxCacheAge))
	if err != nil {
		return nil, err
	}

	var invalidator auth.Invalidator = authService

	if cfg.RBAC.Broadcast {
		if d.redis == nil {
			return nil, ErrBroadcastWithoutRedis
		}

		d.broadcaster = auth.NewBroadcaster(d.redis, cfg.RBAC.InvalidationChannel, authService)
		invalidator = d.broadcaster
	}

	if d.storage, err = session.NewStorage(cfg, d.redis); err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	sessions := session.NewManager(d.storage, cfg.Webserver.Session)
	gate := auth.NewGate(sessions)

	paths := route.Paths{
		AdminPrefix: cfg.RBAC.AdminPrefix,
		Login:       cfg.RBAC.LoginPath,
		AdminLogin:  cfg.RBAC.AdminLoginPath,
		Home:        cfg.RBAC.HomePath,
		AdminHome:   cfg.RBAC.AdminHomePath,
	}

	controller := route.NewController(gate, authService,
		route.WithPaths(paths), route.WithTimeout(cfg.RBAC.ResolutionTimeout))

	d.deps = &handler.Deps{
		Cfg:         cfg,
		DB:          db,
		Auth:        authService,
		Invalidator: invalidator,
		Gate:        gate,
		Local:       auth.NewLocalProvider(db, invalidator, cfg.RBAC.DefaultRole),
		OIDC:        newOIDC(ctx, cfg, db),
		Sessions:    sessions,
		Flows:       session.NewFlows(d.storage, cfg.Webserver.Session.CookieSecure),
		Routes:      controller,
		Table:       route.DefaultTable(controller.Paths()),
		Validator:   handler.NewValidator(),
	}

	if d.cron, err = newScheduler(cfg, assignment.New(db, invalidator)); err != nil {
		return nil, err
	}

	if d.webService, err = web.New(d.deps); err != nil {
		return nil, err
	}

	return d, nil
}

// newOIDC returns nil when OIDC is disabled or the provider cannot be
// discovered; local sign-in keeps working either way.
func newOIDC(ctx context.Context, cfg *config.Config, db *gorm.DB) *auth.OIDCProvider {
	if !cfg.Auth.OIDC.Enabled {
		return nil
	}

	provider, err := auth.NewOIDCProvider(ctx, &auth.OIDCConfig{
		Enabled:      true,
		ProviderURL:  cfg.Auth.OIDC.ProviderURL,
		ClientID:     cfg.Auth.OIDC.ClientID,
		ClientSecret: cfg.Auth.OIDC.ClientSecret,
		RedirectURL:  cfg.Auth.OIDC.RedirectURL,
		Scopes:       cfg.Auth.OIDC.Scopes,
		DefaultRole:  cfg.RBAC.DefaultRole,
	}, db)
	if err != nil {
		log.Warn().Err(err).Str("provider", cfg.Auth.OIDC.ProviderURL).Msg("OIDC sign-in disabled")
		return nil
	}

	return provider
}

// newScheduler schedules the sweep deactivating expired role assignments.
// It returns nil when no job is configured.
func newScheduler(cfg *config.Config, assignments *assignment.Manager) (*cron.Cron, error) {
	if cfg.Jobs.ExpirySweep == "" {
		return nil, nil //nolint:nilnil
	}

	c := cron.New(cron.WithLogger(stdlogger.New().WithComponent("cron")))

	_, err := c.AddFunc(cfg.Jobs.ExpirySweep, func() {
		expired, err := assignments.ExpireDue(context.Background())
		if err != nil {
			log.Error().Err(err).Msg("expiry sweep failed")
			return
		}

		if expired > 0 {
			log.Info().Int("expired", expired).Msg("expired role assignments deactivated")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid expiry sweep schedule %q: %w", cfg.Jobs.ExpirySweep, err)
	}

	return c, nil
}

// DB returns the database of the daemon.
func (d *Daemon) DB() *gorm.DB {
	return d.db
}

// Auth returns the permission resolver of the daemon.
func (d *Daemon) Auth() *auth.Service {
	return d.deps.Auth
}

// Run starts the background jobs and the web service and blocks until a
// shutdown signal arrives.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if d.broadcaster != nil {
		go func() {
			if err := d.broadcaster.Run(ctx); err != nil {
				log.Error().Err(err).Msg("permission invalidation listener stopped")
			}
		}()
	}

	if d.cron != nil {
		d.cron.Start()
	}

	addr := ":" + strconv.Itoa(d.cfg.Webserver.Port)

	go func() {
		log.Info().Str("addr", addr).Msg("starting web service")

		_ = d.webService.Start(addr)
	}()

	d.webService.WaitShutdown()

	return d.Close()
}

// Close stops the background jobs and releases the backends.
func (d *Daemon) Close() error {
	if d.cron != nil {
		<-d.cron.Stop().Done()
	}

	var errs []error

	if d.storage != nil {
		errs = append(errs, d.storage.Close())
	}

	if d.redis != nil {
		errs = append(errs, d.redis.Close())
	}

	if sqlDB, err := d.db.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	}

	return errors.Join(errs...)
}
