package config

import (
	"time"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/logger"
)

// Session store backends.
const (
	SessionStoreMemory = "memory" // fiber in-process storage, single instance only
	SessionStoreDB     = "db"     // the sql server of DB (mysql or postgres)
	SessionStoreRedis  = "redis"
)

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	Title     string
	DB        DB
	Log       logger.Log
	Webserver Webserver
	RBAC      RBAC
	Redis     Redis
	Auth      Auth
	Jobs      Jobs
}

// Webserver implement webserver settings.
type Webserver struct {
	CleanPath      bool    // use clean path middleware to allow multi slash requests
	DisableRecover bool    // disable recover middleware
	Domain         string  // domain name for the webserver
	Port           int     // listening port for the webserver
	ShutDownTime   int     // wait time for shutdown
	URL            string  // base url for the webserver
	LoginRateLimit int     // sign-in attempts per minute and IP, 0 disables the limiter
	Session        Session // session settings
}

// Session settings.
type Session struct {
	ExpiryTime   time.Duration
	Store        string // memory, db or redis
	CookieName   string
	CookieSecure bool
	Table        string // table of the db store
	KeyPrefix    string // key prefix of the redis store
}

// RBAC holds the permission resolver and navigation settings.
type RBAC struct {
	CacheSize         int           // principals kept in the resolved permission cache
	ResolutionTimeout time.Duration // bound of the joined session and permission resolution
	MaxCacheAge       time.Duration // longest a cached permission set is served without the store
	DefaultRole       string        // role assigned to new principals
	// Broadcast publishes cache invalidations to other instances over Redis.
	Broadcast           bool
	InvalidationChannel string

	AdminPrefix    string
	LoginPath      string
	AdminLoginPath string
	HomePath       string
	AdminHomePath  string
}

// Redis holds the redis connection settings.
type Redis struct {
	Addr     string
	Password string
	DB       int
}

// Auth holds the sign-in providers.
type Auth struct {
	LocalDB LocalDB
	OIDC    OIDC
}

// LocalDB configures email and password sign-in.
type LocalDB struct {
	Enabled     bool
	AllowSignup bool
	// BootstrapEmail and BootstrapPassword create the first super admin on an empty database.
	BootstrapEmail    string
	BootstrapPassword string
}

// OIDC configures OpenID Connect sign-in.
type OIDC struct {
	Enabled               bool
	ProviderURL           string
	ClientID              string
	ClientSecret          string
	RedirectURL           string
	Scopes                []string
	PostLogoutRedirectURL string
}

// Jobs holds the cron specs of scheduled jobs, an empty spec disables the job.
type Jobs struct {
	ExpirySweep string
}
