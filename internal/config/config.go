// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvConfigJSON names the environment variable whose JSON overrides the TOML file.
const EnvConfigJSON = "QRMENU_ADMIN_CONFIG_JSON"

// Defaults applied by validate.
const (
	DefaultShutDownTime      = 5
	DefaultSessionExpiry     = 12 * time.Hour
	DefaultSessionCookie     = "session"
	DefaultSessionTable      = "sessions"
	DefaultSessionKeyPrefix  = "qrmenu:session:"
	DefaultResolutionTimeout = 5 * time.Second
	DefaultMaxCacheAge       = time.Minute
	DefaultRole              = "restaurant"
)

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var c Config

	if path == "" {
		path = "./etc/"
	}

	v := viper.New()
	v.SetConfigFile(path + "main.toml")
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	// override it from env
	if configAsJSON := os.Getenv(EnvConfigJSON); configAsJSON != "" {
		v.SetConfigType("json")

		if err := v.MergeConfig(strings.NewReader(configAsJSON)); err != nil {
			return Config{}, errors.Wrap(err, "failed to merge config from "+EnvConfigJSON)
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode config")
	}

	return c, validate(&c)
}

// DumpConfig config as TOML String.
func DumpConfig(c *Config) (string, error) {
	var buffer bytes.Buffer

	t := toml.NewEncoder(&buffer)
	t.SetIndentTables(true)

	if err := t.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer

	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// validate checks the settings the daemon can not start without and fills
// in defaults for the rest.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = DefaultShutDownTime
	}

	if err := validateDB(c); err != nil {
		return errors.Wrap(err, invalidErrMessage)
	}

	if err := validateSession(c); err != nil {
		return errors.Wrap(err, invalidErrMessage)
	}

	if c.RBAC.Broadcast && c.Redis.Addr == "" {
		return errors.Wrap(ErrRedisAddrMissing, invalidErrMessage)
	}

	if !c.Auth.LocalDB.Enabled && !c.Auth.OIDC.Enabled {
		return errors.Wrap(ErrNoSignInProvider, invalidErrMessage)
	}

	if c.RBAC.ResolutionTimeout <= 0 {
		c.RBAC.ResolutionTimeout = DefaultResolutionTimeout
	}

	if c.RBAC.MaxCacheAge <= 0 {
		c.RBAC.MaxCacheAge = DefaultMaxCacheAge
	}

	if c.RBAC.DefaultRole == "" {
		c.RBAC.DefaultRole = DefaultRole
	}

	return nil
}

func validateDB(c *Config) error {
	c.DB.GormEngine = strings.ToLower(c.DB.GormEngine)

	switch c.DB.GormEngine {
	case "":
		c.DB.GormEngine = GormEngineMySQL
	case GormEngineMySQL, GormEnginePostgres, GormEngineSQLite:
	default:
		return ErrUnknownGormEngine
	}

	return nil
}

func validateSession(c *Config) error {
	s := &c.Webserver.Session

	if s.ExpiryTime <= 0 {
		s.ExpiryTime = DefaultSessionExpiry
	}

	if s.CookieName == "" {
		s.CookieName = DefaultSessionCookie
	}

	if s.Table == "" {
		s.Table = DefaultSessionTable
	}

	if s.KeyPrefix == "" {
		s.KeyPrefix = DefaultSessionKeyPrefix
	}

	s.Store = strings.ToLower(s.Store)

	switch s.Store {
	case "":
		s.Store = SessionStoreDB
	case SessionStoreMemory, SessionStoreDB, SessionStoreRedis:
	default:
		return ErrUnknownSessionStore
	}

	if s.Store == SessionStoreDB && c.DB.GormEngine == GormEngineSQLite {
		return ErrSessionStoreNeedsSQLServer
	}

	if s.Store == SessionStoreRedis && c.Redis.Addr == "" {
		return ErrRedisAddrMissing
	}

	return nil
}
