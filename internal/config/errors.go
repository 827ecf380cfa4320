package config

import (
	"errors"
)

var (
	// ErrConfigNil error if no config was given.
	ErrConfigNil = errors.New("config is nil")

	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrUnknownGormEngine error if config db.gormEngine is not supported.
	ErrUnknownGormEngine = errors.New("toml config db.gormEngine must be mysql, postgres or sqlite")

	// ErrUnknownSessionStore error if config webserver.session.store is not supported.
	ErrUnknownSessionStore = errors.New("toml config webserver.session.store must be memory, db or redis")

	// ErrSessionStoreNeedsSQLServer error if the db session store is used with sqlite.
	ErrSessionStoreNeedsSQLServer = errors.New("toml config webserver.session.store db needs mysql or postgres")

	// ErrRedisAddrMissing error if redis is needed but redis.addr is empty.
	ErrRedisAddrMissing = errors.New("toml config redis.addr is needed by the session store or rbac.broadcast")

	// ErrNoSignInProvider error if neither local nor oidc sign-in is enabled.
	ErrNoSignInProvider = errors.New("toml config auth needs localDB or oidc enabled")
)
