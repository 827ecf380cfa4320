package session

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	mysqlstorage "github.com/gofiber/storage/mysql/v2"
	postgresstorage "github.com/gofiber/storage/postgres/v3"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/config"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/dsn"
)

// ErrRedisClientNil is returned when the redis store is configured without a client.
var ErrRedisClientNil = errors.New("redis session store needs a redis client")

// NewStorage opens the session backend named by cfg.Webserver.Session.Store.
// The sql stores connect on creation and create their table when missing.
func NewStorage(cfg *config.Config, client *redis.Client) (fiber.Storage, error) {
	sess := cfg.Webserver.Session

	switch sess.Store {
	case config.SessionStoreMemory, "":
		log.Warn().Msg("memory session store: sessions are lost on restart and not shared between instances")
		return NewMemoryStorage(DefaultMemoryEntries)
	case config.SessionStoreDB:
		return newSQLStorage(cfg)
	case config.SessionStoreRedis:
		if client == nil {
			return nil, ErrRedisClientNil
		}

		return NewRedisStorage(client, sess.KeyPrefix), nil
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrUnknownSessionStore, sess.Store)
	}
}

func newSQLStorage(cfg *config.Config) (fiber.Storage, error) {
	table := cfg.Webserver.Session.Table

	switch cfg.DB.GormEngine {
	case config.GormEngineMySQL:
		return mysqlstorage.New(mysqlstorage.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         table,
		}), nil
	case config.GormEnginePostgres:
		return postgresstorage.New(postgresstorage.Config{
			ConnectionURI: dsn.Postgres(cfg),
			Table:         table,
		}), nil
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrSessionStoreNeedsSQLServer, cfg.DB.GormEngine)
	}
}
