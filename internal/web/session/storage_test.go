package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/config"
)

func TestNewStorage(t *testing.T) {
	_, client := newRedis(t)

	testCases := []struct {
		name    string
		store   string
		engine  string
		withRDB bool
		wantErr error
		want    any
	}{
		{name: "memory", store: config.SessionStoreMemory, want: &MemoryStorage{}},
		{name: "redis", store: config.SessionStoreRedis, withRDB: true, want: &RedisStorage{}},
		{name: "redis without client", store: config.SessionStoreRedis, wantErr: ErrRedisClientNil},
		{
			name:    "db on sqlite",
			store:   config.SessionStoreDB,
			engine:  config.GormEngineSQLite,
			wantErr: config.ErrSessionStoreNeedsSQLServer,
		},
		{name: "unknown", store: "memcached", wantErr: config.ErrUnknownSessionStore},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Webserver.Session.Store = tc.store
			cfg.DB.GormEngine = tc.engine

			rdb := client
			if !tc.withRDB {
				rdb = nil
			}

			storage, err := NewStorage(cfg, rdb)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			assert.IsType(t, tc.want, storage)
		})
	}
}
