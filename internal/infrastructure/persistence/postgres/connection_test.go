package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "db.internal"
	cfg.Password = "pw"
	assert.Equal(t,
		"host=db.internal port=5432 dbname=postgres user=postgres password=pw sslmode=disable connect_timeout=10",
		cfg.DSN())

	cfg.URL = "postgres://ledger@localhost:5432/ledger"
	assert.Equal(t, cfg.URL, cfg.DSN())
}

func TestConfig_PoolConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URL = "postgres://ledger:pw@localhost:5432/ledger?sslmode=disable"
	cfg.MaxConns = 7
	cfg.ConnectTimeout = 3 * time.Second

	pc, err := cfg.PoolConfig()
	require.NoError(t, err)
	assert.EqualValues(t, 7, pc.MaxConns)
	assert.EqualValues(t, 2, pc.MinConns)
	assert.Equal(t, 3*time.Second, pc.ConnConfig.ConnectTimeout)
	assert.Equal(t, "ledger", pc.ConnConfig.Database)

	cfg.URL = "postgres://%zz"
	_, err = cfg.PoolConfig()
	assert.Error(t, err)
}
