package redis_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/probe/pkg/adapters/redis"
	"github.com/aretw0/probe/pkg/config"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *redis.Provider) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	p := redis.NewFromClient(client, redis.WithKey("app:probe"))
	t.Cleanup(func() { _ = p.Close() })
	return mr, p
}

func TestProvider_Load(t *testing.T) {
	mr, p := setup(t)
	mr.HSet("app:probe",
		config.KeyMaxNestingLevel, "3",
		config.KeyAnalysePrivate, "1",
		config.KeyDebugMethods, "String,GoString",
		config.KeyBlacklistMethods, "*sql.DB:Close",
	)

	require.NoError(t, p.Ping(context.Background()))
	require.NoError(t, p.Refresh(context.Background()))

	s, err := config.Load(p)
	require.NoError(t, err)
	assert.Equal(t, 3, s.MaxLevel)
	assert.True(t, s.AnalysePrivate)
	assert.Equal(t, []string{"String", "GoString"}, s.DebugMethods)
	assert.Equal(t, map[string][]string{"*sql.DB": {"Close"}}, s.BlacklistMethods)
}

func TestProvider_UnknownBeforeRefresh(t *testing.T) {
	mr, p := setup(t)
	mr.HSet("app:probe", config.KeyMaxNestingLevel, "3")

	_, ok := p.Setting(config.KeyMaxNestingLevel)
	assert.False(t, ok)
}

func TestProvider_RefreshFailureKeepsValues(t *testing.T) {
	mr, p := setup(t)
	mr.HSet("app:probe", config.KeyMaxNestingLevel, "4")
	require.NoError(t, p.Refresh(context.Background()))

	mr.SetError("ERR server is busy")
	assert.Error(t, p.Refresh(context.Background()))

	v, ok := p.Setting(config.KeyMaxNestingLevel)
	assert.True(t, ok)
	assert.Equal(t, "4", v)
}

func TestProvider_WrongType(t *testing.T) {
	mr, p := setup(t)
	require.NoError(t, mr.Set("app:probe", "not a hash"))
	assert.ErrorContains(t, p.Refresh(context.Background()), "app:probe")
}
