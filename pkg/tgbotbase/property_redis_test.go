package tgbotbase

import (
	"context"
	"sort"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) (*RedisPropertyStorage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisPropertyStorageWithClient(client), mr
}

func TestRedisPropertyStorage_Resolution(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStorage(t)

	val, err := s.GetProperty(ctx, "covidLastCountry", 10, 20)
	require.NoError(t, err)
	assert.Empty(t, val)

	require.NoError(t, s.SetPropertyForChat(ctx, "covidLastCountry", 20, "Chile"))
	val, _ = s.GetProperty(ctx, "covidLastCountry", 10, 20)
	assert.Equal(t, "Chile", val)

	require.NoError(t, s.SetPropertyForUser(ctx, "covidLastCountry", 10, "Spain"))
	val, _ = s.GetProperty(ctx, "covidLastCountry", 10, 20)
	assert.Equal(t, "Spain", val)

	require.NoError(t, s.SetPropertyForUserInChat(ctx, "covidLastCountry", 10, 20, "Canada"))
	val, _ = s.GetProperty(ctx, "covidLastCountry", 10, 20)
	assert.Equal(t, "Canada", val)

	stored, err := mr.Get("tg:property:covidLastCountry:10:20")
	require.NoError(t, err)
	assert.Equal(t, "Canada", stored)

	require.NoError(t, s.DeletePropertyForUserInChat(ctx, "covidLastCountry", 10, 20))
	val, _ = s.GetProperty(ctx, "covidLastCountry", 10, 20)
	assert.Equal(t, "Spain", val)
}

func TestRedisPropertyStorage_GetPropertyForUserInChat(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage(t)

	require.NoError(t, s.SetPropertyForUser(ctx, "covidDigestTime", 10, "09:00"))
	require.NoError(t, s.SetPropertyForChat(ctx, "covidDigestTime", 20, "18:00"))

	val, err := s.GetPropertyForUserInChat(ctx, "covidDigestTime", 10, 20)
	require.NoError(t, err)
	assert.Empty(t, val)

	val, err = s.GetPropertyForUserInChat(ctx, "covidDigestTime", 10, 10)
	require.NoError(t, err)
	assert.Equal(t, "09:00", val)

	require.NoError(t, s.SetPropertyForUserInChat(ctx, "covidDigestTime", 10, 20, "07:15"))
	val, err = s.GetPropertyForUserInChat(ctx, "covidDigestTime", 10, 20)
	require.NoError(t, err)
	assert.Equal(t, "07:15", val)
}

func TestRedisPropertyStorage_GetEveryHavingProperty(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStorage(t)

	require.NoError(t, s.SetPropertyForUser(ctx, "covidDigestTime", 1, "09:00"))
	require.NoError(t, s.SetPropertyForChat(ctx, "covidDigestTime", -100, "18:30"))
	require.NoError(t, s.SetPropertyForUser(ctx, "covidLastCountry", 1, "Spain"))
	mr.Set("tg:property:covidDigestTime:broken", "x")
	mr.Set("tg:property:covidDigestTime:a:1", "x")

	props, err := s.GetEveryHavingProperty(ctx, "covidDigestTime")
	require.NoError(t, err)
	sort.Slice(props, func(i, j int) bool { return props[i].Chat < props[j].Chat })

	assert.Equal(t, []PropertyValue{
		{Value: "18:30", User: 0, Chat: -100},
		{Value: "09:00", User: 1, Chat: 1},
	}, props)
}

func TestRedisPropertyKey_ForbidsColon(t *testing.T) {
	assert.Panics(t, func() { redisPropertyKey("a:b", 1, 1) })
}

func TestNewRedisPool_DiscoversDBs(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.Set("db:property", "3")
	mr.Set("db:broken", "three")

	pool, err := NewRedisPool(context.Background(), RedisConfig{Server: mr.Addr()})
	require.NoError(t, err)

	impl := pool.(*RedisPoolImpl)
	assert.Equal(t, map[string]int{"property": 3}, impl.db)

	conn := pool.GetConnByName("property")
	defer conn.Close()
	assert.Equal(t, 3, conn.Options().DB)

	unknown := pool.GetConnByName("unknown")
	defer unknown.Close()
	assert.Equal(t, 0, unknown.Options().DB)
}
