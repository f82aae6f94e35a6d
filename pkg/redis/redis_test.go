package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupMockRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return Wrap(rdb, zap.NewNop()), mr
}

func TestBlacklistToken(t *testing.T) {
	c, mr := setupMockRedis(t)
	ctx := context.Background()

	require.NoError(t, c.BlacklistToken(ctx, "jti-1", time.Minute))

	blacklisted, err := c.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, blacklisted)

	mr.FastForward(2 * time.Minute)

	blacklisted, err = c.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, blacklisted, "过期后应自动移出黑名单")
}

func TestBlacklistToken_ExpiredTokenSkipped(t *testing.T) {
	c, mr := setupMockRedis(t)

	require.NoError(t, c.BlacklistToken(context.Background(), "jti-old", 0))
	assert.False(t, mr.Exists(blacklistPrefix+"jti-old"))
}

func TestCheckRateLimit(t *testing.T) {
	c, _ := setupMockRedis(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := c.CheckRateLimit(ctx, "rate_limit:test", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "第 %d 次请求应放行", i+1)
	}

	allowed, err := c.CheckRateLimit(ctx, "rate_limit:test", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed, "超出限制后应拒绝")
}

func TestAcquireAndReleaseLock(t *testing.T) {
	c, mr := setupMockRedis(t)
	ctx := context.Background()

	token, ok, err := c.AcquireLock(ctx, "scheduler:tick:user-1", 30*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = c.AcquireLock(ctx, "scheduler:tick:user-1", 30*time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "锁被占用时不应重复获取")

	// 错误令牌不能释放他人的锁
	require.NoError(t, c.ReleaseLock(ctx, "scheduler:tick:user-1", "someone-else"))
	assert.True(t, mr.Exists("scheduler:tick:user-1"))

	require.NoError(t, c.ReleaseLock(ctx, "scheduler:tick:user-1", token))
	assert.False(t, mr.Exists("scheduler:tick:user-1"))

	_, ok, err = c.AcquireLock(ctx, "scheduler:tick:user-1", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "释放后应可再次获取")
}
