package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, 10*time.Minute, cfg.Scheduler.RebuildLeaderboardInterval)
	assert.Equal(t, "ledger:", cfg.Redis.KeyPrefix)
	assert.EqualValues(t, 10, cfg.Database.MaxConns)
	assert.Equal(t, "Asia/Riyadh", cfg.App.Timezone)
	assert.NotNil(t, cfg.App.Location)
	assert.True(t, cfg.Features.IsEnabled(FeatureLeaderboardCache))
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("ENV_FILE", "does-not-exist.env")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("REDIS_DISABLED", "true")
	t.Setenv("SCHEDULER_LEADERBOARD_INTERVAL", "2m")
	t.Setenv("FEATURE_BADGES_AUTO_AWARD", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
	assert.True(t, cfg.Redis.Disabled)
	assert.Equal(t, 2*time.Minute, cfg.Scheduler.RebuildLeaderboardInterval)
	assert.False(t, cfg.Features.IsEnabled(FeatureBadgeAwards))
	assert.True(t, cfg.Features.IsEnabled(FeatureReconcileProgress))
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	v := viper.New()
	v.Set("app.env", "production")
	v.Set("http.port", 0)
	v.Set("scheduler.reconcile_hour", 25)

	_, err := LoadFrom(v)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "DATABASE_URL is required")
	assert.Contains(t, msg, "ADMIN_TOKEN_HASH is required")
	assert.Contains(t, msg, "HTTP_PORT")
	assert.Contains(t, msg, "SCHEDULER_RECONCILE_HOUR")
}

func TestValidate_AdminTokenHash(t *testing.T) {
	v := viper.New()
	v.Set("admin.token_hash", "plain-text-token")
	_, err := LoadFrom(v)
	assert.ErrorContains(t, err, "not a bcrypt hash")

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	v = viper.New()
	v.Set("app.env", "production")
	v.Set("database.url", "postgres://localhost/ledger")
	v.Set("admin.token_hash", string(hash))
	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestFeatureFlags(t *testing.T) {
	ff := NewFeatureFlags()
	assert.False(t, ff.IsEnabled("unknown"))
	assert.False(t, ff.IsEnabled(FeatureCheckinDateWindow))
	assert.True(t, ff.IsEnabled(FeatureLeaderboardCache))
	assert.ErrorIs(t, ff.Set("unknown", true), ErrFeatureNotFound)

	require.NoError(t, ff.Set(FeatureCheckinDateWindow, true))
	assert.True(t, ff.IsEnabled(FeatureCheckinDateWindow))

	all := ff.All()
	require.Len(t, all, 4)
	assert.Equal(t, FeatureBadgeAwards, all[0].Name)

	var nilFlags *FeatureFlags
	assert.False(t, nilFlags.IsEnabled(FeatureLeaderboardCache))
}
