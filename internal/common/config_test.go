package common

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubKV struct {
	values map[string]string
}

func (s *stubKV) Get(ctx context.Context, key string) (string, error) {
	if v, ok := s.values[key]; ok {
		return v, nil
	}
	return "", os.ErrNotExist
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, 8001, cfg.Server.Port)
	assert.Equal(t, 0.6, cfg.Sectors.ChangeWeight)
	assert.Equal(t, 0.2, cfg.Sectors.VolumeWeight)
	assert.Equal(t, 0.2, cfg.Sectors.ValueWeight)
	assert.Equal(t, 2, cfg.Sectors.MinSectorSize)
	assert.Equal(t, "09:00", cfg.Scheduler.PostTime)
	assert.Equal(t, "Asia/Kolkata", cfg.Scheduler.Timezone)
	assert.Equal(t, LLMProviderOpenAI, cfg.LLM.DefaultProvider)
}

func TestLoadFromFiles_LaterFilesOverride(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	override := filepath.Join(dir, "override.toml")

	require.NoError(t, os.WriteFile(base, []byte(`
env_file = ""

[server]
port = 9000
host = "127.0.0.1"

[sectors]
concurrency = 4
`), 0644))
	require.NoError(t, os.WriteFile(override, []byte(`
[server]
port = 9100
`), 0644))

	cfg, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 4, cfg.Sectors.Concurrency)
	// Untouched sections keep their defaults
	assert.Equal(t, 10, cfg.Sectors.TopGainers)
}

func TestLoadFromFiles_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\nport = "), 0644))

	_, err := LoadFromFiles(path)
	assert.Error(t, err)
}

func TestLoadFromFiles_EnvOverrides(t *testing.T) {
	t.Setenv("Market_Data", "token-from-env")
	t.Setenv("MARKETPULSE_SERVER_PORT", "7777")
	t.Setenv("MARKETPULSE_SECTORS_BATCH", "true")

	cfg, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, "token-from-env", cfg.Dhan.AccessToken)
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.True(t, cfg.Sectors.Batch)
}

func TestLoadFromFiles_DotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	cfgFile := filepath.Join(dir, "cfg.toml")
	require.NoError(t, os.WriteFile(envFile, []byte("NEWS_API_KEY=from-dotenv\n"), 0644))
	require.NoError(t, os.WriteFile(cfgFile, []byte("env_file = \""+filepath.ToSlash(envFile)+"\"\n"), 0644))

	// Register cleanup for a variable godotenv will set in the process environment
	t.Setenv("NEWS_API_KEY", "")
	require.NoError(t, os.Unsetenv("NEWS_API_KEY"))

	cfg, err := LoadFromFiles(cfgFile)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.NewsAPI.APIKey)
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()

	ApplyFlagOverrides(cfg, 0, "")
	assert.Equal(t, 8001, cfg.Server.Port)

	ApplyFlagOverrides(cfg, 8080, "localhost")
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
}

func TestResolveAPIKey_Priority(t *testing.T) {
	ctx := context.Background()
	kv := &stubKV{values: map[string]string{"news_api_key": "from-kv"}}

	t.Setenv("NEWS_API_KEY", "")
	key, err := ResolveAPIKey(ctx, kv, "news_api_key", "from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-kv", key)

	t.Setenv("NEWS_API_KEY", "from-env")
	key, err = ResolveAPIKey(ctx, kv, "news_api_key", "from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)

	key, err = ResolveAPIKey(ctx, nil, "unknown_key", "from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-config", key)

	_, err = ResolveAPIKey(ctx, nil, "unknown_key", "")
	assert.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, ParseDuration("5s", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("bogus", time.Minute))
}
