package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("USE_BROWSER_CLIENT", "false")
	t.Setenv("STREAM_RETRIES", "5")
	t.Setenv("MAX_STREAM_RETRIES", "8")
	t.Setenv("SCRIPT_CACHE_SIZE", "3")
	t.Setenv("STREAM_RETRY_WAIT", "1s")
	t.Setenv("SOUNDCLOUD_CLIENT_ID", "abc")

	c := ConfigFromEnv()
	assert.Equal(t, 5, c.StreamRetries)
	assert.Equal(t, 8, c.MaxStreamRetries)
	assert.Equal(t, 3, c.ScriptCacheSize)
	assert.Equal(t, time.Second, c.StreamRetryWait)
	assert.Equal(t, "abc", c.SoundCloudClientID)
	assert.Equal(t, "https://www.youtube.com", c.YouTubeURL)
	assert.Nil(t, c.BrowserClient)
	require.NotNil(t, c.HTTPClient)
	assert.Equal(t, c.FetchTimeout, c.HTTPClient.Timeout)
}

func TestInitClampsStreamRetries(t *testing.T) {
	old := cfg
	defer func() { Init(old) }()

	Init(Config{StreamRetries: 50, MaxStreamRetries: 4})
	assert.Equal(t, 4, Cfg.StreamRetries)

	Init(Config{StreamRetries: -1})
	assert.Equal(t, 0, Cfg.StreamRetries)
	assert.Equal(t, 10, Cfg.MaxStreamRetries)
}
