package engine

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/env"
)

// ConfigFromEnv reads the engine configuration from the environment. The
// stealth browser client is built unless USE_BROWSER_CLIENT=false.
func ConfigFromEnv() Config {
	d := DefaultConfig()
	c := Config{
		YouTubeURL:         env.Str("YOUTUBE_URL", d.YouTubeURL),
		SoundCloudURL:      env.Str("SOUNDCLOUD_URL", d.SoundCloudURL),
		SoundCloudAPIURL:   env.Str("SOUNDCLOUD_API_URL", d.SoundCloudAPIURL),
		SoundCloudClientID: env.Str("SOUNDCLOUD_CLIENT_ID", ""),
		SearchLimit:        env.Int("SEARCH_LIMIT", d.SearchLimit),
		FetchTimeout:       env.Duration("FETCH_TIMEOUT", d.FetchTimeout),
		RequestsPerSecond:  env.Float("REQUESTS_PER_SECOND", 0),
		ScriptCacheSize:    env.Int("SCRIPT_CACHE_SIZE", d.ScriptCacheSize),
		StreamRetries:      env.Int("STREAM_RETRIES", d.StreamRetries),
		MaxStreamRetries:   env.Int("MAX_STREAM_RETRIES", d.MaxStreamRetries),
		StreamRetryWait:    env.Duration("STREAM_RETRY_WAIT", d.StreamRetryWait),
	}
	c.HTTPClient = &http.Client{
		Timeout: c.FetchTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     60 * time.Second,
		},
	}

	if env.Str("USE_BROWSER_CLIENT", "true") != "false" {
		c.BrowserClient = NewBrowserClient(env.Str("WEBSHARE_API_KEY", ""))
	} else {
		slog.Info("stealth browser client disabled")
	}
	return c
}
