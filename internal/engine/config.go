package engine

import (
	"net/http"
	"time"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	YouTubeURL         string
	SoundCloudURL      string
	SoundCloudAPIURL   string
	SoundCloudClientID string // empty = discovered from the site's script bundles
	SearchLimit        int
	FetchTimeout       time.Duration
	MaxBodyBytes       int64
	RequestsPerSecond  float64 // 0 = unlimited
	ScriptCacheSize    int
	StreamRetries      int
	MaxStreamRetries   int // upper bound on caller-supplied retries
	StreamRetryWait    time.Duration
	HTTPClient         *http.Client
	BrowserClient      *BrowserClient // nil = plain HTTPClient transport
}

// DefaultConfig returns production endpoints and conservative limits.
func DefaultConfig() Config {
	return Config{
		YouTubeURL:       "https://www.youtube.com",
		SoundCloudURL:    "https://soundcloud.com",
		SoundCloudAPIURL: "https://api-v2.soundcloud.com",
		SearchLimit:      20,
		FetchTimeout:     15 * time.Second,
		MaxBodyBytes:     8 * 1024 * 1024,
		ScriptCacheSize:  16,
		StreamRetries:    2,
		MaxStreamRetries: 10,
		StreamRetryWait:  250 * time.Millisecond,
		HTTPClient:       &http.Client{Timeout: 15 * time.Second},
	}
}

var cfg = DefaultConfig()

// Cfg exposes the engine configuration for sub-packages (sources, multi).
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
// Zero-valued fields fall back to DefaultConfig.
func Init(c Config) {
	d := DefaultConfig()
	if c.YouTubeURL == "" {
		c.YouTubeURL = d.YouTubeURL
	}
	if c.SoundCloudURL == "" {
		c.SoundCloudURL = d.SoundCloudURL
	}
	if c.SoundCloudAPIURL == "" {
		c.SoundCloudAPIURL = d.SoundCloudAPIURL
	}
	if c.SearchLimit <= 0 {
		c.SearchLimit = d.SearchLimit
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = d.FetchTimeout
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = d.MaxBodyBytes
	}
	if c.ScriptCacheSize <= 0 {
		c.ScriptCacheSize = d.ScriptCacheSize
	}
	if c.MaxStreamRetries <= 0 {
		c.MaxStreamRetries = d.MaxStreamRetries
	}
	c.StreamRetries = min(max(c.StreamRetries, 0), c.MaxStreamRetries)
	if c.HTTPClient == nil {
		c.HTTPClient = d.HTTPClient
	}
	cfg = c
	Cfg = &cfg
}
