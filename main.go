// go_tracks: multi-source track search and stream resolution MCP server.
//
// Exposes four MCP tools: track_search, track_next, track_lookup, track_stream.
// Runs as HTTP MCP server or stdio transport.
package main

import (
	"log/slog"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_tracks/internal/engine"
	"github.com/anatolykoptev/go_tracks/internal/engine/multi"
	"github.com/anatolykoptev/go_tracks/internal/trackserver"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", slog.Any("error", err))
	}
	mcpPort := env.Str("MCP_PORT", "8893")

	engine.Init(engine.ConfigFromEnv())
	agg := multi.NewDefault(*engine.Cfg)

	slog.Info("starting go_tracks",
		slog.String("port", mcpPort),
		slog.Int("sources", len(agg.Sources())),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_tracks",
		Version: version,
	}, nil)

	trackserver.RegisterTools(server, agg, engine.Cfg.StreamRetries, engine.Cfg.MaxStreamRetries)
	slog.Info("tools registered", slog.Int("count", 4))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_tracks",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 120 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}
