// trackctl searches, looks up and resolves tracks from the command line using
// the same engine as the MCP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/anatolykoptev/go_tracks/internal/engine"
	"github.com/anatolykoptev/go_tracks/internal/engine/multi"
	"github.com/anatolykoptev/go_tracks/internal/engine/tracks"
	"github.com/anatolykoptev/go_tracks/internal/toolutil"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var agg *multi.Aggregator
	app := &cli.App{
		Name:  "trackctl",
		Usage: "search YouTube and SoundCloud and resolve stream URLs",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "debug logging"},
		},
		Before: func(c *cli.Context) error {
			level := slog.LevelWarn
			if c.Bool("verbose") {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			engine.Init(engine.ConfigFromEnv())
			agg = multi.NewDefault(*engine.Cfg)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "search for tracks",
				ArgsUsage: "QUERY",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "source", Aliases: []string{"s"}, Usage: "limit to `SOURCE` (yt, sc); repeatable"},
					&cli.IntFlag{Name: "pages", Value: 1, Usage: "fetch `N` pages"},
				},
				Action: func(c *cli.Context) error {
					return search(c.Context, agg, c.Args().First(), c.StringSlice("source"), c.Int("pages"))
				},
			},
			{
				Name:      "lookup",
				Usage:     "show the track behind a URL",
				ArgsUsage: "URL",
				Action: func(c *cli.Context) error {
					l, err := agg.Lookup(c.Context, c.Args().First())
					if err != nil {
						return err
					}
					printTracks(0, l)
					return nil
				},
			},
			{
				Name:      "stream",
				Usage:     "resolve a playable stream URL",
				ArgsUsage: "URL",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "retries", Usage: "extra resolution attempts (default STREAM_RETRIES)"},
				},
				Action: func(c *cli.Context) error {
					var retries *int
					if c.IsSet("retries") {
						n := c.Int("retries")
						retries = &n
					}
					n := toolutil.NormRetries(retries, engine.Cfg.StreamRetries, engine.Cfg.MaxStreamRetries)
					return stream(c.Context, agg, c.Args().First(), n)
				},
			},
		},
		HideHelpCommand: true,
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "trackctl:", err)
		os.Exit(1)
	}
}

func search(ctx context.Context, agg *multi.Aggregator, query string, names []string, pages int) error {
	if query == "" {
		return errors.New("query is required")
	}
	srcs, err := toolutil.ParseSources(names)
	if err != nil {
		return err
	}
	if srcs == nil {
		srcs = agg.Sources()
	}

	l, err := agg.SearchSources(ctx, query, srcs...)
	if err != nil {
		return err
	}
	for page := 1; ; page++ {
		printTracks(page, l)
		if page >= pages {
			return nil
		}
		l, err = l.Next(ctx)
		if errors.Is(err, tracks.ErrMissingPagingValues) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func stream(ctx context.Context, agg *multi.Aggregator, rawURL string, retries int) error {
	if rawURL == "" {
		return errors.New("url is required")
	}
	l, err := agg.Lookup(ctx, rawURL)
	if err != nil {
		return err
	}
	if l.Len() == 0 {
		return fmt.Errorf("%w: empty lookup for %s", tracks.ErrParse, rawURL)
	}
	st, err := agg.ResolveStream(ctx, l.Tracks[0], retries)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%s %s %s (attempts: %d)\n", st.Format.Type, st.Format.Quality, st.Format.Protocol, st.Attempts)
	fmt.Println(st.URL)
	return nil
}

func printTracks(page int, l *tracks.TrackList) {
	if page > 0 {
		fmt.Printf("# page %d (offset %s)\n", page, l.Query[tracks.KeyMultiOffset])
	}
	for _, t := range l.Tracks {
		fmt.Printf("[%s] %-60s %8s  %s\n", t.Source, t.Title, t.Duration.Round(time.Second), t.URL)
	}
}
