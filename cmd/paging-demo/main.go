// Command paging-demo serves an image collection over HTTP and browses it
// page by page through a headless scrolling viewport.
//
//	paging-demo seed ./pictures          # catalogue a directory into SQLite
//	paging-demo serve                    # serve the catalogue on :8080
//	paging-demo browse --provider http://localhost:8080
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/provider-paging/internal/config"
	"github.com/Sternrassler/provider-paging/pkg/cache"
	"github.com/Sternrassler/provider-paging/pkg/catalog"
	"github.com/Sternrassler/provider-paging/pkg/client"
	"github.com/Sternrassler/provider-paging/pkg/display"
	"github.com/Sternrassler/provider-paging/pkg/docdir"
	"github.com/Sternrassler/provider-paging/pkg/logging"
	"github.com/Sternrassler/provider-paging/pkg/paging"
	"github.com/Sternrassler/provider-paging/pkg/provider"
	"github.com/Sternrassler/provider-paging/pkg/viewer"
)

// catalogSourceName namespaces cache keys for the SQLite catalogue.
const catalogSourceName = "catalog"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "paging-demo",
		Short: "Serve and browse a paginated image collection",
		Long: `paging-demo serves an image collection over HTTP and browses it page by page.

Configuration is read from an optional config file, a .env file in the working
directory and PAGING_* environment variables (e.g. PAGING_PAGE_LIMIT=10,
PAGING_REDIS_ADDR=localhost:6379).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if a.logLevel != "" {
				cfg.LogLevel = a.logLevel
			}
			logging.Setup(cfg.Logging())
			a.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (yaml, json or toml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level override (debug, info, warn, error, disabled)")

	root.AddCommand(a.newServeCmd(), a.newSeedCmd(), a.newBrowseCmd())
	return root
}

func (a *app) newServeCmd() *cobra.Command {
	var addr, dir, dbPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve images over HTTP",
		Long: `Serve the image catalogue (or a directory with --dir) on GET /images?offset=&limit=.

When PAGING_REDIS_ADDR is set, pages are cached in Redis for PAGING_CACHE_TTL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if addr != "" {
				cfg.ListenAddr = addr
			}
			if dir != "" {
				cfg.ImageDir = dir
			}
			if dbPath != "" {
				cfg.DBPath = dbPath
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, closeFn, err := newServer(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			return srv.ListenAndServe(ctx, cfg.ListenAddr)
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config)")
	cmd.Flags().StringVar(&dir, "dir", "", "Serve this directory instead of the catalogue")
	cmd.Flags().StringVarP(&dbPath, "db", "d", "", "Catalogue database path")
	return cmd
}

func (a *app) newSeedCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "seed <dir>",
		Short: "Catalogue the images of a directory",
		Long: `Scan dir for images and add them to the SQLite catalogue under new ids.

Images already catalogued by path are skipped, so seeding is idempotent.
Cached catalogue pages are invalidated when a Redis cache is configured.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if dbPath != "" {
				cfg.DBPath = dbPath
			}
			return runSeed(cmd.Context(), cmd.OutOrStdout(), cfg, args[0])
		},
	}
	cmd.Flags().StringVarP(&dbPath, "db", "d", "", "Catalogue database path")
	return cmd
}

func (a *app) newBrowseCmd() *cobra.Command {
	var providerURL, dir, dbPath string
	var steps, rows int

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Press load and scroll through the collection",
		Long: `Browse presses the load button once, then scrolls the viewport down one screen
per step, printing each status message as pages arrive.

The source is the provider at --provider, else the directory at --dir, else the catalogue.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if providerURL != "" {
				cfg.ProviderURL = providerURL
			}
			if dir != "" {
				cfg.ImageDir = dir
			}
			if dbPath != "" {
				cfg.DBPath = dbPath
			}
			if rows > 0 {
				cfg.ViewportRows = rows
			}
			return runBrowse(cmd.Context(), cmd.OutOrStdout(), cfg, steps)
		},
	}
	cmd.Flags().StringVarP(&providerURL, "provider", "p", "", "Provider base URL")
	cmd.Flags().StringVar(&dir, "dir", "", "Browse this directory directly")
	cmd.Flags().StringVarP(&dbPath, "db", "d", "", "Catalogue database path")
	cmd.Flags().IntVarP(&steps, "steps", "n", 10, "Number of one-screen scroll steps")
	cmd.Flags().IntVarP(&rows, "rows", "r", 0, "Viewport rows (default from config)")
	return cmd
}

// openLocalSource opens the directory source when ImageDir is set, otherwise the catalogue.
func openLocalSource(cfg *config.Config) (paging.DataSource, string, func() error, error) {
	if cfg.ImageDir != "" {
		src, err := docdir.New(cfg.ImageDir)
		if err != nil {
			return nil, "", nil, fmt.Errorf("open image dir: %w", err)
		}
		return src, "dir:" + cfg.ImageDir, func() error { return nil }, nil
	}

	cat, err := catalog.Open(cfg.DBPath)
	if err != nil {
		return nil, "", nil, fmt.Errorf("open catalogue: %w", err)
	}
	return cat, catalogSourceName, cat.Close, nil
}

// openCache connects to Redis when configured. A nil manager means caching is off.
func openCache(ctx context.Context, cfg *config.Config) (*cache.Manager, func() error) {
	if cfg.RedisAddr == "" {
		return nil, func() error { return nil }
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("redis_addr", cfg.RedisAddr).Msg("Redis unavailable, page cache disabled")
		rdb.Close()
		return nil, func() error { return nil }
	}
	log.Info().Str("redis_addr", cfg.RedisAddr).Msg("Connected to Redis")
	return cache.NewManager(rdb), rdb.Close
}

func newServer(ctx context.Context, cfg *config.Config) (*provider.Server, func(), error) {
	src, name, closeSrc, err := openLocalSource(cfg)
	if err != nil {
		return nil, nil, err
	}

	manager, closeCache := openCache(ctx, cfg)
	if manager != nil {
		src = cache.NewCachingSource(src, manager, cache.SourceConfig{Name: name, TTL: cfg.CacheTTL})
	}

	srv, err := provider.New(src, provider.Options{Name: name, FetchTimeout: cfg.FetchTimeout})
	if err != nil {
		closeCache()
		closeSrc()
		return nil, nil, err
	}

	return srv, func() {
		closeCache()
		closeSrc()
	}, nil
}

func runSeed(ctx context.Context, out io.Writer, cfg *config.Config, dir string) error {
	src, err := docdir.New(dir)
	if err != nil {
		return fmt.Errorf("open image dir: %w", err)
	}

	cat, err := catalog.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open catalogue: %w", err)
	}
	defer cat.Close()

	n, err := cat.ImportDir(ctx, src)
	if err != nil {
		return err
	}
	total, err := cat.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Imported %d images (%d in catalogue)\n", n, total)

	manager, closeCache := openCache(ctx, cfg)
	defer closeCache()
	if manager != nil && n > 0 {
		dropped, err := manager.Invalidate(ctx, catalogSourceName)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to invalidate cached pages")
		} else {
			log.Info().Int("keys", dropped).Msg("Invalidated cached catalogue pages")
		}
	}
	return nil
}

func openBrowseSource(cfg *config.Config) (paging.DataSource, func() error, error) {
	if cfg.ProviderURL != "" {
		c, err := client.New(client.DefaultConfig(cfg.ProviderURL))
		if err != nil {
			return nil, nil, err
		}
		return c, func() error { return nil }, nil
	}
	src, _, closeFn, err := openLocalSource(cfg)
	return src, closeFn, err
}

func runBrowse(ctx context.Context, out io.Writer, cfg *config.Config, steps int) error {
	if steps < 0 {
		return errors.New("steps must be >= 0")
	}

	src, closeSrc, err := openBrowseSource(cfg)
	if err != nil {
		return err
	}
	defer closeSrc()

	list := display.NewList()
	status := paging.StatusFunc(func(msg paging.StatusMessage) {
		fmt.Fprintln(out, msg)
	})

	fetcher, err := paging.NewFetcher(src, list, status, paging.Config{
		Limit:   cfg.PageLimit,
		Timeout: cfg.FetchTimeout,
	})
	if err != nil {
		return err
	}
	defer fetcher.Close()

	view, err := viewer.New(fetcher, list, cfg.ViewportRows)
	if err != nil {
		return err
	}

	if _, err := view.PressLoad(ctx); err != nil {
		return err
	}
	fetcher.Wait()

	for range steps {
		if _, err := view.ScrollBy(ctx, view.Rows()); err != nil {
			return err
		}
		fetcher.Wait()
	}

	state := fetcher.State()
	fmt.Fprintf(out, "Loaded %d of %d images\n", state.FetchedCount, state.TotalCount)
	for _, row := range view.Visible() {
		if row.Loaded {
			fmt.Fprintf(out, "  %4d  %s\n", row.Index+1, row.Record.DisplayName)
		} else {
			fmt.Fprintf(out, "  %4d  ...\n", row.Index+1)
		}
	}
	return nil
}
