package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/account"
	"github.com/MrEthical07/goSession/internal/confloader"
	"github.com/MrEthical07/goSession/internal/httpapi"
	"github.com/MrEthical07/goSession/internal/logging"
	"github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/MrEthical07/goSession/storage/memory"
	"github.com/MrEthical07/goSession/storage/mongodb"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 30 * time.Second

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML configuration file",
				EnvVars: []string{"APP_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "dev",
				Usage: "use in-process Redis and an in-memory user directory",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "override the listen port",
			},
		},
		Action: func(c *cli.Context) error {
			var opts []confloader.Option
			if path := c.String("config"); path != "" {
				opts = append(opts, confloader.WithConfigFile(path))
			}
			if c.IsSet("port") {
				opts = append(opts, confloader.WithOverrides(map[string]any{"port": c.Int("port")}))
			}
			cfg, err := confloader.NewLoader(opts...).Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return serve(c.Context, cfg, c.Bool("dev"))
		},
	}
}

// backends holds the external resources owned by the server process.
type backends struct {
	redis     redis.UniversalClient
	directory account.Directory
	sinks     goSession.MultiSink
	closers   []func() error
}

func (b *backends) close(log zerolog.Logger) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			log.Warn().Err(err).Msg("sessiond: close backend")
		}
	}
}

func openBackends(ctx context.Context, cfg *confloader.Server, dev bool, log zerolog.Logger) (*backends, error) {
	b := &backends{sinks: goSession.MultiSink{goSession.NewLogSink(log)}}

	if cfg.LogURI != "" {
		b.sinks = append(b.sinks, goSession.NewHTTPSink(cfg.LogURI, cfg.LogToken, log))
	}

	if dev {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start miniredis: %w", err)
		}
		b.closers = append(b.closers, func() error { mr.Close(); return nil })
		b.redis = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		b.closers = append(b.closers, b.redis.Close)
		b.directory = memory.NewDirectory()
		log.Warn().Str("redis", mr.Addr()).Msg("sessiond: dev mode, state is not durable")
		return b, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURI)
	if err != nil {
		return nil, fmt.Errorf("parse redis uri: %w", err)
	}
	b.redis = redis.NewClient(opt)
	b.closers = append(b.closers, b.redis.Close)

	if cfg.MongoURI == "" {
		b.close(log)
		return nil, errors.New("mongo_uri is required outside dev mode")
	}
	mc, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		b.close(log)
		return nil, err
	}
	b.closers = append(b.closers, mc.Close)
	b.directory = mc.Users()
	b.sinks = append(b.sinks, mc.Audit().WithLogger(log))
	return b, nil
}

func serve(ctx context.Context, cfg *confloader.Server, dev bool) error {
	log, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stdout})
	if err != nil {
		return err
	}

	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg, dev, log)
	if err != nil {
		return err
	}
	defer b.close(log)

	engine, err := goSession.New().
		WithConfig(engineCfg).
		WithRedis(b.redis).
		WithUserDirectory(b.directory).
		WithAuditSink(b.sinks).
		WithLogger(log).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	if err := engine.Ping(ctx); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	handler := httpapi.NewRouter(engine, httpapi.Options{
		BaseURL:     cfg.BaseURL,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      log,
		Metrics:     prometheus.NewCollector(engine).Handler(),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("base_url", cfg.BaseURL).Msg("sessiond: listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("sessiond: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("sessiond: stopped")
	return nil
}
