// Command sessiond serves goSession over HTTP and carries a few operational
// subcommands against the same Redis backend.
//
//	sessiond serve --config sessiond.toml
//	sessiond count --redis-addr localhost:6379
//	sessiond ping
//	sessiond bench --sessions 10000 --concurrency 64
//
// Without --redis-addr (or SESSIOND_REDIS_ADDR) an in-process miniredis is used.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: loading .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "sessiond",
		Usage: "namespaced per-request sessions over Redis",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to a TOML config file",
				Sources: cli.EnvVars("SESSIOND_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "redis address; empty starts an in-process miniredis",
				Sources: cli.EnvVars("SESSIOND_REDIS_ADDR", "REDIS_ADDR"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "enable debug logging",
				Sources: cli.EnvVars("SESSIOND_DEBUG"),
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			countCommand(),
			pingCommand(),
			benchCommand(),
		},
	}
}

// resolveConfig layers defaults, the config file and explicitly set flags.
func resolveConfig(cmd *cli.Command) (appConfig, error) {
	cfg, err := loadAppConfig(cmd.String("config"))
	if err != nil {
		return appConfig{}, err
	}
	if cmd.IsSet("redis-addr") {
		cfg.RedisAddr = cmd.String("redis-addr")
	}
	if cmd.IsSet("listen") {
		cfg.Listen = cmd.String("listen")
	}
	if cmd.IsSet("jwt-secret") {
		cfg.JWTSecret = cmd.String("jwt-secret")
	}
	if cmd.IsSet("nats-url") {
		cfg.NATSURL = cmd.String("nats-url")
	}
	return cfg, nil
}

func withApp(ctx context.Context, cmd *cli.Command, fn func(context.Context, appConfig, *app) error) error {
	logger := initLogger(cmd.Bool("debug"))

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	rdb, closeRedis, err := openRedis(cfg.RedisAddr, logger)
	if err != nil {
		return err
	}
	defer closeRedis()

	a, err := newApp(cfg, rdb, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, cfg, a)
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the session HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen",
				Usage:   "HTTP listen address",
				Value:   ":8080",
				Sources: cli.EnvVars("SESSIOND_LISTEN"),
			},
			&cli.StringFlag{
				Name:    "jwt-secret",
				Usage:   "HS256 secret for principal tokens (at least 32 bytes)",
				Sources: cli.EnvVars("SESSIOND_JWT_SECRET"),
			},
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "publish audit events to this NATS server",
				Sources: cli.EnvVars("SESSIOND_NATS_URL"),
			},
			&cli.DurationFlag{
				Name:  "shutdown-timeout",
				Usage: "graceful shutdown deadline",
				Value: 10 * time.Second,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withApp(ctx, cmd, func(ctx context.Context, cfg appConfig, a *app) error {
				srv := &http.Server{
					Addr:              cfg.Listen,
					Handler:           a.routes(),
					ReadHeaderTimeout: 5 * time.Second,
					ReadTimeout:       15 * time.Second,
					WriteTimeout:      15 * time.Second,
					IdleTimeout:       60 * time.Second,
				}

				errCh := make(chan error, 1)
				go func() {
					a.logger.Info().Str("addr", cfg.Listen).Msg("listening")
					errCh <- srv.ListenAndServe()
				}()

				select {
				case err := <-errCh:
					if errors.Is(err, http.ErrServerClosed) {
						return nil
					}
					return err
				case <-ctx.Done():
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), cmd.Duration("shutdown-timeout"))
				defer cancel()
				a.logger.Info().Msg("shutting down")
				return srv.Shutdown(shutdownCtx)
			})
		},
	}
}

func countCommand() *cli.Command {
	return &cli.Command{
		Name:  "count",
		Usage: "estimate active sessions with SCAN",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withApp(ctx, cmd, func(ctx context.Context, _ appConfig, a *app) error {
				n, err := a.sessions.EstimateActiveSessions(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.Root().Writer, n)
				return nil
			})
		},
	}
}

func pingCommand() *cli.Command {
	return &cli.Command{
		Name:  "ping",
		Usage: "measure redis round-trip latency",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withApp(ctx, cmd, func(ctx context.Context, _ appConfig, a *app) error {
				d, err := a.sessions.Ping(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.Root().Writer, d)
				return nil
			})
		},
	}
}
