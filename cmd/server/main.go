// cmd/server/main.go
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

	"github.com/jason-s-yu/guandan/internal/auth"
	"github.com/jason-s-yu/guandan/internal/cache"
	"github.com/jason-s-yu/guandan/internal/config"
	"github.com/jason-s-yu/guandan/internal/database"
	"github.com/jason-s-yu/guandan/internal/handlers"
	"github.com/jason-s-yu/guandan/internal/room"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var (
	Version   = "unknown"
	GitCommit = "unknown"
)

func main() {
	app := &cli.App{
		Name:    "guandan",
		Usage:   "four-player GuanDan game server",
		Version: fmt.Sprintf("%s (%s)", Version, GitCommit),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "config file (yaml, json or toml)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "listen port, overrides config"},
			&cli.StringFlag{Name: "log-level", Usage: "trace, debug, info, warn or error"},
			&cli.BoolFlag{Name: "no-db", Usage: "keep users and rooms in memory instead of postgres"},
			&cli.BoolFlag{Name: "no-redis", Usage: "do not mirror room logs to redis"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.Bool("no-db") {
		cfg.NoDB = true
	}
	if c.Bool("no-redis") {
		cfg.NoRedis = true
	}

	logger := logrus.StandardLogger()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logger.SetLevel(level)

	ttl, err := auth.ParseTTL(cfg.TokenExpireTime)
	if err != nil {
		return err
	}
	if err := auth.Init(ttl); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		users database.UserStore = database.NewMemoryUsers()
		store room.Store
	)
	if cfg.NoDB {
		logger.Warn("running without a database; accounts and rooms are kept in memory")
	} else {
		pool, err := database.Connect(ctx, cfg.PostgresOptions())
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := database.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		users = database.NewPGUsers(pool)
		store = database.NewRoomStore(pool)
	}

	var mirror room.LogMirror
	if !cfg.NoRedis {
		rdb, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.DB)
		if err != nil {
			logger.Warnf("room logs will not be mirrored: %v", err)
		} else {
			defer rdb.Close()
			mirror = cache.NewLogMirror(rdb, cfg.Redis.LogTTL)
		}
	}

	rooms := room.NewManager(cfg.RoomConfig(), store, mirror)
	defer rooms.Close()

	srv := handlers.NewServer(logger, rooms, users, ttl)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Running on %s", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server exited: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
