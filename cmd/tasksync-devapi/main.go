package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/tgienger/tasksync/internal/config"
	"github.com/tgienger/tasksync/internal/devapi"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadDevAPI()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	server := devapi.New(devapi.Config{
		Secret:     cfg.Secret,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
		Logger:     log,
		Middleware: []fiber.Handler{
			logger.New(logger.Config{
				Format: "[${time}] ${status} - ${latency} ${method} ${path} ${reqHeader:X-Request-ID}\n",
			}),
		},
	})

	go func() {
		if err := server.Listen(cfg.Addr); err != nil {
			log.Error("http server stopped", "error", err)
		}
	}()
	log.Info("task API listening", "addr", cfg.Addr, "base", "/api")

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"devapi": func(ctx context.Context) error {
				log.Info("shutting down")
				return server.Shutdown()
			},
		},
	)

	exitCode := <-wait
	os.Exit(exitCode)
}
