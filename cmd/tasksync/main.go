package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/redis/go-redis/v9"
	"github.com/tgienger/tasksync/internal/api"
	"github.com/tgienger/tasksync/internal/config"
	"github.com/tgienger/tasksync/internal/db"
	"github.com/tgienger/tasksync/internal/session"
	"github.com/tgienger/tasksync/internal/store"
	"github.com/tgienger/tasksync/internal/ui"
	"github.com/tgienger/tasksync/internal/ui/views"
)

// Version information set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Handle version flag
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Printf("tasksync %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize database
	database, err := db.New(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	// The terminal belongs to the UI, so logs go to a file
	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	var tokens session.TokenStore = database
	if cfg.TokenStore == config.TokenStoreRedis {
		redisTokens := db.NewRedisTokenStore(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), cfg.RedisPrefix)
		defer redisTokens.Close()
		tokens = redisTokens
	}

	gateway := session.New(session.Config{
		BaseURL:    cfg.APIURL,
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
		Store:      tokens,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
		Logger:     logger,
	})
	gateway.LoadFromStorage(context.Background())

	tasks := store.New(api.NewClient(gateway), gateway,
		store.WithLogger(logger),
		store.WithSort(views.LoadSort(database)),
	)
	logger.Info("starting", "version", version, "api", cfg.APIURL, "token_store", cfg.TokenStore, "logged_in", tasks.LoggedIn())

	// Create and run the application
	app := ui.NewApp(tasks, database)
	defer app.Close()
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running application: %v\n", err)
		os.Exit(1)
	}
}
