package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"crossspread/internal/api"
	"crossspread/internal/api/wsstream"
	"crossspread/internal/book"
	"crossspread/internal/config"
	"crossspread/internal/obslog"
	"crossspread/internal/secure"

	_ "github.com/lib/pq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := obslog.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	password, err := resolvePassword(cfg)
	if err != nil {
		logger.Fatal("resolving database password", zap.Error(err))
	}
	cfg.Database.Password = password

	db, err := initDatabase(cfg)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("connected to database", zap.String("host", cfg.Database.Host), zap.String("name", cfg.Database.Name))

	jobStore := api.NewJobStore()
	hub := wsstream.NewHub(logger)

	newSource := func(req api.JobRequest) book.Source {
		return book.NewPostgresSource(db, req.Venues, req.Symbols, req.Start, req.End, cfg.Backtest.SnapshotBatchSize, logger)
	}
	svc := api.NewService(jobStore, cfg.Backtest, newSource, api.NewHubAdapter(hub), logger)

	router := api.SetupRoutes(&api.Dependencies{Service: svc, Hub: hub, Log: logger})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	srv := api.NewServer(httpServer, hub, logger)
	if cfg.Server.UseHTTPS {
		srv = srv.WithTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}

	logger.Info("server exited")
}

// resolvePassword returns the plaintext database password, decrypting
// DB_PASSWORD_ENCRYPTED with Security.EncryptionKey when a plaintext
// DB_PASSWORD was not provided directly.
func resolvePassword(cfg *config.Config) (string, error) {
	if cfg.Database.Password != "" {
		return cfg.Database.Password, nil
	}
	encrypted := os.Getenv("DB_PASSWORD_ENCRYPTED")
	if encrypted == "" {
		return "", nil
	}
	plain, err := secure.DecryptWithKeyString(encrypted, cfg.Security.EncryptionKey)
	if err != nil {
		return "", fmt.Errorf("decrypting DB_PASSWORD_ENCRYPTED: %w", err)
	}
	return plain, nil
}

// initDatabase opens and pings the Postgres connection pool the
// snapshot playback source reads from.
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	db, err := sql.Open(cfg.Database.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}
