package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"labreport/api/internal/app"
	"labreport/api/internal/archive"
	"labreport/api/internal/config"
	"labreport/api/internal/email"
	"labreport/api/internal/export"
	"labreport/api/internal/history"
	"labreport/api/internal/lock"
	"labreport/api/internal/search"
	"labreport/api/internal/store"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the lab report HTTP API",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":3000", "HTTP listen address")
	f.String("database-url", "", "Postgres URL (empty keeps reports in memory)")
	f.String("migrations-dir", "./db/migrations", "Directory of NNNN_name.up.sql files")
	f.String("redis-url", "", "Redis URL for the submit lock (empty keeps it in-process)")
	f.String("meili-url", "", "Meilisearch URL (empty uses the database for search)")
	f.String("minio-endpoint", "", "MinIO endpoint for submitted PDFs (empty disables the archive)")
	f.String("history-dir", "", "Directory for per-report git history (empty disables history)")
	f.String("pdf-renderer", "auto", "PDF renderer (auto, chrome, vector, basic)")
	f.String("cors-origin", "*", "Access-Control-Allow-Origin value")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := buildDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	service := app.New(cfg, deps, logger)
	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, logger)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RenderTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("lab report API listening",
			zap.String("addr", cfg.Addr),
			zap.String("database", service.StoreKind()),
			zap.String("search", service.SearchBackend()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	service.Wait()
	return nil
}

// buildDeps wires every optional backend that is configured. Anything left
// unconfigured falls back to an in-process equivalent or is skipped.
func buildDeps(ctx context.Context, cfg config.Config, logger *zap.Logger) (app.Deps, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (app.Deps, func(), error) {
		cleanup()
		return app.Deps{}, func() {}, err
	}

	var (
		deps     app.Deps
		db       *sql.DB
		fallback search.Searcher
		loader   search.RecordLoader
	)

	if cfg.DatabaseURL != "" {
		var err error
		db, err = store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fail(fmt.Errorf("database connection failed: %w", err))
		}
		closers = append(closers, func() { _ = db.Close() })

		applied, err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir)
		if err != nil {
			return fail(fmt.Errorf("migrations failed: %w", err))
		}
		if len(applied) > 0 {
			logger.Info("applied migrations", zap.Strings("versions", applied))
		}
		deps.Store = store.NewPostgresStore(db)
		pgfts := search.NewPgFTS(db)
		fallback, loader = pgfts, pgfts
	} else {
		logger.Warn("no database configured, reports are kept in memory")
		memory := store.NewMemoryStore()
		deps.Store = memory
		fallback = search.NewScan(memory)
	}

	if cfg.RedisURL != "" {
		redisLock, err := lock.NewRedis(cfg.RedisURL, lock.DefaultTTL)
		if err != nil {
			return fail(fmt.Errorf("redis connection failed: %w", err))
		}
		closers = append(closers, func() { _ = redisLock.Close() })
		deps.Locker = redisLock
	}

	var meili *search.Meili
	if cfg.MeiliURL != "" {
		meili = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		closers = append(closers, meili.Close)
	}
	searchService := search.NewService(meili, fallback, loader, logger)
	deps.Search = searchService
	go searchService.ReindexAll(ctx)

	if cfg.MinioEndpoint != "" {
		minioArchive, err := archive.NewMinio(archive.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return fail(err)
		}
		if err := minioArchive.EnsureBucket(ctx); err != nil {
			logger.Warn("artifact bucket unavailable", zap.Error(err))
		}
		deps.Archive = minioArchive
	}

	if cfg.HistoryDir != "" {
		if err := os.MkdirAll(cfg.HistoryDir, 0o755); err != nil {
			return fail(fmt.Errorf("create history dir: %w", err))
		}
		deps.History = history.New(cfg.HistoryDir)
	}

	mailer := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})
	if !mailer.IsConfigured() {
		logger.Info("smtp not configured, submission emails disabled")
	}
	deps.Mailer = mailer

	pdf, err := export.NewPDFRenderer(cfg.PDFRenderer, cfg.RenderTimeout, logger)
	if err != nil {
		return fail(err)
	}
	deps.Exporter = export.NewService(pdf, logger)
	logger.Info("pdf renderer", zap.String("renderer", pdf.Name()))

	return deps, cleanup, nil
}
