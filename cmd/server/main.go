// Command server runs the BookSwap backend: a real-time book listing feed
// with reports, conversations, and catalog search over HTTP.
//
//	@title			BookSwap Backend API
//	@version		1.0
//	@description	Real-time book listing feed, reports, and conversation bootstrap.
//	@BasePath		/api/v1
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tsiolis/go-bookswap-backend/internal/config"
	"github.com/tsiolis/go-bookswap-backend/internal/feed"
	httpapi "github.com/tsiolis/go-bookswap-backend/internal/http"
	"github.com/tsiolis/go-bookswap-backend/internal/observability"
	"github.com/tsiolis/go-bookswap-backend/internal/repo"
	"github.com/tsiolis/go-bookswap-backend/internal/search"
	"github.com/tsiolis/go-bookswap-backend/internal/sysutil"
)

const version = "1.0.0"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}
	if cfg.OTEL.Enabled {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			log.Warn().Err(err).Msg("gorm tracing plugin")
		}
	}

	// Change bus + feed aggregator: the live flattened view of all listings.
	bus := feed.NewBus(cfg.Feed.BusBuffer, log.Logger)
	agg := feed.NewAggregator(db, bus, log.Logger)
	if err := agg.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("start feed aggregator")
	}
	defer agg.Close()
	defer bus.Close()

	catalog, err := search.NewIndex()
	if err != nil {
		log.Fatal().Err(err).Msg("create catalog index")
	}
	defer func() { _ = catalog.Close() }()
	seedCatalog(ctx, db, catalog, cfg.CatalogPath)

	r := gin.New()
	httpapi.RegisterRoutes(r, db, bus, agg, catalog, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("api", cfg.APIBasePath).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	log.Info().Msg("server stopped")
}

// seedCatalog fills the search index from books already in the database,
// then from an optional JSON seed file ([{"title","author","cover_url"}]).
func seedCatalog(ctx context.Context, db *gorm.DB, catalog *search.Index, path string) {
	books, err := repo.ListBooks(ctx, db)
	if err != nil {
		log.Warn().Err(err).Msg("catalog seed from db")
	}
	for _, b := range books {
		_ = catalog.Put(search.Entry{Title: b.Title, Author: b.Author, CoverURL: b.CoverURL})
	}

	if path == "" {
		log.Info().Int("entries", catalog.Count()).Msg("catalog ready")
		return
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("catalog seed file unreadable")
		return
	}
	var entries []search.Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("catalog seed file malformed")
		return
	}
	for _, e := range entries {
		if e.Title == "" {
			continue
		}
		if err := catalog.Put(e); err != nil {
			log.Warn().Err(err).Str("title", e.Title).Msg("catalog seed entry")
		}
	}
	log.Info().Int("entries", catalog.Count()).Msg("catalog ready")
}
