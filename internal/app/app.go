// Package app wires the invoice store, the reporting and chat services and
// the HTTP handlers into one application.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/go-chi/chi/v5"

	"invoice-analytics/internal/api"
	"invoice-analytics/internal/config"
	internaldb "invoice-analytics/internal/db"
	"invoice-analytics/internal/db/repository"
	"invoice-analytics/internal/export"
	"invoice-analytics/internal/service/chat"
	"invoice-analytics/internal/service/reporting"
	"invoice-analytics/internal/ui"
)

// Deps holds the external dependencies that main() must provide.
type Deps struct {
	Cfg     *config.Config
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Logger  *slog.Logger

	// Transport overrides the HTTP transport to the analytics service.
	Transport chat.Transport
}

// App holds the fully-wired application.
type App struct {
	Repo     *repository.InvoiceRepo
	Reports  *reporting.Service
	Chats    *ui.ChatRegistry
	Exporter *export.Exporter
	API      *api.Handler
	UI       *ui.Handler
}

// New wires repositories, services and handlers from deps. When SeedDemo is
// set, an empty store is filled with demo invoices.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	repo := repository.NewInvoiceRepo(deps.WriteDB, deps.ReadDB)
	if cfg.SeedDemo {
		n, err := SeedDemo(ctx, repo)
		if err != nil {
			return nil, fmt.Errorf("seed demo data: %w", err)
		}
		if n > 0 {
			logger.Info("seeded demo invoices", "count", n)
		}
	}

	reports := reporting.NewService(repo)

	transport := deps.Transport
	if transport == nil {
		transport = chat.NewHTTPTransport(cfg.AnalyticsURL)
	}
	chatLogger := logger.With("analytics_url", cfg.AnalyticsURL)
	chats := ui.NewChatRegistry(func(chatID string) *chat.Controller {
		return chat.NewController(transport,
			chat.WithLogger(chatLogger.With("chat_id", chatID)),
			chat.WithIdleTimeout(cfg.ChatIdleTimeout),
		)
	}, cfg.ChatSessionTTL, logger)

	exportOpts := []export.Option{export.WithLogger(logger)}
	if cfg.HasS3Config() {
		exportOpts = append(exportOpts, export.WithUploader(export.NewS3Client(export.S3Settings{
			KeyID:    *cfg.S3KeyID,
			Secret:   *cfg.S3Secret,
			Endpoint: *cfg.S3Endpoint,
			Region:   *cfg.S3Region,
		})))
		logger.Info("S3 export enabled", "endpoint", *cfg.S3Endpoint)
	}
	exporter := export.NewExporter(exportOpts...)

	health := func(context.Context) (int64, error) {
		return internaldb.SchemaVersion(deps.ReadDB)
	}

	return &App{
		Repo:     repo,
		Reports:  reports,
		Chats:    chats,
		Exporter: exporter,
		API:      api.NewHandler(reports, health, logger),
		UI:       ui.NewHandler(reports, chats, exporter, cfg.IsProduction(), logger),
	}, nil
}

// Mount registers the JSON API and the UI pages on r.
func (a *App) Mount(r chi.Router) {
	a.API.Register(r)
	ui.MountRoutes(r, a.UI)
}

// Run evicts idle chats until ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	a.Chats.Run(ctx)
}
