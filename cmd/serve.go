package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvrodados/mvrodados/accounting"
	"github.com/mvrodados/mvrodados/ai"
	"github.com/mvrodados/mvrodados/api"
	"github.com/mvrodados/mvrodados/applog"
	"github.com/mvrodados/mvrodados/business"
	"github.com/mvrodados/mvrodados/chat"
	"github.com/mvrodados/mvrodados/config"
	"github.com/mvrodados/mvrodados/db"
	"github.com/mvrodados/mvrodados/retrieval"
	"github.com/mvrodados/mvrodados/websearch"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides config)")
}

func runServe(ctx context.Context) error {
	cfg, dotenv, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	if err := applog.Init(cfg.Log.Mode, cfg.Log.File); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer applog.Close()
	applog.Info("starting", "version", api.Version, "dotenv", dotenv, "driver", cfg.DB.Driver)

	store, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.EnsureChatHistory(ctx); err != nil {
		return err
	}

	h, closer, err := buildHandler(ctx, cfg, store)
	if err != nil {
		return err
	}
	defer closer.Close()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	applog.Event("server", "listening", "addr", addr)
	return api.Serve(ctx, api.NewServer(h), addr)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// buildHandler wires every service on top of an open database. The
// returned closer releases the session store.
func buildHandler(ctx context.Context, cfg *config.AppConfig, store *db.DB) (*api.Handler, io.Closer, error) {
	provider, err := ai.NewProvider(cfg.AI)
	if err != nil {
		applog.Warn("AI provider unavailable, using placeholder", "err", err)
		provider = ai.NewPlaceholder()
	}

	docs := retrieval.NewDocumentIndex()
	if _, err := docs.LoadDir(cfg.Server.DocumentsDir); err != nil {
		applog.Warn("documents not loaded", "dir", cfg.Server.DocumentsDir, "err", err)
	}
	rag := retrieval.NewService(store, docs, provider, retrieval.WordOverlapRanker{})
	acct := accounting.NewService(store)

	var sessions chat.SessionStore
	var closer io.Closer = nopCloser{}
	if cfg.Server.RedisURL != "" {
		rdb, err := chat.OpenRedis(ctx, cfg.Server.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		sessions = chat.NewRedisSessionStore(rdb, cfg.Server.SessionTTL())
		closer = rdb
	} else {
		sessions = chat.NewMemorySessionStore(cfg.Server.SessionTTL())
	}

	svc := chat.NewService(chat.Deps{
		Store:       store,
		Sessions:    sessions,
		History:     chat.NewHistoryRepo(store),
		Interpreter: ai.NewInterpreter(provider, db.Defaults{Now: time.Now}),
		Retrieval:   rag,
		Accounting:  acct,
		Web:         websearch.New(cfg.Server.WebSearchMode, cfg.Server.WebSearchURL, provider),
		ShowSQL:     cfg.Server.ShowSQL,
	})

	h := api.NewHandler(api.Deps{
		Chat:         svc,
		Tables:       business.NewTables(store),
		Comprobantes: business.NewComprobantes(store),
		Articulos:    business.NewArticulos(store),
		Accounting:   acct,
		Retrieval:    rag,
	})
	return h, closer, nil
}
