package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/pitwall/internal/http"
	"github.com/yungbote/pitwall/internal/modules/discord"
	"github.com/yungbote/pitwall/internal/modules/ingestion"
	"github.com/yungbote/pitwall/internal/observability"
	"github.com/yungbote/pitwall/internal/platform/logger"
)

type healthChecker interface {
	IsHealthy(ctx context.Context) bool
}

type App struct {
	Log      *logger.Logger
	Router   *gin.Engine
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context, cfg Config) (*App, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	shutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	})

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = shutdown(ctx)
		log.Sync()
		return nil, err
	}

	repos := wireRepos(clients.DB.DB(), log)

	services, err := wireServices(log, cfg, clients, repos)
	if err != nil {
		clients.Close(log)
		_ = shutdown(ctx)
		log.Sync()
		return nil, err
	}

	if cfg.LogMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	handlers := wireHandlers(log, services, repos)
	router := wireRouter(log, cfg, handlers)

	return &App{
		Log:          log,
		Router:       router,
		Cfg:          cfg,
		Clients:      clients,
		Repos:        repos,
		Services:     services,
		otelShutdown: shutdown,
	}, nil
}

// Start seeds the corpus in the background when BOOTSTRAP_ON_START is set.
// Requests that arrive first join the same run.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if !a.Cfg.BootstrapOnStart {
		return
	}
	go func() {
		if h, ok := a.Clients.Embedder.(healthChecker); ok && !h.IsHealthy(ctx) {
			a.Log.Warn("Embedding backend unreachable; bootstrap will skip chunks until it is up")
		}
		res, err := a.Services.Pipeline.EnsureCorpus(ctx)
		if err != nil {
			a.Log.Error("Startup corpus bootstrap failed", "error", err)
			return
		}
		logBootstrap(a.Log, res)
	}()
}

// Run serves HTTP until ctx is done. With DISCORD_EMBEDDED the bot runs in
// the same process and talks to the chat flow directly.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	g, ctx := errgroup.WithContext(ctx)

	server := &http.Server{Engine: a.Router}
	g.Go(func() error {
		a.Log.Info("HTTP server listening", "addr", a.Cfg.Addr())
		return server.Serve(ctx, a.Cfg.Addr())
	})

	if a.Cfg.DiscordEmbedded && a.Cfg.DiscordToken != "" {
		bot, err := discord.NewBot(a.Log, discord.Config{Token: a.Cfg.DiscordToken}, chatAnswerer{chat: a.Services.Chat})
		if err != nil {
			return fmt.Errorf("init discord bot: %w", err)
		}
		g.Go(func() error { return bot.Run(ctx) })
	}

	return g.Wait()
}

// Ingest runs the corpus bootstrap once in the foreground.
func (a *App) Ingest(ctx context.Context) (ingestion.Result, error) {
	res, err := a.Services.Pipeline.EnsureCorpus(ctx)
	if err != nil {
		return res, err
	}
	logBootstrap(a.Log, res)
	return res, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Clients.Close(a.Log)
	if a.otelShutdown != nil {
		if err := a.otelShutdown(context.Background()); err != nil {
			a.Log.Warn("OTel shutdown failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

func logBootstrap(log *logger.Logger, res ingestion.Result) {
	switch {
	case res.HeldElsewhere:
		log.Info("Corpus bootstrap running in another process")
	case res.Skipped:
		log.Info("Corpus already present")
	default:
		log.Info("Corpus bootstrapped",
			"run_id", res.RunID.String(),
			"pages_fetched", res.Stats.PagesFetched,
			"chunks_stored", res.Stats.ChunksStored,
			"chunks_skipped", res.Stats.ChunksSkipped,
		)
	}
}
