package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/archive"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/campaign"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/config"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/content"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/gateway"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/generator"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/metrics"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/service/cache"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/util"
)

// ProvideCacheService connects to Valkey and waits until it answers.
func ProvideCacheService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*cache.Service, func(), error) {
	svc, err := cache.NewCacheService(cache.Config{
		Host:     cfg.Valkey.Host,
		Port:     cfg.Valkey.Port,
		Password: cfg.Valkey.Password,
		DB:       cfg.Valkey.DB,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect valkey: %w", err)
	}
	if err := svc.WaitUntilReady(ctx, constants.ValkeyConfig.ReadyTimeout); err != nil {
		_ = svc.Close()
		return nil, nil, err
	}
	cleanup := func() {
		if err := svc.Close(); err != nil {
			logger.Warn("VALKEY_CLOSE_FAILED", slog.Any("error", err))
		}
	}
	return svc, cleanup, nil
}

// ProvideArchive opens the archive database and migrates its tables.
func ProvideArchive(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*archive.Database, *archive.Repository, func(), error) {
	db, err := archive.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open archive: %w", err)
	}
	repo := archive.NewRepository(db.Gorm(), logger)
	if err := repo.AutoMigrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}
	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.Warn("ARCHIVE_CLOSE_FAILED", slog.Any("error", err))
		}
	}
	return db, repo, cleanup, nil
}

// ProvideOutbound builds the gateway command publisher and the rate-limited, retrying sender
// every component writes through.
func ProvideOutbound(cfg *config.Config, cacheSvc *cache.Service, m *metrics.Metrics, logger *slog.Logger) (*gateway.Publisher, gateway.Sender) {
	publisher := gateway.NewPublisher(gateway.PublisherConfig{
		StreamKey: cfg.Gateway.CommandStreamKey,
	}, cacheSvc.GetClient(), m, logger)

	limited := gateway.NewRateLimited(publisher, constants.GatewayConfig.SendRatePerSecond, constants.GatewayConfig.SendBurst)
	return publisher, gateway.NewRetrying(limited, constants.RetryConfig.MaxAttempts, constants.RetryConfig.BaseDelay, logger)
}

// Generators: LLM backed content producers
type Generators struct {
	Backend generator.Backend
	Quizzes *generator.QuizGenerator
	Memes   *generator.MemeGenerator
}

// ProvideGenerators builds the configured LLM backend and the quiz and meme generators.
func ProvideGenerators(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Generators, error) {
	backend, err := generator.NewBackend(ctx, cfg.Generator)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator backend: %w", err)
	}
	imgflip := generator.NewImgflipClient(nil, "", cfg.Imgflip.Username, cfg.Imgflip.Password)
	logger.Info("GENERATOR_READY", slog.String("backend", backend.Name()))
	return &Generators{
		Backend: backend,
		Quizzes: generator.NewQuizGenerator(backend, logger),
		Memes:   generator.NewMemeGenerator(backend, imgflip, logger),
	}, nil
}

// Content: upstream content clients
type Content struct {
	Website    *content.WebsiteClient
	HackerNews *content.HackerNews
	Quotes     *content.QuoteClient
	Shortener  *content.Shortener
}

// ProvideContent builds the content clients. They share one transport.
func ProvideContent(cfg *config.Config, logger *slog.Logger) *Content {
	httpClient := &http.Client{Timeout: constants.RequestTimeout.ContentAPI}
	return &Content{
		Website:    content.NewWebsiteClient(cfg.Website.URL, httpClient, logger),
		HackerNews: content.NewHackerNews(constants.ContentConfig.HackerNewsURL, httpClient, logger),
		Quotes:     content.NewQuoteClient(constants.ContentConfig.QuoteURL, httpClient, logger),
		Shortener:  content.NewShortener(constants.ContentConfig.ShortenerURL, nil, logger),
	}
}

// ProvideCampaign builds the campaign engine and a scheduler holding its five daily jobs.
func ProvideCampaign(cfg *config.Config, deps campaign.Deps, recorder campaign.RunRecorder) (*campaign.Engine, *campaign.Scheduler, error) {
	engine := campaign.NewEngine(deps)
	scheduler := campaign.NewScheduler(util.LoadLocation(cfg.Schedule.Timezone), recorder, deps.Metrics, deps.Logger)
	if err := campaign.Register(scheduler, engine, cfg.Schedule); err != nil {
		return nil, nil, fmt.Errorf("failed to register campaign jobs: %w", err)
	}
	return engine, scheduler, nil
}
