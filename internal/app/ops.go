package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/archive"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/campaign"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/config"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/gateway"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/messages"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/permission"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/store"
)

// Ops: the services operator commands work with, without the event pipeline or HTTP server
type Ops struct {
	Config   *config.Config
	Store    *store.Store
	Settings *permission.KVSettings
	Session  *gateway.Session
	Archive  *archive.Repository

	cleanup   func()
	scheduler func() (*campaign.Scheduler, error)
}

// BuildOps connects to Valkey and the archive. Generators and the scheduler are built lazily
// by Scheduler, so read-only commands work without LLM credentials being reachable.
func BuildOps(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Ops, error) {
	var cleanups cleanupStack
	cacheSvc, closeCache, err := ProvideCacheService(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	cleanups.push(closeCache)

	_, repo, closeDB, err := ProvideArchive(ctx, cfg, logger)
	if err != nil {
		cleanups.run()
		return nil, err
	}
	cleanups.push(closeDB)

	st := store.New(cacheSvc, logger)
	settings := permission.NewKVSettings(st, logger)

	ops := &Ops{
		Config:   cfg,
		Store:    st,
		Settings: settings,
		Session:  gateway.NewSession(cacheSvc, logger),
		Archive:  repo,
		cleanup:  cleanups.run,
	}
	ops.scheduler = func() (*campaign.Scheduler, error) {
		gens, err := ProvideGenerators(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		sources := ProvideContent(cfg, logger)
		_, sender := ProvideOutbound(cfg, cacheSvc, nil, logger)
		_, scheduler, err := ProvideCampaign(cfg, campaign.Deps{
			Targets:   permission.NewResolver(settings, logger),
			Sender:    sender,
			Store:     st,
			Quizzes:   gens.Quizzes,
			Memes:     gens.Memes,
			News:      sources.HackerNews,
			Quotes:    sources.Quotes,
			Shortener: sources.Shortener,
			Archive:   repo,
			Messages:  messages.Default(),
			Logger:    logger,
		}, repo)
		return scheduler, err
	}
	return ops, nil
}

// Scheduler builds the campaign scheduler (not started) for manual runs.
func (o *Ops) Scheduler() (*campaign.Scheduler, error) {
	scheduler, err := o.scheduler()
	if err != nil {
		return nil, fmt.Errorf("build scheduler: %w", err)
	}
	return scheduler, nil
}

// Close releases connections.
func (o *Ops) Close() {
	if o != nil && o.cleanup != nil {
		o.cleanup()
	}
}
