package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/campaign"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/command"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/config"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/dispatch"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/event"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/gateway"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/groups"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/health"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/messages"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/metrics"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/permission"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/server"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/service/system"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/shortcache"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/store"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/util"
)

// cleanupStack runs registered cleanups in reverse order.
type cleanupStack []func()

func (s *cleanupStack) push(fn func()) {
	if fn != nil {
		*s = append(*s, fn)
	}
}

func (s cleanupStack) run() {
	for i := len(s) - 1; i >= 0; i-- {
		s[i]()
	}
}

// BuildRuntime assembles every service of the bot. Nothing is started yet.
func BuildRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*BotRuntime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	var cleanups cleanupStack
	runtime, err := buildRuntime(ctx, cfg, logger, &cleanups)
	if err != nil {
		cleanups.run()
		return nil, fmt.Errorf("runtime initialization failed: %w", err)
	}
	runtime.cleanup = cleanups.run
	return runtime, nil
}

func buildRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger, cleanups *cleanupStack) (*BotRuntime, error) {
	health.Init(cfg.Version)
	m := metrics.New()
	msgs := messages.Default()
	location := util.LoadLocation(cfg.Schedule.Timezone)

	cacheSvc, closeCache, err := ProvideCacheService(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	cleanups.push(closeCache)

	db, repo, closeDB, err := ProvideArchive(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	cleanups.push(closeDB)

	st := store.New(cacheSvc, logger)
	settings := permission.NewKVSettings(st, logger)
	resolver := permission.NewResolver(settings, logger)
	directory := groups.NewDirectory(cacheSvc, logger)
	session := gateway.NewSession(cacheSvc, logger)

	publisher, sender := ProvideOutbound(cfg, cacheSvc, m, logger)
	send := gateway.SendFunc(sender)
	reconnector := gateway.NewReconnector(publisher.Reconnect, gateway.DefaultReconnectPolicy(), logger)

	gens, err := ProvideGenerators(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	sources := ProvideContent(cfg, logger)

	registry, err := command.NewBuiltinRegistry(&command.Dependencies{
		Bot:          cfg.Bot,
		Messages:     msgs,
		Website:      sources.Website,
		Asker:        gens.Backend,
		Memes:        gens.Memes,
		Groups:       directory,
		Scores:       st,
		Pages:        shortcache.New[any](constants.CacheTTL.ShortLived),
		SendMessage:  send,
		SendPresence: sender.SendPresence,
		Location:     location,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register commands: %w", err)
	}
	dispatcher := dispatch.NewMessageDispatcher(dispatch.Config{
		Prefix:    cfg.Bot.Prefix,
		AuthorJID: cfg.Bot.AuthorJID,
	}, registry, resolver, send, msgs, m, logger)

	engine, scheduler, err := ProvideCampaign(cfg, campaign.Deps{
		Targets:   resolver,
		Sender:    sender,
		Store:     st,
		Quizzes:   gens.Quizzes,
		Memes:     gens.Memes,
		News:      sources.HackerNews,
		Quotes:    sources.Quotes,
		Shortener: sources.Shortener,
		Archive:   repo,
		Messages:  msgs,
		Metrics:   m,
		Logger:    logger,
	}, repo)
	if err != nil {
		return nil, err
	}

	events := event.NewRegistry(logger)
	handlers := []event.Handler{
		event.NewMessagesUpsertHandler(dispatcher),
		event.NewConnectionHandler(event.ConnectionDeps{
			Session:     session,
			Reconnector: reconnector,
			Send:        send,
			RequestCode: publisher.RequestPairingCode,
			Messages:    msgs,
			BotName:     cfg.Bot.Name,
			BotNumber:   cfg.Bot.BotNumber,
			Location:    location,
			Logger:      logger,
		}),
		event.NewGroupsUpsertHandler(directory, logger),
		event.NewGroupsUpdateHandler(directory),
		event.NewParticipantsHandler(directory, logger),
		event.NewPollVoteHandler(engine),
	}
	for _, name := range []string{
		domain.EventCall,
		domain.EventMessagesReaction,
		domain.EventBlocklistSet,
		domain.EventBlocklistUpdate,
		domain.EventChatsUpdate,
	} {
		handlers = append(handlers, event.NewLogHandler(name, logger))
	}
	for _, handler := range handlers {
		if err := events.Register(handler); err != nil {
			return nil, fmt.Errorf("failed to register event handlers: %w", err)
		}
	}

	router := dispatch.NewRouter(events, cfg.Gateway.LaneCount, constants.GatewayConfig.LaneBuffer, m, logger)
	consumer := gateway.NewConsumer(ctx, gateway.ConsumerConfig{
		StreamKey:     cfg.Gateway.EventStreamKey,
		ConsumerGroup: cfg.Gateway.ConsumerGroup,
		ConsumerName:  cfg.Gateway.ConsumerName,
	}, cacheSvc.GetClient(), router, logger)

	runtime := &BotRuntime{
		Config:      cfg,
		Logger:      logger,
		Consumer:    consumer,
		Router:      router,
		Scheduler:   scheduler,
		Reconnector: reconnector,
	}

	if cfg.Server.Enabled {
		checker := health.NewChecker()
		checker.Register("valkey", func(ctx context.Context) error {
			if !cacheSvc.IsConnected(ctx) {
				return fmt.Errorf("valkey ping failed")
			}
			return nil
		})
		checker.Register("archive", db.Ping)

		handler := server.NewHandler(server.Deps{
			GroupTarget: cfg.Bot.GroupTarget,
			Session:     session,
			Sender:      sender,
			Groups:      directory,
			Jobs:        scheduler,
			Stats:       system.NewCollector(),
			Health:      checker,
			Metrics:     m,
			Logger:      logger,
		})
		engineRouter, err := server.NewRouter(ctx, handler, cfg.Server.TokenHash, logger)
		if err != nil {
			return nil, err
		}
		runtime.HTTPServer = server.NewHTTPServer(cfg.Server.Port, engineRouter)
	}

	return runtime, nil
}
