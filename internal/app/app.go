package app

import (
	"context"

	"github.com/gotd/td/tg"

	"fetchbot/config"
	"fetchbot/internal/bot"
	"fetchbot/internal/middleware"
	"fetchbot/internal/mux"
	"fetchbot/internal/notify"
	"fetchbot/internal/provider"
	"fetchbot/internal/queue"
	"fetchbot/internal/telegram"
	"fetchbot/pkg/logger"
)

type App struct {
	Client *telegram.Client
	Cfg    *config.Config
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	muxArgs, err := cfg.MuxerArgs()
	if err != nil {
		return nil, err
	}
	muxer, err := mux.New(cfg.FFmpegBin, muxArgs)
	if err != nil {
		return nil, err
	}

	// Registration order is match priority.
	provider.Register(provider.NewInstagram(cfg.FetchTimeout))
	provider.Register(provider.NewReddit(muxer, cfg.MaxHeight, cfg.FetchTimeout))
	provider.Register(provider.NewTikTok(cfg.MaxFileSize, cfg.FetchTimeout))

	notifier := notify.New(cfg.EditGap)
	executor := queue.NewExecutor(notifier, cfg.JobTimeout)
	q := queue.New(cfg.MaxActiveJobs, notifier, executor.Run)

	dispatcher := tg.NewUpdateDispatcher()
	client, err := telegram.NewClient(cfg, dispatcher)
	if err != nil {
		return nil, err
	}

	channel := telegram.NewChannel(client.API())
	router := bot.NewRouter(channel, q)

	dispatcher.OnNewMessage(func(ctx context.Context, e tg.Entities, update *tg.UpdateNewMessage) error {
		handler := func() {
			if err := router.OnMessage(ctx, e, update); err != nil {
				logger.Error("OnMessage failed", "error", err)
			}
		}
		go middleware.Chain(handler,
			middleware.Recover,
			func(next func()) func() { return middleware.Logger("OnNewMessage", next) },
		)()
		return nil
	})

	dispatcher.OnNewChannelMessage(func(ctx context.Context, e tg.Entities, update *tg.UpdateNewChannelMessage) error {
		handler := func() {
			if err := router.OnChannelMessage(ctx, e, update); err != nil {
				logger.Error("OnChannelMessage failed", "error", err)
			}
		}
		go middleware.Chain(handler,
			middleware.Recover,
			func(next func()) func() { return middleware.Logger("OnNewChannelMessage", next) },
		)()
		return nil
	})

	logger.Info("Application initialized",
		"max_active_jobs", cfg.MaxActiveJobs,
		"edit_gap", cfg.EditGap,
		"max_height", cfg.MaxHeight,
	)
	return &App{
		Client: client,
		Cfg:    cfg,
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	return a.Client.Run(ctx, a.Cfg.BotToken)
}
