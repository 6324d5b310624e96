package main

import (
	"fmt"

	"go.uber.org/zap"

	"Story-Atlas/server/internal/client"
	"Story-Atlas/server/internal/config"
	"Story-Atlas/server/internal/engine"
	"Story-Atlas/server/internal/geo"
	"Story-Atlas/server/internal/interfaces"
	"Story-Atlas/server/internal/models"
	"Story-Atlas/server/internal/storage"
	"Story-Atlas/server/internal/web"
)

// app holds the wired collaborators shared by the commands
type app struct {
	cache    interfaces.StoryCache
	services *web.Services
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	cache, err := storage.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s cache: %w", cfg.Cache.Driver, err)
	}
	logger.Info("story cache ready", zap.String("driver", cfg.Cache.Driver))
	if !cfg.Durable() {
		logger.Warn("story cache is in memory, offline stories are lost on restart")
	}

	api := client.NewStoryClient(cfg.API, logger).WithToken(cfg.API.Token)

	submitCfg := engine.SubmissionConfig{MaxPhotoBytes: cfg.API.MaxPhotoBytes}
	if cfg.API.CheckConnectivity {
		checker, err := client.NewDialChecker(cfg.API.BaseURL, cfg.API.Timeout)
		if err != nil {
			cache.Close()
			return nil, err
		}
		submitCfg.Reachability = checker
	}
	if pos := cfg.Geolocation.Static; pos != nil {
		static := geo.StaticLocator{Position: &models.Coordinates{Lat: pos.Lat, Lon: pos.Lon, Accuracy: pos.Accuracy}}
		submitCfg.Locator = geo.NewBoundedLocator(static, cfg.Geolocation.Timeout, logger)
	}

	svc := &web.Services{
		Cache: cache,
		Clients: func(token string) interfaces.StoryClient {
			if token == "" {
				return api
			}
			return api.WithToken(token)
		},
		Submit: engine.NewSubmissionFlow(api, cache, submitCfg, logger),
		Detail: engine.NewDetailFlow(api, cache, logger),
		Syncer: engine.NewSyncer(api, cache, cfg.API.Token, logger),
	}

	return &app{cache: cache, services: svc}, nil
}

// openDurable is newApp for one-shot commands, which only see another
// process's records through a durable cache
func openDurable(cfg *config.Config, logger *zap.Logger) (*app, error) {
	if !cfg.Durable() {
		return nil, fmt.Errorf("cache driver %q keeps nothing between runs; configure sqlite, redis or mysql", cfg.Cache.Driver)
	}
	return newApp(cfg, logger)
}

func (a *app) Close() error {
	return a.cache.Close()
}
