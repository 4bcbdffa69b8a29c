// Package app assembles the shop bot: configuration, logger, storage driver
// selection, the conversation engine and the Telegram runtime wiring.
package app

import (
	"context"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/shopbot/core/cmd"
	coreconfig "github.com/m3rciful/shopbot/core/config"
	coredatabase "github.com/m3rciful/shopbot/core/database"
	"github.com/m3rciful/shopbot/core/logger"
	tg "github.com/m3rciful/shopbot/core/telegram"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"
	"github.com/m3rciful/shopbot/core/telegram/router"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/shop/catalog"
	"github.com/m3rciful/shopbot/shop/flow"
	"github.com/m3rciful/shopbot/shop/listing"
	shoptelegram "github.com/m3rciful/shopbot/shop/telegram"
)

const janitorInterval = time.Second

// App holds the assembled bot components.
type App struct {
	cfg      *Config
	store    catalog.Store
	adapter  *shoptelegram.Adapter
	engine   *flow.Engine
	registry *tg.Registry
}

// LoadConfig adapts Load to the generic runner.
func LoadConfig(path string) (cmd.ConfigCarrier, error) {
	return Load(path)
}

// Bootstrap initializes the logger, opens the selected storage backend and
// wires the conversation engine with its Telegram adapters.
func Bootstrap(carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
	cfg, ok := carrier.(*Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}

	if err := logger.InitLogger(cfg.CoreConfig()); err != nil {
		return nil, fmt.Errorf("app: logger init failed: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	index, err := listing.NewIndex(cfg.Shop.ListingIndexPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("app: listing index init failed: %w", err)
	}

	adapter := shoptelegram.NewAdapter()
	engine := flow.NewEngine(
		store,
		state.NewMemoryManager(),
		adapter,
		listing.NewPublisher(adapter, index),
		index,
		flow.Options{
			SessionTimeout: time.Duration(cfg.Shop.SessionTimeoutSeconds) * time.Second,
			Currency:       cfg.Shop.Currency,
		},
	)

	registry := tg.NewRegistry()
	shoptelegram.RegisterHandlers(registry, engine, shoptelegram.HandlerOptions{
		MenuTTL: time.Duration(cfg.Shop.MenuTTLSeconds) * time.Second,
	})

	return &App{
		cfg:      cfg,
		store:    store,
		adapter:  adapter,
		engine:   engine,
		registry: registry,
	}, nil
}

func openStore(cfg *Config) (catalog.Store, error) {
	switch cfg.Storage.Driver {
	case coreconfig.StorageDriverPostgres:
		db, err := coredatabase.Connect(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("app: database init failed: %w", err)
		}
		if err := coredatabase.RunMigrations(cfg.Database); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("app: migrations failed: %w", err)
		}
		return catalog.NewPostgresStore(db), nil
	default:
		store, err := catalog.NewFileStore(cfg.Shop.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("app: catalog init failed: %w", err)
		}
		return store, nil
	}
}

// TelegramRunOptions builds the runtime wiring for the generic runner.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	core := a.cfg.CoreConfig()

	onLimited := func(c tele.Context) error {
		return tghelpers.SendText(c, "Too fast. Try again in a moment.")
	}

	routes := []tg.Route{
		router.CallbackRoute(a.registry, router.CallbackOptions{}),
	}
	routes = append(routes, router.TextRoutes(a.engine.Sessions(), a.registry, router.TextOptions{})...)
	routes = append(routes, router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID: core.Telegram.AdminID,
	})...)

	return tg.RunOptions{
		Config:      core,
		Registry:    a.registry,
		Middlewares: tg.DefaultMiddlewares(core, onLimited),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt tg.Runtime) error {
			a.adapter.Bind(rt.Bot)
			go a.engine.RunJanitor(ctx, janitorInterval)
			return nil
		},
		OnStop: func(ctx context.Context, rt tg.Runtime) error {
			return a.store.Close()
		},
	}, nil
}
