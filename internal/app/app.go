// Package app wires the sitesmith components together and manages the
// server lifecycle.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/dshills/sitesmith/internal/action"
	"github.com/dshills/sitesmith/internal/auth"
	"github.com/dshills/sitesmith/internal/billing"
	"github.com/dshills/sitesmith/internal/config"
	"github.com/dshills/sitesmith/internal/config/watcher"
	"github.com/dshills/sitesmith/internal/event"
	"github.com/dshills/sitesmith/internal/input/keymap"
	"github.com/dshills/sitesmith/internal/objectstore"
	"github.com/dshills/sitesmith/internal/pipeline"
	"github.com/dshills/sitesmith/internal/server"
	"github.com/dshills/sitesmith/internal/storage"
	"github.com/dshills/sitesmith/internal/storage/postgres"
	"github.com/dshills/sitesmith/internal/storage/sqlite"
	"github.com/dshills/sitesmith/internal/workspace"
)

// reloadDebounce coalesces editor save bursts on the config file.
const reloadDebounce = 250 * time.Millisecond

// Application owns every long-lived component of a running sitesmith server.
type Application struct {
	opts   Options
	cfg    *config.Config
	logger *zap.Logger

	store      storage.Store
	objects    *objectstore.Store
	verifier   *auth.Verifier
	billing    *billing.Holder
	keys       *keymap.Registry
	bus        *event.Bus
	workspaces *workspace.Manager
	actions    *action.Actions
	server     *server.Server
	watcher    *watcher.Watcher

	running   atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Options configures the application.
type Options struct {
	// Config is the loaded configuration. Required.
	Config *config.Config

	// ConfigPath is the file Config was loaded from. When set, the file is
	// watched and billing packs and keymap bindings reload on change.
	ConfigPath string

	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	// Listener overrides Config.Server.Addr.
	Listener net.Listener

	// Rebuilder overrides the pipeline built from Config.AI.
	Rebuilder action.Rebuilder
}

// New creates an Application and opens its resources. Close releases them.
func New(ctx context.Context, opts Options) (*Application, error) {
	if opts.Config == nil {
		return nil, NewOperationError("init", "", errors.New("config is required"))
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	app := &Application{
		opts:   opts,
		cfg:    opts.Config,
		logger: opts.Logger,
	}
	if err := app.bootstrap(ctx); err != nil {
		app.release()
		return nil, err
	}
	return app, nil
}

// bootstrap initializes components in dependency order.
func (app *Application) bootstrap(ctx context.Context) error {
	cfg := app.cfg
	var err error

	app.store, err = OpenStore(ctx, cfg.Database)
	if err != nil {
		return err
	}

	app.objects, err = objectstore.New(cfg.Storage.Root, cfg.Storage.PublicBaseURL,
		objectstore.WithMaxBytes(cfg.Storage.MaxUploadBytes),
		objectstore.WithLogger(app.logger),
	)
	if err != nil {
		return NewOperationError("open object store", cfg.Storage.Root, err)
	}

	if cfg.Auth.Secret != "" {
		app.verifier, err = NewVerifier(cfg.Auth)
		if err != nil {
			return err
		}
	} else {
		app.logger.Warn("auth secret not configured, every request is anonymous")
	}

	catalog, err := billing.NewCatalog(cfg.Billing.Packs)
	if err != nil {
		return NewComponentError("billing", "load packs", err)
	}
	app.billing = billing.NewHolder(catalog)

	app.keys = keymap.NewRegistry()
	if err := keymap.LoadDefaults(app.keys); err != nil {
		return NewComponentError("keymap", "load defaults", err)
	}
	if err := app.applyBindings(cfg); err != nil {
		return err
	}

	app.bus = event.NewBus(event.WithLogger(app.logger))

	app.workspaces = workspace.NewManager(app.store, workspace.Config{
		MaxEntries:  cfg.History.MaxEntries,
		SaveTimeout: cfg.History.SaveTimeout.Std(),
		Keymap:      app.keys,
		Bus:         app.bus,
		Logger:      app.logger,
	})

	rebuild := app.opts.Rebuilder
	if rebuild == nil {
		p, err := NewPipeline(ctx, cfg.AI, app.logger)
		switch {
		case errors.Is(err, ErrNoAIKey):
			app.logger.Warn("ai api key not configured, rebuild is disabled")
		case err != nil:
			return err
		default:
			rebuild = p
		}
	}

	app.actions = action.New(app.store, app.objects, rebuild,
		action.Config{
			PublicURL:     cfg.Server.PublicURL,
			LinkTTL:       cfg.Sharing.LinkTTL.Std(),
			InvitationTTL: cfg.Sharing.InvitationTTL.Std(),
		},
		action.WithLogger(app.logger),
	)

	locale, err := language.Parse(cfg.Billing.Locale)
	if err != nil {
		locale = language.AmericanEnglish
	}

	app.server, err = server.New(server.Config{
		Actions:        app.actions,
		Workspaces:     app.workspaces,
		Keymap:         app.keys,
		Billing:        app.billing,
		Bus:            app.bus,
		Verifier:       app.verifier,
		Objects:        app.objects.Handler(),
		Locale:         locale,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		Logger:         app.logger,
	})
	if err != nil {
		return NewComponentError("server", "init", err)
	}

	if app.opts.ConfigPath != "" {
		app.watcher = watcher.New(
			watcher.WithDebounce(reloadDebounce),
			watcher.WithLogger(app.logger),
		)
		if err := app.watcher.Watch(app.opts.ConfigPath); err != nil {
			return NewOperationError("watch config", app.opts.ConfigPath, err)
		}
		app.watcher.OnChange(func(watcher.Event) {
			app.Reload()
		})
	}

	return nil
}

// OpenStore opens the relational store selected by cfg.Driver.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (storage.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		s, err := postgres.Open(ctx, cfg.DSN, cfg.MaxConns)
		if err != nil {
			return nil, NewOperationError("open store", "postgres", err)
		}
		return s, nil
	default:
		s, err := sqlite.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, NewOperationError("open store", cfg.DSN, err).WithContext("sqlite")
		}
		return s, nil
	}
}

// NewVerifier builds a token verifier from the auth settings.
func NewVerifier(cfg config.AuthConfig) (*auth.Verifier, error) {
	if cfg.Secret == "" {
		return nil, ErrNoAuthSecret
	}
	v, err := auth.NewVerifier(auth.Config{
		Secret:   []byte(cfg.Secret),
		Issuer:   cfg.Issuer,
		Audience: cfg.Audience,
		TTL:      cfg.TokenTTL.Std(),
		Cookie:   cfg.Cookie,
	})
	if err != nil {
		return nil, NewComponentError("auth", "init", err)
	}
	return v, nil
}

// NewPipeline builds the reconstruction pipeline backed by Gemini.
// It returns ErrNoAIKey when no API key is configured.
func NewPipeline(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) (*pipeline.Pipeline, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAIKey
	}
	gen, err := pipeline.NewGenAIGenerator(ctx, cfg.APIKey)
	if err != nil {
		return nil, NewComponentError("pipeline", "init", err)
	}
	return pipeline.New(
		pipeline.NewFetcher(cfg.FetchTimeout.Std(), cfg.MaxPageBytes),
		gen,
		pipeline.Models{
			Brief:     cfg.BriefModel,
			Design:    cfg.DesignModel,
			Blueprint: cfg.BlueprintModel,
		},
		pipeline.WithLogger(logger),
	), nil
}

// Handler returns the root HTTP handler.
func (app *Application) Handler() http.Handler {
	return app.server
}

// Billing returns the live pack catalog holder.
func (app *Application) Billing() *billing.Holder {
	return app.billing
}

// Keymap returns the shortcut registry.
func (app *Application) Keymap() *keymap.Registry {
	return app.keys
}

// Reload re-reads the config file and applies the settings that can change
// at runtime: billing packs and keymap bindings. Everything else needs a
// restart. A config that fails to load leaves the running settings intact.
func (app *Application) Reload() {
	path := app.opts.ConfigPath
	if path == "" {
		return
	}
	cfg, err := config.Load(path)
	if err != nil {
		app.logger.Error("config reload failed", zap.String("path", path), zap.Error(err))
		return
	}

	catalog, err := billing.NewCatalog(cfg.Billing.Packs)
	if err != nil {
		app.logger.Error("billing reload failed", zap.Error(err))
	} else {
		app.billing.Swap(catalog)
	}

	if err := app.applyBindings(cfg); err != nil {
		app.logger.Error("keymap reload failed", zap.Error(err))
	}

	app.logger.Info("config reloaded",
		zap.String("path", filepath.Clean(path)),
		zap.Int("packs", app.billing.Catalog().Len()),
	)
}

func (app *Application) applyBindings(cfg *config.Config) error {
	bindings, err := cfg.UserBindings()
	if err != nil {
		return NewComponentError("keymap", "load bindings", err)
	}
	if err := keymap.ApplyUserBindings(app.keys, bindings); err != nil {
		return NewComponentError("keymap", "apply bindings", err)
	}
	return nil
}

// Run serves HTTP until ctx is cancelled or a component fails, then shuts
// down gracefully within the configured shutdown timeout.
func (app *Application) Run(ctx context.Context) error {
	if app.closed.Load() {
		return ErrClosed
	}
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	ln := app.opts.Listener
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", app.cfg.Server.Addr)
		if err != nil {
			return NewOperationError("listen", app.cfg.Server.Addr, err)
		}
	}

	if err := app.bus.Start(); err != nil {
		ln.Close()
		return NewComponentError("event bus", "start", err)
	}

	srv := &http.Server{
		Handler:           app.server,
		ReadTimeout:       app.cfg.Server.ReadTimeout.Std(),
		ReadHeaderTimeout: app.cfg.Server.ReadTimeout.Std(),
		ErrorLog:          zap.NewStdLog(app.logger.Named("http")),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.logger.Info("listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return NewOperationError("serve", ln.Addr().String(), err)
		}
		return nil
	})

	if app.watcher != nil {
		g.Go(func() error {
			return app.watcher.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return app.shutdown(srv)
	})

	return g.Wait()
}

// shutdown drains HTTP, sessions and the bus in that order.
func (app *Application) shutdown(srv *http.Server) error {
	app.logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.Server.ShutdownTimeout.Std())
	defer cancel()

	app.server.CloseStreams()

	var errs []error
	if err := srv.Shutdown(ctx); err != nil {
		errs = append(errs, NewComponentError("http", "shutdown", err))
	}
	if err := app.workspaces.Shutdown(ctx); err != nil {
		errs = append(errs, NewComponentError("workspaces", "shutdown", err))
	}
	if err := app.bus.Stop(ctx); err != nil && !errors.Is(err, event.ErrBusNotRunning) {
		errs = append(errs, NewComponentError("event bus", "stop", err))
	}
	return errors.Join(errs...)
}

// Close releases the store. It is safe to call more than once.
func (app *Application) Close() error {
	app.closeOnce.Do(func() {
		app.closed.Store(true)
		app.closeErr = app.release()
	})
	return app.closeErr
}

func (app *Application) release() error {
	if app.store == nil {
		return nil
	}
	if err := app.store.Close(); err != nil {
		return NewComponentError("store", "close", err)
	}
	return nil
}
