// Package app wires homeplace's components together with a samber/do injector.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"sync"

	"github.com/nfrund/homeplace/internal/catalog"
	"github.com/nfrund/homeplace/internal/config"
	"github.com/nfrund/homeplace/internal/connection"
	"github.com/nfrund/homeplace/internal/filter"
	"github.com/nfrund/homeplace/internal/gateway"
	"github.com/nfrund/homeplace/internal/gateway/history"
	"github.com/nfrund/homeplace/internal/prefs"
	"github.com/nfrund/homeplace/internal/pubsub"
	"github.com/nfrund/homeplace/internal/server"
	"github.com/samber/do/v2"
	"go.opentelemetry.io/otel/trace"
)

// App owns the injector and closes what it built, newest first.
type App struct {
	injector do.Injector
	cfg      *config.Config

	mu      sync.Mutex
	closers []closer
	closed  bool
}

type closer struct {
	name string
	fn   func() error
}

// New registers every provider. Services are built lazily on first Invoke.
func New(cfg *config.Config) *App {
	a := &App{injector: do.New(), cfg: cfg}

	do.ProvideValue[config.Provider](a.injector, cfg)
	do.Provide(a.injector, a.provideTracer)
	do.Provide(a.injector, a.provideBus)
	do.Provide(a.injector, provideDefaults)
	do.Provide(a.injector, provideHTTPClient)
	do.Provide(a.injector, a.provideManager)
	do.Provide(a.injector, a.provideHistory)
	do.Provide(a.injector, provideBridge)
	do.Provide(a.injector, provideCatalog)
	do.Provide(a.injector, provideServer)
	do.Provide(a.injector, providePrefs)
	return a
}

// Invoke returns the service of type T, building it and its dependencies if needed.
func Invoke[T any](a *App) (T, error) {
	return do.Invoke[T](a.injector)
}

// MustInvoke is Invoke that panics on error.
func MustInvoke[T any](a *App) T {
	return do.MustInvoke[T](a.injector)
}

// Config returns the configuration the app was built with.
func (a *App) Config() *config.Config { return a.cfg }

func (a *App) onShutdown(name string, fn func() error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Shutdown closes every built service in reverse build order. It is safe to
// call more than once.
func (a *App) Shutdown() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		c := closers[i]
		if err := c.fn(); err != nil {
			slog.Error("Failed to shut down service", "service", c.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	return errors.Join(errs...)
}

func (a *App) provideTracer(do.Injector) (trace.Tracer, error) {
	tracer, cleanup, err := pubsub.SetupOTel(context.Background(), pubsub.LoadTracingConfigFromEnv())
	if err != nil {
		return nil, err
	}
	a.onShutdown("tracer", func() error { cleanup(); return nil })
	return tracer, nil
}

func (a *App) provideBus(i do.Injector) (pubsub.PubSub, error) {
	tracer, err := do.Invoke[trace.Tracer](i)
	if err != nil {
		return nil, err
	}
	bus := pubsub.NewWatermillBridge(pubsub.WithTracer(tracer))
	a.onShutdown("pubsub", bus.Close)
	return bus, nil
}

func provideDefaults(i do.Injector) (filter.Defaults, error) {
	cfg := do.MustInvoke[config.Provider](i)
	lo, hi := cfg.GetPriceRange()
	return filter.NewDefaults(filter.Range{Start: lo, End: hi}, cfg.GetDefaultPageLimit()), nil
}

// provideHTTPClient returns the client shared by sign-in and the socket
// handshake, so the session cookie reaches the gateway.
func provideHTTPClient(do.Injector) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &http.Client{Jar: jar}, nil
}

func retryPolicy(p config.ReconnectPolicy) connection.RetryPolicy {
	return connection.RetryPolicy{
		MaxRetries: p.MaxRetries,
		BaseDelay:  p.BaseDelay,
		MaxDelay:   p.MaxDelay,
		Multiplier: p.Multiplier,
		Jitter:     p.Jitter,
	}
}

func (a *App) provideManager(i do.Injector) (*connection.Manager, error) {
	cfg := do.MustInvoke[config.Provider](i)
	bus, err := do.Invoke[pubsub.PubSub](i)
	if err != nil {
		return nil, err
	}
	client := do.MustInvoke[*http.Client](i)

	m := connection.NewManager(connection.Config{
		URL:           cfg.GetGatewayURL(),
		Retry:         retryPolicy(cfg.GetReconnectPolicy()),
		SendQueueSize: cfg.GetSendQueueSize(),
	}, &connection.WebsocketDialer{HTTPClient: client}, bus)
	a.onShutdown("connection", m.Close)
	return m, nil
}

func (a *App) provideHistory(i do.Injector) (history.Store, error) {
	cfg := do.MustInvoke[config.Provider](i)
	var store history.Store
	if path := cfg.GetHistoryDB(); path != "" {
		bolt, err := history.OpenBolt(path, cfg.GetHistoryLimit())
		if err != nil {
			return nil, err
		}
		store = bolt
	} else {
		store = history.NewMemoryStore(cfg.GetHistoryLimit())
	}
	a.onShutdown("history", store.Close)
	return store, nil
}

func provideBridge(i do.Injector) (*gateway.Bridge, error) {
	cfg := do.MustInvoke[config.Provider](i)
	bus, err := do.Invoke[pubsub.PubSub](i)
	if err != nil {
		return nil, err
	}
	store, err := do.Invoke[history.Store](i)
	if err != nil {
		return nil, err
	}
	return gateway.NewBridge(bus, store, gateway.WithHistoryLimit(cfg.GetHistoryLimit())), nil
}

func provideCatalog(do.Injector) (*catalog.Catalog, error) {
	return catalog.Sample(), nil
}

func provideServer(i do.Injector) (*server.Server, error) {
	cfg := do.MustInvoke[config.Provider](i)
	bridge, err := do.Invoke[*gateway.Bridge](i)
	if err != nil {
		return nil, err
	}
	return server.New(cfg, bridge, do.MustInvoke[*catalog.Catalog](i)), nil
}

func providePrefs(i do.Injector) (*prefs.Store, error) {
	return prefs.NewOSStore(do.MustInvoke[config.Provider](i).GetPrefsPath()), nil
}
