package transfer

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/conduit-lang/schemabridge/internal/orm/declare"
	"github.com/conduit-lang/schemabridge/internal/orm/source"
)

// DefaultModuleName is the sibling module name used when none is configured
const DefaultModuleName = "alchemy"

// App is a host application whose models are autoloaded
type App struct {
	Name string

	// Models is the application's model module
	Models *source.Module

	// Load, when set, is used instead of Models. A failing Load is
	// contained to the application.
	Load func() (*source.Module, error)
}

func (a App) module() (*source.Module, error) {
	if a.Load != nil {
		return a.Load()
	}
	if a.Models == nil {
		return nil, fmt.Errorf("app %s has no models", a.Name)
	}
	return a.Models, nil
}

// AppRegistry holds host applications and the namespaces published for them
type AppRegistry struct {
	apps       []App
	namespaces map[string]*Namespace
	mu         sync.RWMutex
}

// NewAppRegistry creates an empty registry
func NewAppRegistry() *AppRegistry {
	return &AppRegistry{
		namespaces: make(map[string]*Namespace),
	}
}

// Register adds an application
func (r *AppRegistry) Register(app App) error {
	if app.Name == "" {
		return fmt.Errorf("app name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.apps {
		if existing.Name == app.Name {
			return fmt.Errorf("app %s already registered", app.Name)
		}
	}
	r.apps = append(r.apps, app)
	return nil
}

// Apps returns applications in registration order
func (r *AppRegistry) Apps() []App {
	r.mu.RLock()
	defer r.mu.RUnlock()

	apps := make([]App, len(r.apps))
	copy(apps, r.apps)
	return apps
}

// Publish registers a namespace under its name
func (r *AppRegistry) Publish(ns *Namespace) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.namespaces[ns.Name()] = ns
}

// Namespace returns a published namespace by its dotted path
func (r *AppRegistry) Namespace(path string) (*Namespace, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ns, ok := r.namespaces[path]
	return ns, ok
}

// Namespaces returns published namespace paths in sorted order
func (r *AppRegistry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths := make([]string, 0, len(r.namespaces))
	for path := range r.namespaces {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// AutoloadConfig configures an Autoloader
type AutoloadConfig struct {
	// ModuleName is the sibling module name; empty means DefaultModuleName
	ModuleName   string
	StartupDelay time.Duration
	Options      Options
}

// Report summarizes an autoload run
type Report struct {
	// Loaded are namespaces synthesized by this run
	Loaded []string
	// Existing are namespaces that were already published
	Existing []string
	// Failed maps app names to their contained failure
	Failed map[string]error
	// Err aggregates every failure
	Err error
}

// Autoloader publishes a namespace for every registered application
type Autoloader struct {
	apps   *AppRegistry
	engine *declare.Engine
	config AutoloadConfig
	logger *zap.Logger

	once   sync.Once
	report *Report
}

// NewAutoloader creates an autoloader. A nil logger means zap.NewNop.
func NewAutoloader(apps *AppRegistry, engine *declare.Engine, config AutoloadConfig, logger *zap.Logger) *Autoloader {
	if config.ModuleName == "" {
		config.ModuleName = DefaultModuleName
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Autoloader{
		apps:   apps,
		engine: engine,
		config: config,
		logger: logger,
	}
}

// Run autoloads every application once. Later calls return the first report.
func (a *Autoloader) Run(ctx context.Context) *Report {
	a.once.Do(func() {
		a.report = a.run(ctx)
	})
	return a.report
}

// Start runs the autoloader on a goroutine after the startup delay. The
// returned channel receives the report and is then closed.
func (a *Autoloader) Start(ctx context.Context) <-chan *Report {
	ch := make(chan *Report, 1)
	go func() {
		defer close(ch)

		if a.config.StartupDelay > 0 {
			timer := time.NewTimer(a.config.StartupDelay)
			defer timer.Stop()

			select {
			case <-timer.C:
			case <-ctx.Done():
				ch <- &Report{Failed: map[string]error{}, Err: ctx.Err()}
				return
			}
		}
		ch <- a.Run(ctx)
	}()
	return ch
}

func (a *Autoloader) run(ctx context.Context) *Report {
	report := &Report{Failed: make(map[string]error)}

	for _, app := range a.apps.Apps() {
		if err := ctx.Err(); err != nil {
			report.Err = multierr.Append(report.Err, err)
			break
		}

		path := app.Name + "." + a.config.ModuleName
		if _, ok := a.apps.Namespace(path); ok {
			report.Existing = append(report.Existing, path)
			continue
		}

		if err := a.load(ctx, app, path); err != nil {
			a.logger.Warn("autoload failed",
				zap.String("app", app.Name),
				zap.String("namespace", path),
				zap.Error(err))
			report.Failed[app.Name] = err
			report.Err = multierr.Append(report.Err, fmt.Errorf("%s: %w", app.Name, err))
			continue
		}

		a.logger.Debug("autoloaded namespace", zap.String("namespace", path))
		report.Loaded = append(report.Loaded, path)
	}

	return report
}

func (a *Autoloader) load(ctx context.Context, app App, path string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	module, err := app.module()
	if err != nil {
		return err
	}

	ns := NewNamespace(path)
	if err := Transfer(ctx, a.engine, module, ns, a.config.Options); err != nil {
		return err
	}
	a.apps.Publish(ns)
	return nil
}
