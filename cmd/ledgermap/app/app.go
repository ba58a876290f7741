// Package app provides the application context and dependency management
// for the ledgermap CLI: configuration, logging and the pipeline lifecycle.
package app

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/ledgermap/pkg/errors"
	"github.com/agentstation/ledgermap/pkg/idmap"
)

// App represents the ledgermap application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger
	out    io.Writer

	// set by WithLogger; flags then leave the logger alone
	fixedLogger bool

	// ID maps opened by commands, closed on shutdown
	mu     sync.Mutex
	idmaps []idmap.Store
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		out:     os.Stdout,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, errors.WrapConfig("cli", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// track registers store to be closed on shutdown.
func (a *App) track(store idmap.Store) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.idmaps = append(a.idmaps, store)
}

// Shutdown closes every ID map opened by the commands.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	stores := a.idmaps
	a.idmaps = nil
	a.mu.Unlock()

	var errs []error
	for _, s := range stores {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		a.fixedLogger = true
		return nil
	}
}

// WithOutput sets where command output is printed.
func WithOutput(w io.Writer) Option {
	return func(a *App) error {
		if w == nil {
			return errors.NewValidationError("output", nil, "writer cannot be nil")
		}
		a.out = w
		return nil
	}
}
