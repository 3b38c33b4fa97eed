package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/ileafrica/ilebot/core/config"
	coredatabase "github.com/ileafrica/ilebot/core/database"
	"github.com/ileafrica/ilebot/core/logger"
)

// Options control the startup pipeline shared between bots.
type Options struct {
	Config *coreconfig.Config
	// AppConfig is handed to Modules.Services untouched.
	AppConfig any
	// Database is nil when the bot keeps no PostgreSQL pool of its own.
	Database *coredatabase.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error

	Modules Modules
}

// Result exposes what the pipeline initialized.
type Result struct {
	DB       *sqlx.DB
	Storage  Storage
	Services any
}

// Close releases the database pool if one was opened.
func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// Run initializes logging, the database (when configured), storage, seeders
// and services, in that order. Any failure releases what was opened.
func Run(ctx context.Context, opts Options) (_ *Result, err error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	res := &Result{}
	defer func() {
		if err != nil {
			_ = res.Close()
		}
	}()

	if opts.Database != nil {
		connect := opts.Connect
		if connect == nil {
			connect = coredatabase.Connect
		}
		if res.DB, err = connect(*opts.Database); err != nil {
			return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
		}
		if opts.Migrate != nil {
			if err = opts.Migrate(*opts.Database); err != nil {
				return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
			}
		}
	}

	if opts.Modules.Storage != nil {
		if res.Storage, err = opts.Modules.Storage(ctx, res); err != nil {
			return nil, fmt.Errorf("bootstrap: storage init failed: %w", err)
		}
	}

	for i, s := range opts.Modules.Seeders {
		start := time.Now()
		if err = s.Seed(ctx, res.Storage); err != nil {
			logger.SEED.Error("seed failed",
				slog.String("event", "seed"),
				slog.Int("seeder", i),
				slog.String("err", err.Error()),
			)
			return nil, fmt.Errorf("bootstrap: seeder %d failed: %w", i, err)
		}
		logger.SEED.Debug("seed done",
			slog.String("event", "seed"),
			slog.Int("seeder", i),
			slog.Duration("duration", time.Since(start)),
		)
	}

	if opts.Modules.Services != nil {
		if res.Services, err = opts.Modules.Services.Provide(ctx, opts.AppConfig, res.Storage); err != nil {
			return nil, fmt.Errorf("bootstrap: services init failed: %w", err)
		}
	}
	return res, nil
}
