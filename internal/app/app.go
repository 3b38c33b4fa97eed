package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
	supabase "github.com/supabase-community/supabase-go"
	tele "gopkg.in/telebot.v4"

	"github.com/ileafrica/ilebot/core/bootstrap"
	coredatabase "github.com/ileafrica/ilebot/core/database"
	"github.com/ileafrica/ilebot/core/logger"
	"github.com/ileafrica/ilebot/core/metrics"
	tg "github.com/ileafrica/ilebot/core/telegram"
	tghelpers "github.com/ileafrica/ilebot/core/telegram/helpers"
	"github.com/ileafrica/ilebot/core/telegram/sender"
	"github.com/ileafrica/ilebot/core/telegram/state"
	"github.com/ileafrica/ilebot/internal/dispatch"
	"github.com/ileafrica/ilebot/internal/imagehost"
	"github.com/ileafrica/ilebot/internal/moderation"
	"github.com/ileafrica/ilebot/internal/properties"
	"github.com/ileafrica/ilebot/internal/submission"
	"github.com/ileafrica/ilebot/internal/tgbot"
	"github.com/ileafrica/ilebot/internal/users"
	"github.com/ileafrica/ilebot/migrations"
)

// TextSlowDown answers updates dropped by the rate limiter.
const TextSlowDown = "You're sending messages too fast. Please wait a moment."

// Repositories is the storage handle shared by seeders and services.
type Repositories struct {
	Users      users.Repository
	Properties properties.Repository
	Images     imagehost.Host
}

// Services are the application services built on top of Repositories.
type Services struct {
	Flow       *submission.Flow
	Moderation *moderation.Service
	Dispatcher *dispatch.Dispatcher

	redis *redis.Client
}

// App is a bootstrapped bot ready to run.
type App struct {
	cfg      *Config
	res      *bootstrap.Result
	services *Services
	bot      *tgbot.Bot
	files    *tgbot.FileSource
}

// Bootstrap opens storage, seeds the configured admins and builds services.
func Bootstrap(ctx context.Context, cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	files := &tgbot.FileSource{}

	opts := bootstrap.Options{
		Config:    &cfg.Config,
		AppConfig: cfg,
		Modules: bootstrap.Modules{
			Storage:  StorageModule(cfg, files),
			Seeders:  []bootstrap.Seeder{AdminSeeder(cfg.Telegram.Admins())},
			Services: bootstrap.TypedServiceProviderFunc[*Services](ProvideServices),
		},
	}
	if cfg.Storage.Driver == DriverPostgres {
		opts.Database = &cfg.Database
		opts.Migrate = coredatabase.Migrator(migrations.FS)
	}

	res, err := bootstrap.Run(ctx, opts)
	if err != nil {
		return nil, err
	}
	services, ok := res.Services.(*Services)
	if !ok {
		_ = res.Close()
		return nil, fmt.Errorf("app: unexpected services type %T", res.Services)
	}
	return &App{
		cfg:      cfg,
		res:      res,
		services: services,
		bot:      tgbot.New(services.Dispatcher),
		files:    files,
	}, nil
}

// StorageModule opens the repositories selected by storage.driver. Photos
// are read from Telegram through files.
func StorageModule(cfg *Config, files imagehost.Source) func(context.Context, *bootstrap.Result) (bootstrap.Storage, error) {
	return func(_ context.Context, res *bootstrap.Result) (bootstrap.Storage, error) {
		if cfg.Storage.Driver == DriverMemory {
			return &Repositories{
				Users:      users.NewMemoryRepository(),
				Properties: properties.NewMemoryRepository(),
				Images:     imagehost.FileRefs{},
			}, nil
		}

		images := imagehost.NewSupabase(cfg.Supabase.URL, cfg.Supabase.Key, cfg.Supabase.Bucket, files)

		switch cfg.Storage.Driver {
		case DriverPostgres:
			if res == nil || res.DB == nil {
				return nil, errors.New("postgres driver selected but no database pool is open")
			}
			return &Repositories{
				Users:      users.NewPostgresRepository(res.DB),
				Properties: properties.NewPostgresRepository(res.DB),
				Images:     images,
			}, nil
		case DriverSupabase:
			client, err := supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.Key, &supabase.ClientOptions{Schema: cfg.Supabase.Schema})
			if err != nil {
				return nil, fmt.Errorf("supabase client: %w", err)
			}
			return &Repositories{
				Users:      users.NewSupabaseRepository(client),
				Properties: properties.NewSupabaseRepository(client),
				Images:     images,
			}, nil
		}
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// AdminSeeder marks every configured admin in the user directory.
func AdminSeeder(admins []int64) bootstrap.Seeder {
	return bootstrap.SeederFunc(func(ctx context.Context, s bootstrap.Storage) error {
		repos, ok := s.(*Repositories)
		if !ok {
			return fmt.Errorf("admin seeder: unexpected storage %T", s)
		}
		for _, id := range admins {
			if err := repos.Users.EnsureAdmin(ctx, id); err != nil {
				return fmt.Errorf("seed admin %d: %w", id, err)
			}
		}
		logger.SEED.LogAttrs(ctx, slog.LevelInfo, "admins seeded",
			slog.String("event", "seed.admins"),
			slog.Int("count", len(admins)),
		)
		return nil
	})
}

// ProvideServices builds the draft store, the flow, moderation and the
// dispatcher.
func ProvideServices(ctx context.Context, c any, s bootstrap.Storage) (*Services, error) {
	cfg, ok := c.(*Config)
	if !ok {
		return nil, fmt.Errorf("services: unexpected config %T", c)
	}
	repos, ok := s.(*Repositories)
	if !ok {
		return nil, fmt.Errorf("services: unexpected storage %T", s)
	}

	svc := &Services{}
	var drafts state.Store[submission.Draft]
	switch cfg.Session.Backend {
	case SessionRedis:
		svc.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
		})
		if err := svc.redis.Ping(ctx).Err(); err != nil {
			_ = svc.redis.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		drafts = state.NewRedisStore[submission.Draft](svc.redis, state.RedisOptions{Prefix: cfg.Session.RedisPrefix})
	default:
		drafts = state.NewMemoryStore[submission.Draft]()
	}
	logger.Info(ctx, "session", "store.ready", slog.String("backend", cfg.Session.Backend))

	svc.Flow = submission.NewFlow(drafts, repos.Users, repos.Properties, repos.Images, submission.Config{
		Cooldown: cfg.Submission.Cooldown(),
		Limits:   submission.Limits{MaxImages: cfg.Submission.MaxImages},
	})
	svc.Moderation = moderation.NewService(repos.Users, repos.Properties, cfg.Submission.ListLimit)
	svc.Dispatcher = dispatch.New(svc.Flow, svc.Moderation, repos.Users, dispatch.Options{
		Admins: cfg.Telegram.Admins(),
	})
	return svc, nil
}

// Services returns the wired services.
func (a *App) Services() *Services {
	return a.services
}

// TelegramRunOptions builds the routes and lifecycle hooks of the bot.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	reg, err := a.bot.Registry()
	if err != nil {
		return tg.RunOptions{}, fmt.Errorf("app: registry: %w", err)
	}
	return tg.RunOptions{
		Config:            &a.cfg.Config,
		Registry:          reg,
		DispatcherOptions: sender.Options{MaxRetries: 2},
		Middlewares:       tg.DefaultMiddlewares(&a.cfg.Config, slowDown),
		Routes:            a.bot.Routes(reg),
		OnStart:           a.onStart,
	}, nil
}

func (a *App) onStart(ctx context.Context, rt tg.Runtime) error {
	if rt.Bot != nil {
		a.bot.Attach(rt.Bot)
		a.files.Attach(rt.Bot)
	}
	if addr := a.cfg.Metrics.Listen; addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr); err != nil {
				logger.Error(ctx, "metrics", "serve.fail", slog.String("err", err.Error()))
			}
		}()
	}
	return nil
}

// Close releases the redis client and the database pool.
func (a *App) Close() error {
	var errs []error
	if a.services != nil && a.services.redis != nil {
		errs = append(errs, a.services.redis.Close())
	}
	if a.res != nil {
		errs = append(errs, a.res.Close())
	}
	return errors.Join(errs...)
}

func slowDown(c tele.Context) error {
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: TextSlowDown})
	}
	return tghelpers.SendText(c, TextSlowDown)
}
