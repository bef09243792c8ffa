// Package app wires configuration into the running components shared by the
// API server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"save-the-fridge/internal/config"
	"save-the-fridge/internal/database"
	"save-the-fridge/internal/expiry"
	"save-the-fridge/internal/inventory"
	"save-the-fridge/internal/lookup"
	"save-the-fridge/internal/notify"
	"save-the-fridge/internal/scan"
	"save-the-fridge/internal/scan/wedge"
	"save-the-fridge/internal/service"
	"save-the-fridge/internal/storage"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisNamespace = "savethefridge:"

// App holds the assembled components. Close releases them.
type App struct {
	Store     *inventory.Store
	Session   *scan.Session
	Inventory service.InventoryService
	Scan      service.ScanService
	Bridge    *notify.Bridge

	closers []func() error
	logger  zerolog.Logger
}

// New builds every component from cfg. On error, anything already opened is
// released.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{logger: logger}
	built := false
	defer func() {
		if !built {
			a.Close()
		}
	}()

	var rdb *redis.Client
	redisClient := func() *redis.Client {
		if rdb == nil {
			rdb = redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			a.closers = append(a.closers, rdb.Close)
		}
		return rdb
	}

	backend, err := a.openStorage(ctx, cfg, redisClient)
	if err != nil {
		return nil, err
	}

	permission, err := notify.ParsePermission(cfg.Notify.Permission)
	if err != nil {
		return nil, err
	}
	a.Bridge = notify.NewBridge(permission, alerters(cfg.Notify, redisClient, logger), logger)

	a.Store, err = inventory.New(ctx, inventory.Options{
		Storage:  backend,
		Policy:   expiry.NewPolicy(cfg.Notify.UrgentDays),
		Notifier: a.Bridge,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	var lk lookup.Lookup = lookup.NewClient(cfg.Lookup, logger)
	if cfg.Lookup.CacheEnabled {
		lk = lookup.NewCachedLookup(lk, redisClient(), cfg.Lookup.CacheTTL, logger)
	}

	media := wedge.NewMedia(wedge.ParseDevices(cfg.Scanner.Devices))
	a.Session = scan.NewSession(media, media, wedge.NewDecoder(logger), scan.Config{
		SettleDelay: cfg.Scanner.SettleDelay,
		Decode: scan.DecodeConfig{
			FPS:       cfg.Scanner.FPS,
			BoxWidth:  cfg.Scanner.BoxWidth,
			BoxHeight: cfg.Scanner.BoxHeight,
		},
	}, logger)
	a.closers = append(a.closers, a.Session.Close)

	a.Scan = service.NewScanService(a.Session, lk, cfg.Lookup.Timeout, logger)
	a.Inventory = service.NewInventoryService(a.Store, a.Scan, logger)

	built = true
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn().Err(err).Msg("failed to release some resources")
		return err
	}
	return nil
}

func (a *App) openStorage(ctx context.Context, cfg *config.Config, redisClient func() *redis.Client) (storage.Store, error) {
	var primary storage.Store

	switch cfg.Storage.Backend {
	case "memory":
		a.logger.Warn().Msg("using in-memory storage, inventory will not survive a restart")
		return storage.NewMemoryStore(), nil
	case "file":
		a.logger.Info().Str("dir", cfg.Storage.Dir).Msg("using local file storage")
		return storage.NewFileStore(cfg.Storage.Dir, a.logger), nil
	case "s3":
		s3Store, err := storage.NewS3Store(ctx, cfg.S3.Bucket, cfg.S3.Region, cfg.S3.Prefix, a.logger)
		if err != nil {
			if !cfg.Storage.Fallback {
				return nil, fmt.Errorf("failed to initialise S3 storage: %w", err)
			}
			a.logger.Warn().
				Err(err).
				Msg("failed to initialise S3 storage, falling back to local file system only")
		} else {
			primary = s3Store
		}
	case "postgres":
		pool, err := database.NewPool(ctx, cfg.Database, a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialise database: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		primary = storage.NewPostgresStore(pool, a.logger)
	case "redis":
		primary = storage.NewRedisStore(redisClient(), redisNamespace, a.logger)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}

	if !cfg.Storage.Fallback {
		return primary, nil
	}
	a.logger.Info().
		Str("backend", cfg.Storage.Backend).
		Str("dir", cfg.Storage.Dir).
		Msg("keeping a local copy of the inventory")
	return storage.NewFallbackStore(primary, storage.NewFileStore(cfg.Storage.Dir, a.logger), a.logger), nil
}

func alerters(cfg config.NotifyConfig, redisClient func() *redis.Client, logger zerolog.Logger) notify.Alerter {
	var out notify.MultiAlerter
	for _, channel := range cfg.Channels {
		switch channel {
		case "log":
			out = append(out, notify.NewLogAlerter(logger))
		case "redis":
			out = append(out, notify.NewRedisAlerter(redisClient(), cfg.RedisChannel))
		case "smtp":
			out = append(out, notify.NewSMTPAlerter(cfg.SMTP))
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
