package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/lalith1997/quantscreen/internal/contracts"
	"github.com/lalith1997/quantscreen/internal/s0_data"
	"github.com/lalith1997/quantscreen/internal/s2_metrics"
	"github.com/lalith1997/quantscreen/pkg/config"
	"github.com/lalith1997/quantscreen/pkg/database"
	"github.com/lalith1997/quantscreen/pkg/httputil"
	"github.com/lalith1997/quantscreen/pkg/logger"
	"github.com/lalith1997/quantscreen/pkg/redis"
)

// app holds the dependencies shared by every command
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	http     *httputil.Client
	db       *database.DB  // nil in snapshot mode
	redis    *redis.Client // no-op when disabled
	provider contracts.DataProvider
	opts     s2_metrics.BuilderOptions
}

type appOptions struct {
	// needDB requires PostgreSQL even when a snapshot is the data source
	needDB bool
	// wantDB connects PostgreSQL for persistence whenever DATABASE_URL is set
	wantDB bool
}

// newApp loads config and connects the data source.
// --snapshot (or SNAPSHOT_PATH) selects an in-memory provider; otherwise PostgreSQL.
func newApp(ctx context.Context, o appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	log := logger.New(cfg)

	a := &app{
		cfg:  cfg,
		log:  log,
		http: httputil.New(cfg, log),
	}

	rc, err := redis.New(ctx, cfg)
	if err != nil {
		// cache only: keep going without it
		log.WithError(err).Warn("Redis unavailable, metric cache disabled")
		rc, _ = redis.New(ctx, &config.Config{})
	}
	a.redis = rc

	source := snapshotSource
	if source == "" {
		source = cfg.Scheduler.SnapshotPath
	}

	if source == "" || o.needDB || (o.wantDB && cfg.Database.URL != "") {
		db, err := database.New(ctx, cfg)
		if err != nil {
			a.Close()
			if errors.Is(err, database.ErrNoDatabaseURL) {
				return nil, fmt.Errorf("no data source: pass --snapshot or set DATABASE_URL")
			}
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.db = db
	}

	if source != "" {
		provider, err := s0_data.OpenSnapshot(ctx, a.http, source)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.provider = provider
		log.WithFields(map[string]interface{}{
			"source":    source,
			"companies": len(provider.Companies()),
		}).Info("Snapshot loaded")
	} else {
		a.provider = s0_data.NewRepository(a.db.Pool)
	}

	a.opts = s2_metrics.BuilderOptions{
		Workers:           cfg.Engine.Workers,
		PriceLookbackDays: cfg.Engine.PriceLookbackDays,
	}
	if a.redis.Enabled() {
		a.opts.Cache = redis.NewMetricStore(a.redis, "quantscreen", cfg.Engine.MetricCacheTTL)
	}

	return a, nil
}

// requireDB fails for commands that persist results
func (a *app) requireDB() error {
	if a.db == nil {
		return fmt.Errorf("this command needs PostgreSQL: set DATABASE_URL")
	}
	return nil
}

// Close releases the database and Redis connections
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
