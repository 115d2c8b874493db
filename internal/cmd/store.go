package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gramsift/gramsift/internal/config"
	"github.com/gramsift/gramsift/internal/core"
	"github.com/gramsift/gramsift/internal/core/store"
)

func openStore(ctx context.Context) (*store.Store, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := db.SeedBuiltInProfiles(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// loadCounters restores persisted usage counters, starting fresh when no
// state has been stored yet.
func loadCounters(ctx context.Context, db *store.Store) (*core.UsageCounters, error) {
	snap, err := db.LoadUsage(ctx)
	if err != nil {
		return nil, fmt.Errorf("load usage counters: %w", err)
	}
	now := time.Now()
	if snap == nil {
		return core.NewUsageCounters(now), nil
	}
	return core.RestoreUsageCounters(*snap, now), nil
}

// loadProfileRecord fetches a stored profile by name, falling back to the
// built-in set.
func loadProfileRecord(ctx context.Context, db *store.Store, name string) (*core.ProfileRecord, error) {
	record, err := db.GetProfile(ctx, name)
	if err != nil {
		return nil, err
	}
	if record == nil {
		if profile, ok := core.FindBuiltInProfile(name); ok {
			return &core.ProfileRecord{Profile: *profile, IsBuiltin: true}, nil
		}
		return nil, fmt.Errorf("profile %q not found", name)
	}
	return record, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.UTC().Format(time.RFC3339)
}

// getDBPath returns the resolved database path from config
func getDBPath() string {
	cfg := config.GetConfig()
	if cfg == nil {
		return config.DefaultStorePath()
	}
	if cfg.Store.URL != "" {
		return cfg.Store.URL
	}
	dbPath := cfg.Store.Path
	if dbPath == "" {
		dbPath = config.DefaultStorePath()
	}
	if absPath, err := filepath.Abs(dbPath); err == nil {
		return absPath
	}
	return dbPath
}
