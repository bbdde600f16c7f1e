package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm/logger"

	"github.com/thebtf/moodlens/internal/config"
	"github.com/thebtf/moodlens/internal/db/gorm"
	"github.com/thebtf/moodlens/internal/journal"
)

// loadConfig makes sure the data directory exists and reads the settings.
func loadConfig() *config.Config {
	if err := config.EnsureAll(); err != nil {
		log.Warn().Err(err).Msg("Failed to ensure data directory")
	}
	return config.Get()
}

// openDatabase opens the configured database. It returns nil when the journal is kept
// in memory.
func openDatabase(cfg *config.Config) (*gorm.Store, error) {
	switch cfg.DBDriver {
	case config.DriverNone:
		return nil, nil
	case config.DriverSQLite, config.DriverPostgres:
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DBDriver)
	}

	store, err := gorm.NewStore(gorm.Config{
		Driver:   cfg.DBDriver,
		Path:     cfg.DBPath,
		DSN:      cfg.DatabaseURL,
		MaxConns: cfg.MaxConns,
		LogLevel: logger.Silent,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DBDriver, err)
	}
	return store, nil
}

// openJournal builds and loads the journal. The returned close function releases the
// database, if any.
func openJournal(ctx context.Context, cfg *config.Config) (*journal.Store, func(), error) {
	db, err := openDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := journal.Options{
		Clock:         journal.ClockFor(cfg.ReferenceTime),
		RemoteTimeout: cfg.RemoteTimeout(),
	}
	closeDB := func() {}
	if db != nil {
		opts.Remote = gorm.NewJournalStore(db, cfg.UserID)
		closeDB = func() {
			if err := db.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close database")
			}
		}
	}

	store := journal.NewStore(opts)
	source := store.Load(ctx)
	log.Info().
		Str("source", string(source)).
		Str("driver", cfg.DBDriver).
		Str("today", store.Clock().Now().Format("2006-01-02")).
		Msg("Journal ready")
	return store, closeDB, nil
}
