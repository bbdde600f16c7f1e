package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/thebtf/moodlens/internal/config"
	"github.com/thebtf/moodlens/internal/db/gorm"
	"github.com/thebtf/moodlens/internal/journal"
)

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write the sample journal into the configured database",
		Long: `Writes the sample schedules, mood records and notes into the configured
database for the configured user. Rows that already exist are left alone.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return seed(cmd.Context(), loadConfig())
		},
	}
}

func seed(ctx context.Context, cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	if db == nil {
		return errors.New("no database configured, set " + config.KeyDBDriver)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
		}
	}()

	store := gorm.NewJournalStore(db, cfg.UserID)
	now := journal.ClockFor(cfg.ReferenceTime).Now()
	if err := store.Import(ctx, journal.Seed(now)); err != nil {
		return fmt.Errorf("import seed data: %w", err)
	}

	schedules, records, notes, err := store.Counts(ctx)
	if err != nil {
		return fmt.Errorf("count rows: %w", err)
	}
	log.Info().
		Str("user", cfg.UserID).
		Int64("schedules", schedules).
		Int64("moodRecords", records).
		Int64("dailyNotes", notes).
		Msg("Seed data imported")
	return nil
}
