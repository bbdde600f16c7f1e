package gorm

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// runMigrations runs all database migrations using gormigrate.
func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		// Migration 001: journal tables
		{
			ID: "001_journal_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&Schedule{}, &MoodRecord{}, &DailyNote{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("schedules", "mood_records", "daily_notes")
			},
		},

		// Migration 002: completion lookups for the proactive backlog check
		{
			ID: "002_schedules_completed_index",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_schedules_user_completed ON schedules(user_id, completed, date)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec(`DROP INDEX IF EXISTS idx_schedules_user_completed`).Error
			},
		},
	})

	return m.Migrate()
}
