package gorm

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thebtf/moodlens/internal/journal"
	"github.com/thebtf/moodlens/pkg/models"
)

// JournalStore is the journal.Remote backed by the database. All rows are scoped to one user.
type JournalStore struct {
	db     *gorm.DB
	userID string
}

var _ journal.Remote = (*JournalStore)(nil)

// NewJournalStore creates a journal store for userID.
func NewJournalStore(store *Store, userID string) *JournalStore {
	return &JournalStore{db: store.DB, userID: userID}
}

func (s *JournalStore) scoped(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Where("user_id = ?", s.userID)
}

// ListSchedules returns the user's schedules in creation order.
func (s *JournalStore) ListSchedules(ctx context.Context) ([]models.Schedule, error) {
	var rows []Schedule
	if err := s.scoped(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Schedule, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out, nil
}

// CreateSchedule inserts a schedule.
func (s *JournalStore) CreateSchedule(ctx context.Context, sc *models.Schedule) error {
	return s.db.WithContext(ctx).Create(scheduleRow(s.userID, sc)).Error
}

// UpdateSchedule writes every mutable column of a schedule.
func (s *JournalStore) UpdateSchedule(ctx context.Context, sc *models.Schedule) error {
	row := scheduleRow(s.userID, sc)
	result := s.scoped(ctx).Model(&Schedule{}).Where("id = ?", sc.ID).Updates(map[string]any{
		"date":       row.Date,
		"content":    row.Content,
		"completed":  row.Completed,
		"start_time": row.StartTime,
		"end_time":   row.EndTime,
	})
	return rowsAffected(result, "schedule", sc.ID)
}

// DeleteSchedule deletes a schedule.
func (s *JournalStore) DeleteSchedule(ctx context.Context, id string) error {
	return rowsAffected(s.scoped(ctx).Where("id = ?", id).Delete(&Schedule{}), "schedule", id)
}

// ListMoodRecords returns the user's mood records, newest first.
func (s *JournalStore) ListMoodRecords(ctx context.Context) ([]models.MoodRecord, error) {
	var rows []MoodRecord
	if err := s.scoped(ctx).Order("timestamp DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.MoodRecord, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out, nil
}

// CreateMoodRecord inserts a mood record.
func (s *JournalStore) CreateMoodRecord(ctx context.Context, r *models.MoodRecord) error {
	return s.db.WithContext(ctx).Create(moodRecordRow(s.userID, r)).Error
}

// UpdateMoodRecord writes every mutable column of a mood record.
func (s *JournalStore) UpdateMoodRecord(ctx context.Context, r *models.MoodRecord) error {
	row := moodRecordRow(s.userID, r)
	result := s.scoped(ctx).Model(&MoodRecord{}).Where("id = ?", r.ID).Updates(map[string]any{
		"image_url": row.ImageURL,
		"timestamp": row.Timestamp,
		"emoji":     row.Emoji,
		"mood":      row.Mood,
		"intensity": row.Intensity,
		"note":      row.Note,
		"location":  row.Location,
		"summary":   row.Summary,
		"tags":      row.Tags,
	})
	return rowsAffected(result, "mood record", r.ID)
}

// DeleteMoodRecord deletes a mood record.
func (s *JournalStore) DeleteMoodRecord(ctx context.Context, id string) error {
	return rowsAffected(s.scoped(ctx).Where("id = ?", id).Delete(&MoodRecord{}), "mood record", id)
}

// ListDailyNotes returns the user's notes by date.
func (s *JournalStore) ListDailyNotes(ctx context.Context) ([]models.DailyNote, error) {
	var rows []DailyNote
	if err := s.scoped(ctx).Order("date ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.DailyNote, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out, nil
}

// UpsertDailyNote inserts the note or replaces the content of the user's note for that date.
func (s *JournalStore) UpsertDailyNote(ctx context.Context, n *models.DailyNote) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
	}).Create(dailyNoteRow(s.userID, n)).Error
}

// Counts returns the number of rows per table for the user.
func (s *JournalStore) Counts(ctx context.Context) (schedules, moodRecords, dailyNotes int64, err error) {
	if err = s.scoped(ctx).Model(&Schedule{}).Count(&schedules).Error; err != nil {
		return
	}
	if err = s.scoped(ctx).Model(&MoodRecord{}).Count(&moodRecords).Error; err != nil {
		return
	}
	err = s.scoped(ctx).Model(&DailyNote{}).Count(&dailyNotes).Error
	return
}

// importNamespace scopes the ids Import derives for each user.
var importNamespace = uuid.MustParse("6f1d7c2e-3b8a-5e4f-9a0d-2c7b1e8f4a63")

// Import writes data for the user, skipping rows that already exist. Row ids are
// derived from the user and the source id, so the same data can be imported for
// several users of one database and re-importing is a no-op.
func (s *JournalStore) Import(ctx context.Context, data journal.SeedData) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		create := func(row any) error {
			return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error
		}
		for _, sc := range data.Schedules {
			sc.ID = s.importID(sc.ID)
			if err := create(scheduleRow(s.userID, &sc)); err != nil {
				return fmt.Errorf("import schedule %s: %w", sc.ID, err)
			}
		}
		for _, rec := range data.MoodRecords {
			rec.ID = s.importID(rec.ID)
			if err := create(moodRecordRow(s.userID, &rec)); err != nil {
				return fmt.Errorf("import mood record %s: %w", rec.ID, err)
			}
		}
		for _, note := range data.DailyNotes {
			note.ID = s.importID(note.ID)
			if err := create(dailyNoteRow(s.userID, &note)); err != nil {
				return fmt.Errorf("import daily note %s: %w", note.Date, err)
			}
		}
		return nil
	})
}

func (s *JournalStore) importID(id string) string {
	return uuid.NewSHA1(importNamespace, []byte(s.userID+"/"+id)).String()
}

func rowsAffected(result *gorm.DB, kind, id string) error {
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, journal.ErrNotFound)
	}
	return nil
}
