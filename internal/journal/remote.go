// Package journal owns the in-memory journal state and keeps it in step with a remote store.
package journal

import (
	"context"

	"github.com/thebtf/moodlens/pkg/models"
)

// Remote is the hosted store the journal is persisted to.
// Implementations must be safe for concurrent use.
type Remote interface {
	ListSchedules(ctx context.Context) ([]models.Schedule, error)
	CreateSchedule(ctx context.Context, s *models.Schedule) error
	UpdateSchedule(ctx context.Context, s *models.Schedule) error
	DeleteSchedule(ctx context.Context, id string) error

	ListMoodRecords(ctx context.Context) ([]models.MoodRecord, error)
	CreateMoodRecord(ctx context.Context, r *models.MoodRecord) error
	UpdateMoodRecord(ctx context.Context, r *models.MoodRecord) error
	DeleteMoodRecord(ctx context.Context, id string) error

	ListDailyNotes(ctx context.Context) ([]models.DailyNote, error)
	UpsertDailyNote(ctx context.Context, n *models.DailyNote) error
}
