package companion

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thebtf/moodlens/internal/journal"
	"github.com/thebtf/moodlens/pkg/models"
)

const (
	hour  int64 = 60 * 60 * 1000
	today       = "2025-01-31"
)

// staticJournal serves a fixed snapshot.
type staticJournal struct {
	snap journal.Snapshot
}

func (j *staticJournal) Snapshot() journal.Snapshot { return j.snap }

func refClock() journal.Clock { return journal.NewFixedClock(journal.ReferenceNow) }

func summaryOf(snap journal.Snapshot) ContextSummary {
	return Summarize(&staticJournal{snap: snap}, refClock())
}

// moods builds newest-first records, one hour apart, ending an hour before the reference instant.
func moods(emoji ...string) []models.MoodRecord {
	out := make([]models.MoodRecord, len(emoji))
	for i, e := range emoji {
		m, _ := models.MoodFromEmoji(e)
		out[i] = models.MoodRecord{
			ID:        fmt.Sprintf("mood-%d", i),
			Emoji:     e,
			Mood:      m,
			Timestamp: journal.ReferenceNow - int64(i+1)*hour,
		}
	}
	return out
}

func schedule(id, date string, completed bool, start string, createdAt int64) models.Schedule {
	return models.Schedule{ID: id, Date: date, Content: "task " + id, Completed: completed, StartTime: start, CreatedAt: createdAt}
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}
