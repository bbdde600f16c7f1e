// Package companion implements the scripted chat companion: a keyword rule table over
// the journal, proactive messages and the conversation session.
package companion

import (
	"sort"
	"time"

	"github.com/thebtf/moodlens/internal/journal"
	"github.com/thebtf/moodlens/pkg/models"
)

// Journal is the read side of the journal the companion consumes.
type Journal interface {
	Snapshot() journal.Snapshot
}

// ContextSummary is the journal state a reply is computed from.
// It is rebuilt on every reply so it always matches the store at the moment of reading.
type ContextSummary struct {
	Schedules   []models.Schedule
	MoodRecords []models.MoodRecord // newest first
	DailyNotes  []models.DailyNote
	TodayDate   string
	Now         time.Time
}

// Summarize projects the journal into a ContextSummary dated by clock.
func Summarize(j Journal, clock journal.Clock) ContextSummary {
	snap := j.Snapshot()
	now := clock.Now().UTC()
	return ContextSummary{
		Schedules:   snap.Schedules,
		MoodRecords: snap.MoodRecords,
		DailyNotes:  snap.DailyNotes,
		TodayDate:   now.Format(models.DateLayout),
		Now:         now,
	}
}

// TodaySchedules returns the schedules dated today.
func (c ContextSummary) TodaySchedules() []models.Schedule {
	var out []models.Schedule
	for _, s := range c.Schedules {
		if s.Date == c.TodayDate {
			out = append(out, s)
		}
	}
	return out
}

// TodayMoods returns today's mood records, newest first.
func (c ContextSummary) TodayMoods() []models.MoodRecord {
	var out []models.MoodRecord
	for _, r := range c.MoodRecords {
		if r.Date() == c.TodayDate {
			out = append(out, r)
		}
	}
	return out
}

// RecentMoods returns up to n of the newest mood records.
func (c ContextSummary) RecentMoods(n int) []models.MoodRecord {
	return head(c.MoodRecords, n)
}

// RecentSchedules returns up to n schedules, most recently created first.
func (c ContextSummary) RecentSchedules(n int) []models.Schedule {
	return head(schedulesNewestFirst(c.Schedules), n)
}

// RecentNotes returns up to n notes, latest date first.
func (c ContextSummary) RecentNotes(n int) []models.DailyNote {
	notes := append([]models.DailyNote(nil), c.DailyNotes...)
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].Date > notes[j].Date })
	return head(notes, n)
}

func schedulesNewestFirst(in []models.Schedule) []models.Schedule {
	out := append([]models.Schedule(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out
}

func head[T any](items []T, n int) []T {
	if n < len(items) {
		return items[:n]
	}
	return items
}
