package companion

import (
	"github.com/thebtf/moodlens/pkg/models"
)

// References lists the journal entities the reply for rule was computed from, with
// the span of dates they cover. Rules that do not read individual entries return nil.
func References(rule string, ctx ContextSummary) *models.MessageContext {
	var (
		schedules []models.Schedule
		moods     []models.MoodRecord
		notes     []models.DailyNote
	)
	switch rule {
	case RuleToday:
		schedules, moods = ctx.TodaySchedules(), ctx.TodayMoods()
	case RuleMood:
		moods = ctx.RecentMoods(moodWindow)
	case RuleAdvice:
		schedules, moods = ctx.RecentSchedules(adviceScheduleWindow), ctx.RecentMoods(adviceMoodWindow)
	case RuleReview:
		schedules = ctx.RecentSchedules(reviewScheduleWindow)
		moods = ctx.RecentMoods(reviewMoodWindow)
		notes = ctx.RecentNotes(reviewNoteWindow)
	default:
		return nil
	}
	if len(schedules)+len(moods)+len(notes) == 0 {
		return nil
	}

	ref := &models.MessageContext{}
	var span dateSpan
	for _, s := range schedules {
		ref.Schedules = append(ref.Schedules, s.ID)
		span.add(s.Date)
	}
	for _, r := range moods {
		ref.MoodRecords = append(ref.MoodRecords, r.ID)
		span.add(r.Date())
	}
	for _, n := range notes {
		span.add(n.Date)
	}
	ref.DateRange = span.dateRange()
	return ref
}

// dateSpan tracks the earliest and latest YYYY-MM-DD dates seen.
type dateSpan struct {
	start, end string
}

func (d *dateSpan) add(date string) {
	if date == "" {
		return
	}
	if d.start == "" || date < d.start {
		d.start = date
	}
	if date > d.end {
		d.end = date
	}
}

func (d *dateSpan) dateRange() *models.DateRange {
	if d.start == "" {
		return nil
	}
	return &models.DateRange{Start: d.start, End: d.end}
}
