// Package insights computes the aggregate views of a journal: the mood calendar,
// the intensity trend, the scene distribution and the headline counts.
package insights

import (
	"math"
	"sort"
	"time"

	"github.com/thebtf/moodlens/pkg/models"
)

// DefaultEmoji marks a calendar day whose records carry no emoji.
const DefaultEmoji = models.EmojiHappy

// DefaultScene is assumed for records without a location.
const DefaultScene = "Home"

// Scenes are the locations shown in the distribution, in display order.
var Scenes = []string{"Home", "Work", "Outdoors", "Coffee Shop"}

// CalendarDay is one cell of the month grid. Day is 0 for leading blanks.
type CalendarDay struct {
	Date    string `json:"date,omitempty"`
	Emoji   string `json:"emoji,omitempty"`
	Day     int    `json:"day"`
	Records int    `json:"records"`
}

// MonthCalendar is a month laid out Sunday-first.
type MonthCalendar struct {
	Days  []CalendarDay `json:"days"`
	Year  int           `json:"year"`
	Month int           `json:"month"`
}

// Calendar lays out month (1-12) of year with the dominant emoji of each day.
func Calendar(records []models.MoodRecord, year int, month time.Month) MonthCalendar {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := first.AddDate(0, 1, -1).Day()

	byDay := make(map[int][]models.MoodRecord)
	for _, r := range records {
		t := time.UnixMilli(r.Timestamp).UTC()
		if t.Year() == year && t.Month() == month {
			byDay[t.Day()] = append(byDay[t.Day()], r)
		}
	}

	cal := MonthCalendar{Year: year, Month: int(month)}
	for i := 0; i < int(first.Weekday()); i++ {
		cal.Days = append(cal.Days, CalendarDay{})
	}
	for d := 1; d <= daysInMonth; d++ {
		day := CalendarDay{
			Day:     d,
			Date:    first.AddDate(0, 0, d-1).Format(models.DateLayout),
			Records: len(byDay[d]),
		}
		if len(byDay[d]) > 0 {
			day.Emoji = DominantEmoji(byDay[d])
		}
		cal.Days = append(cal.Days, day)
	}
	return cal
}

// DominantEmoji returns the emoji that first reaches the highest count.
func DominantEmoji(records []models.MoodRecord) string {
	counts := make(map[string]int, len(records))
	best, top := DefaultEmoji, 0
	for _, r := range records {
		counts[r.Emoji]++
		if counts[r.Emoji] > top {
			top = counts[r.Emoji]
			best = r.Emoji
		}
	}
	return best
}

// TrendPoint is one record on the intensity chart.
type TrendPoint struct {
	ID        string      `json:"id"`
	Date      string      `json:"date"`
	Emoji     string      `json:"emoji"`
	Mood      models.Mood `json:"mood"`
	Timestamp int64       `json:"timestamp"`
	Intensity int         `json:"intensity"`
}

// Trend returns records with an intensity, oldest first.
func Trend(records []models.MoodRecord) []TrendPoint {
	points := make([]TrendPoint, 0, len(records))
	for _, r := range records {
		if r.Intensity == 0 {
			continue
		}
		points = append(points, TrendPoint{
			ID:        r.ID,
			Date:      r.Date(),
			Emoji:     r.Emoji,
			Mood:      r.Mood,
			Timestamp: r.Timestamp,
			Intensity: r.Intensity,
		})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })
	return points
}

// SceneShare is one slice of the scene distribution.
type SceneShare struct {
	Name    string `json:"name"`
	Count   int    `json:"count"`
	Percent int    `json:"percent"`
}

// SceneDistribution counts records per known scene. Scenes without records are omitted
// and locations outside Scenes are not shown.
func SceneDistribution(records []models.MoodRecord) []SceneShare {
	counts := make(map[string]int, len(Scenes))
	for _, r := range records {
		loc := r.Location
		if loc == "" {
			loc = DefaultScene
		}
		counts[loc]++
	}

	var (
		shares []SceneShare
		total  int
	)
	for _, name := range Scenes {
		if counts[name] > 0 {
			shares = append(shares, SceneShare{Name: name, Count: counts[name]})
			total += counts[name]
		}
	}
	for i := range shares {
		shares[i].Percent = percent(shares[i].Count, total)
	}
	return shares
}

// Summary holds the headline numbers.
type Summary struct {
	MoodRecords        int `json:"mood_records"`
	RecordsThisWeek    int `json:"records_this_week"`
	Schedules          int `json:"schedules"`
	CompletedSchedules int `json:"completed_schedules"`
	CompletionRate     int `json:"completion_rate"`
	DailyNotes         int `json:"daily_notes"`
}

// Overview counts the journal. Records this week are those in the seven days up to now.
func Overview(schedules []models.Schedule, records []models.MoodRecord, notes []models.DailyNote, now time.Time) Summary {
	s := Summary{
		MoodRecords: len(records),
		Schedules:   len(schedules),
		DailyNotes:  len(notes),
	}
	for _, sc := range schedules {
		if sc.Completed {
			s.CompletedSchedules++
		}
	}
	s.CompletionRate = percent(s.CompletedSchedules, s.Schedules)

	weekStart := now.AddDate(0, 0, -7).UnixMilli()
	for _, r := range records {
		if r.Timestamp > weekStart && r.Timestamp <= now.UnixMilli() {
			s.RecordsThisWeek++
		}
	}
	return s
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Floor(float64(part)*100/float64(total) + 0.5))
}
