package insights

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/moodlens/pkg/models"
)

func at(date string, hour int) int64 {
	t, _ := time.Parse(models.DateLayout, date)
	return t.Add(time.Duration(hour) * time.Hour).UnixMilli()
}

func rec(id, emoji string, ts int64, intensity int, location string) models.MoodRecord {
	return models.MoodRecord{ID: id, Emoji: emoji, Timestamp: ts, Intensity: intensity, Location: location}
}

func TestCalendar(t *testing.T) {
	records := []models.MoodRecord{
		rec("a", models.EmojiSad, at("2025-01-31", 9), 0, ""),
		rec("b", models.EmojiCalm, at("2025-01-31", 8), 0, ""),
		rec("c", models.EmojiCalm, at("2025-01-31", 7), 0, ""),
		rec("d", models.EmojiHappy, at("2025-01-05", 7), 0, ""),
		rec("e", models.EmojiHappy, at("2025-02-01", 7), 0, ""),
	}

	cal := Calendar(records, 2025, time.January)

	// 2025-01-01 is a Wednesday.
	require.Len(t, cal.Days, 3+31)
	for _, d := range cal.Days[:3] {
		assert.Equal(t, 0, d.Day)
	}
	first := cal.Days[3]
	assert.Equal(t, 1, first.Day)
	assert.Equal(t, "2025-01-01", first.Date)
	assert.Empty(t, first.Emoji)

	assert.Equal(t, models.EmojiHappy, cal.Days[3+4].Emoji)
	last := cal.Days[len(cal.Days)-1]
	assert.Equal(t, 31, last.Day)
	assert.Equal(t, 3, last.Records)
	assert.Equal(t, models.EmojiCalm, last.Emoji)
}

func TestDominantEmojiTieGoesToFirstToReachMax(t *testing.T) {
	records := []models.MoodRecord{
		{Emoji: models.EmojiSad},
		{Emoji: models.EmojiCalm},
		{Emoji: models.EmojiCalm},
		{Emoji: models.EmojiSad},
	}
	assert.Equal(t, models.EmojiCalm, DominantEmoji(records))
	assert.Equal(t, DefaultEmoji, DominantEmoji(nil))
}

func TestTrend(t *testing.T) {
	points := Trend([]models.MoodRecord{
		rec("new", models.EmojiHappy, at("2025-01-31", 9), 8, ""),
		rec("none", models.EmojiCalm, at("2025-01-30", 9), 0, ""),
		rec("old", models.EmojiSad, at("2025-01-29", 9), 3, ""),
	})

	require.Len(t, points, 2)
	assert.Equal(t, "old", points[0].ID)
	assert.Equal(t, "2025-01-29", points[0].Date)
	assert.Equal(t, 3, points[0].Intensity)
	assert.Equal(t, "new", points[1].ID)
}

func TestSceneDistribution(t *testing.T) {
	shares := SceneDistribution([]models.MoodRecord{
		rec("a", models.EmojiHappy, 1, 0, ""),
		rec("b", models.EmojiHappy, 2, 0, "Home"),
		rec("c", models.EmojiHappy, 3, 0, "Outdoors"),
		rec("d", models.EmojiHappy, 4, 0, "Gym"),
	})

	assert.Equal(t, []SceneShare{
		{Name: "Home", Count: 2, Percent: 67},
		{Name: "Outdoors", Count: 1, Percent: 33},
	}, shares)
	assert.Empty(t, SceneDistribution(nil))
}

func TestOverview(t *testing.T) {
	now := time.UnixMilli(at("2025-01-31", 9)).UTC()
	schedules := []models.Schedule{{Completed: true}, {Completed: false}, {Completed: true}}
	records := []models.MoodRecord{
		rec("a", models.EmojiHappy, at("2025-01-31", 7), 0, ""),
		rec("b", models.EmojiHappy, at("2025-01-25", 7), 0, ""),
		rec("c", models.EmojiHappy, at("2025-01-20", 7), 0, ""),
	}

	s := Overview(schedules, records, []models.DailyNote{{Date: "2025-01-31"}}, now)

	assert.Equal(t, Summary{
		MoodRecords:        3,
		RecordsThisWeek:    2,
		Schedules:          3,
		CompletedSchedules: 2,
		CompletionRate:     67,
		DailyNotes:         1,
	}, s)
	assert.Equal(t, 0, Overview(nil, nil, nil, now).CompletionRate)
}
