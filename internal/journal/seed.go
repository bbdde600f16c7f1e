package journal

import (
	"time"

	"github.com/thebtf/moodlens/pkg/models"
)

const oneHour int64 = 60 * 60 * 1000

// SeedImageURL is the placeholder photo used by seed mood records.
const SeedImageURL = "https://images.unsplash.com/photo-1507003211169-0a1dd7228f2d?w=400&h=300&fit=crop"

// SeedData is the fixed journal served in local mode and when the remote read fails.
type SeedData struct {
	Schedules   []models.Schedule
	MoodRecords []models.MoodRecord
	DailyNotes  []models.DailyNote
}

// Seed builds the seed journal relative to now.
func Seed(now time.Time) SeedData {
	nowMs := now.UnixMilli()
	today := models.DateOf(nowMs)
	yesterday := models.DateOf(nowMs - OneDay)

	return SeedData{
		Schedules: []models.Schedule{
			{ID: "schedule-1", Date: today, Content: "团队早会", CreatedAt: nowMs - 7*oneHour, StartTime: "09:00"},
			{ID: "schedule-2", Date: today, Content: "健身房锻炼", CreatedAt: nowMs - 6*oneHour, StartTime: "14:00", EndTime: "15:30"},
			{ID: "schedule-3", Date: today, Content: "准备晚餐", Completed: true, CreatedAt: nowMs - 5*oneHour},
			{ID: "schedule-4", Date: yesterday, Content: "完成项目文档", Completed: true, CreatedAt: nowMs - OneDay, StartTime: "10:00"},
		},
		MoodRecords: []models.MoodRecord{
			{
				ID: "mood-1", ImageURL: SeedImageURL, Timestamp: nowMs - 2*oneHour,
				Emoji: models.EmojiHappy, Mood: models.MoodHappy, Intensity: 8,
				Note: "今天心情不错！", Location: "Home", Tags: []string{"Coffee", "Morning"},
			},
			{
				ID: "mood-2", ImageURL: SeedImageURL, Timestamp: nowMs - OneDay,
				Emoji: models.EmojiCalm, Mood: models.MoodCalm, Intensity: 6,
				Note: "平静的一天", Location: "Outdoors", Tags: []string{"Park", "Walk"},
			},
		},
		DailyNotes: []models.DailyNote{
			{ID: "note-1", Date: today, Content: "今天天气不错，适合写代码。", UpdatedAt: nowMs},
			{ID: "note-2", Date: yesterday, Content: "昨天完成了很多任务，感觉很充实。", UpdatedAt: nowMs - OneDay},
		},
	}
}
