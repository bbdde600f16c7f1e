package companion

import (
	"fmt"
	"math"

	"github.com/thebtf/moodlens/internal/journal"
	"github.com/thebtf/moodlens/pkg/models"
)

// Proactive thresholds.
const (
	backlogWindow    = 10
	backlogThreshold = 5
	staleMoodDays    = 3
)

// Proactive message texts without parameters.
const (
	BacklogMessage    = "我注意到你最近有不少日程还没完成。是遇到什么困难了吗？要不要一起梳理一下优先级？"
	OnboardingMessage = "欢迎来到数字自我空间～我是你的 AI 伙伴，会基于你的日程和心情记录与你对话。开始记录一些心情吧！"
	WelcomeMessage    = "你好～我会根据你的日程和心情记录与你对话。有什么想聊的，随时告诉我！"
)

// Proactive composes an assistant-initiated message. The first check that applies wins.
// The boolean is false when no message should be shown; callers with proactive
// messages disabled never call this.
func Proactive(ctx ContextSummary) (string, bool) {
	var due []models.Schedule
	for _, s := range schedulesNewestFirst(ctx.Schedules) {
		if s.Date <= ctx.TodayDate {
			due = append(due, s)
		}
	}
	due = head(due, backlogWindow)
	if len(due)-countCompleted(due) >= backlogThreshold {
		return BacklogMessage, true
	}

	if len(ctx.MoodRecords) == 0 {
		return OnboardingMessage, true
	}

	days := DaysSince(ctx.MoodRecords[0].Timestamp, ctx.Now.UnixMilli())
	if days >= staleMoodDays {
		return fmt.Sprintf("你已经 %d 天没有记录心情了，最近过得怎么样？有什么想和我分享的吗？", days), true
	}

	if today := ctx.TodayMoods(); len(today) > 0 {
		if e := today[0].Emoji; e == models.EmojiHappy || e == models.EmojiEnergetic {
			return fmt.Sprintf("看到你今天心情很好 %s，有什么开心的事吗？和我分享一下吧～", e), true
		}
	}

	return WelcomeMessage, true
}

// DaysSince is the number of whole days from thenMillis to nowMillis, rounded down.
func DaysSince(thenMillis, nowMillis int64) int {
	return int(math.Floor(float64(nowMillis-thenMillis) / float64(journal.OneDay)))
}
