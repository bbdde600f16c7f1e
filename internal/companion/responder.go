package companion

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/moodlens/internal/privacy"
	"github.com/thebtf/moodlens/pkg/models"
)

// Rule names with a built-in reply handler.
const (
	RuleToday    = "today"
	RuleMood     = "mood"
	RuleAdvice   = "advice"
	RuleReview   = "review"
	RuleSupport  = "support"
	RuleJoy      = "joy"
	RuleThanks   = "thanks"
	RuleGreeting = "greeting"
	RuleIdentity = "identity"
	RuleStats    = "stats"

	// RuleFallback is reported by Classify when no rule matches.
	RuleFallback = "fallback"
)

// noteExcerptLimit is how many runes of a note the mood reply quotes.
const noteExcerptLimit = 30

// How many of the newest entries each data-driven reply reads.
const (
	moodWindow           = 7
	adviceScheduleWindow = 15
	adviceMoodWindow     = 5
	reviewScheduleWindow = 20
	reviewMoodWindow     = 7
	reviewNoteWindow     = 7
)

var (
	positiveEmoji = map[string]bool{models.EmojiHappy: true, models.EmojiEnergetic: true, models.EmojiCalm: true}
	negativeEmoji = map[string]bool{models.EmojiSad: true, models.EmojiAnxious: true}
)

// Handler renders the reply for one rule.
type Handler func(ctx ContextSummary) string

// Responder maps an utterance to a reply: the first matching rule wins and its
// handler renders the text. It never fails.
type Responder struct {
	mu       sync.RWMutex
	rules    *RuleTable
	handlers map[string]Handler
	pick     func(n int) int
}

// NewResponder creates a Responder over rules. A nil table selects DefaultRules and a nil
// pick selects a uniform random index for the fallback pool.
func NewResponder(rules *RuleTable, pick func(n int) int) *Responder {
	if rules == nil {
		rules = DefaultRules()
	}
	if pick == nil {
		pick = rand.IntN
	}
	r := &Responder{
		pick: pick,
		handlers: map[string]Handler{
			RuleToday:    replyToday,
			RuleMood:     replyMood,
			RuleAdvice:   replyAdvice,
			RuleReview:   replyReview,
			RuleSupport:  fixed(supportReply),
			RuleJoy:      fixed(joyReply),
			RuleThanks:   fixed(thanksReply),
			RuleGreeting: fixed(greetingReply),
			RuleIdentity: fixed(identityReply),
			RuleStats:    replyStats,
		},
	}
	r.SetRules(rules)
	return r
}

// SetRules swaps the rule table. Rules without a handler are skipped when matching.
func (r *Responder) SetRules(rules *RuleTable) {
	for _, rule := range rules.All() {
		if _, ok := r.handlers[rule.Name]; !ok {
			log.Warn().Str("rule", rule.Name).Msg("Rule has no reply handler, skipping")
		}
	}
	r.mu.Lock()
	r.rules = rules
	r.mu.Unlock()
	log.Info().Int("rules", len(rules.All())).Msg("Companion rules loaded")
}

// Reload reads the rule table at path and swaps it in. On error the current table stays.
func (r *Responder) Reload(path string) error {
	rules, err := LoadRules(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to reload companion rules, keeping current table")
		return err
	}
	r.SetRules(rules)
	return nil
}

// Rules returns the active rule table.
func (r *Responder) Rules() *RuleTable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rules
}

// Classify returns the name of the rule the utterance selects, or RuleFallback.
func (r *Responder) Classify(utterance string) string {
	rule, ok := r.Rules().Match(utterance, func(name string) bool {
		_, ok := r.handlers[name]
		return ok
	})
	if !ok {
		return RuleFallback
	}
	return rule.Name
}

// Respond renders the reply to utterance.
func (r *Responder) Respond(utterance string, ctx ContextSummary) string {
	name := r.Classify(utterance)
	if h, ok := r.handlers[name]; ok {
		return h(ctx)
	}
	pool := r.Rules().Fallback()
	return pool[r.pick(len(pool))]
}

func fixed(text string) Handler {
	return func(ContextSummary) string { return text }
}

func replyToday(ctx ContextSummary) string {
	schedules := ctx.TodaySchedules()
	moods := ctx.TodayMoods()
	total := len(schedules)
	completed := 0
	hasTimeSlot := false
	for _, s := range schedules {
		if s.Completed {
			completed++
		} else if s.StartTime != "" {
			hasTimeSlot = true
		}
	}

	if total == 0 && len(moods) == 0 {
		return "今天还是空白的一天呢。要不要从记录今天的心情开始，或者规划一下要做的事情？"
	}
	if total == 0 {
		return fmt.Sprintf("今天你记录了心情 %s，但还没安排具体日程。需要帮你梳理一下今天想做的事吗？", joinEmoji(moods))
	}
	if completed == total {
		moodLine := ""
		if len(moods) > 0 {
			moodLine = fmt.Sprintf("今天的心情是 %s，", moods[0].Emoji)
		}
		return fmt.Sprintf("今天你安排了 %d 项日程，已经全部完成了！%s真是充实又高效的一天 ✨", total, moodLine)
	}

	tip := "建议为剩余任务设定时间段，更容易完成！"
	if hasTimeSlot {
		tip = "剩下的任务有设定时间，记得按计划推进哦～"
	}
	cheer := "先完成最重要的 1-2 项，不要给自己太大压力～"
	if completed*2 > total {
		cheer = "进展不错，加油！💪"
	}
	return fmt.Sprintf("今天你安排了 %d 项日程，已完成 %d 项（%d/%d）。\n\n%s\n\n%s", total, completed, completed, total, tip, cheer)
}

// Sentiment is the dominant-sentiment label of a run of mood records.
type Sentiment string

const (
	SentimentNone     Sentiment = "none"
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentVolatile Sentiment = "volatile"
	SentimentSteady   Sentiment = "steady"
)

// ClassifySentiment labels records (newest first) the way the mood reply branches.
func ClassifySentiment(records []models.MoodRecord) Sentiment {
	n := len(records)
	if n == 0 {
		return SentimentNone
	}
	positive, negative := countSentiment(records)
	switch {
	case positive*10 >= n*7:
		return SentimentPositive
	case negative*2 >= n:
		return SentimentNegative
	case distinctEmoji(head(records, 3)) >= 3:
		return SentimentVolatile
	default:
		return SentimentSteady
	}
}

func replyMood(ctx ContextSummary) string {
	recent := ctx.RecentMoods(moodWindow)
	summary := joinEmoji(recent)
	top, topCount := mostFrequentEmoji(recent)

	switch ClassifySentiment(recent) {
	case SentimentNone:
		return "我注意到你还没有记录过心情。要不要开始记录一下，这有助于了解自己的情绪变化～\n\n💡 小提示：每天用一个 emoji 和照片记录当下的感受，坚持一周就能看到变化！"
	case SentimentPositive:
		highlight := ""
		if topCount > 1 {
			highlight = fmt.Sprintf("特别是 %s 出现了 %d 次，", top, topCount)
		}
		quote := ""
		if note := privacy.Excerpt(recent[0].Note, noteExcerptLimit); note != "" {
			quote = fmt.Sprintf("你最近写道：\"%s\"", note)
		}
		return fmt.Sprintf("从你最近的记录来看（%s），整体状态很棒！%s保持这份好心情～\n\n%s", summary, highlight, quote)
	case SentimentNegative:
		repeated := ""
		if topCount > 2 {
			repeated = fmt.Sprintf("%s 这个状态出现得比较多。", top)
		}
		return fmt.Sprintf("我看到你最近的心情（%s）有些低落，%s\n\n有什么想和我聊聊的吗？说出来会好一些。或者试试做一些让自己放松的事情，比如散步、听音乐。\n\n记住，情绪有起伏是正常的 💙", summary, repeated)
	case SentimentVolatile:
		return fmt.Sprintf("你最近的心情（%s）变化比较频繁，这可能说明你正在经历一些事情。\n\n如果感到困扰，不妨在日记里写下具体的想法和原因，这有助于理清思绪～", summary)
	default:
		return fmt.Sprintf("你最近的心情（%s）看起来比较稳定，%s 是主旋律。有什么特别的感受想分享吗？", summary, top)
	}
}

func replyAdvice(ctx ContextSummary) string {
	schedules := ctx.RecentSchedules(adviceScheduleWindow)
	completed := countCompleted(schedules)
	total := len(schedules)
	moods := ctx.RecentMoods(adviceMoodWindow)

	var b strings.Builder
	b.WriteString("基于你的数据，我有以下建议：\n\n")

	// A journal without schedules counts as a 0% completion rate.
	switch {
	case completed*10 < total*3 || total == 0:
		b.WriteString("📋 **关于日程**：\n• 每天只设定 3-5 个核心任务\n• 为任务设定具体时间段\n• 完成后立即打勾，增强成就感\n• 把大任务拆解成小步骤\n\n")
	case completed*10 > total*7:
		b.WriteString("📋 **关于日程**：\n• 你的执行力很强！保持这个节奏\n• 可以适当挑战更有意义的目标\n\n")
	}

	switch {
	case len(moods) < 3:
		b.WriteString("💭 **关于心情记录**：\n• 建议每天至少记录一次心情\n• 配合照片和文字，效果更好\n• 坚持记录能发现情绪规律\n\n")
	case distinctEmoji(moods) <= 2:
		b.WriteString("💭 **关于情绪觉察**：\n• 尝试捕捉更细微的情绪变化\n• 问问自己：此刻最主要的感受是什么？\n• 记录触发情绪的具体事件\n\n")
	}

	b.WriteString("✨ **通用建议**：\n• 劳逸结合，适当安排休息时间\n• 关注那些让你感到愉悦的时刻\n• 对自己保持耐心和善意\n\n")
	b.WriteString("记住，成长是一个过程，小步前进也是进步！💪")
	return b.String()
}

// TrendLabel is the three-way mood trend shown in the review reply.
func TrendLabel(records []models.MoodRecord) string {
	positive, _ := countSentiment(records)
	n := len(records)
	switch {
	case positive*10 >= n*6:
		return "积极向上 ↗️"
	case positive*10 <= n*3:
		return "需要关注 ↘️"
	default:
		return "较为平稳 →"
	}
}

// CompletionPercent is completed/total as a percentage rounded half up; 0 when total is 0.
func CompletionPercent(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Floor(float64(completed)*100/float64(total) + 0.5))
}

func replyReview(ctx ContextSummary) string {
	schedules := ctx.RecentSchedules(reviewScheduleWindow)
	moods := ctx.RecentMoods(reviewMoodWindow)
	notes := ctx.RecentNotes(reviewNoteWindow)
	completed := countCompleted(schedules)
	total := len(schedules)
	rate := CompletionPercent(completed, total)

	var b strings.Builder
	b.WriteString("让我总结一下你最近的状态：\n\n")
	b.WriteString("📊 **数据概览**\n")
	fmt.Fprintf(&b, "• 日程：完成 %d/%d 项（%d%%）\n", completed, total, rate)
	fmt.Fprintf(&b, "• 心情：记录了 %d 次\n", len(moods))
	fmt.Fprintf(&b, "• 日记：写了 %d 篇\n\n", len(notes))

	if len(moods) > 0 {
		b.WriteString("💭 **心情分析**\n")
		fmt.Fprintf(&b, "• 最近心情：%s\n", joinEmoji(moods))
		fmt.Fprintf(&b, "• 整体趋势：%s\n", TrendLabel(moods))
		if top, count := mostFrequentEmoji(moods); count > 1 {
			fmt.Fprintf(&b, "• 主要情绪：%s（出现 %d 次）\n", top, count)
		}
		b.WriteString("\n")
	}

	switch {
	case rate >= 70:
		b.WriteString("🌟 **亮点**\n你的执行力很强，完成率很高！保持这个状态～\n\n")
	case rate < 40 && total > 5:
		b.WriteString("💡 **改进建议**\n日程完成率不太高，试试减少任务数量，专注核心目标～\n\n")
	}

	b.WriteString("继续保持记录的习惯，你会越来越了解自己！")
	return b.String()
}

func replyStats(ctx ContextSummary) string {
	schedules := len(ctx.Schedules)
	moods := len(ctx.MoodRecords)
	notes := len(ctx.DailyNotes)

	closing := "继续保持记录，数据越多，我能给你的洞察就越准确～"
	if schedules+moods+notes > 20 {
		closing = "哇，你已经记录了很多内容！这些都是你成长的轨迹 ✨"
	}
	return fmt.Sprintf("让我帮你统计一下：\n\n📊 **你的数据**\n• 总共创建了 %d 项日程\n• 记录了 %d 次心情\n• 写了 %d 篇日记\n\n%s", schedules, moods, notes, closing)
}

const (
	supportReply  = "听起来你现在有些疲惫。这种时候，给自己一些空间休息很重要。\n\n你可以试试：\n• 短暂的散步，让身体动起来\n• 深呼吸 5 分钟，放松神经\n• 做一件简单但让你感到愉悦的事\n• 或者就是什么都不做，静静地待着\n\n记住，休息不是懒惰，是为了更好地前进。你已经做得很好了 💙"
	joyReply      = "太好了！能感受到你的喜悦 😊\n\n开心的时刻值得被好好记录和珍藏。要不要去日程页面记录一下这份好心情，配上一张照片？\n\n保持这份愉悦，也记得把快乐分享给身边的人～"
	thanksReply   = "不客气～我很高兴能陪伴你。有任何想聊的，随时找我！\n\n记住，我会一直在这里 💫"
	greetingReply = "我在呢！有什么想聊的吗？\n\n你可以问我关于你的日程、心情，或者就是聊聊天～"
	identityReply = "我是你的数字自我伙伴 🤖\n\n我会基于你记录的日程、心情和日记，与你进行对话，提供个性化的陪伴和建议。\n\n你可以：\n• 问我关于你的数据分析\n• 向我倾诉心情和感受\n• 寻求建议和鼓励\n• 或者就是随便聊聊\n\n我会认真倾听，用心回应 💙"
)

func joinEmoji(records []models.MoodRecord) string {
	parts := make([]string, len(records))
	for i, r := range records {
		parts[i] = r.Emoji
	}
	return strings.Join(parts, " ")
}

func countSentiment(records []models.MoodRecord) (positive, negative int) {
	for _, r := range records {
		switch {
		case positiveEmoji[r.Emoji]:
			positive++
		case negativeEmoji[r.Emoji]:
			negative++
		}
	}
	return positive, negative
}

func countCompleted(schedules []models.Schedule) int {
	n := 0
	for _, s := range schedules {
		if s.Completed {
			n++
		}
	}
	return n
}

func distinctEmoji(records []models.MoodRecord) int {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		seen[r.Emoji] = struct{}{}
	}
	return len(seen)
}

// mostFrequentEmoji returns the most common emoji; ties go to the one seen first.
func mostFrequentEmoji(records []models.MoodRecord) (string, int) {
	counts := make(map[string]int, len(records))
	var order []string
	for _, r := range records {
		if counts[r.Emoji] == 0 {
			order = append(order, r.Emoji)
		}
		counts[r.Emoji]++
	}
	best, bestCount := "", 0
	for _, e := range order {
		if counts[e] > bestCount {
			best, bestCount = e, counts[e]
		}
	}
	return best, bestCount
}
