package worker

import (
	"net/http"
	"strconv"
	"time"

	"github.com/thebtf/moodlens/internal/insights"
)

func (s *Service) handleCalendar(w http.ResponseWriter, r *http.Request) {
	now := s.journal.Clock().Now()
	year, month := now.Year(), int(now.Month())

	q := r.URL.Query()
	if v := q.Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = y
	}
	if v := q.Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			writeError(w, http.StatusBadRequest, "invalid month")
			return
		}
		month = m
	}

	cal := insights.Calendar(s.journal.Snapshot().MoodRecords, year, time.Month(month))
	writeJSON(w, http.StatusOK, cal)
}

func (s *Service) handleTrend(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(insights.Trend(s.journal.Snapshot().MoodRecords)))
}

func (s *Service) handleScenes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(insights.SceneDistribution(s.journal.Snapshot().MoodRecords)))
}

func (s *Service) handleOverview(w http.ResponseWriter, _ *http.Request) {
	snap := s.journal.Snapshot()
	summary := insights.Overview(snap.Schedules, snap.MoodRecords, snap.DailyNotes, s.journal.Clock().Now())
	writeJSON(w, http.StatusOK, summary)
}
