package worker

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/thebtf/moodlens/internal/db/gorm"
	"github.com/thebtf/moodlens/internal/journal"
	"github.com/thebtf/moodlens/internal/worker/sse"
	"github.com/thebtf/moodlens/pkg/models"
)

// DefaultMoodLimit caps GET /api/moods when no limit is given.
const DefaultMoodLimit = 50

// DayView is everything recorded for one date.
type DayView struct {
	Note        *models.DailyNote   `json:"note,omitempty"`
	Date        string              `json:"date"`
	Schedules   []models.Schedule   `json:"schedules"`
	MoodRecords []models.MoodRecord `json:"mood_records"`
}

type scheduleRequest struct {
	Date      string `json:"date"`
	Content   string `json:"content"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// scheduleUpdate edits the time window and completion flag. Nil fields are left unchanged.
type scheduleUpdate struct {
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Completed *bool   `json:"completed"`
}

type noteRequest struct {
	Content string `json:"content"`
}

// changeEvent is published on the SSE stream after a successful mutation.
type changeEvent struct {
	Entity  any    `json:"entity,omitempty"`
	ID      string `json:"id"`
	Deleted bool   `json:"deleted,omitempty"`
}

func (s *Service) handleGetDay(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if err := models.ValidateDate(date); err != nil {
		writeStoreError(w, err)
		return
	}

	view := DayView{
		Date:        date,
		Schedules:   nonNil(s.journal.SchedulesOn(date)),
		MoodRecords: nonNil(s.journal.RecordsOn(date)),
	}
	if note, ok := s.journal.NoteOn(date); ok {
		view.Note = &note
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Service) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeJSON(w, http.StatusOK, nonNil(s.journal.Snapshot().Schedules))
		return
	}
	if err := models.ValidateDate(date); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(s.journal.SchedulesOn(date)))
}

func (s *Service) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := decodeBody(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}
	sched, err := s.journal.AddSchedule(r.Context(), req.Date, req.Content, req.StartTime, req.EndTime)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.sseBroadcaster.Publish(sse.EventScheduleChange, changeEvent{ID: sched.ID, Entity: sched})
	writeJSON(w, http.StatusCreated, sched)
}

func (s *Service) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req scheduleUpdate
	if err := decodeBody(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}

	sched, err := s.journal.EditSchedule(r.Context(), id, journal.ScheduleEdit{
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Completed: req.Completed,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	s.sseBroadcaster.Publish(sse.EventScheduleChange, changeEvent{ID: id, Entity: sched})
	writeJSON(w, http.StatusOK, sched)
}

func (s *Service) handleToggleSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sched, err := s.journal.ToggleSchedule(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.sseBroadcaster.Publish(sse.EventScheduleChange, changeEvent{ID: id, Entity: sched})
	writeJSON(w, http.StatusOK, sched)
}

func (s *Service) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.journal.DeleteSchedule(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	s.sseBroadcaster.Publish(sse.EventScheduleChange, changeEvent{ID: id, Deleted: true})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleListMoods(w http.ResponseWriter, r *http.Request) {
	limit := gorm.ParseLimitParam(r, DefaultMoodLimit)

	var records []models.MoodRecord
	if date := r.URL.Query().Get("date"); date != "" {
		if err := models.ValidateDate(date); err != nil {
			writeStoreError(w, err)
			return
		}
		records = s.journal.RecordsOn(date)
	} else {
		records = s.journal.Snapshot().MoodRecords
	}
	if len(records) > limit {
		records = records[:limit]
	}
	writeJSON(w, http.StatusOK, nonNil(records))
}

func (s *Service) handleCreateMood(w http.ResponseWriter, r *http.Request) {
	var req models.MoodRecord
	if err := decodeBody(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}
	rec, err := s.journal.AddRecord(r.Context(), req)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.sseBroadcaster.Publish(sse.EventRecordChange, changeEvent{ID: rec.ID, Entity: rec})
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Service) handleUpdateMood(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var patch models.MoodRecordPatch
	if err := decodeBody(r, &patch); err != nil {
		writeStoreError(w, err)
		return
	}
	rec, err := s.journal.UpdateRecord(r.Context(), id, patch)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.sseBroadcaster.Publish(sse.EventRecordChange, changeEvent{ID: id, Entity: rec})
	writeJSON(w, http.StatusOK, rec)
}

func (s *Service) handleDeleteMood(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.journal.DeleteRecord(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	s.sseBroadcaster.Publish(sse.EventRecordChange, changeEvent{ID: id, Deleted: true})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleGetNote(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if err := models.ValidateDate(date); err != nil {
		writeStoreError(w, err)
		return
	}
	note, ok := s.journal.NoteOn(date)
	if !ok {
		writeError(w, http.StatusNotFound, "no note for "+date)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (s *Service) handlePutNote(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	var req noteRequest
	if err := decodeBody(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}
	note, err := s.journal.UpdateDailyNote(r.Context(), date, req.Content)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.sseBroadcaster.Publish(sse.EventNoteChange, changeEvent{ID: note.Date, Entity: note})
	writeJSON(w, http.StatusOK, note)
}

// nonNil keeps empty collections encoding as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
