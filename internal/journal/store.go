// Package journal owns the in-memory journal state and keeps it in step with a remote store.
package journal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/thebtf/moodlens/pkg/models"
)

// DefaultRemoteTimeout bounds each remote call when Options.RemoteTimeout is zero.
const DefaultRemoteTimeout = 10 * time.Second

var (
	// ErrNotFound is returned for an unknown entity id.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput wraps validation failures; nothing is mutated.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRemoteWrite wraps a failed remote write; the local change has been rolled back.
	ErrRemoteWrite = errors.New("remote write failed")
)

// Source tells where the loaded journal came from.
type Source string

const (
	SourceLocal    Source = "local"    // no remote configured, seed data
	SourceRemote   Source = "remote"   // loaded from the remote store
	SourceFallback Source = "fallback" // remote read failed, seed data
)

// Options configures a Store.
type Options struct {
	Remote        Remote        // nil selects local mode
	Clock         Clock         // defaults to SystemClock
	Metrics       *Metrics      // defaults to NewMetrics()
	RemoteTimeout time.Duration // per remote call
}

// Store is the process-wide journal state container.
// Every mutation is applied locally first and rolled back if the remote write fails.
type Store struct {
	remote  Remote
	clock   Clock
	metrics *Metrics
	timeout time.Duration

	mu          sync.RWMutex
	schedules   []models.Schedule   // creation order
	records     []models.MoodRecord // newest first
	notes       []models.DailyNote
	source      Source
	initialized bool
	loading     bool
}

// NewStore creates an empty, unloaded store.
func NewStore(opts Options) *Store {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	if opts.RemoteTimeout <= 0 {
		opts.RemoteTimeout = DefaultRemoteTimeout
	}
	return &Store{
		remote:  opts.Remote,
		clock:   opts.Clock,
		metrics: opts.Metrics,
		timeout: opts.RemoteTimeout,
	}
}

// Clock returns the clock the store stamps entities with.
func (s *Store) Clock() Clock { return s.clock }

// Metrics returns the store's write metrics.
func (s *Store) Metrics() *Metrics { return s.metrics }

// Initialized reports whether Load has completed.
func (s *Store) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Source reports where the current journal was loaded from.
func (s *Store) Source() Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Load fills the store once. Remote read failures degrade to seed data; the store is
// marked initialized either way.
func (s *Store) Load(ctx context.Context) Source {
	s.mu.Lock()
	if s.initialized || s.loading {
		src := s.source
		s.mu.Unlock()
		return src
	}
	s.loading = true
	s.mu.Unlock()

	var (
		data SeedData
		src  = SourceRemote
	)
	if s.remote == nil {
		data, src = Seed(s.clock.Now()), SourceLocal
	} else {
		var err error
		data, err = s.fetch(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to load journal from remote store, using seed data")
			s.metrics.RecordFallbackLoad()
			data, src = Seed(s.clock.Now()), SourceFallback
		}
	}
	sortRecordsNewestFirst(data.MoodRecords)

	s.mu.Lock()
	s.schedules = data.Schedules
	s.records = data.MoodRecords
	s.notes = data.DailyNotes
	s.source = src
	s.initialized = true
	s.loading = false
	s.mu.Unlock()

	log.Info().
		Str("source", string(src)).
		Int("schedules", len(data.Schedules)).
		Int("moodRecords", len(data.MoodRecords)).
		Int("dailyNotes", len(data.DailyNotes)).
		Msg("Journal loaded")
	return src
}

// fetch reads the three collections concurrently.
func (s *Store) fetch(ctx context.Context) (SeedData, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var data SeedData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data.Schedules, err = s.remote.ListSchedules(gctx)
		if err != nil {
			return fmt.Errorf("list schedules: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		data.MoodRecords, err = s.remote.ListMoodRecords(gctx)
		if err != nil {
			return fmt.Errorf("list mood records: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		data.DailyNotes, err = s.remote.ListDailyNotes(gctx)
		if err != nil {
			return fmt.Errorf("list daily notes: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return SeedData{}, err
	}
	return data, nil
}

// commit runs the optimistic protocol: apply locally, push remotely, restore on failure.
// apply runs under the write lock and returns the function that undoes it.
func (s *Store) commit(ctx context.Context, op string, apply func() (func(), error), push func(ctx context.Context) error) error {
	s.mu.Lock()
	restore, err := apply()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if s.remote == nil {
		return nil
	}

	s.metrics.RecordWrite(ctx, op)
	pctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := push(pctx); err != nil {
		s.mu.Lock()
		restore()
		s.mu.Unlock()
		s.metrics.RecordRollback(ctx, op)
		log.Error().Err(err).Str("op", op).Msg("Remote write failed, local change rolled back")
		return fmt.Errorf("%s: %w: %w", op, ErrRemoteWrite, err)
	}
	return nil
}

// AddSchedule creates a schedule for date.
func (s *Store) AddSchedule(ctx context.Context, date, content, startTime, endTime string) (models.Schedule, error) {
	now := s.clock.Now()
	sched, err := models.NewSchedule(s.newID(PrefixSchedule, now), date, content, startTime, endTime, now.UnixMilli())
	if err != nil {
		return models.Schedule{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	err = s.commit(ctx, "add schedule", func() (func(), error) {
		s.schedules = append(s.schedules, *sched)
		return func() { s.schedules = removeByID(s.schedules, sched.ID, scheduleID) }, nil
	}, func(ctx context.Context) error {
		return s.remote.CreateSchedule(ctx, sched)
	})
	if err != nil {
		return models.Schedule{}, err
	}
	return *sched, nil
}

// ToggleSchedule flips the completion flag.
func (s *Store) ToggleSchedule(ctx context.Context, id string) (models.Schedule, error) {
	return s.updateSchedule(ctx, "toggle schedule", id, func(sc *models.Schedule) error {
		sc.Completed = !sc.Completed
		return nil
	})
}

// ScheduleEdit changes a schedule's time window and completion flag. Nil fields are left unchanged.
type ScheduleEdit struct {
	StartTime *string
	EndTime   *string
	Completed *bool
}

// EditSchedule applies every field of edit in a single remote write, so a failed
// write leaves the schedule exactly as it was. Unparseable times are rejected
// before anything is mutated.
func (s *Store) EditSchedule(ctx context.Context, id string, edit ScheduleEdit) (models.Schedule, error) {
	for _, t := range []*string{edit.StartTime, edit.EndTime} {
		if t == nil {
			continue
		}
		if err := models.ValidateTime(*t); err != nil {
			return models.Schedule{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}
	return s.updateSchedule(ctx, "edit schedule", id, func(sc *models.Schedule) error {
		if edit.StartTime != nil {
			sc.StartTime = *edit.StartTime
		}
		if edit.EndTime != nil {
			sc.EndTime = *edit.EndTime
		}
		if edit.Completed != nil {
			sc.Completed = *edit.Completed
		}
		return nil
	})
}

func (s *Store) updateSchedule(ctx context.Context, op, id string, mutate func(*models.Schedule) error) (models.Schedule, error) {
	var updated models.Schedule
	err := s.commit(ctx, op, func() (func(), error) {
		idx := indexByID(s.schedules, id, scheduleID)
		if idx < 0 {
			return nil, fmt.Errorf("schedule %s: %w", id, ErrNotFound)
		}
		prev := s.schedules[idx]
		next := prev
		if err := mutate(&next); err != nil {
			return nil, err
		}
		s.schedules[idx] = next
		updated = next
		return func() {
			if i := indexByID(s.schedules, id, scheduleID); i >= 0 {
				s.schedules[i] = prev
			}
		}, nil
	}, func(ctx context.Context) error {
		return s.remote.UpdateSchedule(ctx, &updated)
	})
	if err != nil {
		return models.Schedule{}, err
	}
	return updated, nil
}

// DeleteSchedule removes a schedule.
func (s *Store) DeleteSchedule(ctx context.Context, id string) error {
	return s.commit(ctx, "delete schedule", func() (func(), error) {
		idx := indexByID(s.schedules, id, scheduleID)
		if idx < 0 {
			return nil, fmt.Errorf("schedule %s: %w", id, ErrNotFound)
		}
		prev := s.schedules[idx]
		s.schedules = append(s.schedules[:idx:idx], s.schedules[idx+1:]...)
		return func() { s.schedules = insertAt(s.schedules, idx, prev) }, nil
	}, func(ctx context.Context) error {
		return s.remote.DeleteSchedule(ctx, id)
	})
}

// AddRecord stores a new mood record at the head of the list.
// A zero timestamp is stamped with the store clock.
func (s *Store) AddRecord(ctx context.Context, in models.MoodRecord) (models.MoodRecord, error) {
	rec := in
	if err := rec.Normalize(); err != nil {
		return models.MoodRecord{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	now := s.clock.Now()
	rec.ID = s.newID(PrefixMood, now)
	if rec.Timestamp == 0 {
		rec.Timestamp = now.UnixMilli()
	}
	if len(in.Tags) > 0 {
		rec.Tags = append([]string(nil), in.Tags...)
	}

	err := s.commit(ctx, "add mood record", func() (func(), error) {
		s.records = insertAt(s.records, 0, rec)
		return func() { s.records = removeByID(s.records, rec.ID, recordID) }, nil
	}, func(ctx context.Context) error {
		return s.remote.CreateMoodRecord(ctx, &rec)
	})
	if err != nil {
		return models.MoodRecord{}, err
	}
	return rec, nil
}

// UpdateRecord applies a field-level edit to a mood record.
func (s *Store) UpdateRecord(ctx context.Context, id string, patch models.MoodRecordPatch) (models.MoodRecord, error) {
	var updated models.MoodRecord
	err := s.commit(ctx, "update mood record", func() (func(), error) {
		idx := indexByID(s.records, id, recordID)
		if idx < 0 {
			return nil, fmt.Errorf("mood record %s: %w", id, ErrNotFound)
		}
		prev := s.records[idx]
		next, err := patch.Apply(prev)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		s.records[idx] = next
		updated = next
		return func() {
			if i := indexByID(s.records, id, recordID); i >= 0 {
				s.records[i] = prev
			}
		}, nil
	}, func(ctx context.Context) error {
		return s.remote.UpdateMoodRecord(ctx, &updated)
	})
	if err != nil {
		return models.MoodRecord{}, err
	}
	return updated, nil
}

// DeleteRecord removes a mood record.
func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	return s.commit(ctx, "delete mood record", func() (func(), error) {
		idx := indexByID(s.records, id, recordID)
		if idx < 0 {
			return nil, fmt.Errorf("mood record %s: %w", id, ErrNotFound)
		}
		prev := s.records[idx]
		s.records = append(s.records[:idx:idx], s.records[idx+1:]...)
		return func() { s.records = insertAt(s.records, idx, prev) }, nil
	}, func(ctx context.Context) error {
		return s.remote.DeleteMoodRecord(ctx, id)
	})
}

// UpdateDailyNote upserts the note for date.
func (s *Store) UpdateDailyNote(ctx context.Context, date, content string) (models.DailyNote, error) {
	if err := models.ValidateDate(date); err != nil {
		return models.DailyNote{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	now := s.clock.Now()

	var saved models.DailyNote
	err := s.commit(ctx, "update daily note", func() (func(), error) {
		idx := indexByID(s.notes, date, noteDate)
		if idx >= 0 {
			prev := s.notes[idx]
			s.notes[idx].Content = content
			s.notes[idx].UpdatedAt = now.UnixMilli()
			saved = s.notes[idx]
			return func() {
				if i := indexByID(s.notes, date, noteDate); i >= 0 {
					s.notes[i] = prev
				}
			}, nil
		}
		saved = models.DailyNote{
			ID:        s.newID(PrefixNote, now),
			Date:      date,
			Content:   content,
			UpdatedAt: now.UnixMilli(),
		}
		s.notes = append(s.notes, saved)
		return func() { s.notes = removeByID(s.notes, date, noteDate) }, nil
	}, func(ctx context.Context) error {
		return s.remote.UpsertDailyNote(ctx, &saved)
	})
	if err != nil {
		return models.DailyNote{}, err
	}
	return saved, nil
}

// Snapshot is a copy of the whole journal.
type Snapshot struct {
	Schedules   []models.Schedule
	MoodRecords []models.MoodRecord
	DailyNotes  []models.DailyNote
}

// Snapshot copies the three collections.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Schedules:   append([]models.Schedule(nil), s.schedules...),
		MoodRecords: append([]models.MoodRecord(nil), s.records...),
		DailyNotes:  append([]models.DailyNote(nil), s.notes...),
	}
}

// Schedule returns one schedule by id.
func (s *Store) Schedule(id string) (models.Schedule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexByID(s.schedules, id, scheduleID); i >= 0 {
		return s.schedules[i], true
	}
	return models.Schedule{}, false
}

// Record returns one mood record by id.
func (s *Store) Record(id string) (models.MoodRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexByID(s.records, id, recordID); i >= 0 {
		return s.records[i], true
	}
	return models.MoodRecord{}, false
}

// SchedulesOn returns the schedules for date in display order.
func (s *Store) SchedulesOn(date string) []models.Schedule {
	s.mu.RLock()
	var out []models.Schedule
	for _, sc := range s.schedules {
		if sc.Date == date {
			out = append(out, sc)
		}
	}
	s.mu.RUnlock()
	return models.SortSchedules(out)
}

// RecordsOn returns the mood records whose UTC date is date, newest first.
func (s *Store) RecordsOn(date string) []models.MoodRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.MoodRecord
	for _, r := range s.records {
		if r.Date() == date {
			out = append(out, r)
		}
	}
	return out
}

// NoteOn returns the note for date.
func (s *Store) NoteOn(date string) (models.DailyNote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexByID(s.notes, date, noteDate); i >= 0 {
		return s.notes[i], true
	}
	return models.DailyNote{}, false
}

func scheduleID(s models.Schedule) string { return s.ID }
func recordID(r models.MoodRecord) string { return r.ID }
func noteDate(n models.DailyNote) string  { return n.Date }

func indexByID[T any](items []T, id string, key func(T) string) int {
	for i := range items {
		if key(items[i]) == id {
			return i
		}
	}
	return -1
}

func removeByID[T any](items []T, id string, key func(T) string) []T {
	if i := indexByID(items, id, key); i >= 0 {
		return append(items[:i:i], items[i+1:]...)
	}
	return items
}

func insertAt[T any](items []T, idx int, v T) []T {
	if idx > len(items) {
		idx = len(items)
	}
	out := make([]T, 0, len(items)+1)
	out = append(out, items[:idx]...)
	out = append(out, v)
	return append(out, items[idx:]...)
}

func sortRecordsNewestFirst(records []models.MoodRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp > records[j].Timestamp
	})
}
