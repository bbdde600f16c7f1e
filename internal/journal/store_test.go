package journal

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/thebtf/moodlens/pkg/models"
)

var errRemoteDown = errors.New("remote down")

// fakeRemote is an in-memory Remote with per-operation failure injection.
type fakeRemote struct {
	mu        sync.Mutex
	schedules []models.Schedule
	records   []models.MoodRecord
	notes     []models.DailyNote
	fail      map[string]bool
	calls     []string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{fail: make(map[string]bool)}
}

func (f *fakeRemote) call(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	if f.fail[op] || f.fail["*"] {
		return errRemoteDown
	}
	return nil
}

func (f *fakeRemote) ListSchedules(ctx context.Context) ([]models.Schedule, error) {
	if err := f.call("ListSchedules"); err != nil {
		return nil, err
	}
	return append([]models.Schedule(nil), f.schedules...), nil
}

func (f *fakeRemote) CreateSchedule(ctx context.Context, s *models.Schedule) error {
	if err := f.call("CreateSchedule"); err != nil {
		return err
	}
	f.schedules = append(f.schedules, *s)
	return nil
}

func (f *fakeRemote) UpdateSchedule(ctx context.Context, s *models.Schedule) error {
	return f.call("UpdateSchedule")
}

func (f *fakeRemote) DeleteSchedule(ctx context.Context, id string) error {
	return f.call("DeleteSchedule")
}

func (f *fakeRemote) ListMoodRecords(ctx context.Context) ([]models.MoodRecord, error) {
	if err := f.call("ListMoodRecords"); err != nil {
		return nil, err
	}
	return append([]models.MoodRecord(nil), f.records...), nil
}

func (f *fakeRemote) CreateMoodRecord(ctx context.Context, r *models.MoodRecord) error {
	return f.call("CreateMoodRecord")
}

func (f *fakeRemote) UpdateMoodRecord(ctx context.Context, r *models.MoodRecord) error {
	return f.call("UpdateMoodRecord")
}

func (f *fakeRemote) DeleteMoodRecord(ctx context.Context, id string) error {
	return f.call("DeleteMoodRecord")
}

func (f *fakeRemote) ListDailyNotes(ctx context.Context) ([]models.DailyNote, error) {
	if err := f.call("ListDailyNotes"); err != nil {
		return nil, err
	}
	return append([]models.DailyNote(nil), f.notes...), nil
}

func (f *fakeRemote) UpsertDailyNote(ctx context.Context, n *models.DailyNote) error {
	return f.call("UpsertDailyNote")
}

// StoreSuite is a test suite for Store operations.
type StoreSuite struct {
	suite.Suite
	remote *fakeRemote
	store  *Store
	ctx    context.Context
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.remote = newFakeRemote()
	s.store = NewStore(Options{Remote: s.remote, Clock: NewFixedClock(ReferenceNow)})
	s.Require().Equal(SourceRemote, s.store.Load(s.ctx))
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

// TestLoad_RemoteFailureFallsBackToSeed tests degraded loading.
func (s *StoreSuite) TestLoad_RemoteFailureFallsBackToSeed() {
	remote := newFakeRemote()
	remote.fail["ListMoodRecords"] = true
	store := NewStore(Options{Remote: remote, Clock: NewFixedClock(ReferenceNow)})

	src := store.Load(s.ctx)

	s.Equal(SourceFallback, src)
	s.True(store.Initialized())
	snap := store.Snapshot()
	s.Len(snap.Schedules, 4)
	s.Len(snap.MoodRecords, 2)
	s.Len(snap.DailyNotes, 2)
	s.Equal(int64(1), store.Metrics().Snapshot().FallbackLoads)
}

// TestLoad_Idempotent tests that a second Load does not refetch.
func (s *StoreSuite) TestLoad_Idempotent() {
	calls := len(s.remote.calls)
	s.Equal(SourceRemote, s.store.Load(s.ctx))
	s.Len(s.remote.calls, calls)
}

// TestLoad_SortsRecordsNewestFirst tests remote record ordering.
func (s *StoreSuite) TestLoad_SortsRecordsNewestFirst() {
	remote := newFakeRemote()
	remote.records = []models.MoodRecord{
		{ID: "old", Emoji: models.EmojiSad, Timestamp: 100},
		{ID: "new", Emoji: models.EmojiHappy, Timestamp: 300},
		{ID: "mid", Emoji: models.EmojiCalm, Timestamp: 200},
	}
	store := NewStore(Options{Remote: remote})
	store.Load(s.ctx)

	snap := store.Snapshot()
	s.Require().Len(snap.MoodRecords, 3)
	s.Equal("new", snap.MoodRecords[0].ID)
	s.Equal("mid", snap.MoodRecords[1].ID)
	s.Equal("old", snap.MoodRecords[2].ID)
}

// TestToggleSchedule_RollbackOnRemoteFailure tests the optimistic rollback.
func (s *StoreSuite) TestToggleSchedule_RollbackOnRemoteFailure() {
	sched, err := s.store.AddSchedule(s.ctx, "2025-01-31", "写周报", "", "")
	s.Require().NoError(err)
	s.False(sched.Completed)

	s.remote.fail["UpdateSchedule"] = true
	_, err = s.store.ToggleSchedule(s.ctx, sched.ID)

	s.ErrorIs(err, ErrRemoteWrite)
	s.ErrorIs(err, errRemoteDown)
	got, ok := s.store.Schedule(sched.ID)
	s.Require().True(ok)
	s.False(got.Completed)
	s.Equal(int64(1), s.store.Metrics().Snapshot().Rollbacks)
}

// TestToggleSchedule_Success tests a committed toggle.
func (s *StoreSuite) TestToggleSchedule_Success() {
	sched, err := s.store.AddSchedule(s.ctx, "2025-01-31", "写周报", "", "")
	s.Require().NoError(err)

	updated, err := s.store.ToggleSchedule(s.ctx, sched.ID)
	s.Require().NoError(err)
	s.True(updated.Completed)

	updated, err = s.store.ToggleSchedule(s.ctx, sched.ID)
	s.Require().NoError(err)
	s.False(updated.Completed)
}

// TestEditSchedule_CompletedIdempotent tests repeated completion.
func (s *StoreSuite) TestEditSchedule_CompletedIdempotent() {
	sched, err := s.store.AddSchedule(s.ctx, "2025-01-31", "写周报", "", "")
	s.Require().NoError(err)

	done := true
	for i := 0; i < 2; i++ {
		got, err := s.store.EditSchedule(s.ctx, sched.ID, ScheduleEdit{Completed: &done})
		s.Require().NoError(err)
		s.True(got.Completed)
	}
}

// TestAddSchedule_RollbackOnRemoteFailure tests that a failed create leaves no trace.
func (s *StoreSuite) TestAddSchedule_RollbackOnRemoteFailure() {
	before := s.store.Snapshot().Schedules
	s.remote.fail["CreateSchedule"] = true

	_, err := s.store.AddSchedule(s.ctx, "2025-01-31", "写周报", "09:00", "")

	s.ErrorIs(err, ErrRemoteWrite)
	s.Equal(before, s.store.Snapshot().Schedules)
}

// TestAddSchedule_InvalidInput tests local rejection.
func (s *StoreSuite) TestAddSchedule_InvalidInput() {
	calls := len(s.remote.calls)

	_, err := s.store.AddSchedule(s.ctx, "31/01/2025", "写周报", "", "")
	s.ErrorIs(err, ErrInvalidInput)
	s.ErrorIs(err, models.ErrInvalidDate)

	_, err = s.store.AddSchedule(s.ctx, "2025-01-31", "写周报", "25:00", "")
	s.ErrorIs(err, models.ErrInvalidTime)

	s.Len(s.remote.calls, calls)
}

// TestDeleteSchedule_RollbackRestoresPosition tests that a failed delete reinserts in place.
func (s *StoreSuite) TestDeleteSchedule_RollbackRestoresPosition() {
	a, _ := s.store.AddSchedule(s.ctx, "2025-01-31", "a", "", "")
	b, _ := s.store.AddSchedule(s.ctx, "2025-01-31", "b", "", "")
	c, _ := s.store.AddSchedule(s.ctx, "2025-01-31", "c", "", "")
	s.remote.fail["DeleteSchedule"] = true

	err := s.store.DeleteSchedule(s.ctx, b.ID)

	s.ErrorIs(err, ErrRemoteWrite)
	snap := s.store.Snapshot().Schedules
	s.Require().Len(snap, 3)
	s.Equal([]string{a.ID, b.ID, c.ID}, []string{snap[0].ID, snap[1].ID, snap[2].ID})
}

// TestDeleteSchedule_NotFound tests unknown ids.
func (s *StoreSuite) TestDeleteSchedule_NotFound() {
	err := s.store.DeleteSchedule(s.ctx, "missing")
	s.ErrorIs(err, ErrNotFound)
}

// TestEditSchedule_Time tests time edits and rejection of malformed input.
func (s *StoreSuite) TestEditSchedule_Time() {
	sched, err := s.store.AddSchedule(s.ctx, "2025-01-31", "健身", "", "")
	s.Require().NoError(err)

	bad := "7pm"
	_, err = s.store.EditSchedule(s.ctx, sched.ID, ScheduleEdit{StartTime: &bad})
	s.ErrorIs(err, ErrInvalidInput)
	got, _ := s.store.Schedule(sched.ID)
	s.Empty(got.StartTime)

	start, end := "19:00", "20:30"
	got, err = s.store.EditSchedule(s.ctx, sched.ID, ScheduleEdit{StartTime: &start, EndTime: &end})
	s.Require().NoError(err)
	s.Equal("19:00", got.StartTime)
	s.Equal("20:30", got.EndTime)
	s.False(got.Completed)
}

// TestEditSchedule_RollbackIsWhole tests that a failed edit of several fields
// restores all of them after a single remote write.
func (s *StoreSuite) TestEditSchedule_RollbackIsWhole() {
	sched, err := s.store.AddSchedule(s.ctx, "2025-01-31", "健身", "09:00", "10:00")
	s.Require().NoError(err)
	calls := len(s.remote.calls)
	s.remote.fail["UpdateSchedule"] = true

	start, done := "11:00", true
	_, err = s.store.EditSchedule(s.ctx, sched.ID, ScheduleEdit{StartTime: &start, Completed: &done})

	s.ErrorIs(err, ErrRemoteWrite)
	got, ok := s.store.Schedule(sched.ID)
	s.Require().True(ok)
	s.Equal(sched, got)
	s.Equal([]string{"UpdateSchedule"}, s.remote.calls[calls:])
}

// TestEditSchedule_NotFound tests unknown ids.
func (s *StoreSuite) TestEditSchedule_NotFound() {
	done := true
	_, err := s.store.EditSchedule(s.ctx, "missing", ScheduleEdit{Completed: &done})
	s.ErrorIs(err, ErrNotFound)
}

// TestRecordRoundTrip tests that add followed by delete restores the collection.
func (s *StoreSuite) TestRecordRoundTrip() {
	before := s.store.Snapshot().MoodRecords

	rec, err := s.store.AddRecord(s.ctx, models.MoodRecord{
		ImageURL: "https://example.com/a.jpg",
		Emoji:    models.EmojiEnergetic,
		Note:     "跑完五公里",
	})
	s.Require().NoError(err)

	during := s.store.Snapshot().MoodRecords
	s.Require().Len(during, len(before)+1)
	s.Equal(rec.ID, during[0].ID, "new record is first")
	s.Equal(models.MoodEnergetic, during[0].Mood)
	s.Equal(ReferenceNow, during[0].Timestamp)

	s.Require().NoError(s.store.DeleteRecord(s.ctx, rec.ID))
	s.ElementsMatch(before, s.store.Snapshot().MoodRecords)
}

// TestAddRecord_Invalid tests record validation.
func (s *StoreSuite) TestAddRecord_Invalid() {
	_, err := s.store.AddRecord(s.ctx, models.MoodRecord{Emoji: models.EmojiHappy, Intensity: 12})
	s.ErrorIs(err, ErrInvalidInput)
	s.ErrorIs(err, models.ErrIntensityRange)
}

// TestUpdateRecord_RollbackOnRemoteFailure tests record edit rollback.
func (s *StoreSuite) TestUpdateRecord_RollbackOnRemoteFailure() {
	rec, err := s.store.AddRecord(s.ctx, models.MoodRecord{Emoji: models.EmojiHappy, Note: "before"})
	s.Require().NoError(err)

	s.remote.fail["UpdateMoodRecord"] = true
	note := "after"
	_, err = s.store.UpdateRecord(s.ctx, rec.ID, models.MoodRecordPatch{Note: &note})

	s.ErrorIs(err, ErrRemoteWrite)
	got, ok := s.store.Record(rec.ID)
	s.Require().True(ok)
	s.Equal("before", got.Note)
}

// TestUpdateDailyNote_Upsert tests one note per date.
func (s *StoreSuite) TestUpdateDailyNote_Upsert() {
	first, err := s.store.UpdateDailyNote(s.ctx, "2025-02-01", "第一版")
	s.Require().NoError(err)
	second, err := s.store.UpdateDailyNote(s.ctx, "2025-02-01", "第二版")
	s.Require().NoError(err)

	s.Equal(first.ID, second.ID)
	note, ok := s.store.NoteOn("2025-02-01")
	s.Require().True(ok)
	s.Equal("第二版", note.Content)

	count := 0
	for _, n := range s.store.Snapshot().DailyNotes {
		if n.Date == "2025-02-01" {
			count++
		}
	}
	s.Equal(1, count)
}

// TestUpdateDailyNote_RollbackRestoresPrevious tests note rollback for both branches.
func (s *StoreSuite) TestUpdateDailyNote_RollbackRestoresPrevious() {
	_, err := s.store.UpdateDailyNote(s.ctx, "2025-02-01", "原文")
	s.Require().NoError(err)

	s.remote.fail["UpsertDailyNote"] = true
	_, err = s.store.UpdateDailyNote(s.ctx, "2025-02-01", "改写")
	s.ErrorIs(err, ErrRemoteWrite)
	note, _ := s.store.NoteOn("2025-02-01")
	s.Equal("原文", note.Content)

	_, err = s.store.UpdateDailyNote(s.ctx, "2025-02-02", "新的一天")
	s.ErrorIs(err, ErrRemoteWrite)
	_, ok := s.store.NoteOn("2025-02-02")
	s.False(ok)
}

func TestLocalMode_SeedAndLocalIDs(t *testing.T) {
	store := NewStore(Options{Clock: NewFixedClock(ReferenceNow)})
	require.Equal(t, SourceLocal, store.Load(context.Background()))

	today := models.DateOf(ReferenceNow)
	todays := store.SchedulesOn(today)
	require.Len(t, todays, 3)
	assert.Equal(t, "09:00", todays[0].StartTime)
	assert.Equal(t, "14:00", todays[1].StartTime)
	assert.Empty(t, todays[2].StartTime)

	assert.Len(t, store.RecordsOn(today), 1)

	sched, err := store.AddSchedule(context.Background(), today, "散步", "", "")
	require.NoError(t, err)
	assert.Regexp(t, `^schedule-1738316400000-[0-9a-f]{7}$`, sched.ID)
}

func TestRemoteMode_UUIDs(t *testing.T) {
	store := NewStore(Options{Remote: newFakeRemote(), Clock: NewFixedClock(ReferenceNow)})
	store.Load(context.Background())

	sched, err := store.AddSchedule(context.Background(), "2025-01-31", "散步", "", "")
	require.NoError(t, err)
	assert.Len(t, sched.ID, 36)
}
