package sse

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type BroadcasterSuite struct {
	suite.Suite
	broadcaster *Broadcaster
}

func (s *BroadcasterSuite) SetupTest() {
	s.broadcaster = NewBroadcaster()
}

func TestBroadcasterSuite(t *testing.T) {
	suite.Run(t, new(BroadcasterSuite))
}

// mockResponseWriter implements http.ResponseWriter and http.Flusher for testing.
type mockResponseWriter struct {
	header   http.Header
	body     []byte
	writeErr error
	mu       sync.Mutex
}

func newMockResponseWriter() *mockResponseWriter {
	return &mockResponseWriter{header: make(http.Header)}
}

func (m *mockResponseWriter) Header() http.Header { return m.header }

func (m *mockResponseWriter) Write(data []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	m.body = append(m.body, data...)
	return len(data), nil
}

func (m *mockResponseWriter) WriteHeader(int) {}

func (m *mockResponseWriter) Flush() {}

func (m *mockResponseWriter) GetBody() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.body)
}

// plainWriter has no Flush method.
type plainWriter struct{ http.ResponseWriter }

func (s *BroadcasterSuite) TestAddClient() {
	client, err := s.broadcaster.AddClient(newMockResponseWriter())
	s.Require().NoError(err)
	s.NotEmpty(client.ID)
	s.NotNil(client.Done)
	s.Equal(1, s.broadcaster.ClientCount())
}

func (s *BroadcasterSuite) TestAddClientRequiresFlusher() {
	_, err := s.broadcaster.AddClient(plainWriter{})
	s.Error(err)
	s.Equal(0, s.broadcaster.ClientCount())
}

func (s *BroadcasterSuite) TestRemoveClientTwice() {
	client, err := s.broadcaster.AddClient(newMockResponseWriter())
	s.Require().NoError(err)

	s.broadcaster.RemoveClient(client)
	s.broadcaster.RemoveClient(client)
	s.Equal(0, s.broadcaster.ClientCount())

	select {
	case <-client.Done:
	default:
		s.Fail("Done channel should be closed")
	}
}

func (s *BroadcasterSuite) TestPublishWritesNamedEvent() {
	w := newMockResponseWriter()
	_, err := s.broadcaster.AddClient(w)
	s.Require().NoError(err)

	s.broadcaster.Publish(EventNoteChange, map[string]string{"date": "2025-01-31"})

	body := w.GetBody()
	s.True(strings.HasPrefix(body, "event: journal.daily_note\ndata: "))
	s.True(strings.HasSuffix(body, "\n\n"))

	payload := strings.TrimSuffix(strings.TrimPrefix(body, "event: journal.daily_note\ndata: "), "\n\n")
	var env struct {
		Data map[string]string `json:"data"`
		Type string            `json:"type"`
	}
	s.Require().NoError(json.Unmarshal([]byte(payload), &env))
	s.Equal(EventNoteChange, env.Type)
	s.Equal("2025-01-31", env.Data["date"])
}

func (s *BroadcasterSuite) TestBroadcastReachesEveryClient() {
	writers := make([]*mockResponseWriter, 3)
	for i := range writers {
		writers[i] = newMockResponseWriter()
		_, err := s.broadcaster.AddClient(writers[i])
		s.Require().NoError(err)
	}

	s.broadcaster.Broadcast(map[string]string{"type": "chat.typing"})

	for i, w := range writers {
		s.Equal("data: {\"type\":\"chat.typing\"}\n\n", w.GetBody(), "client %d", i)
	}
}

func (s *BroadcasterSuite) TestBroadcastNoClients() {
	s.NotPanics(func() { s.broadcaster.Broadcast(map[string]string{"type": "test"}) })
}

func (s *BroadcasterSuite) TestFailedWriteDropsClient() {
	good := newMockResponseWriter()
	bad := newMockResponseWriter()
	bad.writeErr = errors.New("broken pipe")

	_, err := s.broadcaster.AddClient(good)
	s.Require().NoError(err)
	badClient, err := s.broadcaster.AddClient(bad)
	s.Require().NoError(err)

	s.broadcaster.Publish(EventScheduleChange, map[string]string{"id": "schedule-1"})

	s.Equal(1, s.broadcaster.ClientCount())
	s.Contains(good.GetBody(), "schedule-1")
	select {
	case <-badClient.Done:
	default:
		s.Fail("dropped client should be closed")
	}
}

func TestWriteTimeout(t *testing.T) {
	assert.Equal(t, 2*time.Second, WriteTimeout)
}

func TestClientUniqueIDs(t *testing.T) {
	b := NewBroadcaster()
	ids := make(map[string]bool)
	for range 100 {
		client, err := b.AddClient(newMockResponseWriter())
		require.NoError(t, err)
		assert.False(t, ids[client.ID], "ID %s should be unique", client.ID)
		ids[client.ID] = true
	}
}

func TestAllowOrigin(t *testing.T) {
	open := NewBroadcaster()
	assert.Equal(t, "*", open.allowOrigin("http://anything.test"))

	b := NewBroadcaster("http://localhost:5173")
	assert.Equal(t, "http://localhost:5173", b.allowOrigin("http://localhost:5173"))
	assert.Empty(t, b.allowOrigin("http://evil.test"))
}

func TestHandleSSERejectsOrigin(t *testing.T) {
	b := NewBroadcaster("http://localhost:5173")
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("Origin", "http://evil.test")
	rec := httptest.NewRecorder()

	b.HandleSSE(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 0, b.ClientCount())
}

func TestHandleSSEStreamsUntilCancelled(t *testing.T) {
	b := NewBroadcaster()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := newMockResponseWriter()

	done := make(chan struct{})
	go func() {
		b.HandleSSE(w, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	b.Publish(EventRecordChange, map[string]string{"id": "mood-1"})
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("HandleSSE did not return after cancel")
	}

	body := w.GetBody()
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, body, "event: connected\n")
	assert.Contains(t, body, "event: journal.mood_record\n")
	assert.Equal(t, 0, b.ClientCount())
}

func TestConcurrentPublish(t *testing.T) {
	b := NewBroadcaster()
	for range 10 {
		_, err := b.AddClient(newMockResponseWriter())
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b.Publish("test", map[string]int{"index": i})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, b.ClientCount())
}

func TestConcurrentAddRemove(t *testing.T) {
	b := NewBroadcaster()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			client, err := b.AddClient(newMockResponseWriter())
			if err == nil && i%2 == 0 {
				b.RemoveClient(client)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 25, b.ClientCount())
}
