package companion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type ManagerSuite struct {
	suite.Suite
	manager *Manager
}

func (s *ManagerSuite) SetupTest() {
	s.manager = NewManager(SessionOptions{Journal: &staticJournal{}, Clock: refClock()})
}

func (s *ManagerSuite) TearDownTest() {
	s.manager.Shutdown()
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) TestGetOrCreate() {
	var created []string
	s.manager.SetOnSessionCreated(func(id string) { created = append(created, id) })

	a := s.manager.GetOrCreate("a")
	s.Same(a, s.manager.GetOrCreate("a"))
	s.manager.GetOrCreate("b")

	s.Equal([]string{"a", "b"}, created)
	s.Equal(2, s.manager.GetActiveSessionCount())

	got, ok := s.manager.Get("a")
	s.True(ok)
	s.Equal("a", got.ID())
	_, ok = s.manager.Get("missing")
	s.False(ok)
}

func (s *ManagerSuite) TestProactiveDefault() {
	s.True(s.manager.ProactiveDefault())

	quiet := NewManager(SessionOptions{Journal: &staticJournal{}, ProactiveDisabled: true})
	defer quiet.Shutdown()
	s.False(quiet.ProactiveDefault())
	s.False(quiet.GetOrCreate("a").ProactiveEnabled())
}

func (s *ManagerSuite) TestSessionsShareResponder() {
	a := s.manager.GetOrCreate("a")
	b := s.manager.GetOrCreate("b")
	s.Same(a.responder, b.responder)
	s.Same(s.manager.Responder(), a.responder)
}

func (s *ManagerSuite) TestDeleteSession() {
	var deleted string
	s.manager.SetOnSessionDeleted(func(id string) { deleted = id })
	s.manager.GetOrCreate("a")

	s.manager.DeleteSession("a")
	s.Equal("a", deleted)
	s.Equal(0, s.manager.GetActiveSessionCount())

	deleted = ""
	s.manager.DeleteSession("a")
	s.Empty(deleted)
}

func (s *ManagerSuite) TestCleanupIdle() {
	old := s.manager.GetOrCreate("old")
	s.manager.GetOrCreate("fresh")
	old.mu.Lock()
	old.lastActive = time.Now().Add(-SessionTimeout - time.Minute)
	old.mu.Unlock()

	s.Equal(1, s.manager.cleanupIdle(time.Now()))
	_, ok := s.manager.Get("old")
	s.False(ok)
	_, ok = s.manager.Get("fresh")
	s.True(ok)
}

func TestTimeoutConstants(t *testing.T) {
	assert.Equal(t, 30*time.Minute, SessionTimeout)
	assert.Equal(t, 5*time.Minute, CleanupInterval)
}
