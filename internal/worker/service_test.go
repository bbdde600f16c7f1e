package worker

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/moodlens/internal/companion"
	"github.com/thebtf/moodlens/internal/config"
	"github.com/thebtf/moodlens/internal/journal"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	cfg := config.Default()
	cfg.WorkerPort = 0

	store := journal.NewStore(journal.Options{Clock: journal.NewFixedClock(journal.ReferenceNow)})
	store.Load(context.Background())
	return NewService("test-version", cfg, store, companion.NewResponder(nil, nil))
}

func TestShutdownBeforeStart(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.Shutdown(context.Background()))

	done := make(chan error, 1)
	go func() { done <- svc.Start() }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start kept serving after Shutdown")
	}
	assert.Equal(t, http.StatusServiceUnavailable, do(t, svc, http.MethodGet, "/health", nil).Code)
}

func TestShutdownWhileStarting(t *testing.T) {
	svc := newTestService(t)

	done := make(chan error, 1)
	go func() { done <- svc.Start() }()
	require.NoError(t, svc.Shutdown(context.Background()))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start kept serving after Shutdown")
	}
}
