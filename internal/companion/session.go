package companion

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/moodlens/internal/journal"
	"github.com/thebtf/moodlens/pkg/models"
)

// Default thinking delay window.
const (
	DefaultThinkingDelayMin = 800 * time.Millisecond
	DefaultThinkingDelayMax = 1500 * time.Millisecond
)

// State is the turn-taking state of a session.
type State string

const (
	StateIdle                State = "idle"
	StateUserMessageAppended State = "user_message_appended"
	StateAwaitingReply       State = "awaiting_reply"
	StateReplyAppended       State = "reply_appended"
)

// Event types published to a Notifier.
const (
	EventMessage = "chat.message"
	EventTyping  = "chat.typing"
)

// Event is a session change pushed to listeners.
type Event struct {
	Message   *models.ChatMessage `json:"message,omitempty"`
	Type      string              `json:"type"`
	SessionID string              `json:"session_id"`
	Typing    bool                `json:"typing"`
}

// Notifier receives session events.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

// Notify calls f.
func (f NotifierFunc) Notify(e Event) { f(e) }

// SessionOptions configures a Session.
type SessionOptions struct {
	Journal   Journal
	Clock     journal.Clock // dates replies and stamps the opening message
	Responder *Responder
	Notifier  Notifier
	Metrics   *Metrics

	DelayMin time.Duration
	DelayMax time.Duration

	// ProactiveDisabled turns proactive messages off initially.
	ProactiveDisabled bool
}

// Session is one conversation. Turns are serialized: a Send arriving while another turn
// is in flight waits for it to finish.
type Session struct {
	id        string
	journal   Journal
	clock     journal.Clock
	responder *Responder
	notifier  Notifier
	metrics   *Metrics
	delayMin  time.Duration
	delayMax  time.Duration

	turn chan struct{}

	mu         sync.RWMutex
	messages   []models.ChatMessage
	typing     bool
	state      State
	proactive  bool
	lastActive time.Time
}

// NewSession creates an idle, empty session.
func NewSession(id string, opts SessionOptions) *Session {
	if opts.Clock == nil {
		opts.Clock = journal.SystemClock{}
	}
	if opts.Responder == nil {
		opts.Responder = NewResponder(nil, nil)
	}
	if opts.DelayMin < 0 {
		opts.DelayMin = 0
	}
	if opts.DelayMax < opts.DelayMin {
		opts.DelayMax = opts.DelayMin
	}
	return &Session{
		id:         id,
		journal:    opts.Journal,
		clock:      opts.Clock,
		responder:  opts.Responder,
		notifier:   opts.Notifier,
		metrics:    opts.Metrics,
		delayMin:   opts.DelayMin,
		delayMax:   opts.DelayMax,
		turn:       make(chan struct{}, 1),
		state:      StateIdle,
		proactive:  !opts.ProactiveDisabled,
		lastActive: time.Now(),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Messages returns a copy of the history.
func (s *Session) Messages() []models.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ChatMessage(nil), s.messages...)
}

// Typing reports whether a reply is being prepared.
func (s *Session) Typing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.typing
}

// State returns the current turn state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// ProactiveEnabled reports the proactive flag.
func (s *Session) ProactiveEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.proactive
}

// LastActive returns when the session last changed.
func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

// ToggleProactive flips the proactive flag and returns the new value.
func (s *Session) ToggleProactive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proactive = !s.proactive
	return s.proactive
}

// Send runs one turn: append text as a user message, wait the thinking delay, then append
// the reply. Cancelling ctx while waiting for an earlier turn returns ctx.Err() with
// nothing appended; cancelling during the delay only shortens it.
func (s *Session) Send(ctx context.Context, text string) (models.ChatMessage, error) {
	select {
	case s.turn <- struct{}{}:
	case <-ctx.Done():
		return models.ChatMessage{}, ctx.Err()
	}
	defer func() { <-s.turn }()

	s.append(models.RoleUser, text, time.Now().UnixMilli(), StateUserMessageAppended)

	s.setTyping(true, StateAwaitingReply)
	s.wait(ctx)

	summary := Summarize(s.journal, s.clock)
	rule := s.responder.Classify(text)
	reply := s.appendMessage(models.ChatMessage{
		Role:      models.RoleAssistant,
		Content:   s.responder.Respond(text, summary),
		Timestamp: time.Now().UnixMilli(),
		Context:   References(rule, summary),
	}, StateReplyAppended)
	s.setTyping(false, StateIdle)

	s.metrics.recordTurn(context.WithoutCancel(ctx), rule)
	log.Debug().Str("session", s.id).Str("rule", rule).Msg("Companion replied")
	return reply, nil
}

// Initialize appends the opening proactive message when the history is empty and
// proactive messages are enabled. It reports whether a message was added.
func (s *Session) Initialize() (models.ChatMessage, bool) {
	s.turn <- struct{}{}
	defer func() { <-s.turn }()

	s.mu.RLock()
	skip := len(s.messages) > 0 || !s.proactive
	s.mu.RUnlock()
	if skip {
		return models.ChatMessage{}, false
	}

	text, ok := Proactive(Summarize(s.journal, s.clock))
	if !ok {
		return models.ChatMessage{}, false
	}
	msg := s.append(models.RoleAssistant, text, s.clock.Now().UnixMilli(), StateIdle)
	s.metrics.recordProactive(context.Background(), "initialize")
	return msg, true
}

// Nudge appends a proactive message to an idle conversation when proactive messages are
// enabled. It does not wait for a turn in flight.
func (s *Session) Nudge() (models.ChatMessage, bool) {
	select {
	case s.turn <- struct{}{}:
	default:
		return models.ChatMessage{}, false
	}
	defer func() { <-s.turn }()

	if !s.ProactiveEnabled() {
		return models.ChatMessage{}, false
	}
	text, ok := Proactive(Summarize(s.journal, s.clock))
	if !ok {
		return models.ChatMessage{}, false
	}
	msg := s.append(models.RoleAssistant, text, time.Now().UnixMilli(), StateIdle)
	s.metrics.recordProactive(context.Background(), "nudge")
	return msg, true
}

func (s *Session) append(role models.MessageRole, content string, ts int64, next State) models.ChatMessage {
	return s.appendMessage(models.ChatMessage{Role: role, Content: content, Timestamp: ts}, next)
}

func (s *Session) appendMessage(msg models.ChatMessage, next State) models.ChatMessage {
	msg.ID = journal.LocalID(journal.PrefixMessage, time.Now())
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.state = next
	s.lastActive = time.Now()
	s.mu.Unlock()

	s.notify(Event{Type: EventMessage, SessionID: s.id, Message: &msg})
	return msg
}

func (s *Session) setTyping(typing bool, next State) {
	s.mu.Lock()
	s.typing = typing
	s.state = next
	s.mu.Unlock()

	s.notify(Event{Type: EventTyping, SessionID: s.id, Typing: typing})
}

func (s *Session) notify(e Event) {
	if s.notifier != nil {
		s.notifier.Notify(e)
	}
}

func (s *Session) thinkingDelay() time.Duration {
	spread := s.delayMax - s.delayMin
	if spread <= 0 {
		return s.delayMin
	}
	return s.delayMin + rand.N(spread+1)
}

func (s *Session) wait(ctx context.Context) {
	d := s.thinkingDelay()
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
