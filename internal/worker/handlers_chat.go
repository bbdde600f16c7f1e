package worker

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/thebtf/moodlens/internal/companion"
	"github.com/thebtf/moodlens/pkg/models"
)

type sendRequest struct {
	Content string `json:"content"`
}

// ChatView is the state of one conversation.
type ChatView struct {
	SessionID string               `json:"session_id"`
	State     companion.State      `json:"state"`
	Messages  []models.ChatMessage `json:"messages"`
	Typing    bool                 `json:"typing"`
	Proactive bool                 `json:"proactive"`
}

// proactiveResponse reports a proactive message, or added=false when none was produced.
type proactiveResponse struct {
	Message *models.ChatMessage `json:"message,omitempty"`
	Added   bool                `json:"added"`
}

func chatView(sess *companion.Session) ChatView {
	return ChatView{
		SessionID: sess.ID(),
		State:     sess.State(),
		Messages:  nonNil(sess.Messages()),
		Typing:    sess.Typing(),
		Proactive: sess.ProactiveEnabled(),
	}
}

func (s *Service) session(r *http.Request) *companion.Session {
	return s.chatManager.GetOrCreate(chi.URLParam(r, "session"))
}

// handleGetMessages reads a conversation without starting one: an unknown id
// reports an empty, idle history.
func (s *Service) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session")
	if sess, ok := s.chatManager.Get(id); ok {
		writeJSON(w, http.StatusOK, chatView(sess))
		return
	}
	writeJSON(w, http.StatusOK, ChatView{
		SessionID: id,
		State:     companion.StateIdle,
		Messages:  []models.ChatMessage{},
		Proactive: s.chatManager.ProactiveDefault(),
	})
}

func (s *Service) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decodeBody(r, &req); err != nil {
		writeStoreError(w, err)
		return
	}
	reply, err := s.session(r).Send(r.Context(), req.Content)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Service) handleInitChat(w http.ResponseWriter, r *http.Request) {
	msg, ok := s.session(r).Initialize()
	writeJSON(w, http.StatusOK, proactiveOf(msg, ok))
}

func (s *Service) handleNudge(w http.ResponseWriter, r *http.Request) {
	msg, ok := s.session(r).Nudge()
	writeJSON(w, http.StatusOK, proactiveOf(msg, ok))
}

func (s *Service) handleToggleProactive(w http.ResponseWriter, r *http.Request) {
	enabled := s.session(r).ToggleProactive()
	writeJSON(w, http.StatusOK, map[string]bool{"proactive": enabled})
}

func (s *Service) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	s.chatManager.DeleteSession(chi.URLParam(r, "session"))
	w.WriteHeader(http.StatusNoContent)
}

// ruleView describes one keyword group of the responder.
type ruleView struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Keywords    []string `json:"keywords"`
}

func (s *Service) handleRules(w http.ResponseWriter, _ *http.Request) {
	table := s.chatManager.Responder().Rules()
	rules := make([]ruleView, 0, len(table.All()))
	for _, rule := range table.All() {
		rules = append(rules, ruleView{Name: rule.Name, Description: rule.Description, Keywords: rule.Keywords})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rules":    rules,
		"fallback": table.Fallback(),
	})
}

func proactiveOf(msg models.ChatMessage, ok bool) proactiveResponse {
	if !ok {
		return proactiveResponse{}
	}
	return proactiveResponse{Message: &msg, Added: true}
}
