// Package sse pushes journal and chat events to connected clients as Server-Sent Events.
package sse

import (
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

const (
	// WriteTimeout bounds a write to one client so a stale connection cannot block a broadcast.
	WriteTimeout = 2 * time.Second
	// HeartbeatInterval is how often an idle stream receives a keep-alive comment.
	HeartbeatInterval = 15 * time.Second
)

// Event types published by the service.
const (
	EventConnected      = "connected"
	EventScheduleChange = "journal.schedule"
	EventRecordChange   = "journal.mood_record"
	EventNoteChange     = "journal.daily_note"
	EventChatSession    = "chat.session"
)

// Envelope wraps published data with its event type.
type Envelope struct {
	Data any    `json:"data,omitempty"`
	Type string `json:"type"`
}

// Client represents a connected SSE client.
type Client struct {
	Writer  http.ResponseWriter
	Flusher http.Flusher
	Done    chan struct{}
	ID      string

	closeOnce sync.Once
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.Done) })
}

// Broadcaster manages SSE client connections and message broadcasting.
type Broadcaster struct {
	clients        map[string]*Client
	allowedOrigins []string
	mu             sync.RWMutex
	nextID         int
}

// NewBroadcaster creates a broadcaster. With no allowed origins any origin may connect.
func NewBroadcaster(allowedOrigins ...string) *Broadcaster {
	return &Broadcaster{
		clients:        make(map[string]*Client),
		allowedOrigins: allowedOrigins,
	}
}

// AddClient adds a new SSE client connection.
func (b *Broadcaster) AddClient(w http.ResponseWriter) (*Client, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	b.mu.Lock()
	b.nextID++
	id := fmt.Sprintf("client-%d", b.nextID)
	client := &Client{
		ID:      id,
		Writer:  w,
		Flusher: flusher,
		Done:    make(chan struct{}),
	}
	b.clients[id] = client
	clientCount := len(b.clients)
	b.mu.Unlock()

	log.Debug().
		Str("clientId", id).
		Int("totalClients", clientCount).
		Msg("SSE client connected")

	return client, nil
}

// RemoveClient removes a client connection. Removing twice is safe.
func (b *Broadcaster) RemoveClient(client *Client) {
	b.mu.Lock()
	delete(b.clients, client.ID)
	clientCount := len(b.clients)
	b.mu.Unlock()

	client.close()

	log.Debug().
		Str("clientId", client.ID).
		Int("totalClients", clientCount).
		Msg("SSE client disconnected")
}

// Publish sends data to every client as an event of the given type.
func (b *Broadcaster) Publish(eventType string, data any) {
	payload, err := json.Marshal(Envelope{Type: eventType, Data: data})
	if err != nil {
		log.Error().Err(err).Str("event", eventType).Msg("Failed to marshal SSE event")
		return
	}
	b.send(fmt.Sprintf("event: %s\ndata: %s\n\n", eventType, payload))
}

// Broadcast sends data to every client as an unnamed message.
func (b *Broadcaster) Broadcast(data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal SSE data")
		return
	}
	b.send(fmt.Sprintf("data: %s\n\n", payload))
}

func (b *Broadcaster) send(message string) {
	b.mu.RLock()
	clients := make([]*Client, 0, len(b.clients))
	for _, client := range b.clients {
		clients = append(clients, client)
	}
	b.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	deadClientsCh := make(chan *Client, len(clients))
	var wg sync.WaitGroup
	for _, client := range clients {
		select {
		case <-client.Done:
			continue
		default:
		}
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			if !b.writeToClient(c, message) {
				deadClientsCh <- c
			}
		}(client)
	}
	wg.Wait()
	close(deadClientsCh)

	for client := range deadClientsCh {
		b.RemoveClient(client)
	}
}

// writeToClient writes one message, reporting false when the client should be dropped.
func (b *Broadcaster) writeToClient(client *Client, message string) bool {
	done := make(chan error, 1)
	go func() {
		_, err := client.Writer.Write([]byte(message))
		if err == nil {
			client.Flusher.Flush()
		}
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			log.Debug().Str("clientId", client.ID).Err(err).Msg("Failed to write to SSE client, marking for removal")
			return false
		}
		return true
	case <-time.After(WriteTimeout):
		log.Warn().Str("clientId", client.ID).Dur("timeout", WriteTimeout).Msg("SSE write timed out, marking client for removal")
		return false
	case <-client.Done:
		return true
	}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *Broadcaster) allowOrigin(origin string) string {
	if len(b.allowedOrigins) == 0 {
		return "*"
	}
	if slices.Contains(b.allowedOrigins, origin) {
		return origin
	}
	return ""
}

// HandleSSE streams events to one client until the request ends.
func (b *Broadcaster) HandleSSE(w http.ResponseWriter, r *http.Request) {
	origin := b.allowOrigin(r.Header.Get("Origin"))
	if origin == "" {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", origin)

	client, err := b.AddClient(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer b.RemoveClient(client)

	hello, _ := json.Marshal(Envelope{Type: EventConnected, Data: map[string]string{"client_id": client.ID}})
	if !b.writeToClient(client, fmt.Sprintf("event: %s\ndata: %s\n\n", EventConnected, hello)) {
		return
	}

	heartbeat := time.NewTicker(HeartbeatInterval)
	defer heartbeat.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-client.Done:
			return
		case <-heartbeat.C:
			if !b.writeToClient(client, ": keep-alive\n\n") {
				return
			}
		}
	}
}
