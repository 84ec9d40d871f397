// Package sse streams clustering run events to Server-Sent Events clients.
package sse

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/clusterizer/pkg/models"
)

// WriteTimeout bounds a single write to a client.
const WriteTimeout = 2 * time.Second

var (
	// ErrStreamingUnsupported is returned when the writer cannot flush.
	ErrStreamingUnsupported = errors.New("streaming not supported")
	// ErrClosed is returned by AddClient after Close.
	ErrClosed = errors.New("broadcaster closed")
)

// Event types.
const (
	EventConnected = "connected"
	EventRun       = "run"
)

// Event is one message on the stream.
type Event struct {
	Type       string  `json:"type"`
	ClientID   string  `json:"client_id,omitempty"`
	RunID      string  `json:"run_id,omitempty"`
	Metric     string  `json:"metric,omitempty"`
	Records    int     `json:"records"`
	Keys       int     `json:"keys"`
	Clusters   int     `json:"clusters"`
	Score      float64 `json:"score"`
	DurationMs int64   `json:"duration_ms"`
}

// RunEvent summarises a completed report.
func RunEvent(r *models.Report) Event {
	return Event{
		Type:       EventRun,
		RunID:      r.RunID,
		Metric:     r.Metric,
		Records:    r.Stats.Records,
		Keys:       r.Stats.Keys,
		Clusters:   len(r.Clusters),
		Score:      r.Score,
		DurationMs: r.DurationMs,
	}
}

// Client is one connected stream.
type Client struct {
	Writer  http.ResponseWriter
	Flusher http.Flusher
	Done    chan struct{}
	ID      string
	once    sync.Once
	mu      sync.Mutex
}

func (c *Client) close() {
	c.once.Do(func() { close(c.Done) })
}

// send writes one message. Nothing is written once Done is closed.
func (c *Client) send(message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.Done:
		return nil
	default:
	}
	if _, err := c.Writer.Write(message); err != nil {
		return err
	}
	c.Flusher.Flush()
	return nil
}

// Broadcaster fans events out to every connected client.
type Broadcaster struct {
	clients map[string]*Client
	mu      sync.RWMutex
	nextID  int
	closed  bool
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{clients: make(map[string]*Client)}
}

// AddClient registers w as a stream.
func (b *Broadcaster) AddClient(w http.ResponseWriter) (*Client, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	b.nextID++
	client := &Client{
		ID:      fmt.Sprintf("client-%d", b.nextID),
		Writer:  w,
		Flusher: flusher,
		Done:    make(chan struct{}),
	}
	b.clients[client.ID] = client
	count := len(b.clients)
	b.mu.Unlock()

	log.Debug().Str("clientId", client.ID).Int("totalClients", count).Msg("SSE client connected")
	return client, nil
}

// RemoveClient unregisters client and closes its Done channel.
func (b *Broadcaster) RemoveClient(client *Client) {
	b.mu.Lock()
	delete(b.clients, client.ID)
	count := len(b.clients)
	b.mu.Unlock()

	client.close()
	log.Debug().Str("clientId", client.ID).Int("totalClients", count).Msg("SSE client disconnected")
}

// Close disconnects every client and rejects new ones.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	b.closed = true
	clients := b.clients
	b.clients = make(map[string]*Client)
	b.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Broadcast sends ev to all clients. Clients that fail or time out are dropped.
func (b *Broadcaster) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal SSE event")
		return
	}
	message := []byte(fmt.Sprintf("data: %s\n\n", data))

	b.mu.RLock()
	clients := make([]*Client, 0, len(b.clients))
	for _, c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	dead := make(chan *Client, len(clients))
	var wg sync.WaitGroup
	for _, c := range clients {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			if !b.writeToClient(c, message) {
				dead <- c
			}
		}(c)
	}
	wg.Wait()
	close(dead)

	for c := range dead {
		b.RemoveClient(c)
	}
}

// writeToClient reports whether the write finished in time.
func (b *Broadcaster) writeToClient(c *Client, message []byte) bool {
	done := make(chan error, 1)
	go func() {
		done <- c.send(message)
	}()

	select {
	case err := <-done:
		if err != nil {
			log.Debug().Str("clientId", c.ID).Err(err).Msg("SSE write failed, dropping client")
			return false
		}
		return true
	case <-time.After(WriteTimeout):
		log.Warn().Str("clientId", c.ID).Dur("timeout", WriteTimeout).Msg("SSE write timed out, dropping client")
		return false
	case <-c.Done:
		return true
	}
}

// HandleSSE serves GET /api/events until the client goes away or the
// broadcaster is closed.
func (b *Broadcaster) HandleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client, err := b.AddClient(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	hello, _ := json.Marshal(Event{Type: EventConnected, ClientID: client.ID})
	if err := client.send([]byte(fmt.Sprintf("data: %s\n\n", hello))); err != nil {
		b.RemoveClient(client)
		return
	}

	select {
	case <-r.Context().Done():
	case <-client.Done:
	}
	b.RemoveClient(client)
	// Wait out a write still in flight: w is invalid once we return.
	client.mu.Lock()
	client.mu.Unlock()
}
