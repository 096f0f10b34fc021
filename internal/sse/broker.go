// Package sse fans note changes out to Server-Sent Events clients.
package sse

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/starford/tidenotes/internal/noteservice"
)

// Event names without a note id.
const (
	EventNotesReloaded = "notes.reloaded"
	EventTagsUpdated   = "tags.updated"
)

// Config tunes a Broker. Zero fields take defaults.
type Config struct {
	// TagsThrottle is the minimum gap between two tags.updated events.
	TagsThrottle time.Duration
	// Heartbeat is how often an idle stream gets a comment line.
	Heartbeat time.Duration
	// ClientBuffer is the per-client queue length. A full queue drops frames.
	ClientBuffer int
}

func (c Config) withDefaults() Config {
	if c.TagsThrottle <= 0 {
		c.TagsThrottle = 2 * time.Second
	}
	if c.Heartbeat <= 0 {
		c.Heartbeat = 25 * time.Second
	}
	if c.ClientBuffer <= 0 {
		c.ClientBuffer = 64
	}
	return c
}

// Event is one frame on the stream.
type Event struct {
	Name string
	Data any
}

type client chan []byte

// Broker broadcasts note changes to connected streams.
//
// One loop goroutine owns the client set, the frame sequence and the tags
// throttle. Everything else reaches it through channels.
type Broker struct {
	cfg Config

	join   chan client
	leave  chan client
	events chan Event
	count  chan chan int

	quit   chan struct{}
	done   chan struct{}
	closed atomic.Bool
}

// NewBroker starts a broker loop.
func NewBroker(cfg Config) *Broker {
	b := &Broker{
		cfg:    cfg.withDefaults(),
		join:   make(chan client),
		leave:  make(chan client),
		events: make(chan Event, 256),
		count:  make(chan chan int),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go b.loop()
	return b
}

// frame encodes ev in text/event-stream form with sequence number seq.
func frame(seq uint64, ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString("id: ")
	buf.WriteString(strconv.FormatUint(seq, 10))
	buf.WriteString("\nevent: ")
	buf.WriteString(ev.Name)
	buf.WriteString("\ndata: ")
	buf.Write(payload)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}

func (b *Broker) loop() {
	defer close(b.done)

	clients := make(map[client]struct{})
	var (
		seq      uint64
		lastTags time.Time
	)

	send := func(ev Event) {
		seq++
		raw, err := frame(seq, ev)
		if err != nil {
			return
		}
		for c := range clients {
			select {
			case c <- raw:
			default:
			}
		}
	}

	for {
		select {
		case <-b.quit:
			for c := range clients {
				close(c)
			}
			return

		case c := <-b.join:
			clients[c] = struct{}{}

		case c := <-b.leave:
			if _, ok := clients[c]; ok {
				delete(clients, c)
				close(c)
			}

		case ev := <-b.events:
			send(ev)
			if ev.Name == EventTagsUpdated || ev.Name == EventNotesReloaded {
				continue
			}
			if now := time.Now(); now.Sub(lastTags) >= b.cfg.TagsThrottle {
				lastTags = now
				send(Event{Name: EventTagsUpdated, Data: struct{}{}})
			}

		case reply := <-b.count:
			reply <- len(clients)
		}
	}
}

// Close stops the loop and ends every stream. It is safe to call twice.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.quit)
	}
	<-b.done
}

// Subscribe registers a new stream. The channel is closed on Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	c := make(client, b.cfg.ClientBuffer)
	if b.closed.Load() {
		close(c)
		return c
	}
	select {
	case b.join <- c:
	case <-b.done:
		close(c)
	}
	return c
}

// Unsubscribe drops a stream and closes its channel.
func (b *Broker) Unsubscribe(c chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.leave <- c:
	case <-b.done:
	}
}

// ClientCount returns the number of open streams.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	reply := make(chan int, 1)
	select {
	case b.count <- reply:
	case <-b.done:
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-b.done:
		return 0
	}
}

// Publish queues ev for every stream. A note event is followed by a
// throttled tags.updated.
func (b *Broker) Publish(ev Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.events <- ev:
	case <-b.done:
	}
}

// Notify turns a service change into an event. It matches the
// noteservice.WithOnChange signature.
func (b *Broker) Notify(c noteservice.Change) {
	switch c.Kind {
	case noteservice.ChangeReloaded:
		b.Publish(Event{Name: EventNotesReloaded, Data: struct{}{}})
	case noteservice.ChangeCreated, noteservice.ChangeUpdated,
		noteservice.ChangeDeleted, noteservice.ChangePinned:
		b.Publish(Event{Name: "note." + string(c.Kind), Data: map[string]string{"id": c.ID}})
	}
}

// ServeHTTP streams events until the client goes away or the broker closes.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("retry: 3000\n\n"))
	flusher.Flush()

	c := b.Subscribe()
	defer b.Unsubscribe(c)

	ping := time.NewTicker(b.cfg.Heartbeat)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case raw, ok := <-c:
			if !ok {
				return
			}
			_, _ = w.Write(raw)
			flusher.Flush()
		}
	}
}
