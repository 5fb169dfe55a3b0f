package services

import (
	"sync"
)

// Conn is the slice of a websocket connection the registry needs. The
// gorilla *websocket.Conn satisfies it; tests use fakes.
type Conn interface {
	WriteJSON(v interface{}) error
}

type clientInfo struct {
	name    string
	writeMu sync.Mutex // one writer per connection at a time
}

// Registry tracks live connections and the display name each submitted.
// A connection with no name is anonymous and may not mutate counters.
type Registry struct {
	mu      sync.RWMutex
	clients map[Conn]*clientInfo
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{clients: make(map[Conn]*clientInfo)}
}

// Admit records a new connection with no display name
func (r *Registry) Admit(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[conn]; !ok {
		r.clients[conn] = &clientInfo{}
	}
}

// Identify binds a display name to an admitted connection
func (r *Registry) Identify(conn Conn, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.clients[conn]
	if !ok {
		info = &clientInfo{}
		r.clients[conn] = info
	}
	info.name = name
}

// Name returns the display name bound to conn, if any
func (r *Registry) Name(conn Conn) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.clients[conn]
	if !ok || info.name == "" {
		return "", false
	}
	return info.name, true
}

// IsIdentified reports whether conn has submitted a display name
func (r *Registry) IsIdentified(conn Conn) bool {
	_, ok := r.Name(conn)
	return ok
}

// Forget removes a connection; idempotent, called on transport close
func (r *Registry) Forget(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, conn)
}

// Count returns the number of live connections
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Send delivers one message to a single connection. A write failure means
// the transport is closed or closing; it is never an error for the caller.
func (r *Registry) Send(conn Conn, v interface{}) {
	r.mu.RLock()
	info, ok := r.clients[conn]
	r.mu.RUnlock()
	if !ok {
		return
	}

	info.writeMu.Lock()
	defer info.writeMu.Unlock()
	_ = conn.WriteJSON(v)
}

// Broadcast delivers one message to every live connection. Connections
// whose write fails are skipped, not errored.
func (r *Registry) Broadcast(v interface{}) {
	r.mu.RLock()
	targets := make(map[Conn]*clientInfo, len(r.clients))
	for conn, info := range r.clients {
		targets[conn] = info
	}
	r.mu.RUnlock()

	for conn, info := range targets {
		info.writeMu.Lock()
		_ = conn.WriteJSON(v)
		info.writeMu.Unlock()
	}
}
