package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records every message written to it; optionally fails writes
// like a closed transport would
type fakeConn struct {
	mu       sync.Mutex
	messages []interface{}
	closed   bool
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("connection closed")
	}
	f.messages = append(f.messages, v)
	return nil
}

func (f *fakeConn) sent() []interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]interface{}, len(f.messages))
	copy(out, f.messages)
	return out
}

func (f *fakeConn) last() interface{} {
	msgs := f.sent()
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}

func TestRegistryIdentity(t *testing.T) {
	reg := NewRegistry()
	conn := &fakeConn{}

	reg.Admit(conn)
	assert.False(t, reg.IsIdentified(conn))

	reg.Identify(conn, "alice")
	assert.True(t, reg.IsIdentified(conn))

	name, ok := reg.Name(conn)
	require.True(t, ok)
	assert.Equal(t, "alice", name)
}

func TestRegistryForgetIdempotent(t *testing.T) {
	reg := NewRegistry()
	conn := &fakeConn{}

	reg.Admit(conn)
	assert.Equal(t, 1, reg.Count())

	reg.Forget(conn)
	reg.Forget(conn)
	assert.Equal(t, 0, reg.Count())
	assert.False(t, reg.IsIdentified(conn))
}

func TestRegistryBroadcastSkipsClosed(t *testing.T) {
	reg := NewRegistry()
	open1 := &fakeConn{}
	closed := &fakeConn{closed: true}
	open2 := &fakeConn{}

	reg.Admit(open1)
	reg.Admit(closed)
	reg.Admit(open2)

	reg.Broadcast("hello")

	assert.Len(t, open1.sent(), 1)
	assert.Len(t, open2.sent(), 1)
	assert.Empty(t, closed.sent())
}

func TestRegistrySendUnknownConn(t *testing.T) {
	reg := NewRegistry()
	conn := &fakeConn{}

	// Sending to a never-admitted connection is a no-op
	reg.Send(conn, "hello")
	assert.Empty(t, conn.sent())
}
