// Package supersede discards results of requests that a newer request from
// the same caller has replaced.
package supersede

import "sync"

// Tracker issues monotonically increasing sequence numbers per key. A key is
// kept only while one of its requests is in flight.
type Tracker struct {
	mu    sync.Mutex
	state map[string]*keyState
}

type keyState struct {
	latest   uint64
	inFlight int
}

func NewTracker() *Tracker {
	return &Tracker{state: map[string]*keyState{}}
}

// Ticket identifies one request. Current reports whether it is still the
// newest request issued for its key. Every ticket must be ended with Done.
type Ticket struct {
	t   *Tracker
	key string
	seq uint64
}

func (t *Tracker) enter(key string) *keyState {
	s, ok := t.state[key]
	if !ok {
		s = &keyState{}
		t.state[key] = s
	}
	s.inFlight++
	return s
}

// Begin issues a ticket newer than every ticket in flight for key.
func (t *Tracker) Begin(key string) Ticket {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.enter(key)
	s.latest++
	return Ticket{t: t, key: key, seq: s.latest}
}

// Observe registers a sequence number chosen by the client. It returns a
// ticket that is stale right away when a higher number is in flight.
func (t *Tracker) Observe(key string, seq uint64) Ticket {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.enter(key)
	if seq > s.latest {
		s.latest = seq
	}
	return Ticket{t: t, key: key, seq: seq}
}

func (tk Ticket) Seq() uint64 { return tk.seq }

func (tk Ticket) Current() bool {
	if tk.t == nil {
		return false
	}
	tk.t.mu.Lock()
	defer tk.t.mu.Unlock()
	s, ok := tk.t.state[tk.key]
	return ok && s.latest == tk.seq
}

// Done ends the request of tk. The key is dropped once none of its requests
// is in flight.
func (tk Ticket) Done() {
	if tk.t == nil {
		return
	}
	tk.t.mu.Lock()
	defer tk.t.mu.Unlock()
	s, ok := tk.t.state[tk.key]
	if !ok {
		return
	}
	s.inFlight--
	if s.inFlight <= 0 {
		delete(tk.t.state, tk.key)
	}
}

// Len reports how many keys have requests in flight.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.state)
}
