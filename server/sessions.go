package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/chazu/intcode/vm"
)

// ErrTooManySessions is returned when the session limit is reached.
var ErrTooManySessions = errors.New("too many sessions")

// Session is an interactive machine that suspends at every INPUT until a
// Feed supplies a value. The machine runs on its own goroutine; Session
// methods only exchange values with it over channels.
type Session struct {
	ID string

	mu       sync.Mutex // serializes Feed and snapshot
	requests chan struct{}
	inputs   chan int64
	done     chan struct{}
	pending  bool // machine has asked for input and not yet received it
	out      *vm.Collector
	read     int
	cancel   context.CancelFunc
	lastUsed atomic.Int64 // unix nanos

	res   *vm.Result
	fault error
}

func newSession(id string, program []int64, opts []vm.Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:       id,
		requests: make(chan struct{}),
		inputs:   make(chan int64),
		done:     make(chan struct{}),
		out:      &vm.Collector{},
		cancel:   cancel,
	}
	s.lastUsed.Store(time.Now().UnixNano())

	opts = append(opts, vm.WithInput(vm.InputFunc(s.input)), vm.WithOutput(s.out))
	go func() {
		defer close(s.done)
		s.res, s.fault = vm.Run(ctx, program, opts...)
	}()
	return s
}

// input is the machine's InputSource: announce the request, then block
// until Feed hands over a value.
func (s *Session) input(ctx context.Context) (int64, error) {
	select {
	case s.requests <- struct{}{}:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case v := <-s.inputs:
		return v, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// settle blocks until the machine is waiting for input (true) or has
// stopped (false).
func (s *Session) settle(ctx context.Context) (bool, error) {
	if s.pending {
		return true, nil
	}
	select {
	case <-s.requests:
		s.pending = true
		return true, nil
	case <-s.done:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Feed supplies inputs in order, then waits for the machine to ask for
// more or stop. Inputs left over after the machine stops are dropped.
func (s *Session) Feed(ctx context.Context, inputs []int64) (*SessionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed.Store(time.Now().UnixNano())

	for _, v := range inputs {
		waiting, err := s.settle(ctx)
		if err != nil {
			return nil, err
		}
		if !waiting {
			break
		}
		select {
		case s.inputs <- v:
			s.pending = false
		case <-s.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	waiting, err := s.settle(ctx)
	if err != nil {
		return nil, err
	}
	return s.snapshot(waiting), nil
}

func (s *Session) snapshot(waiting bool) *SessionResponse {
	all := s.out.Values()
	resp := &SessionResponse{
		SessionID: s.ID,
		Outputs:   all[s.read:],
		Waiting:   waiting,
		State:     vm.Running.String(),
	}
	s.read = len(all)

	if !waiting {
		<-s.done
		resp.State = s.res.State.String()
		resp.Memory = s.res.Memory
		resp.PC = s.res.PC
		resp.Steps = s.res.Steps
		if s.fault != nil {
			resp.Fault = s.fault.Error()
		}
	}
	return resp
}

// Stopped reports whether the machine has finished.
func (s *Session) Stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Session) idleSince() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

// ---------------------------------------------------------------------------
// SessionStore
// ---------------------------------------------------------------------------

// SessionStore manages interactive sessions.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	max      int
}

// NewSessionStore creates a store holding at most max sessions.
func NewSessionStore(max int) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		max:      max,
	}
}

// Start creates a session and runs its machine until it first needs
// input or stops.
func (st *SessionStore) Start(ctx context.Context, program []int64, opts ...vm.Option) (*Session, *SessionResponse, error) {
	st.mu.Lock()
	if st.max > 0 && len(st.sessions) >= st.max {
		st.mu.Unlock()
		return nil, nil, ErrTooManySessions
	}
	s := newSession(uuid.NewString(), program, opts)
	st.sessions[s.ID] = s
	st.mu.Unlock()

	resp, err := s.Feed(ctx, nil)
	if err != nil {
		st.Destroy(s.ID)
		return nil, nil, err
	}
	return s, resp, nil
}

// Get retrieves a session by ID.
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.sessions[id]
	return s, ok
}

// Destroy removes a session and aborts its machine.
func (st *SessionStore) Destroy(id string) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()

	if ok {
		s.cancel()
	}
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes sessions that haven't been used within the TTL.
func (st *SessionStore) Sweep(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	st.mu.RLock()
	var stale []string
	for id, s := range st.sessions {
		if s.idleSince().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	st.mu.RUnlock()

	for _, id := range stale {
		st.Destroy(id)
	}
	if len(stale) > 0 {
		log.Infof("swept %d idle sessions", len(stale))
	}
	return len(stale)
}

// StartSweeper periodically sweeps idle sessions. Returns a stop function.
func (st *SessionStore) StartSweeper(interval, ttl time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				st.Sweep(ttl)
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}

// CloseAll aborts every session.
func (st *SessionStore) CloseAll() {
	st.mu.Lock()
	sessions := st.sessions
	st.sessions = make(map[string]*Session)
	st.mu.Unlock()

	for _, s := range sessions {
		s.cancel()
	}
}
