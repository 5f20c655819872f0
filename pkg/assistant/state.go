package assistant

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Phase is the activation state.
type Phase int

const (
	// Dormant listens only for the wake phrase. It is the initial phase.
	Dormant Phase = iota
	// Active accepts commands.
	Active
)

func (p Phase) String() string {
	if p == Active {
		return "active"
	}
	return "dormant"
}

// Reason records why the assistant went back to Dormant.
type Reason string

const (
	ReasonCommand    Reason = "command"
	ReasonInactivity Reason = "inactivity"
	ReasonShutdown   Reason = "shutdown"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// Snapshot is a consistent copy of State for readers.
type Snapshot struct {
	Phase         Phase     `json:"-"`
	PhaseName     string    `json:"phase"`
	Session       string    `json:"session,omitempty"`
	ActivatedAt   time.Time `json:"activated_at,omitzero"`
	LastActivity  time.Time `json:"last_activity,omitzero"`
	LastReason    Reason    `json:"last_reason,omitempty"`
	Activations   int       `json:"activations"`
	Deactivations int       `json:"deactivations"`
}

// State is the shared activation state. Every transition is atomic, so a
// refresh and an inactivity check can never interleave: either the refresh
// lands first and the check sees the fresh timestamp, or the check expires
// the session first and the refresh reports false.
type State struct {
	mu            sync.Mutex
	phase         Phase
	session       string
	activatedAt   time.Time
	lastActivity  time.Time
	lastReason    Reason
	activations   int
	deactivations int
}

// NewState returns a Dormant state.
func NewState() *State {
	return &State{}
}

// Activate moves Dormant to Active, stamping now as the last activity and
// opening a new session. It returns false if already Active.
func (s *State) Activate(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == Active {
		return false
	}
	s.phase = Active
	s.session = uuid.NewString()
	s.activatedAt = now
	s.lastActivity = now
	s.activations++
	return true
}

// Refresh records activity at now. The timestamp never moves backwards.
// It returns false when Dormant.
func (s *State) Refresh(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != Active {
		return false
	}
	if now.After(s.lastActivity) {
		s.lastActivity = now
	}
	return true
}

// Deactivate moves Active to Dormant. It returns false if already Dormant.
func (s *State) Deactivate(reason Reason) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deactivateLocked(reason)
}

// ExpireIfIdle deactivates when more than timeout has passed since the last
// activity. It returns true only for the call that made the transition.
func (s *State) ExpireIfIdle(now time.Time, timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != Active || now.Sub(s.lastActivity) <= timeout {
		return false
	}
	return s.deactivateLocked(ReasonInactivity)
}

func (s *State) deactivateLocked(reason Reason) bool {
	if s.phase != Active {
		return false
	}
	s.phase = Dormant
	s.session = ""
	s.lastReason = reason
	s.deactivations++
	return true
}

// Active reports whether the assistant is accepting commands.
func (s *State) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase == Active
}

// Session returns the current session id, or "" while Dormant.
func (s *State) Session() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Snapshot returns a copy of the state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Phase:         s.phase,
		PhaseName:     s.phase.String(),
		Session:       s.session,
		ActivatedAt:   s.activatedAt,
		LastActivity:  s.lastActivity,
		LastReason:    s.lastReason,
		Activations:   s.activations,
		Deactivations: s.deactivations,
	}
}
