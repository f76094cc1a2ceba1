// Package chat owns the conversation state machine and the per-device
// session registry.
package chat

import (
	"errors"
	"strings"
	"sync"

	"github.com/cbag-ai/cbag-web/internal/domain"
	"github.com/cbag-ai/cbag-web/internal/trial"
	"github.com/google/uuid"
)

// Phase is the lifecycle state of a session's input loop.
type Phase string

const (
	// PhaseIdle accepts new submissions.
	PhaseIdle Phase = "idle"
	// PhaseSending covers the window between gate approval and dispatch.
	PhaseSending Phase = "sending"
	// PhaseAwaitingSettlement means a delivery is in flight; further
	// submissions are rejected until the turn settles.
	PhaseAwaitingSettlement Phase = "awaiting_settlement"
	// PhaseLocked is entered when an anonymous session exhausts its free
	// uses. It is sticky: only a login exits it.
	PhaseLocked Phase = "locked"
)

// Transcript copy shown to visitors. Transport detail never appears here.
const (
	connectionErrorText = "Connection error. Please try again."
	lockNoticeText      = "Trial limit reached. Please register to continue."
)

var (
	// ErrEmptyInput rejects blank submissions.
	ErrEmptyInput = errors.New("chat: empty input")
	// ErrBusy rejects a submission while a turn is in flight.
	ErrBusy = errors.New("chat: turn already in flight")
	// ErrTrialExhausted means the gate denied the submission and the
	// session is now locked.
	ErrTrialExhausted = errors.New("chat: free trial exhausted")
	// ErrLocked rejects submissions on an already locked session.
	ErrLocked = errors.New("chat: session locked")
)

// Session is the conversation state machine for one device. All transitions
// happen under its mutex. The agent call is the only point where work is
// outstanding without the lock held, and the phase guard keeps submissions
// single-flight for that window — no second turn can open until the first
// settles.
type Session struct {
	mu sync.Mutex

	deviceID    string
	identity    domain.Identity
	usesCount   int
	maxFreeUses int

	phase      Phase
	messages   []domain.Message
	activeTurn *domain.Turn
}

// Snapshot is a copy of the observable session state, safe to read without
// holding the session lock.
type Snapshot struct {
	DeviceID     string
	Identity     domain.Identity
	UsesCount    int
	MaxFreeUses  int
	Phase        Phase
	Messages     []domain.Message
	TurnInFlight bool
}

// projection is the slice of session state the service persists.
type projection struct {
	identity  domain.Identity
	usesCount int
}

// settlement reports what a settleTurn call actually did.
type settlement struct {
	applied bool
	charged bool
	proj    projection
}

func newSession(deviceID string, identity domain.Identity, usesCount, maxFreeUses int) *Session {
	s := &Session{
		deviceID:    deviceID,
		identity:    identity,
		usesCount:   usesCount,
		maxFreeUses: maxFreeUses,
		phase:       PhaseIdle,
	}
	if trial.Decide(identity, usesCount, maxFreeUses) == trial.Deny {
		s.phase = PhaseLocked
	}
	return s
}

// beginTurn runs the submission guards under the lock: trim and validate
// the input, re-check the gate at the moment of send, then append the user
// message and open the pending turn. On gate denial the session locks and
// nothing is appended.
func (s *Session) beginTurn(text string) (*domain.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	switch s.phase {
	case PhaseLocked:
		return nil, ErrLocked
	case PhaseSending, PhaseAwaitingSettlement:
		return nil, ErrBusy
	}

	if trial.Decide(s.identity, s.usesCount, s.maxFreeUses) == trial.Deny {
		s.phase = PhaseLocked
		return nil, ErrTrialExhausted
	}

	turn := &domain.Turn{ID: uuid.NewString(), InputText: text, Status: domain.TurnPending}
	s.phase = PhaseSending
	s.activeTurn = turn
	s.appendLocked(domain.RoleUser, text, turn.ID)
	s.phase = PhaseAwaitingSettlement
	return turn, nil
}

// settleTurn applies the terminal outcome of a turn exactly once. A stale
// or duplicate settlement (wrong turn, already settled) is a no-op, which
// guards the one-increment-per-turn invariant even if a caller fires twice.
func (s *Session) settleTurn(turnID string, status domain.TurnStatus, replyText string) settlement {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeTurn == nil || s.activeTurn.ID != turnID || s.activeTurn.Status != domain.TurnPending {
		return settlement{}
	}

	s.activeTurn.Status = status
	s.appendLocked(domain.RoleAgent, replyText, turnID)
	s.activeTurn = nil

	charged := false
	if s.identity.IsAnonymous() {
		s.usesCount = trial.RecordUse(s.identity, s.usesCount)
		charged = true
	}

	if trial.Decide(s.identity, s.usesCount, s.maxFreeUses) == trial.Deny {
		s.phase = PhaseLocked
		s.appendLocked(domain.RoleSystem, lockNoticeText, turnID)
	} else {
		s.phase = PhaseIdle
	}

	return settlement{
		applied: true,
		charged: charged,
		proj:    projection{identity: s.identity, usesCount: s.usesCount},
	}
}

// login switches to a registered identity and reopens input. This is the
// only path out of PhaseLocked.
func (s *Session) login(email, displayName string) projection {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = domain.NewRegistered(email, displayName)
	if s.phase == PhaseLocked {
		s.phase = PhaseIdle
	}
	return projection{identity: s.identity, usesCount: s.usesCount}
}

// logout reverts to the anonymous identity. The consumed-use counter is
// kept, so logging out cannot reset the trial; if it is already spent the
// session locks again. An in-flight turn keeps its phase and re-evaluates
// at settlement.
func (s *Session) logout() projection {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = domain.Anonymous()
	if s.phase == PhaseIdle || s.phase == PhaseLocked {
		if trial.Decide(s.identity, s.usesCount, s.maxFreeUses) == trial.Deny {
			s.phase = PhaseLocked
		} else {
			s.phase = PhaseIdle
		}
	}
	return projection{identity: s.identity, usesCount: s.usesCount}
}

// snapshot returns a copy of the observable state for rendering.
func (s *Session) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := make([]domain.Message, len(s.messages))
	copy(msgs, s.messages)
	return Snapshot{
		DeviceID:     s.deviceID,
		Identity:     s.identity,
		UsesCount:    s.usesCount,
		MaxFreeUses:  s.maxFreeUses,
		Phase:        s.phase,
		Messages:     msgs,
		TurnInFlight: s.activeTurn != nil,
	}
}

// appendLocked appends a transcript message. Callers must hold s.mu.
func (s *Session) appendLocked(role domain.Role, content, turnID string) {
	s.messages = append(s.messages, domain.Message{
		ID:      uuid.NewString(),
		Role:    role,
		Content: content,
		TurnID:  turnID,
	})
}
