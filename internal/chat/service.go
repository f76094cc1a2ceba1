package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cbag-ai/cbag-web/internal/agent"
	"github.com/cbag-ai/cbag-web/internal/domain"
	"github.com/cbag-ai/cbag-web/internal/store"
)

// Service coordinates sessions, the trial store, the agent client and the
// transcript log. It is the single entry point handlers use; sessions never
// leak out of this package.
type Service struct {
	repo        store.Repository
	client      agent.Client
	transcript  *agent.TranscriptLogger
	maxFreeUses int
	logger      *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session

	subMu       sync.Mutex
	subscribers map[string]map[chan View]struct{}
}

// NewService creates the chat service.
func NewService(repo store.Repository, client agent.Client, transcript *agent.TranscriptLogger, maxFreeUses int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		client:      client,
		transcript:  transcript,
		maxFreeUses: maxFreeUses,
		logger:      logger,
		sessions:    make(map[string]*Session),
		subscribers: make(map[string]map[chan View]struct{}),
	}
}

// session returns the in-memory session for a device, loading the persisted
// projection on first sight. Transcripts never survive a restart; the
// identity and trial counter do. A failed or corrupt load degrades to the
// anonymous zero-use defaults — storage trouble must not block the session.
func (s *Service) session(ctx context.Context, deviceID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[deviceID]; ok {
		return sess
	}

	identity, uses := domain.Anonymous(), 0
	profile, err := s.repo.LoadProfile(ctx, deviceID)
	if err != nil {
		s.logger.Warn("failed to load session profile, starting fresh", "device_id", deviceID, "error", err)
	} else if profile != nil {
		identity, uses = profile.Identity, profile.UsesCount
	}

	sess := newSession(deviceID, identity, uses, s.maxFreeUses)
	s.sessions[deviceID] = sess
	return sess
}

// Submit runs one full chat turn: gate check, delivery, settlement,
// persistence. It blocks until the turn settles. A delivery failure is not
// an error to the caller — it settles the turn with the connection apology
// in the transcript. Only guard rejections (empty input, busy, locked,
// trial exhausted) return an error.
func (s *Service) Submit(ctx context.Context, deviceID, text string) (View, error) {
	sess := s.session(ctx, deviceID)

	turn, err := sess.beginTurn(text)
	if err != nil {
		view := NewView(sess.snapshot())
		if errors.Is(err, ErrTrialExhausted) {
			// The deny transitioned the session to Locked; push the change.
			s.broadcast(deviceID, view)
		}
		return view, err
	}

	snap := sess.snapshot()
	s.transcript.Log(agent.TranscriptEvent{
		DeviceID: deviceID,
		TurnID:   turn.ID,
		Role:     string(domain.RoleUser),
		Content:  turn.InputText,
	})
	s.broadcast(deviceID, NewView(snap))

	reply, err := s.client.Deliver(ctx, turn.InputText, agent.SessionIDFor(snap.Identity))
	status := domain.TurnSucceeded
	if err != nil {
		s.logger.Warn("agent delivery failed", "device_id", deviceID, "turn_id", turn.ID, "error", err)
		status = domain.TurnFailed
		reply = connectionErrorText
	}

	res := sess.settleTurn(turn.ID, status, reply)
	if res.applied {
		s.transcript.Log(agent.TranscriptEvent{
			DeviceID: deviceID,
			TurnID:   turn.ID,
			Role:     string(domain.RoleAgent),
			Content:  reply,
			Status:   string(status),
		})
		if res.charged {
			s.persist(ctx, deviceID, res.proj)
		}
	}

	view := NewView(sess.snapshot())
	s.broadcast(deviceID, view)
	return view, nil
}

// Login switches the device to a registered identity and persists it.
func (s *Service) Login(ctx context.Context, deviceID, email, displayName string) View {
	sess := s.session(ctx, deviceID)
	proj := sess.login(email, displayName)
	s.persist(ctx, deviceID, proj)

	view := NewView(sess.snapshot())
	s.broadcast(deviceID, view)
	return view
}

// Logout reverts the device to the anonymous identity. The trial counter is
// kept and persisted, so logging out never refreshes the free uses.
func (s *Service) Logout(ctx context.Context, deviceID string) View {
	sess := s.session(ctx, deviceID)
	proj := sess.logout()
	s.persist(ctx, deviceID, proj)

	view := NewView(sess.snapshot())
	s.broadcast(deviceID, view)
	return view
}

// ViewFor returns the current rendered view for a device.
func (s *Service) ViewFor(ctx context.Context, deviceID string) View {
	return NewView(s.session(ctx, deviceID).snapshot())
}

// persist writes the projection best-effort. The in-memory session remains
// authoritative for the rest of the process if the write fails.
func (s *Service) persist(ctx context.Context, deviceID string, proj projection) {
	err := s.repo.SaveProfile(ctx, &domain.Profile{
		DeviceID:  deviceID,
		Identity:  proj.identity,
		UsesCount: proj.usesCount,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		s.logger.Warn("failed to persist session profile", "device_id", deviceID, "error", err)
	}
}

// Subscribe registers for view updates for a device. The returned cancel
// func must be called when the consumer goes away.
func (s *Service) Subscribe(deviceID string) (<-chan View, func()) {
	ch := make(chan View, 8)

	s.subMu.Lock()
	if s.subscribers[deviceID] == nil {
		s.subscribers[deviceID] = make(map[chan View]struct{})
	}
	s.subscribers[deviceID][ch] = struct{}{}
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		if subs, ok := s.subscribers[deviceID]; ok {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(s.subscribers, deviceID)
			}
		}
		s.subMu.Unlock()
	}
	return ch, cancel
}

// broadcast pushes a view to every subscriber for the device. Slow
// consumers lose intermediate frames rather than blocking a turn.
func (s *Service) broadcast(deviceID string, view View) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for ch := range s.subscribers[deviceID] {
		select {
		case ch <- view:
		default:
			s.logger.Debug("dropping view update for slow subscriber", "device_id", deviceID)
		}
	}
}
