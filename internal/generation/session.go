// Package generation orchestrates one generation attempt at a time: backend
// call, history insert, and the visible state transitions between them.
package generation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/manash/visionary/internal/history"
	"github.com/manash/visionary/internal/provider"
	"github.com/manash/visionary/pkg/models"
)

// ErrGenerationInFlight rejects a submit while a prior one is still pending.
var ErrGenerationInFlight = errors.New("a generation is already in flight")

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhasePending   Phase = "pending"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// State is the session's visible condition. Image is set only on succeeded,
// Reason only on failed. SaveWarning is set when the generation succeeded
// but the history write did not stick.
type State struct {
	Phase       Phase
	Prompt      string
	Image       *models.GeneratedImage
	Reason      string
	SaveWarning string
}

type Session struct {
	provider provider.Provider
	history  *history.Store

	mu       sync.Mutex
	state    State
	inFlight bool

	// injectable for tests
	now   func() time.Time
	newID func() string
}

func NewSession(p provider.Provider, h *history.Store) *Session {
	return &Session{
		provider: p,
		history:  h,
		state:    State{Phase: PhaseIdle},
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) History() *history.Store {
	return s.history
}

// Submit runs one generation attempt and blocks until it resolves. Only one
// attempt may be in flight; a re-entrant call returns ErrGenerationInFlight
// without reaching the backend or the history. The new history entry is
// written before the succeeded state becomes observable.
func (s *Session) Submit(ctx context.Context, prompt string) (State, error) {
	s.mu.Lock()
	if s.inFlight {
		st := s.state
		s.mu.Unlock()
		return st, ErrGenerationInFlight
	}
	s.inFlight = true
	s.state = State{Phase: PhasePending, Prompt: prompt}
	s.mu.Unlock()

	resp, err := s.provider.Generate(ctx, models.NewRequest(prompt))
	if err != nil {
		return s.resolve(State{Phase: PhaseFailed, Prompt: prompt, Reason: err.Error()}), err
	}

	img := models.GeneratedImage{
		ID:        s.newID(),
		URL:       resp.Images[0].URL,
		Prompt:    prompt,
		CreatedAt: s.now(),
	}

	next := State{Phase: PhaseSucceeded, Prompt: prompt, Image: &img}
	if _, err := s.history.Add(ctx, img); err != nil {
		// Generation itself worked; losing the durable write must not fail
		// the attempt. Surface it so the render surface can warn.
		next.SaveWarning = err.Error()
	}

	return s.resolve(next), nil
}

func (s *Session) resolve(next State) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = next
	s.inFlight = false
	return next
}
