package script

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/clocksmith/benzo/internal/graph"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultPlaySpeed is the interval between playback ticks.
	DefaultPlaySpeed = 500 * time.Millisecond
	// MessageHistory is how many step messages a session keeps.
	MessageHistory = 3
)

// Observer is told about step outcomes. metrics.Collector implements it.
type Observer interface {
	StepExecuted(command string)
	StepSkipped(reason string)
	PlaybackStarted()
}

type nopObserver struct{}

func (nopObserver) StepExecuted(string) {}
func (nopObserver) StepSkipped(string)  {}
func (nopObserver) PlaybackStarted()    {}

// SkipReason classifies a step error for reporting.
func SkipReason(err error) string {
	switch {
	case errors.Is(err, ErrUnknownCommand):
		return "unknown_command"
	case errors.Is(err, ErrMissingCommand):
		return "missing_command"
	case errors.Is(err, ErrInvalidParams):
		return "invalid_params"
	case errors.Is(err, graph.ErrNoPath):
		return "no_path"
	case errors.Is(err, graph.ErrNodeNotFound):
		return "missing_reference"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "error"
}

// StepReport describes one executed step.
type StepReport struct {
	Index   int     `json:"index"`
	Key     string  `json:"key"`
	Command Command `json:"command,omitempty"`
	Message string  `json:"message,omitempty"`
	// Err is set when the step was skipped.
	Err error `json:"-"`
}

// Skipped reports whether the step failed and left the graph untouched.
func (r *StepReport) Skipped() bool {
	return r.Err != nil
}

// State is a snapshot of a session.
type State struct {
	SessionID string   `json:"sessionId"`
	Script    string   `json:"script,omitempty"`
	Index     int      `json:"index"`
	Total     int      `json:"total"`
	Playing   bool     `json:"playing"`
	SpeedMs   int64    `json:"speedMs"`
	Messages  []string `json:"messages"`
}

// Session replays scripts against one store. Step execution is serialized:
// a step, including any advisor call it makes, finishes before the next one
// starts, whether it was triggered by hand or by the playback ticker.
// Safe for concurrent use.
type Session struct {
	id      string
	store   *graph.Store
	library Library
	logger  *zap.Logger
	obs     Observer

	mu       sync.Mutex
	script   *Script
	index    int
	messages []string
	speed    time.Duration

	playing    bool
	playGen    uint64
	playParent context.Context
	cancelPlay context.CancelFunc
	playDone   chan struct{}

	onStep func(StepReport)
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLibrary sets the scripts LoadScript can find. Default: Builtin().
func WithLibrary(l Library) SessionOption {
	return func(s *Session) { s.library = l }
}

// WithSessionLogger sets the logger.
func WithSessionLogger(l *zap.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithObserver reports step outcomes to o.
func WithObserver(o Observer) SessionOption {
	return func(s *Session) {
		if o != nil {
			s.obs = o
		}
	}
}

// WithSpeed sets the playback interval.
func WithSpeed(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.speed = d
		}
	}
}

// WithStepHook calls fn after every executed step, with the session lock held.
// fn must not call back into the session.
func WithStepHook(fn func(StepReport)) SessionOption {
	return func(s *Session) { s.onStep = fn }
}

// NewSession returns an idle session driving store. A nil store gets a fresh one.
func NewSession(store *graph.Store, opts ...SessionOption) *Session {
	if store == nil {
		store = graph.NewStore()
	}
	s := &Session{
		id:     uuid.NewString(),
		store:  store,
		logger: zap.NewNop(),
		obs:    nopObserver{},
		index:  -1,
		speed:  DefaultPlaySpeed,
	}
	for _, o := range opts {
		o(s)
	}
	if s.library == nil {
		s.library = Builtin()
	}
	s.logger = s.logger.With(zap.String("session", s.id))
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Store returns the driven store.
func (s *Session) Store() *graph.Store {
	return s.store
}

// Library returns the scripts known to the session.
func (s *Session) Library() Library {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.library
}

// SetLibrary replaces the known scripts. The loaded script is kept.
func (s *Session) SetLibrary(l Library) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.library = l
}

// LoadScript loads the named script and executes its first step. An unknown
// name leaves the session idle and returns ErrUnknownScript.
func (s *Session) LoadScript(ctx context.Context, name string) (*StepReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.library[name]
	if !ok {
		s.stopLocked()
		s.script = nil
		s.index = -1
		return nil, fmt.Errorf("load %q: %w", name, ErrUnknownScript)
	}
	return s.loadLocked(ctx, sc), nil
}

// LoadScriptValue loads sc directly and executes its first step.
func (s *Session) LoadScriptValue(ctx context.Context, sc *Script) *StepReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx, sc)
}

func (s *Session) loadLocked(ctx context.Context, sc *Script) *StepReport {
	s.stopLocked()
	s.script = sc
	s.index = -1
	s.store.Reset()
	s.logger.Info("script loaded", zap.String("script", sc.Name), zap.Int("steps", sc.Len()))
	return s.advanceLocked(ctx)
}

// StepForward stops playback and executes the next step. At the last step it
// only stops playback and returns a nil report.
func (s *Session) StepForward(ctx context.Context) (*StepReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.script == nil {
		return nil, ErrNoScript
	}
	s.stopLocked()
	return s.advanceLocked(ctx), nil
}

// StepBackward stops playback and moves back one step. Going back does not
// undo: the step at the new index is executed again. Stepping back from the
// first step resets the store and clears the message history.
func (s *Session) StepBackward(ctx context.Context) (*StepReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.script == nil {
		return nil, ErrNoScript
	}
	s.stopLocked()
	switch {
	case s.index > 0:
		s.index--
		return s.executeLocked(ctx), nil
	case s.index == 0:
		s.index = -1
		s.resetDisplayLocked()
	}
	return nil, nil
}

func (s *Session) resetDisplayLocked() {
	s.store.Reset()
	s.messages = nil
}

// advanceLocked executes the step after the current one, if any.
func (s *Session) advanceLocked(ctx context.Context) *StepReport {
	if s.script == nil || s.index >= s.script.Len()-1 {
		return nil
	}
	s.index++
	return s.executeLocked(ctx)
}

func (s *Session) executeLocked(ctx context.Context) *StepReport {
	st := s.script.Steps[s.index]
	if st.Message != "" {
		s.messages = append(s.messages, st.Message)
		if len(s.messages) > MessageHistory {
			s.messages = s.messages[len(s.messages)-MessageHistory:]
		}
	}

	rep := &StepReport{Index: s.index, Key: st.Key, Command: st.Command, Message: st.Message}
	rep.Err = Apply(ctx, s.store, st)
	if rep.Err != nil {
		reason := SkipReason(rep.Err)
		level := s.logger.Info
		if reason == "unknown_command" || reason == "missing_command" || reason == "invalid_params" {
			level = s.logger.Warn
		}
		level("step skipped",
			zap.Int("index", s.index), zap.String("key", st.Key),
			zap.String("command", string(st.Command)), zap.String("reason", reason), zap.Error(rep.Err))
		s.obs.StepSkipped(reason)
	} else {
		s.logger.Debug("step executed",
			zap.Int("index", s.index), zap.String("key", st.Key), zap.String("command", string(st.Command)))
		s.obs.StepExecuted(string(st.Command))
	}
	if s.onStep != nil {
		s.onStep(*rep)
	}
	return rep
}

// Play starts timed playback. Playing past the end restarts from a full
// reset. ctx bounds the whole playback; steps run with a context that is
// cancelled when playback stops.
func (s *Session) Play(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.script == nil {
		return ErrNoScript
	}
	if s.playing {
		return nil
	}
	if s.index >= s.script.Len()-1 {
		s.index = -1
		s.resetDisplayLocked()
	}
	s.startLocked(ctx)
	s.obs.PlaybackStarted()
	s.logger.Info("playback started", zap.Duration("speed", s.speed))
	return nil
}

// TogglePlayPause pauses a running playback or starts a stopped one.
func (s *Session) TogglePlayPause(ctx context.Context) error {
	s.mu.Lock()
	playing := s.playing
	s.mu.Unlock()
	if playing {
		s.Stop()
		return nil
	}
	return s.Play(ctx)
}

// Stop halts playback and waits for the ticker goroutine to exit. Idempotent.
func (s *Session) Stop() {
	s.mu.Lock()
	done := s.playDone
	s.stopLocked()
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Wait blocks until the current playback ends on its own or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.playDone
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetSpeed changes the playback interval. A running playback continues at
// the new interval from the same step.
func (s *Session) SetSpeed(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speed = d
	if s.playing {
		parent := s.playParent
		s.stopLocked()
		s.startLocked(parent)
	}
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		SessionID: s.id,
		Index:     s.index,
		Playing:   s.playing,
		SpeedMs:   s.speed.Milliseconds(),
		Messages:  append([]string{}, s.messages...),
	}
	if s.script != nil {
		st.Script = s.script.Name
		st.Total = s.script.Len()
	}
	return st
}

func (s *Session) startLocked(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	s.playing = true
	s.playGen++
	s.playParent = parent
	s.cancelPlay = cancel
	done := make(chan struct{})
	s.playDone = done
	go s.loop(ctx, s.playGen, s.speed, done)
}

// stopLocked marks playback stopped and cancels its context. It does not
// wait for the ticker goroutine, which may be blocked on s.mu.
func (s *Session) stopLocked() {
	if !s.playing {
		return
	}
	s.playing = false
	s.cancelPlay()
	s.cancelPlay = nil
	s.logger.Debug("playback stopped", zap.Int("index", s.index))
}

func (s *Session) loop(ctx context.Context, gen uint64, speed time.Duration, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(speed)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			if s.playGen == gen {
				s.stopLocked()
			}
			s.mu.Unlock()
			return
		case <-t.C:
			if !s.tick(ctx, gen) {
				return
			}
		}
	}
}

// tick executes one step of the playback identified by gen. It reports
// whether playback continues.
func (s *Session) tick(ctx context.Context, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing || s.playGen != gen {
		return false
	}
	s.advanceLocked(ctx)
	if s.index >= s.script.Len()-1 {
		s.stopLocked()
		s.logger.Info("playback reached the last step")
		return false
	}
	return true
}
