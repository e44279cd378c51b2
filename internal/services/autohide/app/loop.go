package app

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"

	apperrors "github.com/louisbranch/autohidehost/internal/platform/errors"
	"github.com/louisbranch/autohidehost/internal/platform/timeouts"
	"github.com/louisbranch/autohidehost/internal/services/autohide/bridge"
	"github.com/louisbranch/autohidehost/internal/services/autohide/commands"
	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/engine"
)

// ErrNoSession answers commands while no game is connected.
var ErrNoSession = apperrors.New(apperrors.CodeCollaboratorUnavailable, "no game session is connected")

// Session is one connected game: the engine driving it, the dispatcher over
// that engine, and the signal stream that ends when the connection does.
type Session struct {
	Engine     *engine.Engine
	Dispatcher *commands.Dispatcher
	Signals    <-chan bridge.Signal
	// OnFirstTick runs once, after the first state frame was applied.
	OnFirstTick func()

	done   chan struct{}
	ticked bool
}

// NewSession prepares a session for Loop.Attach.
func NewSession(eng *engine.Engine, dispatcher *commands.Dispatcher, signals <-chan bridge.Signal) *Session {
	return &Session{Engine: eng, Dispatcher: dispatcher, Signals: signals, done: make(chan struct{})}
}

// Done is closed after the loop detached the session and shut its engine down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

type request struct {
	ctx    context.Context
	caller commands.Caller
	line   string
	reply  chan reply
}

type reply struct {
	lines []string
	err   error
}

// Loop is the single goroutine that owns the engine. Bridge signals and
// operator commands are serialized through it.
type Loop struct {
	sessions chan *Session
	requests chan request
	logf     func(string, ...any)
}

// NewLoop returns an idle loop. Call Run to start it.
func NewLoop(logf func(string, ...any)) *Loop {
	if logf == nil {
		logf = log.Printf
	}
	return &Loop{
		sessions: make(chan *Session),
		requests: make(chan request),
		logf:     logf,
	}
}

// Attach hands a session to the loop. It blocks until the loop accepts it.
func (l *Loop) Attach(ctx context.Context, s *Session) error {
	select {
	case l.sessions <- s:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Execute runs a command line on the loop goroutine and waits for the reply.
func (l *Loop) Execute(ctx context.Context, caller commands.Caller, line string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.CommandReply)
	defer cancel()

	req := request{ctx: ctx, caller: caller, line: line, reply: make(chan reply, 1)}
	select {
	case l.requests <- req:
	case <-ctx.Done():
		return nil, apperrors.Wrap(apperrors.CodeCollaboratorUnavailable, "command loop is busy", ctx.Err())
	}
	select {
	case r := <-req.reply:
		return r.lines, r.err
	case <-ctx.Done():
		return nil, apperrors.Wrap(apperrors.CodeCollaboratorUnavailable, "command reply timed out", ctx.Err())
	}
}

// Run serves sessions and commands until ctx is done.
func (l *Loop) Run(ctx context.Context) {
	var current *Session
	defer func() {
		if current != nil {
			l.detach(current)
		}
	}()

	for {
		var signals <-chan bridge.Signal
		if current != nil {
			signals = current.Signals
		}
		select {
		case <-ctx.Done():
			return
		case s := <-l.sessions:
			if current != nil {
				l.detach(current)
			}
			current = s
		case sig, ok := <-signals:
			if !ok {
				l.detach(current)
				current = nil
				continue
			}
			l.safely("signal", func() { l.handle(current, sig) })
		case req := <-l.requests:
			l.serve(current, req)
		}
	}
}

func (l *Loop) detach(s *Session) {
	l.safely("shutdown", s.Engine.Shutdown)
	close(s.done)
}

func (l *Loop) handle(s *Session, sig bridge.Signal) {
	switch sig.Kind {
	case bridge.SignalTick:
		s.Engine.Tick()
		if !s.ticked {
			s.ticked = true
			if s.OnFirstTick != nil {
				s.OnFirstTick()
			}
		}
	case bridge.SignalEvent:
		switch sig.Event {
		case bridge.EventSaveLoaded:
			s.Engine.OnSaveLoaded()
		case bridge.EventDayStarted:
			s.Engine.OnDayStarted()
		case bridge.EventPeerConnected:
			s.Engine.OnPeerConnected(sig.Peer)
		case bridge.EventPeerDisconnected:
			s.Engine.OnPeerDisconnected(sig.Peer)
		case bridge.EventReturnedToTitle:
			s.Engine.Shutdown()
		default:
			l.logf("bridge: ignoring event %q", sig.Event)
		}
	case bridge.SignalActionFailed:
		l.logf("game rejected %s: %s", sig.Action, sig.Err)
	}
}

func (l *Loop) serve(s *Session, req request) {
	var r reply
	if s == nil {
		r.err = ErrNoSession
		r.lines = []string{ErrNoSession.Error()}
	} else {
		ok := l.safely("command", func() {
			r.lines, r.err = s.Dispatcher.Execute(req.ctx, req.caller, req.line)
		})
		if !ok {
			r.err = apperrors.New(apperrors.CodeUnknown, "command failed unexpectedly")
			r.lines = []string{r.err.Error()}
		}
	}
	req.reply <- r
}

// safely recovers a panic so one bad tick or command never ends the loop.
func (l *Loop) safely(what string, fn func()) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			l.logf("recovered panic in %s: %s\n%s", what, fmt.Sprint(rec), debug.Stack())
			ok = false
		}
	}()
	fn()
	return true
}
