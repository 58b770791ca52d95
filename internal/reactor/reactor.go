// Package reactor serializes all mutation of one session.Connection onto
// a single goroutine, the Go analogue of the project's single-threaded
// cooperative event loop: every packet arriving from the upstream
// server or from an attached client is turned into a job and run
// in-order on that one goroutine, so internal/world, internal/walk and
// internal/session never need their own locking.
package reactor

import "github.com/sumpurns/uoproxy/internal/session"

// Logger is the minimal logging contract this package needs.
type Logger interface {
	Logf(verbosity int, format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Logf(int, string, ...any) {}

// job is one unit of work run on the reactor goroutine. It receives the
// Connection it is serialized against.
type job func(*session.Connection)

// Reactor owns one session.Connection and a queue of jobs mutating it.
// Any goroutine may enqueue a job; only the Reactor's own goroutine ever
// touches the Connection.
type Reactor struct {
	log  Logger
	conn *session.Connection

	jobs chan job
	done chan struct{}
}

// New returns a Reactor for conn. Run must be called to start draining
// jobs.
func New(conn *session.Connection, log Logger) *Reactor {
	if log == nil {
		log = nopLogger{}
	}
	return &Reactor{
		log:  log,
		conn: conn,
		jobs: make(chan job, 64),
		done: make(chan struct{}),
	}
}

// Run drains the job queue until Stop closes it. It blocks the calling
// goroutine; callers run it in its own goroutine.
func (r *Reactor) Run() {
	defer close(r.done)
	for fn := range r.jobs {
		fn(r.conn)
	}
}

// Stop closes the job queue, letting Run drain what's already queued
// and then return. It does not block; wait on Done if that's needed.
func (r *Reactor) Stop() {
	close(r.jobs)
}

// Done returns a channel closed once Run has returned.
func (r *Reactor) Done() <-chan struct{} { return r.done }

// Enqueue schedules fn to run on the reactor goroutine against the
// owned Connection. It blocks if the queue is full, applying backpressure
// to whichever goroutine is feeding packets in. Enqueue must not be
// called after Stop.
func (r *Reactor) Enqueue(fn func(*session.Connection)) {
	r.jobs <- fn
}

// Conn returns the Connection this reactor owns. It must only be
// called from inside a job (i.e. from code running on the reactor
// goroutine) or before Run starts; calling it concurrently with Run
// from any other goroutine races.
func (r *Reactor) Conn() *session.Connection { return r.conn }
