// Package actor is the mailbox runtime a DomainParticipant's periodic
// housekeeping runs on: a single goroutine serializes announce, lease-sweep,
// and deadline-sweep ticks behind a channel, so they never race with each
// other, spec.md §4 "endpoint behavior runs on its own strand".
package actor

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rtpsgo/rtpsgo/internal/telemetry"
)

// job is one unit of mailbox work: a function run on the actor's goroutine,
// with an optional reply channel for Ask-style calls.
type job struct {
	fn    func()
	reply chan struct{}
}

// Mailbox serializes arbitrary work for one logical entity onto a single
// goroutine, grounded on the teacher's decision-sweeper ticker-plus-
// shutdown-channel loop (internal/rpc/server_decision_sweeper.go),
// generalized from "one sweep function" to "arbitrary queued jobs plus
// named periodic tasks".
type Mailbox struct {
	log      *telemetry.Logger
	inbox    chan job
	shutdown chan struct{}
	done     chan struct{}
}

// NewMailbox creates a mailbox and starts its run loop. name is used as the
// log prefix so a busy mailbox's messages are attributable.
func NewMailbox(name string) *Mailbox {
	m := &Mailbox{
		log:      telemetry.NewLogger("actor." + name),
		inbox:    make(chan job, 256),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *Mailbox) run() {
	defer close(m.done)
	for {
		select {
		case <-m.shutdown:
			return
		case j := <-m.inbox:
			j.fn()
			if j.reply != nil {
				close(j.reply)
			}
		}
	}
}

// Tell enqueues fn to run on the mailbox's goroutine and returns immediately,
// without waiting for it to run.
func (m *Mailbox) Tell(fn func()) {
	select {
	case m.inbox <- job{fn: fn}:
	case <-m.shutdown:
	}
}

// Ask enqueues fn and blocks until it has run, or ctx is done first.
func (m *Mailbox) Ask(ctx context.Context, fn func()) error {
	reply := make(chan struct{})
	select {
	case m.inbox <- job{fn: fn, reply: reply}:
	case <-m.shutdown:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop shuts the mailbox down, draining no further jobs. It blocks until the
// run loop has exited.
func (m *Mailbox) Stop() {
	close(m.shutdown)
	<-m.done
}

// PeriodicTask runs fn every interval on the mailbox's goroutine (so it sees
// a consistent view of entity state) until the mailbox stops or ctx is
// canceled. Grounded on the teacher's startDecisionSweeper ticker loop,
// generalized to run arbitrary named tasks (participant announce, lease
// sweep, deadline check) rather than one hardcoded sweep.
func (m *Mailbox) PeriodicTask(ctx context.Context, name string, interval time.Duration, fn func()) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.shutdown:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.Ask(ctx, fn); err != nil {
					m.log.Printf("periodic task %q stopped: %v", name, err)
					return
				}
			}
		}
	}()
}

// RunConcurrent runs each of fns to completion in parallel, returning the
// first non-nil error (if any), canceling ctx for the others. Used by
// DomainParticipant.dataExchangeSweep to fan out delivery to a writer's
// matched readers, each backed by its own StatefulReader, instead of
// serializing them one at a time.
func RunConcurrent(ctx context.Context, fns ...func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, fn := range fns {
		fn := fn
		g.Go(func() error { return fn(gctx) })
	}
	return g.Wait()
}
