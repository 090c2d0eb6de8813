// Package status implements DDS StatusCondition sticky flags and WaitSet
// blocking waits, spec.md §4.7. A StatusCondition ORs together a sticky flag
// per status kind; a WaitSet blocks until any attached condition's trigger
// value becomes true. StatusCondition and WaitSet each guard their own state
// with a mutex; the status report structs in reports.go carry no locking of
// their own. The design mirrors the teacher's
// `internal/eventbus.Bus` dispatcher (mutex-guarded registration, resilient
// fan-out) generalized from "event → handler" to "status change → condition
// flag + wait-set wake".
package status

import (
	"context"
	"sync"
	"time"

	rtpserrors "github.com/rtpsgo/rtpsgo/internal/errors"
)

// ErrTimeout is returned by WaitSet.Wait when timeout elapses with no
// attached condition triggered, spec.md §4.7.
var ErrTimeout = rtpserrors.ErrTimeout

// Kind enumerates the DDS status kinds an entity can report, spec.md §4.7.
type Kind int

const (
	DataAvailable Kind = iota
	DataOnReaders
	SubscriptionMatched
	PublicationMatched
	RequestedDeadlineMissed
	OfferedDeadlineMissed
	RequestedIncompatibleQos
	OfferedIncompatibleQos
	SampleLost
	SampleRejected
	LivelinessChanged
	LivelinessLost
	InconsistentTopic

	numKinds
)

// CountStatus is the shape shared by every "total_count / total_count_change
// (+ last_*)" status struct in spec.md §4.7. Entity-specific status types
// embed this and add their own last_* fields.
type CountStatus struct {
	TotalCount       int32
	TotalCountChange int32
}

// Condition is a single status flag attached to a WaitSet.
type Condition struct {
	kind  Kind
	sc    *StatusCondition
}

// TriggerValue reports whether this condition currently contributes to its
// StatusCondition's trigger (spec.md §4.7: "ORs together sticky flags").
func (c *Condition) TriggerValue() bool {
	c.sc.mu.Lock()
	defer c.sc.mu.Unlock()
	return c.sc.enabled[c.kind] && c.sc.flags[c.kind]
}

// StatusCondition is the sticky flag set owned by one DDS entity.
type StatusCondition struct {
	mu      sync.Mutex
	flags   [numKinds]bool
	enabled [numKinds]bool
	waiters []chan struct{}
}

// NewStatusCondition creates a condition with every status kind enabled,
// matching the DDS default enabled_statuses mask.
func NewStatusCondition() *StatusCondition {
	sc := &StatusCondition{}
	for k := range sc.enabled {
		sc.enabled[k] = true
	}
	return sc
}

// SetEnabledStatuses restricts which kinds contribute to the trigger value,
// per set_enabled_statuses (spec.md §4.7).
func (sc *StatusCondition) SetEnabledStatuses(kinds ...Kind) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for k := range sc.enabled {
		sc.enabled[k] = false
	}
	for _, k := range kinds {
		sc.enabled[k] = true
	}
}

// Trigger sets kind's sticky flag and wakes any WaitSet blocked on it. Called
// by the owning entity's behavior state machine on every status transition
// (spec.md §4.7: "conditions evaluate on every status transition").
func (sc *StatusCondition) Trigger(kind Kind) {
	sc.mu.Lock()
	sc.flags[kind] = true
	waiters := sc.waiters
	sc.waiters = nil
	sc.mu.Unlock()
	for _, w := range waiters {
		close(w)
	}
}

// Clear resets kind's sticky flag, called by get_*_status per spec.md §4.7:
// "reading a status... clears the corresponding flag".
func (sc *StatusCondition) Clear(kind Kind) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.flags[kind] = false
}

// TriggerValue reports whether any enabled, set flag currently holds.
func (sc *StatusCondition) TriggerValue() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for k := range sc.flags {
		if sc.enabled[k] && sc.flags[k] {
			return true
		}
	}
	return false
}

// Condition returns the Condition handle for kind, attachable to a WaitSet.
func (sc *StatusCondition) Condition(kind Kind) *Condition {
	return &Condition{kind: kind, sc: sc}
}

func (sc *StatusCondition) subscribe() chan struct{} {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	ch := make(chan struct{})
	sc.waiters = append(sc.waiters, ch)
	return ch
}

// WaitSet attaches Conditions and blocks until one of them triggers, spec.md
// §4.7.
type WaitSet struct {
	mu         sync.Mutex
	conditions []*Condition
}

// NewWaitSet creates an empty wait set.
func NewWaitSet() *WaitSet {
	return &WaitSet{}
}

// Attach adds c to the set. A condition already true at attach time fires
// immediately on the next Wait call, per spec.md §4.7.
func (ws *WaitSet) Attach(c *Condition) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.conditions = append(ws.conditions, c)
}

// Detach removes c from the set.
func (ws *WaitSet) Detach(c *Condition) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for i, existing := range ws.conditions {
		if existing == c {
			ws.conditions = append(ws.conditions[:i], ws.conditions[i+1:]...)
			return
		}
	}
}

// Wait blocks until some attached condition's trigger value is true, or
// timeout elapses. Returns the triggered conditions, or ErrTimeout.
func (ws *WaitSet) Wait(ctx context.Context, timeout time.Duration) ([]*Condition, error) {
	ws.mu.Lock()
	conditions := append([]*Condition(nil), ws.conditions...)
	ws.mu.Unlock()

	if triggered := triggeredConditions(conditions); len(triggered) > 0 {
		return triggered, nil
	}

	distinctConditions := make(map[*StatusCondition]bool)
	for _, c := range conditions {
		distinctConditions[c.sc] = true
	}

	var timer *time.Timer
	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer = time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	for {
		woken := make(chan struct{})
		var once sync.Once
		for sc := range distinctConditions {
			w := sc.subscribe()
			go func() {
				<-w
				once.Do(func() { close(woken) })
			}()
		}
		select {
		case <-woken:
			if triggered := triggeredConditions(conditions); len(triggered) > 0 {
				return triggered, nil
			}
		case <-timeoutCh:
			return nil, ErrTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func triggeredConditions(conditions []*Condition) []*Condition {
	var out []*Condition
	for _, c := range conditions {
		if c.TriggerValue() {
			out = append(out, c)
		}
	}
	return out
}
