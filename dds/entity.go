package dds

import (
	"sync"

	"github.com/google/uuid"

	rtpserrors "github.com/rtpsgo/rtpsgo/internal/errors"
	"github.com/rtpsgo/rtpsgo/internal/qos"
	"github.com/rtpsgo/rtpsgo/internal/rtps"
	"github.com/rtpsgo/rtpsgo/internal/status"
)

// entity is the state every DDS entity (participant, publisher, subscriber,
// topic, writer, reader) shares: enable/disable lifecycle and a
// StatusCondition, spec.md §3 "Entities are created disabled... Enabling
// publishes it via SEDP and begins periodic tasks."
type entity struct {
	mu        sync.Mutex
	enabled   bool
	deleted   bool
	handle    rtps.InstanceHandle
	condition *status.StatusCondition
}

func newEntity() entity {
	return entity{handle: rtps.InstanceHandle(uuid.New()), condition: status.NewStatusCondition()}
}

// Enabled reports whether the entity has been enabled and not since deleted.
func (e *entity) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled && !e.deleted
}

// InstanceHandle returns the entity's own instance handle.
func (e *entity) InstanceHandle() rtps.InstanceHandle {
	return e.handle
}

// StatusCondition returns the entity's sticky status flags.
func (e *entity) StatusCondition() *status.StatusCondition {
	return e.condition
}

// markEnabled flips enabled to true, returning ErrAlreadyDeleted if the
// entity was deleted first and nil (idempotent) if already enabled.
func (e *entity) markEnabled() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return rtpserrors.ErrAlreadyDeleted
	}
	e.enabled = true
	return nil
}

func (e *entity) markDeleted() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deleted = true
}

// setQosChecked applies the common SetQos rule shared by every entity kind:
// once enabled, a change to an immutable policy is rejected outright and
// leaves current untouched, per spec.md §4.6.
func setQosChecked(e *entity, current *qos.Qos, next qos.Qos) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return rtpserrors.ErrAlreadyDeleted
	}
	if e.enabled {
		if bad := qos.ChangedImmutable(*current, next); len(bad) > 0 {
			return rtpserrors.ErrImmutablePolicy
		}
	}
	*current = next
	return nil
}
