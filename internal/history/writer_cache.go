package history

import (
	"time"

	"github.com/rtpsgo/rtpsgo/internal/errors"
	"github.com/rtpsgo/rtpsgo/internal/qos"
	"github.com/rtpsgo/rtpsgo/internal/rtps"
)

// WriterCache is the ordered store of a DataWriter's cache changes, keyed by
// strictly increasing sequence number (spec.md §8 property 1) and bucketed
// by instance for KeepLast eviction.
type WriterCache struct {
	history    qos.HistoryQos
	limits     qos.ResourceLimitsQos
	changes    []*Change
	nextSeq    rtps.SequenceNumber
	byInstance map[rtps.InstanceHandle][]*Change
}

// NewWriterCache creates an empty cache governed by the given History and
// ResourceLimits policies.
func NewWriterCache(h qos.HistoryQos, limits qos.ResourceLimitsQos) *WriterCache {
	return &WriterCache{
		history:    h,
		limits:     limits,
		nextSeq:    1,
		byInstance: make(map[rtps.InstanceHandle][]*Change),
	}
}

// AddChange assigns the next sequence number and inserts change, evicting per
// the History policy. Returns ErrOutOfResources if the cache is KeepAll and
// resource limits are exceeded (spec.md §7: the writer's own write operation
// fails only in that case).
func (c *WriterCache) AddChange(kind ChangeKind, instance rtps.InstanceHandle, data []byte, now time.Time) (*Change, error) {
	if c.history.Kind == qos.KeepLast {
		existing := c.byInstance[instance]
		aliveCount := 0
		for _, ch := range existing {
			if ch.Kind == Alive {
				aliveCount++
			}
		}
		for aliveCount >= c.history.Depth && len(existing) > 0 {
			oldest := existing[0]
			c.removeChangeLocked(oldest)
			existing = c.byInstance[instance]
			aliveCount--
		}
	} else {
		if c.limits.MaxSamples != qos.Unlimited && len(c.changes) >= c.limits.MaxSamples {
			return nil, errors.ErrOutOfResources
		}
		if c.limits.MaxSamplesPerInstance != qos.Unlimited && len(c.byInstance[instance]) >= c.limits.MaxSamplesPerInstance {
			return nil, errors.ErrOutOfResources
		}
	}

	ch := &Change{
		Kind:            kind,
		InstanceHandle:  instance,
		SequenceNumber:  c.nextSeq,
		SourceTimestamp: now,
		Data:            data,
	}
	c.nextSeq++
	c.changes = append(c.changes, ch)
	c.byInstance[instance] = append(c.byInstance[instance], ch)
	return ch, nil
}

// Changes returns every change currently held, oldest first.
func (c *WriterCache) Changes() []*Change { return c.changes }

// RemoveChange deletes every change matching predicate (grounded on
// WriterHistoryCache::remove_change in the original implementation).
func (c *WriterCache) RemoveChange(predicate func(*Change) bool) {
	var kept []*Change
	for _, ch := range c.changes {
		if predicate(ch) {
			c.removeFromInstanceLocked(ch)
			continue
		}
		kept = append(kept, ch)
	}
	c.changes = kept
}

func (c *WriterCache) removeChangeLocked(target *Change) {
	var kept []*Change
	for _, ch := range c.changes {
		if ch == target {
			continue
		}
		kept = append(kept, ch)
	}
	c.changes = kept
	c.removeFromInstanceLocked(target)
}

func (c *WriterCache) removeFromInstanceLocked(target *Change) {
	bucket := c.byInstance[target.InstanceHandle]
	var kept []*Change
	for _, ch := range bucket {
		if ch != target {
			kept = append(kept, ch)
		}
	}
	c.byInstance[target.InstanceHandle] = kept
}

// SeqNumMin returns the lowest sequence number held, if any.
func (c *WriterCache) SeqNumMin() (rtps.SequenceNumber, bool) {
	if len(c.changes) == 0 {
		return 0, false
	}
	min := c.changes[0].SequenceNumber
	for _, ch := range c.changes[1:] {
		if ch.SequenceNumber < min {
			min = ch.SequenceNumber
		}
	}
	return min, true
}

// SeqNumMax returns the highest sequence number held, if any.
func (c *WriterCache) SeqNumMax() (rtps.SequenceNumber, bool) {
	if len(c.changes) == 0 {
		return 0, false
	}
	max := c.changes[0].SequenceNumber
	for _, ch := range c.changes[1:] {
		if ch.SequenceNumber > max {
			max = ch.SequenceNumber
		}
	}
	return max, true
}

// InstanceChanges returns the changes currently held for instance, oldest
// first (used by tests asserting KeepLast eviction, spec.md §8 scenario 4).
func (c *WriterCache) InstanceChanges(instance rtps.InstanceHandle) []*Change {
	return c.byInstance[instance]
}
