package history

import (
	"sort"
	"time"

	"github.com/rtpsgo/rtpsgo/internal/errors"
	"github.com/rtpsgo/rtpsgo/internal/qos"
	"github.com/rtpsgo/rtpsgo/internal/rtps"
)

// ReaderCache is the ordered, resource-bounded store of samples held by a
// DataReader, plus per-instance view/instance-state tracking (spec.md §4.3).
type ReaderCache struct {
	history     qos.HistoryQos
	limits      qos.ResourceLimitsQos
	destOrder   qos.DestinationOrderKind
	minSep      time.Duration
	changes     []*Change
	instances   map[rtps.InstanceHandle]*instanceRecord
	pubHandles  map[rtps.InstanceHandle]rtps.InstanceHandle // sample instance -> publication handle
}

// NewReaderCache creates an empty cache governed by the given policies.
func NewReaderCache(h qos.HistoryQos, limits qos.ResourceLimitsQos, destOrder qos.DestinationOrderKind, minSeparation time.Duration) *ReaderCache {
	return &ReaderCache{
		history:    h,
		limits:     limits,
		destOrder:  destOrder,
		minSep:     minSeparation,
		instances:  make(map[rtps.InstanceHandle]*instanceRecord),
		pubHandles: make(map[rtps.InstanceHandle]rtps.InstanceHandle),
	}
}

func (c *ReaderCache) aliveSampleCount() int {
	n := 0
	for _, ch := range c.changes {
		if ch.Kind == Alive {
			n++
		}
	}
	return n
}

func (c *ReaderCache) instanceOf(handle rtps.InstanceHandle) *instanceRecord {
	rec, ok := c.instances[handle]
	if !ok {
		rec = &instanceRecord{viewState: ViewNew, instanceState: InstanceAlive}
		c.instances[handle] = rec
	}
	return rec
}

// AddChange inserts a reader-side change, applying the time-based filter,
// KeepLast eviction / resource-limit rejection, and destination-order
// resorting described in spec.md §4.3. If the sample was filtered, returns a
// Change of kind AliveFiltered that is not stored, with NotRejected and a nil
// error (no notification should fire).
func (c *ReaderCache) AddChange(kind ChangeKind, instance rtps.InstanceHandle, publication rtps.InstanceHandle, data []byte, sourceTime, receptionTime time.Time) (*Change, RejectReason, error) {
	rec := c.instanceOf(instance)

	if kind == Alive && c.minSep > 0 {
		if prev := c.latestForInstance(instance); prev != nil && !prev.SourceTimestamp.After(sourceTime) {
			if sourceTime.Sub(prev.SourceTimestamp) < c.minSep {
				return &Change{Kind: AliveFiltered, InstanceHandle: instance}, NotRejected, nil
			}
		}
	}

	isNewInstance := len(rec.changes) == 0
	if c.history.Kind == qos.KeepLast {
		aliveInInstance := 0
		for _, ch := range rec.changes {
			if ch.Kind == Alive {
				aliveInInstance++
			}
		}
		for kind == Alive && aliveInInstance >= c.history.Depth && len(rec.changes) > 0 {
			c.evictOldest(rec)
			aliveInInstance--
		}
	} else {
		if c.limits.MaxSamples != qos.Unlimited && c.aliveSampleCount() >= c.limits.MaxSamples && kind == Alive {
			return nil, RejectedBySamplesLimit, nil
		}
		if isNewInstance && c.limits.MaxInstances != qos.Unlimited && len(c.instances) > c.limits.MaxInstances {
			delete(c.instances, instance)
			return nil, RejectedByInstancesLimit, nil
		}
		if c.limits.MaxSamplesPerInstance != qos.Unlimited && len(rec.changes) >= c.limits.MaxSamplesPerInstance {
			return nil, RejectedBySamplesPerInstanceLimit, nil
		}
	}

	switch kind {
	case NotAliveDisposed, NotAliveDisposedUnregistered:
		rec.instanceState = InstanceNotAliveDisposed
		rec.mostRecentDisposedGeneration++
	case NotAliveUnregistered:
		rec.instanceState = InstanceNotAliveNoWriters
		rec.mostRecentNoWritersGeneration++
	case Alive:
		rec.instanceState = InstanceAlive
	}

	ch := &Change{
		Kind:                     kind,
		InstanceHandle:           instance,
		SourceTimestamp:          sourceTime,
		ReceptionTimestamp:       receptionTime,
		Data:                     data,
		SampleState:              NotRead,
		DisposedGenerationCount:  rec.mostRecentDisposedGeneration,
		NoWritersGenerationCount: rec.mostRecentNoWritersGeneration,
	}
	c.pubHandles[instance] = publication
	c.changes = append(c.changes, ch)
	rec.changes = append(rec.changes, ch)
	rec.viewState = ViewNotNew
	rec.lastReceptionTime = receptionTime
	c.resort()
	return ch, NotRejected, nil
}

// LastReceptionTimes returns, for every instance currently tracked, the
// reception time of its most recently added change. Used by deadline-miss
// detection (spec.md §4.7).
func (c *ReaderCache) LastReceptionTimes() map[rtps.InstanceHandle]time.Time {
	out := make(map[rtps.InstanceHandle]time.Time, len(c.instances))
	for handle, rec := range c.instances {
		if rec.instanceState == InstanceAlive {
			out[handle] = rec.lastReceptionTime
		}
	}
	return out
}

func (c *ReaderCache) latestForInstance(instance rtps.InstanceHandle) *Change {
	rec, ok := c.instances[instance]
	if !ok || len(rec.changes) == 0 {
		return nil
	}
	latest := rec.changes[0]
	for _, ch := range rec.changes[1:] {
		if ch.SourceTimestamp.After(latest.SourceTimestamp) {
			latest = ch
		}
	}
	return latest
}

func (c *ReaderCache) evictOldest(rec *instanceRecord) {
	if len(rec.changes) == 0 {
		return
	}
	oldest := rec.changes[0]
	for _, ch := range rec.changes[1:] {
		if ch.SourceTimestamp.Before(oldest.SourceTimestamp) {
			oldest = ch
		}
	}
	var keptRec []*Change
	for _, ch := range rec.changes {
		if ch != oldest {
			keptRec = append(keptRec, ch)
		}
	}
	rec.changes = keptRec
	var kept []*Change
	for _, ch := range c.changes {
		if ch != oldest {
			kept = append(kept, ch)
		}
	}
	c.changes = kept
}

// resort reorders the cache per destination_order, spec.md §4.3.
func (c *ReaderCache) resort() {
	if c.destOrder != qos.BySourceTimestamp {
		return
	}
	sort.SliceStable(c.changes, func(i, j int) bool {
		return c.changes[i].SourceTimestamp.Before(c.changes[j].SourceTimestamp)
	})
}

// SampleInfo accompanies each sample returned by Read/Take, spec.md §4.3.
type SampleInfo struct {
	SampleState             SampleState
	ViewState                ViewState
	InstanceState             InstanceState
	DisposedGenerationCount   int
	NoWritersGenerationCount  int
	SampleRank                int
	GenerationRank            int
	AbsoluteGenerationRank    int
	SourceTimestamp           time.Time
	InstanceHandle            rtps.InstanceHandle
	PublicationHandle         rtps.InstanceHandle
	ValidData                 bool
}

// Filter selects which sample/view/instance states Read/Take should return.
type Filter struct {
	SampleStates   []SampleState
	ViewStates     []ViewState
	InstanceStates []InstanceState
}

func (f Filter) matches(ch *Change, rec *instanceRecord) bool {
	if !containsSampleState(f.SampleStates, ch.SampleState) {
		return false
	}
	if !containsViewState(f.ViewStates, rec.viewState) {
		return false
	}
	if !containsInstanceState(f.InstanceStates, rec.instanceState) {
		return false
	}
	return true
}

func containsSampleState(states []SampleState, s SampleState) bool {
	if len(states) == 0 {
		return true
	}
	for _, x := range states {
		if x == s {
			return true
		}
	}
	return false
}

func containsViewState(states []ViewState, s ViewState) bool {
	if len(states) == 0 {
		return true
	}
	for _, x := range states {
		if x == s {
			return true
		}
	}
	return false
}

func containsInstanceState(states []InstanceState, s InstanceState) bool {
	if len(states) == 0 {
		return true
	}
	for _, x := range states {
		if x == s {
			return true
		}
	}
	return false
}

// HasMatching reports whether any change currently in the cache matches
// filter, without affecting sample state. Used by get_datareaders-style
// queries that must not disturb NOT_READ/READ bookkeeping (spec.md §6).
func (c *ReaderCache) HasMatching(filter Filter) bool {
	for _, ch := range c.changes {
		rec := c.instances[ch.InstanceHandle]
		if filter.matches(ch, rec) {
			return true
		}
	}
	return false
}

// Read returns up to maxSamples matching changes, marking them Read but
// leaving them in the cache. Take additionally removes them. Both fail with
// NoData if the filtered set is empty, and BadParameter if
// specificInstance is non-nil and unknown (spec.md §4.3).
func (c *ReaderCache) Read(maxSamples int, filter Filter, specificInstance *rtps.InstanceHandle) ([]*Change, []SampleInfo, error) {
	return c.readOrTake(maxSamples, filter, specificInstance, false)
}

func (c *ReaderCache) Take(maxSamples int, filter Filter, specificInstance *rtps.InstanceHandle) ([]*Change, []SampleInfo, error) {
	return c.readOrTake(maxSamples, filter, specificInstance, true)
}

func (c *ReaderCache) readOrTake(maxSamples int, filter Filter, specificInstance *rtps.InstanceHandle, take bool) ([]*Change, []SampleInfo, error) {
	if specificInstance != nil {
		if _, ok := c.instances[*specificInstance]; !ok {
			return nil, nil, errors.ErrBadParameter
		}
	}

	var matched []*Change
	for _, ch := range c.changes {
		if specificInstance != nil && ch.InstanceHandle != *specificInstance {
			continue
		}
		rec := c.instances[ch.InstanceHandle]
		if rec == nil || !filter.matches(ch, rec) {
			continue
		}
		matched = append(matched, ch)
		if maxSamples > 0 && len(matched) >= maxSamples {
			break
		}
	}

	if len(matched) == 0 {
		return nil, nil, errors.ErrNoData
	}

	infos := make([]SampleInfo, len(matched))
	for i, ch := range matched {
		rec := c.instances[ch.InstanceHandle]
		infos[i] = SampleInfo{
			SampleState:              ch.SampleState,
			ViewState:                rec.viewState,
			InstanceState:            rec.instanceState,
			DisposedGenerationCount:  ch.DisposedGenerationCount,
			NoWritersGenerationCount: ch.NoWritersGenerationCount,
			SampleRank:               len(matched) - 1 - i,
			GenerationRank:           (rec.mostRecentDisposedGeneration + rec.mostRecentNoWritersGeneration) - (ch.DisposedGenerationCount + ch.NoWritersGenerationCount),
			AbsoluteGenerationRank:   (rec.mostRecentDisposedGeneration + rec.mostRecentNoWritersGeneration) - (ch.DisposedGenerationCount + ch.NoWritersGenerationCount),
			SourceTimestamp:          ch.SourceTimestamp,
			InstanceHandle:           ch.InstanceHandle,
			PublicationHandle:        c.pubHandles[ch.InstanceHandle],
			ValidData:                ch.Kind == Alive,
		}
		ch.SampleState = Read
		rec.viewState = ViewNotNew
	}

	if take {
		removeSet := make(map[*Change]bool, len(matched))
		for _, ch := range matched {
			removeSet[ch] = true
		}
		var kept []*Change
		for _, ch := range c.changes {
			if !removeSet[ch] {
				kept = append(kept, ch)
			}
		}
		c.changes = kept
		for handle, rec := range c.instances {
			var keptRec []*Change
			for _, ch := range rec.changes {
				if !removeSet[ch] {
					keptRec = append(keptRec, ch)
				}
			}
			rec.changes = keptRec
			c.instances[handle] = rec
		}
	}

	return matched, infos, nil
}
