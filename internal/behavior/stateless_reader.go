package behavior

import (
	"time"

	"github.com/rtpsgo/rtpsgo/internal/history"
	"github.com/rtpsgo/rtpsgo/internal/messages"
	"github.com/rtpsgo/rtpsgo/internal/qos"
	"github.com/rtpsgo/rtpsgo/internal/rtps"
)

// StatelessReader applies no sequence-number discipline: any Data addressed
// to it (or to EntityIdUnknown) is delivered, spec.md §4.4.3.
type StatelessReader struct {
	Guid  rtps.Guid
	cache *history.ReaderCache
}

// NewStatelessReader creates a stateless reader (used for SPDP).
func NewStatelessReader(guid rtps.Guid, h qos.HistoryQos, limits qos.ResourceLimitsQos) *StatelessReader {
	return &StatelessReader{Guid: guid, cache: history.NewReaderCache(h, limits, qos.ByReceptionTimestamp, 0)}
}

// ReceiveData accepts a Data submessage addressed to this reader (or to the
// unknown entity id) with no ordering checks.
func (r *StatelessReader) ReceiveData(d messages.Data, writer rtps.Guid, now time.Time) {
	unknown := rtps.EntityId{}
	if d.ReaderId != r.Guid.Entity && d.ReaderId != unknown {
		return
	}
	kind := history.Alive
	if d.KeyPayload {
		kind = history.NotAliveDisposed
	}
	instance := rtps.InstanceHandleFromGuid(writer)
	if d.HasInlineQos {
		if h, ok := messages.KeyHash(d.InlineQos); ok {
			instance = h
		}
	}
	r.cache.AddChange(kind, instance, rtps.InstanceHandleFromGuid(writer), d.Payload, now, now)
}

// Read delegates to the underlying cache.
func (r *StatelessReader) Read(maxSamples int, filter history.Filter) ([]*history.Change, []history.SampleInfo, error) {
	return r.cache.Read(maxSamples, filter, nil)
}

// Take delegates to the underlying cache.
func (r *StatelessReader) Take(maxSamples int, filter history.Filter) ([]*history.Change, []history.SampleInfo, error) {
	return r.cache.Take(maxSamples, filter, nil)
}
