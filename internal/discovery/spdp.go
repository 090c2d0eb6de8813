// Package discovery implements SPDP (participant discovery) and SEDP
// (endpoint discovery), spec.md §4.5: participant/endpoint announcement,
// lease expiry, and topic+type+QoS matching.
package discovery

import (
	"time"

	"github.com/rtpsgo/rtpsgo/internal/rtps"
	"github.com/rtpsgo/rtpsgo/internal/telemetry"
)

// ParticipantData is the content of an SpdpDiscoveredParticipantData
// message, spec.md §4.5.1.
type ParticipantData struct {
	DomainId                  int32
	DomainTag                 string
	ProtocolVersion           rtps.ProtocolVersion
	GuidPrefix                rtps.GuidPrefix
	VendorId                  rtps.VendorId
	MetatrafficUnicastLocators []rtps.Locator
	MetatrafficMulticastLocators []rtps.Locator
	DefaultUnicastLocators    []rtps.Locator
	DefaultMulticastLocators  []rtps.Locator
	AvailableBuiltinEndpoints uint32
	ManualLivelinessCount     int32
	BuiltinEndpointQos        uint32
	LeaseDuration             time.Duration
}

// Built-in endpoint availability bits, spec.md §4.5.1/§4.5.2.
const (
	DisabledFlag                          = 0
	ParticipantAnnouncer           uint32 = 1 << 0
	ParticipantDetector            uint32 = 1 << 1
	PublicationsAnnouncer          uint32 = 1 << 2
	PublicationsDetector           uint32 = 1 << 3
	SubscriptionsAnnouncer         uint32 = 1 << 4
	SubscriptionsDetector          uint32 = 1 << 5
	TopicsAnnouncer                uint32 = 1 << 28
	TopicsDetector                 uint32 = 1 << 29
)

// DiscoveredParticipant is the local bookkeeping for a remote participant:
// its announced data plus the last-seen time used for lease expiry.
type DiscoveredParticipant struct {
	Data     ParticipantData
	LastSeen time.Time
}

// ParticipantTable tracks discovered remote participants and expires them
// per spec.md §8 scenario 6.
type ParticipantTable struct {
	log      *telemetry.Logger
	local    rtps.GuidPrefix
	byPrefix map[rtps.GuidPrefix]*DiscoveredParticipant
}

// NewParticipantTable creates an empty table for the local participant
// identified by local (never matched against itself).
func NewParticipantTable(local rtps.GuidPrefix) *ParticipantTable {
	return &ParticipantTable{
		log:      telemetry.NewLogger("discovery"),
		local:    local,
		byPrefix: make(map[rtps.GuidPrefix]*DiscoveredParticipant),
	}
}

// OnSPDP processes a received SpdpDiscoveredParticipantData, adding or
// refreshing the remote participant if domain_id and domain_tag match.
// Returns (participant, isNew).
func (t *ParticipantTable) OnSPDP(data ParticipantData, localDomainId int32, localDomainTag string, now time.Time) (*DiscoveredParticipant, bool) {
	if data.GuidPrefix == t.local {
		return nil, false
	}
	if data.DomainId != localDomainId || data.DomainTag != localDomainTag {
		return nil, false
	}
	existing, known := t.byPrefix[data.GuidPrefix]
	if !known {
		dp := &DiscoveredParticipant{Data: data, LastSeen: now}
		t.byPrefix[data.GuidPrefix] = dp
		return dp, true
	}
	existing.Data = data
	existing.LastSeen = now
	return existing, false
}

// SweepExpired removes every participant whose lease has elapsed as of now,
// returning the pruned prefixes (spec.md §8 scenario 6).
func (t *ParticipantTable) SweepExpired(now time.Time) []rtps.GuidPrefix {
	var pruned []rtps.GuidPrefix
	for prefix, dp := range t.byPrefix {
		if now.Sub(dp.LastSeen) > dp.Data.LeaseDuration {
			pruned = append(pruned, prefix)
			delete(t.byPrefix, prefix)
			t.log.Printf("participant %s lease expired, pruning", prefix)
		}
	}
	return pruned
}

// Get returns the discovered participant for prefix, if known.
func (t *ParticipantTable) Get(prefix rtps.GuidPrefix) (*DiscoveredParticipant, bool) {
	dp, ok := t.byPrefix[prefix]
	return dp, ok
}

// All returns every currently discovered participant (for
// get_discovered_participants, spec.md §6).
func (t *ParticipantTable) All() []*DiscoveredParticipant {
	out := make([]*DiscoveredParticipant, 0, len(t.byPrefix))
	for _, dp := range t.byPrefix {
		out = append(out, dp)
	}
	return out
}

// announcePeriod is how often SPDP re-announces by default, spec.md §4.5.1.
const announcePeriod = 5 * time.Second

// DefaultAnnouncePeriod returns the default SPDP re-announcement interval.
func DefaultAnnouncePeriod() time.Duration { return announcePeriod }

// DefaultLeaseDuration is the lease_duration a DomainParticipant announces
// when its config.LeaseDuration is not positive; spec.md §9 ties the announce period
// to lease_duration/3, so the matching lease is 3x the announce period.
var DefaultLeaseDuration = 3 * announcePeriod
