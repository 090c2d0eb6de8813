// Package qos defines the DDS QoS policies (spec.md §3) and the
// requested-vs-offered compatibility predicate table (spec.md §4.6).
package qos

import "time"

// PolicyID identifies a QoS policy for incompatible-policy reporting.
type PolicyID int32

// Policy ids, matching the DDS standard's *_QOS_POLICY_ID constants.
const (
	DurabilityQosPolicyID PolicyID = 5
	TransportPriorityQosPolicyID PolicyID = 6
	DeadlineQosPolicyID   PolicyID = 9
	LatencyBudgetQosPolicyID PolicyID = 10
	LivelinessQosPolicyID PolicyID = 11
	ReliabilityQosPolicyID PolicyID = 12
	DestinationOrderQosPolicyID PolicyID = 13
	HistoryQosPolicyID PolicyID = 14
	ResourceLimitsQosPolicyID PolicyID = 15
	OwnershipQosPolicyID PolicyID = 17
	PresentationQosPolicyID PolicyID = 21
	PartitionQosPolicyID PolicyID = 22
)

// ReliabilityKind: BestEffort < Reliable.
type ReliabilityKind int

const (
	BestEffort ReliabilityKind = iota
	Reliable
)

type ReliabilityQos struct {
	Kind          ReliabilityKind
	MaxBlockingTime time.Duration
}

// DurabilityKind: Volatile < TransientLocal.
type DurabilityKind int

const (
	Volatile DurabilityKind = iota
	TransientLocal
)

type DurabilityQos struct{ Kind DurabilityKind }

type DeadlineQos struct{ Period time.Duration }

// InfiniteDuration represents DDS's DURATION_INFINITE.
var InfiniteDuration = time.Duration(1<<63 - 1)

func DefaultDeadlineQos() DeadlineQos { return DeadlineQos{Period: InfiniteDuration} }

type LatencyBudgetQos struct{ Duration time.Duration }

// LivelinessKind: Automatic < ManualByParticipant < ManualByTopic (ordering
// for compatibility purposes follows the DDS standard's numeric kind order).
type LivelinessKind int

const (
	Automatic LivelinessKind = iota
	ManualByParticipant
	ManualByTopic
)

type LivelinessQos struct {
	Kind          LivelinessKind
	LeaseDuration time.Duration
}

func DefaultLivelinessQos() LivelinessQos {
	return LivelinessQos{Kind: Automatic, LeaseDuration: InfiniteDuration}
}

// OwnershipKind: Shared or Exclusive — equal required, no order.
type OwnershipKind int

const (
	Shared OwnershipKind = iota
	Exclusive
)

type OwnershipQos struct{ Kind OwnershipKind }

// DestinationOrderKind: ByReception < BySource.
type DestinationOrderKind int

const (
	ByReceptionTimestamp DestinationOrderKind = iota
	BySourceTimestamp
)

type DestinationOrderQos struct{ Kind DestinationOrderKind }

// HistoryKind: KeepLast(depth) | KeepAll.
type HistoryKind int

const (
	KeepLast HistoryKind = iota
	KeepAll
)

type HistoryQos struct {
	Kind  HistoryKind
	Depth int
}

func DefaultHistoryQos() HistoryQos { return HistoryQos{Kind: KeepLast, Depth: 1} }

type ResourceLimitsQos struct {
	MaxSamples           int
	MaxInstances         int
	MaxSamplesPerInstance int
}

// Length represents DDS's LENGTH_UNLIMITED, -1.
const Unlimited = -1

func DefaultResourceLimitsQos() ResourceLimitsQos {
	return ResourceLimitsQos{MaxSamples: Unlimited, MaxInstances: Unlimited, MaxSamplesPerInstance: Unlimited}
}

type PartitionQos struct{ Names []string }

// AccessScopeKind for Presentation.
type AccessScopeKind int

const (
	InstancePresentation AccessScopeKind = iota
	TopicPresentation
	GroupPresentation
)

type PresentationQos struct {
	AccessScope    AccessScopeKind
	CoherentAccess bool
	OrderedAccess  bool
}

// TimeBasedFilterQos controls reader-side sample filtering by minimum
// separation between samples of the same instance (spec.md §4.3).
type TimeBasedFilterQos struct{ MinimumSeparation time.Duration }

// Qos is the bundle of policies relevant to a DataWriter or DataReader.
// Not every field applies to both sides; entity constructors pick the
// relevant subset.
type Qos struct {
	Reliability       ReliabilityQos
	Durability        DurabilityQos
	Deadline          DeadlineQos
	LatencyBudget     LatencyBudgetQos
	Liveliness        LivelinessQos
	Ownership         OwnershipQos
	DestinationOrder  DestinationOrderQos
	History           HistoryQos
	ResourceLimits    ResourceLimitsQos
	Partition         PartitionQos
	Presentation      PresentationQos
	TimeBasedFilter   TimeBasedFilterQos
	TransportPriority int32
}

// Default returns the DDS-specified default QoS.
func Default() Qos {
	return Qos{
		Reliability:    ReliabilityQos{Kind: BestEffort},
		Durability:     DurabilityQos{Kind: Volatile},
		Deadline:       DefaultDeadlineQos(),
		Liveliness:     DefaultLivelinessQos(),
		DestinationOrder: DestinationOrderQos{Kind: ByReceptionTimestamp},
		History:        DefaultHistoryQos(),
		ResourceLimits: DefaultResourceLimitsQos(),
	}
}

// ImmutablePolicies are the policy ids that cannot change after enable, per
// spec.md §4.6.
var ImmutablePolicies = []PolicyID{
	DurabilityQosPolicyID,
	ReliabilityQosPolicyID,
	LivelinessQosPolicyID,
	ResourceLimitsQosPolicyID,
	HistoryQosPolicyID,
	PresentationQosPolicyID,
	TransportPriorityQosPolicyID,
}

// ChangedImmutable reports which immutable policies differ between old and
// next. An enabled entity's SetQos must reject any change if this returns a
// non-empty list.
func ChangedImmutable(old, next Qos) []PolicyID {
	var bad []PolicyID
	if old.Durability != next.Durability {
		bad = append(bad, DurabilityQosPolicyID)
	}
	if old.Reliability != next.Reliability {
		bad = append(bad, ReliabilityQosPolicyID)
	}
	if old.Liveliness != next.Liveliness {
		bad = append(bad, LivelinessQosPolicyID)
	}
	if old.ResourceLimits != next.ResourceLimits {
		bad = append(bad, ResourceLimitsQosPolicyID)
	}
	if old.History != next.History {
		bad = append(bad, HistoryQosPolicyID)
	}
	if old.Presentation != next.Presentation {
		bad = append(bad, PresentationQosPolicyID)
	}
	if old.TransportPriority != next.TransportPriority {
		bad = append(bad, TransportPriorityQosPolicyID)
	}
	return bad
}

// Incompatible computes the set of policy ids where requested (reader) does
// not satisfy offered (writer), per the predicate table in spec.md §4.6. The
// relation is requested-then-offered; callers must apply it in the correct
// direction (reader as requested, writer as offered).
func Incompatible(requested, offered Qos) []PolicyID {
	var bad []PolicyID

	if requested.Durability.Kind > offered.Durability.Kind {
		bad = append(bad, DurabilityQosPolicyID)
	}
	if offered.Deadline.Period > requested.Deadline.Period {
		// writer's period must be <= reader's period: reader.period >= writer.period
		bad = append(bad, DeadlineQosPolicyID)
	}
	if requested.LatencyBudget.Duration < offered.LatencyBudget.Duration {
		bad = append(bad, LatencyBudgetQosPolicyID)
	}
	if requested.Liveliness.Kind > offered.Liveliness.Kind || requested.Liveliness.LeaseDuration < offered.Liveliness.LeaseDuration {
		bad = append(bad, LivelinessQosPolicyID)
	}
	if requested.Reliability.Kind > offered.Reliability.Kind {
		bad = append(bad, ReliabilityQosPolicyID)
	}
	if requested.DestinationOrder.Kind > offered.DestinationOrder.Kind {
		bad = append(bad, DestinationOrderQosPolicyID)
	}
	if requested.Ownership.Kind != offered.Ownership.Kind {
		bad = append(bad, OwnershipQosPolicyID)
	}
	return bad
}

// PresentationIncompatible checks the subscriber/publisher-level
// Presentation policy, which is evaluated separately from the per-endpoint
// Incompatible predicate (spec.md §4.6).
func PresentationIncompatible(requested, offered PresentationQos) bool {
	if requested.AccessScope > offered.AccessScope {
		return true
	}
	if requested.CoherentAccess && !offered.CoherentAccess {
		return true
	}
	if requested.OrderedAccess && !offered.OrderedAccess {
		return true
	}
	return false
}

// PartitionsMatch implements the glob/equality partition matching rule from
// spec.md §4.5.2.
func PartitionsMatch(local, remote []string) bool {
	if len(local) == 0 && len(remote) == 0 {
		return true
	}
	for _, l := range local {
		for _, r := range remote {
			if l == r || globMatch(l, r) || globMatch(r, l) {
				return true
			}
		}
	}
	return false
}

// globMatch reports whether pattern (which may contain '*' wildcards) matches
// name.
func globMatch(pattern, name string) bool {
	if pattern == name {
		return true
	}
	return globMatchRunes([]rune(pattern), []rune(name))
}

func globMatchRunes(p, n []rune) bool {
	if len(p) == 0 {
		return len(n) == 0
	}
	if p[0] == '*' {
		if globMatchRunes(p[1:], n) {
			return true
		}
		if len(n) > 0 {
			return globMatchRunes(p, n[1:])
		}
		return false
	}
	if len(n) == 0 {
		return false
	}
	if p[0] == '?' || p[0] == n[0] {
		return globMatchRunes(p[1:], n[1:])
	}
	return false
}
