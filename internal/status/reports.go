package status

import (
	"github.com/rtpsgo/rtpsgo/internal/qos"
	"github.com/rtpsgo/rtpsgo/internal/rtps"
)

// RequestedIncompatibleQosStatus backs get_requested_incompatible_qos_status,
// spec.md §8 scenario 3.
type RequestedIncompatibleQosStatus struct {
	CountStatus
	LastPolicyId qos.PolicyID
}

// OfferedIncompatibleQosStatus backs get_offered_incompatible_qos_status.
type OfferedIncompatibleQosStatus struct {
	CountStatus
	LastPolicyId qos.PolicyID
}

// RequestedDeadlineMissedStatus backs get_requested_deadline_missed_status,
// spec.md §8 scenario 5.
type RequestedDeadlineMissedStatus struct {
	CountStatus
	LastInstanceHandle rtps.InstanceHandle
}

// OfferedDeadlineMissedStatus backs get_offered_deadline_missed_status.
type OfferedDeadlineMissedStatus struct {
	CountStatus
	LastInstanceHandle rtps.InstanceHandle
}

// SampleLostStatus backs get_sample_lost_status.
type SampleLostStatus struct {
	CountStatus
}

// RejectReason mirrors internal/history.RejectReason for the public status
// surface, avoiding a dds->history dependency on an internal rejection enum.
type RejectReason int

const (
	NotRejected RejectReason = iota
	RejectedBySamplesLimit
	RejectedByInstancesLimit
	RejectedBySamplesPerInstanceLimit
)

// SampleRejectedStatus backs get_sample_rejected_status.
type SampleRejectedStatus struct {
	CountStatus
	LastReason         RejectReason
	LastInstanceHandle rtps.InstanceHandle
}

// LivelinessChangedStatus backs get_liveliness_changed_status.
type LivelinessChangedStatus struct {
	AliveCount          int32
	NotAliveCount       int32
	AliveCountChange    int32
	NotAliveCountChange int32
	LastPublicationHandle rtps.InstanceHandle
}

// PublicationMatchedStatus backs get_publication_matched_status.
type PublicationMatchedStatus struct {
	CountStatus
	CurrentCount       int32
	CurrentCountChange int32
	LastSubscriptionHandle rtps.InstanceHandle
}

// SubscriptionMatchedStatus backs get_subscription_matched_status.
type SubscriptionMatchedStatus struct {
	CountStatus
	CurrentCount       int32
	CurrentCountChange int32
	LastPublicationHandle rtps.InstanceHandle
}

// InconsistentTopicStatus backs get_inconsistent_topic_status.
type InconsistentTopicStatus struct {
	CountStatus
}
