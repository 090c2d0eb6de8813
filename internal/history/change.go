// Package history implements the writer and reader history caches and
// per-instance state tracking of spec.md §4.3: ordered change stores,
// resource-limit rejection, KeepLast eviction, time-based filtering,
// destination-order resorting, and the read/take sample-state machinery.
package history

import (
	"time"

	"github.com/rtpsgo/rtpsgo/internal/rtps"
	"github.com/rtpsgo/rtpsgo/internal/xtypes"
)

// ChangeKind classifies a cache change.
type ChangeKind int

const (
	Alive ChangeKind = iota
	NotAliveDisposed
	NotAliveUnregistered
	NotAliveDisposedUnregistered
	AliveFiltered
)

// Change is one cache change, carrying both writer- and reader-side fields;
// reader-only fields are left zero on the writer side.
type Change struct {
	Kind            ChangeKind
	WriterGuid      rtps.Guid
	InstanceHandle  rtps.InstanceHandle
	SequenceNumber  rtps.SequenceNumber
	SourceTimestamp time.Time
	Data            []byte
	InlineQos       xtypes.ParameterList

	// Reader-side only.
	ReceptionTimestamp        time.Time
	DisposedGenerationCount   int
	NoWritersGenerationCount  int
	SampleState               SampleState
}

// SampleState is Read or NotRead, per spec.md GLOSSARY.
type SampleState int

const (
	NotRead SampleState = iota
	Read
)

// ViewState is New or NotNew.
type ViewState int

const (
	ViewNew ViewState = iota
	ViewNotNew
)

// InstanceState is Alive, NotAliveDisposed, or NotAliveNoWriters.
type InstanceState int

const (
	InstanceAlive InstanceState = iota
	InstanceNotAliveDisposed
	InstanceNotAliveNoWriters
)

// instanceRecord is the per-instance bookkeeping held by a reader cache,
// spec.md §4.3 "Instance state".
type instanceRecord struct {
	viewState                   ViewState
	instanceState                InstanceState
	mostRecentDisposedGeneration  int
	mostRecentNoWritersGeneration int
	changes                      []*Change
	lastReceptionTime             time.Time
}

// RejectReason names why AddChange refused a reader-side insert.
type RejectReason int

const (
	NotRejected RejectReason = iota
	RejectedBySamplesLimit
	RejectedByInstancesLimit
	RejectedBySamplesPerInstanceLimit
)
