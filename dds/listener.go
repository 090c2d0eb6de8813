package dds

import "github.com/rtpsgo/rtpsgo/internal/status"

// DataWriterListener is the set of trampolines a DataWriter can invoke on
// status change, spec.md §6 ("listener trampolines to user callbacks" is
// named as core-adjacent, implemented here at the entity-model edge).
// Every callback is optional; a nil field is simply not invoked.
type DataWriterListener struct {
	OnPublicationMatched        func(w *DataWriter, s status.PublicationMatchedStatus)
	OnOfferedDeadlineMissed     func(w *DataWriter, s status.OfferedDeadlineMissedStatus)
	OnOfferedIncompatibleQos    func(w *DataWriter, s status.OfferedIncompatibleQosStatus)
	OnLivelinessLost            func(w *DataWriter)
}

// DataReaderListener is the set of trampolines a DataReader can invoke.
type DataReaderListener struct {
	OnDataAvailable              func(r *DataReader)
	OnSubscriptionMatched        func(r *DataReader, s status.SubscriptionMatchedStatus)
	OnRequestedDeadlineMissed    func(r *DataReader, s status.RequestedDeadlineMissedStatus)
	OnRequestedIncompatibleQos   func(r *DataReader, s status.RequestedIncompatibleQosStatus)
	OnSampleRejected             func(r *DataReader, s status.SampleRejectedStatus)
	OnSampleLost                 func(r *DataReader, s status.SampleLostStatus)
	OnLivelinessChanged          func(r *DataReader, s status.LivelinessChangedStatus)
}

// ParticipantListener mirrors the participant-wide defaults a newly created
// Publisher/Subscriber inherits when it specifies no listener of its own
// (DDS "listener inheritance").
type ParticipantListener struct {
	DataWriterListener
	DataReaderListener
}
