package xtypes

// ParameterList is an ordered list of (ParameterId, body) pairs, the
// mutable-struct framing used inline in Data submessages and in SPDP/SEDP
// payloads (spec.md §4.1, §4.2).
type ParameterList struct {
	Entries []ParameterEntry
}

// ParameterEntry is one (id, raw-body) pair in a ParameterList.
type ParameterEntry struct {
	ID   uint16
	Body []byte
}

// Add appends a parameter entry.
func (pl *ParameterList) Add(id uint16, body []byte) {
	pl.Entries = append(pl.Entries, ParameterEntry{ID: id, Body: body})
}

// Get returns the first entry's body for id, if present.
func (pl *ParameterList) Get(id uint16) ([]byte, bool) {
	for _, e := range pl.Entries {
		if e.ID == id {
			return e.Body, true
		}
	}
	return nil, false
}

// GetAll returns every entry's body for id, in encounter order (for
// multi-valued parameters like locator lists).
func (pl *ParameterList) GetAll(id uint16) [][]byte {
	var out [][]byte
	for _, e := range pl.Entries {
		if e.ID == id {
			out = append(out, e.Body)
		}
	}
	return out
}

// Encode serializes the list as mutable-struct framing terminated by the
// sentinel.
func (pl *ParameterList) Encode(w *Writer) {
	for _, e := range pl.Entries {
		w.WriteParameter(e.ID, e.Body)
	}
	w.WriteSentinel()
}

// DecodeParameterList reads a parameter list until the sentinel. Unknown
// parameter ids are preserved (not discarded) so that a round trip through
// this structure is lossless; higher layers decide which ids they care
// about and ignore the rest, per spec.md §8 property 4.
func DecodeParameterList(r *Reader) (ParameterList, error) {
	var pl ParameterList
	for {
		if r.Remaining() < 4 {
			return pl, ErrBufferUnderflow
		}
		pid, length, err := r.ReadParameterHeader()
		if err != nil {
			return pl, err
		}
		if pid == ParameterSentinel {
			return pl, nil
		}
		body, err := r.ReadByteArray(int(length))
		if err != nil {
			return pl, err
		}
		if err := r.pad(4); err != nil {
			return pl, err
		}
		pl.Add(pid, body)
	}
}
