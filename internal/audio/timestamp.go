package audio

// TimestampState carries the timestamp repair of one chunk's packet copy.
// The zero value is the state before the first packet. A fresh state is used
// for every chunk.
//
// All values are in the source stream's time base.
type TimestampState struct {
	Started     bool  // A packet has been accepted in this chunk.
	Baseline    int64 // Source timestamp of the first packet, the chunk-local zero.
	LastEmitted int64 // Highest output timestamp written so far.
	CarryOffset int64 // Correction added to keep output timestamps from regressing.
	Regressions int   // Number of packets that engaged the carry correction.
}

// Repair folds one source timestamp into the state and returns the new state
// and the output timestamp to use for both PTS and DTS.
//
// The first packet is emitted at 0. Later packets are rebased on Baseline and
// shifted by CarryOffset. When the result would fall below LastEmitted, which
// happens when a backward seek or frame reordering hands back an earlier
// packet, CarryOffset is raised to LastEmitted so output never goes backward.
func (s TimestampState) Repair(ts int64) (TimestampState, int64) {
	if !s.Started {
		s.Started = true
		s.Baseline = ts
		s.LastEmitted = 0
		return s, 0
	}

	adjusted := ts - s.Baseline
	out := adjusted + s.CarryOffset
	if out < s.LastEmitted {
		s.CarryOffset = max(s.CarryOffset, s.LastEmitted)
		s.Regressions++
		// Packets earlier than the baseline still cannot go backward.
		out = max(adjusted+s.CarryOffset, s.LastEmitted)
	}
	s.LastEmitted = out
	return s, out
}
