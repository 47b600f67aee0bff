package tcp

import (
	"github.com/csci1680/minnow-tcpip/bytestream"
	"github.com/csci1680/minnow-tcpip/wrap32"
)

// outstandingSegment pairs a sent-but-unacknowledged segment with the
// absolute (unwrapped) sequence offset at which it starts, so retiring
// acked segments and computing sequence_numbers_in_flight never needs to
// re-unwrap anything.
type outstandingSegment struct {
	msg      SenderMessage
	absStart uint64
}

// Sender segments an outbound byte stream into segments, respecting the
// peer's advertised window, and retransmits the oldest outstanding segment
// on a single RTO timer with exponential backoff.
//
// outstanding and "ready to emit" are the same slice with a cursor
// (sendCursor) separating not-yet-sent segments from already-sent ones,
// rather than two deques. A timeout does not rewind that cursor — doing so
// would resend every outstanding segment, not just the oldest one — it
// instead sets retransmitPending, which makes the next MaybeSend return
// outstanding's head again without disturbing the cursor's view of what's
// already been sent for the first time.
type Sender struct {
	isn        wrap32.Wrap32
	initialRTO uint64
	rtoCur     uint64
	rtoElapsed uint64

	retransmissions  uint64
	advertisedWindow uint64 // last window_size reported by the peer; starts at 1

	synSent bool
	finSent bool

	sentAbs           uint64 // total sequence length ever assigned (the "isn_cursor" offset)
	segs              []outstandingSegment
	sendCursor        int
	retransmitPending bool
}

// NewSender constructs a Sender with the given initial RTO (ms) and ISN.
func NewSender(initialRTOMs uint64, isn wrap32.Wrap32) *Sender {
	return &Sender{
		isn:              isn,
		initialRTO:       initialRTOMs,
		rtoCur:           initialRTOMs,
		advertisedWindow: 1,
	}
}

// SequenceNumbersInFlight returns the total sequence length of all
// outstanding (sent, unacknowledged) segments.
func (s *Sender) SequenceNumbersInFlight() uint64 {
	var total uint64
	for _, seg := range s.segs {
		total += seg.msg.SequenceLength()
	}
	return total
}

// ConsecutiveRetransmissions returns how many retransmissions have happened
// since the last forward-progress ack.
func (s *Sender) ConsecutiveRetransmissions() uint64 {
	return s.retransmissions
}

// Push segments as many bytes as the peer's window allows out of reader,
// producing exactly one SYN at the start and one FIN once reader is
// finished and window space allows it.
func (s *Sender) Push(reader bytestream.Reader) {
	window := s.advertisedWindow
	if window == 0 {
		window = 1 // zero-window probe rule
	}
	inFlight := s.SequenceNumbersInFlight()
	var remaining uint64
	if window > inFlight {
		remaining = window - inFlight
	}

	for remaining > 0 && !s.finSent {
		msg := SenderMessage{Seqno: s.isn.Plus(uint32(s.sentAbs))}
		segWindow := remaining
		if !s.synSent {
			msg.SYN = true
			s.synSent = true
			segWindow--
		}

		payloadLen := segWindow
		if payloadLen > MaxPayloadSize {
			payloadLen = MaxPayloadSize
		}
		if buffered := reader.BytesBuffered(); payloadLen > buffered {
			payloadLen = buffered
		}
		if payloadLen > 0 {
			peeked := reader.Peek()
			msg.Payload = append([]byte(nil), peeked[:payloadLen]...)
			reader.Pop(payloadLen)
		}

		if reader.IsFinished() && segWindow-payloadLen > 0 && !s.finSent {
			msg.FIN = true
			s.finSent = true
		}

		seqLen := msg.SequenceLength()
		if seqLen == 0 {
			break
		}

		s.segs = append(s.segs, outstandingSegment{msg: msg, absStart: s.sentAbs})
		s.sentAbs += seqLen
		remaining -= seqLen
	}
}

// MaybeSend returns and marks emitted the next not-yet-sent segment, if any.
// A pending retransmit takes priority: it re-sends outstanding's current
// head without advancing sendCursor, so segments already sent once are not
// re-sent, and segments not yet sent for the first time still queue behind it.
func (s *Sender) MaybeSend() (SenderMessage, bool) {
	if s.retransmitPending && len(s.segs) > 0 {
		s.retransmitPending = false
		return s.segs[0].msg, true
	}
	if s.sendCursor >= len(s.segs) {
		return SenderMessage{}, false
	}
	msg := s.segs[s.sendCursor].msg
	s.sendCursor++
	return msg, true
}

// SendEmptyMessage returns a zero-length segment stamped with the current
// cursor position, used to carry an ackno-only reply.
func (s *Sender) SendEmptyMessage() SenderMessage {
	return SenderMessage{Seqno: s.isn.Plus(uint32(s.sentAbs))}
}

// Receive processes an ack/window update from the peer's receiver.
func (s *Sender) Receive(msg ReceiverMessage) {
	s.advertisedWindow = uint64(msg.WindowSize)

	if !msg.HasAckno {
		return
	}
	ackAbs := msg.Ackno.Unwrap(s.isn, s.sentAbs)
	if ackAbs > s.sentAbs {
		return // acks data never sent
	}

	lowerBound := s.sentAbs - s.SequenceNumbersInFlight()
	if ackAbs < lowerBound {
		return // stale ack, below the current window
	}

	retiredAny := false
	for len(s.segs) > 0 {
		front := s.segs[0]
		if front.absStart+front.msg.SequenceLength() > ackAbs {
			break
		}
		s.segs = s.segs[1:]
		if s.sendCursor > 0 {
			s.sendCursor--
		}
		retiredAny = true
	}

	if retiredAny {
		s.rtoCur = s.initialRTO
		s.rtoElapsed = 0
		s.retransmissions = 0
	}
}

// Tick advances the retransmission timer by deltaMs milliseconds.
func (s *Sender) Tick(deltaMs uint64) {
	s.rtoElapsed += deltaMs
	if s.rtoElapsed < s.rtoCur || len(s.segs) == 0 {
		return
	}

	s.retransmitPending = true // only the oldest outstanding segment resends
	if s.advertisedWindow > 0 {
		s.retransmissions++
		s.rtoCur *= 2
	}
	s.rtoElapsed = 0
}
