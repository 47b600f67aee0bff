package tcp

import (
	"github.com/csci1680/minnow-tcpip/bytestream"
	"github.com/csci1680/minnow-tcpip/reassembler"
	"github.com/csci1680/minnow-tcpip/wrap32"
)

// Receiver consumes inbound segments, feeds their payload to a Reassembler,
// and reports back an ackno/window advertisement.
type Receiver struct {
	isnReceived bool
	zero        wrap32.Wrap32
}

// NewReceiver constructs a Receiver that has not yet seen a SYN.
func NewReceiver() *Receiver {
	return &Receiver{}
}

// Receive processes one inbound segment, inserting its payload into reassembler
// at the correct stream index.
func (r *Receiver) Receive(msg SenderMessage, reassembler *reassembler.Reassembler, writer bytestream.Writer) {
	if msg.SYN {
		r.isnReceived = true
		r.zero = msg.Seqno
	}
	if !r.isnReceived {
		return
	}

	checkpoint := writer.BytesPushed() + 1
	absSeqno := msg.Seqno.Unwrap(r.zero, checkpoint)

	var idx uint64
	if msg.SYN {
		idx = 0
	} else {
		idx = absSeqno - 1
	}

	reassembler.Insert(idx, msg.Payload, msg.FIN, writer)
}

// Send reports the receiver's current ackno (absent until a SYN has been
// seen) and advertised window.
func (r *Receiver) Send(writer bytestream.Writer) ReceiverMessage {
	var out ReceiverMessage
	if r.isnReceived {
		ackno := r.zero.Plus(1).Plus(uint32(writer.BytesPushed()))
		if writer.IsClosed() {
			ackno = ackno.Plus(1)
		}
		out.Ackno = ackno
		out.HasAckno = true
	}

	window := writer.AvailableCapacity()
	if window > MaxWindowSize {
		window = MaxWindowSize
	}
	out.WindowSize = uint16(window)
	return out
}
