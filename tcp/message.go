// Package tcp implements the sending and receiving halves of a TCP
// connection's byte-stream engine: segmentation, retransmission, flow
// control on the send side; sequence unwrapping and reassembly hookup on
// the receive side.
package tcp

import "github.com/csci1680/minnow-tcpip/wrap32"

// MaxPayloadSize bounds a single outbound segment's payload.
const MaxPayloadSize = 1452

// MaxWindowSize is the largest window size that fits in the wire field.
const MaxWindowSize = 65535

// ReceiverMessage is what a TCPReceiver sends back to its peer's TCPSender.
type ReceiverMessage struct {
	Ackno      wrap32.Wrap32
	HasAckno   bool
	WindowSize uint16
}

// SenderMessage is one outbound TCP segment's worth of sequence-space data.
type SenderMessage struct {
	Seqno   wrap32.Wrap32
	SYN     bool
	Payload []byte
	FIN     bool
}

// SequenceLength is the amount of sequence space this segment occupies:
// payload length, plus one for SYN, plus one for FIN.
func (m SenderMessage) SequenceLength() uint64 {
	n := uint64(len(m.Payload))
	if m.SYN {
		n++
	}
	if m.FIN {
		n++
	}
	return n
}
