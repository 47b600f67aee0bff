// Package bytestream implements a bounded FIFO of bytes shared between a
// producer-facing Writer view and a consumer-facing Reader view.
package bytestream

import (
	"github.com/smallnest/ringbuffer"
)

// ByteStream is a fixed-capacity byte buffer with two capability-typed
// handles (Writer, Reader) over one underlying state. Only one handle
// mutates at a time, as driven by the caller — there is no internal
// synchronization.
type ByteStream struct {
	capacity uint64
	ring     *ringbuffer.RingBuffer

	bytesPushed uint64
	bytesPopped uint64
	closed      bool
	errored     bool
}

// New constructs a ByteStream with the given capacity in bytes.
func New(capacity uint64) *ByteStream {
	return &ByteStream{
		capacity: capacity,
		ring:     ringbuffer.New(int(capacity)),
	}
}

// Writer returns the producer-facing view of s.
func (s *ByteStream) Writer() Writer { return Writer{s} }

// Reader returns the consumer-facing view of s.
func (s *ByteStream) Reader() Reader { return Reader{s} }

func (s *ByteStream) bufferSize() uint64 {
	return s.bytesPushed - s.bytesPopped
}

func (s *ByteStream) availableCapacity() uint64 {
	return s.capacity - s.bufferSize()
}

// Writer is the producer-facing capability view of a ByteStream.
type Writer struct {
	s *ByteStream
}

// Push appends min(available_capacity, len(data)) bytes from the front of
// data. Excess bytes are silently dropped; push never fails.
func (w Writer) Push(data []byte) {
	if w.s.closed || w.s.errored {
		return
	}
	toPush := w.s.availableCapacity()
	if uint64(len(data)) < toPush {
		toPush = uint64(len(data))
	}
	if toPush == 0 {
		return
	}
	n, _ := w.s.ring.Write(data[:toPush])
	w.s.bytesPushed += uint64(n)
}

// Close marks the writer done; no more bytes will ever be pushed.
func (w Writer) Close() { w.s.closed = true }

// SetError marks the stream broken. Advisory only; does not clear buffered data.
func (w Writer) SetError() { w.s.errored = true }

// IsClosed reports whether Close has been called.
func (w Writer) IsClosed() bool { return w.s.closed }

// AvailableCapacity returns capacity - buffer_size.
func (w Writer) AvailableCapacity() uint64 { return w.s.availableCapacity() }

// BytesPushed returns the total number of bytes ever pushed.
func (w Writer) BytesPushed() uint64 { return w.s.bytesPushed }

// Reader is the consumer-facing capability view of a ByteStream.
type Reader struct {
	s *ByteStream
}

// Peek returns the contiguous buffered bytes currently available to read.
// The returned slice is a snapshot; mutating it does not affect the stream.
func (r Reader) Peek() []byte {
	return r.s.ring.Bytes(nil)
}

// Pop removes min(n, buffer_size) bytes from the front, advancing bytes_popped.
func (r Reader) Pop(n uint64) {
	avail := uint64(r.s.ring.Length())
	if n > avail {
		n = avail
	}
	if n == 0 {
		return
	}
	discard := make([]byte, n)
	read, _ := r.s.ring.Read(discard)
	r.s.bytesPopped += uint64(read)
}

// IsFinished reports closed && buffer_size == 0.
func (r Reader) IsFinished() bool {
	return r.s.closed && r.s.bufferSize() == 0
}

// HasError reports whether the stream's error flag has been set.
func (r Reader) HasError() bool { return r.s.errored }

// BytesBuffered returns the current buffer size.
func (r Reader) BytesBuffered() uint64 { return r.s.bufferSize() }

// BytesPopped returns the total number of bytes ever popped.
func (r Reader) BytesPopped() uint64 { return r.s.bytesPopped }
