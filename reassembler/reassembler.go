// Package reassembler turns arriving, possibly out-of-order byte fragments
// into the single ordered stream a ByteStream.Writer expects.
package reassembler

import (
	"github.com/tmthrgd/go-popcount"

	"github.com/csci1680/minnow-tcpip/bytestream"
)

// Reassembler buffers fragments over the acceptance window
// [first_unassembled, first_unassembled + W) and flushes the longest
// contiguous filled prefix to the writer on every insert.
//
// The window is stored as a byte slice plus a packed "filled" bitmap rather
// than a slice of (byte, bool) pairs: a flush only has to advance a start
// cursor (no O(window) erase, unlike the naive vector-erase approach), and
// the number of bytes pending reassembly is exactly the popcount of the
// bitmap, since every bit outside the live window is kept zeroed.
type Reassembler struct {
	buf   []byte
	bits  []byte // packed bitmap, bit i set iff buf[i] holds an unflushed byte
	start int    // buf/bits index of relative offset 0 (the writer's next expected byte)

	lastSeen  bool
	lastIndex uint64
}

// New constructs an empty Reassembler.
func New() *Reassembler {
	return &Reassembler{}
}

// BytesPending returns the number of filled-but-undelivered bytes.
func (r *Reassembler) BytesPending() uint64 {
	return popcount.CountBytes(r.bits)
}

func bitSet(bits []byte, i int) bool {
	return bits[i/8]&(1<<(uint(i)%8)) != 0
}

func setBit(bits []byte, i int) {
	bits[i/8] |= 1 << (uint(i) % 8)
}

func clearBit(bits []byte, i int) {
	bits[i/8] &^= 1 << (uint(i) % 8)
}

// ensureWindow makes sure physical slots [0, r.start+relLen) exist.
func (r *Reassembler) ensureWindow(relLen int) {
	needed := r.start + relLen
	if needed <= len(r.buf) {
		return
	}
	grownBuf := make([]byte, needed)
	copy(grownBuf, r.buf)
	r.buf = grownBuf

	neededBitBytes := (needed + 7) / 8
	if neededBitBytes > len(r.bits) {
		grownBits := make([]byte, neededBitBytes)
		copy(grownBits, r.bits)
		r.bits = grownBits
	}
}

// compact slides the live window down to index 0 so buf/bits don't grow
// without bound as start creeps forward.
func (r *Reassembler) compact() {
	if r.start == 0 {
		return
	}
	copy(r.buf, r.buf[r.start:])
	r.buf = r.buf[:len(r.buf)-r.start]

	// Shift the bitmap down by r.start bits.
	newBits := make([]byte, len(r.bits))
	for i := r.start; i < len(r.bits)*8; i++ {
		if bitSet(r.bits, i) {
			setBit(newBits, i-r.start)
		}
	}
	r.bits = newBits
	r.start = 0
}

// Insert accepts a fragment of the stream: first_index is its absolute
// stream offset, isLast marks it as containing the final byte of the
// stream, and writer is the ByteStream.Writer to push contiguous bytes into.
func (r *Reassembler) Insert(firstIndex uint64, data []byte, isLast bool, writer bytestream.Writer) {
	u := writer.BytesPushed()
	e := u + writer.AvailableCapacity()

	if isLast {
		r.lastSeen = true
		r.lastIndex = firstIndex + uint64(len(data))
	}

	if len(data) == 0 || firstIndex >= e {
		if r.lastSeen && r.BytesPending() == 0 && writer.BytesPushed() == r.lastIndex {
			writer.Close()
		}
		return
	}

	left := firstIndex
	if left < u {
		left = u
	}
	right := firstIndex + uint64(len(data))
	if right > e {
		right = e
	}

	if right > left {
		relEnd := int(right - u)
		r.ensureWindow(relEnd)
		for abs := left; abs < right; abs++ {
			rel := int(abs - u)
			phys := r.start + rel
			if !bitSet(r.bits, phys) {
				setBit(r.bits, phys)
				r.buf[phys] = data[abs-firstIndex]
			}
		}
	}

	// Flush the longest contiguous filled prefix.
	n := 0
	for r.start+n < len(r.buf) && bitSet(r.bits, r.start+n) {
		n++
	}
	if n > 0 {
		writer.Push(r.buf[r.start : r.start+n])
		for i := 0; i < n; i++ {
			clearBit(r.bits, r.start+i)
		}
		r.start += n
	}

	if r.start >= 4096 {
		r.compact()
	}

	if r.lastSeen && r.BytesPending() == 0 && writer.BytesPushed() == r.lastIndex {
		writer.Close()
	}
}
