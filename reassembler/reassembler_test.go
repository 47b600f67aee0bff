package reassembler

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/csci1680/minnow-tcpip/bytestream"
)

func TestInOrderInserts(t *testing.T) {
	c := qt.New(t)

	s := bytestream.New(8)
	w, r := s.Writer(), s.Reader()
	re := New()

	re.Insert(0, []byte("ab"), false, w)
	re.Insert(2, []byte("cd"), true, w)

	c.Check(string(r.Peek()), qt.Equals, "abcd")
	c.Check(r.IsFinished(), qt.IsFalse)
	r.Pop(4)
	c.Check(r.IsFinished(), qt.IsTrue)
	c.Check(re.BytesPending(), qt.Equals, uint64(0))
}

func TestOverlappingInsertsAreIdempotent(t *testing.T) {
	c := qt.New(t)

	s := bytestream.New(8)
	w, r := s.Writer(), s.Reader()
	re := New()

	re.Insert(2, []byte("cd"), false, w)
	re.Insert(0, []byte("abcd"), false, w)

	c.Check(string(r.Peek()), qt.Equals, "abcd")
	c.Check(re.BytesPending(), qt.Equals, uint64(0))
}

func TestUnreachableBytesAreDropped(t *testing.T) {
	c := qt.New(t)

	s := bytestream.New(2) // tiny window
	w, r := s.Writer(), s.Reader()
	re := New()

	re.Insert(0, []byte("abcdef"), false, w)
	c.Check(string(r.Peek()), qt.Equals, "ab")
	c.Check(w.BytesPushed(), qt.Equals, uint64(2))
}

func TestEmptyLastFragmentClosesStream(t *testing.T) {
	c := qt.New(t)

	s := bytestream.New(8)
	w, r := s.Writer(), s.Reader()
	re := New()

	re.Insert(0, []byte("ab"), false, w)
	re.Insert(2, nil, true, w)

	r.Pop(2)
	c.Check(r.IsFinished(), qt.IsTrue)
}

func TestFragmentBeforeWindowExtendingPastItIsPartiallyAccepted(t *testing.T) {
	c := qt.New(t)

	s := bytestream.New(8)
	w, r := s.Writer(), s.Reader()
	re := New()

	re.Insert(0, []byte("ab"), false, w)
	r.Pop(2) // U is now 2, but bytes still counted via BytesPushed

	// Fragment starts before U=2 and extends past it.
	re.Insert(0, []byte("abcd"), false, w)
	c.Check(string(r.Peek()), qt.Equals, "cd")
}

func TestOutOfOrderThenFillGap(t *testing.T) {
	c := qt.New(t)

	s := bytestream.New(8)
	w, r := s.Writer(), s.Reader()
	re := New()

	re.Insert(2, []byte("cd"), true, w)
	c.Check(r.BytesBuffered(), qt.Equals, uint64(0))
	c.Check(re.BytesPending(), qt.Equals, uint64(2))

	re.Insert(0, []byte("ab"), false, w)
	c.Check(string(r.Peek()), qt.Equals, "abcd")
	r.Pop(4)
	c.Check(r.IsFinished(), qt.IsTrue)
}
