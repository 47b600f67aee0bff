package netlink

import (
	"net"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/csci1680/minnow-tcpip/netaddr"
	"github.com/csci1680/minnow-tcpip/wire/arp"
	"github.com/csci1680/minnow-tcpip/wire/ethernet"
	"github.com/csci1680/minnow-tcpip/wire/ipv4"
)

var (
	ethA = net.HardwareAddr{0, 0, 0, 0, 0, 0xA}
	ethB = net.HardwareAddr{0, 0, 0, 0, 0, 0xB}
	ipA  = netaddr.FromIPv4Numeric(0x0A000001)
	ipB  = netaddr.FromIPv4Numeric(0x0A000005)
)

func TestSendDatagramTriggersARPThenResolves(t *testing.T) {
	c := qt.New(t)

	iface := New(ethA, ipA, nil)
	dgram := ipv4.Datagram{TTL: 16, Protocol: 6, Src: ipA, Dst: ipB, Payload: []byte("hi")}

	iface.SendDatagram(dgram, ipB)

	raw, ok := iface.MaybeSend()
	c.Assert(ok, qt.IsTrue)
	frame, ok := ethernet.Parse(raw)
	c.Assert(ok, qt.IsTrue)
	c.Check(frame.Type, qt.Equals, ethernet.TypeARP)
	c.Check(frame.Dst, qt.DeepEquals, ethernet.Broadcast)

	_, ok = iface.MaybeSend()
	c.Check(ok, qt.IsFalse)

	// A reply arrives from B.
	reply, err := arp.Serialize(arp.Message{
		Op: arp.Reply, SenderEth: ethB, SenderIP: ipB, TargetEth: ethA, TargetIP: ipA,
	})
	c.Assert(err, qt.IsNil)
	replyFrame, err := ethernet.Serialize(ethernet.Frame{Dst: ethA, Src: ethB, Type: ethernet.TypeARP, Payload: reply})
	c.Assert(err, qt.IsNil)

	_, gotDgram := iface.RecvFrame(replyFrame)
	c.Check(gotDgram, qt.IsFalse)

	raw, ok = iface.MaybeSend()
	c.Assert(ok, qt.IsTrue)
	frame, ok = ethernet.Parse(raw)
	c.Assert(ok, qt.IsTrue)
	c.Check(frame.Type, qt.Equals, ethernet.TypeIPv4)
	c.Check(frame.Dst, qt.DeepEquals, ethB)

	// A second send to the same host now resolves immediately.
	iface.SendDatagram(dgram, ipB)
	raw, ok = iface.MaybeSend()
	c.Assert(ok, qt.IsTrue)
	frame, ok = ethernet.Parse(raw)
	c.Assert(ok, qt.IsTrue)
	c.Check(frame.Type, qt.Equals, ethernet.TypeIPv4)
}

func TestArpCacheExpiresAfterTTL(t *testing.T) {
	c := qt.New(t)

	iface := New(ethA, ipA, nil)
	dgram := ipv4.Datagram{TTL: 16, Protocol: 6, Src: ipA, Dst: ipB, Payload: []byte("hi")}
	iface.SendDatagram(dgram, ipB)
	iface.MaybeSend() // drain the ARP request

	reply, _ := arp.Serialize(arp.Message{Op: arp.Reply, SenderEth: ethB, SenderIP: ipB, TargetEth: ethA, TargetIP: ipA})
	replyFrame, _ := ethernet.Serialize(ethernet.Frame{Dst: ethA, Src: ethB, Type: ethernet.TypeARP, Payload: reply})
	iface.RecvFrame(replyFrame)
	iface.MaybeSend() // drain the parked datagram the reply flushed

	iface.Tick(30001)

	iface.SendDatagram(dgram, ipB)
	raw, ok := iface.MaybeSend()
	c.Assert(ok, qt.IsTrue)
	frame, _ := ethernet.Parse(raw)
	c.Check(frame.Type, qt.Equals, ethernet.TypeARP)
}

func TestRecvFrameDropsFramesNotAddressedToUs(t *testing.T) {
	c := qt.New(t)

	iface := New(ethA, ipA, nil)

	// A well-formed IPv4 datagram, so a false pass could only come from
	// skipping the destination-MAC check, not from a parse failure.
	dgramBytes, err := ipv4.Serialize(ipv4.Datagram{TTL: 16, Protocol: 6, Src: ipB, Dst: ipA, Payload: []byte("hi")})
	c.Assert(err, qt.IsNil)

	raw, err := ethernet.Serialize(ethernet.Frame{
		Dst: net.HardwareAddr{9, 9, 9, 9, 9, 9}, Src: ethB, Type: ethernet.TypeIPv4, Payload: dgramBytes,
	})
	c.Assert(err, qt.IsNil)

	_, ok := iface.RecvFrame(raw)
	c.Check(ok, qt.IsFalse)
}

func TestArpRequestForOurAddressGetsAReply(t *testing.T) {
	c := qt.New(t)

	iface := New(ethA, ipA, nil)
	req, _ := arp.Serialize(arp.Message{Op: arp.Request, SenderEth: ethB, SenderIP: ipB, TargetEth: ethernet.Broadcast, TargetIP: ipA})
	frame, _ := ethernet.Serialize(ethernet.Frame{Dst: ethernet.Broadcast, Src: ethB, Type: ethernet.TypeARP, Payload: req})

	iface.RecvFrame(frame)

	raw, ok := iface.MaybeSend()
	c.Assert(ok, qt.IsTrue)
	got, ok := ethernet.Parse(raw)
	c.Assert(ok, qt.IsTrue)
	c.Check(got.Dst, qt.DeepEquals, ethB)
	reply, ok := arp.Parse(got.Payload)
	c.Assert(ok, qt.IsTrue)
	c.Check(reply.Op, qt.Equals, arp.Reply)
}
