// Package netlink implements NetworkInterface: the boundary between the IP
// layer and Ethernet, resolving next-hop IPv4 addresses via ARP and
// encapsulating/decapsulating IPv4-in-Ethernet frames.
package netlink

import (
	"bytes"
	"net"

	"go.uber.org/zap"

	"github.com/csci1680/minnow-tcpip/netaddr"
	"github.com/csci1680/minnow-tcpip/wire/arp"
	"github.com/csci1680/minnow-tcpip/wire/ethernet"
	"github.com/csci1680/minnow-tcpip/wire/ipv4"
)

const (
	arpCacheTTLMs    = 30000
	arpInflightTTLMs = 5000
)

type cacheEntry struct {
	eth   net.HardwareAddr
	ageMs uint64
}

// Interface is one NetworkInterface owned by a host's TCP/IP stack or by a
// Router.
type Interface struct {
	ethAddr net.HardwareAddr
	ipAddr  netaddr.Address
	log     *zap.SugaredLogger

	arpCache    map[uint32]cacheEntry
	arpInflight map[uint32]uint64
	pending     map[uint32][]ipv4.Datagram

	outQueue [][]byte
	rxQueue  [][]byte
}

// New constructs an Interface with the given Ethernet and IPv4 addresses.
func New(ethAddr net.HardwareAddr, ipAddr netaddr.Address, log *zap.SugaredLogger) *Interface {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Interface{
		ethAddr:     ethAddr,
		ipAddr:      ipAddr,
		log:         log,
		arpCache:    make(map[uint32]cacheEntry),
		arpInflight: make(map[uint32]uint64),
		pending:     make(map[uint32][]ipv4.Datagram),
	}
}

// IPAddr returns the interface's own IPv4 address.
func (i *Interface) IPAddr() netaddr.Address { return i.ipAddr }

// EthAddr returns the interface's own Ethernet address.
func (i *Interface) EthAddr() net.HardwareAddr { return i.ethAddr }

func (i *Interface) enqueueFrame(dst net.HardwareAddr, etherType ethernet.EtherType, payload []byte) {
	raw, err := ethernet.Serialize(ethernet.Frame{Dst: dst, Src: i.ethAddr, Type: etherType, Payload: payload})
	if err != nil {
		i.log.Errorw("failed to serialize ethernet frame", "err", err)
		return
	}
	i.outQueue = append(i.outQueue, raw)
}

// SendDatagram encapsulates dgram in an Ethernet frame addressed to
// nextHop's resolved Ethernet address, queuing an ARP request and parking
// the datagram if the mapping isn't known yet.
func (i *Interface) SendDatagram(dgram ipv4.Datagram, nextHop netaddr.Address) {
	nextHopNumeric := nextHop.IPv4Numeric()

	payload, err := ipv4.Serialize(dgram)
	if err != nil {
		i.log.Errorw("failed to serialize ipv4 datagram", "err", err)
		return
	}

	if entry, ok := i.arpCache[nextHopNumeric]; ok {
		i.enqueueFrame(entry.eth, ethernet.TypeIPv4, payload)
		return
	}

	i.pending[nextHopNumeric] = append(i.pending[nextHopNumeric], dgram)

	if _, waiting := i.arpInflight[nextHopNumeric]; waiting {
		return
	}
	i.arpInflight[nextHopNumeric] = 0

	req, err := arp.Serialize(arp.Message{
		Op:        arp.Request,
		SenderEth: i.ethAddr,
		SenderIP:  i.ipAddr,
		TargetEth: ethernet.Broadcast,
		TargetIP:  nextHop,
	})
	if err != nil {
		i.log.Errorw("failed to serialize arp request", "err", err)
		return
	}
	i.enqueueFrame(ethernet.Broadcast, ethernet.TypeARP, req)
}

// RecvFrame decodes one inbound Ethernet frame, returning the carried IPv4
// datagram if there is one to hand up the stack.
func (i *Interface) RecvFrame(raw []byte) (ipv4.Datagram, bool) {
	frame, ok := ethernet.Parse(raw)
	if !ok {
		return ipv4.Datagram{}, false
	}
	if !bytes.Equal(frame.Dst, i.ethAddr) && !bytes.Equal(frame.Dst, ethernet.Broadcast) {
		return ipv4.Datagram{}, false
	}

	switch frame.Type {
	case ethernet.TypeIPv4:
		dgram, ok := ipv4.Parse(frame.Payload)
		if !ok {
			return ipv4.Datagram{}, false
		}
		return dgram, true

	case ethernet.TypeARP:
		i.recvARP(frame)
		return ipv4.Datagram{}, false

	default:
		return ipv4.Datagram{}, false
	}
}

func (i *Interface) recvARP(frame ethernet.Frame) {
	msg, ok := arp.Parse(frame.Payload)
	if !ok {
		return
	}

	senderNumeric := msg.SenderIP.IPv4Numeric()
	i.arpCache[senderNumeric] = cacheEntry{eth: msg.SenderEth, ageMs: 0}
	delete(i.arpInflight, senderNumeric)

	for _, dgram := range i.pending[senderNumeric] {
		payload, err := ipv4.Serialize(dgram)
		if err != nil {
			i.log.Errorw("failed to serialize pending datagram", "err", err)
			continue
		}
		i.enqueueFrame(msg.SenderEth, ethernet.TypeIPv4, payload)
	}
	delete(i.pending, senderNumeric)

	if msg.Op == arp.Request && msg.TargetIP.IPv4Numeric() == i.ipAddr.IPv4Numeric() {
		reply, err := arp.Serialize(arp.Message{
			Op:        arp.Reply,
			SenderEth: i.ethAddr,
			SenderIP:  i.ipAddr,
			TargetEth: msg.SenderEth,
			TargetIP:  msg.SenderIP,
		})
		if err != nil {
			i.log.Errorw("failed to serialize arp reply", "err", err)
			return
		}
		i.enqueueFrame(msg.SenderEth, ethernet.TypeARP, reply)
	}
}

// DeliverFrame hands i a raw frame that arrived on its physical link, to be
// decoded on the next DrainDatagrams call. The wire layer (or a test) is
// responsible for calling this once per frame it observes for i.
func (i *Interface) DeliverFrame(raw []byte) {
	i.rxQueue = append(i.rxQueue, raw)
}

// DrainDatagrams decodes every frame queued since the last call, returning
// the IPv4 datagrams among them in arrival order. ARP frames are handled as
// a side effect (cache learning, pending flush, replies) and never appear
// in the result, matching RecvFrame's contract.
func (i *Interface) DrainDatagrams() []ipv4.Datagram {
	if len(i.rxQueue) == 0 {
		return nil
	}
	var out []ipv4.Datagram
	for _, raw := range i.rxQueue {
		if dgram, ok := i.RecvFrame(raw); ok {
			out = append(out, dgram)
		}
	}
	i.rxQueue = i.rxQueue[:0]
	return out
}

// MaybeSend returns and dequeues the next frame ready for transmission.
func (i *Interface) MaybeSend() ([]byte, bool) {
	if len(i.outQueue) == 0 {
		return nil, false
	}
	frame := i.outQueue[0]
	i.outQueue = i.outQueue[1:]
	return frame, true
}

// Tick ages ARP cache and in-flight entries by deltaMs, lazily evicting
// anything past its TTL. We keep plain maps with an explicit age counter
// rather than a wall-clock TTL cache, since eviction here must track the
// same virtual tick clock the rest of the stack runs on.
func (i *Interface) Tick(deltaMs uint64) {
	for ip, entry := range i.arpCache {
		entry.ageMs += deltaMs
		if entry.ageMs > arpCacheTTLMs {
			delete(i.arpCache, ip)
			continue
		}
		i.arpCache[ip] = entry
	}

	for ip, age := range i.arpInflight {
		age += deltaMs
		if age > arpInflightTTLMs {
			delete(i.arpInflight, ip)
			delete(i.pending, ip)
			continue
		}
		i.arpInflight[ip] = age
	}
}
