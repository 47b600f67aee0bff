// Package arp serializes and parses the ARP request/reply messages a
// NetworkInterface exchanges to resolve next-hop IPv4 addresses to Ethernet
// addresses.
package arp

import (
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/pkg/errors"

	"github.com/csci1680/minnow-tcpip/netaddr"
)

// Opcode distinguishes a request from a reply.
type Opcode uint16

const (
	Request Opcode = Opcode(layers.ARPRequest)
	Reply   Opcode = Opcode(layers.ARPReply)
)

// Message is a decoded ARP packet (IPv4-over-Ethernet only; the stack never
// speaks any other hardware/protocol combination).
type Message struct {
	Op         Opcode
	SenderEth  net.HardwareAddr
	SenderIP   netaddr.Address
	TargetEth  net.HardwareAddr
	TargetIP   netaddr.Address
}

// Serialize encodes m as the ARP payload of an Ethernet frame (Ethernet
// header fields are supplied by the caller; this returns only the ARP
// layer's bytes).
func Serialize(m Message) ([]byte, error) {
	senderIP := m.SenderIP.Netip().As4()
	targetIP := m.TargetIP.Netip().As4()

	a := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         uint16(m.Op),
		SourceHwAddress:   m.SenderEth,
		SourceProtAddress: senderIP[:],
		DstHwAddress:      m.TargetEth,
		DstProtAddress:    targetIP[:],
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, a); err != nil {
		return nil, errors.Wrap(err, "serialize arp message")
	}
	return buf.Bytes(), nil
}

// Parse decodes raw ARP-layer bytes, rejecting anything that isn't
// Ethernet/IPv4 ARP.
func Parse(raw []byte) (Message, bool) {
	pkt := gopacket.NewPacket(raw, layers.LayerTypeARP, gopacket.NoCopy)
	a, ok := pkt.Layer(layers.LayerTypeARP).(*layers.ARP)
	if !ok ||
		a.AddrType != layers.LinkTypeEthernet ||
		a.Protocol != layers.EthernetTypeIPv4 ||
		a.HwAddressSize != 6 ||
		a.ProtAddressSize != 4 ||
		len(a.SourceProtAddress) != 4 ||
		len(a.DstProtAddress) != 4 {
		return Message{}, false
	}

	return Message{
		Op:        Opcode(a.Operation),
		SenderEth: net.HardwareAddr(a.SourceHwAddress),
		SenderIP:  netaddr.FromIPv4Numeric(ipv4BytesToNumeric(a.SourceProtAddress)),
		TargetEth: net.HardwareAddr(a.DstHwAddress),
		TargetIP:  netaddr.FromIPv4Numeric(ipv4BytesToNumeric(a.DstProtAddress)),
	}, true
}

func ipv4BytesToNumeric(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
