// Package ipv4 serializes, parses, and checksums the IPv4 datagrams a
// Router and NetworkInterface exchange, built on the course's iptcp-headers
// codec and netstack's checksum routine.
package ipv4

import (
	ipv4header "github.com/brown-csci1680/iptcp-headers"
	"github.com/google/netstack/tcpip/header"
	"github.com/pkg/errors"

	"github.com/csci1680/minnow-tcpip/netaddr"
)

// HeaderLen is the fixed (no-options) IPv4 header length in bytes.
const HeaderLen = ipv4header.HeaderLen

// Datagram is a decoded IPv4 packet.
type Datagram struct {
	TTL      int
	Protocol int
	Src      netaddr.Address
	Dst      netaddr.Address
	Payload  []byte
}

// computeChecksum returns the internet checksum of headerBytes, with the
// checksum field assumed to be zero.
func computeChecksum(headerBytes []byte) uint16 {
	return header.Checksum(headerBytes, 0) ^ 0xffff
}

// Serialize encodes d as a full IPv4 datagram (header + payload), computing
// the header checksum.
func Serialize(d Datagram) ([]byte, error) {
	hdr := ipv4header.IPv4Header{
		Version:  4,
		Len:      HeaderLen,
		TotalLen: HeaderLen + len(d.Payload),
		TTL:      d.TTL,
		Protocol: d.Protocol,
		Checksum: 0,
		Src:      d.Src.Netip(),
		Dst:      d.Dst.Netip(),
		Options:  []byte{},
	}
	headerBytes, err := hdr.Marshal()
	if err != nil {
		return nil, errors.Wrap(err, "marshal ipv4 header")
	}
	hdr.Checksum = int(computeChecksum(headerBytes))
	headerBytes, err = hdr.Marshal()
	if err != nil {
		return nil, errors.Wrap(err, "marshal ipv4 header with checksum")
	}
	out := make([]byte, 0, len(headerBytes)+len(d.Payload))
	out = append(out, headerBytes...)
	out = append(out, d.Payload...)
	return out, nil
}

// Parse decodes raw into a Datagram, validating the header checksum.
func Parse(raw []byte) (Datagram, bool) {
	hdr, err := ipv4header.ParseHeader(raw)
	if err != nil {
		return Datagram{}, false
	}
	if header.Checksum(raw[:hdr.Len], 0) != 0xffff {
		return Datagram{}, false
	}
	if hdr.TotalLen > len(raw) {
		return Datagram{}, false
	}
	return Datagram{
		TTL:      hdr.TTL,
		Protocol: hdr.Protocol,
		Src:      netaddr.FromNetip(hdr.Src),
		Dst:      netaddr.FromNetip(hdr.Dst),
		Payload:  raw[hdr.Len:hdr.TotalLen],
	}, true
}
