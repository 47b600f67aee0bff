// Package netaddr bridges between net/netip's Addr/Prefix types and the
// 32-bit numeric form the wire-level ARP/IPv4 collaborators (and the
// Router's longest-prefix-match table) operate on.
package netaddr

import (
	"encoding/binary"
	"net/netip"
)

// Address wraps a net/netip.Addr constrained to IPv4.
type Address struct {
	addr netip.Addr
}

// FromNetip wraps an existing netip.Addr.
func FromNetip(addr netip.Addr) Address {
	return Address{addr: addr}
}

// FromIPv4Numeric builds an Address from its big-endian 32-bit form.
func FromIPv4Numeric(n uint32) Address {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], n)
	return Address{addr: netip.AddrFrom4(buf)}
}

// IPv4Numeric returns the address as a big-endian-packed uint32.
func (a Address) IPv4Numeric() uint32 {
	b := a.addr.As4()
	return binary.BigEndian.Uint32(b[:])
}

// Netip returns the underlying netip.Addr.
func (a Address) Netip() netip.Addr { return a.addr }

// IsValid reports whether a holds a real address (the zero Address is invalid).
func (a Address) IsValid() bool { return a.addr.IsValid() }

// String formats the address, or "*" for the invalid zero value.
func (a Address) String() string {
	if !a.addr.IsValid() {
		return "*"
	}
	return a.addr.String()
}
