// Package router implements a longest-prefix-match IPv4 router over a fixed
// set of NetworkInterfaces: decrementing TTL, recomputing the header
// checksum, and forwarding onto the interface a route names.
package router

import (
	"net/netip"

	"github.com/gaissmai/bart"
	"go.uber.org/zap"

	"github.com/csci1680/minnow-tcpip/netaddr"
	"github.com/csci1680/minnow-tcpip/netlink"
	"github.com/csci1680/minnow-tcpip/wire/ipv4"
)

// RouteInfo is one entry of the routing table.
type RouteInfo struct {
	Prefix     uint32
	PrefixLen  int
	NextHop    netaddr.Address
	HasNextHop bool
	IfaceIdx   int
}

// Router holds a longest-prefix-match table over a fixed slice of
// interfaces and forwards datagrams received on any of them.
//
// The table is a bart.Table rather than the source's vector kept sorted by
// prefix_len descending: bart's radix trie already returns the
// longest-matching entry on Lookup, so there is no table to re-sort on
// every AddRoute and no linear scan on every forward.
type Router struct {
	ifaces []*netlink.Interface
	table  *bart.Table[RouteInfo]
	log    *zap.SugaredLogger
}

// New constructs a Router over ifaces, indexed by their position in the
// slice (RouteInfo.IfaceIdx refers to that position).
func New(ifaces []*netlink.Interface, log *zap.SugaredLogger) *Router {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Router{
		ifaces: ifaces,
		table:  &bart.Table[RouteInfo]{},
		log:    log,
	}
}

// AddRoute installs a route for prefix/prefixLen via ifaceIdx, optionally
// through nextHop (absent meaning "send directly to the datagram's
// destination"). A second AddRoute for the exact same prefix/prefixLen is
// ignored, so the first one stays in effect: the spec's tie-break by insertion
// order after a stable sort only ever matters between routes an LPM lookup
// could not otherwise distinguish, which is precisely the identical-prefix
// case, so the earliest insertion wins.
func (r *Router) AddRoute(prefixNumeric uint32, prefixLen int, nextHop netaddr.Address, hasNextHop bool, ifaceIdx int) {
	p := netip.PrefixFrom(netaddr.FromIPv4Numeric(prefixNumeric).Netip(), prefixLen)
	if _, dup := r.table.Get(p); dup {
		return
	}
	r.table.Insert(p, RouteInfo{
		Prefix:     prefixNumeric,
		PrefixLen:  prefixLen,
		NextHop:    nextHop,
		HasNextHop: hasNextHop,
		IfaceIdx:   ifaceIdx,
	})
}

// Route drains every interface's queue of received datagrams and forwards
// each one, in per-interface arrival order.
func (r *Router) Route() {
	for _, iface := range r.ifaces {
		for _, dgram := range iface.DrainDatagrams() {
			r.forward(dgram)
		}
	}
}

func (r *Router) forward(dgram ipv4.Datagram) {
	route, ok := r.table.Lookup(dgram.Dst.Netip())
	if !ok {
		r.log.Debugw("no matching route, dropping", "dst", dgram.Dst)
		return
	}
	if dgram.TTL <= 1 {
		r.log.Debugw("ttl expired, dropping", "dst", dgram.Dst)
		return
	}
	if route.IfaceIdx < 0 || route.IfaceIdx >= len(r.ifaces) {
		r.log.Errorw("route names an unknown interface", "idx", route.IfaceIdx)
		return
	}

	dgram.TTL--
	nextHop := dgram.Dst
	if route.HasNextHop {
		nextHop = route.NextHop
	}
	r.ifaces[route.IfaceIdx].SendDatagram(dgram, nextHop)
}
