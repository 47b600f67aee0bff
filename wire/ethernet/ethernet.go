// Package ethernet serializes and parses the Ethernet frames that carry ARP
// and IPv4 payloads between NetworkInterfaces, using gopacket's layer codecs.
package ethernet

import (
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/pkg/errors"
)

// Broadcast is the Ethernet broadcast address.
var Broadcast = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// EtherType identifies the payload carried by a frame.
type EtherType uint16

const (
	TypeIPv4 EtherType = EtherType(layers.EthernetTypeIPv4)
	TypeARP  EtherType = EtherType(layers.EthernetTypeARP)
)

// Frame is a decoded Ethernet frame.
type Frame struct {
	Dst     net.HardwareAddr
	Src     net.HardwareAddr
	Type    EtherType
	Payload []byte
}

// Serialize encodes f as wire bytes. Frames shorter than the 60-byte
// Ethernet minimum are zero-padded to that size.
func Serialize(f Frame) ([]byte, error) {
	eth := &layers.Ethernet{
		SrcMAC:       f.Src,
		DstMAC:       f.Dst,
		EthernetType: layers.EthernetType(f.Type),
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, gopacket.Payload(f.Payload)); err != nil {
		return nil, errors.Wrap(err, "serialize ethernet frame")
	}
	return buf.Bytes(), nil
}

// Parse decodes raw into a Frame, or reports ok=false on malformed input.
// Payload is every byte after the header, including any minimum-size
// padding; the upper layer's own length field is what trims it.
func Parse(raw []byte) (Frame, bool) {
	pkt := gopacket.NewPacket(raw, layers.LayerTypeEthernet, gopacket.NoCopy)
	ethLayer, ok := pkt.Layer(layers.LayerTypeEthernet).(*layers.Ethernet)
	if !ok {
		return Frame{}, false
	}
	return Frame{
		Dst:     ethLayer.DstMAC,
		Src:     ethLayer.SrcMAC,
		Type:    EtherType(ethLayer.EthernetType),
		Payload: ethLayer.Payload,
	}, true
}
