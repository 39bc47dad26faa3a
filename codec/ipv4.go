package codec

import (
	"encoding/binary"
	"errors"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// IPv4HeaderLen is the size in bytes of an IPv4 header with no options,
// the only kind this client ever builds or expects to parse.
const IPv4HeaderLen = 20

// ProtoUDP and ProtoICMP are the IPv4 protocol numbers this client cares
// about.
const (
	ProtoICMP = 1
	ProtoUDP  = 17
)

// IPv4Header is the subset of RFC 791 fields the session state machine
// needs in order to filter and route an incoming datagram.
type IPv4Header struct {
	Version      uint8
	HeaderLength uint8 // in 32-bit words, always 5 here
	TotalLength  uint16
	TTL          uint8
	Protocol     uint8
	Checksum     uint16
	Src          [4]byte
	Dst          [4]byte
}

// BuildIPv4UDP serializes a complete IPv4 datagram carrying udpPayload (an
// already-built UDP segment, header and data) as its payload. The total
// length field and the header checksum are both filled in here; the
// header checksum is computed over the 20-byte header only, as specified.
//
// gopacket/layers.IPv4 supplies the wire layout; the checksum itself is
// computed by Checksum (this package), not by gopacket, so that the
// exact algorithm spec.md pins down is the one that ends up on the wire.
func BuildIPv4UDP(src, dst [4]byte, udpSegment []byte) ([]byte, error) {
	totalLen := IPv4HeaderLen + len(udpSegment)
	if totalLen > 0xffff {
		return nil, errors.New("codec: IPv4 datagram too large")
	}

	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TOS:      0,
		Length:   uint16(totalLen),
		Id:       0,
		Flags:    0,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		Checksum: 0,
		SrcIP:    src[:],
		DstIP:    dst[:],
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: false, ComputeChecksums: false}
	if err := ip.SerializeTo(buf, opts); err != nil {
		return nil, err
	}

	out := buf.Bytes()
	header := make([]byte, IPv4HeaderLen)
	copy(header, out[:IPv4HeaderLen])

	// gopacket doesn't know our checksum algorithm; compute and place it
	// ourselves over the 20-byte header with the checksum field zeroed.
	binary.BigEndian.PutUint16(header[10:12], 0)
	csum := Checksum(header)
	binary.BigEndian.PutUint16(header[10:12], csum)

	result := make([]byte, 0, totalLen)
	result = append(result, header...)
	result = append(result, udpSegment...)

	return result, nil
}

// ParseIPv4 parses the first 20 bytes of b as an IPv4 header. It does not
// verify the header checksum; call VerifyIPv4Checksum for that.
func ParseIPv4(b []byte) (*IPv4Header, error) {
	if len(b) < IPv4HeaderLen {
		return nil, errors.New("codec: short IPv4 header")
	}

	verIHL := b[0]
	h := &IPv4Header{
		Version:      verIHL >> 4,
		HeaderLength: verIHL & 0x0f,
		TotalLength:  binary.BigEndian.Uint16(b[2:4]),
		TTL:          b[8],
		Protocol:     b[9],
		Checksum:     binary.BigEndian.Uint16(b[10:12]),
	}
	copy(h.Src[:], b[12:16])
	copy(h.Dst[:], b[16:20])

	return h, nil
}

// VerifyIPv4Checksum reports whether the checksum over the first 20 bytes
// of b (the IPv4 header, no options) folds to zero.
func VerifyIPv4Checksum(b []byte) bool {
	if len(b) < IPv4HeaderLen {
		return false
	}
	return Checksum(b[:IPv4HeaderLen]) == 0
}
