package codec

import "encoding/binary"

// UDPHeaderLen is the size in bytes of a UDP header.
const UDPHeaderLen = 8

// UDPHeader is the parsed form of a received UDP segment.
type UDPHeader struct {
	SrcPort  uint16
	DstPort  uint16
	Length   uint16
	Checksum uint16
}

// BuildUDP assembles a complete UDP segment (header + payload) addressed
// from srcPort to dstPort, computing the checksum over the 12-byte
// pseudo-header, the UDP header and the payload as specified in RFC 768.
//
// If len(payload) is odd, the checksum is computed as if a single zero
// byte followed it (Checksum pads a trailing odd byte); that pad byte is
// not part of the segment and is not counted in its length field.
func BuildUDP(src, dst [4]byte, srcPort, dstPort uint16, payload []byte) []byte {
	udpLen := UDPHeaderLen + len(payload)

	segment := make([]byte, udpLen)
	binary.BigEndian.PutUint16(segment[0:2], srcPort)
	binary.BigEndian.PutUint16(segment[2:4], dstPort)
	binary.BigEndian.PutUint16(segment[4:6], uint16(udpLen))
	binary.BigEndian.PutUint16(segment[6:8], 0) // checksum, filled below
	copy(segment[8:], payload)

	checksum := udpChecksum(src, dst, segment)
	binary.BigEndian.PutUint16(segment[6:8], checksum)

	return segment
}

// udpChecksum computes the RFC 768 checksum of segment (a UDP header plus
// payload, checksum field already zeroed) using the 12-byte IPv4
// pseudo-header {src, dst, zero, protocol, UDP length}, for use when
// building a segment to transmit.
func udpChecksum(src, dst [4]byte, segment []byte) uint16 {
	sum := rawUDPChecksum(src, dst, segment)
	if sum == 0 {
		// RFC 768: an all-zero computed checksum is transmitted as
		// all-ones, since all-zero already means "no checksum".
		return 0xffff
	}
	return sum
}

// rawUDPChecksum folds the pseudo-header plus segment with no build-time
// remapping applied, so callers verifying a received checksum (where the
// fixpoint is zero, not 0xffff) get the raw Internet checksum directly.
func rawUDPChecksum(src, dst [4]byte, segment []byte) uint16 {
	pseudo := make([]byte, 12+len(segment))
	copy(pseudo[0:4], src[:])
	copy(pseudo[4:8], dst[:])
	pseudo[8] = 0
	pseudo[9] = ProtoUDP
	binary.BigEndian.PutUint16(pseudo[10:12], uint16(len(segment)))
	copy(pseudo[12:], segment)

	return Checksum(pseudo)
}

// ParseUDP parses b as a UDP header followed by its payload.
func ParseUDP(b []byte) (*UDPHeader, []byte, error) {
	if len(b) < UDPHeaderLen {
		return nil, nil, errShortUDP
	}

	h := &UDPHeader{
		SrcPort:  binary.BigEndian.Uint16(b[0:2]),
		DstPort:  binary.BigEndian.Uint16(b[2:4]),
		Length:   binary.BigEndian.Uint16(b[4:6]),
		Checksum: binary.BigEndian.Uint16(b[6:8]),
	}

	payload := b[UDPHeaderLen:]
	if int(h.Length) >= UDPHeaderLen && int(h.Length)-UDPHeaderLen <= len(payload) {
		payload = payload[:int(h.Length)-UDPHeaderLen]
	}

	return h, payload, nil
}

// VerifyUDPChecksum reports whether the UDP segment carried by datagram
// (the full IPv4 datagram, header then UDP segment) has a valid
// checksum. A checksum field of exactly zero is accepted without
// verification, matching historical TFTP peers that omit it (RFC 768).
func VerifyUDPChecksum(datagram []byte) bool {
	if len(datagram) < IPv4HeaderLen+UDPHeaderLen {
		return false
	}

	udp := datagram[IPv4HeaderLen:]
	checksumField := binary.BigEndian.Uint16(udp[6:8])
	if checksumField == 0 {
		return true
	}

	var src, dst [4]byte
	copy(src[:], datagram[12:16])
	copy(dst[:], datagram[16:20])

	udpLen := binary.BigEndian.Uint16(udp[4:6])
	if int(udpLen) > len(udp) {
		return false
	}
	segment := udp[:udpLen]

	// Fixpoint check: the raw Internet checksum of a correctly
	// checksummed segment, computed with the checksum field left as
	// received, folds to zero. Unlike udpChecksum, this must not apply
	// the build-time zero-to-0xffff remap, or every validly-checksummed
	// datagram would be rejected.
	return rawUDPChecksum(src, dst, segment) == 0
}

var errShortUDP = udpParseError("codec: short UDP header")

type udpParseError string

func (e udpParseError) Error() string { return string(e) }
