package codec

import (
	"encoding/binary"
	"errors"
)

// ICMPHeaderLen is the size of the ICMP header fields this client reads:
// type, code, checksum and the 4 unused/reserved bytes that precede the
// embedded IP header of a destination-unreachable message.
const ICMPHeaderLen = 8

const icmpTypeDestUnreachable = 3

// ICMPUnreachable is the parsed form of an ICMP type-3 message: the
// subcode and the IPv4 header it embeds (enough to identify which of our
// outgoing datagrams triggered it).
type ICMPUnreachable struct {
	Code       uint8
	Embedded   IPv4Header
}

// ParseICMPUnreachable parses an ICMP message, returning a non-nil result
// only if it is a destination-unreachable (type 3) message whose checksum
// (header, reserved bytes, and embedded IP header/payload) is correct.
func ParseICMPUnreachable(b []byte) (*ICMPUnreachable, error) {
	if len(b) < ICMPHeaderLen+IPv4HeaderLen {
		return nil, errors.New("codec: short ICMP message")
	}

	if Checksum(b) != 0 {
		return nil, nil
	}

	if b[0] != icmpTypeDestUnreachable {
		return nil, nil
	}

	embedded, err := ParseIPv4(b[ICMPHeaderLen:])
	if err != nil {
		return nil, nil
	}

	return &ICMPUnreachable{Code: b[1], Embedded: *embedded}, nil
}

// BuildICMPUnreachable is provided for test fixtures that need to
// synthesize an ICMP destination-unreachable message as a TFTP server's
// collapsing stack would send it.
func BuildICMPUnreachable(code uint8, embeddedIPHeader []byte) []byte {
	msg := make([]byte, ICMPHeaderLen+len(embeddedIPHeader))
	msg[0] = icmpTypeDestUnreachable
	msg[1] = code
	binary.BigEndian.PutUint16(msg[2:4], 0)
	copy(msg[ICMPHeaderLen:], embeddedIPHeader)

	csum := Checksum(msg)
	binary.BigEndian.PutUint16(msg[2:4], csum)

	return msg
}
