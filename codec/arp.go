package codec

import (
	"encoding/binary"
	"errors"
)

// ARPLen is the fixed size in bytes of an Ethernet/IPv4 ARP message
// (RFC 826): no options, no padding.
const ARPLen = 28

// ARP operation codes.
const (
	ARPRequest uint16 = 1
	ARPReply   uint16 = 2
)

const (
	arpHWFormatEthernet   uint16 = 1
	arpProtoFormatIPv4    uint16 = 0x0800
	arpHWAddrLen          uint8  = 6
	arpProtoAddrLen       uint8  = 4
)

// ARPMessage is the parsed form of an Ethernet/IPv4 ARP request or reply.
type ARPMessage struct {
	Operation  uint16
	SenderMAC  [6]byte
	SenderIP   [4]byte
	TargetMAC  [6]byte
	TargetIP   [4]byte
}

// BuildARP serializes an ARP request or reply. targetMAC may be the
// broadcast address (or all-zero; the spec permits either) for a
// broadcast query, since the peer is expected to ignore this field on a
// request.
func BuildARP(op uint16, senderMAC [6]byte, senderIP [4]byte, targetMAC [6]byte, targetIP [4]byte) []byte {
	b := make([]byte, ARPLen)

	binary.BigEndian.PutUint16(b[0:2], arpHWFormatEthernet)
	binary.BigEndian.PutUint16(b[2:4], arpProtoFormatIPv4)
	b[4] = arpHWAddrLen
	b[5] = arpProtoAddrLen
	binary.BigEndian.PutUint16(b[6:8], op)
	copy(b[8:14], senderMAC[:])
	copy(b[14:18], senderIP[:])
	copy(b[18:24], targetMAC[:])
	copy(b[24:28], targetIP[:])

	return b
}

// ParseARP parses b as an Ethernet/IPv4 ARP message. It returns an error
// only if b is too short to contain one. A message with an unexpected
// hardware/protocol format is reported as (nil, nil): callers are expected
// to silently ignore such replies rather than treat them as a failure.
func ParseARP(b []byte) (*ARPMessage, error) {
	if len(b) < ARPLen {
		return nil, errors.New("codec: short ARP message")
	}

	hwFormat := binary.BigEndian.Uint16(b[0:2])
	protoFormat := binary.BigEndian.Uint16(b[2:4])
	hwLen := b[4]
	protoLen := b[5]

	if hwFormat != arpHWFormatEthernet || protoFormat != arpProtoFormatIPv4 ||
		hwLen != arpHWAddrLen || protoLen != arpProtoAddrLen {
		return nil, nil
	}

	m := &ARPMessage{
		Operation: binary.BigEndian.Uint16(b[6:8]),
	}
	copy(m.SenderMAC[:], b[8:14])
	copy(m.SenderIP[:], b[14:18])
	copy(m.TargetMAC[:], b[18:24])
	copy(m.TargetIP[:], b[24:28])

	return m, nil
}
