package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// TFTP opcodes, RFC 1350 section 5.
const (
	OpRRQ   uint16 = 1
	OpWRQ   uint16 = 2
	OpDATA  uint16 = 3
	OpACK   uint16 = 4
	OpERROR uint16 = 5
)

// ModeOctet is the only transfer mode this client ever requests.
const ModeOctet = "octet"

// DataSegmentSize is the maximum payload carried by one DATA packet.
const DataSegmentSize = 512

// ErrFilenameTooLong is returned by BuildRequest when the request packet
// (opcode + filename + NUL + mode + NUL) would not fit in mtu bytes.
var ErrFilenameTooLong = errors.New("codec: filename too long for this MTU")

// BuildRequest serializes an RRQ or WRQ packet. mtu is the link MTU the
// caller is transmitting into; BuildRequest refuses to build a packet
// that would overflow it.
func BuildRequest(op uint16, filename string, mtu int) ([]byte, error) {
	need := 2 + len(filename) + 1 + len(ModeOctet) + 1
	if need > mtu {
		return nil, ErrFilenameTooLong
	}

	b := make([]byte, 0, need)
	var opBytes [2]byte
	binary.BigEndian.PutUint16(opBytes[:], op)
	b = append(b, opBytes[:]...)
	b = append(b, filename...)
	b = append(b, 0)
	b = append(b, ModeOctet...)
	b = append(b, 0)

	return b, nil
}

// BuildData serializes a DATA packet.
func BuildData(block uint16, payload []byte) []byte {
	b := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint16(b[0:2], OpDATA)
	binary.BigEndian.PutUint16(b[2:4], block)
	copy(b[4:], payload)
	return b
}

// BuildAck serializes an ACK packet.
func BuildAck(block uint16) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint16(b[0:2], OpACK)
	binary.BigEndian.PutUint16(b[2:4], block)
	return b
}

// BuildError serializes an ERROR packet.
func BuildError(code uint16, message string) []byte {
	b := make([]byte, 0, 4+len(message)+1)
	var hdr [4]byte
	binary.BigEndian.PutUint16(hdr[0:2], OpERROR)
	binary.BigEndian.PutUint16(hdr[2:4], code)
	b = append(b, hdr[:]...)
	b = append(b, message...)
	b = append(b, 0)
	return b
}

// Message is the parsed form of any TFTP packet.
type Message struct {
	Opcode   uint16
	Block    uint16    // DATA, ACK
	ErrCode  uint16    // ERROR
	ErrText  string    // ERROR
	Filename string    // RRQ, WRQ
	Mode     string    // RRQ, WRQ
	Data     []byte    // DATA payload
}

// Parse decodes a TFTP message carried as a UDP payload.
func Parse(b []byte) (*Message, error) {
	if len(b) < 2 {
		return nil, errors.New("codec: short TFTP message")
	}

	op := binary.BigEndian.Uint16(b[0:2])
	m := &Message{Opcode: op}

	switch op {
	case OpDATA:
		if len(b) < 4 {
			return nil, errors.New("codec: short DATA packet")
		}
		m.Block = binary.BigEndian.Uint16(b[2:4])
		m.Data = b[4:]

	case OpACK:
		if len(b) < 4 {
			return nil, errors.New("codec: short ACK packet")
		}
		m.Block = binary.BigEndian.Uint16(b[2:4])

	case OpERROR:
		if len(b) < 4 {
			return nil, errors.New("codec: short ERROR packet")
		}
		m.ErrCode = binary.BigEndian.Uint16(b[2:4])
		msg := b[4:]
		if i := bytes.IndexByte(msg, 0); i >= 0 {
			msg = msg[:i]
		}
		m.ErrText = string(msg)

	case OpRRQ, OpWRQ:
		rest := b[2:]
		i := bytes.IndexByte(rest, 0)
		if i < 0 {
			return nil, errors.New("codec: unterminated filename")
		}
		m.Filename = string(rest[:i])
		rest = rest[i+1:]
		j := bytes.IndexByte(rest, 0)
		if j < 0 {
			return nil, errors.New("codec: unterminated mode")
		}
		m.Mode = string(rest[:j])

	default:
		return nil, errors.New("codec: unknown TFTP opcode")
	}

	return m, nil
}
