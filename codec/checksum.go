// Package codec implements the byte-level construction and parsing of
// the ARP, IPv4, UDP, ICMP and TFTP messages this client sends and
// receives. Every function here is pure and allocation-light: it
// operates on byte slices handed to it by the link-layer pool and
// never retains them past the call. Cross-field semantic validation
// (is this the server we expect, is the block number right) is the
// session state machine's job, not this package's.
package codec

import "encoding/binary"

// Checksum computes the Internet one's-complement checksum (RFC 1071)
// over b. A trailing odd byte is treated as if padded with a zero byte.
// For a well-formed packet that already carries its own checksum field,
// Checksum(packetBytes) == 0.
func Checksum(b []byte) uint16 {
	var sum uint32

	n := len(b)
	i := 0
	for ; i+1 < n; i += 2 {
		sum += uint32(binary.BigEndian.Uint16(b[i : i+2]))
	}
	if i < n {
		sum += uint32(b[i]) << 8
	}

	// Two folds are enough to absorb the carry out of the first fold for
	// any buffer up to the link MTU.
	sum = (sum & 0xffff) + (sum >> 16)
	sum = (sum & 0xffff) + (sum >> 16)

	return ^uint16(sum)
}
