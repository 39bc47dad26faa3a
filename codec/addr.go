package codec

import (
	"encoding/binary"
	"strings"
)

// ParseIPv4Text parses a dotted-quad IPv4 address the way the BSD
// inet_aton(3) function does: up to four components separated by dots,
// each taken as octal if it starts with '0', hexadecimal if it starts
// with "0x"/"0X", decimal otherwise. The forms "a.b.c.d", "a.b.c" (c
// treated as 16 bits), "a.b" (b treated as 24 bits) and "a" (32 bits)
// are all accepted. Trailing whitespace is allowed; any other trailing
// character is rejected.
func ParseIPv4Text(s string) (uint32, bool) {
	var parts [3]uint32
	nParts := 0

	cp := s
	var val uint32

	for {
		if len(cp) == 0 {
			break
		}

		c := cp[0]
		if !isDigit(c) {
			return 0, false
		}

		base := 10
		if c == '0' {
			cp = cp[1:]
			if len(cp) > 0 && (cp[0] == 'x' || cp[0] == 'X') {
				base = 16
				cp = cp[1:]
			} else {
				base = 8
			}
		}

		val = 0
		for len(cp) > 0 {
			ch := cp[0]
			if isDigit(ch) {
				val = val*uint32(base) + uint32(ch-'0')
				cp = cp[1:]
				continue
			}
			if base == 16 && isHexAlpha(ch) {
				val = val*16 + uint32(hexVal(ch))
				cp = cp[1:]
				continue
			}
			break
		}

		if len(cp) > 0 && cp[0] == '.' {
			if nParts >= 3 || val > 0xff {
				return 0, false
			}
			parts[nParts] = val
			nParts++
			cp = cp[1:]
			continue
		}

		break
	}

	if len(cp) > 0 && !isSpace(cp[0]) {
		return 0, false
	}

	var addr uint32

	switch nParts {
	case 0: // "a" -- 32 bits
		addr = val
	case 1: // "a.b" -- 8.24 bits
		if val > 0xffffff {
			return 0, false
		}
		addr = (parts[0] << 24) | val
	case 2: // "a.b.c" -- 8.8.16 bits
		if val > 0xffff {
			return 0, false
		}
		addr = (parts[0] << 24) | (parts[1] << 16) | val
	case 3: // "a.b.c.d" -- 8.8.8.8 bits
		if val > 0xff {
			return 0, false
		}
		addr = (parts[0] << 24) | (parts[1] << 16) | (parts[2] << 8) | val
	default:
		return 0, false
	}

	return addr, true
}

// ParseIPv4Bytes is ParseIPv4Text returning the address as big-endian
// bytes, as most callers here want it.
func ParseIPv4Bytes(s string) ([4]byte, bool) {
	v, ok := ParseIPv4Text(s)
	var out [4]byte
	if !ok {
		return out, false
	}
	binary.BigEndian.PutUint32(out[:], v)
	return out, true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f' }
func isHexAlpha(c byte) bool {
	return (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
func hexVal(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

// hostPathStackLimit mirrors the small fixed-size stack buffer the
// original implementation copies a candidate address into before
// attempting to parse it.
const hostPathStackLimit = 40

// SplitHostPath splits a "host:path" string into an IPv4 address and the
// path following the colon. If the text before the first colon does not
// parse as an IPv4 address, or is too long to fit the small address
// buffer this function uses, it returns a zero address and the original
// string unchanged.
func SplitHostPath(s string) (uint32, string) {
	i := strings.IndexByte(s, ':')
	if i < 0 {
		return 0, s
	}

	addrPart := s[:i]
	if len(addrPart) >= hostPathStackLimit {
		return 0, s
	}

	addr, ok := ParseIPv4Text(addrPart)
	if !ok {
		return 0, s
	}

	return addr, s[i+1:]
}
