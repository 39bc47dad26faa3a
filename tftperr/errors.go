// Package tftperr defines the TFTP protocol error codes (RFC 1350) and
// the ICMP destination-unreachable subcodes this client needs to report
// to its caller, along with the human-readable text for both.
package tftperr

import "fmt"

// Code is a TFTP ERROR packet error code, RFC 1350 section 5.
type Code uint16

const (
	Undef      Code = 0
	NotFound   Code = 1
	Access     Code = 2
	NoSpace    Code = 3
	BadOp      Code = 4
	BadTID     Code = 5
	FileExists Code = 6
	NoUser     Code = 7
)

var tftpText = map[Code]string{
	Undef:      "Unspecified error type",
	NotFound:   "File not found",
	Access:     "Access violation",
	NoSpace:    "Disk full or allocation exceeded",
	BadOp:      "Illegal TFTP operation",
	BadTID:     "Unknown transfer ID",
	FileExists: "File already exists",
	NoUser:     "No such user",
}

// Text returns the RFC 1350 description for a TFTP error code, or a
// generic placeholder if the code is not one of the eight defined ones.
func (c Code) Text() string {
	if t, ok := tftpText[c]; ok {
		return t
	}
	return "Unknown TFTP error"
}

// PeerError is returned by the session state machine when the remote
// TFTP server sends an ERROR packet.
type PeerError struct {
	Code    Code
	Message string
}

func (e *PeerError) Error() string {
	return fmt.Sprintf("TFTP error %d (%s): %s", e.Code, e.Code.Text(), e.Message)
}

// ICMPSubcode identifies the "code" field of an ICMP type-3 (destination
// unreachable) message, RFC 792.
type ICMPSubcode uint8

const (
	ICMPNet              ICMPSubcode = 0
	ICMPHost             ICMPSubcode = 1
	ICMPProtocol         ICMPSubcode = 2
	ICMPPort             ICMPSubcode = 3
	ICMPFragNeeded       ICMPSubcode = 4
	ICMPSrcRouteFailed   ICMPSubcode = 5
	ICMPNetUnknown       ICMPSubcode = 6
	ICMPHostUnknown      ICMPSubcode = 7
	ICMPSrcHostIsolated  ICMPSubcode = 8
	ICMPNetProhibited    ICMPSubcode = 9
	ICMPHostProhibited   ICMPSubcode = 10
	ICMPTOSNet           ICMPSubcode = 11
	ICMPTOSHost          ICMPSubcode = 12
)

var icmpText = map[ICMPSubcode]string{
	ICMPNet:             "bad-network",
	ICMPHost:            "bad-host",
	ICMPProtocol:        "bad-protocol",
	ICMPPort:            "bad-port",
	ICMPFragNeeded:      "frag-needed",
	ICMPSrcRouteFailed:  "src-route-failed",
	ICMPNetUnknown:      "net-unknown",
	ICMPHostUnknown:     "host-unknown",
	ICMPSrcHostIsolated: "isolated",
	ICMPNetProhibited:   "prohibited",
	ICMPHostProhibited:  "prohibited",
	ICMPTOSNet:          "TOS-for-net",
	ICMPTOSHost:         "TOS-for-host",
}

// Text maps an ICMP destination-unreachable subcode to the short name
// spec.md section 7 uses for it.
func (c ICMPSubcode) Text() string {
	if t, ok := icmpText[c]; ok {
		return t
	}
	return "unreachable"
}

// ICMPUnreachableError is returned by the session when a destination
// unreachable message arrives before the last TFTP block was sent.
type ICMPUnreachableError struct {
	Subcode ICMPSubcode
}

func (e *ICMPUnreachableError) Error() string {
	return fmt.Sprintf("destination unreachable: %s", e.Subcode.Text())
}

// ArpUnreachableError is returned when the ARP retry budget is exhausted
// without a reply from the remote host.
type ArpUnreachableError struct {
	Attempts int
}

func (e *ArpUnreachableError) Error() string {
	return fmt.Sprintf("ARP resolution failed after %d attempts", e.Attempts)
}
