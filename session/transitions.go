package session

import (
	"github.com/obarthel/amiga-sana-ii-tftpclient/codec"
	"github.com/obarthel/amiga-sana-ii-tftpclient/link"
	"github.com/obarthel/amiga-sana-ii-tftpclient/tftpconfig"
	"github.com/obarthel/amiga-sana-ii-tftpclient/tftperr"
)

const dataSegmentSize = codec.DataSegmentSize

// handleFrame classifies and dispatches one link-layer frame. The
// (Outcome, bool) result mirrors handleTimerExpiry's: bool is true only
// when the session has reached a terminal state and loop should return.
func (s *Session) handleFrame(f link.Frame) (Outcome, bool) {
	switch f.EtherType {
	case link.EtherTypeARP:
		return s.handleARP(f.Data)
	case link.EtherTypeIPv4:
		return s.handleIPv4(f.Data)
	default:
		return 0, false
	}
}

func (s *Session) handleARP(data []byte) (Outcome, bool) {
	msg, err := codec.ParseARP(data)
	if err != nil || msg == nil {
		// Too short to be an ARP message, or the hardware/protocol
		// format didn't match what we speak: silently dropped either
		// way, per the malformed-ARP-reply decision recorded in
		// DESIGN.md.
		return 0, false
	}

	if s.state != AwaitingArp {
		return 0, false
	}

	switch {
	case msg.Operation == codec.ARPReply && msg.SenderIP == s.cfg.RemoteAddr:
		s.remoteMAC = msg.SenderMAC
		if err := s.sendInitialRequest(); err != nil {
			return s.failNow(err)
		}
		s.state = AwaitingServerPort
		s.tm.Start(retransmitInterval)

	case msg.Operation == codec.ARPRequest &&
		msg.TargetIP == s.cfg.LocalAddr && msg.SenderIP != s.cfg.LocalAddr:
		s.sendARPReply(msg.SenderMAC, msg.SenderIP)
	}

	return 0, false
}

func (s *Session) handleIPv4(data []byte) (Outcome, bool) {
	hdr, err := codec.ParseIPv4(data)
	if err != nil || hdr.Version != 4 || hdr.HeaderLength != 5 {
		return 0, false
	}
	if !codec.VerifyIPv4Checksum(data) {
		return 0, false
	}

	payload := data[codec.IPv4HeaderLen:]

	switch hdr.Protocol {
	case codec.ProtoUDP:
		return s.handleUDP(data, payload)
	case codec.ProtoICMP:
		return s.handleICMP(payload)
	default:
		return 0, false
	}
}

func (s *Session) handleUDP(datagram, segment []byte) (Outcome, bool) {
	if !codec.VerifyUDPChecksum(datagram) {
		return 0, false
	}

	udpHdr, udpPayload, err := codec.ParseUDP(segment)
	if err != nil {
		return 0, false
	}

	if udpHdr.DstPort != s.clientPort {
		return 0, false
	}
	if s.serverPortKnown && udpHdr.SrcPort != s.serverPort {
		return 0, false
	}

	msg, err := codec.Parse(udpPayload)
	if err != nil {
		return 0, false
	}

	switch s.state {
	case AwaitingServerPort:
		return s.onAwaitingServerPort(udpHdr.SrcPort, msg)
	case Receiving:
		return s.onReceiving(msg)
	case Sending:
		return s.onSending(msg)
	default:
		return 0, false
	}
}

func (s *Session) onAwaitingServerPort(srcPort uint16, msg *codec.Message) (Outcome, bool) {
	if msg.Opcode == codec.OpERROR {
		return s.failNow(&tftperr.PeerError{Code: tftperr.Code(msg.ErrCode), Message: msg.ErrText})
	}

	switch {
	case s.cfg.Direction == tftpconfig.Download && msg.Opcode == codec.OpDATA && msg.Block == 1:
		s.bindServerPort(srcPort)

		if err := s.writeBlock(msg.Data); err != nil {
			s.sendError(tftperr.Undef, "Error writing to file")
			return s.failNow(errWriteFailure)
		}
		if len(msg.Data) < dataSegmentSize {
			s.lastBlockTransmitted = true
			// Pre-decrement: the ACK sent just below already counts as
			// the first of the dally retransmissions for a download
			// that completes in a single DATA packet.
			s.dallyLeft = initialDally - 1
		}

		if err := s.sendUDP(s.clientPort, s.serverPort, codec.BuildAck(1)); err != nil {
			return s.failNow(err)
		}

		s.expectedBlock = 2
		s.state = Receiving
		s.tm.Start(retransmitInterval)

	case s.cfg.Direction == tftpconfig.Upload && msg.Opcode == codec.OpACK && msg.Block == 0:
		s.bindServerPort(srcPort)
		return s.sendNextDataBlock(1)

	default:
		// Any other UDP in this state is ignored.
	}

	return 0, false
}

func (s *Session) bindServerPort(port uint16) {
	s.serverPort = port
	s.serverPortKnown = true
}

// sendNextDataBlock reads up to one segment from the source file, sends
// it as DATA(block), and marks lastBlockTransmitted per the
// short-read/block-number-wrap rule.
func (s *Session) sendNextDataBlock(block uint16) (Outcome, bool) {
	payload, err := s.readBlock()
	if err != nil {
		s.sendError(tftperr.Undef, "Error reading from file")
		return s.failNow(errReadFailure)
	}

	if len(payload) < dataSegmentSize || block+1 == 0 {
		// block+1 == 0 is the 16-bit wraparound case: sending this
		// block would make the next one collide with block 0.
		s.lastBlockTransmitted = true
	}

	if err := s.sendUDP(s.clientPort, s.serverPort, codec.BuildData(block, payload)); err != nil {
		return s.failNow(err)
	}

	s.currentBlock = block
	s.currentPayload = payload
	s.state = Sending
	s.tm.Start(retransmitInterval)

	return 0, false
}

func (s *Session) onReceiving(msg *codec.Message) (Outcome, bool) {
	switch msg.Opcode {
	case codec.OpERROR:
		return s.failNow(&tftperr.PeerError{Code: tftperr.Code(msg.ErrCode), Message: msg.ErrText})

	case codec.OpDATA:
		if msg.Block != s.expectedBlock {
			return 0, false // duplicate or out-of-order: silently ignored
		}

		if err := s.writeBlock(msg.Data); err != nil {
			s.sendError(tftperr.Undef, "Error writing to file")
			return s.failNow(errWriteFailure)
		}

		if len(msg.Data) < dataSegmentSize {
			s.lastBlockTransmitted = true
			s.dallyLeft = initialDally
		}

		if err := s.sendUDP(s.clientPort, s.serverPort, codec.BuildAck(msg.Block)); err != nil {
			return s.failNow(err)
		}

		s.expectedBlock++
		s.tm.Start(retransmitInterval)

	default:
		s.sendError(tftperr.BadOp, "Illegal TFTP operation")
		return s.failNow(errBadOpcode)
	}

	return 0, false
}

func (s *Session) onSending(msg *codec.Message) (Outcome, bool) {
	switch msg.Opcode {
	case codec.OpERROR:
		return s.failNow(&tftperr.PeerError{Code: tftperr.Code(msg.ErrCode), Message: msg.ErrText})

	case codec.OpACK:
		if msg.Block != s.currentBlock {
			return 0, false
		}

		if s.lastBlockTransmitted {
			return s.succeed()
		}

		return s.sendNextDataBlock(s.currentBlock + 1)

	default:
		s.sendError(tftperr.BadOp, "Illegal TFTP operation")
		return s.failNow(errBadOpcode)
	}

	return 0, false
}

// handleICMP implements the ICMP path: a destination-unreachable
// message is fatal unless the final TFTP block has already gone out,
// in which case some servers' late socket teardown produces a benign
// spurious "port unreachable" that must not fail the transfer.
func (s *Session) handleICMP(payload []byte) (Outcome, bool) {
	if s.state == AwaitingArp {
		return 0, false
	}

	unreachable, err := codec.ParseICMPUnreachable(payload)
	if err != nil || unreachable == nil {
		return 0, false
	}

	if s.lastBlockTransmitted {
		return 0, false
	}

	return s.failNow(&tftperr.ICMPUnreachableError{Subcode: tftperr.ICMPSubcode(unreachable.Code)})
}

// handleTimerExpiry re-drives the retransmission logic for the current
// state.
func (s *Session) handleTimerExpiry() (Outcome, bool) {
	switch s.state {
	case AwaitingArp:
		s.arpAttemptsLeft--
		if s.arpAttemptsLeft <= 0 {
			return s.failNow(&tftperr.ArpUnreachableError{Attempts: initialArpAttempts})
		}
		s.sendARPQuery()
		s.tm.Start(retransmitInterval)

	case AwaitingServerPort:
		if err := s.sendInitialRequest(); err != nil {
			return s.failNow(err)
		}
		s.tm.Start(retransmitInterval)

	case Receiving:
		if s.lastBlockTransmitted {
			s.dallyLeft--
			if s.dallyLeft <= 0 {
				return s.succeed()
			}
			if err := s.sendUDP(s.clientPort, s.serverPort, codec.BuildAck(s.expectedBlock-1)); err != nil {
				return s.failNow(err)
			}
		}
		s.tm.Start(retransmitInterval)

	case Sending:
		if err := s.sendUDP(s.clientPort, s.serverPort, codec.BuildData(s.currentBlock, s.currentPayload)); err != nil {
			return s.failNow(err)
		}
		s.tm.Start(retransmitInterval)
	}

	return 0, false
}
