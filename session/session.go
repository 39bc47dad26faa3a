// Package session drives the ARP-then-TFTP transfer state machine
// described in the component design: resolve the server's hardware
// address over ARP, then run the RRQ/WRQ exchange to completion,
// retransmitting on a single interval timer and filtering every
// incoming frame before it is allowed to affect state.
package session

import (
	"errors"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/obarthel/amiga-sana-ii-tftpclient/codec"
	"github.com/obarthel/amiga-sana-ii-tftpclient/link"
	"github.com/obarthel/amiga-sana-ii-tftpclient/nettimer"
	"github.com/obarthel/amiga-sana-ii-tftpclient/tftpconfig"
	"github.com/obarthel/amiga-sana-ii-tftpclient/tftperr"
)

// initialArpAttempts is the ARP retry budget: one initial broadcast
// plus three retransmissions.
const initialArpAttempts = 4

// initialDally is the starting value of the receiver's dally counter.
// Each timer expiry after the final block decrements it; the final block
// is re-ACKed while the counter stays above zero and the transfer is
// declared complete when it reaches zero, so the final block is re-ACKed
// initialDally-1 times after its first ACK.
const initialDally = 3

// retransmitInterval is the Interval Timer's granularity; one second,
// per the component design.
const retransmitInterval = time.Second

var broadcastMAC = [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// Session is one ARP-then-TFTP transfer, driven to completion by Run.
type Session struct {
	cfg  *tftpconfig.Config
	pool *link.Pool
	tm   *nettimer.Timer
	log  *log.Logger

	state State

	clientPort uint16
	serverPort uint16
	serverPortKnown bool

	remoteMAC [6]byte
	arpAttemptsLeft int

	expectedBlock  uint16 // Receiving
	currentBlock   uint16 // Sending
	currentPayload []byte // Sending: last DATA payload sent, for retransmission

	lastBlockTransmitted bool
	dallyLeft            int

	file            *os.File
	deleteOnFailure bool

	finalErr error
}

// New constructs a Session over an already-open link pool. cfg must
// already have passed tftpconfig.Parse's validation.
func New(cfg *tftpconfig.Config, pool *link.Pool, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &Session{
		cfg:  cfg,
		pool: pool,
		tm:   nettimer.New(),
		log:  logger,
	}
}

// Run opens the local file, resolves the server's hardware address,
// runs the transfer to completion or failure, and reports the outcome.
// interrupt, if non-nil, is checked alongside link and timer events and
// ends the run cleanly (OutcomeFailure) when it fires.
func (s *Session) Run(interrupt <-chan os.Signal) (Outcome, error) {
	if err := s.openLocalFile(); err != nil {
		if errors.Is(err, ErrDestinationExists) {
			return OutcomeWarning, err
		}
		return OutcomeFailure, err
	}

	s.setup()

	outcome := s.loop(interrupt)

	succeeded := outcome == OutcomeSuccess
	s.closeLocalFile(succeeded)

	return outcome, s.finalErr
}

func (s *Session) setup() {
	s.clientPort = ephemeralPort()
	s.arpAttemptsLeft = initialArpAttempts
	s.state = AwaitingArp

	s.sendARPQuery()
	s.tm.Start(retransmitInterval)
}

// ephemeralPort picks the client's UDP source port from 49152..65535,
// using the process UID as the "unique ID facility" this client has
// available, falling back to a wall-clock-seeded PRNG if that ever
// looks unusable.
func ephemeralPort() uint16 {
	if uid := os.Getuid(); uid >= 0 {
		return uint16(49152 + (uid % 16384))
	}
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	return uint16(49152 + r.Intn(16384))
}

// loop is the single-threaded cooperative event loop: it blocks on
// link-read completion, timer completion, and interrupt, draining
// every currently-signalled read before consulting the timer, exactly
// the priority order the concurrency model mandates.
func (s *Session) loop(interrupt <-chan os.Signal) Outcome {
	completions := s.pool.RecvCompletions()

	for {
		select {
		case c, ok := <-completions:
			if !ok {
				s.fail(errors.New("session: link closed unexpectedly"))
				return OutcomeError
			}
			if outcome, done := s.handleCompletion(c); done {
				return outcome
			}
			continue
		default:
		}

		select {
		case c, ok := <-completions:
			if !ok {
				s.fail(errors.New("session: link closed unexpectedly"))
				return OutcomeError
			}
			if outcome, done := s.handleCompletion(c); done {
				return outcome
			}

		case <-s.tm.C():
			if outcome, done := s.handleTimerExpiry(); done {
				return outcome
			}

		case <-interrupt:
			s.fail(errors.New("session: interrupted"))
			return OutcomeFailure
		}
	}
}

func (s *Session) handleCompletion(c link.Completion) (Outcome, bool) {
	if c.Err != nil {
		s.fail(c.Err)
		return OutcomeError, true
	}
	return s.handleFrame(c.Frame)
}

// succeed marks the session Completed and returns control to loop.
func (s *Session) succeed() (Outcome, bool) {
	s.tm.Stop()
	s.state = Completed
	return OutcomeSuccess, true
}

// fail records the terminal error and marks the session Failed.
func (s *Session) fail(err error) {
	s.tm.Stop()
	s.state = Failed
	s.finalErr = err
}

// failNow records err as the terminal failure. Every failure path a
// Session can reach on its own (peer ERROR, ARP exhaustion, ICMP
// unreachable, local I/O, a malformed exchange) maps to the "error"
// exit code; argument and link-open failures are caught earlier, before
// a Session exists.
func (s *Session) failNow(err error) (Outcome, bool) {
	s.fail(err)
	return OutcomeError, true
}

func (s *Session) logf(format string, args ...interface{}) {
	if s.cfg.Quiet {
		return
	}
	s.log.Printf(format, args...)
}

func (s *Session) verbosef(format string, args ...interface{}) {
	if !s.cfg.Verbose {
		return
	}
	s.log.Printf(format, args...)
}

// sendARPQuery broadcasts an ARP request for the remote address.
func (s *Session) sendARPQuery() {
	frame := codec.BuildARP(codec.ARPRequest, s.pool.LocalAddress(), s.cfg.LocalAddr, [6]byte{}, s.cfg.RemoteAddr)
	if err := s.pool.SendFrame(link.EtherTypeARP, broadcastMAC, frame); err != nil {
		s.verbosef("failed to send ARP query: %v", err)
	}
}

// sendARPReply answers a courtesy ARP request directed at us.
func (s *Session) sendARPReply(requesterMAC [6]byte, requesterIP [4]byte) {
	frame := codec.BuildARP(codec.ARPReply, s.pool.LocalAddress(), s.cfg.LocalAddr, requesterMAC, requesterIP)
	if err := s.pool.SendFrame(link.EtherTypeARP, requesterMAC, frame); err != nil {
		s.verbosef("failed to send ARP reply: %v", err)
	}
}

// sendUDP wraps payload in a UDP/IPv4 datagram addressed to the
// server and transmits it to remoteMAC.
func (s *Session) sendUDP(srcPort, dstPort uint16, payload []byte) error {
	udp := codec.BuildUDP(s.cfg.LocalAddr, s.cfg.RemoteAddr, srcPort, dstPort, payload)
	datagram, err := codec.BuildIPv4UDP(s.cfg.LocalAddr, s.cfg.RemoteAddr, udp)
	if err != nil {
		return err
	}
	return s.pool.SendFrame(link.EtherTypeIPv4, s.remoteMAC, datagram)
}

// sendInitialRequest emits the RRQ or WRQ that opens the TFTP exchange.
func (s *Session) sendInitialRequest() error {
	op := codec.OpRRQ
	if s.cfg.Direction == tftpconfig.Upload {
		op = codec.OpWRQ
	}

	req, err := codec.BuildRequest(op, s.cfg.RemoteFilename, s.pool.MTU())
	if err != nil {
		return err
	}

	return s.sendUDP(s.clientPort, s.cfg.RemotePort, req)
}

// sendError emits a TFTP ERROR packet to the server.
func (s *Session) sendError(code tftperr.Code, message string) {
	pkt := codec.BuildError(uint16(code), message)
	dstPort := s.cfg.RemotePort
	if s.serverPortKnown {
		dstPort = s.serverPort
	}
	if err := s.sendUDP(s.clientPort, dstPort, pkt); err != nil {
		s.verbosef("failed to send ERROR packet: %v", err)
	}
}
