package session_test

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/obarthel/amiga-sana-ii-tftpclient/codec"
	"github.com/obarthel/amiga-sana-ii-tftpclient/link"
	"github.com/obarthel/amiga-sana-ii-tftpclient/session"
	"github.com/obarthel/amiga-sana-ii-tftpclient/tftpconfig"
)

// fakeDevice is a tiny in-process link.Device: Send hands the frame to
// a test-supplied responder, which may push reply frames onto recvCh.
type fakeDevice struct {
	station   [6]byte
	mtu       int
	owner     link.BufferOwner
	recvCh    chan link.Frame
	closed    chan struct{}
	responder func(et link.EtherType, dst [6]byte, payload []byte, recvCh chan<- link.Frame)
}

func newFakeDevice(responder func(link.EtherType, [6]byte, []byte, chan<- link.Frame)) *fakeDevice {
	return &fakeDevice{
		station:   [6]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0x01},
		mtu:       link.MinMTU,
		recvCh:    make(chan link.Frame, 16),
		closed:    make(chan struct{}),
		responder: responder,
	}
}

func (d *fakeDevice) Open(_ string, _ int, owner link.BufferOwner) (int, [6]byte, error) {
	d.owner = owner
	return d.mtu, d.station, nil
}
func (d *fakeDevice) ConfigureInterface([6]byte) error { return nil }

// Send pulls the staged bytes back out of the pool's write slot via
// CopyFromClient, the same BufferOwner callback rawsock.Device uses.
// The first link.EthernetHeaderLen bytes are the header room the pool
// reserves for a real Ethernet-framing device to fill in; this fake
// device does no L2 framing of its own, so it just strips that room
// and hands the responder the bare IPv4/ARP payload.
func (d *fakeDevice) Send(et link.EtherType, dst [6]byte, slot int, n int) error {
	staged := make([]byte, n)
	if _, err := d.owner.CopyFromClient(staged, slot, n); err != nil {
		return err
	}
	payload := staged[link.EthernetHeaderLen:]
	go d.responder(et, dst, payload, d.recvCh)
	return nil
}

func (d *fakeDevice) Recv() (link.Frame, error) {
	select {
	case f := <-d.recvCh:
		return f, nil
	case <-d.closed:
		return link.Frame{}, link.ErrClosed
	}
}

func (d *fakeDevice) Close() error {
	select {
	case <-d.closed:
	default:
		close(d.closed)
	}
	return nil
}

var serverMAC = [6]byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
var localIP = [4]byte{10, 0, 0, 2}
var remoteIP = [4]byte{10, 0, 0, 1}

func TestSessionDownload(t *testing.T) {
	content := make([]byte, 513)
	for i := range content {
		content[i] = byte(i)
	}

	var serverPort uint16 = 50000

	responder := func(et link.EtherType, dst [6]byte, payload []byte, recvCh chan<- link.Frame) {
		switch et {
		case link.EtherTypeARP:
			msg, err := codec.ParseARP(payload)
			if err != nil || msg == nil || msg.Operation != codec.ARPRequest {
				return
			}
			reply := codec.BuildARP(codec.ARPReply, serverMAC, remoteIP, msg.SenderMAC, msg.SenderIP)
			recvCh <- link.Frame{EtherType: link.EtherTypeARP, Data: reply}

		case link.EtherTypeIPv4:
			hdr, err := codec.ParseIPv4(payload)
			if err != nil || hdr.Protocol != codec.ProtoUDP {
				return
			}
			_, udpPayload, err := codec.ParseUDP(payload[codec.IPv4HeaderLen:])
			if err != nil {
				return
			}
			msg, err := codec.Parse(udpPayload)
			if err != nil {
				return
			}

			clientPort := binSrcPort(payload)

			switch msg.Opcode {
			case codec.OpRRQ:
				sendData(recvCh, clientPort, serverPort, 1, content[:512])

			case codec.OpACK:
				if msg.Block == 1 {
					sendData(recvCh, clientPort, serverPort, 2, content[512:])
				}
				// ACK(2) onward: stay silent, let the dally timer run out.
			}
		}
	}

	dev := newFakeDevice(responder)
	pool, err := link.Open(dev, "fake0", 0)
	require.NoError(t, err)
	defer pool.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")

	cfg := &tftpconfig.Config{
		LocalAddr:      localIP,
		RemoteAddr:     remoteIP,
		RemotePort:     69,
		Direction:      tftpconfig.Download,
		RemoteFilename: "abc.bin",
		LocalPath:      dest,
	}

	sess := session.New(cfg, pool, nil)
	outcome, err := sess.Run(nil)
	require.NoError(t, err)
	require.Equal(t, session.OutcomeSuccess, outcome)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func sendData(recvCh chan<- link.Frame, clientPort, serverPort uint16, block uint16, payload []byte) {
	data := codec.BuildData(block, payload)
	udp := codec.BuildUDP(remoteIP, localIP, serverPort, clientPort, data)
	datagram, err := codec.BuildIPv4UDP(remoteIP, localIP, udp)
	if err != nil {
		return
	}
	recvCh <- link.Frame{EtherType: link.EtherTypeIPv4, Data: datagram}
}

// binSrcPort extracts the UDP source port (the client's ephemeral port)
// from an outgoing IPv4/UDP datagram this session just sent.
func binSrcPort(datagram []byte) uint16 {
	udp := datagram[codec.IPv4HeaderLen:]
	return uint16(udp[0])<<8 | uint16(udp[1])
}

func arpResponder(t *testing.T, payload []byte, recvCh chan<- link.Frame) {
	msg, err := codec.ParseARP(payload)
	if err != nil || msg == nil || msg.Operation != codec.ARPRequest {
		return
	}
	reply := codec.BuildARP(codec.ARPReply, serverMAC, remoteIP, msg.SenderMAC, msg.SenderIP)
	recvCh <- link.Frame{EtherType: link.EtherTypeARP, Data: reply}
}

func sendError(recvCh chan<- link.Frame, clientPort, serverPort uint16, code uint16, message string) {
	pkt := codec.BuildError(code, message)
	udp := codec.BuildUDP(remoteIP, localIP, serverPort, clientPort, pkt)
	datagram, err := codec.BuildIPv4UDP(remoteIP, localIP, udp)
	if err != nil {
		return
	}
	recvCh <- link.Frame{EtherType: link.EtherTypeIPv4, Data: datagram}
}

func sendAck(recvCh chan<- link.Frame, clientPort, serverPort uint16, block uint16) {
	pkt := codec.BuildAck(block)
	udp := codec.BuildUDP(remoteIP, localIP, serverPort, clientPort, pkt)
	datagram, err := codec.BuildIPv4UDP(remoteIP, localIP, udp)
	if err != nil {
		return
	}
	recvCh <- link.Frame{EtherType: link.EtherTypeIPv4, Data: datagram}
}

// TestSessionUploadEmptyFile covers scenario 2 of the testable
// properties: a zero-byte upload still sends one zero-length DATA(1)
// and terminates on ACK(1).
func TestSessionUploadEmptyFile(t *testing.T) {
	var serverPort uint16 = 50001
	dataBlocks := 0

	responder := func(et link.EtherType, dst [6]byte, payload []byte, recvCh chan<- link.Frame) {
		switch et {
		case link.EtherTypeARP:
			arpResponder(t, payload, recvCh)

		case link.EtherTypeIPv4:
			hdr, err := codec.ParseIPv4(payload)
			if err != nil || hdr.Protocol != codec.ProtoUDP {
				return
			}
			_, udpPayload, err := codec.ParseUDP(payload[codec.IPv4HeaderLen:])
			if err != nil {
				return
			}
			msg, err := codec.Parse(udpPayload)
			if err != nil {
				return
			}
			clientPort := binSrcPort(payload)

			switch msg.Opcode {
			case codec.OpWRQ:
				sendAck(recvCh, clientPort, serverPort, 0)
			case codec.OpDATA:
				dataBlocks++
				require.Equal(t, uint16(1), msg.Block)
				require.Empty(t, msg.Data)
				sendAck(recvCh, clientPort, serverPort, 1)
			}
		}
	}

	dev := newFakeDevice(responder)
	pool, err := link.Open(dev, "fake0", 0)
	require.NoError(t, err)
	defer pool.Close()

	dir := t.TempDir()
	src := filepath.Join(dir, "empty.bin")
	require.NoError(t, os.WriteFile(src, nil, 0o644))

	cfg := &tftpconfig.Config{
		LocalAddr:      localIP,
		RemoteAddr:     remoteIP,
		RemotePort:     69,
		Direction:      tftpconfig.Upload,
		RemoteFilename: "empty.bin",
		LocalPath:      src,
	}

	sess := session.New(cfg, pool, nil)
	outcome, err := sess.Run(nil)
	require.NoError(t, err)
	require.Equal(t, session.OutcomeSuccess, outcome)
	require.Equal(t, 1, dataBlocks)
}

// TestSessionServerErrorNotFound covers scenario 3: a server ERROR
// packet during AwaitingServerPort fails the transfer with the peer's
// code and message.
func TestSessionServerErrorNotFound(t *testing.T) {
	responder := func(et link.EtherType, dst [6]byte, payload []byte, recvCh chan<- link.Frame) {
		switch et {
		case link.EtherTypeARP:
			arpResponder(t, payload, recvCh)

		case link.EtherTypeIPv4:
			hdr, err := codec.ParseIPv4(payload)
			if err != nil || hdr.Protocol != codec.ProtoUDP {
				return
			}
			_, udpPayload, err := codec.ParseUDP(payload[codec.IPv4HeaderLen:])
			if err != nil {
				return
			}
			msg, err := codec.Parse(udpPayload)
			if err != nil || msg.Opcode != codec.OpRRQ {
				return
			}
			clientPort := binSrcPort(payload)
			sendError(recvCh, clientPort, 69, 1, "File not found")
		}
	}

	dev := newFakeDevice(responder)
	pool, err := link.Open(dev, "fake0", 0)
	require.NoError(t, err)
	defer pool.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")

	cfg := &tftpconfig.Config{
		LocalAddr:      localIP,
		RemoteAddr:     remoteIP,
		RemotePort:     69,
		Direction:      tftpconfig.Download,
		RemoteFilename: "missing.bin",
		LocalPath:      dest,
	}

	sess := session.New(cfg, pool, nil)
	outcome, err := sess.Run(nil)
	require.Equal(t, session.OutcomeError, outcome)
	require.ErrorContains(t, err, "File not found")

	_, statErr := os.Stat(dest)
	require.True(t, os.IsNotExist(statErr), "destination file must not be left behind on a failed transfer with zero bytes written")
}

// TestSessionDuplicateDataIgnored covers the duplicate-block-ignore
// property: a repeated DATA(1) is dropped without an ACK of its own and
// is not written to the file twice.
func TestSessionDuplicateDataIgnored(t *testing.T) {
	content := []byte("hello, tftp")
	var serverPort uint16 = 50002
	sentDup := false

	responder := func(et link.EtherType, dst [6]byte, payload []byte, recvCh chan<- link.Frame) {
		switch et {
		case link.EtherTypeARP:
			arpResponder(t, payload, recvCh)

		case link.EtherTypeIPv4:
			hdr, err := codec.ParseIPv4(payload)
			if err != nil || hdr.Protocol != codec.ProtoUDP {
				return
			}
			_, udpPayload, err := codec.ParseUDP(payload[codec.IPv4HeaderLen:])
			if err != nil {
				return
			}
			msg, err := codec.Parse(udpPayload)
			if err != nil {
				return
			}
			clientPort := binSrcPort(payload)

			switch msg.Opcode {
			case codec.OpRRQ:
				sendData(recvCh, clientPort, serverPort, 1, content)
			case codec.OpACK:
				if msg.Block == 1 && !sentDup {
					sentDup = true
					sendData(recvCh, clientPort, serverPort, 1, content)
				}
				// second ACK(1): stay silent, let the dally timer run out.
			}
		}
	}

	dev := newFakeDevice(responder)
	pool, err := link.Open(dev, "fake0", 0)
	require.NoError(t, err)
	defer pool.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")

	cfg := &tftpconfig.Config{
		LocalAddr:      localIP,
		RemoteAddr:     remoteIP,
		RemotePort:     69,
		Direction:      tftpconfig.Download,
		RemoteFilename: "dup.bin",
		LocalPath:      dest,
	}

	sess := session.New(cfg, pool, nil)
	outcome, err := sess.Run(nil)
	require.NoError(t, err)
	require.Equal(t, session.OutcomeSuccess, outcome)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, content, got, "a duplicate DATA(1) must not be appended to the file a second time")
}

// TestSessionICMPUnreachableAfterLastBlockIsBenign covers the property
// that a dest-unreachable/port ICMP arriving after the final block was
// transmitted does not fail an otherwise-complete transfer.
func TestSessionICMPUnreachableAfterLastBlockIsBenign(t *testing.T) {
	content := []byte("tiny file")
	var serverPort uint16 = 50003

	responder := func(et link.EtherType, dst [6]byte, payload []byte, recvCh chan<- link.Frame) {
		switch et {
		case link.EtherTypeARP:
			arpResponder(t, payload, recvCh)

		case link.EtherTypeIPv4:
			hdr, err := codec.ParseIPv4(payload)
			if err != nil || hdr.Protocol != codec.ProtoUDP {
				return
			}
			_, udpPayload, err := codec.ParseUDP(payload[codec.IPv4HeaderLen:])
			if err != nil {
				return
			}
			msg, err := codec.Parse(udpPayload)
			if err != nil {
				return
			}
			clientPort := binSrcPort(payload)

			switch msg.Opcode {
			case codec.OpRRQ:
				sendData(recvCh, clientPort, serverPort, 1, content)
			case codec.OpACK:
				if msg.Block == 1 {
					// The server's socket has already torn down; it
					// sends a spurious port-unreachable instead of
					// staying silent. The transfer must still succeed.
					embeddedIP := payload[:codec.IPv4HeaderLen]
					icmp := codec.BuildICMPUnreachable(3, embeddedIP)
					icmpDatagram, err := codec.BuildIPv4UDP(remoteIP, localIP, icmp)
					if err != nil {
						return
					}
					// BuildIPv4UDP always sets protocol UDP; patch it to
					// ICMP for this synthetic message.
					icmpDatagram[9] = codec.ProtoICMP
					binary.BigEndian.PutUint16(icmpDatagram[10:12], 0)
					csum := codec.Checksum(icmpDatagram[:codec.IPv4HeaderLen])
					binary.BigEndian.PutUint16(icmpDatagram[10:12], csum)
					recvCh <- link.Frame{EtherType: link.EtherTypeIPv4, Data: icmpDatagram}
				}
			}
		}
	}

	dev := newFakeDevice(responder)
	pool, err := link.Open(dev, "fake0", 0)
	require.NoError(t, err)
	defer pool.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")

	cfg := &tftpconfig.Config{
		LocalAddr:      localIP,
		RemoteAddr:     remoteIP,
		RemotePort:     69,
		Direction:      tftpconfig.Download,
		RemoteFilename: "tiny.bin",
		LocalPath:      dest,
	}

	sess := session.New(cfg, pool, nil)
	outcome, err := sess.Run(nil)
	require.NoError(t, err)
	require.Equal(t, session.OutcomeSuccess, outcome)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, content, got)
}
