//go:build linux

// Package rawsock is a link.Device backed by an AF_PACKET/SOCK_RAW
// socket bound to a named Linux network interface. It is this client's
// concrete link layer when it is not run against a mock for testing.
package rawsock

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/obarthel/amiga-sana-ii-tftpclient/link"
)

// ethPAll captures every EtherType so frames this client doesn't care
// about (seen on a shared interface) can be filtered in userspace rather
// than at the socket.
const ethPAll = 0x0003

// Device is a link.Device over a raw Ethernet socket.
type Device struct {
	fd      int
	ifIndex int
	owner   link.BufferOwner
	mtu     int
	station [6]byte

	writeMu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
}

// New returns an unopened Device. Open must be called before use.
func New() *Device {
	return &Device{closed: make(chan struct{})}
}

func htons(v uint16) uint16 {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return binary.LittleEndian.Uint16(b[:])
}

// Open binds to the named interface. unit is appended to device with a
// trailing digit the way a NDIS-style namespace would distinguish
// multiple units of the same adapter (e.g. "eth0", unit 1 -> "eth0:1");
// unit 0 uses device unmodified. Open does not retry a failed lookup
// under a "Networks/"-style namespace prefix: Linux interface names have
// no such namespace, so a failed lookup returns its error directly.
func (d *Device) Open(device string, unit int, owner link.BufferOwner) (int, [6]byte, error) {
	name := device
	if unit > 0 {
		name = fmt.Sprintf("%s:%d", device, unit)
	}

	iface, err := net.InterfaceByName(name)
	if err != nil {
		// The handshake retries once with a namespace prefix on hosts
		// that have one; Linux interface names have no such namespace,
		// so there is nothing further to retry here.
		return 0, [6]byte{}, fmt.Errorf("%w: %v", link.ErrDeviceOpen, err)
	}

	if iface.Flags&net.FlagBroadcast == 0 || len(iface.HardwareAddr) != 6 {
		return 0, [6]byte{}, link.ErrWrongWireType
	}

	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(ethPAll)))
	if err != nil {
		return 0, [6]byte{}, fmt.Errorf("%w: %v", link.ErrDeviceOpen, err)
	}

	sll := &unix.SockaddrLinklayer{
		Protocol: htons(ethPAll),
		Ifindex:  iface.Index,
	}
	if err := unix.Bind(fd, sll); err != nil {
		unix.Close(fd)
		return 0, [6]byte{}, fmt.Errorf("%w: %v", link.ErrDeviceOpen, err)
	}

	d.fd = fd
	d.ifIndex = iface.Index
	d.owner = owner
	d.mtu = iface.MTU
	copy(d.station[:], iface.HardwareAddr)

	return d.mtu, d.station, nil
}

// ConfigureInterface is a no-op on Linux: the kernel has already bound
// the socket to the interface's real hardware address, and there is no
// separate "configure interface" ioctl the way a NDIS driver needs one.
// A driver that required one and found the interface already configured
// would report that as success (nil), since link.Open treats any error
// from ConfigureInterface as fatal; on Linux that case never arises.
func (d *Device) ConfigureInterface(srcAddr [6]byte) error {
	return nil
}

// fillEthHeader writes the 14-byte Ethernet header into the front of
// frame, which must be at least link.EthernetHeaderLen bytes long.
func fillEthHeader(frame []byte, dstMAC, srcMAC [6]byte, etherType link.EtherType) {
	copy(frame[0:6], dstMAC[:])
	copy(frame[6:12], srcMAC[:])
	binary.BigEndian.PutUint16(frame[12:14], uint16(etherType))
}

// Send transmits the n bytes staged in the pool's write slot, asking
// the owner for a zero-copy DMA buffer first and falling back to a
// byte copy into a locally-owned frame otherwise. Either way the
// Ethernet header is filled in directly ahead of the payload already
// staged at slot[link.EthernetHeaderLen:].
func (d *Device) Send(etherType link.EtherType, dstMAC [6]byte, slot int, n int) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	var frame []byte
	if buf, ok := d.owner.DMAFromClient(slot, n); ok {
		frame = buf[:n]
	} else {
		frame = make([]byte, n)
		if _, err := d.owner.CopyFromClient(frame, slot, n); err != nil {
			return err
		}
	}

	fillEthHeader(frame, dstMAC, d.station, etherType)

	sll := unix.SockaddrLinklayer{
		Protocol: htons(uint16(etherType)),
		Ifindex:  d.ifIndex,
		Halen:    6,
	}
	copy(sll.Addr[:6], dstMAC[:])

	return unix.Sendto(d.fd, frame, 0, &sll)
}

// Recv blocks until one frame addressed to this adapter (or broadcast)
// arrives, classifying it by EtherType. It silently discards frames for
// EtherTypes this client has no read slots for. The frame is read into
// the read slot the owner hands out for its EtherType, via a zero-copy
// DMA read when the slot's buffer is usable directly and a byte copy
// otherwise; the EtherType itself is learned by peeking the wire ahead
// of that decision, since a single raw socket (unlike a hardware
// receive ring) cannot pre-classify frames before acquiring a buffer.
func (d *Device) Recv() (link.Frame, error) {
	for {
		var peek [link.EthernetHeaderLen]byte
		pn, _, err := unix.Recvfrom(d.fd, peek[:], unix.MSG_PEEK)
		if err != nil {
			select {
			case <-d.closed:
				return link.Frame{}, link.ErrClosed
			default:
			}
			return link.Frame{}, err
		}
		if pn < link.EthernetHeaderLen {
			d.drain()
			continue
		}

		et := link.EtherType(binary.BigEndian.Uint16(peek[12:14]))
		if et != link.EtherTypeIPv4 && et != link.EtherTypeARP {
			d.drain()
			continue
		}

		slotID, ok := d.owner.AcquireReadSlot(et)
		if !ok {
			d.drain()
			continue
		}

		n, data, err := d.readInto(slotID)
		d.owner.ReleaseReadSlot(slotID)
		if err != nil {
			select {
			case <-d.closed:
				return link.Frame{}, link.ErrClosed
			default:
			}
			return link.Frame{}, err
		}
		if n < link.EthernetHeaderLen {
			continue
		}

		return link.Frame{EtherType: et, Data: data}, nil
	}
}

// drain discards one queued datagram without caring about its
// contents, for frames this client has no slot type for.
func (d *Device) drain() {
	discard := make([]byte, d.mtu+link.EthernetHeaderLen)
	unix.Recvfrom(d.fd, discard, 0)
}

// readInto consumes the next queued datagram into the read slot
// identified by slotID and returns the bytes after its Ethernet header
// as a frame-owned copy, since the slot is released (and may be
// reused) as soon as this call returns.
func (d *Device) readInto(slotID int) (int, []byte, error) {
	need := d.mtu + link.EthernetHeaderLen

	if buf, ok := d.owner.DMAToClient(slotID, need); ok {
		n, _, err := unix.Recvfrom(d.fd, buf, 0)
		if err != nil {
			return 0, nil, err
		}
		if n < link.EthernetHeaderLen {
			return n, nil, nil
		}
		data := make([]byte, n-link.EthernetHeaderLen)
		copy(data, buf[link.EthernetHeaderLen:n])
		return n, data, nil
	}

	scratch := make([]byte, need)
	n, _, err := unix.Recvfrom(d.fd, scratch, 0)
	if err != nil {
		return 0, nil, err
	}
	if _, err := d.owner.CopyToClient(slotID, scratch[:n]); err != nil {
		return 0, nil, err
	}
	if n < link.EthernetHeaderLen {
		return n, nil, nil
	}
	data := make([]byte, n-link.EthernetHeaderLen)
	copy(data, scratch[link.EthernetHeaderLen:n])
	return n, data, nil
}

// Close shuts the socket down, unblocking any Recv in progress.
func (d *Device) Close() error {
	var err error
	d.closeOnce.Do(func() {
		close(d.closed)
		unix.Shutdown(d.fd, unix.SHUT_RDWR)
		err = unix.Close(d.fd)
	})
	return err
}
