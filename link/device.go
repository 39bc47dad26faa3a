// Package link manages the fixed pool of link-layer read/write
// descriptors that sit between the Session state machine and a raw
// Ethernet device, and the zero-copy/byte-copy buffer-management
// contract the device driver uses against them.
package link

import "errors"

// EtherType identifies which protocol a frame or read slot carries.
type EtherType uint16

const (
	EtherTypeIPv4 EtherType = 0x0800
	EtherTypeARP  EtherType = 0x0806
)

// MinMTU is the smallest MTU this client can operate with: a 20-byte IP
// header, an 8-byte UDP header, and one full 512-byte TFTP data segment.
const MinMTU = 20 + 8 + 512

// EthernetHeaderLen is the size of the destination/source/EtherType
// header every frame carries ahead of its IPv4 or ARP payload.
const EthernetHeaderLen = 14

// WriteSlotID is the slot ID a Device passes to CopyFromClient/
// DMAFromClient to drain the pool's single write slot. It is never a
// valid index into the read slots BufferOwner otherwise addresses.
const WriteSlotID = -1

var (
	ErrWrongWireType  = errors.New("link: adapter is not Ethernet, or hardware address is not 48 bits")
	ErrMTUTooSmall    = errors.New("link: adapter MTU is smaller than the minimum this client requires")
	ErrDeviceOpen     = errors.New("link: device open failed")
	ErrConfigure      = errors.New("link: configure-interface failed")
	ErrQuery          = errors.New("link: query failed")
	ErrBufferOverflow = errors.New("link: copy would overflow the slot's buffer")
	ErrClosed         = errors.New("link: pool is closed")
)

// Frame is one received link-layer frame handed to the Session for
// classification. Data holds the bytes after the Ethernet header in
// memory the receiver owns: the device copies them out of the read slot
// and releases that slot before the frame is delivered, so Data does not
// alias a slot buffer and stays valid after the slot is reused.
type Frame struct {
	EtherType EtherType
	Data      []byte
}

// BufferOwner is the buffer-management contract a Pool exposes to a
// Device so that the device's driver (or, for a software device, its
// completion goroutine) can fill and drain slot buffers directly
// instead of handing the pool freshly allocated memory on every frame.
// Every method may be called from whatever goroutine or interrupt
// context the driver uses to deliver completions; implementations must
// touch only the named slot's own buffer and capacity.
type BufferOwner interface {
	// CopyToClient copies n bytes from src into slot's buffer. It
	// fails if n exceeds the slot's capacity or the slot has none.
	CopyToClient(slot int, src []byte) (int, error)

	// CopyFromClient copies n bytes from slot's buffer into dst. Same
	// overflow check as CopyToClient.
	CopyFromClient(dst []byte, slot int, n int) (int, error)

	// DMAToClient returns slot's buffer for the driver to DMA into
	// directly. ok is false if the buffer is absent, misaligned, or
	// too small for need bytes, in which case the driver must fall
	// back to CopyToClient.
	DMAToClient(slot int, need int) (buf []byte, ok bool)

	// DMAFromClient is DMAToClient for the transmit direction.
	DMAFromClient(slot int, need int) (buf []byte, ok bool)

	// AcquireReadSlot hands the driver the next read slot configured
	// for et, marking it in-flight so the pool won't hand the same
	// slot to a concurrent caller. ok is false if no slot is
	// configured for et. This is the software stand-in for submitting
	// a pre-posted buffer to a hardware receive ring: on real NDIS-
	// style hardware the ring already demultiplexes by EtherType
	// before the driver ever sees the frame, but a single raw socket
	// sees every EtherType on one descriptor, so the driver must
	// classify first and acquire second.
	AcquireReadSlot(et EtherType) (slot int, ok bool)

	// ReleaseReadSlot returns slot to the pool once the driver has
	// finished filling it for this completion, making it eligible for
	// AcquireReadSlot again.
	ReleaseReadSlot(slot int)
}

// Device is the raw link-layer transport a Pool drives. It is the
// Linux/Unix analogue of a NDIS-style driver handle: open a named unit,
// learn its station address, push frames in and pull frames out of a
// small fixed set of buffers, and install the buffer-management
// callbacks the driver invokes against those buffers directly (in the
// spirit of a DMA ring, though implementations here use a goroutine and
// channels rather than a hardware interrupt).
//
// Implementations must be safe for the concurrency pattern a Pool uses:
// Recv is read from one goroutine, Send is called from the owning
// goroutine, and Close may run concurrently with an in-flight Recv to
// unblock it.
type Device interface {
	// Open opens device/unit, installs owner's buffer-management
	// callbacks, and returns the negotiated MTU and the adapter's
	// default hardware (station) address.
	Open(device string, unit int, owner BufferOwner) (mtu int, stationAddr [6]byte, err error)

	// ConfigureInterface installs srcAddr as the adapter's source
	// hardware address for frames this client emits. An implementation
	// whose driver reports "already configured" returns nil: Pool.Open
	// treats any returned error as ErrConfigure, and on success uses the
	// address Open returned as its local address.
	ConfigureInterface(srcAddr [6]byte) error

	// Send transmits the n bytes staged in the pool's write slot
	// (addressed by slot, ordinarily link.WriteSlotID), choosing a
	// zero-copy DMA transmit when the slot's buffer is usable directly
	// via DMAFromClient and falling back to CopyFromClient otherwise.
	Send(etherType EtherType, dstMAC [6]byte, slot int, n int) error

	// Recv returns the next completed frame, blocking until one
	// arrives or the device is closed (in which case it returns
	// ErrClosed).
	Recv() (Frame, error)

	// Close aborts any in-flight I/O, waits on it, and releases the
	// device. Any blocked Recv returns ErrClosed.
	Close() error
}
