package link

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Number of read slots Open allocates per EtherType: 4 ARP-typed and 8
// IPv4-typed. A slot is in flight only while a Device fills it for one
// frame; pump drives one Recv at a time, so at most one read slot is in
// flight at once rather than all of them.
const (
	MinARPReadSlots  = 4
	MinIPv4ReadSlots = 8
)

// Completion is one classified, ready-to-process frame delivered by
// RecvCompletions, or the error that ended the completion stream.
type Completion struct {
	Frame Frame
	Err   error
}

// Pool is the Link I/O Pool: it owns a device, a fixed set of read
// slots per EtherType, and the single write slot, and exposes the
// buffer-management contract those slots are filled and drained
// through.
type Pool struct {
	dev Device

	mtu     int
	local   [6]byte
	mu      sync.Mutex
	read    []*slot // index is the slot ID seen by BufferOwner
	write   *slot

	completions chan Completion
	closeOnce   sync.Once
	closed      chan struct{}
}

// Open opens device/unit, validates the adapter is Ethernet with a
// 48-bit hardware address and an MTU of at least MinMTU, runs the
// station-address/configure-interface handshake, and allocates the read
// and write slot pools.
func Open(dev Device, device string, unit int) (*Pool, error) {
	p := &Pool{
		dev:         dev,
		completions: make(chan Completion, MinARPReadSlots+MinIPv4ReadSlots),
		closed:      make(chan struct{}),
	}

	mtu, stationAddr, err := dev.Open(device, unit, p)
	if err != nil {
		return nil, fmt.Errorf("link: open: %w", err)
	}
	if mtu < MinMTU {
		return nil, ErrMTUTooSmall
	}
	p.mtu = mtu

	if err := dev.ConfigureInterface(stationAddr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigure, err)
	}
	p.local = stationAddr

	// Slot buffers carry EthernetHeaderLen bytes of headroom beyond the
	// negotiated MTU so a Device can read or build a complete Ethernet
	// frame (header plus IPv4/ARP payload) in place, without a second
	// buffer just to hold the 14 leading bytes.
	bufSize := mtu + EthernetHeaderLen
	for i := 0; i < MinARPReadSlots; i++ {
		p.read = append(p.read, newSlot(EtherTypeARP, bufSize))
	}
	for i := 0; i < MinIPv4ReadSlots; i++ {
		p.read = append(p.read, newSlot(EtherTypeIPv4, bufSize))
	}
	p.write = newSlot(EtherTypeIPv4, bufSize)

	go p.pump()

	return p, nil
}

// LocalAddress returns the hardware address this pool configured as the
// adapter's source address.
func (p *Pool) LocalAddress() [6]byte { return p.local }

// MTU returns the negotiated link MTU, at least MinMTU.
func (p *Pool) MTU() int { return p.mtu }

// pump drains the device's Recv stream onto the completions channel
// until the device reports closure.
func (p *Pool) pump() {
	defer close(p.completions)
	for {
		f, err := p.dev.Recv()
		select {
		case p.completions <- Completion{Frame: f, Err: err}:
		case <-p.closed:
			return
		}
		if err != nil {
			return
		}
	}
}

// RecvCompletions returns the channel classified read completions
// arrive on. It is closed once the underlying device is closed or
// fails permanently.
func (p *Pool) RecvCompletions() <-chan Completion { return p.completions }

// SendFrame transmits one frame through the pool's single write slot.
// It stages payload into the slot's own buffer (leaving room ahead of
// it for the device to fill in the Ethernet header) and blocks until
// the device has drained the slot via the BufferOwner contract. The
// write slot is never in flight concurrently with itself; callers on
// the same goroutine naturally serialize this, matching the one
// suspension point the Session's main loop allows for transmission.
func (p *Pool) SendFrame(etherType EtherType, dstMAC [6]byte, payload []byte) error {
	if len(payload) > len(p.write.buf)-EthernetHeaderLen {
		return ErrBufferOverflow
	}

	copy(p.write.buf[EthernetHeaderLen:], payload)

	p.write.setInFlight(true)
	defer p.write.setInFlight(false)

	return p.dev.Send(etherType, dstMAC, WriteSlotID, EthernetHeaderLen+len(payload))
}

// Close tears the pool down in the mandated order: zero every slot's
// capacity (so a late driver callback fails instead of corrupting
// memory), abort/close the device, wait for it, then release buffers.
func (p *Pool) Close() error {
	var err error
	p.closeOnce.Do(func() {
		for _, s := range p.read {
			s.zeroCapacity()
		}
		p.write.zeroCapacity()

		close(p.closed)
		err = p.dev.Close()

		p.mu.Lock()
		for _, s := range p.read {
			s.buf = nil
		}
		p.write.buf = nil
		p.mu.Unlock()
	})
	return err
}

// CopyToClient implements BufferOwner.
func (p *Pool) CopyToClient(slotID int, src []byte) (int, error) {
	s, err := p.slotAt(slotID)
	if err != nil {
		return 0, err
	}
	capN := int(loadCapacity(s))
	if capN == 0 || len(src) > capN {
		return 0, ErrBufferOverflow
	}
	n := copy(s.buf[:capN], src)
	return n, nil
}

// CopyFromClient implements BufferOwner.
func (p *Pool) CopyFromClient(dst []byte, slotID int, n int) (int, error) {
	s, err := p.slotAt(slotID)
	if err != nil {
		return 0, err
	}
	capN := int(loadCapacity(s))
	if capN == 0 || n > capN || n > len(dst) {
		return 0, ErrBufferOverflow
	}
	return copy(dst[:n], s.buf[:n]), nil
}

// DMAToClient implements BufferOwner.
func (p *Pool) DMAToClient(slotID int, need int) ([]byte, bool) {
	s, err := p.slotAt(slotID)
	if err != nil {
		return nil, false
	}
	capN := int(loadCapacity(s))
	if capN == 0 || need > capN || !aligned(s.buf) {
		return nil, false
	}
	return s.buf[:capN], true
}

// DMAFromClient implements BufferOwner.
func (p *Pool) DMAFromClient(slotID int, need int) ([]byte, bool) {
	return p.DMAToClient(slotID, need)
}

// AcquireReadSlot implements BufferOwner.
func (p *Pool) AcquireReadSlot(et EtherType) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	firstOfType := -1
	for i, s := range p.read {
		if s.etherType != et {
			continue
		}
		if firstOfType < 0 {
			firstOfType = i
		}
		if !s.isInFlight() {
			s.setInFlight(true)
			return i, true
		}
	}
	if firstOfType < 0 {
		return 0, false
	}

	// Every slot of this type is already in flight. The pump drives a
	// single Recv at a time, so this should not happen in practice;
	// reuse the first one of the type rather than block forever.
	p.read[firstOfType].setInFlight(true)
	return firstOfType, true
}

// ReleaseReadSlot implements BufferOwner.
func (p *Pool) ReleaseReadSlot(slotID int) {
	if slotID < 0 || slotID >= len(p.read) {
		return
	}
	p.read[slotID].setInFlight(false)
}

func (p *Pool) slotAt(slotID int) (*slot, error) {
	if slotID == WriteSlotID {
		return p.write, nil
	}
	if slotID < 0 || slotID >= len(p.read) {
		return nil, fmt.Errorf("link: no such slot %d", slotID)
	}
	return p.read[slotID], nil
}

func loadCapacity(s *slot) int32 {
	return atomic.LoadInt32(&s.capacity)
}
