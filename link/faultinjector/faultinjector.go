//go:build tftptest

// Package faultinjector wraps a link.Device with the percentage-based
// packet-drop and packet-corruption knobs the original client read from
// DROPRX/DROPTX/TRASHRX/TRASHTX environment variables under its TESTING
// build. It is compiled in only under the tftptest build tag so that a
// production build never carries this code or its randomness dependency.
package faultinjector

import (
	"math/rand"

	"github.com/obarthel/amiga-sana-ii-tftpclient/link"
)

// Config holds the four percentage thresholds, each 0..100.
type Config struct {
	DropRX  int
	DropTX  int
	TrashRX int
	TrashTX int
}

// Device wraps a link.Device, applying Config's thresholds to every
// Send and Recv.
type Device struct {
	link.Device
	owner link.BufferOwner
	cfg   Config
	rnd   *rand.Rand
}

// Wrap returns dev decorated with fault injection according to cfg. Each
// field of cfg is clamped to [0, 100].
func Wrap(dev link.Device, cfg Config, seed int64) *Device {
	clamp := func(p int) int {
		if p < 0 {
			return 0
		}
		if p > 100 {
			return 100
		}
		return p
	}
	cfg.DropRX = clamp(cfg.DropRX)
	cfg.DropTX = clamp(cfg.DropTX)
	cfg.TrashRX = clamp(cfg.TrashRX)
	cfg.TrashTX = clamp(cfg.TrashTX)

	return &Device{Device: dev, cfg: cfg, rnd: rand.New(rand.NewSource(seed))}
}

// Open installs fault injection's own copy of owner so Send can reach
// into the write slot it names, then delegates to the wrapped device.
func (d *Device) Open(device string, unit int, owner link.BufferOwner) (int, [6]byte, error) {
	d.owner = owner
	return d.Device.Open(device, unit, owner)
}

func (d *Device) roll(pct int) bool {
	if pct <= 0 {
		return false
	}
	return d.rnd.Intn(100) < pct
}

// Send corrupts or silently discards outgoing frames per cfg.DropTX and
// cfg.TrashTX, in that order, matching the original's check sequence.
// Corruption is applied in place on the slot's own buffer via the same
// BufferOwner callbacks the real device uses, so fault injection sits
// transparently between the pool and the wrapped device rather than
// needing its own copy of the payload.
func (d *Device) Send(etherType link.EtherType, dstMAC [6]byte, slot, n int) error {
	if d.roll(d.cfg.DropTX) {
		return nil
	}

	if d.roll(d.cfg.TrashTX) {
		buf := make([]byte, n)
		if _, err := d.owner.CopyFromClient(buf, slot, n); err == nil {
			buf = trash(buf, d.rnd)
			_, _ = d.owner.CopyToClient(slot, buf)
		}
	}

	return d.Device.Send(etherType, dstMAC, slot, n)
}

// Recv corrupts or silently discards incoming frames per cfg.DropRX and
// cfg.TrashRX, retrying the underlying Recv on a drop so the caller
// never observes one.
func (d *Device) Recv() (link.Frame, error) {
	for {
		f, err := d.Device.Recv()
		if err != nil {
			return f, err
		}

		if d.roll(d.cfg.DropRX) {
			continue
		}

		if d.roll(d.cfg.TrashRX) {
			f.Data = trash(f.Data, d.rnd)
		}

		return f, nil
	}
}

// trash flips one random byte, the same single-byte corruption the
// original test harness applied.
func trash(b []byte, rnd *rand.Rand) []byte {
	if len(b) == 0 {
		return b
	}
	out := append([]byte(nil), b...)
	i := rnd.Intn(len(out))
	out[i] ^= 0xff
	return out
}
