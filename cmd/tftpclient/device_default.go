//go:build !tftptest

package main

import (
	"github.com/obarthel/amiga-sana-ii-tftpclient/link"
	"github.com/obarthel/amiga-sana-ii-tftpclient/link/rawsock"
)

// openDevice returns the raw-socket link-layer device. The fault-injection
// wrapper is only compiled in under the tftptest build tag.
func openDevice() link.Device {
	return rawsock.New()
}
