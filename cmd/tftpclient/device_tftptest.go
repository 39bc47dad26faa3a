//go:build tftptest

package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/obarthel/amiga-sana-ii-tftpclient/link"
	"github.com/obarthel/amiga-sana-ii-tftpclient/link/faultinjector"
	"github.com/obarthel/amiga-sana-ii-tftpclient/link/rawsock"
)

// openDevice wraps the raw-socket device with the stochastic drop/corrupt
// fault injector, configured from DROPRX/DROPTX/TRASHRX/TRASHTX. This
// function only exists in binaries built with -tags tftptest.
func openDevice() link.Device {
	cfg := faultinjector.Config{
		DropRX:  envPercent("DROPRX"),
		DropTX:  envPercent("DROPTX"),
		TrashRX: envPercent("TRASHRX"),
		TrashTX: envPercent("TRASHTX"),
	}
	return faultinjector.Wrap(rawsock.New(), cfg, time.Now().UnixNano())
}

func envPercent(name string) int {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("tftpclient: ignoring malformed %s=%q", name, v)
		return 0
	}
	return n
}
