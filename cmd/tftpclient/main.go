// Command tftpclient transfers a single file to or from a TFTP server
// reached over a raw Ethernet link, without relying on the host's TCP/IP
// stack: it resolves the server's hardware address with ARP itself, then
// runs the RRQ/WRQ exchange directly on top of hand-built IPv4/UDP/TFTP
// packets.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/obarthel/amiga-sana-ii-tftpclient/link"
	"github.com/obarthel/amiga-sana-ii-tftpclient/session"
	"github.com/obarthel/amiga-sana-ii-tftpclient/tftpconfig"
)

// Process exit codes, per the four session outcomes: success, warning
// (destination exists without overwrite), error (network/protocol
// failure), failure (argument or setup failure).
const (
	exitSuccess = 0
	exitWarning = 1
	exitError   = 2
	exitFailure = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := tftpconfig.Parse(os.Args[0], os.Args[1:])
	if err != nil {
		if errors.Is(err, tftpconfig.ErrNeedExactlyOneRemote) {
			fmt.Fprintln(os.Stderr, err)
		} else {
			fmt.Fprintf(os.Stderr, "tftpclient: %v\n", err)
		}
		return exitFailure
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)

	pool, err := link.Open(openDevice(), cfg.DeviceName, cfg.DeviceUnit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tftpclient: %v\n", err)
		return exitFailure
	}
	defer pool.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	sess := session.New(cfg, pool, logger)
	outcome, runErr := sess.Run(interrupt)

	switch outcome {
	case session.OutcomeSuccess:
		if !cfg.Quiet {
			logger.Printf("transfer of %q complete", cfg.RemoteFilename)
		}
		return exitSuccess

	case session.OutcomeWarning:
		fmt.Fprintf(os.Stderr, "tftpclient: %v\n", runErr)
		return exitWarning

	case session.OutcomeError:
		fmt.Fprintf(os.Stderr, "tftpclient: %v\n", runErr)
		return exitError

	default: // OutcomeFailure
		fmt.Fprintf(os.Stderr, "tftpclient: %v\n", runErr)
		return exitFailure
	}
}
