// Package tftpconfig parses this client's command-line and environment
// configuration into a validated Config, applying the pre-flight checks
// that must pass before a Session ever opens a link.
package tftpconfig

import (
	"errors"
	"flag"
	"os"
	"path"
	"strconv"

	"github.com/obarthel/amiga-sana-ii-tftpclient/codec"
)

// Direction is which way the file moves.
type Direction int

const (
	// Download is a TFTP RRQ: the remote side is the source.
	Download Direction = iota
	// Upload is a TFTP WRQ: the remote side is the destination.
	Upload
)

// DefaultRemotePort is the well-known TFTP server port, RFC 1350.
const DefaultRemotePort = 69

var (
	loopback = [4]byte{127, 0, 0, 1}
	bcast    = [4]byte{255, 255, 255, 255}
)

// ErrMissingLocalAddr, ErrBadLocalAddr, etc. name the pre-flight checks a
// Config can fail.
var (
	ErrMissingLocalAddr  = errors.New("tftpconfig: local IPv4 address is required")
	ErrBadLocalAddr      = errors.New("tftpconfig: local IPv4 address is invalid")
	ErrBadRemotePort     = errors.New("tftpconfig: remote port out of range")
	// ErrNeedExactlyOneRemote also covers the self-addressed-transfer
	// rejection: normalize demotes a source/destination whose address
	// equals the local host or loopback to "local" before this check
	// runs, so a self-addressed remote surfaces here rather than as a
	// distinct error.
	ErrNeedExactlyOneRemote = errors.New("tftpconfig: exactly one of source or destination must name a remote address")
	ErrBroadcastRemote      = errors.New("tftpconfig: 255.255.255.255 is not a valid remote address")
)

// Config is the fully validated, direction-resolved configuration a
// Session is built from.
type Config struct {
	DeviceName string
	DeviceUnit int

	LocalAddr  [4]byte
	RemoteAddr [4]byte
	RemotePort uint16

	Direction      Direction
	RemoteFilename string
	LocalPath      string

	Overwrite bool
	Quiet     bool
	Verbose   bool
}

// endpoint is one side of a source/destination pair after SplitHostPath.
type endpoint struct {
	addr     [4]byte
	isRemote bool
	path     string
}

func parseEndpoint(s string) endpoint {
	a, rest := codec.SplitHostPath(s)
	if a == 0 {
		return endpoint{path: rest}
	}
	var addr [4]byte
	addr[0] = byte(a >> 24)
	addr[1] = byte(a >> 16)
	addr[2] = byte(a >> 8)
	addr[3] = byte(a)
	return endpoint{addr: addr, isRemote: true, path: rest}
}

// Parse parses args (excluding the program name) against name's flag
// set, falling back to environment variables for device name, device
// unit, and local address when the corresponding flag was not set, then
// runs every pre-flight check. name is used only for usage/error text.
func Parse(name string, args []string) (*Config, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	deviceName := fs.String("device", "", "link-layer device name")
	deviceUnit := fs.Int("unit", 0, "link-layer device unit number")
	localAddr := fs.String("local", "", "local IPv4 address")
	remotePort := fs.Int("port", DefaultRemotePort, "remote TFTP server port")
	source := fs.String("source", "", "source: path, or addr:path for a remote file")
	destination := fs.String("destination", "", "destination: path, or addr:path for a remote file")
	overwrite := fs.Bool("overwrite", false, "allow replacing an existing destination file")
	quiet := fs.Bool("quiet", false, "suppress non-error console output")
	verbose := fs.Bool("verbose", false, "extra trace output")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *deviceName == "" {
		*deviceName = os.Getenv("TFTPCLIENT_DEVICE")
	}
	if !flagWasSet(fs, "unit") {
		if v := os.Getenv("TFTPCLIENT_UNIT"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*deviceUnit = n
			}
		}
	}
	if *localAddr == "" {
		*localAddr = os.Getenv("TFTPCLIENT_LOCAL")
	}

	if *remotePort < 1 || *remotePort > 65535 {
		return nil, ErrBadRemotePort
	}

	local, ok := codec.ParseIPv4Bytes(*localAddr)
	if *localAddr == "" {
		return nil, ErrMissingLocalAddr
	}
	if !ok {
		return nil, ErrBadLocalAddr
	}

	src := parseEndpoint(*source)
	dst := parseEndpoint(*destination)

	normalize := func(e *endpoint) {
		if e.isRemote && (e.addr == local || e.addr == loopback) {
			e.isRemote = false
		}
	}
	normalize(&src)
	normalize(&dst)

	if src.isRemote == dst.isRemote {
		return nil, ErrNeedExactlyOneRemote
	}

	cfg := &Config{
		DeviceName: *deviceName,
		DeviceUnit: *deviceUnit,
		LocalAddr:  local,
		RemotePort: uint16(*remotePort),
		Overwrite:  *overwrite,
		Quiet:      *quiet,
		Verbose:    *verbose,
	}

	var remote endpoint
	if src.isRemote {
		cfg.Direction = Download
		remote = src
		cfg.LocalPath = dst.path
	} else {
		cfg.Direction = Upload
		remote = dst
		cfg.LocalPath = src.path
	}

	if remote.addr == bcast {
		return nil, ErrBroadcastRemote
	}

	cfg.RemoteAddr = remote.addr
	cfg.RemoteFilename = remote.path

	if cfg.LocalPath == "" {
		cfg.LocalPath = path.Base(remote.path)
	}

	return cfg, nil
}

func flagWasSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
