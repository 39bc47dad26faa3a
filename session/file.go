package session

import (
	"io"
	"os"

	"github.com/obarthel/amiga-sana-ii-tftpclient/tftpconfig"
)

// openLocalFile opens the local side of the transfer: for a download it
// creates (truncating) the destination, refusing to clobber an existing
// file unless Overwrite was requested; for an upload it opens the
// source file for reading.
func (s *Session) openLocalFile() error {
	switch s.cfg.Direction {
	case tftpconfig.Download:
		if !s.cfg.Overwrite {
			if _, err := os.Stat(s.cfg.LocalPath); err == nil {
				return ErrDestinationExists
			}
		}

		f, err := os.OpenFile(s.cfg.LocalPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return err
		}
		s.file = f
		s.deleteOnFailure = true
		return nil

	default: // Upload
		f, err := os.Open(s.cfg.LocalPath)
		if err != nil {
			return err
		}
		s.file = f
		return nil
	}
}

// writeBlock writes a DATA payload to the destination file on a
// download, clearing deleteOnFailure after the first successful write.
func (s *Session) writeBlock(payload []byte) error {
	if _, err := s.file.Write(payload); err != nil {
		return errWriteFailure
	}
	s.deleteOnFailure = false
	return nil
}

// readBlock reads up to 512 bytes from the source file for an upload.
func (s *Session) readBlock() ([]byte, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(s.file, buf)
	switch {
	case err == nil:
		return buf, nil
	case err == io.ErrUnexpectedEOF, err == io.EOF:
		return buf[:n], nil
	default:
		return nil, errReadFailure
	}
}

// closeLocalFile finalizes the local file: on success a downloaded
// file has its execute permission bits cleared before closing; on
// failure, a destination that never received a successful write is
// deleted.
func (s *Session) closeLocalFile(succeeded bool) {
	if s.file == nil {
		return
	}

	if s.cfg.Direction == tftpconfig.Download {
		if succeeded {
			if fi, err := s.file.Stat(); err == nil {
				s.file.Chmod(fi.Mode() &^ 0o111)
			}
		}
	}

	s.file.Close()

	if !succeeded && s.cfg.Direction == tftpconfig.Download && s.deleteOnFailure {
		os.Remove(s.cfg.LocalPath)
	}
}
