package session

import "errors"

var (
	// ErrDestinationExists is returned by Run when a download's
	// destination file already exists and the configuration did not
	// permit overwriting it. Run reports it with OutcomeWarning, which
	// the caller maps to the "warning" exit code rather than "error".
	ErrDestinationExists = errors.New("session: destination file exists and overwrite was not requested")

	errBadOpcode        = errors.New("session: unexpected TFTP opcode")
	errReadFailure      = errors.New("session: error reading from file")
	errWriteFailure     = errors.New("session: error writing to file")
)
