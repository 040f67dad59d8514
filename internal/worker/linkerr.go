package worker

import (
	"errors"
	"os"
	"syscall"
)

// isTransientLinkError classifies a DAC write failure the way the
// original firmware's errno switch did (EPIPE/ECONNRESET/ETIMEDOUT/
// EBADF/EIO): these mean the link dropped and is worth reconnecting for,
// as opposed to a configuration or protocol error that will not clear on
// its own and should abort the cycle instead.
func isTransientLinkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	for _, errno := range []syscall.Errno{
		syscall.EPIPE,
		syscall.ECONNRESET,
		syscall.ETIMEDOUT,
		syscall.EBADF,
		syscall.EIO,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
