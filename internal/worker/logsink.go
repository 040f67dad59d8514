package worker

import (
	"io"
	"log"
	"os"
)

// redirectLogOutput is the per-cycle log rotation from spec.md ยง4.5: the
// original firmware dup2(2)'d its single process-wide stdout onto a
// fresh file each cycle. iterctl has no such global stdout to hijack, so
// the equivalent here is swapping the standard logger's io.Writer for
// the duration of one cycle — every log.Printf in that window reaches
// both the operator's terminal and the rotated file. The returned func
// restores the previous writer; it is safe to call more than once.
func redirectLogOutput(w io.Writer) func() {
	prev := log.Writer()
	log.SetOutput(io.MultiWriter(os.Stdout, w))
	return func() {
		log.SetOutput(prev)
	}
}
