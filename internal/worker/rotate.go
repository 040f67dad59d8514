package worker

import "os"

// rotatingFile is the shared "current -> previous" sink contract both the
// per-cycle CSV and the per-cycle stdout log follow: a file is rewritten
// from scratch at the start of every cycle, atomically promoted to its
// "previous" name on successful completion, and discarded on abort.
//
// The original firmware did this with dup2(2) onto a single process-wide
// stdout; iterctl has no such global, so this is reimplemented as a
// plain io.Writer a caller can swap out per cycle.
type rotatingFile struct {
	currentPath string
	f           *os.File
}

func openRotating(currentPath string) (*rotatingFile, error) {
	f, err := os.Create(currentPath)
	if err != nil {
		return nil, err
	}
	return &rotatingFile{currentPath: currentPath, f: f}, nil
}

func (r *rotatingFile) Write(p []byte) (int, error) {
	return r.f.Write(p)
}

// Promote closes the current file and atomically renames it to
// previousPath, making it the just-finished cycle's durable record.
func (r *rotatingFile) Promote(previousPath string) error {
	if err := r.f.Close(); err != nil {
		return err
	}
	return os.Rename(r.currentPath, previousPath)
}

// Discard closes and removes the current file: an aborted cycle leaves no
// trace in the previous-cycle sink.
func (r *rotatingFile) Discard() error {
	path := r.currentPath
	if err := r.f.Close(); err != nil {
		return err
	}
	return os.Remove(path)
}
