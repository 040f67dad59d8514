package broker

import (
	"log"
	"time"

	"iterctl/internal/params"
	"iterctl/internal/regbank"
)

// tickPersister flushes the parameter file once the dirty bit has sat
// unacknowledged longer than persistDebounce, coalescing a burst of panel
// writes into a single disk write.
func (l *Loop) tickPersister() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.dirty || time.Since(l.lastChange) < persistDebounce {
		return
	}
	l.saveLocked()
}

// flushPending saves unconditionally, for use on shutdown where waiting
// out the debounce window would drop the last write.
func (l *Loop) flushPending() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.dirty {
		return
	}
	l.saveLocked()
}

func (l *Loop) saveLocked() {
	if err := params.SaveAtomic(l.paramsPath, l.params); err != nil {
		log.Printf("broker: save %s: %v", l.paramsPath, err)
		return
	}
	l.dirty = false
	if mt, err := params.Mtime(l.paramsPath); err == nil {
		// Cache the mtime our own write produced so the next external-change
		// poll doesn't mistake this save for an operator edit and reload it.
		l.cachedMtime = mt
	}
}

// tickExternalChange polls the parameter file's mtime and reloads it when
// it changed out from under the Broker — but only when there is no
// pending local write, so an operator edit never races a panel write still
// waiting out its debounce window.
func (l *Loop) tickExternalChange() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.dirty {
		return
	}

	changed, mt, err := params.Changed(l.paramsPath, l.cachedMtime)
	if err != nil {
		return
	}
	if !changed {
		l.cachedMtime = mt
		return
	}

	p, parsed, err := params.Load(l.paramsPath)
	if err != nil || parsed == 0 {
		log.Printf("broker: %s changed but is unusable (parsed=%d, err=%v); keeping current params", l.paramsPath, parsed, err)
		l.cachedMtime = mt
		return
	}

	l.params = p
	regbank.Project(l.params, l.bank)
	l.cachedMtime = mt
	log.Printf("broker: reloaded %s after external change", l.paramsPath)
}
