package agent

import (
	"sync"
	"time"
)

// Relay drives the physical contact. All values are physical state.
type Relay interface {
	Set(on bool) error
	State() (bool, error)
}

// Uptime is a monotonic counter since boot, the one time source every device
// has.
type Uptime interface {
	Uptime() time.Duration
}

// Clock is the wall clock. ok is false while the device has no trusted time.
type Clock interface {
	Now() (now time.Time, ok bool)
}

type processUptime struct {
	start time.Time
}

func NewProcessUptime() Uptime {
	return &processUptime{start: time.Now()}
}

func (u *processUptime) Uptime() time.Duration {
	return time.Since(u.start)
}

type systemClock struct{}

func NewSystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() (time.Time, bool) {
	return time.Now(), true
}

// MemoryRelay keeps the relay state in memory and counts switch operations.
type MemoryRelay struct {
	mu       sync.Mutex
	on       bool
	switches int
	err      error
}

func NewMemoryRelay(on bool) *MemoryRelay {
	return &MemoryRelay{on: on}
}

func (r *MemoryRelay) Set(on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if r.on != on {
		r.switches++
	}
	r.on = on
	return nil
}

func (r *MemoryRelay) State() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.on, r.err
}

// Switches is how often the contact actually changed.
func (r *MemoryRelay) Switches() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.switches
}

// Fail makes every further call return err, nil heals the relay.
func (r *MemoryRelay) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}
