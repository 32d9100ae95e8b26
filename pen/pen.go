// Package pen implements the holding-pen handshake that releases a parked
// secondary CPU into kernel code. A single shared release word carries the
// target core's HWID; the boot core publishes it and spins until the
// secondary clears it back to the invalid sentinel. One boot lock
// serializes release requests, so at most one release is in flight
// system-wide.
package pen

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"kpssboot/common"
	"kpssboot/internal/hw"
)

// Defaults for the release wait loop.
const (
	DefaultPollInterval = 10 * time.Microsecond
	DefaultTimeout      = time.Second
)

// TimeoutError reports that a secondary core never acknowledged its
// release within the wait ceiling. Fatal for that core's bring-up attempt;
// other cores are unaffected.
type TimeoutError struct {
	HWID   hw.HWID
	Waited time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("pen: core %v did not leave the holding pen within %v", e.HWID, e.Waited)
}

// Config carries the tunable wait-loop parameters. Zero values select the
// defaults.
type Config struct {
	PollInterval time.Duration
	Timeout      time.Duration
}

// bootLock is a spin-style mutex. The target environment has no scheduler
// to block on; Gosched only keeps simulated cores runnable when goroutines
// share an OS thread.
type bootLock struct {
	held atomic.Bool
}

func (l *bootLock) lock() {
	for !l.held.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

func (l *bootLock) unlock() {
	l.held.Store(false)
}

// Coordinator owns the release word and the boot lock.
//
// Every publish of the release word is an ordered store followed by the
// Flush hook: secondary cores may read the word through incoherent paths
// before their caches are up, so the containing line must be cleaned to
// the point of coherency. Skipping the flush is a hardware-visible race,
// not an optimization.
type Coordinator struct {
	// Flush cleans the release word's cache line. No-op by default;
	// real targets install the dcache maintenance routine.
	Flush func()

	// Wake sends the event signal (SEV) that pops parked cores out of
	// their low-power wait. No-op by default.
	Wake func()

	// Now and Sleep drive the wait loop; replaceable with a simulated
	// clock in tests.
	Now   func() time.Time
	Sleep func(time.Duration)

	cfg  Config
	tok  atomic.Uint64
	lock bootLock
	log  common.Logger
}

// NewCoordinator creates a coordinator with the release word parked at the
// invalid sentinel.
func NewCoordinator(cfg Config, log common.Logger) *Coordinator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = common.NewNoOpLogger()
	}
	c := &Coordinator{
		Flush: func() {},
		Wake:  func() {},
		Now:   time.Now,
		Sleep: time.Sleep,
		cfg:   cfg,
		log:   log,
	}
	c.tok.Store(uint64(hw.InvalidHWID))
	return c
}

// publish stores a new release word value, ordered ahead of the flush so
// any observer sees the value once the line is clean.
func (c *Coordinator) publish(v hw.HWID) {
	c.tok.Store(uint64(v))
	c.Flush()
}

// Token returns the current release word. Parked cores poll this to learn
// when they have been released.
func (c *Coordinator) Token() hw.HWID {
	return hw.HWID(c.tok.Load())
}

// RequestRelease publishes the target core's HWID, wakes the parked cores,
// and spins until the target clears the word back to the sentinel or the
// timeout elapses. Called by the boot core only.
func (c *Coordinator) RequestRelease(id hw.HWID) error {
	// Set synchronization state between the boot core and the target;
	// the lock bounds the protocol to one release in flight.
	c.lock.lock()

	c.publish(id)
	c.Wake()

	deadline := c.Now().Add(c.cfg.Timeout)
	for c.Now().Before(deadline) {
		if c.Token() == hw.InvalidHWID {
			break
		}
		c.Sleep(c.cfg.PollInterval)
	}

	c.lock.unlock()

	if c.Token() != hw.InvalidHWID {
		c.log.Logf(common.SeverityWarning, "core %v failed to leave the pen", id)
		return &TimeoutError{HWID: id, Waited: c.cfg.Timeout}
	}
	return nil
}

// AwaitRelease is the parked secondary's side of the pen: spin until the
// release word names this core. Simulated cores use this; real hardware
// parks in a WFE loop over the same word.
func (c *Coordinator) AwaitRelease(self hw.HWID) {
	for c.Token() != self {
		runtime.Gosched()
	}
}

// ConfirmRunning is called by the released secondary once it is executing
// its entry point. It clears the release word, then takes and drops the
// boot lock: a rendezvous that lets any in-flight RequestRelease finish
// its critical section before this core proceeds.
func (c *Coordinator) ConfirmRunning() {
	c.publish(hw.InvalidHWID)

	c.lock.lock()
	c.lock.unlock()
}
