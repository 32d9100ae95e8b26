// Package cpuops exposes the per-core CPU operations the boot
// orchestrator drives to bring secondary cores online: Init, Prepare,
// Boot and Postboot. It composes the power sequencer (cold boot) with the
// holding-pen coordinator (release handshake) over a topology provider
// and the secure monitor firmware interface.
package cpuops

import (
	"fmt"
	"sync"

	"kpssboot/common"
	"kpssboot/internal/hw"
	"kpssboot/mmio"
	"kpssboot/pen"
	"kpssboot/power"
)

// CoreID is a logical core identifier assigned by topology discovery.
type CoreID int

// BootCore is the core the system comes up on; it never cold-boots
// through this driver.
const BootCore CoreID = 0

// CoreInfo is the topology record for one logical core.
type CoreInfo struct {
	HWID        hw.HWID
	CacheDomain mmio.Region // L2/SCU power domain register block
	ACC         mmio.Region // per-core power rail register block
}

// Topology resolves logical cores to their hardware identity and register
// regions. Stands in for device-tree lookup.
type Topology interface {
	Core(id CoreID) (CoreInfo, error)
}

// SecureMonitor is the firmware call interface used during bring-up.
type SecureMonitor interface {
	// MulticlusterBootAvailable reports whether the monitor implements
	// multi-cluster cold boot.
	MulticlusterBootAvailable() bool

	// SetColdBootAddr registers the holding-pen entry point for the
	// cores selected by the per-level affinity masks.
	SetColdBootAddr(entry uint64, aff0, aff1, aff2 uint32) error
}

// Ops is the CPU operations table. All bring-up state lives here
// explicitly: the one-time init latch and the per-core cold-boot flags.
type Ops struct {
	topo  Topology
	scm   SecureMonitor
	seq   *power.Sequencer
	pen   *pen.Coordinator
	entry uint64 // physical address of the holding pen
	log   common.Logger

	mu           sync.Mutex
	initialized  bool
	coldBootDone map[CoreID]bool
}

// NewOps creates the operations table. entry is the physical address
// secondary cores start executing at out of cold boot.
func NewOps(topo Topology, scm SecureMonitor, seq *power.Sequencer, coord *pen.Coordinator, entry uint64, log common.Logger) *Ops {
	if log == nil {
		log = common.NewNoOpLogger()
	}
	return &Ops{
		topo:         topo,
		scm:          scm,
		seq:          seq,
		pen:          coord,
		entry:        entry,
		log:          log,
		coldBootDone: make(map[CoreID]bool),
	}
}

// Init performs the one-time platform check. It returns
// ErrUnsupportedPlatform if the secure monitor cannot cold-boot
// secondaries; after the first success, further calls are no-ops.
func (o *Ops) Init() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.initialized {
		return nil
	}
	if !o.scm.MulticlusterBootAvailable() {
		o.log.Error(ErrUnsupportedPlatform)
		return ErrUnsupportedPlatform
	}
	o.initialized = true
	return nil
}

// Prepare registers the holding-pen entry point with firmware for one
// core. It validates the core's HWID against the affinity mask first and
// never calls into firmware with a malformed identity. The designated
// boot core's cold-boot flag is marked done here, since it is already
// running.
func (o *Ops) Prepare(core CoreID) error {
	info, err := o.topo.Core(core)
	if err != nil {
		return &TopologyError{Core: core, Reason: err}
	}
	if !info.HWID.Valid() {
		o.log.Logf(common.SeverityError, "CPU%d: HWID %v outside affinity mask", core, info.HWID)
		return &TopologyError{Core: core, HWID: info.HWID}
	}

	aff0, aff1, aff2 := info.HWID.Affinity().Masks()
	if err := o.scm.SetColdBootAddr(o.entry, aff0, aff1, aff2); err != nil {
		o.log.Logf(common.SeverityWarning, "CPU%d: failed to set boot address", core)
		return &FirmwareError{Core: core, Reason: err}
	}

	o.mu.Lock()
	if !o.coldBootDone[BootCore] {
		o.coldBootDone[BootCore] = true
	}
	o.mu.Unlock()

	return nil
}

// Boot brings one secondary core online. The first successful call runs
// the cold-boot power sequence (shared cache, then rail unclamp); a
// failed sequence leaves the cold-boot flag unset so the caller may retry
// Boot and re-run it. Every call then performs the pen release handshake.
func (o *Ops) Boot(core CoreID) error {
	info, err := o.topo.Core(core)
	if err != nil {
		return &TopologyError{Core: core, Reason: err}
	}

	o.mu.Lock()
	done := o.coldBootDone[core]
	o.mu.Unlock()

	if !done {
		if err := o.coldBoot(core, info); err != nil {
			return err
		}
		o.mu.Lock()
		o.coldBootDone[core] = true
		o.mu.Unlock()
	}

	return o.pen.RequestRelease(info.HWID)
}

// coldBoot runs the power sequence for one core. The L2 domain must be up
// before the core's rail is unclamped.
func (o *Ops) coldBoot(core CoreID, info CoreInfo) error {
	if err := o.seq.PowerOnSharedCache(info.CacheDomain); err != nil {
		o.log.Logf(common.SeverityError, "L2 cache power up failed for CPU%d", core)
		return fmt.Errorf("cpuops: CPU%d: L2 power-on: %w", core, err)
	}
	if err := o.seq.UnclampCoreRail(info.ACC); err != nil {
		return fmt.Errorf("cpuops: CPU%d: rail unclamp: %w", core, err)
	}
	o.log.Logf(common.SeverityInfo, "CPU%d: power rail released", core)
	return nil
}

// Postboot runs on the released secondary itself, right after it enters
// the registered entry point: tell the boot core we are out of the pen.
// Nothing here can fail; the caller is by definition already running.
func (o *Ops) Postboot() {
	o.pen.ConfirmRunning()
}
