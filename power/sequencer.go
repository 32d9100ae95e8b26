package power

import (
	"time"

	"kpssboot/common"
	"kpssboot/mmio"
)

// Sequencer executes the variant power scripts against scoped register
// windows. Windows are mapped per call and unmapped before returning;
// nothing is held across calls.
type Sequencer struct {
	// Delay implements the settle delays the scripts call for. Replace
	// it in tests or simulations to avoid real sleeps.
	Delay func(time.Duration)

	mapper mmio.Mapper
	log    common.Logger
}

// NewSequencer creates a sequencer over the given register mapper.
func NewSequencer(mapper mmio.Mapper, log common.Logger) *Sequencer {
	if log == nil {
		log = common.NewNoOpLogger()
	}
	return &Sequencer{Delay: time.Sleep, mapper: mapper, log: log}
}

// PowerOnSharedCache brings the L2/SCU power domain up. If the status
// register already reports the domain powered, it returns without writing
// anything; otherwise the full script runs in order. A mapping failure
// aborts the bring-up and is returned to the caller — the sequence is not
// retried internally.
func (s *Sequencer) PowerOnSharedCache(domain mmio.Region) error {
	win, err := s.mapper.Map(domain.Base, domain.Size)
	if err != nil {
		return err
	}
	defer win.Unmap()

	status, err := win.ReadRelaxed(L2PwrStatus)
	if err != nil {
		return err
	}
	if status&L2PoweredBit != 0 {
		s.log.Debug("L2 domain already powered, skipping power-on sequence")
		return nil
	}

	return l2PowerOnScript.run(win, s.Delay)
}

// UnclampCoreRail releases one core's power rail from clamped reset.
// The caller must have powered the core's shared cache domain first.
func (s *Sequencer) UnclampCoreRail(acc mmio.Region) error {
	win, err := s.mapper.Map(acc.Base, acc.Size)
	if err != nil {
		return err
	}
	defer win.Unmap()

	return railUnclampScript.run(win, s.Delay)
}
