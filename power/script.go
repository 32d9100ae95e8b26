// Package power drives the fixed register sequences that bring a CPU
// power domain out of clamped reset: shared (L2) cache power-on followed
// by the per-core rail unclamp. The sequences are hardware contracts,
// kept as data tables per SoC variant; this package only interprets them
// in strict order.
package power

import (
	"time"

	"kpssboot/mmio"
)

// Step is one entry of a hardware power script: a register write,
// optionally followed by a full barrier and a settle delay.
type Step struct {
	Offset  uint32
	Value   uint32
	Barrier bool
	Delay   time.Duration
}

// Script is an ordered power sequence. Steps must execute in table order;
// barriers forbid reordering across them.
type Script []Step

// run interprets the script against a mapped window. The delay function
// is injectable so tests and simulations need not sleep for real.
func (s Script) run(win *mmio.Window, delay func(time.Duration)) error {
	for _, step := range s {
		if err := win.WriteRelaxed(step.Offset, step.Value); err != nil {
			return err
		}
		if step.Barrier {
			win.Barrier()
		}
		if step.Delay > 0 {
			delay(step.Delay)
		}
	}
	return nil
}
