// Package mmio provides typed, windowed access to memory-mapped 32-bit
// control/status registers. A Window gives relaxed (unordered) reads and
// writes plus an explicit full barrier; power sequencing code relies on
// the write-then-barrier contract to keep hardware scripts in order.
package mmio

import "fmt"

// MapError reports that a physical register range could not be mapped.
type MapError struct {
	Base   uint64
	Size   uint32
	Reason error
}

func (e *MapError) Error() string {
	return fmt.Sprintf("mmio: cannot map 0x%X (+0x%X): %v", e.Base, e.Size, e.Reason)
}

func (e *MapError) Unwrap() error { return e.Reason }

// RangeError reports a register access outside the mapped window.
// This indicates a bug in a hardware script, not a runtime condition.
type RangeError struct {
	Offset uint32
	Size   uint32
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("mmio: offset 0x%X outside window of size 0x%X", e.Offset, e.Size)
}

// Device is the backend a Window reads and writes through. Implementations
// provide the actual register storage (hardware pages, or a SimBank).
type Device interface {
	// Read32 and Write32 access one 32-bit register at an absolute
	// physical address. No ordering is implied.
	Read32(addr uint64) uint32
	Write32(addr uint64, val uint32)

	// Fence orders all prior writes before any subsequent operation
	// by any observer.
	Fence()
}

// Mapper maps physical register ranges into Windows. Mapping is scoped:
// callers map, drive the window, and unmap before returning.
type Mapper interface {
	Map(base uint64, size uint32) (*Window, error)
}

// Region describes a mappable physical register range, as handed out by
// topology discovery.
type Region struct {
	Base uint64
	Size uint32
}

// Window is a mapped view over one power domain's register block.
// All offsets are validated against the mapped size.
type Window struct {
	dev  Device
	base uint64
	size uint32
}

// NewWindow wraps a device region in a Window. Mappers use this; most
// callers obtain Windows through a Mapper instead.
func NewWindow(dev Device, base uint64, size uint32) *Window {
	return &Window{dev: dev, base: base, size: size}
}

// WriteRelaxed writes a register with no ordering guarantee relative to
// other writes. Callers needing ordering must follow with Barrier.
func (w *Window) WriteRelaxed(offset uint32, val uint32) error {
	if offset+4 > w.size || offset+4 < offset {
		return &RangeError{Offset: offset, Size: w.size}
	}
	w.dev.Write32(w.base+uint64(offset), val)
	return nil
}

// ReadRelaxed reads a register with no ordering guarantee.
func (w *Window) ReadRelaxed(offset uint32) (uint32, error) {
	if offset+4 > w.size || offset+4 < offset {
		return 0, &RangeError{Offset: offset, Size: w.size}
	}
	return w.dev.Read32(w.base + uint64(offset)), nil
}

// Barrier issues a full memory barrier: every prior relaxed write is
// globally observable before anything after the barrier.
func (w *Window) Barrier() {
	w.dev.Fence()
}

// Unmap releases the window. The window must not be used afterwards.
func (w *Window) Unmap() {
	w.dev = nil
}
