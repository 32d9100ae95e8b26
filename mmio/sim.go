package mmio

import (
	"fmt"
	"sync"
)

// OpKind discriminates entries in a SimBank's operation trace.
type OpKind int

const (
	OpWrite OpKind = iota
	OpBarrier
)

func (k OpKind) String() string {
	switch k {
	case OpWrite:
		return "WRITE"
	case OpBarrier:
		return "BARRIER"
	default:
		return "UNKNOWN"
	}
}

// Op is one recorded register-bank operation. Reads are not recorded;
// hardware scripts are validated by their write/barrier order.
type Op struct {
	Kind OpKind
	Addr uint64 // absolute physical address (zero for barriers)
	Val  uint32 // written value (zero for barriers)
}

func (o Op) String() string {
	if o.Kind == OpBarrier {
		return "BARRIER"
	}
	return fmt.Sprintf("WRITE 0x%X = 0x%X", o.Addr, o.Val)
}

type simRegion struct {
	base uint64
	size uint32
}

// SimBank is an in-memory register bank standing in for the SoC's
// power-domain register blocks. It implements Device and Mapper, keeps an
// ordered trace of writes and barriers, and is safe for use from
// concurrently simulated cores.
type SimBank struct {
	mu      sync.Mutex
	regs    map[uint64]uint32
	regions []simRegion
	trace   []Op
}

// NewSimBank creates an empty simulated register bank. Map fails until
// regions are added with AddRegion.
func NewSimBank() *SimBank {
	return &SimBank{regs: make(map[uint64]uint32)}
}

// AddRegion declares a mappable physical range.
func (b *SimBank) AddRegion(base uint64, size uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.regions = append(b.regions, simRegion{base: base, size: size})
}

// Map implements Mapper. Only declared regions map successfully.
func (b *SimBank) Map(base uint64, size uint32) (*Window, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.regions {
		if base >= r.base && base+uint64(size) <= r.base+uint64(r.size) {
			return NewWindow(b, base, size), nil
		}
	}
	return nil, &MapError{Base: base, Size: size, Reason: fmt.Errorf("no device at address")}
}

// Write32 implements Device.
func (b *SimBank) Write32(addr uint64, val uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.regs[addr] = val
	b.trace = append(b.trace, Op{Kind: OpWrite, Addr: addr, Val: val})
}

// Read32 implements Device.
func (b *SimBank) Read32(addr uint64) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.regs[addr]
}

// Fence implements Device.
func (b *SimBank) Fence() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trace = append(b.trace, Op{Kind: OpBarrier})
}

// Preset sets a register value without recording a trace entry. Tests use
// it to model hardware-owned status bits.
func (b *SimBank) Preset(addr uint64, val uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.regs[addr] = val
}

// Trace returns a copy of the recorded operation sequence.
func (b *SimBank) Trace() []Op {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Op, len(b.trace))
	copy(out, b.trace)
	return out
}

// ResetTrace discards the recorded operations, keeping register contents.
func (b *SimBank) ResetTrace() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trace = nil
}
