package hw

import "fmt"

// HWID is the hierarchical hardware identifier of a CPU, encoding its
// position in the cluster/core/thread topology.
// Equivalent to the MPIDR_EL1 affinity fields on ARMv8.
type HWID uint64

const (
	// InvalidHWID is the sentinel stored in the holding-pen release word
	// when no release is pending.
	InvalidHWID HWID = ^HWID(0)

	// HWIDBitmask covers the three affinity levels (Aff2|Aff1|Aff0).
	// Any bit outside this mask makes an HWID invalid for boot purposes.
	HWIDBitmask HWID = 0x00FFFFFF
)

// Valid returns true if the HWID has no bits outside the affinity mask.
func (id HWID) Valid() bool {
	return id&^HWIDBitmask == 0
}

// AffinityLevel extracts affinity level 0, 1 or 2 from the HWID.
func (id HWID) AffinityLevel(level uint) uint32 {
	return uint32(id>>(8*level)) & 0xFF
}

func (id HWID) String() string {
	if id == InvalidHWID {
		return "INVALID_HWID"
	}
	return fmt.Sprintf("0x%06X", uint64(id))
}

// AffinityPath is the up-to-3-level breakdown of an HWID used when
// registering a boot entry point with firmware.
type AffinityPath struct {
	Aff0 uint32 // thread / core within cluster
	Aff1 uint32 // cluster
	Aff2 uint32 // cluster group
}

// Affinity derives the AffinityPath of a valid HWID.
func (id HWID) Affinity() AffinityPath {
	return AffinityPath{
		Aff0: id.AffinityLevel(0),
		Aff1: id.AffinityLevel(1),
		Aff2: id.AffinityLevel(2),
	}
}

// Masks returns the single-bit per-level masks the secure monitor expects
// in a multi-cluster cold boot address registration.
func (p AffinityPath) Masks() (aff0, aff1, aff2 uint32) {
	return 1 << p.Aff0, 1 << p.Aff1, 1 << p.Aff2
}

func (p AffinityPath) String() string {
	return fmt.Sprintf("aff2=%d aff1=%d aff0=%d", p.Aff2, p.Aff1, p.Aff0)
}
