package cpuops

import (
	"errors"
	"fmt"

	"kpssboot/internal/hw"
)

// ErrUnsupportedPlatform means the secure monitor does not implement
// multi-cluster boot; no CPU can be brought up on this platform.
var ErrUnsupportedPlatform = errors.New("cpuops: multi-cluster boot unavailable")

// TopologyError reports a core whose topology description is missing or
// whose HWID is malformed. Fatal for that core only.
type TopologyError struct {
	Core   CoreID
	HWID   hw.HWID
	Reason error
}

func (e *TopologyError) Error() string {
	if e.Reason != nil {
		return fmt.Sprintf("cpuops: CPU%d: invalid topology: %v", e.Core, e.Reason)
	}
	return fmt.Sprintf("cpuops: CPU%d: HWID %v has bits outside the affinity mask", e.Core, e.HWID)
}

func (e *TopologyError) Unwrap() error { return e.Reason }

// FirmwareError reports that the secure monitor rejected a cold boot
// address registration. Fatal for that core's prepare.
type FirmwareError struct {
	Core   CoreID
	Reason error
}

func (e *FirmwareError) Error() string {
	return fmt.Sprintf("cpuops: CPU%d: failed to set boot address: %v", e.Core, e.Reason)
}

func (e *FirmwareError) Unwrap() error { return e.Reason }
