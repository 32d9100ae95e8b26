// bootsim brings up a simulated multi-core SoC: it wires the cpu
// operations table to an in-memory register bank and goroutine-parked
// secondary cores, then walks every core through prepare and boot.
package main

import (
	"flag"
	"fmt"
	"os"
	"sync"

	"kpssboot/common"
	"kpssboot/cpuops"
	"kpssboot/internal/hw"
	"kpssboot/mmio"
	"kpssboot/pen"
	"kpssboot/power"
)

const (
	penEntry = 0x80000

	l2Base   = 0xB011000
	acc0Base = 0xB088000
	accStep  = 0x10000
	regSize  = 0x100
)

// simTopology lays out a single-cluster system: one shared L2 domain and
// one ACC block per core.
type simTopology struct {
	cores int
}

func (t simTopology) Core(id cpuops.CoreID) (cpuops.CoreInfo, error) {
	if int(id) < 0 || int(id) >= t.cores {
		return cpuops.CoreInfo{}, fmt.Errorf("no cpu node for core %d", id)
	}
	return cpuops.CoreInfo{
		HWID:        hw.HWID(id),
		CacheDomain: mmio.Region{Base: l2Base, Size: regSize},
		ACC:         mmio.Region{Base: acc0Base + uint64(id)*accStep, Size: regSize},
	}, nil
}

// simMonitor accepts every cold boot address registration.
type simMonitor struct {
	log common.Logger
}

func (m simMonitor) MulticlusterBootAvailable() bool { return true }

func (m simMonitor) SetColdBootAddr(entry uint64, aff0, aff1, aff2 uint32) error {
	m.log.Logf(common.SeverityDebug, "firmware: entry=0x%X aff0=0x%X aff1=0x%X aff2=0x%X",
		entry, aff0, aff1, aff2)
	return nil
}

func main() {
	var (
		cores   = flag.Int("cores", 4, "number of logical cores")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := common.SeverityInfo
	if *verbose {
		level = common.SeverityDebug
	}
	log := common.NewStdLogger(level)

	bank := mmio.NewSimBank()
	bank.AddRegion(l2Base, regSize)
	for i := 0; i < *cores; i++ {
		bank.AddRegion(acc0Base+uint64(i)*accStep, regSize)
	}

	topo := simTopology{cores: *cores}
	coord := pen.NewCoordinator(pen.Config{}, log)
	seq := power.NewSequencer(bank, log)
	ops := cpuops.NewOps(topo, simMonitor{log: log}, seq, coord, penEntry, log)

	if err := ops.Init(); err != nil {
		log.Error(err)
		os.Exit(1)
	}

	for i := 0; i < *cores; i++ {
		if err := ops.Prepare(cpuops.CoreID(i)); err != nil {
			log.Error(err)
			os.Exit(1)
		}
	}

	// Park every secondary in its simulated holding pen.
	var wg sync.WaitGroup
	for i := 1; i < *cores; i++ {
		info, _ := topo.Core(cpuops.CoreID(i))
		wg.Add(1)
		go func(id cpuops.CoreID, self hw.HWID) {
			defer wg.Done()
			coord.AwaitRelease(self)
			ops.Postboot()
			log.Logf(common.SeverityInfo, "CPU%d: running", id)
		}(cpuops.CoreID(i), info.HWID)
	}

	failed := 0
	for i := 1; i < *cores; i++ {
		if err := ops.Boot(cpuops.CoreID(i)); err != nil {
			log.Error(err)
			failed++
			continue
		}
		log.Logf(common.SeverityInfo, "CPU%d: boot complete", i)
	}
	wg.Wait()

	trace := bank.Trace()
	log.Logf(common.SeverityInfo, "bring-up finished: %d cores, %d register operations, %d failures",
		*cores, len(trace), failed)
	if failed > 0 {
		os.Exit(1)
	}
}
