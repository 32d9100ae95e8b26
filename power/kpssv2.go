package power

import "time"

// CPU power domain (ACC) register offsets.
const (
	CPUPwrCtl     uint32 = 0x4
	CPUPwrGateCtl uint32 = 0x14
)

// L2 power domain register offsets.
const (
	L2PwrCtlOverride uint32 = 0xc
	L2PwrCtl         uint32 = 0x14
	L2PwrStatus      uint32 = 0x18
	L2CoreCBCR       uint32 = 0x58
)

// L2PoweredBit in L2PwrStatus reads as set once the cache domain is up.
const L2PoweredBit uint32 = 1 << 9

const settle = 2 * time.Microsecond

// l2PowerOnScript powers up the L2/SCU domain on kpss-acc-v2 parts.
// Values and ordering come straight from the SoC power sequencing manual;
// do not reorder.
var l2PowerOnScript = Script{
	// Close L2/SCU logic GDHS and power up the cache
	{Offset: L2PwrCtl, Value: 0x10D700},
	// Assert PRESETDBGn
	{Offset: L2PwrCtlOverride, Value: 0x400000, Barrier: true, Delay: settle},
	// De-assert L2/SCU memory clamp
	{Offset: L2PwrCtl, Value: 0x101700},
	// Wake L2/SCU RAMs by de-asserting sleep signals
	{Offset: L2PwrCtl, Value: 0x101703, Barrier: true, Delay: settle},
	// Enable clocks via SW_CLK_EN
	{Offset: L2CoreCBCR, Value: 0x01},
	// De-assert L2/SCU logic clamp
	{Offset: L2PwrCtl, Value: 0x101603, Barrier: true, Delay: settle},
	// De-assert PRESETDBGn
	{Offset: L2PwrCtlOverride, Value: 0x0},
	// De-assert L2/SCU logic reset
	{Offset: L2PwrCtl, Value: 0x100203, Barrier: true, Delay: 54 * time.Microsecond},
	// Turn on the PMIC_APC
	{Offset: L2PwrCtl, Value: 0x10100203},
	// Hand the CPU CBC block over to hardware clock control
	{Offset: L2CoreCBCR, Value: 0x03, Barrier: true},
}

// railUnclampScript releases one secondary core's power rail. Every write
// is ordered by a barrier before the next.
var railUnclampScript = Script{
	// Assert reset on the core
	{Offset: CPUPwrCtl, Value: 0x00000033, Barrier: true},
	// Program skew to 16 X0 clock cycles
	{Offset: CPUPwrGateCtl, Value: 0x10000001, Barrier: true, Delay: settle},
	// De-assert coremem clamp
	{Offset: CPUPwrCtl, Value: 0x00000031, Barrier: true},
	// Close coremem array GDHS
	{Offset: CPUPwrCtl, Value: 0x00000039, Barrier: true, Delay: settle},
	// De-assert core clamp
	{Offset: CPUPwrCtl, Value: 0x00020038, Barrier: true, Delay: settle},
	// De-assert core reset
	{Offset: CPUPwrCtl, Value: 0x00020008, Barrier: true},
	// Assert PWRDUP; the core is now alive
	{Offset: CPUPwrCtl, Value: 0x00020088, Barrier: true},
}
