//go:build windows

package display

import (
	"context"

	"golang.org/x/sys/windows"
)

const (
	hwndBroadcast  = 0xffff
	wmSyscommand   = 0x0112
	scMonitorPower = 0xf170
	monitorOff     = 2
)

var (
	user32       = windows.NewLazySystemDLL("user32.dll")
	sendMessageW = user32.NewProc("SendMessageW")
)

// NewProber returns the Windows display prober. Windows exposes no
// reliable query for monitor power, so the probe is unsupported and the
// watch role degrades to a permanent "off" reading.
func NewProber() Prober {
	return &windowsProber{}
}

// NewSleeper returns the Windows sleep trigger, which broadcasts
// SC_MONITORPOWER to turn all monitors off.
func NewSleeper() Sleeper {
	return &windowsSleeper{}
}

type windowsProber struct{}

func (p *windowsProber) Probe(ctx context.Context) (bool, error) {
	return false, ErrUnsupported
}

type windowsSleeper struct{}

func (s *windowsSleeper) Sleep(ctx context.Context) error {
	sendMessageW.Call(
		uintptr(hwndBroadcast),
		uintptr(wmSyscommand),
		uintptr(scMonitorPower),
		uintptr(monitorOff),
	)
	return nil
}
