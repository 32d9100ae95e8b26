package pen

import (
	"errors"
	"sync"
	"testing"
	"time"

	"kpssboot/internal/hw"
)

// fakeClock drives the wait loop without real sleeps: each Sleep call
// advances simulated time by the requested amount.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) sleep(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newSimCoordinator(cfg Config) (*Coordinator, *fakeClock) {
	clk := &fakeClock{}
	c := NewCoordinator(cfg, nil)
	c.Now = clk.now
	c.Sleep = clk.sleep
	return c, clk
}

func TestTokenStartsInvalid(t *testing.T) {
	c := NewCoordinator(Config{}, nil)
	if c.Token() != hw.InvalidHWID {
		t.Fatalf("new coordinator token = %v, want invalid sentinel", c.Token())
	}
}

func TestRequestReleaseConfirmed(t *testing.T) {
	c := NewCoordinator(Config{}, nil)
	self := hw.HWID(0x0101)

	woken := make(chan struct{}, 1)
	c.Wake = func() {
		select {
		case woken <- struct{}{}:
		default:
		}
	}

	var flushes int32
	var flushMu sync.Mutex
	c.Flush = func() {
		flushMu.Lock()
		flushes++
		flushMu.Unlock()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.AwaitRelease(self)
		c.ConfirmRunning()
	}()

	if err := c.RequestRelease(self); err != nil {
		t.Fatalf("RequestRelease failed: %v", err)
	}
	<-done

	select {
	case <-woken:
	default:
		t.Error("wake event was never sent")
	}
	if c.Token() != hw.InvalidHWID {
		t.Errorf("token after handshake = %v, want invalid sentinel", c.Token())
	}
	flushMu.Lock()
	if flushes < 2 {
		t.Errorf("flush ran %d times, want one per publish (>= 2)", flushes)
	}
	flushMu.Unlock()
}

func TestRequestReleaseTimeout(t *testing.T) {
	c, clk := newSimCoordinator(Config{})

	start := clk.now()
	err := c.RequestRelease(hw.HWID(0x0003))

	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TimeoutError, got %T: %v", err, err)
	}
	if te.HWID != hw.HWID(0x0003) {
		t.Errorf("TimeoutError.HWID = %v, want 0x000003", te.HWID)
	}
	if waited := clk.now().Sub(start); waited < DefaultTimeout {
		t.Errorf("gave up after %v of simulated time, want >= %v", waited, DefaultTimeout)
	}

	// The stale request must still be visible; nothing cleared it.
	if c.Token() != hw.HWID(0x0003) {
		t.Errorf("token after timeout = %v, want the published HWID", c.Token())
	}
}

func TestTimeoutDoesNotBlockNextRelease(t *testing.T) {
	c := NewCoordinator(Config{Timeout: 20 * time.Millisecond}, nil)

	if err := c.RequestRelease(hw.HWID(0x0002)); err == nil {
		t.Fatal("expected timeout for unresponsive core")
	}

	// A later release of a different core must still work.
	next := hw.HWID(0x0003)
	done := make(chan error, 1)
	go func() {
		c.AwaitRelease(next)
		c.ConfirmRunning()
		done <- nil
	}()
	if err := c.RequestRelease(next); err != nil {
		t.Fatalf("release after a prior timeout failed: %v", err)
	}
	<-done
}

func TestConfigDefaults(t *testing.T) {
	c := NewCoordinator(Config{}, nil)
	if c.cfg.PollInterval != DefaultPollInterval {
		t.Errorf("PollInterval = %v, want %v", c.cfg.PollInterval, DefaultPollInterval)
	}
	if c.cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", c.cfg.Timeout, DefaultTimeout)
	}
}
