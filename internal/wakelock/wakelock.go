// internal/wakelock/wakelock.go
//
// Best-effort display keep-awake for shop-floor terminals. The display
// staying on matters on the floor (gloved hands, mounted tablets), but a
// platform without an inhibitor is not an error — the lock silently does
// nothing there.

package wakelock

import (
	"os/exec"
	"sync"
)

// Lock holds the idle inhibitor for the lifetime of the session.
type Lock struct {
	mu  sync.Mutex
	cmd *exec.Cmd
}

// Acquire starts a systemd-inhibit child that blocks display idling until
// Release. Missing binary or refusal is swallowed.
func (l *Lock) Acquire() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cmd != nil {
		return
	}
	cmd := exec.Command("systemd-inhibit",
		"--what=idle", "--who=floorscan", "--why=shop floor scanning session",
		"sleep", "infinity")
	if err := cmd.Start(); err != nil {
		return
	}
	l.cmd = cmd
}

// Held reports whether the inhibitor is active.
func (l *Lock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cmd != nil
}

// Release ends the inhibitor on session teardown. Safe to call without a
// prior Acquire.
func (l *Lock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cmd == nil {
		return
	}
	_ = l.cmd.Process.Kill()
	_ = l.cmd.Wait()
	l.cmd = nil
}
