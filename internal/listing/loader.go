package listing

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultCompactBreakpoint is the widest viewport still treated as compact.
const DefaultCompactBreakpoint = 1023

const stabilizeDelay = 50 * time.Millisecond

// StabilizedMsg reports that revision rev has been on screen long enough
// for the loader to watch the end of the list again.
type StabilizedMsg struct {
	Rev int
}

// Loader continues the list in compact viewports once the cursor reaches
// the end of the loaded items.
type Loader struct {
	breakpoint int
	threshold  int

	compact  bool
	overlay  bool
	armed    bool
	armedRev int
}

// NewLoader treats widths up to breakpoint as compact. The sentinel counts
// as visible within threshold rows of the last item.
func NewLoader(breakpoint, threshold int) *Loader {
	if breakpoint <= 0 {
		breakpoint = DefaultCompactBreakpoint
	}
	if threshold < 1 {
		threshold = 1
	}
	return &Loader{breakpoint: breakpoint, threshold: threshold}
}

// Resize re-evaluates compact mode. Leaving it closes the compact-only
// overlay and disarms the loader.
func (l *Loader) Resize(width int) {
	compact := width <= l.breakpoint
	if l.compact && !compact {
		l.overlay = false
		l.armed = false
	}
	l.compact = compact
}

func (l *Loader) Compact() bool { return l.compact }
func (l *Loader) Armed() bool { return l.armed }

func (l *Loader) OverlayOpen() bool { return l.overlay }

// OpenOverlay shows the compact filter drawer. Outside compact mode it is a
// no-op.
func (l *Loader) OpenOverlay() {
	if l.compact {
		l.overlay = true
	}
}

func (l *Loader) CloseOverlay() { l.overlay = false }

// Settle disarms the loader for a new list revision and schedules the
// stabilization message that may re-arm it.
func (l *Loader) Settle(rev int) tea.Cmd {
	l.armed = false
	return tea.Tick(stabilizeDelay, func(time.Time) tea.Msg {
		return StabilizedMsg{Rev: rev}
	})
}

// Stabilized arms the loader when msg still describes the controller's
// current list and that list is not empty.
func (l *Loader) Stabilized(msg StabilizedMsg, c *Controller) {
	if msg.Rev != c.Revision() || len(c.Items()) == 0 {
		return
	}
	l.armed = true
	l.armedRev = msg.Rev
}

// Rearm arms the loader again after a failed fetch. The list did not
// change, so there is nothing to wait for; the next cursor move retries.
func (l *Loader) Rearm(c *Controller) {
	l.Stabilized(StabilizedMsg{Rev: c.Revision()}, c)
}

// SentinelVisible reports whether cursor is close enough to the end of a
// list of count items.
func (l *Loader) SentinelVisible(cursor, count int) bool {
	return count > 0 && cursor >= count-l.threshold
}

// Check runs after the cursor moves. It asks the controller for the next
// page when everything lines up and disarms until the result settles.
func (l *Loader) Check(c *Controller, cursor int) tea.Cmd {
	if !l.compact || !l.armed || l.armedRev != c.Revision() {
		return nil
	}
	if !l.SentinelVisible(cursor, len(c.Items())) {
		return nil
	}
	cmd := c.LoadMore()
	if cmd != nil {
		l.armed = false
	}
	return cmd
}
