// Package location keeps the list's query string and its back/forward
// history, the terminal stand-in for the browser address bar.
package location

import (
	"net/url"

	"github.com/pders01/lumina/internal/debuglog"
)

const defaultMaxEntries = 50

// Persister stores the current query so the next launch can restore it.
type Persister interface {
	SaveLastView(query string) error
}

type History struct {
	entries []url.Values
	index   int
	ready   bool
	max     int
	persist Persister
}

// New starts a history with one entry. persist may be nil.
func New(initial url.Values, persist Persister) *History {
	if initial == nil {
		initial = url.Values{}
	}
	return &History{
		entries: []url.Values{clone(initial)},
		max:     defaultMaxEntries,
		persist: persist,
	}
}

// Ready is false until the owner has finished restoring state.
func (h *History) Ready() bool { return h.ready }

func (h *History) SetReady(ready bool) { h.ready = ready }

func (h *History) Query() url.Values { return clone(h.entries[h.index]) }

func (h *History) String() string { return h.entries[h.index].Encode() }

// Replace overwrites the current entry.
func (h *History) Replace(v url.Values) {
	h.entries[h.index] = clone(v)
	h.save()
}

// Push adds an entry after the current one and drops any forward entries.
func (h *History) Push(v url.Values) {
	h.entries = append(h.entries[:h.index+1], clone(v))
	if len(h.entries) > h.max {
		h.entries = h.entries[len(h.entries)-h.max:]
	}
	h.index = len(h.entries) - 1
	h.save()
}

func (h *History) CanBack() bool { return h.index > 0 }
func (h *History) CanForward() bool { return h.index < len(h.entries)-1 }

func (h *History) Back() bool {
	if !h.CanBack() {
		return false
	}
	h.index--
	h.save()
	return true
}

func (h *History) Forward() bool {
	if !h.CanForward() {
		return false
	}
	h.index++
	h.save()
	return true
}

func (h *History) Len() int { return len(h.entries) }

func (h *History) save() {
	if h.persist == nil {
		return
	}
	if err := h.persist.SaveLastView(h.String()); err != nil {
		debuglog.Warnf("saving last view: %v", err)
	}
}

func clone(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
