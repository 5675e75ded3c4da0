// Package progress turns unit counts from concurrent workers into a
// monotonic percentage stream.
package progress

import (
	"math"
	"sync"
	"sync/atomic"
)

// Reporter receives whole percentages in [0, 100].
type Reporter interface {
	Report(percent int)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(percent int)

func (f ReporterFunc) Report(percent int) { f(percent) }

// Discard ignores every report.
var Discard Reporter = ReporterFunc(func(int) {})

// Counter counts completed units against a known total and forwards the
// rounded percentage to a Reporter only when it changes. Add is safe for
// concurrent use and the emitted sequence is strictly increasing.
type Counter struct {
	total int64
	done  atomic.Int64
	r     Reporter

	mu   sync.Mutex
	last int
}

// NewCounter returns a counter over total units. A nil reporter discards.
func NewCounter(total int64, r Reporter) *Counter {
	if r == nil {
		r = Discard
	}
	return &Counter{total: total, r: r, last: -1}
}

// Add records n completed units.
func (c *Counter) Add(n int64) {
	if c == nil || c.total <= 0 {
		return
	}
	done := c.done.Add(n)
	pct := int(math.Round(float64(done) * 100 / float64(c.total)))
	if pct > 100 {
		pct = 100
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if pct <= c.last {
		return
	}
	c.last = pct
	c.r.Report(pct)
}

// Done returns the number of units recorded so far.
func (c *Counter) Done() int64 { return c.done.Load() }

// Total returns the expected number of units.
func (c *Counter) Total() int64 { return c.total }

// Span maps the full 0..100 range of a phase onto [from, to] of r, so that
// consecutive phases of one job report into a single percentage. Phase
// values that map onto the parent value reported last are dropped.
func Span(r Reporter, from, to int) Reporter {
	if r == nil {
		return Discard
	}
	return &span{r: r, from: from, to: to, last: -1}
}

type span struct {
	r        Reporter
	from, to int

	mu   sync.Mutex
	last int
}

func (s *span) Report(p int) {
	v := s.from + p*(s.to-s.from)/100
	s.mu.Lock()
	defer s.mu.Unlock()
	if v == s.last {
		return
	}
	s.last = v
	s.r.Report(v)
}

// Monotonic forwards only values greater than the last one forwarded. Wrap
// a reporter once before splitting it into spans so the boundary between
// two phases is reported once.
func Monotonic(r Reporter) Reporter {
	if r == nil {
		return Discard
	}
	return &monotonic{r: r, last: -1}
}

type monotonic struct {
	r    Reporter
	mu   sync.Mutex
	last int
}

func (m *monotonic) Report(p int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p <= m.last {
		return
	}
	m.last = p
	m.r.Report(p)
}
