package progress

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterEmitsOnChangeOnly(t *testing.T) {
	var got []int
	c := NewCounter(1000, ReporterFunc(func(p int) { got = append(got, p) }))
	for i := 0; i < 1000; i++ {
		c.Add(1)
	}
	require.Len(t, got, 101, "0..100 once each")
	for i, p := range got {
		assert.Equal(t, i, p)
	}
	assert.Equal(t, int64(1000), c.Done())
}

func TestCounterConcurrentMonotonic(t *testing.T) {
	var mu sync.Mutex
	var got []int
	c := NewCounter(64*500, ReporterFunc(func(p int) {
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
	}))
	var wg sync.WaitGroup
	for w := 0; w < 64; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				c.Add(1)
			}
		}()
	}
	wg.Wait()
	require.NotEmpty(t, got)
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i], got[i-1])
	}
	assert.Equal(t, 100, got[len(got)-1])
}

func TestCounterZeroTotalAndNil(t *testing.T) {
	called := false
	c := NewCounter(0, ReporterFunc(func(int) { called = true }))
	c.Add(5)
	assert.False(t, called)

	var nilCounter *Counter
	assert.NotPanics(t, func() { nilCounter.Add(1) })
}

func TestSpanMapsPhases(t *testing.T) {
	var got []int
	r := ReporterFunc(func(p int) { got = append(got, p) })
	Span(r, 0, 80).Report(50)
	Span(r, 0, 80).Report(100)
	Span(r, 80, 100).Report(50)
	Span(r, 80, 100).Report(100)
	assert.Equal(t, []int{40, 80, 90, 100}, got)
	Span(nil, 0, 10).Report(100)
}

func TestSpanDropsRepeats(t *testing.T) {
	var got []int
	r := ReporterFunc(func(p int) { got = append(got, p) })
	build := Span(r, 80, 100)
	for p := 0; p <= 10; p++ {
		build.Report(p)
	}
	assert.Equal(t, []int{80, 81, 82}, got)
}

func TestMonotonicJoinsPhases(t *testing.T) {
	var got []int
	r := Monotonic(ReporterFunc(func(p int) { got = append(got, p) }))
	trace, build := Span(r, 0, 80), Span(r, 80, 100)
	for _, p := range []int{0, 50, 100} {
		trace.Report(p)
	}
	for _, p := range []int{0, 1, 5, 100} {
		build.Report(p)
	}
	assert.Equal(t, []int{0, 40, 80, 81, 100}, got)
	assert.NotPanics(t, func() { Monotonic(nil).Report(5) })
}
