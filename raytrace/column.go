package raytrace

import "math"

const (
	// RaysPerColumn is the number of parallel rays cast through a column.
	RaysPerColumn = 5
	// EdgeInset keeps the corner rays just inside the column so that a face
	// lying exactly on a cell boundary is hit by one column only.
	EdgeInset = 0.0000045
	// BleedCells is how far the face material reaches past the surface.
	BleedCells = 5
)

const cornerOffset = 0.5 - EdgeInset

// rayOffsets are the (u, v) offsets of the rays from the column center.
var rayOffsets = [RaysPerColumn][2]float64{
	{0, 0},
	{-cornerOffset, -cornerOffset},
	{cornerOffset, -cornerOffset},
	{-cornerOffset, cornerOffset},
	{cornerOffset, cornerOffset},
}

// traceColumn holds the per-column scratch state of one worker.
type traceColumn struct {
	hits  []RayHit
	cov   []float64
	value []uint8
}

func newTraceColumn(length int) *traceColumn {
	return &traceColumn{cov: make([]float64, length), value: make([]uint8, length)}
}

// trace casts the column's rays through tris. cu and cv are the column
// center and origin the axis coordinate of cell 0. It reports whether any
// cell is occupied and the first and last occupied cells.
func (c *traceColumn) trace(tris []*projected, cu, cv, origin float64) (first, last int, ok bool) {
	c.hits = c.hits[:0]
	for _, t := range tris {
		if cu+cornerOffset < t.minU || cu-cornerOffset > t.maxU {
			continue
		}
		for r, off := range rayOffsets {
			if pos, hit := t.intersect(cu+off[0], cv+off[1]); hit {
				c.hits = append(c.hits, RayHit{Position: pos, Face: t.face, Ray: r})
			}
		}
	}
	clear(c.cov)
	if len(c.hits) == 0 {
		clear(c.value)
		return 0, 0, false
	}
	sortHits(c.hits)

	var depth [RaysPerColumn]int
	var start [RaysPerColumn]float64
	for _, h := range c.hits {
		switch h.Face {
		case Nearside:
			if depth[h.Ray] == 0 {
				start[h.Ray] = h.Position
			}
			depth[h.Ray]++
		case Farside:
			if depth[h.Ray] == 0 {
				continue
			}
			depth[h.Ray]--
			if depth[h.Ray] == 0 {
				c.cover(start[h.Ray]-origin, h.Position-origin)
			}
		}
	}

	first, last = -1, -1
	for i, cov := range c.cov {
		v := math.Round(255 * cov / RaysPerColumn)
		c.value[i] = uint8(min(v, 255))
		if c.value[i] > 0 {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	return first, last, first >= 0
}

// cover adds the overlap of [s, e] with every cell span [i, i+1).
func (c *traceColumn) cover(s, e float64) {
	n := float64(len(c.cov))
	s, e = max(s, 0), min(e, n)
	if e <= s {
		return
	}
	for i := int(math.Floor(s)); i < len(c.cov) && float64(i) < e; i++ {
		lo, hi := max(s, float64(i)), min(e, float64(i+1))
		if hi > lo {
			c.cov[i] += hi - lo
		}
	}
}
