// Package raytrace voxelizes closed triangle meshes by casting bundles of
// axis-aligned rays through every grid column and accounting for where
// they enter and leave the solid.
package raytrace

import (
	"fmt"
	"strings"
)

// Axis is a trace direction.
type Axis uint8

const (
	X Axis = iota
	Y
	Z
)

func (a Axis) String() string {
	return [...]string{"X", "Y", "Z"}[a]
}

// swizzle returns the component indices of the trace axis and of the two
// axes spanning the perpendicular plane. u x v always points along +axis,
// so the signed area of a projected triangle equals the axis component of
// its normal.
func (a Axis) swizzle() (axis, u, v int) {
	switch a {
	case X:
		return 0, 1, 2
	case Y:
		return 1, 2, 0
	default:
		return 2, 0, 1
	}
}

// AxisSet is a set of trace directions.
type AxisSet uint8

const (
	AxisX AxisSet = 1 << iota
	AxisY
	AxisZ

	AllAxes = AxisX | AxisY | AxisZ
)

func (s AxisSet) Has(a Axis) bool { return s&(1<<a) != 0 }

// Axes lists the members in X, Y, Z order.
func (s AxisSet) Axes() []Axis {
	var out []Axis
	for _, a := range []Axis{X, Y, Z} {
		if s.Has(a) {
			out = append(out, a)
		}
	}
	return out
}

func (s AxisSet) String() string {
	var b strings.Builder
	for _, a := range s.Axes() {
		b.WriteString(a.String())
	}
	return b.String()
}

// ParseAxisSet accepts any combination of the letters x, y and z, e.g. "xz".
func ParseAxisSet(str string) (AxisSet, error) {
	var s AxisSet
	for _, r := range strings.ToLower(str) {
		switch r {
		case 'x':
			s |= AxisX
		case 'y':
			s |= AxisY
		case 'z':
			s |= AxisZ
		default:
			return 0, fmt.Errorf("invalid trace axis %q in %q", r, str)
		}
	}
	if s == 0 {
		return 0, fmt.Errorf("no trace axis in %q", str)
	}
	return s, nil
}

// TraceMode places the rays relative to the cell lattice.
type TraceMode uint8

const (
	// Odd casts rays through cell centers.
	Odd TraceMode = iota
	// Even casts rays along cell boundaries of the mesh's unit lattice by
	// shifting the mesh half a cell before tracing.
	Even
)

func (m TraceMode) String() string {
	if m == Even {
		return "even"
	}
	return "odd"
}

func ParseTraceMode(s string) (TraceMode, error) {
	switch strings.ToLower(s) {
	case "", "odd":
		return Odd, nil
	case "even":
		return Even, nil
	}
	return 0, fmt.Errorf("unknown trace mode %q", s)
}
