// Package grid holds the integer cell geometry shared by the volume builder,
// the mesh tracer and the storage layer: coordinates, boxes, chunk walking and
// the GridCache exchanged with a VolumeStorage.
package grid

import "fmt"

// Vec3i is an integer cell coordinate or extent.
type Vec3i struct {
	X, Y, Z int
}

// V3 is shorthand for Vec3i{x, y, z}.
func V3(x, y, z int) Vec3i { return Vec3i{X: x, Y: y, Z: z} }

// Splat returns a vector with all three components set to v.
func Splat(v int) Vec3i { return Vec3i{v, v, v} }

func (a Vec3i) Add(b Vec3i) Vec3i { return Vec3i{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3i) Sub(b Vec3i) Vec3i { return Vec3i{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3i) Mul(s int) Vec3i   { return Vec3i{a.X * s, a.Y * s, a.Z * s} }

// Min returns the component-wise minimum.
func (a Vec3i) Min(b Vec3i) Vec3i {
	return Vec3i{min(a.X, b.X), min(a.Y, b.Y), min(a.Z, b.Z)}
}

// Max returns the component-wise maximum.
func (a Vec3i) Max(b Vec3i) Vec3i {
	return Vec3i{max(a.X, b.X), max(a.Y, b.Y), max(a.Z, b.Z)}
}

// Volume is the number of cells in an extent. Non-positive axes give 0.
func (a Vec3i) Volume() int {
	if a.X <= 0 || a.Y <= 0 || a.Z <= 0 {
		return 0
	}
	return a.X * a.Y * a.Z
}

// Index flattens p inside an extent of size a, x fastest.
func (a Vec3i) Index(p Vec3i) int {
	return p.X + p.Y*a.X + p.Z*a.X*a.Y
}

// Contains reports whether p lies in [0, a) on every axis.
func (a Vec3i) Contains(p Vec3i) bool {
	return p.X >= 0 && p.Y >= 0 && p.Z >= 0 && p.X < a.X && p.Y < a.Y && p.Z < a.Z
}

// Component returns the i-th component (0=X, 1=Y, 2=Z).
func (a Vec3i) Component(i int) int {
	switch i {
	case 0:
		return a.X
	case 1:
		return a.Y
	default:
		return a.Z
	}
}

func (a Vec3i) String() string { return fmt.Sprintf("(%d,%d,%d)", a.X, a.Y, a.Z) }

// Box is an axis aligned cell range with inclusive Min and Max.
type Box struct {
	Min, Max Vec3i
}

// BoxOf returns the box covering [0, size).
func BoxOf(size Vec3i) Box {
	return Box{Max: size.Sub(Splat(1))}
}

// Size returns the number of cells along each axis.
func (b Box) Size() Vec3i { return b.Max.Sub(b.Min).Add(Splat(1)) }

// Empty reports whether the box holds no cell.
func (b Box) Empty() bool {
	return b.Max.X < b.Min.X || b.Max.Y < b.Min.Y || b.Max.Z < b.Min.Z
}

// Contains reports whether p is inside the box.
func (b Box) Contains(p Vec3i) bool {
	return p.X >= b.Min.X && p.Y >= b.Min.Y && p.Z >= b.Min.Z &&
		p.X <= b.Max.X && p.Y <= b.Max.Y && p.Z <= b.Max.Z
}

// Intersect clips b against o. The result may be Empty.
func (b Box) Intersect(o Box) Box {
	return Box{Min: b.Min.Max(o.Min), Max: b.Max.Min(o.Max)}
}

// Union returns the smallest box containing both.
func (b Box) Union(o Box) Box {
	return Box{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max)}
}

// Grow expands the box by n cells on every side.
func (b Box) Grow(n int) Box {
	return Box{Min: b.Min.Sub(Splat(n)), Max: b.Max.Add(Splat(n))}
}

func (b Box) String() string { return fmt.Sprintf("[%v..%v]", b.Min, b.Max) }
