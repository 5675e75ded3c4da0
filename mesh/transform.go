package mesh

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Transform places a mesh: scale first, then rotation (Euler angles in
// degrees, applied X then Y then Z), then translation.
type Transform struct {
	Scale       mgl64.Vec3
	Rotation    mgl64.Vec3
	Translation mgl64.Vec3
}

// Identity is the transform that leaves positions unchanged.
func Identity() Transform {
	return Transform{Scale: mgl64.Vec3{1, 1, 1}}
}

// Mat4 returns the combined matrix T * R * S.
func (t Transform) Mat4() mgl64.Mat4 {
	r := mgl64.AnglesToQuat(
		mgl64.DegToRad(t.Rotation[0]),
		mgl64.DegToRad(t.Rotation[1]),
		mgl64.DegToRad(t.Rotation[2]),
		mgl64.XYZ,
	)
	return mgl64.Translate3D(t.Translation[0], t.Translation[1], t.Translation[2]).
		Mul4(r.Mat4()).
		Mul4(mgl64.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2]))
}

// Apply returns a copy of m with every vertex transformed by t.
func (t Transform) Apply(m Mesh) Mesh {
	return m.TransformedBy(t.Mat4())
}

// TransformedBy returns a copy of m with every vertex multiplied by mat.
// A matrix with a negative determinant flips the winding back so that
// normals keep pointing out of the solid.
func (m Mesh) TransformedBy(mat mgl64.Mat4) Mesh {
	flip := mat.Det() < 0
	out := m
	out.Triangles = make([]Triangle, len(m.Triangles))
	for i, tri := range m.Triangles {
		var nt Triangle
		for k, p := range tri {
			nt[k] = mgl64.TransformCoordinate(p, mat)
		}
		if flip {
			nt[1], nt[2] = nt[2], nt[1]
		}
		out.Triangles[i] = nt
	}
	return out
}
