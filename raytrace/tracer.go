package raytrace

import (
	"context"
	"math"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/sirupsen/logrus"

	"github.com/voxelsplace/voxbuild/grid"
	"github.com/voxelsplace/voxbuild/mesh"
	"github.com/voxelsplace/voxbuild/progress"
)

// Padding is the number of empty cells kept around the mesh bounds.
const Padding = 2

// Tracer voxelizes meshes into a Cuboid. The zero value traces all three
// axes in Odd mode with one worker per CPU.
type Tracer struct {
	Axes    AxisSet
	Mode    TraceMode
	Workers int
	// Transform is applied to every mesh before tracing.
	Transform *mesh.Transform
	Progress  progress.Reporter
	Log       logrus.FieldLogger
}

func (t *Tracer) log() logrus.FieldLogger {
	if t.Log == nil {
		return logrus.StandardLogger()
	}
	return t.Log
}

func (t *Tracer) axes() AxisSet {
	if t.Axes&AllAxes == 0 {
		return AllAxes
	}
	return t.Axes & AllAxes
}

func (t *Tracer) workers() int {
	if t.Workers <= 0 {
		return runtime.NumCPU()
	}
	return t.Workers
}

// prepare applies the transform and the Even shift and drops empty meshes.
func (t *Tracer) prepare(meshes []mesh.Mesh) []mesh.Mesh {
	mat := mgl64.Ident4()
	if t.Transform != nil {
		mat = t.Transform.Mat4()
	}
	if t.Mode == Even {
		mat = mgl64.Translate3D(0.5, 0.5, 0.5).Mul4(mat)
	}
	identity := mat == mgl64.Ident4()
	out := make([]mesh.Mesh, 0, len(meshes))
	for _, m := range meshes {
		if len(m.Triangles) == 0 {
			continue
		}
		if !identity {
			m = m.TransformedBy(mat)
		}
		out = append(out, m)
	}
	return out
}

// Voxelize traces meshes and composites them into one cuboid covering their
// union bounds plus Padding cells. Meshes are composited from last to first,
// so earlier meshes win where they overlap. It returns false when there is
// nothing to trace, when every mesh is a cut-out, or when ctx is cancelled
// before the result is complete.
func (t *Tracer) Voxelize(ctx context.Context, meshes []mesh.Mesh) (*Cuboid, bool) {
	start := time.Now()
	prepared := t.prepare(meshes)
	lo, hi, ok := mesh.Bounds(prepared)
	if !ok {
		t.log().Debug("no triangles to voxelize")
		return nil, false
	}
	if !slices.ContainsFunc(prepared, func(m mesh.Mesh) bool { return !m.CutOut() }) {
		t.log().Debug("only cut-out meshes to voxelize")
		return nil, false
	}
	if ctx.Err() != nil {
		return nil, false
	}

	origin := grid.V3(
		int(math.Floor(lo[0]))-Padding,
		int(math.Floor(lo[1]))-Padding,
		int(math.Floor(lo[2]))-Padding,
	)
	upper := grid.V3(
		int(math.Ceil(hi[0]))+Padding,
		int(math.Ceil(hi[1]))+Padding,
		int(math.Ceil(hi[2]))+Padding,
	)
	out := newCuboid(origin, upper.Sub(origin))
	axes := t.axes().Axes()

	var columns int64
	for _, a := range axes {
		_, u, v := a.swizzle()
		columns += int64(out.Size.Component(u) * out.Size.Component(v))
	}
	counter := progress.NewCounter(columns*int64(len(prepared)), t.Progress)

	pool := pond.NewPool(t.workers())
	defer pool.StopAndWait()

	n := out.Size.Volume()
	acc := make([]float64, n)
	bleed := make([]bool, n)
	state := make([]cellState, n)
	for i := len(prepared) - 1; i >= 0; i-- {
		m := &prepared[i]
		clear(acc)
		clear(bleed)
		for k, a := range axes {
			if ctx.Err() != nil {
				return nil, false
			}
			pass := axisPass{
				axis:   a,
				k:      float64(k + 1),
				origin: out.Origin,
				size:   out.Size,
				acc:    acc,
				bleed:  bleed,
				paint:  m.FaceMaterial != mesh.Unset,
			}
			pass.run(ctx, pool, m.Triangles, counter)
		}
		if ctx.Err() != nil {
			return nil, false
		}
		out.composite(m, acc, bleed, state)
	}

	t.log().WithFields(logrus.Fields{
		"meshes":    len(prepared),
		"triangles": mesh.TriangleCount(prepared),
		"size":      out.Size,
		"origin":    out.Origin,
		"axes":      t.axes(),
		"mode":      t.Mode,
		"elapsed":   time.Since(start),
	}).Debug("voxelized meshes")
	return out, true
}

// axisPass traces one mesh along one axis and folds the result into the
// running average acc, where this is the k-th axis.
type axisPass struct {
	axis   Axis
	k      float64
	origin grid.Vec3i
	size   grid.Vec3i
	acc    []float64
	bleed  []bool
	paint  bool
}

func (p *axisPass) run(ctx context.Context, pool pond.Pool, tris []mesh.Triangle, counter *progress.Counter) {
	ai, ui, vi := p.axis.swizzle()
	nA, nU, nV := p.size.Component(ai), p.size.Component(ui), p.size.Component(vi)
	oA, oU, oV := float64(p.origin.Component(ai)), float64(p.origin.Component(ui)), float64(p.origin.Component(vi))
	strides := [3]int{1, p.size.X, p.size.X * p.size.Y}
	sA, sU, sV := strides[ai], strides[ui], strides[vi]

	projs := make([]projected, 0, len(tris))
	for _, tri := range tris {
		if pr, ok := project(tri, p.axis); ok {
			projs = append(projs, pr)
		}
	}
	rows := make([][]*projected, nV)
	for i := range projs {
		pr := &projs[i]
		first := max(int(math.Floor(pr.minV-oV))-1, 0)
		last := min(int(math.Floor(pr.maxV-oV))+1, nV-1)
		for r := first; r <= last; r++ {
			rows[r] = append(rows[r], pr)
		}
	}

	var wg sync.WaitGroup
	for jv := 0; jv < nV; jv++ {
		wg.Add(1)
		pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			col := newTraceColumn(nA)
			cv := oV + float64(jv) + 0.5
			for ju := 0; ju < nU; ju++ {
				base := ju*sU + jv*sV
				first, last, ok := col.trace(rows[jv], oU+float64(ju)+0.5, cv, oA)
				for ja := 0; ja < nA; ja++ {
					idx := base + ja*sA
					p.acc[idx] = p.acc[idx]*(p.k-1)/p.k + float64(col.value[ja])/p.k
				}
				if ok && p.paint {
					for ja := max(first-BleedCells, 0); ja < first; ja++ {
						p.bleed[base+ja*sA] = true
					}
					for ja := last + 1; ja <= min(last+BleedCells, nA-1); ja++ {
						p.bleed[base+ja*sA] = true
					}
				}
			}
			counter.Add(int64(nU))
		})
	}
	wg.Wait()
}
