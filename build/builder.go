// Package build fills volumes chunk by chunk with per-cell actions.
package build

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voxelsplace/voxbuild/grid"
	"github.com/voxelsplace/voxbuild/progress"
	"github.com/voxelsplace/voxbuild/storage"
)

// CellAction maps the current state of one cell to its new state. size is
// the volume size and coord the cell's volume coordinate. It must be pure:
// the builder may call it from several goroutines at once.
type CellAction func(size, coord grid.Vec3i, material, content uint8) (newMaterial, newContent uint8)

// Builder walks a volume in chunks and applies actions to it.
// The zero value builds sequentially in chunks of grid.DefaultChunkEdge.
type Builder struct {
	Scheduler Scheduler
	ChunkEdge int
	Progress  progress.Reporter
	Log       logrus.FieldLogger
}

func (b *Builder) log() logrus.FieldLogger {
	if b.Log == nil {
		return logrus.StandardLogger()
	}
	return b.Log
}

func (b *Builder) scheduler() Scheduler {
	if b.Scheduler == nil {
		return Sequential{}
	}
	return b.Scheduler
}

// BuildVolume is (&Builder{}).BuildVolume.
func BuildVolume(ctx context.Context, size grid.Vec3i, baseMaterial uint8, faceMaterial *uint8, action CellAction) (*storage.BlockStore, error) {
	return (&Builder{}).BuildVolume(ctx, size, baseMaterial, faceMaterial, action)
}

// BuildVolume creates a volume of grid.RoundUpSize(size) whose cells start
// at content 0 and baseMaterial, applies action to every cell and, when
// faceMaterial is set, paints the surface shell of the result with it.
func (b *Builder) BuildVolume(ctx context.Context, size grid.Vec3i, baseMaterial uint8, faceMaterial *uint8, action CellAction) (*storage.BlockStore, error) {
	rounded := grid.RoundUpSize(size)
	vol, err := storage.NewBlockStore(rounded, baseMaterial)
	if err != nil {
		return nil, err
	}
	passes := int64(1)
	if faceMaterial != nil {
		passes = 2
	}
	counter := progress.NewCounter(passes*int64(rounded.Volume()), b.Progress)
	if err := b.apply(ctx, vol, action, counter); err != nil {
		return nil, err
	}
	if faceMaterial != nil {
		if err := b.faceShell(ctx, vol, *faceMaterial, counter); err != nil {
			return nil, err
		}
	}
	return vol, nil
}

// Apply runs action over every cell of s.
func (b *Builder) Apply(ctx context.Context, s grid.VolumeStorage, action CellAction) error {
	return b.apply(ctx, s, action, progress.NewCounter(int64(s.Size().Volume()), b.Progress))
}

// ApplyFaceMaterial paints faceMaterial on every occupied cell that touches
// an empty 6-neighbour or the volume border.
func (b *Builder) ApplyFaceMaterial(ctx context.Context, s grid.VolumeStorage, faceMaterial uint8) error {
	return b.faceShell(ctx, s, faceMaterial, progress.NewCounter(int64(s.Size().Volume()), b.Progress))
}

// lockedStorage serializes every call into the underlying storage, which is
// not assumed to tolerate concurrent access.
type lockedStorage struct {
	mu sync.Mutex
	s  grid.VolumeStorage
}

func (l *lockedStorage) read(dst *grid.GridCache, flags grid.DataFlags, c grid.Chunk) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	dst.Resize(c.Size())
	if err := l.s.ReadRange(dst, flags, 0, c.Min, c.Max); err != nil {
		return fmt.Errorf("read chunk %v: %w", c, err)
	}
	return nil
}

func (l *lockedStorage) write(src *grid.GridCache, flags grid.DataFlags, c grid.Chunk) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.s.WriteRange(src, flags, c.Min, c.Max); err != nil {
		return fmt.Errorf("write chunk %v: %w", c, err)
	}
	return nil
}

func (b *Builder) apply(ctx context.Context, s grid.VolumeStorage, action CellAction, counter *progress.Counter) error {
	size := s.Size()
	chunks := grid.ChunkList(grid.BoxOf(size), b.ChunkEdge)
	ls := &lockedStorage{s: s}
	start := time.Now()
	var written atomic.Int64

	err := b.scheduler().Run(ctx, chunks, func(cache *grid.GridCache, c grid.Chunk) error {
		if err := ls.read(cache, grid.ContentAndMaterial, c); err != nil {
			return err
		}
		csize := c.Size()
		cont, mat := cache.ContentPlane(), cache.MaterialPlane()
		changed := false
		i := 0
		for z := 0; z < csize.Z; z++ {
			for y := 0; y < csize.Y; y++ {
				for x := 0; x < csize.X; x++ {
					coord := grid.Vec3i{X: c.Min.X + x, Y: c.Min.Y + y, Z: c.Min.Z + z}
					m, v := action(size, coord, mat[i], cont[i])
					if m != mat[i] || v != cont[i] {
						mat[i], cont[i] = m, v
						changed = true
					}
					i++
				}
			}
		}
		if changed {
			if err := ls.write(cache, grid.ContentAndMaterial, c); err != nil {
				return err
			}
			written.Add(1)
		}
		counter.Add(int64(csize.Volume()))
		return nil
	})
	if err != nil {
		return err
	}
	b.log().WithFields(logrus.Fields{
		"size":    size,
		"chunks":  len(chunks),
		"written": written.Load(),
		"elapsed": time.Since(start),
	}).Debug("volume pass done")
	return nil
}

var outputCaches = sync.Pool{New: func() any { return &grid.GridCache{} }}

func (b *Builder) faceShell(ctx context.Context, s grid.VolumeStorage, faceMaterial uint8, counter *progress.Counter) error {
	size := s.Size()
	whole := grid.BoxOf(size)
	chunks := grid.ChunkList(whole, b.ChunkEdge)
	ls := &lockedStorage{s: s}
	neighbours := [6]grid.Vec3i{
		{X: -1}, {X: 1}, {Y: -1}, {Y: 1}, {Z: -1}, {Z: 1},
	}

	return b.scheduler().Run(ctx, chunks, func(halo *grid.GridCache, c grid.Chunk) error {
		hb := c.Grow(1).Intersect(whole)
		if err := ls.read(halo, grid.ContentAndMaterial, hb); err != nil {
			return err
		}
		out := outputCaches.Get().(*grid.GridCache)
		defer outputCaches.Put(out)
		out.Resize(c.Size())
		out.CopyFrom(halo, c.Min.Sub(hb.Min))

		csize := c.Size()
		changed := false
		for z := 0; z < csize.Z; z++ {
			for y := 0; y < csize.Y; y++ {
				for x := 0; x < csize.X; x++ {
					local := grid.Vec3i{X: x, Y: y, Z: z}
					if out.Content(local) == 0 || out.Material(local) == faceMaterial {
						continue
					}
					p := c.Min.Add(local)
					surface := false
					for _, d := range neighbours {
						q := p.Add(d)
						if !size.Contains(q) || halo.Content(q.Sub(hb.Min)) == 0 {
							surface = true
							break
						}
					}
					if surface {
						out.SetMaterial(local, faceMaterial)
						changed = true
					}
				}
			}
		}
		if changed {
			if err := ls.write(out, grid.Material, c); err != nil {
				return err
			}
		}
		counter.Add(int64(csize.Volume()))
		return nil
	})
}
