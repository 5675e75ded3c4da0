package grid

import "fmt"

// ContentBounds scans s and returns the box of all cells with content > 0.
// ok is false for an empty volume. The result is derived data and should be
// recomputed after any write.
func ContentBounds(s VolumeStorage) (b Box, ok bool, err error) {
	cache := &GridCache{}
	for c := range Chunks(BoxOf(s.Size()), DefaultChunkEdge) {
		cache.Resize(c.Size())
		if err := s.ReadRange(cache, Content, 0, c.Min, c.Max); err != nil {
			return Box{}, false, fmt.Errorf("content bounds %v: %w", c, err)
		}
		size := c.Size()
		for i, v := range cache.content {
			if v == 0 {
				continue
			}
			p := Vec3i{i % size.X, (i / size.X) % size.Y, i / (size.X * size.Y)}.Add(c.Min)
			if !ok {
				b = Box{Min: p, Max: p}
				ok = true
				continue
			}
			b.Min = b.Min.Min(p)
			b.Max = b.Max.Max(p)
		}
	}
	return b, ok, nil
}
