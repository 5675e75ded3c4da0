package grid

import "fmt"

// DataFlags selects the byte planes touched by a range read or write.
type DataFlags uint8

const (
	Content DataFlags = 1 << iota
	Material

	ContentAndMaterial = Content | Material
)

func (f DataFlags) Has(o DataFlags) bool { return f&o == o }

func (f DataFlags) String() string {
	switch f {
	case Content:
		return "content"
	case Material:
		return "material"
	case ContentAndMaterial:
		return "content+material"
	default:
		return fmt.Sprintf("flags(%d)", uint8(f))
	}
}

// GridCache is a rectangular block of content and material bytes, the unit
// exchanged with a VolumeStorage. Cell (0,0,0) maps to the min corner of
// whatever range it was read from or is written to.
type GridCache struct {
	size     Vec3i
	content  []uint8
	material []uint8
}

// NewGridCache allocates a zeroed cache of the given extent.
func NewGridCache(size Vec3i) *GridCache {
	c := &GridCache{}
	c.Resize(size)
	return c
}

// Resize changes the extent, reusing the backing arrays when they are large
// enough. Contents are unspecified after a resize.
func (c *GridCache) Resize(size Vec3i) {
	if size.X < 0 || size.Y < 0 || size.Z < 0 {
		panic(fmt.Sprintf("grid: negative cache size %v", size))
	}
	n := size.Volume()
	if cap(c.content) < n {
		c.content = make([]uint8, n)
		c.material = make([]uint8, n)
	}
	c.content = c.content[:n]
	c.material = c.material[:n]
	c.size = size
}

// Size returns the extent of the cache.
func (c *GridCache) Size() Vec3i { return c.size }

// Len returns the number of cells.
func (c *GridCache) Len() int { return len(c.content) }

// Index flattens a cache-local coordinate.
func (c *GridCache) Index(p Vec3i) int { return c.size.Index(p) }

func (c *GridCache) Content(p Vec3i) uint8  { return c.content[c.size.Index(p)] }
func (c *GridCache) Material(p Vec3i) uint8 { return c.material[c.size.Index(p)] }

func (c *GridCache) SetContent(p Vec3i, v uint8)  { c.content[c.size.Index(p)] = v }
func (c *GridCache) SetMaterial(p Vec3i, v uint8) { c.material[c.size.Index(p)] = v }

// ContentPlane exposes the flattened content bytes.
func (c *GridCache) ContentPlane() []uint8 { return c.content }

// MaterialPlane exposes the flattened material bytes.
func (c *GridCache) MaterialPlane() []uint8 { return c.material }

// Fill sets every cell of the selected planes.
func (c *GridCache) Fill(flags DataFlags, content, material uint8) {
	if flags.Has(Content) {
		for i := range c.content {
			c.content[i] = content
		}
	}
	if flags.Has(Material) {
		for i := range c.material {
			c.material[i] = material
		}
	}
}

// CopyFrom copies the sub-block of src starting at offset into c, sized to c.
func (c *GridCache) CopyFrom(src *GridCache, offset Vec3i) {
	for z := 0; z < c.size.Z; z++ {
		for y := 0; y < c.size.Y; y++ {
			si := src.size.Index(Vec3i{offset.X, offset.Y + y, offset.Z + z})
			di := c.size.Index(Vec3i{0, y, z})
			copy(c.content[di:di+c.size.X], src.content[si:si+c.size.X])
			copy(c.material[di:di+c.size.X], src.material[si:si+c.size.X])
		}
	}
}
