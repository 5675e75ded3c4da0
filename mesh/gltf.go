package mesh

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// LoadGLB reads a .glb or .gltf file. See DecodeGLB.
func LoadGLB(path string) ([]Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	meshes, err := FromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return meshes, nil
}

// DecodeGLB parses a self-contained glTF document (binary or JSON with
// embedded buffers).
func DecodeGLB(r io.Reader) ([]Mesh, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, fmt.Errorf("decode glTF: %w", err)
	}
	return FromDocument(doc)
}

// DecodeGLBBytes is DecodeGLB over a byte slice.
func DecodeGLBBytes(data []byte) ([]Mesh, error) {
	return DecodeGLB(bytes.NewReader(data))
}

// FromDocument walks the default scene and returns one Mesh per node that
// references a glTF mesh, with the node's world transform applied. Only
// triangle-list primitives are read. Materials are left at 0 and face
// materials at Unset.
func FromDocument(doc *gltf.Document) ([]Mesh, error) {
	var roots []int
	switch {
	case doc.Scene != nil && *doc.Scene < len(doc.Scenes):
		roots = doc.Scenes[*doc.Scene].Nodes
	case len(doc.Scenes) > 0:
		roots = doc.Scenes[0].Nodes
	default:
		roots = rootNodes(doc)
	}

	var out []Mesh
	var walk func(idx int, parent mgl64.Mat4, depth int) error
	walk = func(idx int, parent mgl64.Mat4, depth int) error {
		if idx < 0 || idx >= len(doc.Nodes) {
			return fmt.Errorf("node index %d out of range", idx)
		}
		if depth > len(doc.Nodes) {
			return fmt.Errorf("node %d: cycle in node hierarchy", idx)
		}
		node := doc.Nodes[idx]
		world := parent.Mul4(localMatrix(node))
		if node.Mesh != nil {
			tris, err := readMesh(doc, *node.Mesh)
			if err != nil {
				return fmt.Errorf("node %d: %w", idx, err)
			}
			if len(tris) > 0 {
				name := node.Name
				if name == "" {
					name = doc.Meshes[*node.Mesh].Name
				}
				m := Mesh{Name: name, Triangles: tris, FaceMaterial: Unset}
				out = append(out, m.TransformedBy(world))
			}
		}
		for _, child := range node.Children {
			if err := walk(child, world, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range roots {
		if err := walk(r, mgl64.Ident4(), 0); err != nil {
			return nil, err
		}
	}
	if len(out) == 0 {
		return nil, ErrNoTriangles
	}
	return out, nil
}

// rootNodes lists nodes that are nobody's child.
func rootNodes(doc *gltf.Document) []int {
	child := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(child) {
				child[c] = true
			}
		}
	}
	var roots []int
	for i, isChild := range child {
		if !isChild {
			roots = append(roots, i)
		}
	}
	return roots
}

func localMatrix(n *gltf.Node) mgl64.Mat4 {
	var m mgl64.Mat4
	for i, v := range n.MatrixOrDefault() {
		m[i] = float64(v)
	}
	if m != mgl64.Ident4() {
		return m
	}
	t := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	s := n.ScaleOrDefault()
	q := mgl64.Quat{W: float64(r[3]), V: mgl64.Vec3{float64(r[0]), float64(r[1]), float64(r[2])}}
	return mgl64.Translate3D(float64(t[0]), float64(t[1]), float64(t[2])).
		Mul4(q.Normalize().Mat4()).
		Mul4(mgl64.Scale3D(float64(s[0]), float64(s[1]), float64(s[2])))
}

func readMesh(doc *gltf.Document, meshIdx int) ([]Triangle, error) {
	if meshIdx < 0 || meshIdx >= len(doc.Meshes) {
		return nil, fmt.Errorf("mesh index %d out of range", meshIdx)
	}
	var tris []Triangle
	for pi, prim := range doc.Meshes[meshIdx].Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			continue
		}
		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}
		positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
		if err != nil {
			return nil, fmt.Errorf("mesh %d primitive %d: positions: %w", meshIdx, pi, err)
		}
		var indices []uint32
		if prim.Indices != nil {
			indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
			if err != nil {
				return nil, fmt.Errorf("mesh %d primitive %d: indices: %w", meshIdx, pi, err)
			}
		} else {
			indices = make([]uint32, len(positions))
			for i := range indices {
				indices[i] = uint32(i)
			}
		}
		vec := func(i uint32) (mgl64.Vec3, error) {
			if int(i) >= len(positions) {
				return mgl64.Vec3{}, fmt.Errorf("mesh %d primitive %d: index %d out of range", meshIdx, pi, i)
			}
			p := positions[i]
			return mgl64.Vec3{float64(p[0]), float64(p[1]), float64(p[2])}, nil
		}
		for i := 0; i+2 < len(indices); i += 3 {
			var t Triangle
			for k := 0; k < 3; k++ {
				if t[k], err = vec(indices[i+k]); err != nil {
					return nil, err
				}
			}
			tris = append(tris, t)
		}
	}
	return tris, nil
}
