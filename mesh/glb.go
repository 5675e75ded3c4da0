package mesh

import (
	"bytes"
	"fmt"
	"math"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// EncodeGLB writes the surface as a binary glTF with flat normals and
// per-vertex colors taken from pal. A nil palette uses DefaultPalette.
func EncodeGLB(s *Surface, pal *Palette) ([]byte, error) {
	if pal == nil {
		pal = DefaultPalette()
	}
	doc := gltf.NewDocument()
	doc.Asset.Generator = "voxbuild surface"

	if len(s.Indices) > 0 {
		positions := make([][3]float32, len(s.Vertices))
		colors := make([][4]float32, len(s.Vertices))
		hasAlpha := false
		for i, v := range s.Vertices {
			positions[i] = v.Position
			colors[i] = pal[v.Material]
			if colors[i][3] < 1 {
				hasAlpha = true
			}
		}
		normals := flatNormals(positions, s.Indices)

		prim := &gltf.Primitive{
			Attributes: map[string]int{
				gltf.POSITION: modeler.WritePosition(doc, positions),
				gltf.NORMAL:   modeler.WriteNormal(doc, normals),
				gltf.COLOR_0:  modeler.WriteColor(doc, colors),
			},
			Indices:  gltf.Index(modeler.WriteIndices(doc, s.Indices)),
			Material: gltf.Index(0),
		}
		material := &gltf.Material{
			Name: "voxels",
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
				MetallicFactor:  gltf.Float(0),
				RoughnessFactor: gltf.Float(1),
			},
			AlphaMode: gltf.AlphaOpaque,
		}
		if hasAlpha {
			material.AlphaMode = gltf.AlphaBlend
		}
		doc.Materials = []*gltf.Material{material}
		doc.Meshes = []*gltf.Mesh{{Name: "VolumeSurface", Primitives: []*gltf.Primitive{prim}}}
		doc.Nodes = []*gltf.Node{{Name: "VolumeSurface", Mesh: gltf.Index(0)}}
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)
	}
	return encodeBinary(doc)
}

// EncodeMeshesGLB writes triangle meshes as a binary glTF, one node per
// mesh, without normals or materials. DecodeGLB reads it back.
func EncodeMeshesGLB(meshes []Mesh) ([]byte, error) {
	doc := gltf.NewDocument()
	doc.Asset.Generator = "voxbuild meshes"
	for i, m := range meshes {
		if len(m.Triangles) == 0 {
			continue
		}
		positions := make([][3]float32, 0, 3*len(m.Triangles))
		for _, t := range m.Triangles {
			for _, p := range t {
				positions = append(positions, [3]float32{float32(p[0]), float32(p[1]), float32(p[2])})
			}
		}
		prim := &gltf.Primitive{
			Attributes: map[string]int{gltf.POSITION: modeler.WritePosition(doc, positions)},
		}
		doc.Meshes = append(doc.Meshes, &gltf.Mesh{Name: m.Name, Primitives: []*gltf.Primitive{prim}})
		name := m.Name
		if name == "" {
			name = fmt.Sprintf("mesh%d", i)
		}
		doc.Nodes = append(doc.Nodes, &gltf.Node{Name: name, Mesh: gltf.Index(len(doc.Meshes) - 1)})
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, len(doc.Nodes)-1)
	}
	return encodeBinary(doc)
}

func encodeBinary(doc *gltf.Document) ([]byte, error) {
	var out bytes.Buffer
	enc := gltf.NewEncoder(&out)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode glb: %w", err)
	}
	return out.Bytes(), nil
}

func flatNormals(positions [][3]float32, indices []uint32) [][3]float32 {
	normals := make([][3]float32, len(positions))
	for i := 0; i+2 < len(indices); i += 3 {
		v0, v1, v2 := indices[i], indices[i+1], indices[i+2]
		p0, p1, p2 := positions[v0], positions[v1], positions[v2]
		e1 := [3]float32{p1[0] - p0[0], p1[1] - p0[1], p1[2] - p0[2]}
		e2 := [3]float32{p2[0] - p0[0], p2[1] - p0[1], p2[2] - p0[2]}
		n := [3]float32{
			e1[1]*e2[2] - e1[2]*e2[1],
			e1[2]*e2[0] - e1[0]*e2[2],
			e1[0]*e2[1] - e1[1]*e2[0],
		}
		if l := float32(math.Sqrt(float64(n[0]*n[0] + n[1]*n[1] + n[2]*n[2]))); l > 0 {
			n[0] /= l
			n[1] /= l
			n[2] /= l
		}
		normals[v0], normals[v1], normals[v2] = n, n, n
	}
	return normals
}
