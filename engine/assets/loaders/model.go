package loaders

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spaghettifunk/campusmap/engine/math"
	"github.com/spaghettifunk/campusmap/engine/renderer/metadata"
)

// ModelLoader reads Wavefront OBJ files. Models are expected in meters,
// Z up, with the origin at the base of the object; every "o" or "g"
// statement starts a new named component.
type ModelLoader struct{}

func (ml *ModelLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mesh, err := ParseOBJ(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &metadata.Resource{
		Name:     mesh.Name,
		FullPath: path,
		Type:     metadata.ResourceTypeModel,
		Data:     mesh,
	}, nil
}

func (ml *ModelLoader) Unload(*metadata.Resource) error {
	return nil
}

type objComponent struct {
	comp  *metadata.Component
	local map[int]uint32
}

// ParseOBJ decodes an OBJ stream into a mesh template located at the origin.
func ParseOBJ(r io.Reader, name string) (*metadata.Mesh, error) {
	var (
		vertices []math.Vec3
		comps    []*objComponent
		current  *objComponent
	)
	newComponent := func(n string) {
		current = &objComponent{
			comp:  &metadata.Component{Name: n},
			local: make(map[int]uint32),
		}
		comps = append(comps, current)
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: vertex needs 3 coordinates", lineNo)
			}
			var v math.Vec3
			for i := 0; i < 3; i++ {
				f, err := strconv.ParseFloat(fields[i+1], 64)
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid coordinate '%s'", lineNo, fields[i+1])
				}
				v[i] = f
			}
			vertices = append(vertices, v)
		case "o", "g":
			n := "default"
			if len(fields) > 1 {
				n = strings.Join(fields[1:], " ")
			}
			newComponent(n)
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: face needs at least 3 vertices", lineNo)
			}
			if current == nil {
				newComponent("default")
			}
			face := make([]uint32, 0, len(fields)-1)
			for _, ref := range fields[1:] {
				idx, err := parseFaceIndex(ref, len(vertices))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				li, ok := current.local[idx]
				if !ok {
					li = uint32(len(current.comp.Positions))
					current.comp.Positions = append(current.comp.Positions, vertices[idx])
					current.local[idx] = li
				}
				face = append(face, li)
			}
			// fan triangulation, faces are convex in practice
			for i := 1; i+1 < len(face); i++ {
				current.comp.Indices = append(current.comp.Indices, face[0], face[i], face[i+1])
			}
		default:
			// vt, vn, s, usemtl, mtllib and friends carry nothing we use.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	mesh := metadata.NewMesh("", name, math.Vec3{})
	for _, c := range comps {
		if len(c.comp.Indices) == 0 {
			continue
		}
		c.comp.Normals = math.GeometryGenerateNormals(c.comp.Positions, c.comp.Indices)
		mesh.Components = append(mesh.Components, c.comp)
	}
	if len(mesh.Components) == 0 {
		return nil, fmt.Errorf("model '%s' has no faces", name)
	}
	return mesh, nil
}

// parseFaceIndex resolves "v", "v/vt", "v//vn" or "v/vt/vn" to a zero based
// vertex index. Negative indices count back from the last vertex.
func parseFaceIndex(ref string, count int) (int, error) {
	head, _, _ := strings.Cut(ref, "/")
	i, err := strconv.Atoi(head)
	if err != nil {
		return 0, fmt.Errorf("invalid face index '%s'", ref)
	}
	switch {
	case i > 0 && i <= count:
		return i - 1, nil
	case i < 0 && -i <= count:
		return count + i, nil
	default:
		return 0, fmt.Errorf("face index %d out of range (vertices=%d)", i, count)
	}
}
