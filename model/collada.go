package model

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/devblok/ffp/util/collada"
	glm "github.com/go-gl/mathgl/mgl32"
)

// DefaultColor is given to imported vertices without color data.
var DefaultColor = glm.Vec4{1.0, 1.0, 1.0, 1.0}

// ImportCollada reads the first geometry of a Collada document and
// converts it into a primitive of the given layout. The vertex list
// of the mesh is used as is, so it must hold exactly as many
// vertices as the layout expects.
func ImportCollada(fileContents []byte, layout Layout) (Primitive, error) {
	var colladaModel collada.Collada
	if err := xml.Unmarshal(fileContents, &colladaModel); err != nil {
		return nil, err
	}
	if len(colladaModel.Geometries) == 0 {
		return nil, errors.New("collada: no geometry found")
	}

	mesh := colladaModel.Geometries[0].Mesh
	positions, err := findSource(mesh.Source, "positions")
	if err != nil {
		return nil, err
	}
	if len(positions.Floats.Data)%3 != 0 {
		return nil, fmt.Errorf("collada: %d position floats is not a list of Vec3", len(positions.Floats.Data))
	}

	count := len(positions.Floats.Data) / 3
	if uint32(count) != layout.VertexCount {
		return nil, fmt.Errorf("collada: mesh has %d vertices, layout %q needs %d", count, layout.Name, layout.VertexCount)
	}

	colors, err := findSource(mesh.Source, "colors")
	hasColors := err == nil
	if hasColors && len(colors.Floats.Data) != count*4 && len(colors.Floats.Data) != count*3 {
		return nil, fmt.Errorf("collada: color source has %d floats for %d vertices", len(colors.Floats.Data), count)
	}

	vertices := make([]Vertex, count)
	for idx := range vertices {
		p := positions.Floats.Data[idx*3:]
		vertices[idx].Pos = glm.Vec3{p[0], p[1], p[2]}
		vertices[idx].Color = DefaultColor
		if hasColors {
			channels := len(colors.Floats.Data) / count
			c := colors.Floats.Data[idx*channels:]
			vertices[idx].Color = glm.Vec4{c[0], c[1], c[2], 1.0}
			if channels == 4 {
				vertices[idx].Color[3] = c[3]
			}
		}
	}

	switch len(vertices) {
	case 3:
		return Triangle{vertices[0], vertices[1], vertices[2]}, nil
	case 4:
		return Quad{vertices[0], vertices[1], vertices[2], vertices[3]}, nil
	}
	return nil, fmt.Errorf("collada: no primitive with %d vertices", len(vertices))
}

func findSource(sources []collada.Source, dataType string) (collada.Source, error) {
	for _, s := range sources {
		if strings.HasSuffix(s.ID, fmt.Sprintf("-%s", dataType)) {
			return s, nil
		}
	}
	return collada.Source{}, errors.New("source type not found")
}
