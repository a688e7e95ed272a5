package collada_test

import (
	"encoding/xml"
	"testing"

	"github.com/devblok/ffp/util/collada"
	qt "github.com/frankban/quicktest"
)

func TestTrianglesDecode(t *testing.T) {
	c := qt.New(t)
	data := `
		<triangles material="Material-material" count="2">
		<input semantic="VERTEX" source="#Quad-mesh-vertices" offset="0"/>
		<input semantic="NORMAL" source="#Quad-mesh-normals" offset="1"/>
		<p>0 0 1 0 2 0
		   2 0 1 0 3 0</p>
		</triangles>
	`
	var triangles collada.Triangles
	c.Assert(xml.Unmarshal([]byte(data), &triangles), qt.IsNil)
	c.Assert(triangles.Material, qt.Equals, "Material-material")
	c.Assert(triangles.Count, qt.Equals, 2)
	c.Assert(triangles.Inputs, qt.HasLen, 2)
	c.Assert(triangles.Index, qt.DeepEquals, []int{0, 0, 1, 0, 2, 0, 2, 0, 1, 0, 3, 0})
}

func TestTrianglesBadIndex(t *testing.T) {
	data := `<triangles count="1"><p>0 one 2</p></triangles>`
	var triangles collada.Triangles
	qt.Assert(t, xml.Unmarshal([]byte(data), &triangles), qt.Not(qt.IsNil))
}

func TestInputDecode(t *testing.T) {
	c := qt.New(t)
	data := `
	<object>
		<input semantic="VERTEX" source="#Quad-mesh-vertices" offset="0" />
		<input semantic="NORMAL" source="#Quad-mesh-normals" offset="1" />
		<input semantic="COLOR" source="#Quad-mesh-colors" offset="2" />
	</object>
	`

	type Object struct {
		XMLNname xml.Name        `xml:"object"`
		Inputs   []collada.Input `xml:"input"`
	}

	var obj Object
	c.Assert(xml.Unmarshal([]byte(data), &obj), qt.IsNil)
	c.Assert(obj.Inputs, qt.DeepEquals, []collada.Input{
		{Semantic: "VERTEX", Source: "#Quad-mesh-vertices", Offset: 0},
		{Semantic: "NORMAL", Source: "#Quad-mesh-normals", Offset: 1},
		{Semantic: "COLOR", Source: "#Quad-mesh-colors", Offset: 2},
	})
}

func TestFloatsDecode(t *testing.T) {
	c := qt.New(t)
	data := `<float_array id="Quad-mesh-positions-array" count="12">-0.5 0.5 -1
		0.5 0.5 -1  -0.5 -0.5 -1
		0.5 -0.5 -2.38419e-7</float_array>`

	var floats collada.Floats
	c.Assert(xml.Unmarshal([]byte(data), &floats), qt.IsNil)
	c.Assert(floats.ID, qt.Equals, "Quad-mesh-positions-array")
	c.Assert(floats.Count, qt.Equals, 12)
	c.Assert(floats.Data, qt.HasLen, 12)
	c.Assert(floats.Data[0], qt.Equals, float32(-0.5))
	c.Assert(floats.Data[11], qt.Equals, float32(-2.38419e-7))
}
