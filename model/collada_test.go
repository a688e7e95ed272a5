package model_test

import (
	"testing"

	"github.com/devblok/ffp/model"
	qt "github.com/frankban/quicktest"
	glm "github.com/go-gl/mathgl/mgl32"
)

const quadDocument = `<?xml version="1.0" encoding="utf-8"?>
<COLLADA xmlns="http://www.collada.org/2005/11/COLLADASchema" version="1.4.1">
  <library_geometries>
    <geometry id="Quad-mesh" name="Quad">
      <mesh>
        <source id="Quad-mesh-positions">
          <float_array id="Quad-mesh-positions-array" count="12">-0.5 0.5 -1 0.5 0.5 -1 -0.5 -0.5 -1 0.5 -0.5 -1</float_array>
        </source>
        <source id="Quad-mesh-colors">
          <float_array id="Quad-mesh-colors-array" count="12">1 0 0 0 1 0 0 0 1 1 1 1</float_array>
        </source>
        <vertices id="Quad-mesh-vertices">
          <input semantic="POSITION" source="#Quad-mesh-positions"/>
        </vertices>
        <triangles count="2">
          <input semantic="VERTEX" source="#Quad-mesh-vertices" offset="0"/>
          <p>0 1 2 2 1 3</p>
        </triangles>
      </mesh>
    </geometry>
  </library_geometries>
</COLLADA>`

const triangleDocument = `<COLLADA>
  <library_geometries>
    <geometry id="Tri-mesh" name="Tri">
      <mesh>
        <source id="Tri-mesh-positions">
          <float_array id="Tri-mesh-positions-array" count="9">0 1 0 -1 -1 0 1 -1 0</float_array>
        </source>
      </mesh>
    </geometry>
  </library_geometries>
</COLLADA>`

func TestImportColladaQuad(t *testing.T) {
	c := qt.New(t)
	p, err := model.ImportCollada([]byte(quadDocument), model.QuadLayout)
	c.Assert(err, qt.IsNil)

	quad, ok := p.(model.Quad)
	c.Assert(ok, qt.IsTrue)
	c.Assert(quad.Vertices(), qt.DeepEquals, model.DefaultQuad.Vertices())
}

func TestImportColladaDefaultColor(t *testing.T) {
	c := qt.New(t)
	p, err := model.ImportCollada([]byte(triangleDocument), model.TriangleLayout)
	c.Assert(err, qt.IsNil)

	tri, ok := p.(model.Triangle)
	c.Assert(ok, qt.IsTrue)
	c.Assert(tri.B.Pos, qt.Equals, glm.Vec3{-1, -1, 0})
	for _, v := range tri.Vertices() {
		c.Assert(v.Color, qt.Equals, model.DefaultColor)
	}
}

func TestImportColladaLayoutMismatch(t *testing.T) {
	_, err := model.ImportCollada([]byte(triangleDocument), model.QuadLayout)
	qt.Assert(t, err, qt.ErrorMatches, `collada: mesh has 3 vertices, layout "quad" needs 4`)
}

func TestImportColladaEmpty(t *testing.T) {
	c := qt.New(t)
	_, err := model.ImportCollada([]byte(`<COLLADA></COLLADA>`), model.QuadLayout)
	c.Assert(err, qt.ErrorMatches, "collada: no geometry found")

	_, err = model.ImportCollada([]byte(`not xml`), model.QuadLayout)
	c.Assert(err, qt.Not(qt.IsNil))
}
