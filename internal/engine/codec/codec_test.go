package codec

import (
	"encoding/json"
	"testing"

	"plot-planner/internal/engine/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square() []geometry.ImagePoint {
	return []geometry.ImagePoint{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 50}, {X: 0, Y: 50}}
}

func TestEncodeClosesRing(t *testing.T) {
	g, err := Encode(square())
	require.NoError(t, err)

	assert.Equal(t, TypePolygon, g.Type)
	require.Len(t, g.Coordinates, 1)
	ring := g.Coordinates[0]
	require.Len(t, ring, 5)
	assert.Equal(t, ring[0], ring[4])
	assert.NoError(t, g.Validate())
}

func TestEncodeAlreadyClosed(t *testing.T) {
	closed := append(square(), geometry.ImagePoint{X: 0, Y: 0})

	g, err := Encode(closed)
	require.NoError(t, err)
	assert.Len(t, g.Coordinates[0], 5)
}

func TestEncodeTooFew(t *testing.T) {
	_, err := Encode([]geometry.ImagePoint{{X: 1, Y: 1}, {X: 2, Y: 2}})
	assert.ErrorIs(t, err, ErrTooFewVertices)

	_, err = Encode([]geometry.ImagePoint{{X: 1, Y: 1}, {X: 2, Y: 2}, {X: 1, Y: 1}})
	assert.ErrorIs(t, err, ErrTooFewVertices)
}

func TestDecodeRoundTrip(t *testing.T) {
	in := []geometry.ImagePoint{{X: 12.5, Y: 3.25}, {X: 400.125, Y: 8}, {X: 390, Y: 210.75}}

	g, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(g)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeOpenInput(t *testing.T) {
	g := EncodeRing(square(), false)
	out, err := Decode(g)
	require.NoError(t, err)
	assert.Equal(t, square(), out)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(Geometry{Type: "LineString", Coordinates: [][][2]float64{{{0, 0}}}})
	assert.ErrorIs(t, err, ErrNotPolygon)

	_, err = Decode(Geometry{Type: TypePolygon})
	assert.ErrorIs(t, err, ErrEmptyGeometry)
}

func TestDecodeDoesNotAlias(t *testing.T) {
	g, err := Encode(square())
	require.NoError(t, err)

	out, err := Decode(g)
	require.NoError(t, err)
	out[0].X = 999

	assert.Equal(t, 0.0, g.Coordinates[0][0][0])
}

func TestValidate(t *testing.T) {
	open := EncodeRing(square(), false)
	assert.ErrorIs(t, open.Validate(), ErrOpenRing)

	degenerate := EncodeRing([]geometry.ImagePoint{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 0}}, false)
	assert.ErrorIs(t, degenerate.Validate(), ErrTooFewVertices)
}

func TestJSONShape(t *testing.T) {
	g, err := Encode([]geometry.ImagePoint{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}})
	require.NoError(t, err)

	data, err := json.Marshal(g)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Polygon","coordinates":[[[0,0],[10,0],[10,10],[0,0]]]}`, string(data))
}

func TestWKT(t *testing.T) {
	ring := []geometry.ImagePoint{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 5.5}}
	g := EncodeRing(ring, true)
	assert.Equal(t, "POLYGON((0 0, 10 0, 10 5.5, 0 0))", g.WKT())
}

func TestPixelArea(t *testing.T) {
	g, err := Encode(square())
	require.NoError(t, err)

	area, err := g.PixelArea()
	require.NoError(t, err)
	assert.InDelta(t, 5000.0, area, 1e-9)

	_, err = EncodeRing(square(), false).PixelArea()
	assert.ErrorIs(t, err, ErrOpenRing)
}
