package aoi

import (
	"database/sql/driver"
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkbhex"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// SRID is the WGS84 spatial reference all stored geometry is pinned to.
const SRID = 4326

// Geometry is one atomic AOI geometry. It travels to and from PostGIS as
// hex-encoded EWKB, the same textual form PostGIS itself prints.
type Geometry struct {
	T geom.T
}

func (g Geometry) Value() (driver.Value, error) {
	if g.T == nil {
		return nil, nil
	}
	return ewkbhex.Encode(g.T, ewkbhex.NDR)
}

func (g *Geometry) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		g.T = nil
		return nil
	case []byte:
		return g.decode(string(v))
	case string:
		return g.decode(v)
	}
	return fmt.Errorf("unsupported geometry source type %T", src)
}

func (g *Geometry) decode(text string) error {
	t, err := ewkbhex.Decode(text)
	if err != nil {
		return err
	}
	g.T = t
	return nil
}

// EWKBHex renders the geometry in its canonical re-parseable textual form.
func (g Geometry) EWKBHex() (string, error) {
	return ewkbhex.Encode(g.T, ewkbhex.NDR)
}

func (g Geometry) MarshalJSON() ([]byte, error) {
	if g.T == nil {
		return []byte("null"), nil
	}
	return geojson.Marshal(g.T)
}

func setSRID(t geom.T) geom.T {
	switch g := t.(type) {
	case *geom.Point:
		return g.SetSRID(SRID)
	case *geom.LineString:
		return g.SetSRID(SRID)
	case *geom.Polygon:
		return g.SetSRID(SRID)
	case *geom.MultiPoint:
		return g.SetSRID(SRID)
	case *geom.MultiLineString:
		return g.SetSRID(SRID)
	case *geom.MultiPolygon:
		return g.SetSRID(SRID)
	case *geom.GeometryCollection:
		return g.SetSRID(SRID)
	}
	return t
}
