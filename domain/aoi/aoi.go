// Package aoi normalizes GeoJSON area-of-interest payloads into the atomic
// geometry fragments the storage model keeps per project.
package aoi

import (
	"encoding/json"
	"errors"

	"atlas/bizerror"

	sf "github.com/peterstace/simplefeatures/geom"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// envelope is the loosely shaped GeoJSON document used for dispatch on the
// "type" discriminator.
type envelope struct {
	Type     string          `json:"type"`
	Geometry json.RawMessage `json:"geometry"`
	Features []struct {
		Geometry json.RawMessage `json:"geometry"`
	} `json:"features"`
	Geometries []json.RawMessage `json:"geometries"`
}

// Validate checks the whole payload before any fragment is derived: first
// the structural GeoJSON shape, then geometric validity (ring closure,
// coordinate arity, self-intersection). All-or-nothing; a payload is never
// partially accepted.
func Validate(raw json.RawMessage) error {
	atoms, err := extractAtoms(raw)
	if err != nil {
		return err
	}
	for _, atom := range atoms {
		g, err := sf.UnmarshalGeoJSON(atom, sf.NoValidate{})
		if err != nil {
			return &bizerror.ErrInvalidAOIStructure{Cause: err}
		}
		if err := g.Validate(); err != nil {
			return &bizerror.ErrInvalidAOIGeometry{Cause: err}
		}
	}
	return nil
}

// Fragments derives the atomic geometry values of a payload, dispatching on
// its type: one per feature geometry for a FeatureCollection, one per member
// for a GeometryCollection, otherwise a single fragment (a Feature is
// unwrapped first, any other type is used as-is). An empty FeatureCollection
// yields an empty list, not an error.
func Fragments(raw json.RawMessage) ([]Geometry, error) {
	atoms, err := extractAtoms(raw)
	if err != nil {
		return nil, err
	}

	fragments := make([]Geometry, 0, len(atoms))
	for _, atom := range atoms {
		var t geom.T
		if err := geojson.Unmarshal(atom, &t); err != nil {
			return nil, &bizerror.ErrGeometryEncoding{Cause: err}
		}
		fragments = append(fragments, Geometry{T: setSRID(t)})
	}
	return fragments, nil
}

func extractAtoms(raw json.RawMessage) ([]json.RawMessage, error) {
	doc := envelope{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &bizerror.ErrInvalidAOIStructure{Cause: err}
	}
	if doc.Type == "" {
		return nil, &bizerror.ErrInvalidAOIStructure{Cause: errors.New("missing 'type' discriminator")}
	}

	switch doc.Type {
	case "FeatureCollection":
		atoms := make([]json.RawMessage, 0, len(doc.Features))
		for _, feature := range doc.Features {
			atoms = append(atoms, feature.Geometry)
		}
		return atoms, nil
	case "GeometryCollection":
		return doc.Geometries, nil
	case "Feature":
		return []json.RawMessage{doc.Geometry}, nil
	}
	// unrecognized types are kept as a single atomic fragment; whole-payload
	// validation is what rejects the truly malformed ones
	return []json.RawMessage{raw}, nil
}
