package domain

import (
	"encoding/json"

	"atlas/bizerror"
	"atlas/domain/aoi"

	"github.com/fundwit/go-commons/types"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm/dialects/postgres"
)

// Project is the aggregate root. The raw area_of_interest document is kept
// verbatim for response fidelity; its derived geometry lives in
// AOIFragment rows owned exclusively by this record.
type Project struct {
	ID uuid.UUID `json:"id" gorm:"primary_key" sql:"type:UUID"`

	Name        string    `json:"name" sql:"type:VARCHAR(32) NOT NULL"`
	Description *string   `json:"description" sql:"type:VARCHAR(256)"`
	DateRange   DateRange `json:"date_range" sql:"type:DATERANGE NOT NULL"`

	AreaOfInterest postgres.Jsonb `json:"area_of_interest" sql:"type:JSONB NOT NULL"`
}

func (Project) TableName() string {
	return "projects"
}

// AOIFragment is one atomic geometry derived from a project's
// area_of_interest. Fragments are never written independent of a project
// and are cascade-deleted with it.
type AOIFragment struct {
	ID        types.ID     `json:"id" gorm:"primary_key"`
	ProjectID uuid.UUID    `json:"project_id" gorm:"index" sql:"type:UUID NOT NULL"`
	Geometry  aoi.Geometry `json:"geometry" sql:"type:GEOMETRY(GEOMETRY,4326) NOT NULL"`
}

func (AOIFragment) TableName() string {
	return "project_aoi_fragments"
}

// ProjectCreating leaves description optional; an omitted one stays null all
// the way to the response.
type ProjectCreating struct {
	Name           string                 `json:"name" binding:"required,min=1,max=32"`
	Description    *string                `json:"description" binding:"omitempty,max=256"`
	DateRange      map[string]interface{} `json:"date_range"`
	AreaOfInterest json.RawMessage        `json:"area_of_interest"`
}

// Validate runs the date range and area-of-interest normalizers once the
// structural field checks of the binding layer have passed.
func (c *ProjectCreating) Validate() error {
	if c.DateRange == nil {
		return &bizerror.ErrMissingField{Field: "date_range"}
	}
	if _, err := NormalizeDateRange(c.DateRange); err != nil {
		return err
	}
	if isAbsentJSON(c.AreaOfInterest) {
		return &bizerror.ErrMissingField{Field: "area_of_interest"}
	}
	return aoi.Validate(c.AreaOfInterest)
}

type ProjectUpdating struct {
	Name           *string                `json:"name" binding:"omitempty,min=1,max=32"`
	Description    *string                `json:"description" binding:"omitempty,max=256"`
	DateRange      map[string]interface{} `json:"date_range"`
	AreaOfInterest json.RawMessage        `json:"area_of_interest"`
}

// InitializedFields returns the names of the fields the caller actually
// supplied (non-null), in a fixed order.
func (u *ProjectUpdating) InitializedFields() []string {
	fields := []string{}
	if u.Name != nil {
		fields = append(fields, "name")
	}
	if u.Description != nil {
		fields = append(fields, "description")
	}
	if u.DateRange != nil {
		fields = append(fields, "date_range")
	}
	if !isAbsentJSON(u.AreaOfInterest) {
		fields = append(fields, "area_of_interest")
	}
	return fields
}

// Validate skips absent fields entirely and applies the create rules to the
// present ones.
func (u *ProjectUpdating) Validate() error {
	if u.DateRange != nil {
		if _, err := NormalizeDateRange(u.DateRange); err != nil {
			return err
		}
	}
	if !isAbsentJSON(u.AreaOfInterest) {
		return aoi.Validate(u.AreaOfInterest)
	}
	return nil
}

func isAbsentJSON(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// ProjectRepresentation is the client-facing shape of a stored project: the
// original area_of_interest document verbatim plus one textual geometry
// encoding per fragment, in storage order.
type ProjectRepresentation struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	DateRange   DateRange `json:"date_range"`

	AreaOfInterest     json.RawMessage `json:"area_of_interest"`
	AreaOfInterestGeom []string        `json:"area_of_interest_geom"`
}

func (p *Project) Represent(fragments []AOIFragment) (*ProjectRepresentation, error) {
	geoms := make([]string, 0, len(fragments))
	for _, fragment := range fragments {
		text, err := fragment.Geometry.EWKBHex()
		if err != nil {
			return nil, err
		}
		geoms = append(geoms, text)
	}
	return &ProjectRepresentation{
		ID:                 p.ID,
		Name:               p.Name,
		Description:        p.Description,
		DateRange:          p.DateRange,
		AreaOfInterest:     json.RawMessage(p.AreaOfInterest.RawMessage),
		AreaOfInterestGeom: geoms,
	}, nil
}
