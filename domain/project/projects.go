package project

import (
	"context"
	"encoding/json"

	"atlas/bizerror"
	"atlas/common"
	"atlas/domain"
	"atlas/domain/aoi"
	"atlas/persistence"

	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	"github.com/jinzhu/gorm/dialects/postgres"
	"github.com/sony/sonyflake"
)

var (
	fragmentIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateProjectFunc = CreateProject
	DetailProjectFunc = DetailProject
	QueryProjectsFunc = QueryProjects
	UpdateProjectFunc = UpdateProject
	DeleteProjectFunc = DeleteProject
)

// CreateProject normalizes the request and persists one project row plus its
// derived fragment rows in a single transaction. Duplicate names are allowed.
func CreateProject(ctx context.Context, c *domain.ProjectCreating) (*domain.Project, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	dateRange, err := domain.NormalizeDateRange(c.DateRange)
	if err != nil {
		return nil, err
	}
	fragments, err := buildFragments(c.AreaOfInterest)
	if err != nil {
		return nil, err
	}

	record := domain.Project{
		ID:             uuid.New(),
		Name:           c.Name,
		Description:    c.Description,
		DateRange:      *dateRange,
		AreaOfInterest: postgres.Jsonb{RawMessage: json.RawMessage(c.AreaOfInterest)},
	}

	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		for i := range fragments {
			fragments[i].ProjectID = record.ID
			if err := tx.Create(&fragments[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	common.Log.WithField("projectId", record.ID).Info("project created")
	return &record, nil
}

func DetailProject(ctx context.Context, id string) (*domain.ProjectRepresentation, error) {
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	record, err := findProject(id, db)
	if err != nil {
		return nil, err
	}
	return represent(record, db)
}

// QueryProjects projects every stored record; an empty store yields an empty
// list, never an error.
func QueryProjects(ctx context.Context) (*[]domain.ProjectRepresentation, error) {
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	var records []domain.Project
	if err := db.Find(&records).Error; err != nil {
		return nil, err
	}

	result := make([]domain.ProjectRepresentation, 0, len(records))
	for i := range records {
		r, err := represent(&records[i], db)
		if err != nil {
			return nil, err
		}
		result = append(result, *r)
	}
	return &result, nil
}

// UpdateProject applies the initialized fields of the request to the stored
// row. A replaced area_of_interest atomically swaps out every fragment row;
// there is no diffing.
func UpdateProject(ctx context.Context, id string, u *domain.ProjectUpdating) error {
	fields := u.InitializedFields()
	if len(fields) == 0 {
		return bizerror.ErrNoFieldsToUpdate
	}
	if err := u.Validate(); err != nil {
		return err
	}

	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	err := db.Transaction(func(tx *gorm.DB) error {
		record, err := findProject(id, tx)
		if err != nil {
			return err
		}

		for _, field := range fields {
			switch field {
			case "name":
				record.Name = *u.Name
			case "description":
				record.Description = u.Description
			case "date_range":
				dateRange, err := domain.NormalizeDateRange(u.DateRange)
				if err != nil {
					return err
				}
				record.DateRange = *dateRange
			case "area_of_interest":
				fragments, err := buildFragments(u.AreaOfInterest)
				if err != nil {
					return err
				}
				if err := tx.Delete(domain.AOIFragment{}, "project_id = ?", record.ID).Error; err != nil {
					return err
				}
				for i := range fragments {
					fragments[i].ProjectID = record.ID
					if err := tx.Create(&fragments[i]).Error; err != nil {
						return err
					}
				}
				record.AreaOfInterest = postgres.Jsonb{RawMessage: json.RawMessage(u.AreaOfInterest)}
			}
		}

		return tx.Save(record).Error
	})
	if err != nil {
		return err
	}

	common.Log.WithField("projectId", id).Info("project updated")
	return nil
}

func DeleteProject(ctx context.Context, id string) error {
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	err := db.Transaction(func(tx *gorm.DB) error {
		record, err := findProject(id, tx)
		if err != nil {
			return err
		}
		// the foreign key cascades too; the explicit delete keeps the
		// no-orphans invariant independent of schema setup
		if err := tx.Delete(domain.AOIFragment{}, "project_id = ?", record.ID).Error; err != nil {
			return err
		}
		return tx.Delete(record).Error
	})
	if err != nil {
		return err
	}

	common.Log.WithField("projectId", id).Info("project deleted")
	return nil
}

// findProject enforces the id policy shared by every single-record
// operation: a syntactic UUID check before storage is touched, then an
// existence check.
func findProject(id string, db *gorm.DB) (*domain.Project, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, &bizerror.ErrMalformedProjectID{ID: id}
	}

	record := domain.Project{}
	if err := db.Where("id = ?", id).First(&record).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, &bizerror.ErrProjectNotFound{ID: id}
		}
		return nil, err
	}
	return &record, nil
}

func buildFragments(raw json.RawMessage) ([]domain.AOIFragment, error) {
	geometries, err := aoi.Fragments(raw)
	if err != nil {
		return nil, err
	}
	fragments := make([]domain.AOIFragment, 0, len(geometries))
	for _, g := range geometries {
		fragments = append(fragments, domain.AOIFragment{ID: common.NextId(fragmentIdWorker), Geometry: g})
	}
	return fragments, nil
}

func represent(record *domain.Project, db *gorm.DB) (*domain.ProjectRepresentation, error) {
	var fragments []domain.AOIFragment
	if err := db.Where("project_id = ?", record.ID).Order("id ASC").Find(&fragments).Error; err != nil {
		return nil, err
	}
	return record.Represent(fragments)
}
