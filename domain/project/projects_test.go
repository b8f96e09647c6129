package project_test

import (
	"context"
	"encoding/json"
	"errors"

	"atlas/bizerror"
	"atlas/domain"
	"atlas/domain/project"
	"atlas/persistence"
	"atlas/testinfra"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

const (
	testPointJSON = `{"type":"Point","coordinates":[1.0,2.0]}`
	testAOIJSON   = `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[1.0,2.0]}},
		{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[4,0],[4,4],[0,4],[0,0]]]}}]}`
)

func stringPtr(s string) *string { return &s }

func validCreating() *domain.ProjectCreating {
	return &domain.ProjectCreating{
		Name:           "survey 2020",
		Description:    stringPtr("aerial survey"),
		DateRange:      map[string]interface{}{"lower": "2020-08-01", "upper": "2021-08-09"},
		AreaOfInterest: json.RawMessage(testAOIJSON),
	}
}

var _ = Describe("Projects", func() {
	var (
		testDatabase *testinfra.TestDatabase
		ctx          context.Context
	)
	BeforeEach(func() {
		ctx = context.Background()
		testDatabase = testinfra.StartPostgresTestDatabase("atlas")
		Expect(testDatabase.DS.GormDB(ctx).AutoMigrate(&domain.Project{}, &domain.AOIFragment{}).Error).To(BeNil())
		Expect(testDatabase.DS.GormDB(ctx).Model(&domain.AOIFragment{}).
			AddForeignKey("project_id", "projects(id)", "CASCADE", "CASCADE").Error).To(BeNil())
		persistence.ActiveDataSourceManager = testDatabase.DS
	})
	AfterEach(func() {
		testinfra.StopPostgresTestDatabase(testDatabase)
	})

	Describe("CreateProject", func() {
		It("should persist one project row plus one fragment per feature", func() {
			record, err := project.CreateProject(ctx, validCreating())
			Expect(err).To(BeNil())
			Expect(record).ToNot(BeNil())
			Expect(record.ID).ToNot(Equal(uuid.Nil))
			Expect(record.Name).To(Equal("survey 2020"))
			Expect(record.DateRange.String()).To(Equal("[2020-08-01,2021-08-09)"))

			var projects []domain.Project
			Expect(testDatabase.DS.GormDB(ctx).Find(&projects).Error).To(BeNil())
			Expect(len(projects)).To(Equal(1))
			Expect(projects[0].ID).To(Equal(record.ID))
			Expect([]byte(projects[0].AreaOfInterest.RawMessage)).To(MatchJSON(testAOIJSON))

			var fragments []domain.AOIFragment
			Expect(testDatabase.DS.GormDB(ctx).Find(&fragments).Error).To(BeNil())
			Expect(len(fragments)).To(Equal(2))
			Expect(fragments[0].ProjectID).To(Equal(record.ID))
			Expect(fragments[1].ProjectID).To(Equal(record.ID))
		})

		It("should persist exactly one fragment for a bare geometry", func() {
			creating := validCreating()
			creating.AreaOfInterest = json.RawMessage(testPointJSON)
			record, err := project.CreateProject(ctx, creating)
			Expect(err).To(BeNil())

			var fragments []domain.AOIFragment
			Expect(testDatabase.DS.GormDB(ctx).Where("project_id = ?", record.ID).Find(&fragments).Error).To(BeNil())
			Expect(len(fragments)).To(Equal(1))
		})

		It("should allow duplicate names", func() {
			_, err := project.CreateProject(ctx, validCreating())
			Expect(err).To(BeNil())
			_, err = project.CreateProject(ctx, validCreating())
			Expect(err).To(BeNil())

			var projects []domain.Project
			Expect(testDatabase.DS.GormDB(ctx).Find(&projects).Error).To(BeNil())
			Expect(len(projects)).To(Equal(2))
		})

		It("should write nothing when the area of interest is invalid", func() {
			creating := validCreating()
			creating.AreaOfInterest = json.RawMessage(`{"type":"Polygon","coordinates":[[[0,0],[2,2],[2,0],[0,2],[0,0]]]}`)
			record, err := project.CreateProject(ctx, creating)
			Expect(record).To(BeNil())
			var geometryErr *bizerror.ErrInvalidAOIGeometry
			Expect(errors.As(err, &geometryErr)).To(BeTrue())

			var count int
			Expect(testDatabase.DS.GormDB(ctx).Model(&domain.Project{}).Count(&count).Error).To(BeNil())
			Expect(count).To(BeZero())
			Expect(testDatabase.DS.GormDB(ctx).Model(&domain.AOIFragment{}).Count(&count).Error).To(BeNil())
			Expect(count).To(BeZero())
		})

		It("should write nothing when the date range is inverted", func() {
			creating := validCreating()
			creating.DateRange = map[string]interface{}{"lower": "2021-08-01", "upper": "2020-08-09"}
			record, err := project.CreateProject(ctx, creating)
			Expect(record).To(BeNil())
			Expect(err).To(Equal(bizerror.ErrInvertedDateRange))

			var count int
			Expect(testDatabase.DS.GormDB(ctx).Model(&domain.Project{}).Count(&count).Error).To(BeNil())
			Expect(count).To(BeZero())
		})
	})

	Describe("DetailProject", func() {
		It("should reproduce the stored state", func() {
			record, err := project.CreateProject(ctx, validCreating())
			Expect(err).To(BeNil())

			detail, err := project.DetailProject(ctx, record.ID.String())
			Expect(err).To(BeNil())
			Expect(detail.ID).To(Equal(record.ID))
			Expect(detail.Name).To(Equal("survey 2020"))
			Expect(*detail.Description).To(Equal("aerial survey"))
			Expect(detail.DateRange.String()).To(Equal("[2020-08-01,2021-08-09)"))
			Expect([]byte(detail.AreaOfInterest)).To(MatchJSON(testAOIJSON))
			Expect(len(detail.AreaOfInterestGeom)).To(Equal(2))
		})

		It("should keep an omitted description null through storage", func() {
			creating := validCreating()
			creating.Description = nil
			record, err := project.CreateProject(ctx, creating)
			Expect(err).To(BeNil())

			detail, err := project.DetailProject(ctx, record.ID.String())
			Expect(err).To(BeNil())
			Expect(detail.Description).To(BeNil())
		})

		It("should reject a malformed id before touching storage", func() {
			_, err := project.DetailProject(ctx, "test_uuid")
			var malformedErr *bizerror.ErrMalformedProjectID
			Expect(errors.As(err, &malformedErr)).To(BeTrue())
			Expect(malformedErr.ID).To(Equal("test_uuid"))
		})

		It("should report a well-formed but absent id as not found", func() {
			_, err := project.DetailProject(ctx, uuid.New().String())
			var notFoundErr *bizerror.ErrProjectNotFound
			Expect(errors.As(err, &notFoundErr)).To(BeTrue())
		})
	})

	Describe("QueryProjects", func() {
		It("should return an empty list on an empty store", func() {
			result, err := project.QueryProjects(ctx)
			Expect(err).To(BeNil())
			Expect(len(*result)).To(BeZero())
		})

		It("should project every stored record independently", func() {
			first, err := project.CreateProject(ctx, validCreating())
			Expect(err).To(BeNil())
			creating := validCreating()
			creating.Name = "survey 2021"
			creating.AreaOfInterest = json.RawMessage(testPointJSON)
			second, err := project.CreateProject(ctx, creating)
			Expect(err).To(BeNil())

			result, err := project.QueryProjects(ctx)
			Expect(err).To(BeNil())
			Expect(len(*result)).To(Equal(2))

			byId := map[uuid.UUID]domain.ProjectRepresentation{}
			for _, r := range *result {
				byId[r.ID] = r
			}
			Expect(len(byId[first.ID].AreaOfInterestGeom)).To(Equal(2))
			Expect(byId[second.ID].Name).To(Equal("survey 2021"))
			Expect(len(byId[second.ID].AreaOfInterestGeom)).To(Equal(1))
		})
	})

	Describe("UpdateProject", func() {
		It("should fail without a lookup when nothing is initialized", func() {
			err := project.UpdateProject(ctx, "not even a uuid", &domain.ProjectUpdating{})
			Expect(err).To(Equal(bizerror.ErrNoFieldsToUpdate))
		})

		It("should apply only the initialized fields", func() {
			record, err := project.CreateProject(ctx, validCreating())
			Expect(err).To(BeNil())

			name := "renamed survey"
			Expect(project.UpdateProject(ctx, record.ID.String(), &domain.ProjectUpdating{Name: &name})).To(BeNil())

			detail, err := project.DetailProject(ctx, record.ID.String())
			Expect(err).To(BeNil())
			Expect(detail.Name).To(Equal("renamed survey"))
			Expect(*detail.Description).To(Equal("aerial survey"))
			Expect(len(detail.AreaOfInterestGeom)).To(Equal(2))
		})

		It("should re-normalize a replaced date range", func() {
			record, err := project.CreateProject(ctx, validCreating())
			Expect(err).To(BeNil())

			updating := &domain.ProjectUpdating{DateRange: map[string]interface{}{"lower": "2022-01-01", "upper": "2022-01-01"}}
			Expect(project.UpdateProject(ctx, record.ID.String(), updating)).To(BeNil())

			// postgres canonicalizes a discrete closed range, [d,d] comes back
			// as [d,d+1); the single day stays covered either way
			detail, err := project.DetailProject(ctx, record.ID.String())
			Expect(err).To(BeNil())
			Expect(detail.DateRange.String()).To(Equal("[2022-01-01,2022-01-02)"))
			Expect(detail.DateRange.Bounds).To(Equal(domain.BoundsHalfOpen))
		})

		It("should replace every fragment when the area of interest changes", func() {
			record, err := project.CreateProject(ctx, validCreating())
			Expect(err).To(BeNil())

			var before []domain.AOIFragment
			Expect(testDatabase.DS.GormDB(ctx).Where("project_id = ?", record.ID).Find(&before).Error).To(BeNil())
			Expect(len(before)).To(Equal(2))

			updating := &domain.ProjectUpdating{AreaOfInterest: json.RawMessage(testPointJSON)}
			Expect(project.UpdateProject(ctx, record.ID.String(), updating)).To(BeNil())

			var after []domain.AOIFragment
			Expect(testDatabase.DS.GormDB(ctx).Where("project_id = ?", record.ID).Find(&after).Error).To(BeNil())
			Expect(len(after)).To(Equal(1))
			Expect(after[0].ID).ToNot(Equal(before[0].ID))
			Expect(after[0].ID).ToNot(Equal(before[1].ID))

			detail, err := project.DetailProject(ctx, record.ID.String())
			Expect(err).To(BeNil())
			Expect([]byte(detail.AreaOfInterest)).To(MatchJSON(testPointJSON))
		})

		It("should change nothing when a replaced field fails validation", func() {
			record, err := project.CreateProject(ctx, validCreating())
			Expect(err).To(BeNil())

			updating := &domain.ProjectUpdating{DateRange: map[string]interface{}{"lower": "2023-01-01", "upper": "2022-01-01"}}
			Expect(project.UpdateProject(ctx, record.ID.String(), updating)).To(Equal(bizerror.ErrInvertedDateRange))

			detail, err := project.DetailProject(ctx, record.ID.String())
			Expect(err).To(BeNil())
			Expect(detail.DateRange.String()).To(Equal("[2020-08-01,2021-08-09)"))
		})

		It("should follow the same id policy as detail", func() {
			name := "renamed"
			var malformedErr *bizerror.ErrMalformedProjectID
			err := project.UpdateProject(ctx, "test_uuid", &domain.ProjectUpdating{Name: &name})
			Expect(errors.As(err, &malformedErr)).To(BeTrue())

			var notFoundErr *bizerror.ErrProjectNotFound
			err = project.UpdateProject(ctx, uuid.New().String(), &domain.ProjectUpdating{Name: &name})
			Expect(errors.As(err, &notFoundErr)).To(BeTrue())
		})
	})

	Describe("DeleteProject", func() {
		It("should remove the project and every fragment it owns", func() {
			record, err := project.CreateProject(ctx, validCreating())
			Expect(err).To(BeNil())
			keep, err := project.CreateProject(ctx, validCreating())
			Expect(err).To(BeNil())

			Expect(project.DeleteProject(ctx, record.ID.String())).To(BeNil())

			var count int
			Expect(testDatabase.DS.GormDB(ctx).Model(&domain.AOIFragment{}).
				Where("project_id = ?", record.ID).Count(&count).Error).To(BeNil())
			Expect(count).To(BeZero())
			Expect(testDatabase.DS.GormDB(ctx).Model(&domain.AOIFragment{}).
				Where("project_id = ?", keep.ID).Count(&count).Error).To(BeNil())
			Expect(count).To(Equal(2))

			_, err = project.DetailProject(ctx, record.ID.String())
			var notFoundErr *bizerror.ErrProjectNotFound
			Expect(errors.As(err, &notFoundErr)).To(BeTrue())
		})

		It("should follow the same id policy as detail", func() {
			var malformedErr *bizerror.ErrMalformedProjectID
			Expect(errors.As(project.DeleteProject(ctx, "test_uuid"), &malformedErr)).To(BeTrue())

			var notFoundErr *bizerror.ErrProjectNotFound
			Expect(errors.As(project.DeleteProject(ctx, uuid.New().String()), &notFoundErr)).To(BeTrue())
		})
	})
})
