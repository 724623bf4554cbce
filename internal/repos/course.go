package repos

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumenlearn/lumenlearn-backend/internal/logger"
	"github.com/lumenlearn/lumenlearn-backend/internal/types"
)

type CourseRepo interface {
	GetByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.Course, error)
	// GetCatalog assembles the ordered sections and active lessons of a course
	// into the evaluator-facing catalog shape. A course with no active lessons
	// yields a catalog with zero units; mapping that to an error is the
	// caller's business.
	GetCatalog(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.Catalog, error)
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	repoLog := baseLog.With("repo", "CourseRepo")
	return &courseRepo{db: db, log: repoLog}
}

func (r *courseRepo) GetByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Course
	if len(courseIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", courseIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *courseRepo) GetCatalog(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.Catalog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var course types.Course
	if err := transaction.WithContext(ctx).
		Where("id = ?", courseID).
		First(&course).Error; err != nil {
		return nil, err
	}

	var sections []*types.CourseSection
	if err := transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("index ASC").
		Find(&sections).Error; err != nil {
		return nil, err
	}

	catalog := &types.Catalog{
		Ref:             types.CourseRef(course.ID),
		Title:           course.Title,
		InstructorName:  course.InstructorName,
		DurationMinutes: course.DurationMinutes,
		Units:           []types.CatalogUnit{},
	}
	if len(sections) == 0 {
		return catalog, nil
	}

	sectionIDs := make([]uuid.UUID, 0, len(sections))
	sectionIndex := make(map[uuid.UUID]int, len(sections))
	for _, s := range sections {
		sectionIDs = append(sectionIDs, s.ID)
		sectionIndex[s.ID] = s.Index
	}

	var lessons []*types.Lesson
	if err := transaction.WithContext(ctx).
		Where("section_id IN ? AND is_active = ?", sectionIDs, true).
		Order("section_id, index ASC").
		Find(&lessons).Error; err != nil {
		return nil, err
	}

	for _, l := range lessons {
		catalog.Units = append(catalog.Units, types.CatalogUnit{
			ID:           l.ID,
			Kind:         l.Kind,
			Title:        l.Title,
			SectionIndex: sectionIndex[l.SectionID],
			Index:        l.Index,
		})
	}
	// Lessons arrive ordered by (section_id, index); reorder across sections
	// by the section's own index so the catalog reads in course order.
	sort.SliceStable(catalog.Units, func(i, j int) bool {
		a, b := catalog.Units[i], catalog.Units[j]
		if a.SectionIndex != b.SectionIndex {
			return a.SectionIndex < b.SectionIndex
		}
		return a.Index < b.Index
	})
	return catalog, nil
}
