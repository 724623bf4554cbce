package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumenlearn/lumenlearn-backend/internal/repos"
	"github.com/lumenlearn/lumenlearn-backend/internal/types"
)

// CatalogSource adapts one entity kind to the shared eligibility engine: it
// knows how to load the entity's catalog and which of its units a user has
// completed. Courses and live events each provide one.
type CatalogSource interface {
	GetCatalog(ctx context.Context, tx *gorm.DB, entityID uuid.UUID) (*types.Catalog, error)
	CompletedUnitIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, unitIDs []uuid.UUID) ([]uuid.UUID, error)
}

// EntityProfile binds a kind's catalog source to its completion policy.
// Courses certify only at full completion; live events certify at 70%
// attendance. Different policies for different entity kinds, both served by
// the same engine.
type EntityProfile struct {
	Kind             string
	ThresholdPercent int
	UnitNoun         string
	Source           CatalogSource
}

func NewEntityProfiles(
	courseRepo repos.CourseRepo,
	progressRepo repos.LessonProgressRepo,
	eventRepo repos.EventRepo,
) map[string]EntityProfile {
	return map[string]EntityProfile{
		types.EntityKindCourse: {
			Kind:             types.EntityKindCourse,
			ThresholdPercent: 100,
			UnitNoun:         "lesson",
			Source:           &courseCatalogSource{courses: courseRepo, progress: progressRepo},
		},
		types.EntityKindEvent: {
			Kind:             types.EntityKindEvent,
			ThresholdPercent: 70,
			UnitNoun:         "session",
			Source:           &eventCatalogSource{events: eventRepo},
		},
	}
}

type courseCatalogSource struct {
	courses  repos.CourseRepo
	progress repos.LessonProgressRepo
}

func (s *courseCatalogSource) GetCatalog(ctx context.Context, tx *gorm.DB, entityID uuid.UUID) (*types.Catalog, error) {
	return s.courses.GetCatalog(ctx, tx, entityID)
}

func (s *courseCatalogSource) CompletedUnitIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, unitIDs []uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.progress.GetByUserAndLessonIDs(ctx, tx, userID, unitIDs)
	if err != nil {
		return nil, err
	}
	var completed []uuid.UUID
	for _, row := range rows {
		if row.IsCompleted {
			completed = append(completed, row.LessonID)
		}
	}
	return completed, nil
}

type eventCatalogSource struct {
	events repos.EventRepo
}

func (s *eventCatalogSource) GetCatalog(ctx context.Context, tx *gorm.DB, entityID uuid.UUID) (*types.Catalog, error) {
	return s.events.GetCatalog(ctx, tx, entityID)
}

func (s *eventCatalogSource) CompletedUnitIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, unitIDs []uuid.UUID) ([]uuid.UUID, error) {
	return s.events.GetAttendedSessionIDs(ctx, tx, userID, unitIDs)
}
