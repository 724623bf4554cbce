package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumenlearn/lumenlearn-backend/internal/logger"
	"github.com/lumenlearn/lumenlearn-backend/internal/types"
)

type LessonRepo interface {
	GetByIDs(ctx context.Context, tx *gorm.DB, lessonIDs []uuid.UUID) ([]*types.Lesson, error)
	// GetCourseID resolves which course a lesson belongs to through its
	// section. Returns uuid.Nil when the lesson does not exist.
	GetCourseID(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) (uuid.UUID, error)
}

type lessonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	repoLog := baseLog.With("repo", "LessonRepo")
	return &lessonRepo{db: db, log: repoLog}
}

func (r *lessonRepo) GetByIDs(ctx context.Context, tx *gorm.DB, lessonIDs []uuid.UUID) ([]*types.Lesson, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Lesson
	if len(lessonIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", lessonIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *lessonRepo) GetCourseID(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) (uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if lessonID == uuid.Nil {
		return uuid.Nil, nil
	}

	var courseIDs []uuid.UUID
	if err := transaction.WithContext(ctx).
		Model(&types.Lesson{}).
		Joins("JOIN course_section ON course_section.id = lesson.section_id").
		Where("lesson.id = ?", lessonID).
		Pluck("course_section.course_id", &courseIDs).Error; err != nil {
		return uuid.Nil, err
	}
	if len(courseIDs) == 0 {
		return uuid.Nil, nil
	}
	return courseIDs[0], nil
}
