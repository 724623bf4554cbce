package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumenlearn/lumenlearn-backend/internal/logger"
	"github.com/lumenlearn/lumenlearn-backend/internal/types"
)

type LessonProgressRepo interface {
	GetByUserAndLesson(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) (*types.LessonProgress, error)
	GetByUserAndLessonIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, lessonIDs []uuid.UUID) ([]*types.LessonProgress, error)
	Create(ctx context.Context, tx *gorm.DB, row *types.LessonProgress) error
	// CompareAndSwap writes row only if the stored row still carries
	// prevUpdatedAt; returns ErrStaleWrite otherwise. This is what keeps a
	// stale periodic tick from regressing a newer write.
	CompareAndSwap(ctx context.Context, tx *gorm.DB, row *types.LessonProgress, prevUpdatedAt time.Time) error
	FullDeleteByUserAndLesson(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) error
}

type lessonProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonProgressRepo(db *gorm.DB, baseLog *logger.Logger) LessonProgressRepo {
	repoLog := baseLog.With("repo", "LessonProgressRepo")
	return &lessonProgressRepo{db: db, log: repoLog}
}

func (r *lessonProgressRepo) GetByUserAndLesson(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) (*types.LessonProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if userID == uuid.Nil || lessonID == uuid.Nil {
		return nil, nil
	}

	var results []*types.LessonProgress
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *lessonProgressRepo) GetByUserAndLessonIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, lessonIDs []uuid.UUID) ([]*types.LessonProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.LessonProgress
	if userID == uuid.Nil || len(lessonIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND lesson_id IN ?", userID, lessonIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *lessonProgressRepo) Create(ctx context.Context, tx *gorm.DB, row *types.LessonProgress) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}

	err := transaction.WithContext(ctx).Create(row).Error
	if err != nil && isUniqueViolation(err) {
		// Another writer created the (user, lesson) row first.
		return ErrStaleWrite
	}
	return err
}

func (r *lessonProgressRepo) CompareAndSwap(ctx context.Context, tx *gorm.DB, row *types.LessonProgress, prevUpdatedAt time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}

	res := transaction.WithContext(ctx).
		Model(&types.LessonProgress{}).
		Where("id = ? AND updated_at = ?", row.ID, prevUpdatedAt).
		Updates(map[string]interface{}{
			"watch_time_seconds":    row.WatchTimeSeconds,
			"last_position_seconds": row.LastPositionSeconds,
			"is_completed":          row.IsCompleted,
			"completed_at":          row.CompletedAt,
			"quiz_score":            row.QuizScore,
			"quiz_attempts":         row.QuizAttempts,
			"updated_at":            time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleWrite
	}
	return nil
}

func (r *lessonProgressRepo) FullDeleteByUserAndLesson(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if userID == uuid.Nil || lessonID == uuid.Nil {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Unscoped().
		Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		Delete(&types.LessonProgress{}).Error; err != nil {
		return err
	}
	return nil
}
