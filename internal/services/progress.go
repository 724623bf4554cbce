package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumenlearn/lumenlearn-backend/internal/logger"
	"github.com/lumenlearn/lumenlearn-backend/internal/repos"
	"github.com/lumenlearn/lumenlearn-backend/internal/types"
)

const (
	quizPassScore    = 70
	casRetryAttempts = 3
)

// CompletionTransition reports what a single progress write changed at the
// course level. CourseCompleted is true only on the write that first moves the
// course to 100%; the auto-issue trigger keys off it.
type CompletionTransition struct {
	CourseID        uuid.UUID `json:"course_id"`
	LessonCompleted bool      `json:"lesson_completed"`
	CourseCompleted bool      `json:"course_completed"`
	Percentage      int       `json:"percentage"`
}

// CourseProgress is the derived, never-persisted course completion view.
type CourseProgress struct {
	CourseID   uuid.UUID               `json:"course_id"`
	Completed  int                     `json:"completed_lessons"`
	Total      int                     `json:"total_lessons"`
	Percentage int                     `json:"percentage"`
	Lessons    []*types.LessonProgress `json:"lessons"`
}

type ProgressService interface {
	RecordVideoProgress(ctx context.Context, userID, lessonID uuid.UUID, positionSeconds, watchedSeconds int, ended bool) (*types.LessonProgress, *CompletionTransition, error)
	RecordReadingProgress(ctx context.Context, userID, lessonID uuid.UUID, readSeconds int, finished bool) (*types.LessonProgress, *CompletionTransition, error)
	SubmitQuiz(ctx context.Context, userID, lessonID uuid.UUID, score int) (*types.LessonProgress, *CompletionTransition, error)
	MarkLessonComplete(ctx context.Context, userID, lessonID uuid.UUID) (*types.LessonProgress, *CompletionTransition, error)
	GetCourseProgress(ctx context.Context, userID, courseID uuid.UUID) (*CourseProgress, error)
	// ResetLesson is the administrative escape hatch. Policy decision: the
	// engine never flips is_completed back to false in place; a reset removes
	// the row entirely and the lesson reads as not started.
	ResetLesson(ctx context.Context, userID, lessonID uuid.UUID) error
}

type progressService struct {
	db           *gorm.DB
	log          *logger.Logger
	progressRepo repos.LessonProgressRepo
	lessonRepo   repos.LessonRepo
	courseRepo   repos.CourseRepo
}

func NewProgressService(
	db *gorm.DB,
	baseLog *logger.Logger,
	progressRepo repos.LessonProgressRepo,
	lessonRepo repos.LessonRepo,
	courseRepo repos.CourseRepo,
) ProgressService {
	serviceLog := baseLog.With("service", "ProgressService")
	return &progressService{
		db:           db,
		log:          serviceLog,
		progressRepo: progressRepo,
		lessonRepo:   lessonRepo,
		courseRepo:   courseRepo,
	}
}

func (s *progressService) RecordVideoProgress(ctx context.Context, userID, lessonID uuid.UUID, positionSeconds, watchedSeconds int, ended bool) (*types.LessonProgress, *CompletionTransition, error) {
	if positionSeconds < 0 || watchedSeconds < 0 {
		return nil, nil, ErrInvalidProgress
	}
	if err := s.checkLessonKind(ctx, lessonID, types.LessonKindVideo, types.LessonKindMixed); err != nil {
		return nil, nil, err
	}
	return s.apply(ctx, userID, lessonID, func(row *types.LessonProgress) {
		row.WatchTimeSeconds += watchedSeconds
		if positionSeconds > row.LastPositionSeconds {
			row.LastPositionSeconds = positionSeconds
		}
		if ended {
			complete(row)
		}
	})
}

func (s *progressService) RecordReadingProgress(ctx context.Context, userID, lessonID uuid.UUID, readSeconds int, finished bool) (*types.LessonProgress, *CompletionTransition, error) {
	if readSeconds < 0 {
		return nil, nil, ErrInvalidProgress
	}
	if err := s.checkLessonKind(ctx, lessonID, types.LessonKindNotes, types.LessonKindMixed); err != nil {
		return nil, nil, err
	}
	return s.apply(ctx, userID, lessonID, func(row *types.LessonProgress) {
		row.WatchTimeSeconds += readSeconds
		if finished {
			complete(row)
		}
	})
}

func (s *progressService) SubmitQuiz(ctx context.Context, userID, lessonID uuid.UUID, score int) (*types.LessonProgress, *CompletionTransition, error) {
	if score < 0 || score > 100 {
		return nil, nil, ErrInvalidProgress
	}
	if err := s.checkLessonKind(ctx, lessonID, types.LessonKindQuiz, types.LessonKindMixed); err != nil {
		return nil, nil, err
	}
	return s.apply(ctx, userID, lessonID, func(row *types.LessonProgress) {
		row.QuizAttempts++
		if row.QuizScore == nil || score > *row.QuizScore {
			best := score
			row.QuizScore = &best
		}
		if score >= quizPassScore {
			complete(row)
		}
	})
}

func (s *progressService) MarkLessonComplete(ctx context.Context, userID, lessonID uuid.UUID) (*types.LessonProgress, *CompletionTransition, error) {
	if err := s.checkLessonKind(ctx, lessonID); err != nil {
		return nil, nil, err
	}
	return s.apply(ctx, userID, lessonID, complete)
}

// complete is the single place the one-way false→true transition happens.
// CompletedAt is set once and never touched again.
func complete(row *types.LessonProgress) {
	if row.IsCompleted {
		return
	}
	now := time.Now().UTC()
	row.IsCompleted = true
	row.CompletedAt = &now
}

// apply runs one monotonic merge against the (user, lesson) row. The
// read-mutate-compare-and-swap loop means a stale tick arriving after a newer
// write re-reads and re-merges instead of clobbering it.
func (s *progressService) apply(ctx context.Context, userID, lessonID uuid.UUID, mutate func(*types.LessonProgress)) (*types.LessonProgress, *CompletionTransition, error) {
	if userID == uuid.Nil || lessonID == uuid.Nil {
		return nil, nil, ErrInvalidProgress
	}

	var lastErr error
	for attempt := 0; attempt < casRetryAttempts; attempt++ {
		existing, err := s.progressRepo.GetByUserAndLesson(ctx, nil, userID, lessonID)
		if err != nil {
			return nil, nil, fmt.Errorf("load progress: %w", err)
		}

		if existing == nil {
			row := &types.LessonProgress{
				ID:       uuid.New(),
				UserID:   userID,
				LessonID: lessonID,
			}
			mutate(row)
			if err := s.progressRepo.Create(ctx, nil, row); err != nil {
				if errors.Is(err, repos.ErrStaleWrite) {
					lastErr = err
					continue
				}
				return nil, nil, fmt.Errorf("create progress: %w", err)
			}
			transition, err := s.transitionFor(ctx, userID, lessonID, row.IsCompleted)
			if err != nil {
				return nil, nil, err
			}
			return row, transition, nil
		}

		merged := *existing
		mutate(&merged)
		justCompleted := merged.IsCompleted && !existing.IsCompleted

		if err := s.progressRepo.CompareAndSwap(ctx, nil, &merged, existing.UpdatedAt); err != nil {
			if errors.Is(err, repos.ErrStaleWrite) {
				lastErr = err
				continue
			}
			return nil, nil, fmt.Errorf("write progress: %w", err)
		}
		transition, err := s.transitionFor(ctx, userID, lessonID, justCompleted)
		if err != nil {
			return nil, nil, err
		}
		return &merged, transition, nil
	}
	return nil, nil, fmt.Errorf("progress write kept losing to concurrent writers: %w", lastErr)
}

func (s *progressService) transitionFor(ctx context.Context, userID, lessonID uuid.UUID, justCompleted bool) (*CompletionTransition, error) {
	transition := &CompletionTransition{LessonCompleted: justCompleted}
	if !justCompleted {
		return transition, nil
	}

	courseID, err := s.lessonRepo.GetCourseID(ctx, nil, lessonID)
	if err != nil {
		return nil, fmt.Errorf("resolve course for lesson: %w", err)
	}
	if courseID == uuid.Nil {
		return transition, nil
	}
	transition.CourseID = courseID

	progress, err := s.GetCourseProgress(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	transition.Percentage = progress.Percentage
	// This write completed a lesson and the course now reads 100%, so this is
	// the first time the course crossed the line (completion is one-way).
	transition.CourseCompleted = progress.Percentage == 100
	return transition, nil
}

func (s *progressService) GetCourseProgress(ctx context.Context, userID, courseID uuid.UUID) (*CourseProgress, error) {
	catalog, err := s.courseRepo.GetCatalog(ctx, nil, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCatalogUnavailable
		}
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	total := len(catalog.Units)
	if total == 0 {
		return nil, ErrCatalogUnavailable
	}

	rows, err := s.progressRepo.GetByUserAndLessonIDs(ctx, nil, userID, catalog.UnitIDs())
	if err != nil {
		return nil, fmt.Errorf("load progress rows: %w", err)
	}
	completed := 0
	for _, row := range rows {
		if row.IsCompleted {
			completed++
		}
	}

	return &CourseProgress{
		CourseID:   courseID,
		Completed:  completed,
		Total:      total,
		Percentage: completed * 100 / total,
		Lessons:    rows,
	}, nil
}

func (s *progressService) ResetLesson(ctx context.Context, userID, lessonID uuid.UUID) error {
	return s.progressRepo.FullDeleteByUserAndLesson(ctx, nil, userID, lessonID)
}

func (s *progressService) checkLessonKind(ctx context.Context, lessonID uuid.UUID, allowed ...string) error {
	lessons, err := s.lessonRepo.GetByIDs(ctx, nil, []uuid.UUID{lessonID})
	if err != nil {
		return fmt.Errorf("load lesson: %w", err)
	}
	if len(lessons) == 0 {
		return gorm.ErrRecordNotFound
	}
	if len(allowed) == 0 {
		return nil
	}
	for _, kind := range allowed {
		if lessons[0].Kind == kind {
			return nil
		}
	}
	return ErrInvalidProgress
}
