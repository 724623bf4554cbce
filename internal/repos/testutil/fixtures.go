package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumenlearn/lumenlearn-backend/internal/types"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:        uuid.New(),
		Email:     email,
		FirstName: "A",
		LastName:  "B",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, title string) *types.Course {
	tb.Helper()
	c := &types.Course{
		ID:             uuid.New(),
		Title:          title,
		InstructorName: "instructor",
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

func SeedSection(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, index int) *types.CourseSection {
	tb.Helper()
	s := &types.CourseSection{
		ID:       uuid.New(),
		CourseID: courseID,
		Index:    index,
		Title:    "section",
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed section: %v", err)
	}
	return s
}

func SeedLesson(tb testing.TB, ctx context.Context, tx *gorm.DB, sectionID uuid.UUID, index int, kind string) *types.Lesson {
	tb.Helper()
	l := &types.Lesson{
		ID:        uuid.New(),
		SectionID: sectionID,
		Index:     index,
		Title:     "lesson",
		Kind:      kind,
		IsActive:  true,
	}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed lesson: %v", err)
	}
	return l
}

func SeedEvent(tb testing.TB, ctx context.Context, tx *gorm.DB, title string, sessions int) (*types.LiveEvent, []*types.EventSession) {
	tb.Helper()
	e := &types.LiveEvent{
		ID:       uuid.New(),
		Title:    title,
		HostName: "host",
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed event: %v", err)
	}
	out := make([]*types.EventSession, 0, sessions)
	for i := 0; i < sessions; i++ {
		s := &types.EventSession{
			ID:      uuid.New(),
			EventID: e.ID,
			Index:   i,
			Title:   "session",
		}
		if err := tx.WithContext(ctx).Create(s).Error; err != nil {
			tb.Fatalf("seed event session: %v", err)
		}
		out = append(out, s)
	}
	return e, out
}
