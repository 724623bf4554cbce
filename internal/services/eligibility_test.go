package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/lumenlearn/lumenlearn-backend/internal/types"
)

func TestEvaluateCourseNotYetComplete(t *testing.T) {
	f := newCourseFixture(t, 4, types.LessonKindVideo)
	f.completeLessons(t, 3)

	result, err := f.eligibility(t).Evaluate(context.Background(), nil, f.userID, types.CourseRef(f.courseID))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.IsEligible {
		t.Fatal("expected not eligible at 3/4 lessons")
	}
	if result.Percentage != 75 {
		t.Fatalf("expected 75%%, got %d%%", result.Percentage)
	}
	if result.CompletedUnits != 3 || result.TotalUnits != 4 {
		t.Fatalf("expected 3/4 units, got %d/%d", result.CompletedUnits, result.TotalUnits)
	}
	if len(result.Missing) != 1 || result.Missing[0] != "1 lesson remaining" {
		t.Fatalf("unexpected missing requirements: %v", result.Missing)
	}
}

func TestEvaluateCourseFullyComplete(t *testing.T) {
	f := newCourseFixture(t, 4, types.LessonKindVideo)
	f.completeLessons(t, 4)

	result, err := f.eligibility(t).Evaluate(context.Background(), nil, f.userID, types.CourseRef(f.courseID))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !result.IsEligible {
		t.Fatal("expected eligible at 4/4 lessons")
	}
	if result.Percentage != 100 {
		t.Fatalf("expected 100%%, got %d%%", result.Percentage)
	}
	if len(result.Missing) != 0 {
		t.Fatalf("expected no missing requirements, got %v", result.Missing)
	}
}

func TestEvaluateCourseRequiresFullCompletion(t *testing.T) {
	// 99-ish percent is still not enough for a course.
	f := newCourseFixture(t, 3, types.LessonKindVideo)
	f.completeLessons(t, 2)

	result, err := f.eligibility(t).Evaluate(context.Background(), nil, f.userID, types.CourseRef(f.courseID))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.IsEligible {
		t.Fatal("expected not eligible at 2/3 lessons")
	}
	if result.Percentage != 66 {
		t.Fatalf("expected floor percentage 66, got %d", result.Percentage)
	}
}

func TestEvaluateExceptionBypassesProgress(t *testing.T) {
	f := newCourseFixture(t, 4, types.LessonKindVideo)
	ref := types.CourseRef(f.courseID)
	f.exceptions.grant(f.userID, ref)

	// Zero progress rows exist for this user.
	result, err := f.eligibility(t).Evaluate(context.Background(), nil, f.userID, ref)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !result.IsEligible {
		t.Fatal("expected exception to grant eligibility")
	}
	if !result.ViaException {
		t.Fatal("expected ViaException to be set")
	}
	if len(result.Missing) != 0 {
		t.Fatalf("expected no missing requirements, got %v", result.Missing)
	}
}

func TestEvaluateExistingCertificateShortCircuits(t *testing.T) {
	f := newCourseFixture(t, 4, types.LessonKindVideo)
	ref := types.CourseRef(f.courseID)

	key := types.ActiveKeyFor(f.userID, ref)
	err := f.certs.Insert(context.Background(), nil, &types.Certificate{
		ID:                uuid.New(),
		CertificateNumber: "LUM2026-000001-0001-ABC-DEF01",
		UserID:            f.userID,
		EntityKind:        ref.Kind,
		EntityID:          ref.ID,
		IsActive:          true,
		ActiveKey:         &key,
	})
	if err != nil {
		t.Fatalf("seed certificate: %v", err)
	}

	result, evalErr := f.eligibility(t).Evaluate(context.Background(), nil, f.userID, ref)
	if evalErr != nil {
		t.Fatalf("Evaluate: %v", evalErr)
	}
	if !result.IsEligible {
		t.Fatal("expected eligible when already certified")
	}
	if result.ExistingCertificate == nil {
		t.Fatal("expected existing certificate in result")
	}
	if result.ExistingCertificate.CertificateNumber != "LUM2026-000001-0001-ABC-DEF01" {
		t.Fatalf("unexpected certificate number %q", result.ExistingCertificate.CertificateNumber)
	}
}

func TestEvaluateEmptyCatalogIsUnavailable(t *testing.T) {
	f := newCourseFixture(t, 0, types.LessonKindVideo)

	_, err := f.eligibility(t).Evaluate(context.Background(), nil, f.userID, types.CourseRef(f.courseID))
	if !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("expected ErrCatalogUnavailable, got %v", err)
	}
}

func TestEvaluateMissingCatalogIsUnavailable(t *testing.T) {
	f := newCourseFixture(t, 4, types.LessonKindVideo)

	_, err := f.eligibility(t).Evaluate(context.Background(), nil, f.userID, types.CourseRef(uuid.New()))
	if !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("expected ErrCatalogUnavailable, got %v", err)
	}
}

func TestEvaluateUnknownKind(t *testing.T) {
	f := newCourseFixture(t, 4, types.LessonKindVideo)

	_, err := f.eligibility(t).Evaluate(context.Background(), nil, f.userID, types.EntityRef{Kind: "webinar", ID: uuid.New()})
	if err == nil {
		t.Fatal("expected error for unknown entity kind")
	}
}

func TestEvaluateEventThreshold(t *testing.T) {
	f := newCourseFixture(t, 1, types.LessonKindVideo)
	eventID := uuid.New()

	catalog := &types.Catalog{
		Ref:   types.EventRef(eventID),
		Title: "Live Workshop",
	}
	sessions := make([]uuid.UUID, 10)
	for i := range sessions {
		sessions[i] = uuid.New()
		catalog.Units = append(catalog.Units, types.CatalogUnit{ID: sessions[i], Kind: "session", Index: i})
	}
	f.events.setCatalog(catalog)

	svc := f.eligibility(t)
	ref := types.EventRef(eventID)

	// 6/10 attended: below the 70% attendance bar.
	for i := 0; i < 6; i++ {
		attend := &types.EventAttendance{ID: uuid.New(), UserID: f.userID, SessionID: sessions[i]}
		if err := f.events.RecordAttendance(context.Background(), nil, attend); err != nil {
			t.Fatalf("record attendance: %v", err)
		}
	}
	result, err := svc.Evaluate(context.Background(), nil, f.userID, ref)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.IsEligible {
		t.Fatal("expected not eligible at 60% attendance")
	}
	if len(result.Missing) != 1 || result.Missing[0] != "1 session remaining" {
		t.Fatalf("unexpected missing requirements: %v", result.Missing)
	}

	// 7/10 attended: exactly at threshold.
	attend := &types.EventAttendance{ID: uuid.New(), UserID: f.userID, SessionID: sessions[6]}
	if err := f.events.RecordAttendance(context.Background(), nil, attend); err != nil {
		t.Fatalf("record attendance: %v", err)
	}
	result, err = svc.Evaluate(context.Background(), nil, f.userID, ref)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !result.IsEligible {
		t.Fatal("expected eligible at 70% attendance")
	}
	if result.Percentage != 70 {
		t.Fatalf("expected 70%%, got %d%%", result.Percentage)
	}
}

func TestEvaluateCatalogShrinkNeverLowersPercentage(t *testing.T) {
	f := newCourseFixture(t, 5, types.LessonKindVideo)
	f.completeLessons(t, 3)
	svc := f.eligibility(t)
	ref := types.CourseRef(f.courseID)

	before, err := svc.Evaluate(context.Background(), nil, f.userID, ref)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	// Retire the two lessons the user never completed. The same completed set
	// must now read as a higher (here: full) percentage, never lower.
	catalog, _ := f.courses.GetCatalog(context.Background(), nil, f.courseID)
	catalog.Units = catalog.Units[:3]
	f.courses.setCatalog(catalog)

	after, err := svc.Evaluate(context.Background(), nil, f.userID, ref)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if after.Percentage < before.Percentage {
		t.Fatalf("catalog shrink lowered percentage: %d%% -> %d%%", before.Percentage, after.Percentage)
	}
	if !after.IsEligible || after.Percentage != 100 {
		t.Fatalf("expected 100%% after shrink, got %d%% eligible=%t", after.Percentage, after.IsEligible)
	}
}
