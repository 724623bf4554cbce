package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumenlearn/lumenlearn-backend/internal/logger"
	"github.com/lumenlearn/lumenlearn-backend/internal/types"
)

type EventRepo interface {
	GetByIDs(ctx context.Context, tx *gorm.DB, eventIDs []uuid.UUID) ([]*types.LiveEvent, error)
	// GetCatalog maps a live event's sessions into the shared catalog shape so
	// the eligibility engine can treat events and courses the same way.
	GetCatalog(ctx context.Context, tx *gorm.DB, eventID uuid.UUID) (*types.Catalog, error)
	GetAttendedSessionIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, sessionIDs []uuid.UUID) ([]uuid.UUID, error)
	GetEventIDForSession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (uuid.UUID, error)
	RecordAttendance(ctx context.Context, tx *gorm.DB, row *types.EventAttendance) error
}

type eventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEventRepo(db *gorm.DB, baseLog *logger.Logger) EventRepo {
	repoLog := baseLog.With("repo", "EventRepo")
	return &eventRepo{db: db, log: repoLog}
}

func (r *eventRepo) GetByIDs(ctx context.Context, tx *gorm.DB, eventIDs []uuid.UUID) ([]*types.LiveEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.LiveEvent
	if len(eventIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", eventIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *eventRepo) GetCatalog(ctx context.Context, tx *gorm.DB, eventID uuid.UUID) (*types.Catalog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var event types.LiveEvent
	if err := transaction.WithContext(ctx).
		Where("id = ?", eventID).
		First(&event).Error; err != nil {
		return nil, err
	}

	var sessions []*types.EventSession
	if err := transaction.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("index ASC").
		Find(&sessions).Error; err != nil {
		return nil, err
	}

	catalog := &types.Catalog{
		Ref:             types.EventRef(event.ID),
		Title:           event.Title,
		InstructorName:  event.HostName,
		DurationMinutes: event.DurationMinutes,
		Units:           []types.CatalogUnit{},
	}
	for _, s := range sessions {
		catalog.Units = append(catalog.Units, types.CatalogUnit{
			ID:    s.ID,
			Kind:  "session",
			Title: s.Title,
			Index: s.Index,
		})
	}
	return catalog, nil
}

func (r *eventRepo) GetAttendedSessionIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, sessionIDs []uuid.UUID) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var ids []uuid.UUID
	if userID == uuid.Nil || len(sessionIDs) == 0 {
		return ids, nil
	}

	if err := transaction.WithContext(ctx).
		Model(&types.EventAttendance{}).
		Where("user_id = ? AND session_id IN ?", userID, sessionIDs).
		Pluck("session_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *eventRepo) GetEventIDForSession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if sessionID == uuid.Nil {
		return uuid.Nil, nil
	}

	var eventIDs []uuid.UUID
	if err := transaction.WithContext(ctx).
		Model(&types.EventSession{}).
		Where("id = ?", sessionID).
		Pluck("event_id", &eventIDs).Error; err != nil {
		return uuid.Nil, err
	}
	if len(eventIDs) == 0 {
		return uuid.Nil, nil
	}
	return eventIDs[0], nil
}

func (r *eventRepo) RecordAttendance(ctx context.Context, tx *gorm.DB, row *types.EventAttendance) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}

	err := transaction.WithContext(ctx).Create(row).Error
	if err != nil && isUniqueViolation(err) {
		// Attendance is recorded at most once per session; a replay is fine.
		return nil
	}
	return err
}
