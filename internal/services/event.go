package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumenlearn/lumenlearn-backend/internal/logger"
	"github.com/lumenlearn/lumenlearn-backend/internal/repos"
	"github.com/lumenlearn/lumenlearn-backend/internal/types"
)

type EventService interface {
	// RecordAttendance marks a session attended (idempotent per session) and
	// re-evaluates the event's certificate eligibility so the caller can fire
	// the auto-issue trigger when the 70% threshold is first crossed.
	RecordAttendance(ctx context.Context, userID, sessionID uuid.UUID) (types.EntityRef, *EligibilityResult, error)
}

type eventService struct {
	db          *gorm.DB
	log         *logger.Logger
	eventRepo   repos.EventRepo
	eligibility EligibilityService
}

func NewEventService(db *gorm.DB, baseLog *logger.Logger, eventRepo repos.EventRepo, eligibility EligibilityService) EventService {
	serviceLog := baseLog.With("service", "EventService")
	return &eventService{db: db, log: serviceLog, eventRepo: eventRepo, eligibility: eligibility}
}

func (s *eventService) RecordAttendance(ctx context.Context, userID, sessionID uuid.UUID) (types.EntityRef, *EligibilityResult, error) {
	eventID, err := s.eventRepo.GetEventIDForSession(ctx, nil, sessionID)
	if err != nil {
		return types.EntityRef{}, nil, fmt.Errorf("resolve event for session: %w", err)
	}
	if eventID == uuid.Nil {
		return types.EntityRef{}, nil, gorm.ErrRecordNotFound
	}

	if err := s.eventRepo.RecordAttendance(ctx, nil, &types.EventAttendance{
		ID:        uuid.New(),
		UserID:    userID,
		SessionID: sessionID,
	}); err != nil {
		return types.EntityRef{}, nil, fmt.Errorf("record attendance: %w", err)
	}

	ref := types.EventRef(eventID)
	result, err := s.eligibility.Evaluate(ctx, nil, userID, ref)
	if err != nil {
		return ref, nil, err
	}
	return ref, result, nil
}
