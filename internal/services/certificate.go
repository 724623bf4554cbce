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

const maxNumberAttempts = 10

// IssueOptions controls administrator-triggered issuance. Force skips the
// eligibility re-validation (exception-based grants); the at-most-one active
// certificate discipline still applies.
type IssueOptions struct {
	Force bool
}

type CertificateService interface {
	// Request is the learner-facing entry point. Idempotent in effect:
	// repeated calls after a success return the same certificate.
	Request(ctx context.Context, userID uuid.UUID, ref types.EntityRef) (*types.Certificate, error)
	Issue(ctx context.Context, userID uuid.UUID, ref types.EntityRef, opts IssueOptions) (*types.Certificate, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*types.Certificate, error)
	// GetPublicByNumber serves the anonymous verification page and therefore
	// exposes only the lookup record shape, never the primary record.
	GetPublicByNumber(ctx context.Context, number string) (*types.CertificateLookup, error)
	Revoke(ctx context.Context, number string) error
}

type certificateService struct {
	db          *gorm.DB
	log         *logger.Logger
	certRepo    repos.CertificateRepo
	lookupRepo  repos.CertificateLookupRepo
	userRepo    repos.UserRepo
	eligibility EligibilityService
	profiles    map[string]EntityProfile
	numbers     *NumberGenerator
}

func NewCertificateService(
	db *gorm.DB,
	baseLog *logger.Logger,
	certRepo repos.CertificateRepo,
	lookupRepo repos.CertificateLookupRepo,
	userRepo repos.UserRepo,
	eligibility EligibilityService,
	profiles map[string]EntityProfile,
) CertificateService {
	serviceLog := baseLog.With("service", "CertificateService")
	return &certificateService{
		db:          db,
		log:         serviceLog,
		certRepo:    certRepo,
		lookupRepo:  lookupRepo,
		userRepo:    userRepo,
		eligibility: eligibility,
		profiles:    profiles,
		numbers:     NewNumberGenerator(),
	}
}

func (s *certificateService) Request(ctx context.Context, userID uuid.UUID, ref types.EntityRef) (*types.Certificate, error) {
	return s.Issue(ctx, userID, ref, IssueOptions{})
}

func (s *certificateService) Issue(ctx context.Context, userID uuid.UUID, ref types.EntityRef, opts IssueOptions) (*types.Certificate, error) {
	profile, ok := s.profiles[ref.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown entity kind %q", ref.Kind)
	}

	if !opts.Force {
		result, err := s.eligibility.Evaluate(ctx, nil, userID, ref)
		if err != nil {
			return nil, err
		}
		if result.ExistingCertificate != nil {
			return result.ExistingCertificate, nil
		}
		if !result.IsEligible {
			return nil, &NotEligibleError{Percentage: result.Percentage, Missing: result.Missing}
		}
	}

	// Second existence check inside the issue operation itself. Two callers
	// can both pass Evaluate before either writes; this narrows the window,
	// and the active_key unique index closes it completely.
	if existing, err := s.certRepo.GetActiveByUserAndEntity(ctx, nil, userID, ref); err != nil {
		return nil, fmt.Errorf("recheck existing certificate: %w", err)
	} else if existing != nil {
		return existing, nil
	}

	catalog, err := profile.Source.GetCatalog(ctx, nil, ref.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCatalogUnavailable
		}
		return nil, fmt.Errorf("load catalog for snapshot: %w", err)
	}

	studentName := ""
	if users, err := s.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID}); err != nil {
		return nil, fmt.Errorf("load user for snapshot: %w", err)
	} else if len(users) > 0 {
		studentName = users[0].FullName()
	}
	if studentName == "" {
		return nil, fmt.Errorf("user %s not found", userID)
	}

	now := time.Now().UTC()
	activeKey := types.ActiveKeyFor(userID, ref)

	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number := s.numbers.Generate(now)
		if attempt == maxNumberAttempts-1 {
			// Every random attempt collided. Astronomically unlikely, but the
			// operation must not fail for it: force uniqueness with a
			// timestamp suffix instead.
			number = s.numbers.Disambiguate(number, now)
			s.log.Warn("certificate number generation exhausted, using disambiguator",
				"user_id", userID, "entity_id", ref.ID, "number", number)
		}

		taken, err := s.numberTaken(ctx, number)
		if err != nil {
			return nil, err
		}
		if taken {
			continue
		}

		cert := &types.Certificate{
			ID:                uuid.New(),
			CertificateNumber: number,
			UserID:            userID,
			EntityKind:        ref.Kind,
			EntityID:          ref.ID,
			StudentName:       studentName,
			EntityTitle:       catalog.Title,
			InstructorName:    catalog.InstructorName,
			DurationMinutes:   catalog.DurationMinutes,
			IssuedAt:          now,
			IsActive:          true,
			ActiveKey:         &activeKey,
		}

		cert, err = s.commitDualWrite(ctx, userID, ref, cert)
		if err != nil {
			if errors.Is(err, repos.ErrDuplicateNumber) {
				continue
			}
			return nil, err
		}
		return cert, nil
	}

	return nil, fmt.Errorf("certificate number space exhausted for user %s", userID)
}

// commitDualWrite performs the primary insert, then the lookup insert, with a
// compensating delete of the primary if the lookup write fails. Once the
// primary is committed the operation runs to completion even if the caller's
// context is cancelled: a primary with no lookup counterpart is the one state
// this must never leave behind.
func (s *certificateService) commitDualWrite(ctx context.Context, userID uuid.UUID, ref types.EntityRef, cert *types.Certificate) (*types.Certificate, error) {
	if err := s.certRepo.Insert(ctx, nil, cert); err != nil {
		if errors.Is(err, repos.ErrDuplicateActiveCertificate) {
			// Lost the race; the winner's committed record is the answer.
			existing, readErr := s.certRepo.GetActiveByUserAndEntity(ctx, nil, userID, ref)
			if readErr != nil {
				return nil, fmt.Errorf("read winning certificate: %w", readErr)
			}
			if existing == nil {
				return nil, fmt.Errorf("certificate insert rejected but no active certificate found")
			}
			s.log.Info("concurrent issuance detected, returning committed certificate",
				"user_id", userID, "entity_id", ref.ID, "number", existing.CertificateNumber)
			return existing, nil
		}
		return nil, err
	}

	detached := context.WithoutCancel(ctx)

	lookup := &types.CertificateLookup{
		CertificateNumber: cert.CertificateNumber,
		StudentName:       cert.StudentName,
		EntityTitle:       cert.EntityTitle,
		EntityKind:        cert.EntityKind,
		IssuedAt:          cert.IssuedAt,
		IsValid:           true,
	}
	if err := s.lookupRepo.Insert(detached, nil, lookup); err != nil {
		s.log.Error("lookup record write failed, rolling back primary",
			"number", cert.CertificateNumber, "error", err)
		if delErr := s.certRepo.HardDeleteByNumber(detached, nil, cert.CertificateNumber); delErr != nil {
			// Orphaned primary record. Flag it for out-of-band reconciliation
			// rather than retrying forever.
			s.log.Error("compensating delete failed, primary record orphaned",
				"number", cert.CertificateNumber, "user_id", userID,
				"entity_id", ref.ID, "needs_reconciliation", true, "error", delErr)
			return nil, &PartialWriteError{Number: cert.CertificateNumber, RolledBack: false, Err: err}
		}
		return nil, &PartialWriteError{Number: cert.CertificateNumber, RolledBack: true, Err: err}
	}

	s.log.Info("certificate issued",
		"number", cert.CertificateNumber, "user_id", userID,
		"entity_kind", ref.Kind, "entity_id", ref.ID)
	return cert, nil
}

func (s *certificateService) numberTaken(ctx context.Context, number string) (bool, error) {
	// A number must be free in both stores before it is accepted.
	if exists, err := s.certRepo.NumberExists(ctx, nil, number); err != nil {
		return false, fmt.Errorf("check number in primary store: %w", err)
	} else if exists {
		return true, nil
	}
	if exists, err := s.lookupRepo.NumberExists(ctx, nil, number); err != nil {
		return false, fmt.Errorf("check number in lookup store: %w", err)
	} else if exists {
		return true, nil
	}
	return false, nil
}

func (s *certificateService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*types.Certificate, error) {
	return s.certRepo.GetByUserID(ctx, nil, userID)
}

func (s *certificateService) GetPublicByNumber(ctx context.Context, number string) (*types.CertificateLookup, error) {
	return s.lookupRepo.GetByNumber(ctx, nil, number)
}

func (s *certificateService) Revoke(ctx context.Context, number string) error {
	if err := s.certRepo.Revoke(ctx, nil, number); err != nil {
		return err
	}
	if err := s.lookupRepo.Invalidate(ctx, nil, number); err != nil {
		// Primary is already revoked; the lookup row now overstates validity.
		// Same reconciliation channel as a failed rollback.
		s.log.Error("lookup invalidation failed after revoke",
			"number", number, "needs_reconciliation", true, "error", err)
		return err
	}
	return nil
}
