package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumenlearn/lumenlearn-backend/internal/logger"
	"github.com/lumenlearn/lumenlearn-backend/internal/repos"
	"github.com/lumenlearn/lumenlearn-backend/internal/types"
)

// EligibilityResult is the ephemeral outcome of one evaluation. Not persisted.
type EligibilityResult struct {
	IsEligible          bool               `json:"is_eligible"`
	Percentage          int                `json:"percentage"`
	CompletedUnits      int                `json:"completed_units"`
	TotalUnits          int                `json:"total_units"`
	Missing             []string           `json:"missing_requirements"`
	ViaException        bool               `json:"via_exception,omitempty"`
	ExistingCertificate *types.Certificate `json:"existing_certificate,omitempty"`
}

type EligibilityService interface {
	// Evaluate is read-only and safe to call repeatedly. Order matters:
	// administrative exception first, then an existing active certificate
	// (idempotent short-circuit), then derivation from catalog + progress.
	Evaluate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, ref types.EntityRef) (*EligibilityResult, error)
}

type eligibilityService struct {
	db            *gorm.DB
	log           *logger.Logger
	exceptionRepo repos.CertificateExceptionRepo
	certRepo      repos.CertificateRepo
	profiles      map[string]EntityProfile
}

func NewEligibilityService(
	db *gorm.DB,
	baseLog *logger.Logger,
	exceptionRepo repos.CertificateExceptionRepo,
	certRepo repos.CertificateRepo,
	profiles map[string]EntityProfile,
) EligibilityService {
	serviceLog := baseLog.With("service", "EligibilityService")
	return &eligibilityService{
		db:            db,
		log:           serviceLog,
		exceptionRepo: exceptionRepo,
		certRepo:      certRepo,
		profiles:      profiles,
	}
}

func (s *eligibilityService) Evaluate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, ref types.EntityRef) (*EligibilityResult, error) {
	profile, ok := s.profiles[ref.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown entity kind %q", ref.Kind)
	}

	// Administrative override: unconditional eligibility, real progress
	// ignored. Lets an admin unblock a learner with broken progress data
	// without fabricating progress rows.
	hasException, err := s.exceptionRepo.HasActive(ctx, tx, userID, ref)
	if err != nil {
		return nil, fmt.Errorf("check exception: %w", err)
	}
	if hasException {
		return &EligibilityResult{
			IsEligible:   true,
			Percentage:   100,
			Missing:      []string{},
			ViaException: true,
		}, nil
	}

	// Already certified: never re-derive; the committed certificate is the
	// answer.
	existing, err := s.certRepo.GetActiveByUserAndEntity(ctx, tx, userID, ref)
	if err != nil {
		return nil, fmt.Errorf("check existing certificate: %w", err)
	}
	if existing != nil {
		return &EligibilityResult{
			IsEligible:          true,
			Percentage:          100,
			Missing:             []string{},
			ExistingCertificate: existing,
		}, nil
	}

	catalog, err := profile.Source.GetCatalog(ctx, tx, ref.ID)
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

	completedIDs, err := profile.Source.CompletedUnitIDs(ctx, tx, userID, catalog.UnitIDs())
	if err != nil {
		return nil, fmt.Errorf("load completed units: %w", err)
	}
	completed := len(completedIDs)
	if completed > total {
		// Progress rows for units since removed from the catalog are not
		// counted by CompletedUnitIDs (it is scoped to current unit ids), so
		// this should not happen; clamp anyway.
		completed = total
	}

	percentage := completed * 100 / total
	result := &EligibilityResult{
		Percentage:     percentage,
		CompletedUnits: completed,
		TotalUnits:     total,
		Missing:        []string{},
	}

	if percentage >= profile.ThresholdPercent {
		result.IsEligible = true
		return result, nil
	}

	required := (profile.ThresholdPercent*total + 99) / 100
	remaining := required - completed
	noun := profile.UnitNoun
	if remaining != 1 {
		noun += "s"
	}
	result.Missing = append(result.Missing, fmt.Sprintf("%d %s remaining", remaining, noun))
	return result, nil
}
